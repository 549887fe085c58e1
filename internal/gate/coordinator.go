package gate

import (
	"context"
	"sync"

	slogctx "github.com/veqryn/slog-context"
)

// Navigator carries out a navigation.
type Navigator interface {
	Navigate(ctx context.Context, nav Navigation)
}

type NavigatorFunc func(ctx context.Context, nav Navigation)

func (f NavigatorFunc) Navigate(ctx context.Context, nav Navigation) {
	f(ctx, nav)
}

// Coordinator holds the login prompt of one client.
type Coordinator struct {
	policy    Policy
	navigator Navigator

	mu     sync.Mutex
	prompt Prompt
}

type CoordinatorOption func(*Coordinator)

func WithNavigator(n Navigator) CoordinatorOption {
	return func(c *Coordinator) {
		c.navigator = n
	}
}

func NewCoordinator(policy Policy, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		policy: policy,
		prompt: Closed{},
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Coordinator) Current() Prompt {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.prompt
}

func (c *Coordinator) Open(ctx context.Context, mode Mode, path, current string) Navigation {
	return c.apply(ctx, OpenRequested{Mode: mode, Path: path, Current: current})
}

// OpenIfClosed opens the prompt unless it is already open, keeping the mode and
// return path the client chose.
func (c *Coordinator) OpenIfClosed(ctx context.Context, mode Mode, path, current string) Navigation {
	return c.apply(ctx, OpenRequested{Mode: mode, Path: path, Current: current, KeepOpen: true})
}

func (c *Coordinator) Close(ctx context.Context, authenticated bool) Navigation {
	return c.apply(ctx, CloseRequested{Authenticated: authenticated})
}

// AuthChanged closes an open prompt once the client is authenticated.
func (c *Coordinator) AuthChanged(ctx context.Context, authenticated bool) Navigation {
	return c.apply(ctx, AuthChanged{Authenticated: authenticated})
}

func (c *Coordinator) apply(ctx context.Context, e Event) Navigation {
	c.mu.Lock()
	prev := c.prompt
	next, nav := Reduce(prev, e, c.policy)
	c.prompt = next
	c.mu.Unlock()

	if prev != next {
		slogctx.Debug(ctx, "Login prompt changed", "from", describe(prev), "to", describe(next))
	}

	if !nav.None() && c.navigator != nil {
		c.navigator.Navigate(ctx, nav)
	}

	return nav
}

func describe(p Prompt) string {
	if open, ok := p.(Open); ok {
		return "open(" + string(open.Mode) + ", " + open.Path + ")"
	}

	return "closed"
}
