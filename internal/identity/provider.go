package identity

import (
	"context"
	"errors"
	"sync"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/session-gateway/internal/session"
)

const DefaultAdminRole = "admin"

var ErrProviderClosed = errors.New("identity provider closed")

type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseAnonymous
	PhaseLoading
	PhaseReady
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseAnonymous:
		return "anonymous"
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Validator confirms with the server that the stored access token is still accepted.
type Validator interface {
	Validate(ctx context.Context) bool
}

// Accessor is the part of session.Accessor the provider needs.
type Accessor interface {
	IsAuthenticated(ctx context.Context) bool
	GetStoredUser(ctx context.Context) (session.StoredUser, bool)
	StoreAuthUser(ctx context.Context, user session.StoredUser) error
}

// View is the read-only identity handed to request handlers.
type View struct {
	Loading       bool      `json:"loading"`
	Authenticated bool      `json:"authenticated"`
	Admin         bool      `json:"admin"`
	User          *Identity `json:"user"`
}

// Provider resolves the identity of a client from the canonical store and the cached
// credential records, and writes canonical changes through to the cache.
type Provider struct {
	accessor  Accessor
	store     *Store
	validator Validator
	adminRole string

	mu          sync.Mutex
	phase       Phase
	user        *Identity
	unsubscribe func()
}

type ProviderOption func(*Provider)

func WithAdminRole(role string) ProviderOption {
	return func(p *Provider) {
		if role != "" {
			p.adminRole = role
		}
	}
}

// WithValidator sets the validator RefreshUser invokes.
func WithValidator(v Validator) ProviderOption {
	return func(p *Provider) {
		p.validator = v
	}
}

func NewProvider(accessor Accessor, store *Store, opts ...ProviderOption) *Provider {
	p := &Provider{
		accessor:  accessor,
		store:     store,
		adminRole: DefaultAdminRole,
		phase:     PhaseUninitialized,
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Mount subscribes to the canonical store and resolves the initial identity.
func (p *Provider) Mount(ctx context.Context) error {
	p.mu.Lock()
	if p.phase == PhaseClosed {
		p.mu.Unlock()
		return ErrProviderClosed
	}
	if p.unsubscribe == nil {
		p.unsubscribe = p.store.Subscribe(p.onChange)
	}
	p.mu.Unlock()

	p.resolve(ctx)

	return nil
}

// RefreshUser re-resolves the identity and, when a session exists, validates it
// against the server. It returns once the view reflects the outcome.
func (p *Provider) RefreshUser(ctx context.Context) error {
	if p.Phase() == PhaseClosed {
		return ErrProviderClosed
	}

	if !p.resolve(ctx) || p.validator == nil {
		return nil
	}

	if !p.validator.Validate(ctx) {
		slogctx.Info(ctx, "Session was not confirmed by the identity endpoint")
	}

	return nil
}

func (p *Provider) Phase() Phase {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.phase
}

func (p *Provider) View(ctx context.Context) View {
	p.mu.Lock()
	phase := p.phase
	var user *Identity
	if p.user != nil {
		u := *p.user
		user = &u
	}
	p.mu.Unlock()

	if phase == PhaseUninitialized || phase == PhaseLoading {
		return View{Loading: true}
	}

	if phase != PhaseReady || !p.accessor.IsAuthenticated(ctx) {
		return View{}
	}

	canonical := p.store.Snapshot().User

	return View{
		Authenticated: true,
		Admin:         canonical != nil && canonical.Role == p.adminRole,
		User:          user,
	}
}

// Close unsubscribes from the store. The provider cannot be mounted again.
func (p *Provider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.unsubscribe != nil {
		p.unsubscribe()
		p.unsubscribe = nil
	}
	p.phase = PhaseClosed
	p.user = nil
}

// resolve runs the Uninitialized to Ready resolution and reports whether a session exists.
func (p *Provider) resolve(ctx context.Context) bool {
	if !p.accessor.IsAuthenticated(ctx) {
		p.transition(ctx, PhaseAnonymous, nil)
		return false
	}

	p.transition(ctx, PhaseLoading, nil)

	var user *Identity
	if canonical := p.store.Snapshot().User; canonical != nil {
		user = canonical
	} else if stored, ok := p.accessor.GetStoredUser(ctx); ok {
		cached := FromStored(stored)
		user = &cached
	} else {
		slogctx.Debug(ctx, "Session has no cached user yet")
	}

	p.transition(ctx, PhaseReady, user)

	return true
}

func (p *Provider) onChange(ctx context.Context, a Action, prev, next State) {
	// the cached record may have been purged since the last login
	switch a.(type) {
	case LoginSucceeded, UserRefreshed:
	default:
		if sameUser(prev.User, next.User) {
			return
		}
	}

	if next.User == nil {
		p.transition(ctx, PhaseAnonymous, nil)
		return
	}

	if err := p.accessor.StoreAuthUser(ctx, next.User.Stored()); err != nil {
		slogctx.Error(ctx, "Could not cache the signed in user", "error", err)
	}

	p.transition(ctx, PhaseReady, next.User)
}

func (p *Provider) transition(ctx context.Context, phase Phase, user *Identity) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.phase == PhaseClosed {
		return
	}

	if p.phase != phase {
		slogctx.Debug(ctx, "Identity provider transition", "from", p.phase.String(), "to", phase.String())
	}
	p.phase = phase
	p.user = user
}

func sameUser(a, b *Identity) bool {
	if a == nil || b == nil {
		return a == b
	}

	return *a == *b
}
