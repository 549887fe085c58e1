// Package gate decides what a protected route shows and remembers where a user was
// headed when a login prompt interrupted them.
package gate

import (
	"encoding/json"
	"strings"
	"time"
)

type Mode string

const (
	ModeLogin  Mode = "login"
	ModeSignup Mode = "signup"
)

func (m Mode) Valid() bool {
	return m == ModeLogin || m == ModeSignup
}

// Prompt is either Closed or Open.
type Prompt interface {
	prompt()
}

type Closed struct{}

type Open struct {
	Mode Mode
	Path string
}

func (Closed) prompt() {}
func (Open) prompt()   {}

// Event is one of OpenRequested, CloseRequested or AuthChanged.
type Event interface {
	event()
}

type OpenRequested struct {
	Mode Mode
	// Path is the destination after login. Empty means Current.
	Path    string
	Current string
	// KeepOpen leaves an already open prompt untouched.
	KeepOpen bool
}

type CloseRequested struct {
	Authenticated bool
}

type AuthChanged struct {
	Authenticated bool
}

func (OpenRequested) event()  {}
func (CloseRequested) event() {}
func (AuthChanged) event()    {}

// Navigation tells the client where to go next. The zero value means stay.
type Navigation struct {
	Target string
	Back   bool
	Delay  time.Duration
}

func (n Navigation) None() bool {
	return n.Target == "" && !n.Back
}

func (n Navigation) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Target  string `json:"target,omitempty"`
		Back    bool   `json:"back,omitempty"`
		DelayMs int64  `json:"delayMs,omitempty"`
	}{
		Target:  n.Target,
		Back:    n.Back,
		DelayMs: n.Delay.Milliseconds(),
	})
}

// PromptView is the wire form of a Prompt.
type PromptView struct {
	Open bool   `json:"open"`
	Mode Mode   `json:"mode,omitempty"`
	Path string `json:"path,omitempty"`
}

func ViewOf(p Prompt) PromptView {
	if open, ok := p.(Open); ok {
		return PromptView{Open: true, Mode: open.Mode, Path: open.Path}
	}

	return PromptView{}
}

type Policy struct {
	CatalogPath    string
	CheckoutPrefix string
	SettleDelay    time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		CatalogPath:    "/premium",
		CheckoutPrefix: "/premium/checkout",
		SettleDelay:    100 * time.Millisecond,
	}
}

// Reduce applies e to p. Navigation is only ever produced by the transition out of Open.
func Reduce(p Prompt, e Event, pol Policy) (Prompt, Navigation) {
	switch e := e.(type) {
	case OpenRequested:
		if _, open := p.(Open); open && e.KeepOpen {
			return p, Navigation{}
		}
		mode := e.Mode
		if !mode.Valid() {
			mode = ModeLogin
		}
		path := e.Path
		if path == "" {
			path = e.Current
		}
		return Open{Mode: mode, Path: path}, Navigation{}
	case CloseRequested:
		open, ok := p.(Open)
		if !ok {
			return Closed{}, Navigation{}
		}
		if e.Authenticated {
			return Closed{}, resume(open, pol)
		}
		return Closed{}, dismiss(open, pol)
	case AuthChanged:
		open, ok := p.(Open)
		if !ok || !e.Authenticated {
			return p, Navigation{}
		}
		return Closed{}, resume(open, pol)
	}

	return p, Navigation{}
}

func resume(open Open, pol Policy) Navigation {
	if open.Path == "" {
		return Navigation{}
	}

	return Navigation{Target: open.Path, Delay: pol.SettleDelay}
}

func dismiss(open Open, pol Policy) Navigation {
	if pol.CheckoutPrefix != "" && strings.HasPrefix(open.Path, pol.CheckoutPrefix) {
		return Navigation{Target: pol.CatalogPath}
	}

	return Navigation{Back: true}
}
