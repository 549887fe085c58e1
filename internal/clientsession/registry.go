package clientsession

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/session-gateway/internal/credstore"
	"github.com/openkcm/session-gateway/internal/gate"
	"github.com/openkcm/session-gateway/internal/identity"
	"github.com/openkcm/session-gateway/internal/session"
	"github.com/openkcm/session-gateway/internal/validator"
)

type Options struct {
	DefaultLifetime time.Duration
	AdminRole       string
	Policy          gate.Policy
	IdleTimeout     time.Duration
	CleanupInterval time.Duration
}

// Registry keeps the live sessions of recently seen clients. Sessions idle for
// longer than IdleTimeout are closed; their credentials stay in the store.
type Registry struct {
	backend *credstore.Backend
	auth    Authenticator
	opts    Options
	now     func() time.Time

	sessions *cache.Cache
}

type RegistryOption func(*Registry)

func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		r.now = now
	}
}

func NewRegistry(backend *credstore.Backend, auth Authenticator, opts Options, ropts ...RegistryOption) *Registry {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 30 * time.Minute
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = time.Minute
	}

	r := &Registry{
		backend:  backend,
		auth:     auth,
		opts:     opts,
		now:      time.Now,
		sessions: cache.New(opts.IdleTimeout, opts.CleanupInterval),
	}
	for _, opt := range ropts {
		opt(r)
	}

	r.sessions.OnEvicted(func(clientID string, v any) {
		if s, ok := v.(*Session); ok {
			s.Close()
		}
	})

	return r
}

// Get returns the session of clientID, mounting and validating a new one if the
// client has no live session. Concurrent first requests of a client settle on
// the session that was registered first.
func (r *Registry) Get(ctx context.Context, clientID string) (*Session, error) {
	for {
		if v, ok := r.sessions.Get(clientID); ok {
			// re-setting resets the idle timer
			r.sessions.SetDefault(clientID, v)
			return v.(*Session), nil
		}

		s := r.newSession(clientID)
		if err := s.provider.Mount(ctx); err != nil {
			return nil, err
		}

		if err := r.sessions.Add(clientID, s, cache.DefaultExpiration); err != nil {
			// another request mounted the client first
			s.Close()
			continue
		}

		slogctx.Debug(ctx, "Mounted client session", "client_id", clientID)

		if _, err := s.Refresh(ctx); err != nil {
			return nil, err
		}

		return s, nil
	}
}

// Remove closes the live session of clientID.
func (r *Registry) Remove(clientID string) {
	r.sessions.Delete(clientID)
}

func (r *Registry) Len() int {
	return r.sessions.ItemCount()
}

// Flush closes every live session.
func (r *Registry) Flush() {
	for clientID := range r.sessions.Items() {
		r.sessions.Delete(clientID)
	}
}

func (r *Registry) newSession(clientID string) *Session {
	accessor := session.NewAccessor(
		r.backend.Store(clientID),
		session.WithClock(r.now),
		session.WithDefaultLifetime(r.opts.DefaultLifetime),
	)
	store := identity.NewStore()
	v := validator.New(accessor, store, r.auth)
	provider := identity.NewProvider(accessor, store,
		identity.WithAdminRole(r.opts.AdminRole),
		identity.WithValidator(v),
	)

	return &Session{
		id:          clientID,
		accessor:    accessor,
		identity:    store,
		provider:    provider,
		coordinator: gate.NewCoordinator(r.opts.Policy),
		auth:        r.auth,
		now:         r.now,
	}
}
