// Package session reads and writes the credential records of a client.
package session

import (
	"context"
	"time"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/session-gateway/internal/credstore"
)

type Accessor struct {
	store    *credstore.Store
	lifetime time.Duration
	now      func() time.Time
}

type AccessorOption func(*Accessor)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) AccessorOption {
	return func(a *Accessor) {
		a.now = now
	}
}

// WithDefaultLifetime sets the lifetime used when StoreTokens gets no ExpiresIn.
func WithDefaultLifetime(d time.Duration) AccessorOption {
	return func(a *Accessor) {
		if d > 0 {
			a.lifetime = d
		}
	}
}

func NewAccessor(store *credstore.Store, opts ...AccessorOption) *Accessor {
	a := &Accessor{
		store:    store,
		lifetime: DefaultLifetime,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	return a
}

// GetAccessToken returns the access token while it is valid.
// Expired credentials are cleared eagerly.
func (a *Accessor) GetAccessToken(ctx context.Context) (string, bool) {
	tokens, ok := a.tokens(ctx)
	if !ok {
		return "", false
	}

	if a.now().UnixMilli() >= tokens.ExpiresAt {
		slogctx.Debug(ctx, "Access token expired, clearing credentials", "client_id", a.store.ClientID())
		a.Clear(ctx)

		return "", false
	}

	return tokens.AccessToken, true
}

func (a *Accessor) GetRefreshToken(ctx context.Context) (string, bool) {
	tokens, ok := a.tokens(ctx)
	if !ok || tokens.RefreshToken == "" {
		return "", false
	}

	return tokens.RefreshToken, true
}

func (a *Accessor) GetIDToken(ctx context.Context) (string, bool) {
	tokens, ok := a.tokens(ctx)
	if !ok || tokens.IDToken == "" {
		return "", false
	}

	return tokens.IDToken, true
}

// ExpiresAt reports when the stored access token expires. It does not purge.
func (a *Accessor) ExpiresAt(ctx context.Context) (time.Time, bool) {
	tokens, ok := a.tokens(ctx)
	if !ok {
		return time.Time{}, false
	}

	return time.UnixMilli(tokens.ExpiresAt), true
}

func (a *Accessor) IsAuthenticated(ctx context.Context) bool {
	_, ok := a.GetAccessToken(ctx)
	return ok
}

func (a *Accessor) StoreTokens(ctx context.Context, in TokenInput) error {
	lifetime := a.lifetime
	if in.ExpiresIn > 0 {
		lifetime = time.Duration(in.ExpiresIn) * time.Second
	}

	return a.store.Write(ctx, credstore.KeyTokens, StoredTokens{
		AccessToken:  in.AccessToken,
		RefreshToken: in.RefreshToken,
		IDToken:      in.IDToken,
		ExpiresAt:    a.now().Add(lifetime).UnixMilli(),
	})
}

func (a *Accessor) StoreAuthUser(ctx context.Context, user StoredUser) error {
	return a.store.Write(ctx, credstore.KeyUser, user)
}

func (a *Accessor) GetStoredUser(ctx context.Context) (StoredUser, bool) {
	var user StoredUser
	if !a.store.Read(ctx, credstore.KeyUser, &user) {
		return StoredUser{}, false
	}

	return user, true
}

// Clear removes every credential record of the client from all tiers.
func (a *Accessor) Clear(ctx context.Context) {
	a.store.Clear(ctx)
}

func (a *Accessor) tokens(ctx context.Context) (StoredTokens, bool) {
	var tokens StoredTokens
	if !a.store.Read(ctx, credstore.KeyTokens, &tokens) {
		return StoredTokens{}, false
	}

	if tokens.AccessToken == "" {
		return StoredTokens{}, false
	}

	return tokens, true
}
