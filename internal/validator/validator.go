// Package validator confirms a stored session with the identity endpoint.
package validator

import (
	"context"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/session-gateway/internal/identity"
)

// IdentityClient asks the server who the bearer of token is.
type IdentityClient interface {
	Me(ctx context.Context, token string) (identity.Identity, error)
}

// Accessor is the part of session.Accessor the validator needs.
type Accessor interface {
	identity.Accessor
	GetAccessToken(ctx context.Context) (string, bool)
}

type Validator struct {
	accessor Accessor
	store    *identity.Store
	client   IdentityClient
}

var _ = identity.Validator(&Validator{})

func New(accessor Accessor, store *identity.Store, client IdentityClient) *Validator {
	return &Validator{
		accessor: accessor,
		store:    store,
		client:   client,
	}
}

// Validate reports whether the server still accepts the stored access token.
// On success the server's identity replaces the canonical and cached user. On
// failure the canonical identity is logged out; stored tokens are kept.
func (v *Validator) Validate(ctx context.Context) bool {
	token, ok := v.accessor.GetAccessToken(ctx)
	if !ok {
		return false
	}

	epoch := v.store.Epoch()

	user, err := v.client.Me(ctx, token)

	// a login or logout that happened during the call wins
	if v.store.Epoch() != epoch || !v.accessor.IsAuthenticated(ctx) {
		slogctx.Debug(ctx, "Discarding stale validation result")
		return false
	}

	if err != nil {
		slogctx.Warn(ctx, "Session validation failed", "error", err)
		v.store.Dispatch(ctx, identity.LoggedOut{})

		return false
	}

	v.store.Dispatch(ctx, identity.UserRefreshed{User: user})
	if err := v.accessor.StoreAuthUser(ctx, user.Stored()); err != nil {
		slogctx.Error(ctx, "Could not cache the validated user", "error", err)
	}

	return true
}
