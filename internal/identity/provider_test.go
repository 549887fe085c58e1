package identity_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/session-gateway/internal/credstore"
	"github.com/openkcm/session-gateway/internal/credstore/credmock"
	"github.com/openkcm/session-gateway/internal/identity"
	"github.com/openkcm/session-gateway/internal/session"
)

type validatorFunc func(ctx context.Context) bool

func (f validatorFunc) Validate(ctx context.Context) bool { return f(ctx) }

func newAccessor(t *testing.T) *session.Accessor {
	t.Helper()

	backend := credstore.NewBackend(credmock.NewInMemTier(), credmock.NewInMemTier())
	return session.NewAccessor(backend.Store("client-1"))
}

func signIn(t *testing.T, acc *session.Accessor) {
	t.Helper()
	require.NoError(t, acc.StoreTokens(t.Context(), session.TokenInput{AccessToken: "a1", ExpiresIn: 900}))
}

func TestProvider_MountAnonymous(t *testing.T) {
	ctx := t.Context()
	p := identity.NewProvider(newAccessor(t), identity.NewStore())

	assert.True(t, p.View(ctx).Loading)

	require.NoError(t, p.Mount(ctx))

	assert.Equal(t, identity.PhaseAnonymous, p.Phase())
	assert.Equal(t, identity.View{}, p.View(ctx))
}

func TestProvider_MountAdoptsCanonicalUser(t *testing.T) {
	ctx := t.Context()
	acc := newAccessor(t)
	signIn(t, acc)
	require.NoError(t, acc.StoreAuthUser(ctx, session.StoredUser{Sub: "stale"}))

	store := identity.NewStore()
	store.Dispatch(ctx, identity.LoginSucceeded{User: alice, AccessToken: "a1"})

	p := identity.NewProvider(acc, store)
	require.NoError(t, p.Mount(ctx))

	view := p.View(ctx)
	assert.Equal(t, identity.PhaseReady, p.Phase())
	assert.True(t, view.Authenticated)
	assert.True(t, view.Admin)
	require.NotNil(t, view.User)
	assert.Equal(t, "u1", view.User.ID)
}

func TestProvider_MountFallsBackToCachedUser(t *testing.T) {
	ctx := t.Context()
	acc := newAccessor(t)
	signIn(t, acc)
	require.NoError(t, acc.StoreAuthUser(ctx, session.StoredUser{Sub: "u7", Name: "Bob"}))

	p := identity.NewProvider(acc, identity.NewStore())
	require.NoError(t, p.Mount(ctx))

	view := p.View(ctx)
	assert.True(t, view.Authenticated)
	assert.False(t, view.Admin, "the cached record never grants a role")
	require.NotNil(t, view.User)
	assert.Equal(t, "Bob", view.User.Name)
}

func TestProvider_MountWithoutCachedUser(t *testing.T) {
	ctx := t.Context()
	acc := newAccessor(t)
	signIn(t, acc)

	p := identity.NewProvider(acc, identity.NewStore())
	require.NoError(t, p.Mount(ctx))

	view := p.View(ctx)
	assert.Equal(t, identity.PhaseReady, p.Phase())
	assert.True(t, view.Authenticated)
	assert.Nil(t, view.User)
}

func TestProvider_WritesThroughCanonicalChanges(t *testing.T) {
	ctx := t.Context()
	acc := newAccessor(t)
	store := identity.NewStore()
	p := identity.NewProvider(acc, store)
	require.NoError(t, p.Mount(ctx))

	signIn(t, acc)
	store.Dispatch(ctx, identity.LoginSucceeded{User: alice, AccessToken: "a1"})

	stored, ok := acc.GetStoredUser(ctx)
	require.True(t, ok)
	assert.Equal(t, alice.Stored(), stored)
	assert.Equal(t, identity.PhaseReady, p.Phase())
	assert.True(t, p.View(ctx).Authenticated)

	store.Dispatch(ctx, identity.UserRefreshed{User: identity.Identity{ID: "u1", Name: "Alice B", Role: "learner"}})

	stored, ok = acc.GetStoredUser(ctx)
	require.True(t, ok)
	assert.Equal(t, "Alice B", stored.Name)
	assert.False(t, p.View(ctx).Admin)
}

func TestProvider_ReloginAfterPurgeWritesThrough(t *testing.T) {
	ctx := t.Context()
	acc := newAccessor(t)
	store := identity.NewStore()
	p := identity.NewProvider(acc, store)
	require.NoError(t, p.Mount(ctx))

	signIn(t, acc)
	store.Dispatch(ctx, identity.LoginSucceeded{User: alice, AccessToken: "a1"})
	_, ok := acc.GetStoredUser(ctx)
	require.True(t, ok)

	// expiry purged the records while the canonical user stayed
	acc.Clear(ctx)
	_, ok = acc.GetStoredUser(ctx)
	require.False(t, ok)

	signIn(t, acc)
	store.Dispatch(ctx, identity.LoginSucceeded{User: alice, AccessToken: "a1"})

	stored, ok := acc.GetStoredUser(ctx)
	require.True(t, ok)
	assert.Equal(t, alice.Stored(), stored)
}

func TestProvider_LogoutMakesViewAnonymous(t *testing.T) {
	ctx := t.Context()
	acc := newAccessor(t)
	signIn(t, acc)
	store := identity.NewStore()
	store.Dispatch(ctx, identity.LoginSucceeded{User: alice})

	p := identity.NewProvider(acc, store)
	require.NoError(t, p.Mount(ctx))
	require.True(t, p.View(ctx).Authenticated)

	store.Dispatch(ctx, identity.LoggedOut{})

	assert.Equal(t, identity.PhaseAnonymous, p.Phase())
	assert.False(t, p.View(ctx).Authenticated)
	// tokens are left to the caller
	assert.True(t, acc.IsAuthenticated(ctx))
}

func TestProvider_RefreshUser(t *testing.T) {
	t.Run("anonymous does not validate", func(t *testing.T) {
		ctx := t.Context()
		calls := 0
		p := identity.NewProvider(newAccessor(t), identity.NewStore(), identity.WithValidator(validatorFunc(func(context.Context) bool {
			calls++
			return true
		})))

		require.NoError(t, p.RefreshUser(ctx))
		assert.Zero(t, calls)
		assert.Equal(t, identity.PhaseAnonymous, p.Phase())
	})

	t.Run("authenticated validates and adopts the refreshed user", func(t *testing.T) {
		ctx := t.Context()
		acc := newAccessor(t)
		signIn(t, acc)
		store := identity.NewStore()

		var p *identity.Provider
		p = identity.NewProvider(acc, store, identity.WithValidator(validatorFunc(func(ctx context.Context) bool {
			assert.Equal(t, identity.PhaseReady, p.Phase())
			store.Dispatch(ctx, identity.UserRefreshed{User: alice})
			return true
		})))
		require.NoError(t, p.Mount(ctx))

		require.NoError(t, p.RefreshUser(ctx))

		view := p.View(ctx)
		assert.True(t, view.Admin)
		require.NotNil(t, view.User)
		assert.Equal(t, alice, *view.User)
	})

	t.Run("rejected session becomes anonymous", func(t *testing.T) {
		ctx := t.Context()
		acc := newAccessor(t)
		signIn(t, acc)
		store := identity.NewStore()
		store.Dispatch(ctx, identity.LoginSucceeded{User: alice})

		p := identity.NewProvider(acc, store, identity.WithValidator(validatorFunc(func(ctx context.Context) bool {
			store.Dispatch(ctx, identity.LoggedOut{})
			return false
		})))
		require.NoError(t, p.Mount(ctx))

		require.NoError(t, p.RefreshUser(ctx))
		assert.False(t, p.View(ctx).Authenticated)
	})
}

func TestProvider_AdminRole(t *testing.T) {
	ctx := t.Context()
	acc := newAccessor(t)
	signIn(t, acc)
	store := identity.NewStore()
	store.Dispatch(ctx, identity.LoginSucceeded{User: identity.Identity{ID: "u1", Role: "instructor"}})

	p := identity.NewProvider(acc, store, identity.WithAdminRole("instructor"))
	require.NoError(t, p.Mount(ctx))

	assert.True(t, p.View(ctx).Admin)
}

func TestProvider_Close(t *testing.T) {
	ctx := t.Context()
	acc := newAccessor(t)
	store := identity.NewStore()
	p := identity.NewProvider(acc, store)
	require.NoError(t, p.Mount(ctx))

	p.Close()
	p.Close()

	signIn(t, acc)
	store.Dispatch(ctx, identity.LoginSucceeded{User: alice})

	_, ok := acc.GetStoredUser(ctx)
	assert.False(t, ok, "closed providers no longer write through")
	assert.Equal(t, identity.PhaseClosed, p.Phase())
	assert.Equal(t, identity.View{}, p.View(ctx))
	require.ErrorIs(t, p.Mount(ctx), identity.ErrProviderClosed)
	require.ErrorIs(t, p.RefreshUser(ctx), identity.ErrProviderClosed)
}
