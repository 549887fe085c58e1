package validator_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/session-gateway/internal/credstore"
	"github.com/openkcm/session-gateway/internal/credstore/credmock"
	"github.com/openkcm/session-gateway/internal/identity"
	"github.com/openkcm/session-gateway/internal/session"
	"github.com/openkcm/session-gateway/internal/validator"
)

type fakeClient struct {
	calls  int
	tokens []string
	user   identity.Identity
	err    error
	during func()
}

func (c *fakeClient) Me(_ context.Context, token string) (identity.Identity, error) {
	c.calls++
	c.tokens = append(c.tokens, token)
	if c.during != nil {
		c.during()
	}
	return c.user, c.err
}

var serverUser = identity.Identity{ID: "u1", Name: "Alice", Email: "alice@example.com", Role: "admin"}

func setup(t *testing.T, signedIn bool) (*session.Accessor, *identity.Store) {
	t.Helper()

	backend := credstore.NewBackend(credmock.NewInMemTier(), credmock.NewInMemTier())
	acc := session.NewAccessor(backend.Store("client-1"))
	store := identity.NewStore()

	if signedIn {
		require.NoError(t, acc.StoreTokens(t.Context(), session.TokenInput{AccessToken: "a1", ExpiresIn: 900}))
		store.Dispatch(t.Context(), identity.LoginSucceeded{User: identity.Identity{ID: "u1", Name: "Alice", Role: "learner"}, AccessToken: "a1"})
	}

	return acc, store
}

func TestValidate_Unauthenticated(t *testing.T) {
	acc, store := setup(t, false)
	client := &fakeClient{user: serverUser}

	ok := validator.New(acc, store, client).Validate(t.Context())

	assert.False(t, ok)
	assert.Zero(t, client.calls, "no request without a session")
}

func TestValidate_Accepted(t *testing.T) {
	ctx := t.Context()
	acc, store := setup(t, true)
	client := &fakeClient{user: serverUser}

	ok := validator.New(acc, store, client).Validate(ctx)

	require.True(t, ok)
	assert.Equal(t, []string{"a1"}, client.tokens)
	assert.Equal(t, "admin", store.Snapshot().User.Role, "the server's role wins")

	stored, found := acc.GetStoredUser(ctx)
	require.True(t, found)
	assert.Equal(t, serverUser.Stored(), stored)
}

func TestValidate_Rejected(t *testing.T) {
	ctx := t.Context()
	acc, store := setup(t, true)
	client := &fakeClient{err: errors.New("401 Unauthorized")}

	ok := validator.New(acc, store, client).Validate(ctx)

	assert.False(t, ok)
	assert.Nil(t, store.Snapshot().User)
	// tokens survive a rejected validation
	token, found := acc.GetAccessToken(ctx)
	require.True(t, found)
	assert.Equal(t, "a1", token)
}

func TestValidate_LogoutDuringCall(t *testing.T) {
	ctx := t.Context()
	acc, store := setup(t, true)
	client := &fakeClient{user: serverUser}
	client.during = func() {
		store.Dispatch(ctx, identity.LoggedOut{})
		acc.Clear(ctx)
	}

	ok := validator.New(acc, store, client).Validate(ctx)

	assert.False(t, ok)
	assert.Nil(t, store.Snapshot().User, "a stale result must not re-assert the identity")
	_, found := acc.GetStoredUser(ctx)
	assert.False(t, found)
}

func TestValidate_ReloginDuringCall(t *testing.T) {
	ctx := t.Context()
	acc, store := setup(t, true)
	bob := identity.Identity{ID: "u2", Name: "Bob"}
	client := &fakeClient{err: errors.New("connection reset")}
	client.during = func() {
		require.NoError(t, acc.StoreTokens(ctx, session.TokenInput{AccessToken: "b1"}))
		store.Dispatch(ctx, identity.LoginSucceeded{User: bob, AccessToken: "b1"})
	}

	ok := validator.New(acc, store, client).Validate(ctx)

	assert.False(t, ok)
	assert.Equal(t, bob, *store.Snapshot().User, "the failure of the old token must not log out the new session")
}
