// Package clientsession drives the login, signup and logout flows of a browser client
// and keeps one Session per client id.
package clientsession

import (
	"context"
	"sync"
	"time"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/session-gateway/internal/authapi"
	"github.com/openkcm/session-gateway/internal/gate"
	"github.com/openkcm/session-gateway/internal/identity"
	"github.com/openkcm/session-gateway/internal/session"
	"github.com/openkcm/session-gateway/internal/validator"
)

// minTokenLifetime in seconds is what a token whose exp claim has (nearly) passed is stored with.
const minTokenLifetime = 1

// Authenticator is the upstream auth API.
type Authenticator interface {
	validator.IdentityClient
	Login(ctx context.Context, in authapi.LoginRequest) (authapi.AuthResponse, error)
	Signup(ctx context.Context, in authapi.SignupRequest) (authapi.AuthResponse, error)
}

// Session bundles the auth state of one client.
type Session struct {
	id          string
	accessor    *session.Accessor
	identity    *identity.Store
	provider    *identity.Provider
	coordinator *gate.Coordinator
	auth        Authenticator
	now         func() time.Time

	// serialises the flows of a client
	mu sync.Mutex
}

var _ gate.Subject = (*Session)(nil)

// Result is what a flow hands back to the client.
type Result struct {
	View       identity.View   `json:"session"`
	Prompt     gate.PromptView `json:"prompt"`
	Navigation gate.Navigation `json:"navigation"`
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Accessor() *session.Accessor {
	return s.accessor
}

func (s *Session) Coordinator() *gate.Coordinator {
	return s.coordinator
}

func (s *Session) View(ctx context.Context) identity.View {
	return s.provider.View(ctx)
}

// Snapshot reports the session and prompt without navigating.
func (s *Session) Snapshot(ctx context.Context) Result {
	return s.result(ctx, gate.Navigation{})
}

func (s *Session) Login(ctx context.Context, in authapi.LoginRequest) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.identity.Dispatch(ctx, identity.LoginStarted{})

	resp, err := s.auth.Login(ctx, in)
	if err != nil {
		return s.fail(ctx, err)
	}

	return s.complete(ctx, resp)
}

func (s *Session) Signup(ctx context.Context, in authapi.SignupRequest) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.identity.Dispatch(ctx, identity.LoginStarted{})

	resp, err := s.auth.Signup(ctx, in)
	if err != nil {
		return s.fail(ctx, err)
	}

	return s.complete(ctx, resp)
}

// Logout forgets the identity and the stored credentials and dismisses any prompt.
func (s *Session) Logout(ctx context.Context) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.identity.Dispatch(ctx, identity.LoggedOut{})
	s.accessor.Clear(ctx)
	nav := s.coordinator.Close(ctx, false)

	slogctx.Info(ctx, "Client logged out", "client_id", s.id)

	return s.result(ctx, nav)
}

// OpenPrompt opens the login prompt. An authenticated client has nothing to log
// in to, so the prompt closes again at once and the navigation is returned.
func (s *Session) OpenPrompt(ctx context.Context, mode gate.Mode, path, current string) Result {
	s.coordinator.Open(ctx, mode, path, current)
	nav := s.coordinator.AuthChanged(ctx, s.View(ctx).Authenticated)
	return s.result(ctx, nav)
}

func (s *Session) ClosePrompt(ctx context.Context) Result {
	nav := s.coordinator.Close(ctx, s.View(ctx).Authenticated)
	return s.result(ctx, nav)
}

// Refresh revalidates the identity with the server and completes a pending
// prompt if the client turned out to be authenticated.
func (s *Session) Refresh(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.provider.RefreshUser(ctx); err != nil {
		return Result{}, err
	}

	nav := s.coordinator.AuthChanged(ctx, s.View(ctx).Authenticated)

	return s.result(ctx, nav), nil
}

// Close unmounts the identity provider.
func (s *Session) Close() {
	s.provider.Close()
}

func (s *Session) fail(ctx context.Context, err error) (Result, error) {
	slogctx.Info(ctx, "Login failed", "client_id", s.id, "error", err)
	s.identity.Dispatch(ctx, identity.LoginFailed{Err: err})

	return s.result(ctx, gate.Navigation{}), err
}

func (s *Session) complete(ctx context.Context, resp authapi.AuthResponse) (Result, error) {
	expiresIn := resp.ExpiresIn
	if expiresIn <= 0 {
		if left, ok := authapi.TokenLifetime(resp.AccessToken, s.now()); ok {
			// an expired or nearly expired token still gets its own short lifetime
			expiresIn = max(int(left/time.Second), minTokenLifetime)
		}
	}

	if err := s.accessor.StoreTokens(ctx, session.TokenInput{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		IDToken:      resp.IDToken,
		ExpiresIn:    expiresIn,
	}); err != nil {
		return s.fail(ctx, err)
	}

	s.identity.Dispatch(ctx, identity.LoginSucceeded{
		User:         resp.User,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	})

	if err := s.provider.RefreshUser(ctx); err != nil {
		return Result{}, err
	}

	view := s.View(ctx)
	nav := s.coordinator.AuthChanged(ctx, view.Authenticated)

	slogctx.Info(ctx, "Client logged in", "client_id", s.id, "user_id", resp.User.ID, "authenticated", view.Authenticated)

	return s.result(ctx, nav), nil
}

func (s *Session) result(ctx context.Context, nav gate.Navigation) Result {
	return Result{
		View:       s.View(ctx),
		Prompt:     gate.ViewOf(s.coordinator.Current()),
		Navigation: nav,
	}
}
