// Package clientctx binds every request to the session of its browser client.
// The client is recognised by a cookie holding an opaque id; requests without a
// usable id are issued a fresh one.
package clientctx

import (
	"context"
	"errors"
	"net/http"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/session-gateway/internal/clientsession"
	"github.com/openkcm/session-gateway/internal/config"
	"github.com/openkcm/session-gateway/internal/gate"
	"github.com/openkcm/session-gateway/internal/serviceerr"
)

// Using an unexported type prevents key collisions from other packages.
type contextKey string

const sessionKey contextKey = "client-session"

var ErrNoSession = errors.New("client session not found in context")

// IDSource issues and checks client ids.
type IDSource interface {
	New() string
	Valid(id string) bool
}

// Sessions resolves the live session of a client id.
type Sessions interface {
	Get(ctx context.Context, clientID string) (*clientsession.Session, error)
}

// Middleware resolves the client session of each request and stores it in the
// request context.
func Middleware(cookie config.CookieTemplate, ids IDSource, sessions Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			clientID, ok := cookie.ValueFrom(r)
			if !ok || !ids.Valid(clientID) {
				clientID = ids.New()
				http.SetCookie(w, cookie.ToCookie(clientID))
			}

			s, err := sessions.Get(ctx, clientID)
			if err != nil {
				slogctx.Error(ctx, "Failed to resolve client session", "error", err)
				serviceerr.Write(w, err)
				return
			}

			ctx = slogctx.With(ctx, "client_id", clientID)
			next.ServeHTTP(w, r.WithContext(WithSession(ctx, s)))
		})
	}
}

func WithSession(ctx context.Context, s *clientsession.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFromContext returns the client session stored by Middleware.
func SessionFromContext(ctx context.Context) (*clientsession.Session, error) {
	s, ok := ctx.Value(sessionKey).(*clientsession.Session)
	if !ok || s == nil {
		return nil, ErrNoSession
	}

	return s, nil
}

// Subject finds the gate subject of r.
func Subject(r *http.Request) (gate.Subject, bool) {
	s, err := SessionFromContext(r.Context())
	if err != nil {
		return nil, false
	}

	return s, true
}

var _ gate.SubjectFunc = Subject
