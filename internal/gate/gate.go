package gate

import (
	"context"
	"net/http"
	"net/url"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/session-gateway/internal/identity"
	"github.com/openkcm/session-gateway/internal/serviceerr"
)

type Decision int

const (
	DecisionLoading Decision = iota
	DecisionHidden
	DecisionVisible
	DecisionAccessDenied
	DecisionRedirectLogin
)

func (d Decision) String() string {
	switch d {
	case DecisionLoading:
		return "loading"
	case DecisionHidden:
		return "hidden"
	case DecisionVisible:
		return "visible"
	case DecisionAccessDenied:
		return "access-denied"
	case DecisionRedirectLogin:
		return "redirect-login"
	default:
		return "unknown"
	}
}

// Protect decides a route that needs a session. Without one, the login prompt is
// opened with path as the destination and the route is rendered inert. A prompt
// that is already open keeps its destination.
func Protect(ctx context.Context, view identity.View, c *Coordinator, path string) Decision {
	if view.Loading {
		return DecisionLoading
	}

	if !view.Authenticated {
		if c != nil {
			c.OpenIfClosed(ctx, ModeLogin, path, path)
		}
		return DecisionHidden
	}

	return DecisionVisible
}

// ProtectAdmin decides a route that needs the admin role. A role mismatch is not
// fixed by logging in again, so it never opens the prompt.
func ProtectAdmin(view identity.View) Decision {
	switch {
	case view.Loading:
		return DecisionLoading
	case !view.Authenticated:
		return DecisionRedirectLogin
	case !view.Admin:
		return DecisionAccessDenied
	default:
		return DecisionVisible
	}
}

const (
	HeaderGate     = "X-Auth-Gate"
	HeaderPrompt   = "X-Auth-Prompt"
	HeaderReturnTo = "X-Auth-Return-To"
)

// Subject is what the gate needs to know about the client of a request.
type Subject interface {
	View(ctx context.Context) identity.View
	Coordinator() *Coordinator
}

// SubjectFunc finds the subject of a request.
type SubjectFunc func(r *http.Request) (Subject, bool)

// Gate applies Protect and ProtectAdmin to HTTP handlers.
type Gate struct {
	subject   SubjectFunc
	loginPath string
}

func New(subject SubjectFunc, loginPath string) *Gate {
	if loginPath == "" {
		loginPath = "/login"
	}

	return &Gate{
		subject:   subject,
		loginPath: loginPath,
	}
}

// Protected serves next only to authenticated clients. Anonymous clients still get
// next, marked hidden, so the page keeps its layout behind the login prompt.
func (g *Gate) Protected(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		path := r.URL.RequestURI()

		var (
			view identity.View
			c    *Coordinator
		)
		if s, ok := g.subject(r); ok {
			view = s.View(ctx)
			c = s.Coordinator()
		}

		decision := Protect(ctx, view, c, path)
		slogctx.Debug(ctx, "Gate decision", "path", path, "decision", decision.String())

		switch decision {
		case DecisionLoading:
			loading(w)
		case DecisionHidden:
			prompt := PromptView{Open: true, Mode: ModeLogin, Path: path}
			if c != nil {
				prompt = ViewOf(c.Current())
			}
			w.Header().Set(HeaderGate, decision.String())
			w.Header().Set(HeaderPrompt, string(prompt.Mode))
			w.Header().Set(HeaderReturnTo, prompt.Path)
			next.ServeHTTP(w, r)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// Admin serves next only to clients with the admin role.
func (g *Gate) Admin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		path := r.URL.RequestURI()

		var view identity.View
		if s, ok := g.subject(r); ok {
			view = s.View(ctx)
		}

		decision := ProtectAdmin(view)
		slogctx.Debug(ctx, "Admin gate decision", "path", path, "decision", decision.String())

		switch decision {
		case DecisionLoading:
			loading(w)
		case DecisionRedirectLogin:
			http.Redirect(w, r, g.loginPath+"?"+url.Values{"returnTo": {path}}.Encode(), http.StatusSeeOther)
		case DecisionAccessDenied:
			w.Header().Set(HeaderGate, decision.String())
			serviceerr.Write(w, serviceerr.ErrAccessDenied)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func loading(w http.ResponseWriter) {
	w.Header().Set(HeaderGate, DecisionLoading.String())
	w.WriteHeader(http.StatusAccepted)
}
