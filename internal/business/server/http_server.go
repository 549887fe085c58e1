package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/samber/oops"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/session-gateway/internal/clientid"
	"github.com/openkcm/session-gateway/internal/config"
	"github.com/openkcm/session-gateway/internal/gate"
	"github.com/openkcm/session-gateway/internal/middleware/clientctx"
)

// createHTTPServer creates the gateway http server using the given config
func createHTTPServer(ctx context.Context, cfg *config.Config, sessions clientctx.Sessions) (*http.Server, error) {
	handler, err := newHandler(cfg, sessions)
	if err != nil {
		return nil, oops.In("HTTP Server").
			WithContext(ctx).
			Wrapf(err, "Failed to create the handler")
	}

	return &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: handler,
	}, nil
}

func newHandler(cfg *config.Config, sessions clientctx.Sessions) (http.Handler, error) {
	appURL, err := url.Parse(cfg.Upstream.AppURL)
	if err != nil {
		return nil, err
	}
	if appURL.Scheme == "" || appURL.Host == "" {
		return nil, errors.New("upstream app url must be absolute")
	}

	client := clientctx.Middleware(cfg.Session.ClientCookie, clientid.Source{}, sessions)
	g := gate.New(clientctx.Subject, cfg.Gate.LoginPath)
	proxy := newAppProxy(appURL)

	mux := http.NewServeMux()
	route := func(pattern, operation string, h http.Handler) {
		mux.Handle(pattern, observe(cfg, operation, h))
	}

	route("GET /ping", "ping", http.HandlerFunc(pingHandlerFunc))

	route("GET /auth/session", "getSession", client(sessionHandler(getSession)))
	route("POST /auth/login", "login", client(sessionHandler(login)))
	route("POST /auth/signup", "signup", client(sessionHandler(signup)))
	route("POST /auth/logout", "logout", client(sessionHandler(logout)))
	route("POST /auth/refresh", "refresh", client(sessionHandler(refresh)))
	route("POST /auth/prompt", "openPrompt", client(sessionHandler(openPrompt)))
	route("POST /auth/prompt/close", "closePrompt", client(sessionHandler(closePrompt)))

	for _, prefix := range cfg.Gate.ProtectedPrefixes {
		for _, pattern := range prefixPatterns(prefix) {
			route(pattern, "protected", client(g.Protected(proxy)))
		}
	}
	for _, prefix := range cfg.Gate.AdminPrefixes {
		for _, pattern := range prefixPatterns(prefix) {
			route(pattern, "admin", client(g.Admin(proxy)))
		}
	}

	return mux, nil
}

// prefixPatterns returns the mux patterns matching prefix and everything below it.
func prefixPatterns(prefix string) []string {
	prefix = "/" + strings.Trim(prefix, "/")
	if prefix == "/" {
		return []string{"/"}
	}

	return []string{prefix, prefix + "/"}
}

// StartHTTPServer starts the HTTP server using the given config.
func StartHTTPServer(ctx context.Context, cfg *config.Config, sessions clientctx.Sessions) error {
	if err := initMeters(ctx, cfg); err != nil {
		return err
	}

	server, err := createHTTPServer(ctx, cfg, sessions)
	if err != nil {
		return err
	}

	slogctx.Info(ctx, "Starting a listener", "address", server.Addr)

	// Parse network if the address if provided in the format of network://address.
	// Otherwise use tcp network by default.
	network := "tcp"
	if idx := strings.IndexRune(server.Addr, ':'); idx != -1 && len(server.Addr) > idx+3 && server.Addr[idx:idx+3] == "://" {
		network = server.Addr[:idx]
		server.Addr = server.Addr[idx+3:]
	}

	listener, err := new(net.ListenConfig).Listen(ctx, network, server.Addr)
	if err != nil {
		return oops.In("HTTP Server").
			WithContext(ctx).
			Wrapf(err, "Failed to create a listener")
	}

	slogctx.Info(ctx, "A listener started", "address", listener.Addr().String())

	go func() {
		slogctx.Info(ctx, "Serving an HTTP server", "address", listener.Addr().String())
		err := server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slogctx.Error(ctx, "Failed to serve an HTTP server", "error", err)
		}

		slogctx.Info(ctx, "Stopped an HTTP server")
	}()

	<-ctx.Done()

	shutdownCtx, shutdownRelease := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout)
	defer shutdownRelease()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return oops.In("HTTP Server").
			WithContext(ctx).
			Wrapf(err, "Failed shutting down HTTP server")
	}

	slogctx.Info(ctx, "Completed graceful shutdown of HTTP server")

	return nil
}
