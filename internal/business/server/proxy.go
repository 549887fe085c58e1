package server

import (
	"net/http"
	"net/http/httputil"
	"net/url"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/session-gateway/internal/middleware/clientctx"
	"github.com/openkcm/session-gateway/internal/serviceerr"
)

// newAppProxy forwards requests to the application, authorised with the access
// token of the client session. Client supplied credentials never pass through.
func newAppProxy(target *url.URL) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			pr.Out.Header.Del("Authorization")

			s, err := clientctx.SessionFromContext(pr.In.Context())
			if err != nil {
				return
			}
			if token, ok := s.Accessor().GetAccessToken(pr.In.Context()); ok {
				pr.Out.Header.Set("Authorization", "Bearer "+token)
			}
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			slogctx.Error(r.Context(), "Failed to reach the application", "error", err)
			serviceerr.Write(w, serviceerr.ErrUpstreamFailure)
		},
	}
}
