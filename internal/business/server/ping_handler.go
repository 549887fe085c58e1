package server

import (
	"net/http"

	slogctx "github.com/veqryn/slog-context"
)

func pingHandlerFunc(w http.ResponseWriter, r *http.Request) {
	slogctx.Info(r.Context(), "Starting ping request")

	w.Header().Set("Content-Type", "application/json")
	_, err := w.Write([]byte("{ \"result\": \"ping\" }"))
	if err != nil {
		return
	}

	slogctx.Info(r.Context(), "Finished ping request")
}
