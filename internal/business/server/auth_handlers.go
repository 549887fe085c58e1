package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/session-gateway/internal/authapi"
	"github.com/openkcm/session-gateway/internal/clientsession"
	"github.com/openkcm/session-gateway/internal/gate"
	"github.com/openkcm/session-gateway/internal/middleware/clientctx"
	"github.com/openkcm/session-gateway/internal/serviceerr"
)

const maxBodyBytes = 1 << 16

type promptRequest struct {
	Mode    gate.Mode `json:"mode"`
	Path    string    `json:"path"`
	Current string    `json:"current"`
}

func invalidRequest(description string) error {
	return &serviceerr.Error{Err: serviceerr.CodeInvalidRequest, Description: description}
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return invalidRequest("empty body")
		}
		return invalidRequest("malformed body")
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// sessionHandler adapts a handler that needs the client session.
func sessionHandler(f func(w http.ResponseWriter, r *http.Request, s *clientsession.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := clientctx.SessionFromContext(r.Context())
		if err != nil {
			slogctx.Error(r.Context(), "Request without client session", "error", err)
			serviceerr.Write(w, serviceerr.ErrUnknown)
			return
		}

		f(w, r, s)
	}
}

func getSession(w http.ResponseWriter, r *http.Request, s *clientsession.Session) {
	writeJSON(w, http.StatusOK, s.Snapshot(r.Context()))
}

func login(w http.ResponseWriter, r *http.Request, s *clientsession.Session) {
	var in authapi.LoginRequest
	if err := decode(r, &in); err != nil {
		serviceerr.Write(w, err)
		return
	}
	if in.Email == "" || in.Password == "" {
		serviceerr.Write(w, invalidRequest("email and password are required"))
		return
	}

	res, err := s.Login(r.Context(), in)
	if err != nil {
		serviceerr.Write(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func signup(w http.ResponseWriter, r *http.Request, s *clientsession.Session) {
	var in authapi.SignupRequest
	if err := decode(r, &in); err != nil {
		serviceerr.Write(w, err)
		return
	}
	if in.Name == "" || in.Email == "" || in.Password == "" {
		serviceerr.Write(w, invalidRequest("name, email and password are required"))
		return
	}

	res, err := s.Signup(r.Context(), in)
	if err != nil {
		serviceerr.Write(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func logout(w http.ResponseWriter, r *http.Request, s *clientsession.Session) {
	writeJSON(w, http.StatusOK, s.Logout(r.Context()))
}

func refresh(w http.ResponseWriter, r *http.Request, s *clientsession.Session) {
	res, err := s.Refresh(r.Context())
	if err != nil {
		serviceerr.Write(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func openPrompt(w http.ResponseWriter, r *http.Request, s *clientsession.Session) {
	var in promptRequest
	if err := decode(r, &in); err != nil {
		serviceerr.Write(w, err)
		return
	}

	writeJSON(w, http.StatusOK, s.OpenPrompt(r.Context(), in.Mode, in.Path, in.Current))
}

func closePrompt(w http.ResponseWriter, r *http.Request, s *clientsession.Session) {
	writeJSON(w, http.StatusOK, s.ClosePrompt(r.Context()))
}
