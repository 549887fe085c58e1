// Package authapi talks to the authentication endpoints of the marketplace API.
package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/session-gateway/internal/identity"
	"github.com/openkcm/session-gateway/internal/serviceerr"
)

const (
	mePath     = "/auth/me"
	loginPath  = "/auth/login"
	signupPath = "/auth/signup"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
}

// AuthResponse is the body of a successful login or signup.
type AuthResponse struct {
	User         identity.Identity `json:"user"`
	AccessToken  string            `json:"accessToken"`
	RefreshToken string            `json:"refreshToken"`
	IDToken      string            `json:"idToken,omitempty"`
	// ExpiresIn is in seconds; zero when the API does not say.
	ExpiresIn int `json:"expiresIn,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
}

// Me returns the identity the bearer of token belongs to.
func (c *Client) Me(ctx context.Context, token string) (identity.Identity, error) {
	req, err := c.newRequest(ctx, http.MethodGet, mePath, nil)
	if err != nil {
		return identity.Identity{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	var user identity.Identity
	status, err := c.do(req, &user)
	if err != nil {
		return identity.Identity{}, err
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return identity.Identity{}, fmt.Errorf("%w: %s returned %d", serviceerr.ErrIdentityRejected, mePath, status)
	case status < 200 || status > 299:
		return identity.Identity{}, fmt.Errorf("%w: %s returned %d", serviceerr.ErrUpstreamFailure, mePath, status)
	}

	if user.ID == "" {
		return identity.Identity{}, fmt.Errorf("%w: %s returned no user id", serviceerr.ErrUpstreamFailure, mePath)
	}

	return user, nil
}

func (c *Client) Login(ctx context.Context, in LoginRequest) (AuthResponse, error) {
	return c.authenticate(ctx, loginPath, in)
}

func (c *Client) Signup(ctx context.Context, in SignupRequest) (AuthResponse, error) {
	return c.authenticate(ctx, signupPath, in)
}

func (c *Client) authenticate(ctx context.Context, path string, in any) (AuthResponse, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return AuthResponse{}, fmt.Errorf("encoding %s request: %w", path, err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return AuthResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var out AuthResponse
	status, err := c.do(req, &out)
	if err != nil {
		return AuthResponse{}, err
	}

	switch {
	case status == http.StatusBadRequest || status == http.StatusUnauthorized || status == http.StatusForbidden:
		return AuthResponse{}, fmt.Errorf("%w: %s returned %d", serviceerr.ErrInvalidCredentials, path, status)
	case status == http.StatusConflict:
		return AuthResponse{}, fmt.Errorf("%w: %s returned %d", serviceerr.ErrConflict, path, status)
	case status < 200 || status > 299:
		return AuthResponse{}, fmt.Errorf("%w: %s returned %d", serviceerr.ErrUpstreamFailure, path, status)
	}

	if out.AccessToken == "" {
		return AuthResponse{}, fmt.Errorf("%w: %s returned no access token", serviceerr.ErrUpstreamFailure, path)
	}

	return out, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	endpoint, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return nil, fmt.Errorf("making %s url: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	return req, nil
}

// do sends req and decodes a 2xx body into out. Transport failures are upstream failures.
func (c *Client) do(req *http.Request, out any) (int, error) {
	ctx := req.Context()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", serviceerr.ErrUpstreamFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiError
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		slogctx.Debug(ctx, "Auth API request rejected", "path", req.URL.Path, "status", resp.StatusCode, "message", apiErr.Message)

		return resp.StatusCode, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("%w: decoding %s response: %w", serviceerr.ErrUpstreamFailure, req.URL.Path, err)
	}

	return resp.StatusCode, nil
}
