//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	aliceToken = "alice-access-token"
	aliceUser  = `{"id":"u1","name":"Alice","email":"alice@example.com","role":"admin"}`
)

// newAuthAPI serves the marketplace auth endpoints for a single account.
func newAuthAPI(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var in struct{ Email, Password string }
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"user":` + aliceUser + `,"accessToken":"` + aliceToken + `","refreshToken":"r1","expiresIn":900}`))
	})
	mux.HandleFunc("GET /api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+aliceToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(aliceUser))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func unixClient(t *testing.T, socket string) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &http.Client{
		Jar: jar,
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				return new(net.Dialer).DialContext(ctx, "unix", socket)
			},
		},
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func waitForServer(t *testing.T, client *http.Client) {
	t.Helper()

	require.Eventually(t, func() bool {
		resp, err := client.Get("http://gateway/ping")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 10*time.Second, 100*time.Millisecond, "gateway did not start")
}

type sessionBody struct {
	Session struct {
		Authenticated bool `json:"authenticated"`
		Admin         bool `json:"admin"`
	} `json:"session"`
}

func getSession(t *testing.T, client *http.Client) sessionBody {
	t.Helper()

	resp, err := client.Get("http://gateway/auth/session")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body sessionBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	return body
}

func TestAPIServer_SessionSurvivesRestart(t *testing.T) {
	const cmdName = "api-server"

	istat := initInfra(t, cmdName)
	defer istat.Close(context.WithoutCancel(t.Context()))

	authAPI := newAuthAPI(t)

	istat.PrepareValKey(t)
	istat.Cfg.Upstream.AuthURL = authAPI.URL + "/api"
	istat.PrepareConfig(t)

	client := unixClient(t, istat.Socket)

	cmd := istat.Start(t, cmdName)
	waitForServer(t, client)

	assert.False(t, getSession(t, client).Session.Authenticated)

	resp, err := client.Post("http://gateway/auth/login", "application/json",
		strings.NewReader(`{"email":"alice@example.com","password":"secret"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	loggedIn := getSession(t, client)
	assert.True(t, loggedIn.Session.Authenticated)
	assert.True(t, loggedIn.Session.Admin)

	stop(cmd)

	// the credentials live in valkey, so a new process restores the session
	cmd = istat.Start(t, cmdName)
	defer stop(cmd)
	waitForServer(t, client)

	restored := getSession(t, client)
	assert.True(t, restored.Session.Authenticated)
	assert.True(t, restored.Session.Admin)

	resp, err = client.Post("http://gateway/auth/logout", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()

	assert.False(t, getSession(t, client).Session.Authenticated)
}
