package lib

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestSession creates a session against a test server with a quiet logger.
func newTestSession(t *testing.T, baseURL string) *Session {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	session, err := NewSession(baseURL, "me@example.org", "secret-token", WithLogger(logger))
	require.NoError(t, err)
	return session
}

// TestNewSession tests credential validation and base URL normalization
func TestNewSession(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		user    string
		token   string
		wantErr string
	}{
		{
			name:    "missing base URL",
			baseURL: "",
			user:    "me@example.org",
			token:   "tok",
			wantErr: "base URL is required",
		},
		{
			name:    "missing user",
			baseURL: "https://acme.atlassian.net/wiki",
			user:    "",
			token:   "tok",
			wantErr: "user email is required",
		},
		{
			name:    "missing token",
			baseURL: "https://acme.atlassian.net/wiki",
			user:    "me@example.org",
			token:   "",
			wantErr: "API token is required",
		},
		{
			name:    "placeholder site URL",
			baseURL: "https://your-domain.atlassian.net/wiki",
			user:    "me@example.org",
			token:   "tok",
			wantErr: "placeholder",
		},
		{
			name:    "placeholder user",
			baseURL: "https://acme.atlassian.net/wiki",
			user:    "you@example.com",
			token:   "tok",
			wantErr: "placeholder",
		},
		{
			name:    "placeholder token",
			baseURL: "https://acme.atlassian.net/wiki",
			user:    "me@example.org",
			token:   "api-token",
			wantErr: "placeholder",
		},
		{
			name:    "base URL without scheme",
			baseURL: "acme.atlassian.net/wiki",
			user:    "me@example.org",
			token:   "tok",
			wantErr: "must start with http",
		},
		{
			name:    "user without @",
			baseURL: "https://acme.atlassian.net/wiki",
			user:    "me.example.org",
			token:   "tok",
			wantErr: "email address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSession(tt.baseURL, tt.user, tt.token)
			require.Error(t, err)
			var configErr *ConfigurationError
			require.ErrorAs(t, err, &configErr)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("ValidCredentials", func(t *testing.T) {
		s, err := NewSession("https://acme.atlassian.net", "me@example.org", "tok")
		require.NoError(t, err)
		assert.Equal(t, "https://acme.atlassian.net/wiki", s.BaseURL)
	})

	t.Run("NormalizesTrailingSlash", func(t *testing.T) {
		s, err := NewSession("https://acme.atlassian.net/", "me@example.org", "tok")
		require.NoError(t, err)
		assert.Equal(t, "https://acme.atlassian.net/wiki", s.BaseURL)
	})

	t.Run("KeepsExistingWikiSuffix", func(t *testing.T) {
		s, err := NewSession("https://acme.atlassian.net/wiki/", "me@example.org", "tok")
		require.NoError(t, err)
		assert.Equal(t, "https://acme.atlassian.net/wiki", s.BaseURL)
	})
}

// TestProbe tests the identity-check request and its error translation
func TestProbe(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		var gotPath string
		var gotAuth bool
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			user, token, ok := r.BasicAuth()
			gotAuth = ok && user == "me@example.org" && token == "secret-token"
			assert.Equal(t, "application/json", r.Header.Get("Accept"))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"accountId":"123"}`))
		}))
		defer server.Close()

		s := newTestSession(t, server.URL)
		require.NoError(t, s.Probe(context.Background()))
		assert.Equal(t, "/wiki/rest/api/user/current", gotPath)
		assert.True(t, gotAuth, "expected basic auth credentials on the probe request")
	})

	t.Run("Unauthorized", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		s := newTestSession(t, server.URL)
		err := s.Probe(context.Background())
		var authErr *AuthenticationError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
		assert.Contains(t, err.Error(), "verify email + API token")
	})

	t.Run("Forbidden", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		s := newTestSession(t, server.URL)
		var authErr *AuthenticationError
		require.ErrorAs(t, s.Probe(context.Background()), &authErr)
	})

	t.Run("ServerError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		s := newTestSession(t, server.URL)
		err := s.Probe(context.Background())
		var transportErr *TransportError
		require.ErrorAs(t, err, &transportErr)
		assert.Equal(t, http.StatusInternalServerError, transportErr.StatusCode)
	})

	t.Run("NetworkError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close() // connection refused

		s := newTestSession(t, server.URL)
		err := s.Probe(context.Background())
		var transportErr *TransportError
		require.True(t, errors.As(err, &transportErr))
		assert.Error(t, transportErr.Err)
	})
}
