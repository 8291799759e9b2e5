package lib

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// userAgent specifies the User-Agent header value used in HTTP requests.
const userAgent = "confluence2md/0.2"

// Known placeholder values from the documentation examples. Credentials
// equal to these are rejected before any network call.
const (
	placeholderSite  = "your-domain.atlassian.net"
	placeholderUser  = "you@example.com"
	placeholderToken = "api-token"
)

// Session holds the Confluence Cloud site base URL and the credentials used
// for basic auth. It is created once per run and immutable afterwards; every
// operation that talks to the API hangs off it.
type Session struct {
	BaseURL string // normalized site base, ends in /wiki
	User    string
	Token   string

	client *http.Client
	logger *logrus.Logger
}

// SessionOption configures a Session created by NewSession.
type SessionOption func(*Session)

// WithHTTPClient sets the HTTP client used for all requests.
func WithHTTPClient(c *http.Client) SessionOption {
	return func(s *Session) {
		if c != nil {
			s.client = c
		}
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *logrus.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSession validates the credentials and returns a ready Session. All
// checks run locally; no network call is made. The base URL is normalized to
// carry the /wiki prefix Confluence Cloud uses for REST and UI routes.
func NewSession(baseURL, user, token string, opts ...SessionOption) (*Session, error) {
	if baseURL == "" {
		return nil, &ConfigurationError{Reason: "base URL is required"}
	}
	if user == "" {
		return nil, &ConfigurationError{Reason: "user email is required"}
	}
	if token == "" {
		return nil, &ConfigurationError{Reason: "API token is required"}
	}
	if strings.Contains(baseURL, placeholderSite) || user == placeholderUser || token == placeholderToken {
		return nil, &ConfigurationError{Reason: "replace the placeholder site URL, email and API token with real values"}
	}
	if !strings.HasPrefix(baseURL, "http") {
		return nil, &ConfigurationError{Reason: "base URL must start with http(s) and point to your site (e.g. https://<site>.atlassian.net/wiki)"}
	}
	if !strings.Contains(user, "@") {
		return nil, &ConfigurationError{Reason: "user must be an Atlassian account email address"}
	}

	s := &Session{
		BaseURL: normalizeBaseURL(baseURL),
		User:    user,
		Token:   token,
		client:  http.DefaultClient,
		logger:  logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// normalizeBaseURL ensures a single trailing /wiki on the site base.
func normalizeBaseURL(raw string) string {
	base := strings.TrimRight(raw, "/")
	if strings.HasSuffix(base, "/wiki") {
		return base
	}
	return base + "/wiki"
}

// apiBase returns the v1 REST API root.
func (s *Session) apiBase() string {
	return s.BaseURL + "/rest/api"
}

// Probe issues one authenticated identity-check request so that bad
// credentials fail fast, before any page work starts.
func (s *Session) Probe(ctx context.Context) error {
	res, err := s.get(ctx, s.apiBase()+"/user/current", nil)
	if err != nil {
		return err
	}
	res.Body.Close()
	return nil
}

// get performs a single authenticated GET request. A 401/403 response is
// translated into an AuthenticationError, any other non-2xx into a
// TransportError. There is no retry: one attempt per call.
func (s *Session) get(ctx context.Context, rawURL string, params url.Values) (*http.Response, error) {
	if len(params) > 0 {
		rawURL = rawURL + "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &TransportError{URL: rawURL, Err: err}
	}
	req.SetBasicAuth(s.User, s.Token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	res, err := s.client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: rawURL, Err: err}
	}
	if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
		res.Body.Close()
		return nil, &AuthenticationError{StatusCode: res.StatusCode}
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		res.Body.Close()
		return nil, &TransportError{URL: rawURL, StatusCode: res.StatusCode}
	}
	return res, nil
}

// getJSON performs a GET and decodes the JSON response body into v.
func (s *Session) getJSON(ctx context.Context, rawURL string, params url.Values, v interface{}) error {
	res, err := s.get(ctx, rawURL, params)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if err := json.NewDecoder(res.Body).Decode(v); err != nil {
		return errors.Wrapf(err, "decoding response from %s", rawURL)
	}
	return nil
}
