package lib

import "fmt"

// ConfigurationError indicates bad or missing credentials or a malformed
// base URL. It is raised eagerly, before any network call is made.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// AuthenticationError indicates that the Confluence API rejected the
// provided credentials (HTTP 401 or 403).
type AuthenticationError struct {
	StatusCode int
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed (status %d): verify email + API token, and that the token belongs to this site; the base URL must point to your cloud site (e.g. https://<site>.atlassian.net/wiki)", e.StatusCode)
}

// NotFoundError indicates that a title+space search yielded no page.
type NotFoundError struct {
	Title string
	Space string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("page titled %q not found in space %s", e.Title, e.Space)
}

// EmptyContentError indicates that a page exists but carries no storage body.
type EmptyContentError struct {
	PageID string
}

func (e *EmptyContentError) Error() string {
	return fmt.Sprintf("page %s has no storage content", e.PageID)
}

// TransportError wraps any other non-2xx response or network-level failure.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("unexpected status code %d from %s", e.StatusCode, e.URL)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ConversionError indicates that the external Markdown converter failed.
// Output carries the converter's diagnostic output (stderr).
type ConversionError struct {
	Backend string
	Output  string
	Err     error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("%s conversion failed: %v: %s", e.Backend, e.Err, e.Output)
}

func (e *ConversionError) Unwrap() error { return e.Err }
