package lib

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFilenameVariants tests the ordered candidate list
func TestFilenameVariants(t *testing.T) {
	t.Run("SpacedName", func(t *testing.T) {
		variants := FilenameVariants("My File.png")
		assert.Equal(t, []string{
			"My File.png", // raw
			"My File.png", // decoded
			"My File.png", // %20 -> space
			"My File.png", // _ -> space
			"My_File.png", // space -> _
			"My%20File.png",
		}, variants)
	})

	t.Run("PercentEncodedName", func(t *testing.T) {
		variants := FilenameVariants("My%20File.png")
		assert.Equal(t, "My%20File.png", variants[0], "raw value is always tried first")
		assert.Contains(t, variants, "My File.png")
	})

	t.Run("UnderscoredName", func(t *testing.T) {
		assert.Contains(t, FilenameVariants("My_File.png"), "My File.png")
	})
}

// TestBuildAttachmentMap tests the normalized key set
func TestBuildAttachmentMap(t *testing.T) {
	att := Attachment{ID: "a1", Title: "My File.png"}
	m := BuildAttachmentMap([]Attachment{att})

	for _, key := range []string{"My File.png", "My_File.png", "My%20File.png"} {
		got, ok := m[key]
		require.True(t, ok, "expected key %q", key)
		assert.Equal(t, "a1", got.ID)
	}

	t.Run("SkipsUntitledRecords", func(t *testing.T) {
		m := BuildAttachmentMap([]Attachment{{ID: "a2"}})
		assert.Empty(t, m)
	})
}

// TestResolve tests the variant matching order and fallthrough
func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		reference string
		listed    string
	}{
		{"exact match", "diagram.png", "diagram.png"},
		{"encoded reference, spaced listing", "My%20File.png", "My File.png"},
		{"spaced reference, encoded markup key", "My File.png", "My File.png"},
		{"underscored reference, spaced listing", "My_File.png", "My File.png"},
		{"spaced reference, underscored listing", "My File.png", "My_File.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := BuildAttachmentMap([]Attachment{{ID: "a1", Title: tt.listed}})
			att, ok := m.Resolve(tt.reference)
			require.True(t, ok)
			assert.Equal(t, "a1", att.ID)
		})
	}

	t.Run("RawValueWinsOverVariants", func(t *testing.T) {
		// When both spellings are keyed, the raw reference must match its
		// own record before any encoding substitution is tried.
		m := AttachmentMap{
			"a b.png": {ID: "spaced"},
			"a_b.png": {ID: "underscored"},
		}
		att, ok := m.Resolve("a_b.png")
		require.True(t, ok)
		assert.Equal(t, "underscored", att.ID)

		att, ok = m.Resolve("a b.png")
		require.True(t, ok)
		assert.Equal(t, "spaced", att.ID)
	})

	t.Run("NoMatch", func(t *testing.T) {
		m := BuildAttachmentMap([]Attachment{{ID: "a1", Title: "other.png"}})
		_, ok := m.Resolve("missing.png")
		assert.False(t, ok)
	})
}

// TestListAttachments tests the paginated listing
func TestListAttachments(t *testing.T) {
	t.Run("FollowsNextLink", func(t *testing.T) {
		var firstQuery string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/wiki/rest/api/content/123/child/attachment", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			if r.URL.Query().Get("start") == "" {
				firstQuery = r.URL.RawQuery
				fmt.Fprint(w, `{
					"results": [
						{"id": "a1", "title": "one.png", "_links": {"download": "/download/attachments/123/one.png"}},
						{"id": "a2", "title": "two.pdf", "_links": {"download": "/download/attachments/123/two.pdf"}}
					],
					"_links": {"next": "/wiki/rest/api/content/123/child/attachment?start=2"}
				}`)
				return
			}
			fmt.Fprint(w, `{"results": [{"id": "a3", "title": "three.txt", "_links": {"download": "/download/attachments/123/three.txt"}}], "_links": {}}`)
		}))
		defer server.Close()

		s := newTestSession(t, server.URL)
		attachments, err := s.ListAttachments(context.Background(), "123")
		require.NoError(t, err)

		require.Len(t, attachments, 3)
		assert.Equal(t, []string{"a1", "a2", "a3"}, []string{attachments[0].ID, attachments[1].ID, attachments[2].ID})
		assert.Contains(t, firstQuery, "limit=200")
		assert.Contains(t, firstQuery, "expand=download")
	})

	t.Run("AbsoluteNextLink", func(t *testing.T) {
		var server *httptest.Server
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if r.URL.Query().Get("start") == "" {
				json.NewEncoder(w).Encode(map[string]interface{}{
					"results": []map[string]interface{}{{"id": "a1", "title": "one.png"}},
					"_links":  map[string]string{"next": server.URL + "/wiki/rest/api/content/123/child/attachment?start=1"},
				})
				return
			}
			fmt.Fprint(w, `{"results": [{"id": "a2", "title": "two.png"}]}`)
		}))
		defer server.Close()

		s := newTestSession(t, server.URL)
		attachments, err := s.ListAttachments(context.Background(), "123")
		require.NoError(t, err)
		require.Len(t, attachments, 2)
	})

	t.Run("EmptyListing", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"results": []}`)
		}))
		defer server.Close()

		s := newTestSession(t, server.URL)
		attachments, err := s.ListAttachments(context.Background(), "123")
		require.NoError(t, err)
		assert.Empty(t, attachments)
	})

	t.Run("ServerError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		s := newTestSession(t, server.URL)
		_, err := s.ListAttachments(context.Background(), "123")
		require.Error(t, err)
		var transportErr *TransportError
		assert.ErrorAs(t, err, &transportErr)
	})
}
