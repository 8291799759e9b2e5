package lib

import (
	"context"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// attachmentPageLimit is the page size requested from the listing endpoint.
const attachmentPageLimit = "200"

// Attachment is one attachment record from the listing endpoint. The title
// is the original filename and may contain spaces or Unicode; the download
// locator may be absolute or relative to the site base.
type Attachment struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Links struct {
		Download string `json:"download"`
	} `json:"_links"`
}

// attachmentListing is the wire shape of one page of the listing response.
type attachmentListing struct {
	Results []Attachment `json:"results"`
	Links   struct {
		Next string `json:"next"`
	} `json:"_links"`
}

// ListAttachments retrieves all attachment records for a page, following the
// pagination "next" link (absolute or relative) until none is present. The
// results of every page are accumulated in order; an empty listing is fine.
func (s *Session) ListAttachments(ctx context.Context, pageID string) ([]Attachment, error) {
	reqURL := s.apiBase() + "/content/" + pageID + "/child/attachment"
	params := url.Values{}
	params.Set("limit", attachmentPageLimit)
	params.Set("expand", "download")

	var attachments []Attachment
	for {
		var listing attachmentListing
		if err := s.getJSON(ctx, reqURL, params, &listing); err != nil {
			return nil, errors.Wrapf(err, "listing attachments for page %s", pageID)
		}
		attachments = append(attachments, listing.Results...)

		if listing.Links.Next == "" {
			break
		}
		next, err := s.resolveLink(listing.Links.Next)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving next link %q", listing.Links.Next)
		}
		reqURL = next
		params = nil
	}
	return attachments, nil
}

// resolveLink resolves a possibly relative service link against the site base.
func (s *Session) resolveLink(link string) (string, error) {
	ref, err := url.Parse(link)
	if err != nil {
		return "", err
	}
	if ref.IsAbs() {
		return link, nil
	}
	base, err := url.Parse(s.BaseURL)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

// AttachmentMap is a read-only lookup from filename variants to attachment
// records. Keys may collide across variants pointing to the same record.
type AttachmentMap map[string]Attachment

// BuildAttachmentMap indexes the listed attachments under several filename
// encodings. The storage markup and the listing apply inconsistent encoding
// independently, so exact string equality would miss legitimate matches.
func BuildAttachmentMap(attachments []Attachment) AttachmentMap {
	m := make(AttachmentMap, len(attachments)*4)
	for _, att := range attachments {
		title := att.Title
		if title == "" {
			continue
		}
		m[title] = att
		if decoded, err := url.PathUnescape(title); err == nil {
			m[decoded] = att
		}
		m[strings.ReplaceAll(title, " ", "_")] = att
		m[strings.ReplaceAll(title, " ", "%20")] = att
	}
	return m
}

// FilenameVariants returns the ordered candidate spellings tried when
// matching an inline reference against the map: the raw value first, then
// URL-decoded, then the encoding substitutions. The order is fixed so that
// matching behavior is reproducible.
func FilenameVariants(name string) []string {
	variants := []string{name}
	if decoded, err := url.PathUnescape(name); err == nil {
		variants = append(variants, decoded)
	}
	variants = append(variants,
		strings.ReplaceAll(name, "%20", " "),
		strings.ReplaceAll(name, "_", " "),
		strings.ReplaceAll(name, " ", "_"),
		strings.ReplaceAll(name, " ", "%20"),
	)
	return variants
}

// Resolve looks up a filename under each variant in order and returns the
// first hit.
func (m AttachmentMap) Resolve(name string) (Attachment, bool) {
	for _, variant := range FilenameVariants(name) {
		if att, ok := m[variant]; ok {
			return att, true
		}
	}
	return Attachment{}, false
}
