package lib

import (
	"context"
	"net/url"
	"strings"

	"github.com/k3a/html2text"
)

// Ancestor is one entry in a page's ancestry chain.
type Ancestor struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Page represents a single Confluence page with its raw storage body.
type Page struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Ancestors []Ancestor `json:"ancestors"`
	Version   struct {
		Number int `json:"number"`
	} `json:"version"`
	Body struct {
		Storage struct {
			Value string `json:"value"`
		} `json:"storage"`
	} `json:"body"`
}

// Storage returns the raw storage-format markup of the page body.
func (p *Page) Storage() string {
	return p.Body.Storage.Value
}

// ToText converts the page's storage markup to plain text.
func (p *Page) ToText() string {
	return html2text.HTML2Text(p.Storage())
}

// pageSearch is the wire shape of a content search response.
type pageSearch struct {
	Results []Page `json:"results"`
}

// GetPageByID fetches a page directly by its numeric identifier, expanding
// the storage body, version and ancestry. Every call hits the remote
// service; there is no caching.
func (s *Session) GetPageByID(ctx context.Context, pageID string) (*Page, error) {
	pageID = strings.TrimSpace(pageID)
	params := url.Values{}
	params.Set("expand", "body.storage,version,ancestors")

	var page Page
	if err := s.getJSON(ctx, s.apiBase()+"/content/"+pageID, params, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// FindPageByTitle resolves a page by exact title within a space. At most one
// match is requested; zero results yield a NotFoundError.
func (s *Session) FindPageByTitle(ctx context.Context, title, space string) (*Page, error) {
	params := url.Values{}
	params.Set("title", title)
	params.Set("spaceKey", space)
	params.Set("expand", "body.storage,version,ancestors")
	params.Set("limit", "1")

	var search pageSearch
	if err := s.getJSON(ctx, s.apiBase()+"/content", params, &search); err != nil {
		return nil, err
	}
	if len(search.Results) == 0 {
		return nil, &NotFoundError{Title: title, Space: space}
	}
	return &search.Results[0], nil
}
