package lib

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// attachmentsDirName is the subdirectory of the output directory that
// receives downloaded attachments.
const attachmentsDirName = "attachments"

// previewRunes caps the plain-text preview included in an ExportResult.
const previewRunes = 280

// PageRef identifies the page to export: either by numeric identifier, or
// by title plus space key.
type PageRef struct {
	ID    string
	Title string
	Space string
}

// Exporter sequences the whole conversion: fetch page, list attachments,
// rewrite references, render Markdown, write the document.
type Exporter struct {
	Session  *Session
	Renderer Renderer // defaults to the in-process converter
	OutDir   string   // defaults to the current directory
	Progress bool     // render download progress bars
}

// ExportResult reports what a run produced.
type ExportResult struct {
	MarkdownPath   string
	AttachmentsDir string // empty when nothing was downloaded
	Markdown       string
	Preview        string
}

// Export runs one fetch-and-save pass and returns the written paths and the
// rendered content. Attachment listing and download failures degrade to
// placeholders instead of failing the run; every other error propagates.
func (e *Exporter) Export(ctx context.Context, ref PageRef) (*ExportResult, error) {
	if e.Session == nil {
		return nil, &ConfigurationError{Reason: "credentials not initialized: create a session first"}
	}
	renderer := e.Renderer
	if renderer == nil {
		renderer = &MarkdownRenderer{}
	}
	outDir := e.OutDir
	if outDir == "" {
		outDir = "."
	}
	outDir, err := filepath.Abs(outDir)
	if err != nil {
		return nil, errors.Wrap(err, "resolving output directory")
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, errors.Wrap(err, "creating output directory")
	}

	page, err := e.resolvePage(ctx, ref)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(page.Storage()) == "" {
		return nil, &EmptyContentError{PageID: page.ID}
	}

	attachmentsDir := filepath.Join(outDir, attachmentsDirName)
	if err := os.MkdirAll(attachmentsDir, 0755); err != nil {
		return nil, errors.Wrap(err, "creating attachments directory")
	}

	// A failed listing is non-fatal: the rewriter degrades to "no
	// attachments known" and every reference falls back to a placeholder.
	attMap := AttachmentMap{}
	if atts, err := e.Session.ListAttachments(ctx, page.ID); err != nil {
		e.Session.logger.Warnf("failed to list attachments for page %s: %v", page.ID, err)
	} else {
		e.Session.logger.Debugf("found %d attachments for page %s", len(atts), page.ID)
		attMap = BuildAttachmentMap(atts)
	}

	downloader := NewDownloader(e.Session, page.ID, e.Progress)
	rewriter := NewRewriter(downloader, attMap, attachmentsDir, outDir)
	rewritten, err := rewriter.Rewrite(ctx, page.Storage())
	if err != nil {
		return nil, errors.Wrap(err, "rewriting attachment references")
	}

	markdown, err := renderer.Render(rewritten)
	if err != nil {
		return nil, err
	}

	safeTitle := SanitizeFilename(page.Title)
	if safeTitle == "" {
		safeTitle = "page-" + page.ID
	}
	mdPath := filepath.Join(outDir, safeTitle+".md")
	content := fmt.Sprintf("# %s\n\n%s", page.Title, markdown)
	if err := os.WriteFile(mdPath, []byte(content), 0644); err != nil {
		return nil, errors.Wrap(err, "writing markdown file")
	}

	result := &ExportResult{
		MarkdownPath: mdPath,
		Markdown:     markdown,
		Preview:      truncateRunes(strings.TrimSpace(page.ToText()), previewRunes),
	}
	if dirHasEntries(attachmentsDir) {
		result.AttachmentsDir = attachmentsDir
	}
	return result, nil
}

// resolvePage fetches the page by id, or by title+space search followed by a
// direct re-fetch of the found id so both modes return the same shape.
func (e *Exporter) resolvePage(ctx context.Context, ref PageRef) (*Page, error) {
	switch {
	case ref.ID != "":
		return e.Session.GetPageByID(ctx, ref.ID)
	case ref.Title != "" && ref.Space != "":
		page, err := e.Session.FindPageByTitle(ctx, ref.Title, ref.Space)
		if err != nil {
			return nil, err
		}
		return e.Session.GetPageByID(ctx, page.ID)
	default:
		return nil, &ConfigurationError{Reason: "either a page id or a title and space key are required"}
	}
}

func dirHasEntries(dir string) bool {
	entries, err := os.ReadDir(dir)
	return err == nil && len(entries) > 0
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
