package lib

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// downloadPathSegment marks attachment download URLs inside image sources
// and link targets.
const downloadPathSegment = "/download/attachments/"

// Storage markup uses XML self-closing syntax on its namespaced elements.
// net/html ignores the trailing slash on unknown tags, so an unclosed
// <ri:attachment/> would adopt its following siblings as children and lose
// them when the element is replaced.
var selfClosingStorageTag = regexp.MustCompile(`<((?:ri|ac):[a-zA-Z0-9_-]+)((?:[^>"']|"[^"]*"|'[^']*')*)/>`)

// expandSelfClosingTags turns self-closed ri:/ac: elements into open+close
// pairs before the markup reaches the HTML parser.
func expandSelfClosingTags(markup string) string {
	return selfClosingStorageTag.ReplaceAllString(markup, "<$1$2></$1>")
}

// Rewriter matches inline attachment references in storage markup against
// the listed attachments, triggers downloads, and rewrites each reference to
// a path relative to the output document. References that cannot be resolved
// or downloaded are replaced by a readable placeholder; a broken remote link
// never survives into the output.
type Rewriter struct {
	downloader     *Downloader
	attachments    AttachmentMap
	attachmentsDir string
	baseDir        string
}

// NewRewriter creates a Rewriter. baseDir is the directory of the eventual
// output document, which may differ in depth from the attachments directory.
func NewRewriter(d *Downloader, m AttachmentMap, attachmentsDir, baseDir string) *Rewriter {
	return &Rewriter{
		downloader:     d,
		attachments:    m,
		attachmentsDir: attachmentsDir,
		baseDir:        baseDir,
	}
}

// Rewrite processes the three recognized reference shapes: structured
// inline attachment elements, image sources and link targets pointing at
// the download path. The rewrite runs on every invocation; only the
// downloads themselves are skipped for files already on disk.
func (rw *Rewriter) Rewrite(ctx context.Context, markup string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(expandSelfClosingTags(markup)))
	if err != nil {
		return markup, err
	}

	// <ri:attachment ri:filename="..."/> storage elements
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		if !strings.HasSuffix(goquery.NodeName(s), "attachment") {
			return
		}
		filename := s.AttrOr("ri:filename", s.AttrOr("filename", ""))
		if filename == "" {
			return
		}
		if local, ok := rw.fetchLocal(ctx, filename); ok {
			s.ReplaceWithHtml(fmt.Sprintf("<img src=%q/>", local))
		} else {
			s.ReplaceWithHtml(placeholderHTML(filename))
		}
	})

	// <img src="/download/attachments/..."/>
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src := s.AttrOr("src", "")
		if !strings.Contains(src, downloadPathSegment) {
			return
		}
		filename := filenameFromURL(src)
		if filename == "" {
			return
		}
		if local, ok := rw.fetchLocal(ctx, filename); ok {
			s.SetAttr("src", local)
		} else {
			s.ReplaceWithHtml(placeholderHTML(filename))
		}
	})

	// <a href="/download/attachments/...">
	doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		href := s.AttrOr("href", "")
		if !strings.Contains(href, downloadPathSegment) {
			return
		}
		filename := filenameFromURL(href)
		if filename == "" {
			return
		}
		if local, ok := rw.fetchLocal(ctx, filename); ok {
			s.SetAttr("href", local)
		} else {
			s.ReplaceWithHtml(placeholderHTML(filename))
		}
	})

	return doc.Html()
}

// fetchLocal resolves a filename through the variant chain, downloads the
// matched attachment and returns its path relative to the output document.
func (rw *Rewriter) fetchLocal(ctx context.Context, filename string) (string, bool) {
	logger := rw.downloader.session.logger

	att, ok := rw.attachments.Resolve(filename)
	if !ok {
		logger.Debugf("attachment %q not found among %d listed attachments", filename, len(rw.attachments))
		return "", false
	}
	saved, err := rw.downloader.Download(ctx, att, rw.attachmentsDir)
	if err != nil {
		logger.Warnf("download of attachment %q failed: %v", filename, err)
		return "", false
	}
	return PathRel(saved, rw.baseDir), true
}

// placeholderHTML renders the human-readable fallback for an unresolved
// attachment reference.
func placeholderHTML(filename string) string {
	return html.EscapeString(fmt.Sprintf("[Attachment: %s]", filename))
}

// filenameFromURL extracts the final path segment of a reference URL.
func filenameFromURL(ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		if i := strings.LastIndex(ref, "/"); i >= 0 {
			return ref[i+1:]
		}
		return ref
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return ""
	}
	return name
}

// PathRel returns the path of file relative to baseDir, with forward
// slashes. When relativization fails it falls back to the bare file name.
func PathRel(file, baseDir string) string {
	rel, err := filepath.Rel(baseDir, file)
	if err != nil {
		return filepath.Base(file)
	}
	return filepath.ToSlash(rel)
}
