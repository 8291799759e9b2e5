package lib

import (
	"context"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
)

// downloadChunkSize is the buffer size used when streaming a response body
// to disk.
const downloadChunkSize = 4096

// Downloader streams attachment content to local files. Failures are
// returned to the caller but never abort a page conversion; the rewriter
// turns them into placeholders.
type Downloader struct {
	session  *Session
	pageID   string
	progress bool
}

// NewDownloader creates a Downloader bound to a session and the page the
// attachments belong to. With progress enabled, downloads render a byte
// progress bar on stderr.
func NewDownloader(s *Session, pageID string, progress bool) *Downloader {
	return &Downloader{session: s, pageID: pageID, progress: progress}
}

// Download fetches one attachment into dir and returns the written path.
// The network is skipped entirely when the target file already exists, so
// re-runs against the same output directory are idempotent.
func (d *Downloader) Download(ctx context.Context, att Attachment, dir string) (string, error) {
	filename := d.localFilename(att)
	target := filepath.Join(dir, filename)

	if _, err := os.Stat(target); err == nil {
		d.session.logger.Debugf("attachment already exists: %s", filename)
		return target, nil
	}

	candidates := d.candidateURLs(att, filename)
	if len(candidates) == 0 {
		return "", errors.Errorf("no download locator for attachment %q", att.Title)
	}

	var lastErr error
	for _, candidate := range candidates {
		d.session.logger.Debugf("downloading attachment %s from %s", filename, candidate)
		if err := d.fetchTo(ctx, candidate, target, filename); err != nil {
			d.session.logger.WithFields(logrus.Fields{"url": candidate, "attachment": filename}).Warnf("download attempt failed: %v", err)
			lastErr = err
			continue
		}
		return target, nil
	}
	return "", lastErr
}

// candidateURLs builds the ordered list of download URLs to try: the
// record's own locator first, then the conventional download paths derived
// from the page and attachment identifiers. First success wins.
func (d *Downloader) candidateURLs(att Attachment, filename string) []string {
	var candidates []string

	if locator := att.Links.Download; locator != "" {
		if resolved, err := d.session.resolveLink(locator); err == nil {
			candidates = append(candidates, resolved)
		}
	}
	if d.pageID != "" {
		candidates = append(candidates, d.session.BaseURL+"/download/attachments/"+d.pageID+"/"+url.PathEscape(filename))
	}
	if att.ID != "" {
		candidates = append(candidates, d.session.BaseURL+"/download/attachments/"+att.ID+"/"+url.PathEscape(filename))
	}
	return candidates
}

// fetchTo streams one URL to the target path in fixed-size chunks. A
// response declaring an HTML content type is treated as a failure and
// nothing is written: that is the typical symptom of an authentication
// redirect masquerading as a successful download.
func (d *Downloader) fetchTo(ctx context.Context, rawURL, target, filename string) error {
	res, err := d.session.get(ctx, rawURL, nil)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	contentType := strings.ToLower(res.Header.Get("Content-Type"))
	if strings.Contains(contentType, "text/html") {
		return errors.Errorf("got HTML response instead of file content (content type %q)", contentType)
	}

	file, err := os.Create(target)
	if err != nil {
		return err
	}
	defer file.Close()

	var dst io.Writer = file
	if d.progress {
		bar := progressbar.DefaultBytes(res.ContentLength, filename)
		dst = io.MultiWriter(file, bar)
	}
	if _, err := io.CopyBuffer(dst, res.Body, make([]byte, downloadChunkSize)); err != nil {
		os.Remove(target)
		return err
	}
	return nil
}

// localFilename derives the filesystem name for an attachment: its title,
// falling back to the final path segment of the locator, then to a synthetic
// identifier-based name.
func (d *Downloader) localFilename(att Attachment) string {
	name := att.Title
	if name == "" {
		if u, err := url.Parse(att.Links.Download); err == nil {
			name = path.Base(u.Path)
			if name == "." || name == "/" {
				name = ""
			}
		}
	}
	name = SanitizeFilename(name)
	if name == "" {
		id := att.ID
		if id == "" {
			id = "unknown"
		}
		name = "attachment_" + id
	}
	return name
}

// SanitizeFilename keeps alphanumerics, space, dash, underscore and dot;
// every other character becomes an underscore.
func SanitizeFilename(name string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			return r
		case r == ' ' || r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, name)
	mapped = strings.TrimSpace(mapped)
	if mapped == "." || mapped == ".." {
		return ""
	}
	return mapped
}
