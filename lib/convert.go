package lib

import (
	"bytes"
	"os/exec"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

// Renderer converts rewritten storage markup to Markdown. Both backends are
// pure: markup in, Markdown out, no side effects.
type Renderer interface {
	Render(markup string) (string, error)
}

// NewRenderer selects the conversion backend: the external pandoc process
// or the in-process converter.
func NewRenderer(usePandoc bool) Renderer {
	if usePandoc {
		return &PandocRenderer{}
	}
	return &MarkdownRenderer{}
}

// MarkdownRenderer is the in-process backend.
type MarkdownRenderer struct{}

func (r *MarkdownRenderer) Render(markup string) (string, error) {
	converter := md.NewConverter("", true, nil)
	return converter.ConvertString(markup)
}

// PandocRenderer invokes pandoc as a subprocess, piping the markup to its
// input and requesting GitHub-flavored Markdown as output.
type PandocRenderer struct {
	Path string // pandoc binary; resolved from PATH when empty
}

func (r *PandocRenderer) Render(markup string) (string, error) {
	bin := r.Path
	if bin == "" {
		bin = "pandoc"
	}
	cmd := exec.Command(bin, "-f", "html", "-t", "gfm")
	cmd.Stdin = strings.NewReader(markup)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", &ConversionError{Backend: "pandoc", Output: strings.TrimSpace(stderr.String()), Err: err}
	}
	return stdout.String(), nil
}
