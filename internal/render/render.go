// Package render turns markdown documents into sanitized HTML and
// terminal output.
package render

import (
	"bytes"
	"fmt"
	"io"
	"log"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
)

// Options configure a Pipeline.
type Options struct {
	// HighlightStyle is a chroma style name; unknown names fall back.
	HighlightStyle string
	// Diagrams renders diagram containers; nil defers to the browser.
	Diagrams DiagramRenderer
	Log      *log.Logger
}

// Pipeline converts markdown to HTML, sanitizes it, then decorates the
// committed markup with diagrams and syntax highlighting.
type Pipeline struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
	deco   *decorator
	log    *log.Logger
}

// Page is one rendered document.
type Page struct {
	Source string `json:"-"`
	// Sanitized is the converter output after sanitizing, before decoration.
	Sanitized string `json:"-"`
	// HTML is the final markup.
	HTML       string `json:"html"`
	Diagrams   int    `json:"diagrams"`
	CodeBlocks int    `json:"code_blocks"`
}

func New(opts Options) *Pipeline {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM, DiagramExtension(opts.Log)),
		goldmark.WithRendererOptions(goldmarkhtml.WithUnsafe()),
	)
	return &Pipeline{
		md:     md,
		policy: NewPolicy(),
		deco:   newDecorator(opts.Diagrams, opts.HighlightStyle, opts.Log),
		log:    opts.Log,
	}
}

// Convert renders markdown to HTML without sanitizing it.
func (p *Pipeline) Convert(doc string) (string, error) {
	var buf bytes.Buffer
	if err := p.md.Convert([]byte(doc), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return buf.String(), nil
}

// Sanitize applies the document allow-lists to untrusted HTML.
func (p *Pipeline) Sanitize(untrusted string) string {
	return p.policy.Sanitize(untrusted)
}

// Render runs the full pipeline. Decoration always works on the markup
// produced by this call, so a page never mixes two documents. Decoration
// failures are logged and yield the undecorated markup.
func (p *Pipeline) Render(doc string) (Page, error) {
	raw, err := p.Convert(doc)
	if err != nil {
		return Page{}, err
	}
	page := Page{Source: doc, Sanitized: p.Sanitize(raw)}
	out, st, err := p.deco.decorate(page.Sanitized)
	if err != nil {
		if p.log != nil {
			p.log.Printf("render: %v", err)
		}
		out = page.Sanitized
	}
	page.HTML = out
	page.Diagrams = st.diagrams
	page.CodeBlocks = st.codeBlocks
	return page, nil
}

// WriteHighlightCSS writes the stylesheet for highlighted code blocks.
func (p *Pipeline) WriteHighlightCSS(w io.Writer) error {
	return p.deco.writeCSS(w)
}
