package render

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DiagramRenderer renders the source of one diagram container.
// Returning no nodes leaves the container as-is, for a client-side renderer.
type DiagramRenderer interface {
	RenderDiagram(src string) ([]*html.Node, error)
}

// ClientDiagrams defers diagram rendering to the browser.
type ClientDiagrams struct{}

func (ClientDiagrams) RenderDiagram(string) ([]*html.Node, error) { return nil, nil }

// PreformattedDiagrams shows diagram source as a code block, for output
// that will never run a diagram script.
type PreformattedDiagrams struct{}

func (PreformattedDiagrams) RenderDiagram(src string) ([]*html.Node, error) {
	code := &html.Node{
		Type:     html.ElementNode,
		Data:     "code",
		DataAtom: atom.Code,
		Attr:     []html.Attribute{{Key: "class", Val: "language-" + DiagramLanguage}},
	}
	code.AppendChild(&html.Node{Type: html.TextNode, Data: src})
	pre := &html.Node{Type: html.ElementNode, Data: "pre", DataAtom: atom.Pre}
	pre.AppendChild(code)
	return []*html.Node{pre}, nil
}

// decorator runs the post-commit steps over sanitized markup: diagram
// rendering and syntax highlighting. A failing step is logged and leaves
// its block undecorated.
type decorator struct {
	diagrams  DiagramRenderer
	formatter *chromahtml.Formatter
	style     *chroma.Style
	log       *log.Logger
}

func newDecorator(diagrams DiagramRenderer, styleName string, logger *log.Logger) *decorator {
	if diagrams == nil {
		diagrams = ClientDiagrams{}
	}
	return &decorator{
		diagrams:  diagrams,
		formatter: chromahtml.New(chromahtml.WithClasses(true), chromahtml.PreventSurroundingPre(true)),
		style:     styles.Get(styleName),
		log:       logger,
	}
}

type decorateStats struct {
	diagrams   int
	codeBlocks int
}

func (d *decorator) decorate(sanitized string) (string, decorateStats, error) {
	var st decorateStats
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(sanitized), body)
	if err != nil {
		return sanitized, st, fmt.Errorf("parse rendered html: %w", err)
	}
	for _, n := range nodes {
		d.walk(n, &st)
	}
	var b strings.Builder
	for _, n := range nodes {
		if err := html.Render(&b, n); err != nil {
			return sanitized, st, fmt.Errorf("serialize rendered html: %w", err)
		}
	}
	return b.String(), st, nil
}

func (d *decorator) walk(n *html.Node, st *decorateStats) {
	if n.Type == html.ElementNode {
		switch {
		case n.DataAtom == atom.Div && hasClass(n, DiagramClass):
			st.diagrams++
			d.guard("diagram", func() error { return d.diagram(n) })
			return
		case n.DataAtom == atom.Pre:
			if code, lang := codeChild(n); code != nil {
				st.codeBlocks++
				if lang != "" {
					d.guard("highlight", func() error { return d.highlight(n, code, lang) })
				}
				return
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		d.walk(c, st)
	}
}

func (d *decorator) guard(step string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			d.logf("render: %s step panicked: %v", step, r)
		}
	}()
	if err := fn(); err != nil {
		d.logf("render: %s step failed: %v", step, err)
	}
}

func (d *decorator) diagram(n *html.Node) error {
	nodes, err := d.diagrams.RenderDiagram(textContent(n))
	if err != nil || len(nodes) == 0 {
		return err
	}
	replaceChildren(n, nodes)
	return nil
}

func (d *decorator) highlight(pre, code *html.Node, lang string) error {
	lexer := lexers.Get(lang)
	if lexer == nil {
		return nil
	}
	lexer = chroma.Coalesce(lexer)
	it, err := lexer.Tokenise(nil, textContent(code))
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := d.formatter.Format(&buf, d.style, it); err != nil {
		return err
	}
	nodes, err := html.ParseFragment(&buf, code)
	if err != nil {
		return err
	}
	replaceChildren(code, nodes)
	addClass(pre, "chroma")
	return nil
}

// writeCSS writes the stylesheet matching highlighted output.
func (d *decorator) writeCSS(w io.Writer) error {
	return d.formatter.WriteCSS(w, d.style)
}

func (d *decorator) logf(format string, args ...any) {
	if d.log != nil {
		d.log.Printf(format, args...)
	}
}

func codeChild(pre *html.Node) (*html.Node, string) {
	for c := pre.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Code {
			for _, cls := range classes(c) {
				if lang, ok := strings.CutPrefix(cls, "language-"); ok {
					return c, lang
				}
			}
			return c, ""
		}
	}
	return nil, ""
}

func classes(n *html.Node) []string {
	for _, a := range n.Attr {
		if a.Key == "class" {
			return strings.Fields(a.Val)
		}
	}
	return nil
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range classes(n) {
		if c == class {
			return true
		}
	}
	return false
}

func addClass(n *html.Node, class string) {
	if hasClass(n, class) {
		return
	}
	for i, a := range n.Attr {
		if a.Key == "class" {
			n.Attr[i].Val = strings.TrimSpace(a.Val + " " + class)
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: "class", Val: class})
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var rec func(*html.Node)
	rec = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			rec(c)
		}
	}
	rec(n)
	return b.String()
}

func replaceChildren(n *html.Node, nodes []*html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	for _, c := range nodes {
		if c.Parent != nil {
			c.Parent.RemoveChild(c)
		}
		n.AppendChild(c)
	}
}
