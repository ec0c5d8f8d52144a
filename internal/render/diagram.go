package render

import (
	"bytes"
	"log"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// DiagramLanguage is the fence info string that marks a diagram block.
const DiagramLanguage = "mermaid"

// DiagramClass is the class of the container emitted for diagram blocks.
const DiagramClass = "mermaid"

// KindDiagram is the AST kind of a diagram block.
var KindDiagram = ast.NewNodeKind("Diagram")

// Diagram is a fenced block whose body is diagram source.
type Diagram struct {
	ast.BaseBlock
	Source string
}

func (n *Diagram) Kind() ast.NodeKind { return KindDiagram }

func (n *Diagram) IsRaw() bool { return true }

func (n *Diagram) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Source": n.Source}, nil)
}

var (
	leadingSpace = regexp.MustCompile(`(?m)^\s+`)

	diagramDenylist = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`),
		regexp.MustCompile(`(?i)javascript:`),
		regexp.MustCompile(`(?i)onclick`),
		regexp.MustCompile(`(?i)onload`),
		regexp.MustCompile(`(?i)onerror`),
		regexp.MustCompile(`(?i)eval\s*\(`),
		regexp.MustCompile(`(?i)function\s*\(`),
	}
)

// CleanDiagramSource trims diagram source, drops leading whitespace on each
// line and strips script-like substrings. stripped reports whether the
// denylist removed anything.
func CleanDiagramSource(src string) (clean string, stripped bool) {
	clean = leadingSpace.ReplaceAllString(strings.TrimSpace(src), "")
	safe := clean
	for _, re := range diagramDenylist {
		safe = re.ReplaceAllString(safe, "")
	}
	return safe, safe != clean
}

type diagramTransformer struct{}

func isDiagramFence(n *ast.FencedCodeBlock, source []byte) bool {
	if n.Info == nil {
		return false
	}
	return string(bytes.TrimSpace(n.Info.Segment.Value(source))) == DiagramLanguage
}

// Transform swaps diagram fences for Diagram nodes.
func (t *diagramTransformer) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	source := reader.Source()
	var fences []*ast.FencedCodeBlock
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if fcb, ok := n.(*ast.FencedCodeBlock); ok && isDiagramFence(fcb, source) {
			fences = append(fences, fcb)
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	for _, fcb := range fences {
		var b strings.Builder
		lines := fcb.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			b.Write(seg.Value(source))
		}
		d := &Diagram{Source: strings.TrimSpace(b.String())}
		fcb.Parent().ReplaceChild(fcb.Parent(), fcb, d)
	}
}

type diagramRenderer struct {
	log *log.Logger
}

func (r *diagramRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindDiagram, r.render)
}

func (r *diagramRenderer) render(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*Diagram)
	clean, stripped := CleanDiagramSource(n.Source)
	if stripped && r.log != nil {
		r.log.Printf("render: removed unsafe content from diagram source")
	}
	_, _ = w.WriteString(`<div class="` + DiagramClass + `">`)
	_, _ = w.Write(util.EscapeHTML([]byte(clean)))
	_, _ = w.WriteString("</div>\n")
	return ast.WalkSkipChildren, nil
}

type diagramExtension struct {
	log *log.Logger
}

// DiagramExtension makes goldmark emit diagram containers for mermaid fences.
func DiagramExtension(logger *log.Logger) goldmark.Extender {
	return &diagramExtension{log: logger}
}

func (e *diagramExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithASTTransformers(
		util.Prioritized(&diagramTransformer{}, 100),
	))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&diagramRenderer{log: e.log}, 100),
	))
}
