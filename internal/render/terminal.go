package render

import (
	"fmt"
	"io"

	"github.com/charmbracelet/glamour"
)

// Terminal renders markdown for ANSI terminals.
type Terminal struct {
	r *glamour.TermRenderer
}

// NewTerminal builds a glamour renderer. style is a glamour standard
// style name or "auto".
func NewTerminal(style string, wordWrap int) (*Terminal, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(wordWrap)}
	if style == "" || style == "auto" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	return &Terminal{r: r}, nil
}

func (t *Terminal) Render(doc string) (string, error) {
	out, err := t.r.Render(doc)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return out, nil
}

// WriteTerminal renders doc to w in one shot.
func WriteTerminal(w io.Writer, doc, style string, wordWrap int) error {
	t, err := NewTerminal(style, wordWrap)
	if err != nil {
		return err
	}
	out, err := t.Render(doc)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}
