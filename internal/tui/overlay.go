package tui

import (
	"strings"

	lipglossv2 "github.com/charmbracelet/lipgloss/v2"
)

const (
	helpWidth  = 44
	helpHeight = 14
)

var helpKeys = [][2]string{
	{"ctrl+s", "done: share the draft as a link"},
	{"ctrl+o", "edit the draft in $EDITOR"},
	{"esc", "leave the editor unsaved"},
	{"e", "edit the document"},
	{"d", "download markdown_<date>.md"},
	{"b", "back to the previous link"},
	{"↑/↓ pgup/pgdn", "scroll"},
	{"?", "toggle this help"},
	{"q / ctrl+c", "quit"},
}

func helpBox() string {
	var b strings.Builder
	b.WriteString(lipglossv2.NewStyle().Bold(true).Render("Keys"))
	b.WriteString("\n\n")
	for _, k := range helpKeys {
		b.WriteString(lipglossv2.NewStyle().Width(14).Foreground(lipglossv2.Color("63")).Render(k[0]))
		b.WriteString(k[1])
		b.WriteString("\n")
	}
	return lipglossv2.NewStyle().
		Width(helpWidth).
		Height(helpHeight).
		Padding(0, 1).
		Border(lipglossv2.RoundedBorder()).
		BorderForeground(lipglossv2.Color("63")).
		Render(strings.TrimRight(b.String(), "\n"))
}

// renderOverlay centres fg over a dimmed copy of base.
func (m *model) renderOverlay(base, fg string, overlayW, overlayH int) string {
	termW, termH := m.width, m.height
	if termW <= 0 {
		termW = 80
	}
	if termH <= 0 {
		termH = 24
	}
	x := max(0, (termW-overlayW)/2)
	y := max(0, (termH-overlayH)/2)

	baseLayer := lipglossv2.NewLayer(lipglossv2.NewStyle().Faint(true).Render(base)).
		Width(termW).
		Height(termH)
	fgLayer := lipglossv2.NewLayer(fg).
		Width(overlayW).
		Height(overlayH).
		X(x).
		Y(y)
	return lipglossv2.NewCanvas(baseLayer, fgLayer).Render()
}
