package tui

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mithrel/hashmark/internal/render"
	"github.com/mithrel/hashmark/internal/session"
	"github.com/mithrel/hashmark/pkg/fragment"
)

type memClipboard struct{ text string }

func (c *memClipboard) WriteAll(text string) error {
	c.text = text
	return nil
}

func newTestModel(t *testing.T, frag string) (*model, *session.MemHistory, *memClipboard) {
	t.Helper()
	hist := session.NewMemHistory(frag)
	clip := &memClipboard{}
	term, err := render.NewTerminal("notty", 60)
	require.NoError(t, err)
	m := newModel(Options{
		Session:     session.New(session.Options{BaseURL: "https://md.example/", History: hist, Clipboard: clip}),
		Back:        hist.Back,
		Terminal:    term,
		DownloadDir: t.TempDir(),
		Now:         func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) },
	})
	return m, hist, clip
}

func press(m *model, keys ...tea.KeyMsg) {
	for _, k := range keys {
		m.Update(k)
	}
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	ctrlS = tea.KeyMsg{Type: tea.KeyCtrlS}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
)

func TestStartsEditingOnEmptyFragment(t *testing.T) {
	m, _, _ := newTestModel(t, "")
	assert.Equal(t, session.Editing, m.sess.Mode())
	assert.Contains(t, m.View(), "ctrl+s Done")
	assert.NotContains(t, m.View(), "e Edit")
	assert.NotNil(t, m.Init())
}

func TestStartsViewingDecodableFragment(t *testing.T) {
	enc, err := fragment.Encode("# Hello\n\nworld")
	require.NoError(t, err)
	m, _, _ := newTestModel(t, enc.Data)
	assert.Equal(t, session.Viewing, m.sess.Mode())
	view := m.View()
	assert.Contains(t, view, "e Edit")
	assert.Contains(t, view, "world")
	assert.NotContains(t, view, "ctrl+s Done")
}

func TestSaveFlow(t *testing.T) {
	m, hist, clip := newTestModel(t, "")

	press(m, ctrlS)
	assert.Equal(t, session.Editing, m.sess.Mode())
	assert.Equal(t, session.ErrEmptyDocument.Error(), m.status)

	m.ta.SetValue("# Hello")
	press(m, ctrlS)
	assert.Equal(t, session.Viewing, m.sess.Mode())
	assert.Equal(t, "link copied", m.status)
	assert.Equal(t, "https://md.example/#"+hist.Fragment(), clip.text)
	assert.Equal(t, clip.text, Link(m))
	assert.Contains(t, m.View(), "Hello")

	press(m, runes("e"))
	assert.Equal(t, session.Editing, m.sess.Mode())
	assert.Equal(t, "# Hello", m.ta.Value())

	press(m, esc)
	assert.Equal(t, session.Viewing, m.sess.Mode())
}

func TestTypingGoesToTextarea(t *testing.T) {
	m, _, _ := newTestModel(t, "")
	press(m, runes("q"), runes("e"), runes("d"))
	assert.Equal(t, "qed", m.ta.Value())
	assert.Equal(t, session.Editing, m.sess.Mode())
}

func TestDownloadWritesFile(t *testing.T) {
	enc, err := fragment.Encode("# Notes")
	require.NoError(t, err)
	m, _, _ := newTestModel(t, enc.Data)

	press(m, runes("d"))
	path := filepath.Join(m.dir, "markdown_2024-01-02.md")
	assert.Equal(t, "saved "+path, m.status)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Notes", string(b))
}

func TestDownloadWhileEditing(t *testing.T) {
	ctrlD := tea.KeyMsg{Type: tea.KeyCtrlD}
	m, _, _ := newTestModel(t, "")

	press(m, ctrlD)
	assert.Equal(t, session.ErrNothingToDownload.Error(), m.status)

	m.ta.SetValue("# Shared")
	press(m, ctrlS, runes("e"))
	m.ta.SetValue("# Shared, then edited")
	press(m, ctrlD)

	// The download is the shared document, not the unsaved draft.
	assert.Equal(t, session.Editing, m.sess.Mode())
	assert.Equal(t, "# Shared, then edited", m.ta.Value())
	b, err := os.ReadFile(filepath.Join(m.dir, "markdown_2024-01-02.md"))
	require.NoError(t, err)
	assert.Equal(t, "# Shared", string(b))
}

func TestBackNavigation(t *testing.T) {
	m, _, _ := newTestModel(t, "")
	m.ta.SetValue("first")
	press(m, ctrlS)
	press(m, runes("e"))
	m.ta.SetValue("second")
	press(m, ctrlS)
	assert.Equal(t, "second", m.sess.Document())

	press(m, runes("b"))
	assert.Equal(t, "first", m.sess.Document())
}

func TestHelpOverlay(t *testing.T) {
	enc, err := fragment.Encode("# Doc")
	require.NoError(t, err)
	m, _, _ := newTestModel(t, enc.Data)

	press(m, runes("?"))
	assert.True(t, m.showHelp)
	assert.Contains(t, m.View(), "Keys")

	// Keys are swallowed while help is open.
	press(m, runes("e"))
	assert.Equal(t, session.Viewing, m.sess.Mode())
	press(m, esc)
	assert.False(t, m.showHelp)
}

func TestQuitKeys(t *testing.T) {
	enc, err := fragment.Encode("# Doc")
	require.NoError(t, err)
	m, _, _ := newTestModel(t, enc.Data)

	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestResize(t *testing.T) {
	m, _, _ := newTestModel(t, "")
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	assert.Equal(t, 100, m.vp.Width)
	assert.Equal(t, 38, m.vp.Height)
}

func TestValidate(t *testing.T) {
	assert.Error(t, Options{}.Validate())
	_, err := Run(Options{})
	assert.Error(t, err)
}
