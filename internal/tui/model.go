// Package tui is a terminal front end for the editor: a textarea while
// editing and a glamour-rendered viewport while viewing.
package tui

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mithrel/hashmark/internal/editor"
	"github.com/mithrel/hashmark/internal/render"
	"github.com/mithrel/hashmark/internal/session"
)

// Options configure the model.
type Options struct {
	Session *session.Session
	// Back steps the history back; nil disables the key.
	Back     func() bool
	Terminal *render.Terminal
	// DownloadDir receives downloaded files; "" means the working directory.
	DownloadDir string
	Now         func() time.Time
}

type model struct {
	sess     *session.Session
	back     func() bool
	term     *render.Terminal
	dir      string
	now      func() time.Time
	ta       textarea.Model
	vp       viewport.Model
	width    int
	height   int
	status   string
	showHelp bool
	// last link produced by a save, printed after exit
	link string
}

// newModel navigates the session immediately.
func newModel(opts Options) *model {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	ta := textarea.New()
	ta.Placeholder = "Write markdown. ctrl+s shares it, ctrl+o opens $EDITOR."
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	m := &model{
		sess:   opts.Session,
		back:   opts.Back,
		term:   opts.Terminal,
		dir:    opts.DownloadDir,
		now:    now,
		ta:     ta,
		vp:     viewport.New(80, 20),
		width:  80,
		height: 24,
	}
	m.navigate()
	m.resize()
	return m
}

func (m *model) Init() tea.Cmd {
	if m.sess.Mode() == session.Editing {
		return textarea.Blink
	}
	return nil
}

// navigate re-reads the fragment and syncs the widgets with the result.
func (m *model) navigate() {
	if m.sess.Navigate() == session.Viewing {
		m.ta.Blur()
		m.showDocument(m.sess.Document())
		return
	}
	m.ta.SetValue(m.sess.Draft())
	m.ta.Focus()
}

func (m *model) showDocument(doc string) {
	out := doc
	if m.term != nil {
		if r, err := m.term.Render(doc); err == nil {
			out = r
		} else {
			m.status = err.Error()
		}
	}
	m.vp.SetContent(out)
	m.vp.GotoTop()
}

type editorDoneMsg struct {
	path string
	err  error
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil
	case editorDoneMsg:
		return m, m.finishExternalEdit(msg)
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}
	return m, m.forward(msg)
}

func (m *model) handleKey(msg tea.KeyMsg) tea.Cmd {
	key := msg.String()
	if key == "ctrl+c" {
		return tea.Quit
	}
	if m.showHelp {
		if key == "?" || key == "esc" || key == "q" {
			m.showHelp = false
		}
		return nil
	}

	if m.sess.Mode() == session.Editing {
		switch key {
		case "ctrl+s":
			m.save()
			return nil
		case "ctrl+o":
			return m.openExternalEditor()
		case "ctrl+d":
			m.download()
			return nil
		case "esc":
			// Leave the editor without saving when there is a document to go back to.
			if m.sess.History().Fragment() != "" {
				m.navigate()
			}
			return nil
		}
		return m.forward(msg)
	}

	switch key {
	case "q":
		return tea.Quit
	case "?":
		m.showHelp = true
	case "e":
		m.ta.SetValue(m.sess.Edit())
		m.ta.Focus()
		m.status = ""
		return textarea.Blink
	case "d", "ctrl+d":
		m.download()
	case "b":
		if m.back != nil && m.back() {
			m.navigate()
			m.status = ""
		}
	default:
		return m.forward(msg)
	}
	return nil
}

func (m *model) forward(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	if m.sess.Mode() == session.Editing {
		m.ta, cmd = m.ta.Update(msg)
	} else {
		m.vp, cmd = m.vp.Update(msg)
	}
	return cmd
}

func (m *model) save() {
	res, err := m.sess.Save(m.ta.Value())
	if err != nil {
		m.status = err.Error()
		return
	}
	m.link = res.Link
	m.ta.Blur()
	m.showDocument(m.sess.Document())
	switch {
	case res.Copied:
		m.status = "link copied"
	case res.Notice != nil:
		m.status = res.Notice.Error()
	default:
		m.status = "saved"
	}
}

func (m *model) download() {
	f, err := m.sess.Download(m.now())
	if err != nil {
		m.status = err.Error()
		return
	}
	path := filepath.Join(m.dir, f.Name)
	if err := os.WriteFile(path, f.Body, 0o644); err != nil {
		m.status = "download failed: " + err.Error()
		return
	}
	m.status = "saved " + path
}

func (m *model) openExternalEditor() tea.Cmd {
	path, err := editor.PathForDraft("tui")
	if err != nil {
		m.status = err.Error()
		return nil
	}
	if err := editor.PrepareAt(path, []byte(m.ta.Value())); err != nil {
		m.status = err.Error()
		return nil
	}
	cmd, err := editor.Command(path)
	if err != nil {
		m.status = err.Error()
		return nil
	}
	return tea.ExecProcess(cmd, func(err error) tea.Msg { return editorDoneMsg{path: path, err: err} })
}

func (m *model) finishExternalEdit(msg editorDoneMsg) tea.Cmd {
	defer os.Remove(msg.path)
	if msg.err != nil {
		m.status = "editor: " + msg.err.Error()
		return nil
	}
	b, err := os.ReadFile(msg.path)
	if err != nil {
		m.status = err.Error()
		return nil
	}
	m.ta.SetValue(editor.CleanDraft(string(b)))
	return nil
}

func (m *model) resize() {
	bodyH := m.height - 2
	if bodyH < 3 {
		bodyH = 3
	}
	m.ta.SetWidth(m.width)
	m.ta.SetHeight(bodyH)
	m.vp.Width = m.width
	m.vp.Height = bodyH
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	buttonStyle = lipgloss.NewStyle().Padding(0, 1).Background(lipgloss.Color("236"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func (m *model) header() string {
	l := m.sess.Layout()
	parts := []string{headerStyle.Render("hashmark")}
	if t := editor.Title(m.sess.Document()); t != "" && l.ViewerVisible {
		parts = append(parts, t)
	}
	if l.EditButton {
		parts = append(parts, buttonStyle.Render("e Edit"))
	}
	if l.DoneButton {
		parts = append(parts, buttonStyle.Render("ctrl+s Done"))
	}
	parts = append(parts, buttonStyle.Render("d Download"), statusStyle.Render("? keys"))
	return strings.Join(parts, " ")
}

func (m *model) View() string {
	body := m.vp.View()
	if m.sess.Layout().EditorVisible {
		body = m.ta.View()
	}
	view := m.header() + "\n" + body + "\n" + statusStyle.Render(m.status)
	if m.showHelp {
		return m.renderOverlay(view, helpBox(), helpWidth, helpHeight)
	}
	return view
}

// Link reports the last link a model produced, for printing after exit.
func Link(final tea.Model) string {
	if m, ok := final.(*model); ok {
		return m.link
	}
	return ""
}

// Run starts the program on the terminal and returns the last saved link.
func Run(opts Options) (string, error) {
	if err := opts.Validate(); err != nil {
		return "", err
	}
	p := tea.NewProgram(newModel(opts), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return "", err
	}
	return Link(final), nil
}

var errNoSession = errors.New("tui: session is required")

// Validate checks opts before a program is started.
func (o Options) Validate() error {
	if o.Session == nil {
		return errNoSession
	}
	return nil
}
