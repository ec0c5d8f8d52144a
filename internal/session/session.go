// Package session models the editor as a two-state machine whose only
// persistent state is the URL fragment.
package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mithrel/hashmark/pkg/fragment"
)

// Mode is the active panel.
type Mode int

const (
	Editing Mode = iota
	Viewing
)

func (m Mode) String() string {
	if m == Viewing {
		return "viewing"
	}
	return "editing"
}

// Layout is the visibility of the two panels and two buttons.
type Layout struct {
	EditorVisible bool `json:"editor_visible"`
	ViewerVisible bool `json:"viewer_visible"`
	EditButton    bool `json:"edit_button"`
	DoneButton    bool `json:"done_button"`
}

var (
	// ErrEmptyDocument is returned by Save for a blank draft.
	ErrEmptyDocument = errors.New("enter some markdown first")
	// ErrLinkTooLong is returned by Save when the payload could never be reopened.
	ErrLinkTooLong = errors.New("document too long to fit in a link")
	// ErrNothingToDownload is returned by Download when no document decodes.
	ErrNothingToDownload = errors.New("no markdown to download")
	// ErrClipboardWriteFailed marks a save whose link could not be copied.
	ErrClipboardWriteFailed = errors.New("copying the link failed; copy the URL manually")
)

// History is the address bar: the current fragment plus navigation.
type History interface {
	Fragment() string
	// Push sets the fragment and adds a history entry.
	Push(fragment string)
	// Replace sets the fragment in place, without a new entry.
	Replace(fragment string)
}

// Clipboard receives shared links.
type Clipboard interface {
	WriteAll(text string) error
}

// Options configure a Session.
type Options struct {
	BaseURL   string
	Decoder   *fragment.Decoder
	History   History
	Clipboard Clipboard // nil disables copying
}

// Session holds the editor state. It is not safe for concurrent use.
type Session struct {
	base  string
	dec   *fragment.Decoder
	hist  History
	clip  Clipboard
	mode  Mode
	draft string
	doc   string
}

func New(opts Options) *Session {
	dec := opts.Decoder
	if dec == nil {
		dec = fragment.NewDecoder(nil)
	}
	hist := opts.History
	if hist == nil {
		hist = &MemHistory{}
	}
	return &Session{base: opts.BaseURL, dec: dec, hist: hist, clip: opts.Clipboard}
}

func (s *Session) Mode() Mode       { return s.mode }
func (s *Session) Document() string { return s.doc }
func (s *Session) Draft() string    { return s.draft }
func (s *Session) History() History { return s.hist }

// Link is the shareable URL for the current fragment.
func (s *Session) Link() string { return Link(s.base, s.hist.Fragment()) }

// LayoutFor derives panel and button visibility from a mode. Exactly one
// panel and one button are visible.
func LayoutFor(m Mode) Layout {
	if m == Viewing {
		return Layout{ViewerVisible: true, EditButton: true}
	}
	return Layout{EditorVisible: true, DoneButton: true}
}

func (s *Session) Layout() Layout { return LayoutFor(s.mode) }

// Navigate re-reads the fragment. An empty fragment opens the editor; an
// undecodable one is cleared in place and opens the editor; otherwise the
// decoded document is shown.
func (s *Session) Navigate() Mode {
	payload := s.hist.Fragment()
	if payload == "" {
		s.toEditing("")
		return s.mode
	}
	doc := s.dec.Decode(payload)
	if doc == "" {
		s.hist.Replace("")
		s.toEditing("")
		return s.mode
	}
	s.mode = Viewing
	s.doc = doc
	s.draft = ""
	return s.mode
}

// Edit switches to the editor, prefilled with the document in the fragment.
func (s *Session) Edit() string {
	s.toEditing(s.dec.Decode(s.hist.Fragment()))
	return s.draft
}

func (s *Session) toEditing(draft string) {
	s.mode = Editing
	s.draft = draft
	s.doc = ""
}

// SaveResult describes a completed save.
type SaveResult struct {
	Link   string
	Method fragment.Method
	Copied bool
	// Notice is non-nil when the save succeeded but copying did not.
	Notice error
}

// Save encodes draft into the fragment, copies the resulting link and
// shows the document. On error the fragment is left as it was.
func (s *Session) Save(draft string) (SaveResult, error) {
	s.draft = draft
	if strings.TrimSpace(draft) == "" {
		return SaveResult{}, ErrEmptyDocument
	}
	enc, err := fragment.EncodeRoundTrip(draft, s.dec)
	if err != nil {
		return SaveResult{}, err
	}
	if max := s.dec.Limits.MaxPayload; len(enc.Data) > max {
		return SaveResult{}, fmt.Errorf("%w: %d characters (limit %d)", ErrLinkTooLong, len(enc.Data), max)
	}
	s.hist.Push(enc.Data)
	s.Navigate()

	res := SaveResult{Link: Link(s.base, enc.Data), Method: enc.Method}
	if s.clip != nil {
		if err := s.clip.WriteAll(res.Link); err != nil {
			res.Notice = fmt.Errorf("%w: %v", ErrClipboardWriteFailed, err)
		} else {
			res.Copied = true
		}
	}
	return res, nil
}

// File is a document prepared for download.
type File struct {
	Name string
	MIME string
	Body []byte
}

// Download exports the document currently in the fragment.
func (s *Session) Download(now time.Time) (File, error) {
	doc := s.dec.Decode(s.hist.Fragment())
	if doc == "" {
		return File{}, ErrNothingToDownload
	}
	return NewFile(doc, now), nil
}

// NewFile names doc markdown_<YYYY-MM-DD>.md using the UTC date of now.
func NewFile(doc string, now time.Time) File {
	return File{
		Name: "markdown_" + now.UTC().Format("2006-01-02") + ".md",
		MIME: "text/markdown",
		Body: []byte(doc),
	}
}

// Link joins a base URL and a payload. Any fragment already on base is replaced.
func Link(base, payload string) string {
	if i := strings.IndexByte(base, '#'); i >= 0 {
		base = base[:i]
	}
	if payload == "" {
		return base
	}
	return base + "#" + payload
}

// PayloadFrom extracts the payload from a full link, a bare "#payload" or
// a raw payload.
func PayloadFrom(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '#'); i >= 0 {
		return s[i+1:]
	}
	if strings.Contains(s, "://") {
		return ""
	}
	return s
}
