// Package editor hands drafts to the user's $EDITOR.
package editor

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrNoEditor is returned when neither $VISUAL, $EDITOR nor a fallback is available.
var ErrNoEditor = errors.New("no editor found; set $EDITOR or $VISUAL")

// PreferredEditor finds a suitable editor from env or common defaults.
func PreferredEditor() (string, error) {
	if v := os.Getenv("VISUAL"); v != "" {
		return v, nil
	}
	if e := os.Getenv("EDITOR"); e != "" {
		return e, nil
	}
	for _, cand := range []string{"nvim", "vim", "vi", "nano"} {
		if p, err := exec.LookPath(cand); err == nil {
			return p, nil
		}
	}
	return "", ErrNoEditor
}

// PathForDraft returns a private temp path for a draft called name. The
// path is unique per call so concurrent editors never share a file.
func PathForDraft(name string) (string, error) {
	var suffix [4]byte
	if _, err := rand.Read(suffix[:]); err != nil {
		return "", err
	}
	file := fmt.Sprintf("%s-%d-%s.hashmark.md", sanitizeName(name), os.Getpid(), hex.EncodeToString(suffix[:]))
	if xdg := os.Getenv("XDG_RUNTIME_DIR"); xdg != "" {
		return filepath.Join(xdg, "hashmark", file), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", "hashmark", "edit", file), nil
}

func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "draft"
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}

func writeFile0600(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, data, fs.FileMode(0o600))
}

// Command builds the editor invocation for path without starting it.
func Command(path string) (*exec.Cmd, error) {
	// VISUAL/EDITOR may carry flags, so run it through the shell.
	ed := os.Getenv("VISUAL")
	if ed == "" {
		ed = os.Getenv("EDITOR")
	}
	if strings.TrimSpace(ed) != "" {
		cmd := exec.Command("sh", "-c", "$EDITORCMD \"$FILEPATH\"")
		cmd.Env = append(os.Environ(), "EDITORCMD="+ed, "FILEPATH="+path)
		return cmd, nil
	}
	prog, err := PreferredEditor()
	if err != nil {
		return nil, err
	}
	return exec.Command(prog, path), nil
}

// PrepareAt writes initial content to path with private permissions.
func PrepareAt(path string, initial []byte) error {
	return writeFile0600(path, initial)
}

// Editor runs an external editor attached to the given streams.
type Editor struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Terminal is an Editor on the process's own stdio.
func Terminal() Editor {
	return Editor{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// OpenAt writes initial to path, opens the editor on it and returns the
// saved bytes and whether they differ from initial. The file is removed
// afterwards.
func (e Editor) OpenAt(path string, initial []byte) (final []byte, changed bool, err error) {
	if err := writeFile0600(path, initial); err != nil {
		return nil, false, err
	}
	defer os.Remove(path)

	cmd, err := Command(path)
	if err != nil {
		return nil, false, err
	}
	cmd.Stdin, cmd.Stdout, cmd.Stderr = e.Stdin, e.Stdout, e.Stderr
	if err := cmd.Run(); err != nil {
		return nil, false, err
	}
	out, err := os.ReadFile(path)
	if err != nil {
		return nil, false, err
	}
	return out, !bytes.Equal(out, initial), nil
}

// CleanDraft normalises line endings and drops the trailing newlines
// editors append on save.
func CleanDraft(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.TrimRight(s, "\n")
}

// Title returns the first non-blank line of doc without heading markers,
// squashed and truncated to 120 bytes.
func Title(doc string) string {
	for _, line := range strings.Split(doc, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "#"))
		if line == "" {
			continue
		}
		line = strings.Join(strings.Fields(line), " ")
		if len(line) > 120 {
			line = line[:120]
		}
		return line
	}
	return ""
}
