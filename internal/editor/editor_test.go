package editor

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTitle(t *testing.T) {
	cases := map[string]string{
		"# Hello\n\nbody":          "Hello",
		"\n\n  ##   Spaced   out  ": "Spaced out",
		"plain first line\nnext":   "plain first line",
		"":                         "",
		"#\n#\n":                   "",
	}
	for in, want := range cases {
		if got := Title(in); got != want {
			t.Fatalf("Title(%q)=%q want %q", in, got, want)
		}
	}
	long := "# " + strings.Repeat("y", 130)
	if got := Title(long); len(got) != 120 {
		t.Fatalf("Title length=%d want 120", len(got))
	}
}

func TestCleanDraft(t *testing.T) {
	if got := CleanDraft("a\r\nb\n\n"); got != "a\nb" {
		t.Fatalf("CleanDraft=%q", got)
	}
}

func TestPathForDraft(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", dir)
	path, err := PathForDraft("my notes/v2")
	if err != nil {
		t.Fatalf("PathForDraft error: %v", err)
	}
	if got := filepath.Dir(path); got != filepath.Join(dir, "hashmark") {
		t.Fatalf("PathForDraft dir=%q", got)
	}
	prefix := fmt.Sprintf("my-notes-v2-%d-", os.Getpid())
	if base := filepath.Base(path); !strings.HasPrefix(base, prefix) || !strings.HasSuffix(base, ".hashmark.md") {
		t.Fatalf("PathForDraft=%q want %s<random>.hashmark.md", base, prefix)
	}
	path, _ = PathForDraft("  ")
	if !strings.HasPrefix(filepath.Base(path), "draft-") {
		t.Fatalf("blank name gave %q", path)
	}
}

func TestPathForDraftIsUniquePerCall(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		path, err := PathForDraft("edit")
		if err != nil {
			t.Fatalf("PathForDraft error: %v", err)
		}
		if seen[path] {
			t.Fatalf("PathForDraft repeated %q", path)
		}
		seen[path] = true
	}
}

func TestOpenAt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "doc.md")
	var stderr bytes.Buffer
	ed := Editor{Stdout: &stderr, Stderr: &stderr}

	t.Run("changed", func(t *testing.T) {
		t.Setenv("VISUAL", "")
		t.Setenv("EDITOR", "sed -i s/old/new/")
		out, changed, err := ed.OpenAt(path, []byte("old text\n"))
		if err != nil {
			t.Fatalf("OpenAt error: %v (%s)", err, stderr.String())
		}
		if !changed || string(out) != "new text\n" {
			t.Fatalf("OpenAt=%q changed=%v", out, changed)
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("draft file left behind: %v", err)
		}
	})

	t.Run("unchanged", func(t *testing.T) {
		t.Setenv("VISUAL", "true")
		out, changed, err := ed.OpenAt(path, []byte("same"))
		if err != nil {
			t.Fatalf("OpenAt error: %v", err)
		}
		if changed || string(out) != "same" {
			t.Fatalf("OpenAt=%q changed=%v", out, changed)
		}
	})

	t.Run("editor failure", func(t *testing.T) {
		t.Setenv("VISUAL", "false")
		if _, _, err := ed.OpenAt(path, []byte("x")); err == nil {
			t.Fatal("expected error from failing editor")
		}
	})
}
