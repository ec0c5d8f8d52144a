package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// isolate points config lookup at an empty directory and writes a config
// with the clipboard turned off.
func isolate(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_RUNTIME_DIR", filepath.Join(dir, "run"))
	cfg := filepath.Join(dir, "config.toml")
	content := `base_url = "https://md.example/"

[clipboard]
enabled = false
` + extra
	if err := os.WriteFile(cfg, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfg
}

func run(t *testing.T, cfg, stdin string, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", cfg}, args...))
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func mustRun(t *testing.T, cfg, stdin string, args ...string) string {
	t.Helper()
	out, errOut, err := run(t, cfg, stdin, args...)
	if err != nil {
		t.Fatalf("%v: %v\n%s", args, err, errOut)
	}
	return out
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cfg := isolate(t, "")
	doc := "# Hello\n\nSome *markdown* with `code`."

	payload := strings.TrimSpace(mustRun(t, cfg, doc, "encode"))
	if payload == "" {
		t.Fatalf("empty payload")
	}
	got := mustRun(t, cfg, "", "decode", payload)
	if got != doc+"\n" {
		t.Fatalf("decode mismatch: %q", got)
	}

	link := strings.TrimSpace(mustRun(t, cfg, doc, "encode", "--base", "-"))
	if link != "https://md.example/#"+payload {
		t.Fatalf("unexpected link %q", link)
	}
	_, errOut, err := run(t, cfg, "", "decode", "--verbose", link)
	if err != nil {
		t.Fatalf("decode link: %v", err)
	}
	if !strings.Contains(errOut, "method: ") {
		t.Fatalf("verbose output missing method: %q", errOut)
	}

	var asJSON struct {
		Text   string `json:"text"`
		Method string `json:"method"`
		Title  string `json:"title"`
		Valid  bool   `json:"valid"`
	}
	if err := json.Unmarshal([]byte(mustRun(t, cfg, "", "decode", "-o", "json", payload)), &asJSON); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if asJSON.Text != doc || asJSON.Title != "Hello" || !asJSON.Valid || asJSON.Method == "none" {
		t.Fatalf("unexpected json: %+v", asJSON)
	}
}

func TestEncodeFromFileAndHTML(t *testing.T) {
	cfg := isolate(t, "")
	file := filepath.Join(t.TempDir(), "page.html")
	if err := os.WriteFile(file, []byte("<h1>Hi</h1><p>there</p>"), 0o600); err != nil {
		t.Fatal(err)
	}
	payload := strings.TrimSpace(mustRun(t, cfg, "", "encode", "--from-html", file))
	got := mustRun(t, cfg, "", "decode", payload)
	if got != "# Hi\n\nthere\n" {
		t.Fatalf("unexpected markdown %q", got)
	}
}

func TestEncodeCopyWithClipboardDisabled(t *testing.T) {
	cfg := isolate(t, "")
	if _, _, err := run(t, cfg, "# x", "encode", "--copy"); err == nil {
		t.Fatalf("expected error with clipboard disabled")
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	cfg := isolate(t, "")
	for _, arg := range []string{"!!!", "%ZZ", "https://md.example/"} {
		_, _, err := run(t, cfg, "", "decode", arg)
		if !errors.Is(err, ErrNoDocument) {
			t.Fatalf("decode %q: got %v, want ErrNoDocument", arg, err)
		}
	}
}

func TestRenderAndView(t *testing.T) {
	cfg := isolate(t, "")
	payload := strings.TrimSpace(mustRun(t, cfg, "# Title\n\n<script>x()</script>\n\n```go\nfunc f() {}\n```", "encode"))

	html := mustRun(t, cfg, "", "render", payload)
	if !strings.Contains(html, "<h1>Title</h1>") || strings.Contains(html, "<script") {
		t.Fatalf("unexpected html: %s", html)
	}
	withCSS := mustRun(t, cfg, "", "render", "--css", payload)
	if !strings.HasPrefix(withCSS, "<style>") {
		t.Fatalf("css not prepended: %.40s", withCSS)
	}

	diagram := strings.TrimSpace(mustRun(t, cfg, "```mermaid\ngraph TD\nA-->B\n```", "encode"))
	asSource := mustRun(t, cfg, "", "render", diagram)
	if !strings.Contains(asSource, `<div class="mermaid"><pre><code class="language-mermaid">graph TD`) {
		t.Fatalf("diagram not shown as source: %s", asSource)
	}
	forClient := mustRun(t, cfg, "", "render", "--mermaid", diagram)
	if !strings.Contains(forClient, `<div class="mermaid">graph TD`) || strings.Contains(forClient, "<pre>") {
		t.Fatalf("diagram container not left for mermaid: %s", forClient)
	}

	view := mustRun(t, cfg, "", "view", "--style", "notty", payload)
	if !strings.Contains(view, "Title") {
		t.Fatalf("view missing title: %q", view)
	}
}

func TestDownload(t *testing.T) {
	cfg := isolate(t, "")
	payload := strings.TrimSpace(mustRun(t, cfg, "# Notes", "encode"))
	dir := t.TempDir()
	out := mustRun(t, cfg, "", "download", "-o", dir, payload)

	matches, _ := filepath.Glob(filepath.Join(dir, "markdown_*.md"))
	if len(matches) != 1 {
		t.Fatalf("expected one file, got %v", matches)
	}
	if !strings.Contains(out, matches[0]) {
		t.Fatalf("output %q does not name %s", out, matches[0])
	}
	b, _ := os.ReadFile(matches[0])
	if string(b) != "# Notes" {
		t.Fatalf("unexpected body %q", b)
	}
}

func TestEditSavesNewLink(t *testing.T) {
	cfg := isolate(t, "")
	t.Setenv("VISUAL", "")
	t.Setenv("EDITOR", "sed -i s/old/new/")

	payload := strings.TrimSpace(mustRun(t, cfg, "old text", "encode"))
	link := strings.TrimSpace(mustRun(t, cfg, "", "edit", payload))
	if !strings.HasPrefix(link, "https://md.example/#") {
		t.Fatalf("unexpected link %q", link)
	}
	if got := mustRun(t, cfg, "", "decode", link); got != "new text\n" {
		t.Fatalf("edited document %q", got)
	}

	// An editor that changes nothing keeps the original link.
	t.Setenv("EDITOR", "true")
	same := strings.TrimSpace(mustRun(t, cfg, "", "edit", payload))
	if same != "https://md.example/#"+payload {
		t.Fatalf("unchanged edit returned %q", same)
	}

	// Saving an empty draft is refused.
	if _, _, err := run(t, cfg, "", "edit"); err == nil {
		t.Fatalf("expected empty document error")
	}
}

func TestConfigGenerateAndCheck(t *testing.T) {
	isolate(t, "")
	out := filepath.Join(t.TempDir(), "hashmark.toml")

	msg := mustRun(t, out, "", "config", "generate", "-o", out)
	if !strings.Contains(msg, "Wrote "+out) {
		t.Fatalf("unexpected output %q", msg)
	}
	if _, _, err := run(t, out, "", "config", "generate", "-o", out); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}
	msg = mustRun(t, out, "", "config", "generate", "-o", out, "--update")
	if !strings.Contains(msg, "already up to date") {
		t.Fatalf("unexpected update output %q", msg)
	}
	if ok := mustRun(t, out, "", "config", "check"); !strings.Contains(ok, "Config OK") {
		t.Fatalf("unexpected check output %q", ok)
	}
}

func TestConfigCheckReportsProblems(t *testing.T) {
	cfg := isolate(t, "\n[render]\nstyle = \"drk\"\n")
	_, _, err := run(t, cfg, "", "config", "check")
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !strings.Contains(err.Error(), "did you mean") || !strings.Contains(err.Error(), "dark") {
		t.Fatalf("missing suggestion: %v", err)
	}
}

func TestCompletion(t *testing.T) {
	cfg := isolate(t, "")
	out := mustRun(t, cfg, "", "completion", "generate", "bash")
	if !strings.Contains(out, "hashmark") {
		t.Fatalf("bash completion does not mention hashmark")
	}
	if got := completeStyle("drac"); len(got) == 0 || got[0] != "dracula" {
		t.Fatalf("style completion: %v", got)
	}
}
