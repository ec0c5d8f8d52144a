package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	chromastyles "github.com/alecthomas/chroma/v2/styles"
	glamourstyles "github.com/charmbracelet/glamour/styles"
	"github.com/spf13/viper"

	"github.com/mithrel/hashmark/internal/util"
)

// ValidationError lists every problem found in a configuration.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid config: " + strings.Join(e.Problems, "; ")
}

// TerminalStyles lists the accepted values of render.style.
func TerminalStyles() []string {
	names := []string{"auto"}
	for name := range glamourstyles.DefaultStyles {
		names = append(names, name)
	}
	sort.Strings(names[1:])
	return names
}

// HighlightStyles lists the accepted values of render.highlight_style.
func HighlightStyles() []string {
	return chromastyles.Names()
}

// CheckConfigValidity validates v and returns a *ValidationError holding
// all problems, or nil.
func CheckConfigValidity(v *viper.Viper) error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if base := strings.TrimSpace(v.GetString("base_url")); base == "" {
		add("base_url is required")
	} else if u, err := url.Parse(base); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		add("base_url must be an absolute http(s) url")
	} else if u.Fragment != "" || strings.Contains(base, "#") {
		add("base_url must not contain a fragment")
	}

	if strings.TrimSpace(v.GetString("http_addr")) == "" {
		add("http_addr is required")
	}
	cert, key := v.GetString("http.cert_file"), v.GetString("http.key_file")
	if (cert == "") != (key == "") {
		add("http.cert_file and http.key_file must be set together")
	}
	domain := strings.TrimSpace(v.GetString("http.tls_domain"))
	if v.GetBool("http.h3") && domain == "" && cert == "" {
		add("http.h3 requires TLS (set http.tls_domain or http.cert_file)")
	}
	if v.GetInt64("http.max_body") <= 0 {
		add("http.max_body must be greater than 0")
	}

	if v.GetInt("render.word_wrap") < 0 {
		add("render.word_wrap must not be negative")
	}
	if v.GetInt("render.cache_size") < 0 {
		add("render.cache_size must not be negative")
	}
	checkName(add, "render.style", v.GetString("render.style"), TerminalStyles())
	checkName(add, "render.highlight_style", v.GetString("render.highlight_style"), HighlightStyles())

	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: problems}
}

func checkName(add func(string, ...any), key, name string, known []string) {
	if util.Contains(known, name) {
		return
	}
	msg := fmt.Sprintf("%s %q is not a known style", key, name)
	if near := util.Suggest(name, known, 3); len(near) > 0 && name != "" {
		msg += " (did you mean " + strings.Join(near, ", ") + "?)"
	}
	add("%s", msg)
}
