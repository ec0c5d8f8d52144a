package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const appName = "hashmark"

// ConfigOption is one documented setting.
type ConfigOption struct {
	Key     string
	Default any
	Comment string
}

// GetConfigOptions returns every setting with its default and meaning.
// Defaults, the generated config file and validation all read this list.
func GetConfigOptions() []ConfigOption {
	return []ConfigOption{
		{Key: "base_url", Default: "http://localhost:8080/", Comment: "URL that shared links point at; the payload is appended as #fragment"},
		{Key: "http_addr", Default: ":8080", Comment: "Listen address for `hashmark serve`"},

		{Key: "http.tls_domain", Default: "", Comment: "Obtain a certificate for this domain via ACME (certmagic); empty disables"},
		{Key: "http.tls_email", Default: "", Comment: "Contact email for the ACME account"},
		{Key: "http.cert_file", Default: "", Comment: "PEM certificate, used when tls_domain is empty"},
		{Key: "http.key_file", Default: "", Comment: "PEM private key matching cert_file"},
		{Key: "http.h3", Default: false, Comment: "Also serve HTTP/3 over QUIC (requires TLS)"},
		{Key: "http.max_body", Default: 2 << 20, Comment: "Maximum request body in bytes for the JSON API"},

		{Key: "render.style", Default: "auto", Comment: "Terminal style for view/tui: auto, dark, light, notty, dracula, ..."},
		{Key: "render.word_wrap", Default: 100, Comment: "Terminal word wrap column"},
		{Key: "render.highlight_style", Default: "github", Comment: "Chroma style for code highlighting in HTML output"},
		{Key: "render.cache_size", Default: 256, Comment: "Rendered pages kept in memory by the server"},

		{Key: "clipboard.enabled", Default: true, Comment: "Copy the link to the system clipboard after saving"},
	}
}

func applyDefaults(v *viper.Viper) {
	for _, o := range GetConfigOptions() {
		v.SetDefault(o.Key, o.Default)
	}
}

// Load resolves configuration with precedence: defaults < file < env.
func Load(ctx context.Context, v *viper.Viper) error {
	if v.ConfigFileUsed() == "" {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(filepath.Dir(DefaultConfigPath()))
		v.AddConfigPath(".")
	}

	applyDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	// HASHMARK_RENDER_STYLE and friends.
	v.SetEnvPrefix(appName)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if strings.TrimSpace(v.GetString("base_url")) == "" {
		v.Set("base_url", "http://localhost:8080/")
	}
	return nil
}

// DefaultConfigPath resolves the standard config.toml location.
func DefaultConfigPath() string {
	xdg := os.Getenv("XDG_CONFIG_HOME")
	if xdg == "" {
		home, _ := os.UserHomeDir()
		xdg = filepath.Join(home, ".config")
	}
	return filepath.Join(xdg, appName, "config.toml")
}
