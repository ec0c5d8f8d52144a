package wire

import (
	"context"
	"io"
	"log"
	"os"

	"github.com/spf13/viper"

	"github.com/mithrel/hashmark/internal/render"
	"github.com/mithrel/hashmark/internal/session"
	"github.com/mithrel/hashmark/pkg/fragment"
)

// App aggregates the major services for easy injection.
type App struct {
	Cfg       *viper.Viper
	Log       *log.Logger
	Decoder   *fragment.Decoder
	Render    *render.Pipeline
	Clipboard session.Clipboard
}

// BuildApp wires dependencies with the provided config. Logs go to
// logOut (stderr when nil) so command output stays pipeable.
func BuildApp(ctx context.Context, cfg *viper.Viper, logOut io.Writer) (*App, error) {
	if logOut == nil {
		logOut = os.Stderr
	}
	logger := log.New(logOut, "hashmark ", log.LstdFlags)

	var clip session.Clipboard
	if cfg.GetBool("clipboard.enabled") {
		clip = session.SystemClipboard{}
	}
	return &App{
		Cfg:     cfg,
		Log:     logger,
		Decoder: fragment.NewDecoder(logger),
		Render: render.New(render.Options{
			HighlightStyle: cfg.GetString("render.highlight_style"),
			Diagrams:       render.ClientDiagrams{},
			Log:            logger,
		}),
		Clipboard: clip,
	}, nil
}

// Session starts an editor session over hist using the app's settings.
func (a *App) Session(hist session.History) *session.Session {
	return session.New(session.Options{
		BaseURL:   a.Cfg.GetString("base_url"),
		Decoder:   a.Decoder,
		History:   hist,
		Clipboard: a.Clipboard,
	})
}
