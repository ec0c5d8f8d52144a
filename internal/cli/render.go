package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mithrel/hashmark/internal/config"
	"github.com/mithrel/hashmark/internal/render"
	"github.com/mithrel/hashmark/internal/session"
	"github.com/mithrel/hashmark/internal/util"
)

func newRenderCmd() *cobra.Command {
	var css, clientDiagrams bool
	cmd := &cobra.Command{
		Use:   "render <payload|url>",
		Short: "Render the document in a link to sanitized HTML",
		Long: "Prints the sanitized HTML of the document. Diagrams are shown as source\n" +
			"code blocks unless --mermaid keeps the containers for a page that loads mermaid.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := getApp(cmd)
			text, _, err := decodeArg(cmd, args[0])
			if err != nil {
				return err
			}
			pipe := app.Render
			if !clientDiagrams {
				pipe = render.New(render.Options{
					HighlightStyle: app.Cfg.GetString("render.highlight_style"),
					Diagrams:       render.PreformattedDiagrams{},
					Log:            app.Log,
				})
			}
			page, err := pipe.Render(text)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if css {
				fmt.Fprintln(out, "<style>")
				if err := pipe.WriteHighlightCSS(out); err != nil {
					return err
				}
				fmt.Fprintln(out, "</style>")
			}
			_, err = io.WriteString(out, page.HTML)
			return err
		},
	}
	cmd.Flags().BoolVar(&css, "css", false, "prepend the syntax highlighting stylesheet")
	cmd.Flags().BoolVar(&clientDiagrams, "mermaid", false, "keep diagram containers for client-side mermaid")
	return cmd
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func newViewCmd() *cobra.Command {
	var style string
	var width int
	cmd := &cobra.Command{
		Use:   "view <payload|url>",
		Short: "Show the document in a link in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := getApp(cmd)
			text, _, err := decodeArg(cmd, args[0])
			if err != nil {
				return err
			}
			if style == "" {
				style = app.Cfg.GetString("render.style")
			}
			out := cmd.OutOrStdout()
			if (style == "" || style == "auto") && !isTerminal(out) {
				style = "notty"
			}
			if width <= 0 {
				width = app.Cfg.GetInt("render.word_wrap")
				if f, ok := out.(*os.File); ok && isTerminal(out) {
					if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 && (width == 0 || w < width) {
						width = w
					}
				}
			}
			return render.WriteTerminal(out, text, style, width)
		},
	}
	cmd.Flags().StringVar(&style, "style", "", "glamour style (overrides render.style)")
	cmd.Flags().IntVar(&width, "width", 0, "word wrap width (overrides render.word_wrap)")
	_ = cmd.RegisterFlagCompletionFunc("style", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return completeStyle(toComplete), cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func completeStyle(toComplete string) []string {
	styles := config.TerminalStyles()
	if toComplete == "" {
		return styles
	}
	return util.Suggest(toComplete, styles, len(styles))
}

func newDownloadCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "download <payload|url>",
		Short: "Save the document in a link as markdown_<date>.md",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, _, err := decodeArg(cmd, args[0])
			if err != nil {
				return err
			}
			f := session.NewFile(text, time.Now())
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			path := filepath.Join(dir, f.Name)
			if err := os.WriteFile(path, f.Body, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "output", "o", ".", "directory to write into")
	return cmd
}
