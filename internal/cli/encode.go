package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mithrel/hashmark/internal/render"
	"github.com/mithrel/hashmark/internal/session"
	"github.com/mithrel/hashmark/pkg/fragment"
)

// ErrNoDocument is returned when a payload does not decode to anything.
var ErrNoDocument = errors.New("no valid document in fragment")

// readInput reads the named file, or stdin for "" and "-".
func readInput(cmd *cobra.Command, name string) (string, error) {
	var r io.Reader = cmd.InOrStdin()
	if name != "" && name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return "", err
		}
		defer f.Close()
		r = f
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(b), nil
}

func newEncodeCmd() *cobra.Command {
	var fromHTML, withBase, copyLink, showMethod bool
	cmd := &cobra.Command{
		Use:   "encode [file]",
		Short: "Encode a markdown document into a link fragment",
		Long:  "Reads markdown from file (or stdin when omitted or \"-\") and prints the fragment payload.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := getApp(cmd)
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			text, err := readInput(cmd, name)
			if err != nil {
				return err
			}
			if fromHTML {
				if text, err = render.HTMLToMarkdown(text); err != nil {
					return err
				}
			}
			enc, err := fragment.EncodeRoundTrip(text, app.Decoder)
			if err != nil {
				return err
			}
			if max := app.Decoder.Limits.MaxPayload; len(enc.Data) > max {
				return fmt.Errorf("%w: %d characters (limit %d)", session.ErrLinkTooLong, len(enc.Data), max)
			}

			out := enc.Data
			if withBase || copyLink {
				link := session.Link(app.Cfg.GetString("base_url"), enc.Data)
				if withBase {
					out = link
				}
				if copyLink {
					if app.Clipboard == nil {
						return errors.New("clipboard is disabled (clipboard.enabled = false)")
					}
					if err := app.Clipboard.WriteAll(link); err != nil {
						return fmt.Errorf("%w: %v", session.ErrClipboardWriteFailed, err)
					}
				}
			}
			if showMethod {
				fmt.Fprintf(cmd.ErrOrStderr(), "method: %s\n", enc.Method)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&fromHTML, "from-html", false, "treat input as HTML and convert it to markdown first")
	cmd.Flags().BoolVar(&withBase, "base", false, "print the full link (base_url + #payload)")
	cmd.Flags().BoolVar(&copyLink, "copy", false, "copy the full link to the clipboard")
	cmd.Flags().BoolVar(&showMethod, "method", false, "print the chosen encoding to stderr")
	return cmd
}

// decodeArg resolves a payload or link argument to its document.
func decodeArg(cmd *cobra.Command, arg string) (string, fragment.Method, error) {
	app := getApp(cmd)
	text, method := app.Decoder.Classify(session.PayloadFrom(strings.TrimSpace(arg)))
	if text == "" {
		return "", fragment.MethodNone, ErrNoDocument
	}
	return text, method, nil
}

func newDecodeCmd() *cobra.Command {
	var verbose bool
	var output string
	cmd := &cobra.Command{
		Use:   "decode <payload|url>",
		Short: "Print the markdown carried by a link or payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, method, err := decodeArg(cmd, args[0])
			if err != nil {
				return err
			}
			if verbose {
				fmt.Fprintf(cmd.ErrOrStderr(), "method: %s\n", method)
			}
			return writeDecoded(cmd.OutOrStdout(), output, text, method)
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print the decoding method to stderr")
	cmd.Flags().StringVarP(&output, "output", "o", "plain", "output format (plain|json)")
	_ = cmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"plain", "json"}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}
