package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mithrel/hashmark/internal/editor"
	"github.com/mithrel/hashmark/internal/render"
	"github.com/mithrel/hashmark/internal/session"
	"github.com/mithrel/hashmark/internal/tui"
)

func newEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit [payload|url]",
		Short: "Edit a document in $EDITOR and print its new link",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := getApp(cmd)
			start := ""
			if len(args) == 1 {
				start = session.PayloadFrom(strings.TrimSpace(args[0]))
			}
			sess := app.Session(session.NewMemHistory(start))
			sess.Navigate()
			draft := sess.Edit()

			path, err := editor.PathForDraft("edit")
			if err != nil {
				return err
			}
			ed := editor.Editor{Stdin: cmd.InOrStdin(), Stdout: cmd.OutOrStdout(), Stderr: cmd.ErrOrStderr()}
			final, changed, err := ed.OpenAt(path, []byte(draft))
			if err != nil {
				return fmt.Errorf("editor: %w", err)
			}
			if !changed && draft != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), "no changes")
				fmt.Fprintln(cmd.OutOrStdout(), session.Link(app.Cfg.GetString("base_url"), start))
				return nil
			}

			res, err := sess.Save(editor.CleanDraft(string(final)))
			if err != nil {
				return err
			}
			if res.Notice != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), res.Notice)
			} else if res.Copied {
				fmt.Fprintln(cmd.ErrOrStderr(), "link copied")
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Link)
			return nil
		},
	}
	return cmd
}

func newTUICmd() *cobra.Command {
	var style string
	cmd := &cobra.Command{
		Use:   "tui [payload|url]",
		Short: "Open the interactive editor and viewer",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := getApp(cmd)
			if !isTerminal(os.Stdout) {
				return fmt.Errorf("tui needs an interactive terminal")
			}
			start := ""
			if len(args) == 1 {
				start = session.PayloadFrom(strings.TrimSpace(args[0]))
			}
			if style == "" {
				style = app.Cfg.GetString("render.style")
			}
			term, err := render.NewTerminal(style, app.Cfg.GetInt("render.word_wrap"))
			if err != nil {
				return err
			}
			hist := session.NewMemHistory(start)
			link, err := tui.Run(tui.Options{
				Session:  app.Session(hist),
				Back:     hist.Back,
				Terminal: term,
			})
			if err != nil {
				return err
			}
			if link != "" {
				fmt.Fprintln(cmd.OutOrStdout(), link)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&style, "style", "", "glamour style (overrides render.style)")
	_ = cmd.RegisterFlagCompletionFunc("style", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return completeStyle(toComplete), cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}
