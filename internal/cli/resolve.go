package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/ghostmirror/internal/conflict"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <post-id>",
	Short: "Resolve a conflicted post",
	Long: `Resolve applies one of the two possible decisions to a conflicted
post: --keep-local keeps the local edits and pushes them over the
remote copy, --accept-remote discards the local edits and adopts the
server's current version.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		keepLocal, _ := cmd.Flags().GetBool("keep-local")
		acceptRemote, _ := cmd.Flags().GetBool("accept-remote")
		if keepLocal == acceptRemote {
			return errors.New("pass exactly one of --keep-local or --accept-remote")
		}
		choice := conflict.ChoiceKeepLocal
		if acceptRemote {
			choice = conflict.ChoiceAcceptRemote
		}

		if err := a.connect(ctx); err != nil {
			return err
		}
		if err := a.orch.ResolveConflict(ctx, args[0], choice); err != nil {
			return err
		}
		if keepLocal {
			if err := a.orch.PushPost(ctx, args[0]); err != nil {
				return fmt.Errorf("resolved locally but push failed: %w", err)
			}
		}
		fmt.Printf("Resolved %s (%s)\n", args[0], choice)
		return nil
	},
}

func init() {
	resolveCmd.Flags().Bool("keep-local", false, "keep local edits and push them")
	resolveCmd.Flags().Bool("accept-remote", false, "discard local edits, adopt the remote copy")
	rootCmd.AddCommand(resolveCmd)
}
