package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/ghostmirror/internal/models"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push local edits and pull fresh content from the blog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.connect(ctx); err != nil {
			return err
		}
		if err := a.orch.SyncAll(ctx); err != nil {
			return err
		}

		posts, err := a.store.Posts.GetAll(ctx)
		if err != nil {
			return err
		}
		if idx, err := a.openSearch(); err == nil {
			if err := idx.Reindex(posts); err != nil {
				a.log.Warn(ctx, "search reindex failed", "error", err)
			}
		}

		conflicted := 0
		for i := range posts {
			if posts[i].ConflictState == models.ConflictDetected {
				conflicted++
			}
		}
		fmt.Printf("Synced %d posts\n", len(posts))
		if conflicted > 0 {
			fmt.Printf("%d post(s) are conflicted; run 'ghostmirror resolve <id> --keep-local|--accept-remote'\n", conflicted)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
