package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:     "delete <post-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a post locally and on the blog",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.store.Posts.GetByID(ctx, args[0])
		if err != nil {
			return err
		}
		if p.LocalOnly {
			a.local()
		} else if err := a.connect(ctx); err != nil {
			return err
		}

		if err := a.orch.DeletePost(ctx, args[0]); err != nil {
			return err
		}
		if idx, err := a.openSearch(); err == nil {
			_ = idx.DeletePost(args[0])
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
