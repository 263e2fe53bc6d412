package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/ghostmirror/internal/models"
)

var publishCmd = &cobra.Command{
	Use:   "publish <post-id>",
	Short: "Publish a post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setStatus(cmd, args[0], models.StatusPublished, "Published")
	},
}

var unpublishCmd = &cobra.Command{
	Use:   "unpublish <post-id>",
	Short: "Revert a post to a draft",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setStatus(cmd, args[0], models.StatusDraft, "Unpublished")
	},
}

// setStatus saves the status change locally, then pushes it.
func setStatus(cmd *cobra.Command, id string, status models.PostStatus, verb string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.connect(ctx); err != nil {
		return err
	}

	p, err := a.store.Posts.GetByID(ctx, id)
	if err != nil {
		return err
	}
	p.Status = status
	if err := a.orch.SavePost(ctx, p, false); err != nil {
		return err
	}
	if err := a.orch.PushPost(ctx, id); err != nil {
		return fmt.Errorf("saved locally but push failed: %w", err)
	}
	fmt.Printf("%s %s\n", verb, id)
	return nil
}

func init() {
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(unpublishCmd)
}
