package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/ghostmirror/internal/common"
	"github.com/dmitrijs2005/ghostmirror/internal/models"
)

var saveCmd = &cobra.Command{
	Use:   "save [post-id]",
	Short: "Save a post locally from a markdown file",
	Long: `Save creates a new local draft (no post-id) or updates an existing
post (with post-id) from the given markdown file. The edit stays local
until the next push or sync; saving works offline.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		a.local()

		file, _ := cmd.Flags().GetString("file")
		title, _ := cmd.Flags().GetString("title")
		autosave, _ := cmd.Flags().GetBool("autosave")

		var p *models.Post
		if len(args) == 1 {
			p, err = a.store.Posts.GetByID(ctx, args[0])
			if err != nil {
				return err
			}
		} else {
			if title == "" {
				return errors.New("a new draft needs --title")
			}
			p = &models.Post{Title: title, Status: models.StatusDraft}
		}

		if title != "" {
			p.Title = title
		}
		if file != "" {
			body, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			p.Markdown = string(body)
		}

		if err := a.orch.SavePost(ctx, p, autosave); err != nil {
			return err
		}
		if idx, err := a.openSearch(); err == nil {
			_ = idx.IndexPost(p)
		}

		if p.ConflictState == models.ConflictDetected {
			fmt.Printf("Saved %s locally; the post is conflicted and will not push until resolved\n", p.ID)
			return nil
		}
		fmt.Printf("Saved %s locally\n", p.ID)
		return nil
	},
}

var pushCmd = &cobra.Command{
	Use:   "push [post-id]",
	Short: "Push unsynced local edits to the blog",
	Args:  cobra.MaximumNArgs(1),
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

		if len(args) == 1 {
			err = a.orch.PushPost(ctx, args[0])
		} else {
			err = a.orch.PushAll(ctx)
		}
		if errors.Is(err, common.ErrConflictUnresolved) {
			return fmt.Errorf("%w; run 'ghostmirror resolve' first", err)
		}
		if err != nil {
			return err
		}
		fmt.Println("Pushed")
		return nil
	},
}

func init() {
	saveCmd.Flags().String("file", "", "markdown file with the post body")
	saveCmd.Flags().String("title", "", "post title")
	saveCmd.Flags().Bool("autosave", false, "record the save as an autosave")
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(pushCmd)
}
