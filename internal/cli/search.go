package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over mirrored posts",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		idx, err := a.openSearch()
		if err != nil {
			return err
		}

		limit, _ := cmd.Flags().GetInt("limit")
		hits, err := idx.Search(strings.Join(args, " "), limit)
		if err != nil {
			return err
		}
		if len(hits) == 0 {
			fmt.Println("No matches")
			return nil
		}

		for _, h := range hits {
			p, err := a.store.Posts.GetByID(ctx, h.PostID)
			if err != nil {
				continue
			}
			fmt.Printf("%s  [%s]  %s\n", p.ID, p.Status, p.Title)
			for _, frags := range h.Fragments {
				for _, f := range frags {
					fmt.Printf("    %s\n", f)
				}
			}
		}
		return nil
	},
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the search index from the local store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		idx, err := a.openSearch()
		if err != nil {
			return err
		}
		posts, err := a.store.Posts.GetAll(ctx)
		if err != nil {
			return err
		}
		if err := idx.Reindex(posts); err != nil {
			return err
		}
		fmt.Printf("Indexed %d posts\n", len(posts))
		return nil
	},
}

func init() {
	searchCmd.Flags().Int("limit", 20, "maximum number of results")
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(reindexCmd)
}
