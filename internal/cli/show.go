package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <post-id>",
	Short: "Print one post with its content",
	Args:  cobra.ExactArgs(1),
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

		fmt.Printf("ID:      %s\n", p.ID)
		fmt.Printf("Title:   %s\n", p.Title)
		fmt.Printf("Slug:    %s\n", p.Slug)
		fmt.Printf("Status:  %s\n", p.Status)
		fmt.Printf("Sync:    %s\n", syncMarker(p))
		fmt.Printf("Updated: %s\n", p.UpdatedAt.Format("2006-01-02 15:04:05"))
		if len(p.Tags) > 0 {
			fmt.Print("Tags:    ")
			for i, t := range p.Tags {
				if i > 0 {
					fmt.Print(", ")
				}
				fmt.Print(t.Name)
			}
			fmt.Println()
		}
		fmt.Println()
		fmt.Println(p.Markdown)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
