package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/ghostmirror/internal/models"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List mirrored posts",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		posts, err := a.store.Posts.GetAll(ctx)
		if err != nil {
			return err
		}

		statusFilter, _ := cmd.Flags().GetString("status")
		unsyncedOnly, _ := cmd.Flags().GetBool("unsynced")

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tSYNC\tUPDATED\tTITLE")
		for i := range posts {
			p := &posts[i]
			if statusFilter != "" && string(p.Status) != statusFilter {
				continue
			}
			if unsyncedOnly && !p.HasUnsyncedEdits() && !p.LocalOnly {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				p.ID, p.Status, syncMarker(p), p.UpdatedAt.Format("2006-01-02 15:04"), p.Title)
		}
		return w.Flush()
	},
}

func syncMarker(p *models.Post) string {
	switch {
	case p.ConflictState == models.ConflictDetected:
		return "CONFLICT"
	case p.LocalOnly:
		return "local-only"
	case p.HasUnsyncedEdits():
		return "unsynced"
	default:
		return "ok"
	}
}

func init() {
	listCmd.Flags().String("status", "", "only posts with this status (draft, scheduled, published)")
	listCmd.Flags().Bool("unsynced", false, "only posts with unsynced local edits")
	rootCmd.AddCommand(listCmd)
}
