package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print client and mirrored blog versions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		fmt.Printf("ghostmirror %s\n", version)

		a, err := newApp(ctx)
		if err != nil {
			return nil
		}
		defer a.Close()
		a.local()

		if v, err := a.orch.BlogVersion(ctx); err == nil && v != "" {
			fmt.Printf("blog Ghost %s\n", v)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
