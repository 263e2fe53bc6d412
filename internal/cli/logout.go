package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Drop the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		a.local()
		if err := a.orch.Logout(ctx); err != nil {
			return err
		}
		fmt.Println("Signed out. Mirrored content and unsynced edits are kept.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
