// Package cli implements the command tree. Each command builds the app
// wiring, runs one operation against the local store or the blog, and
// prints a plain-text result.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

// SetVersion sets the version string shown by the version command.
func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "ghostmirror",
	Short: "Local-first mirror of a Ghost blog",
	Long: `ghostmirror keeps a local, editable mirror of a Ghost blog.

Posts, the signed-in user, settings and configuration are pulled into a
local SQLite store so they stay readable and editable offline. Local
edits are pushed back on sync; when the server copy changed underneath
an edit, the post is flagged conflicted and waits for an explicit
keep-local or accept-remote decision.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
