package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dmitrijs2005/ghostmirror/internal/client"
)

var loginCmd = &cobra.Command{
	Use:   "login <blog-url> <email>",
	Short: "Sign in to the blog and store the session",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		blogURL, email := args[0], args[1]

		password, err := cmd.Flags().GetString("password")
		if err != nil {
			return err
		}
		if password == "" {
			password, err = promptPassword("Password: ")
			if err != nil {
				return err
			}
		}

		if err := a.connectTo(ctx, blogURL, false); err != nil {
			return err
		}
		if err := a.orch.Login(ctx, client.Credentials{BlogURL: blogURL, Email: email, Password: password}); err != nil {
			return err
		}
		if err := a.orch.LoadVersion(ctx); err != nil {
			a.log.Warn(ctx, "could not read blog version", "error", err)
		} else if v, err := a.orch.BlogVersion(ctx); err == nil && v != "" {
			fmt.Printf("Signed in to %s (Ghost %s)\n", blogURL, v)
			return nil
		}
		fmt.Printf("Signed in to %s\n", blogURL)
		return nil
	},
}

func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

func init() {
	loginCmd.Flags().String("password", "", "password (prompted when omitted)")
	rootCmd.AddCommand(loginCmd)
}
