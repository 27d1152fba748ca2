package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dmitrijs2005/cipherrelay/internal/server/auth"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

func tokenCmd() *cobra.Command {
	var (
		secret   string
		subject  string
		validity time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an admin token signed with the relay secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "Admin secret: ")
				b, err := readPassword(int(os.Stdin.Fd()))
				fmt.Fprintln(cmd.ErrOrStderr())
				if err != nil {
					return fmt.Errorf("read secret: %w", err)
				}
				secret = strings.TrimSpace(string(b))
			}
			if secret == "" {
				return errors.New("empty secret")
			}

			tok, err := auth.GenerateToken(subject, []byte(secret), validity)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	cmd.Flags().StringVarP(&secret, "secret", "s", "", "admin secret (prompted when empty)")
	cmd.Flags().StringVar(&subject, "subject", "operator", "operator name stored in the token")
	cmd.Flags().DurationVar(&validity, "ttl", 15*time.Minute, "token lifetime")
	return cmd
}
