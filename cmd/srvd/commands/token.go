package commands

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/srvkit/pkg/admin/auth"
	"github.com/marmos91/srvkit/pkg/flags"
)

// envTokenSecret is where the server reads admin.token_secret from the environment.
var envTokenSecret = flags.EnvName("SRVD", "admin.token_secret")

var (
	tokenSecret  string
	tokenSubject string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an admin token",
	Long: `Mint a bearer token accepted by POST /admin/shutdown on a server
configured with the same admin.token_secret.

Examples:
  srvd token --secret "$(cat /etc/srvd/secret)"
  SRVD_ADMIN_TOKEN_SECRET=... srvd token --ttl 5m`,
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := mintToken(tokenSecret, tokenSubject, tokenTTL)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSecret, "secret", "", "Token secret (default $"+envTokenSecret+")")
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "srvd", "Subject recorded in the token")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "Token lifetime")
}

// mintToken signs a shutdown-scoped token, falling back to the server's
// environment variable for the secret.
func mintToken(secret, subject string, ttl time.Duration) (string, error) {
	if secret == "" {
		secret = os.Getenv(envTokenSecret)
	}
	if secret == "" {
		return "", errors.New("no token secret: pass --secret or set " + envTokenSecret)
	}
	svc, err := auth.NewTokenService(secret)
	if err != nil {
		return "", err
	}
	return svc.Generate(subject, ttl, auth.ScopeShutdown)
}
