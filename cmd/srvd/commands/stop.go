package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/srvkit/cmd/srvd/cmdutil"
	"github.com/marmos91/srvkit/internal/cli/prompt"
	"github.com/marmos91/srvkit/pkg/admin/auth"
	"github.com/marmos91/srvkit/pkg/adminclient"
)

var (
	stopReason string
	stopSecret string
	stopForce  bool
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Ask a running server to shut down",
	Long: `Request a graceful shutdown through POST /admin/shutdown. The server
cancels Main and runs its teardown phases.

A server with admin.token_secret set requires a token: pass --token, or
--secret to mint a short-lived one.

Examples:
  srvd stop --reason "deploy"
  srvd stop --secret "$SECRET" --force`,
	RunE: runStop,
}

func init() {
	stopCmd.Flags().StringVar(&stopReason, "reason", "", "Reason recorded with the request")
	stopCmd.Flags().StringVar(&stopSecret, "secret", "", "Token secret used to mint a token when --token is not set")
	stopCmd.Flags().BoolVarP(&stopForce, "force", "f", false, "Skip confirmation prompt")
}

func runStop(cmd *cobra.Command, args []string) error {
	client := cmdutil.GetClient()
	if cmdutil.Flags.Token == "" && stopSecret != "" {
		token, err := mintToken(stopSecret, "srvd-stop", time.Minute)
		if err != nil {
			return err
		}
		client = client.WithToken(token)
	}

	confirmed, err := prompt.ConfirmWithForce(fmt.Sprintf("Stop the server at %s", client.BaseURL()), stopForce)
	if err != nil {
		if prompt.IsAborted(err) {
			return nil
		}
		return err
	}
	if !confirmed {
		fmt.Println("Aborted.")
		return nil
	}

	ctx, cancel := cmdutil.Context()
	defer cancel()

	res, err := client.Shutdown(ctx, stopReason)
	if err != nil {
		var apiErr *adminclient.APIError
		if errors.As(err, &apiErr) && apiErr.IsAuthError() {
			return fmt.Errorf("shutdown rejected: pass --token or --secret with a %q token: %w", auth.ScopeShutdown, err)
		}
		return fmt.Errorf("failed to request shutdown: %w", err)
	}

	p, err := cmdutil.GetPrinter()
	if err != nil {
		return err
	}
	if res.Accepted {
		p.Success(fmt.Sprintf("Shutdown requested: %s", res.Request.Reason))
	} else {
		p.Warning(fmt.Sprintf("Shutdown already in progress (%s: %s)", res.Request.Source, res.Request.Reason))
	}
	return nil
}
