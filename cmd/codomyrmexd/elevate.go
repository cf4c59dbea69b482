package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/codomyrmex/mcp-core/internal/cliapp"
	"github.com/codomyrmex/mcp-core/internal/trust"
)

func newElevateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "elevate",
		Short: "Mint session elevation tokens",
	}
	cmd.AddCommand(newElevateMintCmd())
	return cmd
}

func newElevateMintCmd() *cobra.Command {
	var sessionID string
	var level string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "mint-token",
		Short: "Mint a signed token that raises a session's trust level",
		Long: `Mint a signed elevation token.

An operator runs this out of band from any client session, then has the
agent present the resulting token to the running server's
codomyrmex.session.elevate tool to raise its Trust Context for the
remainder of the session or until the token expires, whichever is first.

Example:
  codomyrmexd elevate mint-token --session-id abc123 --level ELEVATED --ttl 1h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if sessionID == "" {
				return fmt.Errorf("--session-id is required")
			}
			parsedLevel, err := trust.ParseLevel(level)
			if err != nil {
				return err
			}

			key, err := cliapp.ResolveElevationKey(resolvedConfigPath())
			if err != nil {
				return err
			}

			token, err := trust.MintElevationToken(key, sessionID, parsedLevel, ttl)
			if err != nil {
				return fmt.Errorf("mint elevation token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session-id", "", "session id the token is addressed to")
	cmd.Flags().StringVar(&level, "level", "ELEVATED", "trust level to grant (STANDARD, ELEVATED, or FULL)")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "how long the token remains valid")

	return cmd
}
