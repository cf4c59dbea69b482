package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/codomyrmex/mcp-core/internal/cliapp"
	"github.com/codomyrmex/mcp-core/internal/trust"
)

func newCallToolCmd() *cobra.Command {
	var argsJSON string
	var trustLevel string
	var confirm bool

	cmd := &cobra.Command{
		Use:   "call-tool <name>",
		Short: "Invoke one tool directly through the dispatcher",
		Long: `Invoke a single tool by name, as if an MCP client had sent a call_tool
request, and print the wire-level result.

Because this is a locally invoked operator command rather than a remote MCP
session, --trust-level sets the one-shot Trust Context directly instead of
requiring a minted elevation token (the token flow exists for sessions the
operator isn't already driving from a trusted shell).

Examples:
  codomyrmexd call-tool codomyrmex.pai.status
  codomyrmexd call-tool codomyrmex.file.read --args '{"path":"go.mod"}'
  codomyrmexd call-tool codomyrmex.shell.run --trust-level ELEVATED --confirm \
    --args '{"argv":["echo","hi"]}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			arguments := map[string]any{}
			if argsJSON != "" {
				if err := json.Unmarshal([]byte(argsJSON), &arguments); err != nil {
					return fmt.Errorf("parse --args as JSON: %w", err)
				}
			}

			level, err := trust.ParseLevel(trustLevel)
			if err != nil {
				return fmt.Errorf("parse --trust-level: %w", err)
			}

			app, err := cliapp.Build(resolvedConfigPath())
			if err != nil {
				return err
			}

			tctx := trust.NewContext(cliapp.NewSessionID(), level)
			if confirm {
				tctx.SetConfirmationCallback(func(string, map[string]any) bool { return true })
			} else {
				tctx.SetConfirmationCallback(promptForConfirmation)
			}

			out := app.Dispatcher.Dispatch(context.Background(), tctx, name, arguments)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(out); err != nil {
				return fmt.Errorf("encode result: %w", err)
			}
			if _, failed := out["error"]; failed {
				return fmt.Errorf("tool call failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&argsJSON, "args", "", "JSON object of keyword arguments")
	cmd.Flags().StringVar(&trustLevel, "trust-level", "UNTRUSTED", "trust level to run this call as: UNTRUSTED, STANDARD, ELEVATED, FULL")
	cmd.Flags().BoolVar(&confirm, "confirm", false, "auto-approve any DESTRUCTIVE confirmation prompt instead of asking interactively")

	return cmd
}

// promptForConfirmation is the interactive confirmation callback for
// DESTRUCTIVE calls made from the operator CLI: it asks on the terminal and
// fails closed on any read error, a closed stdin, or a non-"y" answer.
func promptForConfirmation(toolName string, args map[string]any) bool {
	rl, err := readline.New(fmt.Sprintf("%s is DESTRUCTIVE. Run it? [y/N] ", toolName))
	if err != nil {
		return false
	}
	defer rl.Close()

	line, err := rl.Readline()
	if err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(line), "y")
}
