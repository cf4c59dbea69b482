// Command codomyrmexd is the tool plane's server and operator CLI: it
// assembles every internal package into one running MCP server, or drives
// it from the outside for one-shot introspection and operator tasks.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/codomyrmex/mcp-core/internal/cliapp"
	"github.com/codomyrmex/mcp-core/internal/config"
)

var configPath string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "codomyrmexd",
		Short:         "codomyrmex MCP tool plane: server and operator CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to codomyrmex.yaml (defaults to $CODOMYRMEX_CONFIG or ./codomyrmex.yaml)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newListToolsCmd())
	cmd.AddCommand(newCallToolCmd())
	cmd.AddCommand(newDiscoverCmd())
	cmd.AddCommand(newAuditCmd())
	cmd.AddCommand(newElevateCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the codomyrmexd version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(cliapp.Version())
			return nil
		},
	}
}

func resolvedConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.ResolveConfigPath()
}

// main maps errors to exit codes: 0 clean shutdown/success, 1 fatal init
// error, 2 invalid config, 130 interrupted. Interruption during
// serve is handled inside newServeCmd via os.Exit, since cobra itself has no
// notion of a dedicated "interrupted" return value.
func main() {
	if err := newRootCmd().Execute(); err != nil {
		var cfgErr *cliapp.ConfigError
		if errors.As(err, &cfgErr) {
			fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
