package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/codomyrmex/mcp-core/internal/cliapp"
)

func newServeCmd() *cobra.Command {
	var httpAddr string
	var shutdownGrace time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the codomyrmex MCP server.

By default the server frames requests over stdio, the transport an MCP
client expects from a locally launched tool plane process. Passing --http switches to one-JSON-request-per-POST
framing instead; the two are mutually exclusive per process.

Examples:
  # Start on stdio, the normal way an MCP client launches this binary
  codomyrmexd serve

  # Serve over HTTP instead
  codomyrmexd serve --http :8090

  # Shorter shutdown grace window for quick manual testing
  codomyrmexd serve --shutdown-grace 2s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cliapp.Build(resolvedConfigPath())
			if err != nil {
				return err
			}

			srv, err := app.NewTransport()
			if err != nil {
				return fmt.Errorf("build transport: %w", err)
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			serveErr := make(chan error, 1)
			go func() {
				if httpAddr != "" {
					serveErr <- srv.ServeHTTPAddr(httpAddr)
					return
				}
				serveErr <- srv.ServeStdio()
			}()

			select {
			case err := <-serveErr:
				if err != nil {
					return fmt.Errorf("serve: %w", err)
				}
				return nil
			case sig := <-sigCh:
				app.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
				srv.Shutdown(shutdownGrace)
				if sig == syscall.SIGINT {
					os.Exit(130)
				}
				return nil
			}
		},
	}

	cmd.Flags().StringVar(&httpAddr, "http", "", "HTTP listen address (e.g. :8090); omit to serve over stdio")
	cmd.Flags().DurationVar(&shutdownGrace, "shutdown-grace", 5*time.Second, "time to wait for in-flight calls to finish before abandoning them")

	return cmd
}
