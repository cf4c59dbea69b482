package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/codomyrmex/mcp-core/internal/cliapp"
)

func newDiscoverCmd() *cobra.Command {
	var invalidate bool
	var modules []string

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Run or inspect a discovery scan",
		Long: `Report the current discovery cache state, or force a fresh scan.

Examples:
  codomyrmexd discover
  codomyrmexd discover --invalidate
  codomyrmexd discover --invalidate --module codomyrmex/notes_mcp_tools`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cliapp.Build(resolvedConfigPath())
			if err != nil {
				return err
			}

			if invalidate {
				app.Engine.Invalidate(modules...)
			}
			report := app.Engine.GetReport()

			out := map[string]any{
				"tools_found":      len(report.Tools),
				"modules_scanned":  report.ModulesScanned,
				"scan_duration_ms": report.ScanDurationMS,
				"failed_modules":   report.FailedModules,
				"scanned_at":       report.ScannedAt,
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().BoolVar(&invalidate, "invalidate", false, "force a fresh scan instead of using the cached report")
	cmd.Flags().StringArrayVar(&modules, "module", nil, "restrict --invalidate to these module paths (default: all)")

	return cmd
}
