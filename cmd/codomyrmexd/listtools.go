package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codomyrmex/mcp-core/internal/cliapp"
)

func newListToolsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list-tools",
		Short: "List every registered tool (static, proxy, and discovered)",
		Long: `List every tool the tool plane currently knows about.

This triggers a discovery scan if the cache is cold or expired, then prints
every descriptor's name, category, and trust class.

Examples:
  codomyrmexd list-tools
  codomyrmexd list-tools --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cliapp.Build(resolvedConfigPath())
			if err != nil {
				return err
			}
			app.Engine.GetReport()

			tools := app.Registry.ListTools()

			if asJSON {
				out := make([]map[string]any, 0, len(tools))
				for _, d := range tools {
					out = append(out, map[string]any{
						"name":        d.Name,
						"description": d.Description,
						"category":    d.Category,
						"trust_class": string(d.TrustClass),
						"source":      d.SourceModule,
					})
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			for _, d := range tools {
				fmt.Fprintf(cmd.OutOrStdout(), "%-45s %-12s %-11s %s\n", d.Name, d.Category, d.TrustClass, d.Description)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as a JSON array instead of a table")
	return cmd
}
