package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/codomyrmex/mcp-core/internal/audit"
	"github.com/codomyrmex/mcp-core/internal/cliapp"
)

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the audit trail",
	}
	cmd.AddCommand(newAuditTailCmd())
	return cmd
}

func newAuditTailCmd() *cobra.Command {
	var n int

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print the most recent audit records",
		Long: `Print the most recent audit records from the configured audit log file.

A running server appends one JSON line per dispatch to this file,
independent of the serving process's own in-memory ring buffer, so this
command can inspect it from a separate invocation.

Examples:
  codomyrmexd audit tail
  codomyrmexd audit tail -n 50`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := cliapp.ResolveAuditLogPath(resolvedConfigPath())
			if err != nil {
				return err
			}
			if path == "" {
				return fmt.Errorf("no audit log path configured")
			}

			records, err := tailRecords(path, n)
			if err != nil {
				return fmt.Errorf("read audit log %s: %w", path, err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			for _, r := range records {
				if err := enc.Encode(r); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&n, "lines", "n", 20, "number of most recent records to print")
	return cmd
}

// tailRecords reads every JSONL record in path and returns the last n. The
// audit log is append-only and expected to stay modestly sized within one
// operational window, so a full read is simpler and safer than seeking from
// the file's tail byte-by-byte.
func tailRecords(path string, n int) ([]audit.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var all []audit.Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		var r audit.Record
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			continue
		}
		all = append(all, r)
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return nil, err
	}

	if n <= 0 || n > len(all) {
		n = len(all)
	}
	return all[len(all)-n:], nil
}
