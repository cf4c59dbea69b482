// Package coretools implements the small set of static, general-purpose
// tools that cliapp.Build registers directly into the registry before the
// Server Transport Shell is built, ahead of any discovery scan: file, dir, git, shell,
// data-utility, testing, and pai-status. The tool plane needs a handful of
// real static tools to register and gate, so this package ships one
// representative, minimally-scoped handler per category. The shell handler
// takes an argv array rather than a shell-interpreted string, so no shell
// metacharacter ever reaches exec.
package coretools

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/codomyrmex/mcp-core/internal/registry"
)

const maxFileReadBytes = 1 << 20 // 1 MiB

// Deps bundles the handles the "pai-status" tool reports on.
type Deps struct {
	Registry  *registry.Registry
	StartedAt time.Time
	Version   string
}

// RegisterTools returns the static core tool descriptors, ready for
// registration with registry.RegisterOptions{} (static origin) before the
// server starts serving.
func RegisterTools(deps Deps) []*registry.Descriptor {
	return []*registry.Descriptor{
		{
			Name:        "codomyrmex.file.read",
			Description: "Read a UTF-8 text file's contents, up to 1MiB.",
			Category:    "file",
			TrustClass:  registry.Safe,
			ParameterSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{"type": "string"},
				},
				"required": []any{"path"},
			},
			Handler: readFile,
		},
		{
			Name:        "codomyrmex.dir.list",
			Description: "List the names and types of entries in a directory.",
			Category:    "dir",
			TrustClass:  registry.Safe,
			ParameterSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{"type": "string"},
				},
				"required": []any{"path"},
			},
			Handler: listDir,
		},
		{
			Name:        "codomyrmex.git.status",
			Description: "Run `git status --porcelain` in the given directory.",
			Category:    "git",
			TrustClass:  registry.Safe,
			ParameterSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{"type": "string", "default": "."},
				},
			},
			Handler: gitStatus,
		},
		{
			Name:        "codomyrmex.shell.run",
			Description: "Execute a command (argv array, no shell interpretation) with a bounded timeout.",
			Category:    "shell",
			TrustClass:  registry.Destructive,
			ParameterSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"argv": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "string"},
					},
					"working_dir":     map[string]any{"type": "string"},
					"timeout_seconds": map[string]any{"type": "integer", "default": 30},
				},
				"required": []any{"argv"},
			},
			Handler: shellRun,
		},
		{
			Name:        "codomyrmex.data.hash",
			Description: "Compute the SHA-256 hex digest of a string.",
			Category:    "data-utility",
			TrustClass:  registry.Safe,
			ParameterSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"content": map[string]any{"type": "string"},
				},
				"required": []any{"content"},
			},
			Handler: hashContent,
		},
		{
			Name:        "codomyrmex.testing.echo",
			Description: "Echo the given arguments back, for exercising the dispatch path in tests.",
			Category:    "testing",
			TrustClass:  registry.Safe,
			ParameterSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
			Handler: echoArgs,
		},
		{
			Name:        "codomyrmex.pai.status",
			Description: "Report server uptime, version, and registered tool count.",
			Category:    "pai-status",
			TrustClass:  registry.Safe,
			ParameterSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
			Handler: statusHandler(deps),
		},
	}
}

func readFile(ctx context.Context, args map[string]any) (map[string]any, error) {
	path, _ := args["path"].(string)
	if path == "" {
		return nil, fmt.Errorf("path must not be empty")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, maxFileReadBytes)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return map[string]any{"path": path, "content": string(buf[:n])}, nil
}

func listDir(ctx context.Context, args map[string]any) (map[string]any, error) {
	path, _ := args["path"].(string)
	if path == "" {
		return nil, fmt.Errorf("path must not be empty")
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", path, err)
	}

	items := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		items = append(items, map[string]any{
			"name":   e.Name(),
			"is_dir": e.IsDir(),
		})
	}
	return map[string]any{"path": path, "entries": items}, nil
}

func gitStatus(ctx context.Context, args map[string]any) (map[string]any, error) {
	dir, _ := args["path"].(string)
	if dir == "" {
		dir = "."
	}

	execCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(execCtx, "git", "status", "--porcelain")
	cmd.Dir = dir
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git status: %w: %s", err, stderr.String())
	}
	return map[string]any{"path": filepath.Clean(dir), "porcelain": out.String()}, nil
}

// shellRun executes argv directly via exec.CommandContext: there is no
// shell interpretation of the command string, so no metacharacter in any
// argument is ever special. Trust class DESTRUCTIVE means the gateway
// requires ELEVATED plus interactive confirmation before this ever runs.
func shellRun(ctx context.Context, args map[string]any) (map[string]any, error) {
	rawArgv, _ := args["argv"].([]any)
	if len(rawArgv) == 0 {
		return nil, fmt.Errorf("argv must contain at least one element")
	}
	argv := make([]string, len(rawArgv))
	for i, a := range rawArgv {
		s, ok := a.(string)
		if !ok {
			return nil, fmt.Errorf("argv[%d] must be a string", i)
		}
		argv[i] = s
	}

	timeoutSeconds := 30
	if v, ok := args["timeout_seconds"].(float64); ok && v > 0 {
		timeoutSeconds = int(v)
	}
	if timeoutSeconds > 300 {
		timeoutSeconds = 300
	}

	execCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSeconds)*time.Second)
	defer cancel()

	//nolint:gosec // argv is an explicit array, not shell-interpreted; caller already passed DESTRUCTIVE/ELEVATED gating.
	cmd := exec.CommandContext(execCtx, argv[0], argv[1:]...)
	if wd, _ := args["working_dir"].(string); wd != "" {
		cmd.Dir = wd
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()

	result := map[string]any{
		"stdout":      stdout.String(),
		"stderr":      stderr.String(),
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			result["exit_code"] = exitErr.ExitCode()
			return result, nil
		}
		return nil, fmt.Errorf("run command: %w", runErr)
	}
	result["exit_code"] = 0
	return result, nil
}

func hashContent(ctx context.Context, args map[string]any) (map[string]any, error) {
	content, _ := args["content"].(string)
	sum := sha256.Sum256([]byte(content))
	return map[string]any{"sha256": hex.EncodeToString(sum[:])}, nil
}

func echoArgs(ctx context.Context, args map[string]any) (map[string]any, error) {
	return map[string]any{"echo": args}, nil
}

func statusHandler(deps Deps) registry.Handler {
	return func(ctx context.Context, args map[string]any) (map[string]any, error) {
		uptime := time.Since(deps.StartedAt)
		toolCount := 0
		if deps.Registry != nil {
			toolCount = deps.Registry.Count()
		}
		return map[string]any{
			"version":    deps.Version,
			"uptime_ms":  uptime.Milliseconds(),
			"tool_count": toolCount,
			"started_at": deps.StartedAt.Format(time.RFC3339),
		}, nil
	}
}
