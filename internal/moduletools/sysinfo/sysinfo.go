// Package sysinfo is a sample domain module: a small, illustrative stand-in
// for the domain modules the tool plane invokes on behalf of agents. It
// exposes a single SAFE tool reporting host resource usage, giving the
// discovery engine and the proxy tools a real, non-trivial call target.
package sysinfo

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/codomyrmex/mcp-core/internal/registry"
)

// ModulePath is this module's discovery namespace entry, ending in the
// marker suffix the discovery engine looks for.
const ModulePath = "codomyrmex/sysinfo_mcp_tools"

// RegisterTools enumerates this module's tool descriptors for the discovery
// engine.
func RegisterTools() ([]*registry.Descriptor, error) {
	return []*registry.Descriptor{
		{
			Name:        "codomyrmex.sysinfo.host_stats",
			Description: "Report current host CPU utilization, memory usage, and load average.",
			Category:    "sysinfo",
			TrustClass:  registry.Safe,
			ParameterSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
			Handler: hostStats,
		},
	}, nil
}

func hostStats(ctx context.Context, args map[string]any) (map[string]any, error) {
	percents, err := cpu.PercentWithContext(ctx, 100*time.Millisecond, false)
	if err != nil {
		return nil, fmt.Errorf("read cpu percent: %w", err)
	}
	var cpuPercent float64
	if len(percents) > 0 {
		cpuPercent = percents[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("read virtual memory: %w", err)
	}

	result := map[string]any{
		"cpu_percent":        cpuPercent,
		"memory_used_bytes":  vm.Used,
		"memory_total_bytes": vm.Total,
		"memory_percent":     vm.UsedPercent,
	}

	// Load average is unavailable on some platforms (e.g. Windows); don't
	// fail the whole tool over an optional field.
	if avg, err := load.AvgWithContext(ctx); err == nil {
		result["load1"] = avg.Load1
		result["load5"] = avg.Load5
		result["load15"] = avg.Load15
	}

	return result, nil
}
