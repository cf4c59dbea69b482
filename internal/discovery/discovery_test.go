package discovery

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codomyrmex/mcp-core/internal/registry"
)

func toolSource(path, name string) ModuleSource {
	return ModuleSource{
		Path: path,
		Register: func() ([]*registry.Descriptor, error) {
			return []*registry.Descriptor{{
				Name: name,
				Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
					return map[string]any{"ok": true}, nil
				},
			}}, nil
		},
	}
}

func TestEngine_ScanCollectsToolsAndTolerateFailures(t *testing.T) {
	sources := []ModuleSource{
		toolSource("a_mcp_tools", "a.tool"),
		{
			Path: "b_mcp_tools",
			Register: func() ([]*registry.Descriptor, error) {
				return nil, fmt.Errorf("import failed")
			},
		},
		toolSource("c_mcp_tools", "c.tool"),
	}

	reg := registry.New()
	engine := NewEngine(reg, sources, time.Minute, zerolog.Nop())

	report := engine.GetReport()
	assert.Equal(t, 3, report.ModulesScanned)
	assert.Len(t, report.FailedModules, 1)
	assert.Equal(t, "b_mcp_tools", report.FailedModules[0].ModulePath)
	assert.Len(t, report.Tools, 2)
	assert.GreaterOrEqual(t, report.ScanDurationMS, int64(0))
}

func TestEngine_CacheHitsAndInvalidate(t *testing.T) {
	calls := 0
	sources := []ModuleSource{
		{
			Path: "x_mcp_tools",
			Register: func() ([]*registry.Descriptor, error) {
				calls++
				return []*registry.Descriptor{{
					Name: "x.tool",
					Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
						return nil, nil
					},
				}}, nil
			},
		},
	}

	engine := NewEngine(registry.New(), sources, time.Hour, zerolog.Nop())

	engine.GetReport()
	engine.GetReport()
	engine.GetReport()
	assert.Equal(t, 1, calls)
	assert.Equal(t, uint64(2), engine.CacheHits())

	engine.Invalidate()
	engine.GetReport()
	assert.Equal(t, 2, calls)
}

func TestEngine_ConcurrentColdCacheSingleFlight(t *testing.T) {
	var scans int
	var mu sync.Mutex

	sources := []ModuleSource{
		{
			Path: "slow_mcp_tools",
			Register: func() ([]*registry.Descriptor, error) {
				mu.Lock()
				scans++
				mu.Unlock()
				time.Sleep(20 * time.Millisecond)
				return []*registry.Descriptor{{
					Name: "slow.tool",
					Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
						return nil, nil
					},
				}}, nil
			},
		},
	}

	engine := NewEngine(registry.New(), sources, time.Hour, zerolog.Nop())

	var wg sync.WaitGroup
	results := make([]*Report, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = engine.GetReport()
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, scans)
	for _, r := range results {
		require.NotNil(t, r)
		assert.Len(t, r.Tools, 1)
	}
	assert.Equal(t, uint64(9), engine.CacheHits())
}

func TestEngine_DuplicateNameAcrossModulesRecordsConflict(t *testing.T) {
	sources := []ModuleSource{
		toolSource("first_mcp_tools", "shared.tool"),
		toolSource("second_mcp_tools", "shared.tool"),
	}

	engine := NewEngine(registry.New(), sources, time.Minute, zerolog.Nop())
	report := engine.GetReport()

	assert.Len(t, report.Tools, 1)
	foundConflict := false
	for _, f := range report.FailedModules {
		if f.ModulePath == "second_mcp_tools" {
			foundConflict = true
		}
	}
	assert.True(t, foundConflict)
}

func TestEngine_PanicInModuleIsContained(t *testing.T) {
	sources := []ModuleSource{
		{
			Path: "panicky_mcp_tools",
			Register: func() ([]*registry.Descriptor, error) {
				panic("boom")
			},
		},
		toolSource("fine_mcp_tools", "fine.tool"),
	}

	engine := NewEngine(registry.New(), sources, time.Minute, zerolog.Nop())
	report := engine.GetReport()

	assert.Len(t, report.FailedModules, 1)
	assert.Len(t, report.Tools, 1)
}
