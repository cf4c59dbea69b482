package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayeredLoader_DefaultsOnly(t *testing.T) {
	loader := NewLayeredLoader()
	loader.DisableLayer(LayerEnv)

	cfg, err := loader.Load("")
	require.NoError(t, err)
	assert.Equal(t, 300, cfg.CacheTTLSeconds)
	assert.Equal(t, "UNTRUSTED", cfg.TrustDefaultLevel)
}

func TestLayeredLoader_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "codomyrmex.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache_ttl_seconds: 60\nlog_level: debug\n"), 0o600))

	loader := NewLayeredLoader()
	loader.DisableLayer(LayerEnv)

	cfg, err := loader.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.CacheTTLSeconds)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLayeredLoader_EnvOverridesFile(t *testing.T) {
	t.Setenv("CODOMYRMEX_MCP_CACHE_TTL", "90")
	t.Setenv("CODOMYRMEX_TRUST_DEFAULT_LEVEL", "STANDARD")

	loader := NewLayeredLoader()
	cfg, err := loader.Load("")
	require.NoError(t, err)
	assert.Equal(t, 90, cfg.CacheTTLSeconds)
	assert.Equal(t, "STANDARD", cfg.TrustDefaultLevel)
}

func TestLayeredLoader_MissingFileIsNotAnError(t *testing.T) {
	loader := NewLayeredLoader()
	loader.DisableLayer(LayerEnv)

	cfg, err := loader.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 300, cfg.CacheTTLSeconds)
}

func TestLayeredLoader_ElevationKeyFromEnv(t *testing.T) {
	t.Setenv("CODOMYRMEX_ELEVATION_KEY", "shared-secret")

	loader := NewLayeredLoader()
	cfg, err := loader.Load("")
	require.NoError(t, err)
	assert.Equal(t, "shared-secret", cfg.ElevationSigningKey)
}

func TestConfig_DurationHelpers(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 300e9, float64(cfg.CacheTTL()))
	assert.Equal(t, 30000e6, float64(cfg.GatewayTimeout()))
}
