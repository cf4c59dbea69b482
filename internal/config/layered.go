package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Layer identifies one source in the precedence chain.
type Layer string

const (
	LayerDefaults Layer = "defaults"
	LayerFile     Layer = "file"
	LayerEnv      Layer = "env"
)

// LayeredLoader resolves a Config from defaults, an optional YAML file, and
// environment variables, each layer overriding the previous one. There is no
// CLI-flag layer: Load's result is the final Config.
type LayeredLoader struct {
	enabled map[Layer]bool
}

// NewLayeredLoader returns a loader with every layer enabled.
func NewLayeredLoader() *LayeredLoader {
	return &LayeredLoader{enabled: map[Layer]bool{
		LayerDefaults: true,
		LayerFile:     true,
		LayerEnv:      true,
	}}
}

// DisableLayer turns off one layer, primarily for tests that want a
// deterministic config unaffected by the ambient process environment.
func (l *LayeredLoader) DisableLayer(layer Layer) {
	l.enabled[layer] = false
}

// Load resolves a Config. configPath may be empty, in which case the file
// layer is skipped; a missing file is not an error, a malformed one is.
func (l *LayeredLoader) Load(configPath string) (*Config, error) {
	cfg := &Config{}
	if l.enabled[LayerDefaults] {
		cfg = DefaultConfig()
	}

	if l.enabled[LayerFile] && configPath != "" {
		if err := mergeFromFile(cfg, configPath); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("load config file %s: %w", configPath, err)
			}
		}
	}

	if l.enabled[LayerEnv] {
		if err := LoadFromEnv(cfg); err != nil {
			return nil, fmt.Errorf("load config from environment: %w", err)
		}
	}

	return cfg, nil
}

func mergeFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	return nil
}

// ResolveConfigPath resolves $CODOMYRMEX_CONFIG, else ./codomyrmex.yaml if
// present, else "" (defaults and env only).
func ResolveConfigPath() string {
	if p := os.Getenv("CODOMYRMEX_CONFIG"); p != "" {
		return p
	}
	if _, err := os.Stat("codomyrmex.yaml"); err == nil {
		return "codomyrmex.yaml"
	}
	return ""
}
