// Package config implements the tool plane's layered configuration:
// built-in defaults, an optional YAML file, then environment variables
// override in that order. The flags of cmd/codomyrmexd's subcommands are
// read by those subcommands directly and are not written into Config.
package config

import "time"

// Config is the server's fully resolved configuration.
type Config struct {
	ListenAddr        string       `yaml:"listen_addr" env:"CODOMYRMEX_LISTEN_ADDR"`
	LogLevel          string       `yaml:"log_level" env:"CODOMYRMEX_LOG_LEVEL"`
	LogFormat         string       `yaml:"log_format" env:"CODOMYRMEX_LOG_FORMAT"`
	CacheTTLSeconds   int          `yaml:"cache_ttl_seconds" env:"CODOMYRMEX_MCP_CACHE_TTL"`
	TrustDefaultLevel string       `yaml:"trust_default_level" env:"CODOMYRMEX_TRUST_DEFAULT_LEVEL"`
	GatewayTimeoutMS  int          `yaml:"gateway_timeout_ms"`
	AuditLogCapacity  int          `yaml:"audit_log_capacity"`
	AuditLogPath      string       `yaml:"audit_log_path" env:"CODOMYRMEX_AUDIT_LOG_PATH"`
	WarmUpDiscovery   bool         `yaml:"warmup_discovery"`
	Policy            PolicyConfig `yaml:"policy"`

	// ElevationSigningKey is the HMAC key an operator uses to mint session
	// elevation tokens. Left empty, the transport
	// shell generates an ephemeral key at startup: tokens minted against
	// one process's key are never valid against another's, which is
	// acceptable for this single-process demonstration mechanism but means
	// operators who want stable tokens across restarts must configure one.
	ElevationSigningKey string `yaml:"elevation_signing_key" env:"CODOMYRMEX_ELEVATION_KEY"`
}

// PolicyConfig configures the CEL policy engine.
type PolicyConfig struct {
	Rules []RuleConfig `yaml:"rules"`
}

// RuleConfig is one operator-supplied CEL authorization rule.
type RuleConfig struct {
	Name       string `yaml:"name"`
	Expression string `yaml:"expression"`
}

// CacheTTL converts the configured seconds value to a time.Duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// GatewayTimeout converts the configured millisecond value to a time.Duration.
func (c *Config) GatewayTimeout() time.Duration {
	return time.Duration(c.GatewayTimeoutMS) * time.Millisecond
}

// DefaultConfig returns the built-in defaults layer: a 300s discovery cache
// TTL and a 30s gateway call deadline.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:        "stdio",
		LogLevel:          "info",
		LogFormat:         "console",
		CacheTTLSeconds:   300,
		TrustDefaultLevel: "UNTRUSTED",
		GatewayTimeoutMS:  30_000,
		AuditLogCapacity:  10_000,
		AuditLogPath:      "codomyrmex-audit.jsonl",
		WarmUpDiscovery:   true,
	}
}
