package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
)

// Config is the top-level configuration structure.
type Config struct {
	Server    ServerConfig     `json:"server"`
	Providers []ProviderConfig `json:"providers"`
	Audit     AuditConfig      `json:"audit"`
	Gateway   GatewayConfig    `json:"gateway"`
}

type ServerConfig struct {
	Port     int    `json:"port"`
	LogLevel string `json:"log_level"`
}

// ProviderConfig describes one AI backend. Credentials are never stored
// inline: api_key_env and base_url_env name environment variables that the
// provider registry resolves at load time.
type ProviderConfig struct {
	Name           string            `json:"name"`
	Type           string            `json:"type"`
	Model          string            `json:"model"`
	APIKeyEnv      string            `json:"api_key_env,omitempty"`
	BaseURLEnv     string            `json:"base_url_env,omitempty"`
	Priority       int               `json:"priority"`
	Enabled        bool              `json:"enabled"`
	TimeoutSeconds int               `json:"timeout_seconds,omitempty"`
	Params         map[string]string `json:"params,omitempty"`
}

// AuditConfig selects the audit storage backend.
// Driver is "sqlite" (default) or "postgres".
type AuditConfig struct {
	Driver      string `json:"driver"`
	SQLitePath  string `json:"sqlite_path"`
	PostgresDSN string `json:"postgres_dsn"`
	RedisURL    string `json:"redis_url,omitempty"`
}

type GatewayConfig struct {
	RequestTimeoutSeconds int      `json:"request_timeout_seconds,omitempty"`
	AllowedSkills         []string `json:"allowed_skills,omitempty"`
}

// envVarRe matches ${VAR} and ${VAR:default} patterns.
var envVarRe = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

// Load reads a JSON config file and substitutes environment variable references.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	// Substitute ${VAR} and ${VAR:default} with environment values.
	resolved := envVarRe.ReplaceAllStringFunc(string(data), func(match string) string {
		parts := envVarRe.FindStringSubmatch(match)
		name := parts[1]
		defaultVal := parts[2]
		if v := os.Getenv(name); v != "" {
			return v
		}
		return defaultVal
	})

	var cfg Config
	if err := json.Unmarshal([]byte(resolved), &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Audit.Driver == "" {
		cfg.Audit.Driver = "sqlite"
	}
	if cfg.Audit.SQLitePath == "" {
		cfg.Audit.SQLitePath = "logs/praximous_audit.db"
	}
	return &cfg, nil
}
