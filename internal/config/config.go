// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Claude      ClaudeConfig      `yaml:"claude"`
	Executions  ExecutionsConfig  `yaml:"executions"`
	SessionLogs SessionLogsConfig `yaml:"session_logs"`
	Daemon      DaemonConfig      `yaml:"daemon"`
}

// ClaudeConfig defines how the CLI is invoked.
type ClaudeConfig struct {
	Binary         string `yaml:"binary"`
	Model          string `yaml:"model"`
	PermissionMode string `yaml:"permission_mode"`
}

// ExecutionsConfig defines supervisor behavior.
type ExecutionsConfig struct {
	// MaxConcurrent caps simultaneously running executions.
	MaxConcurrent int `yaml:"max_concurrent"`

	// Timeout bounds a single execution's total runtime. Zero disables it.
	Timeout time.Duration `yaml:"timeout"`
}

// SessionLogsConfig defines transcript reading behavior.
type SessionLogsConfig struct {
	// Root is the per-user transcript root. Empty means ~/.claude/projects.
	Root string `yaml:"root"`

	// QuestionPolicy selects the user-question filter variant
	// ("strict" or "inclusive").
	QuestionPolicy string `yaml:"question_policy"`

	// CacheTTL bounds how long parsed transcripts are cached.
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// DaemonConfig defines ccsd settings.
type DaemonConfig struct {
	Socket    string `yaml:"socket"`
	Database  string `yaml:"database"`
	LogFile   string `yaml:"log_file"`
	LogLevel  string `yaml:"log_level"`
	SentryDSN string `yaml:"sentry_dsn"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Claude: ClaudeConfig{
			Binary: "claude",
			Model:  "sonnet",
		},
		Executions: ExecutionsConfig{
			MaxConcurrent: 4,
		},
		SessionLogs: SessionLogsConfig{
			QuestionPolicy: "strict",
			CacheTTL:       30 * time.Second,
		},
		Daemon: DaemonConfig{
			Socket:   "/tmp/ccsd.sock",
			Database: filepath.Join(homeDir, ".local/share/ccs/ccs.db"),
			LogFile:  filepath.Join(homeDir, ".local/share/ccs/ccsd.log"),
			LogLevel: "info",
		},
	}
}

// Load reads configuration from the default path or returns defaults when no
// file exists.
func Load() (*Config, error) {
	configPath := DefaultConfigPath()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.expandEnvVars()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfigPath returns the default configuration file path.
func DefaultConfigPath() string {
	if p := os.Getenv("CCS_CONFIG"); p != "" {
		return p
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config/ccs/config.yaml")
}

// Validate rejects values the daemon cannot run with.
func (c *Config) Validate() error {
	if c.Executions.MaxConcurrent < 1 {
		return fmt.Errorf("executions.max_concurrent must be at least 1, got %d", c.Executions.MaxConcurrent)
	}
	if c.Executions.Timeout < 0 {
		return fmt.Errorf("executions.timeout must not be negative")
	}
	switch c.SessionLogs.QuestionPolicy {
	case "strict", "inclusive":
	default:
		return fmt.Errorf("session_logs.question_policy must be 'strict' or 'inclusive', got %q", c.SessionLogs.QuestionPolicy)
	}
	return nil
}

func (c *Config) expandEnvVars() {
	c.Daemon.SentryDSN = os.ExpandEnv(c.Daemon.SentryDSN)
}
