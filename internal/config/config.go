package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is consulted when no --config flag is given.
	DefaultConfigPath = "/etc/ringwatch/config.yaml"

	defaultMetricPrefix      = "cassandra"
	defaultJobName           = "ringwatch"
	defaultNodetoolPath      = "/usr/bin/nodetool"
	defaultSSHUser           = "cassandra-monitor"
	defaultConnectTimeoutSec = 10
	defaultCommandTimeoutSec = 60
	defaultConcurrency       = 4
)

// Target describes one monitored Cassandra node.
type Target struct {
	Name         string `yaml:"name"`
	Address      string `yaml:"address"`
	NodetoolPath string `yaml:"nodetool_path,omitempty"` // overrides the global path
}

// SSH holds remote execution settings shared by all targets.
type SSH struct {
	User              string `yaml:"user"`
	IdentityFile      string `yaml:"identity_file,omitempty"`
	ConnectTimeoutSec int    `yaml:"connect_timeout_sec"`
}

// Log holds logger settings.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the immutable runtime configuration, loaded once at start.
type Config struct {
	Log               Log      `yaml:"log"`
	MetricPrefix      string   `yaml:"metric_prefix"`
	PushgatewayURL    string   `yaml:"pushgateway_url"`
	JobName           string   `yaml:"job_name"`
	SSH               SSH      `yaml:"ssh"`
	NodetoolPath      string   `yaml:"nodetool_path"`
	CommandTimeoutSec int      `yaml:"command_timeout_sec"`
	Concurrency       int      `yaml:"concurrency"`
	Targets           []Target `yaml:"targets"`
}

// CommandTimeout returns the bound applied to one remote command execution.
func (c *Config) CommandTimeout() time.Duration {
	return time.Duration(c.CommandTimeoutSec) * time.Second
}

// NodetoolPathFor resolves the nodetool binary path for a target.
func (c *Config) NodetoolPathFor(t Target) string {
	if t.NodetoolPath != "" {
		return t.NodetoolPath
	}
	return c.NodetoolPath
}

// Load reads the YAML config file, applies .env and environment
// overrides, fills defaults, and validates the result.
func Load(configPath string) (*Config, error) {
	// .env is optional; values already exported win
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded environment overrides from .env")
	}

	cfg := &Config{}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		log.Info().
			Str("config_file", configPath).
			Int("target_count", len(cfg.Targets)).
			Msg("Loaded configuration from file")
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RINGWATCH_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("RINGWATCH_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("RINGWATCH_METRIC_PREFIX"); v != "" {
		cfg.MetricPrefix = v
	}
	if v := os.Getenv("RINGWATCH_PUSHGATEWAY_URL"); v != "" {
		cfg.PushgatewayURL = v
	}
	if v := os.Getenv("RINGWATCH_JOB_NAME"); v != "" {
		cfg.JobName = v
	}
	if v := os.Getenv("RINGWATCH_SSH_USER"); v != "" {
		cfg.SSH.User = v
	}
	if v := os.Getenv("RINGWATCH_SSH_IDENTITY_FILE"); v != "" {
		cfg.SSH.IdentityFile = v
	}
	if v := os.Getenv("RINGWATCH_NODETOOL_PATH"); v != "" {
		cfg.NodetoolPath = v
	}
	if v := os.Getenv("RINGWATCH_COMMAND_TIMEOUT_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CommandTimeoutSec = n
		} else {
			log.Warn().Str("value", v).Msg("Ignoring invalid RINGWATCH_COMMAND_TIMEOUT_SEC")
		}
	}
	if v := os.Getenv("RINGWATCH_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Concurrency = n
		} else {
			log.Warn().Str("value", v).Msg("Ignoring invalid RINGWATCH_CONCURRENCY")
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.MetricPrefix == "" {
		cfg.MetricPrefix = defaultMetricPrefix
	}
	if cfg.JobName == "" {
		cfg.JobName = defaultJobName
	}
	if cfg.NodetoolPath == "" {
		cfg.NodetoolPath = defaultNodetoolPath
	}
	if cfg.SSH.User == "" {
		cfg.SSH.User = defaultSSHUser
	}
	if cfg.SSH.ConnectTimeoutSec <= 0 {
		cfg.SSH.ConnectTimeoutSec = defaultConnectTimeoutSec
	}
	if cfg.CommandTimeoutSec <= 0 {
		cfg.CommandTimeoutSec = defaultCommandTimeoutSec
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
}

// Validate checks invariants that would otherwise surface as confusing
// runtime failures mid-run.
func (c *Config) Validate() error {
	if c.PushgatewayURL == "" {
		return fmt.Errorf("pushgateway_url is required")
	}
	if strings.HasSuffix(c.NodetoolPath, "/") {
		return fmt.Errorf("nodetool_path must be the full path to the executable, not a directory: %q", c.NodetoolPath)
	}
	if len(c.Targets) == 0 {
		return fmt.Errorf("targets must be a non-empty list")
	}
	seen := make(map[string]struct{}, len(c.Targets))
	for i, t := range c.Targets {
		if t.Name == "" {
			return fmt.Errorf("targets[%d]: name is required", i)
		}
		if t.Address == "" {
			return fmt.Errorf("targets[%d] (%s): address is required", i, t.Name)
		}
		if strings.ContainsAny(t.Address, " \t") {
			return fmt.Errorf("targets[%d] (%s): address must not contain whitespace", i, t.Name)
		}
		if t.NodetoolPath != "" && strings.HasSuffix(t.NodetoolPath, "/") {
			return fmt.Errorf("targets[%d] (%s): nodetool_path must be the full path to the executable", i, t.Name)
		}
		if _, dup := seen[t.Name]; dup {
			return fmt.Errorf("targets[%d]: duplicate target name %q", i, t.Name)
		}
		seen[t.Name] = struct{}{}
	}
	return nil
}
