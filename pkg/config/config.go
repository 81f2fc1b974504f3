// Package config provides configuration file support for tidy.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jvs-project/tidy/pkg/fsutil"
	"github.com/jvs-project/tidy/pkg/logging"
	"github.com/jvs-project/tidy/pkg/template"
	"github.com/jvs-project/tidy/pkg/webhook"
)

// FileName is the config file name inside the state directory.
const FileName = "config.yaml"

// Config represents the tidy configuration.
type Config struct {
	DefaultPath     string                `yaml:"default_path" json:"default_path"`
	LogDir          string                `yaml:"log_dir,omitempty" json:"log_dir,omitempty"`
	Categories      map[string][]string   `yaml:"categories,omitempty" json:"categories,omitempty"`
	RetentionPolicy RetentionPolicyConfig `yaml:"retention_policy" json:"retention_policy"`
	Logging         LoggingConfig         `yaml:"logging" json:"logging"`
	MetricsFile     string                `yaml:"metrics_file,omitempty" json:"metrics_file,omitempty"`
	Webhooks        *webhook.Config       `yaml:"webhooks,omitempty" json:"webhooks,omitempty"`
}

// RetentionPolicyConfig configures pruning of change ledger artifacts.
type RetentionPolicyConfig struct {
	KeepMinArtifacts int    `yaml:"keep_min_artifacts" json:"keep_min_artifacts"`
	KeepMinAge       string `yaml:"keep_min_age" json:"keep_min_age"`
}

// LoggingConfig configures logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"` // json, text
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		DefaultPath: "~/Downloads",
		RetentionPolicy: RetentionPolicyConfig{
			KeepMinArtifacts: 20,
			KeepMinAge:       "720h",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultStateDir returns the state directory: $TIDY_HOME when set,
// otherwise ~/.tidy.
func DefaultStateDir() string {
	if dir := os.Getenv("TIDY_HOME"); dir != "" {
		return template.ExpandPath(dir)
	}
	return template.ExpandPath("~/.tidy")
}

// Path returns the config file location for a state directory.
func Path(stateDir string) string {
	return filepath.Join(stateDir, FileName)
}

// Load loads configuration from <stateDir>/config.yaml.
// Returns default config if file doesn't exist.
func Load(stateDir string) (*Config, error) {
	return LoadFile(Path(stateDir))
}

// LoadFile loads configuration from an explicit path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes configuration to <stateDir>/config.yaml.
func Save(stateDir string, cfg *Config) error {
	return SaveFile(Path(stateDir), cfg)
}

// SaveFile writes configuration to an explicit path.
func SaveFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := fsutil.AtomicWrite(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate checks values that cannot be rejected by YAML decoding alone.
func (c *Config) Validate() error {
	if c.RetentionPolicy.KeepMinArtifacts < 0 {
		return fmt.Errorf("retention_policy.keep_min_artifacts must be >= 0")
	}
	if _, err := c.KeepMinAge(); err != nil {
		return err
	}
	if c.Logging.Level != "" {
		switch strings.ToLower(c.Logging.Level) {
		case "debug", "info", "warn", "warning", "error":
		default:
			return fmt.Errorf("logging.level: unknown level %q", c.Logging.Level)
		}
	}
	if _, err := logging.ParseFormat(c.Logging.Format); err != nil {
		return fmt.Errorf("logging.format: %w", err)
	}
	return nil
}

// KeepMinAge parses the retention age. An empty value means zero.
func (c *Config) KeepMinAge() (time.Duration, error) {
	if c.RetentionPolicy.KeepMinAge == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.RetentionPolicy.KeepMinAge)
	if err != nil {
		return 0, fmt.Errorf("retention_policy.keep_min_age: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("retention_policy.keep_min_age must not be negative")
	}
	return d, nil
}

// ResolveDefaultPath returns default_path with placeholders expanded.
func (c *Config) ResolveDefaultPath() string {
	return template.ExpandPath(c.DefaultPath)
}

// ResolveLogDir returns the artifact directory: log_dir when set,
// otherwise <stateDir>/logs.
func (c *Config) ResolveLogDir(stateDir string) string {
	if c.LogDir != "" {
		return template.ExpandPath(c.LogDir)
	}
	return filepath.Join(stateDir, "logs")
}

// ResolveMetricsFile returns metrics_file with placeholders expanded.
func (c *Config) ResolveMetricsFile() string {
	return template.ExpandPath(c.MetricsFile)
}

// Keys lists the keys accepted by Get and Set.
func Keys() []string {
	return []string{
		"default_path",
		"log_dir",
		"metrics_file",
		"retention_policy.keep_min_artifacts",
		"retention_policy.keep_min_age",
		"logging.level",
		"logging.format",
		"categories.<label>",
	}
}

// Get returns the string form of a configuration value.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "default_path":
		return c.DefaultPath, nil
	case "log_dir":
		return c.LogDir, nil
	case "metrics_file":
		return c.MetricsFile, nil
	case "retention_policy.keep_min_artifacts":
		return strconv.Itoa(c.RetentionPolicy.KeepMinArtifacts), nil
	case "retention_policy.keep_min_age":
		return c.RetentionPolicy.KeepMinAge, nil
	case "logging.level":
		return c.Logging.Level, nil
	case "logging.format":
		return c.Logging.Format, nil
	}
	if label, ok := strings.CutPrefix(key, "categories."); ok && label != "" {
		exts := append([]string(nil), c.Categories[label]...)
		sort.Strings(exts)
		return strings.Join(exts, ","), nil
	}
	return "", fmt.Errorf("unknown config key: %s", key)
}

// Set updates a configuration value from its string form. Category values
// are comma-separated extension lists; an empty value removes the label.
func (c *Config) Set(key, value string) error {
	switch key {
	case "default_path":
		c.DefaultPath = value
	case "log_dir":
		c.LogDir = value
	case "metrics_file":
		c.MetricsFile = value
	case "retention_policy.keep_min_artifacts":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid value for %s: %q (want a non-negative integer)", key, value)
		}
		c.RetentionPolicy.KeepMinArtifacts = n
	case "retention_policy.keep_min_age":
		prev := c.RetentionPolicy.KeepMinAge
		c.RetentionPolicy.KeepMinAge = value
		if _, err := c.KeepMinAge(); err != nil {
			c.RetentionPolicy.KeepMinAge = prev
			return err
		}
	case "logging.level":
		c.Logging.Level = value
	case "logging.format":
		if _, err := logging.ParseFormat(value); err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
		c.Logging.Format = value
	default:
		label, ok := strings.CutPrefix(key, "categories.")
		if !ok || label == "" {
			return fmt.Errorf("unknown config key: %s", key)
		}
		if value == "" {
			delete(c.Categories, label)
			return nil
		}
		var exts []string
		for _, e := range strings.Split(value, ",") {
			if e = strings.TrimSpace(e); e != "" {
				exts = append(exts, e)
			}
		}
		if c.Categories == nil {
			c.Categories = make(map[string][]string)
		}
		c.Categories[label] = exts
	}
	return nil
}
