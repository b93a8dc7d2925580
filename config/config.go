// Package config loads the runtime configuration of a query state store from
// YAML, with QSTATE_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-query-state/rules"
	"github.com/goliatone/go-query-state/store"
)

// Environment variables read by Load.
const (
	EnvPersistenceDSN   = "QSTATE_PERSISTENCE_DSN"
	EnvPersistenceScope = "QSTATE_PERSISTENCE_SCOPE"
	EnvFeatures         = "QSTATE_FEATURES"
	EnvRulesEngine      = "QSTATE_RULES_ENGINE"
	EnvLogLevel         = "QSTATE_LOG_LEVEL"
	EnvLogFormat        = "QSTATE_LOG_FORMAT"
	EnvMetricsNamespace = "QSTATE_METRICS_NAMESPACE"
	EnvSource           = "QSTATE_SOURCE"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config is the runtime configuration of a query state store.
type Config struct {
	Persistence PersistenceConfig `yaml:"persistence"`
	Features    map[string]bool   `yaml:"features"`
	Rules       RulesConfig       `yaml:"rules"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	// Source tags actions dispatched by the requester, e.g. "showcase".
	Source string `yaml:"source"`
}

// PersistenceConfig selects where theme snapshots are kept.
type PersistenceConfig struct {
	// DSN selects the snapshot backend: memory://, file://dir,
	// sqlite://path, postgres://..., s3://bucket/prefix. Empty keeps
	// snapshots in memory.
	DSN    string `yaml:"dsn"`
	Scope  string `yaml:"scope"`
	Follow bool   `yaml:"follow"`
}

// RulesConfig picks the engine for option visibility rules.
type RulesConfig struct {
	Engine string `yaml:"engine"` // expr, cel, js
}

// LoggingConfig controls the zap logger built by NewLogger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// MetricsConfig controls the Prometheus collectors of the store.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Persistence: PersistenceConfig{
			DSN:   "memory://",
			Scope: store.DefaultScope,
		},
		Features: map[string]bool{
			store.FeatureThemeDetails:  true,
			store.FeaturePreviewLayout: true,
			store.FeatureCheckout:      true,
		},
		Rules: RulesConfig{Engine: rules.EngineExpr},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: store.DefaultNamespace,
		},
		Source: "showcase",
	}
}

// Load reads path over the defaults and applies environment overrides. A
// missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if dsn, ok := os.LookupEnv(EnvPersistenceDSN); ok {
		c.Persistence.DSN = strings.TrimSpace(dsn)
	}
	if scope := strings.TrimSpace(os.Getenv(EnvPersistenceScope)); scope != "" {
		c.Persistence.Scope = scope
	}
	if engine := strings.TrimSpace(os.Getenv(EnvRulesEngine)); engine != "" {
		c.Rules.Engine = engine
	}
	if level := strings.TrimSpace(os.Getenv(EnvLogLevel)); level != "" {
		c.Logging.Level = level
	}
	if format := strings.TrimSpace(os.Getenv(EnvLogFormat)); format != "" {
		c.Logging.Format = format
	}
	if namespace := strings.TrimSpace(os.Getenv(EnvMetricsNamespace)); namespace != "" {
		c.Metrics.Namespace = namespace
	}
	if source := strings.TrimSpace(os.Getenv(EnvSource)); source != "" {
		c.Source = source
	}
	if raw := os.Getenv(EnvFeatures); raw != "" {
		c.applyFeatureList(raw)
	}
}

// applyFeatureList enables every comma separated name in raw. A leading "-"
// disables the feature instead.
func (c *Config) applyFeatureList(raw string) {
	if c.Features == nil {
		c.Features = map[string]bool{}
	}
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		switch {
		case name == "":
		case strings.HasPrefix(name, "-"):
			c.Features[strings.TrimPrefix(name, "-")] = false
		default:
			c.Features[strings.TrimPrefix(name, "+")] = true
		}
	}
}

// Validate checks the values Load cannot default.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Rules.Engine) {
	case "", rules.EngineExpr, rules.EngineCEL, rules.EngineJS:
	default:
		return fmt.Errorf("%w: unknown rules engine %q", ErrInvalidConfig, c.Rules.Engine)
	}
	if _, err := zap.ParseAtomicLevel(c.levelOrDefault()); err != nil {
		return fmt.Errorf("%w: logging level: %v", ErrInvalidConfig, err)
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("%w: unknown logging format %q", ErrInvalidConfig, c.Logging.Format)
	}
	if strings.Contains(c.Persistence.Scope, "/") {
		return fmt.Errorf("%w: persistence scope %q contains '/'", ErrInvalidConfig, c.Persistence.Scope)
	}
	return nil
}

// StoreFeatures returns the feature flags in the form the store expects.
func (c *Config) StoreFeatures() store.Features {
	features := make(store.Features, len(c.Features))
	for name, enabled := range c.Features {
		features[name] = enabled
	}
	return features
}

func (c *Config) levelOrDefault() string {
	if c.Logging.Level == "" {
		return "info"
	}
	return c.Logging.Level
}
