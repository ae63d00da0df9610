package di

import (
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variables read by LoadConfig.
const EnvPrefix = "DI"

// Config controls injector behavior. It can be loaded from YAML:
//
//	strict: true
//	eager_singletons: true
//	default_scope: singleton
//	max_depth: 64
//	log_level: debug
type Config struct {
	// Strict turns tied bindings into AmbiguousBindingError instead of
	// choosing the most recently registered one.
	Strict bool `yaml:"strict" json:"strict"`

	// EagerSingletons creates every Singleton at Build time, dependencies first.
	EagerSingletons bool `yaml:"eager_singletons" json:"eager_singletons"`

	// EagerValidation plans every binding at Build time.
	EagerValidation bool `yaml:"eager_validation" json:"eager_validation"`

	// DefaultScope applies to bindings registered without InScope.
	DefaultScope ScopeKind `yaml:"default_scope" json:"default_scope"`

	// MaxDepth limits the depth of a resolution; 0 means unlimited.
	MaxDepth int `yaml:"max_depth" json:"max_depth"`

	// LogLevel builds a production zap logger at this level when no logger
	// is supplied (debug, info, warn, error). Empty disables logging.
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		DefaultScope: Unique,
	}
}

// ParseConfig parses YAML on top of the defaults and validates the result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadConfig loads configuration in priority order:
// 1. Default configuration
// 2. Configuration file (if path is not empty)
// 3. Environment variables (DI_STRICT, DI_EAGER_SINGLETONS, DI_EAGER_VALIDATION,
// DI_DEFAULT_SCOPE, DI_MAX_DEPTH, DI_LOG_LEVEL)
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse YAML config file: %w", err)
		}
	}

	if err := cfg.loadFromEnv(); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFromEnv() error {
	bools := map[string]*bool{
		"STRICT":           &c.Strict,
		"EAGER_SINGLETONS": &c.EagerSingletons,
		"EAGER_VALIDATION": &c.EagerValidation,
	}
	for name, field := range bools {
		if val := os.Getenv(EnvPrefix + "_" + name); val != "" {
			b, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("%s_%s: %w", EnvPrefix, name, err)
			}
			*field = b
		}
	}

	if val := os.Getenv(EnvPrefix + "_DEFAULT_SCOPE"); val != "" {
		if err := c.DefaultScope.UnmarshalText([]byte(val)); err != nil {
			return fmt.Errorf("%s_DEFAULT_SCOPE: %w", EnvPrefix, err)
		}
	}

	if val := os.Getenv(EnvPrefix + "_MAX_DEPTH"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("%s_MAX_DEPTH: %w", EnvPrefix, err)
		}
		c.MaxDepth = n
	}

	if val := os.Getenv(EnvPrefix + "_LOG_LEVEL"); val != "" {
		c.LogLevel = val
	}

	return nil
}

// Validate checks the configuration for invalid values.
func (c Config) Validate() error {
	if !c.DefaultScope.IsValid() {
		return ScopeError{Value: int(c.DefaultScope)}
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("max_depth must be >= 0, got %d", c.MaxDepth)
	}
	if c.LogLevel != "" {
		if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("log_level: %w", err)
		}
	}
	return nil
}

// newLogger builds the logger used when none is supplied.
func (c Config) newLogger() (*zap.Logger, error) {
	if c.LogLevel == "" {
		return zap.NewNop(), nil
	}

	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.EncoderConfig.TimeKey = "time"
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	return zapConfig.Build()
}
