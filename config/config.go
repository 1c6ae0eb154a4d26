// Package config provides configuration loading for the apiwarden proxy.
//
// Configuration comes from a YAML file with APIWARDEN_* environment
// variable overrides, e.g. APIWARDEN_SERVER_LISTEN_ADDR overrides
// server.listen_addr.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is the top-level configuration for the apiwarden proxy.
type Config struct {
	// Server configures the HTTP listener.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Upstream is the base URL traffic is proxied to.
	Upstream UpstreamConfig `yaml:"upstream" mapstructure:"upstream"`

	// Contract configures the validated API contract.
	Contract ContractConfig `yaml:"contract" mapstructure:"contract"`

	// Validation configures the engine and enforcement behavior.
	Validation ValidationConfig `yaml:"validation" mapstructure:"validation"`

	// Skip configures traffic excluded from validation.
	Skip SkipConfig `yaml:"skip" mapstructure:"skip"`

	// Log configures structured logging output.
	Log LogConfig `yaml:"log" mapstructure:"log"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// ListenAddr is the host:port the proxy listens on.
	ListenAddr string `yaml:"listen_addr" mapstructure:"listen_addr" validate:"required,hostname_port"`

	// ShutdownTimeout bounds graceful shutdown, e.g. "10s".
	ShutdownTimeout string `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout" validate:"omitempty"`
}

// UpstreamConfig configures the proxied backend.
type UpstreamConfig struct {
	// URL is the upstream base URL, e.g. "http://localhost:8080".
	URL string `yaml:"url" mapstructure:"url" validate:"required,url"`
}

// ContractConfig configures the API contract source.
type ContractConfig struct {
	// Path is the contract file (YAML or JSON).
	Path string `yaml:"path" mapstructure:"path" validate:"required"`

	// Watch reloads the contract when the file changes.
	Watch bool `yaml:"watch" mapstructure:"watch"`
}

// ValidationConfig configures the engine and enforcement behavior.
type ValidationConfig struct {
	// Strict enables the undeclared-element audit.
	Strict bool `yaml:"strict" mapstructure:"strict"`

	// HardMode rejects non-conforming requests instead of only
	// reporting them.
	HardMode bool `yaml:"hard_mode" mapstructure:"hard_mode"`

	// HardModeGovernance extends hard mode to governance-only outcomes.
	// Ignored unless HardMode is set.
	HardModeGovernance bool `yaml:"hard_mode_governance" mapstructure:"hard_mode_governance"`

	// MaxBodyBytes caps the buffered body size per message.
	MaxBodyBytes int64 `yaml:"max_body_bytes" mapstructure:"max_body_bytes" validate:"gte=0"`
}

// SkipConfig configures traffic excluded from validation.
type SkipConfig struct {
	// PathPrefixes lists path prefixes that bypass validation.
	PathPrefixes []string `yaml:"path_prefixes" mapstructure:"path_prefixes"`

	// Methods lists HTTP methods that bypass validation.
	Methods []string `yaml:"methods" mapstructure:"methods"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`

	// Format is text or json.
	Format string `yaml:"format" mapstructure:"format" validate:"omitempty,oneof=text json"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Enabled exposes /metrics on the proxy listener.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// Defaults applied when the file and environment leave fields unset.
const (
	DefaultListenAddr      = "localhost:8880"
	DefaultShutdownTimeout = "10s"
	DefaultMaxBodyBytes    = 10 << 20
)

// SetDefaults fills unset optional fields.
func (c *Config) SetDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = DefaultListenAddr
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.Validation.MaxBodyBytes == 0 {
		c.Validation.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks the configuration using struct tags plus cross-field
// rules, returning actionable messages.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	if c.Validation.HardModeGovernance && !c.Validation.HardMode {
		return errors.New("validation: hard_mode_governance requires hard_mode")
	}
	if c.Validation.HardModeGovernance && !c.Validation.Strict {
		return errors.New("validation: hard_mode_governance requires strict")
	}
	return nil
}

// Load reads the configuration file at path (optional), applies
// APIWARDEN_* environment overrides and defaults, and validates the
// result. An empty path means environment-only configuration.
func Load(path string) (*Config, error) {
	vp := viper.New()
	if path != "" {
		vp.SetConfigFile(path)
	} else {
		vp.SetConfigName("apiwarden")
		vp.SetConfigType("yaml")
		vp.AddConfigPath(".")
	}

	vp.SetEnvPrefix("APIWARDEN")
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	vp.AutomaticEnv()
	bindEnvKeys(vp)

	if err := vp.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: reading config file: %w", err)
		}
		// No file found in the search path; environment-only mode.
	}

	var cfg Config
	if err := vp.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshaling: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// bindEnvKeys binds every scalar key so nested values can be overridden
// via environment variables, e.g. APIWARDEN_VALIDATION_STRICT.
func bindEnvKeys(vp *viper.Viper) {
	for _, key := range []string{
		"server.listen_addr",
		"server.shutdown_timeout",
		"upstream.url",
		"contract.path",
		"contract.watch",
		"validation.strict",
		"validation.hard_mode",
		"validation.hard_mode_governance",
		"validation.max_body_bytes",
		"log.level",
		"log.format",
		"metrics.enabled",
	} {
		_ = vp.BindEnv(key)
	}
}

// formatValidationErrors converts validator.ValidationErrors to
// user-friendly messages.
func formatValidationErrors(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	messages := make([]string, 0, len(verrs))
	for _, e := range verrs {
		messages = append(messages, formatFieldError(e))
	}
	return errors.New(strings.Join(messages, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := e.Namespace()
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "hostname_port":
		return fmt.Sprintf("%s must be a valid host:port", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, e.Tag())
	}
}
