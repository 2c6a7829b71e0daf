package commands

import (
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	"go.yaml.in/yaml/v4"

	"github.com/erraggy/oasgate/bridge"
	"github.com/erraggy/oasgate/oaserrors"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "OASGATE_"

// ServeConfig is the effective configuration of the serve command. Values
// resolve in order: defaults, config file, environment, explicit flags.
type ServeConfig struct {
	Spec              string        `yaml:"spec"`
	Upstream          string        `yaml:"upstream"`
	Listen            string        `yaml:"listen"`
	BasePath          string        `yaml:"base_path,omitempty"`
	ValidateResponses bool          `yaml:"validate_responses"`
	StrictValidation  bool          `yaml:"strict_validation"`
	StrictRouting     bool          `yaml:"strict_routing"`
	ReceiveTimeout    time.Duration `yaml:"receive_timeout"`
	MaxBodySize       int64         `yaml:"max_body_size"`
	MetricsPath       string        `yaml:"metrics_path"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	LogLevel          string        `yaml:"log_level"`
	Dev               bool          `yaml:"dev"`
}

// DefaultServeConfig returns the defaults of the serve command.
func DefaultServeConfig() *ServeConfig {
	return &ServeConfig{
		Listen:          ":8000",
		MaxBodySize:     bridge.DefaultMaxBodySize,
		MetricsPath:     "/metrics",
		ShutdownTimeout: 10 * time.Second,
		LogLevel:        "info",
	}
}

// LoadConfigFile overlays the YAML file at path onto cfg. Keys missing from
// the file keep their current values.
func LoadConfigFile(cfg *ServeConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading config file %s", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return &oaserrors.ConfigError{Option: "config", Value: path, Message: "invalid YAML", Cause: err}
	}
	return nil
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is only
// an error when required is true.
func LoadEnvFile(path string, required bool) error {
	if _, err := os.Stat(path); err != nil {
		if !required && os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "env file %s", path)
	}
	if err := godotenv.Load(path); err != nil {
		return errors.Wrapf(err, "loading env file %s", path)
	}
	return nil
}

// ApplyEnv overlays OASGATE_* variables read through lookup onto cfg.
func ApplyEnv(cfg *ServeConfig, lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	boolean := func(name string, dst *bool) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return envError(name, v, err)
		}
		*dst = b
		return nil
	}
	duration := func(name string, dst *time.Duration) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return envError(name, v, err)
		}
		*dst = d
		return nil
	}

	str("SPEC", &cfg.Spec)
	str("UPSTREAM", &cfg.Upstream)
	str("LISTEN", &cfg.Listen)
	str("BASE_PATH", &cfg.BasePath)
	str("METRICS_PATH", &cfg.MetricsPath)
	str("LOG_LEVEL", &cfg.LogLevel)

	for name, dst := range map[string]*bool{
		"VALIDATE_RESPONSES": &cfg.ValidateResponses,
		"STRICT_VALIDATION":  &cfg.StrictValidation,
		"STRICT_ROUTING":     &cfg.StrictRouting,
		"DEV":                &cfg.Dev,
	} {
		if err := boolean(name, dst); err != nil {
			return err
		}
	}
	if err := duration("RECEIVE_TIMEOUT", &cfg.ReceiveTimeout); err != nil {
		return err
	}
	if err := duration("SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout); err != nil {
		return err
	}
	if v, ok := lookup(EnvPrefix + "MAX_BODY_SIZE"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return envError("MAX_BODY_SIZE", v, err)
		}
		cfg.MaxBodySize = n
	}
	return nil
}

func envError(name, value string, err error) error {
	return &oaserrors.ConfigError{Option: EnvPrefix + name, Value: value, Message: "invalid value", Cause: err}
}

// Validate checks that the configuration can start a server.
func (c *ServeConfig) Validate() error {
	if c.Spec == "" {
		return &oaserrors.ConfigError{Option: "spec", Message: "an API declaration is required"}
	}
	if c.Upstream == "" {
		return &oaserrors.ConfigError{Option: "upstream", Message: "an upstream URL is required"}
	}
	u, err := url.Parse(c.Upstream)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &oaserrors.ConfigError{Option: "upstream", Value: c.Upstream, Message: "must be an absolute http(s) URL"}
	}
	if c.Listen == "" {
		return &oaserrors.ConfigError{Option: "listen", Message: "a listen address is required"}
	}
	if c.ReceiveTimeout < 0 {
		return &oaserrors.ConfigError{Option: "receive timeout", Value: c.ReceiveTimeout, Message: "cannot be negative"}
	}
	if c.MaxBodySize < 0 {
		return &oaserrors.ConfigError{Option: "max body size", Value: c.MaxBodySize, Message: "cannot be negative"}
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return &oaserrors.ConfigError{Option: "log level", Value: c.LogLevel, Message: "unknown level", Cause: err}
	}
	return nil
}
