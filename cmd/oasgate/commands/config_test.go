package commands

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erraggy/oasgate/bridge"
	"github.com/erraggy/oasgate/oaserrors"
)

func envMap(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func noFlags(string) bool { return false }

func TestDefaultServeConfig(t *testing.T) {
	cfg := DefaultServeConfig()
	assert.Equal(t, ":8000", cfg.Listen)
	assert.Equal(t, bridge.DefaultMaxBodySize, cfg.MaxBodySize)
	assert.Equal(t, "/metrics", cfg.MetricsPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Zero(t, cfg.ReceiveTimeout)
}

func TestLoadConfigFile(t *testing.T) {
	path := writeFile(t, "oasgate.yaml", `
spec: api.yaml
upstream: http://127.0.0.1:8080
receive_timeout: 30s
strict_routing: true
max_body_size: 1024
`)
	cfg := DefaultServeConfig()
	require.NoError(t, LoadConfigFile(cfg, path))

	assert.Equal(t, "api.yaml", cfg.Spec)
	assert.Equal(t, "http://127.0.0.1:8080", cfg.Upstream)
	assert.Equal(t, 30*time.Second, cfg.ReceiveTimeout)
	assert.True(t, cfg.StrictRouting)
	assert.Equal(t, int64(1024), cfg.MaxBodySize)
	assert.Equal(t, ":8000", cfg.Listen, "keys missing from the file keep their defaults")

	t.Run("invalid YAML", func(t *testing.T) {
		err := LoadConfigFile(DefaultServeConfig(), writeFile(t, "bad.yaml", "spec: [unclosed"))
		assert.ErrorIs(t, err, oaserrors.ErrConfig)
	})

	t.Run("missing file", func(t *testing.T) {
		err := LoadConfigFile(DefaultServeConfig(), filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorContains(t, err, "reading config file")
	})
}

func TestApplyEnv(t *testing.T) {
	cfg := DefaultServeConfig()
	err := ApplyEnv(cfg, envMap(map[string]string{
		"OASGATE_SPEC":               "env.yaml",
		"OASGATE_UPSTREAM":           "https://api.internal",
		"OASGATE_VALIDATE_RESPONSES": "true",
		"OASGATE_RECEIVE_TIMEOUT":    "5s",
		"OASGATE_MAX_BODY_SIZE":      "0",
		"OASGATE_LOG_LEVEL":          "debug",
		"UNRELATED":                  "x",
	}))
	require.NoError(t, err)

	assert.Equal(t, "env.yaml", cfg.Spec)
	assert.Equal(t, "https://api.internal", cfg.Upstream)
	assert.True(t, cfg.ValidateResponses)
	assert.Equal(t, 5*time.Second, cfg.ReceiveTimeout)
	assert.Zero(t, cfg.MaxBodySize)
	assert.Equal(t, "debug", cfg.LogLevel)

	for key, value := range map[string]string{
		"OASGATE_DEV":              "maybe",
		"OASGATE_RECEIVE_TIMEOUT":  "soon",
		"OASGATE_SHUTDOWN_TIMEOUT": "10",
		"OASGATE_MAX_BODY_SIZE":    "1MB",
	} {
		t.Run(key, func(t *testing.T) {
			err := ApplyEnv(DefaultServeConfig(), envMap(map[string]string{key: value}))
			assert.ErrorIs(t, err, oaserrors.ErrConfig)
			assert.ErrorContains(t, err, key)
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), ".env")
	assert.NoError(t, LoadEnvFile(missing, false))
	assert.Error(t, LoadEnvFile(missing, true))

	path := writeFile(t, ".env", "OASGATE_TEST_ENV_FILE=loaded\n")
	t.Cleanup(func() { _ = os.Unsetenv("OASGATE_TEST_ENV_FILE") })
	require.NoError(t, LoadEnvFile(path, true))
	assert.Equal(t, "loaded", os.Getenv("OASGATE_TEST_ENV_FILE"))
}

func TestServeConfig_Validate(t *testing.T) {
	valid := func() *ServeConfig {
		cfg := DefaultServeConfig()
		cfg.Spec = "api.yaml"
		cfg.Upstream = "http://localhost:8080"
		return cfg
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*ServeConfig)
		option string
	}{
		{"missing spec", func(c *ServeConfig) { c.Spec = "" }, "spec"},
		{"missing upstream", func(c *ServeConfig) { c.Upstream = "" }, "upstream"},
		{"relative upstream", func(c *ServeConfig) { c.Upstream = "localhost:8080" }, "upstream"},
		{"ftp upstream", func(c *ServeConfig) { c.Upstream = "ftp://files" }, "upstream"},
		{"empty listen", func(c *ServeConfig) { c.Listen = "" }, "listen"},
		{"negative timeout", func(c *ServeConfig) { c.ReceiveTimeout = -time.Second }, "receive timeout"},
		{"negative body size", func(c *ServeConfig) { c.MaxBodySize = -1 }, "max body size"},
		{"unknown log level", func(c *ServeConfig) { c.LogLevel = "chatty" }, "log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			var cerr *oaserrors.ConfigError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.option, cerr.Option)
		})
	}
}

func TestServeOptions_Resolve(t *testing.T) {
	configPath := writeFile(t, "oasgate.yaml", `
spec: file.yaml
upstream: http://file:1
listen: ":7000"
log_level: warn
`)

	t.Run("file, then env, then flags", func(t *testing.T) {
		opts := &serveOptions{configPath: configPath}
		opts.flags.Listen = ":9000"
		opts.flags.LogLevel = "info"
		changed := func(name string) bool { return name == "listen" }

		cfg, err := opts.resolve(changed, envMap(map[string]string{
			"OASGATE_UPSTREAM":  "http://env:2",
			"OASGATE_LOG_LEVEL": "error",
		}))
		require.NoError(t, err)
		assert.Equal(t, "file.yaml", cfg.Spec)
		assert.Equal(t, "http://env:2", cfg.Upstream)
		assert.Equal(t, ":9000", cfg.Listen)
		assert.Equal(t, "error", cfg.LogLevel, "unchanged flags do not override")
	})

	t.Run("config path from the environment", func(t *testing.T) {
		cfg, err := (&serveOptions{}).resolve(noFlags, envMap(map[string]string{"OASGATE_CONFIG": configPath}))
		require.NoError(t, err)
		assert.Equal(t, ":7000", cfg.Listen)
	})

	t.Run("explicit env file must exist", func(t *testing.T) {
		opts := &serveOptions{envFile: filepath.Join(t.TempDir(), "missing.env"), configPath: configPath}
		_, err := opts.resolve(func(name string) bool { return name == "env-file" }, envMap(nil))
		assert.Error(t, err)

		_, err = opts.resolve(noFlags, envMap(nil))
		assert.NoError(t, err, "the default env file is optional")
	})

	t.Run("invalid result", func(t *testing.T) {
		_, err := (&serveOptions{}).resolve(noFlags, envMap(nil))
		assert.ErrorIs(t, err, oaserrors.ErrConfig)
	})
}
