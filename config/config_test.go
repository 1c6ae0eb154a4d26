package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "apiwarden.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

const minimalConfig = `
upstream:
  url: http://localhost:9000
contract:
  path: testdata/api.yaml
`

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9000", cfg.Upstream.URL)
	assert.Equal(t, "testdata/api.yaml", cfg.Contract.Path)

	t.Run("defaults applied", func(t *testing.T) {
		assert.Equal(t, DefaultListenAddr, cfg.Server.ListenAddr)
		assert.Equal(t, DefaultShutdownTimeout, cfg.Server.ShutdownTimeout)
		assert.Equal(t, int64(DefaultMaxBodyBytes), cfg.Validation.MaxBodyBytes)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.Equal(t, "text", cfg.Log.Format)
		assert.False(t, cfg.Validation.Strict)
		assert.False(t, cfg.Validation.HardMode)
	})
}

func TestLoad_FullConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  listen_addr: 0.0.0.0:8081
  shutdown_timeout: 30s
upstream:
  url: http://backend:9000
contract:
  path: /etc/apiwarden/api.yaml
  watch: true
validation:
  strict: true
  hard_mode: true
  hard_mode_governance: true
  max_body_bytes: 1048576
skip:
  path_prefixes: [/healthz, /metrics]
  methods: [OPTIONS]
log:
  level: debug
  format: json
metrics:
  enabled: true
`))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8081", cfg.Server.ListenAddr)
	assert.True(t, cfg.Contract.Watch)
	assert.True(t, cfg.Validation.Strict)
	assert.True(t, cfg.Validation.HardMode)
	assert.True(t, cfg.Validation.HardModeGovernance)
	assert.Equal(t, int64(1048576), cfg.Validation.MaxBodyBytes)
	assert.Equal(t, []string{"/healthz", "/metrics"}, cfg.Skip.PathPrefixes)
	assert.Equal(t, []string{"OPTIONS"}, cfg.Skip.Methods)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("APIWARDEN_UPSTREAM_URL", "http://override:7000")
	t.Setenv("APIWARDEN_VALIDATION_STRICT", "true")
	t.Setenv("APIWARDEN_LOG_FORMAT", "json")

	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "http://override:7000", cfg.Upstream.URL)
	assert.True(t, cfg.Validation.Strict)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			"missing upstream url",
			"contract:\n  path: api.yaml\n",
			"Upstream.URL is required",
		},
		{
			"missing contract path",
			"upstream:\n  url: http://localhost:9000\n",
			"Contract.Path is required",
		},
		{
			"bad upstream url",
			"upstream:\n  url: not a url\ncontract:\n  path: api.yaml\n",
			"must be a valid URL",
		},
		{
			"bad listen addr",
			"server:\n  listen_addr: nope\nupstream:\n  url: http://localhost:9000\ncontract:\n  path: api.yaml\n",
			"must be a valid host:port",
		},
		{
			"bad log level",
			"log:\n  level: verbose\nupstream:\n  url: http://localhost:9000\ncontract:\n  path: api.yaml\n",
			"must be one of: debug info warn error",
		},
		{
			"governance hard mode without hard mode",
			"validation:\n  strict: true\n  hard_mode_governance: true\nupstream:\n  url: http://localhost:9000\ncontract:\n  path: api.yaml\n",
			"hard_mode_governance requires hard_mode",
		},
		{
			"governance hard mode without strict",
			"validation:\n  hard_mode: true\n  hard_mode_governance: true\nupstream:\n  url: http://localhost:9000\ncontract:\n  path: api.yaml\n",
			"hard_mode_governance requires strict",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tt.yaml))
			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
