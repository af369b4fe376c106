package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	require.NoError(t, err)

	assert.Equal(t, 2323, cfg.Server.TelnetPort)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "@every 5m", cfg.Storage.SaveSchedule)
	assert.Equal(t, "code", cfg.Commands.Use)
	assert.Equal(t, 20*time.Second, cfg.Options.CaptureTimeout)
	assert.True(t, cfg.Options.DisplayPermissionErrors)
	assert.True(t, cfg.Options.PluginIntegration.BlockRaid)
	assert.False(t, cfg.Options.PluginIntegration.BlockCombat)

	limits := cfg.Options.SpamPrevention.RateLimit()
	assert.True(t, limits.Enabled)
	assert.Equal(t, 5, limits.MaxAttempts)
	assert.Equal(t, 30.0, limits.WindowSeconds)
	assert.Equal(t, 5.0, limits.BaseLockoutSeconds)
	assert.True(t, limits.UseExponentialBackoff)
	assert.Equal(t, 5.0, limits.ForgivenessFactor)

	assert.Equal(t, 90, cfg.Permissions["autocode.admin"])
	require.NoError(t, cfg.Validate())
}

func TestParseOverrides(t *testing.T) {
	cfg, err := Parse([]byte(`
server:
  telnet_port: 4000
storage:
  driver: json
options:
  capture_timeout: 45s
  spam_prevention:
    attempts: 3
    exponential_lock_out_time: false
permissions:
  autocode.use: 20
`))
	require.NoError(t, err)

	assert.Equal(t, 4000, cfg.Server.TelnetPort)
	assert.Equal(t, 8080, cfg.Server.AdminPort, "unset keys keep defaults")
	assert.Equal(t, DriverJSON, cfg.Storage.Driver)
	assert.Equal(t, 45*time.Second, cfg.Options.CaptureTimeout)
	assert.Equal(t, 3, cfg.Options.SpamPrevention.Attempts)
	assert.Equal(t, 30.0, cfg.Options.SpamPrevention.WindowTime)
	assert.False(t, cfg.Options.SpamPrevention.ExponentialLockOutTime)
	assert.Equal(t, 20, cfg.Permissions["autocode.use"])
}

func TestParseLegacyKeys(t *testing.T) {
	t.Run("legacy key used when new key absent", func(t *testing.T) {
		cfg, err := Parse([]byte(`
options:
  displayPermissionErrors: false
  spam_prevention:
    use_exponential_lock_out_time: false
`))
		require.NoError(t, err)
		assert.False(t, cfg.Options.DisplayPermissionErrors)
		assert.False(t, cfg.Options.SpamPrevention.ExponentialLockOutTime)
	})

	t.Run("new key wins", func(t *testing.T) {
		cfg, err := Parse([]byte(`
options:
  display_permission_errors: true
  displayPermissionErrors: false
`))
		require.NoError(t, err)
		assert.True(t, cfg.Options.DisplayPermissionErrors)
	})

	t.Run("new exponential key wins", func(t *testing.T) {
		cfg, err := Parse([]byte(`
options:
  spam_prevention:
    exponential_lock_out_time: true
    use_exponential_lock_out_time: false
`))
		require.NoError(t, err)
		assert.True(t, cfg.Options.SpamPrevention.ExponentialLockOutTime)
	})

	t.Run("absent legacy keys keep defaults", func(t *testing.T) {
		cfg, err := Parse([]byte(`log: {level: debug}`))
		require.NoError(t, err)
		assert.True(t, cfg.Options.DisplayPermissionErrors)
		assert.True(t, cfg.Options.SpamPrevention.ExponentialLockOutTime)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero attempts", func(c *Config) { c.Options.SpamPrevention.Attempts = 0 }},
		{"negative window", func(c *Config) { c.Options.SpamPrevention.WindowTime = -1 }},
		{"zero lockout", func(c *Config) { c.Options.SpamPrevention.LockOutTime = 0 }},
		{"zero capture timeout", func(c *Config) { c.Options.CaptureTimeout = 0 }},
		{"zero nodes", func(c *Config) { c.Server.MaxNodes = 0 }},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "postgres" }},
		{"empty command", func(c *Config) { c.Commands.Use = " " }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  telnet_port: 5000\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("AUTOCODE_LOG_LEVEL=debug\n"), 0o644))
	t.Setenv("AUTOCODE_ADMIN_PORT", "9191")
	t.Setenv("AUTOCODE_ADMIN_TOKEN", "s3cret")
	// godotenv never overrides variables that are already set.
	t.Setenv("AUTOCODE_LOG_LEVEL", "")
	os.Unsetenv("AUTOCODE_LOG_LEVEL")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.TelnetPort)
	assert.Equal(t, 9191, cfg.Server.AdminPort)
	assert.Equal(t, "s3cret", cfg.Server.AdminToken)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadErrors(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load("does-not-exist.yaml")
	assert.Error(t, err)

	require.NoError(t, os.WriteFile("bad.yaml", []byte("options: [nope"), 0o644))
	_, err = Load("bad.yaml")
	assert.Error(t, err)

	t.Setenv("AUTOCODE_TELNET_PORT", "abc")
	require.NoError(t, os.WriteFile("ok.yaml", []byte("{}"), 0o644))
	_, err = Load("ok.yaml")
	assert.Error(t, err)
}
