package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/notepid/autocode/internal/autocode"
	"github.com/notepid/autocode/internal/ratelimit"
)

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverJSON   = "json"
)

// Config holds the server configuration. It is resolved once by Load and
// not modified afterwards.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Paths       PathsConfig       `yaml:"paths"`
	Storage     StorageConfig     `yaml:"storage"`
	Log         LogConfig         `yaml:"log"`
	Commands    CommandsConfig    `yaml:"commands"`
	Options     OptionsConfig     `yaml:"options"`
	Permissions PermissionsConfig `yaml:"permissions"`
}

// ServerConfig holds network listener settings.
type ServerConfig struct {
	TelnetPort int `yaml:"telnet_port"`
	AdminPort  int `yaml:"admin_port"`
	// AdminToken is the bearer token for the admin API; empty disables auth.
	AdminToken string `yaml:"admin_token"`
	// MaxNodes caps concurrent telnet sessions.
	MaxNodes int `yaml:"max_nodes"`
	// MaxEntities caps live locks in the world; 0 means unlimited.
	MaxEntities int `yaml:"max_entities"`
}

// PathsConfig holds filesystem paths for data and scripts.
type PathsConfig struct {
	Data        string `yaml:"data"`
	Database    string `yaml:"database"`
	DataFile    string `yaml:"data_file"`
	HooksScript string `yaml:"hooks_script"`
}

// StorageConfig selects where player settings are saved.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	// SaveSchedule is a cron spec for periodic server saves.
	SaveSchedule string `yaml:"save_schedule"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level string `yaml:"level"`
}

// CommandsConfig names the chat and console commands.
type CommandsConfig struct {
	Use          string `yaml:"use"`
	ResetLockout string `yaml:"reset_lockout"`
}

// OptionsConfig holds behaviour toggles.
type OptionsConfig struct {
	DisplayPermissionErrors bool                    `yaml:"display_permission_errors"`
	CaptureTimeout          time.Duration           `yaml:"capture_timeout"`
	SpamPrevention          SpamPreventionConfig    `yaml:"spam_prevention"`
	PluginIntegration       PluginIntegrationConfig `yaml:"plugin_integration"`
}

// SpamPreventionConfig configures the code change rate limiter.
type SpamPreventionConfig struct {
	Enabled                bool    `yaml:"enabled"`
	Attempts               int     `yaml:"attempts"`
	LockOutTime            float64 `yaml:"lock_out_time"`
	WindowTime             float64 `yaml:"window_time"`
	ExponentialLockOutTime bool    `yaml:"exponential_lock_out_time"`
	LockOutResetFactor     float64 `yaml:"lock_out_reset_factor"`
}

// PluginIntegrationConfig toggles hook-script integrations.
type PluginIntegrationConfig struct {
	BlockRaid   bool `yaml:"block_raid"`
	BlockCombat bool `yaml:"block_combat"`
}

// PermissionsConfig maps permission names to the minimum security level
// that grants them.
type PermissionsConfig map[string]int

// RateLimit converts the spam prevention options for the rate limiter.
func (c SpamPreventionConfig) RateLimit() ratelimit.Config {
	return ratelimit.Config{
		Enabled:               c.Enabled,
		MaxAttempts:           c.Attempts,
		WindowSeconds:         c.WindowTime,
		UseExponentialBackoff: c.ExponentialLockOutTime,
		BaseLockoutSeconds:    c.LockOutTime,
		ForgivenessFactor:     c.LockOutResetFactor,
	}
}

// Default returns the configuration used when a key is absent.
func Default() *Config {
	limits := ratelimit.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			TelnetPort: 2323,
			AdminPort:  8080,
			MaxNodes:   32,
		},
		Paths: PathsConfig{
			Data:        "./data",
			Database:    "./data/autocode.db",
			DataFile:    "./data/autocode.json",
			HooksScript: "./scripts/hooks.lua",
		},
		Storage: StorageConfig{
			Driver:       DriverSQLite,
			SaveSchedule: "@every 5m",
		},
		Log: LogConfig{Level: "info"},
		Commands: CommandsConfig{
			Use:          "code",
			ResetLockout: "autocode.resetlockout",
		},
		Options: OptionsConfig{
			DisplayPermissionErrors: true,
			CaptureTimeout:          20 * time.Second,
			SpamPrevention: SpamPreventionConfig{
				Enabled:                limits.Enabled,
				Attempts:               limits.MaxAttempts,
				LockOutTime:            limits.BaseLockoutSeconds,
				WindowTime:             limits.WindowSeconds,
				ExponentialLockOutTime: limits.UseExponentialBackoff,
				LockOutResetFactor:     limits.ForgivenessFactor,
			},
			PluginIntegration: PluginIntegrationConfig{
				BlockRaid:   true,
				BlockCombat: false,
			},
		},
		Permissions: PermissionsConfig{
			autocode.PermUse:   10,
			autocode.PermTry:   10,
			autocode.PermAdmin: 90,
		},
	}
}

// Load reads a YAML config file over the defaults, resolves deprecated
// keys, then applies AUTOCODE_* environment overrides. A .env file next to
// the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and resolves deprecated keys.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	var legacy legacyKeys
	if err := yaml.Unmarshal(data, &legacy); err != nil {
		return nil, err
	}
	legacy.apply(cfg)

	if cfg.Permissions == nil {
		cfg.Permissions = Default().Permissions
	}
	return cfg, nil
}

// legacyKeys captures deprecated spellings alongside their replacements so
// a replacement that is present always wins.
type legacyKeys struct {
	Options struct {
		DisplayPermissionErrors       *bool `yaml:"display_permission_errors"`
		LegacyDisplayPermissionErrors *bool `yaml:"displayPermissionErrors"`
		SpamPrevention                struct {
			ExponentialLockOutTime       *bool `yaml:"exponential_lock_out_time"`
			LegacyUseExponentialLockTime *bool `yaml:"use_exponential_lock_out_time"`
		} `yaml:"spam_prevention"`
	} `yaml:"options"`
}

func (l legacyKeys) apply(cfg *Config) {
	o := l.Options
	if o.DisplayPermissionErrors == nil && o.LegacyDisplayPermissionErrors != nil {
		cfg.Options.DisplayPermissionErrors = *o.LegacyDisplayPermissionErrors
	}
	sp := o.SpamPrevention
	if sp.ExponentialLockOutTime == nil && sp.LegacyUseExponentialLockTime != nil {
		cfg.Options.SpamPrevention.ExponentialLockOutTime = *sp.LegacyUseExponentialLockTime
	}
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("AUTOCODE_TELNET_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("AUTOCODE_TELNET_PORT: %w", err)
		}
		c.Server.TelnetPort = port
	}
	if v := os.Getenv("AUTOCODE_ADMIN_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("AUTOCODE_ADMIN_PORT: %w", err)
		}
		c.Server.AdminPort = port
	}
	if v := os.Getenv("AUTOCODE_ADMIN_TOKEN"); v != "" {
		c.Server.AdminToken = v
	}
	if v := os.Getenv("AUTOCODE_DATA"); v != "" {
		c.Paths.Data = v
	}
	if v := os.Getenv("AUTOCODE_DB"); v != "" {
		c.Paths.Database = v
	}
	if v := os.Getenv("AUTOCODE_STORAGE"); v != "" {
		c.Storage.Driver = strings.ToLower(v)
	}
	if v := os.Getenv("AUTOCODE_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	sp := c.Options.SpamPrevention
	switch {
	case sp.Attempts <= 0:
		return errors.New("options.spam_prevention.attempts must be positive")
	case sp.WindowTime <= 0:
		return errors.New("options.spam_prevention.window_time must be positive")
	case sp.LockOutTime <= 0:
		return errors.New("options.spam_prevention.lock_out_time must be positive")
	case c.Options.CaptureTimeout <= 0:
		return errors.New("options.capture_timeout must be positive")
	case c.Server.MaxNodes <= 0:
		return errors.New("server.max_nodes must be positive")
	}
	switch c.Storage.Driver {
	case DriverSQLite, DriverJSON:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if strings.TrimSpace(c.Commands.Use) == "" {
		return errors.New("commands.use must not be empty")
	}
	return nil
}
