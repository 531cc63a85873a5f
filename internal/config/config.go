// Package config loads taskblast settings. Later sources override earlier
// ones: built-in defaults, an optional TOML file, then TASKBLAST_* variables.
// Command-line flags are applied on top by the cli package.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	EnvPrefix = "TASKBLAST_"

	// DefaultFileName is looked up in the working directory when no path is given.
	DefaultFileName = "taskblast.toml"
)

type Config struct {
	Port        string
	DBPath      string
	PrefsPath   string
	LogLevel    string
	Token       string
	SessionTTL  time.Duration
	PINAttempts int
	PINWindow   time.Duration
	Maintenance time.Duration
}

func Default() Config {
	return Config{
		Port:        "8080",
		DBPath:      "taskblast.db",
		PrefsPath:   "taskblast-prefs.json",
		LogLevel:    "info",
		SessionTTL:  30 * 24 * time.Hour,
		PINAttempts: 5,
		PINWindow:   time.Minute,
		Maintenance: 10 * time.Minute,
	}
}

// fileConfig mirrors the TOML layout. Durations are strings like "15m".
type fileConfig struct {
	Server struct {
		Port        string `toml:"port"`
		Maintenance string `toml:"maintenance"`
	} `toml:"server"`
	Database struct {
		Path string `toml:"path"`
	} `toml:"database"`
	Profile struct {
		PrefsPath string `toml:"prefs_path"`
		Token     string `toml:"token"`
	} `toml:"profile"`
	Log struct {
		Level string `toml:"level"`
	} `toml:"log"`
	Auth struct {
		SessionTTL  string `toml:"session_ttl"`
		PINAttempts int    `toml:"pin_attempts"`
		PINWindow   string `toml:"pin_window"`
	} `toml:"auth"`
}

// Load builds a Config from the defaults, the TOML file at path and the
// environment. An empty path tries DefaultFileName and skips it if absent;
// an explicit path must exist.
func Load(path string, getenv func(string) string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultFileName
	}
	if err := cfg.loadFile(path, explicit); err != nil {
		return Config{}, err
	}
	if getenv == nil {
		getenv = os.Getenv
	}
	if err := cfg.loadEnv(getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string, required bool) error {
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(content, &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&c.Port, fc.Server.Port)
	setString(&c.DBPath, fc.Database.Path)
	setString(&c.PrefsPath, fc.Profile.PrefsPath)
	setString(&c.Token, fc.Profile.Token)
	setString(&c.LogLevel, fc.Log.Level)
	if fc.Auth.PINAttempts != 0 {
		c.PINAttempts = fc.Auth.PINAttempts
	}
	for _, d := range []struct {
		dst *time.Duration
		raw string
		key string
	}{
		{&c.Maintenance, fc.Server.Maintenance, "server.maintenance"},
		{&c.SessionTTL, fc.Auth.SessionTTL, "auth.session_ttl"},
		{&c.PINWindow, fc.Auth.PINWindow, "auth.pin_window"},
	} {
		if err := setDuration(d.dst, d.raw); err != nil {
			return fmt.Errorf("parse config %s: %s: %w", path, d.key, err)
		}
	}
	return nil
}

func (c *Config) loadEnv(getenv func(string) string) error {
	setString(&c.Port, getenv(EnvPrefix+"PORT"))
	setString(&c.DBPath, getenv(EnvPrefix+"DB_PATH"))
	setString(&c.PrefsPath, getenv(EnvPrefix+"PREFS_PATH"))
	setString(&c.Token, getenv(EnvPrefix+"TOKEN"))
	setString(&c.LogLevel, getenv(EnvPrefix+"LOG_LEVEL"))

	if v := getenv(EnvPrefix + "PIN_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %sPIN_ATTEMPTS: %w", EnvPrefix, err)
		}
		c.PINAttempts = n
	}
	for _, d := range []struct {
		dst *time.Duration
		key string
	}{
		{&c.Maintenance, "MAINTENANCE"},
		{&c.SessionTTL, "SESSION_TTL"},
		{&c.PINWindow, "PIN_WINDOW"},
	} {
		if err := setDuration(d.dst, getenv(EnvPrefix+d.key)); err != nil {
			return fmt.Errorf("parse %s%s: %w", EnvPrefix, d.key, err)
		}
	}
	return nil
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("invalid port %q", c.Port)
	}
	if c.DBPath == "" {
		return errors.New("database path is required")
	}
	if c.PINAttempts <= 0 {
		return fmt.Errorf("pin attempts must be positive, got %d", c.PINAttempts)
	}
	if c.SessionTTL <= 0 || c.PINWindow <= 0 || c.Maintenance <= 0 {
		return errors.New("durations must be positive")
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, raw string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}
