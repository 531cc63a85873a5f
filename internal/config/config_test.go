package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "taskblast.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"), envMap(nil))
	assert.Error(t, err)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
[server]
port = "9090"
maintenance = "1m"

[database]
path = "/var/lib/taskblast/data.db"

[profile]
prefs_path = "/tmp/prefs.json"

[log]
level = "debug"

[auth]
session_ttl = "12h"
pin_attempts = 3
pin_window = "30s"
`)

	cfg, err := Load(path, envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, time.Minute, cfg.Maintenance)
	assert.Equal(t, "/var/lib/taskblast/data.db", cfg.DBPath)
	assert.Equal(t, "/tmp/prefs.json", cfg.PrefsPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 3, cfg.PINAttempts)
	assert.Equal(t, 30*time.Second, cfg.PINWindow)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "[log]\nlevel = \"warn\"\n")

	cfg, err := Load(path, envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, Default().Port, cfg.Port)
	assert.Equal(t, Default().PINAttempts, cfg.PINAttempts)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "[server]\nport = \"9090\"\n[auth]\npin_window = \"30s\"\n")

	cfg, err := Load(path, envMap(map[string]string{
		"TASKBLAST_PORT":         "7070",
		"TASKBLAST_PIN_WINDOW":   "2m",
		"TASKBLAST_PIN_ATTEMPTS": "10",
		"TASKBLAST_TOKEN":        "abc",
	}))
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, 2*time.Minute, cfg.PINWindow)
	assert.Equal(t, 10, cfg.PINAttempts)
	assert.Equal(t, "abc", cfg.Token)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  map[string]string
	}{
		{name: "bad toml", file: "[server\nport = 1"},
		{name: "bad duration in file", file: "[auth]\nsession_ttl = \"forever\"\n"},
		{name: "bad duration in env", env: map[string]string{"TASKBLAST_PIN_WINDOW": "soon"}},
		{name: "bad attempts in env", env: map[string]string{"TASKBLAST_PIN_ATTEMPTS": "many"}},
		{name: "non-numeric port", env: map[string]string{"TASKBLAST_PORT": "http"}},
		{name: "zero attempts", file: "[auth]\npin_attempts = -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.file)
			_, err := Load(path, envMap(tt.env))
			assert.Error(t, err)
		})
	}
}
