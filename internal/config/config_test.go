package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	c, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "localhost", c.Host)
	require.Equal(t, uint16(0), c.Port)
	require.Equal(t, "18", c.Version)
	require.Equal(t, "info", c.LogLevel)
	require.True(t, c.History.Enabled)
}

func TestLoadFromTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pgrun.toml")
	content := `
data_dir = "/var/lib/pgrun/main"
host = "127.0.0.1"
port = 5433
log_level = "debug"

[log]
path = "/var/log/pgrun/server.log"
max_size_mb = 5

[history]
enabled = false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/var/lib/pgrun/main", c.DataDir)
	require.Equal(t, "127.0.0.1", c.Host)
	require.Equal(t, uint16(5433), c.Port)
	require.Equal(t, "debug", c.LogLevel)
	require.Equal(t, "/var/log/pgrun/server.log", c.Log.Path)
	require.Equal(t, 5, c.Log.MaxSizeMB)
	require.False(t, c.History.Enabled)
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestResolveDataDirPrecedence(t *testing.T) {
	c := Config{DataDir: "/from/config"}

	got, err := c.ResolveDataDir("")
	require.NoError(t, err)
	require.Equal(t, "/from/config", got)

	got, err = c.ResolveDataDir("/from/flag")
	require.NoError(t, err)
	require.Equal(t, "/from/flag", got)

	t.Setenv(DataDirEnv, "/from/env")
	got, err = c.ResolveDataDir("/from/flag")
	require.NoError(t, err)
	require.Equal(t, "/from/env", got)
}

func TestResolveDataDirMissingEverywhere(t *testing.T) {
	t.Setenv(DataDirEnv, "")
	_, err := (Config{}).ResolveDataDir("")
	require.Error(t, err)
}

func TestEnvOverridesFileValue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pgrun.toml")
	require.NoError(t, os.WriteFile(path, []byte("host = \"10.0.0.1\"\n"), 0o600))
	t.Setenv("PGRUN_HOST", "override.local")

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "override.local", c.Host)
}

func TestEnvBindsKeysWithoutFileValue(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PGRUN_PG_BIN", "/opt/pg18/bin")
	t.Setenv("PGRUN_LOG_PATH", "/var/log/pgrun/server.log")
	t.Setenv("PGRUN_HISTORY_DSN", "/var/lib/pgrun/history.db")

	c, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "/opt/pg18/bin", c.PgBin)
	require.Equal(t, "/var/log/pgrun/server.log", c.Log.Path)
	require.Equal(t, "/var/lib/pgrun/history.db", c.History.DSN)
}
