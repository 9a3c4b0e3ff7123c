package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/loykin/pgrun/internal/engine"
)

// DataDirEnv overrides the --data-dir flag when set. Environment wins over
// the argument so wrapper scripts can pin the identity for every subcommand.
const DataDirEnv = "PGRUN_DATA_DIR"

// Config is the top-level TOML structure, also bindable through PGRUN_*
// environment variables.
type Config struct {
	DataDir  string        `toml:"data_dir" mapstructure:"data_dir"`
	Host     string        `toml:"host" mapstructure:"host"`
	Port     uint16        `toml:"port" mapstructure:"port"`
	Version  string        `toml:"version" mapstructure:"version"`
	PgBin    string        `toml:"pg_bin" mapstructure:"pg_bin"`
	LogLevel string        `toml:"log_level" mapstructure:"log_level"`
	Log      LogConfig     `toml:"log" mapstructure:"log"`
	History  HistoryConfig `toml:"history" mapstructure:"history"`
}

// LogConfig controls the captured server log. Path empty means the sidecar
// default next to the data directory.
type LogConfig struct {
	Path       string `toml:"path" mapstructure:"path"`
	MaxSizeMB  int    `toml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `toml:"compress" mapstructure:"compress"`
}

// HistoryConfig controls the lifecycle audit database. DSN empty means the
// sidecar default next to the data directory.
type HistoryConfig struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled"`
	DSN     string `toml:"dsn" mapstructure:"dsn"`
}

// Load reads the optional config file and the PGRUN_* environment. An
// explicit path must exist; the implicit ./pgrun.toml may be absent.
func Load(path string) (Config, error) {
	v := viper.New()
	// Every key needs a default: viper only decodes environment values for
	// keys it already knows about.
	v.SetDefault("data_dir", "")
	v.SetDefault("host", "localhost")
	v.SetDefault("port", 0)
	v.SetDefault("version", engine.PinnedVersion)
	v.SetDefault("pg_bin", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log.path", "")
	v.SetDefault("log.max_size_mb", 0)
	v.SetDefault("log.max_backups", 0)
	v.SetDefault("log.max_age_days", 0)
	v.SetDefault("log.compress", false)
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.dsn", "")

	v.SetEnvPrefix("PGRUN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("pgrun")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return c, nil
}

// ResolveDataDir applies the precedence: environment override, then the CLI
// flag, then the config file.
func (c Config) ResolveDataDir(flagValue string) (string, error) {
	if env := strings.TrimSpace(os.Getenv(DataDirEnv)); env != "" {
		return env, nil
	}
	if flagValue != "" {
		return flagValue, nil
	}
	if c.DataDir != "" {
		return c.DataDir, nil
	}
	return "", fmt.Errorf("data directory required (--data-dir flag, %s env, or data_dir in config)", DataDirEnv)
}
