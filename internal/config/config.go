// Package config loads prospector settings from config file, environment,
// and defaults, in that precedence order (highest first: explicit flags
// handled by the CLI layer, then PROSPECTOR_* environment variables, then
// the config file, then defaults).
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the resolved runtime configuration.
type Config struct {
	Remote    RemoteConfig    `mapstructure:"remote"`
	Sync      SyncConfig      `mapstructure:"sync"`
	DB        DBConfig        `mapstructure:"db"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Log       LogConfig       `mapstructure:"log"`
}

// RemoteConfig configures the system-of-record client.
type RemoteConfig struct {
	BaseURL            string        `mapstructure:"base_url"`
	APIToken           string        `mapstructure:"api_token"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	MinRequestInterval time.Duration `mapstructure:"min_request_interval"`
}

// SyncConfig configures the background sync loop.
type SyncConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Backoff  time.Duration `mapstructure:"backoff"`
	// MappingPath is an optional field-mapping override file,
	// hot-reloaded by the daemon.
	MappingPath string `mapstructure:"mapping_path"`
}

// DBConfig configures the local mirror store.
type DBConfig struct {
	Path string `mapstructure:"path"`
}

// DashboardConfig configures the monitoring server.
type DashboardConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig configures daemon log output.
type LogConfig struct {
	// File receives daemon logs with rotation; empty means stderr.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("remote.base_url", "")
	v.SetDefault("remote.api_token", "")
	v.SetDefault("remote.request_timeout", 30*time.Second)
	v.SetDefault("remote.min_request_interval", 250*time.Millisecond)

	v.SetDefault("sync.interval", 5*time.Minute)
	v.SetDefault("sync.backoff", 30*time.Second)
	v.SetDefault("sync.mapping_path", "")

	v.SetDefault("db.path", filepath.Join(".prospector", "mirror.db"))

	v.SetDefault("dashboard.addr", ":8087")

	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
}

// Load resolves configuration. cfgFile, when non-empty, names an explicit
// config file; otherwise prospector.yaml is searched for in the working
// directory and ./config. A missing config file is not an error.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PROSPECTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", cfgFile, err)
		}
	} else {
		v.SetConfigName("prospector")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
