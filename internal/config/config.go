// Package config loads the options a pts.Store is opened with from
// environment variables and an optional config file, layered over
// sensible defaults.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds everything needed to open a store.
type Config struct {
	Store StoreConfig
	Log   LogConfig
}

// StoreConfig mirrors pts.Options' scalar fields.
type StoreConfig struct {
	Directory     string // Container directory for the header and data files
	Base          string // Base filename; files are <Base>.pts.hdr / <Base>.pts.data
	CoarseFactor  int64  // Timestamp coarsening factor (default 100)
	FlushInterval time.Duration
	ForceOrdering bool // Clamp out-of-order timestamps instead of failing Append
}

// LogConfig selects the logger's level and output format.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables prefixed PTS_ and an
// optional pts.toml/pts.yaml file, falling back to defaults for anything
// unset.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("pts")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/pts/")
	v.AddConfigPath("$HOME/.pts/")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// No config file present; defaults and env vars still apply.
	}

	return &Config{
		Store: StoreConfig{
			Directory:     v.GetString("store.directory"),
			Base:          v.GetString("store.base"),
			CoarseFactor:  v.GetInt64("store.coarse_factor"),
			FlushInterval: v.GetDuration("store.flush_interval"),
			ForceOrdering: v.GetBool("store.force_ordering"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.directory", "./data")
	v.SetDefault("store.base", "series")
	v.SetDefault("store.coarse_factor", 100)
	v.SetDefault("store.flush_interval", "20s")
	v.SetDefault("store.force_ordering", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}
