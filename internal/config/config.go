package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/Veraticus/cashflow/internal/common"
)

// Configuration keys.
const (
	KeyDatabasePath     = "database.path"
	KeySessionsDir      = "sessions.dir"
	KeySnapshotOnCommit = "import.snapshot_before_commit"
	KeyDefaultSheet     = "import.sheet"
	KeyLogLevel         = "logging.level"
	KeyLogFormat        = "logging.format"
)

// Config is the resolved application configuration.
type Config struct {
	DatabasePath     string
	SessionsDir      string
	DefaultSheet     string
	LogLevel         string
	LogFormat        string
	SnapshotOnCommit bool
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyDatabasePath, "$HOME/.local/share/cashflow/cashflow.db")
	v.SetDefault(KeySessionsDir, "$HOME/.local/share/cashflow/sessions")
	v.SetDefault(KeySnapshotOnCommit, true)
	v.SetDefault(KeyDefaultSheet, "")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
}

// Load reads the configuration from v, expanding paths and validating the
// logging settings.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DatabasePath:     ExpandPath(v.GetString(KeyDatabasePath)),
		SessionsDir:      ExpandPath(v.GetString(KeySessionsDir)),
		DefaultSheet:     v.GetString(KeyDefaultSheet),
		LogLevel:         strings.ToLower(v.GetString(KeyLogLevel)),
		LogFormat:        strings.ToLower(v.GetString(KeyLogFormat)),
		SnapshotOnCommit: v.GetBool(KeySnapshotOnCommit),
	}

	if cfg.DatabasePath == "" {
		return nil, fmt.Errorf("%w: %s", common.ErrMissingConfig, KeyDatabasePath)
	}
	if cfg.SessionsDir == "" {
		return nil, fmt.Errorf("%w: %s", common.ErrMissingConfig, KeySessionsDir)
	}
	if _, err := common.ParseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	switch cfg.LogFormat {
	case "console", "json":
	default:
		return nil, fmt.Errorf("%w: log format %q", common.ErrInvalidConfig, cfg.LogFormat)
	}

	return cfg, nil
}
