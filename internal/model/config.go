package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/spf13/viper"
)

// DatabaseConfig holds settings for the local SQLite store.
type DatabaseConfig struct {
	// Path is the SQLite file location. ":memory:" keeps everything in RAM.
	Path string `mapstructure:"path" yaml:"path"`
}

// DayConfig controls where one calendar day ends and the next begins.
type DayConfig struct {
	// Start is the local time of day (HH:MM) at which a new day, and thus a
	// new occurrence window for recurring tasks, begins.
	Start string `mapstructure:"start" yaml:"start"`
}

// LogConfig holds structured logging preferences.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// WatchConfig holds settings for the watch command.
type WatchConfig struct {
	// Spec is the cron expression on which the current task is recomputed.
	Spec string `mapstructure:"spec" yaml:"spec"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Day      DayConfig      `mapstructure:"day" yaml:"day"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Watch    WatchConfig    `mapstructure:"watch" yaml:"watch"`
}

// DayStart parses Day.Start into a time of day.
func (c *AppConfig) DayStart() (civil.Time, error) {
	raw := strings.TrimSpace(c.Day.Start)
	if raw == "" {
		return civil.Time{}, nil
	}
	if strings.Count(raw, ":") == 1 {
		raw += ":00"
	}
	t, err := civil.ParseTime(raw)
	if err != nil {
		return civil.Time{}, fmt.Errorf("parsing day.start %q: %w", c.Day.Start, err)
	}
	return t, nil
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/nexttask/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "nexttask", "config.yaml")
}

// DefaultDatabasePath returns the database location used when none is
// configured: next to the config file.
func DefaultDatabasePath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), "nexttask.db")
}

func defaultAppConfig(configPath string) *AppConfig {
	return &AppConfig{
		Database: DatabaseConfig{Path: DefaultDatabasePath(configPath)},
		Day:      DayConfig{Start: "00:00"},
		Log:      LogConfig{Level: "info", Format: "text"},
		Watch:    WatchConfig{Spec: "@every 1m"},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Environment variables prefixed with NEXTTASK_ override file values
// (NEXTTASK_DATABASE_PATH, NEXTTASK_LOG_LEVEL, ...). If the file does not
// exist, defaults plus environment overrides are returned.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("nexttask")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := defaultAppConfig(path)
	v.SetDefault("database.path", def.Database.Path)
	v.SetDefault("day.start", def.Day.Start)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)
	v.SetDefault("watch.spec", def.Watch.Spec)

	if err := v.ReadInConfig(); err != nil {
		_, isPathErr := err.(*os.PathError)
		_, isNotFound := err.(viper.ConfigFileNotFoundError)
		if !isPathErr && !isNotFound {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := defaultAppConfig(path)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if _, err := cfg.DayStart(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("database", cfg.Database)
	v.Set("day", cfg.Day)
	v.Set("log", cfg.Log)
	v.Set("watch", cfg.Watch)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
