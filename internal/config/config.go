package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/docker/go-units"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/linelog/internal/diag"
	"github.com/Iron-Ham/linelog/internal/errors"
	"github.com/Iron-Ham/linelog/internal/framing"
	"github.com/Iron-Ham/linelog/internal/logging"
	"github.com/Iron-Ham/linelog/internal/record"
	"github.com/Iron-Ham/linelog/internal/store"
)

// Config represents the complete linelog configuration
type Config struct {
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
	App    AppConfig    `mapstructure:"app" yaml:"app"`
	Server ServerConfig `mapstructure:"server" yaml:"server"`
	Diag   DiagConfig   `mapstructure:"diag" yaml:"diag"`
}

// LogConfig controls where records are written and how files rotate
type LogConfig struct {
	// FolderPath holds the log files. Environment variables are expanded;
	// empty means the platform temp directory.
	FolderPath string `mapstructure:"folder_path" yaml:"folder_path"`
	// Filename is the active file name (default: "<app.root_name>.log")
	Filename string `mapstructure:"filename" yaml:"filename" validate:"omitempty,excludesall=/\\"`
	// MaxFileSize is the size that triggers rotation: "<n>", "<n>K", "<n>M"
	// or "<n>G" with binary multiples. "0" disables size rotation.
	MaxFileSize string `mapstructure:"max_file_size" yaml:"max_file_size" validate:"size"`
	// DayToKeep enables day rotation when positive and is the number of
	// backups kept by either trigger
	DayToKeep int `mapstructure:"day_to_keep" yaml:"day_to_keep" validate:"gte=0,lte=365"`
	// AutoFlushLevel forces a flush after records at or above it ("none" never flushes)
	AutoFlushLevel string `mapstructure:"auto_flush_level" yaml:"auto_flush_level" validate:"level"`
	// MinLevel is the lowest level written ("none" disables logging)
	MinLevel string `mapstructure:"min_level" yaml:"min_level" validate:"level"`
	// Format is the on-disk layout: "indented" or "single-line"
	Format string `mapstructure:"format" yaml:"format" validate:"format"`
}

// AppConfig describes the host application
type AppConfig struct {
	// RootName is the application's root type name; it doubles as the default file name
	RootName string `mapstructure:"root_name" yaml:"root_name" validate:"required,excludesall=/\\"`
	// RootNamespace prefixes the categories that belong to the application
	RootNamespace string `mapstructure:"root_namespace" yaml:"root_namespace"`
}

// ServerConfig controls the admin HTTP server
type ServerConfig struct {
	// Addr is the listen address
	Addr string `mapstructure:"addr" yaml:"addr" validate:"required,hostname_port"`
	// ExportRateLimit is the number of archive exports allowed per client per minute (0 disables the limit)
	ExportRateLimit int `mapstructure:"export_rate_limit" yaml:"export_rate_limit" validate:"gte=0,lte=10000"`
	// MaxQueryLimit caps the records returned by one query
	MaxQueryLimit int `mapstructure:"max_query_limit" yaml:"max_query_limit" validate:"gt=0,lte=100000"`
}

// DiagConfig controls the diagnostics logger that reports store failures
type DiagConfig struct {
	// Level is one of: trace, debug, info, warn, error, disabled
	Level string `mapstructure:"level" yaml:"level" validate:"oneof=trace debug info warn error disabled"`
	// Format is "json" or "console"
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=json console"`
	// File sends diagnostics to a rotated file instead of stderr
	File string `mapstructure:"file" yaml:"file"`
	// MaxSizeMB is the diagnostics file size that triggers rotation
	MaxSizeMB int `mapstructure:"max_size_mb" yaml:"max_size_mb" validate:"gt=0,lte=1000"`
	// MaxBackups is the number of rotated diagnostics files kept
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups" validate:"gte=0"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Log: LogConfig{
			FolderPath:     "",
			Filename:       "",
			MaxFileSize:    "10M",
			DayToKeep:      7,
			AutoFlushLevel: "error",
			MinLevel:       "information",
			Format:         "indented",
		},
		App: AppConfig{
			RootName:      "linelog",
			RootNamespace: "",
		},
		Server: ServerConfig{
			Addr:            "127.0.0.1:8080",
			ExportRateLimit: 6,
			MaxQueryLimit:   1000,
		},
		Diag: DiagConfig{
			Level:      "info",
			Format:     "json",
			File:       "",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	SetDefaultsOn(viper.GetViper())
}

// SetDefaultsOn registers default values with v
func SetDefaultsOn(v *viper.Viper) {
	defaults := Default()

	// Log defaults
	v.SetDefault("log.folder_path", defaults.Log.FolderPath)
	v.SetDefault("log.filename", defaults.Log.Filename)
	v.SetDefault("log.max_file_size", defaults.Log.MaxFileSize)
	v.SetDefault("log.day_to_keep", defaults.Log.DayToKeep)
	v.SetDefault("log.auto_flush_level", defaults.Log.AutoFlushLevel)
	v.SetDefault("log.min_level", defaults.Log.MinLevel)
	v.SetDefault("log.format", defaults.Log.Format)

	// App defaults
	v.SetDefault("app.root_name", defaults.App.RootName)
	v.SetDefault("app.root_namespace", defaults.App.RootNamespace)

	// Server defaults
	v.SetDefault("server.addr", defaults.Server.Addr)
	v.SetDefault("server.export_rate_limit", defaults.Server.ExportRateLimit)
	v.SetDefault("server.max_query_limit", defaults.Server.MaxQueryLimit)

	// Diag defaults
	v.SetDefault("diag.level", defaults.Diag.Level)
	v.SetDefault("diag.format", defaults.Diag.Format)
	v.SetDefault("diag.file", defaults.Diag.File)
	v.SetDefault("diag.max_size_mb", defaults.Diag.MaxSizeMB)
	v.SetDefault("diag.max_backups", defaults.Diag.MaxBackups)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads and validates the configuration held by v
func LoadFrom(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.NewConfigError("cannot decode configuration").WithCause(err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, errors.NewConfigError("invalid configuration").
			WithField(errs[0].Field).
			WithValue(errs[0].Value).
			WithCause(ValidationErrors(errs))
	}

	return &cfg, nil
}

// Get returns the current configuration, falling back to defaults when it
// cannot be loaded
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "linelog")
	}
	// Fall back to ~/.config/linelog
	home, err := os.UserHomeDir()
	if err != nil {
		return ".linelog"
	}
	return filepath.Join(home, ".config", "linelog")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// sizeRegex accepts a non-negative integer with an optional binary unit.
var sizeRegex = regexp.MustCompile(`^[0-9]+[kKmMgG]?$`)

// ParseSize converts "<integer><K|M|G>" to bytes using binary multiples. A
// bare integer is a byte count.
func ParseSize(s string) (int64, error) {
	trimmed := strings.TrimSpace(s)
	if !sizeRegex.MatchString(trimmed) {
		return 0, errors.NewConfigError("size must look like 512, 64K, 10M or 1G").
			WithField("log.max_file_size").
			WithValue(s).
			WithCause(errors.ErrInvalidSize)
	}
	n, err := units.RAMInBytes(trimmed)
	if err == nil && n < 0 {
		// RAMInBytes goes through float64 and wraps on overflow.
		err = fmt.Errorf("%q does not fit in 64 bits", trimmed)
	}
	if err != nil {
		return 0, errors.NewConfigError("size out of range").
			WithField("log.max_file_size").
			WithValue(s).
			WithCause(errors.Join(errors.ErrInvalidSize, err))
	}
	return n, nil
}

// LogFilename returns the configured file name, or "<root_name>.log".
func (c *Config) LogFilename() string {
	if c.Log.Filename != "" {
		return c.Log.Filename
	}
	return c.App.RootName + ".log"
}

// StoreOptions converts the log section into store options.
func (c *Config) StoreOptions() (store.Options, error) {
	size, err := ParseSize(c.Log.MaxFileSize)
	if err != nil {
		return store.Options{}, err
	}
	flush, err := parseLevelField("log.auto_flush_level", c.Log.AutoFlushLevel)
	if err != nil {
		return store.Options{}, err
	}
	minLevel, err := parseLevelField("log.min_level", c.Log.MinLevel)
	if err != nil {
		return store.Options{}, err
	}
	format, err := framing.ParseFormat(c.Log.Format)
	if err != nil {
		return store.Options{}, err
	}

	opts := store.Options{
		FolderPath:        c.Log.FolderPath,
		LogFilename:       c.LogFilename(),
		MaxFileSizeInByte: size,
		DayToKeep:         c.Log.DayToKeep,
		AutoFlushLevel:    flush,
		MinLevel:          minLevel,
		Format:            format,
	}
	return opts.Normalize(), nil
}

// Host returns the host description for the logger registry.
func (c *Config) Host() logging.Host {
	return logging.Host{RootName: c.App.RootName, RootNamespace: c.App.RootNamespace}
}

// DiagConfig returns the diagnostics logger configuration.
func (c *Config) DiagConfig() diag.Config {
	return diag.Config{
		Level:      c.Diag.Level,
		Format:     c.Diag.Format,
		File:       os.ExpandEnv(c.Diag.File),
		MaxSizeMB:  c.Diag.MaxSizeMB,
		MaxBackups: c.Diag.MaxBackups,
	}
}

func parseLevelField(field, s string) (record.Level, error) {
	level, err := record.ParseLevel(s)
	if err != nil {
		return record.LevelNone, errors.NewConfigError("unknown level").
			WithField(field).
			WithValue(s).
			WithCause(errors.Join(errors.ErrInvalidLevel, err))
	}
	return level, nil
}
