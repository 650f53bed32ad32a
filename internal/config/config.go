package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"codeberg.org/mutker/reqprof/internal/errors"
	"codeberg.org/mutker/reqprof/internal/logger"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultEnvPrefix = "REQPROF"
	DefaultLogLevel  = "warn"
	DefaultListen    = "127.0.0.1:8080"

	configEnv  = "REQPROF_CONFIG"
	configName = "reqprof"

	DriverJSON   = "json"
	DriverSQLite = "sqlite"
)

// CollectorSpec names a collector and its constructor options.
type CollectorSpec struct {
	Name    string         `mapstructure:"name"`
	Options map[string]any `mapstructure:"options"`
}

type StorageConfig struct {
	Driver          string `mapstructure:"driver"`
	Dir             string `mapstructure:"dir"`
	DBPath          string `mapstructure:"db_path"`
	BackupOnMigrate bool   `mapstructure:"backup_on_migrate"`
	BackupDir       string `mapstructure:"backup_dir"`
}

type Config struct {
	Enabled              bool            `mapstructure:"enabled"`
	Profiles             bool            `mapstructure:"profiles"`
	Toolbar              bool            `mapstructure:"toolbar"`
	Console              bool            `mapstructure:"console"`
	Collectors           []CollectorSpec `mapstructure:"collectors"`
	UnprofiledRouteNames []string        `mapstructure:"unprofiled_route_names"`
	Storage              StorageConfig   `mapstructure:"storage"`
	Listen               string          `mapstructure:"listen"`
	LogLevel             string          `mapstructure:"log_level"`
	PrettyLogs           bool            `mapstructure:"pretty_logs"`
}

// DefaultCollectors returns the collector list used when none is configured.
func DefaultCollectors() []CollectorSpec {
	return []CollectorSpec{
		{Name: "logs", Options: map[string]any{"except_loggers": []string{"null"}}},
		{Name: "boots"},
		{Name: "request_response"},
		{Name: "middleware"},
		{Name: "routes"},
		{Name: "session"},
		{Name: "storage_queries"},
		{Name: "view", Options: map[string]any{"collect_views": true, "collect_assets": true}},
		{Name: "events"},
		{Name: "jobs"},
		{Name: "translation"},
	}
}

// DefaultUnprofiledRouteNames lists the profiler's own routes.
func DefaultUnprofiledRouteNames() []string {
	return []string{
		"profiler.toolbar.profile",
		"profiler.toolbar.profiles",
		"profiler.profiles.index",
		"profiler.profiles.show",
		"profiler.profiles.clear",
		"profiler.assets",
	}
}

func defaultDataDir() string {
	return filepath.Join(os.TempDir(), "reqprof")
}

func setDefaults(v *viper.Viper) {
	collectors := make([]map[string]any, 0)
	for _, spec := range DefaultCollectors() {
		collectors = append(collectors, map[string]any{"name": spec.Name, "options": spec.Options})
	}

	v.SetDefault("enabled", true)
	v.SetDefault("profiles", true)
	v.SetDefault("toolbar", true)
	v.SetDefault("console", false)
	v.SetDefault("collectors", collectors)
	v.SetDefault("unprofiled_route_names", DefaultUnprofiledRouteNames())
	v.SetDefault("storage.driver", DriverJSON)
	v.SetDefault("storage.dir", filepath.Join(defaultDataDir(), "profiles"))
	v.SetDefault("storage.db_path", filepath.Join(defaultDataDir(), "profiles.db"))
	v.SetDefault("storage.backup_on_migrate", true)
	v.SetDefault("storage.backup_dir", filepath.Join(defaultDataDir(), "backups"))
	v.SetDefault("listen", DefaultListen)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("pretty_logs", false)
}

// flag name -> config key
var flagKeys = map[string]string{
	"log-level":      "log_level",
	"pretty-logs":    "pretty_logs",
	"listen":         "listen",
	"storage-driver": "storage.driver",
	"storage-dir":    "storage.dir",
	"storage-db":     "storage.db_path",
	"toolbar":        "toolbar",
	"console":        "console",
}

// RegisterFlags adds the configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to the configuration file")
	fs.String("log-level", DefaultLogLevel, "Log level (debug, info, warn, error)")
	fs.Bool("pretty-logs", false, "Human readable console logs")
	fs.String("listen", DefaultListen, "HTTP listen address")
	fs.String("storage-driver", DriverJSON, "Profile storage driver (json, sqlite)")
	fs.String("storage-dir", "", "Directory of the json profile storage")
	fs.String("storage-db", "", "Database path of the sqlite profile storage")
	fs.Bool("toolbar", true, "Inject the toolbar into HTML responses")
	fs.Bool("console", false, "Profile console commands")
}

type ViperLoader struct {
	v    *viper.Viper
	opts options
}

// NewLoader creates a viper backed Loader which is also a Watcher.
func NewLoader(opts ...Option) (*ViperLoader, error) {
	errFactory := errors.New()

	o := options{envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
		}
	}

	return &ViperLoader{v: viper.New(), opts: o}, nil
}

// Load is a shortcut for NewLoader(opts...).Load.
func Load(opts ...Option) (*Config, error) {
	l, err := NewLoader(opts...)
	if err != nil {
		return nil, err
	}
	return l.Load(context.Background())
}

func (l *ViperLoader) Load(_ context.Context) (*Config, error) {
	errFactory := errors.New()
	v := l.v

	setDefaults(v)

	v.SetEnvPrefix(l.opts.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs := l.opts.flags; fs != nil {
		for name, key := range flagKeys {
			flag := fs.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, errFactory.Wrap(errors.ErrBindFlags, err)
			}
		}
	}

	if err := l.readConfigFile(); err != nil {
		return nil, err
	}

	return l.decode()
}

func (l *ViperLoader) configPath() string {
	if l.opts.configPath != "" {
		return l.opts.configPath
	}
	if fs := l.opts.flags; fs != nil {
		if path, err := fs.GetString("config"); err == nil && path != "" {
			return path
		}
	}
	return os.Getenv(configEnv)
}

func (l *ViperLoader) readConfigFile() error {
	errFactory := errors.New()
	v := l.v

	if path := l.configPath(); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/reqprof")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.Debug().Msg("No configuration file found, using defaults")
			return nil
		}
		return errFactory.Wrap(errors.ErrReadConfig, err)
	}

	logger.Debug().Str("path", v.ConfigFileUsed()).Msg("Configuration file loaded")

	return nil
}

func (l *ViperLoader) decode() (*Config, error) {
	errFactory := errors.New()

	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Watch re-reads the configuration file on every change.
func (l *ViperLoader) Watch(ctx context.Context, callback func(*Config)) error {
	if l.v.ConfigFileUsed() == "" {
		return errors.New().WithMessage(errors.ErrWatchConfig, "no configuration file to watch")
	}

	l.v.OnConfigChange(func(e fsnotify.Event) {
		if ctx.Err() != nil {
			return
		}
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		cfg, err := l.decode()
		if err != nil {
			logger.Warn().Err(err).Str("path", e.Name).Msg("Ignoring invalid configuration change")
			return
		}

		logger.Info().Str("path", e.Name).Msg("Configuration reloaded")
		callback(cfg)
	})
	l.v.WatchConfig()

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	errFactory := errors.New()

	if !LogLevel(strings.ToLower(c.LogLevel)).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, struct {
			Level string
		}{
			Level: c.LogLevel,
		})
	}

	switch c.Storage.Driver {
	case DriverJSON:
		if c.Storage.Dir == "" {
			return errFactory.WithMessage(errors.ErrMissingConfig, "storage.dir is required for the json driver")
		}
	case DriverSQLite:
		if c.Storage.DBPath == "" {
			return errFactory.WithMessage(errors.ErrMissingConfig, "storage.db_path is required for the sqlite driver")
		}
	default:
		return errFactory.WithData(errors.ErrInvalidConfig, struct {
			Field string
			Value string
		}{
			Field: "storage.driver",
			Value: c.Storage.Driver,
		})
	}

	for i, spec := range c.Collectors {
		if strings.TrimSpace(spec.Name) == "" {
			return errFactory.WithData(errors.ErrInvalidConfig, struct {
				Field string
				Index int
			}{
				Field: "collectors.name",
				Index: i,
			})
		}
	}

	return nil
}

// IsUnprofiledRoute reports whether routeName is exempt from profiling.
func (c *Config) IsUnprofiledRoute(routeName string) bool {
	if routeName == "" {
		return false
	}
	for _, name := range c.UnprofiledRouteNames {
		if name == routeName {
			return true
		}
	}
	return false
}
