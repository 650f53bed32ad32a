package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/reqprof/internal/config"
	"codeberg.org/mutker/reqprof/internal/errors"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	configPath := writeConfig(t, "reqprof.toml", `
enabled = true
profiles = false
toolbar = false
console = true
log_level = "debug"
unprofiled_route_names = ["health"]

[storage]
driver = "sqlite"
db_path = "/path/to/profiles.db"

[[collectors]]
name = "logs"
[collectors.options]
except_loggers = ["null", "audit"]

[[collectors]]
name = "events"
`)

	// Set environment variable to point to the test config file
	t.Setenv("REQPROF_CONFIG", configPath)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.True(t, cfg.Enabled)
	assert.False(t, cfg.Profiles)
	assert.False(t, cfg.Toolbar)
	assert.True(t, cfg.Console)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"health"}, cfg.UnprofiledRouteNames)
	assert.Equal(t, config.DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "/path/to/profiles.db", cfg.Storage.DBPath)

	require.Len(t, cfg.Collectors, 2)
	assert.Equal(t, "logs", cfg.Collectors[0].Name)
	assert.Equal(t, []any{"null", "audit"}, cfg.Collectors[0].Options["except_loggers"])
	assert.Equal(t, "events", cfg.Collectors[1].Name)
}

func TestLoadDefaults(t *testing.T) {
	// Ensure no config file is used
	t.Setenv("REQPROF_CONFIG", "")

	cfg, err := config.Load()
	require.NoError(t, err, "Failed to load config")

	assert.True(t, cfg.Enabled)
	assert.True(t, cfg.Profiles)
	assert.True(t, cfg.Toolbar)
	assert.False(t, cfg.Console)
	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, config.DriverJSON, cfg.Storage.Driver)
	assert.NotEmpty(t, cfg.Storage.Dir)
	assert.ElementsMatch(t, config.DefaultUnprofiledRouteNames(), cfg.UnprofiledRouteNames)

	names := make([]string, 0, len(cfg.Collectors))
	for _, spec := range cfg.Collectors {
		names = append(names, spec.Name)
	}
	assert.Equal(t, []string{
		"logs", "boots", "request_response", "middleware", "routes", "session",
		"storage_queries", "view", "events", "jobs", "translation",
	}, names)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("REQPROF_CONFIG", "")
	t.Setenv("REQPROF_TOOLBAR", "false")
	t.Setenv("REQPROF_STORAGE_DIR", "/srv/profiles")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.False(t, cfg.Toolbar)
	assert.Equal(t, "/srv/profiles", cfg.Storage.Dir)
}

func TestLoadConfigFileInvalidFormat(t *testing.T) {
	configPath := writeConfig(t, "reqprof.toml", `
This is not a valid TOML file
`)
	t.Setenv("REQPROF_CONFIG", configPath)

	_, err := config.Load()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrReadConfig))
	assert.Contains(t, err.Error(), "Failed to read configuration")
}

func TestInvalidLogLevel(t *testing.T) {
	configPath := writeConfig(t, "reqprof.toml", `
log_level = "invalid"
`)
	t.Setenv("REQPROF_CONFIG", configPath)

	_, err := config.Load()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidLogLevel))
}

func TestInvalidStorageDriver(t *testing.T) {
	configPath := writeConfig(t, "reqprof.yaml", `
storage:
  driver: redis
`)
	t.Setenv("REQPROF_CONFIG", configPath)

	_, err := config.Load()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidConfig))
}

func TestUnnamedCollector(t *testing.T) {
	configPath := writeConfig(t, "reqprof.yaml", `
collectors:
  - options:
      hiddens: [password]
`)
	t.Setenv("REQPROF_CONFIG", configPath)

	_, err := config.Load()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidConfig))
}

func TestLogLevelFlag(t *testing.T) {
	t.Setenv("REQPROF_CONFIG", "")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--log-level", "debug", "--storage-driver", "sqlite"}))

	cfg, err := config.Load(config.WithFlags(fs))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel, "Expected LogLevel to be set by flag")
	assert.Equal(t, config.DriverSQLite, cfg.Storage.Driver)
}

func TestConfigFlag(t *testing.T) {
	configPath := writeConfig(t, "custom.yaml", "listen: \":9999\"\n")
	t.Setenv("REQPROF_CONFIG", "")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--config", configPath}))

	cfg, err := config.Load(config.WithFlags(fs))
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Listen)
}

func TestIsUnprofiledRoute(t *testing.T) {
	cfg := &config.Config{UnprofiledRouteNames: []string{"profiler.toolbar.profile"}}

	assert.True(t, cfg.IsUnprofiledRoute("profiler.toolbar.profile"))
	assert.False(t, cfg.IsUnprofiledRoute("home"))
	assert.False(t, cfg.IsUnprofiledRoute(""))
}

func TestWatchWithoutFile(t *testing.T) {
	t.Setenv("REQPROF_CONFIG", "")

	l, err := config.NewLoader()
	require.NoError(t, err)
	_, err = l.Load(context.Background())
	require.NoError(t, err)

	err = l.Watch(context.Background(), func(*config.Config) {})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrWatchConfig))
}

func TestWatchReload(t *testing.T) {
	configPath := writeConfig(t, "reqprof.yaml", "toolbar: true\n")

	l, err := config.NewLoader(config.WithConfigFile(configPath))
	require.NoError(t, err)
	cfg, err := l.Load(context.Background())
	require.NoError(t, err)
	require.True(t, cfg.Toolbar)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *config.Config, 16)
	require.NoError(t, l.Watch(ctx, func(c *config.Config) {
		select {
		case reloaded <- c:
		default:
		}
	}))

	require.NoError(t, os.WriteFile(configPath, []byte("toolbar: false\n"), 0o600))

	// A write can surface as several events, the first of them on a truncated file.
	timeout := time.After(5 * time.Second)
	for {
		select {
		case c := <-reloaded:
			if !c.Toolbar {
				return
			}
		case <-timeout:
			t.Fatal("configuration change was not observed")
		}
	}
}
