package logs_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"codeberg.org/mutker/reqprof/internal/logs"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggersResolve(t *testing.T) {
	var buf bytes.Buffer
	def := logs.NewZerolog(zerolog.New(&buf))

	loggers := logs.NewLoggers().
		Add(logs.DefaultName, def).
		Add("null", logs.Null{}).
		AddAlias("daily", logs.DefaultName)

	assert.Same(t, def, loggers.Logger(""))
	assert.Same(t, def, loggers.Logger("unknown"))
	assert.Same(t, def, loggers.Logger("daily"))
	assert.Equal(t, logs.Null{}, loggers.Logger("null"))

	_, ok := loggers.Get("unknown")
	assert.False(t, ok)
	assert.True(t, loggers.Has("daily"))
	assert.Equal(t, []string{"default", "null"}, loggers.Names())
	assert.Equal(t, map[string]string{"daily": "default"}, loggers.Aliases())
}

func TestLoggersWithoutDefault(t *testing.T) {
	assert.Equal(t, logs.Null{}, logs.NewLoggers().Logger("any"))
}

func TestZerologWrites(t *testing.T) {
	var buf bytes.Buffer
	logger := logs.NewZerolog(zerolog.New(&buf))

	logger.Log(context.Background(), logs.LevelWarning, "disk low", map[string]any{"free": 12})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "disk low", line["message"])
	assert.EqualValues(t, 12, line["free"])
}
