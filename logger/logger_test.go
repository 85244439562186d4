package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMessage = "test message"

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	require.NotEmpty(t, line)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	return entry
}

func TestNewWithWriterLevels(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		debugSeen bool
	}{
		{name: "debug_level", level: "debug", debugSeen: true},
		{name: "info_level", level: "info", debugSeen: false},
		{name: "invalid_level_defaults_to_info", level: "invalid_level", debugSeen: false},
		{name: "empty_level_defaults_to_info", level: "", debugSeen: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := NewWithWriter(tt.level, &buf)

			log.Debug().Msg(testMessage)
			assert.Equal(t, tt.debugSeen, buf.Len() > 0)

			buf.Reset()
			log.Info().Msg(testMessage)
			assert.Positive(t, buf.Len())
		})
	}
}

func TestLogEventFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("debug", &buf)

	log.Warn().
		Err(errors.New("boom")).
		Str("table", "charging_order").
		Int("attempt", 2).
		Int64("tenant_id", 7).
		Bool("ignored", false).
		Dur("elapsed", time.Second).
		Interface("columns", []string{"username"}).
		Msgf("decided %s", "filter")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "charging_order", entry["table"])
	assert.EqualValues(t, 2, entry["attempt"])
	assert.EqualValues(t, 7, entry["tenant_id"])
	assert.Equal(t, false, entry["ignored"])
	assert.Equal(t, "decided filter", entry["message"])
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	scoped := log.WithFields(map[string]any{"tenant_id": int64(42)})
	scoped.Error().Msg(testMessage)

	entry := decodeLine(t, &buf)
	assert.EqualValues(t, 42, entry["tenant_id"])
	assert.Equal(t, "error", entry["level"])

	assert.Same(t, log, log.WithFields(nil))
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	t.Run("non_context_returns_original", func(t *testing.T) {
		assert.Same(t, log, log.WithContext("not a context"))
	})

	t.Run("context_without_logger_returns_original", func(t *testing.T) {
		assert.Same(t, log, log.WithContext(context.Background()))
	})

	t.Run("context_logger_is_used", func(t *testing.T) {
		var ctxBuf bytes.Buffer
		zl := zerolog.New(&ctxBuf)
		ctx := zl.WithContext(context.Background())

		log.WithContext(ctx).Info().Msg(testMessage)
		assert.Zero(t, buf.Len())
		assert.Contains(t, ctxBuf.String(), testMessage)
	})
}

func TestNop(t *testing.T) {
	log := Nop()
	assert.NotPanics(t, func() {
		log.Info().Str("k", "v").Msg(testMessage)
		log.WithFields(map[string]any{"a": 1}).Error().Msg(testMessage)
	})
}
