package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/ifrs9-ccf/pkg/config"
)

func decode(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLogLevel(tt.in), tt.in)
	}
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&config.Config{Env: "development", LogLevel: "warn", LogFormat: "json"}, &buf)

	log.Info("dropped")
	log.WithFields(map[string]interface{}{"segment": 3, "stage": "S3_TRAIN"}).Warn("segment skipped")
	log.WithError(errors.New("boom")).Error("failed")

	lines := decode(t, &buf)
	require.Len(t, lines, 2, "info is below the configured level")
	assert.Equal(t, "segment skipped", lines[0]["message"])
	assert.Equal(t, float64(3), lines[0]["segment"])
	assert.Equal(t, "S3_TRAIN", lines[0]["stage"])
	assert.Equal(t, "ccf", lines[0]["service"])
	assert.Equal(t, "boom", lines[1]["error"])
}

func TestZerolog_ChildLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&config.Config{Env: "staging", LogLevel: "info"}, &buf)

	child := log.Zerolog().With().Str("component", "s3_training.trainer").Logger()
	child.Info().Int("segment", 1).Msg("trained")

	lines := decode(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "s3_training.trainer", lines[0]["component"])
	assert.Equal(t, "staging", lines[0]["env"])
}

func TestNop(t *testing.T) {
	log := Nop()
	log.Error("nothing")
	assert.Equal(t, zerolog.Disabled, log.Zerolog().GetLevel())
}
