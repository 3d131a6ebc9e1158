package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New("debug", "json", &buf)
	log.Debug().Uint8("addr", 0x56).Msg("read")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "debug", line["level"])
	assert.Equal(t, "read", line["message"])
	assert.Equal(t, float64(0x56), line["addr"])
}

func TestNewLevelFallback(t *testing.T) {
	tests := map[string]zerolog.Level{
		"":        zerolog.InfoLevel,
		"bogus":   zerolog.InfoLevel,
		"WARN":    zerolog.WarnLevel,
		" error ": zerolog.ErrorLevel,
		"trace":   zerolog.TraceLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, New(in, "json", &bytes.Buffer{}).GetLevel(), "level %q", in)
	}
}

func TestNewConsoleFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	log := New("info", "text", &buf)
	log.Debug().Msg("hidden")
	assert.Zero(t, buf.Len())
	log.Info().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}
