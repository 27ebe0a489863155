package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldsAreWrittenAsJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zerolog.DebugLevel).With(String("component", "orchestrator"))

	l.Info("request settled",
		Uint64("generation", 7),
		Float64("score", 0.08),
		Duration("elapsed_ms", 1500*time.Millisecond),
		Bool("anomaly", true),
		Error(errors.New("boom")),
	)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "request settled", got["message"])
	assert.Equal(t, "orchestrator", got["component"])
	assert.EqualValues(t, 7, got["generation"])
	assert.InDelta(t, 0.08, got["score"], 1e-9)
	assert.EqualValues(t, 1500, got["elapsed_ms"])
	assert.Equal(t, true, got["anomaly"])
	assert.Equal(t, "boom", got["error"])
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zerolog.InfoLevel)
	l.Debug("hidden")
	assert.Zero(t, buf.Len())
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud", Output: "stdout"})
	assert.Error(t, err)
}
