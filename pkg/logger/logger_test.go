package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Env: "production", Output: &buf})

	log.Info("score saved", UserID(42), Operation("UpsertScore"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "score saved", entry["msg"])
	assert.Equal(t, float64(42), entry[KeyUserID])
	assert.Equal(t, "UpsertScore", entry[KeyOperation])
}

func TestNew_DebugLevel(t *testing.T) {
	var buf bytes.Buffer
	New(Options{Output: &buf}).Debug("hidden")
	assert.Empty(t, buf.String())

	New(Options{Output: &buf, Debug: true}).Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestContextPropagation(t *testing.T) {
	var buf bytes.Buffer
	base := New(Options{Env: "production", Output: &buf})

	assert.Equal(t, slog.Default(), FromContext(context.Background()))

	ctx := WithRequestID(context.Background(), base, "req-1")
	FromContext(ctx).Warn("retrying", Err(errors.New("boom")))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-1", entry[KeyRequestID])
	assert.Equal(t, "boom", entry["error"])
}
