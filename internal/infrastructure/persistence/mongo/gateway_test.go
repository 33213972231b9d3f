package mongo

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ege-hub/ege-scores-bot/internal/domain/student"
)

// newTestGateway connects to TEST_MONGO_URI using a throwaway database.
func newTestGateway(t *testing.T, mode student.ScoreWriteMode) *Gateway {
	t.Helper()

	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	cfg := DefaultConfig()
	cfg.URI = uri
	cfg.Database = fmt.Sprintf("ege_scores_test_%d", time.Now().UnixNano())

	gw, err := Connect(ctx, cfg, mode)
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx := context.Background()
		_ = gw.client.Database(cfg.Database).Drop(ctx)
		_ = gw.Close(ctx)
	})

	return gw
}

func TestGateway_Register(t *testing.T) {
	gw := newTestGateway(t, student.WriteModeReplace)
	ctx := context.Background()

	ok, err := gw.IsRegistered(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, gw.Register(ctx, 1, "Anna", "Petrova"))
	require.NoError(t, gw.Register(ctx, 1, "Anna", "Petrova"), "duplicate is a no-op")

	ok, err = gw.IsRegistered(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGateway_ReplaceMode(t *testing.T) {
	gw := newTestGateway(t, student.WriteModeReplace)
	ctx := context.Background()

	require.NoError(t, gw.UpsertScore(ctx, 1, "Математика", 70))
	require.NoError(t, gw.UpsertScore(ctx, 1, "Математика", 85))

	scores, err := gw.ListScores(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []student.ScoreEntry{{Subject: "Математика", Score: 85}}, scores)
}

func TestGateway_AppendMode(t *testing.T) {
	gw := newTestGateway(t, student.WriteModeAppend)
	ctx := context.Background()

	require.NoError(t, gw.UpsertScore(ctx, 1, "Математика", 70))
	require.NoError(t, gw.UpsertScore(ctx, 1, "Математика", 85))

	scores, err := gw.ListScores(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, scores, 2)
}
