package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ege-hub/ege-scores-bot/internal/domain/dialogue"
	"github.com/ege-hub/ege-scores-bot/internal/domain/student"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewCacheFromClient(client), mr
}

func TestCache_GetMissAndEmptyKey(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	var v string
	assert.ErrorIs(t, cache.Get(ctx, "nope", &v), ErrCacheMiss)
	assert.ErrorIs(t, cache.Set(ctx, "", "x", 0), ErrCacheKeyEmpty)
	assert.ErrorIs(t, cache.Set(ctx, "k", "x", -time.Second), ErrCacheInvalidTTL)
}

func TestSessionStore_RoundTripAndTTL(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	store := NewSessionStore(cache, 15*time.Minute)

	_, ok, err := store.Get(ctx, 5)
	require.NoError(t, err)
	assert.False(t, ok)

	sess := dialogue.NewSession(5, dialogue.StateAwaitingLastName, time.Now().UTC().Truncate(time.Second)).
		WithField(dialogue.FieldFirstName, "Anna", time.Now().UTC().Truncate(time.Second))
	require.NoError(t, store.Save(ctx, sess))

	got, ok, err := store.Get(ctx, 5)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, dialogue.StateAwaitingLastName, got.State)
	name, _ := got.Field(dialogue.FieldFirstName)
	assert.Equal(t, "Anna", name)

	assert.Equal(t, 15*time.Minute, mr.TTL(SessionKey("5")))

	mr.FastForward(16 * time.Minute)
	_, ok, err = store.Get(ctx, 5)
	require.NoError(t, err)
	assert.False(t, ok, "session expires after idle timeout")

	require.NoError(t, store.Save(ctx, sess))
	require.NoError(t, store.Clear(ctx, 5))
	_, ok, _ = store.Get(ctx, 5)
	assert.False(t, ok)
}

func TestGateway_Register(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	gw := NewGateway(cache, student.WriteModeReplace)

	ok, err := gw.IsRegistered(ctx, 9)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, gw.Register(ctx, 9, "Anna", "Petrova"))
	require.NoError(t, gw.Register(ctx, 9, "Other", "Name"))

	ok, err = gw.IsRegistered(ctx, 9)
	require.NoError(t, err)
	assert.True(t, ok)

	var rec studentRecord
	require.NoError(t, cache.Get(ctx, StudentKey("9"), &rec))
	assert.Equal(t, "Anna", rec.FirstName)
}

func TestGateway_ReplaceMode(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	gw := NewGateway(cache, student.WriteModeReplace)

	require.NoError(t, gw.UpsertScore(ctx, 1, "Математика", 70))
	require.NoError(t, gw.UpsertScore(ctx, 1, "Математика", 85))
	require.NoError(t, gw.UpsertScore(ctx, 1, "Информатика", 95))

	scores, err := gw.ListScores(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []student.ScoreEntry{
		{Subject: "Информатика", Score: 95},
		{Subject: "Математика", Score: 85},
	}, scores)
}

func TestGateway_AppendMode(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	gw := NewGateway(cache, student.WriteModeAppend)

	require.NoError(t, gw.UpsertScore(ctx, 1, "Математика", 70))
	require.NoError(t, gw.UpsertScore(ctx, 1, "Математика", 85))

	scores, err := gw.ListScores(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []student.ScoreEntry{
		{Subject: "Математика", Score: 70},
		{Subject: "Математика", Score: 85},
	}, scores)

	empty, err := gw.ListScores(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGateway_UnavailableRedis(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	gw := NewGateway(cache, student.WriteModeReplace)

	mr.Close()

	_, err := gw.IsRegistered(ctx, 1)
	assert.Error(t, err)
	assert.Error(t, gw.Ping(ctx))
}
