package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/ege-hub/ege-scores-bot/internal/domain/student"
)

// studentRecord is the JSON document stored under StudentKey.
type studentRecord struct {
	UserID       int64     `json:"user_id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	RegisteredAt time.Time `json:"registered_at"`
}

// scoreRecord is an element of the append-mode list.
type scoreRecord struct {
	Subject string `json:"subject"`
	Score   int    `json:"score"`
}

// Gateway implements student.Gateway on Redis.
//
// Replace mode keeps one hash per user (subject -> score) and lists scores
// sorted by subject. Append mode keeps a list in insertion order.
type Gateway struct {
	cache *Cache
	mode  student.ScoreWriteMode
}

// NewGateway creates a Redis gateway.
func NewGateway(cache *Cache, mode student.ScoreWriteMode) *Gateway {
	return &Gateway{
		cache: cache,
		mode:  mode,
	}
}

// Register stores the student with SETNX, so a repeated call is a no-op.
func (g *Gateway) Register(ctx context.Context, userID student.UserID, firstName, lastName string) error {
	rec := studentRecord{
		UserID:       int64(userID),
		FirstName:    firstName,
		LastName:     lastName,
		RegisteredAt: time.Now().UTC(),
	}
	if _, err := g.cache.SetNX(ctx, StudentKey(userID.String()), rec, 0); err != nil {
		return fmt.Errorf("register student: %w", err)
	}
	return nil
}

// IsRegistered reports whether the student key exists.
func (g *Gateway) IsRegistered(ctx context.Context, userID student.UserID) (bool, error) {
	ok, err := g.cache.Exists(ctx, StudentKey(userID.String()))
	if err != nil {
		return false, fmt.Errorf("check registration: %w", err)
	}
	return ok, nil
}

// UpsertScore writes a score according to the write mode.
func (g *Gateway) UpsertScore(ctx context.Context, userID student.UserID, subject string, score student.Score) error {
	var err error
	if g.mode == student.WriteModeAppend {
		err = g.cache.RPush(ctx, ScoresLogKey(userID.String()), scoreRecord{Subject: subject, Score: int(score)})
	} else {
		err = g.cache.HSet(ctx, ScoresKey(userID.String()), subject, int(score))
	}
	if err != nil {
		return fmt.Errorf("upsert score: %w", err)
	}
	return nil
}

// ListScores returns the user's scores.
func (g *Gateway) ListScores(ctx context.Context, userID student.UserID) ([]student.ScoreEntry, error) {
	if g.mode == student.WriteModeAppend {
		return g.listLog(ctx, userID)
	}
	return g.listHash(ctx, userID)
}

// Ping checks that Redis is reachable.
func (g *Gateway) Ping(ctx context.Context) error {
	return g.cache.Ping(ctx)
}

func (g *Gateway) listHash(ctx context.Context, userID student.UserID) ([]student.ScoreEntry, error) {
	fields, err := g.cache.HGetAll(ctx, ScoresKey(userID.String()))
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}

	entries := make([]student.ScoreEntry, 0, len(fields))
	for subject, raw := range fields {
		var score int
		if err := json.Unmarshal([]byte(raw), &score); err != nil {
			return nil, fmt.Errorf("%w: subject %s: %v", ErrCacheSerialization, subject, err)
		}
		entries = append(entries, student.ScoreEntry{Subject: subject, Score: student.Score(score)})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Subject < entries[j].Subject
	})

	return entries, nil
}

func (g *Gateway) listLog(ctx context.Context, userID student.UserID) ([]student.ScoreEntry, error) {
	items, err := g.cache.LRangeAll(ctx, ScoresLogKey(userID.String()))
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}

	entries := make([]student.ScoreEntry, 0, len(items))
	for _, raw := range items {
		var rec scoreRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCacheSerialization, err)
		}
		entries = append(entries, student.ScoreEntry{Subject: rec.Subject, Score: student.Score(rec.Score)})
	}

	return entries, nil
}
