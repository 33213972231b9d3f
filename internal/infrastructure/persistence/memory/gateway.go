package memory

import (
	"context"
	"sync"
	"time"

	"github.com/ege-hub/ege-scores-bot/internal/domain/student"
)

// Gateway is an in-memory student.Gateway. Scores are returned in insertion
// order; in replace mode an updated subject keeps its original position.
type Gateway struct {
	mu       sync.RWMutex
	mode     student.ScoreWriteMode
	students map[student.UserID]student.Student
	scores   map[student.UserID][]student.ScoreEntry
}

// NewGateway creates an empty gateway using the given write mode.
func NewGateway(mode student.ScoreWriteMode) *Gateway {
	return &Gateway{
		mode:     mode,
		students: make(map[student.UserID]student.Student),
		scores:   make(map[student.UserID][]student.ScoreEntry),
	}
}

// Register stores the student unless one already exists for userID.
func (g *Gateway) Register(_ context.Context, userID student.UserID, firstName, lastName string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.students[userID]; exists {
		return nil
	}

	st, err := student.NewStudent(userID, firstName, lastName, time.Now())
	if err != nil {
		return err
	}
	g.students[userID] = *st
	return nil
}

// IsRegistered reports whether userID has been registered.
func (g *Gateway) IsRegistered(_ context.Context, userID student.UserID) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	_, ok := g.students[userID]
	return ok, nil
}

// UpsertScore stores a score according to the gateway's write mode.
func (g *Gateway) UpsertScore(_ context.Context, userID student.UserID, subject string, score student.Score) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	entries := g.scores[userID]
	if g.mode == student.WriteModeReplace {
		for i := range entries {
			if entries[i].Subject == subject {
				entries[i].Score = score
				return nil
			}
		}
	}

	g.scores[userID] = append(entries, student.ScoreEntry{Subject: subject, Score: score})
	return nil
}

// ListScores returns a copy of the user's scores.
func (g *Gateway) ListScores(_ context.Context, userID student.UserID) ([]student.ScoreEntry, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	entries := g.scores[userID]
	out := make([]student.ScoreEntry, len(entries))
	copy(out, entries)
	return out, nil
}

// Ping always succeeds.
func (g *Gateway) Ping(_ context.Context) error {
	return nil
}
