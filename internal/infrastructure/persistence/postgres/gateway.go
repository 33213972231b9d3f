package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ege-hub/ege-scores-bot/internal/domain/shared"
	"github.com/ege-hub/ege-scores-bot/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT GATEWAY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// Gateway implements student.Gateway for PostgreSQL.
type Gateway struct {
	conn *Connection
	mode student.ScoreWriteMode
}

// NewGateway creates a new Gateway.
func NewGateway(conn *Connection, mode student.ScoreWriteMode) *Gateway {
	return &Gateway{
		conn: conn,
		mode: mode,
	}
}

// Register inserts the student. An existing user_id is left untouched.
func (g *Gateway) Register(ctx context.Context, userID student.UserID, firstName, lastName string) error {
	st, err := student.NewStudent(userID, firstName, lastName, time.Now())
	if err != nil {
		return err
	}

	query := `
		INSERT INTO students (id, user_id, first_name, last_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO NOTHING
	`

	_, err = g.conn.Exec(ctx, query, uuid.New().String(), int64(st.UserID), st.FirstName, st.LastName)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("failed to register student: %w", err)
	}

	return nil
}

// IsRegistered reports whether a student row exists for userID.
func (g *Gateway) IsRegistered(ctx context.Context, userID student.UserID) (bool, error) {
	var exists bool
	err := g.conn.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM students WHERE user_id = $1)`,
		int64(userID),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check registration: %w", err)
	}

	return exists, nil
}

// UpsertScore stores a score. In replace mode an existing row for the subject
// is updated; otherwise a new row is inserted.
func (g *Gateway) UpsertScore(ctx context.Context, userID student.UserID, subject string, score student.Score) error {
	if g.mode == student.WriteModeAppend {
		if err := insertScore(ctx, g.conn, userID, subject, score); err != nil {
			return scoreError("append", err)
		}
		return nil
	}

	err := g.conn.WithTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE scores SET score = $3, updated_at = NOW()
			WHERE user_id = $1 AND subject = $2
		`, int64(userID), subject, int(score))
		if err != nil {
			return err
		}
		if tag.RowsAffected() > 0 {
			return nil
		}
		return insertScore(ctx, tx, userID, subject, score)
	})
	if err != nil {
		return scoreError("upsert", err)
	}

	return nil
}

// ListScores returns the user's scores in insertion order.
func (g *Gateway) ListScores(ctx context.Context, userID student.UserID) ([]student.ScoreEntry, error) {
	rows, err := g.conn.Query(ctx, `
		SELECT subject, score FROM scores
		WHERE user_id = $1
		ORDER BY id
	`, int64(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to list scores: %w", err)
	}
	defer rows.Close()

	entries := make([]student.ScoreEntry, 0)
	for rows.Next() {
		var (
			subject string
			score   int
		)
		if err := rows.Scan(&subject, &score); err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}
		entries = append(entries, student.ScoreEntry{Subject: subject, Score: student.Score(score)})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate scores: %w", err)
	}

	return entries, nil
}

// Ping checks the database connection.
func (g *Gateway) Ping(ctx context.Context) error {
	return g.conn.Ping(ctx)
}

// execer is satisfied by both *Connection and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// scoreError wraps a write failure; a valid_score violation also matches
// shared.ErrScoreOutOfRange.
func scoreError(op string, err error) error {
	if IsCheckViolation(err) {
		return fmt.Errorf("failed to %s score: %w: %w", op, shared.ErrScoreOutOfRange, err)
	}
	return fmt.Errorf("failed to %s score: %w", op, err)
}

func insertScore(ctx context.Context, db execer, userID student.UserID, subject string, score student.Score) error {
	_, err := db.Exec(ctx,
		`INSERT INTO scores (user_id, subject, score) VALUES ($1, $2, $3)`,
		int64(userID), subject, int(score),
	)
	return err
}
