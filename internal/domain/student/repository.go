package student

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// GATEWAY INTERFACE
// Контракт хранилища студентов и баллов.
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Gateway определяет операции над студентами и их баллами.
type Gateway interface {
	// Register сохраняет студента.
	// Если студент с таким UserID уже есть, ничего не делает и возвращает nil.
	Register(ctx context.Context, userID UserID, firstName, lastName string) error

	// IsRegistered сообщает, зарегистрирован ли пользователь.
	IsRegistered(ctx context.Context, userID UserID) (bool, error)

	// UpsertScore сохраняет балл по предмету.
	// Поведение при повторном предмете зависит от ScoreWriteMode реализации.
	UpsertScore(ctx context.Context, userID UserID, subject string, score Score) error

	// ListScores возвращает все баллы пользователя в порядке хранилища.
	ListScores(ctx context.Context, userID UserID) ([]ScoreEntry, error)

	// Ping проверяет доступность хранилища.
	Ping(ctx context.Context) error
}
