// Package student содержит доменную модель абитуриента и его баллов ЕГЭ.
package student

import (
	"fmt"
	"time"

	"github.com/ege-hub/ege-scores-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// UserID представляет уникальный идентификатор пользователя мессенджера.
type UserID int64

// IsValid проверяет, что UserID положительный.
func (u UserID) IsValid() bool {
	return u > 0
}

// String возвращает строковое представление идентификатора.
func (u UserID) String() string {
	return fmt.Sprintf("%d", int64(u))
}

// Score представляет балл ЕГЭ.
type Score int

const (
	// MinScore - минимально допустимый балл.
	MinScore Score = 0
	// MaxScore - максимально допустимый балл.
	MaxScore Score = 100
)

// IsValid проверяет, что балл в диапазоне [0, 100].
func (s Score) IsValid() bool {
	return s >= MinScore && s <= MaxScore
}

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// ScoreWriteMode определяет, как сохраняется повторный балл по тому же предмету.
type ScoreWriteMode string

const (
	// WriteModeReplace - один балл на предмет, новый заменяет старый.
	WriteModeReplace ScoreWriteMode = "replace"
	// WriteModeAppend - каждый ввод сохраняется отдельной записью.
	WriteModeAppend ScoreWriteMode = "append"
)

// IsValid проверяет, что режим записи известен.
func (m ScoreWriteMode) IsValid() bool {
	switch m {
	case WriteModeReplace, WriteModeAppend:
		return true
	default:
		return false
	}
}

// ParseScoreWriteMode разбирает режим записи из конфигурации.
func ParseScoreWriteMode(s string) (ScoreWriteMode, error) {
	m := ScoreWriteMode(s)
	if !m.IsValid() {
		return "", fmt.Errorf("%w: %q", shared.ErrUnknownWriteMode, s)
	}
	return m, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTITIES
// ══════════════════════════════════════════════════════════════════════════════

// Student - зарегистрированный пользователь.
// После регистрации не изменяется и не удаляется.
type Student struct {
	UserID       UserID
	FirstName    string
	LastName     string
	RegisteredAt time.Time
}

// NewStudent создаёт студента, проверяя идентификатор и имена.
func NewStudent(userID UserID, firstName, lastName string, now time.Time) (*Student, error) {
	if !userID.IsValid() {
		return nil, shared.ErrInvalidUserID
	}
	first, ok := ValidateName(firstName)
	if !ok {
		return nil, shared.ErrInvalidName
	}
	last, ok := ValidateName(lastName)
	if !ok {
		return nil, shared.ErrInvalidName
	}
	return &Student{
		UserID:       userID,
		FirstName:    first,
		LastName:     last,
		RegisteredAt: now.UTC(),
	}, nil
}

// ScoreEntry - балл по одному предмету.
type ScoreEntry struct {
	Subject string
	Score   Score
}

// String форматирует запись как "предмет: балл".
func (e ScoreEntry) String() string {
	return fmt.Sprintf("%s: %d", e.Subject, e.Score)
}

// HasSubject сообщает, есть ли среди записей указанный предмет.
func HasSubject(entries []ScoreEntry, subject string) bool {
	for _, e := range entries {
		if e.Subject == subject {
			return true
		}
	}
	return false
}
