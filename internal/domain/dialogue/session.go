// Package dialogue содержит состояние диалога пользователя с ботом.
package dialogue

import (
	"context"
	"time"

	"github.com/ege-hub/ege-scores-bot/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATES
// ══════════════════════════════════════════════════════════════════════════════

// State - позиция пользователя внутри сценария.
type State string

const (
	// StateIdle - нет активного сценария.
	StateIdle State = "idle"
	// StateAwaitingFirstName - регистрация, ждём имя.
	StateAwaitingFirstName State = "awaiting_first_name"
	// StateAwaitingLastName - регистрация, ждём фамилию.
	StateAwaitingLastName State = "awaiting_last_name"
	// StateAwaitingSubject - ввод баллов, ждём предмет.
	StateAwaitingSubject State = "awaiting_subject"
	// StateAwaitingScore - ввод баллов, ждём балл.
	StateAwaitingScore State = "awaiting_score"
)

// IsValid проверяет, что состояние известно.
func (s State) IsValid() bool {
	switch s {
	case StateIdle, StateAwaitingFirstName, StateAwaitingLastName,
		StateAwaitingSubject, StateAwaitingScore:
		return true
	default:
		return false
	}
}

// Pending field names.
const (
	FieldFirstName = "first_name"
	FieldSubject   = "subject"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION
// ══════════════════════════════════════════════════════════════════════════════

// Session - неизменяемое значение. Каждый переход создаёт новую сессию,
// которую хранилище заменяет целиком.
type Session struct {
	UserID    student.UserID    `json:"user_id"`
	State     State             `json:"state"`
	Fields    map[string]string `json:"fields,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// NewSession создаёт сессию в указанном состоянии без накопленных полей.
func NewSession(userID student.UserID, state State, now time.Time) Session {
	return Session{
		UserID:    userID,
		State:     state,
		UpdatedAt: now,
	}
}

// WithState возвращает копию сессии в новом состоянии.
func (s Session) WithState(state State, now time.Time) Session {
	next := s.clone()
	next.State = state
	next.UpdatedAt = now
	return next
}

// WithField возвращает копию сессии с добавленным полем.
func (s Session) WithField(key, value string, now time.Time) Session {
	next := s.clone()
	if next.Fields == nil {
		next.Fields = make(map[string]string, 1)
	}
	next.Fields[key] = value
	next.UpdatedAt = now
	return next
}

// Field возвращает накопленное значение поля.
func (s Session) Field(key string) (string, bool) {
	v, ok := s.Fields[key]
	return v, ok
}

// IsIdle сообщает, что активного сценария нет.
func (s Session) IsIdle() bool {
	return s.State == "" || s.State == StateIdle
}

// ExpiredAt сообщает, истекла ли сессия к моменту now при таймауте ttl.
// Нулевой ttl отключает истечение.
func (s Session) ExpiredAt(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(s.UpdatedAt) >= ttl
}

func (s Session) clone() Session {
	next := s
	if s.Fields != nil {
		next.Fields = make(map[string]string, len(s.Fields))
		for k, v := range s.Fields {
			next.Fields[k] = v
		}
	}
	return next
}

// ══════════════════════════════════════════════════════════════════════════════
// STORE INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Store хранит сессии по UserID.
// Отсутствие сессии - нормальное состояние "нет активного сценария".
type Store interface {
	// Get возвращает сессию и признак её наличия.
	// Истёкшая сессия удаляется и считается отсутствующей.
	Get(ctx context.Context, userID student.UserID) (Session, bool, error)

	// Save атомарно заменяет сессию пользователя.
	Save(ctx context.Context, session Session) error

	// Clear удаляет сессию.
	Clear(ctx context.Context, userID student.UserID) error
}
