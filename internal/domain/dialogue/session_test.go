package dialogue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSession_FunctionalUpdate(t *testing.T) {
	now := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	base := NewSession(7, StateAwaitingFirstName, now)

	withName := base.WithField(FieldFirstName, "Anna", now.Add(time.Second))
	next := withName.WithState(StateAwaitingLastName, now.Add(2*time.Second))

	_, ok := base.Field(FieldFirstName)
	assert.False(t, ok, "original session must not see the new field")
	assert.Equal(t, StateAwaitingFirstName, base.State)

	name, ok := next.Field(FieldFirstName)
	assert.True(t, ok)
	assert.Equal(t, "Anna", name)
	assert.Equal(t, StateAwaitingLastName, next.State)
	assert.Equal(t, now.Add(2*time.Second), next.UpdatedAt)

	overwritten := next.WithField(FieldFirstName, "Maria", now)
	name, _ = next.Field(FieldFirstName)
	assert.Equal(t, "Anna", name, "maps are copied on write")
	name, _ = overwritten.Field(FieldFirstName)
	assert.Equal(t, "Maria", name)
}

func TestSession_ExpiredAt(t *testing.T) {
	now := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	s := NewSession(7, StateAwaitingSubject, now)

	assert.False(t, s.ExpiredAt(now.Add(29*time.Minute), 30*time.Minute))
	assert.True(t, s.ExpiredAt(now.Add(30*time.Minute), 30*time.Minute))
	assert.False(t, s.ExpiredAt(now.Add(24*time.Hour), 0), "zero ttl disables expiry")
}

func TestState_IsValid(t *testing.T) {
	assert.True(t, StateAwaitingScore.IsValid())
	assert.False(t, State("awaiting_age").IsValid())
	assert.True(t, Session{}.IsIdle())
}
