package student

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ege-hub/ege-scores-bot/internal/domain/shared"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"latin", "Anna", "Anna", true},
		{"cyrillic", "Пётр", "Пётр", true},
		{"trimmed", "  Petrova \n", "Petrova", true},
		{"decomposed short i", "Андре\u0438\u0306", "Андрей", true},
		{"digit", "Anna1", "", false},
		{"symbol", "Anna!", "", false},
		{"inner space", "Anna Maria", "", false},
		{"hyphen", "Anna-Maria", "", false},
		{"empty", "", "", false},
		{"spaces only", "   ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ValidateName(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateSubject(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"single word", "Информатика", "Информатика", true},
		{"two words", "Русский язык", "Русский язык", true},
		{"no-break space", "Русский\u00a0язык", "Русский\u00a0язык", true},
		{"tab between words", "Русский\tязык", "Русский\tязык", true},
		{"em space", "Русский\u2003язык", "Русский\u2003язык", true},
		{"decomposed short i", "Английски\u0438\u0306", "Английский", true},
		{"latin", "Math", "Math", true},
		{"trimmed", "  Физика  ", "Физика", true},
		{"digit", "Физика2", "", false},
		{"punctuation", "Физика.", "", false},
		{"empty", "", "", false},
		{"whitespace only", " \t ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ValidateSubject(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateScore(t *testing.T) {
	t.Run("boundaries accepted", func(t *testing.T) {
		for _, in := range []string{"0", "100", " 55 "} {
			_, err := ValidateScore(in)
			assert.NoError(t, err, in)
		}
		s, err := ValidateScore("100")
		require.NoError(t, err)
		assert.Equal(t, Score(100), s)
	})

	t.Run("out of range", func(t *testing.T) {
		for _, in := range []string{"-1", "101", "1000", "99999999999999999999", "-99999999999999999999"} {
			_, err := ValidateScore(in)
			assert.ErrorIs(t, err, shared.ErrScoreOutOfRange, in)
			assert.True(t, shared.IsValidation(err))
		}
	})

	t.Run("not numeric", func(t *testing.T) {
		for _, in := range []string{"", "abc", "9.5", "ninety"} {
			_, err := ValidateScore(in)
			assert.ErrorIs(t, err, shared.ErrScoreNotNumeric, in)
		}
	})
}

func TestNewStudent(t *testing.T) {
	s, err := NewStudent(UserID(42), " Anna ", "Petrova", time.Unix(0, 0))
	require.NoError(t, err)
	assert.Equal(t, "Anna", s.FirstName)
	assert.Equal(t, "Petrova", s.LastName)

	_, err = NewStudent(UserID(0), "Anna", "Petrova", time.Now())
	assert.ErrorIs(t, err, shared.ErrInvalidID)

	_, err = NewStudent(UserID(1), "Anna", "P3trova", time.Now())
	assert.ErrorIs(t, err, shared.ErrInvalidName)
}

func TestParseScoreWriteMode(t *testing.T) {
	m, err := ParseScoreWriteMode("append")
	require.NoError(t, err)
	assert.Equal(t, WriteModeAppend, m)

	_, err = ParseScoreWriteMode("merge")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestHasSubject(t *testing.T) {
	entries := []ScoreEntry{{Subject: "Физика", Score: 80}}
	assert.True(t, HasSubject(entries, "Физика"))
	assert.False(t, HasSubject(entries, "Химия"))
	assert.Equal(t, "Физика: 80", entries[0].String())
}
