package student

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/ege-hub/ege-scores-bot/internal/domain/shared"
)

// \s в RE2 только ASCII, поэтому пробелы перечислены явно: Zs (включая
// неразрывный пробел), ASCII-пробелы, разделители \x1c-\x1f, NEL, U+2028/2029.
var (
	namePattern    = regexp.MustCompile(`^[A-Za-z\p{Cyrillic}]+$`)
	subjectPattern = regexp.MustCompile(`^[A-Za-z\p{Cyrillic}\p{Zs}\t\n\v\f\r\x{1c}-\x{1f}\x{85}\x{2028}\x{2029}]+$`)
)

// normalize обрезает пробелы и приводит строку к NFC, чтобы "й" из двух
// кодовых точек совпадал с однобуквенным вариантом.
func normalize(raw string) string {
	return norm.NFC.String(strings.TrimSpace(raw))
}

// ValidateName проверяет имя или фамилию: только латиница или кириллица,
// без цифр, символов и пробелов. Возвращает нормализованное значение.
func ValidateName(raw string) (string, bool) {
	v := normalize(raw)
	if !namePattern.MatchString(v) {
		return "", false
	}
	return v, true
}

// ValidateSubject проверяет название предмета: буквы и пробелы, непустое.
func ValidateSubject(raw string) (string, bool) {
	v := normalize(raw)
	if v == "" || !subjectPattern.MatchString(v) {
		return "", false
	}
	return v, true
}

// ValidateScore разбирает балл. Возвращает ErrScoreNotNumeric для нечисловой
// строки и ErrScoreOutOfRange для значения вне [0, 100].
func ValidateScore(raw string) (Score, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		// целое, не влезающее в int, всё равно число
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return 0, shared.ErrScoreOutOfRange
		}
		return 0, shared.ErrScoreNotNumeric
	}
	s := Score(n)
	if !s.IsValid() {
		return 0, shared.ErrScoreOutOfRange
	}
	return s, nil
}
