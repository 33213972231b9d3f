package intake

import (
	"strings"

	"github.com/ege-hub/ege-scores-bot/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// ТЕКСТЫ ОТВЕТОВ
// ══════════════════════════════════════════════════════════════════════════════

const (
	// Старт и регистрация
	MsgStartRegistered   = "Привет) Ты уже зарегистрирован) Вход выполнен успешно!)"
	MsgStartGreeting     = "Привет! Я бот для сбора баллов ЕГЭ. Давай познакомимся."
	MsgAlreadyRegistered = "Ты уже зарегистрирован)"
	MsgAskFirstName      = "Введите ваше имя:"
	MsgInvalidFirstName  = "Имя не может содержать специальные символы или цифры. Пожалуйста, введи свое имя снова:"
	MsgAskLastName       = "Введи свою фамилию:"
	MsgInvalidLastName   = "Фамилия не может содержать специальные символы или цифры. Пожалуйста, введите свою фамилию снова:"
	MsgRegistered        = "Ты успешно зарегистрирован!"

	// Ввод баллов
	MsgRegistrationRequired = "Сначала нужно зарегистрироваться. Нажми кнопку ниже или отправь /register."
	MsgAskSubject           = "Введи название предмета:"
	MsgInvalidSubject       = "Пожалуйста, введите корректное название предмета (только буквы и пробелы)."
	MsgSubjectExists        = "Этот предмет уже добавлен. Введи другой предмет:"
	MsgAskScore             = "Введите полученный балл:"
	MsgScoreNotNumeric      = "Пожалуйста, введи числовое значение для балла."
	MsgScoreOutOfRange      = "Пожалуйста, введи верное числовое значение для балла."
	MsgScoreSaved           = "Балл успешно сохранен!"

	// Просмотр
	MsgScoresHeader = "Твои баллы ЕГЭ:\n"
	MsgNoScores     = "У тебя нет сохраненных баллов("

	// Служебные
	MsgCancelled       = "Действие отменено."
	MsgNothingToCancel = "Сейчас нечего отменять."
	MsgTryAgain        = "😔 Не получилось сохранить данные. Попробуй ещё раз чуть позже."
	MsgUnknownInput    = "Не понимаю 🤔 Список команд: /help"
	MsgHelp            = "Команды:\n" +
		"/start - начать\n" +
		"/register - регистрация\n" +
		"/enter_scores - ввести балл ЕГЭ\n" +
		"/view_scores - мои баллы\n" +
		"/cancel - отменить текущее действие\n" +
		"/help - эта справка"
)

// FormatScores renders scores as a header followed by "subject: score" lines.
func FormatScores(entries []student.ScoreEntry) string {
	if len(entries) == 0 {
		return MsgNoScores
	}

	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.String()
	}

	return MsgScoresHeader + strings.Join(lines, "\n")
}
