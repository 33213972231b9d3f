// Package presenter builds Telegram keyboards for dialogue replies.
package presenter

import (
	"github.com/ege-hub/ege-scores-bot/internal/application/intake"
)

// ══════════════════════════════════════════════════════════════════════════════
// INLINE KEYBOARD TYPES
// Library-agnostic keyboard model. The bot converts it to the Bot API format.
// ══════════════════════════════════════════════════════════════════════════════

// InlineKeyboard represents an inline keyboard.
type InlineKeyboard struct {
	Rows [][]InlineButton
}

// InlineButton represents a single inline button.
type InlineButton struct {
	// Text is the button text.
	Text string

	// CallbackData is the callback data (for callback buttons).
	CallbackData string
}

// NewInlineKeyboard creates a new empty inline keyboard.
func NewInlineKeyboard() *InlineKeyboard {
	return &InlineKeyboard{
		Rows: make([][]InlineButton, 0),
	}
}

// AddRow adds a row of buttons.
func (k *InlineKeyboard) AddRow(buttons ...InlineButton) *InlineKeyboard {
	k.Rows = append(k.Rows, buttons)
	return k
}

// CallbackButton creates a callback button.
func CallbackButton(text, callbackData string) InlineButton {
	return InlineButton{
		Text:         text,
		CallbackData: callbackData,
	}
}

// Callback data understood by the router's "cmd:" handler.
const (
	CallbackPrefixCommand = "cmd:"

	CallbackRegister    = CallbackPrefixCommand + "register"
	CallbackEnterScores = CallbackPrefixCommand + "enter_scores"
	CallbackViewScores  = CallbackPrefixCommand + "view_scores"
)

// ══════════════════════════════════════════════════════════════════════════════
// KEYBOARD BUILDER
// ══════════════════════════════════════════════════════════════════════════════

// KeyboardBuilder builds inline keyboards for handlers.
type KeyboardBuilder struct{}

// NewKeyboardBuilder creates a new KeyboardBuilder.
func NewKeyboardBuilder() *KeyboardBuilder {
	return &KeyboardBuilder{}
}

// MainMenuKeyboard offers score entry and score view.
func (b *KeyboardBuilder) MainMenuKeyboard() *InlineKeyboard {
	return NewInlineKeyboard().
		AddRow(
			CallbackButton("✏️ Ввести баллы", CallbackEnterScores),
			CallbackButton("📋 Мои баллы", CallbackViewScores),
		)
}

// RegisterKeyboard offers registration.
func (b *KeyboardBuilder) RegisterKeyboard() *InlineKeyboard {
	return NewInlineKeyboard().
		AddRow(
			CallbackButton("📝 Зарегистрироваться", CallbackRegister),
		)
}

// ForMarkup returns the keyboard a reply asks for, or nil.
func (b *KeyboardBuilder) ForMarkup(m intake.Markup) *InlineKeyboard {
	switch m {
	case intake.MarkupMainMenu:
		return b.MainMenuKeyboard()
	case intake.MarkupRegister:
		return b.RegisterKeyboard()
	default:
		return nil
	}
}
