// Package handler contains Telegram command and text handlers.
// Each handler follows the pattern: receive request → call the dialogue
// controller → turn its reply into a response with a keyboard.
package handler

import (
	"context"

	"github.com/ege-hub/ege-scores-bot/internal/application/intake"
	"github.com/ege-hub/ege-scores-bot/internal/domain/student"
	"github.com/ege-hub/ege-scores-bot/internal/interface/telegram/presenter"
)

// Dialogue is the part of the intake controller the handlers use.
type Dialogue interface {
	Start(ctx context.Context, userID student.UserID) intake.Reply
	Register(ctx context.Context, userID student.UserID) intake.Reply
	EnterScores(ctx context.Context, userID student.UserID) intake.Reply
	ViewScores(ctx context.Context, userID student.UserID) intake.Reply
	Cancel(ctx context.Context, userID student.UserID) intake.Reply
	Help(ctx context.Context, userID student.UserID) intake.Reply
	HandleText(ctx context.Context, userID student.UserID, text string) intake.Reply
}

// Request carries one incoming command or text message.
type Request struct {
	// UserID is the sender's Telegram ID.
	UserID int64

	// ChatID is the chat to answer in.
	ChatID int64

	// MessageID is the original message ID.
	MessageID int

	// Text is the message text, or the command arguments for commands.
	Text string
}

// Response contains the message to send back.
type Response struct {
	// Text is the message text.
	Text string

	// Keyboard is the inline keyboard to attach, if any.
	Keyboard *presenter.InlineKeyboard

	// ParseMode is the Bot API parse mode. Replies are plain text.
	ParseMode string

	// IsError indicates a storage failure reply.
	IsError bool
}

// Handler handles a single routed request.
type Handler interface {
	Handle(ctx context.Context, req Request) (*Response, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req Request) (*Response, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

func toResponse(reply intake.Reply, keyboards *presenter.KeyboardBuilder) *Response {
	return &Response{
		Text:     reply.Text,
		Keyboard: keyboards.ForMarkup(reply.Markup),
		IsError:  reply.IsError,
	}
}
