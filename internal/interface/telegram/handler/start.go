package handler

import (
	"context"

	"github.com/ege-hub/ege-scores-bot/internal/domain/student"
	"github.com/ege-hub/ege-scores-bot/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// START / REGISTER
// ══════════════════════════════════════════════════════════════════════════════

// StartHandler handles /start.
type StartHandler struct {
	dialogue  Dialogue
	keyboards *presenter.KeyboardBuilder
}

// NewStartHandler creates a StartHandler.
func NewStartHandler(dialogue Dialogue, keyboards *presenter.KeyboardBuilder) *StartHandler {
	return &StartHandler{dialogue: dialogue, keyboards: keyboards}
}

// Handle greets the user and starts registration when needed.
func (h *StartHandler) Handle(ctx context.Context, req Request) (*Response, error) {
	return toResponse(h.dialogue.Start(ctx, student.UserID(req.UserID)), h.keyboards), nil
}

// RegisterHandler handles /register.
type RegisterHandler struct {
	dialogue  Dialogue
	keyboards *presenter.KeyboardBuilder
}

// NewRegisterHandler creates a RegisterHandler.
func NewRegisterHandler(dialogue Dialogue, keyboards *presenter.KeyboardBuilder) *RegisterHandler {
	return &RegisterHandler{dialogue: dialogue, keyboards: keyboards}
}

// Handle enters the registration flow.
func (h *RegisterHandler) Handle(ctx context.Context, req Request) (*Response, error) {
	return toResponse(h.dialogue.Register(ctx, student.UserID(req.UserID)), h.keyboards), nil
}
