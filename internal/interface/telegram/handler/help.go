package handler

import (
	"context"

	"github.com/ege-hub/ege-scores-bot/internal/domain/student"
	"github.com/ege-hub/ege-scores-bot/internal/interface/telegram/presenter"
)

// HelpHandler handles /help.
type HelpHandler struct {
	dialogue  Dialogue
	keyboards *presenter.KeyboardBuilder
}

// NewHelpHandler creates a HelpHandler.
func NewHelpHandler(dialogue Dialogue, keyboards *presenter.KeyboardBuilder) *HelpHandler {
	return &HelpHandler{dialogue: dialogue, keyboards: keyboards}
}

// Handle lists the available commands.
func (h *HelpHandler) Handle(ctx context.Context, req Request) (*Response, error) {
	return toResponse(h.dialogue.Help(ctx, student.UserID(req.UserID)), h.keyboards), nil
}

// CancelHandler handles /cancel.
type CancelHandler struct {
	dialogue  Dialogue
	keyboards *presenter.KeyboardBuilder
}

// NewCancelHandler creates a CancelHandler.
func NewCancelHandler(dialogue Dialogue, keyboards *presenter.KeyboardBuilder) *CancelHandler {
	return &CancelHandler{dialogue: dialogue, keyboards: keyboards}
}

// Handle drops the active flow.
func (h *CancelHandler) Handle(ctx context.Context, req Request) (*Response, error) {
	return toResponse(h.dialogue.Cancel(ctx, student.UserID(req.UserID)), h.keyboards), nil
}

// TextHandler feeds free text into the active flow.
type TextHandler struct {
	dialogue  Dialogue
	keyboards *presenter.KeyboardBuilder
}

// NewTextHandler creates a TextHandler.
func NewTextHandler(dialogue Dialogue, keyboards *presenter.KeyboardBuilder) *TextHandler {
	return &TextHandler{dialogue: dialogue, keyboards: keyboards}
}

// Handle processes text input.
func (h *TextHandler) Handle(ctx context.Context, req Request) (*Response, error) {
	return toResponse(h.dialogue.HandleText(ctx, student.UserID(req.UserID), req.Text), h.keyboards), nil
}
