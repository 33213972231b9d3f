package handler

import (
	"context"

	"github.com/ege-hub/ege-scores-bot/internal/domain/student"
	"github.com/ege-hub/ege-scores-bot/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCORES
// ══════════════════════════════════════════════════════════════════════════════

// EnterScoresHandler handles /enter_scores.
type EnterScoresHandler struct {
	dialogue  Dialogue
	keyboards *presenter.KeyboardBuilder
}

// NewEnterScoresHandler creates an EnterScoresHandler.
func NewEnterScoresHandler(dialogue Dialogue, keyboards *presenter.KeyboardBuilder) *EnterScoresHandler {
	return &EnterScoresHandler{dialogue: dialogue, keyboards: keyboards}
}

// Handle enters the score-entry flow.
func (h *EnterScoresHandler) Handle(ctx context.Context, req Request) (*Response, error) {
	return toResponse(h.dialogue.EnterScores(ctx, student.UserID(req.UserID)), h.keyboards), nil
}

// ViewScoresHandler handles /view_scores.
type ViewScoresHandler struct {
	dialogue  Dialogue
	keyboards *presenter.KeyboardBuilder
}

// NewViewScoresHandler creates a ViewScoresHandler.
func NewViewScoresHandler(dialogue Dialogue, keyboards *presenter.KeyboardBuilder) *ViewScoresHandler {
	return &ViewScoresHandler{dialogue: dialogue, keyboards: keyboards}
}

// Handle lists the user's scores.
func (h *ViewScoresHandler) Handle(ctx context.Context, req Request) (*Response, error) {
	return toResponse(h.dialogue.ViewScores(ctx, student.UserID(req.UserID)), h.keyboards), nil
}
