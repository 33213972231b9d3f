// Package intake drives the registration and score-entry dialogues.
//
// The Controller receives one event per call (a command or free text), reads
// the user's session, validates input, writes to the student gateway when a
// flow completes and returns the reply to send. Validation failures are
// answered with a re-prompt in the same state. Storage failures are logged
// and answered with MsgTryAgain; the session keeps its previous state so
// resending the last input retries the write.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ege-hub/ege-scores-bot/internal/domain/dialogue"
	"github.com/ege-hub/ege-scores-bot/internal/domain/shared"
	"github.com/ege-hub/ege-scores-bot/internal/domain/student"
	"github.com/ege-hub/ege-scores-bot/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// TYPES
// ══════════════════════════════════════════════════════════════════════════════

// Variant selects the dialogue rules.
type Variant string

const (
	// VariantBase lets anyone enter scores and replies without keyboards.
	VariantBase Variant = "base"
	// VariantKeyboard requires registration for scores, rejects repeated
	// subjects and attaches inline keyboards.
	VariantKeyboard Variant = "keyboard"
)

// IsValid reports whether the variant is known.
func (v Variant) IsValid() bool {
	return v == VariantBase || v == VariantKeyboard
}

// Markup tells the transport which keyboard to attach to a reply.
type Markup int

const (
	MarkupNone Markup = iota
	MarkupMainMenu
	MarkupRegister
)

// Reply is the controller's answer to one event.
type Reply struct {
	Text   string
	Markup Markup

	// IsError marks replies produced by a storage failure.
	IsError bool
}

// Config holds controller dependencies.
type Config struct {
	Gateway  student.Gateway
	Sessions dialogue.Store
	Variant  Variant

	// StorageTimeout bounds each gateway and session call. Zero disables it.
	StorageTimeout time.Duration

	Logger *slog.Logger
	Now    func() time.Time
}

// Controller implements the dialogue state machine.
type Controller struct {
	gateway        student.Gateway
	sessions       dialogue.Store
	variant        Variant
	storageTimeout time.Duration
	logger         *slog.Logger
	now            func() time.Time
}

// NewController validates cfg and creates a controller.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Gateway == nil {
		return nil, errors.New("intake: gateway is required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("intake: session store is required")
	}
	if cfg.Variant == "" {
		cfg.Variant = VariantBase
	}
	if !cfg.Variant.IsValid() {
		return nil, fmt.Errorf("intake: unknown variant %q", cfg.Variant)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Controller{
		gateway:        cfg.Gateway,
		sessions:       cfg.Sessions,
		variant:        cfg.Variant,
		storageTimeout: cfg.StorageTimeout,
		logger:         cfg.Logger.With(logger.Component("intake")),
		now:            cfg.Now,
	}, nil
}

// Variant returns the configured variant.
func (c *Controller) Variant() Variant {
	return c.variant
}

// ══════════════════════════════════════════════════════════════════════════════
// COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

// Start greets the user. An unregistered user is moved straight into the
// registration flow.
func (c *Controller) Start(ctx context.Context, userID student.UserID) Reply {
	registered, err := c.isRegistered(ctx, userID)
	if err != nil {
		return c.storageFailure(ctx, userID, "Start", err)
	}

	if registered {
		return Reply{Text: MsgStartRegistered, Markup: c.menu()}
	}

	if err := c.save(ctx, dialogue.NewSession(userID, dialogue.StateAwaitingFirstName, c.now())); err != nil {
		return c.storageFailure(ctx, userID, "Start", err)
	}

	return Reply{Text: MsgStartGreeting + "\n\n" + MsgAskFirstName}
}

// Register enters the registration flow unless the user is already registered.
func (c *Controller) Register(ctx context.Context, userID student.UserID) Reply {
	registered, err := c.isRegistered(ctx, userID)
	if err != nil {
		return c.storageFailure(ctx, userID, "Register", err)
	}

	if registered {
		return Reply{Text: MsgAlreadyRegistered, Markup: c.menu()}
	}

	if err := c.save(ctx, dialogue.NewSession(userID, dialogue.StateAwaitingFirstName, c.now())); err != nil {
		return c.storageFailure(ctx, userID, "Register", err)
	}

	return Reply{Text: MsgAskFirstName}
}

// EnterScores enters the score-entry flow. The keyboard variant requires
// registration first and leaves the session untouched otherwise.
func (c *Controller) EnterScores(ctx context.Context, userID student.UserID) Reply {
	if reply, gated := c.requireRegistration(ctx, userID, "EnterScores"); gated {
		return reply
	}

	if err := c.save(ctx, dialogue.NewSession(userID, dialogue.StateAwaitingSubject, c.now())); err != nil {
		return c.storageFailure(ctx, userID, "EnterScores", err)
	}

	return Reply{Text: MsgAskSubject}
}

// ViewScores lists the user's scores. It never touches the session.
func (c *Controller) ViewScores(ctx context.Context, userID student.UserID) Reply {
	if reply, gated := c.requireRegistration(ctx, userID, "ViewScores"); gated {
		return reply
	}

	entries, err := c.listScores(ctx, userID)
	if err != nil {
		return c.storageFailure(ctx, userID, "ViewScores", err)
	}

	return Reply{Text: FormatScores(entries), Markup: c.menu()}
}

// Cancel drops the user's active flow, if any.
func (c *Controller) Cancel(ctx context.Context, userID student.UserID) Reply {
	sess, ok, err := c.get(ctx, userID)
	if err != nil {
		return c.storageFailure(ctx, userID, "Cancel", err)
	}

	if !ok || sess.IsIdle() {
		return Reply{Text: MsgNothingToCancel, Markup: c.menu()}
	}

	if err := c.clear(ctx, userID); err != nil {
		return c.storageFailure(ctx, userID, "Cancel", err)
	}

	return Reply{Text: MsgCancelled, Markup: c.menu()}
}

// Help lists the available commands.
func (c *Controller) Help(_ context.Context, _ student.UserID) Reply {
	return Reply{Text: MsgHelp, Markup: c.menu()}
}

// ══════════════════════════════════════════════════════════════════════════════
// TEXT INPUT
// ══════════════════════════════════════════════════════════════════════════════

// HandleText feeds free text into the user's active flow.
func (c *Controller) HandleText(ctx context.Context, userID student.UserID, text string) Reply {
	sess, ok, err := c.get(ctx, userID)
	if err != nil {
		return c.storageFailure(ctx, userID, "HandleText", err)
	}

	if !ok || sess.IsIdle() {
		return Reply{Text: MsgUnknownInput}
	}

	switch sess.State {
	case dialogue.StateAwaitingFirstName:
		return c.onFirstName(ctx, sess, text)
	case dialogue.StateAwaitingLastName:
		return c.onLastName(ctx, sess, text)
	case dialogue.StateAwaitingSubject:
		return c.onSubject(ctx, sess, text)
	case dialogue.StateAwaitingScore:
		return c.onScore(ctx, sess, text)
	default:
		return c.resetBroken(ctx, sess, shared.ErrUnknownState)
	}
}

func (c *Controller) onFirstName(ctx context.Context, sess dialogue.Session, text string) Reply {
	name, ok := student.ValidateName(text)
	if !ok {
		return Reply{Text: MsgInvalidFirstName}
	}

	now := c.now()
	next := sess.
		WithField(dialogue.FieldFirstName, name, now).
		WithState(dialogue.StateAwaitingLastName, now)

	if err := c.save(ctx, next); err != nil {
		return c.storageFailure(ctx, sess.UserID, "SaveFirstName", err)
	}

	return Reply{Text: MsgAskLastName}
}

func (c *Controller) onLastName(ctx context.Context, sess dialogue.Session, text string) Reply {
	lastName, ok := student.ValidateName(text)
	if !ok {
		return Reply{Text: MsgInvalidLastName}
	}

	firstName, ok := sess.Field(dialogue.FieldFirstName)
	if !ok {
		return c.resetBroken(ctx, sess, shared.ErrMissingField)
	}

	if err := c.register(ctx, sess.UserID, firstName, lastName); err != nil {
		return c.storageFailure(ctx, sess.UserID, "Register", err)
	}

	c.finish(ctx, sess.UserID)

	c.logger.Info("student registered", logger.UserID(int64(sess.UserID)))

	return Reply{Text: MsgRegistered, Markup: c.menu()}
}

func (c *Controller) onSubject(ctx context.Context, sess dialogue.Session, text string) Reply {
	subject, ok := student.ValidateSubject(text)
	if !ok {
		return Reply{Text: MsgInvalidSubject}
	}

	if c.variant == VariantKeyboard {
		entries, err := c.listScores(ctx, sess.UserID)
		if err != nil {
			return c.storageFailure(ctx, sess.UserID, "CheckSubject", err)
		}
		if student.HasSubject(entries, subject) {
			return Reply{Text: MsgSubjectExists}
		}
	}

	now := c.now()
	next := sess.
		WithField(dialogue.FieldSubject, subject, now).
		WithState(dialogue.StateAwaitingScore, now)

	if err := c.save(ctx, next); err != nil {
		return c.storageFailure(ctx, sess.UserID, "SaveSubject", err)
	}

	return Reply{Text: MsgAskScore}
}

func (c *Controller) onScore(ctx context.Context, sess dialogue.Session, text string) Reply {
	score, err := student.ValidateScore(text)
	switch {
	case errors.Is(err, shared.ErrScoreNotNumeric):
		return Reply{Text: MsgScoreNotNumeric}
	case errors.Is(err, shared.ErrScoreOutOfRange):
		return Reply{Text: MsgScoreOutOfRange}
	case err != nil:
		return Reply{Text: MsgScoreNotNumeric}
	}

	subject, ok := sess.Field(dialogue.FieldSubject)
	if !ok {
		return c.resetBroken(ctx, sess, shared.ErrMissingField)
	}

	if err := c.upsertScore(ctx, sess.UserID, subject, score); err != nil {
		return c.storageFailure(ctx, sess.UserID, "UpsertScore", err)
	}

	c.finish(ctx, sess.UserID)

	c.logger.Info("score saved",
		logger.UserID(int64(sess.UserID)),
		slog.String("subject", subject),
		slog.Int("score", int(score)),
	)

	return Reply{Text: MsgScoreSaved, Markup: c.menu()}
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// requireRegistration gates an operation in the keyboard variant.
func (c *Controller) requireRegistration(ctx context.Context, userID student.UserID, op string) (Reply, bool) {
	if c.variant != VariantKeyboard {
		return Reply{}, false
	}

	registered, err := c.isRegistered(ctx, userID)
	if err != nil {
		return c.storageFailure(ctx, userID, op, err), true
	}
	if !registered {
		return Reply{Text: MsgRegistrationRequired, Markup: MarkupRegister}, true
	}

	return Reply{}, false
}

func (c *Controller) menu() Markup {
	if c.variant == VariantKeyboard {
		return MarkupMainMenu
	}
	return MarkupNone
}

// finish clears a completed flow. The write already succeeded, so a failed
// clear is only logged.
func (c *Controller) finish(ctx context.Context, userID student.UserID) {
	if err := c.clear(ctx, userID); err != nil {
		c.log(ctx).Warn("failed to clear session",
			logger.UserID(int64(userID)),
			logger.Err(err),
		)
	}
}

// resetBroken drops a session that cannot be continued.
func (c *Controller) resetBroken(ctx context.Context, sess dialogue.Session, cause error) Reply {
	c.log(ctx).Error("inconsistent session reset",
		logger.UserID(int64(sess.UserID)),
		logger.State(string(sess.State)),
		logger.Err(cause),
	)
	_ = c.clear(ctx, sess.UserID)
	return Reply{Text: MsgTryAgain, IsError: true}
}

func (c *Controller) storageFailure(ctx context.Context, userID student.UserID, op string, err error) Reply {
	c.log(ctx).Error("storage failure",
		logger.UserID(int64(userID)),
		logger.Operation(op),
		slog.Bool("timeout", shared.IsTimeout(err)),
		logger.Err(err),
	)
	return Reply{Text: MsgTryAgain, IsError: true}
}

func (c *Controller) log(ctx context.Context) *slog.Logger {
	return logger.FromContextOr(ctx, c.logger)
}

func (c *Controller) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.storageTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.storageTimeout)
}

func (c *Controller) isRegistered(ctx context.Context, userID student.UserID) (bool, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.gateway.IsRegistered(ctx, userID)
}

func (c *Controller) register(ctx context.Context, userID student.UserID, first, last string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.gateway.Register(ctx, userID, first, last)
}

func (c *Controller) upsertScore(ctx context.Context, userID student.UserID, subject string, score student.Score) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.gateway.UpsertScore(ctx, userID, subject, score)
}

func (c *Controller) listScores(ctx context.Context, userID student.UserID) ([]student.ScoreEntry, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.gateway.ListScores(ctx, userID)
}

func (c *Controller) get(ctx context.Context, userID student.UserID) (dialogue.Session, bool, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.sessions.Get(ctx, userID)
}

func (c *Controller) save(ctx context.Context, sess dialogue.Session) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.sessions.Save(ctx, sess)
}

func (c *Controller) clear(ctx context.Context, userID student.UserID) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.sessions.Clear(ctx, userID)
}
