// Package telegram is the Telegram transport of the EGE scores bot.
// It receives updates (long polling or webhook), routes them to handlers
// and manages the bot lifecycle.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/ege-hub/ege-scores-bot/internal/interface/telegram/handler"
	"github.com/ege-hub/ege-scores-bot/internal/interface/telegram/middleware"
	"github.com/ege-hub/ege-scores-bot/internal/interface/telegram/presenter"
	"github.com/ege-hub/ege-scores-bot/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// BOT CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Update delivery modes.
const (
	ModePolling = "polling"
	ModeWebhook = "webhook"
)

// BotConfig contains configuration for the Telegram bot.
type BotConfig struct {
	// Mode is ModePolling or ModeWebhook.
	Mode string

	// WebhookURL is the public URL Telegram posts updates to.
	WebhookURL string

	// PollingTimeout is the long polling timeout in seconds.
	PollingTimeout int

	// MaxConcurrentUpdates bounds the number of updates handled at once.
	MaxConcurrentUpdates int

	// GracefulShutdownTimeout bounds waiting for in-flight updates in Stop.
	GracefulShutdownTimeout time.Duration

	// Debug enables debug logging.
	Debug bool

	// Logger for structured logging.
	Logger *slog.Logger

	// RateLimit configures the per-user limiter.
	RateLimit middleware.RateLimitConfig

	// Recovery configures panic recovery.
	Recovery middleware.RecoveryConfig
}

// DefaultBotConfig returns sensible defaults.
func DefaultBotConfig() BotConfig {
	return BotConfig{
		Mode:                    ModePolling,
		PollingTimeout:          60,
		MaxConcurrentUpdates:    50,
		GracefulShutdownTimeout: 10 * time.Second,
		RateLimit:               middleware.DefaultRateLimitConfig(),
		Recovery:                middleware.DefaultRecoveryConfig(),
	}
}

// API is the subset of *tgbotapi.BotAPI the bot uses.
type API interface {
	Sender
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	HandleUpdate(r *http.Request) (*tgbotapi.Update, error)
}

// botCommands is the command menu shown by Telegram clients.
var botCommands = []tgbotapi.BotCommand{
	{Command: "start", Description: "Начать"},
	{Command: "register", Description: "Регистрация"},
	{Command: "enter_scores", Description: "Ввести баллы"},
	{Command: "view_scores", Description: "Мои баллы"},
	{Command: "cancel", Description: "Отменить действие"},
	{Command: "help", Description: "Список команд"},
}

// ══════════════════════════════════════════════════════════════════════════════
// BOT
// ══════════════════════════════════════════════════════════════════════════════

// Bot is the main Telegram bot controller.
type Bot struct {
	config BotConfig
	api    API
	router *Router
	logger *slog.Logger

	rateLimiter *middleware.RateLimiter
	recovery    *middleware.RecoveryMiddleware

	// Lifecycle management
	running   bool
	runningMu sync.RWMutex
	runCtx    context.Context
	cancel    context.CancelFunc
	updateSem chan struct{}
	wg        sync.WaitGroup

	users *userLocks
}

// NewBot creates a bot and registers the dialogue handlers on its router.
func NewBot(api API, dialogue handler.Dialogue, keyboards *presenter.KeyboardBuilder, config BotConfig) (*Bot, error) {
	if api == nil {
		return nil, errors.New("telegram api is required")
	}
	if dialogue == nil {
		return nil, errors.New("dialogue is required")
	}
	if keyboards == nil {
		keyboards = presenter.NewKeyboardBuilder()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.MaxConcurrentUpdates <= 0 {
		config.MaxConcurrentUpdates = DefaultBotConfig().MaxConcurrentUpdates
	}
	if config.GracefulShutdownTimeout <= 0 {
		config.GracefulShutdownTimeout = DefaultBotConfig().GracefulShutdownTimeout
	}
	if config.Mode == "" {
		config.Mode = ModePolling
	}
	if config.Recovery.Logger == nil {
		config.Recovery.Logger = config.Logger
	}

	log := config.Logger.With(logger.Component("telegram"))

	router := NewRouter(api, RouterConfig{Logger: log, Debug: config.Debug})
	router.RegisterCommand("start", handler.NewStartHandler(dialogue, keyboards))
	router.RegisterCommand("register", handler.NewRegisterHandler(dialogue, keyboards))
	router.RegisterCommand("enter_scores", handler.NewEnterScoresHandler(dialogue, keyboards))
	router.RegisterCommand("view_scores", handler.NewViewScoresHandler(dialogue, keyboards))
	router.RegisterCommand("cancel", handler.NewCancelHandler(dialogue, keyboards))
	router.RegisterCommand("help", handler.NewHelpHandler(dialogue, keyboards))
	router.RegisterTextInputHandler(handler.NewTextHandler(dialogue, keyboards))

	return &Bot{
		config:      config,
		api:         api,
		router:      router,
		logger:      log,
		rateLimiter: middleware.NewRateLimiter(config.RateLimit),
		recovery:    middleware.NewRecoveryMiddleware(config.Recovery),
		updateSem:   make(chan struct{}, config.MaxConcurrentUpdates),
		users:       newUserLocks(),
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE MANAGEMENT
// ══════════════════════════════════════════════════════════════════════════════

// Start begins receiving updates. It returns once delivery is set up.
func (b *Bot) Start(ctx context.Context) error {
	b.runningMu.Lock()
	if b.running {
		b.runningMu.Unlock()
		return errors.New("bot is already running")
	}
	b.runCtx, b.cancel = context.WithCancel(ctx)
	b.running = true
	b.runningMu.Unlock()

	b.logger.Info("starting telegram bot",
		"mode", b.config.Mode,
		"debug", b.config.Debug,
	)

	if _, err := b.api.Request(tgbotapi.NewSetMyCommands(botCommands...)); err != nil {
		b.logger.Warn("failed to set bot commands", logger.Err(err))
	}

	var err error
	switch b.config.Mode {
	case ModePolling:
		err = b.startPolling()
	case ModeWebhook:
		err = b.startWebhook()
	default:
		err = fmt.Errorf("unknown bot mode: %s", b.config.Mode)
	}

	if err != nil {
		b.runningMu.Lock()
		b.running = false
		b.cancel()
		b.runningMu.Unlock()
	}
	return err
}

// Stop stops receiving updates and waits for in-flight handlers.
func (b *Bot) Stop(ctx context.Context) error {
	b.runningMu.Lock()
	if !b.running {
		b.runningMu.Unlock()
		return nil
	}
	b.running = false
	b.cancel()
	b.runningMu.Unlock()

	b.logger.Info("stopping telegram bot")

	if b.config.Mode == ModePolling {
		b.api.StopReceivingUpdates()
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("all handlers completed gracefully")
	case <-time.After(b.config.GracefulShutdownTimeout):
		b.logger.Warn("graceful shutdown timeout exceeded")
	case <-ctx.Done():
		b.logger.Warn("context cancelled during shutdown")
		return ctx.Err()
	}

	return nil
}

// IsRunning returns whether the bot is currently running.
func (b *Bot) IsRunning() bool {
	b.runningMu.RLock()
	defer b.runningMu.RUnlock()
	return b.running
}

// Router returns the router for handler registration.
func (b *Bot) Router() *Router {
	return b.router
}

// RateLimiter returns the per-user limiter, e.g. to schedule its cleanup.
func (b *Bot) RateLimiter() *middleware.RateLimiter {
	return b.rateLimiter
}

// ══════════════════════════════════════════════════════════════════════════════
// POLLING MODE
// ══════════════════════════════════════════════════════════════════════════════

func (b *Bot) startPolling() error {
	// getUpdates не работает при установленном вебхуке
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		b.logger.Warn("failed to delete webhook", logger.Err(err))
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.config.PollingTimeout
	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("starting long polling", "timeout", b.config.PollingTimeout)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.poll(b.runCtx, updates)
	}()
	return nil
}

func (b *Bot) poll(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.Dispatch(ctx, update)
		}
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// WEBHOOK MODE
// ══════════════════════════════════════════════════════════════════════════════

func (b *Bot) startWebhook() error {
	if b.config.WebhookURL == "" {
		return errors.New("webhook URL is required for webhook mode")
	}

	wh, err := tgbotapi.NewWebhook(b.config.WebhookURL)
	if err != nil {
		return fmt.Errorf("invalid webhook url: %w", err)
	}
	if _, err := b.api.Request(wh); err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}

	b.logger.Info("webhook registered", "url", b.config.WebhookURL)
	return nil
}

// WebhookHandler returns the HTTP handler Telegram posts updates to.
func (b *Bot) WebhookHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		update, err := b.api.HandleUpdate(r)
		if err != nil {
			b.logger.Warn("bad webhook request", logger.Err(err))
			http.Error(w, "bad update", http.StatusBadRequest)
			return
		}

		// wg.Add под локом: Stop не начнёт ждать раньше, чем мы учтены
		b.runningMu.RLock()
		running, ctx := b.running, b.runCtx
		if running {
			b.wg.Add(1)
		}
		b.runningMu.RUnlock()
		if !running {
			http.Error(w, "bot is not running", http.StatusServiceUnavailable)
			return
		}
		defer b.wg.Done()

		b.Dispatch(ctx, *update)
		w.WriteHeader(http.StatusOK)
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE HANDLING
// ══════════════════════════════════════════════════════════════════════════════

// Dispatch handles update in its own goroutine. It blocks while all
// MaxConcurrentUpdates slots are busy.
func (b *Bot) Dispatch(ctx context.Context, update tgbotapi.Update) {
	select {
	case b.updateSem <- struct{}{}:
	case <-ctx.Done():
		return
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() { <-b.updateSem }()

		// Stop отменяет ctx, но начатое обновление доводим до конца
		if err := b.HandleUpdate(context.WithoutCancel(ctx), update); err != nil {
			b.logger.Error("failed to handle update",
				"update_id", update.UpdateID,
				logger.Err(err),
			)
		}
	}()
}

// HandleUpdate processes a single update synchronously. Updates of one user
// are handled one at a time.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) error {
	userID := extractUserID(update)
	if userID == 0 {
		return nil
	}

	unlock := b.users.lock(userID)
	defer unlock()

	ctx = logger.WithRequestID(ctx, b.logger.With(logger.UserID(userID)), uuid.NewString())
	startTime := time.Now()

	var err error
	switch {
	case update.CallbackQuery != nil:
		err = b.handleCallbackQuery(ctx, update.CallbackQuery)
	case update.Message != nil:
		err = b.handleMessage(ctx, update.Message)
	}

	if b.config.Debug {
		logger.FromContext(ctx).Debug("update handled",
			"update_id", update.UpdateID,
			logger.Duration("duration", time.Since(startTime)),
		)
	}
	return err
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil || msg.Chat == nil {
		return nil
	}

	req := handler.Request{
		UserID:    msg.From.ID,
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		Text:      msg.Text,
	}

	if limited := b.rateLimiter.Check(ctx, req.UserID); !limited.Allowed {
		return sendText(b.api, req.ChatID, limited.ResponseMessage, "", nil)
	}

	route := "text"
	run := func() error { return b.router.HandleTextInput(ctx, req) }
	if msg.IsCommand() {
		command := msg.Command()
		req.Text = msg.CommandArguments()
		route = "/" + command
		run = func() error { return b.router.HandleCommand(ctx, command, req) }
	}

	return b.recover(ctx, req.UserID, req.ChatID, route, run)
}

func (b *Bot) handleCallbackQuery(ctx context.Context, cq *tgbotapi.CallbackQuery) error {
	if cq.From == nil {
		return nil
	}

	cb := CallbackContext{
		UserID:  cq.From.ID,
		QueryID: cq.ID,
		Data:    cq.Data,
	}
	if cq.Message != nil && cq.Message.Chat != nil {
		cb.ChatID = cq.Message.Chat.ID
		cb.MessageID = cq.Message.MessageID
	}

	limited := b.rateLimiter.Check(ctx, cb.UserID)

	// ответ на callback убирает "часики" на кнопке
	answer := tgbotapi.NewCallback(cq.ID, "")
	if !limited.Allowed {
		answer = tgbotapi.NewCallbackWithAlert(cq.ID, limited.ResponseMessage)
	}
	if _, err := b.api.Request(answer); err != nil {
		logger.FromContext(ctx).Warn("failed to answer callback", logger.Err(err))
	}
	if !limited.Allowed {
		return nil
	}

	return b.recover(ctx, cb.UserID, cb.ChatID, "callback:"+cb.Data, func() error {
		return b.router.HandleCallback(ctx, cb)
	})
}

func (b *Bot) recover(ctx context.Context, userID, chatID int64, route string, run func() error) error {
	result := b.recovery.RecoverWithHandler(ctx, userID, route, run)
	if !result.Recovered {
		return result.Err
	}
	if chatID == 0 {
		return nil
	}
	return sendText(b.api, chatID, result.UserMessage, "", nil)
}

// extractUserID extracts the Telegram user ID from an update.
func extractUserID(update tgbotapi.Update) int64 {
	if update.Message != nil && update.Message.From != nil {
		return update.Message.From.ID
	}
	if update.CallbackQuery != nil && update.CallbackQuery.From != nil {
		return update.CallbackQuery.From.ID
	}
	return 0
}

// ══════════════════════════════════════════════════════════════════════════════
// PER-USER LOCKS
// ══════════════════════════════════════════════════════════════════════════════

// userLocks hands out one mutex per user. Entries are dropped when no
// goroutine holds or waits for them.
type userLocks struct {
	mu    sync.Mutex
	locks map[int64]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[int64]*userLock)}
}

func (u *userLocks) lock(userID int64) func() {
	u.mu.Lock()
	l, ok := u.locks[userID]
	if !ok {
		l = &userLock{}
		u.locks[userID] = l
	}
	l.refs++
	u.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		u.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(u.locks, userID)
		}
		u.mu.Unlock()
	}
}

func (u *userLocks) len() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.locks)
}
