package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ege-hub/ege-scores-bot/internal/interface/telegram/handler"
	"github.com/ege-hub/ege-scores-bot/internal/interface/telegram/presenter"
	"github.com/ege-hub/ege-scores-bot/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROUTER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// RouterConfig contains configuration for the router.
type RouterConfig struct {
	// Logger for structured logging.
	Logger *slog.Logger

	// Debug enables debug logging for routing decisions.
	Debug bool
}

// Sender is the part of the Bot API the router and the bot talk to.
// *tgbotapi.BotAPI implements it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// unknownCommandText is sent for commands without a handler.
const unknownCommandText = "❓ Неизвестная команда. Список команд: /help"

// ══════════════════════════════════════════════════════════════════════════════
// CONTEXT TYPES
// ══════════════════════════════════════════════════════════════════════════════

// CallbackContext contains context for callback query handling.
type CallbackContext struct {
	// UserID is the user's Telegram ID.
	UserID int64

	// ChatID is the chat where the keyboard was shown.
	ChatID int64

	// MessageID is the ID of the message with the inline keyboard.
	MessageID int

	// QueryID is the callback query ID.
	QueryID string

	// Data is the callback data string.
	Data string
}

// CallbackHandler handles callbacks matching a registered prefix.
type CallbackHandler func(ctx context.Context, cb CallbackContext) (*handler.Response, error)

// ══════════════════════════════════════════════════════════════════════════════
// ROUTER
// Routes incoming updates to appropriate handlers.
// ══════════════════════════════════════════════════════════════════════════════

// Router routes Telegram updates to handlers and sends their responses.
// It is built once at startup and then only read.
type Router struct {
	config RouterConfig
	logger *slog.Logger
	sender Sender

	mu                     sync.RWMutex
	commandHandlers        map[string]handler.Handler
	callbackPrefixHandlers map[string]CallbackHandler
	textInputHandler       handler.Handler
	defaultCommandHandler  handler.Handler
}

// NewRouter creates a new router that answers through sender.
func NewRouter(sender Sender, config RouterConfig) *Router {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	r := &Router{
		config:                 config,
		logger:                 config.Logger,
		sender:                 sender,
		commandHandlers:        make(map[string]handler.Handler),
		callbackPrefixHandlers: make(map[string]CallbackHandler),
	}
	r.defaultCommandHandler = handler.HandlerFunc(r.handleUnknownCommand)
	r.RegisterCallbackPrefix(presenter.CallbackPrefixCommand, r.commandCallbackHandler)

	return r
}

// ══════════════════════════════════════════════════════════════════════════════
// REGISTRATION METHODS
// ══════════════════════════════════════════════════════════════════════════════

// RegisterCommand registers a handler for a command given without the leading "/".
func (r *Router) RegisterCommand(command string, h handler.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.commandHandlers[command] = h

	if r.config.Debug {
		r.logger.Debug("registered command handler", "command", command)
	}
}

// RegisterCallbackPrefix registers a handler for callbacks matching a prefix.
// The prefix should include the trailing delimiter (e.g., "cmd:").
func (r *Router) RegisterCallbackPrefix(prefix string, h CallbackHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.callbackPrefixHandlers[prefix] = h

	if r.config.Debug {
		r.logger.Debug("registered callback prefix handler", "prefix", prefix)
	}
}

// RegisterTextInputHandler registers the handler for non-command messages.
func (r *Router) RegisterTextInputHandler(h handler.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.textInputHandler = h
}

// SetDefaultCommandHandler sets the handler for unknown commands.
func (r *Router) SetDefaultCommandHandler(h handler.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultCommandHandler = h
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING METHODS
// ══════════════════════════════════════════════════════════════════════════════

// HandleCommand routes a command to its handler and sends the response.
func (r *Router) HandleCommand(ctx context.Context, command string, req handler.Request) error {
	resp, err := r.resolveCommand(ctx, command, req)
	if err != nil {
		return fmt.Errorf("command %s: %w", command, err)
	}
	return r.send(ctx, req.ChatID, resp)
}

func (r *Router) resolveCommand(ctx context.Context, command string, req handler.Request) (*handler.Response, error) {
	r.mu.RLock()
	h, ok := r.commandHandlers[command]
	if !ok {
		h = r.defaultCommandHandler
	}
	r.mu.RUnlock()

	if !ok && r.config.Debug {
		logger.FromContextOr(ctx, r.logger).Debug("no handler for command", "command", command)
	}

	return h.Handle(ctx, req)
}

// HandleCallback routes a callback to the handler with the longest matching prefix.
func (r *Router) HandleCallback(ctx context.Context, cb CallbackContext) error {
	r.mu.RLock()
	var matchedPrefix string
	var matched CallbackHandler
	for prefix, h := range r.callbackPrefixHandlers {
		if strings.HasPrefix(cb.Data, prefix) && len(prefix) > len(matchedPrefix) {
			matchedPrefix = prefix
			matched = h
		}
	}
	r.mu.RUnlock()

	if matched == nil {
		// не отвечаем, чтобы не спамить
		logger.FromContextOr(ctx, r.logger).Warn("unknown callback", "data", cb.Data)
		return nil
	}

	resp, err := matched(ctx, cb)
	if err != nil {
		return fmt.Errorf("callback %s: %w", cb.Data, err)
	}
	return r.send(ctx, cb.ChatID, resp)
}

// HandleTextInput routes a non-command message to the text handler.
func (r *Router) HandleTextInput(ctx context.Context, req handler.Request) error {
	r.mu.RLock()
	h := r.textInputHandler
	r.mu.RUnlock()

	if h == nil {
		return nil
	}

	resp, err := h.Handle(ctx, req)
	if err != nil {
		return fmt.Errorf("text input: %w", err)
	}
	return r.send(ctx, req.ChatID, resp)
}

// commandCallbackHandler turns "cmd:enter_scores" into the enter_scores command.
func (r *Router) commandCallbackHandler(ctx context.Context, cb CallbackContext) (*handler.Response, error) {
	command := strings.TrimPrefix(cb.Data, presenter.CallbackPrefixCommand)
	if command == "" {
		return nil, nil
	}

	return r.resolveCommand(ctx, command, handler.Request{
		UserID:    cb.UserID,
		ChatID:    cb.ChatID,
		MessageID: cb.MessageID,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// DEFAULT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (r *Router) handleUnknownCommand(_ context.Context, _ handler.Request) (*handler.Response, error) {
	return &handler.Response{Text: unknownCommandText}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// send delivers resp as a new message. A nil response or a zero chat is a no-op.
func (r *Router) send(ctx context.Context, chatID int64, resp *handler.Response) error {
	if resp == nil || resp.Text == "" || chatID == 0 {
		return nil
	}
	if resp.IsError {
		logger.FromContextOr(ctx, r.logger).Warn("error reply sent", "chat_id", chatID)
	}
	return sendText(r.sender, chatID, resp.Text, resp.ParseMode, resp.Keyboard)
}

func sendText(sender Sender, chatID int64, text, parseMode string, keyboard *presenter.InlineKeyboard) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = parseMode
	if markup := convertKeyboard(keyboard); markup != nil {
		msg.ReplyMarkup = *markup
	}

	if _, err := sender.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// convertKeyboard converts presenter.InlineKeyboard to tgbotapi.InlineKeyboardMarkup.
func convertKeyboard(kb *presenter.InlineKeyboard) *tgbotapi.InlineKeyboardMarkup {
	if kb == nil || len(kb.Rows) == 0 {
		return nil
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb.Rows))
	for _, row := range kb.Rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.CallbackData))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons...))
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTE INFO (for introspection)
// ══════════════════════════════════════════════════════════════════════════════

// RegisteredCommands returns the registered command names, sorted.
func (r *Router) RegisteredCommands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	commands := make([]string, 0, len(r.commandHandlers))
	for cmd := range r.commandHandlers {
		commands = append(commands, cmd)
	}
	sort.Strings(commands)
	return commands
}
