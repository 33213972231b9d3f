package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ege-hub/ege-scores-bot/internal/application/intake"
	"github.com/ege-hub/ege-scores-bot/internal/domain/student"
	"github.com/ege-hub/ege-scores-bot/internal/infrastructure/persistence/memory"
	"github.com/ege-hub/ege-scores-bot/internal/interface/telegram/handler"
	"github.com/ege-hub/ege-scores-bot/internal/interface/telegram/middleware"
	"github.com/ege-hub/ege-scores-bot/internal/interface/telegram/presenter"
)

// fakeAPI records everything the bot sends.
type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.MessageConfig
	requests []tgbotapi.Chattable
	updates  chan tgbotapi.Update
	stopped  bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{updates: make(chan tgbotapi.Update, 16)}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, m)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeAPI) HandleUpdate(r *http.Request) (*tgbotapi.Update, error) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		return nil, err
	}
	return &update, nil
}

func (f *fakeAPI) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.MessageConfig(nil), f.sent...)
}

func (f *fakeAPI) last(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	msgs := f.messages()
	require.NotEmpty(t, msgs)
	return msgs[len(msgs)-1]
}

// requested reports whether any request matched.
func (f *fakeAPI) requested(match func(tgbotapi.Chattable) bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.requests {
		if match(c) {
			return true
		}
	}
	return false
}

func isCallbackAnswer(c tgbotapi.Chattable) bool { _, ok := c.(tgbotapi.CallbackConfig); return ok }
func isDeleteWebhook(c tgbotapi.Chattable) bool  { _, ok := c.(tgbotapi.DeleteWebhookConfig); return ok }
func isSetMyCommands(c tgbotapi.Chattable) bool  { _, ok := c.(tgbotapi.SetMyCommandsConfig); return ok }
func isWebhookConfig(c tgbotapi.Chattable) bool  { _, ok := c.(tgbotapi.WebhookConfig); return ok }

func messageUpdate(userID int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: userID},
		Chat:      &tgbotapi.Chat{ID: userID},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		n := strings.IndexByte(text, ' ')
		if n < 0 {
			n = len(text)
		}
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: n}}
	}
	return tgbotapi.Update{UpdateID: 1, Message: msg}
}

func callbackUpdate(userID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: 2,
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:      "q1",
			From:    &tgbotapi.User{ID: userID},
			Message: &tgbotapi.Message{MessageID: 5, Chat: &tgbotapi.Chat{ID: userID}},
			Data:    data,
		},
	}
}

type botFixture struct {
	bot     *Bot
	api     *fakeAPI
	gateway *memory.Gateway
}

func newBotFixture(t *testing.T, variant intake.Variant, cfg BotConfig) *botFixture {
	t.Helper()

	gw := memory.NewGateway(student.WriteModeReplace)
	ctrl, err := intake.NewController(intake.Config{
		Gateway:  gw,
		Sessions: memory.NewSessionStore(30 * time.Minute),
		Variant:  variant,
	})
	require.NoError(t, err)

	api := newFakeAPI()
	b, err := NewBot(api, ctrl, presenter.NewKeyboardBuilder(), cfg)
	require.NoError(t, err)

	return &botFixture{bot: b, api: api, gateway: gw}
}

func (f *botFixture) send(t *testing.T, update tgbotapi.Update) tgbotapi.MessageConfig {
	t.Helper()
	require.NoError(t, f.bot.HandleUpdate(context.Background(), update))
	return f.api.last(t)
}

func TestBot_RegistrationAndScoresScenario(t *testing.T) {
	f := newBotFixture(t, intake.VariantKeyboard, DefaultBotConfig())
	ctx := context.Background()

	assert.Contains(t, f.send(t, messageUpdate(1, "/start")).Text, intake.MsgAskFirstName)
	assert.Equal(t, intake.MsgAskLastName, f.send(t, messageUpdate(1, "Anna")).Text)

	done := f.send(t, messageUpdate(1, "Petrova"))
	assert.Equal(t, intake.MsgRegistered, done.Text)
	markup, ok := done.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.NotNil(t, markup.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, presenter.CallbackEnterScores, *markup.InlineKeyboard[0][0].CallbackData)

	registered, err := f.gateway.IsRegistered(ctx, 1)
	require.NoError(t, err)
	assert.True(t, registered)

	// кнопка "Ввести баллы"
	assert.Equal(t, intake.MsgAskSubject, f.send(t, callbackUpdate(1, presenter.CallbackEnterScores)).Text)
	assert.True(t, f.api.requested(isCallbackAnswer))

	assert.Equal(t, intake.MsgAskScore, f.send(t, messageUpdate(1, "Информатика")).Text)
	assert.Equal(t, intake.MsgScoreSaved, f.send(t, messageUpdate(1, "95")).Text)

	entries, err := f.gateway.ListScores(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []student.ScoreEntry{{Subject: "Информатика", Score: 95}}, entries)

	view := f.send(t, messageUpdate(1, "/view_scores"))
	assert.Contains(t, view.Text, "Информатика: 95")
}

func TestBot_BaseScenarioWithDefaultLimits(t *testing.T) {
	f := newBotFixture(t, intake.VariantBase, DefaultBotConfig())
	ctx := context.Background()

	for _, text := range []string{"/start", "Anna", "Petrova", "/enter_scores", "Информатика", "95", "/enter_scores", "Физика"} {
		f.send(t, messageUpdate(5, text))
	}
	assert.Equal(t, intake.MsgScoreSaved, f.send(t, messageUpdate(5, "80")).Text)

	entries, err := f.gateway.ListScores(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []student.ScoreEntry{
		{Subject: "Информатика", Score: 95},
		{Subject: "Физика", Score: 80},
	}, entries)
}

func TestBot_UnknownCommandAndCallback(t *testing.T) {
	f := newBotFixture(t, intake.VariantBase, DefaultBotConfig())

	assert.Equal(t, unknownCommandText, f.send(t, messageUpdate(3, "/nope")).Text)

	before := len(f.api.messages())
	require.NoError(t, f.bot.HandleUpdate(context.Background(), callbackUpdate(3, "other:thing")))
	assert.Len(t, f.api.messages(), before)
}

func TestRouter_DefaultCommandHandler(t *testing.T) {
	f := newBotFixture(t, intake.VariantBase, DefaultBotConfig())
	f.bot.Router().SetDefaultCommandHandler(handler.HandlerFunc(func(_ context.Context, req handler.Request) (*handler.Response, error) {
		return &handler.Response{Text: "нет такой команды"}, nil
	}))

	assert.Equal(t, "нет такой команды", f.send(t, messageUpdate(3, "/nope")).Text)
}

func TestRouter_LogsErrorReplies(t *testing.T) {
	var buf bytes.Buffer
	api := newFakeAPI()
	r := NewRouter(api, RouterConfig{Logger: slog.New(slog.NewTextHandler(&buf, nil))})
	r.RegisterCommand("view_scores", handler.HandlerFunc(func(context.Context, handler.Request) (*handler.Response, error) {
		return &handler.Response{Text: intake.MsgTryAgain, IsError: true}, nil
	}))
	r.RegisterCommand("help", handler.HandlerFunc(func(context.Context, handler.Request) (*handler.Response, error) {
		return &handler.Response{Text: "help"}, nil
	}))

	require.NoError(t, r.HandleCommand(context.Background(), "help", handler.Request{ChatID: 4}))
	assert.NotContains(t, buf.String(), "error reply sent")

	require.NoError(t, r.HandleCommand(context.Background(), "view_scores", handler.Request{ChatID: 4}))
	assert.Contains(t, buf.String(), "error reply sent")
	assert.Contains(t, buf.String(), "chat_id=4")
	assert.Equal(t, intake.MsgTryAgain, api.last(t).Text)
}

func TestBot_RateLimited(t *testing.T) {
	cfg := DefaultBotConfig()
	cfg.RateLimit = middleware.RateLimitConfig{RequestsPerMinute: 1, BurstSize: 1}
	f := newBotFixture(t, intake.VariantBase, cfg)

	assert.Equal(t, intake.MsgHelp, f.send(t, messageUpdate(4, "/help")).Text)
	assert.Contains(t, f.send(t, messageUpdate(4, "/help")).Text, "Слишком много")
}

func TestBot_RecoversFromPanic(t *testing.T) {
	f := newBotFixture(t, intake.VariantBase, DefaultBotConfig())
	f.bot.Router().RegisterCommand("boom", handler.HandlerFunc(func(context.Context, handler.Request) (*handler.Response, error) {
		panic("boom")
	}))

	msg := f.send(t, messageUpdate(5, "/boom"))
	assert.Equal(t, middleware.DefaultRecoveryConfig().UserErrorMessage, msg.Text)
}

func TestBot_HandlerErrorIsReturned(t *testing.T) {
	f := newBotFixture(t, intake.VariantBase, DefaultBotConfig())
	wantErr := errors.New("failed")
	f.bot.Router().RegisterCommand("fail", handler.HandlerFunc(func(context.Context, handler.Request) (*handler.Response, error) {
		return nil, wantErr
	}))

	err := f.bot.HandleUpdate(context.Background(), messageUpdate(6, "/fail"))
	assert.ErrorIs(t, err, wantErr)
}

func TestBot_Polling(t *testing.T) {
	f := newBotFixture(t, intake.VariantBase, DefaultBotConfig())

	require.NoError(t, f.bot.Start(context.Background()))
	assert.True(t, f.bot.IsRunning())
	assert.Error(t, f.bot.Start(context.Background()))
	assert.True(t, f.api.requested(isDeleteWebhook))
	assert.True(t, f.api.requested(isSetMyCommands))

	f.api.updates <- messageUpdate(7, "/help")
	require.Eventually(t, func() bool { return len(f.api.messages()) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, f.bot.Stop(context.Background()))
	assert.False(t, f.bot.IsRunning())
	assert.True(t, f.api.stopped)
}

func TestBot_Webhook(t *testing.T) {
	cfg := DefaultBotConfig()
	cfg.Mode = ModeWebhook
	cfg.WebhookURL = "https://example.org/telegram/webhook"
	f := newBotFixture(t, intake.VariantBase, cfg)

	srv := httptest.NewServer(f.bot.WebhookHandler())
	defer srv.Close()

	// до старта обновления не принимаются
	body, err := json.Marshal(messageUpdate(8, "/help"))
	require.NoError(t, err)
	resp, err := http.Post(srv.URL, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	require.NoError(t, f.bot.Start(context.Background()))
	assert.True(t, f.api.requested(isWebhookConfig))

	resp, err = http.Post(srv.URL, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Eventually(t, func() bool { return len(f.api.messages()) == 1 }, time.Second, 5*time.Millisecond)

	resp, err = http.Post(srv.URL, "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	require.NoError(t, f.bot.Stop(context.Background()))
}

func TestBot_WebhookRequiresURL(t *testing.T) {
	cfg := DefaultBotConfig()
	cfg.Mode = ModeWebhook
	f := newBotFixture(t, intake.VariantBase, cfg)

	assert.Error(t, f.bot.Start(context.Background()))
	assert.False(t, f.bot.IsRunning())
}

func TestUserLocks_SerializeAndRelease(t *testing.T) {
	locks := newUserLocks()

	var (
		mu     sync.Mutex
		active int
		peak   int
		wg     sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.lock(42)
			defer unlock()

			mu.Lock()
			active++
			if active > peak {
				peak = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, peak)
	assert.Zero(t, locks.len())
}

func TestRouter_RegisteredCommands(t *testing.T) {
	f := newBotFixture(t, intake.VariantBase, DefaultBotConfig())
	assert.Equal(t,
		[]string{"cancel", "enter_scores", "help", "register", "start", "view_scores"},
		f.bot.Router().RegisteredCommands(),
	)
}
