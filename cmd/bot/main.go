// Package main является точкой входа для бота приёма баллов ЕГЭ.
//
// Бот собирает имя и фамилию ученика, принимает баллы по предметам
// и показывает сохранённые результаты.
//
// Порядок инициализации:
//  1. Загрузка конфигурации из .env и окружения
//  2. Настройка логирования
//  3. Хранилище учеников и баллов (memory/postgres/redis/mongo)
//  4. Хранилище сессий диалога (memory/redis)
//  5. Контроллер диалога
//  6. Telegram Bot API
//  7. HTTP сервер (health, webhook)
//  8. Планировщик фоновых задач
//  9. Запуск и graceful shutdown
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ege-hub/ege-scores-bot/config"
	"github.com/ege-hub/ege-scores-bot/internal/application/intake"
	"github.com/ege-hub/ege-scores-bot/internal/domain/dialogue"
	"github.com/ege-hub/ege-scores-bot/internal/domain/student"
	"github.com/ege-hub/ege-scores-bot/internal/infrastructure/persistence/memory"
	mongostore "github.com/ege-hub/ege-scores-bot/internal/infrastructure/persistence/mongo"
	"github.com/ege-hub/ege-scores-bot/internal/infrastructure/persistence/postgres"
	"github.com/ege-hub/ege-scores-bot/internal/infrastructure/persistence/redis"
	"github.com/ege-hub/ege-scores-bot/internal/infrastructure/scheduler"
	"github.com/ege-hub/ege-scores-bot/internal/infrastructure/scheduler/jobs"
	httpserver "github.com/ege-hub/ege-scores-bot/internal/interface/http"
	"github.com/ege-hub/ege-scores-bot/internal/interface/http/handlers"
	"github.com/ege-hub/ege-scores-bot/internal/interface/telegram"
	"github.com/ege-hub/ege-scores-bot/internal/interface/telegram/middleware"
	"github.com/ege-hub/ege-scores-bot/internal/interface/telegram/presenter"
	"github.com/ege-hub/ege-scores-bot/pkg/logger"
	"github.com/ege-hub/ege-scores-bot/pkg/retry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("application failed", logger.Err(err))
		os.Exit(1)
	}
}

// run инициализирует и запускает все компоненты приложения.
func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := logger.Setup(logger.Options{
		Env:   string(cfg.App.Environment),
		Debug: cfg.App.Debug,
	})

	log.Info("starting EGE scores bot",
		"version", cfg.App.Version,
		"env", cfg.App.Environment,
		"storage", cfg.Storage.Backend,
		"sessions", cfg.Session.Backend,
		"variant", cfg.Flow.Variant,
		"write_mode", cfg.Storage.ScoreWriteMode,
	)

	health := handlers.NewCompositeHealthChecker(cfg.App.Version)

	// Redis нужен и для хранилища, и для сессий; соединение одно.
	var redisCache *redis.Cache
	if cfg.UsesRedis() {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize

		redisCache, err = retry.DoWithData(ctx, retry.DatabaseRetrier(), func(context.Context) (*redis.Cache, error) {
			return redis.NewCache(redisCfg)
		})
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		defer func() {
			log.Info("closing Redis connection...")
			_ = redisCache.Close()
		}()
		health.AddCheck("redis", handlers.NewPingCheck(redisCache))
		log.Info("Redis connection established", "addr", redisCfg.Addr())
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ХРАНИЛИЩЕ УЧЕНИКОВ И БАЛЛОВ
	// ─────────────────────────────────────────────────────────────────────────
	gateway, closeGateway, err := openGateway(ctx, cfg, redisCache, log)
	if err != nil {
		return err
	}
	defer closeGateway()
	health.AddCheck("storage", handlers.NewPingCheck(gateway))

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ХРАНИЛИЩЕ СЕССИЙ
	// ─────────────────────────────────────────────────────────────────────────
	var (
		sessions      dialogue.Store
		memorySession *memory.SessionStore
	)
	switch cfg.Session.Backend {
	case config.BackendRedis:
		sessions = redis.NewSessionStore(redisCache, cfg.Session.IdleTimeout)
	default:
		memorySession = memory.NewSessionStore(cfg.Session.IdleTimeout)
		sessions = memorySession
	}
	log.Info("session store ready",
		"backend", cfg.Session.Backend,
		logger.Duration("idle_timeout", cfg.Session.IdleTimeout),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 5. КОНТРОЛЛЕР ДИАЛОГА
	// ─────────────────────────────────────────────────────────────────────────
	controller, err := intake.NewController(intake.Config{
		Gateway:        gateway,
		Sessions:       sessions,
		Variant:        intake.Variant(cfg.Flow.Variant),
		StorageTimeout: cfg.Storage.Timeout,
		Logger:         log,
	})
	if err != nil {
		return fmt.Errorf("failed to create dialogue controller: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. TELEGRAM BOT
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing Telegram bot...")

	api, err := retry.DoWithData(ctx, retry.TelegramRetrier(), func(context.Context) (*tgbotapi.BotAPI, error) {
		return tgbotapi.NewBotAPI(cfg.Telegram.Token)
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Telegram: %w", err)
	}
	api.Debug = cfg.App.Debug
	log.Info("authorized on Telegram", "bot", api.Self.UserName)

	botConfig := telegram.DefaultBotConfig()
	botConfig.Mode = cfg.Telegram.Mode
	botConfig.WebhookURL = cfg.Telegram.WebhookURL
	botConfig.PollingTimeout = int(cfg.Telegram.PollingTimeout.Seconds())
	botConfig.MaxConcurrentUpdates = cfg.Telegram.MaxConcurrent
	botConfig.GracefulShutdownTimeout = cfg.App.ShutdownTimeout
	botConfig.Debug = cfg.App.Debug
	botConfig.Logger = log
	botConfig.RateLimit = middleware.RateLimitConfig{
		RequestsPerMinute: cfg.RateLimit.PerMinute,
		BurstSize:         cfg.RateLimit.Burst,
		IdleTTL:           middleware.DefaultRateLimitConfig().IdleTTL,
	}
	botConfig.Recovery.EnableStackTrace = cfg.App.Debug
	botConfig.Recovery.Logger = log

	bot, err := telegram.NewBot(api, controller, presenter.NewKeyboardBuilder(), botConfig)
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	httpConfig := httpserver.DefaultConfig()
	httpConfig.Port = cfg.HTTP.Port

	httpDeps := httpserver.Dependencies{
		Health: health,
		Logger: log,
	}
	if cfg.Telegram.Mode == telegram.ModeWebhook {
		httpDeps.Webhook = bot.WebhookHandler()
	}
	httpServer := httpserver.NewServer(httpConfig, httpDeps)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. ПЛАНИРОВЩИК
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.NewScheduler(scheduler.SchedulerConfig{Logger: log})
	if memorySession != nil && cfg.Session.IdleTimeout > 0 {
		job := jobs.NewExpireSessionsJob(memorySession, log)
		if err := sched.Register(job, scheduler.Every(cfg.Session.SweepInterval)); err != nil {
			return fmt.Errorf("failed to register %s job: %w", job.Name(), err)
		}
	}
	if cfg.RateLimit.PerMinute > 0 {
		job := jobs.NewCleanupRateLimiterJob(bot.RateLimiter(), log)
		if err := sched.Register(job, scheduler.Every(rateLimitCleanupInterval)); err != nil {
			return fmt.Errorf("failed to register %s job: %w", job.Name(), err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. ЗАПУСК СЕРВИСОВ
	// ─────────────────────────────────────────────────────────────────────────
	httpErrCh := httpServer.StartAsync()

	if err := bot.Start(ctx); err != nil {
		_ = httpServer.Shutdown(context.Background())
		return fmt.Errorf("failed to start bot: %w", err)
	}

	if err := sched.Start(ctx); err != nil {
		log.Warn("failed to start scheduler", logger.Err(err))
	}
	for _, j := range sched.ListJobs() {
		log.Info("scheduled job", "job", j.Name, "schedule", j.Schedule, "description", j.Description)
	}

	log.Info("EGE scores bot is running",
		"http_address", httpConfig.Address(),
		"telegram_mode", cfg.Telegram.Mode,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 10. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	var runErr error
	select {
	case <-ctx.Done():
		log.Info("received shutdown signal")
	case err, ok := <-httpErrCh:
		if ok && err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", logger.Err(err))
			runErr = err
		}
	}

	log.Info("starting graceful shutdown...", logger.Duration("timeout", cfg.App.ShutdownTimeout))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	// Порядок: бот, планировщик, HTTP. Хранилища закрываются через defer.
	if err := bot.Stop(shutdownCtx); err != nil {
		log.Error("failed to stop bot gracefully", logger.Err(err))
	}
	if sched.IsRunning() {
		_ = sched.Stop()
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", logger.Err(err))
	}

	log.Info("shutdown completed")
	return runErr
}

// rateLimitCleanupInterval is how often idle rate limit buckets are released.
const rateLimitCleanupInterval = 5 * time.Minute

// pingGateway is a student.Gateway that can report its health.
type pingGateway interface {
	student.Gateway
	handlers.Pinger
}

// openGateway connects the configured storage backend.
// The returned func releases its resources.
func openGateway(ctx context.Context, cfg *config.Config, redisCache *redis.Cache, log *slog.Logger) (pingGateway, func(), error) {
	mode := cfg.Storage.ScoreWriteMode

	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		log.Info("connecting to database...")
		opts := postgres.DefaultPoolOptions()
		opts.MaxConns = cfg.Database.MaxConns
		opts.MinConns = cfg.Database.MinConns

		conn, err := retry.DoWithData(ctx, retry.DatabaseRetrier(), func(ctx context.Context) (*postgres.Connection, error) {
			return postgres.NewConnectionFromURL(ctx, cfg.Database.URL, opts)
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		log.Info("running database migrations...")
		migrator := postgres.NewMigrator(conn, log)
		if err := migrator.Migrate(ctx); err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		if status, err := migrator.Status(ctx); err != nil {
			log.Warn("failed to get migration status", logger.Err(err))
		} else {
			applied := 0
			for _, m := range status {
				if m.IsApplied {
					applied++
				}
			}
			log.Info("migrations completed", "applied", applied, "total", len(status))
		}

		closer := func() {
			log.Info("closing database connection...")
			conn.Close()
		}
		return postgres.NewGateway(conn, mode), closer, nil

	case config.BackendRedis:
		return redis.NewGateway(redisCache, mode), func() {}, nil

	case config.BackendMongo:
		log.Info("connecting to MongoDB...")
		mongoCfg := mongostore.DefaultConfig()
		mongoCfg.URI = cfg.Mongo.URI
		mongoCfg.Database = cfg.Mongo.Database

		gw, err := retry.DoWithData(ctx, retry.DatabaseRetrier(), func(ctx context.Context) (*mongostore.Gateway, error) {
			return mongostore.Connect(ctx, mongoCfg, mode)
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}

		closer := func() {
			log.Info("closing MongoDB connection...")
			closeCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
			defer cancel()
			_ = gw.Close(closeCtx)
		}
		return gw, closer, nil

	default:
		log.Warn("using in-memory storage, data is lost on restart")
		return memory.NewGateway(mode), func() {}, nil
	}
}
