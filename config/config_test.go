package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ege-hub/ege-scores-bot/internal/domain/student"
	"github.com/ege-hub/ege-scores-bot/internal/interface/telegram/middleware"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.App.Environment)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "polling", cfg.Telegram.Mode)
	assert.Equal(t, "base", cfg.Flow.Variant)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, student.WriteModeReplace, cfg.Storage.ScoreWriteMode)
	assert.Equal(t, 30*time.Minute, cfg.Session.IdleTimeout)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 30, cfg.RateLimit.PerMinute)
	assert.Equal(t, middleware.DefaultBurstSize, cfg.RateLimit.Burst)
	assert.False(t, cfg.UsesRedis())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("APP_ENV", "production")
	t.Setenv("FLOW_VARIANT", "keyboard")
	t.Setenv("STORAGE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "postgres://bot@localhost/ege")
	t.Setenv("SCORE_WRITE_MODE", "append")
	t.Setenv("SESSION_BACKEND", "redis")
	t.Setenv("SESSION_IDLE_TIMEOUT", "10m")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.App.Debug)
	assert.Equal(t, "keyboard", cfg.Flow.Variant)
	assert.Equal(t, student.WriteModeAppend, cfg.Storage.ScoreWriteMode)
	assert.Equal(t, 10*time.Minute, cfg.Session.IdleTimeout)
	assert.Equal(t, 0, cfg.RateLimit.PerMinute)
	assert.True(t, cfg.UsesRedis())
}

func TestLoad_InvalidWriteMode(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("SCORE_WRITE_MODE", "merge")

	_, err := Load()
	assert.ErrorContains(t, err, "SCORE_WRITE_MODE")
}

func TestLoad_ReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TELEGRAM_BOT_TOKEN=from-file\nHTTP_PORT=9000\n"), 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	// godotenv пишет в окружение процесса; t.Setenv восстановит значения
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("HTTP_PORT", "")
	require.NoError(t, os.Unsetenv("TELEGRAM_BOT_TOKEN"))
	require.NoError(t, os.Unsetenv("HTTP_PORT"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Telegram.Token)
	assert.Equal(t, 9000, cfg.HTTP.Port)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Telegram: TelegramConfig{Token: "t", Mode: "polling"},
			Flow:     FlowConfig{Variant: "base"},
			Storage:  StorageConfig{Backend: BackendMemory},
			Session:  SessionConfig{Backend: BackendMemory},
			HTTP:     HTTPConfig{Port: 8080},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing token", func(c *Config) { c.Telegram.Token = "" }, "TELEGRAM_BOT_TOKEN"},
		{"webhook without url", func(c *Config) { c.Telegram.Mode = "webhook" }, "TELEGRAM_WEBHOOK_URL"},
		{"bad mode", func(c *Config) { c.Telegram.Mode = "push" }, "TELEGRAM_MODE"},
		{"bad variant", func(c *Config) { c.Flow.Variant = "fancy" }, "FLOW_VARIANT"},
		{"postgres without url", func(c *Config) { c.Storage.Backend = BackendPostgres }, "DATABASE_URL"},
		{"mongo without uri", func(c *Config) { c.Storage.Backend = BackendMongo }, "MONGO_URI"},
		{"bad backend", func(c *Config) { c.Storage.Backend = "sqlite" }, "STORAGE_BACKEND"},
		{"bad session backend", func(c *Config) { c.Session.Backend = "mongo" }, "SESSION_BACKEND"},
		{"negative idle timeout", func(c *Config) { c.Session.IdleTimeout = -time.Second }, "SESSION_IDLE_TIMEOUT"},
		{"bad port", func(c *Config) { c.HTTP.Port = 0 }, "HTTP_PORT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}
