package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ege-hub/ege-scores-bot/internal/interface/http/handlers"
)

func TestServer_Healthz(t *testing.T) {
	s := NewServer(DefaultConfig(), Dependencies{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestServer_Readyz(t *testing.T) {
	health := handlers.NewCompositeHealthChecker("test")
	storageUp := true
	health.AddCheck("storage", func(context.Context) error {
		if storageUp {
			return nil
		}
		return errors.New("connection refused")
	})
	s := NewServer(DefaultConfig(), Dependencies{Health: health})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	storageUp = false
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var status handlers.HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.False(t, status.Healthy)
	assert.Equal(t, "connection refused", status.Checks["storage"].Message)
	assert.Equal(t, "test", status.Version)
}

func TestServer_WebhookRoute(t *testing.T) {
	var got string
	webhook := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	})
	s := NewServer(DefaultConfig(), Dependencies{Webhook: webhook})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, WebhookPath, strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", got)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, WebhookPath, nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_NoWebhookInPollingMode(t *testing.T) {
	s := NewServer(DefaultConfig(), Dependencies{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, WebhookPath, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_ShutdownWithoutStart(t *testing.T) {
	s := NewServer(DefaultConfig(), Dependencies{})
	assert.NoError(t, s.Shutdown(context.Background()))
}
