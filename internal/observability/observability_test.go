package observability

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/accomplishment-service/internal/config"
)

func TestMetrics_Snapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/auth/login", "POST", 200, 10*time.Millisecond)
	m.RecordRequest("/auth/login", "POST", 200, 30*time.Millisecond)
	m.RecordError("/auth/login", "POST", "INVALID_CREDENTIALS")

	s := m.Snapshot()
	assert.Equal(t, int64(2), s.Requests["/auth/login|POST|200"])
	assert.Equal(t, int64(20), s.AvgMs["/auth/login|POST|200"])
	assert.Equal(t, int64(1), s.Errors["/auth/login|POST|INVALID_CREDENTIALS"])
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "X")
	assert.Empty(t, m.Snapshot().Requests)
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	metrics := NewMetrics()

	app := fiber.New()
	app.Use(RequestLogger(zap.New(core), metrics))
	app.Get("/users/:id", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNotFound)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/users/42", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "/users/:id", entries[0].ContextMap()["route"])
	assert.Equal(t, int64(1), metrics.Snapshot().Requests["/users/:id|GET|404"])
}

func TestNewLogger_FallsBackToInfo(t *testing.T) {
	logger, err := NewLogger(config.LoggerConfig{Level: "loud"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
}
