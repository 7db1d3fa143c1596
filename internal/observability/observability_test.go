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

	"github.com/spec-kit/company-directory/internal/config"
)

func TestNewLoggerLevel(t *testing.T) {
	logger, err := NewLogger(config.LoggerConfig{Level: "DEBUG"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = NewLogger(config.LoggerConfig{Level: "nonsense"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/departments", "GET", 200, time.Millisecond)
	m.RecordRequest("/departments", "GET", 200, time.Millisecond)
	m.RecordError("/departments", "POST", "VALIDATION_FAILED")

	s := m.Snapshot()
	assert.Equal(t, int64(2), s.Requests["/departments|GET|200"])
	assert.Equal(t, int64(1), s.Errors["/departments|POST|VALIDATION_FAILED"])
	assert.Equal(t, 2*time.Millisecond, s.TotalLatency)

	var nilMetrics *Metrics
	nilMetrics.RecordRequest("/", "GET", 200, 0)
	nilMetrics.RecordError("/", "GET", "X")
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	metrics := NewMetrics()

	app := fiber.New()
	app.Use(RequestLogger(zap.New(core), metrics))
	app.Get("/departments/:id", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/departments/abc", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/departments/abc", fields["path"])
	assert.Equal(t, "/departments/:id", fields["route"])
	assert.Equal(t, int64(fiber.StatusNoContent), fields["status"])

	assert.Equal(t, int64(1), metrics.Snapshot().Requests["/departments/:id|GET|204"])
}
