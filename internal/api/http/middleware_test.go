package http

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/task-service/internal/observability"
	apperrors "github.com/spec-kit/task-service/pkg/util"
)

func TestMiddlewareRecordsFailureStatus(t *testing.T) {
	metrics := observability.NewMetrics()
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, time.Second)
	app.Get("/boom", func(c *fiber.Ctx) error {
		return apperrors.NewNotFound("task", nil)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, int64(1), metrics.RequestCount("/boom", "GET", fiber.StatusNotFound))
	assert.Equal(t, int64(0), metrics.RequestCount("/boom", "GET", fiber.StatusOK))
	assert.Equal(t, int64(1), metrics.ErrorCount("/boom", "GET", "NOT_FOUND"))
}

func TestMiddlewareRecordsSuccessStatus(t *testing.T) {
	metrics := observability.NewMetrics()
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, time.Second)
	app.Get("/ok", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/ok", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(1), metrics.RequestCount("/ok", "GET", fiber.StatusOK))
	assert.Equal(t, int64(0), metrics.ErrorCount("/ok", "GET", "NOT_FOUND"))
}
