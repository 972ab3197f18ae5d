package server

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/version-check/version-check/internal/cache"
	"github.com/version-check/version-check/internal/logging"
)

// VersionSource describes the cache component the handlers read from.
// It allows injecting fake caches during tests.
type VersionSource interface {
	Refresh(ctx context.Context, force bool)
	Snapshot() cache.State
	TTL() time.Duration
}

// AppOptions controls how the Fiber application should behave.
type AppOptions struct {
	Logger *logrus.Logger
	Cache  VersionSource
}

const contextKeyRequestID = "_versioncheck_request_id"

// NewApp builds a Fiber application with request-ID middleware, structured
// request logging and the three public routes.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Cache == nil {
		return nil, errors.New("version cache is required")
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(requestLogMiddleware(opts.Logger))

	app.Get("/health", healthHandler)
	app.Get("/version", versionHandler(opts.Cache))
	app.Get("/check", checkHandler(opts.Cache))

	return app, nil
}

// requestLogMiddleware 负责生成请求 ID，并在响应后输出结构化访问日志。
func requestLogMiddleware(logger *logrus.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		started := time.Now()
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)

		err := c.Next()

		fields := logging.RequestFields(
			reqID,
			c.Method(),
			string(c.Request().URI().Path()),
			c.Response().StatusCode(),
			time.Since(started).Milliseconds(),
		)
		logger.WithFields(fields).Info("request")
		return err
	}
}

// RequestID returns the request identifier stored by the middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}
