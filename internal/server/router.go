package server

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/static"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/modhost/internal/logging"
	hoststatic "github.com/any-hub/modhost/internal/static"
)

// AppOptions controls how the Fiber application is assembled.
type AppOptions struct {
	Logger logrus.FieldLogger
}

const contextKeyRequestID = "_modhost_request_id"

// NewApp builds a Fiber application with panic recovery, request IDs and
// access logging. Module routes, the shell page and static files are mounted
// later, after activation has run.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(requestContextMiddleware(opts.Logger))

	return app, nil
}

// MountStatic 在所有路由之后挂载静态资源，未命中的请求交给 Fiber 返回 404。
func MountStatic(app *fiber.App, slot *hoststatic.Slot) {
	if app == nil || slot == nil {
		return
	}
	app.Get("/*", static.New("", static.Config{FS: slot}))
}

// requestContextMiddleware 负责生成请求 ID，并在请求结束后输出访问日志。
func requestContextMiddleware(logger logrus.FieldLogger) fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)

		err := c.Next()

		status := c.Response().StatusCode()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
		entry := logger.WithFields(logging.RequestFields(reqID, c.Method(), c.Path(), status)).
			WithField("action", "request")
		if isDiagnosticsPath(c.Path()) {
			entry.Debug("diagnostics request")
		} else {
			entry.Info("request served")
		}
		return err
	}
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}

func isDiagnosticsPath(path string) bool {
	return strings.HasPrefix(path, "/-/")
}
