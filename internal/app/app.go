package app

import (
	"errors"

	"receipt2pdf/internal/access"
	"receipt2pdf/internal/handlers"
	u "receipt2pdf/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/redis/go-redis/v9"
)

// SetupApp creates and configures a new Fiber app instance. rdb may be nil
// when no Redis is configured.
func SetupApp(cfg u.Config, rdb *redis.Client, keys *access.KeyStore) *fiber.App {
	app := fiber.New(fiber.Config{
		Prefork:               cfg.Server.Prefork,
		DisableStartupMessage: true,
		ErrorHandler:          jsonErrorHandler,
	})

	svc := handlers.NewReceiptService(cfg, rdb, keys)

	RegisterMiddleware(app, cfg, keys, svc)
	RegisterRoutes(app, svc)

	// Ensure all responses, including 404s, return JSON
	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Not Found")
	})

	return app
}

// jsonErrorHandler renders every error as {"error":{"code","message"}}.
// Anything that is not a *fiber.Error is hidden behind a generic 500.
func jsonErrorHandler(c *fiber.Ctx, err error) error {
	var ferr *fiber.Error
	if !errors.As(err, &ferr) {
		ferr = fiber.ErrInternalServerError
	}

	if ferr.Code >= fiber.StatusInternalServerError {
		u.Error("Request failed", "path", c.Path(), "status", ferr.Code, "error", err, "request_id", c.GetRespHeader(fiber.HeaderXRequestID))
	} else {
		u.Warn("Request rejected", "path", c.Path(), "status", ferr.Code, "message", ferr.Message)
	}

	return c.Status(ferr.Code).JSON(errorBody(ferr.Code, ferr.Message))
}

func errorBody(code int, msg string) fiber.Map {
	return fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": msg,
		},
	}
}

// RegisterRoutes mounts all route handlers to the app
func RegisterRoutes(app *fiber.App, svc *handlers.ReceiptService) {
	app.Get("/", svc.HandleForm)
	app.Post("/", svc.HandleFormSubmit)

	v1 := app.Group("/v1")
	v1.Post("/receipts", svc.HandleGenerate)
	v1.Get("/status", svc.HandleStatus)
	v1.Get("/monitor", monitor.New(monitor.Config{Title: "receipt2pdf"}))
}
