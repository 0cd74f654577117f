package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/monitor"

	"consentpdf/internal/cache"
	"consentpdf/internal/config"
	"consentpdf/internal/http/handlers"
	"consentpdf/internal/http/middleware"
	"consentpdf/internal/infra/logging"
	"consentpdf/internal/render"
	"consentpdf/internal/tokens"
)

// Deps are the long-lived components shared by all requests.
type Deps struct {
	Config   config.Config
	Renderer *render.Renderer
	Cache    *cache.PDFCache
	Tokens   *tokens.Cache
	Storage  fiber.Storage
}

// New creates and configures the Fiber app.
func New(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		Prefork:               d.Config.Server.Prefork,
		DisableStartupMessage: true,
		BodyLimit:             d.Config.Limits.MaxBodyBytes,
		ErrorHandler:          errorHandler,
	})

	middleware.Register(app, d.Config, middleware.Deps{Tokens: d.Tokens, Store: d.Storage})
	registerRoutes(app, d)

	// Ensure all responses, including 404s, return JSON
	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Not Found")
	})

	return app
}

func registerRoutes(app *fiber.App, d Deps) {
	svc := handlers.NewConsentService(d.Config, d.Renderer, d.Cache)

	app.Post("/generate_pdf", svc.HandleGenerate)
	app.Get("/health", svc.HandleHealth)
	app.Get("/monitor", monitor.New())
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Internal Server Error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	}

	logging.Warn("Request failed", "path", c.Path(), "status", code, "message", msg)

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": msg,
		},
	})
}
