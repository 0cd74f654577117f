package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/keyauth"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/xid"

	"consentpdf/internal/config"
	"consentpdf/internal/domain"
	"consentpdf/internal/infra/logging"
	"consentpdf/internal/tokens"
)

const apiKeyLocal = "api_key"

// Deps carries the shared state used by the middleware chain.
type Deps struct {
	// Tokens enables X-API-Key authentication when non-nil.
	Tokens *tokens.Cache
	// Store backs the rate limiters.
	Store fiber.Storage
}

// Register attaches global middleware to the app.
func Register(app *fiber.App, cfg config.Config, deps Deps) {
	app.Use(cors.New())

	app.Use(requestid.New(requestid.Config{
		Generator: func() string {
			return xid.New().String()
		},
	}))

	app.Use(healthcheck.New(healthcheck.Config{
		ReadinessProbe: func(c *fiber.Ctx) bool {
			return deps.Tokens == nil || deps.Tokens.Ready()
		},
	}))

	app.Use(requestLogger())

	if deps.Tokens != nil {
		app.Use(apiKeyAuth(cfg, deps.Tokens))
		app.Use(tokenRateLimit(cfg.RateLimiter.Interval, deps.Tokens, deps.Store))
	} else if cfg.Auth.RequireAPIKey {
		logging.Warn("auth.require_api_key is set but no token store is configured; API keys are not checked")
	}

	if cfg.RateLimiter.EnableUserLimiter || cfg.RateLimiter.UserLimit > 0 {
		app.Use(userRateLimit(cfg, deps.Store))
	}
}

func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		requestID := c.Get(fiber.HeaderXRequestID)
		if requestID == "" {
			requestID = string(c.Response().Header.Peek(fiber.HeaderXRequestID))
		}
		logging.Info("Request handled",
			"method", c.Method(),
			"path", c.Path(),
			"request_id", requestID,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return err
	}
}

func isPublicPath(path string) bool {
	return path == "/health"
}

func apiKeyAuth(cfg config.Config, store *tokens.Cache) fiber.Handler {
	return keyauth.New(keyauth.Config{
		KeyLookup:  "header:X-API-Key",
		ContextKey: apiKeyLocal,
		Validator: func(c *fiber.Ctx, key string) (bool, error) {
			if !store.Ready() {
				return false, domain.ErrTokenStoreNotReady
			}
			if !store.Valid(key) {
				return false, domain.ErrInvalidAPIKey
			}
			return true, nil
		},
		Next: func(c *fiber.Ctx) bool {
			if c.Method() == fiber.MethodOptions || isPublicPath(c.Path()) {
				return true
			}
			return !cfg.Auth.RequireAPIKey && c.Get("X-API-Key") == ""
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// keyauth can call ErrorHandler with a nil error.
			status := fiber.StatusUnauthorized
			if err == nil {
				err = fiber.ErrUnauthorized
			}
			if errors.Is(err, domain.ErrTokenStoreNotReady) {
				status = fiber.StatusServiceUnavailable
			}
			return c.Status(status).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    status,
					"message": err.Error(),
				},
			})
		},
	})
}

func tooManyRequests(c *fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    fiber.StatusTooManyRequests,
			"message": "Too Many Requests",
		},
	})
}

// tokenRateLimit applies the per-token limit stored alongside each API key.
// One limiter is built per distinct limit value and reused.
func tokenRateLimit(interval time.Duration, store *tokens.Cache, storage fiber.Storage) fiber.Handler {
	var (
		mu       sync.RWMutex
		limiters = make(map[int]fiber.Handler)
	)

	get := func(limit int) fiber.Handler {
		mu.RLock()
		h, ok := limiters[limit]
		mu.RUnlock()
		if ok {
			return h
		}

		h = limiter.New(limiter.Config{
			Max:               limit,
			Expiration:        interval,
			LimiterMiddleware: limiter.SlidingWindow{},
			Storage:           storage,
			KeyGenerator: func(c *fiber.Ctx) string {
				token, _ := c.Locals(apiKeyLocal).(string)
				return "token:" + token
			},
			LimitReached: func(c *fiber.Ctx) error {
				token, _ := c.Locals(apiKeyLocal).(string)
				logging.Warn("Rate limit exceeded", "token", token, "path", c.Path())
				return tooManyRequests(c)
			},
		})

		mu.Lock()
		if existing, ok := limiters[limit]; ok {
			h = existing
		} else {
			limiters[limit] = h
		}
		mu.Unlock()
		return h
	}

	return func(c *fiber.Ctx) error {
		token, ok := c.Locals(apiKeyLocal).(string)
		if !ok || token == "" {
			return c.Next()
		}
		limit := store.RateLimit(token)
		if limit <= 0 {
			return c.Next()
		}
		return get(limit)(c)
	}
}

func clientKey(c *fiber.Ctx) string {
	sum := sha256.Sum256([]byte(c.IP() + c.Get(fiber.HeaderUserAgent)))
	return hex.EncodeToString(sum[:])
}

// userRateLimit limits anonymous clients by IP and User-Agent. Requests
// authenticated with an API key are governed by the token limiter instead.
func userRateLimit(cfg config.Config, storage fiber.Storage) fiber.Handler {
	if cfg.RateLimiter.UserLimit <= 0 {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}
	userLimiter := limiter.New(limiter.Config{
		Max:               cfg.RateLimiter.UserLimit,
		Expiration:        cfg.RateLimiter.Interval,
		LimiterMiddleware: limiter.SlidingWindow{},
		Storage:           storage,
		Next: func(c *fiber.Ctx) bool {
			return isPublicPath(c.Path())
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return "user:" + clientKey(c)
		},
		LimitReached: func(c *fiber.Ctx) error {
			logging.Warn("Rate limit exceeded", "user", clientKey(c), "path", c.Path())
			return tooManyRequests(c)
		},
	})
	return func(c *fiber.Ctx) error {
		if token, ok := c.Locals(apiKeyLocal).(string); ok && token != "" {
			return c.Next()
		}
		return userLimiter(c)
	}
}
