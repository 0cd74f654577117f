package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"consentpdf/internal/cache"
	"consentpdf/internal/config"
	"consentpdf/internal/fonts"
	"consentpdf/internal/http/server"
	"consentpdf/internal/infra/logging"
	"consentpdf/internal/infra/ratelimit"
	"consentpdf/internal/render"
	"consentpdf/internal/tokens"
)

func main() {
	cfg := config.Load()
	logging.InitLogger(
		cfg.Logger.File,
		cfg.Logger.MaxSizeMB,
		cfg.Logger.MaxBackups,
		cfg.Logger.MaxAgeDays,
		cfg.Logger.Compress,
		cfg.Logger.Level,
	)

	candidates := cfg.Fonts.Candidates
	if len(candidates) == 0 {
		candidates = fonts.DefaultCandidates
	}
	sel := fonts.Resolve(candidates, nil)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	var pdfCache *cache.PDFCache
	if cfg.Cache.PDFCacheEnabled {
		rdb := redis.NewClient(&redis.Options{
			Addr: cfg.Cache.RedisHost,
			DB:   cfg.Cache.PDFCacheDB,
		})
		defer rdb.Close()
		pdfCache = cache.New(rdb, cfg.Cache.PDFCacheTTL)
	}

	var tokenCache *tokens.Cache
	if cfg.Auth.Postgres.Enabled() {
		tokenCache = startTokenReloader(ctx, cfg)
	}

	app := server.New(server.Deps{
		Config:   cfg,
		Renderer: render.New(sel),
		Cache:    pdfCache,
		Tokens:   tokenCache,
		Storage:  ratelimit.NewStore(ratelimit.RedisConfig{Addr: cfg.Cache.RedisHost, DB: cfg.Cache.RateLimitDB}),
	})

	idleConnsClosed := make(chan struct{})
	logging.Info("Starting server", "addr", cfg.Server.Host+cfg.Server.Port, "font", sel.Name)
	startServer(app, cfg, idleConnsClosed)
	<-idleConnsClosed
}

// startTokenReloader loads API tokens and keeps them fresh until ctx is done.
// A failed first load leaves the store unready; requests carrying a key get
// 503 until a later reload succeeds.
func startTokenReloader(ctx context.Context, cfg config.Config) *tokens.Cache {
	c := tokens.NewCache()
	db, err := tokens.OpenPostgres(cfg.Auth.Postgres)
	if err != nil {
		logging.Error("Failed to connect to token database", "error", err)
		return c
	}
	r := tokens.NewReloader(tokens.NewPostgresRepository(db), c, cfg.Auth.ReloadInterval)
	if err := r.LoadOnce(ctx); err != nil {
		logging.Error("Failed to load API tokens", "error", err)
	}
	go func() {
		r.Run(ctx)
		_ = db.Close()
	}()
	return c
}

// startServer starts the Fiber app and listens for shutdown signals
func startServer(app *fiber.App, cfg config.Config, idleConnsClosed chan struct{}) {
	go func() {
		if err := app.Listen(cfg.Server.Host + cfg.Server.Port); err != nil {
			logging.Error("Server error", "error", err)
		}
	}()

	// Listen for OS termination signals
	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
	<-sigint
	signal.Stop(sigint)

	logging.Warn("Shutdown signal received, closing server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
	}

	close(idleConnsClosed)
	logging.Info("Server stopped cleanly")
}
