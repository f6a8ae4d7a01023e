package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	swagger "github.com/gofiber/swagger"
	"github.com/localnerve/luvnest/internal/access"
	"github.com/localnerve/luvnest/internal/builder"
	"github.com/localnerve/luvnest/internal/clock"
	"github.com/localnerve/luvnest/internal/config"
	"github.com/localnerve/luvnest/internal/database"
	"github.com/localnerve/luvnest/internal/handlers"
	"github.com/localnerve/luvnest/internal/jobs"
	"github.com/localnerve/luvnest/internal/logging"
	"github.com/localnerve/luvnest/internal/middleware"
	"github.com/localnerve/luvnest/internal/quota"
	"github.com/localnerve/luvnest/internal/render"
	"github.com/localnerve/luvnest/internal/services"
	"github.com/rs/zerolog"

	_ "github.com/localnerve/luvnest/docs/api" // Swagger docs
)

// @title LUVNEST API
// @version 1.0.0
// @description Love page builder, viewer and quota service
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/localnerve/luvnest
// @contact.email info@localnerve.com

// @license.name AGPL-3.0
// @license.url https://www.gnu.org/licenses/agpl-3.0.html

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name cookie_session

// shutdownTimeout bounds the final flush of open builder sessions.
const shutdownTimeout = 30 * time.Second

// multipartOverhead is body room beyond the media limit for form framing.
const multipartOverhead = 64 * 1024

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		bootLog := logging.New("info", "production")
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logging.New(cfg.LogLevel, cfg.Env)

	// Connect to database
	db, err := database.Connect(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close(db)

	// Run auto-migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	clk := clock.New()
	ctx := context.Background()

	// Services
	guard := quota.NewGuard(db, clk, log)
	pages := services.NewPageService(db, guard, clk, log)
	attempts := &services.AttemptLog{DB: db, Clock: clk}
	viewer := &services.ViewerService{
		DB:       db,
		Unlocker: access.NewUnlocker(cfg.UnlockSecret, cfg.UnlockTTL, clk),
		Attempts: attempts,
		Clock:    clk,
		Policy:   services.ViewerPolicy{MaxAttempts: cfg.PasswordMaxAttempts, Window: cfg.PasswordWindow},
		Log:      log,
	}
	store, err := services.NewS3Store(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure media storage")
	}
	media := &services.MediaService{DB: db, Store: store, MaxBytes: cfg.MediaMaxBytes, Log: log}
	generator := &services.Generator{Endpoint: cfg.AIEndpoint, Key: cfg.AIKey, Timeout: cfg.AITimeout}
	auth := services.NewAuthService(cfg, log)

	sessions := builder.NewSessions(pages, guard, builder.StoreOptions{
		Window: cfg.AutosaveWindow,
		Clock:  clk,
		Log:    log,
	})

	renderer, err := render.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load templates")
	}

	runner, err := jobs.New(sessions, attempts, cfg.SessionIdleTimeout, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule jobs")
	}
	runner.Start()

	unlockLimiter := middleware.NewRateLimiter(time.Second, 10, log)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(log),
		ProxyHeader:  cfg.ProxyHeader,
		BodyLimit:    int(cfg.MediaMaxBytes) + multipartOverhead,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(compress.New())

	// Prometheus metrics
	prometheus := fiberprometheus.New("luvnest")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	healthHandler := &handlers.HealthHandler{Config: cfg, DB: db, Log: log}
	pagesHandler := &handlers.PagesHandler{Pages: pages, Guard: guard}
	builderHandler := &handlers.BuilderHandler{Sessions: sessions, Renderer: renderer}
	viewerHandler := &handlers.ViewerHandler{
		Viewer:       viewer,
		Renderer:     renderer,
		CookieTTL:    cfg.UnlockTTL,
		SecureCookie: cfg.Env == "production",
	}
	mediaHandler := &handlers.MediaHandler{Media: media}
	aiHandler := &handlers.AIHandler{Generator: generator}
	adminHandler := &handlers.AdminHandler{Guard: guard}

	app.Get("/health", healthHandler.Health)

	// API routes under /api
	api := app.Group("/api")
	api.Use(middleware.VersionMiddleware())

	user := middleware.AuthUser(auth)
	optionalUser := middleware.OptionalUser(auth)

	api.Get("/limits", user, pagesHandler.GetLimits)
	api.Get("/pages", user, pagesHandler.ListPages)
	api.Get("/pages/:id", user, pagesHandler.GetPage)
	api.Put("/pages/:id/settings", user, pagesHandler.UpdateSettings)

	b := api.Group("/builder/sessions", user)
	b.Post("/", builderHandler.OpenSession)
	b.Get("/:session", builderHandler.GetSession)
	b.Delete("/:session", builderHandler.CloseSession)
	b.Post("/:session/sections", builderHandler.AddSection)
	b.Patch("/:session/sections/:id", builderHandler.UpdateSection)
	b.Delete("/:session/sections/:id", builderHandler.RemoveSection)
	b.Post("/:session/sections/:id/visibility", builderHandler.ToggleVisibility)
	b.Post("/:session/reorder", builderHandler.ReorderSections)
	b.Put("/:session/title", builderHandler.SetTitle)
	b.Put("/:session/theme", builderHandler.SetTheme)
	b.Post("/:session/save", builderHandler.Save)
	b.Post("/:session/flush", builderHandler.Flush)

	api.Get("/public/pages/:slug", optionalUser, viewerHandler.GetPublicPage)
	api.Post("/public/pages/:slug/unlock", unlockLimiter.Limit(), optionalUser, viewerHandler.UnlockPage)

	api.Post("/media", user, mediaHandler.Upload)
	api.Post("/ai/generate", user, aiHandler.Generate)
	api.Put("/admin/wallets/:user", middleware.AuthAdmin(auth), adminHandler.ApplyPlan)

	// Server-rendered pages
	app.Get("/love/:slug", optionalUser, viewerHandler.ViewPage)
	app.Post("/love/:slug/unlock", unlockLimiter.Limit(), optionalUser, viewerHandler.SubmitPassword)
	app.Get("/builder", user, builderHandler.OpenPage)
	app.Get("/builder/:session", user, builderHandler.BuilderPage)
	app.Post("/builder/:session/sections/:id", user, builderHandler.SubmitSection)

	// 404 handler
	app.Use(handlers.NotFound)

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Info().Msg("Gracefully shutting down...")
		_ = app.Shutdown()
	}()

	// Start server
	log.Info().Str("port", cfg.Port).Msg("Starting server")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
	}

	shutdown(runner, unlockLimiter, sessions, log)
	log.Info().Msg("Server stopped")
}

// shutdown stops background work and writes out every open builder session.
func shutdown(runner *jobs.Runner, limiter *middleware.RateLimiter, sessions *builder.Sessions, log zerolog.Logger) {
	runner.Stop()
	limiter.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := sessions.CloseAll(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to flush builder sessions")
	}
}
