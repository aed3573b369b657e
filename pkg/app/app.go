package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"time"

	"github.com/datadeck-io/datadeck-api/internal/api"
	"github.com/datadeck-io/datadeck-api/internal/config"
	"github.com/datadeck-io/datadeck-api/internal/models"
	"github.com/datadeck-io/datadeck-api/internal/services/auth"
	"github.com/datadeck-io/datadeck-api/internal/services/connections"
	"github.com/datadeck-io/datadeck-api/internal/services/database"
	"github.com/datadeck-io/datadeck-api/internal/services/datasources"
	"github.com/datadeck-io/datadeck-api/internal/services/dbchat"
	"github.com/datadeck-io/datadeck-api/internal/services/middleware"
	"github.com/datadeck-io/datadeck-api/internal/services/projects"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/pprof"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
)

// App represents a DataDeck API server instance.
type App struct {
	config *config.Config
	app    *fiber.App
	redis  *redis.Client
	db     *database.DB
	chat   *dbchat.Service
}

// New creates a new App instance with the given configuration.
// The cfg parameter is required and must not be nil.
func New(cfg *config.Config) *App {
	if cfg == nil {
		panic("config cannot be nil - use config.LoadFromFile() to create config")
	}

	return &App{
		config: cfg,
	}
}

// Run starts the server and blocks until shutdown.
func (a *App) Run() error {
	if err := a.config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	setupLogLevel(a.config)

	port := a.config.Server.Port
	if port == "" {
		port = "8080"
	}
	listenAddr := ":" + port

	a.app = createFiberApp(a.config)

	// === Infrastructure Setup ===
	redisClient, err := createRedisClient(a.config)
	if err != nil {
		return fmt.Errorf("failed to create Redis client: %w", err)
	}
	a.redis = redisClient
	if a.redis != nil {
		defer func() {
			if err := a.redis.Close(); err != nil {
				fiberlog.Errorf("Failed to close Redis client: %v", err)
			}
		}()
	}

	db, err := database.New(*a.config.Database)
	if err != nil {
		return fmt.Errorf("failed to create database connection: %w", err)
	}
	a.db = db
	defer func() {
		if err := a.db.Close(); err != nil {
			fiberlog.Errorf("Failed to close database connection: %v", err)
		}
	}()
	fiberlog.Infof("Metadata store (%s) initialized successfully", db.DriverName())

	if err := db.AutoMigrate(
		&models.User{},
		&models.Organization{},
		&models.OrganizationMember{},
		&models.Project{},
		&models.ProjectMember{},
		&models.DataSource{},
	); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	fiberlog.Info("Database migrations completed successfully")

	// === Middleware Setup ===
	setupMiddleware(a.app, a.config)

	// === Routes Setup ===
	if err := a.setupRoutes(); err != nil {
		return fmt.Errorf("failed to setup routes: %w", err)
	}
	if a.chat != nil {
		defer func() {
			if err := a.chat.Close(); err != nil {
				fiberlog.Errorf("Failed to close chat service: %v", err)
			}
		}()
	}

	a.app.Get("/", welcomeHandler())

	fmt.Printf("DataDeck API starting on %s\n", listenAddr)
	fmt.Printf("   Environment: %s\n", a.config.Server.Environment)
	fmt.Printf("   Go version: %s\n", runtime.Version())
	fmt.Printf("   GOMAXPROCS: %d\n", runtime.GOMAXPROCS(0))

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	serverErrChan := make(chan error, 1)
	go func() {
		if err := a.app.Listen(listenAddr); err != nil {
			serverErrChan <- err
		}
	}()

	select {
	case sig := <-sigChan:
		fiberlog.Infof("Received signal: %v. Starting graceful shutdown...", sig)
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		fiberlog.Info("Context cancelled, starting shutdown...")
	}

	fiberlog.Info("Server shutting down gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	shutdownErrChan := make(chan error, 1)
	go func() {
		shutdownErrChan <- a.app.ShutdownWithTimeout(30 * time.Second)
	}()

	select {
	case err := <-shutdownErrChan:
		if err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		fiberlog.Info("Server shutdown completed successfully")
	case <-shutdownCtx.Done():
		return fmt.Errorf("shutdown timeout exceeded")
	}

	return nil
}

func createFiberApp(cfg *config.Config) *fiber.App {
	isProd := cfg.IsProduction()

	return fiber.New(fiber.Config{
		AppName:              "DataDeck API v1.0",
		EnablePrintRoutes:    !isProd,
		ReadTimeout:          2 * time.Minute,
		WriteTimeout:         2 * time.Minute,
		IdleTimeout:          5 * time.Minute,
		ReadBufferSize:       8192,
		WriteBufferSize:      8192,
		CompressedFileSuffix: ".gz",
		Prefork:              false,
		CaseSensitive:        true,
		StrictRouting:        false,
		Network:              "tcp",
		ServerHeader:         "DataDeck",
	})
}

func setupMiddleware(app *fiber.App, cfg *config.Config) {
	isProd := cfg.IsProduction()
	allowedOrigins := cfg.Server.AllowedOrigins

	// Recover middleware (must be first)
	app.Use(recover.New(recover.Config{
		EnableStackTrace: !isProd,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:               1000,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return fmt.Errorf("1000 requests per minute")
		},
	}))

	// Per-request timeout. Probes bound themselves tighter; this guards
	// the rest of the surface.
	app.Use(func(c *fiber.Ctx) error {
		const (
			defaultTimeout = 30 * time.Second
			maxTimeout     = 2 * time.Minute
		)

		timeout := defaultTimeout
		if customTimeout := c.Get("X-Request-Timeout"); customTimeout != "" {
			if d, err := time.ParseDuration(customTimeout); err == nil && d > 0 {
				timeout = min(d, maxTimeout)
			}
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)

		return c.Next()
	})

	// Compression
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Logging
	if isProd {
		app.Use(logger.New(logger.Config{
			Format: "${time} ${status} ${method} ${path} ${latency} ${bytesSent}b\n",
			Output: os.Stdout,
		}))
	} else {
		app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path} ${error}\n",
			Output: os.Stdout,
		}))
	}

	// CORS
	allAllowedHeaders := []string{
		"Origin", "Content-Type", "Accept", "Authorization", "User-Agent",
		"X-Request-ID", "X-Request-Timeout", "X-Forwarded-User",
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowHeaders:     strings.Join(allAllowedHeaders, ", "),
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		AllowCredentials: true,
		MaxAge:           86400,
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
	}))

	// Profiler (dev only)
	if !isProd {
		app.Use(pprof.New())
	}
}

func (a *App) setupRoutes() error {
	cfg := a.config

	// Auth provider selection: Clerk when configured, otherwise the
	// database-backed provider behind a trusted reverse proxy.
	var authProvider auth.AuthProvider
	var clerkProvider *auth.ClerkAuthProvider
	switch {
	case cfg.ClerkSecretKey() != "":
		clerkProvider = auth.NewClerkAuthProvider(cfg.ClerkSecretKey(), a.db.DB)
		authProvider = clerkProvider
	case cfg.DatabaseAuthEnabled():
		authProvider = auth.NewDatabaseAuthProvider(a.db.DB)
	default:
		return fmt.Errorf("no auth provider configured: set auth.clerk.secret_key or enable auth.database")
	}

	authMiddleware := middleware.NewAuthMiddleware(clerkProvider, &middleware.AuthMiddlewareConfig{
		Enabled:        true,
		ClerkSecretKey: cfg.ClerkSecretKey(),
		HeaderNames:    []string{"Authorization"},
		SkipPaths:      []string{"/health", "/webhooks"},
	})

	// Services
	connectionsSvc := connections.NewService()
	projectsSvc := projects.NewService(a.db.DB, authProvider)
	dataSourcesSvc := datasources.NewService(a.db.DB, authProvider, connectionsSvc)

	chatSvc, err := dbchat.NewService(cfg.Chat, dataSourcesSvc)
	if err != nil {
		return err
	}
	a.chat = chatSvc

	// Handlers
	connectionsHandler := api.NewConnectionsHandler(connectionsSvc)
	projectsHandler := api.NewProjectsHandler(projectsSvc)
	dataSourcesHandler := api.NewDataSourcesHandler(dataSourcesSvc)
	chatHandler := api.NewDBChatHandler(chatSvc)
	healthHandler := api.NewHealthHandler(a.db, a.redis)

	// Health check endpoint (always enabled)
	a.app.Get("/health", healthHandler.HealthCheck)

	if webhookSecret := cfg.ClerkWebhookSecret(); webhookSecret != "" {
		clerkWebhookHandler := api.NewClerkWebhookHandler(webhookSecret, a.db.DB, projectsSvc)
		a.app.Post("/webhooks/clerk", clerkWebhookHandler.HandleWebhook)
	}

	v1 := a.app.Group("/v1")
	v1.Use(authMiddleware.RequireAuth())

	v1.Post("/connections/test", connectionsHandler.TestConnection)
	v1.Post("/connections/detect", connectionsHandler.DetectType)

	projectsGroup := v1.Group("/projects")
	projectsGroup.Post("/", projectsHandler.CreateProject)
	projectsGroup.Get("/organization/:org_id", projectsHandler.ListProjects)
	projectsGroup.Get("/:id", projectsHandler.GetProject)
	projectsGroup.Patch("/:id", projectsHandler.UpdateProject)
	projectsGroup.Delete("/:id", projectsHandler.DeleteProject)
	projectsGroup.Get("/:id/members", projectsHandler.ListMembers)
	projectsGroup.Post("/:id/members", projectsHandler.AddMember)
	projectsGroup.Patch("/:id/members/:user_id", projectsHandler.UpdateMemberRole)
	projectsGroup.Delete("/:id/members/:user_id", projectsHandler.RemoveMember)

	dataSourcesGroup := projectsGroup.Group("/:id/datasources")
	dataSourcesGroup.Post("/", dataSourcesHandler.Create)
	dataSourcesGroup.Get("/", dataSourcesHandler.List)
	dataSourcesGroup.Get("/:datasource_id", dataSourcesHandler.Get)
	dataSourcesGroup.Patch("/:datasource_id", dataSourcesHandler.Update)
	dataSourcesGroup.Delete("/:datasource_id", dataSourcesHandler.Delete)
	dataSourcesGroup.Post("/:datasource_id/test", dataSourcesHandler.Test)

	projectsGroup.Post("/:id/chat", chatHandler.Ask)

	return nil
}

func setupLogLevel(cfg *config.Config) {
	logLevel := cfg.GetNormalizedLogLevel()

	switch logLevel {
	case "trace":
		fiberlog.SetLevel(fiberlog.LevelTrace)
	case "debug":
		fiberlog.SetLevel(fiberlog.LevelDebug)
	case "info":
		fiberlog.SetLevel(fiberlog.LevelInfo)
	case "warn", "warning":
		fiberlog.SetLevel(fiberlog.LevelWarn)
	case "error":
		fiberlog.SetLevel(fiberlog.LevelError)
	case "fatal":
		fiberlog.SetLevel(fiberlog.LevelFatal)
	case "panic":
		fiberlog.SetLevel(fiberlog.LevelPanic)
	default:
		fiberlog.SetLevel(fiberlog.LevelInfo)
		fiberlog.Warnf("Unknown log level '%s', defaulting to 'info'", logLevel)
	}

	fiberlog.Infof("Log level set to: %s", logLevel)
}

func createRedisClient(cfg *config.Config) (*redis.Client, error) {
	redisURL := cfg.RedisURL
	if redisURL == "" && cfg.Chat != nil && cfg.Chat.Cache != nil {
		redisURL = cfg.Chat.Cache.RedisURL
	}

	if redisURL == "" {
		fiberlog.Info("Redis not configured - semantic chat cache disabled")
		return nil, nil
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opt.PoolSize = 50
	opt.MinIdleConns = 10
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute
	opt.ConnMaxLifetime = 30 * time.Minute
	opt.DialTimeout = 10 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second
	opt.MaxRetries = 3
	opt.MinRetryBackoff = 8 * time.Millisecond
	opt.MaxRetryBackoff = 512 * time.Millisecond

	client := redis.NewClient(opt)

	return testRedisConnectionWithRetry(client)
}

func testRedisConnectionWithRetry(client *redis.Client) (*redis.Client, error) {
	const maxAttempts = 3
	const baseDelay = 1 * time.Second

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := client.Ping(ctx).Err()
		cancel()

		if err == nil {
			fiberlog.Infof("Redis connection established successfully (attempt %d/%d)", attempt, maxAttempts)
			return client, nil
		}

		fiberlog.Warnf("Redis connection failed (attempt %d/%d): %v", attempt, maxAttempts, err)

		if attempt < maxAttempts {
			delay := time.Duration(attempt) * baseDelay
			fiberlog.Infof("Retrying Redis connection in %v...", delay)
			time.Sleep(delay)
		}
	}

	if err := client.Close(); err != nil {
		fiberlog.Errorf("Failed to close Redis client after connection failures: %v", err)
	}

	return nil, fmt.Errorf("failed to connect to Redis after %d attempts", maxAttempts)
}

func welcomeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message":    "Welcome to the DataDeck API!",
			"version":    "1.0.0",
			"go_version": runtime.Version(),
			"status":     "running",
			"endpoints": fiber.Map{
				"connection_test": "/v1/connections/test",
				"detect_type":     "/v1/connections/detect",
				"projects":        "/v1/projects",
				"health":          "/health",
			},
		})
	}
}
