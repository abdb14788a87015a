package main

import (
	"context"
	"log"
	"os"
	"strings"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"

	"github.com/example/task-management-system/config"
	"github.com/example/task-management-system/modules/api"
	"github.com/example/task-management-system/modules/auth"
	"github.com/example/task-management-system/modules/cache"
	"github.com/example/task-management-system/modules/notification"
	"github.com/example/task-management-system/modules/storage"
	"github.com/example/task-management-system/modules/task"
)

func main() {
	log.Println("=== Task Management System ===")

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel := mono.LogLevelInfo
	if strings.EqualFold(cfg.LogLevel, "error") {
		logLevel = mono.LogLevelError
	}

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		mono.WithLogLevel(logLevel),
		mono.WithLogFormat(mono.LogFormatText),
		mono.WithNATSMaxPayload(cfg.NATSMaxPayload),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}
	logger := app.Logger()

	if cfg.UsesFallbackSecret() {
		logger.Warn("JWT_SECRET is not set, signing tokens with the built-in fallback key")
	}

	// Plugins start before modules and are handed to every UsePluginModule.
	storagePlugin := storage.NewPluginModule(storage.Config{
		Driver: cfg.Database.Driver,
		URL:    cfg.Database.URL,
		Debug:  cfg.Database.Debug,
	}, logger)
	if err := app.RegisterPlugin(storagePlugin, "storage"); err != nil {
		log.Fatalf("Failed to register storage plugin: %v", err)
	}

	cachePlugin := cache.NewPluginModule(cache.Config{
		Addr:     cfg.Cache.RedisAddr,
		Password: cfg.Cache.RedisPassword,
		DB:       cfg.Cache.RedisDB,
		Prefix:   cfg.Cache.Prefix,
		TTL:      cfg.Cache.TTL,
	}, logger)
	if err := app.RegisterPlugin(cachePlugin, "cache"); err != nil {
		log.Fatalf("Failed to register cache plugin: %v", err)
	}

	// Order: independent modules first, then dependent modules
	app.Register(notification.NewModule(notification.DefaultCapacity, logger))
	app.Register(auth.NewModule(auth.Config{
		JWTSecret:  cfg.Auth.JWTSecret,
		TokenTTL:   cfg.Auth.TokenTTL,
		BcryptCost: cfg.Auth.BcryptCost,
	}, logger))
	app.Register(task.NewModule(logger))
	app.Register(api.NewModule(api.Config{
		Addr:        cfg.HTTPAddr(),
		CORSOrigins: cfg.HTTP.CORSOrigins,
	}, logger))

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(cfg)

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo(cfg config.Config) {
	log.Println("")
	log.Println("Application started successfully!")
	log.Printf("Database: %s (%s)", cfg.Database.Driver, cfg.Database.URL)
	if cfg.CacheEnabled() {
		log.Printf("Task cache: redis at %s (ttl %s)", cfg.Cache.RedisAddr, cfg.Cache.TTL)
	} else {
		log.Println("Task cache: disabled")
	}
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost:%d):", cfg.HTTP.Port)
	log.Println("")
	log.Println("  Public Endpoints:")
	log.Println("  POST   /api/auth/register         - Register a new user")
	log.Println("  POST   /api/auth/login            - Login and get a token")
	log.Println("  GET    /health                    - Health check")
	log.Println("")
	log.Println("  Protected Endpoints (require Bearer token):")
	log.Println("  GET    /api/users                 - List users")
	log.Println("  GET    /api/tasks                 - List tasks")
	log.Println("  POST   /api/tasks                 - Create a task")
	log.Println("  GET    /api/tasks/:id             - Get a task")
	log.Println("  PUT    /api/tasks/:id             - Replace a task")
	log.Println("  DELETE /api/tasks/:id             - Delete a task")
	log.Println("  POST   /api/tasks/:id/comments    - Comment on a task")
	log.Println("  GET    /api/activity              - Recent activity feed")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
