package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SAP-F-2025/test-engine-service/internal/cache"
	"github.com/SAP-F-2025/test-engine-service/internal/config"
	"github.com/SAP-F-2025/test-engine-service/internal/events"
	"github.com/SAP-F-2025/test-engine-service/internal/handlers"
	"github.com/SAP-F-2025/test-engine-service/internal/monitoring"
	"github.com/SAP-F-2025/test-engine-service/internal/repositories"
	"github.com/SAP-F-2025/test-engine-service/internal/repositories/memory"
	"github.com/SAP-F-2025/test-engine-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/test-engine-service/internal/services"
	"github.com/SAP-F-2025/test-engine-service/internal/utils"
	"github.com/SAP-F-2025/test-engine-service/internal/validator"
	"github.com/SAP-F-2025/test-engine-service/pkg"
	"github.com/gin-gonic/gin"
)

func main() {
	configDir := flag.String("config", ".", "directory holding an optional config.yaml")
	migrateOnly := flag.Bool("migrate-only", false, "migrate the database schema and exit")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, syncLogs := utils.NewZapLogger(cfg.LogConfig())
	defer func() { _ = syncLogs() }()
	slogger := utils.ToSlogLogger(logger)

	if err := applyMigrateOnly(cfg, *migrateOnly); err != nil {
		log.Fatalf("Invalid flags: %v", err)
	}

	if err := run(cfg, logger, slogger, *migrateOnly); err != nil {
		logger.LogError(err, "Service stopped with error")
		_ = syncLogs()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger utils.Logger, slogger *slog.Logger, migrateOnly bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	monitoring.Init()

	repo, closeRepo, err := openRepository(cfg, logger)
	if err != nil {
		return err
	}
	defer closeRepo()
	if migrateOnly {
		logger.Info("Database migration finished")
		return nil
	}

	var remote cache.CacheService = cache.NewNoopCache()
	if cfg.Redis.Enabled {
		client, err := pkg.NewRedisClient(cfg)
		if err != nil {
			return err
		}
		defer client.Close()
		remote = cache.NewRedisCache(client, "test-engine:", slogger)
		logger.Info("Redis cache enabled", "url", cfg.Redis.URL)
	}

	var admins services.AdminChecker
	if cfg.Casdoor.Enabled {
		admins = services.NewCasdoorAdminChecker(pkg.NewCasdoorClient(cfg))
		logger.Info("Admin capability resolved through Casdoor", "endpoint", cfg.Casdoor.Endpoint)
	}

	publisher, err := cfg.Events.CreateEventPublisher(slogger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	v := validator.New()
	manager := services.NewServiceManager(services.Dependencies{
		Repo:        repo,
		RemoteCache: remote,
		CacheConfig: cfg.ContentCache(),
		Admins:      admins,
		Publisher:   publisher,
		Validator:   v,
		Logger:      slogger,
	})

	subscriber, err := cfg.Events.CreateSubscriber(slogger)
	if err != nil {
		return err
	}
	if subscriber != nil {
		consumer := events.NewContentChangeConsumer(subscriber, cfg.Events.ContentTopic, manager.Content(), slogger)
		defer consumer.Close()
		go func() {
			if err := consumer.Run(ctx); err != nil {
				logger.LogError(err, "Content change consumer stopped")
			}
		}()
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), utils.LoggerMiddleware(logger), utils.ContextLogger(logger))

	handlers.NewHandlerManager(manager, v, logger, handlers.RouterOptions{
		Authority:          handlers.NewTokenAuthority(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL),
		StartRatePerMinute: cfg.RateLimit.SessionStartsPerMinute,
		StartBurst:         cfg.RateLimit.Burst,
	}).SetupRoutes(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting test engine service", "port", cfg.Server.Port, "storage", cfg.Storage)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// applyMigrateOnly forces the schema migration when the process only exists to migrate.
func applyMigrateOnly(cfg *config.Config, migrateOnly bool) error {
	if !migrateOnly {
		return nil
	}
	if cfg.Storage != config.StoragePostgres {
		return fmt.Errorf("-migrate-only requires %s storage, got %q", config.StoragePostgres, cfg.Storage)
	}
	cfg.Database.AutoMigrate = true
	return nil
}

func openRepository(cfg *config.Config, logger utils.Logger) (repositories.Repository, func(), error) {
	if cfg.Storage == config.StorageMemory {
		logger.Warn("Using in-memory storage; data is lost on restart")
		return memory.NewStore(), func() {}, nil
	}

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return postgres.NewRepository(db), closeDB, nil
}
