package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/company-directory/internal/api/http"
	"github.com/spec-kit/company-directory/internal/api/http/handlers"
	"github.com/spec-kit/company-directory/internal/auth"
	"github.com/spec-kit/company-directory/internal/cache"
	"github.com/spec-kit/company-directory/internal/config"
	"github.com/spec-kit/company-directory/internal/events"
	"github.com/spec-kit/company-directory/internal/observability"
	"github.com/spec-kit/company-directory/internal/persistence"
	"github.com/spec-kit/company-directory/internal/repository"
	"github.com/spec-kit/company-directory/internal/service"
	"github.com/spec-kit/company-directory/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := persistence.OpenStore(ctx, cfg.Store, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	departmentRepo := repository.NewDepartmentRepository(db, logger)
	departmentCache := cache.NewDepartmentCache(redis.Client, departmentRepo, cfg.Redis.TTL(), logger)
	employeeRepo := repository.NewEmployeeRepository(db, departmentCache, logger)

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger))

	directory := service.NewDirectoryService(service.DirectoryDependencies{
		Departments: departmentRepo,
		Employees:   employeeRepo,
		Cache:       departmentCache,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})

	var authMiddleware *auth.AuthMiddleware
	if cfg.Auth.Required {
		tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
		authMiddleware = auth.NewAuthMiddleware(tokens)
	}

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, db, redis, metrics),
		Departments:    handlers.NewDepartmentHandler(directory),
		Employees:      handlers.NewEmployeeHandler(directory),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.ShutdownWithTimeout(10 * time.Second)

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCancel()
	if err := db.Close(closeCtx); err != nil {
		logger.Warn("failed to close store", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
