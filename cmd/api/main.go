package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/support-sync/internal/api/http"
	"github.com/spec-kit/support-sync/internal/api/http/handlers"
	"github.com/spec-kit/support-sync/internal/auth"
	"github.com/spec-kit/support-sync/internal/config"
	"github.com/spec-kit/support-sync/internal/events"
	"github.com/spec-kit/support-sync/internal/observability"
	"github.com/spec-kit/support-sync/internal/persistence"
	"github.com/spec-kit/support-sync/internal/repository"
	"github.com/spec-kit/support-sync/internal/service"
	"github.com/spec-kit/support-sync/internal/tracker"
	"github.com/spec-kit/support-sync/internal/worker"
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

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(dispatcher, logger)

	pool := pg.PoolHandle()
	requestRepo := repository.NewSupportRequestRepository(pool)
	requestNoteRepo := repository.NewRequestNoteRepository(pool)
	issueRepo := repository.NewExternalIssueRepository(pool)
	issueNoteRepo := repository.NewIssueNoteRepository(pool)

	remote := tracker.NewHTTPClient(cfg.Tracker, tracker.EnvTokenSource{})

	supportService := service.NewSupportService(service.SupportDependencies{
		RequestRepo: requestRepo,
		NoteRepo:    requestNoteRepo,
		Dispatcher:  dispatcher,
	})
	issueService := service.NewIssueService(service.IssueDependencies{
		Remote:     remote,
		IssueRepo:  issueRepo,
		NoteRepo:   issueNoteRepo,
		Dispatcher: dispatcher,
		Logger:     logger,
		Metrics:    metrics,
	})
	aggregator := service.NewAggregator(logger, metrics)
	unifiedService := service.NewUnifiedService(supportService, issueService, aggregator)
	syncController := service.NewSyncController(service.SyncControllerDependencies{
		Backend:    issueService,
		Locks:      redis,
		LockTTL:    cfg.Sync.LockTTL(),
		Dispatcher: dispatcher,
		Logger:     logger,
		Metrics:    metrics,
	})

	authMiddleware := auth.NewAuthMiddleware(auth.NewTokenManager(cfg.Auth.JWTSecret))

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Tickets:        handlers.NewTicketsHandler(supportService, unifiedService),
		AdminTickets:   handlers.NewAdminTicketsHandler(unifiedService, issueService),
		Sync:           handlers.NewSyncHandler(syncController),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
