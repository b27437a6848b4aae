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

	httptransport "github.com/spec-kit/servicedesk/internal/api/http"
	"github.com/spec-kit/servicedesk/internal/api/http/handlers"
	"github.com/spec-kit/servicedesk/internal/auth"
	"github.com/spec-kit/servicedesk/internal/config"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/observability"
	"github.com/spec-kit/servicedesk/internal/persistence"
	"github.com/spec-kit/servicedesk/internal/repository"
	"github.com/spec-kit/servicedesk/internal/service"
	"github.com/spec-kit/servicedesk/internal/worker"
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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	commentRepo := repository.NewTicketCommentRepository(pool)
	historyRepo := repository.NewTicketHistoryRepository(pool)
	teamRepo := repository.NewTeamRepository(pool)
	assignmentRuleRepo := repository.NewAssignmentRuleRepository(pool)
	escalationRuleRepo := repository.NewEscalationRuleRepository(pool)
	slaPolicyRepo := repository.NewSLAPolicyRepository(pool)
	escalationLogRepo := repository.NewEscalationLogRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)

	notificationService := service.NewNotificationService(dispatcher, notificationRepo, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService, logger)

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo: userRepo,
		Logger:   logger,
	})
	if err := authService.EnsureBootstrapAdmin(ctx, cfg.Auth.BootstrapEmail, cfg.Auth.BootstrapPassword); err != nil {
		logger.Fatal("failed to create bootstrap admin", zap.Error(err))
	}

	var locker service.TeamLocker
	if cfg.Assignment.TeamLockEnabled {
		locker = persistence.NewTeamLocker(redis, cfg.Assignment.TeamLockTTL())
	} else {
		logger.Warn("team lock disabled; round-robin picks are best-effort under concurrency")
	}
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		TicketRepo:  ticketRepo,
		UserRepo:    userRepo,
		TeamRepo:    teamRepo,
		RuleRepo:    assignmentRuleRepo,
		HistoryRepo: historyRepo,
		Dispatcher:  dispatcher,
		Locker:      locker,
		Logger:      logger,
		Metrics:     metrics,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:    ticketRepo,
		CommentRepo:   commentRepo,
		HistoryRepo:   historyRepo,
		SLAPolicyRepo: slaPolicyRepo,
		Assigner:      assignmentService,
		Dispatcher:    dispatcher,
		Logger:        logger,
	})
	ruleService := service.NewRuleService(service.RuleDependencies{
		AssignmentRuleRepo: assignmentRuleRepo,
		EscalationRuleRepo: escalationRuleRepo,
		SLAPolicyRepo:      slaPolicyRepo,
		TeamRepo:           teamRepo,
		UserRepo:           userRepo,
		Logger:             logger,
	})
	escalationService := service.NewEscalationService(service.EscalationDependencies{
		TicketRepo:        ticketRepo,
		UserRepo:          userRepo,
		TeamRepo:          teamRepo,
		RuleRepo:          escalationRuleRepo,
		EscalationLogRepo: escalationLogRepo,
		CommentRepo:       commentRepo,
		HistoryRepo:       historyRepo,
		Dispatcher:        dispatcher,
		Logger:            logger,
		Metrics:           metrics,
	})

	var escalationWorker *worker.EscalationWorker
	if cfg.Escalation.Enabled {
		escalationWorker, err = worker.NewEscalationWorker(escalationService, cfg.Escalation, logger)
		if err != nil {
			logger.Fatal("failed to configure escalation worker", zap.Error(err))
		}
		escalationWorker.Start()
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		StaffTickets:   handlers.NewStaffTicketsHandler(ticketService, assignmentService),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		Admin:          handlers.NewAdminHandler(authService, ruleService, escalationService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), userRepo),
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if escalationWorker != nil {
		escalationWorker.Stop(shutdownCtx)
	}
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
