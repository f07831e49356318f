package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/assist"
	"github.com/spec-kit/helpdesk-core/internal/config"
	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/events"
	"github.com/spec-kit/helpdesk-core/internal/monitor"
	"github.com/spec-kit/helpdesk-core/internal/notify"
	"github.com/spec-kit/helpdesk-core/internal/observability"
	"github.com/spec-kit/helpdesk-core/internal/persistence"
	"github.com/spec-kit/helpdesk-core/internal/repository"
	"github.com/spec-kit/helpdesk-core/internal/service"
)

// demoUsers seeds the directory when no Postgres is configured.
var demoUsers = []domain.User{
	{ID: "u1", Name: "Alice Admin", Email: "alice@admin.com", Role: domain.RoleAdmin, Phone: "6281234567890"},
	{ID: "u2", Name: "Bob Tech", Email: "bob@pic.com", Role: domain.RolePIC, Phone: "6281234567891"},
	{ID: "u3", Name: "Charlie Client", Email: "charlie@client.com", Role: domain.RoleClient, Phone: "6281234567892"},
	{ID: "u4", Name: "Diana Tech", Email: "diana@pic.com", Role: domain.RolePIC, Phone: "6281234567893"},
}

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

	if cfg.Postgres.RunMigrations && pg.PoolHandle() != nil {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var users repository.UserDirectory
	var tickets repository.TicketRepository
	if pool := pg.PoolHandle(); pool != nil {
		users = repository.NewPostgresUserDirectory(pool)
		tickets = repository.NewPostgresTicketRepository(pool, users)
	} else {
		users = repository.NewMemoryUserDirectory(demoUsers)
		tickets = repository.NewMemoryTicketRepository(users)
	}

	var notifications repository.NotificationStore
	if redis.Client != nil {
		notifications = repository.NewRedisNotificationStore(redis.Client)
	} else {
		notifications = repository.NewMemoryNotificationStore()
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	engine := notify.NewEngine(notifications, logger, metrics)
	notifier := notify.NewNotifier(engine, users, logger)
	notifier.RegisterHandlers(dispatcher)

	var assistClient assist.Client
	if cfg.Assist.APIKey != "" {
		assistClient = assist.NewGeminiClient(cfg.Assist)
	}
	assistant := assist.NewAssistant(assistClient, logger)

	lifecycle := service.NewLifecycleService(service.LifecycleDependencies{
		TicketRepo: tickets,
		Users:      users,
		Engine:     engine,
		Dispatcher: dispatcher,
		Assistant:  assistant,
		Logger:     logger,
	})

	if pg.PoolHandle() == nil && cfg.App.Env == "development" {
		seedDemoTickets(ctx, lifecycle, logger)
	}

	staleness := monitor.NewStalenessMonitor(monitor.Dependencies{
		TicketRepo: tickets,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	}, cfg.Monitor.Period(), cfg.Monitor.StaleThreshold())
	handle := staleness.Start()

	logger.Info("helpdesk core ready", zap.String("env", cfg.App.Env))
	waitForShutdown(logger)

	handle.Stop()
}

// seedDemoTickets files a couple of starter tickets so a development
// run has visible lifecycle and notification activity.
func seedDemoTickets(ctx context.Context, lifecycle *service.LifecycleService, logger *zap.Logger) {
	seeds := []service.TicketCreateInput{
		{
			ID:          "T-1001",
			Title:       "Website slow on checkout",
			Description: "The checkout page takes more than 10 seconds to load.",
			Category:    "Bug",
			Priority:    domain.TicketPriorityUrgent,
		},
		{
			ID:          "T-1002",
			Title:       "New laptop request",
			Description: "Need a new laptop for the upcoming project.",
			Category:    "Hardware",
			Priority:    domain.TicketPriorityMedium,
		},
	}
	for _, seed := range seeds {
		if _, err := lifecycle.CreateTicket(ctx, "u3", seed); err != nil {
			logger.Warn("demo seed failed", zap.String("ticket_id", seed.ID), zap.Error(err))
		}
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
