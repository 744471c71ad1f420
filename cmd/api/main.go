package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"efficity_backend/internal/auth"
	"efficity_backend/internal/consent"
	"efficity_backend/internal/crmsync"
	"efficity_backend/internal/email"
	"efficity_backend/internal/events"
	"efficity_backend/internal/exports"
	apphttp "efficity_backend/internal/http"
	"efficity_backend/internal/http/router"
	"efficity_backend/internal/leads"
	leadrepo "efficity_backend/internal/leads/repository"
	"efficity_backend/internal/notification"
	"efficity_backend/internal/sequences"
	"efficity_backend/internal/webhook"
	"efficity_backend/migrations"
	"efficity_backend/platform/config"
	"efficity_backend/platform/db"
	"efficity_backend/platform/logger"
	"efficity_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	sender := email.NewSender(cfg)

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	leadsModule := leads.NewModule(pool, eventBus, cfg, val, log)
	leadsModule.RegisterHandlers(eventBus)

	// Shared lead repository backing the narrow ports of the other modules.
	leadStore := leadrepo.New(pool)

	webhookModule := webhook.NewModule(pool, leadsModule.Service, val, log)
	sequencesModule := sequences.NewModule(pool, leadStore, sender, eventBus, val, log)
	sequencesModule.RegisterHandlers(eventBus)
	crmModule := crmsync.NewModule(pool, leadStore, cfg, log)
	consentModule := consent.NewModule(pool, leadStore, eventBus, val, log)
	authModule := auth.NewModule(pool, cfg, sender, val, log)

	modules := []apphttp.Module{
		authModule,
		leadsModule,
		webhookModule,
		sequencesModule,
		crmModule,
		consentModule,
	}

	if cfg.IsMinIOEnabled() {
		storage, err := exports.NewStorage(ctx, cfg)
		if err != nil {
			log.Error("failed to initialize export storage", "error", err)
			panic("failed to initialize export storage: " + err.Error())
		}
		modules = append(modules, exports.NewModule(pool, leadStore, storage, log))
		log.Info("export storage initialized", "bucket", cfg.GetMinioBucketExports())
	} else {
		log.Warn("MINIO_ENDPOINT not configured; spreadsheet exports disabled")
	}

	// Notification module reacts to domain events (not HTTP-facing).
	notificationModule := notification.New(sender, leadStore, cfg, log)
	notificationModule.SetSequenceStopper(sequencesModule.Service)
	notificationModule.SetCRMEraser(crmModule.Service)
	notificationModule.RegisterHandlers(eventBus)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules:  modules,
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
