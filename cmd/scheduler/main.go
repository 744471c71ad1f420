package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"efficity_backend/internal/crmsync"
	"efficity_backend/internal/email"
	"efficity_backend/internal/events"
	"efficity_backend/internal/exports"
	"efficity_backend/internal/leads"
	leadrepo "efficity_backend/internal/leads/repository"
	"efficity_backend/internal/notification"
	"efficity_backend/internal/scheduler"
	"efficity_backend/internal/sequences"
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
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)
	sender := email.NewSender(cfg)
	val := validator.New()

	// Worker-side module wiring (no HTTP handlers required).
	leadsModule := leads.NewModule(pool, eventBus, cfg, val, log)
	leadsModule.RegisterHandlers(eventBus)

	leadStore := leadrepo.New(pool)
	sequencesModule := sequences.NewModule(pool, leadStore, sender, eventBus, val, log)
	crmModule := crmsync.NewModule(pool, leadStore, cfg, log)

	notificationModule := notification.New(sender, leadStore, cfg, log)
	notificationModule.SetSequenceStopper(sequencesModule.Service)
	notificationModule.SetCRMEraser(crmModule.Service)
	notificationModule.RegisterHandlers(eventBus)

	worker, err := scheduler.NewWorker(cfg, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}
	worker.SetSequenceProcessor(sequencesModule.Service)
	worker.SetLeadRescorer(leadsModule.Service)
	worker.SetCRMSyncRunner(crmModule.Service)

	if cfg.IsMinIOEnabled() {
		storage, err := exports.NewStorage(ctx, cfg)
		if err != nil {
			log.Error("failed to initialize export storage", "error", err)
			panic("failed to initialize export storage: " + err.Error())
		}
		exportsSvc := exports.NewService(exports.NewRepository(pool), leadStore, storage, log)
		worker.SetExportSnapshotter(exportsSvc)

		cleanupInterval := getDurationEnv("EXPORT_CLEANUP_INTERVAL", time.Hour)
		retention := getDurationEnv("EXPORT_RETENTION", 30*24*time.Hour)
		cleanup := scheduler.NewExportCleanup(exportsSvc, log, cleanupInterval, retention)
		go cleanup.Run(ctx)
	} else {
		log.Warn("MINIO_ENDPOINT not configured; scheduled exports disabled")
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()

	dispatcher := scheduler.NewDispatcher(client, scheduler.DispatcherIntervals{
		SequenceSweep: getDurationEnv("SEQUENCE_SWEEP_INTERVAL", time.Minute),
		CRMSync:       getDurationEnv("CRM_SYNC_INTERVAL", 5*time.Minute),
		Rescore:       getDurationEnv("RESCORE_INTERVAL", 24*time.Hour),
		Snapshot:      getDurationEnv("EXPORT_SNAPSHOT_INTERVAL", 24*time.Hour),
	}, log)
	go dispatcher.Run(ctx)

	worker.Run(ctx)
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

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
}
