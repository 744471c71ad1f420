package scheduler

import (
	"context"
	"fmt"
	"time"

	"efficity_backend/internal/crmsync"
	"efficity_backend/internal/exports"
	"efficity_backend/platform/config"
	"efficity_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// SequenceProcessor delivers the nurture steps whose run time has passed.
type SequenceProcessor interface {
	ProcessDue(ctx context.Context, now time.Time) (int, error)
}

// LeadRescorer recomputes scores for the whole portfolio.
type LeadRescorer interface {
	RescoreAll(ctx context.Context) (int, error)
}

// CRMSyncRunner pushes changed leads to the external CRM.
type CRMSyncRunner interface {
	Run(ctx context.Context) (crmsync.RunResult, error)
}

// ExportSnapshotter builds a full-portfolio spreadsheet export.
type ExportSnapshotter interface {
	Snapshot(ctx context.Context, requestedBy *uuid.UUID) (exports.SnapshotResult, error)
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *logger.Logger

	sequences SequenceProcessor
	rescorer  LeadRescorer
	crm       CRMSyncRunner
	exporter  ExportSnapshotter
}

func NewWorker(cfg config.SchedulerConfig, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		log:    log,
	}

	mux.HandleFunc(TaskSequenceStepDue, w.handleSequenceStepDue)
	mux.HandleFunc(TaskLeadRescoreBatch, w.handleLeadRescoreBatch)
	mux.HandleFunc(TaskCRMSyncRun, w.handleCRMSyncRun)
	mux.HandleFunc(TaskExportSnapshot, w.handleExportSnapshot)

	return w, nil
}

func (w *Worker) SetSequenceProcessor(p SequenceProcessor) { w.sequences = p }

func (w *Worker) SetLeadRescorer(r LeadRescorer) { w.rescorer = r }

func (w *Worker) SetCRMSyncRunner(r CRMSyncRunner) { w.crm = r }

func (w *Worker) SetExportSnapshotter(s ExportSnapshotter) { w.exporter = s }

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleSequenceStepDue(ctx context.Context, _ *asynq.Task) error {
	if w.sequences == nil {
		return nil
	}

	sent, err := w.sequences.ProcessDue(ctx, time.Now().UTC())
	if err != nil {
		return err
	}
	if sent > 0 {
		w.log.Info("sequence sweep delivered steps", "sent", sent)
	}
	return nil
}

func (w *Worker) handleLeadRescoreBatch(ctx context.Context, _ *asynq.Task) error {
	if w.rescorer == nil {
		return nil
	}

	rescored, err := w.rescorer.RescoreAll(ctx)
	if err != nil {
		return err
	}
	w.log.Info("portfolio rescored", "leads", rescored)
	return nil
}

func (w *Worker) handleCRMSyncRun(ctx context.Context, _ *asynq.Task) error {
	if w.crm == nil {
		return nil
	}

	result, err := w.crm.Run(ctx)
	if err != nil {
		return err
	}
	w.log.Info("crm sync finished",
		"synced", result.Synced, "failed", result.Failed, "skipped", result.Skipped)
	return nil
}

func (w *Worker) handleExportSnapshot(ctx context.Context, task *asynq.Task) error {
	if w.exporter == nil {
		return nil
	}

	payload, err := ParseExportSnapshotPayload(task)
	if err != nil {
		return err
	}

	var requestedBy *uuid.UUID
	if payload.RequestedBy != nil {
		id, err := uuid.Parse(*payload.RequestedBy)
		if err != nil {
			return err
		}
		requestedBy = &id
	}

	result, err := w.exporter.Snapshot(ctx, requestedBy)
	if err != nil {
		return err
	}
	w.log.Info("scheduled export generated", "exportId", result.ExportID, "rows", result.RowCount)
	return nil
}
