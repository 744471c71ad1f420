package scheduler

import (
	"context"
	"time"

	"efficity_backend/platform/logger"

	"github.com/hibiken/asynq"
)

const (
	defaultSequenceSweepInterval = time.Minute
	defaultCRMSyncInterval       = 5 * time.Minute
	defaultRescoreInterval       = 24 * time.Hour
	defaultSnapshotInterval      = 24 * time.Hour
)

// Dispatcher enqueues the recurring background tasks on their intervals.
// The worker side picks them up off the queue, so multiple dispatcher
// replicas only cost duplicate sweeps, never missed ones.
type Dispatcher struct {
	client *Client
	log    *logger.Logger

	sequenceInterval time.Duration
	crmInterval      time.Duration
	rescoreInterval  time.Duration
	snapshotInterval time.Duration
}

type DispatcherIntervals struct {
	SequenceSweep time.Duration
	CRMSync       time.Duration
	Rescore       time.Duration
	Snapshot      time.Duration
}

func NewDispatcher(client *Client, intervals DispatcherIntervals, log *logger.Logger) *Dispatcher {
	if intervals.SequenceSweep <= 0 {
		intervals.SequenceSweep = defaultSequenceSweepInterval
	}
	if intervals.CRMSync <= 0 {
		intervals.CRMSync = defaultCRMSyncInterval
	}
	if intervals.Rescore <= 0 {
		intervals.Rescore = defaultRescoreInterval
	}
	if intervals.Snapshot <= 0 {
		intervals.Snapshot = defaultSnapshotInterval
	}

	return &Dispatcher{
		client:           client,
		log:              log,
		sequenceInterval: intervals.SequenceSweep,
		crmInterval:      intervals.CRMSync,
		rescoreInterval:  intervals.Rescore,
		snapshotInterval: intervals.Snapshot,
	}
}

func (d *Dispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil {
		return
	}

	sequenceTicker := time.NewTicker(d.sequenceInterval)
	defer sequenceTicker.Stop()
	crmTicker := time.NewTicker(d.crmInterval)
	defer crmTicker.Stop()
	rescoreTicker := time.NewTicker(d.rescoreInterval)
	defer rescoreTicker.Stop()
	snapshotTicker := time.NewTicker(d.snapshotInterval)
	defer snapshotTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sequenceTicker.C:
			d.dispatch(ctx, TaskSequenceStepDue, NewSequenceStepDueTask)
		case <-crmTicker.C:
			d.dispatch(ctx, TaskCRMSyncRun, NewCRMSyncRunTask)
		case <-rescoreTicker.C:
			d.dispatch(ctx, TaskLeadRescoreBatch, NewLeadRescoreBatchTask)
		case <-snapshotTicker.C:
			if err := d.client.EnqueueExportSnapshot(ctx, nil); err != nil {
				d.log.Warn("task enqueue failed", "task", TaskExportSnapshot, "error", err)
			}
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, name string, build func() *asynq.Task) {
	if err := d.client.enqueue(ctx, build()); err != nil {
		d.log.Warn("task enqueue failed", "task", name, "error", err)
	}
}
