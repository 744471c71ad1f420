package exports

import (
	"context"
	"fmt"
	"io"
	"time"

	leadrepo "efficity_backend/internal/leads/repository"
	"efficity_backend/platform/apperr"
	"efficity_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	snapshotPageSize = 500
	downloadExpiry   = 24 * time.Hour
)

// LeadSource is the narrow port into the leads module.
type LeadSource interface {
	List(ctx context.Context, filter leadrepo.ListFilter) ([]leadrepo.Lead, int, error)
	LatestScore(ctx context.Context, leadID uuid.UUID) (leadrepo.ScoreRecord, error)
}

// ObjectStore abstracts the MinIO storage for testing.
type ObjectStore interface {
	Upload(ctx context.Context, objectKey string, reader io.Reader, size int64) error
	PresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error)
	Remove(ctx context.Context, objectKey string) error
}

// ExportStore is the metadata persistence surface.
type ExportStore interface {
	Create(ctx context.Context, e *Export) error
	GetByID(ctx context.Context, id uuid.UUID) (Export, error)
	List(ctx context.Context, limit int) ([]Export, error)
	ListOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]Export, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// SnapshotResult is the outcome of one snapshot run.
type SnapshotResult struct {
	ExportID    uuid.UUID `json:"exportId"`
	RowCount    int       `json:"rowCount"`
	DownloadURL string    `json:"downloadUrl"`
}

// Service builds full-portfolio spreadsheet snapshots and stores them.
type Service struct {
	repo    ExportStore
	leads   LeadSource
	storage ObjectStore
	log     *logger.Logger
	now     func() time.Time
}

// NewService creates the exports service.
func NewService(repo ExportStore, leads LeadSource, storage ObjectStore, log *logger.Logger) *Service {
	return &Service{repo: repo, leads: leads, storage: storage, log: log, now: time.Now}
}

// Snapshot exports every lead with its latest score into one workbook,
// uploads it, and returns a time-limited download link.
func (s *Service) Snapshot(ctx context.Context, requestedBy *uuid.UUID) (SnapshotResult, error) {
	var result SnapshotResult

	rows, err := s.collectRows(ctx)
	if err != nil {
		return result, err
	}

	buf, err := BuildWorkbook(rows)
	if err != nil {
		return result, err
	}

	objectKey := fmt.Sprintf("leads/%s-%s.xlsx",
		s.now().UTC().Format("2006-01-02-150405"), uuid.NewString()[:8])
	if err := s.storage.Upload(ctx, objectKey, buf, int64(buf.Len())); err != nil {
		return result, err
	}

	export := Export{ObjectKey: objectKey, RowCount: len(rows), RequestedBy: requestedBy}
	if err := s.repo.Create(ctx, &export); err != nil {
		return result, err
	}

	url, err := s.storage.PresignedURL(ctx, objectKey, downloadExpiry)
	if err != nil {
		return result, err
	}

	s.log.Info("lead export generated", "exportId", export.ID, "rows", len(rows))
	return SnapshotResult{ExportID: export.ID, RowCount: len(rows), DownloadURL: url}, nil
}

// DownloadURL returns a fresh presigned link for an existing export.
func (s *Service) DownloadURL(ctx context.Context, id uuid.UUID) (string, error) {
	export, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return s.storage.PresignedURL(ctx, export.ObjectKey, downloadExpiry)
}

// List returns recent export records.
func (s *Service) List(ctx context.Context, limit int) ([]Export, error) {
	return s.repo.List(ctx, limit)
}

// PruneOlderThan deletes exports created before the cutoff, removing both
// the stored workbook and its metadata row.
func (s *Service) PruneOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	old, err := s.repo.ListOlderThan(ctx, cutoff, 100)
	if err != nil {
		return 0, err
	}

	pruned := 0
	for _, export := range old {
		if err := s.storage.Remove(ctx, export.ObjectKey); err != nil {
			s.log.Warn("export object removal failed", "exportId", export.ID, "error", err)
			continue
		}
		if err := s.repo.Delete(ctx, export.ID); err != nil {
			return pruned, err
		}
		pruned++
	}
	return pruned, nil
}

func (s *Service) collectRows(ctx context.Context) ([]Row, error) {
	var rows []Row
	for page := 1; ; page++ {
		leads, total, err := s.leads.List(ctx, leadrepo.ListFilter{Page: page, PageSize: snapshotPageSize})
		if err != nil {
			return nil, err
		}
		for _, lead := range leads {
			rows = append(rows, s.buildRow(ctx, lead))
		}
		if len(rows) >= total || len(leads) == 0 {
			break
		}
	}
	return rows, nil
}

func (s *Service) buildRow(ctx context.Context, lead leadrepo.Lead) Row {
	row := Row{
		FirstName:  deref(lead.FirstName),
		LastName:   deref(lead.LastName),
		Email:      deref(lead.Email),
		Phone:      deref(lead.Phone),
		City:       deref(lead.City),
		PostalCode: deref(lead.PostalCode),
		Budget:     lead.Budget,
		Status:     lead.Status,
		Source:     deref(lead.Source),
		CreatedAt:  lead.CreatedAt,
	}

	record, err := s.leads.LatestScore(ctx, lead.ID)
	if err != nil {
		if !apperr.Is(err, apperr.KindNotFound) {
			s.log.Debug("export score lookup failed", "leadId", lead.ID, "error", err)
		}
		return row
	}
	row.Score = &record.Score
	row.Tier = record.Tier
	row.Timing = record.Timing
	row.Intent = record.Intent
	return row
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
