package crmsync

import (
	"context"
	"time"

	leadrepo "efficity_backend/internal/leads/repository"
	"efficity_backend/platform/apperr"
	"efficity_backend/platform/config"
	"efficity_backend/platform/logger"

	"github.com/google/uuid"
)

const syncBatchSize = 200

// LeadSource is the narrow port into the leads module.
type LeadSource interface {
	ListUpdatedSince(ctx context.Context, since time.Time, limit int) ([]leadrepo.Lead, error)
	LatestScore(ctx context.Context, leadID uuid.UUID) (leadrepo.ScoreRecord, error)
}

// ContactPusher abstracts the CRM client for testing.
type ContactPusher interface {
	UpsertContact(ctx context.Context, contact Contact) (string, error)
}

// Store is the persistence surface the service depends on.
type Store interface {
	GetCursor(ctx context.Context) (time.Time, error)
	SetCursor(ctx context.Context, cursor time.Time) error
	RecordSuccess(ctx context.Context, leadID uuid.UUID, contactID string, at time.Time) error
	RecordFailure(ctx context.Context, leadID uuid.UUID, cause string) error
	GetState(ctx context.Context, leadID uuid.UUID) (SyncState, error)
	DeleteState(ctx context.Context, leadID uuid.UUID) error
}

// RunResult summarizes one sync run.
type RunResult struct {
	Synced  int `json:"synced"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// Service pushes modified leads to the external CRM incrementally. The
// cursor only advances past a lead once its push succeeded, so failed
// leads are retried on the next run.
type Service struct {
	repo   Store
	leads  LeadSource
	client ContactPusher
	cfg    config.CRMConfig
	log    *logger.Logger
}

// NewService creates the crmsync service.
func NewService(repo Store, leads LeadSource, client ContactPusher, cfg config.CRMConfig, log *logger.Logger) *Service {
	return &Service{repo: repo, leads: leads, client: client, cfg: cfg, log: log}
}

// Run performs one incremental sync pass.
func (s *Service) Run(ctx context.Context) (RunResult, error) {
	var result RunResult
	if !s.cfg.IsCRMEnabled() {
		return result, nil
	}

	cursor, err := s.repo.GetCursor(ctx)
	if err != nil {
		return result, err
	}

	leads, err := s.leads.ListUpdatedSince(ctx, cursor, syncBatchSize)
	if err != nil {
		return result, err
	}

	newCursor := cursor
	for _, lead := range leads {
		if lead.Email == nil && lead.Phone == nil {
			// Nothing the CRM can key a contact on.
			result.Skipped++
			if lead.UpdatedAt.After(newCursor) && result.Failed == 0 {
				newCursor = lead.UpdatedAt
			}
			continue
		}

		contact := s.buildContact(ctx, lead)
		contactID, err := s.client.UpsertContact(ctx, contact)
		if err != nil {
			result.Failed++
			s.log.Error("crm push failed", "leadId", lead.ID, "error", err)
			if stateErr := s.repo.RecordFailure(ctx, lead.ID, err.Error()); stateErr != nil {
				s.log.Error("crm sync state write failed", "leadId", lead.ID, "error", stateErr)
			}
			continue
		}

		result.Synced++
		if err := s.repo.RecordSuccess(ctx, lead.ID, contactID, time.Now().UTC()); err != nil {
			s.log.Error("crm sync state write failed", "leadId", lead.ID, "error", err)
		}
		// Holding the cursor back after the first failure keeps the failed
		// lead inside the next run's window.
		if result.Failed == 0 && lead.UpdatedAt.After(newCursor) {
			newCursor = lead.UpdatedAt
		}
	}

	if newCursor.After(cursor) {
		if err := s.repo.SetCursor(ctx, newCursor); err != nil {
			return result, err
		}
	}

	s.log.Info("crm sync run finished",
		"synced", result.Synced, "failed", result.Failed, "skipped", result.Skipped)
	return result, nil
}

// State returns the sync state of one lead.
func (s *Service) State(ctx context.Context, leadID uuid.UUID) (SyncState, error) {
	return s.repo.GetState(ctx, leadID)
}

// EraseLead removes the lead's sync state (right-to-erasure path).
func (s *Service) EraseLead(ctx context.Context, leadID uuid.UUID) error {
	return s.repo.DeleteState(ctx, leadID)
}

func (s *Service) buildContact(ctx context.Context, lead leadrepo.Lead) Contact {
	contact := Contact{
		ExternalRef: lead.ID.String(),
		Status:      lead.Status,
		Tags:        lead.Tags,
	}
	if lead.FirstName != nil {
		contact.FirstName = *lead.FirstName
	}
	if lead.LastName != nil {
		contact.LastName = *lead.LastName
	}
	if lead.Email != nil {
		contact.Email = *lead.Email
	}
	if lead.Phone != nil {
		contact.Phone = *lead.Phone
	}
	if lead.City != nil {
		contact.City = *lead.City
	}
	contact.Budget = lead.Budget

	record, err := s.leads.LatestScore(ctx, lead.ID)
	if err != nil {
		if !apperr.Is(err, apperr.KindNotFound) {
			s.log.Debug("crm sync score lookup failed", "leadId", lead.ID, "error", err)
		}
		return contact
	}
	contact.Score = &record.Score
	contact.Tier = record.Tier
	return contact
}
