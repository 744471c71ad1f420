package consent

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"efficity_backend/internal/events"
	leadrepo "efficity_backend/internal/leads/repository"
	"efficity_backend/platform/apperr"
	"efficity_backend/platform/logger"

	"github.com/google/uuid"
)

// LeadStore is the narrow port into the leads module.
type LeadStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (leadrepo.Lead, error)
	Update(ctx context.Context, lead *leadrepo.Lead) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteScores(ctx context.Context, leadID uuid.UUID) error
}

// Store is the persistence surface the service depends on.
type Store interface {
	AddRecord(ctx context.Context, record *Record) error
	History(ctx context.Context, leadID uuid.UUID) ([]Record, error)
	DeleteRecords(ctx context.Context, leadID uuid.UUID) error
	AddTombstone(ctx context.Context, t *Tombstone) error
	CountTombstones(ctx context.Context) (int, error)
}

// Service manages consent decisions and right-to-erasure requests.
type Service struct {
	repo  Store
	leads LeadStore
	bus   events.Bus
	log   *logger.Logger
}

// NewService creates the consent service.
func NewService(repo Store, leads LeadStore, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, leads: leads, bus: bus, log: log}
}

// Set records a consent decision and updates the lead's current flags.
// Revocations are broadcast so running sequences stop before the next send.
func (s *Service) Set(ctx context.Context, leadID uuid.UUID, channel string, granted bool, source *string) error {
	if channel != ChannelEmail && channel != ChannelPhone {
		return apperr.Validation("channel must be email or phone")
	}

	lead, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		return err
	}

	switch channel {
	case ChannelEmail:
		lead.EmailConsent = granted
	case ChannelPhone:
		lead.PhoneConsent = granted
	}
	if err := s.leads.Update(ctx, &lead); err != nil {
		return err
	}

	record := Record{LeadID: leadID, Channel: channel, Granted: granted, Source: source}
	if err := s.repo.AddRecord(ctx, &record); err != nil {
		return err
	}

	if !granted && s.bus != nil {
		s.bus.Publish(ctx, events.ConsentRevoked{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    leadID,
			Channel:   channel,
		})
	}
	return nil
}

// History returns a lead's consent audit trail.
func (s *Service) History(ctx context.Context, leadID uuid.UUID) ([]Record, error) {
	if _, err := s.leads.GetByID(ctx, leadID); err != nil {
		return nil, err
	}
	return s.repo.History(ctx, leadID)
}

// Erase hard-deletes a lead and everything derived from it, leaving only a
// tombstone. The emitted event lets the other modules clean up their side
// (enrollments, CRM sync state).
func (s *Service) Erase(ctx context.Context, leadID uuid.UUID) error {
	lead, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		return err
	}

	tombstone := Tombstone{EmailHash: hashEmail(lead.Email)}
	if err := s.repo.AddTombstone(ctx, &tombstone); err != nil {
		return err
	}

	if err := s.repo.DeleteRecords(ctx, leadID); err != nil {
		return err
	}
	if err := s.leads.DeleteScores(ctx, leadID); err != nil {
		return err
	}
	if err := s.leads.Delete(ctx, leadID); err != nil {
		return err
	}

	s.log.Info("lead erased", "leadId", leadID)
	if s.bus != nil {
		s.bus.Publish(ctx, events.LeadErased{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    leadID,
		})
	}
	return nil
}

// ErasureCount reports how many erasure requests have been completed.
func (s *Service) ErasureCount(ctx context.Context) (int, error) {
	return s.repo.CountTombstones(ctx)
}

func hashEmail(email *string) *string {
	if email == nil || *email == "" {
		return nil
	}
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(*email))))
	hashed := hex.EncodeToString(sum[:])
	return &hashed
}
