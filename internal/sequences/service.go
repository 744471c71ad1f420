package sequences

import (
	"context"
	"time"

	"efficity_backend/internal/email"
	"efficity_backend/internal/events"
	leadrepo "efficity_backend/internal/leads/repository"
	"efficity_backend/platform/apperr"
	"efficity_backend/platform/logger"

	"github.com/google/uuid"
)

// processBatchSize bounds one ProcessDue sweep.
const processBatchSize = 100

// LeadReader is the narrow port into the leads module.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (leadrepo.Lead, error)
}

// Store is the persistence surface the service depends on.
type Store interface {
	CreateSequence(ctx context.Context, seq *Sequence) error
	GetSequence(ctx context.Context, id uuid.UUID) (Sequence, error)
	ListSequences(ctx context.Context) ([]Sequence, error)
	ListDefaultSequences(ctx context.Context) ([]Sequence, error)
	CreateEnrollment(ctx context.Context, e *Enrollment) error
	GetEnrollment(ctx context.Context, id uuid.UUID) (Enrollment, error)
	UpdateEnrollmentStatus(ctx context.Context, id uuid.UUID, status string) error
	AdvanceEnrollment(ctx context.Context, id uuid.UUID, step int, nextRunAt *time.Time) error
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]Enrollment, error)
	StopAllForLead(ctx context.Context, leadID uuid.UUID) (int, error)
	DeleteAllForLead(ctx context.Context, leadID uuid.UUID) error
	ListEnrollmentsForLead(ctx context.Context, leadID uuid.UUID) ([]Enrollment, error)
}

// Service implements the nurturing logic.
type Service struct {
	repo   Store
	leads  LeadReader
	sender email.Sender
	bus    events.Bus
	log    *logger.Logger
}

// NewService creates the sequences service.
func NewService(repo Store, leads LeadReader, sender email.Sender, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, leads: leads, sender: sender, bus: bus, log: log}
}

// CreateSequence validates the step templates and stores the sequence.
func (s *Service) CreateSequence(ctx context.Context, name string, description *string, isDefault bool, steps []Step) (*Sequence, error) {
	if len(steps) == 0 {
		return nil, apperr.Validation("a sequence needs at least one step")
	}
	for i := range steps {
		steps[i].StepOrder = i
		if !email.IsNurtureTemplate(steps[i].TemplateKey) {
			return nil, apperr.Validation("unknown template key: " + steps[i].TemplateKey)
		}
		if steps[i].OffsetHours < 0 {
			return nil, apperr.Validation("step offset cannot be negative")
		}
	}

	seq := Sequence{Name: name, Description: description, IsDefault: isDefault, Steps: steps}
	if err := s.repo.CreateSequence(ctx, &seq); err != nil {
		return nil, err
	}
	return &seq, nil
}

// GetSequence returns one sequence with steps.
func (s *Service) GetSequence(ctx context.Context, id uuid.UUID) (*Sequence, error) {
	seq, err := s.repo.GetSequence(ctx, id)
	if err != nil {
		return nil, err
	}
	return &seq, nil
}

// ListSequences returns all sequences.
func (s *Service) ListSequences(ctx context.Context) ([]Sequence, error) {
	return s.repo.ListSequences(ctx)
}

// Enroll puts a lead into a sequence. Enrollment is idempotent per
// (lead, sequence): re-enrolling returns the existing enrollment untouched.
// Leads without an email address or without email consent are rejected.
func (s *Service) Enroll(ctx context.Context, leadID, sequenceID uuid.UUID) (*Enrollment, error) {
	lead, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if lead.Email == nil || *lead.Email == "" {
		return nil, apperr.Validation("lead has no email address")
	}
	if !lead.EmailConsent {
		return nil, apperr.Forbidden("lead has not consented to email contact")
	}

	seq, err := s.repo.GetSequence(ctx, sequenceID)
	if err != nil {
		return nil, err
	}
	if !seq.IsActive {
		return nil, apperr.Validation("sequence is not active")
	}
	if len(seq.Steps) == 0 {
		return nil, apperr.Validation("sequence has no steps")
	}

	firstRun := time.Now().UTC().Add(time.Duration(seq.Steps[0].OffsetHours) * time.Hour)
	enrollment := Enrollment{
		LeadID:      leadID,
		SequenceID:  sequenceID,
		CurrentStep: 0,
		Status:      StatusActive,
		NextRunAt:   &firstRun,
	}
	if err := s.repo.CreateEnrollment(ctx, &enrollment); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// EnrollDefaults puts a new lead into every default sequence. Leads that
// cannot be contacted by email are skipped quietly: default enrollment rides
// on lead creation and must never make it fail.
func (s *Service) EnrollDefaults(ctx context.Context, leadID uuid.UUID) (int, error) {
	seqs, err := s.repo.ListDefaultSequences(ctx)
	if err != nil {
		return 0, err
	}

	enrolled := 0
	for _, seq := range seqs {
		if _, err := s.Enroll(ctx, leadID, seq.ID); err != nil {
			if apperr.Is(err, apperr.KindValidation) || apperr.Is(err, apperr.KindForbidden) {
				continue
			}
			return enrolled, err
		}
		enrolled++
	}
	return enrolled, nil
}

// Pause suspends an active enrollment.
func (s *Service) Pause(ctx context.Context, enrollmentID uuid.UUID) error {
	return s.transition(ctx, enrollmentID, StatusActive, StatusPaused)
}

// Resume reactivates a paused enrollment.
func (s *Service) Resume(ctx context.Context, enrollmentID uuid.UUID) error {
	return s.transition(ctx, enrollmentID, StatusPaused, StatusActive)
}

// Stop terminates an enrollment permanently.
func (s *Service) Stop(ctx context.Context, enrollmentID uuid.UUID) error {
	e, err := s.repo.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		return err
	}
	if e.Status == StatusCompleted || e.Status == StatusStopped {
		return nil
	}
	return s.repo.UpdateEnrollmentStatus(ctx, enrollmentID, StatusStopped)
}

func (s *Service) transition(ctx context.Context, enrollmentID uuid.UUID, from, to string) error {
	e, err := s.repo.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		return err
	}
	if e.Status != from {
		return apperr.Conflict("enrollment is " + e.Status)
	}
	return s.repo.UpdateEnrollmentStatus(ctx, enrollmentID, to)
}

// ListForLead returns a lead's enrollments.
func (s *Service) ListForLead(ctx context.Context, leadID uuid.UUID) ([]Enrollment, error) {
	return s.repo.ListEnrollmentsForLead(ctx, leadID)
}

// StopAllForLead terminates every running enrollment of a lead. Wired to the
// consent.revoked and leads.erased events.
func (s *Service) StopAllForLead(ctx context.Context, leadID uuid.UUID) error {
	stopped, err := s.repo.StopAllForLead(ctx, leadID)
	if err != nil {
		return err
	}
	if stopped > 0 {
		s.log.Info("sequence enrollments stopped", "leadId", leadID, "count", stopped)
	}
	return nil
}

// EraseLead removes the lead's enrollments entirely (right-to-erasure path).
func (s *Service) EraseLead(ctx context.Context, leadID uuid.UUID) error {
	return s.repo.DeleteAllForLead(ctx, leadID)
}

// ProcessDue claims due enrollments and sends their current step. Called by
// the scheduler's periodic sweep. Each enrollment is processed independently:
// one failing send is logged and retried on the next sweep without blocking
// the rest of the batch.
func (s *Service) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	claimed, err := s.repo.ClaimDue(ctx, now, processBatchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, enrollment := range claimed {
		if err := s.processEnrollment(ctx, enrollment, now); err != nil {
			s.log.Error("sequence step failed",
				"enrollmentId", enrollment.ID, "leadId", enrollment.LeadID, "error", err)
			continue
		}
		sent++
	}
	return sent, nil
}

func (s *Service) processEnrollment(ctx context.Context, enrollment Enrollment, now time.Time) error {
	lead, err := s.leads.GetByID(ctx, enrollment.LeadID)
	if err != nil {
		// The lead is gone; the enrollment has nothing left to nurture.
		return s.repo.UpdateEnrollmentStatus(ctx, enrollment.ID, StatusStopped)
	}

	// Consent is re-checked at send time, not only at enrollment.
	if !lead.EmailConsent || lead.Email == nil || *lead.Email == "" {
		return s.repo.UpdateEnrollmentStatus(ctx, enrollment.ID, StatusStopped)
	}

	seq, err := s.repo.GetSequence(ctx, enrollment.SequenceID)
	if err != nil {
		return err
	}
	if enrollment.CurrentStep >= len(seq.Steps) {
		return s.repo.AdvanceEnrollment(ctx, enrollment.ID, enrollment.CurrentStep, nil)
	}
	step := seq.Steps[enrollment.CurrentStep]

	data := email.NurtureData{LeadName: lead.FullName()}
	if lead.City != nil {
		data.City = *lead.City
	}
	subject, html, err := email.RenderNurtureStep(step.TemplateKey, data)
	if err != nil {
		return err
	}
	if err := s.sender.SendNurtureEmail(ctx, *lead.Email, subject, html); err != nil {
		return err
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.SequenceStepSent{
			BaseEvent:    events.NewBaseEvent(),
			EnrollmentID: enrollment.ID,
			LeadID:       enrollment.LeadID,
			SequenceID:   enrollment.SequenceID,
			StepOrder:    step.StepOrder,
		})
	}

	next := enrollment.CurrentStep + 1
	if next >= len(seq.Steps) {
		return s.repo.AdvanceEnrollment(ctx, enrollment.ID, next, nil)
	}
	nextRun := enrollment.EnrolledAt.Add(time.Duration(seq.Steps[next].OffsetHours) * time.Hour)
	if nextRun.Before(now) {
		nextRun = now.Add(time.Hour)
	}
	return s.repo.AdvanceEnrollment(ctx, enrollment.ID, next, &nextRun)
}
