// Package sequences provides the email nurturing bounded context: drip
// sequences, per-lead enrollments and the due-step processor driven by the
// scheduler.
package sequences

import (
	"context"
	"errors"
	"fmt"
	"time"

	"efficity_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Enrollment statuses.
const (
	StatusActive    = "active"
	StatusPaused    = "paused"
	StatusCompleted = "completed"
	StatusStopped   = "stopped"
)

// Sequence is a named drip campaign.
type Sequence struct {
	ID          uuid.UUID
	Name        string
	Description *string
	IsActive    bool
	IsDefault   bool
	Steps       []Step
	CreatedAt   time.Time
}

// Step is one email in a sequence, sent OffsetHours after enrollment.
type Step struct {
	ID          uuid.UUID
	SequenceID  uuid.UUID
	StepOrder   int
	OffsetHours int
	TemplateKey string
}

// Enrollment tracks one lead's progress through a sequence.
type Enrollment struct {
	ID          uuid.UUID
	LeadID      uuid.UUID
	SequenceID  uuid.UUID
	CurrentStep int
	Status      string
	NextRunAt   *time.Time
	EnrolledAt  time.Time
	UpdatedAt   time.Time
}

// Repository provides data access for sequences and enrollments.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new sequences repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateSequence inserts a sequence and its steps in one transaction.
func (r *Repository) CreateSequence(ctx context.Context, seq *Sequence) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create sequence: %w", err)
	}
	defer tx.Rollback(ctx)

	if seq.ID == uuid.Nil {
		seq.ID = uuid.New()
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO sequences (id, name, description, is_active, is_default)
		VALUES ($1, $2, $3, true, $4)
		RETURNING created_at`,
		seq.ID, seq.Name, seq.Description, seq.IsDefault,
	).Scan(&seq.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert sequence: %w", err)
	}

	for i := range seq.Steps {
		step := &seq.Steps[i]
		if step.ID == uuid.Nil {
			step.ID = uuid.New()
		}
		step.SequenceID = seq.ID
		_, err := tx.Exec(ctx, `
			INSERT INTO sequence_steps (id, sequence_id, step_order, offset_hours, template_key)
			VALUES ($1, $2, $3, $4, $5)`,
			step.ID, seq.ID, step.StepOrder, step.OffsetHours, step.TemplateKey,
		)
		if err != nil {
			return fmt.Errorf("insert sequence step: %w", err)
		}
	}

	seq.IsActive = true
	return tx.Commit(ctx)
}

// GetSequence returns a sequence with its steps ordered by step_order.
func (r *Repository) GetSequence(ctx context.Context, id uuid.UUID) (Sequence, error) {
	var seq Sequence
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, description, is_active, is_default, created_at
		FROM sequences WHERE id = $1`, id,
	).Scan(&seq.ID, &seq.Name, &seq.Description, &seq.IsActive, &seq.IsDefault, &seq.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sequence{}, apperr.NotFound("sequence not found")
		}
		return Sequence{}, fmt.Errorf("get sequence: %w", err)
	}

	steps, err := r.stepsFor(ctx, id)
	if err != nil {
		return Sequence{}, err
	}
	seq.Steps = steps
	return seq, nil
}

func (r *Repository) stepsFor(ctx context.Context, sequenceID uuid.UUID) ([]Step, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, sequence_id, step_order, offset_hours, template_key
		FROM sequence_steps WHERE sequence_id = $1 ORDER BY step_order`, sequenceID)
	if err != nil {
		return nil, fmt.Errorf("list sequence steps: %w", err)
	}
	defer rows.Close()

	var steps []Step
	for rows.Next() {
		var step Step
		if err := rows.Scan(&step.ID, &step.SequenceID, &step.StepOrder, &step.OffsetHours, &step.TemplateKey); err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

// ListSequences returns all sequences without their steps.
func (r *Repository) ListSequences(ctx context.Context) ([]Sequence, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, description, is_active, is_default, created_at
		FROM sequences ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sequences: %w", err)
	}
	defer rows.Close()
	return scanSequences(rows)
}

// ListDefaultSequences returns the active sequences every new lead should be
// enrolled in.
func (r *Repository) ListDefaultSequences(ctx context.Context) ([]Sequence, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, description, is_active, is_default, created_at
		FROM sequences WHERE is_default AND is_active ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list default sequences: %w", err)
	}
	defer rows.Close()
	return scanSequences(rows)
}

func scanSequences(rows pgx.Rows) ([]Sequence, error) {
	var seqs []Sequence
	for rows.Next() {
		var seq Sequence
		if err := rows.Scan(&seq.ID, &seq.Name, &seq.Description, &seq.IsActive, &seq.IsDefault, &seq.CreatedAt); err != nil {
			return nil, err
		}
		seqs = append(seqs, seq)
	}
	return seqs, rows.Err()
}

// CreateEnrollment inserts an enrollment; the (lead, sequence) pair is
// unique, so a repeat enroll surfaces as a conflict that Enroll treats as
// idempotent success.
func (r *Repository) CreateEnrollment(ctx context.Context, e *Enrollment) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO sequence_enrollments (id, lead_id, sequence_id, current_step, status, next_run_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (lead_id, sequence_id) DO NOTHING
		RETURNING enrolled_at, updated_at`,
		e.ID, e.LeadID, e.SequenceID, e.CurrentStep, e.Status, e.NextRunAt,
	).Scan(&e.EnrolledAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// Conflict path: the lead is already enrolled.
		existing, lookupErr := r.GetEnrollmentByLeadAndSequence(ctx, e.LeadID, e.SequenceID)
		if lookupErr != nil {
			return lookupErr
		}
		*e = existing
		return nil
	}
	if err != nil {
		return fmt.Errorf("insert enrollment: %w", err)
	}
	return nil
}

// GetEnrollment returns one enrollment by ID.
func (r *Repository) GetEnrollment(ctx context.Context, id uuid.UUID) (Enrollment, error) {
	return r.scanEnrollment(r.pool.QueryRow(ctx, `
		SELECT id, lead_id, sequence_id, current_step, status, next_run_at, enrolled_at, updated_at
		FROM sequence_enrollments WHERE id = $1`, id))
}

// GetEnrollmentByLeadAndSequence returns the enrollment for a (lead, sequence) pair.
func (r *Repository) GetEnrollmentByLeadAndSequence(ctx context.Context, leadID, sequenceID uuid.UUID) (Enrollment, error) {
	return r.scanEnrollment(r.pool.QueryRow(ctx, `
		SELECT id, lead_id, sequence_id, current_step, status, next_run_at, enrolled_at, updated_at
		FROM sequence_enrollments WHERE lead_id = $1 AND sequence_id = $2`, leadID, sequenceID))
}

func (r *Repository) scanEnrollment(row pgx.Row) (Enrollment, error) {
	var e Enrollment
	err := row.Scan(&e.ID, &e.LeadID, &e.SequenceID, &e.CurrentStep, &e.Status, &e.NextRunAt, &e.EnrolledAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Enrollment{}, apperr.NotFound("enrollment not found")
		}
		return Enrollment{}, fmt.Errorf("get enrollment: %w", err)
	}
	return e, nil
}

// UpdateEnrollmentStatus moves an enrollment between active/paused/stopped.
func (r *Repository) UpdateEnrollmentStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE sequence_enrollments SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("enrollment not found")
	}
	return nil
}

// AdvanceEnrollment moves the pointer to the next step and schedules it, or
// completes the enrollment when nextRunAt is nil.
func (r *Repository) AdvanceEnrollment(ctx context.Context, id uuid.UUID, nextStep int, nextRunAt *time.Time) error {
	status := StatusActive
	if nextRunAt == nil {
		status = StatusCompleted
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE sequence_enrollments
		SET current_step = $2, next_run_at = $3, status = $4, updated_at = now()
		WHERE id = $1`, id, nextStep, nextRunAt, status)
	if err != nil {
		return fmt.Errorf("advance enrollment: %w", err)
	}
	return nil
}

// ClaimDue atomically claims up to limit due enrollments by pushing their
// next_run_at forward, so concurrent workers never process the same row.
// The claimed rows are returned for processing.
func (r *Repository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]Enrollment, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE sequence_enrollments SET next_run_at = $1, updated_at = now()
		WHERE id IN (
			SELECT id FROM sequence_enrollments
			WHERE status = $2 AND next_run_at <= $3
			ORDER BY next_run_at
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, lead_id, sequence_id, current_step, status, next_run_at, enrolled_at, updated_at`,
		now.Add(10*time.Minute), StatusActive, now, limit)
	if err != nil {
		return nil, fmt.Errorf("claim due enrollments: %w", err)
	}
	defer rows.Close()

	var claimed []Enrollment
	for rows.Next() {
		var e Enrollment
		if err := rows.Scan(&e.ID, &e.LeadID, &e.SequenceID, &e.CurrentStep, &e.Status, &e.NextRunAt, &e.EnrolledAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		claimed = append(claimed, e)
	}
	return claimed, rows.Err()
}

// StopAllForLead stops every active or paused enrollment of a lead. Used
// when consent is revoked or the lead is erased.
func (r *Repository) StopAllForLead(ctx context.Context, leadID uuid.UUID) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE sequence_enrollments SET status = $2, updated_at = now()
		WHERE lead_id = $1 AND status IN ($3, $4)`,
		leadID, StatusStopped, StatusActive, StatusPaused)
	if err != nil {
		return 0, fmt.Errorf("stop enrollments for lead: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// DeleteAllForLead removes the lead's enrollments entirely (erasure path).
func (r *Repository) DeleteAllForLead(ctx context.Context, leadID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sequence_enrollments WHERE lead_id = $1`, leadID)
	if err != nil {
		return fmt.Errorf("delete enrollments for lead: %w", err)
	}
	return nil
}

// ListEnrollmentsForLead returns all enrollments of one lead.
func (r *Repository) ListEnrollmentsForLead(ctx context.Context, leadID uuid.UUID) ([]Enrollment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, sequence_id, current_step, status, next_run_at, enrolled_at, updated_at
		FROM sequence_enrollments WHERE lead_id = $1 ORDER BY enrolled_at DESC`, leadID)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	defer rows.Close()

	var enrollments []Enrollment
	for rows.Next() {
		var e Enrollment
		if err := rows.Scan(&e.ID, &e.LeadID, &e.SequenceID, &e.CurrentStep, &e.Status, &e.NextRunAt, &e.EnrolledAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		enrollments = append(enrollments, e)
	}
	return enrollments, rows.Err()
}
