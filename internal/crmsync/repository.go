package crmsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SyncState records the outcome of the last push attempt per lead.
type SyncState struct {
	LeadID       uuid.UUID
	CRMContactID *string
	SyncedAt     *time.Time
	LastError    *string
}

// Repository persists the sync watermark and per-lead sync state.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates the crmsync repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetCursor returns the updated_at watermark of the last completed run.
// A zero time means no run has completed yet.
func (r *Repository) GetCursor(ctx context.Context) (time.Time, error) {
	var cursor time.Time
	err := r.pool.QueryRow(ctx,
		`SELECT last_synced_at FROM crm_sync_cursor WHERE id = 1`).Scan(&cursor)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("get sync cursor: %w", err)
	}
	return cursor, nil
}

// SetCursor advances the watermark.
func (r *Repository) SetCursor(ctx context.Context, cursor time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO crm_sync_cursor (id, last_synced_at) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET last_synced_at = EXCLUDED.last_synced_at`,
		cursor)
	if err != nil {
		return fmt.Errorf("set sync cursor: %w", err)
	}
	return nil
}

// RecordSuccess stores the CRM contact ID and clears any previous error.
func (r *Repository) RecordSuccess(ctx context.Context, leadID uuid.UUID, contactID string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO crm_sync_state (lead_id, crm_contact_id, synced_at, last_error)
		VALUES ($1, $2, $3, NULL)
		ON CONFLICT (lead_id) DO UPDATE
		SET crm_contact_id = EXCLUDED.crm_contact_id, synced_at = EXCLUDED.synced_at, last_error = NULL`,
		leadID, contactID, at)
	if err != nil {
		return fmt.Errorf("record sync success: %w", err)
	}
	return nil
}

// RecordFailure stores the error for troubleshooting without touching the
// contact mapping from earlier successful pushes.
func (r *Repository) RecordFailure(ctx context.Context, leadID uuid.UUID, cause string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO crm_sync_state (lead_id, last_error)
		VALUES ($1, $2)
		ON CONFLICT (lead_id) DO UPDATE SET last_error = EXCLUDED.last_error`,
		leadID, cause)
	if err != nil {
		return fmt.Errorf("record sync failure: %w", err)
	}
	return nil
}

// GetState returns the sync state for one lead.
func (r *Repository) GetState(ctx context.Context, leadID uuid.UUID) (SyncState, error) {
	var s SyncState
	err := r.pool.QueryRow(ctx, `
		SELECT lead_id, crm_contact_id, synced_at, last_error
		FROM crm_sync_state WHERE lead_id = $1`, leadID).
		Scan(&s.LeadID, &s.CRMContactID, &s.SyncedAt, &s.LastError)
	if errors.Is(err, pgx.ErrNoRows) {
		return SyncState{LeadID: leadID}, nil
	}
	if err != nil {
		return SyncState{}, fmt.Errorf("get sync state: %w", err)
	}
	return s, nil
}

// DeleteState removes a lead's sync state (right-to-erasure path).
func (r *Repository) DeleteState(ctx context.Context, leadID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM crm_sync_state WHERE lead_id = $1`, leadID)
	if err != nil {
		return fmt.Errorf("delete sync state: %w", err)
	}
	return nil
}
