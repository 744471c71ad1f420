package consent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Channels a lead can consent to.
const (
	ChannelEmail = "email"
	ChannelPhone = "phone"
)

// Record is one consent decision in the audit trail. The leads table holds
// the current flags; this table holds the history behind them.
type Record struct {
	ID         uuid.UUID
	LeadID     uuid.UUID
	Channel    string
	Granted    bool
	Source     *string
	RecordedAt time.Time
}

// Tombstone marks an erased lead. Only a hash of the email survives, so a
// completed erasure request can be proven without retaining the address.
type Tombstone struct {
	ID        uuid.UUID
	EmailHash *string
	RequestID *uuid.UUID
	ErasedAt  time.Time
}

// Repository persists consent records and erasure tombstones.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates the consent repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// AddRecord appends one consent decision.
func (r *Repository) AddRecord(ctx context.Context, record *Record) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.RecordedAt = time.Now().UTC()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO consent_records (id, lead_id, channel, granted, source, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		record.ID, record.LeadID, record.Channel, record.Granted, record.Source, record.RecordedAt)
	if err != nil {
		return fmt.Errorf("add consent record: %w", err)
	}
	return nil
}

// History returns a lead's consent decisions, newest first.
func (r *Repository) History(ctx context.Context, leadID uuid.UUID) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, channel, granted, source, recorded_at
		FROM consent_records WHERE lead_id = $1 ORDER BY recorded_at DESC`, leadID)
	if err != nil {
		return nil, fmt.Errorf("consent history: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.LeadID, &rec.Channel, &rec.Granted, &rec.Source, &rec.RecordedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeleteRecords removes a lead's consent history (part of erasure).
func (r *Repository) DeleteRecords(ctx context.Context, leadID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM consent_records WHERE lead_id = $1`, leadID)
	if err != nil {
		return fmt.Errorf("delete consent records: %w", err)
	}
	return nil
}

// AddTombstone records a completed erasure.
func (r *Repository) AddTombstone(ctx context.Context, t *Tombstone) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.ErasedAt = time.Now().UTC()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO erasure_tombstones (id, email_hash, request_id, erased_at)
		VALUES ($1, $2, $3, $4)`,
		t.ID, t.EmailHash, t.RequestID, t.ErasedAt)
	if err != nil {
		return fmt.Errorf("add erasure tombstone: %w", err)
	}
	return nil
}

// CountTombstones returns the number of completed erasures, used for
// compliance reporting.
func (r *Repository) CountTombstones(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM erasure_tombstones`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count tombstones: %w", err)
	}
	return count, nil
}
