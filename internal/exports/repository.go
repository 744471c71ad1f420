package exports

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

// Export is one generated snapshot artifact.
type Export struct {
	ID          uuid.UUID
	ObjectKey   string
	RowCount    int
	RequestedBy *uuid.UUID
	CreatedAt   time.Time
}

// Repository persists export metadata.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates the exports repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new export record.
func (r *Repository) Create(ctx context.Context, e *Export) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = time.Now().UTC()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO lead_exports (id, object_key, row_count, requested_by, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.ObjectKey, e.RowCount, e.RequestedBy, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("create export: %w", err)
	}
	return nil
}

// GetByID returns one export record.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Export, error) {
	var e Export
	err := r.pool.QueryRow(ctx, `
		SELECT id, object_key, row_count, requested_by, created_at
		FROM lead_exports WHERE id = $1`, id).
		Scan(&e.ID, &e.ObjectKey, &e.RowCount, &e.RequestedBy, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Export{}, apperr.NotFound("export not found")
	}
	if err != nil {
		return Export{}, fmt.Errorf("get export: %w", err)
	}
	return e, nil
}

// List returns the most recent exports.
func (r *Repository) List(ctx context.Context, limit int) ([]Export, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, object_key, row_count, requested_by, created_at
		FROM lead_exports ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list exports: %w", err)
	}
	defer rows.Close()

	var exports []Export
	for rows.Next() {
		var e Export
		if err := rows.Scan(&e.ID, &e.ObjectKey, &e.RowCount, &e.RequestedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		exports = append(exports, e)
	}
	return exports, rows.Err()
}

// ListOlderThan returns exports created before the cutoff, oldest first.
func (r *Repository) ListOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]Export, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, object_key, row_count, requested_by, created_at
		FROM lead_exports WHERE created_at < $1 ORDER BY created_at ASC LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list old exports: %w", err)
	}
	defer rows.Close()

	var exports []Export
	for rows.Next() {
		var e Export
		if err := rows.Scan(&e.ID, &e.ObjectKey, &e.RowCount, &e.RequestedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		exports = append(exports, e)
	}
	return exports, rows.Err()
}

// Delete removes one export record.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM lead_exports WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete export: %w", err)
	}
	return nil
}
