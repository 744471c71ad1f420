package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"efficity_backend/platform/apperr"
)

// SaveScore appends a scoring result to the lead's history and mirrors the
// rounded score onto the lead row for cheap list filtering.
func (r *Repo) SaveScore(ctx context.Context, record *ScoreRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.GeneratedAt.IsZero() {
		record.GeneratedAt = time.Now().UTC()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("save score begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO lead_scores (id, lead_id, score, tier, timing, intent, result, generated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		record.ID, record.LeadID, record.Score, record.Tier, record.Timing, record.Intent,
		record.ResultJSON, record.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("insert lead score: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE leads SET qualification_score = $2, updated_at = now() WHERE id = $1`,
		record.LeadID, int(record.Score+0.5),
	)
	if err != nil {
		return fmt.Errorf("mirror lead score: %w", err)
	}

	return tx.Commit(ctx)
}

// LatestScore returns the most recent scoring result for a lead.
func (r *Repo) LatestScore(ctx context.Context, leadID uuid.UUID) (ScoreRecord, error) {
	var rec ScoreRecord
	err := r.pool.QueryRow(ctx, `
		SELECT id, lead_id, score, tier, timing, intent, result, generated_at
		FROM lead_scores WHERE lead_id = $1
		ORDER BY generated_at DESC LIMIT 1`, leadID).Scan(
		&rec.ID, &rec.LeadID, &rec.Score, &rec.Tier, &rec.Timing, &rec.Intent,
		&rec.ResultJSON, &rec.GeneratedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ScoreRecord{}, apperr.NotFound("no score recorded for lead")
		}
		return ScoreRecord{}, fmt.Errorf("latest score: %w", err)
	}
	return rec, nil
}

// ScoreHistory returns recent scoring results, newest first.
func (r *Repo) ScoreHistory(ctx context.Context, leadID uuid.UUID, limit int) ([]ScoreRecord, error) {
	if limit < 1 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, score, tier, timing, intent, result, generated_at
		FROM lead_scores WHERE lead_id = $1
		ORDER BY generated_at DESC LIMIT $2`, leadID, limit)
	if err != nil {
		return nil, fmt.Errorf("score history: %w", err)
	}
	defer rows.Close()

	var records []ScoreRecord
	for rows.Next() {
		var rec ScoreRecord
		if err := rows.Scan(
			&rec.ID, &rec.LeadID, &rec.Score, &rec.Tier, &rec.Timing, &rec.Intent,
			&rec.ResultJSON, &rec.GeneratedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeleteScores removes the full scoring history for one lead (erasure path).
func (r *Repo) DeleteScores(ctx context.Context, leadID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM lead_scores WHERE lead_id = $1`, leadID)
	if err != nil {
		return fmt.Errorf("delete lead scores: %w", err)
	}
	return nil
}
