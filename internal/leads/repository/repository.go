package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"efficity_backend/platform/apperr"
)

const leadNotFoundMessage = "lead not found"

const leadColumns = `id, first_name, last_name, email, phone, city, postal_code, budget, notes,
		source, status, assigned_agent_id, tags, age, email_interactions, total_interactions,
		response_time_hours, last_interaction_at, email_consent, phone_consent,
		qualification_score, created_at, updated_at`

// Repo implements LeadsRepository with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new leads repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements LeadsRepository.
var _ LeadsRepository = (*Repo)(nil)

// Create inserts a new lead. The ID is assigned here when absent.
func (r *Repo) Create(ctx context.Context, lead *Lead) error {
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	now := time.Now().UTC()
	lead.CreatedAt = now
	lead.UpdatedAt = now
	if lead.Status == "" {
		lead.Status = "new"
	}

	query := `
		INSERT INTO leads (id, first_name, last_name, email, phone, city, postal_code, budget, notes,
			source, status, assigned_agent_id, tags, age, email_interactions, total_interactions,
			response_time_hours, last_interaction_at, email_consent, phone_consent,
			qualification_score, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)`

	_, err := r.pool.Exec(ctx, query,
		lead.ID, lead.FirstName, lead.LastName, lead.Email, lead.Phone, lead.City, lead.PostalCode,
		lead.Budget, lead.Notes, lead.Source, lead.Status, lead.AssignedAgentID, lead.Tags, lead.Age,
		lead.EmailInteractions, lead.TotalInteractions, lead.ResponseTimeHours, lead.LastInteractionAt,
		lead.EmailConsent, lead.PhoneConsent, lead.QualificationScore, lead.CreatedAt, lead.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create lead: %w", err)
	}
	return nil
}

// GetByID retrieves a lead by its ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`
	return r.scanLead(r.pool.QueryRow(ctx, query, id))
}

// GetByEmail retrieves a lead by email, used for webhook dedupe.
func (r *Repo) GetByEmail(ctx context.Context, email string) (Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE lower(email) = lower($1)`
	return r.scanLead(r.pool.QueryRow(ctx, query, email))
}

func (r *Repo) scanLead(row pgx.Row) (Lead, error) {
	var l Lead
	err := row.Scan(
		&l.ID, &l.FirstName, &l.LastName, &l.Email, &l.Phone, &l.City, &l.PostalCode, &l.Budget,
		&l.Notes, &l.Source, &l.Status, &l.AssignedAgentID, &l.Tags, &l.Age, &l.EmailInteractions,
		&l.TotalInteractions, &l.ResponseTimeHours, &l.LastInteractionAt, &l.EmailConsent,
		&l.PhoneConsent, &l.QualificationScore, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, apperr.NotFound(leadNotFoundMessage)
		}
		return Lead{}, fmt.Errorf("scan lead: %w", err)
	}
	return l, nil
}

// Update persists a full lead record.
func (r *Repo) Update(ctx context.Context, lead *Lead) error {
	lead.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE leads SET first_name=$2, last_name=$3, email=$4, phone=$5, city=$6, postal_code=$7,
			budget=$8, notes=$9, source=$10, status=$11, assigned_agent_id=$12, tags=$13, age=$14,
			email_interactions=$15, total_interactions=$16, response_time_hours=$17,
			last_interaction_at=$18, email_consent=$19, phone_consent=$20,
			qualification_score=$21, updated_at=$22
		WHERE id=$1`

	tag, err := r.pool.Exec(ctx, query,
		lead.ID, lead.FirstName, lead.LastName, lead.Email, lead.Phone, lead.City, lead.PostalCode,
		lead.Budget, lead.Notes, lead.Source, lead.Status, lead.AssignedAgentID, lead.Tags, lead.Age,
		lead.EmailInteractions, lead.TotalInteractions, lead.ResponseTimeHours, lead.LastInteractionAt,
		lead.EmailConsent, lead.PhoneConsent, lead.QualificationScore, lead.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update lead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(leadNotFoundMessage)
	}
	return nil
}

// List returns a filtered page of leads with the total count.
func (r *Repo) List(ctx context.Context, filter ListFilter) ([]Lead, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Status != nil {
		where = append(where, "status = "+arg(*filter.Status))
	}
	if filter.Source != nil {
		where = append(where, "source = "+arg(*filter.Source))
	}
	if filter.City != nil {
		where = append(where, "lower(city) = lower("+arg(*filter.City)+")")
	}
	if filter.MinScore != nil {
		where = append(where, "qualification_score >= "+arg(*filter.MinScore))
	}
	if filter.Search != nil && *filter.Search != "" {
		pattern := "%" + *filter.Search + "%"
		ph := arg(pattern)
		where = append(where, "(first_name ILIKE "+ph+" OR last_name ILIKE "+ph+" OR email ILIKE "+ph+")")
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT count(*) FROM leads WHERE "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count leads: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	query := `SELECT ` + leadColumns + ` FROM leads WHERE ` + whereClause +
		` ORDER BY created_at DESC LIMIT ` + arg(pageSize) + ` OFFSET ` + arg((page-1)*pageSize)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	leads := make([]Lead, 0, pageSize)
	for rows.Next() {
		var l Lead
		if err := rows.Scan(
			&l.ID, &l.FirstName, &l.LastName, &l.Email, &l.Phone, &l.City, &l.PostalCode, &l.Budget,
			&l.Notes, &l.Source, &l.Status, &l.AssignedAgentID, &l.Tags, &l.Age, &l.EmailInteractions,
			&l.TotalInteractions, &l.ResponseTimeHours, &l.LastInteractionAt, &l.EmailConsent,
			&l.PhoneConsent, &l.QualificationScore, &l.CreatedAt, &l.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan lead row: %w", err)
		}
		leads = append(leads, l)
	}
	return leads, total, rows.Err()
}

// Delete removes a lead permanently. Only the consent module's erasure flow
// should call this; normal lifecycle changes go through status updates.
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(leadNotFoundMessage)
	}
	return nil
}

// RecordInteraction bumps interaction counters and the last-interaction clock.
func (r *Repo) RecordInteraction(ctx context.Context, id uuid.UUID, channel string, at time.Time) error {
	emailBump := 0
	if channel == "email" {
		emailBump = 1
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET email_interactions = email_interactions + $2,
			total_interactions = total_interactions + 1,
			last_interaction_at = $3,
			updated_at = now()
		WHERE id = $1`, id, emailBump, at.UTC())
	if err != nil {
		return fmt.Errorf("record interaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(leadNotFoundMessage)
	}
	return nil
}

// ListIDs returns every lead ID, used by batch rescoring.
func (r *Repo) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM leads ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list lead ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListUpdatedSince returns leads modified after the given instant, oldest
// first, so incremental consumers can advance a watermark safely.
func (r *Repo) ListUpdatedSince(ctx context.Context, since time.Time, limit int) ([]Lead, error) {
	if limit < 1 {
		limit = 200
	}
	query := `SELECT ` + leadColumns + ` FROM leads
		WHERE updated_at > $1
		ORDER BY updated_at ASC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("list updated leads: %w", err)
	}
	defer rows.Close()

	var leads []Lead
	for rows.Next() {
		var l Lead
		if err := rows.Scan(
			&l.ID, &l.FirstName, &l.LastName, &l.Email, &l.Phone, &l.City, &l.PostalCode, &l.Budget,
			&l.Notes, &l.Source, &l.Status, &l.AssignedAgentID, &l.Tags, &l.Age, &l.EmailInteractions,
			&l.TotalInteractions, &l.ResponseTimeHours, &l.LastInteractionAt, &l.EmailConsent,
			&l.PhoneConsent, &l.QualificationScore, &l.CreatedAt, &l.UpdatedAt,
		); err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

// ListLabeled returns leads carrying a terminal status usable as a training
// outcome label (won, lost, and the intermediate funnel stages).
func (r *Repo) ListLabeled(ctx context.Context, limit int) ([]Lead, error) {
	if limit < 1 {
		limit = 1000
	}
	query := `SELECT ` + leadColumns + ` FROM leads
		WHERE status IN ('won','lost','visit_scheduled','engaged','cold')
		ORDER BY updated_at DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list labeled leads: %w", err)
	}
	defer rows.Close()

	var leads []Lead
	for rows.Next() {
		var l Lead
		if err := rows.Scan(
			&l.ID, &l.FirstName, &l.LastName, &l.Email, &l.Phone, &l.City, &l.PostalCode, &l.Budget,
			&l.Notes, &l.Source, &l.Status, &l.AssignedAgentID, &l.Tags, &l.Age, &l.EmailInteractions,
			&l.TotalInteractions, &l.ResponseTimeHours, &l.LastInteractionAt, &l.EmailConsent,
			&l.PhoneConsent, &l.QualificationScore, &l.CreatedAt, &l.UpdatedAt,
		); err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}
