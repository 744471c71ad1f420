package repository

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

const TokenTypePasswordReset = "PASSWORD_RESET"

// Agent roles. Every agent carries at least RoleAgent; RoleAdmin unlocks
// the /admin route group.
const (
	RoleAgent = "agent"
	RoleAdmin = "admin"
)

const agentNotFoundMessage = "agent not found"

// Agent is an authenticated back-office user.
type Agent struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	FirstName    *string
	LastName     *string
	Roles        []string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const agentColumns = `id, email, password_hash, first_name, last_name, roles, is_active, created_at, updated_at`

// Repository provides data access for agents and their tokens.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new auth repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateAgent inserts a new agent record.
func (r *Repository) CreateAgent(ctx context.Context, agent *Agent) error {
	if agent.ID == uuid.Nil {
		agent.ID = uuid.New()
	}
	now := time.Now().UTC()
	agent.CreatedAt = now
	agent.UpdatedAt = now
	if len(agent.Roles) == 0 {
		agent.Roles = []string{RoleAgent}
	}
	agent.IsActive = true

	_, err := r.pool.Exec(ctx, `
		INSERT INTO agents (id, email, password_hash, first_name, last_name, roles, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		agent.ID, agent.Email, agent.PasswordHash, agent.FirstName, agent.LastName,
		agent.Roles, agent.IsActive, agent.CreatedAt, agent.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create agent: %w", err)
	}
	return nil
}

// GetAgentByEmail retrieves an active agent by email.
func (r *Repository) GetAgentByEmail(ctx context.Context, email string) (Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE lower(email) = lower($1) AND is_active`
	return r.scanAgent(r.pool.QueryRow(ctx, query, email))
}

// GetAgentByID retrieves an agent by ID.
func (r *Repository) GetAgentByID(ctx context.Context, id uuid.UUID) (Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE id = $1`
	return r.scanAgent(r.pool.QueryRow(ctx, query, id))
}

func (r *Repository) scanAgent(row pgx.Row) (Agent, error) {
	var a Agent
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.FirstName, &a.LastName,
		&a.Roles, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Agent{}, apperr.NotFound(agentNotFoundMessage)
	}
	if err != nil {
		return Agent{}, fmt.Errorf("scan agent: %w", err)
	}
	return a, nil
}

// UpdateNames changes the agent's display names.
func (r *Repository) UpdateNames(ctx context.Context, id uuid.UUID, firstName, lastName *string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE agents SET first_name = $2, last_name = $3, updated_at = now() WHERE id = $1`,
		id, firstName, lastName)
	if err != nil {
		return fmt.Errorf("update agent names: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(agentNotFoundMessage)
	}
	return nil
}

// UpdatePassword replaces the agent's password hash.
func (r *Repository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE agents SET password_hash = $2, updated_at = now() WHERE id = $1`,
		id, passwordHash)
	if err != nil {
		return fmt.Errorf("update agent password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(agentNotFoundMessage)
	}
	return nil
}

// SetRoles replaces the agent's role set.
func (r *Repository) SetRoles(ctx context.Context, id uuid.UUID, roles []string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE agents SET roles = $2, updated_at = now() WHERE id = $1`, id, roles)
	if err != nil {
		return fmt.Errorf("set agent roles: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(agentNotFoundMessage)
	}
	return nil
}

// Deactivate disables an agent without deleting its history.
func (r *Repository) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE agents SET is_active = false, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate agent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(agentNotFoundMessage)
	}
	return nil
}

// ListAgents returns all agents ordered by email.
func (r *Repository) ListAgents(ctx context.Context) ([]Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents ORDER BY email`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var agents []Agent
	for rows.Next() {
		var a Agent
		if err := rows.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.FirstName, &a.LastName,
			&a.Roles, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// CreateAgentToken stores a single-use token hash (password reset).
func (r *Repository) CreateAgentToken(ctx context.Context, agentID uuid.UUID, tokenHash, tokenType string, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO agent_tokens (agent_id, token_hash, type, expires_at)
		VALUES ($1, $2, $3, $4)`,
		agentID, tokenHash, tokenType, expiresAt)
	if err != nil {
		return fmt.Errorf("create agent token: %w", err)
	}
	return nil
}

// GetAgentToken looks up an unused token by hash.
func (r *Repository) GetAgentToken(ctx context.Context, tokenHash, tokenType string) (uuid.UUID, time.Time, error) {
	var agentID uuid.UUID
	var expiresAt time.Time
	err := r.pool.QueryRow(ctx, `
		SELECT agent_id, expires_at FROM agent_tokens
		WHERE token_hash = $1 AND type = $2 AND used_at IS NULL`,
		tokenHash, tokenType).Scan(&agentID, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, time.Time{}, apperr.NotFound("token not found")
	}
	if err != nil {
		return uuid.Nil, time.Time{}, fmt.Errorf("get agent token: %w", err)
	}
	return agentID, expiresAt, nil
}

// UseAgentToken burns a single-use token.
func (r *Repository) UseAgentToken(ctx context.Context, tokenHash, tokenType string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE agent_tokens SET used_at = now()
		WHERE token_hash = $1 AND type = $2 AND used_at IS NULL`,
		tokenHash, tokenType)
	if err != nil {
		return fmt.Errorf("use agent token: %w", err)
	}
	return nil
}

// CreateRefreshToken stores a refresh token hash.
func (r *Repository) CreateRefreshToken(ctx context.Context, agentID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO refresh_tokens (agent_id, token_hash, expires_at)
		VALUES ($1, $2, $3)`,
		agentID, tokenHash, expiresAt)
	if err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// GetRefreshToken resolves an unrevoked refresh token.
func (r *Repository) GetRefreshToken(ctx context.Context, tokenHash string) (uuid.UUID, time.Time, error) {
	var agentID uuid.UUID
	var expiresAt time.Time
	err := r.pool.QueryRow(ctx, `
		SELECT agent_id, expires_at FROM refresh_tokens
		WHERE token_hash = $1 AND revoked_at IS NULL`,
		tokenHash).Scan(&agentID, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, time.Time{}, apperr.NotFound("token not found")
	}
	if err != nil {
		return uuid.Nil, time.Time{}, fmt.Errorf("get refresh token: %w", err)
	}
	return agentID, expiresAt, nil
}

// RevokeRefreshToken invalidates one refresh token.
func (r *Repository) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = now()
		WHERE token_hash = $1 AND revoked_at IS NULL`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeAllRefreshTokens invalidates every refresh token of one agent.
func (r *Repository) RevokeAllRefreshTokens(ctx context.Context, agentID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = now()
		WHERE agent_id = $1 AND revoked_at IS NULL`, agentID)
	if err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return nil
}
