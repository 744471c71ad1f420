package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AuthRepository is the persistence port for the auth module.
type AuthRepository interface {
	CreateAgent(ctx context.Context, agent *Agent) error
	GetAgentByEmail(ctx context.Context, email string) (Agent, error)
	GetAgentByID(ctx context.Context, id uuid.UUID) (Agent, error)
	UpdateNames(ctx context.Context, id uuid.UUID, firstName, lastName *string) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	SetRoles(ctx context.Context, id uuid.UUID, roles []string) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	ListAgents(ctx context.Context) ([]Agent, error)

	CreateAgentToken(ctx context.Context, agentID uuid.UUID, tokenHash, tokenType string, expiresAt time.Time) error
	GetAgentToken(ctx context.Context, tokenHash, tokenType string) (uuid.UUID, time.Time, error)
	UseAgentToken(ctx context.Context, tokenHash, tokenType string) error

	CreateRefreshToken(ctx context.Context, agentID uuid.UUID, tokenHash string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, tokenHash string) (uuid.UUID, time.Time, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllRefreshTokens(ctx context.Context, agentID uuid.UUID) error
}

// Ensure Repository implements AuthRepository
var _ AuthRepository = (*Repository)(nil)
