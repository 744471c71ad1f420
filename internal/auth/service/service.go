package service

import (
	"context"
	"strings"
	"time"

	"efficity_backend/internal/auth/password"
	"efficity_backend/internal/auth/repository"
	"efficity_backend/internal/auth/token"
	"efficity_backend/internal/email"
	"efficity_backend/platform/apperr"
	"efficity_backend/platform/config"
	"efficity_backend/platform/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const accessTokenType = "access"

var knownRoles = map[string]struct{}{
	repository.RoleAgent: {},
	repository.RoleAdmin: {},
}

// TokenPair is what a successful sign-in yields.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Service implements agent authentication.
type Service struct {
	repo repository.AuthRepository
	cfg  config.AuthServiceConfig
	mail email.Sender
	log  *logger.Logger
}

// New creates the auth service.
func New(repo repository.AuthRepository, cfg config.AuthServiceConfig, mailer email.Sender, log *logger.Logger) *Service {
	return &Service{repo: repo, cfg: cfg, mail: mailer, log: log}
}

// CreateAgent registers a new agent. Admin-only.
func (s *Service) CreateAgent(ctx context.Context, agentEmail, plainPassword string, firstName, lastName *string, roles []string) (repository.Agent, error) {
	agentEmail = strings.ToLower(strings.TrimSpace(agentEmail))
	for _, role := range roles {
		if _, ok := knownRoles[role]; !ok {
			return repository.Agent{}, apperr.Validation("unknown role: " + role)
		}
	}

	if _, err := s.repo.GetAgentByEmail(ctx, agentEmail); err == nil {
		return repository.Agent{}, apperr.Conflict("an agent with this email already exists")
	}

	hash, err := password.Hash(plainPassword)
	if err != nil {
		return repository.Agent{}, err
	}

	agent := repository.Agent{
		Email:        agentEmail,
		PasswordHash: hash,
		FirstName:    firstName,
		LastName:     lastName,
		Roles:        roles,
	}
	if err := s.repo.CreateAgent(ctx, &agent); err != nil {
		return repository.Agent{}, err
	}

	s.log.AuthEvent("agent_created", agentEmail, true, "")
	return agent, nil
}

// SignIn checks credentials and issues a token pair.
func (s *Service) SignIn(ctx context.Context, agentEmail, plainPassword string) (TokenPair, error) {
	agent, err := s.repo.GetAgentByEmail(ctx, agentEmail)
	if err != nil {
		s.log.AuthEvent("sign_in", agentEmail, false, "unknown email")
		return TokenPair{}, apperr.Unauthorized("invalid credentials")
	}

	if err := password.Compare(agent.PasswordHash, plainPassword); err != nil {
		s.log.AuthEvent("sign_in", agentEmail, false, "wrong password")
		return TokenPair{}, apperr.Unauthorized("invalid credentials")
	}

	pair, err := s.issueTokens(ctx, agent)
	if err != nil {
		return TokenPair{}, err
	}
	s.log.AuthEvent("sign_in", agentEmail, true, "")
	return pair, nil
}

// Refresh rotates a refresh token into a fresh pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	hash := token.HashSHA256(refreshToken)
	agentID, expiresAt, err := s.repo.GetRefreshToken(ctx, hash)
	if err != nil {
		return TokenPair{}, apperr.Unauthorized("invalid refresh token")
	}
	if time.Now().After(expiresAt) {
		_ = s.repo.RevokeRefreshToken(ctx, hash)
		return TokenPair{}, apperr.Unauthorized("refresh token expired")
	}

	agent, err := s.repo.GetAgentByID(ctx, agentID)
	if err != nil || !agent.IsActive {
		_ = s.repo.RevokeRefreshToken(ctx, hash)
		return TokenPair{}, apperr.Unauthorized("invalid refresh token")
	}

	_ = s.repo.RevokeRefreshToken(ctx, hash)
	return s.issueTokens(ctx, agent)
}

// SignOut revokes one refresh token.
func (s *Service) SignOut(ctx context.Context, refreshToken string) error {
	return s.repo.RevokeRefreshToken(ctx, token.HashSHA256(refreshToken))
}

// ForgotPassword mails a reset link. Unknown addresses are ignored so the
// endpoint does not leak which emails exist.
func (s *Service) ForgotPassword(ctx context.Context, agentEmail string) error {
	agent, err := s.repo.GetAgentByEmail(ctx, agentEmail)
	if err != nil {
		return nil
	}

	resetToken, err := token.GenerateRandom(32)
	if err != nil {
		return err
	}
	hash := token.HashSHA256(resetToken)
	expiresAt := time.Now().Add(s.cfg.GetResetTokenTTL())
	if err := s.repo.CreateAgentToken(ctx, agent.ID, hash, repository.TokenTypePasswordReset, expiresAt); err != nil {
		return err
	}

	resetURL := strings.TrimRight(s.cfg.GetAppBaseURL(), "/") + "/reset-password?token=" + resetToken
	return s.mail.SendPasswordResetEmail(ctx, agent.Email, resetURL)
}

// ResetPassword consumes a reset token and sets the new password. All
// sessions of the agent are invalidated.
func (s *Service) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	hash := token.HashSHA256(rawToken)
	agentID, expiresAt, err := s.repo.GetAgentToken(ctx, hash, repository.TokenTypePasswordReset)
	if err != nil {
		return apperr.Unauthorized("invalid reset token")
	}
	if time.Now().After(expiresAt) {
		return apperr.Gone("reset token expired")
	}

	passwordHash, err := password.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, agentID, passwordHash); err != nil {
		return err
	}

	_ = s.repo.UseAgentToken(ctx, hash, repository.TokenTypePasswordReset)
	_ = s.repo.RevokeAllRefreshTokens(ctx, agentID)
	return nil
}

// ChangePassword updates the password of a signed-in agent.
func (s *Service) ChangePassword(ctx context.Context, agentID uuid.UUID, currentPassword, newPassword string) error {
	agent, err := s.repo.GetAgentByID(ctx, agentID)
	if err != nil {
		return err
	}
	if err := password.Compare(agent.PasswordHash, currentPassword); err != nil {
		return apperr.Unauthorized("current password is incorrect")
	}

	hash, err := password.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, agentID, hash); err != nil {
		return err
	}
	return s.repo.RevokeAllRefreshTokens(ctx, agentID)
}

// Me returns the signed-in agent's profile.
func (s *Service) Me(ctx context.Context, agentID uuid.UUID) (repository.Agent, error) {
	return s.repo.GetAgentByID(ctx, agentID)
}

// UpdateMe changes the agent's display names.
func (s *Service) UpdateMe(ctx context.Context, agentID uuid.UUID, firstName, lastName *string) (repository.Agent, error) {
	if err := s.repo.UpdateNames(ctx, agentID, firstName, lastName); err != nil {
		return repository.Agent{}, err
	}
	return s.repo.GetAgentByID(ctx, agentID)
}

// ListAgents returns all agents. Admin-only.
func (s *Service) ListAgents(ctx context.Context) ([]repository.Agent, error) {
	return s.repo.ListAgents(ctx)
}

// SetRoles replaces an agent's roles. Admin-only.
func (s *Service) SetRoles(ctx context.Context, agentID uuid.UUID, roles []string) error {
	if len(roles) == 0 {
		return apperr.Validation("an agent needs at least one role")
	}
	for _, role := range roles {
		if _, ok := knownRoles[role]; !ok {
			return apperr.Validation("unknown role: " + role)
		}
	}
	return s.repo.SetRoles(ctx, agentID, roles)
}

// Deactivate disables an agent and revokes its sessions. Admin-only.
func (s *Service) Deactivate(ctx context.Context, agentID uuid.UUID) error {
	if err := s.repo.Deactivate(ctx, agentID); err != nil {
		return err
	}
	return s.repo.RevokeAllRefreshTokens(ctx, agentID)
}

func (s *Service) issueTokens(ctx context.Context, agent repository.Agent) (TokenPair, error) {
	accessToken, err := s.signJWT(agent)
	if err != nil {
		return TokenPair{}, err
	}

	refreshToken, err := token.GenerateRandom(48)
	if err != nil {
		return TokenPair{}, err
	}
	hash := token.HashSHA256(refreshToken)
	expiresAt := time.Now().Add(s.cfg.GetRefreshTokenTTL())
	if err := s.repo.CreateRefreshToken(ctx, agent.ID, hash, expiresAt); err != nil {
		return TokenPair{}, err
	}

	return TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *Service) signJWT(agent repository.Agent) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   agent.ID.String(),
		"type":  accessTokenType,
		"roles": agent.Roles,
		"exp":   now.Add(s.cfg.GetAccessTokenTTL()).Unix(),
		"iat":   now.Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.GetJWTAccessSecret()))
}
