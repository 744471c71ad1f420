// Package auth provides agent authentication: sign-in, token refresh, and
// password recovery.
package auth

import (
	"efficity_backend/internal/auth/handler"
	"efficity_backend/internal/auth/repository"
	"efficity_backend/internal/auth/service"
	"efficity_backend/internal/email"
	apphttp "efficity_backend/internal/http"
	"efficity_backend/platform/config"
	"efficity_backend/platform/logger"
	"efficity_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the auth module implementing http.Module.
type Module struct {
	Service *service.Service
	handler *handler.Handler
}

// NewModule creates and initializes the auth module.
func NewModule(pool *pgxpool.Pool, cfg config.AuthServiceConfig, mailer email.Sender, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, cfg, mailer, log)
	return &Module{
		Service: svc,
		handler: handler.New(svc, val),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "auth" }

// RegisterRoutes mounts auth routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Public auth routes with stricter rate limiting
	authGroup := ctx.V1.Group("/auth")
	authGroup.Use(ctx.AuthRateLimiter.RateLimit())
	m.handler.RegisterRoutes(authGroup)

	// Signed-in agent routes
	ctx.Protected.GET("/agents/me", m.handler.GetMe)
	ctx.Protected.PATCH("/agents/me", m.handler.UpdateMe)
	ctx.Protected.POST("/agents/me/password", m.handler.ChangePassword)

	// Admin routes
	ctx.Admin.POST("/agents", m.handler.CreateAgent)
	ctx.Admin.GET("/agents", m.handler.ListAgents)
	ctx.Admin.PUT("/agents/:id/roles", m.handler.SetRoles)
	ctx.Admin.DELETE("/agents/:id", m.handler.DeactivateAgent)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
