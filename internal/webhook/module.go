package webhook

import (
	apphttp "efficity_backend/internal/http"
	"efficity_backend/platform/logger"
	"efficity_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the webhook bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	repo    *Repository
}

// NewModule creates and initializes the webhook module with all its dependencies.
func NewModule(pool *pgxpool.Pool, leadCreator LeadCreator, val *validator.Validator, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	svc := NewService(repo, leadCreator, log)
	h := NewHandler(svc, repo, val)

	return &Module{
		handler: h,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhook"
}

// RegisterRoutes mounts webhook routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Public capture endpoint (API key auth, no JWT)
	capture := ctx.V1.Group("/webhook")
	capture.Use(APIKeyAuthMiddleware(m.repo))
	capture.POST("/forms", m.handler.HandleFormSubmission)

	// Admin API key management (JWT auth + admin role)
	admin := ctx.Admin.Group("/webhook/keys")
	admin.POST("", m.handler.HandleCreateAPIKey)
	admin.GET("", m.handler.HandleListAPIKeys)
	admin.DELETE("/:keyId", m.handler.HandleRevokeAPIKey)
}

var _ apphttp.Module = (*Module)(nil)
