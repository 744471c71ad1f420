// Package leads provides the leads domain module: lifecycle, interaction
// tracking and the scoring pipeline.
package leads

import (
	"context"

	"efficity_backend/internal/events"
	apphttp "efficity_backend/internal/http"
	"efficity_backend/internal/leads/handler"
	"efficity_backend/internal/leads/repository"
	"efficity_backend/internal/leads/scoring"
	"efficity_backend/internal/leads/service"
	"efficity_backend/platform/config"
	"efficity_backend/platform/logger"
	"efficity_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the leads domain module.
type Module struct {
	handler *handler.Handler

	// Service is exported for the scheduler and other modules that trigger
	// scoring outside the HTTP surface.
	Service *service.Service
}

// NewModule creates the leads module with all dependencies wired.
func NewModule(pool *pgxpool.Pool, bus events.Bus, cfg config.ScoringConfig, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	scorer := scoring.New(repo, bus, cfg, log)
	svc := service.New(repo, scorer, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		Service: svc,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "leads"
}

// RegisterRoutes mounts the lead routes under /api/v1/leads, with the
// scoring admin operations under /api/v1/admin/leads.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/leads"))
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/leads"))
}

// RegisterHandlers subscribes the scoring pipeline to lead creation, so
// every new lead gets an initial score regardless of which surface
// created it.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.LeadCreated{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		created, ok := event.(events.LeadCreated)
		if !ok {
			return nil
		}
		_, err := m.Service.Score(ctx, created.LeadID)
		return err
	}))
}

var _ apphttp.Module = (*Module)(nil)
