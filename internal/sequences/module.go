package sequences

import (
	"context"

	"efficity_backend/internal/email"
	"efficity_backend/internal/events"
	apphttp "efficity_backend/internal/http"
	"efficity_backend/platform/logger"
	"efficity_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module wires the nurture sequence feature.
type Module struct {
	Service *Service
	handler *Handler
}

// NewModule assembles the sequences module.
func NewModule(pool *pgxpool.Pool, leads LeadReader, sender email.Sender, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	svc := NewService(repo, leads, sender, bus, log)
	return &Module{
		Service: svc,
		handler: NewHandler(svc, val),
	}
}

// Name returns the module name.
func (m *Module) Name() string { return "sequences" }

// RegisterRoutes mounts the sequence endpoints.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	grp := ctx.Protected.Group("/sequences")
	grp.GET("", m.handler.ListSequences)
	grp.GET("/:id", m.handler.GetSequence)
	grp.POST("/enrollments", m.handler.Enroll)
	grp.GET("/enrollments", m.handler.ListForLead)
	grp.POST("/enrollments/:id/pause", m.handler.Pause)
	grp.POST("/enrollments/:id/resume", m.handler.Resume)
	grp.POST("/enrollments/:id/stop", m.handler.Stop)

	admin := ctx.Admin.Group("/sequences")
	admin.POST("", m.handler.CreateSequence)
}

// RegisterHandlers subscribes default enrollment to lead creation: every new
// lead with email consent lands in the default nurture sequences.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.LeadCreated{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		created, ok := event.(events.LeadCreated)
		if !ok {
			return nil
		}
		_, err := m.Service.EnrollDefaults(ctx, created.LeadID)
		return err
	}))
}

var _ apphttp.Module = (*Module)(nil)
