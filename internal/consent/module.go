package consent

import (
	"net/http"
	"time"

	apphttp "efficity_backend/internal/http"
	"efficity_backend/platform/events"
	"efficity_backend/platform/httpkit"
	"efficity_backend/platform/logger"
	"efficity_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Module wires the consent and erasure feature.
type Module struct {
	Service *Service
	val     *validator.Validator
}

// NewModule assembles the consent module.
func NewModule(pool *pgxpool.Pool, leads LeadStore, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	return &Module{Service: NewService(repo, leads, bus, log), val: val}
}

// Name returns the module name.
func (m *Module) Name() string { return "consent" }

// RegisterRoutes mounts the consent endpoints.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	grp := ctx.Protected.Group("/consent")
	grp.POST("/leads/:id", m.handleSet)
	grp.GET("/leads/:id", m.handleHistory)

	admin := ctx.Admin.Group("/privacy")
	admin.POST("/erasure/:id", m.handleErase)
	admin.GET("/erasures", m.handleErasureCount)
}

// SetConsentRequest is the request body for recording a consent decision.
type SetConsentRequest struct {
	Channel string  `json:"channel" validate:"required,oneof=email phone"`
	Granted bool    `json:"granted"`
	Source  *string `json:"source,omitempty" validate:"omitempty,max=200"`
}

type recordResponse struct {
	ID         uuid.UUID `json:"id"`
	LeadID     uuid.UUID `json:"leadId"`
	Channel    string    `json:"channel"`
	Granted    bool      `json:"granted"`
	Source     *string   `json:"source,omitempty"`
	RecordedAt time.Time `json:"recordedAt"`
}

func (m *Module) handleSet(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "id must be a UUID", nil)
		return
	}

	var req SetConsentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := m.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	if httpkit.HandleError(c, m.Service.Set(c.Request.Context(), leadID, req.Channel, req.Granted, req.Source)) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (m *Module) handleHistory(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "id must be a UUID", nil)
		return
	}

	records, err := m.Service.History(c.Request.Context(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]recordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, recordResponse{
			ID: r.ID, LeadID: r.LeadID, Channel: r.Channel,
			Granted: r.Granted, Source: r.Source, RecordedAt: r.RecordedAt,
		})
	}
	httpkit.OK(c, gin.H{"records": out})
}

func (m *Module) handleErase(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "id must be a UUID", nil)
		return
	}

	if httpkit.HandleError(c, m.Service.Erase(c.Request.Context(), leadID)) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (m *Module) handleErasureCount(c *gin.Context) {
	count, err := m.Service.ErasureCount(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"erasures": count})
}

var _ apphttp.Module = (*Module)(nil)
