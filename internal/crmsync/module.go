package crmsync

import (
	"net/http"

	apphttp "efficity_backend/internal/http"
	"efficity_backend/platform/config"
	"efficity_backend/platform/httpkit"
	"efficity_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Module wires the CRM synchronization feature.
type Module struct {
	Service *Service
}

// NewModule assembles the crmsync module.
func NewModule(pool *pgxpool.Pool, leads LeadSource, cfg config.CRMConfig, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	client := NewClient(cfg.GetCRMBaseURL(), cfg.GetCRMAPIToken(), log)
	return &Module{
		Service: NewService(repo, leads, client, cfg, log),
	}
}

// Name returns the module name.
func (m *Module) Name() string { return "crmsync" }

// RegisterRoutes mounts the CRM sync endpoints.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	admin := ctx.Admin.Group("/crm")
	admin.POST("/sync", m.handleRun)
	admin.GET("/state/:leadId", m.handleState)
}

func (m *Module) handleRun(c *gin.Context) {
	result, err := m.Service.Run(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (m *Module) handleState(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "leadId must be a UUID", nil)
		return
	}
	state, err := m.Service.State(c.Request.Context(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{
		"leadId":       state.LeadID,
		"crmContactId": state.CRMContactID,
		"syncedAt":     state.SyncedAt,
		"lastError":    state.LastError,
	})
}

var _ apphttp.Module = (*Module)(nil)
