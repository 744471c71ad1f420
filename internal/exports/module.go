package exports

import (
	"net/http"
	"strconv"

	apphttp "efficity_backend/internal/http"
	"efficity_backend/platform/httpkit"
	"efficity_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Module wires the spreadsheet export feature.
type Module struct {
	Service *Service
}

// NewModule assembles the exports module. The storage client is passed in
// because its construction can fail and is owned by main.
func NewModule(pool *pgxpool.Pool, leads LeadSource, storage ObjectStore, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	return &Module{Service: NewService(repo, leads, storage, log)}
}

// Name returns the module name.
func (m *Module) Name() string { return "exports" }

// RegisterRoutes mounts the export endpoints.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	admin := ctx.Admin.Group("/exports")
	admin.POST("", m.handleSnapshot)
	admin.GET("", m.handleList)
	admin.GET("/:id/url", m.handleDownloadURL)
}

func (m *Module) handleSnapshot(c *gin.Context) {
	var requestedBy *uuid.UUID
	if identity := httpkit.GetIdentity(c); identity.IsAuthenticated() {
		agentID := identity.AgentID()
		requestedBy = &agentID
	}

	result, err := m.Service.Snapshot(c.Request.Context(), requestedBy)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

func (m *Module) handleList(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	exports, err := m.Service.List(c.Request.Context(), limit)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"exports": exports})
}

func (m *Module) handleDownloadURL(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "id must be a UUID", nil)
		return
	}

	url, err := m.Service.DownloadURL(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"downloadUrl": url})
}

var _ apphttp.Module = (*Module)(nil)
