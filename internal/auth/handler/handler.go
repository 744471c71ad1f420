package handler

import (
	"net/http"

	"efficity_backend/internal/auth/repository"
	"efficity_backend/internal/auth/service"
	"efficity_backend/internal/auth/transport"
	"efficity_backend/platform/httpkit"
	"efficity_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles auth HTTP requests.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new auth handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts the public auth endpoints.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sign-in", h.SignIn)
	rg.POST("/refresh", h.Refresh)
	rg.POST("/sign-out", h.SignOut)
	rg.POST("/forgot-password", h.ForgotPassword)
	rg.POST("/reset-password", h.ResetPassword)
}

// SignIn handles POST /api/v1/auth/sign-in
func (h *Handler) SignIn(c *gin.Context) {
	var req transport.SignInRequest
	if !h.bind(c, &req) {
		return
	}

	pair, err := h.svc.SignIn(c.Request.Context(), req.Email, req.Password)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.AuthResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

// Refresh handles POST /api/v1/auth/refresh
func (h *Handler) Refresh(c *gin.Context) {
	var req transport.RefreshRequest
	if !h.bind(c, &req) {
		return
	}

	pair, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.AuthResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

// SignOut handles POST /api/v1/auth/sign-out
func (h *Handler) SignOut(c *gin.Context) {
	var req transport.SignOutRequest
	if !h.bind(c, &req) {
		return
	}
	if httpkit.HandleError(c, h.svc.SignOut(c.Request.Context(), req.RefreshToken)) {
		return
	}
	c.Status(http.StatusNoContent)
}

// ForgotPassword handles POST /api/v1/auth/forgot-password
func (h *Handler) ForgotPassword(c *gin.Context) {
	var req transport.ForgotPasswordRequest
	if !h.bind(c, &req) {
		return
	}
	if httpkit.HandleError(c, h.svc.ForgotPassword(c.Request.Context(), req.Email)) {
		return
	}
	// Always 204 so the endpoint cannot be used to probe for accounts.
	c.Status(http.StatusNoContent)
}

// ResetPassword handles POST /api/v1/auth/reset-password
func (h *Handler) ResetPassword(c *gin.Context) {
	var req transport.ResetPasswordRequest
	if !h.bind(c, &req) {
		return
	}
	if httpkit.HandleError(c, h.svc.ResetPassword(c.Request.Context(), req.Token, req.NewPassword)) {
		return
	}
	c.Status(http.StatusNoContent)
}

// GetMe handles GET /api/v1/agents/me
func (h *Handler) GetMe(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	agent, err := h.svc.Me(c.Request.Context(), identity.AgentID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toAgentResponse(agent))
}

// UpdateMe handles PATCH /api/v1/agents/me
func (h *Handler) UpdateMe(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.UpdateProfileRequest
	if !h.bind(c, &req) {
		return
	}

	agent, err := h.svc.UpdateMe(c.Request.Context(), identity.AgentID(), req.FirstName, req.LastName)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toAgentResponse(agent))
}

// ChangePassword handles POST /api/v1/agents/me/password
func (h *Handler) ChangePassword(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.ChangePasswordRequest
	if !h.bind(c, &req) {
		return
	}
	if httpkit.HandleError(c, h.svc.ChangePassword(c.Request.Context(), identity.AgentID(), req.CurrentPassword, req.NewPassword)) {
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateAgent handles POST /api/v1/admin/agents
func (h *Handler) CreateAgent(c *gin.Context) {
	var req transport.CreateAgentRequest
	if !h.bind(c, &req) {
		return
	}

	agent, err := h.svc.CreateAgent(c.Request.Context(), req.Email, req.Password, req.FirstName, req.LastName, req.Roles)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, toAgentResponse(agent))
}

// ListAgents handles GET /api/v1/admin/agents
func (h *Handler) ListAgents(c *gin.Context) {
	agents, err := h.svc.ListAgents(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]transport.AgentResponse, 0, len(agents))
	for _, agent := range agents {
		out = append(out, toAgentResponse(agent))
	}
	httpkit.OK(c, gin.H{"agents": out})
}

// SetRoles handles PUT /api/v1/admin/agents/:id/roles
func (h *Handler) SetRoles(c *gin.Context) {
	agentID, ok := h.parseID(c)
	if !ok {
		return
	}

	var req transport.SetRolesRequest
	if !h.bind(c, &req) {
		return
	}
	if httpkit.HandleError(c, h.svc.SetRoles(c.Request.Context(), agentID, req.Roles)) {
		return
	}
	c.Status(http.StatusNoContent)
}

// DeactivateAgent handles DELETE /api/v1/admin/agents/:id
func (h *Handler) DeactivateAgent(c *gin.Context) {
	agentID, ok := h.parseID(c)
	if !ok {
		return
	}
	if httpkit.HandleError(c, h.svc.Deactivate(c.Request.Context(), agentID)) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return false
	}
	return true
}

func (h *Handler) parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "id must be a UUID", nil)
		return uuid.Nil, false
	}
	return id, true
}

func toAgentResponse(agent repository.Agent) transport.AgentResponse {
	return transport.AgentResponse{
		ID:        agent.ID,
		Email:     agent.Email,
		FirstName: agent.FirstName,
		LastName:  agent.LastName,
		Roles:     agent.Roles,
		IsActive:  agent.IsActive,
		CreatedAt: agent.CreatedAt,
	}
}
