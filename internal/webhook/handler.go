package webhook

import (
	"net/http"

	"efficity_backend/platform/httpkit"
	"efficity_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles webhook HTTP requests.
type Handler struct {
	svc  *Service
	repo *Repository
	val  *validator.Validator
}

// NewHandler creates a new webhook handler.
func NewHandler(svc *Service, repo *Repository, val *validator.Validator) *Handler {
	return &Handler{svc: svc, repo: repo, val: val}
}

// HandleFormSubmission handles POST /api/v1/webhook/forms.
// The body is an arbitrary flat JSON object of form fields.
func (h *Handler) HandleFormSubmission(c *gin.Context) {
	var formData map[string]string
	if err := c.ShouldBindJSON(&formData); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "form data must be a flat JSON object of strings", nil)
		return
	}
	if len(formData) == 0 {
		httpkit.Error(c, http.StatusBadRequest, "form data is empty", nil)
		return
	}

	keyID, _ := c.Get(ctxKeyID)
	id, _ := keyID.(uuid.UUID)

	origin := c.GetString(ctxSourceOrigin)
	if origin == "" {
		origin = c.GetHeader("Origin")
	}

	result, err := h.svc.ProcessSubmission(c.Request.Context(), id, origin, formData)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// CreateAPIKeyRequest is the admin request to mint a new capture key.
type CreateAPIKeyRequest struct {
	Name           string   `json:"name" validate:"required,min=1,max=100"`
	AllowedDomains []string `json:"allowedDomains,omitempty" validate:"max=20,dive,max=255"`
}

// APIKeyResponse describes a key without its secret.
type APIKeyResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	KeyPrefix      string    `json:"keyPrefix"`
	AllowedDomains []string  `json:"allowedDomains,omitempty"`
	IsActive       bool      `json:"isActive"`
}

// HandleCreateAPIKey handles POST /api/v1/admin/webhook/keys.
// The plaintext key appears once in this response and is never retrievable
// again.
func (h *Handler) HandleCreateAPIKey(c *gin.Context) {
	var req CreateAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	plaintext, hash, prefix, err := GenerateAPIKey()
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "key generation failed", nil)
		return
	}

	key, err := h.repo.Create(c.Request.Context(), req.Name, hash, prefix, req.AllowedDomains)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, gin.H{
		"key": APIKeyResponse{
			ID:             key.ID,
			Name:           key.Name,
			KeyPrefix:      key.KeyPrefix,
			AllowedDomains: key.AllowedDomains,
			IsActive:       key.IsActive,
		},
		"plaintextKey": plaintext,
	})
}

// HandleListAPIKeys handles GET /api/v1/admin/webhook/keys.
func (h *Handler) HandleListAPIKeys(c *gin.Context) {
	keys, err := h.repo.List(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]APIKeyResponse, 0, len(keys))
	for _, key := range keys {
		out = append(out, APIKeyResponse{
			ID:             key.ID,
			Name:           key.Name,
			KeyPrefix:      key.KeyPrefix,
			AllowedDomains: key.AllowedDomains,
			IsActive:       key.IsActive,
		})
	}
	httpkit.OK(c, gin.H{"keys": out})
}

// HandleRevokeAPIKey handles DELETE /api/v1/admin/webhook/keys/:keyId.
func (h *Handler) HandleRevokeAPIKey(c *gin.Context) {
	keyID, err := uuid.Parse(c.Param("keyId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "keyId must be a UUID", nil)
		return
	}

	if err := h.repo.Revoke(c.Request.Context(), keyID); err != nil {
		if err == ErrAPIKeyNotFound {
			httpkit.Error(c, http.StatusNotFound, "API key not found", nil)
			return
		}
		httpkit.Error(c, http.StatusInternalServerError, "revoke failed", nil)
		return
	}
	c.Status(http.StatusNoContent)
}
