package sequences

import (
	"context"
	"net/http"
	"time"

	"efficity_backend/platform/httpkit"
	"efficity_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles sequence HTTP requests.
type Handler struct {
	svc *Service
	val *validator.Validator
}

// NewHandler creates a new sequences handler.
func NewHandler(svc *Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// StepRequest is one step definition in a create request.
type StepRequest struct {
	OffsetHours int    `json:"offsetHours" validate:"gte=0,lte=8760"`
	TemplateKey string `json:"templateKey" validate:"required,max=100"`
}

// CreateSequenceRequest is the request body for creating a sequence.
type CreateSequenceRequest struct {
	Name        string        `json:"name" validate:"required,min=1,max=200"`
	Description *string       `json:"description,omitempty" validate:"omitempty,max=1000"`
	IsDefault   bool          `json:"isDefault"`
	Steps       []StepRequest `json:"steps" validate:"required,min=1,max=20,dive"`
}

// EnrollRequest is the request body for enrolling a lead.
type EnrollRequest struct {
	LeadID     uuid.UUID `json:"leadId" validate:"required"`
	SequenceID uuid.UUID `json:"sequenceId" validate:"required"`
}

// SequenceResponse is the API representation of a sequence.
type SequenceResponse struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Description *string        `json:"description,omitempty"`
	IsActive    bool           `json:"isActive"`
	IsDefault   bool           `json:"isDefault"`
	Steps       []StepResponse `json:"steps,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// StepResponse is the API representation of a step.
type StepResponse struct {
	StepOrder   int    `json:"stepOrder"`
	OffsetHours int    `json:"offsetHours"`
	TemplateKey string `json:"templateKey"`
}

// EnrollmentResponse is the API representation of an enrollment.
type EnrollmentResponse struct {
	ID          uuid.UUID  `json:"id"`
	LeadID      uuid.UUID  `json:"leadId"`
	SequenceID  uuid.UUID  `json:"sequenceId"`
	CurrentStep int        `json:"currentStep"`
	Status      string     `json:"status"`
	NextRunAt   *time.Time `json:"nextRunAt,omitempty"`
	EnrolledAt  time.Time  `json:"enrolledAt"`
}

// CreateSequence handles POST /api/v1/admin/sequences
func (h *Handler) CreateSequence(c *gin.Context) {
	var req CreateSequenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	steps := make([]Step, len(req.Steps))
	for i, s := range req.Steps {
		steps[i] = Step{OffsetHours: s.OffsetHours, TemplateKey: s.TemplateKey}
	}

	seq, err := h.svc.CreateSequence(c.Request.Context(), req.Name, req.Description, req.IsDefault, steps)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, toSequenceResponse(*seq))
}

// ListSequences handles GET /api/v1/sequences
func (h *Handler) ListSequences(c *gin.Context) {
	seqs, err := h.svc.ListSequences(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]SequenceResponse, 0, len(seqs))
	for _, seq := range seqs {
		out = append(out, toSequenceResponse(seq))
	}
	httpkit.OK(c, gin.H{"sequences": out})
}

// GetSequence handles GET /api/v1/sequences/:id
func (h *Handler) GetSequence(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "id must be a UUID", nil)
		return
	}

	seq, err := h.svc.GetSequence(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toSequenceResponse(*seq))
}

// Enroll handles POST /api/v1/sequences/enrollments
func (h *Handler) Enroll(c *gin.Context) {
	var req EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	enrollment, err := h.svc.Enroll(c.Request.Context(), req.LeadID, req.SequenceID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, toEnrollmentResponse(*enrollment))
}

// ListForLead handles GET /api/v1/sequences/enrollments?leadId=...
func (h *Handler) ListForLead(c *gin.Context) {
	leadID, err := uuid.Parse(c.Query("leadId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "leadId must be a UUID", nil)
		return
	}

	enrollments, err := h.svc.ListForLead(c.Request.Context(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]EnrollmentResponse, 0, len(enrollments))
	for _, e := range enrollments {
		out = append(out, toEnrollmentResponse(e))
	}
	httpkit.OK(c, gin.H{"enrollments": out})
}

// Pause handles POST /api/v1/sequences/enrollments/:id/pause
func (h *Handler) Pause(c *gin.Context) {
	h.withEnrollment(c, h.svc.Pause)
}

// Resume handles POST /api/v1/sequences/enrollments/:id/resume
func (h *Handler) Resume(c *gin.Context) {
	h.withEnrollment(c, h.svc.Resume)
}

// Stop handles POST /api/v1/sequences/enrollments/:id/stop
func (h *Handler) Stop(c *gin.Context) {
	h.withEnrollment(c, h.svc.Stop)
}

func (h *Handler) withEnrollment(c *gin.Context, fn func(ctx context.Context, id uuid.UUID) error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "id must be a UUID", nil)
		return
	}
	if httpkit.HandleError(c, fn(c.Request.Context(), id)) {
		return
	}
	c.Status(http.StatusNoContent)
}

func toSequenceResponse(seq Sequence) SequenceResponse {
	resp := SequenceResponse{
		ID:          seq.ID,
		Name:        seq.Name,
		Description: seq.Description,
		IsActive:    seq.IsActive,
		IsDefault:   seq.IsDefault,
		CreatedAt:   seq.CreatedAt,
	}
	for _, step := range seq.Steps {
		resp.Steps = append(resp.Steps, StepResponse{
			StepOrder:   step.StepOrder,
			OffsetHours: step.OffsetHours,
			TemplateKey: step.TemplateKey,
		})
	}
	return resp
}

func toEnrollmentResponse(e Enrollment) EnrollmentResponse {
	return EnrollmentResponse{
		ID:          e.ID,
		LeadID:      e.LeadID,
		SequenceID:  e.SequenceID,
		CurrentStep: e.CurrentStep,
		Status:      e.Status,
		NextRunAt:   e.NextRunAt,
		EnrolledAt:  e.EnrolledAt,
	}
}
