package transport

import (
	"time"

	"efficity_backend/internal/leads/scoring"

	"github.com/google/uuid"
)

// LeadStatus tracks a lead through the pipeline. Terminal statuses double as
// training labels for the scoring model.
type LeadStatus string

const (
	LeadStatusNew            LeadStatus = "new"
	LeadStatusContacted      LeadStatus = "contacted"
	LeadStatusEngaged        LeadStatus = "engaged"
	LeadStatusVisitScheduled LeadStatus = "visit_scheduled"
	LeadStatusCold           LeadStatus = "cold"
	LeadStatusWon            LeadStatus = "won"
	LeadStatusLost           LeadStatus = "lost"
)

// CreateLeadRequest is the request body for creating a lead.
type CreateLeadRequest struct {
	FirstName  string   `json:"firstName,omitempty" validate:"max=100"`
	LastName   string   `json:"lastName,omitempty" validate:"max=100"`
	Email      string   `json:"email,omitempty" validate:"omitempty,email"`
	Phone      string   `json:"phone,omitempty" validate:"max=30"`
	City       string   `json:"city,omitempty" validate:"max=100"`
	PostalCode string   `json:"postalCode,omitempty" validate:"max=10"`
	Budget     *float64 `json:"budget,omitempty" validate:"omitempty,gt=0"`
	Notes      string   `json:"notes,omitempty" validate:"max=5000"`
	Source     string   `json:"source,omitempty" validate:"max=100"`
	Age        *int     `json:"age,omitempty" validate:"omitempty,gte=18,lte=120"`
	Tags       []string `json:"tags,omitempty" validate:"max=20,dive,max=50"`
}

// UpdateLeadRequest is the request body for partially updating a lead.
// Nil fields are left untouched.
type UpdateLeadRequest struct {
	FirstName  *string     `json:"firstName,omitempty" validate:"omitempty,max=100"`
	LastName   *string     `json:"lastName,omitempty" validate:"omitempty,max=100"`
	Email      *string     `json:"email,omitempty" validate:"omitempty,email"`
	Phone      *string     `json:"phone,omitempty" validate:"omitempty,max=30"`
	City       *string     `json:"city,omitempty" validate:"omitempty,max=100"`
	PostalCode *string     `json:"postalCode,omitempty" validate:"omitempty,max=10"`
	Budget     *float64    `json:"budget,omitempty" validate:"omitempty,gt=0"`
	Notes      *string     `json:"notes,omitempty" validate:"omitempty,max=5000"`
	Source     *string     `json:"source,omitempty" validate:"omitempty,max=100"`
	Age        *int        `json:"age,omitempty" validate:"omitempty,gte=18,lte=120"`
	Status     *LeadStatus `json:"status,omitempty" validate:"omitempty,oneof=new contacted engaged visit_scheduled cold won lost"`
	Tags       *[]string   `json:"tags,omitempty" validate:"omitempty,max=20,dive,max=50"`
}

// ListLeadsRequest is the query string for listing leads.
type ListLeadsRequest struct {
	Status   *LeadStatus `form:"status" validate:"omitempty,oneof=new contacted engaged visit_scheduled cold won lost"`
	Source   *string     `form:"source"`
	City     *string     `form:"city"`
	MinScore *float64    `form:"minScore" validate:"omitempty,gte=0,lte=100"`
	Search   *string     `form:"search"`
	Page     int         `form:"page"`
	PageSize int         `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// RecordInteractionRequest logs one exchange with a lead.
type RecordInteractionRequest struct {
	Channel           string   `json:"channel" validate:"required,oneof=email phone sms visit other"`
	ResponseTimeHours *float64 `json:"responseTimeHours,omitempty" validate:"omitempty,gte=0"`
}

// BatchScoreRequest asks for scores on a set of leads.
type BatchScoreRequest struct {
	LeadIDs []uuid.UUID `json:"leadIds" validate:"required,min=1,max=500"`
}

// LeadResponse is the API representation of a lead.
type LeadResponse struct {
	ID                 uuid.UUID  `json:"id"`
	FirstName          *string    `json:"firstName,omitempty"`
	LastName           *string    `json:"lastName,omitempty"`
	Email              *string    `json:"email,omitempty"`
	Phone              *string    `json:"phone,omitempty"`
	City               *string    `json:"city,omitempty"`
	PostalCode         *string    `json:"postalCode,omitempty"`
	Budget             *float64   `json:"budget,omitempty"`
	Notes              *string    `json:"notes,omitempty"`
	Source             *string    `json:"source,omitempty"`
	Status             LeadStatus `json:"status"`
	Age                *int       `json:"age,omitempty"`
	Tags               []string   `json:"tags,omitempty"`
	AssignedAgentID    *uuid.UUID `json:"assignedAgentId,omitempty"`
	EmailInteractions  int        `json:"emailInteractions"`
	TotalInteractions  int        `json:"totalInteractions"`
	LastInteractionAt  *time.Time `json:"lastInteractionAt,omitempty"`
	EmailConsent       bool       `json:"emailConsent"`
	PhoneConsent       bool       `json:"phoneConsent"`
	QualificationScore *int       `json:"qualificationScore,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// ListLeadsResponse is a page of leads.
type ListLeadsResponse struct {
	Leads    []LeadResponse `json:"leads"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"pageSize"`
}

// ScoreHistoryResponse is the stored scoring history of one lead.
type ScoreHistoryResponse struct {
	LeadID  uuid.UUID        `json:"leadId"`
	Results []scoring.Result `json:"results"`
}

// BatchScoreResponse carries the results that could be computed. Requested
// IDs without a matching lead are omitted, not errored.
type BatchScoreResponse struct {
	Results   []scoring.Result `json:"results"`
	Requested int              `json:"requested"`
	Scored    int              `json:"scored"`
}
