package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Lead is a prospective client record. Fields coming from free-form capture
// (webhook forms, CRM imports) are optional pointers; absent values resolve
// to documented defaults inside the scoring pipeline, never to errors.
type Lead struct {
	ID                 uuid.UUID
	FirstName          *string
	LastName           *string
	Email              *string
	Phone              *string
	City               *string
	PostalCode         *string
	Budget             *float64
	Notes              *string
	Source             *string
	Status             string
	AssignedAgentID    *uuid.UUID
	Tags               []string
	Age                *int
	EmailInteractions  int
	TotalInteractions  int
	ResponseTimeHours  *float64
	LastInteractionAt  *time.Time
	EmailConsent       bool
	PhoneConsent       bool
	QualificationScore *int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// FullName joins the name fields, trimming absent parts.
func (l Lead) FullName() string {
	first, last := "", ""
	if l.FirstName != nil {
		first = *l.FirstName
	}
	if l.LastName != nil {
		last = *l.LastName
	}
	switch {
	case first != "" && last != "":
		return first + " " + last
	case first != "":
		return first
	default:
		return last
	}
}

// ContactChannels counts the distinct channels the lead can be reached on.
func (l Lead) ContactChannels() int {
	n := 0
	if l.Email != nil && *l.Email != "" {
		n++
	}
	if l.Phone != nil && *l.Phone != "" {
		n++
	}
	return n
}

// ScoreRecord is one persisted scoring result. A lead accumulates a history
// of these; only the most recent one is authoritative for display.
type ScoreRecord struct {
	ID          uuid.UUID
	LeadID      uuid.UUID
	Score       float64
	Tier        string
	Timing      string
	Intent      string
	ResultJSON  []byte
	GeneratedAt time.Time
}

// ListFilter narrows List queries.
type ListFilter struct {
	Status   *string
	Source   *string
	City     *string
	MinScore *float64
	Search   *string
	Page     int
	PageSize int
}

// LeadsRepository is the persistence port for the leads module.
type LeadsRepository interface {
	Create(ctx context.Context, lead *Lead) error
	GetByID(ctx context.Context, id uuid.UUID) (Lead, error)
	GetByEmail(ctx context.Context, email string) (Lead, error)
	Update(ctx context.Context, lead *Lead) error
	List(ctx context.Context, filter ListFilter) ([]Lead, int, error)
	Delete(ctx context.Context, id uuid.UUID) error

	RecordInteraction(ctx context.Context, id uuid.UUID, channel string, at time.Time) error

	SaveScore(ctx context.Context, record *ScoreRecord) error
	LatestScore(ctx context.Context, leadID uuid.UUID) (ScoreRecord, error)
	ScoreHistory(ctx context.Context, leadID uuid.UUID, limit int) ([]ScoreRecord, error)
	DeleteScores(ctx context.Context, leadID uuid.UUID) error

	ListIDs(ctx context.Context) ([]uuid.UUID, error)
	ListLabeled(ctx context.Context, limit int) ([]Lead, error)
	ListUpdatedSince(ctx context.Context, since time.Time, limit int) ([]Lead, error)
}
