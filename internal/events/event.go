// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"efficity_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

// Re-export platform functions
var (
	NewBaseEvent   = events.NewBaseEvent
	NewInMemoryBus = events.NewInMemoryBus
)

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published when a new lead is created from any source
// (webhook form, manual entry, CRM import).
type LeadCreated struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
	Source string    `json:"source,omitempty"`
	Email  string    `json:"email,omitempty"`
}

func (e LeadCreated) EventName() string { return "leads.created" }

// LeadScored is published after a scoring run persists a new result.
type LeadScored struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
	Score  float64   `json:"score"`
	Tier   string    `json:"tier"`
}

func (e LeadScored) EventName() string { return "leads.scored" }

// LeadErased is published after a right-to-erasure request completes.
type LeadErased struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
}

func (e LeadErased) EventName() string { return "leads.erased" }

// =============================================================================
// Consent Domain Events
// =============================================================================

// ConsentRevoked is published when a lead withdraws consent for a channel.
type ConsentRevoked struct {
	BaseEvent
	LeadID  uuid.UUID `json:"leadId"`
	Channel string    `json:"channel"`
}

func (e ConsentRevoked) EventName() string { return "consent.revoked" }

// =============================================================================
// Sequence Domain Events
// =============================================================================

// SequenceStepSent is published after a nurture email for a sequence step
// is handed to the mailer.
type SequenceStepSent struct {
	BaseEvent
	EnrollmentID uuid.UUID `json:"enrollmentId"`
	LeadID       uuid.UUID `json:"leadId"`
	SequenceID   uuid.UUID `json:"sequenceId"`
	StepOrder    int       `json:"stepOrder"`
}

func (e SequenceStepSent) EventName() string { return "sequences.step.sent" }
