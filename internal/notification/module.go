// Package notification reacts to domain events: it alerts agents about hot
// leads and propagates consent withdrawals and erasures into the modules
// that hold per-lead state. Domain modules publish events and stay unaware
// of each other.
package notification

import (
	"context"

	"efficity_backend/internal/email"
	"efficity_backend/internal/events"
	leadrepo "efficity_backend/internal/leads/repository"
	"efficity_backend/platform/apperr"
	"efficity_backend/platform/config"
	"efficity_backend/platform/logger"

	"github.com/google/uuid"
)

// LeadReader resolves lead names for alert emails.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (leadrepo.Lead, error)
}

// SequenceStopper halts nurture delivery for a lead.
type SequenceStopper interface {
	StopAllForLead(ctx context.Context, leadID uuid.UUID) error
	EraseLead(ctx context.Context, leadID uuid.UUID) error
}

// CRMEraser drops the CRM sync state for an erased lead.
type CRMEraser interface {
	EraseLead(ctx context.Context, leadID uuid.UUID) error
}

// Module subscribes to domain events and fans them out.
type Module struct {
	sender    email.Sender
	leads     LeadReader
	sequences SequenceStopper
	crm       CRMEraser
	log       *logger.Logger

	alertEmail string
	alertName  string
	alertTiers map[string]bool
}

// New creates the notification module.
func New(sender email.Sender, leads LeadReader, cfg config.NotificationConfig, log *logger.Logger) *Module {
	tiers := make(map[string]bool, len(cfg.GetHotLeadAlertTiers()))
	for _, tier := range cfg.GetHotLeadAlertTiers() {
		tiers[tier] = true
	}

	return &Module{
		sender:     sender,
		leads:      leads,
		log:        log,
		alertEmail: cfg.GetHotLeadAlertEmail(),
		alertName:  cfg.GetHotLeadAlertName(),
		alertTiers: tiers,
	}
}

// SetSequenceStopper wires the sequences module. Optional; set from main.
func (m *Module) SetSequenceStopper(s SequenceStopper) { m.sequences = s }

// SetCRMEraser wires the CRM sync module. Optional; set from main.
func (m *Module) SetCRMEraser(c CRMEraser) { m.crm = c }

// RegisterHandlers subscribes to all relevant domain events on the event bus.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.LeadScored{}.EventName(), m)
	bus.Subscribe(events.ConsentRevoked{}.EventName(), m)
	bus.Subscribe(events.LeadErased{}.EventName(), m)
}

// Handle dispatches a single domain event.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadScored:
		return m.handleLeadScored(ctx, e)
	case events.ConsentRevoked:
		return m.handleConsentRevoked(ctx, e)
	case events.LeadErased:
		return m.handleLeadErased(ctx, e)
	default:
		return nil
	}
}

func (m *Module) handleLeadScored(ctx context.Context, e events.LeadScored) error {
	if m.alertEmail == "" || !m.alertTiers[e.Tier] {
		return nil
	}

	leadName := "un nouveau contact"
	if m.leads != nil {
		lead, err := m.leads.GetByID(ctx, e.LeadID)
		if err != nil {
			// Scoring can race with erasure; a vanished lead is not an error.
			if apperr.Is(err, apperr.KindNotFound) {
				return nil
			}
			return err
		}
		if name := lead.FullName(); name != "" {
			leadName = name
		}
	}

	if err := m.sender.SendHotLeadAlert(ctx, m.alertEmail, m.alertName, leadName, e.Score, e.Tier); err != nil {
		return err
	}
	m.log.Info("hot lead alert sent", "leadId", e.LeadID, "tier", e.Tier)
	return nil
}

func (m *Module) handleConsentRevoked(ctx context.Context, e events.ConsentRevoked) error {
	// Nurture sequences are email-only; phone consent does not affect them.
	if e.Channel != "email" || m.sequences == nil {
		return nil
	}
	if err := m.sequences.StopAllForLead(ctx, e.LeadID); err != nil {
		return err
	}
	m.log.Info("sequences stopped after consent revocation", "leadId", e.LeadID)
	return nil
}

func (m *Module) handleLeadErased(ctx context.Context, e events.LeadErased) error {
	if m.sequences != nil {
		if err := m.sequences.EraseLead(ctx, e.LeadID); err != nil {
			return err
		}
	}
	if m.crm != nil {
		if err := m.crm.EraseLead(ctx, e.LeadID); err != nil {
			return err
		}
	}
	return nil
}

var _ events.Handler = (*Module)(nil)
