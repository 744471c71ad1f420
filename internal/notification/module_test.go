package notification

import (
	"context"
	"testing"

	"efficity_backend/internal/events"
	leadrepo "efficity_backend/internal/leads/repository"
	"efficity_backend/platform/apperr"
	"efficity_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeLeadReader struct {
	leads map[uuid.UUID]leadrepo.Lead
}

func (f *fakeLeadReader) GetByID(_ context.Context, id uuid.UUID) (leadrepo.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return leadrepo.Lead{}, apperr.NotFound("lead not found")
	}
	return lead, nil
}

type sentAlert struct {
	to       string
	leadName string
	score    float64
	tier     string
}

type fakeSender struct {
	alerts []sentAlert
}

func (f *fakeSender) SendNurtureEmail(context.Context, string, string, string) error { return nil }

func (f *fakeSender) SendHotLeadAlert(_ context.Context, toEmail, _, leadName string, score float64, tier string) error {
	f.alerts = append(f.alerts, sentAlert{to: toEmail, leadName: leadName, score: score, tier: tier})
	return nil
}

func (f *fakeSender) SendPasswordResetEmail(context.Context, string, string) error { return nil }

func (f *fakeSender) SendCustomEmail(context.Context, string, string, string) error { return nil }

type fakeStopper struct {
	stopped []uuid.UUID
	erased  []uuid.UUID
}

func (f *fakeStopper) StopAllForLead(_ context.Context, leadID uuid.UUID) error {
	f.stopped = append(f.stopped, leadID)
	return nil
}

func (f *fakeStopper) EraseLead(_ context.Context, leadID uuid.UUID) error {
	f.erased = append(f.erased, leadID)
	return nil
}

type fakeCRMEraser struct {
	erased []uuid.UUID
}

func (f *fakeCRMEraser) EraseLead(_ context.Context, leadID uuid.UUID) error {
	f.erased = append(f.erased, leadID)
	return nil
}

type alertCfg struct {
	email string
}

func (c alertCfg) GetHotLeadAlertEmail() string   { return c.email }
func (c alertCfg) GetHotLeadAlertName() string    { return "Patrick" }
func (c alertCfg) GetHotLeadAlertTiers() []string { return []string{"Platinum", "Gold"} }

func newTestModule(reader *fakeLeadReader, email string) (*Module, *fakeSender, *fakeStopper, *fakeCRMEraser) {
	sender := &fakeSender{}
	stopper := &fakeStopper{}
	eraser := &fakeCRMEraser{}
	m := New(sender, reader, alertCfg{email: email}, logger.NewNop())
	m.SetSequenceStopper(stopper)
	m.SetCRMEraser(eraser)
	return m, sender, stopper, eraser
}

func namedLead(first, last string) leadrepo.Lead {
	return leadrepo.Lead{ID: uuid.New(), FirstName: &first, LastName: &last, Status: "new"}
}

func TestHotLeadAlertSentForTopTier(t *testing.T) {
	lead := namedLead("Claire", "Dubois")
	reader := &fakeLeadReader{leads: map[uuid.UUID]leadrepo.Lead{lead.ID: lead}}
	m, sender, _, _ := newTestModule(reader, "patrick@efficity.example")

	err := m.Handle(context.Background(), events.LeadScored{
		BaseEvent: events.NewBaseEvent(), LeadID: lead.ID, Score: 91.5, Tier: "Platinum",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(sender.alerts) != 1 {
		t.Fatalf("alerts = %d, want 1", len(sender.alerts))
	}
	alert := sender.alerts[0]
	if alert.to != "patrick@efficity.example" || alert.leadName != "Claire Dubois" || alert.tier != "Platinum" {
		t.Errorf("alert = %+v", alert)
	}
}

func TestNoAlertForLowerTiers(t *testing.T) {
	lead := namedLead("Jean", "Martin")
	reader := &fakeLeadReader{leads: map[uuid.UUID]leadrepo.Lead{lead.ID: lead}}
	m, sender, _, _ := newTestModule(reader, "patrick@efficity.example")

	err := m.Handle(context.Background(), events.LeadScored{
		BaseEvent: events.NewBaseEvent(), LeadID: lead.ID, Score: 45, Tier: "Silver",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(sender.alerts) != 0 {
		t.Errorf("alerts = %d, want 0", len(sender.alerts))
	}
}

func TestNoAlertWhenRecipientUnconfigured(t *testing.T) {
	lead := namedLead("Claire", "Dubois")
	reader := &fakeLeadReader{leads: map[uuid.UUID]leadrepo.Lead{lead.ID: lead}}
	m, sender, _, _ := newTestModule(reader, "")

	err := m.Handle(context.Background(), events.LeadScored{
		BaseEvent: events.NewBaseEvent(), LeadID: lead.ID, Score: 91.5, Tier: "Platinum",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(sender.alerts) != 0 {
		t.Errorf("alerts = %d, want 0", len(sender.alerts))
	}
}

func TestAlertSkipsVanishedLead(t *testing.T) {
	m, sender, _, _ := newTestModule(&fakeLeadReader{leads: map[uuid.UUID]leadrepo.Lead{}}, "patrick@efficity.example")

	err := m.Handle(context.Background(), events.LeadScored{
		BaseEvent: events.NewBaseEvent(), LeadID: uuid.New(), Score: 95, Tier: "Platinum",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(sender.alerts) != 0 {
		t.Errorf("alerts = %d, want 0", len(sender.alerts))
	}
}

func TestEmailConsentRevocationStopsSequences(t *testing.T) {
	m, _, stopper, _ := newTestModule(&fakeLeadReader{}, "")
	leadID := uuid.New()

	err := m.Handle(context.Background(), events.ConsentRevoked{
		BaseEvent: events.NewBaseEvent(), LeadID: leadID, Channel: "email",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(stopper.stopped) != 1 || stopper.stopped[0] != leadID {
		t.Errorf("stopped = %v", stopper.stopped)
	}
}

func TestPhoneConsentRevocationLeavesSequencesAlone(t *testing.T) {
	m, _, stopper, _ := newTestModule(&fakeLeadReader{}, "")

	err := m.Handle(context.Background(), events.ConsentRevoked{
		BaseEvent: events.NewBaseEvent(), LeadID: uuid.New(), Channel: "phone",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(stopper.stopped) != 0 {
		t.Errorf("stopped = %v", stopper.stopped)
	}
}

func TestErasureFansOutToSequencesAndCRM(t *testing.T) {
	m, _, stopper, eraser := newTestModule(&fakeLeadReader{}, "")
	leadID := uuid.New()

	err := m.Handle(context.Background(), events.LeadErased{
		BaseEvent: events.NewBaseEvent(), LeadID: leadID,
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(stopper.erased) != 1 || stopper.erased[0] != leadID {
		t.Errorf("sequence erasures = %v", stopper.erased)
	}
	if len(eraser.erased) != 1 || eraser.erased[0] != leadID {
		t.Errorf("crm erasures = %v", eraser.erased)
	}
}
