package consent

import (
	"context"
	"sync"
	"testing"
	"time"

	leadrepo "efficity_backend/internal/leads/repository"
	"efficity_backend/platform/apperr"
	platformevents "efficity_backend/platform/events"
	"efficity_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	mu         sync.Mutex
	records    []Record
	tombstones []Tombstone
}

func (f *fakeStore) AddRecord(_ context.Context, record *Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	record.ID = uuid.New()
	record.RecordedAt = time.Now().UTC()
	f.records = append(f.records, *record)
	return nil
}

func (f *fakeStore) History(_ context.Context, leadID uuid.UUID) ([]Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Record
	for _, r := range f.records {
		if r.LeadID == leadID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteRecords(_ context.Context, leadID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.records[:0]
	for _, r := range f.records {
		if r.LeadID != leadID {
			kept = append(kept, r)
		}
	}
	f.records = kept
	return nil
}

func (f *fakeStore) AddTombstone(_ context.Context, t *Tombstone) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t.ID = uuid.New()
	t.ErasedAt = time.Now().UTC()
	f.tombstones = append(f.tombstones, *t)
	return nil
}

func (f *fakeStore) CountTombstones(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tombstones), nil
}

type fakeLeadStore struct {
	mu            sync.Mutex
	leads         map[uuid.UUID]leadrepo.Lead
	scoresDeleted map[uuid.UUID]bool
}

func newFakeLeadStore() *fakeLeadStore {
	return &fakeLeadStore{
		leads:         make(map[uuid.UUID]leadrepo.Lead),
		scoresDeleted: make(map[uuid.UUID]bool),
	}
}

func (f *fakeLeadStore) GetByID(_ context.Context, id uuid.UUID) (leadrepo.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.leads[id]
	if !ok {
		return leadrepo.Lead{}, apperr.NotFound("lead not found")
	}
	return lead, nil
}

func (f *fakeLeadStore) Update(_ context.Context, lead *leadrepo.Lead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leads[lead.ID] = *lead
	return nil
}

func (f *fakeLeadStore) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.leads, id)
	return nil
}

func (f *fakeLeadStore) DeleteScores(_ context.Context, leadID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scoresDeleted[leadID] = true
	return nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []platformevents.Event
}

func (b *recordingBus) Publish(_ context.Context, e platformevents.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordingBus) PublishSync(ctx context.Context, e platformevents.Event) error {
	b.Publish(ctx, e)
	return nil
}

func (b *recordingBus) Subscribe(string, platformevents.Handler) {}

func (b *recordingBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.events))
	for i, e := range b.events {
		out[i] = e.EventName()
	}
	return out
}

func storedLead(email string) leadrepo.Lead {
	first := "Claire"
	return leadrepo.Lead{
		ID:           uuid.New(),
		FirstName:    &first,
		Email:        &email,
		Status:       "engaged",
		EmailConsent: true,
		PhoneConsent: true,
	}
}

func newTestService() (*Service, *fakeStore, *fakeLeadStore, *recordingBus) {
	store := &fakeStore{}
	leads := newFakeLeadStore()
	bus := &recordingBus{}
	return NewService(store, leads, bus, logger.NewNop()), store, leads, bus
}

func TestSetRevokeUpdatesFlagAndPublishes(t *testing.T) {
	svc, store, leads, bus := newTestService()
	lead := storedLead("claire@example.com")
	leads.leads[lead.ID] = lead

	if err := svc.Set(context.Background(), lead.ID, ChannelEmail, false, nil); err != nil {
		t.Fatalf("Set: %v", err)
	}

	updated, _ := leads.GetByID(context.Background(), lead.ID)
	if updated.EmailConsent {
		t.Error("EmailConsent still true after revocation")
	}
	if updated.PhoneConsent != true {
		t.Error("PhoneConsent should be untouched")
	}
	if len(store.records) != 1 || store.records[0].Granted {
		t.Errorf("records = %+v", store.records)
	}

	names := bus.names()
	if len(names) != 1 || names[0] != "consent.revoked" {
		t.Errorf("events = %v", names)
	}
}

func TestSetGrantDoesNotPublishRevocation(t *testing.T) {
	svc, _, leads, bus := newTestService()
	lead := storedLead("claire@example.com")
	lead.PhoneConsent = false
	leads.leads[lead.ID] = lead

	if err := svc.Set(context.Background(), lead.ID, ChannelPhone, true, nil); err != nil {
		t.Fatalf("Set: %v", err)
	}
	updated, _ := leads.GetByID(context.Background(), lead.ID)
	if !updated.PhoneConsent {
		t.Error("PhoneConsent not granted")
	}
	if len(bus.names()) != 0 {
		t.Errorf("grant published events: %v", bus.names())
	}
}

func TestSetRejectsUnknownChannel(t *testing.T) {
	svc, _, leads, _ := newTestService()
	lead := storedLead("claire@example.com")
	leads.leads[lead.ID] = lead

	if err := svc.Set(context.Background(), lead.ID, "pigeon", false, nil); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestSetUnknownLead(t *testing.T) {
	svc, _, _, _ := newTestService()
	if err := svc.Set(context.Background(), uuid.New(), ChannelEmail, false, nil); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestEraseDeletesEverythingAndLeavesTombstone(t *testing.T) {
	svc, store, leads, bus := newTestService()
	lead := storedLead("claire@example.com")
	leads.leads[lead.ID] = lead
	_ = store.AddRecord(context.Background(), &Record{LeadID: lead.ID, Channel: ChannelEmail, Granted: true})

	if err := svc.Erase(context.Background(), lead.ID); err != nil {
		t.Fatalf("Erase: %v", err)
	}

	if _, err := leads.GetByID(context.Background(), lead.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Error("lead still present after erasure")
	}
	if !leads.scoresDeleted[lead.ID] {
		t.Error("score history not deleted")
	}
	history, _ := store.History(context.Background(), lead.ID)
	if len(history) != 0 {
		t.Errorf("%d consent records left", len(history))
	}
	if len(store.tombstones) != 1 {
		t.Fatalf("tombstones = %d", len(store.tombstones))
	}
	if store.tombstones[0].EmailHash == nil || len(*store.tombstones[0].EmailHash) != 64 {
		t.Errorf("tombstone hash = %v", store.tombstones[0].EmailHash)
	}

	names := bus.names()
	if len(names) != 1 || names[0] != "leads.erased" {
		t.Errorf("events = %v", names)
	}

	count, _ := svc.ErasureCount(context.Background())
	if count != 1 {
		t.Errorf("ErasureCount = %d", count)
	}
}

func TestEraseLeadWithoutEmail(t *testing.T) {
	svc, store, leads, _ := newTestService()
	lead := storedLead("")
	lead.Email = nil
	leads.leads[lead.ID] = lead

	if err := svc.Erase(context.Background(), lead.ID); err != nil {
		t.Fatalf("Erase: %v", err)
	}
	if store.tombstones[0].EmailHash != nil {
		t.Error("tombstone should have no hash for an email-less lead")
	}
}
