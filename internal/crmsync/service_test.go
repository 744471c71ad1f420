package crmsync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	leadrepo "efficity_backend/internal/leads/repository"
	"efficity_backend/platform/apperr"
	"efficity_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	mu        sync.Mutex
	cursor    time.Time
	states    map[uuid.UUID]SyncState
	cursorErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{states: make(map[uuid.UUID]SyncState)}
}

func (f *fakeStore) GetCursor(context.Context) (time.Time, error) {
	if f.cursorErr != nil {
		return time.Time{}, f.cursorErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cursor, nil
}

func (f *fakeStore) SetCursor(_ context.Context, cursor time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cursor = cursor
	return nil
}

func (f *fakeStore) RecordSuccess(_ context.Context, leadID uuid.UUID, contactID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[leadID] = SyncState{LeadID: leadID, CRMContactID: &contactID, SyncedAt: &at}
	return nil
}

func (f *fakeStore) RecordFailure(_ context.Context, leadID uuid.UUID, cause string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	state := f.states[leadID]
	state.LeadID = leadID
	state.LastError = &cause
	f.states[leadID] = state
	return nil
}

func (f *fakeStore) GetState(_ context.Context, leadID uuid.UUID) (SyncState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, ok := f.states[leadID]
	if !ok {
		return SyncState{LeadID: leadID}, nil
	}
	return state, nil
}

func (f *fakeStore) DeleteState(_ context.Context, leadID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.states, leadID)
	return nil
}

type fakeLeadSource struct {
	leads  []leadrepo.Lead
	scores map[uuid.UUID]leadrepo.ScoreRecord
}

func (f *fakeLeadSource) ListUpdatedSince(_ context.Context, since time.Time, limit int) ([]leadrepo.Lead, error) {
	var out []leadrepo.Lead
	for _, l := range f.leads {
		if l.UpdatedAt.After(since) {
			out = append(out, l)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeLeadSource) LatestScore(_ context.Context, leadID uuid.UUID) (leadrepo.ScoreRecord, error) {
	record, ok := f.scores[leadID]
	if !ok {
		return leadrepo.ScoreRecord{}, apperr.NotFound("no score yet")
	}
	return record, nil
}

type fakePusher struct {
	mu      sync.Mutex
	pushed  []Contact
	failFor map[string]error
}

func (f *fakePusher) UpsertContact(_ context.Context, contact Contact) (string, error) {
	if err, ok := f.failFor[contact.ExternalRef]; ok {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushed = append(f.pushed, contact)
	return "crm-" + contact.ExternalRef, nil
}

type enabledCRM struct{ enabled bool }

func (c enabledCRM) GetCRMBaseURL() string  { return "http://crm.example" }
func (c enabledCRM) GetCRMAPIToken() string { return "t" }
func (c enabledCRM) IsCRMEnabled() bool     { return c.enabled }

func syncableLead(updatedAt time.Time) leadrepo.Lead {
	email := "claire@example.com"
	first := "Claire"
	return leadrepo.Lead{
		ID:        uuid.New(),
		FirstName: &first,
		Email:     &email,
		Status:    "engaged",
		UpdatedAt: updatedAt,
	}
}

func TestRunDisabledIsNoop(t *testing.T) {
	store := newFakeStore()
	pusher := &fakePusher{}
	svc := NewService(store, &fakeLeadSource{}, pusher, enabledCRM{enabled: false}, logger.NewNop())

	result, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Synced != 0 || len(pusher.pushed) != 0 {
		t.Errorf("disabled sync still pushed: %+v", result)
	}
}

func TestRunPushesUpdatedLeadsAndAdvancesCursor(t *testing.T) {
	now := time.Now().UTC()
	leadA := syncableLead(now.Add(-2 * time.Hour))
	leadB := syncableLead(now.Add(-1 * time.Hour))

	store := newFakeStore()
	source := &fakeLeadSource{leads: []leadrepo.Lead{leadA, leadB}}
	pusher := &fakePusher{}
	svc := NewService(store, source, pusher, enabledCRM{enabled: true}, logger.NewNop())

	result, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Synced != 2 {
		t.Fatalf("Synced = %d, want 2", result.Synced)
	}
	if !store.cursor.Equal(leadB.UpdatedAt) {
		t.Errorf("cursor = %v, want %v", store.cursor, leadB.UpdatedAt)
	}

	state, _ := store.GetState(context.Background(), leadA.ID)
	if state.CRMContactID == nil || *state.CRMContactID != "crm-"+leadA.ID.String() {
		t.Errorf("contact mapping not recorded: %+v", state)
	}
}

func TestRunIncludesLatestScore(t *testing.T) {
	now := time.Now().UTC()
	lead := syncableLead(now)

	store := newFakeStore()
	source := &fakeLeadSource{
		leads: []leadrepo.Lead{lead},
		scores: map[uuid.UUID]leadrepo.ScoreRecord{
			lead.ID: {LeadID: lead.ID, Score: 87.5, Tier: "Gold"},
		},
	}
	pusher := &fakePusher{}
	svc := NewService(store, source, pusher, enabledCRM{enabled: true}, logger.NewNop())

	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(pusher.pushed) != 1 {
		t.Fatalf("pushed %d contacts", len(pusher.pushed))
	}
	contact := pusher.pushed[0]
	if contact.Score == nil || *contact.Score != 87.5 || contact.Tier != "Gold" {
		t.Errorf("score not propagated: %+v", contact)
	}
}

func TestRunHoldsCursorOnFailure(t *testing.T) {
	now := time.Now().UTC()
	leadA := syncableLead(now.Add(-2 * time.Hour))
	leadB := syncableLead(now.Add(-1 * time.Hour))

	store := newFakeStore()
	source := &fakeLeadSource{leads: []leadrepo.Lead{leadA, leadB}}
	pusher := &fakePusher{failFor: map[string]error{leadA.ID.String(): errors.New("crm down")}}
	svc := NewService(store, source, pusher, enabledCRM{enabled: true}, logger.NewNop())

	result, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Failed != 1 || result.Synced != 1 {
		t.Fatalf("result = %+v", result)
	}

	// The cursor must stay behind the failed lead so the next run retries it.
	if store.cursor.After(leadA.UpdatedAt) || store.cursor.Equal(leadA.UpdatedAt) {
		t.Errorf("cursor advanced past failed lead: %v", store.cursor)
	}

	state, _ := store.GetState(context.Background(), leadA.ID)
	if state.LastError == nil {
		t.Error("failure not recorded")
	}
}

func TestRunSkipsUnreachableLeads(t *testing.T) {
	now := time.Now().UTC()
	lead := leadrepo.Lead{ID: uuid.New(), Status: "new", UpdatedAt: now}

	store := newFakeStore()
	source := &fakeLeadSource{leads: []leadrepo.Lead{lead}}
	pusher := &fakePusher{}
	svc := NewService(store, source, pusher, enabledCRM{enabled: true}, logger.NewNop())

	result, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Skipped != 1 || len(pusher.pushed) != 0 {
		t.Errorf("result = %+v, pushed = %d", result, len(pusher.pushed))
	}
	// Skipped leads still move the watermark; re-pushing them is pointless.
	if !store.cursor.Equal(lead.UpdatedAt) {
		t.Errorf("cursor = %v, want %v", store.cursor, lead.UpdatedAt)
	}
}

func TestEraseLeadRemovesState(t *testing.T) {
	store := newFakeStore()
	leadID := uuid.New()
	_ = store.RecordSuccess(context.Background(), leadID, "crm-1", time.Now().UTC())

	svc := NewService(store, &fakeLeadSource{}, &fakePusher{}, enabledCRM{enabled: true}, logger.NewNop())
	if err := svc.EraseLead(context.Background(), leadID); err != nil {
		t.Fatalf("EraseLead: %v", err)
	}
	state, _ := store.GetState(context.Background(), leadID)
	if state.CRMContactID != nil {
		t.Error("sync state survived erasure")
	}
}
