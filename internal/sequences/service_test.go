package sequences

import (
	"context"
	"errors"
	"strings"
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
	mu          sync.Mutex
	sequences   map[uuid.UUID]Sequence
	enrollments map[uuid.UUID]Enrollment
	claimErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sequences:   make(map[uuid.UUID]Sequence),
		enrollments: make(map[uuid.UUID]Enrollment),
	}
}

func (f *fakeStore) CreateSequence(_ context.Context, seq *Sequence) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	seq.ID = uuid.New()
	seq.IsActive = true
	seq.CreatedAt = time.Now().UTC()
	for i := range seq.Steps {
		seq.Steps[i].ID = uuid.New()
		seq.Steps[i].SequenceID = seq.ID
	}
	f.sequences[seq.ID] = *seq
	return nil
}

func (f *fakeStore) GetSequence(_ context.Context, id uuid.UUID) (Sequence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seq, ok := f.sequences[id]
	if !ok {
		return Sequence{}, apperr.NotFound("sequence not found")
	}
	return seq, nil
}

func (f *fakeStore) ListSequences(_ context.Context) ([]Sequence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Sequence, 0, len(f.sequences))
	for _, seq := range f.sequences {
		out = append(out, seq)
	}
	return out, nil
}

func (f *fakeStore) ListDefaultSequences(_ context.Context) ([]Sequence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Sequence
	for _, seq := range f.sequences {
		if seq.IsDefault && seq.IsActive {
			out = append(out, seq)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateEnrollment(_ context.Context, e *Enrollment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.enrollments {
		if existing.LeadID == e.LeadID && existing.SequenceID == e.SequenceID {
			*e = existing
			return nil
		}
	}
	e.ID = uuid.New()
	e.EnrolledAt = time.Now().UTC()
	e.UpdatedAt = e.EnrolledAt
	f.enrollments[e.ID] = *e
	return nil
}

func (f *fakeStore) GetEnrollment(_ context.Context, id uuid.UUID) (Enrollment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.enrollments[id]
	if !ok {
		return Enrollment{}, apperr.NotFound("enrollment not found")
	}
	return e, nil
}

func (f *fakeStore) UpdateEnrollmentStatus(_ context.Context, id uuid.UUID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.enrollments[id]
	if !ok {
		return apperr.NotFound("enrollment not found")
	}
	e.Status = status
	f.enrollments[id] = e
	return nil
}

func (f *fakeStore) AdvanceEnrollment(_ context.Context, id uuid.UUID, step int, nextRunAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.enrollments[id]
	if !ok {
		return apperr.NotFound("enrollment not found")
	}
	e.CurrentStep = step
	e.NextRunAt = nextRunAt
	if nextRunAt == nil {
		e.Status = StatusCompleted
	}
	f.enrollments[id] = e
	return nil
}

func (f *fakeStore) ClaimDue(_ context.Context, now time.Time, limit int) ([]Enrollment, error) {
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Enrollment
	for id, e := range f.enrollments {
		if len(out) >= limit {
			break
		}
		if e.Status != StatusActive || e.NextRunAt == nil || e.NextRunAt.After(now) {
			continue
		}
		claimed := now.Add(10 * time.Minute)
		e.NextRunAt = &claimed
		f.enrollments[id] = e
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeStore) StopAllForLead(_ context.Context, leadID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stopped := 0
	for id, e := range f.enrollments {
		if e.LeadID != leadID {
			continue
		}
		if e.Status == StatusActive || e.Status == StatusPaused {
			e.Status = StatusStopped
			f.enrollments[id] = e
			stopped++
		}
	}
	return stopped, nil
}

func (f *fakeStore) DeleteAllForLead(_ context.Context, leadID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, e := range f.enrollments {
		if e.LeadID == leadID {
			delete(f.enrollments, id)
		}
	}
	return nil
}

func (f *fakeStore) ListEnrollmentsForLead(_ context.Context, leadID uuid.UUID) ([]Enrollment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Enrollment
	for _, e := range f.enrollments {
		if e.LeadID == leadID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeLeadReader struct {
	mu    sync.Mutex
	leads map[uuid.UUID]leadrepo.Lead
}

func newFakeLeadReader() *fakeLeadReader {
	return &fakeLeadReader{leads: make(map[uuid.UUID]leadrepo.Lead)}
}

func (f *fakeLeadReader) GetByID(_ context.Context, id uuid.UUID) (leadrepo.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.leads[id]
	if !ok {
		return leadrepo.Lead{}, apperr.NotFound("lead not found")
	}
	return lead, nil
}

func (f *fakeLeadReader) put(lead leadrepo.Lead) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leads[lead.ID] = lead
}

type fakeSender struct {
	mu      sync.Mutex
	sent    []sentMail
	sendErr error
}

type sentMail struct {
	to      string
	subject string
}

func (f *fakeSender) SendNurtureEmail(_ context.Context, to, subject, _ string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{to: to, subject: subject})
	return nil
}

func (f *fakeSender) SendHotLeadAlert(context.Context, string, string, string, float64, string) error {
	return nil
}

func (f *fakeSender) SendPasswordResetEmail(context.Context, string, string) error { return nil }

func (f *fakeSender) SendCustomEmail(context.Context, string, string, string) error { return nil }

type recordingBus struct {
	mu     sync.Mutex
	topics []string
}

func (b *recordingBus) Publish(_ context.Context, e platformevents.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.topics = append(b.topics, e.EventName())
}

func (b *recordingBus) PublishSync(ctx context.Context, e platformevents.Event) error {
	b.Publish(ctx, e)
	return nil
}

func (b *recordingBus) Subscribe(string, platformevents.Handler) {}

func consentedLead(id uuid.UUID, addr string) leadrepo.Lead {
	first := "Claire"
	last := "Dubois"
	city := "Lyon"
	return leadrepo.Lead{
		ID:           id,
		FirstName:    &first,
		LastName:     &last,
		Email:        &addr,
		City:         &city,
		EmailConsent: true,
	}
}

func newTestEnv(t *testing.T) (*Service, *fakeStore, *fakeLeadReader, *fakeSender, *recordingBus) {
	t.Helper()
	store := newFakeStore()
	leads := newFakeLeadReader()
	sender := &fakeSender{}
	bus := &recordingBus{}
	svc := NewService(store, leads, sender, bus, logger.NewNop())
	return svc, store, leads, sender, bus
}

func mustCreateSequence(t *testing.T, svc *Service, steps []Step) *Sequence {
	t.Helper()
	seq, err := svc.CreateSequence(context.Background(), "Relance acheteurs", nil, false, steps)
	if err != nil {
		t.Fatalf("CreateSequence: %v", err)
	}
	return seq
}

func mustCreateDefaultSequence(t *testing.T, svc *Service, steps []Step) *Sequence {
	t.Helper()
	seq, err := svc.CreateSequence(context.Background(), "Bienvenue", nil, true, steps)
	if err != nil {
		t.Fatalf("CreateSequence: %v", err)
	}
	return seq
}

func defaultSteps() []Step {
	return []Step{
		{OffsetHours: 0, TemplateKey: "nurture_intro"},
		{OffsetHours: 72, TemplateKey: "nurture_selection"},
		{OffsetHours: 240, TemplateKey: "nurture_checkin"},
	}
}

func TestCreateSequenceRejectsUnknownTemplate(t *testing.T) {
	svc, _, _, _, _ := newTestEnv(t)

	_, err := svc.CreateSequence(context.Background(), "Bad", nil, false, []Step{
		{OffsetHours: 0, TemplateKey: "does_not_exist"},
	})
	if err == nil {
		t.Fatal("expected error for unknown template key")
	}
	if !strings.Contains(err.Error(), "does_not_exist") {
		t.Errorf("error should name the bad key, got %q", err.Error())
	}
}

func TestCreateSequenceRejectsEmptySteps(t *testing.T) {
	svc, _, _, _, _ := newTestEnv(t)

	if _, err := svc.CreateSequence(context.Background(), "Empty", nil, false, nil); err == nil {
		t.Fatal("expected error for empty step list")
	}
}

func TestCreateSequenceAssignsStepOrder(t *testing.T) {
	svc, _, _, _, _ := newTestEnv(t)

	seq := mustCreateSequence(t, svc, defaultSteps())
	for i, step := range seq.Steps {
		if step.StepOrder != i {
			t.Errorf("step %d: StepOrder = %d", i, step.StepOrder)
		}
	}
}

func TestEnrollDefaultsUsesOnlyDefaultSequences(t *testing.T) {
	svc, store, leads, _, _ := newTestEnv(t)
	def := mustCreateDefaultSequence(t, svc, defaultSteps())
	mustCreateSequence(t, svc, defaultSteps())

	leadID := uuid.New()
	leads.put(consentedLead(leadID, "claire@example.com"))

	enrolled, err := svc.EnrollDefaults(context.Background(), leadID)
	if err != nil {
		t.Fatalf("EnrollDefaults: %v", err)
	}
	if enrolled != 1 {
		t.Fatalf("enrolled = %d, want 1", enrolled)
	}
	enrollments, _ := store.ListEnrollmentsForLead(context.Background(), leadID)
	if len(enrollments) != 1 || enrollments[0].SequenceID != def.ID {
		t.Errorf("enrollments = %+v, want one in %s", enrollments, def.ID)
	}
}

func TestEnrollDefaultsSkipsLeadWithoutConsent(t *testing.T) {
	svc, store, leads, _, _ := newTestEnv(t)
	mustCreateDefaultSequence(t, svc, defaultSteps())

	leadID := uuid.New()
	lead := consentedLead(leadID, "claire@example.com")
	lead.EmailConsent = false
	leads.put(lead)

	enrolled, err := svc.EnrollDefaults(context.Background(), leadID)
	if err != nil {
		t.Fatalf("EnrollDefaults should not fail on missing consent: %v", err)
	}
	if enrolled != 0 {
		t.Errorf("enrolled = %d, want 0", enrolled)
	}
	if enrollments, _ := store.ListEnrollmentsForLead(context.Background(), leadID); len(enrollments) != 0 {
		t.Errorf("lead without consent was enrolled")
	}
}

func TestEnrollRequiresConsent(t *testing.T) {
	svc, _, leads, _, _ := newTestEnv(t)
	seq := mustCreateSequence(t, svc, defaultSteps())

	leadID := uuid.New()
	lead := consentedLead(leadID, "claire@example.com")
	lead.EmailConsent = false
	leads.put(lead)

	_, err := svc.Enroll(context.Background(), leadID, seq.ID)
	if err == nil {
		t.Fatal("expected consent error")
	}
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.HTTPStatus() != 403 {
		t.Errorf("expected forbidden, got %v", err)
	}
}

func TestEnrollRequiresEmail(t *testing.T) {
	svc, _, leads, _, _ := newTestEnv(t)
	seq := mustCreateSequence(t, svc, defaultSteps())

	leadID := uuid.New()
	lead := consentedLead(leadID, "")
	lead.Email = nil
	leads.put(lead)

	if _, err := svc.Enroll(context.Background(), leadID, seq.ID); err == nil {
		t.Fatal("expected error for lead without email")
	}
}

func TestEnrollIsIdempotent(t *testing.T) {
	svc, _, leads, _, _ := newTestEnv(t)
	seq := mustCreateSequence(t, svc, defaultSteps())

	leadID := uuid.New()
	leads.put(consentedLead(leadID, "claire@example.com"))

	first, err := svc.Enroll(context.Background(), leadID, seq.ID)
	if err != nil {
		t.Fatalf("first enroll: %v", err)
	}
	second, err := svc.Enroll(context.Background(), leadID, seq.ID)
	if err != nil {
		t.Fatalf("second enroll: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("re-enrollment created a new enrollment: %s vs %s", first.ID, second.ID)
	}
}

func TestEnrollSchedulesFirstStep(t *testing.T) {
	svc, _, leads, _, _ := newTestEnv(t)
	seq := mustCreateSequence(t, svc, []Step{
		{OffsetHours: 24, TemplateKey: "nurture_intro"},
	})

	leadID := uuid.New()
	leads.put(consentedLead(leadID, "claire@example.com"))

	before := time.Now().UTC()
	enrollment, err := svc.Enroll(context.Background(), leadID, seq.ID)
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if enrollment.NextRunAt == nil {
		t.Fatal("NextRunAt not set")
	}
	want := before.Add(24 * time.Hour)
	if enrollment.NextRunAt.Before(want.Add(-time.Minute)) || enrollment.NextRunAt.After(want.Add(time.Minute)) {
		t.Errorf("NextRunAt = %v, want ~%v", enrollment.NextRunAt, want)
	}
	if enrollment.Status != StatusActive {
		t.Errorf("Status = %q", enrollment.Status)
	}
}

func TestPauseResumeTransitions(t *testing.T) {
	svc, store, leads, _, _ := newTestEnv(t)
	seq := mustCreateSequence(t, svc, defaultSteps())

	leadID := uuid.New()
	leads.put(consentedLead(leadID, "claire@example.com"))
	enrollment, err := svc.Enroll(context.Background(), leadID, seq.ID)
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	if err := svc.Pause(context.Background(), enrollment.ID); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	// Pausing twice conflicts.
	if err := svc.Pause(context.Background(), enrollment.ID); err == nil {
		t.Error("expected conflict on double pause")
	}
	if err := svc.Resume(context.Background(), enrollment.ID); err != nil {
		t.Fatalf("Resume: %v", err)
	}

	e, _ := store.GetEnrollment(context.Background(), enrollment.ID)
	if e.Status != StatusActive {
		t.Errorf("Status after resume = %q", e.Status)
	}
}

func TestStopIsTerminalAndIdempotent(t *testing.T) {
	svc, store, leads, _, _ := newTestEnv(t)
	seq := mustCreateSequence(t, svc, defaultSteps())

	leadID := uuid.New()
	leads.put(consentedLead(leadID, "claire@example.com"))
	enrollment, err := svc.Enroll(context.Background(), leadID, seq.ID)
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	if err := svc.Stop(context.Background(), enrollment.ID); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := svc.Stop(context.Background(), enrollment.ID); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	if err := svc.Resume(context.Background(), enrollment.ID); err == nil {
		t.Error("resume of a stopped enrollment should fail")
	}

	e, _ := store.GetEnrollment(context.Background(), enrollment.ID)
	if e.Status != StatusStopped {
		t.Errorf("Status = %q", e.Status)
	}
}

func TestProcessDueSendsAndAdvances(t *testing.T) {
	svc, store, leads, sender, bus := newTestEnv(t)
	seq := mustCreateSequence(t, svc, defaultSteps())

	leadID := uuid.New()
	leads.put(consentedLead(leadID, "claire@example.com"))
	enrollment, err := svc.Enroll(context.Background(), leadID, seq.ID)
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	sent, err := svc.ProcessDue(context.Background(), time.Now().UTC().Add(time.Minute))
	if err != nil {
		t.Fatalf("ProcessDue: %v", err)
	}
	if sent != 1 {
		t.Fatalf("sent = %d, want 1", sent)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sender recorded %d mails", len(sender.sent))
	}
	if sender.sent[0].to != "claire@example.com" {
		t.Errorf("mail to %q", sender.sent[0].to)
	}
	if sender.sent[0].subject == "" {
		t.Error("empty subject")
	}

	e, _ := store.GetEnrollment(context.Background(), enrollment.ID)
	if e.CurrentStep != 1 {
		t.Errorf("CurrentStep = %d, want 1", e.CurrentStep)
	}
	if e.NextRunAt == nil {
		t.Fatal("NextRunAt cleared after advance")
	}

	found := false
	for _, name := range bus.topics {
		if name == "sequences.step.sent" {
			found = true
		}
	}
	if !found {
		t.Errorf("no sequences.step.sent event published, got %v", bus.topics)
	}
}

func TestProcessDueStopsOnRevokedConsent(t *testing.T) {
	svc, store, leads, sender, _ := newTestEnv(t)
	seq := mustCreateSequence(t, svc, defaultSteps())

	leadID := uuid.New()
	leads.put(consentedLead(leadID, "claire@example.com"))
	enrollment, err := svc.Enroll(context.Background(), leadID, seq.ID)
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	// Consent is revoked between enrollment and send.
	revoked := consentedLead(leadID, "claire@example.com")
	revoked.EmailConsent = false
	leads.put(revoked)

	if _, err := svc.ProcessDue(context.Background(), time.Now().UTC().Add(time.Minute)); err != nil {
		t.Fatalf("ProcessDue: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("mail sent despite revoked consent")
	}

	e, _ := store.GetEnrollment(context.Background(), enrollment.ID)
	if e.Status != StatusStopped {
		t.Errorf("Status = %q, want stopped", e.Status)
	}
}

func TestProcessDueStopsWhenLeadGone(t *testing.T) {
	svc, store, leads, sender, _ := newTestEnv(t)
	seq := mustCreateSequence(t, svc, defaultSteps())

	leadID := uuid.New()
	leads.put(consentedLead(leadID, "claire@example.com"))
	enrollment, err := svc.Enroll(context.Background(), leadID, seq.ID)
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	leads.mu.Lock()
	delete(leads.leads, leadID)
	leads.mu.Unlock()

	if _, err := svc.ProcessDue(context.Background(), time.Now().UTC().Add(time.Minute)); err != nil {
		t.Fatalf("ProcessDue: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatal("mail sent for a deleted lead")
	}
	e, _ := store.GetEnrollment(context.Background(), enrollment.ID)
	if e.Status != StatusStopped {
		t.Errorf("Status = %q, want stopped", e.Status)
	}
}

func TestProcessDueCompletesLastStep(t *testing.T) {
	svc, store, leads, sender, _ := newTestEnv(t)
	seq := mustCreateSequence(t, svc, []Step{
		{OffsetHours: 0, TemplateKey: "nurture_intro"},
	})

	leadID := uuid.New()
	leads.put(consentedLead(leadID, "claire@example.com"))
	enrollment, err := svc.Enroll(context.Background(), leadID, seq.ID)
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	if _, err := svc.ProcessDue(context.Background(), time.Now().UTC().Add(time.Minute)); err != nil {
		t.Fatalf("ProcessDue: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d mails, want 1", len(sender.sent))
	}

	e, _ := store.GetEnrollment(context.Background(), enrollment.ID)
	if e.Status != StatusCompleted {
		t.Errorf("Status = %q, want completed", e.Status)
	}
	if e.NextRunAt != nil {
		t.Error("NextRunAt should be nil once completed")
	}
}

func TestProcessDueSurvivesSendFailure(t *testing.T) {
	svc, store, leads, sender, _ := newTestEnv(t)
	seq := mustCreateSequence(t, svc, defaultSteps())

	leadID := uuid.New()
	leads.put(consentedLead(leadID, "claire@example.com"))
	enrollment, err := svc.Enroll(context.Background(), leadID, seq.ID)
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	sender.sendErr = errors.New("smtp down")

	sent, err := svc.ProcessDue(context.Background(), time.Now().UTC().Add(time.Minute))
	if err != nil {
		t.Fatalf("ProcessDue: %v", err)
	}
	if sent != 0 {
		t.Errorf("sent = %d, want 0", sent)
	}

	// The step was not advanced; the claim window expires and the next
	// sweep retries it.
	e, _ := store.GetEnrollment(context.Background(), enrollment.ID)
	if e.CurrentStep != 0 {
		t.Errorf("CurrentStep = %d, want 0", e.CurrentStep)
	}
	if e.Status != StatusActive {
		t.Errorf("Status = %q, want active", e.Status)
	}
}

func TestProcessDueSkipsFutureEnrollments(t *testing.T) {
	svc, _, leads, sender, _ := newTestEnv(t)
	seq := mustCreateSequence(t, svc, []Step{
		{OffsetHours: 48, TemplateKey: "nurture_intro"},
	})

	leadID := uuid.New()
	leads.put(consentedLead(leadID, "claire@example.com"))
	if _, err := svc.Enroll(context.Background(), leadID, seq.ID); err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	sent, err := svc.ProcessDue(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("ProcessDue: %v", err)
	}
	if sent != 0 || len(sender.sent) != 0 {
		t.Errorf("sent %d mails for a not-yet-due step", len(sender.sent))
	}
}

func TestStopAllForLead(t *testing.T) {
	svc, store, leads, _, _ := newTestEnv(t)
	seqA := mustCreateSequence(t, svc, defaultSteps())
	seqB := mustCreateSequence(t, svc, defaultSteps())

	leadID := uuid.New()
	leads.put(consentedLead(leadID, "claire@example.com"))
	if _, err := svc.Enroll(context.Background(), leadID, seqA.ID); err != nil {
		t.Fatalf("Enroll A: %v", err)
	}
	if _, err := svc.Enroll(context.Background(), leadID, seqB.ID); err != nil {
		t.Fatalf("Enroll B: %v", err)
	}

	if err := svc.StopAllForLead(context.Background(), leadID); err != nil {
		t.Fatalf("StopAllForLead: %v", err)
	}
	enrollments, _ := store.ListEnrollmentsForLead(context.Background(), leadID)
	for _, e := range enrollments {
		if e.Status != StatusStopped {
			t.Errorf("enrollment %s status = %q", e.ID, e.Status)
		}
	}
}

func TestEraseLeadRemovesEnrollments(t *testing.T) {
	svc, store, leads, _, _ := newTestEnv(t)
	seq := mustCreateSequence(t, svc, defaultSteps())

	leadID := uuid.New()
	leads.put(consentedLead(leadID, "claire@example.com"))
	if _, err := svc.Enroll(context.Background(), leadID, seq.ID); err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	if err := svc.EraseLead(context.Background(), leadID); err != nil {
		t.Fatalf("EraseLead: %v", err)
	}
	enrollments, _ := store.ListEnrollmentsForLead(context.Background(), leadID)
	if len(enrollments) != 0 {
		t.Errorf("%d enrollments left after erasure", len(enrollments))
	}
}
