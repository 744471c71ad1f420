package exports

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	leadrepo "efficity_backend/internal/leads/repository"
	"efficity_backend/platform/apperr"
	"efficity_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

type fakeExportStore struct {
	exports map[uuid.UUID]Export
}

func newFakeExportStore() *fakeExportStore {
	return &fakeExportStore{exports: make(map[uuid.UUID]Export)}
}

func (f *fakeExportStore) Create(_ context.Context, e *Export) error {
	e.ID = uuid.New()
	e.CreatedAt = time.Now().UTC()
	f.exports[e.ID] = *e
	return nil
}

func (f *fakeExportStore) GetByID(_ context.Context, id uuid.UUID) (Export, error) {
	e, ok := f.exports[id]
	if !ok {
		return Export{}, apperr.NotFound("export not found")
	}
	return e, nil
}

func (f *fakeExportStore) List(_ context.Context, limit int) ([]Export, error) {
	out := make([]Export, 0, len(f.exports))
	for _, e := range f.exports {
		out = append(out, e)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeExportStore) ListOlderThan(_ context.Context, cutoff time.Time, limit int) ([]Export, error) {
	var out []Export
	for _, e := range f.exports {
		if e.CreatedAt.Before(cutoff) {
			out = append(out, e)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeExportStore) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.exports, id)
	return nil
}

type fakeObjectStore struct {
	objects map[string][]byte
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: make(map[string][]byte)}
}

func (f *fakeObjectStore) Upload(_ context.Context, objectKey string, reader io.Reader, _ int64) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.objects[objectKey] = data
	return nil
}

func (f *fakeObjectStore) PresignedURL(_ context.Context, objectKey string, _ time.Duration) (string, error) {
	return "https://storage.example/" + objectKey + "?sig=abc", nil
}

func (f *fakeObjectStore) Remove(_ context.Context, objectKey string) error {
	delete(f.objects, objectKey)
	return nil
}

type fakeLeadSource struct {
	leads  []leadrepo.Lead
	scores map[uuid.UUID]leadrepo.ScoreRecord
}

func (f *fakeLeadSource) List(_ context.Context, filter leadrepo.ListFilter) ([]leadrepo.Lead, int, error) {
	start := (filter.Page - 1) * filter.PageSize
	if start >= len(f.leads) {
		return nil, len(f.leads), nil
	}
	end := start + filter.PageSize
	if end > len(f.leads) {
		end = len(f.leads)
	}
	return f.leads[start:end], len(f.leads), nil
}

func (f *fakeLeadSource) LatestScore(_ context.Context, leadID uuid.UUID) (leadrepo.ScoreRecord, error) {
	record, ok := f.scores[leadID]
	if !ok {
		return leadrepo.ScoreRecord{}, apperr.NotFound("no score yet")
	}
	return record, nil
}

func sampleLead(first string) leadrepo.Lead {
	email := strings.ToLower(first) + "@example.com"
	return leadrepo.Lead{
		ID:        uuid.New(),
		FirstName: &first,
		Email:     &email,
		Status:    "new",
		CreatedAt: time.Now().UTC(),
	}
}

func TestSnapshotUploadsWorkbookAndRecordsExport(t *testing.T) {
	leadA := sampleLead("Claire")
	leadB := sampleLead("Jean")

	store := newFakeExportStore()
	objects := newFakeObjectStore()
	source := &fakeLeadSource{
		leads: []leadrepo.Lead{leadA, leadB},
		scores: map[uuid.UUID]leadrepo.ScoreRecord{
			leadA.ID: {LeadID: leadA.ID, Score: 91.0, Tier: "Platinum", Timing: "Immediate"},
		},
	}
	svc := NewService(store, source, objects, logger.NewNop())

	result, err := svc.Snapshot(context.Background(), nil)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if result.RowCount != 2 {
		t.Errorf("RowCount = %d, want 2", result.RowCount)
	}
	if !strings.Contains(result.DownloadURL, "storage.example") {
		t.Errorf("DownloadURL = %q", result.DownloadURL)
	}

	if len(objects.objects) != 1 {
		t.Fatalf("uploaded %d objects", len(objects.objects))
	}
	var data []byte
	for _, d := range objects.objects {
		data = d
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("uploaded object is not an xlsx: %v", err)
	}
	defer f.Close()
	tier, _ := f.GetCellValue(leadsSheet, "K2")
	if tier != "Platinum" {
		t.Errorf("K2 = %q", tier)
	}

	exports, _ := store.List(context.Background(), 10)
	if len(exports) != 1 || exports[0].RowCount != 2 {
		t.Errorf("export record = %+v", exports)
	}
}

func TestSnapshotPaginatesThroughAllLeads(t *testing.T) {
	var leads []leadrepo.Lead
	for i := 0; i < snapshotPageSize+3; i++ {
		leads = append(leads, sampleLead("Lead"))
	}

	svc := NewService(newFakeExportStore(), &fakeLeadSource{leads: leads}, newFakeObjectStore(), logger.NewNop())
	result, err := svc.Snapshot(context.Background(), nil)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if result.RowCount != snapshotPageSize+3 {
		t.Errorf("RowCount = %d, want %d", result.RowCount, snapshotPageSize+3)
	}
}

func TestDownloadURLUnknownExport(t *testing.T) {
	svc := NewService(newFakeExportStore(), &fakeLeadSource{}, newFakeObjectStore(), logger.NewNop())
	if _, err := svc.DownloadURL(context.Background(), uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestPruneOlderThanRemovesObjectAndRecord(t *testing.T) {
	store := newFakeExportStore()
	objects := newFakeObjectStore()
	svc := NewService(store, &fakeLeadSource{leads: []leadrepo.Lead{sampleLead("Claire")}}, objects, logger.NewNop())

	if _, err := svc.Snapshot(context.Background(), nil); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	// Nothing is old enough yet.
	pruned, err := svc.PruneOlderThan(context.Background(), time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("PruneOlderThan: %v", err)
	}
	if pruned != 0 {
		t.Errorf("pruned = %d, want 0", pruned)
	}

	pruned, err = svc.PruneOlderThan(context.Background(), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("PruneOlderThan: %v", err)
	}
	if pruned != 1 {
		t.Errorf("pruned = %d, want 1", pruned)
	}
	if len(objects.objects) != 0 {
		t.Errorf("object not removed, %d left", len(objects.objects))
	}
	if remaining, _ := store.List(context.Background(), 10); len(remaining) != 0 {
		t.Errorf("record not removed, %d left", len(remaining))
	}
}
