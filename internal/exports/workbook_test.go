package exports

import (
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

func TestBuildWorkbookRoundTrip(t *testing.T) {
	budget := 450000.0
	score := 87.5
	rows := []Row{
		{
			FirstName: "Claire", LastName: "Dubois", Email: "claire@example.com",
			City: "Lyon", Budget: &budget, Status: "engaged", Source: "website",
			Score: &score, Tier: "Gold", Timing: "Today", Intent: "Active Searcher",
			CreatedAt: time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC),
		},
		{
			FirstName: "Jean", Status: "new",
			CreatedAt: time.Date(2026, time.April, 10, 0, 0, 0, 0, time.UTC),
		},
	}

	buf, err := BuildWorkbook(rows)
	if err != nil {
		t.Fatalf("BuildWorkbook: %v", err)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 1 || sheets[0] != leadsSheet {
		t.Fatalf("sheets = %v", sheets)
	}

	header, err := f.GetCellValue(leadsSheet, "A1")
	if err != nil || header != "Prénom" {
		t.Errorf("A1 = %q, err %v", header, err)
	}

	name, _ := f.GetCellValue(leadsSheet, "A2")
	if name != "Claire" {
		t.Errorf("A2 = %q", name)
	}
	tier, _ := f.GetCellValue(leadsSheet, "K2")
	if tier != "Gold" {
		t.Errorf("K2 = %q", tier)
	}
	created, _ := f.GetCellValue(leadsSheet, "N2")
	if created != "2026-03-03" {
		t.Errorf("N2 = %q", created)
	}

	// Missing score renders as blank, not zero.
	scoreCell, _ := f.GetCellValue(leadsSheet, "J3")
	if scoreCell != "" {
		t.Errorf("J3 = %q, want empty", scoreCell)
	}
}

func TestBuildWorkbookEmpty(t *testing.T) {
	buf, err := BuildWorkbook(nil)
	if err != nil {
		t.Fatalf("BuildWorkbook: %v", err)
	}
	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	header, _ := f.GetCellValue(leadsSheet, "A1")
	if header != "Prénom" {
		t.Errorf("A1 = %q", header)
	}
}
