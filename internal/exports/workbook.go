package exports

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

const leadsSheet = "Leads"

// Row is one lead line in the exported workbook. Score fields are empty
// strings when the lead has never been scored.
type Row struct {
	FirstName  string
	LastName   string
	Email      string
	Phone      string
	City       string
	PostalCode string
	Budget     *float64
	Status     string
	Source     string
	Score      *float64
	Tier       string
	Timing     string
	Intent     string
	CreatedAt  time.Time
}

var workbookHeaders = []string{
	"Prénom", "Nom", "Email", "Téléphone", "Ville", "Code postal",
	"Budget", "Statut", "Source", "Score", "Niveau", "Fenêtre de contact",
	"Intention", "Créé le",
}

// BuildWorkbook renders the lead snapshot as an xlsx file.
func BuildWorkbook(rows []Row) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(leadsSheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	for col, header := range workbookHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(leadsSheet, cell, header); err != nil {
			return nil, err
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(workbookHeaders), 1)
		_ = f.SetCellStyle(leadsSheet, "A1", last, headerStyle)
	}

	for i, row := range rows {
		values := []interface{}{
			row.FirstName, row.LastName, row.Email, row.Phone, row.City, row.PostalCode,
			floatOrBlank(row.Budget), row.Status, row.Source,
			floatOrBlank(row.Score), row.Tier, row.Timing, row.Intent,
			row.CreatedAt.Format("2006-01-02"),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(leadsSheet, cell, value); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf, nil
}

func floatOrBlank(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}
