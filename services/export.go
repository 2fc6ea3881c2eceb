package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/defect-tracker/models"
)

// Export formats accepted by the defects report
const (
	ExportCSV   = "csv"
	ExportExcel = "excel"
)

const exportDateLayout = "02.01.2006"

var exportHeader = []string{"ID", "Title", "Project", "Status", "Priority", "Assignee", "Creator", "Created", "Due"}

type exportFormat struct {
	comma       rune
	extension   string
	contentType string
}

var exportFormats = map[string]exportFormat{
	ExportCSV:   {comma: ';', extension: "csv", contentType: "text/csv"},
	ExportExcel: {comma: '\t', extension: "xls", contentType: "application/vnd.ms-excel"},
}

// renderDefects writes a header and one delimited line per defect, in the given order.
// Creation times are shown as dates in loc.
func renderDefects(defects []models.Defect, comma rune, loc *time.Location) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = comma

	if err := w.Write(exportHeader); err != nil {
		return nil, err
	}
	for _, d := range defects {
		if err := w.Write(exportRow(d, loc)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("render export: %w", err)
	}
	return buf.Bytes(), nil
}

func exportRow(d models.Defect, loc *time.Location) []string {
	row := []string{
		strconv.FormatUint(uint64(d.ID), 10),
		d.Title,
		"",
		string(d.Status),
		string(d.Priority),
		"",
		"",
		d.CreatedAt.In(loc).Format(exportDateLayout),
		"",
	}
	if d.Project != nil {
		row[2] = d.Project.Name
	}
	if d.Assignee != nil {
		row[5] = d.Assignee.UserName
	}
	if d.Creator != nil {
		row[6] = d.Creator.UserName
	}
	if d.DueDate != nil {
		row[8] = time.Time(*d.DueDate).Format(exportDateLayout)
	}
	return row
}

// exportFileName names a report after the moment it was produced
func exportFileName(at time.Time, extension string) string {
	return "defects_report_" + at.Format("20060102_150405") + "." + extension
}
