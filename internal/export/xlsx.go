// Package export renders member rosters and event registration sheets as
// downloadable XLSX and PDF documents. Documents are built fully in memory;
// ExportDuration tracks generation time so oversized societies show up in
// the histogram before they show up as OOMs.
package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/societyhub/societyhub/internal/db/models"
	"github.com/societyhub/societyhub/internal/telemetry"
)

var memberHeader = []string{"Name", "Email", "Role", "Team", "Joined"}

// MembersXLSX renders a society's member roster as a spreadsheet.
func MembersXLSX(society *models.Society, members []*models.MemberWithUser) (*bytes.Buffer, error) {
	defer observe("xlsx")()

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Members"
	f.SetSheetName(f.GetSheetName(0), sheet)

	if err := writeHeaderRow(f, sheet, memberHeader); err != nil {
		return nil, err
	}
	for i, m := range members {
		row := i + 2
		group := ""
		if m.GroupName != nil {
			group = *m.GroupName
		}
		cells := []any{m.UserName, m.UserEmail, string(m.Role), group, m.JoinedAt.Format("2006-01-02")}
		if err := writeRow(f, sheet, row, cells); err != nil {
			return nil, err
		}
	}

	f.SetColWidth(sheet, "A", "B", 28)
	f.SetColWidth(sheet, "C", "E", 18)

	return f.WriteToBuffer()
}

// RegistrationsXLSX renders an event's registrations. Columns follow the
// registration form's field order, so different events produce different
// sheets.
func RegistrationsXLSX(event *models.Event, form *models.Form, regs []*models.EventRegistration) (*bytes.Buffer, error) {
	rows := make([]responseRow, len(regs))
	for i, reg := range regs {
		rows[i] = responseRow{reg.Responses, reg.Status, reg.CreatedAt}
	}
	return responsesXLSX("Registrations", form, rows)
}

// RequestsXLSX renders a society's join requests against its join form.
func RequestsXLSX(form *models.Form, reqs []*models.JoinRequest) (*bytes.Buffer, error) {
	rows := make([]responseRow, len(reqs))
	for i, req := range reqs {
		rows[i] = responseRow{req.Responses, req.Status, req.CreatedAt}
	}
	return responsesXLSX("Requests", form, rows)
}

// responseRow is the common shape of join requests and event registrations.
type responseRow struct {
	responses models.ResponseList
	status    models.RequestStatus
	createdAt time.Time
}

func responsesXLSX(sheet string, form *models.Form, rows []responseRow) (*bytes.Buffer, error) {
	defer observe("xlsx")()

	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName(f.GetSheetName(0), sheet)

	header := formHeader(form)
	if err := writeHeaderRow(f, sheet, header); err != nil {
		return nil, err
	}
	for i, row := range rows {
		if err := writeRow(f, sheet, i+2, formCells(form, row)); err != nil {
			return nil, err
		}
	}

	last, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return nil, err
	}
	f.SetColWidth(sheet, "A", last, 22)

	return f.WriteToBuffer()
}

func writeHeaderRow(f *excelize.File, sheet string, header []string) error {
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	for i, title := range header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, title); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, cells []any) error {
	for i, v := range cells {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}

func formHeader(form *models.Form) []string {
	header := make([]string, 0, len(form.Fields)+2)
	for _, field := range form.Fields {
		header = append(header, field.Label)
	}
	return append(header, "Status", "Submitted")
}

func formCells(form *models.Form, row responseRow) []any {
	byLabel := make(map[string]any, len(row.responses))
	for _, resp := range row.responses {
		byLabel[resp.FieldLabel] = resp.Value
	}
	cells := make([]any, 0, len(form.Fields)+2)
	for _, field := range form.Fields {
		cells = append(cells, formatValue(byLabel[field.Label]))
	}
	return append(cells, string(row.status), row.createdAt.Format("2006-01-02 15:04"))
}

// formatValue renders a form response value for a cell. Responses arrive as
// decoded JSON, so numbers are float64 and checkboxes are bool.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "Yes"
		}
		return "No"
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = formatValue(item)
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(val)
	}
}

func observe(format string) func() {
	start := time.Now()
	return func() {
		telemetry.ExportDuration.Observe(time.Since(start).Seconds())
		telemetry.ExportsTotal.WithLabelValues(format).Inc()
	}
}
