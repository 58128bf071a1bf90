package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/societyhub/societyhub/internal/db/models"
)

// MembersPDF renders a society's member roster as a printable table.
func MembersPDF(society *models.Society, members []*models.MemberWithUser) (*bytes.Buffer, error) {
	defer observe("pdf")()

	pdf := newDoc(society.Name + " — Members")
	widths := []float64{50, 60, 30, 30, 25}
	drawHeader(pdf, widths, memberHeader)

	pdf.SetFont("Helvetica", "", 9)
	for _, m := range members {
		group := ""
		if m.GroupName != nil {
			group = *m.GroupName
		}
		drawRow(pdf, widths, []string{
			m.UserName, m.UserEmail, string(m.Role), group, m.JoinedAt.Format("2006-01-02"),
		})
	}

	return output(pdf)
}

// RegistrationsPDF renders an event's registrations. Wide forms get evenly
// squeezed columns; XLSX is the better format past a handful of fields.
func RegistrationsPDF(event *models.Event, form *models.Form, regs []*models.EventRegistration) (*bytes.Buffer, error) {
	rows := make([]responseRow, len(regs))
	for i, reg := range regs {
		rows[i] = responseRow{reg.Responses, reg.Status, reg.CreatedAt}
	}
	return responsesPDF(event.Title+" — Registrations", form, rows)
}

// RequestsPDF renders a society's join requests against its join form.
func RequestsPDF(society *models.Society, form *models.Form, reqs []*models.JoinRequest) (*bytes.Buffer, error) {
	rows := make([]responseRow, len(reqs))
	for i, req := range reqs {
		rows[i] = responseRow{req.Responses, req.Status, req.CreatedAt}
	}
	return responsesPDF(society.Name+" — Join Requests", form, rows)
}

func responsesPDF(title string, form *models.Form, rows []responseRow) (*bytes.Buffer, error) {
	defer observe("pdf")()

	pdf := newDoc(title)

	header := formHeader(form)
	widths := make([]float64, len(header))
	per := 195.0 / float64(len(header))
	for i := range widths {
		widths[i] = per
	}
	drawHeader(pdf, widths, header)

	pdf.SetFont("Helvetica", "", 9)
	for _, row := range rows {
		cells := formCells(form, row)
		strs := make([]string, len(cells))
		for i, c := range cells {
			strs[i] = fmt.Sprint(c)
		}
		drawRow(pdf, widths, strs)
	}

	return output(pdf)
}

func newDoc(title string) *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(110, 110, 110)
	pdf.CellFormat(0, 5, "Generated "+time.Now().Format("2006-01-02 15:04 MST"), "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(3)
	return pdf
}

func drawHeader(pdf *fpdf.Fpdf, widths []float64, header []string) {
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(235, 235, 235)
	for i, title := range header {
		pdf.CellFormat(widths[i], 7, title, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)
}

func drawRow(pdf *fpdf.Fpdf, widths []float64, cells []string) {
	for i, cell := range cells {
		pdf.CellFormat(widths[i], 6, cell, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)
}

func output(pdf *fpdf.Fpdf) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return &buf, nil
}
