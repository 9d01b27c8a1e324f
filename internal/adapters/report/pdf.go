package report

import (
	"fmt"
	"io"

	"cmcs-claims/internal/core/services"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

const (
	systemTitle  = "Contract Monthly Claim System"
	footerText   = "Generated by the Contract Monthly Claim System"
	timestampFmt = "2006-01-02 15:04"
	rowHeight    = 7.0
)

type column struct {
	title string
	width float64
	align string
}

// A4 portrait leaves 190mm between the default margins
var columns = []column{
	{"Lecturer Name", 42, "L"},
	{"Lecturer ID", 25, "L"},
	{"Hours", 16, "R"},
	{"Rate", 22, "R"},
	{"Total", 25, "R"},
	{"Status", 40, "L"},
	{"Submitted", 20, "C"},
}

// Money formats an amount with the currency prefix used on invoices
func Money(d decimal.Decimal) string {
	return "R " + d.StringFixed(2)
}

// PDFRenderer renders invoice reports as PDF
type PDFRenderer struct{}

// NewPDFRenderer creates a PDF renderer
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

func (PDFRenderer) ContentType() string { return "application/pdf" }
func (PDFRenderer) Extension() string   { return "pdf" }

// Render writes the invoice for one month
func (PDFRenderer) Render(w io.Writer, report *services.InvoiceReport) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(systemTitle+" - "+report.Month, true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AliasNbPages("")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 10, fmt.Sprintf("%s - page %d/{nb}", footerText, pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()

	// Title block
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, systemTitle, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 13)
	pdf.CellFormat(0, 8, "Invoice Report for "+report.Month, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 6, "Generated "+report.GeneratedAt.Format(timestampFmt), "", 1, "C", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)

	// Summary block
	sum := report.Summary
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 7, "Summary", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, line := range [][2]string{
		{"Total Claims", fmt.Sprintf("%d", sum.TotalClaims)},
		{"Total Amount", Money(sum.TotalAmount)},
		{"Pending Claims", fmt.Sprintf("%d", sum.PendingClaims)},
		{"Approved Claims", fmt.Sprintf("%d", sum.ApprovedClaims)},
	} {
		pdf.CellFormat(45, 6, line[0]+":", "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, line[1], "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	// Claims table
	header := func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(220, 225, 235)
		for _, col := range columns {
			pdf.CellFormat(col.width, rowHeight, col.title, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 8)
	}

	_, pageHeight := pdf.GetPageSize()
	limit := pageHeight - 20

	header()
	if len(report.Claims) == 0 {
		pdf.CellFormat(tableWidth(), rowHeight, "No claims were submitted for this month.", "1", 1, "C", false, 0, "")
	}
	for _, c := range report.Claims {
		if pdf.GetY()+rowHeight > limit {
			pdf.AddPage()
			header()
		}
		cells := []string{
			tr(c.LecturerName),
			c.LecturerID,
			c.HoursWorked.StringFixed(2),
			Money(c.HourlyRate),
			Money(c.ComputeTotal()),
			c.Status.Label(),
			c.SubmittedAt.Format("2006-01-02"),
		}
		for i, col := range columns {
			pdf.CellFormat(col.width, rowHeight, fit(pdf, cells[i], col.width), "1", 0, col.align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	// Grand total
	if pdf.GetY()+rowHeight > limit {
		pdf.AddPage()
	}
	pdf.SetFont("Helvetica", "B", 9)
	totalCol := columns[0].width + columns[1].width + columns[2].width + columns[3].width
	pdf.CellFormat(totalCol, rowHeight, "Grand Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(columns[4].width, rowHeight, Money(sum.TotalAmount), "1", 0, "R", false, 0, "")
	pdf.CellFormat(columns[5].width+columns[6].width, rowHeight, "", "1", 1, "L", false, 0, "")

	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}

func tableWidth() float64 {
	var w float64
	for _, col := range columns {
		w += col.width
	}
	return w
}

// fit shortens s with an ellipsis until it fits in width. s is already in
// the single-byte font encoding, so trimming bytes is safe.
func fit(pdf *fpdf.Fpdf, s string, width float64) string {
	const padding = 2
	if pdf.GetStringWidth(s) <= width-padding {
		return s
	}
	for len(s) > 0 && pdf.GetStringWidth(s+"...") > width-padding {
		s = s[:len(s)-1]
	}
	return s + "..."
}
