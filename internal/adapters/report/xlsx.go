package report

import (
	"fmt"
	"io"

	"cmcs-claims/internal/core/services"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Invoice"

var moneyFormat = `"R "#,##0.00`

// XLSXRenderer renders invoice reports as a spreadsheet
type XLSXRenderer struct{}

// NewXLSXRenderer creates a spreadsheet renderer
func NewXLSXRenderer() *XLSXRenderer {
	return &XLSXRenderer{}
}

func (XLSXRenderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}
func (XLSXRenderer) Extension() string { return "xlsx" }

// Render writes one header row, one row per claim and a grand total row
func (XLSXRenderer) Render(w io.Writer, report *services.InvoiceReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	money, err := f.NewStyle(&excelize.Style{CustomNumFmt: &moneyFormat})
	if err != nil {
		return err
	}

	title := fmt.Sprintf("%s - Invoice Report for %s", systemTitle, report.Month)
	if err := f.SetCellValue(sheetName, "A1", title); err != nil {
		return err
	}
	if err := f.SetCellValue(sheetName, "A2", "Generated "+report.GeneratedAt.Format(timestampFmt)); err != nil {
		return err
	}

	const headerRow = 4
	headers := make([]interface{}, len(columns))
	for i, col := range columns {
		headers[i] = col.title
	}
	if err := f.SetSheetRow(sheetName, cell(1, headerRow), &headers); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, cell(1, headerRow), cell(len(columns), headerRow), bold); err != nil {
		return err
	}

	row := headerRow
	for _, c := range report.Claims {
		row++
		values := []interface{}{
			c.LecturerName,
			c.LecturerID,
			c.HoursWorked.InexactFloat64(),
			c.HourlyRate.InexactFloat64(),
			c.ComputeTotal().InexactFloat64(),
			c.Status.Label(),
			c.SubmittedAt.Format("2006-01-02"),
		}
		if err := f.SetSheetRow(sheetName, cell(1, row), &values); err != nil {
			return err
		}
	}
	if row > headerRow {
		if err := f.SetCellStyle(sheetName, cell(4, headerRow+1), cell(5, row), money); err != nil {
			return err
		}
	}

	row++
	if err := f.SetCellValue(sheetName, cell(4, row), "Grand Total"); err != nil {
		return err
	}
	if err := f.SetCellValue(sheetName, cell(5, row), report.Summary.TotalAmount.InexactFloat64()); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, cell(4, row), cell(4, row), bold); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, cell(5, row), cell(5, row), money); err != nil {
		return err
	}

	if err := f.SetColWidth(sheetName, "A", "A", 28); err != nil {
		return err
	}
	if err := f.SetColWidth(sheetName, "B", "G", 16); err != nil {
		return err
	}

	return f.Write(w)
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
