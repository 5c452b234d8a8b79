// Package export renders document lists as XLSX workbooks.
package export

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"sme-billing/internal/core"
	"sme-billing/internal/thaitext"
)

// ContentType is the MIME type of the generated workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const dateLayout = "2006-01-02"

type column struct {
	header string
	width  float64
	money  bool
}

var invoiceColumns = []column{
	{"Number", 18, false},
	{"Issue Date", 12, false},
	{"Due Date", 12, false},
	{"Customer", 36, false},
	{"Tax ID", 16, false},
	{"Branch", 8, false},
	{"Pre-VAT", 14, true},
	{"VAT", 12, true},
	{"Total", 14, true},
	{"Withholding", 12, true},
	{"Paid", 14, true},
	{"Outstanding", 14, true},
	{"Status", 14, false},
	{"วันที่ออก (พ.ศ.)", 20, false},
}

var quotationColumns = []column{
	{"Number", 18, false},
	{"Issue Date", 12, false},
	{"Valid Until", 12, false},
	{"Customer", 36, false},
	{"Tax ID", 16, false},
	{"Branch", 8, false},
	{"Pre-VAT", 14, true},
	{"VAT", 12, true},
	{"Total", 14, true},
	{"Status", 12, false},
	{"Invoice", 10, false},
	{"ยืนราคาถึง", 14, false},
}

// Invoices builds a workbook with one row per invoice and a totals row.
func Invoices(invoices []core.Invoice) (*bytes.Buffer, error) {
	rows := make([][]any, len(invoices))
	for i, inv := range invoices {
		rows[i] = []any{
			inv.Number,
			inv.IssueDate.Format(dateLayout),
			inv.DueDate.Format(dateLayout),
			inv.Customer.Name,
			inv.Customer.TaxID,
			inv.Customer.BranchCode,
			inv.PreVATAmount,
			inv.VATAmount,
			inv.Total,
			inv.WithholdingAmount,
			inv.PaidAmount,
			inv.Outstanding,
			string(inv.Status),
			thaitext.FormatThaiDate(inv.IssueDate),
		}
	}
	return writeSheet("Invoices", invoiceColumns, rows)
}

// Quotations builds a workbook with one row per quotation and a totals row.
func Quotations(quotations []core.Quotation) (*bytes.Buffer, error) {
	rows := make([][]any, len(quotations))
	for i, q := range quotations {
		invoice := ""
		if q.InvoiceID != nil {
			invoice = fmt.Sprint(*q.InvoiceID)
		}
		rows[i] = []any{
			q.Number,
			q.IssueDate.Format(dateLayout),
			q.ValidUntil.Format(dateLayout),
			q.Customer.Name,
			q.Customer.TaxID,
			q.Customer.BranchCode,
			q.PreVATAmount,
			q.VATAmount,
			q.Total,
			string(q.Status),
			invoice,
			thaitext.FormatThaiDateShort(q.ValidUntil),
		}
	}
	return writeSheet("Quotations", quotationColumns, rows)
}

func writeSheet(sheet string, cols []column, rows [][]any) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Border: []excelize.Border{{Type: "bottom", Color: "#000000", Style: 1}},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return nil, fmt.Errorf("money style: %w", err)
	}
	totalStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4, Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("total style: %w", err)
	}

	for i, c := range cols {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, c.header); err != nil {
			return nil, err
		}
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, name, name, c.width); err != nil {
			return nil, err
		}
	}
	lastCol, _ := excelize.CoordinatesToCellName(len(cols), 1)
	if err := f.SetCellStyle(sheet, "A1", lastCol, headerStyle); err != nil {
		return nil, err
	}

	sums := make([]decimal.Decimal, len(cols))
	for r, values := range rows {
		row := r + 2
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, row)
			if d, ok := v.(decimal.Decimal); ok {
				sums[c] = sums[c].Add(d)
				if err := f.SetCellFloat(sheet, cell, d.InexactFloat64(), -1, 64); err != nil {
					return nil, err
				}
				if err := f.SetCellStyle(sheet, cell, cell, moneyStyle); err != nil {
					return nil, err
				}
				continue
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	totalRow := len(rows) + 2
	label, _ := excelize.CoordinatesToCellName(1, totalRow)
	if err := f.SetCellValue(sheet, label, "Total"); err != nil {
		return nil, err
	}
	for c, col := range cols {
		if !col.money {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(c+1, totalRow)
		if err := f.SetCellFloat(sheet, cell, sums[c].InexactFloat64(), -1, 64); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(sheet, cell, cell, totalStyle); err != nil {
			return nil, err
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf, nil
}
