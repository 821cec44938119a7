package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/gst-bills/internal/entity"
	"github.com/joseph-ayodele/gst-bills/internal/money"
	"github.com/joseph-ayodele/gst-bills/internal/repository"
)

// SheetName is the worksheet holding the purchase register.
const SheetName = "Purchase Register"

var headers = []string{
	"Invoice Date",
	"Supplier",
	"GSTIN",
	"Invoice No",
	"Expense Type",
	"Taxable Value",
	"GST %",
	"CGST",
	"SGST",
	"IGST",
	"Tax",
	"Total",
	"Confidence",
}

// Columns holding money; they get the number format and are summed in the totals row.
var moneyCols = []int{6, 8, 9, 10, 11, 12}

// Service is a tiny façade over the bills repository that produces XLSX bytes for exports.
type Service struct {
	bills  repository.BillRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewService(bills repository.BillRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{bills: bills, logger: logger, now: time.Now}
}

// ExportBillsXLSX returns a GST purchase register (as bytes) for the given invoice-date window.
// If only from is provided -> from..today (inclusive).
// If only to is provided   -> beginning..to (inclusive).
// If neither is provided   -> all bills.
func (s *Service) ExportBillsXLSX(ctx context.Context, from, to *time.Time) ([]byte, error) {
	start := time.Now()

	fromDate, toDate := s.window(from, to)
	bills, err := s.bills.List(ctx, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("query bills: %w", err)
	}

	buf, err := Register(bills)
	if err != nil {
		return nil, err
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(bills),
		"bytes", len(buf),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf, nil
}

// window normalises the bounds to UTC dates.
func (s *Service) window(from, to *time.Time) (*time.Time, *time.Time) {
	day := func(t time.Time) *time.Time {
		d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return &d
	}
	var fromDate, toDate *time.Time
	if from != nil {
		fromDate = day(*from)
	}
	if to != nil {
		toDate = day(*to)
	}
	if fromDate != nil && toDate == nil {
		toDate = day(s.now().UTC())
	}
	return fromDate, toDate
}

// Register renders bills into an XLSX workbook with a trailing totals row.
func Register(bills []*entity.Bill) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	amount, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return nil, err
	}
	boldAmount, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, NumFmt: 4})
	if err != nil {
		return nil, err
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SheetName, cell, h)
	}
	_ = f.SetCellStyle(SheetName, "A1", lastCol(1), bold)

	totals := make(map[int]decimal.Decimal, len(moneyCols))
	row := 2
	for _, b := range bills {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(SheetName, cell, v)
		}

		cgst, sgst, igst := components(b.InvoiceRecord)
		values := map[int]float64{
			6:  b.Amount,
			8:  cgst,
			9:  sgst,
			10: igst,
			11: b.TaxAmount,
			12: b.TotalAmount,
		}

		write(1, b.InvoiceDate)
		write(2, b.SupplierName)
		write(3, b.GSTIN)
		write(4, b.InvoiceNumber)
		write(5, b.ExpenseType)
		write(7, b.TaxPercent)
		write(13, string(b.ExtractionConfidence))
		for _, col := range moneyCols {
			write(col, values[col])
			totals[col] = totals[col].Add(decimal.NewFromFloat(values[col]))
		}
		row++
	}

	// Totals
	label, _ := excelize.CoordinatesToCellName(1, row)
	_ = f.SetCellValue(SheetName, label, "Total")
	_ = f.SetCellStyle(SheetName, label, label, bold)
	for _, col := range moneyCols {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(SheetName, cell, totals[col].Round(2).InexactFloat64())
		_ = f.SetCellStyle(SheetName, cell, cell, boldAmount)
	}
	if row > 2 {
		for _, col := range moneyCols {
			first, _ := excelize.CoordinatesToCellName(col, 2)
			last, _ := excelize.CoordinatesToCellName(col, row-1)
			_ = f.SetCellStyle(SheetName, first, last, amount)
		}
	}

	// Widen a few columns
	_ = f.SetColWidth(SheetName, "A", "A", 14) // date
	_ = f.SetColWidth(SheetName, "B", "B", 32) // supplier
	_ = f.SetColWidth(SheetName, "C", "C", 18) // gstin
	_ = f.SetColWidth(SheetName, "D", "E", 20)
	_ = f.SetColWidth(SheetName, "F", "L", 14) // amounts
	_ = f.SetColWidth(SheetName, "M", "M", 12)
	_ = f.SetPanes(SheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

// components returns the CGST, SGST and IGST columns. A bill without any printed
// component splits its tax evenly between CGST and SGST.
func components(r entity.InvoiceRecord) (cgst, sgst, igst float64) {
	b := r.TaxBreakdown
	if b.CGST == nil && b.SGST == nil && b.IGST == nil {
		cgst = money.Round2(r.TaxAmount / 2)
		return cgst, money.Round2(r.TaxAmount - cgst), 0
	}
	val := func(p *float64) float64 {
		if p == nil {
			return 0
		}
		return *p
	}
	return val(b.CGST), val(b.SGST), val(b.IGST)
}

func lastCol(row int) string {
	cell, _ := excelize.CoordinatesToCellName(len(headers), row)
	return cell
}
