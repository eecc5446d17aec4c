// Package export produces XLSX workbooks summarizing assessed bills.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/buildsure/bill-verifier/internal/repository"
)

// Service is a tiny façade over the bill repository that produces XLSX
// bytes for exports.
type Service struct {
	billsRepo repository.BillRepository
	logger    *slog.Logger
}

func NewService(billsRepo repository.BillRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{billsRepo: billsRepo, logger: logger}
}

// ExportBillsXLSX returns an XLSX workbook (as bytes) for all bills of a
// project; an empty project exports everything.
func (s *Service) ExportBillsXLSX(ctx context.Context, project string) ([]byte, error) {
	start := time.Now()

	bills, err := s.billsRepo.List(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("query bills: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Bills"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		_, err := f.NewSheet(sheet)
		if err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Uploaded",
		"Project",
		"Filename",
		"Status",
		"Vendor",
		"Invoice Total",
		"Fraud Score",
		"Explanation",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, b := range bills {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, b.CreatedAt.Format("2006-01-02"))
		write(2, b.Project)
		write(3, b.Filename)
		write(4, string(b.Status))

		result, err := s.billsRepo.GetResult(ctx, b.ID)
		if err == nil && result != nil {
			write(5, vendorLabel(result.Parsed))
			if result.Validations.InvoiceTotal != nil {
				write(6, *result.Validations.InvoiceTotal)
			}
			write(7, result.FraudScore)
			write(8, truncate(result.FraudExplanation, 140))
		}

		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 14) // date
	_ = f.SetColWidth(sheet, "B", "B", 18) // project
	_ = f.SetColWidth(sheet, "C", "C", 28) // filename
	_ = f.SetColWidth(sheet, "D", "D", 12) // status
	_ = f.SetColWidth(sheet, "E", "E", 30) // vendor
	_ = f.SetColWidth(sheet, "F", "G", 14) // amounts
	_ = f.SetColWidth(sheet, "H", "H", 64) // explanation

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"project", project,
		"rows", len(bills),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// vendorLabel renders the vendor field, which may be a name string or an
// object carrying one.
func vendorLabel(parsed map[string]any) string {
	if parsed == nil {
		return ""
	}
	switch v := parsed["vendor"].(type) {
	case string:
		return v
	case map[string]any:
		if name, ok := v["name"].(string); ok {
			return name
		}
	}
	return ""
}

// truncate shortens s to at most n runes, never splitting a multi-byte
// character.
func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
