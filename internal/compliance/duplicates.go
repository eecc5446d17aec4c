package compliance

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/buildsure/bill-verifier/internal/repository"
)

// BillDuplicates answers the duplicate-invoice rule from the bill store: a
// transaction is a suspected duplicate when an uploaded bill already
// carries the same invoice number from the same vendor.
type BillDuplicates struct {
	bills repository.BillRepository
}

func NewBillDuplicates(bills repository.BillRepository) *BillDuplicates {
	return &BillDuplicates{bills: bills}
}

func (d *BillDuplicates) HasDuplicate(ctx context.Context, vendorName, invoiceNumber string, amount float64) (bool, error) {
	if invoiceNumber == "" {
		return false, nil
	}
	bills, err := d.bills.List(ctx, "")
	if err != nil {
		return false, err
	}
	for _, b := range bills {
		if len(b.Parsed) == 0 {
			continue
		}
		var parsed map[string]any
		if err := json.Unmarshal(b.Parsed, &parsed); err != nil {
			continue
		}
		if !strings.EqualFold(parsedInvoiceID(parsed), invoiceNumber) {
			continue
		}
		if vendorName == "" || strings.EqualFold(parsedVendorName(parsed), vendorName) {
			return true, nil
		}
	}
	return false, nil
}

func parsedInvoiceID(parsed map[string]any) string {
	for _, key := range []string{"invoice_id", "invoice_number"} {
		if s, ok := parsed[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func parsedVendorName(parsed map[string]any) string {
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
