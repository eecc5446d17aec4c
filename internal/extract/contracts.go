package extract

import (
	"context"
)

// InvoiceExtractor turns an uploaded bill file into the generic parsed
// payload the assessment pipeline consumes: vendor, invoice_id,
// invoice_date, total_amount, taxes, line_items, plus the raw provider
// response for auditability.
type InvoiceExtractor interface {
	Analyze(ctx context.Context, path string) (map[string]any, error)
}
