// Package reconcile cross-checks the arithmetic of extracted invoices:
// each line's quantity×rate against its stated total, and the sum of lines
// against the stated invoice total. Missing fields suppress the checks that
// need them; nothing here returns an error.
package reconcile

import (
	"github.com/shopspring/decimal"

	"github.com/buildsure/bill-verifier/internal/entity"
	"github.com/buildsure/bill-verifier/internal/fields"
)

// Alternate field names seen across extraction schemas, in priority order.
var (
	itemKeys  = []string{"item", "description"}
	qtyKeys   = []string{"qty", "quantity"}
	rateKeys  = []string{"rate", "unit_price", "price"}
	totalKeys = []string{"total", "amount", "total_price"}

	invoiceTotalKeys = []string{"total_amount", "InvoiceTotal", "amount_due"}
)

// Config holds reconciliation thresholds.
type Config struct {
	// Tolerance is the absolute currency-unit slack allowed on every
	// monetary comparison. Zero means exact-match checking; callers that
	// want the reference behavior use DefaultConfig.
	Tolerance decimal.Decimal
}

// DefaultConfig returns the reference tolerance of 1.0 currency unit.
func DefaultConfig() Config {
	return Config{Tolerance: decimal.NewFromInt(1)}
}

// ConfigFromTolerance builds a Config from a currency-unit tolerance.
// Negative values fall back to the default; zero is kept, so operators can
// demand exact matches.
func ConfigFromTolerance(tolerance float64) Config {
	if tolerance < 0 {
		return DefaultConfig()
	}
	return Config{Tolerance: decimal.NewFromFloat(tolerance)}
}

// Reconciler verifies invoice arithmetic. It is stateless and safe for
// concurrent use.
type Reconciler struct {
	cfg Config
}

func New(cfg Config) *Reconciler {
	return &Reconciler{cfg: cfg}
}

// Validate checks every line item and the invoice total of an extracted
// payload. Line order is preserved. GSTINValidation is left nil; the caller
// attaches it.
func (r *Reconciler) Validate(parsed map[string]any) entity.InvoiceValidation {
	items, _ := parsed["line_items"].([]any)

	lines := make([]entity.LineCheck, 0, len(items))
	sum := decimal.Zero

	for idx, raw := range items {
		li, _ := raw.(map[string]any)
		check, contribution := r.checkLine(idx, li)
		lines = append(lines, check)
		sum = sum.Add(contribution)
	}
	sum = sum.Round(2)

	v := entity.InvoiceValidation{
		Lines:           lines,
		SumOfLineTotals: fields.Float(sum),
	}

	invoiceTotal, haveTotal := fields.FirstNumber(parsed, invoiceTotalKeys...)
	v.InvoiceTotal = fields.FloatPtr(invoiceTotal, haveTotal)
	if haveTotal {
		diff := sum.Sub(invoiceTotal).Round(2)
		ok := diff.Abs().LessThanOrEqual(r.cfg.Tolerance)
		v.SumDiff = fields.FloatPtr(diff, true)
		v.SumOK = &ok
	}
	return v
}

// checkLine verifies one line item and returns its contribution to the
// running sum: the stated total when present, else the computed total,
// else zero.
func (r *Reconciler) checkLine(idx int, li map[string]any) (entity.LineCheck, decimal.Decimal) {
	check := entity.LineCheck{LineIndex: idx}
	if li == nil {
		return check, decimal.Zero
	}

	if item, ok := fields.FirstString(li, itemKeys...); ok {
		check.Item = &item
	}

	qty, haveQty := fields.FirstNumber(li, qtyKeys...)
	rate, haveRate := fields.FirstNumber(li, rateKeys...)
	total, haveTotal := fields.FirstNumber(li, totalKeys...)

	check.Qty = fields.FloatPtr(qty, haveQty)
	check.Rate = fields.FloatPtr(rate, haveRate)
	check.Total = fields.FloatPtr(total, haveTotal)

	var computed decimal.Decimal
	haveComputed := haveQty && haveRate
	if haveComputed {
		computed = qty.Mul(rate).Round(2)
		check.ComputedTotal = fields.FloatPtr(computed, true)
		if haveTotal {
			diff := computed.Sub(total).Round(2)
			ok := diff.Abs().LessThanOrEqual(r.cfg.Tolerance)
			check.Diff = fields.FloatPtr(diff, true)
			check.OK = &ok
		}
	}

	switch {
	case haveTotal:
		return check, total
	case haveComputed:
		return check, computed
	default:
		return check, decimal.Zero
	}
}
