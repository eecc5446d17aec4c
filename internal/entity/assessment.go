package entity

// LineCheck is the arithmetic verification of a single extracted line item.
// Pointer fields are nil when the underlying value could not be obtained:
// a nil OK means "could not check", which is distinct from a failed check.
type LineCheck struct {
	LineIndex     int      `json:"line_index"`
	Item          *string  `json:"item"`
	Qty           *float64 `json:"qty"`
	Rate          *float64 `json:"rate"`
	Total         *float64 `json:"total"`
	ComputedTotal *float64 `json:"computed_total"`
	Diff          *float64 `json:"diff"`
	OK            *bool    `json:"ok"`
}

// InvoiceValidation aggregates per-line checks with the invoice-total
// reconciliation. SumOfLineTotals is always present; it degrades to 0 when
// no line carries any usable amount.
type InvoiceValidation struct {
	Lines           []LineCheck      `json:"lines"`
	SumOfLineTotals float64          `json:"sum_of_line_totals"`
	InvoiceTotal    *float64         `json:"invoice_total"`
	SumDiff         *float64         `json:"sum_diff"`
	SumOK           *bool            `json:"sum_ok"`
	GSTINValidation *GSTINValidation `json:"gstin_validation"`
}

// NameMatch records the fuzzy comparison between the vendor name on the
// invoice and the business name returned by the registry.
type NameMatch struct {
	FoundName  string  `json:"found_name"`
	Similarity float64 `json:"similarity"` // rounded to 3 decimals
	Match      bool    `json:"match"`
}

// GSTINValidation is the outcome of validating a vendor GSTIN.
// ExternalCheck is the registry response retained verbatim; it is nil when
// no registry is configured or the lookup did not return a 200.
type GSTINValidation struct {
	GSTIN             string         `json:"gstin"`
	ValidFormat       bool           `json:"valid_format"`
	StateCodeOK       bool           `json:"state_code_ok"`
	Notes             []string       `json:"notes"`
	ExternalCheck     map[string]any `json:"external_check,omitempty"`
	BusinessNameMatch *NameMatch     `json:"business_name_match,omitempty"`
}

// RiskAssessment is the fused fraud-risk outcome. Score is clamped to
// [0, 1] and rounded to 2 decimals; Reasons preserve evaluation order.
type RiskAssessment struct {
	Score       float64  `json:"fraud_score"`
	Reasons     []string `json:"reasons,omitempty"`
	Explanation string   `json:"fraud_explanation"`
}
