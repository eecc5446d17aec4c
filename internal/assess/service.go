// Package assess orchestrates the verification pipeline for one extracted
// invoice: arithmetic reconciliation, GSTIN validation, and risk scoring.
package assess

import (
	"context"
	"log/slog"
	"strings"

	"github.com/buildsure/bill-verifier/internal/entity"
	"github.com/buildsure/bill-verifier/internal/fields"
	"github.com/buildsure/bill-verifier/internal/gstin"
	"github.com/buildsure/bill-verifier/internal/reconcile"
	"github.com/buildsure/bill-verifier/internal/risk"
)

// Alternate field names for the vendor block and the GSTIN across
// extraction schemas, in priority order.
var (
	gstinKeys      = []string{"vendor_gstin", "gstin", "tax_id"}
	vendorKeys     = []string{"vendor", "supplier", "Vendor"}
	vendorNameKeys = []string{"name", "vendor_name", "VendorName"}
)

// Service runs the full assessment for one parsed invoice payload. It is
// deterministic: the same payload and registry responses always yield the
// same validations and score.
type Service struct {
	reconciler *reconcile.Reconciler
	validator  *gstin.Validator
	aggregator *risk.Aggregator
	logger     *slog.Logger
}

func NewService(r *reconcile.Reconciler, v *gstin.Validator, a *risk.Aggregator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{reconciler: r, validator: v, aggregator: a, logger: logger}
}

// Assess verifies the arithmetic of the parsed payload, validates the
// vendor GSTIN when one (or a vendor name) is present, and scores the
// combined outcome. It never returns an error; missing or malformed inputs
// degrade individual signals instead.
func (s *Service) Assess(ctx context.Context, parsed map[string]any) (entity.InvoiceValidation, entity.RiskAssessment) {
	validation := s.reconciler.Validate(parsed)

	gstinValue, vendorName := vendorIdentity(parsed)
	attempted := gstinValue != "" || vendorName != ""
	if attempted {
		validation.GSTINValidation = s.validator.Validate(ctx, gstinValue, vendorName)
	}

	assessment := s.aggregator.Assess(validation, attempted)

	s.logger.Info("assess.complete",
		"lines", len(validation.Lines),
		"gstin_attempted", attempted,
		"fraud_score", assessment.Score,
	)
	return validation, assessment
}

// vendorIdentity pulls the GSTIN and vendor name out of a parsed payload.
// The vendor may be a plain string or an object; an object may also carry
// the GSTIN when the top-level keys do not.
func vendorIdentity(parsed map[string]any) (gstinValue, vendorName string) {
	gstinValue, _ = fields.FirstString(parsed, gstinKeys...)

	vendorRaw, _ := fields.First(parsed, vendorKeys...)
	switch vendor := vendorRaw.(type) {
	case string:
		vendorName = strings.TrimSpace(vendor)
	case map[string]any:
		vendorName, _ = fields.FirstString(vendor, vendorNameKeys...)
		if gstinValue == "" {
			gstinValue, _ = fields.FirstString(vendor, "gstin")
		}
	}
	return gstinValue, vendorName
}
