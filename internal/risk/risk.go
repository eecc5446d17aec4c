// Package risk fuses reconciliation and GSTIN outcomes into a single
// bounded fraud score with ordered, human-readable reasons. The signals
// accumulate in a fixed evaluation order so equal inputs always produce
// identical reason lists.
package risk

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/buildsure/bill-verifier/internal/entity"
)

const lowRiskExplanation = "Low risk - no significant arithmetic or GSTIN issues detected"

// Weights holds the contribution of each risk signal. The defaults are the
// reference heuristic; they are not a calibrated probability model.
type Weights struct {
	TotalMismatch  float64 // scaled by relative difference when the invoice total is known
	PerLineIssue   float64
	LineIssueCap   float64
	FormatInvalid  float64
	RegistryMiss   float64
	NameMismatch   float64
	NameMatchBonus float64 // subtracted on a positive name match, floored at 0
	MissingGSTIN   float64
}

func DefaultWeights() Weights {
	return Weights{
		TotalMismatch:  0.5,
		PerLineIssue:   0.05,
		LineIssueCap:   0.25,
		FormatInvalid:  0.15,
		RegistryMiss:   0.35,
		NameMismatch:   0.30,
		NameMatchBonus: 0.05,
		MissingGSTIN:   0.10,
	}
}

// Aggregator scores invoices. It is stateless and safe for concurrent use.
type Aggregator struct {
	w Weights
}

func New(w Weights) *Aggregator {
	if w == (Weights{}) {
		w = DefaultWeights()
	}
	return &Aggregator{w: w}
}

// Assess derives the fraud score from a validation outcome.
// gstinAttempted distinguishes "GSTIN checked" from "nothing to check": the
// missing-GSTIN signal fires only when no validation was attempted at all.
func (a *Aggregator) Assess(v entity.InvoiceValidation, gstinAttempted bool) entity.RiskAssessment {
	score := 0.0
	var reasons []string

	// 1) invoice total vs sum of lines
	if v.SumOK != nil && !*v.SumOK && v.SumDiff != nil {
		add := a.w.TotalMismatch
		if v.InvoiceTotal != nil && *v.InvoiceTotal != 0 {
			rel := math.Abs(*v.SumDiff) / math.Abs(*v.InvoiceTotal)
			add = a.w.TotalMismatch * math.Min(rel, 1.0)
		}
		score += add
		reasons = append(reasons,
			fmt.Sprintf("Invoice total differs from sum of lines by %s", formatAmount(*v.SumDiff)))
	}

	// 2) per-line discrepancies add smaller incremental risk
	lineIssues := 0
	for _, lc := range v.Lines {
		if lc.OK != nil && !*lc.OK {
			lineIssues++
		}
	}
	if lineIssues > 0 {
		score += math.Min(a.w.LineIssueCap, a.w.PerLineIssue*float64(lineIssues))
		reasons = append(reasons,
			fmt.Sprintf("%d line item(s) with mismatched totals", lineIssues))
	}

	// 3) GSTIN-based signals
	if gv := v.GSTINValidation; gv != nil {
		if !gv.ValidFormat {
			score += a.w.FormatInvalid
			reasons = append(reasons, "GSTIN format appears invalid")
		}

		if registryMiss(gv.ExternalCheck) {
			score += a.w.RegistryMiss
			reasons = append(reasons, "GSTIN not found in external registry")
		}

		if bn := gv.BusinessNameMatch; bn != nil {
			if bn.Match {
				score = math.Max(0, score-a.w.NameMatchBonus)
				reasons = append(reasons, "Vendor name matches registry for GSTIN")
			} else {
				score += a.w.NameMismatch
				reasons = append(reasons, "Vendor name does not match registry/business name for GSTIN")
			}
		}
	} else if !gstinAttempted {
		score += a.w.MissingGSTIN
		reasons = append(reasons, "No GSTIN provided")
	}

	score = math.Min(1, math.Max(0, score))
	score = math.Round(score*100) / 100

	explanation := lowRiskExplanation
	if len(reasons) > 0 {
		explanation = strings.Join(reasons, "; ")
	}

	return entity.RiskAssessment{
		Score:       score,
		Reasons:     reasons,
		Explanation: explanation,
	}
}

// registryMiss reports whether a registry payload exists but indicates the
// GSTIN is unknown: an explicit not-found status, or no business name.
func registryMiss(external map[string]any) bool {
	if external == nil {
		return false
	}
	if status, ok := external["status"].(string); ok {
		if status == "not_found" || status == "not_exists" {
			return true
		}
	}
	name, _ := external["business_name"].(string)
	return strings.TrimSpace(name) == ""
}

// formatAmount renders a monetary difference without trailing zeros, so
// -0.5 reads "-0.5" rather than "-0.500000".
func formatAmount(f float64) string {
	return decimal.NewFromFloat(f).String()
}
