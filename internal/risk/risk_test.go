package risk

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildsure/bill-verifier/internal/entity"
)

func fptr(f float64) *float64 { return &f }
func bptr(b bool) *bool       { return &b }

func lineOK(ok bool) entity.LineCheck {
	return entity.LineCheck{OK: bptr(ok)}
}

func TestAssessCleanInvoice(t *testing.T) {
	a := New(DefaultWeights())
	v := entity.InvoiceValidation{
		Lines:           []entity.LineCheck{lineOK(true)},
		SumOfLineTotals: 1000,
		InvoiceTotal:    fptr(1000),
		SumDiff:         fptr(0),
		SumOK:           bptr(true),
		GSTINValidation: &entity.GSTINValidation{ValidFormat: true, StateCodeOK: true},
	}

	r := a.Assess(v, true)
	assert.Equal(t, 0.0, r.Score)
	assert.Empty(t, r.Reasons)
	assert.Equal(t, "Low risk - no significant arithmetic or GSTIN issues detected", r.Explanation)
}

func TestAssessTotalMismatchScaled(t *testing.T) {
	a := New(DefaultWeights())
	v := entity.InvoiceValidation{
		SumOfLineTotals: 900,
		InvoiceTotal:    fptr(1000),
		SumDiff:         fptr(-100),
		SumOK:           bptr(false),
	}

	r := a.Assess(v, true)
	// 0.5 * (100/1000) = 0.05, plus nothing else
	assert.Equal(t, 0.05, r.Score)
	require.Len(t, r.Reasons, 1)
	assert.Equal(t, "Invoice total differs from sum of lines by -100", r.Reasons[0])
}

func TestAssessTotalMismatchRelativeCapped(t *testing.T) {
	a := New(DefaultWeights())
	v := entity.InvoiceValidation{
		SumOfLineTotals: 5000,
		InvoiceTotal:    fptr(100),
		SumDiff:         fptr(4900),
		SumOK:           bptr(false),
	}

	r := a.Assess(v, true)
	// relative diff 49 capped at 1 -> flat 0.5
	assert.Equal(t, 0.5, r.Score)
}

func TestAssessTotalMismatchFlatWhenTotalUnknown(t *testing.T) {
	a := New(DefaultWeights())
	v := entity.InvoiceValidation{
		SumDiff: fptr(250),
		SumOK:   bptr(false),
	}

	r := a.Assess(v, true)
	assert.Equal(t, 0.5, r.Score)
}

func TestAssessLineIssuesCapped(t *testing.T) {
	a := New(DefaultWeights())

	v := entity.InvoiceValidation{Lines: []entity.LineCheck{lineOK(false), lineOK(false)}}
	r := a.Assess(v, true)
	assert.Equal(t, 0.1, r.Score)
	assert.Contains(t, r.Reasons, "2 line item(s) with mismatched totals")

	// seven issues would be 0.35; capped at 0.25
	var many []entity.LineCheck
	for i := 0; i < 7; i++ {
		many = append(many, lineOK(false))
	}
	r = a.Assess(entity.InvoiceValidation{Lines: many}, true)
	assert.Equal(t, 0.25, r.Score)
}

func TestAssessUncheckedLinesDoNotCount(t *testing.T) {
	a := New(DefaultWeights())
	v := entity.InvoiceValidation{
		Lines: []entity.LineCheck{{}, lineOK(true)}, // nil OK and passing OK
	}

	r := a.Assess(v, true)
	assert.Equal(t, 0.0, r.Score)
	assert.Empty(t, r.Reasons)
}

func TestAssessFormatInvalid(t *testing.T) {
	a := New(DefaultWeights())
	v := entity.InvoiceValidation{
		GSTINValidation: &entity.GSTINValidation{ValidFormat: false},
	}

	r := a.Assess(v, true)
	assert.Equal(t, 0.15, r.Score)
	assert.Equal(t, []string{"GSTIN format appears invalid"}, r.Reasons)
}

func TestAssessRegistryMiss(t *testing.T) {
	a := New(DefaultWeights())

	cases := []map[string]any{
		{"status": "not_found"},
		{"status": "not_exists", "business_name": "Acme"},
		{"status": "active"}, // no business name
		{"business_name": "  "},
	}
	for _, ext := range cases {
		v := entity.InvoiceValidation{
			GSTINValidation: &entity.GSTINValidation{ValidFormat: true, ExternalCheck: ext},
		}
		r := a.Assess(v, true)
		assert.Equal(t, 0.35, r.Score, "external=%v", ext)
		assert.Contains(t, r.Reasons, "GSTIN not found in external registry")
	}
}

func TestAssessRegistryHitIsQuiet(t *testing.T) {
	a := New(DefaultWeights())
	v := entity.InvoiceValidation{
		GSTINValidation: &entity.GSTINValidation{
			ValidFormat:   true,
			ExternalCheck: map[string]any{"status": "active", "business_name": "Acme Builders"},
		},
	}

	r := a.Assess(v, true)
	assert.Equal(t, 0.0, r.Score)
}

func TestAssessNameMismatch(t *testing.T) {
	a := New(DefaultWeights())
	v := entity.InvoiceValidation{
		GSTINValidation: &entity.GSTINValidation{
			ValidFormat:       true,
			ExternalCheck:     map[string]any{"business_name": "Gupta Steel Traders"},
			BusinessNameMatch: &entity.NameMatch{FoundName: "Gupta Steel Traders", Similarity: 0.31, Match: false},
		},
	}

	r := a.Assess(v, true)
	assert.Equal(t, 0.3, r.Score)
	assert.Equal(t, []string{"Vendor name does not match registry/business name for GSTIN"}, r.Reasons)
}

func TestAssessNameMatchBonusFlooredAtZero(t *testing.T) {
	a := New(DefaultWeights())
	v := entity.InvoiceValidation{
		GSTINValidation: &entity.GSTINValidation{
			ValidFormat:       true,
			ExternalCheck:     map[string]any{"business_name": "Acme Builders"},
			BusinessNameMatch: &entity.NameMatch{FoundName: "Acme Builders", Similarity: 1, Match: true},
		},
	}

	r := a.Assess(v, true)
	// nothing accumulated before the -0.05 bonus; floored at zero
	assert.Equal(t, 0.0, r.Score)
	assert.Equal(t, []string{"Vendor name matches registry for GSTIN"}, r.Reasons)
	assert.Equal(t, "Vendor name matches registry for GSTIN", r.Explanation)
}

func TestAssessNameMatchBonusReducesScore(t *testing.T) {
	a := New(DefaultWeights())
	v := entity.InvoiceValidation{
		Lines: []entity.LineCheck{lineOK(false), lineOK(false)},
		GSTINValidation: &entity.GSTINValidation{
			ValidFormat:       true,
			ExternalCheck:     map[string]any{"business_name": "Acme Builders"},
			BusinessNameMatch: &entity.NameMatch{FoundName: "Acme Builders", Similarity: 0.95, Match: true},
		},
	}

	r := a.Assess(v, true)
	// 0.10 from lines, -0.05 bonus
	assert.Equal(t, 0.05, r.Score)
}

func TestAssessNoGSTIN(t *testing.T) {
	a := New(DefaultWeights())

	r := a.Assess(entity.InvoiceValidation{}, false)
	assert.Equal(t, 0.1, r.Score)
	assert.Equal(t, []string{"No GSTIN provided"}, r.Reasons)
	assert.Equal(t, "No GSTIN provided", r.Explanation)
}

func TestAssessMissingGSTINExclusiveWithValidation(t *testing.T) {
	a := New(DefaultWeights())

	// validation was attempted but produced no result record; the
	// missing-GSTIN signal must not fire on top of attempted checks
	r := a.Assess(entity.InvoiceValidation{}, true)
	assert.Equal(t, 0.0, r.Score)
	assert.Empty(t, r.Reasons)
}

func TestAssessReasonOrderFixed(t *testing.T) {
	a := New(DefaultWeights())
	v := entity.InvoiceValidation{
		Lines:        []entity.LineCheck{lineOK(false)},
		InvoiceTotal: fptr(1000),
		SumDiff:      fptr(-500),
		SumOK:        bptr(false),
		GSTINValidation: &entity.GSTINValidation{
			ValidFormat:       false,
			ExternalCheck:     map[string]any{"status": "not_found"},
			BusinessNameMatch: &entity.NameMatch{Match: false},
		},
	}

	r := a.Assess(v, true)
	require.Len(t, r.Reasons, 5)
	assert.Equal(t, "Invoice total differs from sum of lines by -500", r.Reasons[0])
	assert.Equal(t, "1 line item(s) with mismatched totals", r.Reasons[1])
	assert.Equal(t, "GSTIN format appears invalid", r.Reasons[2])
	assert.Equal(t, "GSTIN not found in external registry", r.Reasons[3])
	assert.Equal(t, "Vendor name does not match registry/business name for GSTIN", r.Reasons[4])

	// 0.25 + 0.05 + 0.15 + 0.35 + 0.30 = 1.10 -> clamped
	assert.Equal(t, 1.0, r.Score)
	assert.Equal(t,
		"Invoice total differs from sum of lines by -500; "+
			"1 line item(s) with mismatched totals; "+
			"GSTIN format appears invalid; "+
			"GSTIN not found in external registry; "+
			"Vendor name does not match registry/business name for GSTIN",
		r.Explanation)
}

func TestAssessScoreAlwaysInUnitInterval(t *testing.T) {
	a := New(DefaultWeights())
	rng := rand.New(rand.NewSource(1))

	maybeBool := func() *bool {
		switch rng.Intn(3) {
		case 0:
			return bptr(true)
		case 1:
			return bptr(false)
		}
		return nil
	}
	maybeFloat := func(scale float64) *float64 {
		if rng.Intn(3) == 0 {
			return nil
		}
		return fptr((rng.Float64() - 0.5) * scale)
	}

	for i := 0; i < 1000; i++ {
		lines := make([]entity.LineCheck, rng.Intn(12))
		for j := range lines {
			lines[j] = entity.LineCheck{OK: maybeBool()}
		}
		v := entity.InvoiceValidation{
			Lines:        lines,
			InvoiceTotal: maybeFloat(100000),
			SumDiff:      maybeFloat(100000),
			SumOK:        maybeBool(),
		}
		attempted := rng.Intn(2) == 0
		if rng.Intn(2) == 0 {
			gv := &entity.GSTINValidation{
				ValidFormat: rng.Intn(2) == 0,
				StateCodeOK: rng.Intn(2) == 0,
			}
			if rng.Intn(2) == 0 {
				gv.ExternalCheck = map[string]any{
					"status":        []string{"active", "not_found", "not_exists"}[rng.Intn(3)],
					"business_name": []string{"", "Acme Builders"}[rng.Intn(2)],
				}
			}
			if rng.Intn(2) == 0 {
				gv.BusinessNameMatch = &entity.NameMatch{Match: rng.Intn(2) == 0}
			}
			v.GSTINValidation = gv
			attempted = true
		}

		r := a.Assess(v, attempted)
		require.GreaterOrEqual(t, r.Score, 0.0, "iteration %d", i)
		require.LessOrEqual(t, r.Score, 1.0, "iteration %d", i)
	}
}
