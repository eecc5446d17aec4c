// Package fields normalizes values pulled out of extracted invoice payloads.
//
// Extraction schemas are inconsistent: the same amount may arrive as a JSON
// number, a string with thousands separators, or under any of several field
// names. Every lookup here is best-effort: a value that cannot be obtained
// is reported as absent, never as an error.
package fields

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// First returns the first non-nil value among the candidate keys, tried in
// priority order. Empty strings count as absent.
func First(m map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

// FirstString returns the first candidate key holding a non-empty string.
func FirstString(m map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, isStr := v.(string); isStr {
				if t := strings.TrimSpace(s); t != "" {
					return t, true
				}
			}
		}
	}
	return "", false
}

// Number converts a raw extracted value into a decimal. Strings may carry
// thousands separators ("12,345.50"). A missing or unparseable value is
// absent, not an error.
func Number(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case nil:
		return decimal.Zero, false
	case decimal.Decimal:
		return t, true
	case float64:
		return decimal.NewFromFloat(t), true
	case float32:
		return decimal.NewFromFloat32(t), true
	case int:
		return decimal.NewFromInt(int64(t)), true
	case int64:
		return decimal.NewFromInt(t), true
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		return d, err == nil
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(t), ",", "")
		if s == "" {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(s)
		return d, err == nil
	default:
		return decimal.Zero, false
	}
}

// FirstNumber normalizes the first candidate key that yields a number.
func FirstNumber(m map[string]any, keys ...string) (decimal.Decimal, bool) {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		if d, ok := Number(v); ok {
			return d, true
		}
	}
	return decimal.Zero, false
}

// Float returns the float64 value of d for serialization. Money values are
// rounded to 2 decimals before this is called.
func Float(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// FloatPtr is Float for optional values.
func FloatPtr(d decimal.Decimal, present bool) *float64 {
	if !present {
		return nil
	}
	f := Float(d)
	return &f
}
