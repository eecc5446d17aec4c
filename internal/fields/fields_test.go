package fields

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumber(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    string
		present bool
	}{
		{"nil is absent", nil, "", false},
		{"json number", 77000.0, "77000", true},
		{"int", 200, "200", true},
		{"plain string", "385", "385", true},
		{"thousands separators", "12,345.50", "12345.5", true},
		{"indian grouping", "77,00,000", "7700000", true},
		{"negative string", "-42.10", "-42.1", true},
		{"empty string", "", "", false},
		{"whitespace string", "   ", "", false},
		{"garbage string", "N/A", "", false},
		{"bool", true, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := Number(tt.in)
			assert.Equal(t, tt.present, ok)
			if tt.present {
				assert.Equal(t, tt.want, d.String())
			}
		})
	}
}

func TestNumberExactness(t *testing.T) {
	// "12,345.50" must normalize to exactly 12345.50.
	d, ok := Number("12,345.50")
	require.True(t, ok)
	assert.True(t, d.Equal(decimal.RequireFromString("12345.50")))
}

func TestNumberJSONNumber(t *testing.T) {
	d, ok := Number(json.Number("1234.56"))
	require.True(t, ok)
	assert.Equal(t, "1234.56", d.String())
}

func TestFirstNumber(t *testing.T) {
	m := map[string]any{
		"quantity": "12",
		"rate":     nil,
		"price":    385.0,
		"total":    "not-a-number",
		"amount":   "77,000",
	}

	d, ok := FirstNumber(m, "qty", "quantity")
	require.True(t, ok)
	assert.Equal(t, "12", d.String())

	// nil then unparseable values are skipped, not fatal
	d, ok = FirstNumber(m, "rate", "unit_price", "price")
	require.True(t, ok)
	assert.Equal(t, "385", d.String())

	d, ok = FirstNumber(m, "total", "amount")
	require.True(t, ok)
	assert.Equal(t, "77000", d.String())

	_, ok = FirstNumber(m, "missing", "also_missing")
	assert.False(t, ok)
}

func TestFirstString(t *testing.T) {
	m := map[string]any{
		"item":        "",
		"description": "  TMT Steel Bars  ",
		"qty":         5.0,
	}

	s, ok := FirstString(m, "item", "description")
	require.True(t, ok)
	assert.Equal(t, "TMT Steel Bars", s)

	// non-string values are not coerced
	_, ok = FirstString(m, "qty")
	assert.False(t, ok)
}

func TestFirst(t *testing.T) {
	m := map[string]any{
		"vendor": map[string]any{"name": "ABC Construction"},
		"empty":  "",
	}

	v, ok := First(m, "supplier", "vendor")
	require.True(t, ok)
	assert.IsType(t, map[string]any{}, v)

	_, ok = First(m, "empty", "nope")
	assert.False(t, ok)
}
