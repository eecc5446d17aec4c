package gstin

import (
	"math"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Candidate keys for the registered business name, in priority order.
// Some registries nest the record under a wrapper object.
var (
	nameKeys   = []string{"business_name", "name", "legal_name", "company", "firm", "trade_name"}
	nestedKeys = []string{"data", "result", "payload"}
)

// candidateName searches a registry payload for a business name: first the
// top-level keys, then one level down inside known wrapper objects.
func candidateName(ext map[string]any) (string, bool) {
	if name, ok := nameFromKeys(ext); ok {
		return name, true
	}
	for _, parent := range nestedKeys {
		if nested, ok := ext[parent].(map[string]any); ok {
			if name, ok := nameFromKeys(nested); ok {
				return name, true
			}
		}
	}
	return "", false
}

func nameFromKeys(m map[string]any) (string, bool) {
	for _, k := range nameKeys {
		if s, ok := m[k].(string); ok {
			if t := strings.TrimSpace(s); t != "" {
				return t, true
			}
		}
	}
	return "", false
}

// similarity returns a case-insensitive sequence-match ratio in [0, 1].
func similarity(a, b string) float64 {
	m := difflib.NewMatcher(
		strings.Split(strings.ToLower(a), ""),
		strings.Split(strings.ToLower(b), ""),
	)
	return m.Ratio()
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
