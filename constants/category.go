package constants

import (
	"strings"
)

type Category string

const (
	Materials   Category = "materials"
	Labor       Category = "labor"
	Equipment   Category = "equipment"
	Overhead    Category = "overhead"
	Contingency Category = "contingency"
	Services    Category = "services"
	Other       Category = "other"
)

var allCategories = []Category{
	Materials,
	Labor,
	Equipment,
	Overhead,
	Contingency,
	Services,
	Other,
}

// DefaultAllocations are the suggested budget shares per category for a
// construction project. They sum to 1.0.
var DefaultAllocations = map[Category]float64{
	Materials:   0.45,
	Labor:       0.25,
	Equipment:   0.15,
	Overhead:    0.10,
	Contingency: 0.05,
}

func AsStringSlice() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

func Canonicalize(input string) (Category, bool) {
	if input == "" {
		return Other, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	// synonyms map
	synonyms := map[string]Category{
		"material":    Materials,
		"supplies":    Materials,
		"cement":      Materials,
		"steel":       Materials,
		"labour":      Labor,
		"wages":       Labor,
		"rental":      Equipment,
		"machinery":   Equipment,
		"admin":       Overhead,
		"contractor":  Services,
		"subcontract": Services,
	}

	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}

	for _, cat := range allCategories {
		if normalized == string(cat) {
			return cat, true
		}
	}

	return Other, false
}
