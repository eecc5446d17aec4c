package extract

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildParsedBillSchema returns a JSON-Schema (draft 2020-12 subset) for the
// generic parsed payload as a generic map. The schema is deliberately loose:
// every business field is optional and amounts may be numbers or strings,
// since the assessment pipeline degrades on absence rather than rejecting.
func BuildParsedBillSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"vendor": map[string]any{
				"anyOf": []any{
					map[string]any{"type": "string"},
					map[string]any{"type": "object"},
				},
			},
			"vendor_gstin": map[string]any{"type": "string"},
			"invoice_id":   map[string]any{"type": "string"},
			"invoice_date": map[string]any{"type": "string"},
			"total_amount": amountProp(),
			"taxes":        amountProp(),
			"line_items": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"item":  map[string]any{"type": "string"},
						"qty":   amountProp(),
						"rate":  amountProp(),
						"total": amountProp(),
					},
				},
			},
		},
	}
}

func amountProp() map[string]any {
	return map[string]any{
		"anyOf": []any{
			map[string]any{"type": "number"},
			map[string]any{"type": "string"}, // may carry thousands separators
			map[string]any{"type": "null"},
		},
	}
}

// ValidateParsedBill validates a parsed payload against the schema above.
// Used on payloads supplied directly by API clients; extractor output is
// trusted by construction.
func ValidateParsedBill(data []byte) error {
	b, err := json.Marshal(BuildParsedBillSchema())
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("parsed-bill.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("parsed-bill.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("payload does not match schema: %w", err)
	}
	return nil
}
