package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/buildsure/bill-verifier/constants"
)

// Bill represents an uploaded bill for data transfer between layers.
type Bill struct {
	ID        uuid.UUID            `json:"id"`
	Tenant    string               `json:"tenant"`
	Project   string               `json:"project"`
	Filename  string               `json:"filename"`
	FilePath  string               `json:"file_path"`
	Status    constants.BillStatus `json:"status"`
	Parsed    json.RawMessage      `json:"parsed,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// BillResult is the full analysis response for one bill: the extracted
// payload, the arithmetic/GSTIN validations, and the fraud assessment.
type BillResult struct {
	BillID           string            `json:"bill_id"`
	Parsed           map[string]any    `json:"parsed"`
	Validations      InvoiceValidation `json:"validations"`
	FraudScore       float64           `json:"fraud_score"`
	FraudExplanation string            `json:"fraud_explanation"`
	Status           string            `json:"status"`
}
