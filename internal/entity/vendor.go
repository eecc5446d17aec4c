package entity

import (
	"time"

	"github.com/buildsure/bill-verifier/constants"
)

// VendorTransaction is one payable recorded against a vendor.
type VendorTransaction struct {
	TransactionID   string              `json:"transaction_id"`
	VendorName      string              `json:"vendor_name"`
	ProjectID       string              `json:"project_id"`
	Amount          float64             `json:"amount"`
	TransactionDate time.Time           `json:"transaction_date"`
	PaymentDate     *time.Time          `json:"payment_date,omitempty"`
	Category        string              `json:"category"`
	Status          constants.TxnStatus `json:"status"`
	QualityRating   *int                `json:"quality_rating,omitempty"`  // 1-5
	DeliveryRating  *int                `json:"delivery_rating,omitempty"` // 1-5
	Notes           string              `json:"notes"`
}

// VendorPerformance is the aggregated view of a vendor's history.
// RiskScore is 0-100, lower is better; it is a loose heuristic, not part of
// the per-invoice fraud assessment.
type VendorPerformance struct {
	VendorName           string         `json:"vendor_name"`
	TotalTransactions    int            `json:"total_transactions"`
	TotalAmount          float64        `json:"total_amount"`
	AverageTransaction   float64        `json:"average_transaction"`
	OnTimePaymentRate    float64        `json:"on_time_payment_rate"` // percent
	AverageQuality       float64        `json:"average_quality_rating"`
	AverageDelivery      float64        `json:"average_delivery_rating"`
	RiskScore            float64        `json:"risk_score"`
	RiskLevel            string         `json:"risk_level"` // "low" | "moderate" | "high" | "very_high"
	OverdueTransactions  int            `json:"overdue_transactions"`
	DisputedTransactions int            `json:"disputed_transactions"`
	ProjectsWorked       []string       `json:"projects_worked"`
	LastTransactionDate  time.Time      `json:"last_transaction_date"`
	StatusBreakdown      map[string]int `json:"status_breakdown"`
}

// VendorRecommendation scores a vendor for a category and budget range.
type VendorRecommendation struct {
	VendorName          string             `json:"vendor_name"`
	RecommendationScore float64            `json:"recommendation_score"`
	Performance         *VendorPerformance `json:"performance_summary"`
	BudgetFit           float64            `json:"budget_fit"` // percent
	Reason              string             `json:"reason"`
}
