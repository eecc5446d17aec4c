package entity

import (
	"time"

	"github.com/google/uuid"
)

// Budget represents a project budget with per-category allocations.
type Budget struct {
	ProjectID   string             `json:"project_id"`
	TotalBudget float64            `json:"total_budget"`
	Allocated   map[string]float64 `json:"allocated_amounts"`
	Spent       map[string]float64 `json:"spent_amounts"`
	CreatedAt   time.Time          `json:"created_date"`
	LastUpdated time.Time          `json:"last_updated"`
}

// BudgetAlert is raised when category spend crosses a threshold.
type BudgetAlert struct {
	AlertID        uuid.UUID `json:"alert_id"`
	ProjectID      string    `json:"project_id"`
	Category       string    `json:"category"`
	AlertType      string    `json:"alert_type"` // "warning" | "critical" | "overrun"
	Message        string    `json:"message"`
	PercentageUsed float64   `json:"percentage_used"`
	CreatedAt      time.Time `json:"created_date"`
}

// CategorySummary is the per-category slice of a budget summary.
type CategorySummary struct {
	Category       string  `json:"category"`
	Allocated      float64 `json:"allocated"`
	Spent          float64 `json:"spent"`
	Remaining      float64 `json:"remaining"`
	PercentageUsed float64 `json:"percentage_used"`
	Status         string  `json:"status"` // "on_track" | "warning" | "critical" | "overrun"
}

// BudgetSummary is the full budget report for a project.
type BudgetSummary struct {
	ProjectID             string            `json:"project_id"`
	TotalBudget           float64           `json:"total_budget"`
	TotalAllocated        float64           `json:"total_allocated"`
	TotalSpent            float64           `json:"total_spent"`
	TotalRemaining        float64           `json:"total_remaining"`
	OverallPercentageUsed float64           `json:"overall_percentage_used"`
	Categories            []CategorySummary `json:"categories"`
	LastUpdated           time.Time         `json:"last_updated"`
}

// ExpenseResult reports the state of a category after adding an expense.
type ExpenseResult struct {
	ProjectID      string        `json:"project_id"`
	Category       string        `json:"category"`
	AmountAdded    float64       `json:"amount_added"`
	NewSpentTotal  float64       `json:"new_spent_total"`
	Allocated      float64       `json:"allocated_amount"`
	PercentageUsed float64       `json:"percentage_used"`
	Alerts         []BudgetAlert `json:"alerts"`
}
