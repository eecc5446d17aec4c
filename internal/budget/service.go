// Package budget tracks per-project construction budgets: category
// allocations, running spend, and threshold alerts at 80/90/100 percent of
// a category's allocation.
package budget

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/buildsure/bill-verifier/constants"
	"github.com/buildsure/bill-verifier/internal/common"
	"github.com/buildsure/bill-verifier/internal/entity"
	"github.com/buildsure/bill-verifier/internal/repository"
)

// Alert thresholds as percentages of a category allocation.
const (
	warningThreshold  = 80.0
	criticalThreshold = 90.0
	overrunThreshold  = 100.0
)

type Service struct {
	repo   repository.BudgetRepository
	logger *slog.Logger
}

func NewService(repo repository.BudgetRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// Create sets up a project budget. Allocations must not exceed the total;
// unknown categories are rejected so spend always maps onto the taxonomy.
func (s *Service) Create(ctx context.Context, projectID string, totalBudget float64, allocations map[string]float64) (*entity.Budget, error) {
	if projectID == "" {
		return nil, common.InvalidInputf("project_id is required")
	}
	if totalBudget <= 0 {
		return nil, common.InvalidInputf("total_budget must be positive")
	}
	if len(allocations) == 0 {
		allocations = defaultAllocations(totalBudget)
	}

	totalAllocated := 0.0
	normalized := make(map[string]float64, len(allocations))
	for category, amount := range allocations {
		canonical, ok := constants.Canonicalize(category)
		if !ok {
			return nil, common.InvalidInputf("unknown category %q", category)
		}
		if amount < 0 {
			return nil, common.InvalidInputf("allocation for %s must not be negative", canonical)
		}
		normalized[string(canonical)] += amount
		totalAllocated += amount
	}
	if totalAllocated > totalBudget {
		return nil, common.InvalidInputf("total allocations (%.2f) exceed budget (%.2f)", totalAllocated, totalBudget)
	}

	now := time.Now()
	spent := make(map[string]float64, len(normalized))
	for category := range normalized {
		spent[category] = 0
	}
	b := &entity.Budget{
		ProjectID:   projectID,
		TotalBudget: totalBudget,
		Allocated:   normalized,
		Spent:       spent,
		CreatedAt:   now,
		LastUpdated: now,
	}
	if err := s.repo.Upsert(ctx, b); err != nil {
		return nil, err
	}

	s.logger.Info("budget.created", "project_id", projectID, "total_budget", totalBudget)
	return b, nil
}

// AddExpense records spend against a category and raises any threshold
// alerts the new total crosses.
func (s *Service) AddExpense(ctx context.Context, projectID, category string, amount float64) (*entity.ExpenseResult, error) {
	if amount <= 0 {
		return nil, common.InvalidInputf("expense amount must be positive")
	}
	canonical, ok := constants.Canonicalize(category)
	if !ok {
		return nil, common.InvalidInputf("unknown category %q", category)
	}

	b, err := s.repo.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	allocated, ok := b.Allocated[string(canonical)]
	if !ok {
		return nil, common.InvalidInputf("category %s not found in budget", canonical)
	}

	b.Spent[string(canonical)] += amount
	b.LastUpdated = time.Now()
	if err := s.repo.Upsert(ctx, b); err != nil {
		return nil, err
	}

	percentage := percentUsed(b.Spent[string(canonical)], allocated)
	alerts := s.checkAlerts(ctx, b, string(canonical), percentage)

	s.logger.Info("budget.expense_added",
		"project_id", projectID,
		"category", canonical,
		"amount", amount,
		"percentage_used", percentage,
	)
	return &entity.ExpenseResult{
		ProjectID:      projectID,
		Category:       string(canonical),
		AmountAdded:    amount,
		NewSpentTotal:  b.Spent[string(canonical)],
		Allocated:      allocated,
		PercentageUsed: percentage,
		Alerts:         alerts,
	}, nil
}

// Summary builds the full budget report for a project.
func (s *Service) Summary(ctx context.Context, projectID string) (*entity.BudgetSummary, error) {
	b, err := s.repo.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}

	totalAllocated := 0.0
	totalSpent := 0.0
	categories := make([]entity.CategorySummary, 0, len(b.Allocated))
	for _, category := range constants.AsStringSlice() {
		allocated, ok := b.Allocated[category]
		if !ok {
			continue
		}
		spent := b.Spent[category]
		totalAllocated += allocated
		totalSpent += spent

		percentage := percentUsed(spent, allocated)
		categories = append(categories, entity.CategorySummary{
			Category:       category,
			Allocated:      allocated,
			Spent:          spent,
			Remaining:      allocated - spent,
			PercentageUsed: round2(percentage),
			Status:         categoryStatus(percentage),
		})
	}

	return &entity.BudgetSummary{
		ProjectID:             projectID,
		TotalBudget:           b.TotalBudget,
		TotalAllocated:        totalAllocated,
		TotalSpent:            totalSpent,
		TotalRemaining:        totalAllocated - totalSpent,
		OverallPercentageUsed: round2(percentUsed(totalSpent, totalAllocated)),
		Categories:            categories,
		LastUpdated:           b.LastUpdated,
	}, nil
}

// Alerts returns stored alerts for a project, newest first, within the
// lookback window.
func (s *Service) Alerts(ctx context.Context, projectID string, days int) ([]*entity.BudgetAlert, error) {
	if days <= 0 {
		days = 30
	}
	all, err := s.repo.ListAlerts(ctx, projectID)
	if err != nil {
		return nil, err
	}
	cutoff := time.Now().AddDate(0, 0, -days)
	recent := make([]*entity.BudgetAlert, 0, len(all))
	for _, a := range all {
		if a.CreatedAt.After(cutoff) {
			recent = append(recent, a)
		}
	}
	return recent, nil
}

func (s *Service) checkAlerts(ctx context.Context, b *entity.Budget, category string, percentage float64) []entity.BudgetAlert {
	var (
		alertType string
		message   string
	)
	switch {
	case percentage > overrunThreshold:
		alertType = "overrun"
		message = fmt.Sprintf("Budget overrun in %s: %.1f%% used", category, percentage)
	case percentage > criticalThreshold:
		alertType = "critical"
		message = fmt.Sprintf("Critical budget usage in %s: %.1f%% used", category, percentage)
	case percentage > warningThreshold:
		alertType = "warning"
		message = fmt.Sprintf("Budget warning in %s: %.1f%% used", category, percentage)
	default:
		return nil
	}

	alert := entity.BudgetAlert{
		AlertID:        uuid.New(),
		ProjectID:      b.ProjectID,
		Category:       category,
		AlertType:      alertType,
		Message:        message,
		PercentageUsed: percentage,
		CreatedAt:      time.Now(),
	}
	if err := s.repo.AddAlert(ctx, &alert); err != nil {
		s.logger.Error("budget.alert_store_failed", "project_id", b.ProjectID, "error", err)
	}
	return []entity.BudgetAlert{alert}
}

func defaultAllocations(totalBudget float64) map[string]float64 {
	allocations := make(map[string]float64, len(constants.DefaultAllocations))
	for category, share := range constants.DefaultAllocations {
		allocations[string(category)] = totalBudget * share
	}
	return allocations
}

func percentUsed(spent, allocated float64) float64 {
	if allocated <= 0 {
		return 0
	}
	return spent / allocated * 100
}

func categoryStatus(percentage float64) string {
	switch {
	case percentage > overrunThreshold:
		return "overrun"
	case percentage > criticalThreshold:
		return "critical"
	case percentage > warningThreshold:
		return "warning"
	default:
		return "on_track"
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
