package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/buildsure/bill-verifier/internal/common"
	"github.com/buildsure/bill-verifier/internal/entity"
)

// alertRetention caps stored alerts per project; the oldest are pruned on
// insert.
const alertRetention = 100

type BudgetRepository interface {
	Upsert(ctx context.Context, b *entity.Budget) error
	Get(ctx context.Context, projectID string) (*entity.Budget, error)
	AddAlert(ctx context.Context, a *entity.BudgetAlert) error
	ListAlerts(ctx context.Context, projectID string) ([]*entity.BudgetAlert, error)
}

type budgetRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewBudgetRepository(db *DB, logger *slog.Logger) BudgetRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &budgetRepository{db: db, logger: logger}
}

func (r *budgetRepository) Upsert(ctx context.Context, b *entity.Budget) error {
	allocated, err := json.Marshal(b.Allocated)
	if err != nil {
		return common.WrapError(err, "encode allocations")
	}
	spent, err := json.Marshal(b.Spent)
	if err != nil {
		return common.WrapError(err, "encode spent amounts")
	}

	_, err = r.db.ExecContext(ctx, r.db.rebind(
		`INSERT INTO budgets (project_id, total_budget, allocated, spent, created_at, last_updated)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (project_id) DO UPDATE SET
			total_budget = excluded.total_budget,
			allocated = excluded.allocated,
			spent = excluded.spent,
			last_updated = excluded.last_updated`),
		b.ProjectID, b.TotalBudget, string(allocated), string(spent),
		formatTime(b.CreatedAt), formatTime(b.LastUpdated))
	if err != nil {
		r.logger.Error("failed to upsert budget", "project_id", b.ProjectID, "error", err)
		return common.WrapError(err, "upsert budget")
	}
	return nil
}

func (r *budgetRepository) Get(ctx context.Context, projectID string) (*entity.Budget, error) {
	var (
		b                      entity.Budget
		allocated, spent       string
		createdAt, lastUpdated string
	)
	err := r.db.QueryRowContext(ctx, r.db.rebind(
		`SELECT project_id, total_budget, allocated, spent, created_at, last_updated
		 FROM budgets WHERE project_id = ?`), projectID).
		Scan(&b.ProjectID, &b.TotalBudget, &allocated, &spent, &createdAt, &lastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundf("no budget found for project %s", projectID)
	}
	if err != nil {
		return nil, common.WrapError(err, "get budget")
	}

	if err := json.Unmarshal([]byte(allocated), &b.Allocated); err != nil {
		return nil, common.WrapError(err, "decode allocations")
	}
	if err := json.Unmarshal([]byte(spent), &b.Spent); err != nil {
		return nil, common.WrapError(err, "decode spent amounts")
	}
	b.CreatedAt = parseTime(createdAt)
	b.LastUpdated = parseTime(lastUpdated)
	return &b, nil
}

func (r *budgetRepository) AddAlert(ctx context.Context, a *entity.BudgetAlert) error {
	if a.AlertID == uuid.Nil {
		a.AlertID = uuid.New()
	}
	_, err := r.db.ExecContext(ctx, r.db.rebind(
		`INSERT INTO budget_alerts (alert_id, project_id, category, alert_type, message, percentage_used, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`),
		a.AlertID.String(), a.ProjectID, a.Category, a.AlertType, a.Message,
		a.PercentageUsed, formatTime(a.CreatedAt))
	if err != nil {
		r.logger.Error("failed to add budget alert", "project_id", a.ProjectID, "error", err)
		return common.WrapError(err, "add budget alert")
	}

	// prune beyond the retention window
	_, err = r.db.ExecContext(ctx, r.db.rebind(
		`DELETE FROM budget_alerts WHERE project_id = ? AND alert_id NOT IN (
			SELECT alert_id FROM budget_alerts WHERE project_id = ?
			ORDER BY created_at DESC LIMIT ?
		 )`), a.ProjectID, a.ProjectID, alertRetention)
	if err != nil {
		r.logger.Warn("failed to prune budget alerts", "project_id", a.ProjectID, "error", err)
	}
	return nil
}

func (r *budgetRepository) ListAlerts(ctx context.Context, projectID string) ([]*entity.BudgetAlert, error) {
	rows, err := r.db.QueryContext(ctx, r.db.rebind(
		`SELECT alert_id, project_id, category, alert_type, message, percentage_used, created_at
		 FROM budget_alerts WHERE project_id = ? ORDER BY created_at DESC`), projectID)
	if err != nil {
		return nil, common.WrapError(err, "list budget alerts")
	}
	defer rows.Close()

	var alerts []*entity.BudgetAlert
	for rows.Next() {
		var (
			a         entity.BudgetAlert
			id        string
			createdAt string
		)
		if err := rows.Scan(&id, &a.ProjectID, &a.Category, &a.AlertType, &a.Message, &a.PercentageUsed, &createdAt); err != nil {
			return nil, common.WrapError(err, "scan budget alert")
		}
		a.AlertID, err = uuid.Parse(id)
		if err != nil {
			return nil, common.WrapError(err, "parse alert id")
		}
		a.CreatedAt = parseTime(createdAt)
		alerts = append(alerts, &a)
	}
	return alerts, rows.Err()
}
