package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/buildsure/bill-verifier/constants"
	"github.com/buildsure/bill-verifier/internal/common"
	"github.com/buildsure/bill-verifier/internal/entity"
)

type ComplianceRepository interface {
	SeedRules(ctx context.Context, rules []*entity.ComplianceRule) error
	ListRules(ctx context.Context, activeOnly bool) ([]*entity.ComplianceRule, error)
	SetRuleActive(ctx context.Context, ruleID string, active bool) error
	AddViolation(ctx context.Context, v *entity.ComplianceViolation) error
	ListViolations(ctx context.Context, status string) ([]*entity.ComplianceViolation, error)
	ResolveViolation(ctx context.Context, violationID uuid.UUID, status, notes string) error
	AddCheck(ctx context.Context, c *entity.ComplianceCheck) error
	ListChecks(ctx context.Context, projectID string) ([]*entity.ComplianceCheck, error)
}

type complianceRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewComplianceRepository(db *DB, logger *slog.Logger) ComplianceRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &complianceRepository{db: db, logger: logger}
}

// SeedRules inserts the default rule set, leaving already-present rules
// untouched so operator edits survive restarts.
func (r *complianceRepository) SeedRules(ctx context.Context, rules []*entity.ComplianceRule) error {
	for _, rule := range rules {
		params, err := json.Marshal(rule.Params)
		if err != nil {
			return common.WrapError(err, "encode rule parameters")
		}
		_, err = r.db.ExecContext(ctx, r.db.rebind(
			`INSERT INTO compliance_rules (rule_id, rule_name, regulation, description, severity, kind, parameters, active)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (rule_id) DO NOTHING`),
			rule.ID, rule.Name, rule.Regulation, rule.Description,
			string(rule.Severity), string(rule.Kind), string(params), boolToInt(rule.Active))
		if err != nil {
			r.logger.Error("failed to seed compliance rule", "rule_id", rule.ID, "error", err)
			return common.WrapError(err, "seed compliance rule")
		}
	}
	return nil
}

func (r *complianceRepository) ListRules(ctx context.Context, activeOnly bool) ([]*entity.ComplianceRule, error) {
	query := `SELECT rule_id, rule_name, regulation, description, severity, kind, parameters, active
		 FROM compliance_rules`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY rule_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, common.WrapError(err, "list compliance rules")
	}
	defer rows.Close()

	var rules []*entity.ComplianceRule
	for rows.Next() {
		var (
			rule           entity.ComplianceRule
			severity, kind string
			params         string
			active         int
		)
		if err := rows.Scan(&rule.ID, &rule.Name, &rule.Regulation, &rule.Description,
			&severity, &kind, &params, &active); err != nil {
			return nil, common.WrapError(err, "scan compliance rule")
		}
		rule.Severity = constants.Severity(severity)
		rule.Kind = entity.RuleKind(kind)
		rule.Active = active != 0
		if err := json.Unmarshal([]byte(params), &rule.Params); err != nil {
			return nil, common.WrapError(err, "decode rule parameters")
		}
		rules = append(rules, &rule)
	}
	return rules, rows.Err()
}

func (r *complianceRepository) SetRuleActive(ctx context.Context, ruleID string, active bool) error {
	res, err := r.db.ExecContext(ctx, r.db.rebind(
		`UPDATE compliance_rules SET active = ? WHERE rule_id = ?`), boolToInt(active), ruleID)
	if err != nil {
		return common.WrapError(err, "set rule active")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.NotFoundf("rule %s not found", ruleID)
	}
	return nil
}

func (r *complianceRepository) AddViolation(ctx context.Context, v *entity.ComplianceViolation) error {
	if v.ViolationID == uuid.Nil {
		v.ViolationID = uuid.New()
	}
	contextJSON, err := json.Marshal(v.Context)
	if err != nil {
		return common.WrapError(err, "encode violation context")
	}
	_, err = r.db.ExecContext(ctx, r.db.rebind(
		`INSERT INTO compliance_violations (violation_id, rule_id, rule_name, severity, description,
			detected_date, resolved_date, status, context, remediation_notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		v.ViolationID.String(), v.RuleID, v.RuleName, string(v.Severity), v.Description,
		formatTime(v.DetectedAt), formatTimePtr(v.ResolvedAt), v.Status, string(contextJSON), v.RemediationNotes)
	if err != nil {
		r.logger.Error("failed to add violation", "rule_id", v.RuleID, "error", err)
		return common.WrapError(err, "add violation")
	}
	return nil
}

func (r *complianceRepository) ListViolations(ctx context.Context, status string) ([]*entity.ComplianceViolation, error) {
	query := `SELECT violation_id, rule_id, rule_name, severity, description, detected_date,
		resolved_date, status, context, remediation_notes FROM compliance_violations`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY detected_date DESC`

	rows, err := r.db.QueryContext(ctx, r.db.rebind(query), args...)
	if err != nil {
		return nil, common.WrapError(err, "list violations")
	}
	defer rows.Close()

	var violations []*entity.ComplianceViolation
	for rows.Next() {
		var (
			v            entity.ComplianceViolation
			id, severity string
			detected     string
			resolved     sql.NullString
			contextJSON  string
		)
		if err := rows.Scan(&id, &v.RuleID, &v.RuleName, &severity, &v.Description,
			&detected, &resolved, &v.Status, &contextJSON, &v.RemediationNotes); err != nil {
			return nil, common.WrapError(err, "scan violation")
		}
		v.ViolationID, err = uuid.Parse(id)
		if err != nil {
			return nil, common.WrapError(err, "parse violation id")
		}
		v.Severity = constants.Severity(severity)
		v.DetectedAt = parseTime(detected)
		v.ResolvedAt = parseTimePtr(resolved)
		if err := json.Unmarshal([]byte(contextJSON), &v.Context); err != nil {
			return nil, common.WrapError(err, "decode violation context")
		}
		violations = append(violations, &v)
	}
	return violations, rows.Err()
}

func (r *complianceRepository) ResolveViolation(ctx context.Context, violationID uuid.UUID, status, notes string) error {
	res, err := r.db.ExecContext(ctx, r.db.rebind(
		`UPDATE compliance_violations SET status = ?, resolved_date = ?, remediation_notes = ?
		 WHERE violation_id = ?`),
		status, formatTime(time.Now()), notes, violationID.String())
	if err != nil {
		return common.WrapError(err, "resolve violation")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.NotFoundf("violation %s not found", violationID)
	}
	return nil
}

func (r *complianceRepository) AddCheck(ctx context.Context, c *entity.ComplianceCheck) error {
	found, err := json.Marshal(c.ViolationsFound)
	if err != nil {
		return common.WrapError(err, "encode violations found")
	}
	_, err = r.db.ExecContext(ctx, r.db.rebind(
		`INSERT INTO compliance_checks (check_id, project_id, check_date, check_type, status, violations_found, summary)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`),
		c.CheckID, c.ProjectID, formatTime(c.CheckDate), c.CheckType, c.Status, string(found), c.Summary)
	if err != nil {
		r.logger.Error("failed to add compliance check", "check_id", c.CheckID, "error", err)
		return common.WrapError(err, "add compliance check")
	}
	return nil
}

func (r *complianceRepository) ListChecks(ctx context.Context, projectID string) ([]*entity.ComplianceCheck, error) {
	query := `SELECT check_id, project_id, check_date, check_type, status, violations_found, summary
		 FROM compliance_checks`
	args := []any{}
	if projectID != "" {
		query += ` WHERE project_id = ?`
		args = append(args, projectID)
	}
	query += ` ORDER BY check_date DESC`

	rows, err := r.db.QueryContext(ctx, r.db.rebind(query), args...)
	if err != nil {
		return nil, common.WrapError(err, "list compliance checks")
	}
	defer rows.Close()

	var checks []*entity.ComplianceCheck
	for rows.Next() {
		var (
			c         entity.ComplianceCheck
			checkDate string
			found     string
		)
		if err := rows.Scan(&c.CheckID, &c.ProjectID, &checkDate, &c.CheckType, &c.Status, &found, &c.Summary); err != nil {
			return nil, common.WrapError(err, "scan compliance check")
		}
		c.CheckDate = parseTime(checkDate)
		if err := json.Unmarshal([]byte(found), &c.ViolationsFound); err != nil {
			return nil, common.WrapError(err, "decode violations found")
		}
		checks = append(checks, &c)
	}
	return checks, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
