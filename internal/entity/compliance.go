package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/buildsure/bill-verifier/constants"
)

// RuleKind is the closed set of compliance checks. Dispatch is a switch over
// this type, so an unknown kind is a decoding error rather than a silently
// missing handler.
type RuleKind string

const (
	RuleGSTINFormat      RuleKind = "gstin_format"
	RuleAmountThreshold  RuleKind = "amount_threshold"
	RuleTDSDeduction     RuleKind = "tds_deduction"
	RuleDocumentation    RuleKind = "documentation"
	RulePaymentTimeline  RuleKind = "payment_timeline"
	RuleExpenseCategory  RuleKind = "expense_category"
	RuleAuditTrail       RuleKind = "audit_trail"
	RuleDuplicateInvoice RuleKind = "duplicate_invoice"
)

// RuleParams carries the per-kind tuning knobs. Only the fields relevant to
// the rule's kind are read.
type RuleParams struct {
	Threshold       float64  `json:"threshold,omitempty"`
	TDSRate         float64  `json:"tds_rate,omitempty"`
	RequiredDocs    []string `json:"required_docs,omitempty"`
	MaxDays         int      `json:"max_days,omitempty"`
	ValidCategories []string `json:"valid_categories,omitempty"`
	RequiredFields  []string `json:"required_fields,omitempty"`
}

// ComplianceRule is one configured regulatory check.
type ComplianceRule struct {
	ID          string             `json:"rule_id"`
	Name        string             `json:"rule_name"`
	Regulation  string             `json:"regulation"`
	Description string             `json:"description"`
	Severity    constants.Severity `json:"severity"`
	Kind        RuleKind           `json:"kind"`
	Params      RuleParams         `json:"parameters"`
	Active      bool               `json:"active"`
}

// ComplianceViolation records one failed check against a transaction.
type ComplianceViolation struct {
	ViolationID      uuid.UUID          `json:"violation_id"`
	RuleID           string             `json:"rule_id"`
	RuleName         string             `json:"rule_name"`
	Severity         constants.Severity `json:"severity"`
	Description      string             `json:"description"`
	DetectedAt       time.Time          `json:"detected_date"`
	ResolvedAt       *time.Time         `json:"resolved_date,omitempty"`
	Status           string             `json:"status"` // "open" | "resolved" | "waived"
	Context          map[string]any     `json:"context"`
	RemediationNotes string             `json:"remediation_notes"`
}

// ReportPeriod is the trailing date window a compliance report covers.
type ReportPeriod struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Days      int       `json:"days"`
}

// ComplianceSummary aggregates violation counts within a report window.
type ComplianceSummary struct {
	TotalViolations    int `json:"total_violations"`
	OpenViolations     int `json:"open_violations"`
	ResolvedViolations int `json:"resolved_violations"`
	CriticalViolations int `json:"critical_violations"`
	ErrorViolations    int `json:"error_violations"`
	WarningViolations  int `json:"warning_violations"`
}

// ComplianceReport is the windowed aggregate view over recorded violations,
// optionally scoped to one project.
type ComplianceReport struct {
	ReportPeriod     ReportPeriod           `json:"report_period"`
	ProjectID        string                 `json:"project_id,omitempty"`
	Summary          ComplianceSummary      `json:"summary"`
	ViolationsByRule map[string]int         `json:"violations_by_rule"`
	Violations       []*ComplianceViolation `json:"violations"`
	GeneratedAt      time.Time              `json:"generated_at"`
}

// ComplianceCheck is the record of one full rule run over a transaction.
type ComplianceCheck struct {
	CheckID         string    `json:"check_id"`
	ProjectID       string    `json:"project_id"`
	CheckDate       time.Time `json:"check_date"`
	CheckType       string    `json:"check_type"`
	Status          string    `json:"status"` // "passed" | "warning" | "failed"
	ViolationsFound []string  `json:"violations_found"`
	Summary         string    `json:"summary"`
}
