package compliance

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/buildsure/bill-verifier/constants"
	"github.com/buildsure/bill-verifier/internal/entity"
	"github.com/buildsure/bill-verifier/internal/repository"
)

// Stricter than the assessment-engine grammar: the entity code must not be
// zero under this regulation's reading.
var gstinRule = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][1-9A-Z]Z[0-9A-Z]$`)

// TransactionData is the transaction view the rule checks read. All fields
// are optional; a rule that lacks its inputs passes rather than erroring.
type TransactionData struct {
	ID              string
	VendorGSTIN     string
	VendorName      string
	InvoiceNumber   string
	Amount          float64
	TDSDeducted     float64
	Category        string
	TransactionDate *time.Time
	PaymentDate     *time.Time
	Documents       []Document
	AuditTrail      []map[string]any
}

type Document struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// DuplicateChecker reports whether a matching invoice was already recorded.
// The bill store implements this; a nil checker skips the rule.
type DuplicateChecker interface {
	HasDuplicate(ctx context.Context, vendorName, invoiceNumber string, amount float64) (bool, error)
}

type Service struct {
	repo       repository.ComplianceRepository
	duplicates DuplicateChecker
	logger     *slog.Logger
}

func NewService(repo repository.ComplianceRepository, duplicates DuplicateChecker, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, duplicates: duplicates, logger: logger}
}

// Seed installs the default rule set, keeping operator edits.
func (s *Service) Seed(ctx context.Context) error {
	return s.repo.SeedRules(ctx, DefaultRules())
}

func (s *Service) Rules(ctx context.Context, activeOnly bool) ([]*entity.ComplianceRule, error) {
	return s.repo.ListRules(ctx, activeOnly)
}

func (s *Service) SetRuleActive(ctx context.Context, ruleID string, active bool) error {
	return s.repo.SetRuleActive(ctx, ruleID, active)
}

func (s *Service) Violations(ctx context.Context, status string) ([]*entity.ComplianceViolation, error) {
	return s.repo.ListViolations(ctx, status)
}

func (s *Service) Resolve(ctx context.Context, violationID uuid.UUID, status, notes string) error {
	return s.repo.ResolveViolation(ctx, violationID, status, notes)
}

func (s *Service) Checks(ctx context.Context, projectID string) ([]*entity.ComplianceCheck, error) {
	return s.repo.ListChecks(ctx, projectID)
}

// Report aggregates violations detected in the trailing window into counts
// by status, severity and rule. A non-empty projectID keeps only violations
// recorded for that project; days at or below zero means 30.
func (s *Service) Report(ctx context.Context, projectID string, days int) (*entity.ComplianceReport, error) {
	if days <= 0 {
		days = 30
	}
	now := time.Now()
	start := now.AddDate(0, 0, -days)

	all, err := s.repo.ListViolations(ctx, "")
	if err != nil {
		return nil, err
	}

	report := &entity.ComplianceReport{
		ReportPeriod:     entity.ReportPeriod{StartDate: start, EndDate: now, Days: days},
		ProjectID:        projectID,
		ViolationsByRule: map[string]int{},
		Violations:       []*entity.ComplianceViolation{},
		GeneratedAt:      now,
	}
	for _, v := range all {
		if v.DetectedAt.Before(start) || v.DetectedAt.After(now) {
			continue
		}
		if projectID != "" {
			if p, _ := v.Context["project_id"].(string); p != projectID {
				continue
			}
		}
		report.Violations = append(report.Violations, v)
		report.ViolationsByRule[v.RuleName]++
		report.Summary.TotalViolations++
		if v.Status == "open" {
			report.Summary.OpenViolations++
		}
		switch v.Severity {
		case constants.SeverityCritical:
			report.Summary.CriticalViolations++
		case constants.SeverityError:
			report.Summary.ErrorViolations++
		case constants.SeverityWarning:
			report.Summary.WarningViolations++
		}
	}
	report.Summary.ResolvedViolations = report.Summary.TotalViolations - report.Summary.OpenViolations
	return report, nil
}

// Run executes every active rule against the transaction, persists the
// violations and the check record, and returns both.
func (s *Service) Run(ctx context.Context, txn TransactionData, projectID string) (*entity.ComplianceCheck, []*entity.ComplianceViolation, error) {
	rules, err := s.repo.ListRules(ctx, true)
	if err != nil {
		return nil, nil, err
	}

	var violations []*entity.ComplianceViolation
	for _, rule := range rules {
		v, err := s.execute(ctx, rule, txn)
		if err != nil {
			// a broken rule is itself a finding, not a failed check run
			violations = append(violations, &entity.ComplianceViolation{
				ViolationID:      uuid.New(),
				RuleID:           rule.ID,
				RuleName:         rule.Name,
				Severity:         constants.SeverityWarning,
				Description:      fmt.Sprintf("Rule execution failed: %v", err),
				DetectedAt:       time.Now(),
				Status:           "open",
				Context:          map[string]any{"error": err.Error()},
				RemediationNotes: "System administrator should review rule configuration",
			})
			continue
		}
		if v != nil {
			violations = append(violations, v)
		}
	}

	for _, v := range violations {
		// stamped so reports can filter violations by project later
		if v.Context == nil {
			v.Context = map[string]any{}
		}
		v.Context["project_id"] = projectID
		if err := s.repo.AddViolation(ctx, v); err != nil {
			return nil, nil, err
		}
	}

	check := &entity.ComplianceCheck{
		CheckID:         "check-" + uuid.New().String()[:8],
		ProjectID:       projectID,
		CheckDate:       time.Now(),
		CheckType:       "transaction_validation",
		Status:          checkStatus(violations),
		ViolationsFound: violationIDs(violations),
		Summary:         fmt.Sprintf("Found %d compliance issues", len(violations)),
	}
	if err := s.repo.AddCheck(ctx, check); err != nil {
		return nil, nil, err
	}

	s.logger.Info("compliance.check_complete",
		"check_id", check.CheckID,
		"project_id", projectID,
		"status", check.Status,
		"violations", len(violations),
	)
	return check, violations, nil
}

func (s *Service) execute(ctx context.Context, rule *entity.ComplianceRule, txn TransactionData) (*entity.ComplianceViolation, error) {
	switch rule.Kind {
	case entity.RuleGSTINFormat:
		return checkGSTINFormat(rule, txn), nil
	case entity.RuleAmountThreshold:
		return checkAmountThreshold(rule, txn), nil
	case entity.RuleTDSDeduction:
		return checkTDSDeduction(rule, txn), nil
	case entity.RuleDocumentation:
		return checkDocumentation(rule, txn), nil
	case entity.RulePaymentTimeline:
		return checkPaymentTimeline(rule, txn), nil
	case entity.RuleExpenseCategory:
		return checkExpenseCategory(rule, txn), nil
	case entity.RuleAuditTrail:
		return checkAuditTrail(rule, txn), nil
	case entity.RuleDuplicateInvoice:
		return s.checkDuplicateInvoice(ctx, rule, txn)
	default:
		return nil, fmt.Errorf("unknown rule kind %q", rule.Kind)
	}
}

func checkGSTINFormat(rule *entity.ComplianceRule, txn TransactionData) *entity.ComplianceViolation {
	gstin := strings.TrimSpace(txn.VendorGSTIN)
	if gstin == "" {
		return violation(rule, "GSTIN is missing from transaction",
			map[string]any{"transaction_id": txn.ID},
			"Obtain valid GSTIN from vendor")
	}
	if !gstinRule.MatchString(gstin) {
		return violation(rule, fmt.Sprintf("Invalid GSTIN format: %s", gstin),
			map[string]any{"gstin": gstin, "transaction_id": txn.ID},
			"Verify GSTIN format with vendor")
	}
	return nil
}

func checkAmountThreshold(rule *entity.ComplianceRule, txn TransactionData) *entity.ComplianceViolation {
	threshold := rule.Params.Threshold
	if threshold <= 0 {
		threshold = 200000
	}
	if txn.Amount > threshold {
		return violation(rule,
			fmt.Sprintf("Amount %g exceeds threshold of %g", txn.Amount, threshold),
			map[string]any{"amount": txn.Amount, "threshold": threshold},
			"Additional documentation may be required for high-value transactions")
	}
	return nil
}

func checkTDSDeduction(rule *entity.ComplianceRule, txn TransactionData) *entity.ComplianceViolation {
	threshold := rule.Params.Threshold
	if threshold <= 0 {
		threshold = 30000
	}
	rate := rule.Params.TDSRate
	if rate <= 0 {
		rate = 0.01
	}
	if txn.Amount <= threshold {
		return nil
	}
	expected := txn.Amount * rate
	// 10% tolerance on the expected deduction
	if math.Abs(txn.TDSDeducted-expected) > expected*0.1 {
		return violation(rule,
			fmt.Sprintf("TDS deduction mismatch: expected %g, actual %g", expected, txn.TDSDeducted),
			map[string]any{"amount": txn.Amount, "expected_tds": expected, "actual_tds": txn.TDSDeducted},
			"Verify TDS calculation and deduction")
	}
	return nil
}

func checkDocumentation(rule *entity.ComplianceRule, txn TransactionData) *entity.ComplianceViolation {
	var missing []string
	for _, required := range rule.Params.RequiredDocs {
		found := false
		for _, doc := range txn.Documents {
			if strings.EqualFold(doc.Type, required) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return violation(rule,
			fmt.Sprintf("Missing required documents: %s", strings.Join(missing, ", ")),
			map[string]any{"missing_documents": missing},
			"Obtain and attach missing documentation")
	}
	return nil
}

func checkPaymentTimeline(rule *entity.ComplianceRule, txn TransactionData) *entity.ComplianceViolation {
	if txn.TransactionDate == nil || txn.PaymentDate == nil {
		return nil
	}
	maxDays := rule.Params.MaxDays
	if maxDays <= 0 {
		maxDays = 45
	}
	days := int(txn.PaymentDate.Sub(*txn.TransactionDate).Hours() / 24)
	if days > maxDays {
		return violation(rule,
			fmt.Sprintf("Payment delayed by %d days (limit: %d)", days, maxDays),
			map[string]any{"days_delayed": days, "max_days": maxDays},
			"Improve payment processing to meet regulatory timelines")
	}
	return nil
}

func checkExpenseCategory(rule *entity.ComplianceRule, txn TransactionData) *entity.ComplianceViolation {
	category := strings.ToLower(strings.TrimSpace(txn.Category))
	for _, valid := range rule.Params.ValidCategories {
		if category == valid {
			return nil
		}
	}
	return violation(rule,
		fmt.Sprintf("Invalid expense category: %s", category),
		map[string]any{"category": category, "valid_categories": rule.Params.ValidCategories},
		"Recategorize expense according to chart of accounts")
}

func checkAuditTrail(rule *entity.ComplianceRule, txn TransactionData) *entity.ComplianceViolation {
	if len(txn.AuditTrail) == 0 {
		return violation(rule, "No audit trail found for transaction",
			map[string]any{"transaction_id": txn.ID},
			"Implement proper audit logging for all transactions")
	}
	return nil
}

func (s *Service) checkDuplicateInvoice(ctx context.Context, rule *entity.ComplianceRule, txn TransactionData) (*entity.ComplianceViolation, error) {
	if s.duplicates == nil || txn.InvoiceNumber == "" {
		return nil, nil
	}
	dup, err := s.duplicates.HasDuplicate(ctx, txn.VendorName, txn.InvoiceNumber, txn.Amount)
	if err != nil {
		return nil, err
	}
	if dup {
		return violation(rule,
			fmt.Sprintf("Possible duplicate invoice %s from %s", txn.InvoiceNumber, txn.VendorName),
			map[string]any{"vendor": txn.VendorName, "invoice_number": txn.InvoiceNumber, "amount": txn.Amount},
			"Review against previously submitted invoices before approving payment"), nil
	}
	return nil, nil
}

func violation(rule *entity.ComplianceRule, description string, context map[string]any, remediation string) *entity.ComplianceViolation {
	return &entity.ComplianceViolation{
		ViolationID:      uuid.New(),
		RuleID:           rule.ID,
		RuleName:         rule.Name,
		Severity:         rule.Severity,
		Description:      description,
		DetectedAt:       time.Now(),
		Status:           "open",
		Context:          context,
		RemediationNotes: remediation,
	}
}

func checkStatus(violations []*entity.ComplianceViolation) string {
	if len(violations) == 0 {
		return "passed"
	}
	for _, v := range violations {
		if v.Severity == constants.SeverityError || v.Severity == constants.SeverityCritical {
			return "failed"
		}
	}
	return "warning"
}

func violationIDs(violations []*entity.ComplianceViolation) []string {
	ids := make([]string, len(violations))
	for i, v := range violations {
		ids[i] = v.ViolationID.String()
	}
	return ids
}
