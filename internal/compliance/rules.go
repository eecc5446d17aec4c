// Package compliance runs configurable regulatory checks over transaction
// data: GST formatting, TDS deduction, payment timelines, documentation,
// and related construction-industry rules.
package compliance

import (
	"github.com/buildsure/bill-verifier/constants"
	"github.com/buildsure/bill-verifier/internal/entity"
)

// DefaultRules is the standard construction-industry rule set seeded on
// first start. Operators can deactivate rules afterwards.
func DefaultRules() []*entity.ComplianceRule {
	return []*entity.ComplianceRule{
		{
			ID:          "gstin-validation",
			Name:        "GSTIN Format Validation",
			Regulation:  "GST Act 2017",
			Description: "Validate GSTIN format and check digit",
			Severity:    constants.SeverityError,
			Kind:        entity.RuleGSTINFormat,
			Active:      true,
		},
		{
			ID:          "invoice-amount-limit",
			Name:        "Invoice Amount Threshold Check",
			Regulation:  "Income Tax Act",
			Description: "Check for invoices exceeding threshold limits",
			Severity:    constants.SeverityWarning,
			Kind:        entity.RuleAmountThreshold,
			Params:      entity.RuleParams{Threshold: 200000},
			Active:      true,
		},
		{
			ID:          "tds-compliance",
			Name:        "TDS Deduction Compliance",
			Regulation:  "Income Tax Act Section 194C",
			Description: "Ensure TDS is deducted for contractor payments above threshold",
			Severity:    constants.SeverityError,
			Kind:        entity.RuleTDSDeduction,
			Params:      entity.RuleParams{Threshold: 30000, TDSRate: 0.01},
			Active:      true,
		},
		{
			ID:          "documentation-completeness",
			Name:        "Required Documentation Check",
			Regulation:  "Contract Law",
			Description: "Verify all required documents are present",
			Severity:    constants.SeverityWarning,
			Kind:        entity.RuleDocumentation,
			Params:      entity.RuleParams{RequiredDocs: []string{"invoice", "delivery_challan", "work_completion"}},
			Active:      true,
		},
		{
			ID:          "payment-timeline",
			Name:        "Payment Timeline Compliance",
			Regulation:  "MSME Act 2006",
			Description: "Ensure payments are made within regulatory timeframes",
			Severity:    constants.SeverityError,
			Kind:        entity.RulePaymentTimeline,
			Params:      entity.RuleParams{MaxDays: 45},
			Active:      true,
		},
		{
			ID:          "expense-categorization",
			Name:        "Proper Expense Categorization",
			Regulation:  "Accounting Standards",
			Description: "Verify expenses are properly categorized",
			Severity:    constants.SeverityWarning,
			Kind:        entity.RuleExpenseCategory,
			Params:      entity.RuleParams{ValidCategories: []string{"materials", "labor", "equipment", "overhead", "services"}},
			Active:      true,
		},
		{
			ID:          "audit-trail",
			Name:        "Complete Audit Trail",
			Regulation:  "Companies Act 2013",
			Description: "Ensure complete audit trail for all transactions",
			Severity:    constants.SeverityCritical,
			Kind:        entity.RuleAuditTrail,
			Params:      entity.RuleParams{RequiredFields: []string{"timestamp", "user", "action", "before", "after"}},
			Active:      true,
		},
		{
			ID:          "duplicate-invoice",
			Name:        "Duplicate Invoice Detection",
			Regulation:  "Internal Control",
			Description: "Detect potential duplicate invoice submissions",
			Severity:    constants.SeverityError,
			Kind:        entity.RuleDuplicateInvoice,
			Active:      true,
		},
	}
}
