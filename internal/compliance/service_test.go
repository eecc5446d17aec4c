package compliance

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildsure/bill-verifier/constants"
	"github.com/buildsure/bill-verifier/internal/common"
	"github.com/buildsure/bill-verifier/internal/entity"
	"github.com/buildsure/bill-verifier/internal/repository"
)

type fakeDuplicates struct {
	dup bool
}

func (f *fakeDuplicates) HasDuplicate(ctx context.Context, vendor, invoiceNumber string, amount float64) (bool, error) {
	return f.dup, nil
}

func testService(t *testing.T, dup DuplicateChecker) *Service {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db")
	db, err := repository.Open(context.Background(), common.DatabaseConfig{DSN: dsn}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(nil) })
	require.NoError(t, db.Migrate(context.Background()))

	svc := NewService(repository.NewComplianceRepository(db, nil), dup, nil)
	require.NoError(t, svc.Seed(context.Background()))
	return svc
}

// cleanTxn passes every default rule.
func cleanTxn() TransactionData {
	now := time.Now()
	paid := now.Add(10 * 24 * time.Hour)
	return TransactionData{
		ID:              "txn-1",
		VendorGSTIN:     "29ABCDE1234F2Z5",
		VendorName:      "Acme Builders",
		InvoiceNumber:   "INV-001",
		Amount:          50000,
		TDSDeducted:     500, // 1% of 50000
		Category:        "materials",
		TransactionDate: &now,
		PaymentDate:     &paid,
		Documents: []Document{
			{Type: "invoice"}, {Type: "delivery_challan"}, {Type: "work_completion"},
		},
		AuditTrail: []map[string]any{{"timestamp": now, "user": "clerk", "action": "created"}},
	}
}

func TestRunCleanTransaction(t *testing.T) {
	svc := testService(t, &fakeDuplicates{})

	check, violations, err := svc.Run(context.Background(), cleanTxn(), "site-a")
	require.NoError(t, err)
	assert.Empty(t, violations)
	assert.Equal(t, "passed", check.Status)
	assert.Equal(t, "Found 0 compliance issues", check.Summary)
}

func TestRunMissingGSTIN(t *testing.T) {
	svc := testService(t, nil)
	txn := cleanTxn()
	txn.VendorGSTIN = ""

	check, violations, err := svc.Run(context.Background(), txn, "site-a")
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, "gstin-validation", violations[0].RuleID)
	assert.Equal(t, "GSTIN is missing from transaction", violations[0].Description)
	// gstin rule severity is error
	assert.Equal(t, "failed", check.Status)
}

func TestRunInvalidGSTINFormat(t *testing.T) {
	svc := testService(t, nil)
	txn := cleanTxn()
	txn.VendorGSTIN = "29ABCDE1234F0Z5" // zero entity code fails the stricter rule

	_, violations, err := svc.Run(context.Background(), txn, "site-a")
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0].Description, "Invalid GSTIN format")
}

func TestRunAmountAndTDS(t *testing.T) {
	svc := testService(t, nil)
	txn := cleanTxn()
	txn.Amount = 250000 // above the 200000 threshold
	txn.TDSDeducted = 0 // and TDS missing entirely

	check, violations, err := svc.Run(context.Background(), txn, "site-a")
	require.NoError(t, err)
	require.Len(t, violations, 2)

	byRule := map[string]*entity.ComplianceViolation{}
	for _, v := range violations {
		byRule[v.RuleID] = v
	}
	require.Contains(t, byRule, "invoice-amount-limit")
	require.Contains(t, byRule, "tds-compliance")
	assert.Contains(t, byRule["tds-compliance"].Description, "expected 2500")
	assert.Equal(t, "failed", check.Status)
}

func TestRunTDSWithinTolerance(t *testing.T) {
	svc := testService(t, nil)
	txn := cleanTxn()
	txn.Amount = 100000
	txn.TDSDeducted = 950 // expected 1000, within 10%

	_, violations, err := svc.Run(context.Background(), txn, "site-a")
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestRunMissingDocumentsIsWarning(t *testing.T) {
	svc := testService(t, nil)
	txn := cleanTxn()
	txn.Documents = []Document{{Type: "invoice"}}

	check, violations, err := svc.Run(context.Background(), txn, "site-a")
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, "Missing required documents: delivery_challan, work_completion", violations[0].Description)
	assert.Equal(t, "warning", check.Status)
}

func TestRunPaymentTimeline(t *testing.T) {
	svc := testService(t, nil)
	txn := cleanTxn()
	late := txn.TransactionDate.Add(60 * 24 * time.Hour)
	txn.PaymentDate = &late

	_, violations, err := svc.Run(context.Background(), txn, "site-a")
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, "Payment delayed by 60 days (limit: 45)", violations[0].Description)

	// unpaid transaction: rule passes for lack of inputs
	txn.PaymentDate = nil
	_, violations, err = svc.Run(context.Background(), txn, "site-a")
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestRunInvalidCategory(t *testing.T) {
	svc := testService(t, nil)
	txn := cleanTxn()
	txn.Category = "snacks"

	_, violations, err := svc.Run(context.Background(), txn, "site-a")
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, "Invalid expense category: snacks", violations[0].Description)
}

func TestRunMissingAuditTrail(t *testing.T) {
	svc := testService(t, nil)
	txn := cleanTxn()
	txn.AuditTrail = nil

	check, violations, err := svc.Run(context.Background(), txn, "site-a")
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, "audit-trail", violations[0].RuleID)
	// audit trail is critical
	assert.Equal(t, "failed", check.Status)
}

func TestRunDuplicateInvoice(t *testing.T) {
	svc := testService(t, &fakeDuplicates{dup: true})

	_, violations, err := svc.Run(context.Background(), cleanTxn(), "site-a")
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, "duplicate-invoice", violations[0].RuleID)
	assert.Contains(t, violations[0].Description, "INV-001")
}

func TestBillDuplicates(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db")
	db, err := repository.Open(context.Background(), common.DatabaseConfig{DSN: dsn}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(nil) })
	require.NoError(t, db.Migrate(context.Background()))
	bills := repository.NewBillRepository(db, nil)

	parsed, err := json.Marshal(map[string]any{
		"invoice_id": "INV-001",
		"vendor":     map[string]any{"name": "Acme Builders"},
	})
	require.NoError(t, err)
	require.NoError(t, bills.Create(context.Background(), &entity.Bill{
		ID: uuid.New(), Tenant: "default", Project: "site-a",
		Filename: "inv.pdf", FilePath: "/data/inv.pdf",
		Status: constants.BillStatusParsed, Parsed: parsed,
	}))

	dup := NewBillDuplicates(bills)

	found, err := dup.HasDuplicate(context.Background(), "acme builders", "inv-001", 50000)
	require.NoError(t, err)
	assert.True(t, found)

	found, err = dup.HasDuplicate(context.Background(), "Other Vendor", "INV-001", 50000)
	require.NoError(t, err)
	assert.False(t, found)

	found, err = dup.HasDuplicate(context.Background(), "Acme Builders", "INV-999", 50000)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRunPersistsViolationsAndChecks(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db")
	db, err := repository.Open(context.Background(), common.DatabaseConfig{DSN: dsn}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(nil) })
	require.NoError(t, db.Migrate(context.Background()))
	repo := repository.NewComplianceRepository(db, nil)
	svc := NewService(repo, nil, nil)
	require.NoError(t, svc.Seed(context.Background()))

	txn := cleanTxn()
	txn.VendorGSTIN = ""
	check, _, err := svc.Run(context.Background(), txn, "site-a")
	require.NoError(t, err)

	open, err := repo.ListViolations(context.Background(), "open")
	require.NoError(t, err)
	assert.Len(t, open, 1)

	checks, err := repo.ListChecks(context.Background(), "site-a")
	require.NoError(t, err)
	require.Len(t, checks, 1)
	assert.Equal(t, check.CheckID, checks[0].CheckID)
}

func TestReport(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db")
	db, err := repository.Open(context.Background(), common.DatabaseConfig{DSN: dsn}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(nil) })
	require.NoError(t, db.Migrate(context.Background()))
	repo := repository.NewComplianceRepository(db, nil)
	svc := NewService(repo, nil, nil)
	require.NoError(t, svc.Seed(context.Background()))

	// site-a: one error (missing GSTIN) and one critical (no audit trail)
	txn := cleanTxn()
	txn.VendorGSTIN = ""
	txn.AuditTrail = nil
	_, violations, err := svc.Run(context.Background(), txn, "site-a")
	require.NoError(t, err)
	require.Len(t, violations, 2)

	// site-b: one warning (missing documents)
	txn = cleanTxn()
	txn.Documents = []Document{{Type: "invoice"}}
	_, _, err = svc.Run(context.Background(), txn, "site-b")
	require.NoError(t, err)

	// outside the window, must not be counted
	require.NoError(t, repo.AddViolation(context.Background(), &entity.ComplianceViolation{
		ViolationID: uuid.New(),
		RuleID:      "gstin-validation",
		RuleName:    "GSTIN Format Validation",
		Severity:    constants.SeverityError,
		Description: "GSTIN is missing from transaction",
		DetectedAt:  time.Now().AddDate(0, 0, -60),
		Status:      "open",
		Context:     map[string]any{"project_id": "site-a"},
	}))

	for _, v := range violations {
		if v.RuleID == "gstin-validation" {
			require.NoError(t, svc.Resolve(context.Background(), v.ViolationID, "resolved", "GSTIN obtained"))
		}
	}

	report, err := svc.Report(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Equal(t, 30, report.ReportPeriod.Days)
	assert.Equal(t, 3, report.Summary.TotalViolations)
	assert.Equal(t, 2, report.Summary.OpenViolations)
	assert.Equal(t, 1, report.Summary.ResolvedViolations)
	assert.Equal(t, 1, report.Summary.CriticalViolations)
	assert.Equal(t, 1, report.Summary.ErrorViolations)
	assert.Equal(t, 1, report.Summary.WarningViolations)
	assert.Equal(t, map[string]int{
		"GSTIN Format Validation":      1,
		"Complete Audit Trail":         1,
		"Required Documentation Check": 1,
	}, report.ViolationsByRule)
	assert.Len(t, report.Violations, 3)

	scoped, err := svc.Report(context.Background(), "site-a", 30)
	require.NoError(t, err)
	assert.Equal(t, "site-a", scoped.ProjectID)
	assert.Equal(t, 2, scoped.Summary.TotalViolations)
	assert.Equal(t, 0, scoped.Summary.WarningViolations)

	wide, err := svc.Report(context.Background(), "site-a", 90)
	require.NoError(t, err)
	assert.Equal(t, 3, wide.Summary.TotalViolations)
}
