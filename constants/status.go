package constants

// BillStatus is the canonical status for stored bills.
type BillStatus string

// Stable values (store these exact strings in DB).
const (
	BillStatusUploaded BillStatus = "UPLOADED" // PDF stored, extraction pending or failed
	BillStatusParsed   BillStatus = "PARSED"   // extraction completed, fields stored
	BillStatusAnalysed BillStatus = "ANALYSED" // assessment computed at least once
	BillStatusFailed   BillStatus = "FAILED"   // terminal failure
)

// TxnStatus is the lifecycle status of a vendor transaction.
type TxnStatus string

const (
	TxnStatusPending  TxnStatus = "pending"
	TxnStatusPaid     TxnStatus = "paid"
	TxnStatusOverdue  TxnStatus = "overdue"
	TxnStatusDisputed TxnStatus = "disputed"
)

// Severity grades compliance rules and violations.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)
