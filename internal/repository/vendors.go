package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/buildsure/bill-verifier/constants"
	"github.com/buildsure/bill-verifier/internal/common"
	"github.com/buildsure/bill-verifier/internal/entity"
)

type VendorRepository interface {
	AddTransaction(ctx context.Context, t *entity.VendorTransaction) error
	GetTransaction(ctx context.Context, transactionID string) (*entity.VendorTransaction, error)
	UpdateTransaction(ctx context.Context, t *entity.VendorTransaction) error
	ListByVendor(ctx context.Context, vendorName string) ([]*entity.VendorTransaction, error)
	ListAll(ctx context.Context) ([]*entity.VendorTransaction, error)
	VendorNames(ctx context.Context) ([]string, error)
}

type vendorRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewVendorRepository(db *DB, logger *slog.Logger) VendorRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &vendorRepository{db: db, logger: logger}
}

const vendorTxnColumns = `transaction_id, vendor_name, project_id, amount, transaction_date,
	payment_date, category, status, quality_rating, delivery_rating, notes`

func (r *vendorRepository) AddTransaction(ctx context.Context, t *entity.VendorTransaction) error {
	_, err := r.db.ExecContext(ctx, r.db.rebind(
		`INSERT INTO vendor_transactions (`+vendorTxnColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		t.TransactionID, t.VendorName, t.ProjectID, t.Amount,
		formatTime(t.TransactionDate), formatTimePtr(t.PaymentDate),
		t.Category, string(t.Status), nullableInt(t.QualityRating), nullableInt(t.DeliveryRating), t.Notes)
	if err != nil {
		r.logger.Error("failed to add vendor transaction", "transaction_id", t.TransactionID, "error", err)
		return common.WrapError(err, "add vendor transaction")
	}
	return nil
}

func (r *vendorRepository) GetTransaction(ctx context.Context, transactionID string) (*entity.VendorTransaction, error) {
	row := r.db.QueryRowContext(ctx, r.db.rebind(
		`SELECT `+vendorTxnColumns+` FROM vendor_transactions WHERE transaction_id = ?`), transactionID)
	t, err := scanVendorTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundf("transaction %s not found", transactionID)
	}
	return t, err
}

func (r *vendorRepository) UpdateTransaction(ctx context.Context, t *entity.VendorTransaction) error {
	res, err := r.db.ExecContext(ctx, r.db.rebind(
		`UPDATE vendor_transactions SET payment_date = ?, status = ?, quality_rating = ?,
			delivery_rating = ?, notes = ? WHERE transaction_id = ?`),
		formatTimePtr(t.PaymentDate), string(t.Status),
		nullableInt(t.QualityRating), nullableInt(t.DeliveryRating), t.Notes, t.TransactionID)
	if err != nil {
		r.logger.Error("failed to update vendor transaction", "transaction_id", t.TransactionID, "error", err)
		return common.WrapError(err, "update vendor transaction")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.NotFoundf("transaction %s not found", t.TransactionID)
	}
	return nil
}

func (r *vendorRepository) ListByVendor(ctx context.Context, vendorName string) ([]*entity.VendorTransaction, error) {
	return r.list(ctx,
		`SELECT `+vendorTxnColumns+` FROM vendor_transactions
		 WHERE vendor_name = ? ORDER BY transaction_date`, vendorName)
}

func (r *vendorRepository) ListAll(ctx context.Context) ([]*entity.VendorTransaction, error) {
	return r.list(ctx,
		`SELECT `+vendorTxnColumns+` FROM vendor_transactions ORDER BY transaction_date`)
}

func (r *vendorRepository) VendorNames(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT vendor_name FROM vendor_transactions ORDER BY vendor_name`)
	if err != nil {
		return nil, common.WrapError(err, "list vendor names")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, common.WrapError(err, "scan vendor name")
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (r *vendorRepository) list(ctx context.Context, query string, args ...any) ([]*entity.VendorTransaction, error) {
	rows, err := r.db.QueryContext(ctx, r.db.rebind(query), args...)
	if err != nil {
		return nil, common.WrapError(err, "list vendor transactions")
	}
	defer rows.Close()

	var txns []*entity.VendorTransaction
	for rows.Next() {
		t, err := scanVendorTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func scanVendorTransaction(row rowScanner) (*entity.VendorTransaction, error) {
	var (
		t               entity.VendorTransaction
		txnDate, status string
		payDate         sql.NullString
		quality, deliv  sql.NullInt64
	)
	err := row.Scan(&t.TransactionID, &t.VendorName, &t.ProjectID, &t.Amount,
		&txnDate, &payDate, &t.Category, &status, &quality, &deliv, &t.Notes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, common.WrapError(err, "scan vendor transaction")
	}
	t.TransactionDate = parseTime(txnDate)
	t.PaymentDate = parseTimePtr(payDate)
	t.Status = constants.TxnStatus(status)
	t.QualityRating = intPtr(quality)
	t.DeliveryRating = intPtr(deliv)
	return &t, nil
}

func nullableInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
