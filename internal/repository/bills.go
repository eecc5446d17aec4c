package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/buildsure/bill-verifier/constants"
	"github.com/buildsure/bill-verifier/internal/common"
	"github.com/buildsure/bill-verifier/internal/entity"
)

type BillRepository interface {
	Create(ctx context.Context, bill *entity.Bill) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Bill, error)
	List(ctx context.Context, project string) ([]*entity.Bill, error)
	SetParsed(ctx context.Context, id uuid.UUID, parsed json.RawMessage, status constants.BillStatus) error
	SetResult(ctx context.Context, id uuid.UUID, result *entity.BillResult) error
	GetResult(ctx context.Context, id uuid.UUID) (*entity.BillResult, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status constants.BillStatus) error
}

type billRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewBillRepository(db *DB, logger *slog.Logger) BillRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &billRepository{db: db, logger: logger}
}

func (r *billRepository) Create(ctx context.Context, bill *entity.Bill) error {
	now := time.Now()
	bill.CreatedAt = now
	bill.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, r.db.rebind(
		`INSERT INTO bills (id, tenant, project, filename, file_path, status, parsed, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		bill.ID.String(), bill.Tenant, bill.Project, bill.Filename, bill.FilePath,
		string(bill.Status), nullableJSON(bill.Parsed), formatTime(now), formatTime(now))
	if err != nil {
		r.logger.Error("failed to create bill", "bill_id", bill.ID, "error", err)
		return common.WrapError(err, "create bill")
	}
	return nil
}

func (r *billRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Bill, error) {
	row := r.db.QueryRowContext(ctx, r.db.rebind(
		`SELECT id, tenant, project, filename, file_path, status, parsed, created_at, updated_at
		 FROM bills WHERE id = ?`), id.String())
	return scanBill(row)
}

func (r *billRepository) List(ctx context.Context, project string) ([]*entity.Bill, error) {
	query := `SELECT id, tenant, project, filename, file_path, status, parsed, created_at, updated_at
		 FROM bills`
	args := []any{}
	if project != "" {
		query += ` WHERE project = ?`
		args = append(args, project)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, r.db.rebind(query), args...)
	if err != nil {
		r.logger.Error("failed to list bills", "project", project, "error", err)
		return nil, common.WrapError(err, "list bills")
	}
	defer rows.Close()

	var bills []*entity.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		bills = append(bills, b)
	}
	return bills, rows.Err()
}

func (r *billRepository) SetParsed(ctx context.Context, id uuid.UUID, parsed json.RawMessage, status constants.BillStatus) error {
	_, err := r.db.ExecContext(ctx, r.db.rebind(
		`UPDATE bills SET parsed = ?, status = ?, updated_at = ? WHERE id = ?`),
		string(parsed), string(status), formatTime(time.Now()), id.String())
	if err != nil {
		r.logger.Error("failed to store parsed payload", "bill_id", id, "error", err)
		return common.WrapError(err, "set parsed payload")
	}
	return nil
}

func (r *billRepository) SetResult(ctx context.Context, id uuid.UUID, result *entity.BillResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return common.WrapError(err, "encode bill result")
	}
	_, err = r.db.ExecContext(ctx, r.db.rebind(
		`UPDATE bills SET result = ?, status = ?, updated_at = ? WHERE id = ?`),
		string(data), string(constants.BillStatusAnalysed), formatTime(time.Now()), id.String())
	if err != nil {
		r.logger.Error("failed to store bill result", "bill_id", id, "error", err)
		return common.WrapError(err, "set bill result")
	}
	return nil
}

func (r *billRepository) GetResult(ctx context.Context, id uuid.UUID) (*entity.BillResult, error) {
	var raw sql.NullString
	err := r.db.QueryRowContext(ctx, r.db.rebind(
		`SELECT result FROM bills WHERE id = ?`), id.String()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundf("bill %s not found", id)
	}
	if err != nil {
		return nil, common.WrapError(err, "get bill result")
	}
	if !raw.Valid {
		return nil, nil
	}
	var result entity.BillResult
	if err := json.Unmarshal([]byte(raw.String), &result); err != nil {
		return nil, common.WrapError(err, "decode bill result")
	}
	return &result, nil
}

func (r *billRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status constants.BillStatus) error {
	_, err := r.db.ExecContext(ctx, r.db.rebind(
		`UPDATE bills SET status = ?, updated_at = ? WHERE id = ?`),
		string(status), formatTime(time.Now()), id.String())
	if err != nil {
		r.logger.Error("failed to update bill status", "bill_id", id, "status", status, "error", err)
		return common.WrapError(err, "update bill status")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBill(row rowScanner) (*entity.Bill, error) {
	var (
		b                    entity.Bill
		id, status           string
		parsed               sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(&id, &b.Tenant, &b.Project, &b.Filename, &b.FilePath, &status, &parsed, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundf("bill not found")
	}
	if err != nil {
		return nil, common.WrapError(err, "scan bill")
	}

	b.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, common.WrapError(err, "parse bill id")
	}
	b.Status = constants.BillStatus(status)
	if parsed.Valid {
		b.Parsed = json.RawMessage(parsed.String)
	}
	b.CreatedAt = parseTime(createdAt)
	b.UpdatedAt = parseTime(updatedAt)
	return &b, nil
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
