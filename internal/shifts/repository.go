package shifts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/pawnledger/pawnledger/internal/platform/db"
	"github.com/pawnledger/pawnledger/internal/shared"
)

// Repository persists shift records and answers the window aggregations that
// feed reconciliation.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Create(ctx context.Context, shift Shift) (int64, error)
	Get(ctx context.Context, id int64) (*Shift, error)
	GetForUpdate(ctx context.Context, id int64) (*Shift, error)
	GetOpenByOperator(ctx context.Context, operatorID int64) (*Shift, error)
	List(ctx context.Context, req ListShiftsRequest) ([]Shift, int, error)
	Close(ctx context.Context, shift Shift) error
	SumPaymentsInWindow(ctx context.Context, operatorID int64, from, to time.Time) (decimal.Decimal, error)
	SumLoansIssuedInWindow(ctx context.Context, operatorID int64, from, to time.Time) (decimal.Decimal, error)
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository using the provided pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return shared.ErrNotFound
	case db.IsUniqueViolation(err, "shifts_operator_open_key"):
		return shared.ErrConflict
	case db.IsResourceExhausted(err):
		return fmt.Errorf("%w: %s", shared.ErrResourceExhausted, err)
	default:
		return err
	}
}

const shiftColumns = `id, operator_id, operator_username, start_time, end_time, opening_cash, closing_cash,
	total_payments_received, total_loans_given, expected_balance, difference, is_balanced, created_at, updated_at`

func scanShift(row pgx.Row) (*Shift, error) {
	var s Shift
	err := row.Scan(
		&s.ID, &s.OperatorID, &s.OperatorUsername, &s.StartTime, &s.EndTime, &s.OpeningCash, &s.ClosingCash,
		&s.TotalPayments, &s.TotalLoansGiven, &s.ExpectedBalance, &s.Difference, &s.IsBalanced, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return &s, nil
}

func (r *repository) Create(ctx context.Context, shift Shift) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO shifts (
		operator_id, operator_username, start_time, opening_cash,
		total_payments_received, total_loans_given, expected_balance, difference, is_balanced,
		created_at, updated_at)
		VALUES ($1,$2,$3,$4,0,0,0,0,false,$5,$6) RETURNING id`,
		shift.OperatorID, shift.OperatorUsername, shift.StartTime, shift.OpeningCash,
		shift.CreatedAt, shift.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return 0, mapErr(err)
	}
	return id, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Shift, error) {
	return scanShift(r.db.QueryRow(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE id = $1`, id))
}

func (r *repository) GetForUpdate(ctx context.Context, id int64) (*Shift, error) {
	return scanShift(r.db.QueryRow(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE id = $1 FOR UPDATE`, id))
}

func (r *repository) GetOpenByOperator(ctx context.Context, operatorID int64) (*Shift, error) {
	return scanShift(r.db.QueryRow(ctx,
		`SELECT `+shiftColumns+` FROM shifts WHERE operator_id = $1 AND end_time IS NULL`, operatorID))
}

func (r *repository) List(ctx context.Context, req ListShiftsRequest) ([]Shift, int, error) {
	conditions := []string{"TRUE"}
	args := []interface{}{}
	argPos := 1

	if req.OperatorID != nil {
		conditions = append(conditions, fmt.Sprintf("operator_id = $%d", argPos))
		args = append(args, *req.OperatorID)
		argPos++
	}
	if req.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("start_time >= $%d", argPos))
		args = append(args, *req.DateFrom)
		argPos++
	}
	if req.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("start_time <= $%d", argPos))
		args = append(args, *req.DateTo)
		argPos++
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM shifts "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, mapErr(err)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf("SELECT %s FROM shifts %s ORDER BY start_time DESC, id DESC LIMIT $%d OFFSET $%d",
		shiftColumns, whereClause, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, mapErr(err)
	}
	defer rows.Close()

	var out []Shift
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapErr(err)
	}
	return out, total, nil
}

// Close writes the computed reconciliation fields and stamps end_time. The
// end_time IS NULL guard makes closing one-way even under races.
func (r *repository) Close(ctx context.Context, shift Shift) error {
	tag, err := r.db.Exec(ctx, `UPDATE shifts SET
		end_time = $2, closing_cash = $3,
		total_payments_received = $4, total_loans_given = $5,
		expected_balance = $6, difference = $7, is_balanced = $8,
		updated_at = now()
		WHERE id = $1 AND end_time IS NULL`,
		shift.ID, shift.EndTime, shift.ClosingCash,
		shift.TotalPayments, shift.TotalLoansGiven,
		shift.ExpectedBalance, shift.Difference, shift.IsBalanced)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrInvalidState
	}
	return nil
}

func (r *repository) SumPaymentsInWindow(ctx context.Context, operatorID int64, from, to time.Time) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM payments
		 WHERE operator_id = $1 AND paid_at >= $2 AND paid_at < $3`,
		operatorID, from, to).Scan(&sum)
	if err != nil {
		return decimal.Zero, mapErr(err)
	}
	return sum, nil
}

// SumLoansIssuedInWindow sums initial principal only: later top-ups never
// alter what a till handed out while the shift was open.
func (r *repository) SumLoansIssuedInWindow(ctx context.Context, operatorID int64, from, to time.Time) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(initial_loan_amount), 0) FROM loans
		 WHERE created_by = $1 AND loan_issued_date >= $2 AND loan_issued_date < $3`,
		operatorID, from, to).Scan(&sum)
	if err != nil {
		return decimal.Zero, mapErr(err)
	}
	return sum, nil
}
