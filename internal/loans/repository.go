package loans

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

// Repository persists loans and their ledger entries.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Create(ctx context.Context, loan Loan) (int64, error)
	Get(ctx context.Context, id int64) (*Loan, error)
	GetForUpdate(ctx context.Context, id int64) (*Loan, error)
	GetByTransactionNumber(ctx context.Context, number string) (*Loan, error)
	List(ctx context.Context, req ListLoansRequest) ([]Loan, int, error)
	ListDueActive(ctx context.Context, asOf time.Time) ([]Loan, error)
	AddPrincipal(ctx context.Context, id int64, delta decimal.Decimal) error
	DecrementRemaining(ctx context.Context, id int64, amount decimal.Decimal) error
	SetStatus(ctx context.Context, id int64, status LoanStatus) error
	ExtendDueDate(ctx context.Context, id int64, newDue time.Time) error
	MarkRedeemed(ctx context.Context, id int64, at time.Time) error
	MarkForfeited(ctx context.Context, id int64, at time.Time) error
	InsertPayment(ctx context.Context, p Payment) (int64, error)
	SumPayments(ctx context.Context, loanID int64) (decimal.Decimal, error)
	ListPayments(ctx context.Context, loanID int64) ([]Payment, error)
	InsertRedemption(ctx context.Context, ev RedemptionEvent) (int64, error)
	InsertForfeiture(ctx context.Context, ev ForfeitureEvent) (int64, error)
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

// mapErr folds store-level failures into the shared taxonomy.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return shared.ErrNotFound
	case db.IsUniqueViolation(err, "loans_transaction_number_key"):
		return shared.ErrDuplicateTransaction
	case db.IsResourceExhausted(err):
		return fmt.Errorf("%w: %s", shared.ErrResourceExhausted, err)
	default:
		return err
	}
}

const loanColumns = `id, transaction_number, customer_first_name, customer_last_name, item_description,
	initial_loan_amount, loan_amount, interest_rate, interest_amount, total_payable_amount, remaining_balance,
	status, loan_issued_date, due_date, redeemed_date, forfeited_date,
	created_by, created_by_username, created_at, updated_at`

func scanLoan(row pgx.Row) (*Loan, error) {
	var l Loan
	err := row.Scan(
		&l.ID, &l.TransactionNumber, &l.CustomerFirstName, &l.CustomerLastName, &l.ItemDescription,
		&l.InitialLoanAmount, &l.LoanAmount, &l.InterestRate, &l.InterestAmount, &l.TotalPayable, &l.RemainingBalance,
		&l.Status, &l.LoanIssuedDate, &l.DueDate, &l.RedeemedDate, &l.ForfeitedDate,
		&l.CreatedBy, &l.CreatedByUsername, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return &l, nil
}

func (r *repository) Create(ctx context.Context, loan Loan) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO loans (
		transaction_number, customer_first_name, customer_last_name, item_description,
		initial_loan_amount, loan_amount, interest_rate, interest_amount, total_payable_amount, remaining_balance,
		status, loan_issued_date, due_date, created_by, created_by_username, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17) RETURNING id`,
		loan.TransactionNumber, loan.CustomerFirstName, loan.CustomerLastName, loan.ItemDescription,
		loan.InitialLoanAmount, loan.LoanAmount, loan.InterestRate, loan.InterestAmount, loan.TotalPayable, loan.RemainingBalance,
		loan.Status, loan.LoanIssuedDate, loan.DueDate, loan.CreatedBy, loan.CreatedByUsername, loan.CreatedAt, loan.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return 0, mapErr(err)
	}
	return id, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Loan, error) {
	return scanLoan(r.db.QueryRow(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = $1`, id))
}

func (r *repository) GetForUpdate(ctx context.Context, id int64) (*Loan, error) {
	return scanLoan(r.db.QueryRow(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = $1 FOR UPDATE`, id))
}

func (r *repository) GetByTransactionNumber(ctx context.Context, number string) (*Loan, error) {
	return scanLoan(r.db.QueryRow(ctx, `SELECT `+loanColumns+` FROM loans WHERE transaction_number = $1`, number))
}

func (r *repository) List(ctx context.Context, req ListLoansRequest) ([]Loan, int, error) {
	conditions := []string{"TRUE"}
	args := []interface{}{}
	argPos := 1

	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *req.Status)
		argPos++
	}
	if req.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("loan_issued_date >= $%d", argPos))
		args = append(args, *req.DateFrom)
		argPos++
	}
	if req.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("loan_issued_date <= $%d", argPos))
		args = append(args, *req.DateTo)
		argPos++
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM loans "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, mapErr(err)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf("SELECT %s FROM loans %s ORDER BY loan_issued_date DESC, id DESC LIMIT $%d OFFSET $%d",
		loanColumns, whereClause, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, mapErr(err)
	}
	defer rows.Close()

	var out []Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapErr(err)
	}
	return out, total, nil
}

func (r *repository) ListDueActive(ctx context.Context, asOf time.Time) ([]Loan, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE status = $1 AND due_date <= $2 ORDER BY due_date, id`,
		LoanStatusActive, asOf)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

// AddPrincipal applies the delta as an atomic in-database increment so
// concurrent top-ups never lose updates.
func (r *repository) AddPrincipal(ctx context.Context, id int64, delta decimal.Decimal) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE loans SET loan_amount = loan_amount + $2, updated_at = now() WHERE id = $1`,
		id, delta)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) DecrementRemaining(ctx context.Context, id int64, amount decimal.Decimal) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE loans SET remaining_balance = remaining_balance - $2, updated_at = now() WHERE id = $1`,
		id, amount)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) SetStatus(ctx context.Context, id int64, status LoanStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE loans SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) ExtendDueDate(ctx context.Context, id int64, newDue time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE loans SET due_date = $2, status = $3, updated_at = now() WHERE id = $1`,
		id, newDue, LoanStatusActive)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) MarkRedeemed(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE loans SET status = $2, redeemed_date = $3, updated_at = now() WHERE id = $1`,
		id, LoanStatusRedeemed, at)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) MarkForfeited(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE loans SET status = $2, forfeited_date = $3, updated_at = now() WHERE id = $1`,
		id, LoanStatusForfeited, at)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) InsertPayment(ctx context.Context, p Payment) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO payments (loan_id, amount, method, paid_at, operator_id, operator_username)
		VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		p.LoanID, p.Amount, p.Method, p.PaidAt, p.OperatorID, p.OperatorUsername,
	).Scan(&id)
	if err != nil {
		return 0, mapErr(err)
	}
	return id, nil
}

func (r *repository) SumPayments(ctx context.Context, loanID int64) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM payments WHERE loan_id = $1`, loanID).Scan(&sum)
	if err != nil {
		return decimal.Zero, mapErr(err)
	}
	return sum, nil
}

func (r *repository) ListPayments(ctx context.Context, loanID int64) ([]Payment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, loan_id, amount, method, paid_at, operator_id, operator_username
		 FROM payments WHERE loan_id = $1 ORDER BY paid_at, id`, loanID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.LoanID, &p.Amount, &p.Method, &p.PaidAt, &p.OperatorID, &p.OperatorUsername); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

func (r *repository) InsertRedemption(ctx context.Context, ev RedemptionEvent) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO redemption_events (loan_id, amount, redeemed_at, operator_id, operator_username, notes)
		VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		ev.LoanID, ev.Amount, ev.RedeemedAt, ev.OperatorID, ev.OperatorUsername, ev.Notes,
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err, "redemption_events_loan_id_key") {
			return 0, shared.ErrInvalidState
		}
		return 0, mapErr(err)
	}
	return id, nil
}

func (r *repository) InsertForfeiture(ctx context.Context, ev ForfeitureEvent) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO forfeiture_events (loan_id, forfeited_at, operator_id, operator_username, notes)
		VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		ev.LoanID, ev.ForfeitedAt, ev.OperatorID, ev.OperatorUsername, ev.Notes,
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err, "forfeiture_events_loan_id_key") {
			return 0, shared.ErrInvalidState
		}
		return 0, mapErr(err)
	}
	return id, nil
}
