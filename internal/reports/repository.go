package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository answers the read aggregations behind the report builder.
type Repository interface {
	DailyLoanTotals(ctx context.Context, from, to time.Time) ([]DailySummary, error)
	DailyPaymentTotals(ctx context.Context, from, to time.Time) ([]DailySummary, error)
	StatusTotals(ctx context.Context, from, to time.Time) ([]StatusSummary, error)
	ShiftsInRange(ctx context.Context, from, to time.Time) ([]ShiftSummary, error)
	OpenShiftActivity(ctx context.Context, operatorID int64, from, to time.Time) (payments, loansGiven decimal.Decimal, err error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository using the provided pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) DailyLoanTotals(ctx context.Context, from, to time.Time) ([]DailySummary, error) {
	rows, err := r.pool.Query(ctx, `SELECT to_char(loan_issued_date::date, 'YYYY-MM-DD') AS day,
		COUNT(*), COALESCE(SUM(initial_loan_amount), 0)
		FROM loans WHERE loan_issued_date >= $1 AND loan_issued_date < $2
		GROUP BY day ORDER BY day`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DailySummary
	for rows.Next() {
		var d DailySummary
		if err := rows.Scan(&d.Date, &d.LoansIssuedCount, &d.LoansIssuedTotal); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *repository) DailyPaymentTotals(ctx context.Context, from, to time.Time) ([]DailySummary, error) {
	rows, err := r.pool.Query(ctx, `SELECT to_char(paid_at::date, 'YYYY-MM-DD') AS day,
		COUNT(*), COALESCE(SUM(amount), 0)
		FROM payments WHERE paid_at >= $1 AND paid_at < $2
		GROUP BY day ORDER BY day`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DailySummary
	for rows.Next() {
		var d DailySummary
		if err := rows.Scan(&d.Date, &d.PaymentsCount, &d.PaymentsTotal); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *repository) StatusTotals(ctx context.Context, from, to time.Time) ([]StatusSummary, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*),
		COALESCE(SUM(initial_loan_amount), 0), COALESCE(SUM(remaining_balance), 0)
		FROM loans WHERE loan_issued_date >= $1 AND loan_issued_date < $2
		GROUP BY status ORDER BY status`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StatusSummary
	for rows.Next() {
		var s StatusSummary
		if err := rows.Scan(&s.Status, &s.Count, &s.PrincipalTotal, &s.RemainingTotal); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repository) ShiftsInRange(ctx context.Context, from, to time.Time) ([]ShiftSummary, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, operator_id, operator_username, start_time, end_time,
		opening_cash, closing_cash, total_payments_received, total_loans_given,
		expected_balance, difference, is_balanced
		FROM shifts WHERE start_time >= $1 AND start_time < $2
		ORDER BY start_time, id`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ShiftSummary
	for rows.Next() {
		var s ShiftSummary
		var difference decimal.Decimal
		var balanced bool
		if err := rows.Scan(&s.ShiftID, &s.OperatorID, &s.OperatorUsername, &s.StartTime, &s.EndTime,
			&s.OpeningCash, &s.ClosingCash, &s.TotalPayments, &s.TotalLoansGiven,
			&s.ExpectedBalance, &difference, &balanced); err != nil {
			return nil, err
		}
		if s.EndTime != nil {
			s.Difference = &difference
			s.IsBalanced = &balanced
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repository) OpenShiftActivity(ctx context.Context, operatorID int64, from, to time.Time) (decimal.Decimal, decimal.Decimal, error) {
	var payments, loansGiven decimal.Decimal
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM payments WHERE operator_id = $1 AND paid_at >= $2 AND paid_at < $3`,
		operatorID, from, to).Scan(&payments)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	err = r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(initial_loan_amount), 0) FROM loans WHERE created_by = $1 AND loan_issued_date >= $2 AND loan_issued_date < $3`,
		operatorID, from, to).Scan(&loansGiven)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return payments, loansGiven, nil
}
