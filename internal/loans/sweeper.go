package loans

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// SweepResult summarises one execution of the due-date sweep.
type SweepResult struct {
	Scanned  int
	Extended int
	Overdue  int
	Failed   int
}

// Sweeper advances loan status based on due dates and payment totals. It runs
// as a single global instance on a fixed schedule; overlapping runs are
// prevented by the scheduling layer, not here.
type Sweeper struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewSweeper constructs a Sweeper.
func NewSweeper(repo Repository, logger *slog.Logger) *Sweeper {
	return &Sweeper{repo: repo, logger: logger, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (sw *Sweeper) WithNow(now func() time.Time) {
	if now != nil {
		sw.now = now
	}
}

// Run executes one sweep over all active loans whose due date has passed.
// Loans with payments covering the accrued interest get their due date
// extended 30 days from the current due date; the rest go overdue. Each loan
// is handled independently: one failure is logged and the sweep continues.
// Re-running immediately is a no-op because extended loans no longer match
// the due-date filter and overdue loans are no longer active.
func (sw *Sweeper) Run(ctx context.Context) (SweepResult, error) {
	var res SweepResult

	due, err := sw.repo.ListDueActive(ctx, sw.now())
	if err != nil {
		// Nothing was touched; the next scheduled run retries from scratch.
		return res, fmt.Errorf("loans: list due loans: %w", err)
	}
	res.Scanned = len(due)

	for _, loan := range due {
		if err := sw.sweepOne(ctx, loan, &res); err != nil {
			res.Failed++
			sw.logger.Error("due-date sweep: loan update failed",
				slog.Int64("loan_id", loan.ID),
				slog.String("transaction_number", loan.TransactionNumber),
				slog.Any("error", err))
		}
	}

	sw.logger.Info("due-date sweep finished",
		slog.Int("scanned", res.Scanned),
		slog.Int("extended", res.Extended),
		slog.Int("overdue", res.Overdue),
		slog.Int("failed", res.Failed))
	return res, nil
}

func (sw *Sweeper) sweepOne(ctx context.Context, loan Loan, res *SweepResult) error {
	return sw.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		current, err := repo.GetForUpdate(ctx, loan.ID)
		if err != nil {
			return err
		}
		// The loan may have been redeemed, forfeited or extended since the
		// scan; re-check under the row lock.
		if current.Status != LoanStatusActive || current.DueDate.After(sw.now()) {
			return nil
		}

		paid, err := repo.SumPayments(ctx, loan.ID)
		if err != nil {
			return err
		}
		if paid.GreaterThanOrEqual(current.InterestAmount) {
			if err := repo.ExtendDueDate(ctx, loan.ID, current.DueDate.Add(dueDateExtension)); err != nil {
				return err
			}
			res.Extended++
			return nil
		}
		if err := repo.SetStatus(ctx, loan.ID, LoanStatusOverdue); err != nil {
			return err
		}
		res.Overdue++
		return nil
	})
}
