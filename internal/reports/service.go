package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pawnledger/pawnledger/internal/shared"
)

// Service builds reconciliation reports for a date range.
type Service struct {
	repo  Repository
	cache *Cache
	now   func() time.Time
}

// NewService constructs a Service instance.
func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Build assembles the reconciliation report for [from, to). Open shifts get a
// live expected-balance projection with the same formula shift close uses;
// their stored fields are never touched.
func (s *Service) Build(ctx context.Context, from, to time.Time) (*ReconciliationReport, error) {
	if !from.Before(to) {
		return nil, fmt.Errorf("%w: report range start must precede end", shared.ErrValidation)
	}

	key := fmt.Sprintf("pawnledger:report:%s:%s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	var report ReconciliationReport
	err := s.cache.FetchJSON(ctx, key, &report, func(ctx context.Context) (interface{}, error) {
		return s.build(ctx, from, to)
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *Service) build(ctx context.Context, from, to time.Time) (*ReconciliationReport, error) {
	loanDays, err := s.repo.DailyLoanTotals(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("reports: daily loan totals: %w", err)
	}
	paymentDays, err := s.repo.DailyPaymentTotals(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("reports: daily payment totals: %w", err)
	}
	statuses, err := s.repo.StatusTotals(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("reports: status totals: %w", err)
	}
	shiftRows, err := s.repo.ShiftsInRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("reports: shifts in range: %w", err)
	}

	shifts := make([]ShiftSummary, 0, len(shiftRows))
	for _, sh := range shiftRows {
		if sh.EndTime == nil {
			payments, loansGiven, err := s.repo.OpenShiftActivity(ctx, sh.OperatorID, sh.StartTime, s.now())
			if err != nil {
				return nil, fmt.Errorf("reports: open shift activity: %w", err)
			}
			sh.TotalPayments = payments
			sh.TotalLoansGiven = loansGiven
			sh.ExpectedBalance = sh.OpeningCash.Add(payments).Sub(loansGiven)
		}
		shifts = append(shifts, sh)
	}

	return &ReconciliationReport{
		From:     from,
		To:       to,
		Daily:    mergeDaily(loanDays, paymentDays),
		Statuses: statuses,
		Shifts:   shifts,
	}, nil
}

// mergeDaily folds the loan and payment day buckets into one sorted series.
func mergeDaily(loanDays, paymentDays []DailySummary) []DailySummary {
	byDay := make(map[string]DailySummary)
	for _, d := range loanDays {
		byDay[d.Date] = d
	}
	for _, p := range paymentDays {
		d := byDay[p.Date]
		d.Date = p.Date
		d.PaymentsCount = p.PaymentsCount
		d.PaymentsTotal = p.PaymentsTotal
		byDay[d.Date] = d
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	out := make([]DailySummary, 0, len(days))
	for _, day := range days {
		out = append(out, byDay[day])
	}
	return out
}
