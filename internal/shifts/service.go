package shifts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pawnledger/pawnledger/internal/shared"
)

// Service orchestrates the shift lifecycle and end-of-shift reconciliation.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService constructs a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Open starts a shift for the operator. At most one shift per operator may be
// open at a time.
func (s *Service) Open(ctx context.Context, in OpenShiftInput, operator shared.Operator) (*Shift, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetOpenByOperator(ctx, operator.UserID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("check open shift: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: operator already has an open shift", shared.ErrConflict)
	}

	now := s.now()
	shift := Shift{
		OperatorID:       operator.UserID,
		OperatorUsername: operator.Username,
		StartTime:        now,
		OpeningCash:      in.OpeningCash,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	id, err := s.repo.Create(ctx, shift)
	if err != nil {
		return nil, fmt.Errorf("open shift: %w", err)
	}
	return s.repo.Get(ctx, id)
}

// Close reconciles the drawer over the half-open window [start_time, now):
//
//	expected_balance = opening_cash + payments received − initial principal issued
//	difference       = declared closing cash − expected_balance
//
// All sums key off the operator and timestamps, and loans contribute their
// initial principal only. The write is terminal; a closed shift is never
// reopened or recomputed.
func (s *Service) Close(ctx context.Context, shiftID int64, in CloseShiftInput) (*Shift, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		shift, err := repo.GetForUpdate(ctx, shiftID)
		if err != nil {
			return fmt.Errorf("get shift: %w", err)
		}
		if !shift.IsOpen() {
			return fmt.Errorf("%w: shift already closed", shared.ErrInvalidState)
		}

		now := s.now()
		payments, err := repo.SumPaymentsInWindow(ctx, shift.OperatorID, shift.StartTime, now)
		if err != nil {
			return fmt.Errorf("sum payments: %w", err)
		}
		loansGiven, err := repo.SumLoansIssuedInWindow(ctx, shift.OperatorID, shift.StartTime, now)
		if err != nil {
			return fmt.Errorf("sum loans issued: %w", err)
		}

		expected := shift.OpeningCash.Add(payments).Sub(loansGiven)
		difference := in.ClosingCash.Sub(expected)

		shift.EndTime = &now
		shift.ClosingCash = &in.ClosingCash
		shift.TotalPayments = payments
		shift.TotalLoansGiven = loansGiven
		shift.ExpectedBalance = expected
		shift.Difference = difference
		shift.IsBalanced = difference.IsZero()

		return repo.Close(ctx, *shift)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, shiftID)
}

// Get returns a shift by id.
func (s *Service) Get(ctx context.Context, id int64) (*Shift, error) {
	return s.repo.Get(ctx, id)
}

// Current returns the operator's open shift, if any.
func (s *Service) Current(ctx context.Context, operator shared.Operator) (*Shift, error) {
	return s.repo.GetOpenByOperator(ctx, operator.UserID)
}

// List returns shifts matching the filter plus the unfiltered total.
func (s *Service) List(ctx context.Context, req ListShiftsRequest) ([]Shift, int, error) {
	return s.repo.List(ctx, req)
}
