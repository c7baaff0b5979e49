package loans

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pawnledger/pawnledger/internal/shared"
)

// dueDateExtension is the fixed offset applied when accrued interest has been
// covered; always measured from the current due date, never from today.
const dueDateExtension = 30 * 24 * time.Hour

// transactionNumberAttempts bounds internal regeneration on collisions.
const transactionNumberAttempts = 3

var hundred = decimal.NewFromInt(100)

// Service owns the loan lifecycle: issuance, payments, principal top-ups and
// terminal transitions.
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

// Create issues a new loan. The initial principal is frozen here and never
// changes afterwards. Interest and total payable are derived from the current
// principal unless the caller supplied trusted overrides.
func (s *Service) Create(ctx context.Context, req CreateLoanRequest, operator shared.Operator) (*Loan, error) {
	if strings.TrimSpace(req.CustomerFirstName) == "" || strings.TrimSpace(req.CustomerLastName) == "" {
		return nil, fmt.Errorf("%w: customer first and last name required", shared.ErrValidation)
	}
	if !req.LoanAmount.IsPositive() {
		return nil, fmt.Errorf("%w: loan amount must be positive", shared.ErrValidation)
	}
	if !req.InterestRate.IsPositive() {
		return nil, fmt.Errorf("%w: interest rate must be positive", shared.ErrValidation)
	}
	if req.LoanTermMonths < 0 {
		return nil, fmt.Errorf("%w: loan term cannot be negative", shared.ErrValidation)
	}

	now := s.now()
	issued := now
	if req.LoanIssuedDate != nil {
		issued = *req.LoanIssuedDate
	}

	interest := req.LoanAmount.Mul(req.InterestRate).Div(hundred)
	if req.InterestAmount != nil {
		interest = *req.InterestAmount
	}
	total := req.LoanAmount.Add(interest)
	if req.TotalPayable != nil {
		total = *req.TotalPayable
	}

	loan := Loan{
		CustomerFirstName: strings.TrimSpace(req.CustomerFirstName),
		CustomerLastName:  strings.TrimSpace(req.CustomerLastName),
		ItemDescription:   req.ItemDescription,
		InitialLoanAmount: req.LoanAmount,
		LoanAmount:        req.LoanAmount,
		InterestRate:      req.InterestRate,
		InterestAmount:    interest,
		TotalPayable:      total,
		RemainingBalance:  total,
		Status:            LoanStatusActive,
		LoanIssuedDate:    issued,
		DueDate:           issued.AddDate(0, req.LoanTermMonths, 0),
		CreatedBy:         operator.UserID,
		CreatedByUsername: operator.Username,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	var id int64
	var err error
	for attempt := 0; attempt < transactionNumberAttempts; attempt++ {
		loan.TransactionNumber = s.newTransactionNumber(issued)
		id, err = s.repo.Create(ctx, loan)
		if err == nil {
			break
		}
		if !errors.Is(err, shared.ErrDuplicateTransaction) {
			return nil, fmt.Errorf("create loan: %w", err)
		}
	}
	if err != nil {
		return nil, err
	}

	return s.repo.Get(ctx, id)
}

// ApplyPayment appends a payment ledger entry. Payments never change loan
// status on their own; terminal transitions are deliberate staff actions and
// overdue promotion belongs to the due-date sweep.
func (s *Service) ApplyPayment(ctx context.Context, loanID int64, req ApplyPaymentRequest, operator shared.Operator) (*Payment, error) {
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: payment amount must be positive", shared.ErrInvalidAmount)
	}

	payment := Payment{
		LoanID:           loanID,
		Amount:           req.Amount,
		Method:           req.Method,
		PaidAt:           s.now(),
		OperatorID:       operator.UserID,
		OperatorUsername: operator.Username,
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if _, err := repo.GetForUpdate(ctx, loanID); err != nil {
			return fmt.Errorf("get loan: %w", err)
		}
		id, err := repo.InsertPayment(ctx, payment)
		if err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		payment.ID = id
		// Remaining balance may go negative on overpayment; discrepancies
		// stay visible as signed data instead of being clamped away.
		return repo.DecrementRemaining(ctx, loanID, req.Amount)
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// AddPrincipal increases the current principal of a live loan. The initial
// principal is left untouched: every cash-at-risk figure keys off the amount
// issued at creation, so a top-up can never retroactively shrink a till's
// expected balance.
func (s *Service) AddPrincipal(ctx context.Context, loanID int64, req AddPrincipalRequest) (*Loan, error) {
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: principal delta must be positive", shared.ErrInvalidAmount)
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		loan, err := repo.GetForUpdate(ctx, loanID)
		if err != nil {
			return fmt.Errorf("get loan: %w", err)
		}
		if loan.Status.IsTerminal() {
			return fmt.Errorf("%w: loan is %s", shared.ErrInvalidState, loan.Status)
		}
		return repo.AddPrincipal(ctx, loanID, req.Amount)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, loanID)
}

// Redeem closes a loan successfully. Valid from active or overdue only; a
// second redemption attempt is rejected, never silently accepted.
func (s *Service) Redeem(ctx context.Context, loanID int64, req RedeemRequest, operator shared.Operator) (*RedemptionEvent, error) {
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: redemption amount must be positive", shared.ErrInvalidAmount)
	}

	event := RedemptionEvent{
		LoanID:           loanID,
		Amount:           req.Amount,
		RedeemedAt:       s.now(),
		OperatorID:       operator.UserID,
		OperatorUsername: operator.Username,
		Notes:            req.Notes,
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		loan, err := repo.GetForUpdate(ctx, loanID)
		if err != nil {
			return fmt.Errorf("get loan: %w", err)
		}
		if loan.Status != LoanStatusActive && loan.Status != LoanStatusOverdue {
			return fmt.Errorf("%w: cannot redeem a %s loan", shared.ErrInvalidState, loan.Status)
		}
		id, err := repo.InsertRedemption(ctx, event)
		if err != nil {
			return fmt.Errorf("insert redemption: %w", err)
		}
		event.ID = id
		return repo.MarkRedeemed(ctx, loanID, event.RedeemedAt)
	})
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// Forfeit closes a loan unsuccessfully: the collateral is retained and no
// redemption amount is recorded.
func (s *Service) Forfeit(ctx context.Context, loanID int64, req ForfeitRequest, operator shared.Operator) (*ForfeitureEvent, error) {
	event := ForfeitureEvent{
		LoanID:           loanID,
		ForfeitedAt:      s.now(),
		OperatorID:       operator.UserID,
		OperatorUsername: operator.Username,
		Notes:            req.Notes,
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		loan, err := repo.GetForUpdate(ctx, loanID)
		if err != nil {
			return fmt.Errorf("get loan: %w", err)
		}
		if loan.Status != LoanStatusActive && loan.Status != LoanStatusOverdue {
			return fmt.Errorf("%w: cannot forfeit a %s loan", shared.ErrInvalidState, loan.Status)
		}
		id, err := repo.InsertForfeiture(ctx, event)
		if err != nil {
			return fmt.Errorf("insert forfeiture: %w", err)
		}
		event.ID = id
		return repo.MarkForfeited(ctx, loanID, event.ForfeitedAt)
	})
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// Reactivate is the explicit staff action that revives an overdue loan whose
// cumulative payments cover the accrued interest. The sweep never does this
// automatically. The new due date runs 30 days from today.
func (s *Service) Reactivate(ctx context.Context, loanID int64) (*Loan, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		loan, err := repo.GetForUpdate(ctx, loanID)
		if err != nil {
			return fmt.Errorf("get loan: %w", err)
		}
		if loan.Status != LoanStatusOverdue {
			return fmt.Errorf("%w: only overdue loans can be reactivated", shared.ErrInvalidState)
		}
		paid, err := repo.SumPayments(ctx, loanID)
		if err != nil {
			return fmt.Errorf("sum payments: %w", err)
		}
		if paid.LessThan(loan.InterestAmount) {
			return fmt.Errorf("%w: payments do not cover accrued interest", shared.ErrInvalidState)
		}
		return repo.ExtendDueDate(ctx, loanID, s.now().Add(dueDateExtension))
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, loanID)
}

// Get returns a loan by id.
func (s *Service) Get(ctx context.Context, id int64) (*Loan, error) {
	return s.repo.Get(ctx, id)
}

// GetByTransactionNumber returns a loan by its transaction number.
func (s *Service) GetByTransactionNumber(ctx context.Context, number string) (*Loan, error) {
	return s.repo.GetByTransactionNumber(ctx, number)
}

// List returns loans matching the filter plus the unfiltered total.
func (s *Service) List(ctx context.Context, req ListLoansRequest) ([]Loan, int, error) {
	return s.repo.List(ctx, req)
}

// Payments returns the append-only payment ledger for a loan.
func (s *Service) Payments(ctx context.Context, loanID int64) ([]Payment, error) {
	if _, err := s.repo.Get(ctx, loanID); err != nil {
		return nil, err
	}
	return s.repo.ListPayments(ctx, loanID)
}

func (s *Service) newTransactionNumber(issued time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("PL-%s-%s", issued.Format("20060102"), suffix)
}
