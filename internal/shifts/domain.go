// Package shifts implements the per-till cash reconciliation engine. A shift
// is one operator's accountable cash window: opened with a declared float,
// closed exactly once against the payments received and loans issued while it
// was open.
package shifts

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pawnledger/pawnledger/internal/shared"
)

// Shift is one operator's cash drawer window. The computed fields are written
// once at close time and never recomputed; a closed shift is immutable.
type Shift struct {
	ID               int64            `json:"id" db:"id"`
	OperatorID       int64            `json:"operator_id" db:"operator_id"`
	OperatorUsername string           `json:"operator_username" db:"operator_username"`
	StartTime        time.Time        `json:"start_time" db:"start_time"`
	EndTime          *time.Time       `json:"end_time,omitempty" db:"end_time"`
	OpeningCash      decimal.Decimal  `json:"opening_cash" db:"opening_cash"`
	ClosingCash      *decimal.Decimal `json:"closing_cash,omitempty" db:"closing_cash"`
	TotalPayments    decimal.Decimal  `json:"total_payments_received" db:"total_payments_received"`
	TotalLoansGiven  decimal.Decimal  `json:"total_loans_given" db:"total_loans_given"`
	ExpectedBalance  decimal.Decimal  `json:"expected_balance" db:"expected_balance"`
	Difference       decimal.Decimal  `json:"difference" db:"difference"`
	IsBalanced       bool             `json:"is_balanced" db:"is_balanced"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at" db:"updated_at"`
}

// IsOpen reports whether the shift has not been closed yet.
func (s *Shift) IsOpen() bool {
	return s.EndTime == nil
}

// OpenShiftInput captures parameters for opening a till.
type OpenShiftInput struct {
	OpeningCash decimal.Decimal `json:"opening_cash"`
}

// Validate ensures the open input is coherent.
func (in OpenShiftInput) Validate() error {
	if in.OpeningCash.IsNegative() {
		return fmt.Errorf("%w: opening cash cannot be negative", shared.ErrInvalidAmount)
	}
	return nil
}

// CloseShiftInput captures the operator's declared drawer count at close.
type CloseShiftInput struct {
	ClosingCash decimal.Decimal `json:"closing_cash"`
}

// Validate ensures the close input is coherent.
func (in CloseShiftInput) Validate() error {
	if in.ClosingCash.IsNegative() {
		return fmt.Errorf("%w: closing cash cannot be negative", shared.ErrInvalidAmount)
	}
	return nil
}

// ListShiftsRequest filters the shift listing.
type ListShiftsRequest struct {
	OperatorID *int64     `json:"operator_id,omitempty"`
	DateFrom   *time.Time `json:"date_from,omitempty"`
	DateTo     *time.Time `json:"date_to,omitempty"`
	Limit      int        `json:"limit"`
	Offset     int        `json:"offset"`
}
