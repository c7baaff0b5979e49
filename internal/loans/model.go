package loans

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoanStatus enumerates the loan lifecycle stages.
type LoanStatus string

const (
	LoanStatusActive    LoanStatus = "active"
	LoanStatusOverdue   LoanStatus = "overdue"
	LoanStatusRedeemed  LoanStatus = "redeemed"
	LoanStatusForfeited LoanStatus = "forfeited"
)

// IsTerminal reports whether the status has no outgoing transitions.
func (s LoanStatus) IsTerminal() bool {
	return s == LoanStatusRedeemed || s == LoanStatusForfeited
}

// Loan is a pawn loan from issuance to terminal disposition.
//
// InitialLoanAmount is frozen at creation and is the sole basis for any
// cash-at-risk computation. LoanAmount is the current principal and may grow
// through top-ups; it must never feed shift balance math.
type Loan struct {
	ID                int64           `json:"id" db:"id"`
	TransactionNumber string          `json:"transaction_number" db:"transaction_number"`
	CustomerFirstName string          `json:"customer_first_name" db:"customer_first_name"`
	CustomerLastName  string          `json:"customer_last_name" db:"customer_last_name"`
	ItemDescription   *string         `json:"item_description,omitempty" db:"item_description"`
	InitialLoanAmount decimal.Decimal `json:"initial_loan_amount" db:"initial_loan_amount"`
	LoanAmount        decimal.Decimal `json:"loan_amount" db:"loan_amount"`
	InterestRate      decimal.Decimal `json:"interest_rate" db:"interest_rate"`
	InterestAmount    decimal.Decimal `json:"interest_amount" db:"interest_amount"`
	TotalPayable      decimal.Decimal `json:"total_payable_amount" db:"total_payable_amount"`
	RemainingBalance  decimal.Decimal `json:"remaining_balance" db:"remaining_balance"`
	Status            LoanStatus      `json:"status" db:"status"`
	LoanIssuedDate    time.Time       `json:"loan_issued_date" db:"loan_issued_date"`
	DueDate           time.Time       `json:"due_date" db:"due_date"`
	RedeemedDate      *time.Time      `json:"redeemed_date,omitempty" db:"redeemed_date"`
	ForfeitedDate     *time.Time      `json:"forfeited_date,omitempty" db:"forfeited_date"`
	CreatedBy         int64           `json:"created_by" db:"created_by"`
	CreatedByUsername string          `json:"created_by_username" db:"created_by_username"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// Payment is an append-only record of money received against a loan.
type Payment struct {
	ID               int64           `json:"id" db:"id"`
	LoanID           int64           `json:"loan_id" db:"loan_id"`
	Amount           decimal.Decimal `json:"amount" db:"amount"`
	Method           string          `json:"method" db:"method"`
	PaidAt           time.Time       `json:"paid_at" db:"paid_at"`
	OperatorID       int64           `json:"operator_id" db:"operator_id"`
	OperatorUsername string          `json:"operator_username" db:"operator_username"`
}

// RedemptionEvent records the transition that closed a loan successfully.
type RedemptionEvent struct {
	ID               int64           `json:"id" db:"id"`
	LoanID           int64           `json:"loan_id" db:"loan_id"`
	Amount           decimal.Decimal `json:"amount" db:"amount"`
	RedeemedAt       time.Time       `json:"redeemed_at" db:"redeemed_at"`
	OperatorID       int64           `json:"operator_id" db:"operator_id"`
	OperatorUsername string          `json:"operator_username" db:"operator_username"`
	Notes            *string         `json:"notes,omitempty" db:"notes"`
}

// ForfeitureEvent records the transition that closed a loan unsuccessfully.
type ForfeitureEvent struct {
	ID               int64      `json:"id" db:"id"`
	LoanID           int64      `json:"loan_id" db:"loan_id"`
	ForfeitedAt      time.Time  `json:"forfeited_at" db:"forfeited_at"`
	OperatorID       int64      `json:"operator_id" db:"operator_id"`
	OperatorUsername string     `json:"operator_username" db:"operator_username"`
	Notes            *string    `json:"notes,omitempty" db:"notes"`
}
