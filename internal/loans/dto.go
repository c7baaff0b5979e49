package loans

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateLoanRequest carries the canonical attribute set for loan issuance.
// InterestAmount and TotalPayable are trusted overrides: when supplied the
// caller's values are stored verbatim with no recomputation, so the UI keeps
// control over rounding.
type CreateLoanRequest struct {
	CustomerFirstName string           `json:"customer_first_name" validate:"required"`
	CustomerLastName  string           `json:"customer_last_name" validate:"required"`
	ItemDescription   *string          `json:"item_description,omitempty"`
	LoanAmount        decimal.Decimal  `json:"loan_amount"`
	InterestRate      decimal.Decimal  `json:"interest_rate"`
	LoanTermMonths    int              `json:"loan_term" validate:"gte=0"`
	InterestAmount    *decimal.Decimal `json:"interest_amount,omitempty"`
	TotalPayable      *decimal.Decimal `json:"total_payable_amount,omitempty"`
	LoanIssuedDate    *time.Time       `json:"loan_issued_date,omitempty"`
}

// ApplyPaymentRequest records money received against a loan.
type ApplyPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method" validate:"required,max=40"`
}

// AddPrincipalRequest increases the current principal of a loan.
type AddPrincipalRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// RedeemRequest closes a loan successfully.
type RedeemRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Notes  *string         `json:"notes,omitempty"`
}

// ForfeitRequest closes a loan unsuccessfully. No amount is recorded.
type ForfeitRequest struct {
	Notes *string `json:"notes,omitempty"`
}

// ListLoansRequest filters the loan listing.
type ListLoansRequest struct {
	Status   *LoanStatus `json:"status,omitempty"`
	DateFrom *time.Time  `json:"date_from,omitempty"`
	DateTo   *time.Time  `json:"date_to,omitempty"`
	Limit    int         `json:"limit" validate:"gte=0,lte=1000"`
	Offset   int         `json:"offset" validate:"gte=0"`
}
