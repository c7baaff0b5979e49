// Package reports builds read-only reconciliation summaries over loan,
// payment and shift records. It never mutates ledger state and tolerates
// eventually-consistent snapshots, so it is safe to run against live writes.
package reports

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailySummary aggregates one calendar day of till activity.
type DailySummary struct {
	Date             string          `json:"date"`
	LoansIssuedCount int             `json:"loans_issued_count"`
	LoansIssuedTotal decimal.Decimal `json:"loans_issued_total"`
	PaymentsCount    int             `json:"payments_count"`
	PaymentsTotal    decimal.Decimal `json:"payments_total"`
}

// StatusSummary aggregates loans by lifecycle status within the range.
type StatusSummary struct {
	Status         string          `json:"status"`
	Count          int             `json:"count"`
	PrincipalTotal decimal.Decimal `json:"principal_total"`
	RemainingTotal decimal.Decimal `json:"remaining_total"`
}

// ShiftSummary is the cash-balancing line for one shift in range. Closed
// shifts carry their stored reconciliation; open shifts get a live projection
// using the same expected-balance formula.
type ShiftSummary struct {
	ShiftID          int64            `json:"shift_id"`
	OperatorID       int64            `json:"operator_id"`
	OperatorUsername string           `json:"operator_username"`
	StartTime        time.Time        `json:"start_time"`
	EndTime          *time.Time       `json:"end_time,omitempty"`
	OpeningCash      decimal.Decimal  `json:"opening_cash"`
	ClosingCash      *decimal.Decimal `json:"closing_cash,omitempty"`
	TotalPayments    decimal.Decimal  `json:"total_payments_received"`
	TotalLoansGiven  decimal.Decimal  `json:"total_loans_given"`
	ExpectedBalance  decimal.Decimal  `json:"expected_balance"`
	Difference       *decimal.Decimal `json:"difference,omitempty"`
	IsBalanced       *bool            `json:"is_balanced,omitempty"`
}

// ReconciliationReport is the full range summary exposed to reporting
// surfaces.
type ReconciliationReport struct {
	From     time.Time       `json:"from"`
	To       time.Time       `json:"to"`
	Daily    []DailySummary  `json:"daily"`
	Statuses []StatusSummary `json:"statuses"`
	Shifts   []ShiftSummary  `json:"shifts"`
}
