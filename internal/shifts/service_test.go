package shifts

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/pawnledger/pawnledger/internal/shared"
)

type tillEntry struct {
	operatorID int64
	at         time.Time
	amount     decimal.Decimal
}

type memoryShiftRepo struct {
	mu     sync.Mutex
	shifts map[int64]Shift
	nextID int64

	payments    []tillEntry
	loansIssued []tillEntry // amount is the initial principal at issuance
}

func newMemoryShiftRepo() *memoryShiftRepo {
	return &memoryShiftRepo{shifts: make(map[int64]Shift)}
}

func (r *memoryShiftRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, r)
}

func (r *memoryShiftRepo) Create(ctx context.Context, shift Shift) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.shifts {
		if existing.OperatorID == shift.OperatorID && existing.EndTime == nil {
			return 0, shared.ErrConflict
		}
	}
	r.nextID++
	shift.ID = r.nextID
	r.shifts[shift.ID] = shift
	return shift.ID, nil
}

func (r *memoryShiftRepo) Get(ctx context.Context, id int64) (*Shift, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	shift, ok := r.shifts[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &shift, nil
}

func (r *memoryShiftRepo) GetForUpdate(ctx context.Context, id int64) (*Shift, error) {
	return r.Get(ctx, id)
}

func (r *memoryShiftRepo) GetOpenByOperator(ctx context.Context, operatorID int64) (*Shift, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, shift := range r.shifts {
		if shift.OperatorID == operatorID && shift.EndTime == nil {
			s := shift
			return &s, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memoryShiftRepo) List(ctx context.Context, req ListShiftsRequest) ([]Shift, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Shift
	for _, shift := range r.shifts {
		if req.OperatorID != nil && shift.OperatorID != *req.OperatorID {
			continue
		}
		out = append(out, shift)
	}
	return out, len(out), nil
}

func (r *memoryShiftRepo) Close(ctx context.Context, shift Shift) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.shifts[shift.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if stored.EndTime != nil {
		return shared.ErrInvalidState
	}
	r.shifts[shift.ID] = shift
	return nil
}

func sumWindow(entries []tillEntry, operatorID int64, from, to time.Time) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range entries {
		if e.operatorID != operatorID {
			continue
		}
		if e.at.Before(from) || !e.at.Before(to) {
			continue
		}
		sum = sum.Add(e.amount)
	}
	return sum
}

func (r *memoryShiftRepo) SumPaymentsInWindow(ctx context.Context, operatorID int64, from, to time.Time) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sumWindow(r.payments, operatorID, from, to), nil
}

func (r *memoryShiftRepo) SumLoansIssuedInWindow(ctx context.Context, operatorID int64, from, to time.Time) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sumWindow(r.loansIssued, operatorID, from, to), nil
}

var teller = shared.Operator{UserID: 3, Username: "till-3"}

func dec(value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		panic(err)
	}
	return d
}

func newShiftService(repo *memoryShiftRepo, at *time.Time) *Service {
	svc := NewService(repo)
	svc.WithNow(func() time.Time { return *at })
	return svc
}

func TestOpenCloseQuietShiftBalances(t *testing.T) {
	repo := newMemoryShiftRepo()
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	svc := newShiftService(repo, &now)

	shift, err := svc.Open(context.Background(), OpenShiftInput{OpeningCash: dec("100")}, teller)
	require.NoError(t, err)
	require.True(t, shift.IsOpen())
	require.Equal(t, teller.Username, shift.OperatorUsername)

	now = now.Add(8 * time.Hour)
	closed, err := svc.Close(context.Background(), shift.ID, CloseShiftInput{ClosingCash: dec("100")})
	require.NoError(t, err)
	require.False(t, closed.IsOpen())
	require.True(t, closed.ExpectedBalance.Equal(dec("100")))
	require.True(t, closed.Difference.IsZero())
	require.True(t, closed.IsBalanced)
}

func TestCloseReconcilesPaymentsAndLoans(t *testing.T) {
	repo := newMemoryShiftRepo()
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	svc := newShiftService(repo, &now)

	shift, err := svc.Open(context.Background(), OpenShiftInput{OpeningCash: dec("200")}, teller)
	require.NoError(t, err)

	repo.payments = []tillEntry{
		{teller.UserID, now.Add(time.Hour), dec("150")},
		{teller.UserID, now.Add(2 * time.Hour), dec("50")},
		{99, now.Add(time.Hour), dec("999")},                 // another till
		{teller.UserID, now.Add(-time.Hour), dec("777")},     // before the shift
	}
	repo.loansIssued = []tillEntry{
		{teller.UserID, now.Add(3 * time.Hour), dec("120")},
	}

	now = now.Add(8 * time.Hour)
	closed, err := svc.Close(context.Background(), shift.ID, CloseShiftInput{ClosingCash: dec("275")})
	require.NoError(t, err)

	// 200 + 200 − 120 = 280 expected; drawer declared 275.
	require.True(t, closed.TotalPayments.Equal(dec("200")))
	require.True(t, closed.TotalLoansGiven.Equal(dec("120")))
	require.True(t, closed.ExpectedBalance.Equal(dec("280")))
	require.True(t, closed.Difference.Equal(dec("-5")))
	require.False(t, closed.IsBalanced)
}

func TestCloseCountsInitialPrincipalOnly(t *testing.T) {
	repo := newMemoryShiftRepo()
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	svc := newShiftService(repo, &now)

	shift, err := svc.Open(context.Background(), OpenShiftInput{OpeningCash: dec("500")}, teller)
	require.NoError(t, err)

	// A loan issued at 300 and later topped up to 400: the window sum sees
	// the issuance amount only, so the top-up cannot shrink the expected
	// balance retroactively.
	repo.loansIssued = []tillEntry{{teller.UserID, now.Add(time.Hour), dec("300")}}

	now = now.Add(8 * time.Hour)
	closed, err := svc.Close(context.Background(), shift.ID, CloseShiftInput{ClosingCash: dec("200")})
	require.NoError(t, err)
	require.True(t, closed.ExpectedBalance.Equal(dec("200")))
	require.True(t, closed.IsBalanced)
}

func TestOpenRejectsSecondOpenShift(t *testing.T) {
	repo := newMemoryShiftRepo()
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	svc := newShiftService(repo, &now)

	_, err := svc.Open(context.Background(), OpenShiftInput{OpeningCash: dec("100")}, teller)
	require.NoError(t, err)

	_, err = svc.Open(context.Background(), OpenShiftInput{OpeningCash: dec("100")}, teller)
	require.ErrorIs(t, err, shared.ErrConflict)

	// A different operator is unaffected.
	_, err = svc.Open(context.Background(), OpenShiftInput{OpeningCash: dec("100")}, shared.Operator{UserID: 4, Username: "till-4"})
	require.NoError(t, err)
}

func TestOpenRejectsNegativeFloat(t *testing.T) {
	repo := newMemoryShiftRepo()
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	svc := newShiftService(repo, &now)

	_, err := svc.Open(context.Background(), OpenShiftInput{OpeningCash: dec("-1")}, teller)
	require.ErrorIs(t, err, shared.ErrInvalidAmount)
}

func TestCloseIsTerminal(t *testing.T) {
	repo := newMemoryShiftRepo()
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	svc := newShiftService(repo, &now)

	shift, err := svc.Open(context.Background(), OpenShiftInput{OpeningCash: dec("100")}, teller)
	require.NoError(t, err)

	now = now.Add(time.Hour)
	first, err := svc.Close(context.Background(), shift.ID, CloseShiftInput{ClosingCash: dec("100")})
	require.NoError(t, err)

	now = now.Add(time.Hour)
	_, err = svc.Close(context.Background(), shift.ID, CloseShiftInput{ClosingCash: dec("150")})
	require.ErrorIs(t, err, shared.ErrInvalidState)

	// The stored record still carries the first close.
	after, err := svc.Get(context.Background(), shift.ID)
	require.NoError(t, err)
	require.Equal(t, first.EndTime, after.EndTime)
	require.True(t, after.ClosingCash.Equal(dec("100")))
}

func TestCurrentReturnsOpenShift(t *testing.T) {
	repo := newMemoryShiftRepo()
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	svc := newShiftService(repo, &now)

	_, err := svc.Current(context.Background(), teller)
	require.ErrorIs(t, err, shared.ErrNotFound)

	opened, err := svc.Open(context.Background(), OpenShiftInput{OpeningCash: dec("100")}, teller)
	require.NoError(t, err)

	current, err := svc.Current(context.Background(), teller)
	require.NoError(t, err)
	require.Equal(t, opened.ID, current.ID)
}
