package loans

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/pawnledger/pawnledger/internal/shared"
)

type memoryLoanRepo struct {
	mu          sync.Mutex
	loans       map[int64]Loan
	payments    map[int64][]Payment
	redemptions map[int64]RedemptionEvent
	forfeitures map[int64]ForfeitureEvent
	nextID      int64
	nextPayID   int64
	nextEvID    int64

	// failOn makes mutations for the given loan id fail, for sweep tests.
	failOn map[int64]error
	// duplicateNumbers makes Create collide this many times before accepting.
	duplicateNumbers int
}

func newMemoryLoanRepo() *memoryLoanRepo {
	return &memoryLoanRepo{
		loans:       make(map[int64]Loan),
		payments:    make(map[int64][]Payment),
		redemptions: make(map[int64]RedemptionEvent),
		forfeitures: make(map[int64]ForfeitureEvent),
		failOn:      make(map[int64]error),
	}
}

func (r *memoryLoanRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, r)
}

func (r *memoryLoanRepo) Create(ctx context.Context, loan Loan) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.duplicateNumbers > 0 {
		r.duplicateNumbers--
		return 0, shared.ErrDuplicateTransaction
	}
	for _, existing := range r.loans {
		if existing.TransactionNumber == loan.TransactionNumber {
			return 0, shared.ErrDuplicateTransaction
		}
	}
	r.nextID++
	loan.ID = r.nextID
	r.loans[loan.ID] = loan
	return loan.ID, nil
}

func (r *memoryLoanRepo) Get(ctx context.Context, id int64) (*Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	loan, ok := r.loans[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &loan, nil
}

func (r *memoryLoanRepo) GetForUpdate(ctx context.Context, id int64) (*Loan, error) {
	return r.Get(ctx, id)
}

func (r *memoryLoanRepo) GetByTransactionNumber(ctx context.Context, number string) (*Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, loan := range r.loans {
		if loan.TransactionNumber == number {
			l := loan
			return &l, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memoryLoanRepo) List(ctx context.Context, req ListLoansRequest) ([]Loan, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Loan
	for _, loan := range r.loans {
		if req.Status != nil && loan.Status != *req.Status {
			continue
		}
		out = append(out, loan)
	}
	return out, len(out), nil
}

func (r *memoryLoanRepo) ListDueActive(ctx context.Context, asOf time.Time) ([]Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Loan
	for _, loan := range r.loans {
		if loan.Status == LoanStatusActive && !loan.DueDate.After(asOf) {
			out = append(out, loan)
		}
	}
	return out, nil
}

func (r *memoryLoanRepo) AddPrincipal(ctx context.Context, id int64, delta decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	loan, ok := r.loans[id]
	if !ok {
		return shared.ErrNotFound
	}
	loan.LoanAmount = loan.LoanAmount.Add(delta)
	r.loans[id] = loan
	return nil
}

func (r *memoryLoanRepo) DecrementRemaining(ctx context.Context, id int64, amount decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	loan, ok := r.loans[id]
	if !ok {
		return shared.ErrNotFound
	}
	loan.RemainingBalance = loan.RemainingBalance.Sub(amount)
	r.loans[id] = loan
	return nil
}

func (r *memoryLoanRepo) SetStatus(ctx context.Context, id int64, status LoanStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failOn[id]; err != nil {
		return err
	}
	loan, ok := r.loans[id]
	if !ok {
		return shared.ErrNotFound
	}
	loan.Status = status
	r.loans[id] = loan
	return nil
}

func (r *memoryLoanRepo) ExtendDueDate(ctx context.Context, id int64, newDue time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failOn[id]; err != nil {
		return err
	}
	loan, ok := r.loans[id]
	if !ok {
		return shared.ErrNotFound
	}
	loan.DueDate = newDue
	loan.Status = LoanStatusActive
	r.loans[id] = loan
	return nil
}

func (r *memoryLoanRepo) MarkRedeemed(ctx context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	loan, ok := r.loans[id]
	if !ok {
		return shared.ErrNotFound
	}
	loan.Status = LoanStatusRedeemed
	loan.RedeemedDate = &at
	r.loans[id] = loan
	return nil
}

func (r *memoryLoanRepo) MarkForfeited(ctx context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	loan, ok := r.loans[id]
	if !ok {
		return shared.ErrNotFound
	}
	loan.Status = LoanStatusForfeited
	loan.ForfeitedDate = &at
	r.loans[id] = loan
	return nil
}

func (r *memoryLoanRepo) InsertPayment(ctx context.Context, p Payment) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextPayID++
	p.ID = r.nextPayID
	r.payments[p.LoanID] = append(r.payments[p.LoanID], p)
	return p.ID, nil
}

func (r *memoryLoanRepo) SumPayments(ctx context.Context, loanID int64) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := decimal.Zero
	for _, p := range r.payments[loanID] {
		sum = sum.Add(p.Amount)
	}
	return sum, nil
}

func (r *memoryLoanRepo) ListPayments(ctx context.Context, loanID int64) ([]Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Payment(nil), r.payments[loanID]...), nil
}

func (r *memoryLoanRepo) InsertRedemption(ctx context.Context, ev RedemptionEvent) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.redemptions[ev.LoanID]; exists {
		return 0, shared.ErrInvalidState
	}
	r.nextEvID++
	ev.ID = r.nextEvID
	r.redemptions[ev.LoanID] = ev
	return ev.ID, nil
}

func (r *memoryLoanRepo) InsertForfeiture(ctx context.Context, ev ForfeitureEvent) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.forfeitures[ev.LoanID]; exists {
		return 0, shared.ErrInvalidState
	}
	r.nextEvID++
	ev.ID = r.nextEvID
	r.forfeitures[ev.LoanID] = ev
	return ev.ID, nil
}

var testOperator = shared.Operator{UserID: 7, Username: "till-7"}

func dec(value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestService(repo *memoryLoanRepo) *Service {
	svc := NewService(repo)
	svc.WithNow(func() time.Time {
		return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	})
	return svc
}

func TestCreateComputesInterestAndFreezesInitialPrincipal(t *testing.T) {
	repo := newMemoryLoanRepo()
	svc := newTestService(repo)

	loan, err := svc.Create(context.Background(), CreateLoanRequest{
		CustomerFirstName: "Maria",
		CustomerLastName:  "Reyes",
		LoanAmount:        dec("500"),
		InterestRate:      dec("15"),
		LoanTermMonths:    1,
	}, testOperator)
	require.NoError(t, err)

	require.True(t, loan.InterestAmount.Equal(dec("75")), "interest: %s", loan.InterestAmount)
	require.True(t, loan.TotalPayable.Equal(dec("575")), "total: %s", loan.TotalPayable)
	require.True(t, loan.InitialLoanAmount.Equal(dec("500")))
	require.True(t, loan.RemainingBalance.Equal(dec("575")))
	require.Equal(t, LoanStatusActive, loan.Status)
	require.NotEmpty(t, loan.TransactionNumber)
	require.Equal(t, testOperator.UserID, loan.CreatedBy)
	require.Equal(t, testOperator.Username, loan.CreatedByUsername)
}

func TestCreateTrustsCallerSuppliedAmounts(t *testing.T) {
	repo := newMemoryLoanRepo()
	svc := newTestService(repo)

	interest := dec("80.50")
	total := dec("580.50")
	loan, err := svc.Create(context.Background(), CreateLoanRequest{
		CustomerFirstName: "Jose",
		CustomerLastName:  "Cruz",
		LoanAmount:        dec("500"),
		InterestRate:      dec("15"),
		InterestAmount:    &interest,
		TotalPayable:      &total,
	}, testOperator)
	require.NoError(t, err)

	// Overrides are stored verbatim, even though 500*15% is 75.
	require.True(t, loan.InterestAmount.Equal(interest))
	require.True(t, loan.TotalPayable.Equal(total))
}

func TestCreateValidation(t *testing.T) {
	repo := newMemoryLoanRepo()
	svc := newTestService(repo)

	cases := []CreateLoanRequest{
		{CustomerLastName: "X", LoanAmount: dec("100"), InterestRate: dec("10")},
		{CustomerFirstName: "X", LoanAmount: dec("100"), InterestRate: dec("10")},
		{CustomerFirstName: "X", CustomerLastName: "Y", LoanAmount: dec("0"), InterestRate: dec("10")},
		{CustomerFirstName: "X", CustomerLastName: "Y", LoanAmount: dec("100"), InterestRate: dec("-1")},
	}
	for _, req := range cases {
		_, err := svc.Create(context.Background(), req, testOperator)
		require.ErrorIs(t, err, shared.ErrValidation)
	}
}

func TestCreateRetriesTransactionNumberCollisions(t *testing.T) {
	repo := newMemoryLoanRepo()
	repo.duplicateNumbers = 2
	svc := newTestService(repo)

	loan, err := svc.Create(context.Background(), CreateLoanRequest{
		CustomerFirstName: "Ana",
		CustomerLastName:  "Lim",
		LoanAmount:        dec("200"),
		InterestRate:      dec("10"),
	}, testOperator)
	require.NoError(t, err)
	require.NotEmpty(t, loan.TransactionNumber)
}

func TestCreateSurfacesDuplicateAfterBoundedRetries(t *testing.T) {
	repo := newMemoryLoanRepo()
	repo.duplicateNumbers = 10
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), CreateLoanRequest{
		CustomerFirstName: "Ana",
		CustomerLastName:  "Lim",
		LoanAmount:        dec("200"),
		InterestRate:      dec("10"),
	}, testOperator)
	require.ErrorIs(t, err, shared.ErrDuplicateTransaction)
}

func issueLoan(t *testing.T, svc *Service, amount, rate string) *Loan {
	t.Helper()
	loan, err := svc.Create(context.Background(), CreateLoanRequest{
		CustomerFirstName: "Test",
		CustomerLastName:  "Customer",
		LoanAmount:        dec(amount),
		InterestRate:      dec(rate),
		LoanTermMonths:    1,
	}, testOperator)
	require.NoError(t, err)
	return loan
}

func TestApplyPaymentAppendsWithoutStatusChange(t *testing.T) {
	repo := newMemoryLoanRepo()
	svc := newTestService(repo)
	loan := issueLoan(t, svc, "500", "15")

	payment, err := svc.ApplyPayment(context.Background(), loan.ID, ApplyPaymentRequest{
		Amount: dec("60"),
		Method: "cash",
	}, testOperator)
	require.NoError(t, err)
	require.Equal(t, loan.ID, payment.LoanID)
	require.Equal(t, testOperator.Username, payment.OperatorUsername)

	after, err := svc.Get(context.Background(), loan.ID)
	require.NoError(t, err)
	require.Equal(t, LoanStatusActive, after.Status)
	require.True(t, after.RemainingBalance.Equal(dec("515")))
}

func TestApplyPaymentRejectsNonPositiveAmount(t *testing.T) {
	repo := newMemoryLoanRepo()
	svc := newTestService(repo)
	loan := issueLoan(t, svc, "500", "15")

	_, err := svc.ApplyPayment(context.Background(), loan.ID, ApplyPaymentRequest{Amount: dec("0"), Method: "cash"}, testOperator)
	require.ErrorIs(t, err, shared.ErrInvalidAmount)

	_, err = svc.ApplyPayment(context.Background(), loan.ID, ApplyPaymentRequest{Amount: dec("-5"), Method: "cash"}, testOperator)
	require.ErrorIs(t, err, shared.ErrInvalidAmount)
}

func TestApplyPaymentUnknownLoan(t *testing.T) {
	repo := newMemoryLoanRepo()
	svc := newTestService(repo)

	_, err := svc.ApplyPayment(context.Background(), 99, ApplyPaymentRequest{Amount: dec("10"), Method: "cash"}, testOperator)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestAddPrincipalNeverTouchesInitialAmount(t *testing.T) {
	repo := newMemoryLoanRepo()
	svc := newTestService(repo)
	loan := issueLoan(t, svc, "500", "15")

	for i := 0; i < 3; i++ {
		_, err := svc.AddPrincipal(context.Background(), loan.ID, AddPrincipalRequest{Amount: dec("50")})
		require.NoError(t, err)
	}

	after, err := svc.Get(context.Background(), loan.ID)
	require.NoError(t, err)
	require.True(t, after.LoanAmount.Equal(dec("650")))
	require.True(t, after.InitialLoanAmount.Equal(dec("500")), "initial principal must stay frozen")
}

func TestAddPrincipalConcurrentIncrementsConverge(t *testing.T) {
	repo := newMemoryLoanRepo()
	svc := newTestService(repo)
	loan := issueLoan(t, svc, "100", "10")

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddPrincipal(context.Background(), loan.ID, AddPrincipalRequest{Amount: dec("50")})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	after, err := svc.Get(context.Background(), loan.ID)
	require.NoError(t, err)
	require.True(t, after.LoanAmount.Equal(dec("200")), "got %s", after.LoanAmount)
}

func TestAddPrincipalRejectsTerminalLoan(t *testing.T) {
	repo := newMemoryLoanRepo()
	svc := newTestService(repo)
	loan := issueLoan(t, svc, "500", "15")

	_, err := svc.Redeem(context.Background(), loan.ID, RedeemRequest{Amount: dec("575")}, testOperator)
	require.NoError(t, err)

	_, err = svc.AddPrincipal(context.Background(), loan.ID, AddPrincipalRequest{Amount: dec("50")})
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestRedeemTransitionsAndRejectsSecondAttempt(t *testing.T) {
	repo := newMemoryLoanRepo()
	svc := newTestService(repo)
	loan := issueLoan(t, svc, "500", "15")

	event, err := svc.Redeem(context.Background(), loan.ID, RedeemRequest{Amount: dec("575")}, testOperator)
	require.NoError(t, err)
	require.True(t, event.Amount.Equal(dec("575")))

	redeemed, err := svc.Get(context.Background(), loan.ID)
	require.NoError(t, err)
	require.Equal(t, LoanStatusRedeemed, redeemed.Status)
	require.NotNil(t, redeemed.RedeemedDate)

	_, err = svc.Redeem(context.Background(), loan.ID, RedeemRequest{Amount: dec("575")}, testOperator)
	require.ErrorIs(t, err, shared.ErrInvalidState)

	// Failed attempt left the loan untouched.
	after, err := svc.Get(context.Background(), loan.ID)
	require.NoError(t, err)
	require.Equal(t, redeemed.RedeemedDate, after.RedeemedDate)
	require.Equal(t, LoanStatusRedeemed, after.Status)
}

func TestForfeitTransitionsFromOverdue(t *testing.T) {
	repo := newMemoryLoanRepo()
	svc := newTestService(repo)
	loan := issueLoan(t, svc, "500", "15")
	require.NoError(t, repo.SetStatus(context.Background(), loan.ID, LoanStatusOverdue))

	_, err := svc.Forfeit(context.Background(), loan.ID, ForfeitRequest{}, testOperator)
	require.NoError(t, err)

	after, err := svc.Get(context.Background(), loan.ID)
	require.NoError(t, err)
	require.Equal(t, LoanStatusForfeited, after.Status)
	require.NotNil(t, after.ForfeitedDate)

	_, err = svc.Redeem(context.Background(), loan.ID, RedeemRequest{Amount: dec("1")}, testOperator)
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestReactivateRequiresInterestCovered(t *testing.T) {
	repo := newMemoryLoanRepo()
	svc := newTestService(repo)
	loan := issueLoan(t, svc, "500", "10") // interest 50
	require.NoError(t, repo.SetStatus(context.Background(), loan.ID, LoanStatusOverdue))

	_, err := svc.ApplyPayment(context.Background(), loan.ID, ApplyPaymentRequest{Amount: dec("10"), Method: "cash"}, testOperator)
	require.NoError(t, err)

	_, err = svc.Reactivate(context.Background(), loan.ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)

	_, err = svc.ApplyPayment(context.Background(), loan.ID, ApplyPaymentRequest{Amount: dec("40"), Method: "cash"}, testOperator)
	require.NoError(t, err)

	revived, err := svc.Reactivate(context.Background(), loan.ID)
	require.NoError(t, err)
	require.Equal(t, LoanStatusActive, revived.Status)
}

func TestReactivateRejectsActiveLoan(t *testing.T) {
	repo := newMemoryLoanRepo()
	svc := newTestService(repo)
	loan := issueLoan(t, svc, "500", "10")

	_, err := svc.Reactivate(context.Background(), loan.ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)
}
