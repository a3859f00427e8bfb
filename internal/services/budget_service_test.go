package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finpal/internal/amqp"
	"finpal/internal/cache"
	"finpal/internal/core"
	"finpal/internal/records"
	"finpal/internal/records/memory"
	"finpal/internal/tax"
)

type publishedEvent struct {
	username string
	reason   string
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
	closed bool
}

func (p *fakePublisher) PublishRecordSaved(_ context.Context, username, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{username: username, reason: reason})
	return p.err
}

func (p *fakePublisher) Close() error {
	p.closed = true
	return nil
}

// failingStore fails every Save.
type failingStore struct {
	records.Store
}

func (failingStore) Save(context.Context, core.UserRecord) error {
	return errors.New("disk full")
}

func newTestService(t *testing.T, opts ...Option) (*BudgetService, *memory.Store) {
	t.Helper()
	reg, err := tax.DefaultRegistry()
	require.NoError(t, err)
	store := memory.New()
	return NewBudgetService(store, tax.NewCalculator(reg), opts...), store
}

func TestRecordForUnknownUser(t *testing.T) {
	svc, _ := newTestService(t)

	rec, err := svc.Record(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", rec.Username)
	assert.Equal(t, tax.NY, rec.Jurisdiction)
	assert.Len(t, rec.Budget, len(core.DefaultCategories))
	assert.Nil(t, rec.TaxSummary)

	_, err = svc.Record(context.Background(), "bad name")
	assert.ErrorIs(t, err, core.ErrInvalidUsername)
}

func TestUpdateProfile(t *testing.T) {
	pub := &fakePublisher{}
	svc, store := newTestService(t, WithPublisher(pub))
	ctx := context.Background()

	rec, err := svc.UpdateProfile(ctx, "alice", core.Money{Cents: 10_000_000}, "new york", true)
	require.NoError(t, err)
	require.NotNil(t, rec.TaxSummary)
	assert.Equal(t, tax.NY, rec.Jurisdiction)
	assert.True(t, rec.CityResident)
	assert.InDelta(t, 3_876.0, rec.TaxSummary.CityTax, 1e-6)
	assert.InDelta(t, 17_400.0, rec.TaxSummary.FederalTax, 1e-6)

	stored, err := store.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(10_000_000), stored.Income.Cents)
	assert.Equal(t, rec.TaxSummary.TotalTax, stored.TaxSummary.TotalTax)

	require.Len(t, pub.events, 1)
	assert.Equal(t, publishedEvent{username: "alice", reason: amqp.ReasonProfile}, pub.events[0])
}

func TestUpdateProfileClearsCityFlagOutsideNewYork(t *testing.T) {
	svc, _ := newTestService(t)

	rec, err := svc.UpdateProfile(context.Background(), "bob", core.Money{Cents: 10_000_000}, "Calif", true)
	require.NoError(t, err)
	assert.Equal(t, tax.CA, rec.Jurisdiction)
	assert.False(t, rec.CityResident)
	assert.Zero(t, rec.TaxSummary.CityTax)
}

func TestUpdateProfileErrors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.UpdateProfile(ctx, "alice", core.Money{Cents: -1}, "NY", false)
	assert.ErrorIs(t, err, core.ErrNegativeIncome)

	_, err = svc.UpdateProfile(ctx, "alice", core.Money{Cents: 100}, "  ", false)
	assert.ErrorIs(t, err, ErrInvalidJurisdiction)

	_, err = svc.UpdateProfile(ctx, "", core.Money{Cents: 100}, "NY", false)
	assert.ErrorIs(t, err, core.ErrEmptyUsername)
}

func TestUpdateProfileUnknownJurisdiction(t *testing.T) {
	svc, _ := newTestService(t)

	rec, err := svc.UpdateProfile(context.Background(), "alice", core.Money{Cents: 5_000_000}, "atlantis", false)
	require.NoError(t, err)
	assert.Equal(t, tax.Jurisdiction("ATLANTIS"), rec.Jurisdiction)
	assert.InDelta(t, 2_000.0, rec.TaxSummary.StateTax, 1e-6)
}

func TestSetBudget(t *testing.T) {
	pub := &fakePublisher{}
	svc, _ := newTestService(t, WithPublisher(pub))
	ctx := context.Background()

	rec, err := svc.SetBudget(ctx, "alice", core.Budget{
		"Rent":    {Cents: 150_000},
		" Books ": {Cents: 2_500},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(150_000), rec.Budget["Rent"].Cents)
	assert.Equal(t, int64(2_500), rec.Budget["Books"].Cents)
	assert.Contains(t, rec.Budget, "Gym")

	_, err = svc.SetBudget(ctx, "alice", core.Budget{"Rent": {Cents: -1}})
	assert.ErrorIs(t, err, core.ErrNegativeBudget)

	require.Len(t, pub.events, 1)
	assert.Equal(t, amqp.ReasonBudget, pub.events[0].reason)
}

func TestAddExpense(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	rec, err := svc.AddExpense(ctx, "alice", core.Expense{
		Date:     core.NewDate(2024, 3, 1),
		Amount:   core.Money{Cents: 4_200},
		Category: " Groceries ",
	})
	require.NoError(t, err)
	require.Len(t, rec.Expenses, 1)
	assert.Equal(t, "Groceries", rec.Expenses[0].Category)
	assert.Equal(t, core.SourceManual, rec.Expenses[0].Source)

	_, err = svc.AddExpense(ctx, "alice", core.Expense{Date: core.NewDate(2024, 3, 1), Category: "Gym"})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	_, err = svc.AddExpense(ctx, "alice", core.Expense{Date: core.NewDate(2024, 3, 1), Amount: core.Money{Cents: 1}})
	assert.ErrorIs(t, err, core.ErrEmptyCategory)
}

func TestImportStatement(t *testing.T) {
	pub := &fakePublisher{}
	svc, _ := newTestService(t, WithPublisher(pub))
	ctx := context.Background()

	csv := "Date,Description,Amount,Category\n" +
		"2024-03-01,Rent,-1500.00,Rent\n" +
		"2024-03-02,Store,-52.50,\n"
	n, err := svc.ImportStatement(ctx, "alice", strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	cmp, err := svc.Summary(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(155_250), cmp.TotalExpenses.Cents)

	_, err = svc.ImportStatement(ctx, "alice", strings.NewReader("date,amount\nnope,1\n"))
	assert.ErrorIs(t, err, ErrInvalidStatement)

	n, err = svc.ImportStatement(ctx, "alice", strings.NewReader("date,amount\n"))
	require.NoError(t, err)
	assert.Zero(t, n)

	require.Len(t, pub.events, 1)
	assert.Equal(t, amqp.ReasonImport, pub.events[0].reason)
}

func TestSummary(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.UpdateProfile(ctx, "alice", core.Money{Cents: 12_000_000}, "TX", false)
	require.NoError(t, err)
	_, err = svc.SetBudget(ctx, "alice", core.Budget{"Rent": {Cents: 200_000}})
	require.NoError(t, err)
	_, err = svc.AddExpense(ctx, "alice", core.Expense{Date: core.NewDate(2024, 3, 1), Amount: core.Money{Cents: 180_000}, Category: "Rent"})
	require.NoError(t, err)
	_, err = svc.AddExpense(ctx, "alice", core.Expense{Date: core.NewDate(2024, 4, 1), Amount: core.Money{Cents: 5_000}, Category: "Gym"})
	require.NoError(t, err)

	cmp, err := svc.Summary(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(200_000), cmp.EstimatedSpend.Cents)
	assert.Equal(t, int64(185_000), cmp.TotalExpenses.Cents)
	assert.Equal(t, "Rent", cmp.Rows[0].Category)
	assert.Equal(t, int64(20_000), cmp.Rows[0].Remaining().Cents)
	assert.Positive(t, cmp.MonthlyNetIncome.Cents)

	march, err := svc.MonthSummary(ctx, "alice", 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(180_000), march.TotalExpenses.Cents)

	_, err = svc.MonthSummary(ctx, "alice", 2024, 13)
	assert.ErrorIs(t, err, core.ErrInvalidMonth)
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	pub := &fakePublisher{err: errors.New("circuit breaker is open")}
	svc, store := newTestService(t, WithPublisher(pub))
	ctx := context.Background()

	_, err := svc.SetBudget(ctx, "alice", core.Budget{"Gym": {Cents: 3_000}})
	require.NoError(t, err)

	stored, err := store.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(3_000), stored.Budget["Gym"].Cents)
}

func TestSaveFailureIsReturned(t *testing.T) {
	reg, err := tax.DefaultRegistry()
	require.NoError(t, err)
	svc := NewBudgetService(failingStore{Store: memory.New()}, tax.NewCalculator(reg))

	_, err = svc.SetBudget(context.Background(), "alice", core.Budget{"Gym": {Cents: 3_000}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestCachedRecordsAreRefreshedAfterSave(t *testing.T) {
	c := cache.NewLRUCache[core.UserRecord](10, time.Minute)
	svc, _ := newTestService(t, WithCache(c))
	ctx := context.Background()

	_, err := svc.Record(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, c.Size())

	_, err = svc.SetBudget(ctx, "alice", core.Budget{"Gym": {Cents: 3_000}})
	require.NoError(t, err)

	rec, err := svc.Record(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(3_000), rec.Budget["Gym"].Cents)
	assert.False(t, rec.UpdatedAt.IsZero())

	// Callers get copies of cached records.
	rec.Budget["Gym"] = core.Money{Cents: 1}
	again, err := svc.Record(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(3_000), again.Budget["Gym"].Cents)
}

// blockingStore holds the next Load open, after it has read the store, until
// release is closed.
type blockingStore struct {
	records.Store
	armed   atomic.Bool
	loaded  chan struct{}
	release chan struct{}
}

func (b *blockingStore) Load(ctx context.Context, username string) (core.UserRecord, error) {
	rec, err := b.Store.Load(ctx, username)
	if b.armed.CompareAndSwap(true, false) {
		close(b.loaded)
		<-b.release
	}
	return rec, err
}

func TestSlowReaderCannotCacheStaleRecord(t *testing.T) {
	reg, err := tax.DefaultRegistry()
	require.NoError(t, err)
	store := &blockingStore{Store: memory.New(), loaded: make(chan struct{}), release: make(chan struct{})}
	c := cache.NewLRUCache[core.UserRecord](10, time.Minute)
	svc := NewBudgetService(store, tax.NewCalculator(reg), WithCache(c))
	ctx := context.Background()

	expense := core.Expense{Date: core.NewDate(2024, 3, 1), Amount: core.Money{Cents: 100}, Category: "Gym"}
	_, err = svc.AddExpense(ctx, "alice", expense)
	require.NoError(t, err)

	// A reader loads the one-expense record and stalls before caching it.
	store.armed.Store(true)
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		rec, err := svc.Record(ctx, "alice")
		assert.NoError(t, err)
		assert.Len(t, rec.Expenses, 1)
	}()
	<-store.loaded

	_, err = svc.AddExpense(ctx, "alice", expense)
	require.NoError(t, err)
	close(store.release)
	<-readerDone

	rec, err := svc.Record(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, rec.Expenses, 2, "stale fill reached the cache")

	_, err = svc.AddExpense(ctx, "alice", expense)
	require.NoError(t, err)
	saved, err := store.Store.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, saved.Expenses, 3)
}

func TestConcurrentExpensesAreNotLost(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddExpense(ctx, "alice", core.Expense{Date: core.NewDate(2024, 3, 1), Amount: core.Money{Cents: 100}, Category: "Gym"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	rec, err := svc.Record(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, rec.Expenses, 20)
}

func TestEstimateTaxes(t *testing.T) {
	svc, store := newTestService(t)

	res := svc.EstimateTaxes(core.Money{Cents: 5_000_000}, "ZZ", false)
	assert.InDelta(t, 6_307.50, res.FederalTax, 1e-6)
	assert.InDelta(t, 2_000.00, res.StateTax, 1e-6)

	names, err := store.Usernames(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestCloseClosesPublisher(t *testing.T) {
	pub := &fakePublisher{}
	svc, _ := newTestService(t, WithPublisher(pub))
	require.NoError(t, svc.Close())
	assert.True(t, pub.closed)
	assert.NoError(t, svc.Ready(context.Background()))
}
