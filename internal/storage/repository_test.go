package storage

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finpal/internal/core"
	"finpal/internal/records"
	"finpal/internal/tax"
)

func newTestRepo(t *testing.T) (*SQLiteRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "finpal.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo, path
}

func TestSQLiteRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)
	fixed := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	_, err := repo.Load(ctx, "alice")
	require.True(t, errors.Is(err, records.ErrNotFound))

	reg, err := tax.DefaultRegistry()
	require.NoError(t, err)
	res := tax.NewCalculator(reg).Calculate(100_000, "NY", true)

	rec := core.NewUserRecord("alice")
	rec.Income = core.Money{Cents: 10_000_000}
	rec.CityResident = true
	rec.Budget["Rent"] = core.Money{Cents: 180000}
	rec.Budget["Pets"] = core.Money{Cents: 5000}
	rec.TaxSummary = &res
	rec.Expenses = []core.Expense{
		{Date: core.NewDate(2024, 5, 1), Amount: core.Money{Cents: 180000}, Category: "Rent", Source: core.SourceManual},
		{Date: core.NewDate(2024, 5, 3), Amount: core.Money{Cents: 2599}, Category: "Other", Description: "Corner store", Source: core.SourceStatement},
	}
	require.NoError(t, repo.Save(ctx, rec))

	got, err := repo.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, rec.Income, got.Income)
	assert.Equal(t, tax.NY, got.Jurisdiction)
	assert.True(t, got.CityResident)
	assert.Equal(t, rec.Budget, got.Budget)
	assert.Equal(t, rec.Expenses, got.Expenses)
	assert.True(t, got.UpdatedAt.Equal(fixed))

	require.NotNil(t, got.TaxSummary)
	assert.Equal(t, res.TotalTax, got.TaxSummary.TotalTax)
	last := got.TaxSummary.FederalBreakdown[len(got.TaxSummary.FederalBreakdown)-1]
	assert.True(t, math.IsInf(last.UpperBound, 1))
}

func TestSQLiteRepositorySaveReplacesExpenses(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	rec := core.NewUserRecord("bob")
	rec.Expenses = []core.Expense{
		{Date: core.NewDate(2024, 1, 1), Amount: core.Money{Cents: 100}, Category: "Gym"},
		{Date: core.NewDate(2024, 1, 2), Amount: core.Money{Cents: 200}, Category: "Gym"},
	}
	require.NoError(t, repo.Save(ctx, rec))

	rec.Expenses = rec.Expenses[:1]
	rec.Income = core.Money{Cents: 5_000_000}
	require.NoError(t, repo.Save(ctx, rec))

	got, err := repo.Load(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, got.Expenses, 1)
	assert.Equal(t, core.SourceManual, got.Expenses[0].Source, "empty source defaults to manual")
	assert.Equal(t, int64(5_000_000), got.Income.Cents)
	assert.Nil(t, got.TaxSummary)
}

func TestSQLiteRepositoryRejectsInvalidRecord(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	rec := core.NewUserRecord("carol")
	rec.Expenses = []core.Expense{{Date: core.NewDate(2024, 1, 1), Amount: core.Money{Cents: 0}, Category: "Gym"}}
	require.Error(t, repo.Save(ctx, rec))

	_, err := repo.Load(ctx, "carol")
	assert.ErrorIs(t, err, records.ErrNotFound)
}

func TestSQLiteRepositoryUsernamesAndReopen(t *testing.T) {
	ctx := context.Background()
	repo, path := newTestRepo(t)

	for _, u := range []string{"zed", "amy"} {
		require.NoError(t, repo.Save(ctx, core.NewUserRecord(u)))
	}
	require.NoError(t, repo.Close())

	// Migrations are idempotent on reopen.
	reopened, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	defer reopened.Close()

	names, err := reopened.Usernames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"amy", "zed"}, names)
	assert.NoError(t, reopened.Ping(ctx))
}

func TestDropSchema(t *testing.T) {
	ctx := context.Background()
	repo, path := newTestRepo(t)
	require.NoError(t, repo.Save(ctx, core.NewUserRecord("dan")))
	require.NoError(t, repo.Close())

	require.NoError(t, DropSchema(path))
	require.NoError(t, RunMigrations(path))

	reopened, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	defer reopened.Close()
	names, err := reopened.Usernames(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}
