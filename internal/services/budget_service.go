package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"finpal/internal/amqp"
	"finpal/internal/cache"
	"finpal/internal/core"
	"finpal/internal/log"
	"finpal/internal/records"
	"finpal/internal/statement"
	"finpal/internal/tax"
)

var (
	// ErrInvalidJurisdiction is returned for a blank jurisdiction.
	ErrInvalidJurisdiction = errors.New("jurisdiction is required")
	// ErrInvalidStatement wraps every statement parse failure.
	ErrInvalidStatement = errors.New("invalid statement")
)

// EventPublisher announces saved records. *amqp.Client implements it.
type EventPublisher interface {
	PublishRecordSaved(ctx context.Context, username, reason string) error
}

// BudgetService orchestrates the tax calculator, the record store and the
// optional event publisher. Updates to one user are serialized.
type BudgetService struct {
	store     records.Store
	calc      *tax.Calculator
	publisher EventPublisher
	cache     *cache.LRUCache[core.UserRecord]
	logger    *log.Logger
	events    *log.EventLog

	locks sync.Map // username -> *sync.Mutex

	// gens counts saves per user. A cache fill is kept only when no save
	// happened while its load was in flight.
	genMu sync.Mutex
	gens  map[string]uint64
}

type Option func(*BudgetService)

// WithPublisher enables record-saved events.
func WithPublisher(p EventPublisher) Option {
	return func(s *BudgetService) { s.publisher = p }
}

// WithCache caches loaded records.
func WithCache(c *cache.LRUCache[core.UserRecord]) Option {
	return func(s *BudgetService) { s.cache = c }
}

// WithLogger replaces the default logger.
func WithLogger(l *log.Logger) Option {
	return func(s *BudgetService) { s.logger = l }
}

func NewBudgetService(store records.Store, calc *tax.Calculator, opts ...Option) *BudgetService {
	s := &BudgetService{store: store, calc: calc, gens: map[string]uint64{}}
	for _, opt := range opts {
		opt(s)
	}
	if s.calc == nil {
		s.calc = tax.NewCalculator(nil)
	}
	if s.logger == nil {
		s.logger = log.New(log.Config{Handler: slog.Default().Handler(), Component: log.ComponentBudget})
	}
	s.logger = s.logger.WithComponent(log.ComponentBudget)
	s.events = log.NewEventLog(s.logger)
	return s
}

// Record returns the user's record, or a fresh one for an unknown user.
// Default budget categories are always present.
func (s *BudgetService) Record(ctx context.Context, username string) (core.UserRecord, error) {
	if err := core.ValidateUsername(username); err != nil {
		return core.UserRecord{}, err
	}
	if s.cache == nil {
		return s.load(ctx, username)
	}
	if rec, ok := s.cache.Get(username); ok {
		return rec.Clone(), nil
	}

	gen := s.generation(username)
	rec, err := s.load(ctx, username)
	if err != nil {
		return core.UserRecord{}, err
	}
	s.genMu.Lock()
	if s.gens[username] == gen {
		s.cache.Set(username, rec.Clone())
	}
	s.genMu.Unlock()
	return rec, nil
}

// load reads username from the store, bypassing the cache.
func (s *BudgetService) load(ctx context.Context, username string) (core.UserRecord, error) {
	rec, err := s.store.Load(ctx, username)
	switch {
	case errors.Is(err, records.ErrNotFound):
		rec = core.NewUserRecord(username)
	case err != nil:
		return core.UserRecord{}, fmt.Errorf("load record %s: %w", username, err)
	}
	rec.Budget = rec.Budget.WithDefaults()
	return rec, nil
}

func (s *BudgetService) generation(username string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.gens[username]
}

// invalidate drops the cached record and voids fills already in flight.
func (s *BudgetService) invalidate(username string) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.gens[username]++
	if s.cache != nil {
		s.cache.Delete(username)
	}
}

// UpdateProfile stores income and jurisdiction, recalculates taxes and keeps
// the result as the record's tax summary. The city flag is dropped for
// jurisdictions without a city tax.
func (s *BudgetService) UpdateProfile(ctx context.Context, username string, income core.Money, jurisdiction string, cityResident bool) (core.UserRecord, error) {
	if income.Cents < 0 {
		return core.UserRecord{}, core.ErrNegativeIncome
	}
	j := tax.Normalize(jurisdiction)
	if j == "" {
		return core.UserRecord{}, ErrInvalidJurisdiction
	}
	cityResident = cityResident && j.HasCityTax()

	rec, err := s.update(ctx, username, amqp.ReasonProfile, func(rec *core.UserRecord) error {
		res := s.calc.Calculate(income.Dollars(), string(j), cityResident)
		rec.Income = income
		rec.Jurisdiction = j
		rec.CityResident = cityResident
		rec.TaxSummary = &res
		return nil
	})
	if err != nil {
		return core.UserRecord{}, err
	}

	s.events.ProfileUpdated(ctx, username, income.Cents, string(j), cityResident, rec.TaxSummary.TotalTax)
	return rec, nil
}

// SetBudget replaces the budget amounts. Default categories missing from
// budget are kept at zero.
func (s *BudgetService) SetBudget(ctx context.Context, username string, budget core.Budget) (core.UserRecord, error) {
	clean := make(core.Budget, len(budget))
	for k, v := range budget {
		if err := clean.Set(k, v); err != nil {
			return core.UserRecord{}, fmt.Errorf("category %q: %w", k, err)
		}
	}
	return s.update(ctx, username, amqp.ReasonBudget, func(rec *core.UserRecord) error {
		rec.Budget = clean.WithDefaults()
		return nil
	})
}

// AddExpense appends a manually entered expense.
func (s *BudgetService) AddExpense(ctx context.Context, username string, e core.Expense) (core.UserRecord, error) {
	e.Category = strings.TrimSpace(e.Category)
	e.Description = strings.TrimSpace(e.Description)
	if e.Source == "" {
		e.Source = core.SourceManual
	}
	if err := e.Validate(); err != nil {
		return core.UserRecord{}, err
	}
	rec, err := s.update(ctx, username, amqp.ReasonExpense, func(rec *core.UserRecord) error {
		rec.Expenses = append(rec.Expenses, e)
		return nil
	})
	if err != nil {
		return core.UserRecord{}, err
	}
	s.events.ExpenseAdded(ctx, username, e.Amount.Cents, e.Category)
	return rec, nil
}

// ImportStatement parses a CSV bank statement and appends every row as an
// expense. Nothing is saved when any row fails to parse.
func (s *BudgetService) ImportStatement(ctx context.Context, username string, r io.Reader) (int, error) {
	expenses, err := statement.Parse(r)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidStatement, err)
	}
	if len(expenses) == 0 {
		return 0, nil
	}

	batchID := uuid.NewString()
	_, err = s.update(ctx, username, amqp.ReasonImport, func(rec *core.UserRecord) error {
		rec.Expenses = append(rec.Expenses, expenses...)
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.events.StatementImported(ctx, username, batchID, len(expenses))
	return len(expenses), nil
}

// Summary compares the budget with every recorded expense.
func (s *BudgetService) Summary(ctx context.Context, username string) (core.Comparison, error) {
	rec, err := s.Record(ctx, username)
	if err != nil {
		return core.Comparison{}, err
	}
	return core.Compare(rec), nil
}

// MonthSummary compares the budget with expenses dated in year/month.
func (s *BudgetService) MonthSummary(ctx context.Context, username string, year, month int) (core.Comparison, error) {
	if month < 1 || month > 12 {
		return core.Comparison{}, core.ErrInvalidMonth
	}
	rec, err := s.Record(ctx, username)
	if err != nil {
		return core.Comparison{}, err
	}
	return core.CompareMonth(rec, year, month), nil
}

// EstimateTaxes runs the calculator without touching any record.
func (s *BudgetService) EstimateTaxes(income core.Money, jurisdiction string, cityResident bool) tax.Result {
	return s.calc.Calculate(income.Dollars(), jurisdiction, cityResident)
}

// CacheStats reports record cache counters; ok is false without a cache.
func (s *BudgetService) CacheStats() (stats cache.Stats, ok bool) {
	if s.cache == nil {
		return cache.Stats{}, false
	}
	return s.cache.Stats(), true
}

// Calculator exposes the configured calculator.
func (s *BudgetService) Calculator() *tax.Calculator {
	return s.calc
}

// Ready reports whether the backing store is reachable, for stores that can tell.
func (s *BudgetService) Ready(ctx context.Context) error {
	if p, ok := s.store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *BudgetService) update(ctx context.Context, username, reason string, mutate func(*core.UserRecord) error) (core.UserRecord, error) {
	if err := core.ValidateUsername(username); err != nil {
		return core.UserRecord{}, err
	}
	mu := s.lockFor(username)
	mu.Lock()
	defer mu.Unlock()

	rec, err := s.load(ctx, username)
	if err != nil {
		return core.UserRecord{}, err
	}
	if err := mutate(&rec); err != nil {
		return core.UserRecord{}, err
	}
	err = s.store.Save(ctx, rec)
	// The store stamps UpdatedAt, and a failed save may be partial.
	s.invalidate(username)
	if err != nil {
		return core.UserRecord{}, fmt.Errorf("save record %s: %w", username, err)
	}

	s.publish(ctx, username, reason)
	return rec, nil
}

func (s *BudgetService) publish(ctx context.Context, username, reason string) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "Event publisher not configured, skipping record saved message", log.FieldUsername, username)
		return
	}
	if err := s.publisher.PublishRecordSaved(ctx, username, reason); err != nil {
		// The record is saved; a missed export is picked up by the next change.
		s.logger.ErrorContext(ctx, "Failed to publish record saved message",
			log.FieldUsername, username, "reason", reason, log.FieldError, err)
	}
}

func (s *BudgetService) lockFor(username string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(username, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Close closes the store and publisher when they hold resources.
func (s *BudgetService) Close() error {
	var errs []error

	if c, ok := s.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	return errors.Join(errs...)
}
