package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"finpal/internal/core"
	"finpal/internal/records"
)

func TestMemoryStoreSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	s := New()
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	if _, err := s.Load(ctx, "alice"); !errors.Is(err, records.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	rec := core.NewUserRecord("alice")
	rec.Income = core.Money{Cents: 8500000}
	rec.Expenses = []core.Expense{{Date: core.NewDate(2024, 4, 1), Amount: core.Money{Cents: 100}, Category: "Gym"}}
	if err := s.Save(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Mutating the caller's copy must not leak into the store.
	rec.Budget["Rent"] = core.Money{Cents: 1}
	rec.Expenses[0].Category = "Changed"

	got, err := s.Load(ctx, "alice")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Income.Cents != 8500000 || !got.UpdatedAt.Equal(fixed) {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.Budget["Rent"].Cents != 0 || got.Expenses[0].Category != "Gym" {
		t.Fatalf("store shares state with caller: %+v", got)
	}

	got.Expenses = nil
	again, _ := s.Load(ctx, "alice")
	if len(again.Expenses) != 1 {
		t.Fatalf("store shares state with loader")
	}
}

func TestMemoryStoreRejectsInvalid(t *testing.T) {
	s := New()
	if err := s.Save(context.Background(), core.UserRecord{Username: "no spaces allowed"}); err == nil {
		t.Fatalf("expected validation error")
	}
	if names, _ := s.Usernames(context.Background()); len(names) != 0 {
		t.Fatalf("invalid record was stored")
	}
}

func TestMemoryStoreUsernames(t *testing.T) {
	s := New()
	for _, u := range []string{"carol", "alice", "bob"} {
		if err := s.Save(context.Background(), core.NewUserRecord(u)); err != nil {
			t.Fatalf("save %s: %v", u, err)
		}
	}
	got, err := s.Usernames(context.Background())
	if err != nil {
		t.Fatalf("usernames: %v", err)
	}
	if len(got) != 3 || got[0] != "alice" || got[2] != "carol" {
		t.Fatalf("unexpected usernames: %v", got)
	}
}
