package account_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/crickbet/wager-engine/internal/account"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func newStore() *account.MemoryStore {
	return account.NewMemoryStore(d(1000), d(5))
}

func TestBalance_LazyCreation(t *testing.T) {
	s := newStore()

	bal, err := s.Balance(context.Background(), "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bal.Equal(d(1000)) {
		t.Errorf("new actor should start at 1000, got %s", bal)
	}
}

func TestDebit_InsufficientFunds(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	err := s.Debit(ctx, "alice", d(1001))
	if !errors.Is(err, account.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	// A failed debit must not move the balance.
	bal, _ := s.Balance(ctx, "alice")
	if !bal.Equal(d(1000)) {
		t.Errorf("balance moved on failed debit: %s", bal)
	}
}

func TestDebit_ExactBalanceAllowed(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	if err := s.Debit(ctx, "alice", d(1000)); err != nil {
		t.Fatalf("debit of exact balance should succeed: %v", err)
	}
	bal, _ := s.Balance(ctx, "alice")
	if !bal.IsZero() {
		t.Errorf("expected zero balance, got %s", bal)
	}
}

func TestCreditDebit_RoundTrip(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	if err := s.Debit(ctx, "alice", d(250)); err != nil {
		t.Fatalf("debit failed: %v", err)
	}
	if err := s.Credit(ctx, "alice", d(475)); err != nil {
		t.Fatalf("credit failed: %v", err)
	}

	bal, _ := s.Balance(ctx, "alice")
	if !bal.Equal(d(1225)) {
		t.Errorf("expected 1225, got %s", bal)
	}
}

func TestLeaderboard_OrderAndLimit(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	s.Credit(ctx, "carol", d(50))
	s.Debit(ctx, "bob", d(100))
	s.Balance(ctx, "alice")

	entries, err := s.Leaderboard(ctx, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ActorID != "carol" || entries[1].ActorID != "alice" {
		t.Errorf("unexpected order: %s, %s", entries[0].ActorID, entries[1].ActorID)
	}
}

func TestRecordReferral_IdempotentPerReferred(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	rewarded, err := s.RecordReferral(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rewarded {
		t.Error("first referral should pay")
	}

	rewarded, _ = s.RecordReferral(ctx, "alice", "bob")
	if rewarded {
		t.Error("repeat referral must not pay")
	}

	// A different referred actor pays again.
	rewarded, _ = s.RecordReferral(ctx, "alice", "carol")
	if !rewarded {
		t.Error("distinct referred actor should pay")
	}

	bal, _ := s.Balance(ctx, "alice")
	if !bal.Equal(d(1010)) {
		t.Errorf("expected 1010 after two rewards, got %s", bal)
	}
}
