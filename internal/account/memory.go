package account

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and for single-node play.
type MemoryStore struct {
	mu             sync.Mutex
	balances       map[string]decimal.Decimal
	referrals      map[string]map[string]bool // referrer → referred set
	startBalance   decimal.Decimal
	referralReward decimal.Decimal
}

// NewMemoryStore creates an in-memory account store. New actors start
// with startBalance points; each successful referral pays reward.
func NewMemoryStore(startBalance, reward decimal.Decimal) *MemoryStore {
	return &MemoryStore{
		balances:       make(map[string]decimal.Decimal),
		referrals:      make(map[string]map[string]bool),
		startBalance:   startBalance,
		referralReward: reward,
	}
}

// ensureLocked creates the actor with the starting balance if unknown.
// Callers hold s.mu.
func (s *MemoryStore) ensureLocked(actorID string) decimal.Decimal {
	bal, ok := s.balances[actorID]
	if !ok {
		bal = s.startBalance
		s.balances[actorID] = bal
	}
	return bal
}

func (s *MemoryStore) Balance(_ context.Context, actorID string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ensureLocked(actorID), nil
}

func (s *MemoryStore) Debit(_ context.Context, actorID string, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bal := s.ensureLocked(actorID)
	if bal.LessThan(amount) {
		return ErrInsufficientFunds
	}
	s.balances[actorID] = bal.Sub(amount)
	return nil
}

func (s *MemoryStore) Credit(_ context.Context, actorID string, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bal := s.ensureLocked(actorID)
	s.balances[actorID] = bal.Add(amount)
	return nil
}

func (s *MemoryStore) Leaderboard(_ context.Context, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]Entry, 0, len(s.balances))
	for id, bal := range s.balances {
		entries = append(entries, Entry{ActorID: id, Balance: bal})
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Balance.Equal(entries[j].Balance) {
			return entries[i].Balance.GreaterThan(entries[j].Balance)
		}
		return entries[i].ActorID < entries[j].ActorID
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *MemoryStore) RecordReferral(_ context.Context, referrerID, newActorID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	referred, ok := s.referrals[referrerID]
	if !ok {
		referred = make(map[string]bool)
		s.referrals[referrerID] = referred
	}
	if referred[newActorID] {
		return false, nil
	}
	referred[newActorID] = true

	bal := s.ensureLocked(referrerID)
	s.balances[referrerID] = bal.Add(s.referralReward)
	return true, nil
}
