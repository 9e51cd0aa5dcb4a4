package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/crickbet/wager-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and for single-node play where the snapshot file is the only
// durability layer.
type MemoryStore struct {
	mu       sync.RWMutex
	markets  map[string]*model.Market
	stakes   []model.StakeRecord
	outcomes map[string]*model.Outcome
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		markets:  make(map[string]*model.Market),
		outcomes: make(map[string]*model.Outcome),
	}
}

func (s *MemoryStore) CreateMarket(_ context.Context, m *model.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.markets[m.ID]; exists {
		return fmt.Errorf("market %s already exists", m.ID)
	}

	// Store a copy to avoid external mutation.
	cp := *m
	s.markets[m.ID] = &cp
	return nil
}

func (s *MemoryStore) GetMarket(_ context.Context, id string) (*model.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.markets[id]
	if !ok {
		return nil, fmt.Errorf("market %s: %w", id, ErrNotFound)
	}
	cp := *m
	return &cp, nil
}

func (s *MemoryStore) ListMarkets(_ context.Context) ([]model.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	markets := make([]model.Market, 0, len(s.markets))
	for _, m := range s.markets {
		markets = append(markets, *m)
	}
	return markets, nil
}

func (s *MemoryStore) UpdateMarketState(_ context.Context, id string, sideAAmount, sideBAmount, sideAOdds, sideBOdds decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.markets[id]
	if !ok {
		return fmt.Errorf("market %s: %w", id, ErrNotFound)
	}
	m.SideAAmount = sideAAmount
	m.SideBAmount = sideBAmount
	m.SideAOdds = sideAOdds
	m.SideBOdds = sideBOdds
	return nil
}

func (s *MemoryStore) CloseMarket(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.markets[id]
	if !ok {
		return fmt.Errorf("market %s: %w", id, ErrNotFound)
	}
	m.Open = false
	return nil
}

func (s *MemoryStore) InsertStake(_ context.Context, rec *model.StakeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stakes = append(s.stakes, *rec)
	return nil
}

func (s *MemoryStore) StakesByMarket(_ context.Context, marketID string) ([]model.StakeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.StakeRecord
	for _, r := range s.stakes {
		if r.MarketID == marketID {
			result = append(result, r)
		}
	}
	return result, nil
}

func (s *MemoryStore) StakesByActor(_ context.Context, actorID string) ([]model.StakeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.StakeRecord
	for _, r := range s.stakes {
		if r.ActorID == actorID {
			result = append(result, r)
		}
	}
	return result, nil
}

func (s *MemoryStore) MarkStakeSettled(_ context.Context, stakeID, outcomeSide string, payout decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.stakes {
		if s.stakes[i].ID != stakeID {
			continue
		}
		if s.stakes[i].Settled {
			return nil
		}
		s.stakes[i].Settled = true
		s.stakes[i].OutcomeSide = outcomeSide
		s.stakes[i].Payout = payout
		return nil
	}
	return fmt.Errorf("stake %s: %w", stakeID, ErrNotFound)
}

func (s *MemoryStore) RecordOutcome(_ context.Context, o *model.Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *o
	s.outcomes[o.MarketID] = &cp
	return nil
}

func (s *MemoryStore) GetOutcome(_ context.Context, marketID string) (*model.Outcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.outcomes[marketID]
	if !ok {
		return nil, fmt.Errorf("outcome for market %s: %w", marketID, ErrNotFound)
	}
	cp := *o
	return &cp, nil
}

func (s *MemoryStore) ExportSnapshot(_ context.Context) (*model.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &model.Snapshot{
		Markets:  make([]model.Market, 0, len(s.markets)),
		Stakes:   make([]model.StakeRecord, len(s.stakes)),
		Outcomes: make([]model.Outcome, 0, len(s.outcomes)),
	}
	for _, m := range s.markets {
		snap.Markets = append(snap.Markets, *m)
	}
	copy(snap.Stakes, s.stakes)
	for _, o := range s.outcomes {
		snap.Outcomes = append(snap.Outcomes, *o)
	}
	return snap, nil
}

func (s *MemoryStore) ImportSnapshot(_ context.Context, snap *model.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.markets = make(map[string]*model.Market, len(snap.Markets))
	for i := range snap.Markets {
		cp := snap.Markets[i]
		s.markets[cp.ID] = &cp
	}
	s.stakes = make([]model.StakeRecord, len(snap.Stakes))
	copy(s.stakes, snap.Stakes)
	s.outcomes = make(map[string]*model.Outcome, len(snap.Outcomes))
	for i := range snap.Outcomes {
		cp := snap.Outcomes[i]
		s.outcomes[cp.MarketID] = &cp
	}
	return nil
}
