package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/crickbet/wager-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Writes go to the primary store and invalidate the cache; reads
// check Redis first then fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) CreateMarket(ctx context.Context, m *model.Market) error {
	if err := s.primary.CreateMarket(ctx, m); err != nil {
		return err
	}
	s.cacheMarket(ctx, m)
	return nil
}

func (s *CachedStore) UpdateMarketState(ctx context.Context, id string, sideAAmount, sideBAmount, sideAOdds, sideBOdds decimal.Decimal) error {
	if err := s.primary.UpdateMarketState(ctx, id, sideAAmount, sideBAmount, sideAOdds, sideBOdds); err != nil {
		return err
	}
	// Invalidate; next read re-populates.
	s.rdb.Del(ctx, marketKey(id))
	return nil
}

func (s *CachedStore) CloseMarket(ctx context.Context, id string) error {
	if err := s.primary.CloseMarket(ctx, id); err != nil {
		return err
	}
	s.rdb.Del(ctx, marketKey(id))
	return nil
}

func (s *CachedStore) InsertStake(ctx context.Context, rec *model.StakeRecord) error {
	if err := s.primary.InsertStake(ctx, rec); err != nil {
		return err
	}
	s.rdb.Del(ctx, marketStakesKey(rec.MarketID))
	return nil
}

func (s *CachedStore) MarkStakeSettled(ctx context.Context, stakeID, outcomeSide string, payout decimal.Decimal) error {
	if err := s.primary.MarkStakeSettled(ctx, stakeID, outcomeSide, payout); err != nil {
		return err
	}
	// The stake cache is keyed by market; cheapest correct move is a
	// full flush of stake caches on settlement, which is rare.
	s.flushStakeCaches(ctx)
	return nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetMarket(ctx context.Context, id string) (*model.Market, error) {
	data, err := s.rdb.Get(ctx, marketKey(id)).Bytes()
	if err == nil {
		var m model.Market
		if json.Unmarshal(data, &m) == nil {
			return &m, nil
		}
	}

	m, err := s.primary.GetMarket(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cacheMarket(ctx, m)
	return m, nil
}

func (s *CachedStore) StakesByMarket(ctx context.Context, marketID string) ([]model.StakeRecord, error) {
	data, err := s.rdb.Get(ctx, marketStakesKey(marketID)).Bytes()
	if err == nil {
		var records []model.StakeRecord
		if json.Unmarshal(data, &records) == nil {
			return records, nil
		}
	}

	records, err := s.primary.StakesByMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(records); err == nil {
		s.rdb.Set(ctx, marketStakesKey(marketID), data, s.ttl)
	}
	return records, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) ListMarkets(ctx context.Context) ([]model.Market, error) {
	return s.primary.ListMarkets(ctx)
}

func (s *CachedStore) StakesByActor(ctx context.Context, actorID string) ([]model.StakeRecord, error) {
	return s.primary.StakesByActor(ctx, actorID)
}

func (s *CachedStore) RecordOutcome(ctx context.Context, o *model.Outcome) error {
	return s.primary.RecordOutcome(ctx, o)
}

func (s *CachedStore) GetOutcome(ctx context.Context, marketID string) (*model.Outcome, error) {
	return s.primary.GetOutcome(ctx, marketID)
}

func (s *CachedStore) ExportSnapshot(ctx context.Context) (*model.Snapshot, error) {
	return s.primary.ExportSnapshot(ctx)
}

func (s *CachedStore) ImportSnapshot(ctx context.Context, snap *model.Snapshot) error {
	if err := s.primary.ImportSnapshot(ctx, snap); err != nil {
		return err
	}
	s.flushStakeCaches(ctx)
	for _, m := range snap.Markets {
		s.rdb.Del(ctx, marketKey(m.ID))
	}
	return nil
}

// --- Cache helpers ---

func (s *CachedStore) cacheMarket(ctx context.Context, m *model.Market) {
	if data, err := json.Marshal(m); err == nil {
		s.rdb.Set(ctx, marketKey(m.ID), data, s.ttl)
	}
}

func (s *CachedStore) flushStakeCaches(ctx context.Context) {
	iter := s.rdb.Scan(ctx, 0, "stakes:*", 0).Iterator()
	for iter.Next(ctx) {
		s.rdb.Del(ctx, iter.Val())
	}
}

func marketKey(id string) string       { return fmt.Sprintf("market:%s", id) }
func marketStakesKey(id string) string { return fmt.Sprintf("stakes:%s", id) }
