// Package wager implements the wagering ledger and dynamic-odds engine:
// stake placement (validate → price → debit → record → re-price) and
// one-shot settlement of every outstanding stake against an announced
// outcome.
//
// All point amounts use shopspring/decimal — never float64 for money.
package wager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/crickbet/wager-engine/internal/account"
	"github.com/crickbet/wager-engine/internal/market"
	"github.com/crickbet/wager-engine/internal/metrics"
	"github.com/crickbet/wager-engine/internal/model"
	"github.com/crickbet/wager-engine/internal/odds"
	"github.com/crickbet/wager-engine/internal/store"
)

var (
	// ErrInvalidAmount is returned for zero or negative stake amounts.
	ErrInvalidAmount = errors.New("wager: stake amount must be positive")

	// ErrMarketClosed is returned when a stake targets a closed or
	// missing market.
	ErrMarketClosed = errors.New("wager: market is closed or not accepting stakes")

	// ErrMarketNotFound is returned by settlement and queries for an
	// unknown market.
	ErrMarketNotFound = errors.New("wager: market not found")

	// ErrMarketExists is returned when opening a market that already exists.
	ErrMarketExists = errors.New("wager: market already exists")

	// ErrInvalidSide is returned when a side label is not one of the
	// market's two sides.
	ErrInvalidSide = errors.New("wager: side is not one of the market's labels")

	// ErrNoStakes is returned when settling a market nobody staked on.
	ErrNoStakes = errors.New("wager: no stakes recorded for market")
)

// Service is the wager engine. It owns market and stake-record
// lifecycles and references actor balances only through the injected
// account capability.
//
// A single mutex serializes stake placement and settlement: the load is
// a single chat-command stream, so one coarse lock is enough to keep
// odds, totals, and the ledger consistent.
type Service struct {
	store     store.Store
	accounts  account.Store
	threshold *odds.ThresholdPricer
	team      *odds.TeamPricer
	mu        sync.Mutex
	hub       *EventHub // optional, for real-time event broadcasts
}

// NewService creates a wager engine over the given stores.
// Pass nil for hub if event broadcasting is not needed.
func NewService(st store.Store, accounts account.Store, hub *EventHub) *Service {
	return &Service{
		store:     st,
		accounts:  accounts,
		threshold: odds.NewThresholdPricer(),
		team:      odds.NewTeamPricer(),
		hub:       hub,
	}
}

// StakeConfirmation is returned from a successful PlaceStake call.
type StakeConfirmation struct {
	StakeID         string          `json:"stake_id"`
	MarketID        string          `json:"market_id"`
	ActorID         string          `json:"actor_id"`
	Side            string          `json:"side"`
	Amount          decimal.Decimal `json:"amount"`
	Odds            decimal.Decimal `json:"odds"` // locked at acceptance
	PotentialPayout decimal.Decimal `json:"potential_payout"`
	MarketOdds      OddsPair        `json:"market_odds"` // odds after this stake
}

// OddsPair is the current odds for both sides of a market.
type OddsPair struct {
	SideA     string          `json:"side_a"`
	SideB     string          `json:"side_b"`
	SideAOdds decimal.Decimal `json:"side_a_odds"`
	SideBOdds decimal.Decimal `json:"side_b_odds"`
}

// ActorWinSummary aggregates one actor's winning stakes in a settlement.
type ActorWinSummary struct {
	ActorID     string          `json:"actor_id"`
	StakeCount  int             `json:"stake_count"`
	TotalStaked decimal.Decimal `json:"total_staked"`
	TotalWon    decimal.Decimal `json:"total_won"`
}

// ActorLossSummary aggregates one actor's losing stakes in a settlement.
type ActorLossSummary struct {
	ActorID    string          `json:"actor_id"`
	StakeCount int             `json:"stake_count"`
	TotalLost  decimal.Decimal `json:"total_lost"`
}

// SettlementReport is the aggregated result of settling one market.
type SettlementReport struct {
	MarketID       string             `json:"market_id"`
	WinningSide    string             `json:"winning_side"`
	AlreadySettled bool               `json:"already_settled"`
	Refunded       bool               `json:"refunded"`
	RefundActorID  string             `json:"refund_actor_id,omitempty"`
	RefundAmount   decimal.Decimal    `json:"refund_amount"`
	TotalStakes    int                `json:"total_stakes"`
	DistinctActors int                `json:"distinct_actors"`
	Winners        []ActorWinSummary  `json:"winners"`
	Losers         []ActorLossSummary `json:"losers"`
}

// newMarket builds a fresh market for the parsed ID with base odds and
// zero totals.
func (s *Service) newMarket(id *market.ID, sideA, sideB string) *model.Market {
	base := odds.BaseOdds
	return &model.Market{
		ID:          id.Raw,
		Family:      id.Family,
		SideA:       sideA,
		SideB:       sideB,
		Open:        true,
		SideAAmount: decimal.Zero,
		SideBAmount: decimal.Zero,
		SideAOdds:   base,
		SideBOdds:   base,
		CreatedAt:   time.Now().UTC(),
	}
}

// OpenMarket creates a market and opens it for stakes. Threshold
// markets always carry the over/under labels; team markets require both
// team names.
func (s *Service) OpenMarket(ctx context.Context, marketID, sideA, sideB string) (*model.Market, error) {
	id, err := market.ParseID(marketID)
	if err != nil {
		return nil, err
	}

	switch id.Family {
	case model.FamilyThreshold:
		sideA, sideB = market.SideOver, market.SideUnder
	case model.FamilyTeam:
		if sideA == "" || sideB == "" || sideA == sideB {
			return nil, fmt.Errorf("%w: team markets need two distinct team labels", ErrInvalidSide)
		}
	}

	m := s.newMarket(id, sideA, sideB)
	if err := s.store.CreateMarket(ctx, m); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMarketExists, marketID)
	}

	metrics.OpenMarkets.Inc()
	slog.Info("market opened",
		"market", m.ID,
		"family", m.Family,
		"side_a", m.SideA,
		"side_b", m.SideB,
	)
	return m, nil
}

// getOrInitMarket fetches a market, lazily creating threshold markets
// on first reference. Team markets need explicit creation because their
// side labels cannot be derived from the ID alone.
func (s *Service) getOrInitMarket(ctx context.Context, marketID string) (*model.Market, error) {
	m, err := s.store.GetMarket(ctx, marketID)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	id, perr := market.ParseID(marketID)
	if perr != nil || id.Family != model.FamilyThreshold {
		return nil, fmt.Errorf("%w: %s", ErrMarketClosed, marketID)
	}

	m = s.newMarket(id, market.SideOver, market.SideUnder)
	if err := s.store.CreateMarket(ctx, m); err != nil {
		return nil, err
	}
	metrics.OpenMarkets.Inc()
	slog.Info("market initialized on first stake", "market", m.ID)
	return m, nil
}

// PlaceStake accepts a stake against one side of a market.
//
// Preconditions, first failure wins: market open, amount positive,
// balance sufficient. The odds locked into the record are the odds
// visible at the moment of acceptance, before this stake moves the
// price. Debit and record creation hold together: a failed record
// insert refunds the debit before returning.
func (s *Service) PlaceStake(ctx context.Context, actorID, marketID, side string, amount decimal.Decimal) (*StakeConfirmation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.getOrInitMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	if !m.Open {
		return nil, fmt.Errorf("%w: %s", ErrMarketClosed, marketID)
	}
	if !m.HasSide(side) {
		return nil, fmt.Errorf("%w: %q (market offers %s/%s)", ErrInvalidSide, side, m.SideA, m.SideB)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}

	lockedOdds := m.OddsFor(side)

	if err := s.accounts.Debit(ctx, actorID, amount); err != nil {
		if errors.Is(err, account.ErrInsufficientFunds) {
			metrics.StakeRejections.Inc()
		}
		return nil, err
	}

	rec := &model.StakeRecord{
		ID:       uuid.New().String(),
		MarketID: m.ID,
		ActorID:  actorID,
		Side:     side,
		Amount:   amount,
		Odds:     lockedOdds,
		PlacedAt: time.Now().UTC(),
		Payout:   decimal.Zero,
	}

	if err := s.store.InsertStake(ctx, rec); err != nil {
		// A record must never be missing while the debit stands.
		if cerr := s.accounts.Credit(ctx, actorID, amount); cerr != nil {
			slog.Error("stake insert failed and refund failed",
				"actor", actorID, "amount", amount.String(), "err", cerr)
		}
		return nil, fmt.Errorf("record stake: %w", err)
	}

	// Apply the stake to the side totals, then re-price for the next
	// punter. Every accepted stake triggers a full odds refresh.
	newA, newB := m.SideAAmount, m.SideBAmount
	if side == m.SideA {
		newA = newA.Add(amount)
	} else {
		newB = newB.Add(amount)
	}

	var oddsA, oddsB decimal.Decimal
	if m.Family == model.FamilyTeam {
		oddsA, oddsB = s.team.Price(m.SideAOdds, m.SideBOdds, newA, newB)
	} else {
		oddsA, oddsB = s.threshold.Price(newA, newB)
	}

	if err := s.store.UpdateMarketState(ctx, m.ID, newA, newB, oddsA, oddsB); err != nil {
		// The debit and the record already agree; the book stays stale
		// until the next accepted stake re-prices it.
		slog.Error("market re-price failed, book is stale",
			"market", m.ID, "err", err)
	}

	metrics.StakesTotal.WithLabelValues(m.Family, side).Inc()

	slog.Info("stake placed",
		"stake_id", rec.ID,
		"actor", actorID,
		"market", m.ID,
		"side", side,
		"amount", amount.String(),
		"odds", lockedOdds.String(),
		"new_odds_a", oddsA.String(),
		"new_odds_b", oddsB.String(),
	)

	if s.hub != nil {
		s.hub.Broadcast(Event{
			Type:      EventStakePlaced,
			MarketID:  m.ID,
			ActorID:   actorID,
			Side:      side,
			Amount:    amount.String(),
			Odds:      lockedOdds.String(),
			SideAOdds: oddsA.String(),
			SideBOdds: oddsB.String(),
		})
	}

	return &StakeConfirmation{
		StakeID:         rec.ID,
		MarketID:        m.ID,
		ActorID:         actorID,
		Side:            side,
		Amount:          amount,
		Odds:            lockedOdds,
		PotentialPayout: odds.Payout(amount, lockedOdds),
		MarketOdds: OddsPair{
			SideA:     m.SideA,
			SideB:     m.SideB,
			SideAOdds: oddsA,
			SideBOdds: oddsB,
		},
	}, nil
}

// Settle resolves a market against the announced winning side: closes
// the market, pays every winning stake floor(amount × locked odds),
// zeroes losers, and marks every record settled exactly once.
//
// A market where only one distinct actor staked refunds that actor's
// stakes in full instead — a fairness rule for degenerate one-sided
// books, applied before the side label is validated.
//
// Settling an already-settled market is a no-op reported through
// AlreadySettled, never a double payout.
func (s *Service) Settle(ctx context.Context, marketID, winningSide string) (*SettlementReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.store.GetMarket(ctx, marketID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrMarketNotFound, marketID)
		}
		return nil, err
	}

	records, err := s.store.StakesByMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoStakes, marketID)
	}

	actors := distinctActors(records)
	report := &SettlementReport{
		MarketID:       marketID,
		WinningSide:    winningSide,
		RefundAmount:   decimal.Zero,
		TotalStakes:    len(records),
		DistinctActors: len(actors),
		Winners:        []ActorWinSummary{},
		Losers:         []ActorLossSummary{},
	}

	unsettled := make([]model.StakeRecord, 0, len(records))
	for _, r := range records {
		if !r.Settled {
			unsettled = append(unsettled, r)
		}
	}
	if len(unsettled) == 0 {
		// Re-announcement: keep the original outcome in the report.
		if o, oerr := s.store.GetOutcome(ctx, marketID); oerr == nil {
			report.WinningSide = o.WinningSide
		}
		report.AlreadySettled = true
		return report, nil
	}

	if len(actors) == 1 {
		return s.refundSingleActor(ctx, m, winningSide, actors[0], unsettled, report)
	}

	if !m.HasSide(winningSide) {
		return nil, fmt.Errorf("%w: %q (market offers %s/%s)", ErrInvalidSide, winningSide, m.SideA, m.SideB)
	}

	if err := s.closeAndRecordOutcome(ctx, m, winningSide); err != nil {
		return nil, err
	}

	wins := make(map[string]*ActorWinSummary)
	losses := make(map[string]*ActorLossSummary)

	for _, r := range unsettled {
		isWin := r.Side == winningSide
		payout := decimal.Zero

		if isWin {
			payout = odds.Payout(r.Amount, r.Odds)
			if err := s.accounts.Credit(ctx, r.ActorID, payout); err != nil {
				return nil, fmt.Errorf("credit winner %s: %w", r.ActorID, err)
			}
		}
		if err := s.store.MarkStakeSettled(ctx, r.ID, winningSide, payout); err != nil {
			return nil, fmt.Errorf("mark stake %s settled: %w", r.ID, err)
		}

		if isWin {
			w, ok := wins[r.ActorID]
			if !ok {
				report.Winners = append(report.Winners, ActorWinSummary{ActorID: r.ActorID, TotalStaked: decimal.Zero, TotalWon: decimal.Zero})
				w = &report.Winners[len(report.Winners)-1]
				wins[r.ActorID] = w
			}
			w.StakeCount++
			w.TotalStaked = w.TotalStaked.Add(r.Amount)
			w.TotalWon = w.TotalWon.Add(payout)
			metrics.PayoutsTotal.Add(payout.InexactFloat64())
		} else {
			l, ok := losses[r.ActorID]
			if !ok {
				report.Losers = append(report.Losers, ActorLossSummary{ActorID: r.ActorID, TotalLost: decimal.Zero})
				l = &report.Losers[len(report.Losers)-1]
				losses[r.ActorID] = l
			}
			l.StakeCount++
			l.TotalLost = l.TotalLost.Add(r.Amount)
		}
	}

	metrics.SettlementsTotal.WithLabelValues(m.Family).Inc()

	slog.Info("market settled",
		"market", marketID,
		"winning_side", winningSide,
		"stakes", report.TotalStakes,
		"actors", report.DistinctActors,
		"winners", len(report.Winners),
		"losers", len(report.Losers),
	)

	if s.hub != nil {
		s.hub.Broadcast(Event{
			Type:        EventMarketSettled,
			MarketID:    marketID,
			WinningSide: winningSide,
		})
	}

	return report, nil
}

// refundSingleActor returns every unsettled stake to the lone bettor in
// full and closes the market. Win/loss logic never applies to a market
// with no counterparty.
func (s *Service) refundSingleActor(ctx context.Context, m *model.Market, winningSide, actorID string, unsettled []model.StakeRecord, report *SettlementReport) (*SettlementReport, error) {
	total := decimal.Zero
	for _, r := range unsettled {
		total = total.Add(r.Amount)
	}

	if err := s.accounts.Credit(ctx, actorID, total); err != nil {
		return nil, fmt.Errorf("refund %s: %w", actorID, err)
	}
	for _, r := range unsettled {
		if err := s.store.MarkStakeSettled(ctx, r.ID, winningSide, r.Amount); err != nil {
			return nil, fmt.Errorf("mark stake %s settled: %w", r.ID, err)
		}
	}
	if err := s.closeAndRecordOutcome(ctx, m, winningSide); err != nil {
		return nil, err
	}

	report.Refunded = true
	report.RefundActorID = actorID
	report.RefundAmount = total

	metrics.SettlementsTotal.WithLabelValues(m.Family).Inc()
	slog.Info("single-actor market refunded",
		"market", m.ID, "actor", actorID, "amount", total.String())

	if s.hub != nil {
		s.hub.Broadcast(Event{
			Type:        EventMarketSettled,
			MarketID:    m.ID,
			WinningSide: winningSide,
			Refunded:    true,
		})
	}

	return report, nil
}

func (s *Service) closeAndRecordOutcome(ctx context.Context, m *model.Market, winningSide string) error {
	if m.Open {
		if err := s.store.CloseMarket(ctx, m.ID); err != nil {
			return err
		}
		metrics.OpenMarkets.Dec()
	}
	return s.store.RecordOutcome(ctx, &model.Outcome{
		MarketID:    m.ID,
		WinningSide: winningSide,
		AnnouncedAt: time.Now().UTC(),
	})
}

// CloseMarket stops a market from accepting stakes. Idempotent.
func (s *Service) CloseMarket(ctx context.Context, marketID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.store.GetMarket(ctx, marketID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrMarketNotFound, marketID)
		}
		return err
	}
	if !m.Open {
		return nil
	}
	if err := s.store.CloseMarket(ctx, marketID); err != nil {
		return err
	}
	metrics.OpenMarkets.Dec()
	slog.Info("market closed", "market", marketID)
	return nil
}

// Odds returns the current odds pair for a market.
func (s *Service) Odds(ctx context.Context, marketID string) (*OddsPair, error) {
	m, err := s.store.GetMarket(ctx, marketID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrMarketNotFound, marketID)
		}
		return nil, err
	}
	return &OddsPair{
		SideA:     m.SideA,
		SideB:     m.SideB,
		SideAOdds: m.SideAOdds,
		SideBOdds: m.SideBOdds,
	}, nil
}

// Markets returns all markets.
func (s *Service) Markets(ctx context.Context) ([]model.Market, error) {
	return s.store.ListMarkets(ctx)
}

// StakesForMarket returns the ledger records for one market in
// insertion order.
func (s *Service) StakesForMarket(ctx context.Context, marketID string) ([]model.StakeRecord, error) {
	return s.store.StakesByMarket(ctx, marketID)
}

// StakesForActor returns one actor's ledger records in insertion order.
func (s *Service) StakesForActor(ctx context.Context, actorID string) ([]model.StakeRecord, error) {
	return s.store.StakesByActor(ctx, actorID)
}

// ExportState returns the serializable snapshot of markets, ledger, and
// outcomes for the caller's own save cycle.
func (s *Service) ExportState(ctx context.Context) (*model.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.ExportSnapshot(ctx)
}

// ImportState replaces the engine state with a previously exported
// snapshot.
func (s *Service) ImportState(ctx context.Context, snap *model.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.ImportSnapshot(ctx, snap)
}

// distinctActors returns the actor IDs present in records, in
// first-seen order.
func distinctActors(records []model.StakeRecord) []string {
	seen := make(map[string]bool, len(records))
	var actors []string
	for _, r := range records {
		if !seen[r.ActorID] {
			seen[r.ActorID] = true
			actors = append(actors, r.ActorID)
		}
	}
	return actors
}
