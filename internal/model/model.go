// Package model defines the core domain types shared across the wager engine.
// All point amounts and odds use shopspring/decimal — never float64 for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Market families. Threshold markets ask over/under a runs line for a
// single over; team markets ask which side wins the match. Both are
// binary, but each family prices with its own curve.
const (
	FamilyThreshold = "threshold"
	FamilyTeam      = "team"
)

// Market is a single binary proposition accepting stakes on exactly
// two mutually exclusive sides.
type Market struct {
	ID          string          `json:"id" db:"id"`
	Family      string          `json:"family" db:"family"`
	SideA       string          `json:"side_a" db:"side_a"`
	SideB       string          `json:"side_b" db:"side_b"`
	Open        bool            `json:"open" db:"open"`
	SideAAmount decimal.Decimal `json:"side_a_amount" db:"side_a_amount"`
	SideBAmount decimal.Decimal `json:"side_b_amount" db:"side_b_amount"`
	SideAOdds   decimal.Decimal `json:"side_a_odds" db:"side_a_odds"`
	SideBOdds   decimal.Decimal `json:"side_b_odds" db:"side_b_odds"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// HasSide reports whether label is one of the market's two sides.
func (m *Market) HasSide(label string) bool {
	return label == m.SideA || label == m.SideB
}

// OddsFor returns the current odds for the given side label.
// Callers validate the label with HasSide first.
func (m *Market) OddsFor(label string) decimal.Decimal {
	if label == m.SideA {
		return m.SideAOdds
	}
	return m.SideBOdds
}

// StakeRecord is one actor's wager on one side of a market. Records are
// append-only; only the settlement fields mutate, exactly once, when the
// market's outcome is announced.
type StakeRecord struct {
	ID          string          `json:"id" db:"id"`
	MarketID    string          `json:"market_id" db:"market_id"`
	ActorID     string          `json:"actor_id" db:"actor_id"`
	Side        string          `json:"side" db:"side"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Odds        decimal.Decimal `json:"odds" db:"odds"` // captured at placement, immutable
	PlacedAt    time.Time       `json:"placed_at" db:"placed_at"`
	Settled     bool            `json:"settled" db:"settled"`
	OutcomeSide string          `json:"outcome_side,omitempty" db:"outcome_side"`
	Payout      decimal.Decimal `json:"payout" db:"payout"` // zero until settlement
}

// Outcome is the announced result of a market, produced once per
// market lifecycle.
type Outcome struct {
	MarketID    string    `json:"market_id" db:"market_id"`
	WinningSide string    `json:"winning_side" db:"winning_side"`
	AnnouncedAt time.Time `json:"announced_at" db:"announced_at"`
}

// Snapshot is the serializable shape of the in-memory engine state,
// used by the caller's own save/load cycle. The engine owns the shape,
// not the file format or timing.
type Snapshot struct {
	Markets  []Market      `json:"markets"`
	Stakes   []StakeRecord `json:"stakes"`
	Outcomes []Outcome     `json:"outcomes"`
}
