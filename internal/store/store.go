// Package store defines the persistence interface for the wager engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing and single-node play).
package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/crickbet/wager-engine/internal/model"
)

// ErrNotFound is returned when a market, stake, or outcome does not exist.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence interface for markets, the stake ledger, and
// announced outcomes.
type Store interface {
	// --- Market operations ---

	// CreateMarket persists a new market. Fails if the ID already exists.
	CreateMarket(ctx context.Context, m *model.Market) error

	// GetMarket retrieves a market by its ID.
	GetMarket(ctx context.Context, id string) (*model.Market, error)

	// ListMarkets returns all markets.
	ListMarkets(ctx context.Context) ([]model.Market, error)

	// UpdateMarketState updates side totals and odds after an accepted stake.
	UpdateMarketState(ctx context.Context, id string, sideAAmount, sideBAmount, sideAOdds, sideBOdds decimal.Decimal) error

	// CloseMarket sets Open=false. Idempotent.
	CloseMarket(ctx context.Context, id string) error

	// --- Stake ledger ---

	// InsertStake appends a stake record.
	InsertStake(ctx context.Context, rec *model.StakeRecord) error

	// StakesByMarket returns all stakes for a market, across all actors,
	// in insertion order.
	StakesByMarket(ctx context.Context, marketID string) ([]model.StakeRecord, error)

	// StakesByActor returns all stakes placed by one actor, in insertion order.
	StakesByActor(ctx context.Context, actorID string) ([]model.StakeRecord, error)

	// MarkStakeSettled sets the settlement fields on one stake record.
	// Records already settled are left untouched.
	MarkStakeSettled(ctx context.Context, stakeID, outcomeSide string, payout decimal.Decimal) error

	// --- Outcomes ---

	// RecordOutcome persists the announced outcome for a market.
	RecordOutcome(ctx context.Context, o *model.Outcome) error

	// GetOutcome retrieves the announced outcome for a market, if any.
	GetOutcome(ctx context.Context, marketID string) (*model.Outcome, error)

	// --- Snapshot ---

	// ExportSnapshot returns the full engine state in serializable form.
	ExportSnapshot(ctx context.Context) (*model.Snapshot, error)

	// ImportSnapshot replaces the stored state with the snapshot contents.
	ImportSnapshot(ctx context.Context, snap *model.Snapshot) error
}
