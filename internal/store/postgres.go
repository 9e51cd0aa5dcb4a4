package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/crickbet/wager-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All point amounts and odds are stored as NUMERIC for exact precision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const marketColumns = `id, family, side_a, side_b, open,
	side_a_amount::TEXT, side_b_amount::TEXT,
	side_a_odds::TEXT, side_b_odds::TEXT, created_at`

func (s *PostgresStore) CreateMarket(ctx context.Context, m *model.Market) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO markets (id, family, side_a, side_b, open, side_a_amount, side_b_amount, side_a_odds, side_b_odds, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6::NUMERIC, $7::NUMERIC, $8::NUMERIC, $9::NUMERIC, $10)`,
		m.ID, m.Family, m.SideA, m.SideB, m.Open,
		m.SideAAmount.String(), m.SideBAmount.String(),
		m.SideAOdds.String(), m.SideBOdds.String(),
		m.CreatedAt,
	)
	return err
}

func (s *PostgresStore) GetMarket(ctx context.Context, id string) (*model.Market, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+marketColumns+` FROM markets WHERE id = $1`, id)
	m, err := scanMarket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("market %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get market %s: %w", id, err)
	}
	return m, nil
}

func (s *PostgresStore) ListMarkets(ctx context.Context) ([]model.Market, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+marketColumns+` FROM markets ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var markets []model.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, err
		}
		markets = append(markets, *m)
	}
	return markets, rows.Err()
}

func (s *PostgresStore) UpdateMarketState(ctx context.Context, id string, sideAAmount, sideBAmount, sideAOdds, sideBOdds decimal.Decimal) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE markets
		 SET side_a_amount = $2::NUMERIC, side_b_amount = $3::NUMERIC,
		     side_a_odds = $4::NUMERIC, side_b_odds = $5::NUMERIC
		 WHERE id = $1`,
		id, sideAAmount.String(), sideBAmount.String(),
		sideAOdds.String(), sideBOdds.String(),
	)
	return err
}

func (s *PostgresStore) CloseMarket(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE markets SET open = FALSE WHERE id = $1`, id)
	return err
}

const stakeColumns = `id, market_id, actor_id, side,
	amount::TEXT, odds::TEXT, placed_at,
	settled, COALESCE(outcome_side, ''), payout::TEXT`

func (s *PostgresStore) InsertStake(ctx context.Context, rec *model.StakeRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO stake_records (id, market_id, actor_id, side, amount, odds, placed_at, settled, outcome_side, payout)
		 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6::NUMERIC, $7, $8, NULLIF($9, ''), $10::NUMERIC)`,
		rec.ID, rec.MarketID, rec.ActorID, rec.Side,
		rec.Amount.String(), rec.Odds.String(), rec.PlacedAt,
		rec.Settled, rec.OutcomeSide, rec.Payout.String(),
	)
	return err
}

func (s *PostgresStore) StakesByMarket(ctx context.Context, marketID string) ([]model.StakeRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+stakeColumns+` FROM stake_records
		 WHERE market_id = $1 ORDER BY placed_at, id`, marketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanStakes(rows)
}

func (s *PostgresStore) StakesByActor(ctx context.Context, actorID string) ([]model.StakeRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+stakeColumns+` FROM stake_records
		 WHERE actor_id = $1 ORDER BY placed_at, id`, actorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanStakes(rows)
}

func (s *PostgresStore) MarkStakeSettled(ctx context.Context, stakeID, outcomeSide string, payout decimal.Decimal) error {
	// settled = FALSE guard makes re-settlement a no-op at the row level.
	_, err := s.pool.Exec(ctx,
		`UPDATE stake_records
		 SET settled = TRUE, outcome_side = $2, payout = $3::NUMERIC
		 WHERE id = $1 AND settled = FALSE`,
		stakeID, outcomeSide, payout.String(),
	)
	return err
}

func (s *PostgresStore) RecordOutcome(ctx context.Context, o *model.Outcome) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO outcomes (market_id, winning_side, announced_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (market_id) DO NOTHING`,
		o.MarketID, o.WinningSide, o.AnnouncedAt,
	)
	return err
}

func (s *PostgresStore) GetOutcome(ctx context.Context, marketID string) (*model.Outcome, error) {
	var o model.Outcome
	err := s.pool.QueryRow(ctx,
		`SELECT market_id, winning_side, announced_at FROM outcomes WHERE market_id = $1`,
		marketID).Scan(&o.MarketID, &o.WinningSide, &o.AnnouncedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("outcome for market %s: %w", marketID, ErrNotFound)
		}
		return nil, err
	}
	return &o, nil
}

func (s *PostgresStore) ExportSnapshot(ctx context.Context) (*model.Snapshot, error) {
	markets, err := s.ListMarkets(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+stakeColumns+` FROM stake_records ORDER BY placed_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	stakes, err := scanStakes(rows)
	if err != nil {
		return nil, err
	}

	oRows, err := s.pool.Query(ctx,
		`SELECT market_id, winning_side, announced_at FROM outcomes`)
	if err != nil {
		return nil, err
	}
	defer oRows.Close()

	var outcomes []model.Outcome
	for oRows.Next() {
		var o model.Outcome
		if err := oRows.Scan(&o.MarketID, &o.WinningSide, &o.AnnouncedAt); err != nil {
			return nil, err
		}
		outcomes = append(outcomes, o)
	}
	if err := oRows.Err(); err != nil {
		return nil, err
	}

	return &model.Snapshot{Markets: markets, Stakes: stakes, Outcomes: outcomes}, nil
}

func (s *PostgresStore) ImportSnapshot(ctx context.Context, snap *model.Snapshot) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, tbl := range []string{"stake_records", "outcomes", "markets"} {
		if _, err := tx.Exec(ctx, `DELETE FROM `+tbl); err != nil {
			return err
		}
	}

	for _, m := range snap.Markets {
		if _, err := tx.Exec(ctx,
			`INSERT INTO markets (id, family, side_a, side_b, open, side_a_amount, side_b_amount, side_a_odds, side_b_odds, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6::NUMERIC, $7::NUMERIC, $8::NUMERIC, $9::NUMERIC, $10)`,
			m.ID, m.Family, m.SideA, m.SideB, m.Open,
			m.SideAAmount.String(), m.SideBAmount.String(),
			m.SideAOdds.String(), m.SideBOdds.String(), m.CreatedAt); err != nil {
			return err
		}
	}
	for _, r := range snap.Stakes {
		if _, err := tx.Exec(ctx,
			`INSERT INTO stake_records (id, market_id, actor_id, side, amount, odds, placed_at, settled, outcome_side, payout)
			 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6::NUMERIC, $7, $8, NULLIF($9, ''), $10::NUMERIC)`,
			r.ID, r.MarketID, r.ActorID, r.Side,
			r.Amount.String(), r.Odds.String(), r.PlacedAt,
			r.Settled, r.OutcomeSide, r.Payout.String()); err != nil {
			return err
		}
	}
	for _, o := range snap.Outcomes {
		if _, err := tx.Exec(ctx,
			`INSERT INTO outcomes (market_id, winning_side, announced_at) VALUES ($1, $2, $3)`,
			o.MarketID, o.WinningSide, o.AnnouncedAt); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// --- row scanning helpers ---

type pgxRow interface {
	Scan(dest ...interface{}) error
}

type pgxRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanMarket(row pgxRow) (*model.Market, error) {
	var m model.Market
	var aAmt, bAmt, aOdds, bOdds string

	if err := row.Scan(&m.ID, &m.Family, &m.SideA, &m.SideB, &m.Open,
		&aAmt, &bAmt, &aOdds, &bOdds, &m.CreatedAt); err != nil {
		return nil, err
	}

	m.SideAAmount, _ = decimal.NewFromString(aAmt)
	m.SideBAmount, _ = decimal.NewFromString(bAmt)
	m.SideAOdds, _ = decimal.NewFromString(aOdds)
	m.SideBOdds, _ = decimal.NewFromString(bOdds)

	return &m, nil
}

func scanStakes(rows pgxRows) ([]model.StakeRecord, error) {
	var records []model.StakeRecord
	for rows.Next() {
		var r model.StakeRecord
		var amtS, oddsS, payoutS string

		if err := rows.Scan(&r.ID, &r.MarketID, &r.ActorID, &r.Side,
			&amtS, &oddsS, &r.PlacedAt,
			&r.Settled, &r.OutcomeSide, &payoutS); err != nil {
			return nil, err
		}

		r.Amount, _ = decimal.NewFromString(amtS)
		r.Odds, _ = decimal.NewFromString(oddsS)
		r.Payout, _ = decimal.NewFromString(payoutS)

		records = append(records, r)
	}
	return records, rows.Err()
}
