package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresStore implements Store using PostgreSQL. Balances are stored
// as NUMERIC; debits rely on a conditional UPDATE so the non-negative
// invariant holds without a round trip.
type PostgresStore struct {
	pool           *pgxpool.Pool
	startBalance   decimal.Decimal
	referralReward decimal.Decimal
}

// NewPostgresStore creates a PostgreSQL-backed account store.
func NewPostgresStore(pool *pgxpool.Pool, startBalance, reward decimal.Decimal) *PostgresStore {
	return &PostgresStore{
		pool:           pool,
		startBalance:   startBalance,
		referralReward: reward,
	}
}

func (s *PostgresStore) ensure(ctx context.Context, actorID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO accounts (actor_id, balance) VALUES ($1, $2::NUMERIC)
		 ON CONFLICT (actor_id) DO NOTHING`,
		actorID, s.startBalance.String(),
	)
	return err
}

func (s *PostgresStore) Balance(ctx context.Context, actorID string) (decimal.Decimal, error) {
	if err := s.ensure(ctx, actorID); err != nil {
		return decimal.Zero, err
	}

	var balS string
	err := s.pool.QueryRow(ctx,
		`SELECT balance::TEXT FROM accounts WHERE actor_id = $1`, actorID).Scan(&balS)
	if err != nil {
		return decimal.Zero, fmt.Errorf("balance for %s: %w", actorID, err)
	}
	bal, _ := decimal.NewFromString(balS)
	return bal, nil
}

func (s *PostgresStore) Debit(ctx context.Context, actorID string, amount decimal.Decimal) error {
	if err := s.ensure(ctx, actorID); err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE accounts SET balance = balance - $2::NUMERIC
		 WHERE actor_id = $1 AND balance >= $2::NUMERIC`,
		actorID, amount.String(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientFunds
	}
	return nil
}

func (s *PostgresStore) Credit(ctx context.Context, actorID string, amount decimal.Decimal) error {
	if err := s.ensure(ctx, actorID); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx,
		`UPDATE accounts SET balance = balance + $2::NUMERIC WHERE actor_id = $1`,
		actorID, amount.String(),
	)
	return err
}

func (s *PostgresStore) Leaderboard(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT actor_id, balance::TEXT FROM accounts
		 ORDER BY balance DESC, actor_id LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var balS string
		if err := rows.Scan(&e.ActorID, &balS); err != nil {
			return nil, err
		}
		e.Balance, _ = decimal.NewFromString(balS)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) RecordReferral(ctx context.Context, referrerID, newActorID string) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	var exists string
	err = tx.QueryRow(ctx,
		`SELECT referrer_id FROM referrals WHERE referrer_id = $1 AND referred_id = $2`,
		referrerID, newActorID).Scan(&exists)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, err
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO referrals (referrer_id, referred_id) VALUES ($1, $2)`,
		referrerID, newActorID); err != nil {
		return false, err
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO accounts (actor_id, balance) VALUES ($1, $2::NUMERIC)
		 ON CONFLICT (actor_id) DO UPDATE SET balance = accounts.balance + $3::NUMERIC`,
		referrerID, s.startBalance.Add(s.referralReward).String(), s.referralReward.String()); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}
