// Package account holds actor point balances. The wager engine never
// owns this state; it is handed a Store and only calls Debit and
// Credit on it.
//
// All point amounts use shopspring/decimal — never float64 for money.
package account

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrInsufficientFunds is returned by Debit when the actor's balance
// cannot cover the requested amount.
var ErrInsufficientFunds = errors.New("account: insufficient funds")

// Entry is one row of the points leaderboard.
type Entry struct {
	ActorID string          `json:"actor_id"`
	Balance decimal.Decimal `json:"balance"`
}

// Store is the account capability consumed by the wager engine and the
// HTTP layer. Actors are created lazily with the configured starting
// balance on first touch.
type Store interface {
	// Balance returns the actor's current balance, creating the actor
	// with the starting balance if unknown.
	Balance(ctx context.Context, actorID string) (decimal.Decimal, error)

	// Debit atomically subtracts amount from the actor's balance.
	// Returns ErrInsufficientFunds without mutating when the balance
	// is too low.
	Debit(ctx context.Context, actorID string, amount decimal.Decimal) error

	// Credit atomically adds amount to the actor's balance.
	Credit(ctx context.Context, actorID string, amount decimal.Decimal) error

	// Leaderboard returns the top actors by balance, descending.
	Leaderboard(ctx context.Context, limit int) ([]Entry, error)

	// RecordReferral credits the referrer the fixed referral reward,
	// at most once per referred actor. Returns false when the referred
	// actor was already counted.
	RecordReferral(ctx context.Context, referrerID, newActorID string) (bool, error)
}
