package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet holds a user's spendable balances
type Wallet struct {
	UserID         string          `db:"user_id"`
	BalanceFiat    decimal.Decimal `db:"balance_fiat"`
	BalanceTickets int64           `db:"balance_tickets"`
	Version        int64           `db:"version"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

// Balance is a read-only snapshot of a wallet
type Balance struct {
	UserID  string          `json:"user_id"`
	Fiat    decimal.Decimal `json:"fiat"`
	Tickets int64           `json:"tickets"`
}

// Snapshot returns the wallet balances as a Balance value
func (w *Wallet) Snapshot() Balance {
	return Balance{
		UserID:  w.UserID,
		Fiat:    w.BalanceFiat,
		Tickets: w.BalanceTickets,
	}
}

// CanAfford reports whether the fiat balance covers amount
func (w *Wallet) CanAfford(amount decimal.Decimal) bool {
	return w.BalanceFiat.GreaterThanOrEqual(amount)
}
