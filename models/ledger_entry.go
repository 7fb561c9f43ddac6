package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerType identifies which wallet balance an entry affects
type LedgerType string

const (
	LedgerTypeFiat    LedgerType = "fiat"
	LedgerTypeTickets LedgerType = "tickets"
)

// LedgerReason represents the business reason for a balance change
type LedgerReason string

const (
	LedgerReasonDeposit         LedgerReason = "deposit"
	LedgerReasonDonation        LedgerReason = "donation"
	LedgerReasonTicketPurchase  LedgerReason = "ticket_purchase"
	LedgerReasonAdminAdjustment LedgerReason = "admin_adjustment"
	LedgerReasonPayout          LedgerReason = "payout"
)

// LedgerEntry is an immutable record of a single balance change.
// Amount is signed: positive for credits, negative for debits.
type LedgerEntry struct {
	ID           int64           `db:"id"`
	UserID       string          `db:"user_id"`
	Amount       decimal.Decimal `db:"amount"`
	Type         LedgerType      `db:"type"`
	Reason       LedgerReason    `db:"reason"`
	ReferenceID  string          `db:"reference_id"`
	BalanceAfter decimal.Decimal `db:"balance_after"`
	Metadata     map[string]any  `db:"metadata"`
	CreatedAt    time.Time       `db:"created_at"`
}

// BalanceBefore derives the balance prior to this entry
func (e *LedgerEntry) BalanceBefore() decimal.Decimal {
	return e.BalanceAfter.Sub(e.Amount)
}

// IsCredit reports whether the entry increased the balance
func (e *LedgerEntry) IsCredit() bool {
	return e.Amount.IsPositive()
}

// ReconcileReport is the result of replaying a user's ledger against the wallet row
type ReconcileReport struct {
	UserID             string          `json:"user_id"`
	EntryCount         int             `json:"entry_count"`
	ReplayedFiat       decimal.Decimal `json:"replayed_fiat"`
	ReplayedTickets    decimal.Decimal `json:"replayed_tickets"`
	WalletFiat         decimal.Decimal `json:"wallet_fiat"`
	WalletTickets      int64           `json:"wallet_tickets"`
	FirstBrokenEntryID *int64          `json:"first_broken_entry_id,omitempty"`
	Consistent         bool            `json:"consistent"`
}
