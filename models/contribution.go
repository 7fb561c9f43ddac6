package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ContributionKind distinguishes donations from ticket purchases
type ContributionKind string

const (
	ContributionKindDonation       ContributionKind = "donation"
	ContributionKindTicketPurchase ContributionKind = "ticket_purchase"
)

// Contribution is one donation or one ticket-purchase call. Its ID is the
// reference_id of the matching ledger entry.
type Contribution struct {
	ID             string           `db:"id"`
	GiveawayID     int64            `db:"giveaway_id"`
	UserID         string           `db:"user_id"`
	Kind           ContributionKind `db:"kind"`
	Amount         decimal.Decimal  `db:"amount"`
	Quantity       int64            `db:"quantity"`
	IssuedTickets  int64            `db:"issued_tickets"`
	PlatformAmount decimal.Decimal  `db:"platform_amount"`
	CreatorAmount  decimal.Decimal  `db:"creator_amount"`
	PrizeAmount    decimal.Decimal  `db:"prize_amount"`
	CreatedAt      time.Time        `db:"created_at"`
}

// Breakdown returns the split recorded on the contribution
func (c *Contribution) Breakdown() SplitBreakdown {
	return SplitBreakdown{
		Platform: c.PlatformAmount,
		Creator:  c.CreatorAmount,
		Prize:    c.PrizeAmount,
	}
}

// Ticket is a single raffle entry issued by a purchase
type Ticket struct {
	ID             int64     `db:"id"`
	GiveawayID     int64     `db:"giveaway_id"`
	ContributionID string    `db:"contribution_id"`
	UserID         string    `db:"user_id"`
	TicketNumber   int64     `db:"ticket_number"`
	CreatedAt      time.Time `db:"created_at"`
}

// DonationResult is returned from a successful donation
type DonationResult struct {
	ContributionID string          `json:"contribution_id"`
	NewBalance     decimal.Decimal `json:"new_balance"`
	Breakdown      SplitBreakdown  `json:"breakdown"`
}

// PurchaseResult is returned from a successful ticket purchase
type PurchaseResult struct {
	PurchaseID    string          `json:"purchase_id"`
	IssuedTickets int64           `json:"issued_tickets"`
	TotalCost     decimal.Decimal `json:"total_cost"`
	NewBalance    decimal.Decimal `json:"new_balance"`
	Breakdown     SplitBreakdown  `json:"breakdown"`
}
