package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// GiveawayStatus represents the lifecycle state of a giveaway
type GiveawayStatus string

const (
	GiveawayStatusActive              GiveawayStatus = "active"
	GiveawayStatusEnded               GiveawayStatus = "ended"
	GiveawayStatusReviewPending       GiveawayStatus = "review_pending"
	GiveawayStatusDraftWinnerSelected GiveawayStatus = "draft_winner_selected"
	GiveawayStatusFinalized           GiveawayStatus = "finalized"
)

// SplitPercentages holds a three-way revenue split. The values are percentages, not fractions.
type SplitPercentages struct {
	Platform decimal.Decimal `json:"platform"`
	Creator  decimal.Decimal `json:"creator"`
	Prize    decimal.Decimal `json:"prize"`
}

// NewSplitPercentages builds a split from whole-number percentages
func NewSplitPercentages(platform, creator, prize int64) SplitPercentages {
	return SplitPercentages{
		Platform: decimal.NewFromInt(platform),
		Creator:  decimal.NewFromInt(creator),
		Prize:    decimal.NewFromInt(prize),
	}
}

// Total returns the sum of the three percentages
func (s SplitPercentages) Total() decimal.Decimal {
	return s.Platform.Add(s.Creator).Add(s.Prize)
}

// SplitBreakdown is the result of splitting a gross amount
type SplitBreakdown struct {
	Platform decimal.Decimal `json:"platform"`
	Creator  decimal.Decimal `json:"creator"`
	Prize    decimal.Decimal `json:"prize"`
}

// Sum returns platform + creator + prize
func (b SplitBreakdown) Sum() decimal.Decimal {
	return b.Platform.Add(b.Creator).Add(b.Prize)
}

// Giveaway represents a single prize event
type Giveaway struct {
	ID                    int64            `db:"id"`
	CreatorID             string           `db:"creator_id"`
	Title                 string           `db:"title"`
	Status                GiveawayStatus   `db:"status"`
	TicketPrice           decimal.Decimal  `db:"ticket_price"`
	TicketsCount          int64            `db:"tickets_count"`
	MaxTickets            *int64           `db:"max_tickets"`
	PrizeAmount           decimal.Decimal  `db:"prize_amount"`
	DonationPoolTotal     decimal.Decimal  `db:"donation_pool_total"`
	CreatorEarningsTotal  decimal.Decimal  `db:"creator_earnings_total"`
	PlatformEarningsTotal decimal.Decimal  `db:"platform_earnings_total"`
	DonationSplit         SplitPercentages `db:"-"`
	TempWinnerID          *string          `db:"temp_winner_id"`
	WinnerID              *string          `db:"winner_id"`
	EndsAt                time.Time        `db:"ends_at"`
	CreatedAt             time.Time        `db:"created_at"`
	UpdatedAt             time.Time        `db:"updated_at"`
	FinalizedAt           *time.Time       `db:"finalized_at"`
}

// IsActive checks if the giveaway is in the active state
func (g *Giveaway) IsActive() bool {
	return g.Status == GiveawayStatusActive
}

// IsFinalized checks if the giveaway reached its terminal state
func (g *Giveaway) IsFinalized() bool {
	return g.Status == GiveawayStatusFinalized
}

// HasEnded checks if the giveaway end time is in the past relative to now
func (g *Giveaway) HasEnded(now time.Time) bool {
	return !now.Before(g.EndsAt)
}

// CanAcceptContributions checks if donations and ticket purchases are allowed
func (g *Giveaway) CanAcceptContributions(now time.Time) bool {
	return g.IsActive() && !g.HasEnded(now)
}

// IsFree checks if tickets cost nothing
func (g *Giveaway) IsFree() bool {
	return g.TicketPrice.IsZero()
}

// RemainingCapacity returns how many tickets can still be issued, or nil when unlimited
func (g *Giveaway) RemainingCapacity() *int64 {
	if g.MaxTickets == nil {
		return nil
	}
	remaining := *g.MaxTickets - g.TicketsCount
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}

// PayoutAmount is what the winner receives on finalize
func (g *Giveaway) PayoutAmount() decimal.Decimal {
	return g.PrizeAmount.Add(g.DonationPoolTotal)
}

// GiveawayDelta is an atomic increment applied to a giveaway's aggregate counters
type GiveawayDelta struct {
	Tickets          int64
	Prize            decimal.Decimal
	DonationPool     decimal.Decimal
	CreatorEarnings  decimal.Decimal
	PlatformEarnings decimal.Decimal
}
