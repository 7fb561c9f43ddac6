package api

import (
	"time"

	"giveaway/models"

	"github.com/shopspring/decimal"
)

type giveawayResponse struct {
	ID                    int64                   `json:"id"`
	CreatorID             string                  `json:"creator_id"`
	Title                 string                  `json:"title"`
	Status                models.GiveawayStatus   `json:"status"`
	TicketPrice           decimal.Decimal         `json:"ticket_price"`
	TicketsCount          int64                   `json:"tickets_count"`
	MaxTickets            *int64                  `json:"max_tickets,omitempty"`
	PrizeAmount           decimal.Decimal         `json:"prize_amount"`
	DonationPoolTotal     decimal.Decimal         `json:"donation_pool_total"`
	CreatorEarningsTotal  decimal.Decimal         `json:"creator_earnings_total"`
	PlatformEarningsTotal decimal.Decimal         `json:"platform_earnings_total"`
	DonationSplit         models.SplitPercentages `json:"donation_split"`
	TempWinnerID          *string                 `json:"temp_winner_id,omitempty"`
	WinnerID              *string                 `json:"winner_id,omitempty"`
	EndsAt                time.Time               `json:"ends_at"`
	CreatedAt             time.Time               `json:"created_at"`
	FinalizedAt           *time.Time              `json:"finalized_at,omitempty"`
}

func toGiveawayResponse(g *models.Giveaway) giveawayResponse {
	return giveawayResponse{
		ID:                    g.ID,
		CreatorID:             g.CreatorID,
		Title:                 g.Title,
		Status:                g.Status,
		TicketPrice:           g.TicketPrice,
		TicketsCount:          g.TicketsCount,
		MaxTickets:            g.MaxTickets,
		PrizeAmount:           g.PrizeAmount,
		DonationPoolTotal:     g.DonationPoolTotal,
		CreatorEarningsTotal:  g.CreatorEarningsTotal,
		PlatformEarningsTotal: g.PlatformEarningsTotal,
		DonationSplit:         g.DonationSplit,
		TempWinnerID:          g.TempWinnerID,
		WinnerID:              g.WinnerID,
		EndsAt:                g.EndsAt,
		CreatedAt:             g.CreatedAt,
		FinalizedAt:           g.FinalizedAt,
	}
}

type ledgerEntryResponse struct {
	ID           int64               `json:"id"`
	Amount       decimal.Decimal     `json:"amount"`
	Type         models.LedgerType   `json:"type"`
	Reason       models.LedgerReason `json:"reason"`
	ReferenceID  string              `json:"reference_id"`
	BalanceAfter decimal.Decimal     `json:"balance_after"`
	CreatedAt    time.Time           `json:"created_at"`
}

func toLedgerEntryResponse(e *models.LedgerEntry) ledgerEntryResponse {
	return ledgerEntryResponse{
		ID:           e.ID,
		Amount:       e.Amount,
		Type:         e.Type,
		Reason:       e.Reason,
		ReferenceID:  e.ReferenceID,
		BalanceAfter: e.BalanceAfter,
		CreatedAt:    e.CreatedAt,
	}
}

type contributionResponse struct {
	ID            string                  `json:"id"`
	UserID        string                  `json:"user_id"`
	Kind          models.ContributionKind `json:"kind"`
	Amount        decimal.Decimal         `json:"amount"`
	Quantity      int64                   `json:"quantity"`
	IssuedTickets int64                   `json:"issued_tickets"`
	Breakdown     models.SplitBreakdown   `json:"breakdown"`
	CreatedAt     time.Time               `json:"created_at"`
}

func toContributionResponse(c *models.Contribution) contributionResponse {
	return contributionResponse{
		ID:            c.ID,
		UserID:        c.UserID,
		Kind:          c.Kind,
		Amount:        c.Amount,
		Quantity:      c.Quantity,
		IssuedTickets: c.IssuedTickets,
		Breakdown:     c.Breakdown(),
		CreatedAt:     c.CreatedAt,
	}
}
