package testutil

import (
	"context"
	"testing"
	"time"

	"giveaway/database"
	"giveaway/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// NewTestGiveaway returns an active giveaway ending in a day with the default donation split
func NewTestGiveaway(creatorID string, ticketPrice string) *models.Giveaway {
	return &models.Giveaway{
		CreatorID:     creatorID,
		Title:         "Test giveaway",
		Status:        models.GiveawayStatusActive,
		TicketPrice:   decimal.RequireFromString(ticketPrice),
		PrizeAmount:   decimal.Zero,
		DonationSplit: models.NewSplitPercentages(50, 40, 10),
		EndsAt:        time.Now().Add(24 * time.Hour).UTC(),
	}
}

// FundWallet creates a wallet holding balance, recording the matching deposit
// entry so the ledger replays to the same value
func FundWallet(t *testing.T, db *database.DB, userID string, balance string) {
	t.Helper()
	ctx := context.Background()

	_, err := db.Exec(ctx, `INSERT INTO wallets (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID)
	require.NoError(t, err)

	amount := decimal.RequireFromString(balance)
	if amount.IsZero() {
		return
	}

	_, err = db.Exec(ctx, `
		WITH updated AS (
			UPDATE wallets
			SET balance_fiat = balance_fiat + $2, version = version + 1
			WHERE user_id = $1
			RETURNING balance_fiat
		)
		INSERT INTO ledger_entries (user_id, amount, type, reason, reference_id, balance_after)
		SELECT $1, $2, 'fiat', 'deposit', 'seed-' || $1, balance_fiat FROM updated
	`, userID, amount)
	require.NoError(t, err)
}

// SetStatus forces a giveaway into status for state machine tests
func SetStatus(t *testing.T, db *database.DB, giveawayID int64, status models.GiveawayStatus) {
	t.Helper()
	_, err := db.Exec(context.Background(), `UPDATE giveaways SET status = $2 WHERE id = $1`, giveawayID, status)
	require.NoError(t, err)
}
