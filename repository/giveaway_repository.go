package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"giveaway/database"
	"giveaway/models"

	"github.com/jackc/pgx/v5"
)

const giveawayColumns = `
	id, creator_id, title, status, ticket_price, tickets_count, max_tickets,
	prize_amount, donation_pool_total, creator_earnings_total, platform_earnings_total,
	donation_split_platform, donation_split_creator, donation_split_prize,
	temp_winner_id, winner_id, ends_at, created_at, updated_at, finalized_at`

// GiveawayRepository implements service.GiveawayRepository
type GiveawayRepository struct {
	q queryable
}

// NewGiveawayRepository creates a giveaway repository on the pool
func NewGiveawayRepository(db *database.DB) *GiveawayRepository {
	return &GiveawayRepository{q: db.Pool}
}

func newGiveawayRepositoryWithTx(tx queryable) *GiveawayRepository {
	return &GiveawayRepository{q: tx}
}

// Create inserts a new active giveaway
func (r *GiveawayRepository) Create(ctx context.Context, giveaway *models.Giveaway) error {
	query := `
		INSERT INTO giveaways (
			creator_id, title, status, ticket_price, max_tickets, prize_amount, ends_at,
			donation_split_platform, donation_split_creator, donation_split_prize
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + giveawayColumns

	if giveaway.Status == "" {
		giveaway.Status = models.GiveawayStatusActive
	}

	created, err := scanGiveaway(r.q.QueryRow(ctx, query,
		giveaway.CreatorID,
		giveaway.Title,
		giveaway.Status,
		giveaway.TicketPrice,
		giveaway.MaxTickets,
		giveaway.PrizeAmount,
		giveaway.EndsAt,
		giveaway.DonationSplit.Platform,
		giveaway.DonationSplit.Creator,
		giveaway.DonationSplit.Prize,
	))
	if err != nil {
		return fmt.Errorf("failed to create giveaway: %w", err)
	}

	*giveaway = *created
	return nil
}

// GetByID returns the giveaway, or nil if it does not exist
func (r *GiveawayRepository) GetByID(ctx context.Context, id int64) (*models.Giveaway, error) {
	query := `SELECT ` + giveawayColumns + ` FROM giveaways WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByIDForUpdate returns the giveaway with a row lock
func (r *GiveawayRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Giveaway, error) {
	query := `SELECT ` + giveawayColumns + ` FROM giveaways WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, query, id)
}

// ApplyContribution increments the aggregate counters in a single statement
func (r *GiveawayRepository) ApplyContribution(ctx context.Context, id int64, delta models.GiveawayDelta) (*models.Giveaway, error) {
	query := `
		UPDATE giveaways
		SET tickets_count = tickets_count + $2,
		    prize_amount = prize_amount + $3,
		    donation_pool_total = donation_pool_total + $4,
		    creator_earnings_total = creator_earnings_total + $5,
		    platform_earnings_total = platform_earnings_total + $6,
		    updated_at = NOW()
		WHERE id = $1
		  AND status = 'active'
		  AND (max_tickets IS NULL OR tickets_count + $2 <= max_tickets)
		RETURNING ` + giveawayColumns

	return r.getOne(ctx, query, id,
		delta.Tickets,
		delta.Prize,
		delta.DonationPool,
		delta.CreatorEarnings,
		delta.PlatformEarnings,
	)
}

// TransitionStatus is a compare-and-swap on status
func (r *GiveawayRepository) TransitionStatus(ctx context.Context, id int64, from, to models.GiveawayStatus) (bool, error) {
	query := `
		UPDATE giveaways
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`

	tag, err := r.q.Exec(ctx, query, id, from, to)
	if err != nil {
		return false, fmt.Errorf("failed to transition giveaway %d from %s to %s: %w", id, from, to, err)
	}

	return tag.RowsAffected() == 1, nil
}

// SetDraftWinner stores a candidate if the giveaway is still in the expected status
func (r *GiveawayRepository) SetDraftWinner(ctx context.Context, id int64, from models.GiveawayStatus, candidateID string) (bool, error) {
	query := `
		UPDATE giveaways
		SET status = 'draft_winner_selected', temp_winner_id = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`

	tag, err := r.q.Exec(ctx, query, id, from, candidateID)
	if err != nil {
		return false, fmt.Errorf("failed to set draft winner for giveaway %d: %w", id, err)
	}

	return tag.RowsAffected() == 1, nil
}

// Finalize copies the candidate into winner_id if it is still the drafted one
func (r *GiveawayRepository) Finalize(ctx context.Context, id int64, candidateID string) (bool, error) {
	query := `
		UPDATE giveaways
		SET status = 'finalized', winner_id = temp_winner_id, finalized_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'draft_winner_selected' AND temp_winner_id = $2
	`

	tag, err := r.q.Exec(ctx, query, id, candidateID)
	if err != nil {
		return false, fmt.Errorf("failed to finalize giveaway %d: %w", id, err)
	}

	return tag.RowsAffected() == 1, nil
}

// ListDueForExpiry returns active giveaways past their end time, oldest first
func (r *GiveawayRepository) ListDueForExpiry(ctx context.Context, now time.Time, limit int) ([]int64, error) {
	query := `
		SELECT id
		FROM giveaways
		WHERE status = 'active' AND ends_at <= $1
		ORDER BY ends_at ASC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired giveaways: %w", err)
	}
	defer rows.Close()

	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to collect expired giveaways: %w", err)
	}

	return ids, nil
}

func (r *GiveawayRepository) getOne(ctx context.Context, query string, args ...any) (*models.Giveaway, error) {
	giveaway, err := scanGiveaway(r.q.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load giveaway: %w", err)
	}
	return giveaway, nil
}

func scanGiveaway(row pgx.Row) (*models.Giveaway, error) {
	var g models.Giveaway
	err := row.Scan(
		&g.ID,
		&g.CreatorID,
		&g.Title,
		&g.Status,
		&g.TicketPrice,
		&g.TicketsCount,
		&g.MaxTickets,
		&g.PrizeAmount,
		&g.DonationPoolTotal,
		&g.CreatorEarningsTotal,
		&g.PlatformEarningsTotal,
		&g.DonationSplit.Platform,
		&g.DonationSplit.Creator,
		&g.DonationSplit.Prize,
		&g.TempWinnerID,
		&g.WinnerID,
		&g.EndsAt,
		&g.CreatedAt,
		&g.UpdatedAt,
		&g.FinalizedAt,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}
