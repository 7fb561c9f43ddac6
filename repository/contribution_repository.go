package repository

import (
	"context"
	"errors"
	"fmt"

	"giveaway/database"
	"giveaway/models"

	"github.com/jackc/pgx/v5"
)

const contributionColumns = `
	id, giveaway_id, user_id, kind, amount, quantity, issued_tickets,
	platform_amount, creator_amount, prize_amount, created_at`

// ContributionRepository implements service.ContributionRepository
type ContributionRepository struct {
	q queryable
}

// NewContributionRepository creates a contribution repository on the pool
func NewContributionRepository(db *database.DB) *ContributionRepository {
	return &ContributionRepository{q: db.Pool}
}

func newContributionRepositoryWithTx(tx queryable) *ContributionRepository {
	return &ContributionRepository{q: tx}
}

// Create persists a contribution. The caller assigns the ID.
func (r *ContributionRepository) Create(ctx context.Context, c *models.Contribution) error {
	query := `
		INSERT INTO contributions (
			id, giveaway_id, user_id, kind, amount, quantity, issued_tickets,
			platform_amount, creator_amount, prize_amount
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`

	err := r.q.QueryRow(ctx, query,
		c.ID,
		c.GiveawayID,
		c.UserID,
		c.Kind,
		c.Amount,
		c.Quantity,
		c.IssuedTickets,
		c.PlatformAmount,
		c.CreatorAmount,
		c.PrizeAmount,
	).Scan(&c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create contribution %s: %w", c.ID, err)
	}

	return nil
}

// GetByID returns a contribution, or nil if it does not exist
func (r *ContributionRepository) GetByID(ctx context.Context, id string) (*models.Contribution, error) {
	query := `SELECT ` + contributionColumns + ` FROM contributions WHERE id = $1`

	rows, err := r.q.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get contribution %s: %w", id, err)
	}

	c, err := pgx.CollectOneRow(rows, scanContribution)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan contribution %s: %w", id, err)
	}
	return c, nil
}

// ListByGiveaway returns contributions for a giveaway newest first
func (r *ContributionRepository) ListByGiveaway(ctx context.Context, giveawayID int64, limit, offset int) ([]*models.Contribution, error) {
	query := `
		SELECT ` + contributionColumns + `
		FROM contributions
		WHERE giveaway_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.q.Query(ctx, query, giveawayID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list contributions for giveaway %d: %w", giveawayID, err)
	}

	contributions, err := pgx.CollectRows(rows, scanContribution)
	if err != nil {
		return nil, fmt.Errorf("failed to scan contributions: %w", err)
	}
	return contributions, nil
}

func scanContribution(row pgx.CollectableRow) (*models.Contribution, error) {
	var c models.Contribution
	err := row.Scan(
		&c.ID,
		&c.GiveawayID,
		&c.UserID,
		&c.Kind,
		&c.Amount,
		&c.Quantity,
		&c.IssuedTickets,
		&c.PlatformAmount,
		&c.CreatorAmount,
		&c.PrizeAmount,
		&c.CreatedAt,
	)
	return &c, err
}
