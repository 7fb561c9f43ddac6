package repository

import (
	"context"
	"fmt"

	"giveaway/database"

	"github.com/jackc/pgx/v5"
)

// TicketRepository implements service.TicketRepository
type TicketRepository struct {
	q queryable
}

// NewTicketRepository creates a ticket repository on the pool
func NewTicketRepository(db *database.DB) *TicketRepository {
	return &TicketRepository{q: db.Pool}
}

func newTicketRepositoryWithTx(tx queryable) *TicketRepository {
	return &TicketRepository{q: tx}
}

// Issue inserts quantity consecutive tickets starting at firstNumber
func (r *TicketRepository) Issue(ctx context.Context, giveawayID int64, contributionID, userID string, firstNumber, quantity int64) (int64, error) {
	if quantity <= 0 {
		return 0, fmt.Errorf("quantity must be positive")
	}

	query := `
		INSERT INTO tickets (giveaway_id, contribution_id, user_id, ticket_number)
		SELECT $1, $2, $3, n
		FROM generate_series($4::bigint, $5::bigint) AS n
	`

	tag, err := r.q.Exec(ctx, query, giveawayID, contributionID, userID, firstNumber, firstNumber+quantity-1)
	if err != nil {
		return 0, fmt.Errorf("failed to issue %d tickets for giveaway %d: %w", quantity, giveawayID, err)
	}

	return tag.RowsAffected(), nil
}

// ListHolders returns distinct ticket holders for a giveaway in a stable order
func (r *TicketRepository) ListHolders(ctx context.Context, giveawayID int64) ([]string, error) {
	query := `
		SELECT DISTINCT user_id
		FROM tickets
		WHERE giveaway_id = $1
		ORDER BY user_id
	`

	rows, err := r.q.Query(ctx, query, giveawayID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ticket holders for giveaway %d: %w", giveawayID, err)
	}

	holders, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan ticket holders: %w", err)
	}
	return holders, nil
}

// CountByGiveaway returns the number of issued tickets for a giveaway
func (r *TicketRepository) CountByGiveaway(ctx context.Context, giveawayID int64) (int64, error) {
	var count int64
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM tickets WHERE giveaway_id = $1`, giveawayID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count tickets for giveaway %d: %w", giveawayID, err)
	}
	return count, nil
}
