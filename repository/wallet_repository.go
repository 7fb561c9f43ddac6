package repository

import (
	"context"
	"errors"
	"fmt"

	"giveaway/database"
	"giveaway/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const walletColumns = `user_id, balance_fiat, balance_tickets, version, created_at, updated_at`

// WalletRepository implements service.WalletRepository
type WalletRepository struct {
	q queryable
}

// NewWalletRepository creates a wallet repository on the pool
func NewWalletRepository(db *database.DB) *WalletRepository {
	return &WalletRepository{q: db.Pool}
}

func newWalletRepositoryWithTx(tx queryable) *WalletRepository {
	return &WalletRepository{q: tx}
}

// Ensure creates a zero-balance wallet if none exists
func (r *WalletRepository) Ensure(ctx context.Context, userID string) (bool, error) {
	query := `
		INSERT INTO wallets (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`

	tag, err := r.q.Exec(ctx, query, userID)
	if err != nil {
		return false, fmt.Errorf("failed to ensure wallet for user %s: %w", userID, err)
	}

	return tag.RowsAffected() == 1, nil
}

// GetByUserID returns the wallet, or nil if it does not exist
func (r *WalletRepository) GetByUserID(ctx context.Context, userID string) (*models.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1`
	return r.getOne(ctx, query, userID)
}

// GetByUserIDForUpdate returns the wallet with a row lock held until the transaction ends
func (r *WalletRepository) GetByUserIDForUpdate(ctx context.Context, userID string) (*models.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1 FOR UPDATE`
	return r.getOne(ctx, query, userID)
}

// ApplyFiatDelta adds delta to the fiat balance guarded by version and non-negativity
func (r *WalletRepository) ApplyFiatDelta(ctx context.Context, userID string, delta decimal.Decimal, expectedVersion int64) (*models.Wallet, error) {
	query := `
		UPDATE wallets
		SET balance_fiat = balance_fiat + $2, version = version + 1, updated_at = NOW()
		WHERE user_id = $1 AND version = $3 AND balance_fiat + $2 >= 0
		RETURNING ` + walletColumns

	return r.getOne(ctx, query, userID, delta, expectedVersion)
}

// ApplyTicketsDelta adds delta to the ticket-credit balance guarded by version and non-negativity
func (r *WalletRepository) ApplyTicketsDelta(ctx context.Context, userID string, delta int64, expectedVersion int64) (*models.Wallet, error) {
	query := `
		UPDATE wallets
		SET balance_tickets = balance_tickets + $2, version = version + 1, updated_at = NOW()
		WHERE user_id = $1 AND version = $3 AND balance_tickets + $2 >= 0
		RETURNING ` + walletColumns

	return r.getOne(ctx, query, userID, delta, expectedVersion)
}

func (r *WalletRepository) getOne(ctx context.Context, query string, args ...any) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.q.QueryRow(ctx, query, args...).Scan(
		&wallet.UserID,
		&wallet.BalanceFiat,
		&wallet.BalanceTickets,
		&wallet.Version,
		&wallet.CreatedAt,
		&wallet.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet: %w", err)
	}

	return &wallet, nil
}
