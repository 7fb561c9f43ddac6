package service

import (
	"context"
	"fmt"

	"giveaway/events"
	"giveaway/models"

	"github.com/shopspring/decimal"
)

// BalanceChange describes one credit (positive Amount) or debit (negative Amount)
type BalanceChange struct {
	UserID      string
	Type        models.LedgerType
	Amount      decimal.Decimal
	Reason      models.LedgerReason
	ReferenceID string
	Metadata    map[string]any
}

// ApplyBalanceChange is the single entry point for every wallet mutation. Inside the
// caller's unit of work it locks the wallet row, checks funds, applies a version-guarded
// update, appends exactly one ledger entry and queues a BalanceChangedEvent.
func ApplyBalanceChange(ctx context.Context, uow UnitOfWork, change BalanceChange) (*models.LedgerEntry, *models.Wallet, error) {
	if change.Amount.IsZero() {
		return nil, nil, fmt.Errorf("%w: balance change of zero", ErrInvalidAmount)
	}
	if change.ReferenceID == "" {
		return nil, nil, ErrMissingReferenceID
	}

	wallets := uow.WalletRepository()
	wallet, err := wallets.GetByUserIDForUpdate(ctx, change.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lock wallet: %w", err)
	}
	if wallet == nil {
		return nil, nil, fmt.Errorf("%w: user %s", ErrWalletNotFound, change.UserID)
	}

	var updated *models.Wallet
	var balanceAfter decimal.Decimal

	switch change.Type {
	case models.LedgerTypeFiat:
		if wallet.BalanceFiat.Add(change.Amount).IsNegative() {
			return nil, nil, &InsufficientFundsError{
				UserID:     change.UserID,
				LedgerType: change.Type,
				Available:  wallet.BalanceFiat,
				Required:   change.Amount.Neg(),
			}
		}
		updated, err = wallets.ApplyFiatDelta(ctx, change.UserID, change.Amount, wallet.Version)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to update fiat balance: %w", err)
		}
		if updated != nil {
			balanceAfter = updated.BalanceFiat
		}

	case models.LedgerTypeTickets:
		if !change.Amount.IsInteger() {
			return nil, nil, fmt.Errorf("%w: ticket credits must be whole numbers", ErrInvalidAmount)
		}
		delta := change.Amount.IntPart()
		if wallet.BalanceTickets+delta < 0 {
			return nil, nil, &InsufficientFundsError{
				UserID:     change.UserID,
				LedgerType: change.Type,
				Available:  decimal.NewFromInt(wallet.BalanceTickets),
				Required:   change.Amount.Neg(),
			}
		}
		updated, err = wallets.ApplyTicketsDelta(ctx, change.UserID, delta, wallet.Version)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to update ticket balance: %w", err)
		}
		if updated != nil {
			balanceAfter = decimal.NewFromInt(updated.BalanceTickets)
		}

	default:
		return nil, nil, fmt.Errorf("unknown ledger type %q", change.Type)
	}

	if updated == nil {
		// the row is locked, so a version mismatch means another writer slipped in
		return nil, nil, fmt.Errorf("%w: wallet %s changed during update", ErrConcurrentUpdateConflict, change.UserID)
	}

	entry := &models.LedgerEntry{
		UserID:       change.UserID,
		Amount:       change.Amount,
		Type:         change.Type,
		Reason:       change.Reason,
		ReferenceID:  change.ReferenceID,
		BalanceAfter: balanceAfter,
		Metadata:     change.Metadata,
	}
	if err := uow.LedgerRepository().Append(ctx, entry); err != nil {
		return nil, nil, fmt.Errorf("failed to record ledger entry: %w", err)
	}

	uow.EventBus().Publish(events.BalanceChangedEvent{
		UserID:       entry.UserID,
		LedgerType:   entry.Type,
		Reason:       entry.Reason,
		ReferenceID:  entry.ReferenceID,
		Amount:       entry.Amount,
		BalanceAfter: entry.BalanceAfter,
	})

	return entry, updated, nil
}
