package service

import (
	"context"
	"fmt"

	"giveaway/database"
	"giveaway/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// SystemActorID identifies actions taken by the service itself or by operators on the CLI
const SystemActorID = "system"

// WalletService is the wallet manager: every balance mutation goes through it or
// through ApplyBalanceChange inside another service's unit of work.
type WalletService struct {
	uowFactory UnitOfWorkFactory
	audit      AuditAppender
	admins     AdminChecker
	retry      retryPolicy
}

// NewWalletService creates a wallet service
func NewWalletService(uowFactory UnitOfWorkFactory, audit AuditAppender, admins AdminChecker, maxAttempts int) *WalletService {
	return &WalletService{
		uowFactory: uowFactory,
		audit:      audit,
		admins:     admins,
		retry:      newRetryPolicy(maxAttempts),
	}
}

// EnsureWallet creates a zero-balance wallet for userID if none exists
func (s *WalletService) EnsureWallet(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidUserID)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	created, err := uow.WalletRepository().Ensure(ctx, userID)
	if err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	if created {
		log.WithField("userID", userID).Info("Created wallet")
	}
	return nil
}

// GetBalance returns the latest committed balances
func (s *WalletService) GetBalance(ctx context.Context, userID string) (*models.Balance, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	wallet, err := uow.WalletRepository().GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, fmt.Errorf("%w: user %s", ErrWalletNotFound, userID)
	}

	balance := wallet.Snapshot()
	return &balance, nil
}

// Credit adds amount to the user's fiat balance
func (s *WalletService) Credit(ctx context.Context, userID string, amount decimal.Decimal, reason models.LedgerReason, referenceID string) (*models.LedgerEntry, error) {
	if err := validateMoney(amount); err != nil {
		return nil, err
	}
	return s.apply(ctx, "wallet.credit", BalanceChange{
		UserID:      userID,
		Type:        models.LedgerTypeFiat,
		Amount:      amount,
		Reason:      reason,
		ReferenceID: referenceID,
	})
}

// Debit removes amount from the user's fiat balance, failing with
// ErrInsufficientFunds rather than going negative
func (s *WalletService) Debit(ctx context.Context, userID string, amount decimal.Decimal, reason models.LedgerReason, referenceID string) (*models.LedgerEntry, error) {
	if err := validateMoney(amount); err != nil {
		return nil, err
	}
	return s.apply(ctx, "wallet.debit", BalanceChange{
		UserID:      userID,
		Type:        models.LedgerTypeFiat,
		Amount:      amount.Neg(),
		Reason:      reason,
		ReferenceID: referenceID,
	})
}

// Deposit credits an externally verified payment. Replaying the same external
// reference returns the original entry instead of crediting twice.
func (s *WalletService) Deposit(ctx context.Context, userID string, amount decimal.Decimal, externalRef string) (*models.LedgerEntry, error) {
	if err := validateMoney(amount); err != nil {
		return nil, err
	}
	if externalRef == "" {
		return nil, ErrMissingReferenceID
	}

	var entry *models.LedgerEntry
	err := s.retry.run(ctx, "wallet.deposit", func() error {
		uow := s.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback()

		if _, err := uow.WalletRepository().Ensure(ctx, userID); err != nil {
			return err
		}

		// lock first so concurrent replays of one reference serialize here
		if _, err := uow.WalletRepository().GetByUserIDForUpdate(ctx, userID); err != nil {
			return err
		}
		existing, err := uow.LedgerRepository().GetDeposit(ctx, userID, externalRef)
		if err != nil {
			return err
		}
		if existing != nil {
			entry = existing
			return nil
		}

		entry, _, err = ApplyBalanceChange(ctx, uow, BalanceChange{
			UserID:      userID,
			Type:        models.LedgerTypeFiat,
			Amount:      amount,
			Reason:      models.LedgerReasonDeposit,
			ReferenceID: externalRef,
		})
		if err != nil {
			if database.IsUniqueViolation(err) {
				return fmt.Errorf("%w: deposit %s recorded concurrently", ErrConcurrentUpdateConflict, externalRef)
			}
			return err
		}

		return uow.Commit()
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// AdminCredit credits a user's fiat balance as a manual correction
func (s *WalletService) AdminCredit(ctx context.Context, actorID, userID string, amount decimal.Decimal, note string) (*models.LedgerEntry, error) {
	if err := validateMoney(amount); err != nil {
		return nil, err
	}
	return s.adminAdjust(ctx, actorID, userID, models.LedgerTypeFiat, amount, note)
}

// AdminDebit debits a user's fiat balance as a manual correction
func (s *WalletService) AdminDebit(ctx context.Context, actorID, userID string, amount decimal.Decimal, note string) (*models.LedgerEntry, error) {
	// amount is validated unsigned so a negative debit cannot turn into a credit
	if err := validateMoney(amount); err != nil {
		return nil, err
	}
	return s.adminAdjust(ctx, actorID, userID, models.LedgerTypeFiat, amount.Neg(), note)
}

// AdminAdjustTickets changes a user's ticket-credit balance by delta
func (s *WalletService) AdminAdjustTickets(ctx context.Context, actorID, userID string, delta int64, note string) (*models.LedgerEntry, error) {
	return s.adminAdjust(ctx, actorID, userID, models.LedgerTypeTickets, decimal.NewFromInt(delta), note)
}

func (s *WalletService) adminAdjust(ctx context.Context, actorID, userID string, ledgerType models.LedgerType, signed decimal.Decimal, note string) (*models.LedgerEntry, error) {
	if err := requireAdmin(ctx, s.admins, actorID); err != nil {
		return nil, err
	}
	if err := validateMoney(signed.Abs()); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidUserID)
	}

	referenceID := uuid.NewString()
	entry, err := s.applyEnsuring(ctx, "wallet.admin_adjustment", BalanceChange{
		UserID:      userID,
		Type:        ledgerType,
		Amount:      signed,
		Reason:      models.LedgerReasonAdminAdjustment,
		ReferenceID: referenceID,
		Metadata: map[string]any{
			"actor_id": actorID,
			"note":     note,
		},
	})
	if err != nil {
		return nil, err
	}

	target := userID
	s.audit.Append(ctx, nil, models.AuditActionAdminAdjustment, actorID, &target,
		fmt.Sprintf("%s %s %s: %s", ledgerType, signed.StringFixed(2), referenceID, note))

	log.WithFields(log.Fields{
		"actorID":     actorID,
		"userID":      userID,
		"type":        ledgerType,
		"amount":      signed.String(),
		"referenceID": referenceID,
	}).Info("Applied admin balance adjustment")

	return entry, nil
}

// ListLedger returns a page of the user's ledger, newest first
func (s *WalletService) ListLedger(ctx context.Context, userID string, limit, offset int) ([]*models.LedgerEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.LedgerRepository().ListByUser(ctx, userID, limit, offset)
}

// Reconcile replays the user's ledger from zero and compares the result with the wallet row
func (s *WalletService) Reconcile(ctx context.Context, userID string) (*models.ReconcileReport, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	wallet, err := uow.WalletRepository().GetByUserIDForUpdate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, fmt.Errorf("%w: user %s", ErrWalletNotFound, userID)
	}

	entries, err := uow.LedgerRepository().ListForReplay(ctx, userID)
	if err != nil {
		return nil, err
	}

	return ReplayLedger(wallet, entries), nil
}

// ReplayLedger folds entries from a zero balance and checks every balance_after snapshot
func ReplayLedger(wallet *models.Wallet, entries []*models.LedgerEntry) *models.ReconcileReport {
	report := &models.ReconcileReport{
		UserID:          wallet.UserID,
		EntryCount:      len(entries),
		ReplayedFiat:    decimal.Zero,
		ReplayedTickets: decimal.Zero,
		WalletFiat:      wallet.BalanceFiat,
		WalletTickets:   wallet.BalanceTickets,
	}

	for _, e := range entries {
		running := &report.ReplayedFiat
		if e.Type == models.LedgerTypeTickets {
			running = &report.ReplayedTickets
		}
		*running = running.Add(e.Amount)

		if report.FirstBrokenEntryID == nil && !running.Equal(e.BalanceAfter) {
			id := e.ID
			report.FirstBrokenEntryID = &id
		}
	}

	report.Consistent = report.FirstBrokenEntryID == nil &&
		report.ReplayedFiat.Equal(wallet.BalanceFiat) &&
		report.ReplayedTickets.Equal(decimal.NewFromInt(wallet.BalanceTickets))

	return report
}

func (s *WalletService) apply(ctx context.Context, operation string, change BalanceChange) (*models.LedgerEntry, error) {
	var entry *models.LedgerEntry
	err := s.retry.run(ctx, operation, func() error {
		uow := s.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback()

		var err error
		entry, _, err = ApplyBalanceChange(ctx, uow, change)
		if err != nil {
			return err
		}
		return uow.Commit()
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// applyEnsuring is apply for callers that may target a user who never had a wallet
func (s *WalletService) applyEnsuring(ctx context.Context, operation string, change BalanceChange) (*models.LedgerEntry, error) {
	var entry *models.LedgerEntry
	err := s.retry.run(ctx, operation, func() error {
		uow := s.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback()

		if _, err := uow.WalletRepository().Ensure(ctx, change.UserID); err != nil {
			return err
		}

		var err error
		entry, _, err = ApplyBalanceChange(ctx, uow, change)
		if err != nil {
			return err
		}
		return uow.Commit()
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}
