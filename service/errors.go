package service

import (
	"errors"
	"fmt"

	"giveaway/models"

	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientFunds         = errors.New("insufficient funds")
	ErrWalletNotFound            = errors.New("wallet not found")
	ErrGiveawayNotFound          = errors.New("giveaway not found")
	ErrGiveawayClosed            = errors.New("giveaway is not accepting contributions")
	ErrInvalidSplitConfiguration = errors.New("invalid split configuration")
	ErrNoDraftWinner             = errors.New("no draft winner selected yet")
	ErrGiveawayAlreadyFinalized  = errors.New("giveaway already finalized")
	ErrConcurrentUpdateConflict  = errors.New("concurrent update conflict")

	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInvalidQuantity    = errors.New("quantity must be positive")
	ErrCapacityExceeded   = errors.New("giveaway ticket capacity exceeded")
	ErrInvalidTransition  = errors.New("transition not allowed from current status")
	ErrNoEligibleHolders  = errors.New("no eligible ticket holders")
	ErrInvalidRole        = errors.New("unknown role")
	ErrNotAdmin           = errors.New("admin capability required")
	ErrInvalidGiveaway    = errors.New("invalid giveaway")
	ErrMissingReferenceID = errors.New("reference id is required")
	ErrInvalidUserID      = errors.New("invalid user id")
)

// InsufficientFundsError reports how much a debit was short by
type InsufficientFundsError struct {
	UserID     string
	LedgerType models.LedgerType
	Available  decimal.Decimal
	Required   decimal.Decimal
}

// Shortfall is Required minus Available
func (e *InsufficientFundsError) Shortfall() decimal.Decimal {
	return e.Required.Sub(e.Available)
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient %s balance for user %s: have %s, need %s (short %s)",
		e.LedgerType, e.UserID, e.Available.StringFixed(2), e.Required.StringFixed(2), e.Shortfall().StringFixed(2))
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}

// InvalidTransitionError names the status an admin action was attempted from
type InvalidTransitionError struct {
	GiveawayID int64
	Action     string
	Status     models.GiveawayStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s giveaway %d in status %s", e.Action, e.GiveawayID, e.Status)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}
