package service

import (
	"context"
	"fmt"
	"time"

	"giveaway/events"
	"giveaway/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// DonateRequest is the input to Donate
type DonateRequest struct {
	GiveawayID    int64
	UserID        string
	Amount        decimal.Decimal
	SplitOverride *models.SplitPercentages
}

// Validate checks the request before anything is read or written
func (r DonateRequest) Validate() error {
	if r.GiveawayID <= 0 {
		return fmt.Errorf("%w: giveaway id must be positive", ErrInvalidGiveaway)
	}
	if r.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidUserID)
	}
	if err := validateMoney(r.Amount); err != nil {
		return err
	}
	if r.SplitOverride != nil {
		return ValidateSplit(*r.SplitOverride)
	}
	return nil
}

// BuyTicketsRequest is the input to BuyTickets
type BuyTicketsRequest struct {
	GiveawayID int64
	UserID     string
	Quantity   int64
}

// Validate checks the request before anything is read or written
func (r BuyTicketsRequest) Validate() error {
	if r.GiveawayID <= 0 {
		return fmt.Errorf("%w: giveaway id must be positive", ErrInvalidGiveaway)
	}
	if r.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidUserID)
	}
	if r.Quantity <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidQuantity, r.Quantity)
	}
	return nil
}

// ContributionService is the ticket and donation engine. The debit, the split, the
// aggregate update and the contribution record for one call commit together or not at all.
type ContributionService struct {
	uowFactory  UnitOfWorkFactory
	ticketSplit models.SplitPercentages
	maxQuantity int64
	retry       retryPolicy
	now         func() time.Time
	newID       func() string
}

// NewContributionService creates a contribution service. ticketSplit applies to all ticket
// revenue and maxQuantity caps the tickets bought in a single call.
func NewContributionService(uowFactory UnitOfWorkFactory, ticketSplit models.SplitPercentages, maxQuantity int64, maxAttempts int) *ContributionService {
	return &ContributionService{
		uowFactory:  uowFactory,
		ticketSplit: ticketSplit,
		maxQuantity: maxQuantity,
		retry:       newRetryPolicy(maxAttempts),
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// Donate moves amount from the donor's wallet into a giveaway. The prize share
// grows the donation pool; creator and platform shares grow the earnings totals.
func (s *ContributionService) Donate(ctx context.Context, req DonateRequest) (*models.DonationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var result *models.DonationResult
	err := s.retry.run(ctx, "contribution.donate", func() error {
		uow := s.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback()

		giveaway, err := s.lockOpenGiveaway(ctx, uow, req.GiveawayID)
		if err != nil {
			return err
		}

		pct := giveaway.DonationSplit
		if req.SplitOverride != nil {
			pct = *req.SplitOverride
		}
		breakdown, err := Split(req.Amount, pct)
		if err != nil {
			return err
		}

		contributionID := s.newID()

		if _, err := uow.WalletRepository().Ensure(ctx, req.UserID); err != nil {
			return err
		}
		_, wallet, err := ApplyBalanceChange(ctx, uow, BalanceChange{
			UserID:      req.UserID,
			Type:        models.LedgerTypeFiat,
			Amount:      req.Amount.Neg(),
			Reason:      models.LedgerReasonDonation,
			ReferenceID: contributionID,
			Metadata:    map[string]any{"giveaway_id": giveaway.ID},
		})
		if err != nil {
			return err
		}

		updated, err := uow.GiveawayRepository().ApplyContribution(ctx, giveaway.ID, models.GiveawayDelta{
			DonationPool:     breakdown.Prize,
			CreatorEarnings:  breakdown.Creator,
			PlatformEarnings: breakdown.Platform,
		})
		if err != nil {
			return fmt.Errorf("failed to update giveaway totals: %w", err)
		}
		if updated == nil {
			return fmt.Errorf("%w: giveaway %d", ErrGiveawayClosed, giveaway.ID)
		}

		contribution := &models.Contribution{
			ID:             contributionID,
			GiveawayID:     giveaway.ID,
			UserID:         req.UserID,
			Kind:           models.ContributionKindDonation,
			Amount:         req.Amount,
			PlatformAmount: breakdown.Platform,
			CreatorAmount:  breakdown.Creator,
			PrizeAmount:    breakdown.Prize,
		}
		if err := uow.ContributionRepository().Create(ctx, contribution); err != nil {
			return err
		}

		uow.EventBus().Publish(events.ContributionRecordedEvent{
			ContributionID: contributionID,
			GiveawayID:     giveaway.ID,
			UserID:         req.UserID,
			Kind:           models.ContributionKindDonation,
			Amount:         req.Amount,
			Breakdown:      breakdown,
		})

		if err := uow.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}

		result = &models.DonationResult{
			ContributionID: contributionID,
			NewBalance:     wallet.BalanceFiat,
			Breakdown:      breakdown,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"giveawayID":     req.GiveawayID,
		"userID":         req.UserID,
		"amount":         req.Amount.String(),
		"contributionID": result.ContributionID,
	}).Info("Recorded donation")

	return result, nil
}

// BuyTickets debits quantity * ticket_price and issues numbered tickets. The prize
// share of ticket revenue grows the giveaway's prize amount. Free giveaways issue
// tickets without touching the wallet but still record a zero-amount contribution.
func (s *ContributionService) BuyTickets(ctx context.Context, req BuyTicketsRequest) (*models.PurchaseResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if s.maxQuantity > 0 && req.Quantity > s.maxQuantity {
		return nil, fmt.Errorf("%w: %d exceeds the limit of %d per purchase", ErrInvalidQuantity, req.Quantity, s.maxQuantity)
	}

	var result *models.PurchaseResult
	err := s.retry.run(ctx, "contribution.buy_tickets", func() error {
		uow := s.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback()

		giveaway, err := s.lockOpenGiveaway(ctx, uow, req.GiveawayID)
		if err != nil {
			return err
		}

		if remaining := giveaway.RemainingCapacity(); remaining != nil && req.Quantity > *remaining {
			return fmt.Errorf("%w: %d requested, %d remaining", ErrCapacityExceeded, req.Quantity, *remaining)
		}

		totalCost := giveaway.TicketPrice.Mul(decimal.NewFromInt(req.Quantity))
		breakdown, err := Split(totalCost, s.ticketSplit)
		if err != nil {
			return err
		}

		purchaseID := s.newID()

		if _, err := uow.WalletRepository().Ensure(ctx, req.UserID); err != nil {
			return err
		}

		var newBalance decimal.Decimal
		if totalCost.IsPositive() {
			_, wallet, err := ApplyBalanceChange(ctx, uow, BalanceChange{
				UserID:      req.UserID,
				Type:        models.LedgerTypeFiat,
				Amount:      totalCost.Neg(),
				Reason:      models.LedgerReasonTicketPurchase,
				ReferenceID: purchaseID,
				Metadata: map[string]any{
					"giveaway_id": giveaway.ID,
					"quantity":    req.Quantity,
				},
			})
			if err != nil {
				return err
			}
			newBalance = wallet.BalanceFiat
		} else {
			wallet, err := uow.WalletRepository().GetByUserID(ctx, req.UserID)
			if err != nil {
				return err
			}
			newBalance = wallet.BalanceFiat
		}

		updated, err := uow.GiveawayRepository().ApplyContribution(ctx, giveaway.ID, models.GiveawayDelta{
			Tickets:          req.Quantity,
			Prize:            breakdown.Prize,
			CreatorEarnings:  breakdown.Creator,
			PlatformEarnings: breakdown.Platform,
		})
		if err != nil {
			return fmt.Errorf("failed to update giveaway totals: %w", err)
		}
		if updated == nil {
			return fmt.Errorf("%w: giveaway %d", ErrCapacityExceeded, giveaway.ID)
		}

		contribution := &models.Contribution{
			ID:             purchaseID,
			GiveawayID:     giveaway.ID,
			UserID:         req.UserID,
			Kind:           models.ContributionKindTicketPurchase,
			Amount:         totalCost,
			Quantity:       req.Quantity,
			IssuedTickets:  req.Quantity,
			PlatformAmount: breakdown.Platform,
			CreatorAmount:  breakdown.Creator,
			PrizeAmount:    breakdown.Prize,
		}
		if err := uow.ContributionRepository().Create(ctx, contribution); err != nil {
			return err
		}

		firstNumber := updated.TicketsCount - req.Quantity + 1
		issued, err := uow.TicketRepository().Issue(ctx, giveaway.ID, purchaseID, req.UserID, firstNumber, req.Quantity)
		if err != nil {
			return err
		}
		if issued != req.Quantity {
			return fmt.Errorf("issued %d tickets, expected %d", issued, req.Quantity)
		}

		uow.EventBus().Publish(events.ContributionRecordedEvent{
			ContributionID: purchaseID,
			GiveawayID:     giveaway.ID,
			UserID:         req.UserID,
			Kind:           models.ContributionKindTicketPurchase,
			Amount:         totalCost,
			IssuedTickets:  issued,
			Breakdown:      breakdown,
		})

		if err := uow.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}

		result = &models.PurchaseResult{
			PurchaseID:    purchaseID,
			IssuedTickets: issued,
			TotalCost:     totalCost,
			NewBalance:    newBalance,
			Breakdown:     breakdown,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"giveawayID": req.GiveawayID,
		"userID":     req.UserID,
		"quantity":   req.Quantity,
		"totalCost":  result.TotalCost.String(),
		"purchaseID": result.PurchaseID,
	}).Info("Issued tickets")

	return result, nil
}

// ListContributions returns a page of a giveaway's contributions, newest first
func (s *ContributionService) ListContributions(ctx context.Context, giveawayID int64, limit, offset int) ([]*models.Contribution, error) {
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

	return uow.ContributionRepository().ListByGiveaway(ctx, giveawayID, limit, offset)
}

// lockOpenGiveaway locks the giveaway row and checks it still accepts contributions.
// The giveaway lock is always taken before any wallet lock.
func (s *ContributionService) lockOpenGiveaway(ctx context.Context, uow UnitOfWork, id int64) (*models.Giveaway, error) {
	giveaway, err := uow.GiveawayRepository().GetByIDForUpdate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load giveaway: %w", err)
	}
	if giveaway == nil {
		return nil, fmt.Errorf("%w: %d", ErrGiveawayNotFound, id)
	}
	if !giveaway.CanAcceptContributions(s.now()) {
		return nil, fmt.Errorf("%w: giveaway %d is %s", ErrGiveawayClosed, id, giveaway.Status)
	}
	return giveaway, nil
}
