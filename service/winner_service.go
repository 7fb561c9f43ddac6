package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"giveaway/events"
	"giveaway/models"

	log "github.com/sirupsen/logrus"
)

// Picker draws one candidate from a non-empty list of ticket holders
type Picker interface {
	Pick(holders []string) (string, error)
}

// cryptoPicker picks uniformly using crypto/rand
type cryptoPicker struct{}

func (cryptoPicker) Pick(holders []string) (string, error) {
	if len(holders) == 0 {
		return "", ErrNoEligibleHolders
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(holders))))
	if err != nil {
		return "", fmt.Errorf("failed to generate random index: %w", err)
	}
	return holders[n.Int64()], nil
}

// WinnerService drives the admin-only winner selection state machine:
// review_pending -> draft_winner_selected -> finalized, with repick looping on
// draft_winner_selected. Every transition is a compare-and-swap on status.
type WinnerService struct {
	uowFactory UnitOfWorkFactory
	audit      AuditAppender
	admins     AdminChecker
	picker     Picker
	retry      retryPolicy
}

// NewWinnerService creates a winner service
func NewWinnerService(uowFactory UnitOfWorkFactory, audit AuditAppender, admins AdminChecker, maxAttempts int) *WinnerService {
	return &WinnerService{
		uowFactory: uowFactory,
		audit:      audit,
		admins:     admins,
		picker:     cryptoPicker{},
		retry:      newRetryPolicy(maxAttempts),
	}
}

// PickWinner draws a candidate from the distinct ticket holders. Calling it again
// from draft_winner_selected simply replaces the candidate.
func (s *WinnerService) PickWinner(ctx context.Context, giveawayID int64, actorID string) (*models.Giveaway, error) {
	if err := requireAdmin(ctx, s.admins, actorID); err != nil {
		return nil, err
	}

	giveaway, _, err := s.draw(ctx, giveawayID, actorID, false)
	if err != nil {
		return nil, err
	}

	s.audit.Append(ctx, &giveaway.ID, models.AuditActionDraftWinner, actorID, giveaway.TempWinnerID, "")
	return giveaway, nil
}

// RepickWinner rejects the current candidate and draws a new one. When other
// holders exist the rejected candidate is excluded from the draw.
func (s *WinnerService) RepickWinner(ctx context.Context, giveawayID int64, actorID string) (*models.Giveaway, error) {
	if err := requireAdmin(ctx, s.admins, actorID); err != nil {
		return nil, err
	}

	giveaway, previous, err := s.draw(ctx, giveawayID, actorID, true)
	if err != nil {
		return nil, err
	}

	s.audit.Append(ctx, &giveaway.ID, models.AuditActionRejectWinner, actorID, previous, "repicked")
	s.audit.Append(ctx, &giveaway.ID, models.AuditActionDraftWinner, actorID, giveaway.TempWinnerID, "")
	return giveaway, nil
}

func (s *WinnerService) draw(ctx context.Context, giveawayID int64, actorID string, repick bool) (*models.Giveaway, *string, error) {
	action := "pick"
	if repick {
		action = "repick"
	}

	var result *models.Giveaway
	var previous *string

	err := s.retry.run(ctx, "winner."+action, func() error {
		uow := s.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback()

		giveaway, err := s.lockGiveaway(ctx, uow, giveawayID)
		if err != nil {
			return err
		}

		switch {
		case giveaway.IsFinalized():
			return fmt.Errorf("%w: giveaway %d", ErrGiveawayAlreadyFinalized, giveawayID)
		case giveaway.Status == models.GiveawayStatusDraftWinnerSelected:
		case giveaway.Status == models.GiveawayStatusReviewPending && !repick:
		default:
			return &InvalidTransitionError{GiveawayID: giveawayID, Action: action, Status: giveaway.Status}
		}
		if repick && giveaway.TempWinnerID == nil {
			return fmt.Errorf("%w: giveaway %d", ErrNoDraftWinner, giveawayID)
		}

		holders, err := uow.TicketRepository().ListHolders(ctx, giveawayID)
		if err != nil {
			return err
		}
		if repick {
			holders = excludeHolder(holders, *giveaway.TempWinnerID)
		}
		if len(holders) == 0 {
			return fmt.Errorf("%w: giveaway %d", ErrNoEligibleHolders, giveawayID)
		}

		candidate, err := s.picker.Pick(holders)
		if err != nil {
			return err
		}

		ok, err := uow.GiveawayRepository().SetDraftWinner(ctx, giveawayID, giveaway.Status, candidate)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: giveaway %d left %s", ErrConcurrentUpdateConflict, giveawayID, giveaway.Status)
		}

		bus := uow.EventBus()
		if giveaway.Status != models.GiveawayStatusDraftWinnerSelected {
			bus.Publish(events.GiveawayStatusChangedEvent{
				GiveawayID: giveawayID,
				OldStatus:  giveaway.Status,
				NewStatus:  models.GiveawayStatusDraftWinnerSelected,
				ActorID:    actorID,
			})
		}
		bus.Publish(events.WinnerDraftedEvent{
			GiveawayID:        giveawayID,
			CandidateID:       candidate,
			PreviousCandidate: giveaway.TempWinnerID,
			ActorID:           actorID,
		})

		if err := uow.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}

		previous = giveaway.TempWinnerID
		giveaway.Status = models.GiveawayStatusDraftWinnerSelected
		giveaway.TempWinnerID = &candidate
		result = giveaway
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	log.WithFields(log.Fields{
		"giveawayID": giveawayID,
		"actorID":    actorID,
		"action":     action,
		"candidate":  *result.TempWinnerID,
	}).Info("Drew winner candidate")

	return result, previous, nil
}

// FinalizeWinner promotes the drafted candidate to winner and credits the payout
// (prize amount plus donation pool) to the winner's wallet in the same transaction.
func (s *WinnerService) FinalizeWinner(ctx context.Context, giveawayID int64, actorID string) (*models.Giveaway, error) {
	if err := requireAdmin(ctx, s.admins, actorID); err != nil {
		return nil, err
	}

	var result *models.Giveaway
	var payout *models.LedgerEntry

	err := s.retry.run(ctx, "winner.finalize", func() error {
		uow := s.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback()

		giveaway, err := s.lockGiveaway(ctx, uow, giveawayID)
		if err != nil {
			return err
		}

		if giveaway.IsFinalized() {
			return fmt.Errorf("%w: giveaway %d", ErrGiveawayAlreadyFinalized, giveawayID)
		}
		if giveaway.TempWinnerID == nil {
			return fmt.Errorf("%w: giveaway %d", ErrNoDraftWinner, giveawayID)
		}
		if giveaway.Status != models.GiveawayStatusDraftWinnerSelected {
			return &InvalidTransitionError{GiveawayID: giveawayID, Action: "finalize", Status: giveaway.Status}
		}

		winnerID := *giveaway.TempWinnerID
		ok, err := uow.GiveawayRepository().Finalize(ctx, giveawayID, winnerID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: giveaway %d candidate changed", ErrConcurrentUpdateConflict, giveawayID)
		}

		amount := giveaway.PayoutAmount()
		payout = nil
		if amount.IsPositive() {
			if _, err := uow.WalletRepository().Ensure(ctx, winnerID); err != nil {
				return err
			}
			payout, _, err = ApplyBalanceChange(ctx, uow, BalanceChange{
				UserID:      winnerID,
				Type:        models.LedgerTypeFiat,
				Amount:      amount,
				Reason:      models.LedgerReasonPayout,
				ReferenceID: PayoutReference(giveawayID),
				Metadata:    map[string]any{"giveaway_id": giveawayID},
			})
			if err != nil {
				return fmt.Errorf("failed to credit payout: %w", err)
			}
		}

		bus := uow.EventBus()
		bus.Publish(events.GiveawayStatusChangedEvent{
			GiveawayID: giveawayID,
			OldStatus:  giveaway.Status,
			NewStatus:  models.GiveawayStatusFinalized,
			ActorID:    actorID,
		})
		bus.Publish(events.WinnerFinalizedEvent{
			GiveawayID:   giveawayID,
			Title:        giveaway.Title,
			WinnerID:     winnerID,
			Payout:       amount,
			TicketsCount: giveaway.TicketsCount,
			ActorID:      actorID,
		})

		if err := uow.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}

		giveaway.Status = models.GiveawayStatusFinalized
		giveaway.WinnerID = &winnerID
		result = giveaway
		return nil
	})
	if err != nil {
		return nil, err
	}

	note := "no payout"
	if payout != nil {
		note = fmt.Sprintf("payout %s", payout.Amount.StringFixed(2))
	}
	s.audit.Append(ctx, &giveawayID, models.AuditActionApproveWinner, actorID, result.WinnerID, note)

	log.WithFields(log.Fields{
		"giveawayID": giveawayID,
		"actorID":    actorID,
		"winnerID":   *result.WinnerID,
		"payout":     result.PayoutAmount().String(),
	}).Info("Finalized giveaway winner")

	return result, nil
}

// PayoutReference is the ledger reference of a giveaway's winner payout
func PayoutReference(giveawayID int64) string {
	return fmt.Sprintf("giveaway-%d-payout", giveawayID)
}

func (s *WinnerService) lockGiveaway(ctx context.Context, uow UnitOfWork, id int64) (*models.Giveaway, error) {
	giveaway, err := uow.GiveawayRepository().GetByIDForUpdate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load giveaway: %w", err)
	}
	if giveaway == nil {
		return nil, fmt.Errorf("%w: %d", ErrGiveawayNotFound, id)
	}
	return giveaway, nil
}

// excludeHolder drops rejected from holders unless it is the only one left
func excludeHolder(holders []string, rejected string) []string {
	remaining := make([]string, 0, len(holders))
	for _, h := range holders {
		if h != rejected {
			remaining = append(remaining, h)
		}
	}
	if len(remaining) == 0 {
		return holders
	}
	return remaining
}
