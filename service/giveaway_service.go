package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"giveaway/events"
	"giveaway/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const expiryBatchSize = 100

// CreateGiveawayRequest is the input to Create
type CreateGiveawayRequest struct {
	CreatorID     string
	Title         string
	TicketPrice   decimal.Decimal
	MaxTickets    *int64
	EndsAt        time.Time
	PrizeAmount   decimal.Decimal
	DonationSplit *models.SplitPercentages
}

// GiveawayService manages giveaway lifecycle outside winner selection
type GiveawayService struct {
	uowFactory    UnitOfWorkFactory
	audit         AuditAppender
	admins        AdminChecker
	donationSplit models.SplitPercentages
	retry         retryPolicy
	now           func() time.Time
}

// NewGiveawayService creates a giveaway service. donationSplit is used for
// giveaways created without their own split.
func NewGiveawayService(uowFactory UnitOfWorkFactory, audit AuditAppender, admins AdminChecker, donationSplit models.SplitPercentages, maxAttempts int) *GiveawayService {
	return &GiveawayService{
		uowFactory:    uowFactory,
		audit:         audit,
		admins:        admins,
		donationSplit: donationSplit,
		retry:         newRetryPolicy(maxAttempts),
		now:           time.Now,
	}
}

// Create opens a new active giveaway
func (s *GiveawayService) Create(ctx context.Context, req CreateGiveawayRequest) (*models.Giveaway, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validateCreate(ctx, req); err != nil {
		return nil, err
	}

	split := s.donationSplit
	if req.DonationSplit != nil {
		split = *req.DonationSplit
	}

	giveaway := &models.Giveaway{
		CreatorID:     req.CreatorID,
		Title:         req.Title,
		Status:        models.GiveawayStatusActive,
		TicketPrice:   req.TicketPrice,
		MaxTickets:    req.MaxTickets,
		PrizeAmount:   req.PrizeAmount,
		DonationSplit: split,
		EndsAt:        req.EndsAt.UTC(),
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.GiveawayRepository().Create(ctx, giveaway); err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.GiveawayStatusChangedEvent{
		GiveawayID: giveaway.ID,
		NewStatus:  models.GiveawayStatusActive,
		ActorID:    req.CreatorID,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"giveawayID":  giveaway.ID,
		"creatorID":   giveaway.CreatorID,
		"ticketPrice": giveaway.TicketPrice.String(),
		"endsAt":      giveaway.EndsAt,
	}).Info("Created giveaway")

	return giveaway, nil
}

func (s *GiveawayService) validateCreate(ctx context.Context, req CreateGiveawayRequest) error {
	if req.CreatorID == "" {
		return fmt.Errorf("%w: creator is required", ErrInvalidGiveaway)
	}
	if req.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidGiveaway)
	}
	if req.TicketPrice.IsNegative() || !req.TicketPrice.Equal(req.TicketPrice.Truncate(moneyPlaces)) {
		return fmt.Errorf("%w: ticket price %s", ErrInvalidAmount, req.TicketPrice)
	}
	if req.MaxTickets != nil && *req.MaxTickets <= 0 {
		return fmt.Errorf("%w: max tickets must be positive", ErrInvalidGiveaway)
	}
	if !req.EndsAt.After(s.now()) {
		return fmt.Errorf("%w: end time must be in the future", ErrInvalidGiveaway)
	}
	if req.DonationSplit != nil {
		if err := ValidateSplit(*req.DonationSplit); err != nil {
			return err
		}
	}
	if req.PrizeAmount.IsNegative() {
		return fmt.Errorf("%w: prize amount %s", ErrInvalidAmount, req.PrizeAmount)
	}
	if !req.PrizeAmount.IsZero() {
		if err := validateMoney(req.PrizeAmount); err != nil {
			return err
		}
		// a seeded prize is not backed by any wallet debit
		if err := requireAdmin(ctx, s.admins, req.CreatorID); err != nil {
			return err
		}
	}
	return nil
}

// Get returns a giveaway
func (s *GiveawayService) Get(ctx context.Context, id int64) (*models.Giveaway, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	giveaway, err := uow.GiveawayRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if giveaway == nil {
		return nil, fmt.Errorf("%w: %d", ErrGiveawayNotFound, id)
	}
	return giveaway, nil
}

// Close stops an active giveaway from accepting contributions
func (s *GiveawayService) Close(ctx context.Context, id int64, actorID string) (*models.Giveaway, error) {
	if err := requireAdmin(ctx, s.admins, actorID); err != nil {
		return nil, err
	}
	return s.transition(ctx, id, actorID, "close",
		models.GiveawayStatusActive, models.GiveawayStatusEnded, models.AuditActionCloseGiveaway, "")
}

// StartReview moves an ended giveaway into winner review
func (s *GiveawayService) StartReview(ctx context.Context, id int64, actorID string) (*models.Giveaway, error) {
	if err := requireAdmin(ctx, s.admins, actorID); err != nil {
		return nil, err
	}
	return s.transition(ctx, id, actorID, "review",
		models.GiveawayStatusEnded, models.GiveawayStatusReviewPending, models.AuditActionStartReview, "")
}

// ExpireDue ends every active giveaway whose end time has passed and returns how many it ended
func (s *GiveawayService) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	ids, err := uow.GiveawayRepository().ListDueForExpiry(ctx, now, expiryBatchSize)
	uow.Rollback()
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, id := range ids {
		_, err := s.transition(ctx, id, SystemActorID, "expire",
			models.GiveawayStatusActive, models.GiveawayStatusEnded, models.AuditActionCloseGiveaway, "expired")
		if errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrGiveawayAlreadyFinalized) {
			// closed by an admin since it was listed
			continue
		}
		if err != nil {
			return expired, fmt.Errorf("failed to expire giveaway %d: %w", id, err)
		}
		expired++
	}

	return expired, nil
}

func (s *GiveawayService) transition(ctx context.Context, id int64, actorID, action string, from, to models.GiveawayStatus, auditAction models.AuditAction, note string) (*models.Giveaway, error) {
	var result *models.Giveaway

	err := s.retry.run(ctx, "giveaway."+action, func() error {
		uow := s.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback()

		giveaway, err := uow.GiveawayRepository().GetByIDForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load giveaway: %w", err)
		}
		if giveaway == nil {
			return fmt.Errorf("%w: %d", ErrGiveawayNotFound, id)
		}
		if giveaway.IsFinalized() {
			return fmt.Errorf("%w: giveaway %d", ErrGiveawayAlreadyFinalized, id)
		}
		if giveaway.Status != from {
			return &InvalidTransitionError{GiveawayID: id, Action: action, Status: giveaway.Status}
		}

		ok, err := uow.GiveawayRepository().TransitionStatus(ctx, id, from, to)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: giveaway %d left %s", ErrConcurrentUpdateConflict, id, from)
		}

		uow.EventBus().Publish(events.GiveawayStatusChangedEvent{
			GiveawayID: id,
			OldStatus:  from,
			NewStatus:  to,
			ActorID:    actorID,
		})

		if err := uow.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}

		giveaway.Status = to
		result = giveaway
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Append(ctx, &id, auditAction, actorID, nil, note)

	log.WithFields(log.Fields{
		"giveawayID": id,
		"actorID":    actorID,
		"from":       from,
		"to":         to,
	}).Info("Giveaway status changed")

	return result, nil
}
