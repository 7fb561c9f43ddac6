package service

import (
	"context"
	"testing"
	"time"

	"giveaway/events"
	"giveaway/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newContributionTestSetup() (*ContributionService, *MockUnitOfWorkFactory, *MockUnitOfWork) {
	uow := NewMockUnitOfWork()
	factory := new(MockUnitOfWorkFactory)

	factory.On("Create").Return(uow)
	uow.On("Begin", mock.Anything).Return(nil)
	uow.On("Rollback").Return(nil).Maybe()

	svc := NewContributionService(factory, models.NewSplitPercentages(50, 10, 40), 100, 3)
	svc.now = func() time.Time { return testNow }
	svc.newID = func() string { return "c0ffee00-0000-0000-0000-000000000001" }
	return svc, factory, uow
}

func activeGiveaway(id int64, price string) *models.Giveaway {
	return &models.Giveaway{
		ID:            id,
		CreatorID:     "creator",
		Title:         "Spring giveaway",
		Status:        models.GiveawayStatusActive,
		TicketPrice:   dec(price),
		DonationSplit: models.NewSplitPercentages(50, 40, 10),
		EndsAt:        testNow.Add(time.Hour),
	}
}

func TestContributionService_Donate_Success(t *testing.T) {
	ctx := context.Background()
	svc, _, uow := newContributionTestSetup()
	contributionID := "c0ffee00-0000-0000-0000-000000000001"

	giveaway := activeGiveaway(1, "5")
	uow.Giveaways.On("GetByIDForUpdate", ctx, int64(1)).Return(giveaway, nil)
	uow.Wallets.On("Ensure", ctx, "u1").Return(false, nil)
	uow.Wallets.On("GetByUserIDForUpdate", ctx, "u1").Return(&models.Wallet{UserID: "u1", BalanceFiat: dec("50"), Version: 1}, nil)
	uow.Wallets.On("ApplyFiatDelta", ctx, "u1", decEq("-10"), int64(1)).
		Return(&models.Wallet{UserID: "u1", BalanceFiat: dec("40"), Version: 2}, nil)
	uow.Ledger.On("Append", ctx, mock.MatchedBy(func(e *models.LedgerEntry) bool {
		return e.Reason == models.LedgerReasonDonation && e.ReferenceID == contributionID
	})).Return(nil)
	uow.Giveaways.On("ApplyContribution", ctx, int64(1), mock.MatchedBy(func(d models.GiveawayDelta) bool {
		return d.Tickets == 0 &&
			d.Prize.IsZero() &&
			d.DonationPool.Equal(dec("1")) &&
			d.CreatorEarnings.Equal(dec("4")) &&
			d.PlatformEarnings.Equal(dec("5"))
	})).Return(giveaway, nil)
	uow.Contributions.On("Create", ctx, mock.MatchedBy(func(c *models.Contribution) bool {
		return c.ID == contributionID && c.Kind == models.ContributionKindDonation && c.Amount.Equal(dec("10"))
	})).Return(nil)
	uow.Events.On("Publish", mock.AnythingOfType("events.BalanceChangedEvent")).Return()
	uow.Events.On("Publish", mock.AnythingOfType("events.ContributionRecordedEvent")).Return()
	uow.On("Commit").Return(nil)

	result, err := svc.Donate(ctx, DonateRequest{GiveawayID: 1, UserID: "u1", Amount: dec("10.00")})

	require.NoError(t, err)
	assert.Equal(t, contributionID, result.ContributionID)
	assert.True(t, result.NewBalance.Equal(dec("40")))
	assert.True(t, result.Breakdown.Platform.Equal(dec("5.00")))
	assert.True(t, result.Breakdown.Creator.Equal(dec("4.00")))
	assert.True(t, result.Breakdown.Prize.Equal(dec("1.00")))
	uow.AssertRepositories(t)
}

func TestContributionService_Donate_SplitOverride(t *testing.T) {
	ctx := context.Background()
	svc, _, uow := newContributionTestSetup()

	override := models.NewSplitPercentages(20, 0, 80)
	uow.Giveaways.On("GetByIDForUpdate", ctx, int64(1)).Return(activeGiveaway(1, "5"), nil)
	uow.Wallets.On("Ensure", ctx, "u1").Return(false, nil)
	uow.Wallets.On("GetByUserIDForUpdate", ctx, "u1").Return(&models.Wallet{UserID: "u1", BalanceFiat: dec("10"), Version: 1}, nil)
	uow.Wallets.On("ApplyFiatDelta", ctx, "u1", decEq("-10"), int64(1)).
		Return(&models.Wallet{UserID: "u1", BalanceFiat: dec("0"), Version: 2}, nil)
	uow.Ledger.On("Append", ctx, mock.Anything).Return(nil)
	uow.Giveaways.On("ApplyContribution", ctx, int64(1), mock.MatchedBy(func(d models.GiveawayDelta) bool {
		return d.DonationPool.Equal(dec("8")) && d.PlatformEarnings.Equal(dec("2")) && d.CreatorEarnings.IsZero()
	})).Return(activeGiveaway(1, "5"), nil)
	uow.Contributions.On("Create", ctx, mock.Anything).Return(nil)
	uow.Events.On("Publish", mock.Anything).Return()
	uow.On("Commit").Return(nil)

	result, err := svc.Donate(ctx, DonateRequest{GiveawayID: 1, UserID: "u1", Amount: dec("10"), SplitOverride: &override})

	require.NoError(t, err)
	assert.True(t, result.Breakdown.Prize.Equal(dec("8")))
	assert.True(t, result.NewBalance.IsZero())
}

func TestContributionService_Donate_Validation(t *testing.T) {
	svc, factory, _ := newContributionTestSetup()
	bad := models.NewSplitPercentages(50, 50, 50)

	tests := []struct {
		name    string
		req     DonateRequest
		wantErr error
	}{
		{"zero amount", DonateRequest{GiveawayID: 1, UserID: "u1", Amount: dec("0")}, ErrInvalidAmount},
		{"negative amount", DonateRequest{GiveawayID: 1, UserID: "u1", Amount: dec("-3")}, ErrInvalidAmount},
		{"sub-cent amount", DonateRequest{GiveawayID: 1, UserID: "u1", Amount: dec("0.005")}, ErrInvalidAmount},
		{"bad override", DonateRequest{GiveawayID: 1, UserID: "u1", Amount: dec("1"), SplitOverride: &bad}, ErrInvalidSplitConfiguration},
		{"missing giveaway", DonateRequest{UserID: "u1", Amount: dec("1")}, ErrInvalidGiveaway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Donate(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	factory.AssertNotCalled(t, "Create")
}

func TestContributionService_Donate_GiveawayClosed(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		giveaway *models.Giveaway
	}{
		{"ended status", func() *models.Giveaway {
			g := activeGiveaway(1, "5")
			g.Status = models.GiveawayStatusEnded
			return g
		}()},
		{"end time passed", func() *models.Giveaway {
			g := activeGiveaway(1, "5")
			g.EndsAt = testNow.Add(-time.Minute)
			return g
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, uow := newContributionTestSetup()
			uow.Giveaways.On("GetByIDForUpdate", ctx, int64(1)).Return(tt.giveaway, nil)

			_, err := svc.Donate(ctx, DonateRequest{GiveawayID: 1, UserID: "u1", Amount: dec("10")})

			assert.ErrorIs(t, err, ErrGiveawayClosed)
			uow.Wallets.AssertNotCalled(t, "GetByUserIDForUpdate", mock.Anything, mock.Anything)
			uow.AssertNotCalled(t, "Commit")
		})
	}
}

func TestContributionService_Donate_GiveawayNotFound(t *testing.T) {
	ctx := context.Background()
	svc, _, uow := newContributionTestSetup()

	uow.Giveaways.On("GetByIDForUpdate", ctx, int64(99)).Return(nil, nil)

	_, err := svc.Donate(ctx, DonateRequest{GiveawayID: 99, UserID: "u1", Amount: dec("10")})

	assert.ErrorIs(t, err, ErrGiveawayNotFound)
}

func TestContributionService_Donate_InsufficientFundsLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	svc, _, uow := newContributionTestSetup()

	uow.Giveaways.On("GetByIDForUpdate", ctx, int64(1)).Return(activeGiveaway(1, "5"), nil)
	uow.Wallets.On("Ensure", ctx, "u1").Return(false, nil)
	uow.Wallets.On("GetByUserIDForUpdate", ctx, "u1").Return(&models.Wallet{UserID: "u1", BalanceFiat: dec("3"), Version: 1}, nil)

	_, err := svc.Donate(ctx, DonateRequest{GiveawayID: 1, UserID: "u1", Amount: dec("10")})

	assert.ErrorIs(t, err, ErrInsufficientFunds)
	uow.Giveaways.AssertNotCalled(t, "ApplyContribution", mock.Anything, mock.Anything, mock.Anything)
	uow.Contributions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	uow.AssertNotCalled(t, "Commit")
}

func TestContributionService_BuyTickets_Success(t *testing.T) {
	ctx := context.Background()
	svc, _, uow := newContributionTestSetup()
	purchaseID := "c0ffee00-0000-0000-0000-000000000001"

	giveaway := activeGiveaway(1, "5")
	giveaway.TicketsCount = 3
	after := activeGiveaway(1, "5")
	after.TicketsCount = 5

	uow.Giveaways.On("GetByIDForUpdate", ctx, int64(1)).Return(giveaway, nil)
	uow.Wallets.On("Ensure", ctx, "u1").Return(false, nil)
	uow.Wallets.On("GetByUserIDForUpdate", ctx, "u1").Return(&models.Wallet{UserID: "u1", BalanceFiat: dec("20"), Version: 1}, nil)
	uow.Wallets.On("ApplyFiatDelta", ctx, "u1", decEq("-10"), int64(1)).
		Return(&models.Wallet{UserID: "u1", BalanceFiat: dec("10"), Version: 2}, nil)
	uow.Ledger.On("Append", ctx, mock.MatchedBy(func(e *models.LedgerEntry) bool {
		return e.Reason == models.LedgerReasonTicketPurchase && e.ReferenceID == purchaseID
	})).Return(nil)
	uow.Giveaways.On("ApplyContribution", ctx, int64(1), mock.MatchedBy(func(d models.GiveawayDelta) bool {
		return d.Tickets == 2 &&
			d.Prize.Equal(dec("4")) &&
			d.CreatorEarnings.Equal(dec("1")) &&
			d.PlatformEarnings.Equal(dec("5")) &&
			d.DonationPool.IsZero()
	})).Return(after, nil)
	uow.Contributions.On("Create", ctx, mock.MatchedBy(func(c *models.Contribution) bool {
		return c.Kind == models.ContributionKindTicketPurchase && c.Quantity == 2 && c.Amount.Equal(dec("10"))
	})).Return(nil)
	uow.Tickets.On("Issue", ctx, int64(1), purchaseID, "u1", int64(4), int64(2)).Return(int64(2), nil)
	uow.Events.On("Publish", mock.AnythingOfType("events.BalanceChangedEvent")).Return()
	uow.Events.On("Publish", mock.MatchedBy(func(e events.ContributionRecordedEvent) bool {
		return e.IssuedTickets == 2 && e.ContributionID == purchaseID
	})).Return()
	uow.On("Commit").Return(nil)

	result, err := svc.BuyTickets(ctx, BuyTicketsRequest{GiveawayID: 1, UserID: "u1", Quantity: 2})

	require.NoError(t, err)
	assert.Equal(t, purchaseID, result.PurchaseID)
	assert.Equal(t, int64(2), result.IssuedTickets)
	assert.True(t, result.TotalCost.Equal(dec("10")))
	assert.True(t, result.NewBalance.Equal(dec("10")))
	uow.AssertRepositories(t)
	uow.AssertExpectations(t)
}

func TestContributionService_BuyTickets_RejectsNonPositiveQuantity(t *testing.T) {
	svc, factory, _ := newContributionTestSetup()

	for _, q := range []int64{0, -1} {
		_, err := svc.BuyTickets(context.Background(), BuyTicketsRequest{GiveawayID: 1, UserID: "u1", Quantity: q})
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	}
	factory.AssertNotCalled(t, "Create")
}

func TestContributionService_BuyTickets_RejectsQuantityOverLimit(t *testing.T) {
	svc, factory, _ := newContributionTestSetup()

	_, err := svc.BuyTickets(context.Background(), BuyTicketsRequest{GiveawayID: 1, UserID: "u1", Quantity: 101})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.BuyTickets(context.Background(), BuyTicketsRequest{GiveawayID: 1, UserID: "u1", Quantity: 1 << 40})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	factory.AssertNotCalled(t, "Create")
}

func TestContributionService_BuyTickets_InsufficientFunds(t *testing.T) {
	ctx := context.Background()
	svc, _, uow := newContributionTestSetup()

	uow.Giveaways.On("GetByIDForUpdate", ctx, int64(1)).Return(activeGiveaway(1, "5"), nil)
	uow.Wallets.On("Ensure", ctx, "u1").Return(false, nil)
	uow.Wallets.On("GetByUserIDForUpdate", ctx, "u1").Return(&models.Wallet{UserID: "u1", BalanceFiat: dec("5"), Version: 1}, nil)

	_, err := svc.BuyTickets(ctx, BuyTicketsRequest{GiveawayID: 1, UserID: "u1", Quantity: 2})

	require.ErrorIs(t, err, ErrInsufficientFunds)
	uow.Tickets.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	uow.Giveaways.AssertNotCalled(t, "ApplyContribution", mock.Anything, mock.Anything, mock.Anything)
	uow.AssertNotCalled(t, "Commit")
}

func TestContributionService_BuyTickets_CapacityExceeded(t *testing.T) {
	ctx := context.Background()
	svc, _, uow := newContributionTestSetup()

	capacity := int64(10)
	giveaway := activeGiveaway(1, "5")
	giveaway.MaxTickets = &capacity
	giveaway.TicketsCount = 9

	uow.Giveaways.On("GetByIDForUpdate", ctx, int64(1)).Return(giveaway, nil)

	_, err := svc.BuyTickets(ctx, BuyTicketsRequest{GiveawayID: 1, UserID: "u1", Quantity: 2})

	assert.ErrorIs(t, err, ErrCapacityExceeded)
	uow.Wallets.AssertNotCalled(t, "Ensure", mock.Anything, mock.Anything)
}

func TestContributionService_BuyTickets_FreeGiveaway(t *testing.T) {
	ctx := context.Background()
	svc, _, uow := newContributionTestSetup()

	after := activeGiveaway(1, "0")
	after.TicketsCount = 3

	uow.Giveaways.On("GetByIDForUpdate", ctx, int64(1)).Return(activeGiveaway(1, "0"), nil)
	uow.Wallets.On("Ensure", ctx, "u1").Return(true, nil)
	uow.Wallets.On("GetByUserID", ctx, "u1").Return(&models.Wallet{UserID: "u1"}, nil)
	uow.Giveaways.On("ApplyContribution", ctx, int64(1), mock.MatchedBy(func(d models.GiveawayDelta) bool {
		return d.Tickets == 3 && d.Prize.IsZero() && d.PlatformEarnings.IsZero()
	})).Return(after, nil)
	uow.Contributions.On("Create", ctx, mock.MatchedBy(func(c *models.Contribution) bool {
		return c.Amount.IsZero() && c.IssuedTickets == 3
	})).Return(nil)
	uow.Tickets.On("Issue", ctx, int64(1), mock.Anything, "u1", int64(1), int64(3)).Return(int64(3), nil)
	uow.Events.On("Publish", mock.AnythingOfType("events.ContributionRecordedEvent")).Return()
	uow.On("Commit").Return(nil)

	result, err := svc.BuyTickets(ctx, BuyTicketsRequest{GiveawayID: 1, UserID: "u1", Quantity: 3})

	require.NoError(t, err)
	assert.True(t, result.TotalCost.IsZero())
	uow.Wallets.AssertNotCalled(t, "GetByUserIDForUpdate", mock.Anything, mock.Anything)
	uow.Ledger.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestContributionService_BuyTickets_LostCapacityRace(t *testing.T) {
	ctx := context.Background()
	svc, _, uow := newContributionTestSetup()

	uow.Giveaways.On("GetByIDForUpdate", ctx, int64(1)).Return(activeGiveaway(1, "5"), nil)
	uow.Wallets.On("Ensure", ctx, "u1").Return(false, nil)
	uow.Wallets.On("GetByUserIDForUpdate", ctx, "u1").Return(&models.Wallet{UserID: "u1", BalanceFiat: dec("20"), Version: 1}, nil)
	uow.Wallets.On("ApplyFiatDelta", ctx, "u1", mock.Anything, int64(1)).
		Return(&models.Wallet{UserID: "u1", BalanceFiat: dec("15"), Version: 2}, nil)
	uow.Ledger.On("Append", ctx, mock.Anything).Return(nil)
	uow.Events.On("Publish", mock.Anything).Return()
	uow.Giveaways.On("ApplyContribution", ctx, int64(1), mock.Anything).Return(nil, nil)

	_, err := svc.BuyTickets(ctx, BuyTicketsRequest{GiveawayID: 1, UserID: "u1", Quantity: 1})

	assert.ErrorIs(t, err, ErrCapacityExceeded)
	uow.AssertNotCalled(t, "Commit")
}
