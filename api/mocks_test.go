package api

import (
	"context"
	"io"

	"giveaway/models"
	"giveaway/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type mockWallets struct{ mock.Mock }

func (m *mockWallets) GetBalance(ctx context.Context, userID string) (*models.Balance, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Balance), args.Error(1)
}

func (m *mockWallets) Deposit(ctx context.Context, userID string, amount decimal.Decimal, externalRef string) (*models.LedgerEntry, error) {
	args := m.Called(ctx, userID, amount, externalRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LedgerEntry), args.Error(1)
}

func (m *mockWallets) ListLedger(ctx context.Context, userID string, limit, offset int) ([]*models.LedgerEntry, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LedgerEntry), args.Error(1)
}

func (m *mockWallets) AdminCredit(ctx context.Context, actorID, userID string, amount decimal.Decimal, note string) (*models.LedgerEntry, error) {
	args := m.Called(ctx, actorID, userID, amount, note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LedgerEntry), args.Error(1)
}

func (m *mockWallets) AdminDebit(ctx context.Context, actorID, userID string, amount decimal.Decimal, note string) (*models.LedgerEntry, error) {
	args := m.Called(ctx, actorID, userID, amount, note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LedgerEntry), args.Error(1)
}

func (m *mockWallets) AdminAdjustTickets(ctx context.Context, actorID, userID string, delta int64, note string) (*models.LedgerEntry, error) {
	args := m.Called(ctx, actorID, userID, delta, note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LedgerEntry), args.Error(1)
}

func (m *mockWallets) Reconcile(ctx context.Context, userID string) (*models.ReconcileReport, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReconcileReport), args.Error(1)
}

type mockGiveaways struct{ mock.Mock }

func (m *mockGiveaways) Create(ctx context.Context, req service.CreateGiveawayRequest) (*models.Giveaway, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Giveaway), args.Error(1)
}

func (m *mockGiveaways) Get(ctx context.Context, id int64) (*models.Giveaway, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Giveaway), args.Error(1)
}

func (m *mockGiveaways) Close(ctx context.Context, id int64, actorID string) (*models.Giveaway, error) {
	args := m.Called(ctx, id, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Giveaway), args.Error(1)
}

func (m *mockGiveaways) StartReview(ctx context.Context, id int64, actorID string) (*models.Giveaway, error) {
	args := m.Called(ctx, id, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Giveaway), args.Error(1)
}

type mockContributions struct{ mock.Mock }

func (m *mockContributions) Donate(ctx context.Context, req service.DonateRequest) (*models.DonationResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DonationResult), args.Error(1)
}

func (m *mockContributions) BuyTickets(ctx context.Context, req service.BuyTicketsRequest) (*models.PurchaseResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PurchaseResult), args.Error(1)
}

func (m *mockContributions) ListContributions(ctx context.Context, giveawayID int64, limit, offset int) ([]*models.Contribution, error) {
	args := m.Called(ctx, giveawayID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Contribution), args.Error(1)
}

type mockWinners struct{ mock.Mock }

func (m *mockWinners) PickWinner(ctx context.Context, giveawayID int64, actorID string) (*models.Giveaway, error) {
	args := m.Called(ctx, giveawayID, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Giveaway), args.Error(1)
}

func (m *mockWinners) RepickWinner(ctx context.Context, giveawayID int64, actorID string) (*models.Giveaway, error) {
	args := m.Called(ctx, giveawayID, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Giveaway), args.Error(1)
}

func (m *mockWinners) FinalizeWinner(ctx context.Context, giveawayID int64, actorID string) (*models.Giveaway, error) {
	args := m.Called(ctx, giveawayID, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Giveaway), args.Error(1)
}

type mockAudit struct{ mock.Mock }

func (m *mockAudit) List(ctx context.Context, filter models.AuditFilter) (*models.AuditPage, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AuditPage), args.Error(1)
}

func (m *mockAudit) ExportCSV(ctx context.Context, w io.Writer, filter models.AuditFilter) (int, error) {
	args := m.Called(ctx, w, filter)
	return args.Int(0), args.Error(1)
}

type mockAccess struct{ mock.Mock }

func (m *mockAccess) IsAdmin(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockAccess) SetUserRole(ctx context.Context, actorID, userID string, role models.Role) (bool, error) {
	args := m.Called(ctx, actorID, userID, role)
	return args.Bool(0), args.Error(1)
}
