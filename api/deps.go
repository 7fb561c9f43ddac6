package api

import (
	"context"
	"io"

	"giveaway/models"
	"giveaway/service"

	"github.com/shopspring/decimal"
)

type WalletService interface {
	GetBalance(ctx context.Context, userID string) (*models.Balance, error)
	Deposit(ctx context.Context, userID string, amount decimal.Decimal, externalRef string) (*models.LedgerEntry, error)
	ListLedger(ctx context.Context, userID string, limit, offset int) ([]*models.LedgerEntry, error)
	AdminCredit(ctx context.Context, actorID, userID string, amount decimal.Decimal, note string) (*models.LedgerEntry, error)
	AdminDebit(ctx context.Context, actorID, userID string, amount decimal.Decimal, note string) (*models.LedgerEntry, error)
	AdminAdjustTickets(ctx context.Context, actorID, userID string, delta int64, note string) (*models.LedgerEntry, error)
	Reconcile(ctx context.Context, userID string) (*models.ReconcileReport, error)
}

type GiveawayService interface {
	Create(ctx context.Context, req service.CreateGiveawayRequest) (*models.Giveaway, error)
	Get(ctx context.Context, id int64) (*models.Giveaway, error)
	Close(ctx context.Context, id int64, actorID string) (*models.Giveaway, error)
	StartReview(ctx context.Context, id int64, actorID string) (*models.Giveaway, error)
}

type ContributionService interface {
	Donate(ctx context.Context, req service.DonateRequest) (*models.DonationResult, error)
	BuyTickets(ctx context.Context, req service.BuyTicketsRequest) (*models.PurchaseResult, error)
	ListContributions(ctx context.Context, giveawayID int64, limit, offset int) ([]*models.Contribution, error)
}

type WinnerService interface {
	PickWinner(ctx context.Context, giveawayID int64, actorID string) (*models.Giveaway, error)
	RepickWinner(ctx context.Context, giveawayID int64, actorID string) (*models.Giveaway, error)
	FinalizeWinner(ctx context.Context, giveawayID int64, actorID string) (*models.Giveaway, error)
}

type AuditService interface {
	List(ctx context.Context, filter models.AuditFilter) (*models.AuditPage, error)
	ExportCSV(ctx context.Context, w io.Writer, filter models.AuditFilter) (int, error)
}

type AccessService interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
	SetUserRole(ctx context.Context, actorID, userID string, role models.Role) (bool, error)
}

// Services bundles everything the handlers call
type Services struct {
	Wallets       WalletService
	Giveaways     GiveawayService
	Contributions ContributionService
	Winners       WinnerService
	Audit         AuditService
	Access        AccessService
}
