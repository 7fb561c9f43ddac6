package service

import (
	"context"
	"time"

	"giveaway/events"
	"giveaway/models"

	"github.com/shopspring/decimal"
)

// WalletRepository defines data access for wallet rows
type WalletRepository interface {
	// Ensure creates a zero-balance wallet if none exists and reports whether it created one
	Ensure(ctx context.Context, userID string) (bool, error)

	// GetByUserID returns the wallet, or nil if it does not exist
	GetByUserID(ctx context.Context, userID string) (*models.Wallet, error)

	// GetByUserIDForUpdate returns the wallet and locks the row until the transaction ends
	GetByUserIDForUpdate(ctx context.Context, userID string) (*models.Wallet, error)

	// ApplyFiatDelta adds delta to the fiat balance if the version still matches and the
	// result stays non-negative. Returns nil when the conditional update matched no row.
	ApplyFiatDelta(ctx context.Context, userID string, delta decimal.Decimal, expectedVersion int64) (*models.Wallet, error)

	// ApplyTicketsDelta is ApplyFiatDelta for the ticket-credit balance
	ApplyTicketsDelta(ctx context.Context, userID string, delta int64, expectedVersion int64) (*models.Wallet, error)
}

// LedgerRepository defines data access for the append-only ledger
type LedgerRepository interface {
	// Append writes an entry and fills in its ID and CreatedAt
	Append(ctx context.Context, entry *models.LedgerEntry) error

	// ListByUser returns a user's entries newest first
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.LedgerEntry, error)

	// ListForReplay returns all of a user's entries in application order
	ListForReplay(ctx context.Context, userID string) ([]*models.LedgerEntry, error)

	// GetDeposit returns the deposit entry recorded for an external reference, or nil
	GetDeposit(ctx context.Context, userID, referenceID string) (*models.LedgerEntry, error)
}

// GiveawayRepository defines data access for giveaways
type GiveawayRepository interface {
	// Create inserts a giveaway and fills in generated fields
	Create(ctx context.Context, giveaway *models.Giveaway) error

	// GetByID returns the giveaway, or nil if it does not exist
	GetByID(ctx context.Context, id int64) (*models.Giveaway, error)

	// GetByIDForUpdate returns the giveaway and locks the row
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Giveaway, error)

	// ApplyContribution atomically increments the aggregate counters of an active giveaway.
	// Returns nil when the giveaway is no longer active or capacity would be exceeded.
	ApplyContribution(ctx context.Context, id int64, delta models.GiveawayDelta) (*models.Giveaway, error)

	// TransitionStatus moves a giveaway from one status to another. Returns false if the
	// giveaway was not in the expected status.
	TransitionStatus(ctx context.Context, id int64, from, to models.GiveawayStatus) (bool, error)

	// SetDraftWinner stores a candidate and moves the giveaway to draft_winner_selected
	SetDraftWinner(ctx context.Context, id int64, from models.GiveawayStatus, candidateID string) (bool, error)

	// Finalize promotes the expected candidate to winner and marks the giveaway finalized
	Finalize(ctx context.Context, id int64, candidateID string) (bool, error)

	// ListDueForExpiry returns active giveaways whose end time is at or before now
	ListDueForExpiry(ctx context.Context, now time.Time, limit int) ([]int64, error)
}

// ContributionRepository defines data access for donation and purchase records
type ContributionRepository interface {
	Create(ctx context.Context, contribution *models.Contribution) error
	GetByID(ctx context.Context, id string) (*models.Contribution, error)
	ListByGiveaway(ctx context.Context, giveawayID int64, limit, offset int) ([]*models.Contribution, error)
}

// TicketRepository defines data access for issued raffle tickets
type TicketRepository interface {
	// Issue creates quantity tickets numbered from firstNumber for a purchase
	Issue(ctx context.Context, giveawayID int64, contributionID, userID string, firstNumber, quantity int64) (int64, error)

	// ListHolders returns the distinct users holding tickets for a giveaway, sorted
	ListHolders(ctx context.Context, giveawayID int64) ([]string, error)

	// CountByGiveaway returns the number of issued tickets
	CountByGiveaway(ctx context.Context, giveawayID int64) (int64, error)
}

// AuditRepository defines data access for the audit table
type AuditRepository interface {
	Append(ctx context.Context, entry *models.GiveawayAudit) error
	List(ctx context.Context, filter models.AuditFilter) ([]*models.GiveawayAudit, int64, error)
}

// RoleRepository defines data access for user roles
type RoleRepository interface {
	// Upsert sets a user's role and reports whether anything changed
	Upsert(ctx context.Context, userID string, role models.Role, grantedBy string) (bool, error)

	// GetByUserID returns the role row, or nil when the user has none
	GetByUserID(ctx context.Context, userID string) (*models.UserRole, error)

	// ListByRole returns user IDs holding role
	ListByRole(ctx context.Context, role models.Role) ([]string, error)
}

// EventPublisher queues domain events for delivery after commit
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork scopes repositories to one database transaction
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	WalletRepository() WalletRepository
	LedgerRepository() LedgerRepository
	GiveawayRepository() GiveawayRepository
	ContributionRepository() ContributionRepository
	TicketRepository() TicketRepository
	RoleRepository() RoleRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory creates units of work
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// AuditAppender records administrative actions without failing the caller
type AuditAppender interface {
	Append(ctx context.Context, giveawayID *int64, action models.AuditAction, actorID string, targetID *string, note string)
}

// AdminChecker answers the isAdmin capability question
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}
