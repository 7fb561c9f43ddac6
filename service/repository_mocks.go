package service

import (
	"context"
	"time"

	"giveaway/events"
	"giveaway/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockWalletRepository is a mock implementation of WalletRepository
type MockWalletRepository struct {
	mock.Mock
}

func (m *MockWalletRepository) Ensure(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockWalletRepository) GetByUserID(ctx context.Context, userID string) (*models.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *MockWalletRepository) GetByUserIDForUpdate(ctx context.Context, userID string) (*models.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *MockWalletRepository) ApplyFiatDelta(ctx context.Context, userID string, delta decimal.Decimal, expectedVersion int64) (*models.Wallet, error) {
	args := m.Called(ctx, userID, delta, expectedVersion)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *MockWalletRepository) ApplyTicketsDelta(ctx context.Context, userID string, delta int64, expectedVersion int64) (*models.Wallet, error) {
	args := m.Called(ctx, userID, delta, expectedVersion)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

// MockLedgerRepository is a mock implementation of LedgerRepository
type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) Append(ctx context.Context, entry *models.LedgerEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedgerRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.LedgerEntry, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) ListForReplay(ctx context.Context, userID string) ([]*models.LedgerEntry, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) GetDeposit(ctx context.Context, userID, referenceID string) (*models.LedgerEntry, error) {
	args := m.Called(ctx, userID, referenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LedgerEntry), args.Error(1)
}

// MockGiveawayRepository is a mock implementation of GiveawayRepository
type MockGiveawayRepository struct {
	mock.Mock
}

func (m *MockGiveawayRepository) Create(ctx context.Context, giveaway *models.Giveaway) error {
	args := m.Called(ctx, giveaway)
	return args.Error(0)
}

func (m *MockGiveawayRepository) GetByID(ctx context.Context, id int64) (*models.Giveaway, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Giveaway), args.Error(1)
}

func (m *MockGiveawayRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Giveaway, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Giveaway), args.Error(1)
}

func (m *MockGiveawayRepository) ApplyContribution(ctx context.Context, id int64, delta models.GiveawayDelta) (*models.Giveaway, error) {
	args := m.Called(ctx, id, delta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Giveaway), args.Error(1)
}

func (m *MockGiveawayRepository) TransitionStatus(ctx context.Context, id int64, from, to models.GiveawayStatus) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockGiveawayRepository) SetDraftWinner(ctx context.Context, id int64, from models.GiveawayStatus, candidateID string) (bool, error) {
	args := m.Called(ctx, id, from, candidateID)
	return args.Bool(0), args.Error(1)
}

func (m *MockGiveawayRepository) Finalize(ctx context.Context, id int64, candidateID string) (bool, error) {
	args := m.Called(ctx, id, candidateID)
	return args.Bool(0), args.Error(1)
}

func (m *MockGiveawayRepository) ListDueForExpiry(ctx context.Context, now time.Time, limit int) ([]int64, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

// MockContributionRepository is a mock implementation of ContributionRepository
type MockContributionRepository struct {
	mock.Mock
}

func (m *MockContributionRepository) Create(ctx context.Context, contribution *models.Contribution) error {
	args := m.Called(ctx, contribution)
	return args.Error(0)
}

func (m *MockContributionRepository) GetByID(ctx context.Context, id string) (*models.Contribution, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Contribution), args.Error(1)
}

func (m *MockContributionRepository) ListByGiveaway(ctx context.Context, giveawayID int64, limit, offset int) ([]*models.Contribution, error) {
	args := m.Called(ctx, giveawayID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Contribution), args.Error(1)
}

// MockTicketRepository is a mock implementation of TicketRepository
type MockTicketRepository struct {
	mock.Mock
}

func (m *MockTicketRepository) Issue(ctx context.Context, giveawayID int64, contributionID, userID string, firstNumber, quantity int64) (int64, error) {
	args := m.Called(ctx, giveawayID, contributionID, userID, firstNumber, quantity)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTicketRepository) ListHolders(ctx context.Context, giveawayID int64) ([]string, error) {
	args := m.Called(ctx, giveawayID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockTicketRepository) CountByGiveaway(ctx context.Context, giveawayID int64) (int64, error) {
	args := m.Called(ctx, giveawayID)
	return args.Get(0).(int64), args.Error(1)
}

// MockRoleRepository is a mock implementation of RoleRepository
type MockRoleRepository struct {
	mock.Mock
}

func (m *MockRoleRepository) Upsert(ctx context.Context, userID string, role models.Role, grantedBy string) (bool, error) {
	args := m.Called(ctx, userID, role, grantedBy)
	return args.Bool(0), args.Error(1)
}

func (m *MockRoleRepository) GetByUserID(ctx context.Context, userID string) (*models.UserRole, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserRole), args.Error(1)
}

func (m *MockRoleRepository) ListByRole(ctx context.Context, role models.Role) ([]string, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockAuditRepository is a mock implementation of AuditRepository
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Append(ctx context.Context, entry *models.GiveawayAudit) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditRepository) List(ctx context.Context, filter models.AuditFilter) ([]*models.GiveawayAudit, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*models.GiveawayAudit), args.Get(1).(int64), args.Error(2)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockAuditAppender is a mock implementation of AuditAppender
type MockAuditAppender struct {
	mock.Mock
}

func (m *MockAuditAppender) Append(ctx context.Context, giveawayID *int64, action models.AuditAction, actorID string, targetID *string, note string) {
	m.Called(ctx, giveawayID, action, actorID, targetID, note)
}

// MockAdminChecker is a mock implementation of AdminChecker
type MockAdminChecker struct {
	mock.Mock
}

func (m *MockAdminChecker) IsAdmin(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Repository getters
// return the configured mocks without recording calls.
type MockUnitOfWork struct {
	mock.Mock

	Wallets       *MockWalletRepository
	Ledger        *MockLedgerRepository
	Giveaways     *MockGiveawayRepository
	Contributions *MockContributionRepository
	Tickets       *MockTicketRepository
	Roles         *MockRoleRepository
	Events        *MockEventPublisher
}

// NewMockUnitOfWork creates a unit of work with a fresh mock for every repository
func NewMockUnitOfWork() *MockUnitOfWork {
	return &MockUnitOfWork{
		Wallets:       new(MockWalletRepository),
		Ledger:        new(MockLedgerRepository),
		Giveaways:     new(MockGiveawayRepository),
		Contributions: new(MockContributionRepository),
		Tickets:       new(MockTicketRepository),
		Roles:         new(MockRoleRepository),
		Events:        new(MockEventPublisher),
	}
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) WalletRepository() WalletRepository             { return m.Wallets }
func (m *MockUnitOfWork) LedgerRepository() LedgerRepository             { return m.Ledger }
func (m *MockUnitOfWork) GiveawayRepository() GiveawayRepository         { return m.Giveaways }
func (m *MockUnitOfWork) ContributionRepository() ContributionRepository { return m.Contributions }
func (m *MockUnitOfWork) TicketRepository() TicketRepository             { return m.Tickets }
func (m *MockUnitOfWork) RoleRepository() RoleRepository                 { return m.Roles }
func (m *MockUnitOfWork) EventBus() EventPublisher                       { return m.Events }

// AssertRepositories asserts expectations on every repository mock
func (m *MockUnitOfWork) AssertRepositories(t mock.TestingT) {
	m.Wallets.AssertExpectations(t)
	m.Ledger.AssertExpectations(t)
	m.Giveaways.AssertExpectations(t)
	m.Contributions.AssertExpectations(t)
	m.Tickets.AssertExpectations(t)
	m.Roles.AssertExpectations(t)
	m.Events.AssertExpectations(t)
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
