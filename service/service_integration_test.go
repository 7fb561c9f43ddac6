package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"giveaway/events"
	"giveaway/models"
	"giveaway/repository"
	"giveaway/repository/testutil"
	"giveaway/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	db            *testutil.TestDatabase
	auditLog      *service.AuditLog
	stopAudit     func()
	access        *service.AccessService
	wallets       *service.WalletService
	contributions *service.ContributionService
	giveaways     *service.GiveawayService
	winners       *service.WinnerService
}

func newHarness(t *testing.T) *harness {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	bus := events.NewBus()
	factory := repository.NewUnitOfWorkFactory(testDB.DB, bus)
	auditLog := service.NewAuditLog(repository.NewAuditRepository(testDB.DB), service.AuditLogOptions{
		InitialBackoff: 5 * time.Millisecond,
	})
	stopAudit := auditLog.Start(ctx)
	t.Cleanup(stopAudit)

	access := service.NewAccessService(factory, auditLog)
	require.NoError(t, access.Bootstrap(ctx, []string{"admin"}))

	return &harness{
		db:            testDB,
		auditLog:      auditLog,
		stopAudit:     stopAudit,
		access:        access,
		wallets:       service.NewWalletService(factory, auditLog, access, 10),
		contributions: service.NewContributionService(factory, models.NewSplitPercentages(50, 10, 40), 1000, 10),
		giveaways:     service.NewGiveawayService(factory, auditLog, access, models.NewSplitPercentages(50, 40, 10), 10),
		winners:       service.NewWinnerService(factory, auditLog, access, 10),
	}
}

func (h *harness) createGiveaway(t *testing.T, price string, maxTickets *int64) *models.Giveaway {
	g, err := h.giveaways.Create(context.Background(), service.CreateGiveawayRequest{
		CreatorID:   "creator",
		Title:       "Integration giveaway",
		TicketPrice: decimal.RequireFromString(price),
		MaxTickets:  maxTickets,
		EndsAt:      time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	return g
}

func (h *harness) requireLedgerConsistent(t *testing.T, userID string) {
	report, err := h.wallets.Reconcile(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, report.Consistent, "ledger replay for %s: %+v", userID, report)
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestContributions_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	h := newHarness(t)
	ctx := context.Background()

	t.Run("buying two five dollar tickets from twenty", func(t *testing.T) {
		testutil.FundWallet(t, h.db.DB, "buyer", "20")
		g := h.createGiveaway(t, "5", nil)

		result, err := h.contributions.BuyTickets(ctx, service.BuyTicketsRequest{GiveawayID: g.ID, UserID: "buyer", Quantity: 2})
		require.NoError(t, err)

		assert.Equal(t, int64(2), result.IssuedTickets)
		assert.True(t, result.TotalCost.Equal(d("10")))
		assert.True(t, result.NewBalance.Equal(d("10")))

		balance, err := h.wallets.GetBalance(ctx, "buyer")
		require.NoError(t, err)
		assert.True(t, balance.Fiat.Equal(d("10")))

		after, err := h.giveaways.Get(ctx, g.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), after.TicketsCount)
		assert.True(t, after.PrizeAmount.Equal(d("4")))
		assert.True(t, after.PlatformEarningsTotal.Equal(d("5")))
		assert.True(t, after.CreatorEarningsTotal.Equal(d("1")))

		h.requireLedgerConsistent(t, "buyer")
	})

	t.Run("insufficient funds leaves nothing behind", func(t *testing.T) {
		testutil.FundWallet(t, h.db.DB, "short", "5")
		g := h.createGiveaway(t, "5", nil)

		_, err := h.contributions.BuyTickets(ctx, service.BuyTicketsRequest{GiveawayID: g.ID, UserID: "short", Quantity: 2})

		var fundsErr *service.InsufficientFundsError
		require.ErrorAs(t, err, &fundsErr)
		assert.True(t, fundsErr.Shortfall().Equal(d("5")))

		balance, err := h.wallets.GetBalance(ctx, "short")
		require.NoError(t, err)
		assert.True(t, balance.Fiat.Equal(d("5")))

		var tickets int64
		require.NoError(t, h.db.DB.QueryRow(ctx, `SELECT COUNT(*) FROM tickets WHERE giveaway_id = $1`, g.ID).Scan(&tickets))
		assert.Zero(t, tickets)

		entries, err := h.wallets.ListLedger(ctx, "short", 10, 0)
		require.NoError(t, err)
		assert.Len(t, entries, 1, "only the seed deposit")
	})

	t.Run("ten dollar donation splits five four one", func(t *testing.T) {
		testutil.FundWallet(t, h.db.DB, "donor", "10")
		g := h.createGiveaway(t, "5", nil)

		result, err := h.contributions.Donate(ctx, service.DonateRequest{GiveawayID: g.ID, UserID: "donor", Amount: d("10")})
		require.NoError(t, err)

		assert.True(t, result.Breakdown.Platform.Equal(d("5")))
		assert.True(t, result.Breakdown.Creator.Equal(d("4")))
		assert.True(t, result.Breakdown.Prize.Equal(d("1")))
		assert.True(t, result.NewBalance.IsZero())

		after, err := h.giveaways.Get(ctx, g.ID)
		require.NoError(t, err)
		assert.True(t, after.DonationPoolTotal.Equal(d("1")))
		assert.True(t, after.CreatorEarningsTotal.Equal(d("4")))
		assert.True(t, after.PlatformEarningsTotal.Equal(d("5")))
		assert.True(t, after.PrizeAmount.IsZero())

		var kind string
		require.NoError(t, h.db.DB.QueryRow(ctx, `SELECT kind FROM contributions WHERE id = $1`, result.ContributionID).Scan(&kind))
		assert.Equal(t, "donation", kind)

		h.requireLedgerConsistent(t, "donor")
	})

	t.Run("deposit is idempotent per reference", func(t *testing.T) {
		first, err := h.wallets.Deposit(ctx, "depositor", d("15.50"), "tx-abc")
		require.NoError(t, err)
		second, err := h.wallets.Deposit(ctx, "depositor", d("15.50"), "tx-abc")
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)

		balance, err := h.wallets.GetBalance(ctx, "depositor")
		require.NoError(t, err)
		assert.True(t, balance.Fiat.Equal(d("15.50")))
	})

	t.Run("concurrent debits never overdraw", func(t *testing.T) {
		testutil.FundWallet(t, h.db.DB, "racer", "50")

		const attempts = 20
		var succeeded, insufficient atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := h.wallets.Debit(ctx, "racer", d("5"), models.LedgerReasonDonation, "race-"+string(rune('a'+i)))
				switch {
				case err == nil:
					succeeded.Add(1)
				case errors.Is(err, service.ErrInsufficientFunds):
					insufficient.Add(1)
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}(i)
		}
		wg.Wait()

		assert.Equal(t, int32(10), succeeded.Load())
		assert.Equal(t, int32(10), insufficient.Load())

		balance, err := h.wallets.GetBalance(ctx, "racer")
		require.NoError(t, err)
		assert.True(t, balance.Fiat.IsZero())
		h.requireLedgerConsistent(t, "racer")
	})

	t.Run("concurrent purchases respect capacity", func(t *testing.T) {
		capacity := int64(5)
		g := h.createGiveaway(t, "1", &capacity)

		var wg sync.WaitGroup
		var succeeded atomic.Int32
		for i := 0; i < 10; i++ {
			user := "cap-" + string(rune('a'+i))
			testutil.FundWallet(t, h.db.DB, user, "3")
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := h.contributions.BuyTickets(ctx, service.BuyTicketsRequest{GiveawayID: g.ID, UserID: user, Quantity: 1})
				if err == nil {
					succeeded.Add(1)
					return
				}
				assert.ErrorIs(t, err, service.ErrCapacityExceeded)
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(5), succeeded.Load())

		after, err := h.giveaways.Get(ctx, g.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(5), after.TicketsCount)

		var numbers []int64
		rows, err := h.db.DB.Query(ctx, `SELECT ticket_number FROM tickets WHERE giveaway_id = $1 ORDER BY ticket_number`, g.ID)
		require.NoError(t, err)
		for rows.Next() {
			var n int64
			require.NoError(t, rows.Scan(&n))
			numbers = append(numbers, n)
		}
		rows.Close()
		assert.Equal(t, []int64{1, 2, 3, 4, 5}, numbers)
	})

	t.Run("closed giveaway rejects contributions", func(t *testing.T) {
		testutil.FundWallet(t, h.db.DB, "late", "10")
		g := h.createGiveaway(t, "1", nil)

		_, err := h.giveaways.Close(ctx, g.ID, "admin")
		require.NoError(t, err)

		_, err = h.contributions.Donate(ctx, service.DonateRequest{GiveawayID: g.ID, UserID: "late", Amount: d("1")})
		assert.ErrorIs(t, err, service.ErrGiveawayClosed)

		balance, err := h.wallets.GetBalance(ctx, "late")
		require.NoError(t, err)
		assert.True(t, balance.Fiat.Equal(d("10")))
	})
}

func TestWinnerSelection_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	h := newHarness(t)
	ctx := context.Background()

	testutil.FundWallet(t, h.db.DB, "X", "5")
	testutil.FundWallet(t, h.db.DB, "Y", "5")
	testutil.FundWallet(t, h.db.DB, "fan", "10")
	g := h.createGiveaway(t, "5", nil)

	for _, user := range []string{"X", "Y"} {
		_, err := h.contributions.BuyTickets(ctx, service.BuyTicketsRequest{GiveawayID: g.ID, UserID: user, Quantity: 1})
		require.NoError(t, err)
	}
	_, err := h.contributions.Donate(ctx, service.DonateRequest{GiveawayID: g.ID, UserID: "fan", Amount: d("10")})
	require.NoError(t, err)

	_, err = h.winners.PickWinner(ctx, g.ID, "admin")
	assert.ErrorIs(t, err, service.ErrInvalidTransition, "pick requires review")

	_, err = h.giveaways.Close(ctx, g.ID, "admin")
	require.NoError(t, err)
	_, err = h.giveaways.StartReview(ctx, g.ID, "admin")
	require.NoError(t, err)

	_, err = h.winners.FinalizeWinner(ctx, g.ID, "admin")
	assert.ErrorIs(t, err, service.ErrNoDraftWinner)

	_, err = h.winners.PickWinner(ctx, g.ID, "fan")
	assert.ErrorIs(t, err, service.ErrNotAdmin)

	drafted, err := h.winners.PickWinner(ctx, g.ID, "admin")
	require.NoError(t, err)
	first := *drafted.TempWinnerID
	require.Contains(t, []string{"X", "Y"}, first)

	repicked, err := h.winners.RepickWinner(ctx, g.ID, "admin")
	require.NoError(t, err)
	second := *repicked.TempWinnerID
	assert.NotEqual(t, first, second)

	before, err := h.wallets.GetBalance(ctx, second)
	require.NoError(t, err)

	finalized, err := h.winners.FinalizeWinner(ctx, g.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, models.GiveawayStatusFinalized, finalized.Status)
	assert.Equal(t, second, *finalized.WinnerID)

	// ticket prize share 2 x 2.00 plus donation pool 1.00
	after, err := h.wallets.GetBalance(ctx, second)
	require.NoError(t, err)
	assert.True(t, after.Fiat.Sub(before.Fiat).Equal(d("5")), "payout was %s", after.Fiat.Sub(before.Fiat))

	_, err = h.winners.FinalizeWinner(ctx, g.ID, "admin")
	assert.ErrorIs(t, err, service.ErrGiveawayAlreadyFinalized)
	_, err = h.winners.RepickWinner(ctx, g.ID, "admin")
	assert.ErrorIs(t, err, service.ErrGiveawayAlreadyFinalized)

	again, err := h.wallets.GetBalance(ctx, second)
	require.NoError(t, err)
	assert.True(t, again.Fiat.Equal(after.Fiat), "second finalize must not pay again")

	var payouts int
	require.NoError(t, h.db.DB.QueryRow(ctx,
		`SELECT COUNT(*) FROM ledger_entries WHERE reason = 'payout' AND reference_id = $1`,
		service.PayoutReference(g.ID)).Scan(&payouts))
	assert.Equal(t, 1, payouts)
	h.requireLedgerConsistent(t, second)

	// flush the async audit writer before reading the table
	h.stopAudit()

	page, err := h.auditLog.List(ctx, models.AuditFilter{GiveawayID: &g.ID})
	require.NoError(t, err)

	var actions []models.AuditAction
	var rejectTarget string
	for _, e := range page.Entries {
		actions = append(actions, e.Action)
		if e.Action == models.AuditActionRejectWinner {
			rejectTarget = *e.TargetID
		}
	}
	assert.ElementsMatch(t, []models.AuditAction{
		models.AuditActionCloseGiveaway,
		models.AuditActionStartReview,
		models.AuditActionDraftWinner,
		models.AuditActionRejectWinner,
		models.AuditActionDraftWinner,
		models.AuditActionApproveWinner,
	}, actions)
	assert.Equal(t, first, rejectTarget)
}

func TestAdminOperations_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	h := newHarness(t)
	ctx := context.Background()

	_, err := h.wallets.AdminCredit(ctx, "nobody", "u1", d("10"), "nope")
	assert.ErrorIs(t, err, service.ErrNotAdmin)

	entry, err := h.wallets.AdminCredit(ctx, "admin", "u1", d("10"), "welcome bonus")
	require.NoError(t, err)
	assert.Equal(t, models.LedgerReasonAdminAdjustment, entry.Reason)

	_, err = h.wallets.AdminDebit(ctx, "admin", "u1", d("11"), "too much")
	assert.ErrorIs(t, err, service.ErrInsufficientFunds)

	_, err = h.wallets.AdminDebit(ctx, "admin", "u1", d("2.50"), "fee")
	require.NoError(t, err)

	balance, err := h.wallets.GetBalance(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, balance.Fiat.Equal(d("7.50")))
	h.requireLedgerConsistent(t, "u1")

	changed, err := h.access.SetUserRole(ctx, "admin", "u1", models.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = h.access.SetUserRole(ctx, "admin", "u1", models.RoleAdmin)
	require.NoError(t, err)
	assert.False(t, changed)

	isAdmin, err := h.access.IsAdmin(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, isAdmin)

	h.stopAudit()
	page, err := h.auditLog.List(ctx, models.AuditFilter{UserID: "u1"})
	require.NoError(t, err)

	counts := map[models.AuditAction]int{}
	for _, e := range page.Entries {
		counts[e.Action]++
	}
	assert.Equal(t, 2, counts[models.AuditActionAdminAdjustment])
	assert.Equal(t, 1, counts[models.AuditActionSetRole])
}
