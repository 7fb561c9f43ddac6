package cmd

import (
	"context"
	"fmt"

	"giveaway/config"
	"giveaway/database"
	"giveaway/events"
	"giveaway/metrics"
	"giveaway/models"
	"giveaway/repository"
	"giveaway/service"

	log "github.com/sirupsen/logrus"
)

// app holds the shared wiring used by serve and the admin commands
type app struct {
	cfg           *config.Config
	db            *database.DB
	bus           *events.Bus
	auditLog      *service.AuditLog
	stopAudit     func()
	access        *service.AccessService
	wallets       *service.WalletService
	contributions *service.ContributionService
	giveaways     *service.GiveawayService
	winners       *service.WinnerService
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	log.Info("Connecting to database...")
	db, err := database.NewConnectionWithOptions(ctx, database.ConstructDatabaseURL(cfg.DatabaseURL, cfg.DatabaseName), database.PoolOptions{
		MaxConns:         cfg.DBMaxConns,
		StatementTimeout: cfg.StatementTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	bus := events.NewBus()
	metrics.Attach(bus)
	uowFactory := repository.NewUnitOfWorkFactory(db, bus)

	auditLog := service.NewAuditLog(repository.NewAuditRepository(db), service.AuditLogOptions{
		QueueSize:   cfg.AuditQueueSize,
		MaxAttempts: cfg.AuditRetryAttempts,
	})

	ticketSplit := models.NewSplitPercentages(cfg.TicketSplitPlatform, cfg.TicketSplitCreator, cfg.TicketSplitPrize)
	donationSplit := models.NewSplitPercentages(cfg.DonationSplitPlatform, cfg.DonationSplitCreator, cfg.DonationSplitPrize)

	access := service.NewAccessService(uowFactory, auditLog)
	a := &app{
		cfg:           cfg,
		db:            db,
		bus:           bus,
		auditLog:      auditLog,
		access:        access,
		wallets:       service.NewWalletService(uowFactory, auditLog, access, cfg.MaxConflictRetries),
		contributions: service.NewContributionService(uowFactory, ticketSplit, cfg.MaxTicketsPerPurchase, cfg.MaxConflictRetries),
		giveaways:     service.NewGiveawayService(uowFactory, auditLog, access, donationSplit, cfg.MaxConflictRetries),
		winners:       service.NewWinnerService(uowFactory, auditLog, access, cfg.MaxConflictRetries),
	}
	// the writer outlives the signal context; close stops it once HTTP has drained
	a.stopAudit = auditLog.Start(context.WithoutCancel(ctx))

	if len(cfg.BootstrapAdminIDs) > 0 {
		if err := access.Bootstrap(ctx, cfg.BootstrapAdminIDs); err != nil {
			a.close()
			return nil, err
		}
		log.WithField("count", len(cfg.BootstrapAdminIDs)).Info("Bootstrapped admins")
	}

	return a, nil
}

// close flushes queued audit entries before the pool goes away
func (a *app) close() {
	if a.stopAudit != nil {
		a.stopAudit()
	}
	if parked := a.auditLog.Parked(); len(parked) > 0 {
		log.WithField("count", len(parked)).Error("Audit entries could not be written before shutdown")
	}
	a.db.Close()
}
