package service

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// ExpiryWorker ends giveaways once their end time passes
type ExpiryWorker struct {
	giveaways *GiveawayService
	interval  time.Duration
	now       func() time.Time
}

// NewExpiryWorker creates an expiry worker that checks every interval
func NewExpiryWorker(giveaways *GiveawayService, interval time.Duration) *ExpiryWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ExpiryWorker{
		giveaways: giveaways,
		interval:  interval,
		now:       time.Now,
	}
}

// Start runs the worker in the background and returns a function that stops it
func (w *ExpiryWorker) Start(ctx context.Context) func() {
	ticker := time.NewTicker(w.interval)
	stopChan := make(chan struct{})

	go func() {
		log.WithField("interval", w.interval).Info("Giveaway expiry worker started")

		// Run immediately on startup
		w.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				log.Info("Giveaway expiry worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Giveaway expiry worker shutting down (stop requested)...")
				return
			case <-ticker.C:
				w.runOnce(ctx)
			}
		}
	}()

	return func() {
		ticker.Stop()
		close(stopChan)
	}
}

func (w *ExpiryWorker) runOnce(ctx context.Context) {
	expired, err := w.giveaways.ExpireDue(ctx, w.now().UTC())
	if err != nil {
		log.WithError(err).Error("Error expiring giveaways")
	}
	if expired > 0 {
		log.WithField("count", expired).Info("Expired giveaways")
	}
}
