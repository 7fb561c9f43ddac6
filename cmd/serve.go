package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"giveaway/api"
	"giveaway/config"
	"giveaway/events"
	"giveaway/notify"
	"giveaway/service"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and background workers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Run(cmd.Context(), config.Get())
	},
}

// Run initializes and starts the application
func Run(ctx context.Context, cfg *config.Config) error {
	log.WithField("environment", cfg.Environment).Info("Starting giveaway service...")

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	if cfg.NATSURL != "" {
		publisher, err := events.ConnectNATS(cfg.NATSURL)
		if err != nil {
			return err
		}
		defer publisher.Close()
		events.NewForwarder(publisher).Attach(a.bus)
	}

	if cfg.DiscordToken != "" {
		session, err := notify.NewDiscordSession(cfg.DiscordToken)
		if err != nil {
			return err
		}
		defer func() {
			if err := session.Close(); err != nil {
				log.WithError(err).Warn("Error closing Discord session")
			}
		}()
		notify.NewDiscordAnnouncer(session, cfg.DiscordAnnounceChannelID).Attach(a.bus)
		log.WithField("channelID", cfg.DiscordAnnounceChannelID).Info("Discord winner announcements enabled")
	}

	stopExpiry := service.NewExpiryWorker(a.giveaways, cfg.ExpiryCheckInterval).Start(ctx)
	defer stopExpiry()

	server := api.NewServer(api.Services{
		Wallets:       a.wallets,
		Giveaways:     a.giveaways,
		Contributions: a.contributions,
		Winners:       a.winners,
		Audit:         a.auditLog,
		Access:        a.access,
	}, api.Options{
		JWTSecret:      cfg.JWTSecret,
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})
	stopSweeper := server.Limiter().Start(time.Minute)
	defer stopSweeper()

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down...")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP server shutdown timed out")
	}

	log.Info("Shutdown completed")
	return nil
}
