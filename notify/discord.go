package notify

import (
	"context"
	"fmt"

	"giveaway/events"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

const (
	ColorSuccess = 0x57F287
	ColorPrimary = 0x5865F2
)

// ChannelMessenger is the slice of *discordgo.Session the announcer needs
type ChannelMessenger interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordAnnouncer posts finalized winners to a Discord channel
type DiscordAnnouncer struct {
	messenger ChannelMessenger
	channelID string
}

// NewDiscordAnnouncer creates an announcer posting to channelID
func NewDiscordAnnouncer(messenger ChannelMessenger, channelID string) *DiscordAnnouncer {
	return &DiscordAnnouncer{
		messenger: messenger,
		channelID: channelID,
	}
}

// NewDiscordSession opens a bot session for announcements
func NewDiscordSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("failed to open discord session: %w", err)
	}
	return session, nil
}

// Attach subscribes the announcer to winner finalization
func (a *DiscordAnnouncer) Attach(bus *events.Bus) {
	bus.Subscribe(events.EventTypeWinnerFinalized, a.Handle)
}

// Handle posts the announcement. Failures are logged; they never affect the payout.
func (a *DiscordAnnouncer) Handle(ctx context.Context, event events.Event) {
	finalized, ok := event.(events.WinnerFinalizedEvent)
	if !ok {
		log.WithField("eventType", event.Type()).Warn("Discord announcer received unexpected event")
		return
	}

	if _, err := a.messenger.ChannelMessageSendEmbed(a.channelID, buildWinnerEmbed(finalized)); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"giveawayID": finalized.GiveawayID,
			"channelID":  a.channelID,
		}).Error("Failed to announce giveaway winner")
		return
	}

	log.WithFields(log.Fields{
		"giveawayID": finalized.GiveawayID,
		"winnerID":   finalized.WinnerID,
	}).Info("Announced giveaway winner")
}

func buildWinnerEmbed(e events.WinnerFinalizedEvent) *discordgo.MessageEmbed {
	title := e.Title
	if title == "" {
		title = fmt.Sprintf("Giveaway #%d", e.GiveawayID)
	}

	color := ColorSuccess
	prize := fmt.Sprintf("**$%s**", e.Payout.StringFixed(2))
	if !e.Payout.IsPositive() {
		color = ColorPrimary
		prize = "No cash prize"
	}

	return &discordgo.MessageEmbed{
		Title:       "🎉 " + title,
		Description: fmt.Sprintf("Congratulations <@%s>!", e.WinnerID),
		Color:       color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Prize", Value: prize, Inline: true},
			{Name: "Tickets", Value: fmt.Sprintf("%d", e.TicketsCount), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Giveaway #%d", e.GiveawayID),
		},
	}
}
