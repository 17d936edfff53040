package notify

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// channelSender is the part of *discordgo.Session the notifier needs.
type channelSender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordNotifier posts alerts to one Discord channel over the REST API. It
// never opens the gateway websocket.
type DiscordNotifier struct {
	session   channelSender
	channelID string
	logger    *zap.Logger
}

// NewDiscordNotifier creates a notifier for channelID with a bot token.
func NewDiscordNotifier(token, channelID string, logger *zap.Logger) (*DiscordNotifier, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	return newDiscordNotifier(session, channelID, logger), nil
}

func newDiscordNotifier(s channelSender, channelID string, logger *zap.Logger) *DiscordNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiscordNotifier{session: s, channelID: channelID, logger: logger}
}

func (n *DiscordNotifier) Platform() string { return "discord" }

// Notify sends the alert as a plain bot message.
func (n *DiscordNotifier) Notify(ctx context.Context, alert *Alert) error {
	_, err := n.session.ChannelMessageSend(n.channelID, text(alert, "**"),
		discordgo.WithContext(ctx))
	if err != nil {
		n.logger.Error("discord send failed",
			zap.String("channel", n.channelID), zap.Error(err))
		return fmt.Errorf("discord send: %w", err)
	}
	return nil
}
