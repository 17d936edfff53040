package notify

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

// SlackNotifier posts alerts to one Slack channel.
type SlackNotifier struct {
	client   *slack.Client
	channel  string
	username string
	emoji    string
	logger   *zap.Logger
}

// SlackOption customizes a SlackNotifier.
type SlackOption func(*SlackNotifier)

// WithSlackPersona posts under a display name and emoji instead of the bot's.
func WithSlackPersona(username, emoji string) SlackOption {
	return func(n *SlackNotifier) {
		n.username = username
		n.emoji = emoji
	}
}

// WithSlackClient replaces the API client, e.g. to point at another URL.
func WithSlackClient(c *slack.Client) SlackOption {
	return func(n *SlackNotifier) { n.client = c }
}

// NewSlackNotifier creates a notifier for channel using the Bot User OAuth
// Token (xoxb-...).
func NewSlackNotifier(botToken, channel string, logger *zap.Logger, opts ...SlackOption) *SlackNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &SlackNotifier{
		client:  slack.New(botToken),
		channel: channel,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *SlackNotifier) Platform() string { return "slack" }

// Notify posts the alert as a single message.
func (n *SlackNotifier) Notify(ctx context.Context, alert *Alert) error {
	opts := []slack.MsgOption{
		slack.MsgOptionText(text(alert, "*"), false),
	}
	if n.username != "" {
		opts = append(opts, slack.MsgOptionUsername(n.username))
		if n.emoji != "" {
			opts = append(opts, slack.MsgOptionIconEmoji(n.emoji))
		}
	}

	_, _, err := n.client.PostMessageContext(ctx, n.channel, opts...)
	if err != nil {
		n.logger.Error("slack send failed",
			zap.String("channel", n.channel), zap.Error(err))
		return fmt.Errorf("slack send: %w", err)
	}
	return nil
}
