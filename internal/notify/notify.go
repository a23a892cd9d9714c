// Package notify delivers best-effort sync notifications. Notification
// failures never affect a cycle's outcome or its checkpoint.
package notify

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
	slackapi "github.com/slack-go/slack"

	"github.com/scottschatz/software-capitalization-sub001/internal/api"
	"github.com/scottschatz/software-capitalization-sub001/internal/config"
)

// Notifier posts one plain-text message to a channel.
type Notifier interface {
	Name() string
	Send(ctx context.Context, text string) error
}

// Slack posts via a bot token.
type Slack struct {
	client  *slackapi.Client
	channel string
}

// NewSlack returns a Slack notifier.
func NewSlack(token, channel string) *Slack {
	return &Slack{client: slackapi.New(token), channel: channel}
}

func (s *Slack) Name() string { return "slack" }

func (s *Slack) Send(ctx context.Context, text string) error {
	_, _, err := s.client.PostMessageContext(ctx, s.channel, slackapi.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("notify: slack post: %w", err)
	}
	return nil
}

// Discord posts via a bot token.
type Discord struct {
	session   *discordgo.Session
	channelID string
}

// NewDiscord returns a Discord notifier.
func NewDiscord(token, channelID string) (*Discord, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("notify: discord session: %w", err)
	}
	return &Discord{session: session, channelID: channelID}, nil
}

func (d *Discord) Name() string { return "discord" }

func (d *Discord) Send(_ context.Context, text string) error {
	if _, err := d.session.ChannelMessageSend(d.channelID, text); err != nil {
		return fmt.Errorf("notify: discord post: %w", err)
	}
	return nil
}

// FromConfig builds the configured notifiers. An unconfigured target is
// simply absent; a misconfigured Discord token is logged and dropped.
func FromConfig(cfg config.NotifyConfig, log *logrus.Logger) []Notifier {
	var notifiers []Notifier
	if cfg.Slack.Token != "" && cfg.Slack.Channel != "" {
		notifiers = append(notifiers, NewSlack(cfg.Slack.Token, cfg.Slack.Channel))
	}
	if cfg.Discord.Token != "" && cfg.Discord.ChannelID != "" {
		d, err := NewDiscord(cfg.Discord.Token, cfg.Discord.ChannelID)
		if err != nil {
			log.WithError(err).Warn("notify: discord disabled")
		} else {
			notifiers = append(notifiers, d)
		}
	}
	return notifiers
}

// Broadcast sends text through every notifier, logging failures.
func Broadcast(ctx context.Context, notifiers []Notifier, text string, log *logrus.Logger) {
	for _, n := range notifiers {
		if err := n.Send(ctx, text); err != nil {
			log.WithError(err).WithField("notifier", n.Name()).Warn("notify: send failed")
		}
	}
}

// SyncSummary formats the outcome of one cycle for humans.
func SyncSummary(developer, syncType string, resp *api.SyncResponse, runErr error) string {
	if runErr != nil {
		return fmt.Sprintf("captrack: %s sync failed for %s: %v", syncType, developer, runErr)
	}
	if resp == nil {
		return fmt.Sprintf("captrack: %s sync for %s: nothing to collect", syncType, developer)
	}
	return fmt.Sprintf(
		"captrack: %s sync for %s: sessions %d created / %d updated / %d skipped, commits %d created / %d skipped",
		syncType, developer,
		resp.SessionsCreated, resp.SessionsUpdated, resp.SessionsSkipped,
		resp.CommitsCreated, resp.CommitsSkipped,
	)
}
