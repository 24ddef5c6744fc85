// Package notify announces claimed issues to chat.
package notify

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/danielolaszy/handoff/internal/config"
	"github.com/danielolaszy/handoff/internal/logging"
	"github.com/danielolaszy/handoff/pkg/models"
)

// Slack posts a message to a channel for every claimed issue.
type Slack struct {
	client  *slack.Client
	channel string
}

// NewSlack returns a notifier for cfg, or nil when Slack is not configured.
// Extra options are passed to the Slack client, e.g. slack.OptionAPIURL.
func NewSlack(cfg config.SlackConfig, opts ...slack.Option) *Slack {
	if !cfg.Enabled() {
		return nil
	}
	return &Slack{
		client:  slack.New(cfg.BotToken, opts...),
		channel: cfg.Channel,
	}
}

// ClaimMessage is the text posted for a claimed issue.
func ClaimMessage(repository string, issue models.Issue) string {
	msg := fmt.Sprintf(":robot_face: Handed off %s#%d: %s", repository, issue.Number, issue.Title)
	if issue.URL != "" {
		msg += "\n" + issue.URL
	}
	return msg
}

// NotifyClaim posts the claim message.
func (s *Slack) NotifyClaim(ctx context.Context, repository string, issue models.Issue) error {
	_, ts, err := s.client.PostMessageContext(ctx, s.channel, slack.MsgOptionText(ClaimMessage(repository, issue), false))
	if err != nil {
		return fmt.Errorf("failed to post slack message: %w", err)
	}
	logging.Debug("posted slack notification", "channel", s.channel, "ts", ts, "issue_number", issue.Number)
	return nil
}
