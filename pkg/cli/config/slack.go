package config

import (
	"github.com/urfave/cli/v3"

	"github.com/RukuLab/ruku/pkg/domain/interfaces"
	slackinfra "github.com/RukuLab/ruku/pkg/infra/slack"
)

// Slack holds Slack notification configuration
type Slack struct {
	WebhookURL string `masq:"secret"`
	Channel    string
}

// Flags returns CLI flags for Slack configuration
func (c *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-webhook-url",
			Usage:       "Slack incoming webhook URL for run notifications",
			Destination: &c.WebhookURL,
			Sources:     cli.EnvVars("RUKU_SLACK_WEBHOOK_URL"),
		},
		&cli.StringFlag{
			Name:        "slack-channel",
			Usage:       "Slack channel override",
			Destination: &c.Channel,
			Sources:     cli.EnvVars("RUKU_SLACK_CHANNEL"),
		},
	}
}

// Notifier builds the Slack notifier, or returns nil when not configured
func (c *Slack) Notifier() interfaces.Notifier {
	if c.WebhookURL == "" {
		return nil
	}
	return slackinfra.NewNotifier(c.WebhookURL, c.Channel)
}
