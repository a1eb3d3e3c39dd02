package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nexaflow/nexaflow/pkg/domain/interfaces"
	"github.com/nexaflow/nexaflow/pkg/service/notify"
	"github.com/nexaflow/nexaflow/pkg/service/slack"
	"github.com/urfave/cli/v3"
)

// Slack holds CLI flags for the Slack notification channel
type Slack struct {
	botToken  string
	channelID string
	apiURL    string
}

func (x *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-bot-token",
			Usage:       "Slack Bot User OAuth Token used to post notifications",
			Category:    "Slack",
			Destination: &x.botToken,
			Sources:     cli.EnvVars("NEXAFLOW_SLACK_BOT_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "slack-channel-id",
			Usage:       "Slack channel notifications are posted to (overrides notification.slack_channel)",
			Category:    "Slack",
			Destination: &x.channelID,
			Sources:     cli.EnvVars("NEXAFLOW_SLACK_CHANNEL_ID"),
		},
		&cli.StringFlag{
			Name:        "slack-api-url",
			Usage:       "Slack API endpoint, for testing against a mock server",
			Category:    "Slack",
			Destination: &x.apiURL,
			Sources:     cli.EnvVars("NEXAFLOW_SLACK_API_URL"),
		},
	}
}

func (x Slack) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("bot-token.len", len(x.botToken)),
		slog.String("channel-id", x.channelID),
	)
}

// IsConfigured reports whether a bot token was given
func (x *Slack) IsConfigured() bool {
	return x.botToken != ""
}

// Configure creates the Slack notification sender. It returns nil when no bot
// token is set. fallbackChannel comes from the configuration file.
func (x *Slack) Configure(fallbackChannel, dashboardURL string) (interfaces.NotificationSender, error) {
	if !x.IsConfigured() {
		return nil, nil
	}

	channel := x.channelID
	if channel == "" {
		channel = fallbackChannel
	}
	if channel == "" {
		return nil, goerr.Wrap(ErrInvalidConfig, "a Slack channel is required when the Slack bot token is set")
	}

	var opts []slack.Option
	if x.apiURL != "" {
		opts = append(opts, slack.WithAPIURL(x.apiURL))
	}
	svc, err := slack.New(x.botToken, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize slack service")
	}

	sender, err := notify.NewSlack(svc, channel, dashboardURL)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize slack sender")
	}
	return sender, nil
}
