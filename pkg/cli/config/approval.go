package config

import (
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nexaflow/nexaflow/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// Approval holds CLI flags for the email and WhatsApp approval channels
type Approval struct {
	baseURL        string
	linkSecret     string
	linkTTL        time.Duration
	whatsappSecret string
}

func (x *Approval) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "base-url",
			Usage:       "Public URL of the service, used in approval links and Slack messages (e.g., https://app.example.com)",
			Sources:     cli.EnvVars("NEXAFLOW_BASE_URL"),
			Destination: &x.baseURL,
		},
		&cli.StringFlag{
			Name:        "email-link-secret",
			Usage:       "Secret signing email approval links; email links are disabled when empty",
			Category:    "Approval",
			Sources:     cli.EnvVars("NEXAFLOW_EMAIL_LINK_SECRET"),
			Destination: &x.linkSecret,
		},
		&cli.DurationFlag{
			Name:        "email-link-ttl",
			Usage:       "Validity of email approval links",
			Category:    "Approval",
			Value:       usecase.DefaultEmailLinkTTL,
			Sources:     cli.EnvVars("NEXAFLOW_EMAIL_LINK_TTL"),
			Destination: &x.linkTTL,
		},
		&cli.StringFlag{
			Name:        "whatsapp-webhook-secret",
			Usage:       "Secret of the X-Hub-Signature-256 header; the WhatsApp webhook is disabled when empty",
			Category:    "Approval",
			Sources:     cli.EnvVars("NEXAFLOW_WHATSAPP_WEBHOOK_SECRET"),
			Destination: &x.whatsappSecret,
		},
	}
}

func (x Approval) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("base-url", x.baseURL),
		slog.Int("email-link-secret.len", len(x.linkSecret)),
		slog.Duration("email-link-ttl", x.linkTTL),
		slog.Int("whatsapp-webhook-secret.len", len(x.whatsappSecret)),
	)
}

// BaseURL returns the public URL of the service
func (x *Approval) BaseURL() string {
	return x.baseURL
}

// WhatsAppSecret returns the webhook signing secret
func (x *Approval) WhatsAppSecret() string {
	return x.whatsappSecret
}

// EmailLinks returns the link configuration, or nil when email links are disabled
func (x *Approval) EmailLinks() (*usecase.EmailLinkConfig, error) {
	if x.linkSecret == "" {
		return nil, nil
	}
	if x.baseURL == "" {
		return nil, goerr.Wrap(ErrInvalidConfig, "--base-url is required for email approval links")
	}
	if x.linkTTL <= 0 {
		return nil, goerr.Wrap(ErrInvalidFlag, "email link TTL must be positive",
			goerr.V(FlagKey, "email-link-ttl"), goerr.V("ttl", x.linkTTL))
	}
	return &usecase.EmailLinkConfig{
		Secret:  []byte(x.linkSecret),
		BaseURL: x.baseURL,
		TTL:     x.linkTTL,
	}, nil
}
