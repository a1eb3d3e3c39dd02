package config_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/nexaflow/nexaflow/pkg/cli/config"
	"github.com/nexaflow/nexaflow/pkg/repository/memory"
	"github.com/nexaflow/nexaflow/pkg/usecase"
	"github.com/nexaflow/nexaflow/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// parseFlags runs a throwaway command so that flag destinations are filled the
// same way the real commands fill them
func parseFlags(t *testing.T, flags []cli.Flag, args ...string) {
	t.Helper()
	cmd := &cli.Command{
		Name:   "test",
		Flags:  flags,
		Action: func(context.Context, *cli.Command) error { return nil },
	}
	gt.NoError(t, cmd.Run(context.Background(), append([]string{"test"}, args...))).Required()
}

func TestApproval_EmailLinks(t *testing.T) {
	t.Run("disabled without secret", func(t *testing.T) {
		var cfg config.Approval
		parseFlags(t, cfg.Flags())
		links, err := cfg.EmailLinks()
		gt.NoError(t, err)
		gt.Value(t, links).Nil()
	})

	t.Run("configured", func(t *testing.T) {
		var cfg config.Approval
		parseFlags(t, cfg.Flags(),
			"--email-link-secret", "s3cret",
			"--base-url", "https://app.example.com",
			"--email-link-ttl", "48h",
			"--whatsapp-webhook-secret", "hook",
		)
		links, err := cfg.EmailLinks()
		gt.NoError(t, err).Required()
		gt.Value(t, string(links.Secret)).Equal("s3cret")
		gt.Value(t, links.BaseURL).Equal("https://app.example.com")
		gt.Value(t, links.TTL).Equal(48 * time.Hour)
		gt.Value(t, cfg.WhatsAppSecret()).Equal("hook")
	})

	t.Run("default TTL", func(t *testing.T) {
		var cfg config.Approval
		parseFlags(t, cfg.Flags(), "--email-link-secret", "s", "--base-url", "https://app.example.com")
		links, err := cfg.EmailLinks()
		gt.NoError(t, err).Required()
		gt.Value(t, links.TTL).Equal(usecase.DefaultEmailLinkTTL)
	})

	t.Run("base URL is required", func(t *testing.T) {
		var cfg config.Approval
		parseFlags(t, cfg.Flags(), "--email-link-secret", "s")
		_, err := cfg.EmailLinks()
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("TTL must be positive", func(t *testing.T) {
		var cfg config.Approval
		parseFlags(t, cfg.Flags(), "--email-link-secret", "s", "--base-url", "https://x", "--email-link-ttl", "0s")
		_, err := cfg.EmailLinks()
		gt.Error(t, err).Is(config.ErrInvalidFlag)
	})
}

func TestAuth_Configure(t *testing.T) {
	repo := memory.New()

	t.Run("secret required", func(t *testing.T) {
		var cfg config.Auth
		parseFlags(t, cfg.Flags())
		_, err := cfg.Configure(repo)
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("jwt", func(t *testing.T) {
		var cfg config.Auth
		parseFlags(t, cfg.Flags(), "--auth-jwt-secret", "secret", "--auth-issuer", "https://auth.example.com")
		authUC, err := cfg.Configure(repo)
		gt.NoError(t, err)
		gt.Value(t, authUC).NotNil()
		gt.Value(t, authUC.IsNoAuthn()).Equal(false)
	})

	t.Run("no-auth", func(t *testing.T) {
		var cfg config.Auth
		parseFlags(t, cfg.Flags(), "--no-auth", "admin-1")
		gt.Value(t, cfg.IsNoAuthMode()).Equal(true)
		authUC, err := cfg.Configure(repo)
		gt.NoError(t, err).Required()
		gt.Value(t, authUC.IsNoAuthn()).Equal(true)
	})
}

func TestStorage_Configure(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		var cfg config.Storage
		parseFlags(t, cfg.Flags(), "--storage-backend", "memory", "--storage-base-url", "https://files.example.com")
		st, closer, err := cfg.Configure(context.Background())
		gt.NoError(t, err).Required()
		defer closer()

		url, err := st.Put(context.Background(), "projects/p1/logo.png", strings.NewReader("png"), "image/png")
		gt.NoError(t, err)
		gt.String(t, url).HasPrefix("https://files.example.com/")
	})

	t.Run("unknown backend", func(t *testing.T) {
		var cfg config.Storage
		parseFlags(t, cfg.Flags(), "--storage-backend", "s3")
		_, _, err := cfg.Configure(context.Background())
		gt.Error(t, err).Is(config.ErrInvalidFlag)
	})
}

func TestRepository_Configure(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		var cfg config.Repository
		parseFlags(t, cfg.Flags(), "--repository-backend", "memory")
		repo, closer, err := cfg.Configure(context.Background())
		gt.NoError(t, err).Required()
		defer closer()
		gt.Value(t, repo).NotNil()
	})

	t.Run("firestore requires project", func(t *testing.T) {
		var cfg config.Repository
		parseFlags(t, cfg.Flags(), "--repository-backend", "firestore")
		_, _, err := cfg.Configure(context.Background())
		gt.Error(t, err)
	})
}

func TestSlack_Configure(t *testing.T) {
	t.Run("disabled without token", func(t *testing.T) {
		var cfg config.Slack
		parseFlags(t, cfg.Flags())
		sender, err := cfg.Configure("", "")
		gt.NoError(t, err)
		gt.Value(t, sender).Nil()
	})

	t.Run("channel required", func(t *testing.T) {
		var cfg config.Slack
		parseFlags(t, cfg.Flags(), "--slack-bot-token", "xoxb-test")
		_, err := cfg.Configure("", "https://app.example.com")
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("channel from configuration file", func(t *testing.T) {
		var cfg config.Slack
		parseFlags(t, cfg.Flags(), "--slack-bot-token", "xoxb-test")
		sender, err := cfg.Configure("C0123456", "https://app.example.com")
		gt.NoError(t, err)
		gt.Value(t, sender).NotNil()
	})
}

func TestLogger_Configure(t *testing.T) {
	t.Run("writes JSON to a file", func(t *testing.T) {
		prev := logging.Default()
		t.Cleanup(func() { logging.SetDefault(prev) })

		path := filepath.Join(t.TempDir(), "nexaflow.log")
		var cfg config.Logger
		parseFlags(t, cfg.Flags(), "--log-format", "json", "--log-output", path, "--log-level", "debug")
		closer, err := cfg.Configure()
		gt.NoError(t, err).Required()
		closer()

		info, err := os.Stat(path)
		gt.NoError(t, err).Required()
		gt.Value(t, info.IsDir()).Equal(false)
	})

	t.Run("invalid level", func(t *testing.T) {
		var cfg config.Logger
		parseFlags(t, cfg.Flags(), "--log-level", "verbose")
		_, err := cfg.Configure()
		gt.Error(t, err).Is(config.ErrInvalidFlag)
	})

	t.Run("invalid format", func(t *testing.T) {
		var cfg config.Logger
		parseFlags(t, cfg.Flags(), "--log-format", "xml")
		_, err := cfg.Configure()
		gt.Error(t, err).Is(config.ErrInvalidFlag)
	})
}

func TestSentry_Configure(t *testing.T) {
	var cfg config.Sentry
	parseFlags(t, cfg.Flags())
	flush, err := cfg.Configure("test")
	gt.NoError(t, err).Required()
	flush()
}

func TestAuth_LogValueHidesSecret(t *testing.T) {
	var cfg config.Auth
	parseFlags(t, cfg.Flags(), "--auth-jwt-secret", "very-secret-value")
	gt.Value(t, strings.Contains(cfg.LogValue().String(), "very-secret-value")).Equal(false)
}
