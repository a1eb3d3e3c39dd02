package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/nexaflow/nexaflow/pkg/cli/config"
	httpctrl "github.com/nexaflow/nexaflow/pkg/controller/http"
	"github.com/nexaflow/nexaflow/pkg/domain/model"
	"github.com/nexaflow/nexaflow/pkg/domain/types"
	"github.com/nexaflow/nexaflow/pkg/service/notify"
	"github.com/nexaflow/nexaflow/pkg/service/worker"
	"github.com/nexaflow/nexaflow/pkg/usecase"
	"github.com/nexaflow/nexaflow/pkg/utils/logging"
	"github.com/nexaflow/nexaflow/pkg/utils/metrics"
	"github.com/urfave/cli/v3"
)

const (
	defaultWorkerInterval = 30 * time.Second
	defaultWorkerBatch    = 50
	shutdownTimeout       = 10 * time.Second
)

func cmdServe(version string) *cli.Command {
	var (
		addr              string
		immediateDelivery bool
		workerInterval    time.Duration
		workerBatch       int
		maxRuleDepth      int
		maxUploadSize     int64
		enableMetrics     bool

		appCfg      config.App
		repoCfg     config.Repository
		storageCfg  config.Storage
		slackCfg    config.Slack
		authCfg     config.Auth
		approvalCfg config.Approval
		sentryCfg   config.Sentry
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("NEXAFLOW_ADDR"),
			Destination: &addr,
		},
		&cli.BoolFlag{
			Name:        "immediate-delivery",
			Usage:       "Deliver notifications while handling the request instead of in the background worker",
			Category:    "Notification",
			Sources:     cli.EnvVars("NEXAFLOW_IMMEDIATE_DELIVERY"),
			Destination: &immediateDelivery,
		},
		&cli.DurationFlag{
			Name:        "notification-worker-interval",
			Usage:       "Interval of the background notification worker",
			Category:    "Notification",
			Value:       defaultWorkerInterval,
			Sources:     cli.EnvVars("NEXAFLOW_NOTIFICATION_WORKER_INTERVAL"),
			Destination: &workerInterval,
		},
		&cli.IntFlag{
			Name:        "notification-batch-size",
			Usage:       "Maximum notifications delivered per worker run",
			Category:    "Notification",
			Value:       defaultWorkerBatch,
			Sources:     cli.EnvVars("NEXAFLOW_NOTIFICATION_BATCH_SIZE"),
			Destination: &workerBatch,
		},
		&cli.IntFlag{
			Name:        "max-rule-depth",
			Usage:       "How many levels of events caused by automation rules are dispatched to rules again",
			Category:    "Automation",
			Value:       usecase.DefaultMaxRuleDepth,
			Sources:     cli.EnvVars("NEXAFLOW_MAX_RULE_DEPTH"),
			Destination: &maxRuleDepth,
		},
		&cli.Int64Flag{
			Name:        "max-upload-size",
			Usage:       "Maximum size in bytes of an uploaded deliverable version",
			Value:       httpctrl.DefaultMaxUploadSize,
			Sources:     cli.EnvVars("NEXAFLOW_MAX_UPLOAD_SIZE"),
			Destination: &maxUploadSize,
		},
		&cli.BoolFlag{
			Name:        "metrics",
			Usage:       "Serve Prometheus metrics on /metrics",
			Value:       true,
			Sources:     cli.EnvVars("NEXAFLOW_METRICS"),
			Destination: &enableMetrics,
		},
	}

	// Add shared config flags
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, storageCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)
	flags = append(flags, authCfg.Flags()...)
	flags = append(flags, approvalCfg.Flags()...)
	flags = append(flags, sentryCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			flush, err := sentryCfg.Configure(version)
			if err != nil {
				return err
			}
			defer flush()

			appConfig, err := appCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load configuration")
			}

			repo, closeRepo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer closeRepo()

			storage, closeStorage, err := storageCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize storage")
			}
			defer closeStorage()

			authUC, err := authCfg.Configure(repo)
			if err != nil {
				return goerr.Wrap(err, "failed to configure authentication")
			}
			if authCfg.IsNoAuthMode() {
				logging.Default().Warn("Running in no-auth mode (development only)", "auth", authCfg)
			}

			// Email and WhatsApp go to the simulated outbox; Slack is real when a token is given
			outbox := notify.NewOutbox()
			senders := []notify.Option{
				notify.WithSender(types.NotificationChannelEmail, outbox.Email()),
				notify.WithSender(types.NotificationChannelWhatsApp, outbox.WhatsApp()),
			}
			slackSender, err := slackCfg.Configure(appConfig.Notification.SlackChannel, approvalCfg.BaseURL())
			if err != nil {
				return goerr.Wrap(err, "failed to configure slack notifications")
			}
			if slackSender != nil {
				senders = append(senders, notify.WithSender(types.NotificationChannelSlack, slackSender))
				logging.Default().Info("Slack notifications enabled", "slack", slackCfg)
			}

			ucOpts := []usecase.Option{
				usecase.WithAuth(authUC),
				usecase.WithStorage(storage),
				usecase.WithNotificationSender(notify.New(senders...)),
				usecase.WithDefaultChannel(appConfig.DefaultChannel()),
				usecase.WithMaxRuleDepth(maxRuleDepth),
				usecase.WithImmediateDelivery(immediateDelivery),
			}

			links, err := approvalCfg.EmailLinks()
			if err != nil {
				return err
			}
			if links != nil {
				ucOpts = append(ucOpts, usecase.WithEmailLinks(links))
				logging.Default().Info("Email approval links enabled", "approval", approvalCfg)
			} else {
				logging.Default().Info("Email link secret not configured, email approval is disabled")
			}

			uc := usecase.New(repo, ucOpts...)

			seeded, err := uc.Project.SeedProfiles(ctx, appConfig.SeedProfiles())
			if err != nil {
				return goerr.Wrap(err, "failed to seed profiles")
			}
			rules := append([]*model.AutomationRule{model.DefaultReviewRule()}, appConfig.AutomationRules()...)
			installed, err := uc.Rule.EnsureDefaults(ctx, rules)
			if err != nil {
				return goerr.Wrap(err, "failed to install automation rules")
			}
			logging.Default().Info("Configuration applied",
				"config", appCfg.Path(),
				"profiles_seeded", seeded,
				"rules_installed", installed)

			var notificationWorker *worker.NotificationWorker
			if !immediateDelivery {
				notificationWorker = worker.NewNotificationWorker(uc.Notification, workerInterval, workerBatch)
				if err := notificationWorker.Start(ctx); err != nil {
					return goerr.Wrap(err, "failed to start notification worker")
				}
			}

			if enableMetrics {
				metrics.Register()
			}

			httpOpts := []httpctrl.Options{
				httpctrl.WithMetrics(enableMetrics),
				httpctrl.WithMaxUploadSize(maxUploadSize),
			}
			if secret := approvalCfg.WhatsAppSecret(); secret != "" {
				httpOpts = append(httpOpts, httpctrl.WithWhatsAppWebhook(secret))
				logging.Default().Info("WhatsApp webhook enabled")
			}

			httpHandler, err := httpctrl.New(uc, httpOpts...)
			if err != nil {
				return goerr.Wrap(err, "failed to create http server")
			}
			server := &http.Server{
				Addr:              addr,
				Handler:           httpHandler,
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server",
					"addr", addr,
					"repository", repoCfg.Backend(),
					"immediate_delivery", immediateDelivery)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				if notificationWorker != nil {
					notificationWorker.Stop()
				}
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				// Stop the worker first so no delivery runs against a closed repository
				if notificationWorker != nil {
					notificationWorker.Stop()
				}

				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
