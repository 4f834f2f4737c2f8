package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaharia-lab/mc-webhooks/internal/api"
	"github.com/shaharia-lab/mc-webhooks/internal/app"
	"github.com/shaharia-lab/mc-webhooks/internal/build"
	"github.com/shaharia-lab/mc-webhooks/internal/config"
	"github.com/shaharia-lab/mc-webhooks/internal/dispatch"
	"github.com/shaharia-lab/mc-webhooks/internal/logger"
	"github.com/shaharia-lab/mc-webhooks/internal/notification"
	"github.com/shaharia-lab/mc-webhooks/internal/processor"
	"github.com/shaharia-lab/mc-webhooks/internal/pubsub"
	"github.com/shaharia-lab/mc-webhooks/internal/server"
	"github.com/shaharia-lab/mc-webhooks/internal/telemetry"
)

// NewServeCmd returns the "serve" subcommand that starts the webhook receiver.
func NewServeCmd(cfg *config.AppConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"run"},
		Short:   "Start the webhook receiver",
		Long: `Start the HTTP server that accepts game-server webhooks on the configured
endpoint and dispatches each event to its processor.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// CLI flags override env config.
			applyServeFlags(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	f := cmd.Flags()
	f.String("host", cfg.Host, "Interface to bind (overrides HOST env var)")
	f.IntP("port", "p", cfg.Port, "HTTP server port (overrides PORT env var)")
	f.StringP("endpoint", "e", cfg.WebhookEndpoint, "Webhook path (overrides WEBHOOK_ENDPOINT env var)")
	f.StringP("log-level", "l", cfg.LogLevel, "Log level: debug, info, warning, error (overrides LOG_LEVEL env var)")
	f.String("redis-url", cfg.RedisURL, "Redis URL for pub/sub (overrides REDIS_URL env var)")
	f.String("discord-webhook-url", cfg.DiscordWebhookURL, "Discord webhook URL (overrides DISCORD_WEBHOOK_URL env var)")

	return cmd
}

// applyServeFlags copies every flag set on the command line into cfg.
func applyServeFlags(cmd *cobra.Command, cfg *config.AppConfig) {
	f := cmd.Flags()
	if f.Changed("host") {
		cfg.Host, _ = f.GetString("host")
	}
	if f.Changed("port") {
		cfg.Port, _ = f.GetInt("port")
	}
	if f.Changed("endpoint") {
		cfg.WebhookEndpoint, _ = f.GetString("endpoint")
	}
	if f.Changed("log-level") {
		cfg.LogLevel, _ = f.GetString("log-level")
	}
	if f.Changed("redis-url") {
		cfg.RedisURL, _ = f.GetString("redis-url")
	}
	if f.Changed("discord-webhook-url") {
		cfg.DiscordWebhookURL, _ = f.GetString("discord-webhook-url")
	}
}

func runServe(parent context.Context, cfg *config.AppConfig) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tel, err := telemetry.Setup(ctx, telemetry.Config{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.ServiceName,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	var sysLogger *slog.Logger
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		flushTelemetry(flushCtx, tel, sysLogger, os.Stderr)
	}()

	sysLogger, err = newLogger(cfg, tel.LogHandler())
	if err != nil {
		return err
	}

	sysLogger.Info("mc-webhooks starting",
		slog.String("address", cfg.Addr()),
		slog.String("endpoint", cfg.WebhookPath()),
		slog.String("log_level", cfg.SlogLevel().String()),
		slog.Bool("otlp_export", cfg.OTLPEndpoint != ""),
		slog.Any("build", build.Get()),
	)

	notifier := notification.NewFromConfig(notificationConfig(cfg), nil, sysLogger)
	if cfg.DiscordWebhookURL == "" {
		sysLogger.Warn("DISCORD_WEBHOOK_URL not set; Discord notifications disabled")
	}
	sysLogger.Info("notifier configured", "providers", notifier.Providers())

	var publisher app.Publisher
	if cfg.RedisURL != "" {
		sysLogger.Info("connecting to redis", "url", cfg.RedactedRedisURL())
		redisClient := pubsub.NewRedisClient(cfg.RedisURL, cfg.RedisDB, sysLogger)
		if err := redisClient.Connect(ctx); err != nil {
			return fmt.Errorf("starting pub/sub: %w", err)
		}
		defer func() { _ = redisClient.Close() }()
		publisher = redisClient
	} else {
		sysLogger.Warn("REDIS_URL not set; pub/sub publishing disabled")
	}

	services := app.NewServices(notifier, publisher, cfg, sysLogger)
	registry := processor.Discover(sysLogger)
	sysLogger.Info("processors registered", "event_types", registry.Tags())

	var dispatcher dispatch.EventHandler = dispatch.NewHandler(registry, services)
	if cfg.DispatchWorkers > 0 {
		queue := dispatch.NewQueue(dispatcher, cfg.DispatchWorkers, cfg.DispatchQueueSize)
		// Runs after the server has stopped accepting requests.
		defer queue.Close()
		dispatcher = queue
	}

	apiSrv := api.New(dispatcher, cfg.WebhookPath(), sysLogger)
	srv := server.New(apiSrv, cfg.Addr(), sysLogger)

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		sysLogger.Error("server stopped with error", "error", err)
		return err
	}
	sysLogger.Info("server stopped")
	return nil
}

// flushTelemetry shuts the telemetry providers down. Failures go to logger,
// or to stderr when the logger was never built.
func flushTelemetry(ctx context.Context, tel interface{ Shutdown(context.Context) error }, logger *slog.Logger, stderr io.Writer) {
	err := tel.Shutdown(ctx)
	if err == nil {
		return
	}
	if logger != nil {
		logger.Warn("flushing telemetry failed", "error", err)
		return
	}
	fmt.Fprintf(stderr, "mc-webhooks: flushing telemetry failed: %v\n", err)
}

func newLogger(cfg *config.AppConfig, mirror slog.Handler) (*slog.Logger, error) {
	l, err := logger.New(logger.Options{
		Level:  cfg.SlogLevel(),
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
		Mirror: mirror,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	slog.SetDefault(l)
	return l, nil
}

func notificationConfig(cfg *config.AppConfig) notification.Config {
	return notification.Config{
		DiscordWebhookURL: cfg.DiscordWebhookURL,
		SMTP: notification.SMTPConfig{
			Host:       cfg.SMTPHost,
			Port:       cfg.SMTPPort,
			Username:   cfg.SMTPUsername,
			Password:   cfg.SMTPPassword,
			FromAddr:   cfg.SMTPFrom,
			ToAddrs:    cfg.SMTPTo,
			Encryption: cfg.SMTPEncryption,
		},
	}
}
