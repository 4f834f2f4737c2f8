package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaharia-lab/mc-webhooks/internal/config"
	"github.com/shaharia-lab/mc-webhooks/internal/notification"
)

// NewNotifyTestCmd returns the "notify-test" subcommand that sends a test
// message through every configured notification provider.
func NewNotifyTestCmd(cfg *config.AppConfig) *cobra.Command {
	var message string
	var discordURL string

	cmd := &cobra.Command{
		Use:   "notify-test",
		Short: "Send a test notification",
		Long:  "Send a test message through the configured Discord webhook and SMTP mirror.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("discord-webhook-url") {
				cfg.DiscordWebhookURL = discordURL
			}

			sysLogger, err := newLogger(cfg, nil)
			if err != nil {
				return err
			}

			notifier := notification.NewFromConfig(notificationConfig(cfg), nil, sysLogger)
			if !notifier.Enabled() {
				return errors.New("no notification provider configured; set DISCORD_WEBHOOK_URL or SMTP_HOST and SMTP_TO")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			embed := notification.Embed{
				Author:      "mc-webhooks | Test",
				Description: message,
				Color:       notification.ColorBlurple,
				Timestamp:   time.Now(),
			}
			if err := notifier.SendEmbed(ctx, embed); err != nil {
				return fmt.Errorf("sending test notification: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Test notification sent via %v\n", notifier.Providers())
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "Webhook receiver is able to reach this channel.", "Message body")
	cmd.Flags().StringVar(&discordURL, "discord-webhook-url", cfg.DiscordWebhookURL, "Discord webhook URL (overrides DISCORD_WEBHOOK_URL env var)")

	return cmd
}
