package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/shaharia-lab/mc-webhooks/internal/metrics"
)

// MessageOption customises a Message built by SendMessage.
type MessageOption func(*Message)

// WithUsername overrides the sender name shown in the channel.
func WithUsername(name string) MessageOption {
	return func(m *Message) { m.Username = name }
}

// WithAvatarURL overrides the sender avatar shown in the channel.
func WithAvatarURL(u string) MessageOption {
	return func(m *Message) { m.AvatarURL = u }
}

// WithEmbeds attaches embeds to the message.
func WithEmbeds(embeds ...Embed) MessageOption {
	return func(m *Message) { m.Embeds = append(m.Embeds, embeds...) }
}

// WithMentions lets mentions in the content ping their targets.
func WithMentions() MessageOption {
	return func(m *Message) { m.AllowMentions = true }
}

// Notifier fans each message out to every configured provider. A Notifier
// without providers, including a nil *Notifier, silently drops messages.
// It is safe for concurrent use.
type Notifier struct {
	providers []Provider
	logger    *slog.Logger
}

// New creates a Notifier. Nil providers are ignored.
func New(logger *slog.Logger, providers ...Provider) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	n := &Notifier{logger: logger}
	for _, p := range providers {
		if p != nil {
			n.providers = append(n.providers, p)
		}
	}
	return n
}

// NewFromConfig creates a Notifier with a provider for each destination set in
// cfg. client is used by the Discord provider; nil selects a default client.
func NewFromConfig(cfg Config, client *http.Client, logger *slog.Logger) *Notifier {
	var providers []Provider
	if cfg.DiscordWebhookURL != "" {
		providers = append(providers, NewDiscordProvider(cfg.DiscordWebhookURL, client))
	}
	if cfg.SMTP.Enabled() {
		providers = append(providers, NewSMTPProvider(cfg.SMTP))
	}
	return New(logger, providers...)
}

// Enabled reports whether at least one provider is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && len(n.providers) > 0
}

// Providers returns the names of the configured providers.
func (n *Notifier) Providers() []string {
	if n == nil {
		return nil
	}
	names := make([]string, 0, len(n.providers))
	for _, p := range n.providers {
		names = append(names, p.Name())
	}
	return names
}

// SendMessage delivers content to every provider.
func (n *Notifier) SendMessage(ctx context.Context, content string, opts ...MessageOption) error {
	msg := Message{Content: content}
	for _, o := range opts {
		o(&msg)
	}
	return n.Send(ctx, msg)
}

// SendEmbed delivers a message consisting of a single embed.
func (n *Notifier) SendEmbed(ctx context.Context, embed Embed) error {
	return n.SendMessage(ctx, "", WithEmbeds(embed))
}

// Send delivers msg to every provider. Every provider is attempted; their
// failures are joined.
func (n *Notifier) Send(ctx context.Context, msg Message) error {
	if !n.Enabled() {
		return nil
	}

	var errs []error
	for _, p := range n.providers {
		err := p.Send(ctx, msg)
		metrics.NotificationsSent.WithLabelValues(p.Name(), metrics.Status(err)).Inc()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		n.logger.Debug("notification sent", "provider", p.Name(), "subject", msg.Subject())
	}
	return errors.Join(errs...)
}
