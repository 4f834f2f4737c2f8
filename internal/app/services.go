// Package app holds the shared service context handed to every event
// processor: the notifier, the pub/sub publisher, a configuration snapshot
// and the logger.
package app

import (
	"context"
	"log/slog"

	"github.com/shaharia-lab/mc-webhooks/internal/config"
	"github.com/shaharia-lab/mc-webhooks/internal/notification"
)

// Notifier sends human-readable messages to the notification channel.
// Implementations are no-ops when no destination is configured.
type Notifier interface {
	SendMessage(ctx context.Context, content string, opts ...notification.MessageOption) error
	SendEmbed(ctx context.Context, embed notification.Embed) error
}

// Publisher publishes a JSON-serialisable message on a named channel.
// Implementations fail when their connection was never established.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) error
}

// Services is built once at startup and shared by pointer for the lifetime
// of the process. It has no setters; replacing a service means restarting.
type Services struct {
	notifier  Notifier
	publisher Publisher
	config    config.AppConfig
	logger    *slog.Logger
}

// NewServices builds the shared context. A nil notifier is replaced with one
// that drops every message, a nil logger with slog.Default. A nil publisher
// means publishing is disabled. cfg is copied.
func NewServices(notifier Notifier, publisher Publisher, cfg *config.AppConfig, logger *slog.Logger) *Services {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = notification.New(logger)
	}
	s := &Services{
		notifier:  notifier,
		publisher: publisher,
		logger:    logger,
	}
	if cfg != nil {
		s.config = *cfg
	}
	return s
}

// Notifier returns the notification sender. Never nil.
func (s *Services) Notifier() Notifier { return s.notifier }

// Publisher returns the pub/sub publisher, or nil when publishing is disabled.
func (s *Services) Publisher() Publisher { return s.publisher }

// Config returns a copy of the configuration snapshot.
func (s *Services) Config() config.AppConfig { return s.config }

// Logger returns the process logger. Never nil.
func (s *Services) Logger() *slog.Logger { return s.logger }
