package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig holds all application-level configuration loaded from environment variables.
type AppConfig struct {
	// Host is the interface the HTTP server binds to.
	Host string `envconfig:"HOST" default:"0.0.0.0"`

	// Port is the HTTP server port. Defaults to 8000.
	Port int `envconfig:"PORT" default:"8000"`

	// WebhookEndpoint is the path the game server posts events to.
	WebhookEndpoint string `envconfig:"WEBHOOK_ENDPOINT" default:"/webhook"`

	// LogLevel sets the minimum log level (debug, info, warn, error). Defaults to info.
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// LogFormat selects the slog handler: json or text.
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	// LogFile, when set, sends logs to a rotated file instead of stdout.
	LogFile string `envconfig:"LOG_FILE"`

	// RedisURL enables pub/sub publishing. Empty disables it.
	RedisURL string `envconfig:"REDIS_URL"`

	// RedisDB overrides the database number in RedisURL when non-zero.
	RedisDB int `envconfig:"REDIS_DB" default:"0"`

	// DiscordWebhookURL is the notification destination. Empty disables Discord notifications.
	DiscordWebhookURL string `envconfig:"DISCORD_WEBHOOK_URL"`

	// SMTP mirror for notifications. Disabled unless SMTPHost and SMTPTo are set.
	SMTPHost       string `envconfig:"SMTP_HOST"`
	SMTPPort       int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername   string `envconfig:"SMTP_USERNAME"`
	SMTPPassword   string `envconfig:"SMTP_PASSWORD"`
	SMTPFrom       string `envconfig:"SMTP_FROM"`
	SMTPTo         string `envconfig:"SMTP_TO"`
	SMTPEncryption string `envconfig:"SMTP_ENCRYPTION" default:"starttls"`

	// DispatchWorkers is the number of background dispatch goroutines.
	// Zero dispatches inline on the request goroutine.
	DispatchWorkers int `envconfig:"DISPATCH_WORKERS" default:"4"`

	// DispatchQueueSize bounds the number of events waiting for a worker.
	DispatchQueueSize int `envconfig:"DISPATCH_QUEUE_SIZE" default:"100"`

	// OTLPEndpoint enables trace export over OTLP/gRPC when set.
	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	// ServiceName is reported to the tracing backend.
	ServiceName string `envconfig:"SERVICE_NAME" default:"mc-webhooks"`
}

// Load reads AppConfig from environment variables using envconfig.
func Load() (*AppConfig, error) {
	var c AppConfig
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &c, nil
}

// Validate reports settings that would prevent the server from starting.
func (c *AppConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.DispatchWorkers < 0 {
		return fmt.Errorf("invalid dispatch workers %d", c.DispatchWorkers)
	}
	if c.DispatchWorkers > 0 && c.DispatchQueueSize <= 0 {
		return fmt.Errorf("invalid dispatch queue size %d", c.DispatchQueueSize)
	}
	if c.RedisURL != "" {
		if _, err := url.Parse(c.RedisURL); err != nil {
			return fmt.Errorf("invalid redis url: %w", err)
		}
	}
	return nil
}

// SlogLevel converts the LogLevel string to a slog.Level.
// Unknown values default to slog.LevelInfo.
func (c *AppConfig) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "critical":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Addr returns the host:port pair the HTTP server listens on.
func (c *AppConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// WebhookPath returns the webhook endpoint with a single leading slash and no
// trailing slash. An empty endpoint maps to "/".
func (c *AppConfig) WebhookPath() string {
	p := strings.Trim(strings.TrimSpace(c.WebhookEndpoint), "/")
	return "/" + p
}

// RedactedRedisURL returns RedisURL with any password masked, suitable for logs.
func (c *AppConfig) RedactedRedisURL() string {
	if c.RedisURL == "" {
		return ""
	}
	u, err := url.Parse(c.RedisURL)
	if err != nil {
		return "<invalid>"
	}
	return u.Redacted()
}
