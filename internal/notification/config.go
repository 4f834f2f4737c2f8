package notification

import "strings"

// SMTPConfig holds connection parameters for the SMTP provider.
type SMTPConfig struct {
	Host       string `json:"host"`
	Port       int    `json:"port"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	FromAddr   string `json:"from_address"`
	ToAddrs    string `json:"to_addresses"`
	Encryption string `json:"encryption"` // "none", "starttls", "ssl_tls"
}

// Enabled reports whether enough of the config is set to attempt delivery.
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && strings.TrimSpace(c.ToAddrs) != ""
}

// Config selects the providers a Notifier fans out to. Empty fields leave the
// corresponding provider out.
type Config struct {
	DiscordWebhookURL string
	SMTP              SMTPConfig
}
