package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"
)

// Discord rejects messages over these lengths.
const (
	maxContentLen     = 2000
	maxDescriptionLen = 4096
	maxFieldValueLen  = 1024
)

// Discord allows five webhook executions per two seconds.
const (
	discordRate  = rate.Limit(2.5)
	discordBurst = 5
)

// DiscordProvider delivers notifications by executing a Discord webhook.
type DiscordProvider struct {
	webhookURL string
	client     *http.Client
	limiter    *rate.Limiter
}

// NewDiscordProvider creates a provider posting to webhookURL. A nil client
// selects one with a 10 second timeout.
func NewDiscordProvider(webhookURL string, client *http.Client) *DiscordProvider {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &DiscordProvider{
		webhookURL: webhookURL,
		client:     client,
		limiter:    rate.NewLimiter(discordRate, discordBurst),
	}
}

// SetRateLimit replaces the client-side send rate.
func (p *DiscordProvider) SetRateLimit(r rate.Limit, burst int) {
	p.limiter.SetLimit(r)
	p.limiter.SetBurst(burst)
}

// Name returns the provider identifier.
func (p *DiscordProvider) Name() string { return "discord" }

// Send posts msg to the webhook, waiting for the rate limiter first. Any
// non-2xx response is an error.
func (p *DiscordProvider) Send(ctx context.Context, msg Message) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limit: %w", err)
	}

	body, err := json.Marshal(webhookParams(msg))
	if err != nil {
		return fmt.Errorf("encoding webhook body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("executing webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned %s: %s", resp.Status, strings.TrimSpace(string(excerpt)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// webhookParams converts msg to the Discord execute-webhook body.
func webhookParams(msg Message) *discordgo.WebhookParams {
	params := &discordgo.WebhookParams{
		Content:   truncate(msg.Content, maxContentLen),
		Username:  msg.Username,
		AvatarURL: msg.AvatarURL,
	}
	for _, e := range msg.Embeds {
		params.Embeds = append(params.Embeds, discordEmbed(e))
	}
	if !msg.AllowMentions {
		params.AllowedMentions = &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}}
	}
	return params
}

func discordEmbed(e Embed) *discordgo.MessageEmbed {
	de := &discordgo.MessageEmbed{
		Type:        discordgo.EmbedTypeRich,
		Title:       e.Title,
		Description: truncate(e.Description, maxDescriptionLen),
		URL:         e.URL,
		Color:       e.Color,
	}
	if e.Author != "" {
		de.Author = &discordgo.MessageEmbedAuthor{Name: e.Author}
	}
	if e.Footer != "" {
		de.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
	}
	if !e.Timestamp.IsZero() {
		de.Timestamp = e.Timestamp.UTC().Format(time.RFC3339)
	}
	for _, f := range e.Fields {
		de.Fields = append(de.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  truncate(f.Value, maxFieldValueLen),
			Inline: f.Inline,
		})
	}
	return de
}
