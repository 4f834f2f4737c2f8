// Package notification delivers human-readable messages about game events to
// notification channels (a Discord webhook, optionally mirrored to e-mail).
package notification

import (
	"context"
	"strings"
	"time"
)

// ColorBlurple is Discord's brand colour, used for presence embeds.
const ColorBlurple = 0x5865F2

// Embed is a rich message block. Providers render it in their own format.
type Embed struct {
	Title       string
	Description string
	URL         string
	Color       int
	Author      string
	Footer      string
	Fields      []Field
	Timestamp   time.Time
}

// Field is a name/value line inside an Embed.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Message is the content to be delivered by a Provider.
type Message struct {
	Content   string
	Username  string
	AvatarURL string
	Embeds    []Embed
	// AllowMentions lets @everyone and user mentions in the content ping.
	AllowMentions bool
}

// Subject returns a one-line summary of the message for transports that need
// one: the first embed's author or title, else the first line of the content.
func (m Message) Subject() string {
	for _, e := range m.Embeds {
		if e.Author != "" {
			return e.Author
		}
		if e.Title != "" {
			return e.Title
		}
	}
	line, _, _ := strings.Cut(m.Content, "\n")
	return truncate(line, 78)
}

// PlainText flattens the message and its embeds into text.
func (m Message) PlainText() string {
	var parts []string
	if m.Content != "" {
		parts = append(parts, m.Content)
	}
	for _, e := range m.Embeds {
		for _, s := range []string{e.Author, e.Title, e.Description} {
			if s != "" {
				parts = append(parts, s)
			}
		}
		for _, f := range e.Fields {
			parts = append(parts, f.Name+": "+f.Value)
		}
		if e.Footer != "" {
			parts = append(parts, e.Footer)
		}
	}
	return strings.Join(parts, "\n")
}

// Provider is the interface for notification delivery backends.
type Provider interface {
	// Name returns the provider identifier (e.g. "discord").
	Name() string
	// Send delivers the message using the provider's transport.
	Send(ctx context.Context, msg Message) error
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
