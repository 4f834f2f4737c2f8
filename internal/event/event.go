// Package event defines the immutable value the dispatcher builds for every
// webhook it receives.
package event

import (
	"encoding/json"
	"fmt"
	"maps"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Event is one occurrence reported by the game server. It is never mutated
// after New returns and may be shared across goroutines without copying.
// Nested payload values are shared with the decoded request and must be
// treated as read-only.
type Event struct {
	id         string
	eventType  string
	payload    map[string]any
	receivedAt time.Time
}

// New builds an Event stamped with the current UTC time. The payload map is
// copied so later changes to the caller's map are not observed.
func New(eventType string, payload map[string]any) *Event {
	return NewAt(eventType, payload, time.Now().UTC())
}

// NewAt is New with an explicit receive time.
func NewAt(eventType string, payload map[string]any, receivedAt time.Time) *Event {
	p := maps.Clone(payload)
	if p == nil {
		p = map[string]any{}
	}
	return &Event{
		id:         uuid.NewString(),
		eventType:  eventType,
		payload:    p,
		receivedAt: receivedAt,
	}
}

// ID is a random identifier used to correlate log lines for one event.
func (e *Event) ID() string { return e.id }

// Type returns the event-type tag.
func (e *Event) Type() string { return e.eventType }

// ReceivedAt returns when the event was constructed.
func (e *Event) ReceivedAt() time.Time { return e.receivedAt }

// Payload returns a shallow copy of the payload.
func (e *Event) Payload() map[string]any { return maps.Clone(e.payload) }

// Value returns the payload value for key.
func (e *Event) Value(key string) (any, bool) {
	v, ok := e.payload[key]
	return v, ok
}

// String returns the payload value for key as a string. Absent and null
// values yield def; non-string values are formatted with fmt.Sprint.
func (e *Event) String(key, def string) string {
	v, ok := e.payload[key]
	if !ok || v == nil {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Summary renders the payload as JSON, cut to at most limit bytes. The cut
// never splits a UTF-8 sequence.
func (e *Event) Summary(limit int) string {
	b, err := json.Marshal(e.payload)
	if err != nil {
		return fmt.Sprintf("<unencodable payload: %v>", err)
	}
	if limit <= 0 || len(b) <= limit {
		return string(b)
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(b[cut]) {
		cut--
	}
	return string(b[:cut]) + "..."
}
