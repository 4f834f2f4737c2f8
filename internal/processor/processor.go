// Package processor turns events into side effects. Each Processor claims a
// fixed set of event-type tags; the Registry maps tags to processors.
package processor

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shaharia-lab/mc-webhooks/internal/app"
	"github.com/shaharia-lab/mc-webhooks/internal/event"
	"github.com/shaharia-lab/mc-webhooks/internal/notification"
)

// Processor reacts to events of the tags it claims. Implementations hold no
// per-event state; everything they need comes from the event and the shared
// services.
type Processor interface {
	// Name identifies the processor in logs and metrics.
	Name() string
	// ReactsTo returns the event-type tags this processor handles.
	ReactsTo() []string
	// Process performs the side effects for ev.
	Process(ctx context.Context, ev *event.Event, svc *app.Services) error
}

// Constructor creates a Processor during discovery.
type Constructor func() Processor

// builtins is the ordered list of processors registered by Discover. Later
// entries win when two claim the same tag.
var builtins = []Constructor{
	NewPresence,
	NewChat,
	NewCommand,
}

// Discover builds the Registry of built-in processors.
func Discover(logger *slog.Logger) *Registry {
	return Build(logger, builtins...)
}

// Build registers the processors returned by ctors, in order. Re-binding a tag
// is logged as a warning and the later processor wins.
func Build(logger *slog.Logger, ctors ...Constructor) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := NewRegistry()
	for _, ctor := range ctors {
		p := ctor()
		for _, tag := range p.ReactsTo() {
			if prev, ok := r.Resolve(tag); ok {
				logger.Warn("event type claimed twice; later registration wins",
					"event_type", tag,
					"previous", prev.Name(),
					"processor", p.Name(),
				)
			}
		}
		r.Add(p)
	}
	return r
}

// notifyAndPublish sends embed and publishes message. Both are attempted; a
// nil publisher skips publishing.
func notifyAndPublish(ctx context.Context, svc *app.Services, embed notification.Embed, channel string, message any) error {
	var errs []error
	if err := svc.Notifier().SendEmbed(ctx, embed); err != nil {
		errs = append(errs, err)
	}
	if pub := svc.Publisher(); pub != nil {
		if err := pub.Publish(ctx, channel, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
