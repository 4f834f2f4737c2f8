// Package dispatch routes raw webhook payloads to the processor registered
// for their event type, isolating the caller from processor failures.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/shaharia-lab/mc-webhooks/internal/app"
	"github.com/shaharia-lab/mc-webhooks/internal/event"
	"github.com/shaharia-lab/mc-webhooks/internal/metrics"
	"github.com/shaharia-lab/mc-webhooks/internal/processor"
)

const (
	tracerName = "github.com/shaharia-lab/mc-webhooks/internal/dispatch"

	// summaryLimit caps the payload excerpt attached to failure logs.
	summaryLimit = 256

	// unknownTypeLabel replaces unregistered tags in metric labels.
	unknownTypeLabel = "unknown"
)

// Handler dispatches events synchronously on the caller's goroutine.
type Handler struct {
	registry *processor.Registry
	services *app.Services
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewHandler creates a Handler resolving processors from registry and
// passing services to each of them.
func NewHandler(registry *processor.Registry, services *app.Services) *Handler {
	return &Handler{
		registry: registry,
		services: services,
		logger:   services.Logger(),
		tracer:   otel.Tracer(tracerName),
	}
}

// HandleEvent builds an Event from tag and payload and runs the processor
// bound to tag. Untagged and unknown events are logged and dropped. Processor
// errors and panics are logged and never reach the caller.
func (h *Handler) HandleEvent(ctx context.Context, tag string, payload map[string]any) {
	if tag == "" {
		h.logger.Warn("dropping webhook without event type")
		metrics.EventsDispatched.WithLabelValues("", metrics.OutcomeUntagged).Inc()
		return
	}

	ev := event.New(tag, payload)

	p, ok := h.registry.Resolve(tag)
	if !ok {
		h.logger.Info("no processor for event type", "event_type", tag, "event_id", ev.ID())
		metrics.EventsDispatched.WithLabelValues(unknownTypeLabel, metrics.OutcomeUnhandled).Inc()
		return
	}

	h.run(ctx, p, ev)
}

func (h *Handler) run(ctx context.Context, p processor.Processor, ev *event.Event) {
	ctx, span := h.tracer.Start(ctx, "dispatch "+ev.Type(),
		trace.WithAttributes(
			attribute.String("event.type", ev.Type()),
			attribute.String("event.id", ev.ID()),
			attribute.String("processor", p.Name()),
		),
	)
	defer span.End()

	start := time.Now()
	err := invoke(ctx, p, ev, h.services)
	metrics.ProcessorDuration.WithLabelValues(p.Name()).Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "processor failed")
		metrics.EventsDispatched.WithLabelValues(ev.Type(), metrics.OutcomeFailed).Inc()
		h.logger.Error("processor failed",
			"event_type", ev.Type(),
			"event_id", ev.ID(),
			"processor", p.Name(),
			"payload", ev.Summary(summaryLimit),
			"error", err,
		)
		return
	}

	metrics.EventsDispatched.WithLabelValues(ev.Type(), metrics.OutcomeProcessed).Inc()
	h.logger.Debug("event processed",
		"event_type", ev.Type(),
		"event_id", ev.ID(),
		"processor", p.Name(),
		"duration", time.Since(start),
	)
}

// invoke runs p, converting a panic into an error.
func invoke(ctx context.Context, p processor.Processor, ev *event.Event, svc *app.Services) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("processor %s panicked: %v\n%s", p.Name(), r, debug.Stack())
		}
	}()
	return p.Process(ctx, ev, svc)
}
