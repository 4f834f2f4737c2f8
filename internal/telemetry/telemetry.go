// Package telemetry configures OpenTelemetry tracing, metrics and log export.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Config selects what Setup installs.
type Config struct {
	// Endpoint is the OTLP/gRPC collector. Either a URL (http:// selects an
	// insecure connection) or a bare host:port dialled without TLS. Empty
	// disables trace and log export.
	Endpoint string

	// ServiceName is reported as the service.name resource attribute.
	ServiceName string

	// Registerer receives the OpenTelemetry instruments (for example the
	// otelhttp server metrics) so they are scraped with the rest of
	// /metrics. Nil selects prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
}

// Telemetry owns the providers installed by Setup.
type Telemetry struct {
	logHandler slog.Handler
	shutdowns  []func(context.Context) error
}

// Exporter constructors, replaced in tests.
var (
	newTraceExporter = func(ctx context.Context, endpoint string) (sdktrace.SpanExporter, error) {
		exp, err := otlptracegrpc.New(ctx, traceOptions(endpoint)...)
		if err != nil {
			return nil, err
		}
		return exp, nil
	}
	newMetricExporter = func(ctx context.Context, endpoint string) (sdkmetric.Exporter, error) {
		exp, err := otlpmetricgrpc.New(ctx, metricOptions(endpoint)...)
		if err != nil {
			return nil, err
		}
		return exp, nil
	}
	newLogExporter = func(ctx context.Context, endpoint string) (sdklog.Exporter, error) {
		exp, err := otlploggrpc.New(ctx, logOptions(endpoint)...)
		if err != nil {
			return nil, err
		}
		return exp, nil
	}
)

// otlpExporters holds the exporters built for an OTLP endpoint.
type otlpExporters struct {
	trace  sdktrace.SpanExporter
	metric sdkmetric.Exporter
	log    sdklog.Exporter
}

// shutdown stops every exporter that was created.
func (e *otlpExporters) shutdown(ctx context.Context) {
	if e.trace != nil {
		_ = e.trace.Shutdown(ctx)
	}
	if e.metric != nil {
		_ = e.metric.Shutdown(ctx)
	}
	if e.log != nil {
		_ = e.log.Shutdown(ctx)
	}
}

func buildOTLPExporters(ctx context.Context, endpoint string) (*otlpExporters, error) {
	e := &otlpExporters{}
	var err error
	if e.trace, err = newTraceExporter(ctx, endpoint); err != nil {
		e.shutdown(ctx)
		return nil, fmt.Errorf("creating otlp trace exporter: %w", err)
	}
	if e.metric, err = newMetricExporter(ctx, endpoint); err != nil {
		e.shutdown(ctx)
		return nil, fmt.Errorf("creating otlp metric exporter: %w", err)
	}
	if e.log, err = newLogExporter(ctx, endpoint); err != nil {
		e.shutdown(ctx)
		return nil, fmt.Errorf("creating otlp log exporter: %w", err)
	}
	return e, nil
}

// Setup installs global OpenTelemetry providers.
//
// A meter provider feeding the Prometheus registry is always installed. OTLP
// export of traces, metrics and logs is only set up when cfg.Endpoint is
// non-empty. Every exporter is built before any global
// is touched; on error nothing is installed.
func Setup(ctx context.Context, cfg Config) (*Telemetry, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(attribute.String("service.name", cfg.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("building resource: %w", err)
	}

	var exporters *otlpExporters
	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		if exporters, err = buildOTLPExporters(ctx, endpoint); err != nil {
			return nil, err
		}
	}

	reg := cfg.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	promExporter, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		if exporters != nil {
			exporters.shutdown(ctx)
		}
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	t := &Telemetry{}
	meterOpts := []sdkmetric.Option{
		sdkmetric.WithReader(promExporter),
		sdkmetric.WithResource(res),
	}

	if exporters != nil {
		meterOpts = append(meterOpts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporters.metric)))

		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporters.trace),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tp)
		t.shutdowns = append(t.shutdowns, tp.Shutdown)

		lp := sdklog.NewLoggerProvider(
			sdklog.WithProcessor(sdklog.NewBatchProcessor(exporters.log)),
			sdklog.WithResource(res),
		)
		global.SetLoggerProvider(lp)
		t.shutdowns = append(t.shutdowns, lp.Shutdown)
		t.logHandler = otelslog.NewHandler(cfg.ServiceName, otelslog.WithLoggerProvider(lp))
	}

	mp := sdkmetric.NewMeterProvider(meterOpts...)
	otel.SetMeterProvider(mp)
	t.shutdowns = append(t.shutdowns, mp.Shutdown)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return t, nil
}

// LogHandler returns the slog handler exporting records over OTLP, or nil
// when export is disabled.
func (t *Telemetry) LogHandler() slog.Handler { return t.logHandler }

// Shutdown flushes pending telemetry and stops the exporters.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range t.shutdowns {
		errs = append(errs, fn(ctx))
	}
	return errors.Join(errs...)
}

func isURL(endpoint string) bool { return strings.Contains(endpoint, "://") }

func traceOptions(endpoint string) []otlptracegrpc.Option {
	if isURL(endpoint) {
		return []otlptracegrpc.Option{otlptracegrpc.WithEndpointURL(endpoint)}
	}
	return []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint), otlptracegrpc.WithInsecure()}
}

func metricOptions(endpoint string) []otlpmetricgrpc.Option {
	if isURL(endpoint) {
		return []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpointURL(endpoint)}
	}
	return []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(endpoint), otlpmetricgrpc.WithInsecure()}
}

func logOptions(endpoint string) []otlploggrpc.Option {
	if isURL(endpoint) {
		return []otlploggrpc.Option{otlploggrpc.WithEndpointURL(endpoint)}
	}
	return []otlploggrpc.Option{otlploggrpc.WithEndpoint(endpoint), otlploggrpc.WithInsecure()}
}
