package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func restoreGlobals(t *testing.T) {
	t.Helper()
	tp, mp := otel.GetTracerProvider(), otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetMeterProvider(mp)
	})
}

func TestSetup_WithoutEndpoint(t *testing.T) {
	restoreGlobals(t)
	before := otel.GetTracerProvider()
	reg := prometheus.NewRegistry()

	tel, err := Setup(context.Background(), Config{Endpoint: "  ", ServiceName: "mc-webhooks", Registerer: reg})
	require.NoError(t, err)

	assert.Nil(t, tel.LogHandler())
	assert.Equal(t, before, otel.GetTracerProvider())
	_, ok := otel.GetMeterProvider().(*sdkmetric.MeterProvider)
	assert.True(t, ok)

	counter, err := otel.Meter("test").Int64Counter("requests")
	require.NoError(t, err)
	counter.Add(context.Background(), 1)

	families, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "requests_total")

	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestSetup_WithEndpoint(t *testing.T) {
	restoreGlobals(t)

	// The gRPC exporters connect lazily, so no collector is needed.
	tel, err := Setup(context.Background(), Config{
		Endpoint:    "localhost:4317",
		ServiceName: "mc-webhooks",
		Registerer:  prometheus.NewRegistry(),
	})
	require.NoError(t, err)

	_, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	assert.True(t, ok)
	assert.NotNil(t, tel.LogHandler())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = tel.Shutdown(ctx)
}

func TestExporterOptions(t *testing.T) {
	assert.Len(t, traceOptions("collector:4317"), 2)
	assert.Len(t, traceOptions("http://collector:4317"), 1)
	assert.Len(t, metricOptions("collector:4317"), 2)
	assert.Len(t, logOptions("https://collector:4317"), 1)
}

// recordingSpanExporter counts Shutdown calls.
type recordingSpanExporter struct {
	shutdowns int
}

func (e *recordingSpanExporter) ExportSpans(context.Context, []sdktrace.ReadOnlySpan) error {
	return nil
}

func (e *recordingSpanExporter) Shutdown(context.Context) error {
	e.shutdowns++
	return nil
}

func TestSetup_ExporterFailureInstallsNothing(t *testing.T) {
	restoreGlobals(t)
	tpBefore, mpBefore := otel.GetTracerProvider(), otel.GetMeterProvider()

	traceExp := &recordingSpanExporter{}
	origTrace, origLog := newTraceExporter, newLogExporter
	t.Cleanup(func() { newTraceExporter, newLogExporter = origTrace, origLog })
	newTraceExporter = func(context.Context, string) (sdktrace.SpanExporter, error) {
		return traceExp, nil
	}
	newLogExporter = func(context.Context, string) (sdklog.Exporter, error) {
		return nil, errors.New("log exporter unavailable")
	}

	reg := prometheus.NewRegistry()
	tel, err := Setup(context.Background(), Config{
		Endpoint:    "localhost:4317",
		ServiceName: "mc-webhooks",
		Registerer:  reg,
	})
	require.Error(t, err)
	assert.Nil(t, tel)
	assert.Contains(t, err.Error(), "log exporter unavailable")

	assert.Equal(t, tpBefore, otel.GetTracerProvider())
	assert.Equal(t, mpBefore, otel.GetMeterProvider())
	assert.Equal(t, 1, traceExp.shutdowns)

	// The Prometheus exporter was not registered either.
	_, err = otelprom.New(otelprom.WithRegisterer(reg))
	assert.NoError(t, err)
}
