package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestInitTracer_Disabled(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), DefaultConfig("reviewgw"))
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracer_Enabled(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	cfg := Config{
		ServiceName:    "reviewgw",
		ServiceVersion: "1.0.0",
		Environment:    "test",
		OTLPEndpoint:   "127.0.0.1:0",
		SampleRate:     0.5,
		Enabled:        true,
	}

	shutdown, err := InitTracer(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	_, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	assert.True(t, ok, "global provider should be the SDK provider")

	// The collector is unreachable; shutdown may report an export failure.
	_ = shutdown(context.Background())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("reviewgw")

	assert.Equal(t, "reviewgw", cfg.ServiceName)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 1.0, cfg.SampleRate)
	assert.Equal(t, "localhost:4318", cfg.OTLPEndpoint)
}

func TestSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), Sampler(1).Description())
	assert.Equal(t, sdktrace.AlwaysSample().Description(), Sampler(7).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), Sampler(0).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), Sampler(-1).Description())
	assert.Equal(t, sdktrace.TraceIDRatioBased(0.25).Description(), Sampler(0.25).Description())
}

func TestStartClientAndEnd(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	tracer := tp.Tracer(InstrumentationPrefix + "test")

	_, span := StartClient(context.Background(), tracer, "appstore.reviews", attribute.String("app_id", "42"))
	End(span, nil)

	_, span = StartClient(context.Background(), tracer, "appstore.lookup")
	End(span, errors.New("upstream 503"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	assert.Equal(t, "appstore.reviews", spans[0].Name)
	assert.Equal(t, trace.SpanKindClient, spans[0].SpanKind)
	assert.Contains(t, spans[0].Attributes, attribute.String("app_id", "42"))
	assert.Equal(t, codes.Unset, spans[0].Status.Code)

	assert.Equal(t, codes.Error, spans[1].Status.Code)
	assert.Equal(t, "upstream 503", spans[1].Status.Description)
	require.Len(t, spans[1].Events, 1)
}

func TestTracer(t *testing.T) {
	tracer := Tracer("source/appstore")
	require.NotNil(t, tracer)

	_, span := tracer.Start(context.Background(), "op")
	span.End()
}
