// ABOUTME: Tests for tracer provider initialization and span helpers
// ABOUTME: Uses an in-memory span recorder to observe emitted spans

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
)

func TestInit_Disabled(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInit_UnknownExporter(t *testing.T) {
	_, err := Init(context.Background(), Config{Enabled: true, Exporter: "zipkin"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownExporter)
}

func TestInit_Stdout(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	shutdown, err := Init(context.Background(), Config{Enabled: true, Exporter: "stdout", ServiceName: "test"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestStartSpan_RecordsErrorStatus(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	recorder := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))

	_, span := StartSpan(context.Background(), "agent.ask", attribute.String("backend", "echo"))
	EndSpan(span, errors.New("boom"))

	_, ok := StartSpan(context.Background(), "session.sweep")
	EndSpan(ok, nil)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "agent.ask", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), attribute.String("backend", "echo"))
	assert.Equal(t, codes.Unset, spans[1].Status().Code)
}
