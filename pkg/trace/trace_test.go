package trace

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
)

func TestInitializeAndShutdown(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, Initialize(context.Background(), cfg))
	assert.Error(t, Initialize(context.Background(), cfg), "second initialize must fail")
	require.NoError(t, Shutdown(context.Background()))
	require.NoError(t, Shutdown(context.Background()))
}

func TestResourceMergesWithSDKDefault(t *testing.T) {
	res, err := newResource(DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, resource.Default().SchemaURL(), res.SchemaURL())

	v, ok := res.Set().Value(attribute.Key("service.name"))
	require.True(t, ok)
	assert.Equal(t, "streamview", v.AsString())
}

func TestInitializeRejectsUnknownExporter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExporterType = "zipkin"
	assert.Error(t, Initialize(context.Background(), cfg))
}

func TestTraceIDWithProvider(t *testing.T) {
	require.NoError(t, Initialize(context.Background(), DefaultConfig()))
	defer Shutdown(context.Background())

	ctx, span := StartSpan(context.Background(), "test")
	defer span.End()
	id := TraceID(ctx)
	assert.Len(t, id, 32)
	assert.Equal(t, span.SpanContext().TraceID().String(), id)

	childCtx, child := InstrumentPlaybackStart(ctx, "s1", true)
	defer child.End()
	assert.Equal(t, id, TraceID(childCtx))
}

func TestInstrumentHelpersWithoutProvider(t *testing.T) {
	ctx, span := InstrumentSession(context.Background(), "sess", "stream", 20)
	RecordStateChange(ctx, "loading", "playing")
	span.End()

	_, span = InstrumentAcquire(context.Background(), CaptureAttrs(640, 480, 30, 16000)...)
	RecordError(span, errors.New("denied"))
	RecordError(span, nil)
	span.End()

	assert.Equal(t, "", TraceID(context.Background()))
}

func TestAttrHelpers(t *testing.T) {
	assert.Equal(t, AttrCaptureReason, string(AttrFailureReason("permission_denied").Key))
	assert.True(t, AttrRemoteRole(true).Value.AsBool())
	assert.Equal(t, "started", AttrOutcome("started").Value.AsString())
}

func TestStreamAttrs(t *testing.T) {
	attrs := StreamAttrs("s1", true, 1, 2)
	require.Len(t, attrs, 4)
	assert.Equal(t, AttrStreamID, string(attrs[0].Key))
	assert.Equal(t, "s1", attrs[0].Value.AsString())
	assert.True(t, attrs[1].Value.AsBool())
}
