package trace

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentAcquire starts the span around a capture device request.
func InstrumentAcquire(ctx context.Context, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, "capture.acquire", trace.WithAttributes(attrs...))
}

// InstrumentPlaybackStart starts the span around attaching and playing a stream.
func InstrumentPlaybackStart(ctx context.Context, streamID string, autoUnmute bool) (context.Context, trace.Span) {
	return StartSpan(ctx, "playback.start",
		trace.WithAttributes(
			attribute.String(AttrStreamID, streamID),
			attribute.Bool(AttrAutoUnmute, autoUnmute),
		),
	)
}

// InstrumentPlaybackRetry starts the span around the interaction-triggered retry.
func InstrumentPlaybackRetry(ctx context.Context, streamID, interaction string) (context.Context, trace.Span) {
	return StartSpan(ctx, "playback.retry",
		trace.WithAttributes(
			attribute.String(AttrStreamID, streamID),
			attribute.String("interaction.kind", interaction),
		),
	)
}

// InstrumentSession starts a span that lives as long as an analysis session.
func InstrumentSession(ctx context.Context, sessionID, streamID string, threshold float64) (context.Context, trace.Span) {
	return StartSpan(ctx, "vad.session",
		trace.WithAttributes(SessionAttrs(sessionID, streamID, threshold)...),
	)
}

// RecordStateChange marks a presentation state transition on the span in ctx.
func RecordStateChange(ctx context.Context, from, to string) {
	span := trace.SpanFromContext(ctx)
	AddEvent(span, "state.changed",
		attribute.String(AttrStateFrom, from),
		attribute.String(AttrStateTo, to),
	)
}
