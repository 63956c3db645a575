package playback

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/realtime-ai/streamview/pkg/logger"
	"github.com/realtime-ai/streamview/pkg/media"
	"github.com/realtime-ai/streamview/pkg/trace"
)

// DefaultPlayTimeout bounds a single Sink.Play call.
const DefaultPlayTimeout = 5 * time.Second

// Outcome is the result of Policy.Start.
type Outcome int

const (
	OutcomeStarted Outcome = iota
	OutcomeBlocked
)

func (o Outcome) String() string {
	switch o {
	case OutcomeStarted:
		return "started"
	case OutcomeBlocked:
		return "blocked_awaiting_interaction"
	default:
		return "unknown"
	}
}

// RetryResult reports what an interaction-triggered retry did.
type RetryResult struct {
	StreamID    string
	Interaction Interaction
	Err         error
}

// PolicyConfig configures a Policy.
type PolicyConfig struct {
	PlayTimeout time.Duration

	// Dispatch runs the retry for a fired binding. The controller passes its
	// event loop here so sink calls stay serialised. Nil runs it inline on the
	// interaction source's goroutine. A false return drops the retry.
	Dispatch func(fn func()) bool
}

type binding struct {
	stream *media.Stream
	sink   Sink

	mu      sync.Mutex
	cancel  func()
	stopped bool
}

// setCancel stores the registration's cancel func, or runs it right away if
// the binding was already stopped while registering.
func (b *binding) setCancel(cancel func()) {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		cancel()
		return
	}
	b.cancel = cancel
	b.mu.Unlock()
}

func (b *binding) stop() {
	b.mu.Lock()
	b.stopped = true
	cancel := b.cancel
	b.cancel = nil
	b.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Policy starts playback and holds at most one unlock binding.
type Policy struct {
	cfg   PolicyConfig
	input InteractionSource
	log   logger.Logger

	mu      sync.Mutex
	binding *binding
	onRetry func(RetryResult)
}

// NewPolicy creates a Policy. With a nil input no binding can be armed and a
// blocked start simply stays blocked.
func NewPolicy(input InteractionSource, cfg PolicyConfig, log logger.Logger) *Policy {
	if cfg.PlayTimeout <= 0 {
		cfg.PlayTimeout = DefaultPlayTimeout
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Policy{
		cfg:   cfg,
		input: input,
		log:   log.With("component", "playback"),
	}
}

// Start attaches stream to sink and tries to play it. Every failure,
// including a timeout, is reported as OutcomeBlocked. When autoUnmute is set
// a blocked start arms the unlock binding, replacing any previous one.
func (p *Policy) Start(ctx context.Context, stream *media.Stream, sink Sink, autoUnmute bool) Outcome {
	ctx, span := trace.InstrumentPlaybackStart(ctx, stream.ID(), autoUnmute)
	defer span.End()

	log := p.log.With("stream_id", stream.ID())

	err := sink.Attach(stream)
	if err == nil {
		err = p.play(ctx, sink)
	} else {
		log.Warn("failed to attach stream to sink", "error", err)
	}

	if err == nil {
		metricStarts.WithLabelValues(OutcomeStarted.String()).Inc()
		span.SetAttributes(trace.AttrOutcome(OutcomeStarted.String()))
		log.Info("playback started", "muted", sink.Muted())
		return OutcomeStarted
	}

	metricStarts.WithLabelValues(OutcomeBlocked.String()).Inc()
	span.SetAttributes(trace.AttrOutcome(OutcomeBlocked.String()))
	if errors.Is(err, ErrAutoplayBlocked) {
		log.Info("playback blocked by autoplay policy", "auto_unmute", autoUnmute)
	} else {
		log.Warn("playback start failed, treating as blocked", "error", err, "auto_unmute", autoUnmute)
	}

	if autoUnmute {
		p.arm(stream, sink)
	}
	return OutcomeBlocked
}

func (p *Policy) play(ctx context.Context, sink Sink) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.PlayTimeout)
	defer cancel()
	return sink.Play(ctx)
}

func (p *Policy) arm(stream *media.Stream, sink Sink) {
	if p.input == nil {
		p.log.Debug("no interaction source, binding not armed", "stream_id", stream.ID())
		return
	}

	// Publish before registering so an interaction delivered during
	// registration already finds the binding current.
	b := &binding{stream: stream, sink: sink}
	p.mu.Lock()
	prev := p.binding
	p.binding = b
	p.mu.Unlock()

	if prev != nil {
		prev.stop()
	}

	b.setCancel(p.input.OnInteraction(func(i Interaction) {
		if !i.Kind.Unlocks() {
			return
		}
		p.dispatch(func() { p.fire(b, i) })
	}))

	metricBindingsArmed.Inc()
	p.log.Info("unlock binding armed", "stream_id", stream.ID())
}

func (p *Policy) dispatch(fn func()) {
	if p.cfg.Dispatch == nil {
		fn()
		return
	}
	if !p.cfg.Dispatch(fn) {
		p.log.Debug("retry dropped, dispatcher closed")
	}
}

// fire runs at most once per binding. A binding that was replaced or
// disarmed before its retry was dispatched does nothing.
func (p *Policy) fire(b *binding, i Interaction) {
	p.mu.Lock()
	if p.binding != b {
		p.mu.Unlock()
		return
	}
	p.binding = nil
	p.mu.Unlock()

	b.stop()

	ctx, span := trace.InstrumentPlaybackRetry(context.Background(), b.stream.ID(), string(i.Kind))
	defer span.End()

	b.sink.SetMuted(false)
	b.sink.SetVolume(1)
	err := p.play(ctx, b.sink)

	result := "ok"
	if err != nil {
		result = "failed"
		trace.RecordError(span, err)
		p.log.Warn("interaction retry failed, binding disarmed", "stream_id", b.stream.ID(), "error", err)
	} else {
		p.log.Info("playback unlocked by interaction", "stream_id", b.stream.ID(), "interaction", i.Kind)
	}
	metricRetries.WithLabelValues(result).Inc()

	p.mu.Lock()
	fn := p.onRetry
	p.mu.Unlock()
	if fn != nil {
		fn(RetryResult{StreamID: b.stream.ID(), Interaction: i, Err: err})
	}
}

// OnRetry registers the callback invoked after every interaction retry. It
// runs on the dispatch goroutine.
func (p *Policy) OnRetry(fn func(RetryResult)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onRetry = fn
}

// Disarm cancels the pending binding, if any.
func (p *Policy) Disarm() {
	p.mu.Lock()
	b := p.binding
	p.binding = nil
	p.mu.Unlock()

	if b != nil {
		b.stop()
		p.log.Debug("unlock binding disarmed", "stream_id", b.stream.ID())
	}
}

// Armed reports whether a binding is waiting for an interaction.
func (p *Policy) Armed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.binding != nil
}
