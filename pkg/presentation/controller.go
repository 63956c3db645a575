// Package presentation orchestrates acquisition, playback and voice-activity
// analysis of one displayed stream and exposes a single observable state.
//
// Every command and every asynchronous result is serialised on a
// scheduler.Loop, so the controller's working state is never touched
// concurrently. Snapshot reads are synchronous and reflect the last completed
// update.
package presentation

import (
	"context"
	"errors"
	"sync"
	"time"

	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/realtime-ai/streamview/pkg/capture"
	"github.com/realtime-ai/streamview/pkg/events"
	"github.com/realtime-ai/streamview/pkg/logger"
	"github.com/realtime-ai/streamview/pkg/media"
	"github.com/realtime-ai/streamview/pkg/playback"
	"github.com/realtime-ai/streamview/pkg/scheduler"
	"github.com/realtime-ai/streamview/pkg/trace"
	"github.com/realtime-ai/streamview/pkg/vad"
)

// Acquirer owns self-acquired streams.
type Acquirer interface {
	Acquire(ctx context.Context, c capture.Constraints) (*media.Stream, error)
	Release(stream *media.Stream)
}

// Starter starts playback and manages the unlock binding.
type Starter interface {
	Start(ctx context.Context, stream *media.Stream, sink playback.Sink, autoUnmute bool) playback.Outcome
	Disarm()
	OnRetry(fn func(playback.RetryResult))
}

// VoiceMonitor runs voice-activity analysis.
type VoiceMonitor interface {
	StartSession(stream *media.Stream) (*vad.Session, error)
	StopSession(sess *vad.Session)
	Speaking() bool
	OnSpeakingChanged(fn func(sessionID string, speaking bool))
}

// Config selects the endpoint role and what to ask the devices for.
type Config struct {
	// Remote endpoints never self-acquire and never run voice activity.
	Remote      bool
	Constraints capture.Constraints
}

// Deps are the collaborators a Controller drives. Loop, Bus and Log are
// optional.
type Deps struct {
	Capture  Acquirer
	Playback Starter
	Monitor  VoiceMonitor
	Sink     playback.Sink
	Loop     *scheduler.Loop
	Bus      events.Bus
	Log      logger.Logger
}

// Controller is the top-level presentation state machine.
type Controller struct {
	capture Acquirer
	policy  Starter
	monitor VoiceMonitor
	sink    playback.Sink
	loop    *scheduler.Loop
	bus     events.Bus
	log     logger.Logger

	// ctx carries the controller's lifetime span; acquisition and playback
	// spans are its children.
	ctx    context.Context
	cancel context.CancelFunc
	span   oteltrace.Span

	disposeOnce sync.Once

	// Loop-owned.
	cfg         Config
	current     *media.Stream
	external    bool
	owned       *media.Stream
	acquiring   bool
	generation  uint64
	session     *vad.Session
	unsubscribe func()
	disposed    bool

	mu   sync.RWMutex
	snap Snapshot
}

// NewController creates a Controller in StateLoading. Nothing happens until
// the first Attach.
func NewController(cfg Config, deps Deps) *Controller {
	if deps.Loop == nil {
		deps.Loop = scheduler.NewLoop()
	}
	if deps.Log == nil {
		deps.Log = logger.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	ctx, span := trace.StartSpan(ctx, "presentation.controller")
	span.SetAttributes(trace.AttrRemoteRole(cfg.Remote))
	c := &Controller{
		capture: deps.Capture,
		policy:  deps.Playback,
		monitor: deps.Monitor,
		sink:    deps.Sink,
		loop:    deps.Loop,
		bus:     deps.Bus,
		log:     deps.Log.With("component", "presentation"),
		ctx:     ctx,
		cancel:  cancel,
		span:    span,
		cfg:     cfg,
		snap:    Snapshot{State: StateLoading, Remote: cfg.Remote},
	}

	c.monitor.OnSpeakingChanged(func(string, bool) {
		c.loop.Post(c.syncSpeaking)
	})
	c.policy.OnRetry(func(r playback.RetryResult) {
		c.loop.Post(func() { c.retried(r) })
	})
	return c
}

// Attach hands the controller a stream to present, or nil to ask for one.
func (c *Controller) Attach(stream *media.Stream) {
	c.post(func() { c.attach(stream) })
}

// SetRole switches between local and remote endpoint and re-evaluates the
// current stream under the new role.
func (c *Controller) SetRole(remote bool) {
	c.post(func() { c.setRole(remote) })
}

// RetryAcquire re-issues device acquisition after an acquisition error. In
// any other state it does nothing.
func (c *Controller) RetryAcquire() {
	c.post(c.retryAcquire)
}

// ToggleMute flips the sink's mute flag.
func (c *Controller) ToggleMute() {
	c.post(c.toggleMute)
}

// Dispose tears everything down exactly once and waits for queued work to
// finish. It must not be called from a callback running on the loop.
func (c *Controller) Dispose() {
	c.disposeOnce.Do(func() {
		c.loop.Post(c.dispose)
		c.loop.Close()
		<-c.loop.Done()
	})
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

func (c *Controller) State() State {
	return c.Snapshot().State
}

func (c *Controller) Speaking() bool {
	return c.Snapshot().Speaking
}

func (c *Controller) post(fn func()) {
	if !c.loop.Post(fn) {
		c.log.Debug("command ignored, controller disposed")
	}
}

func (c *Controller) attach(stream *media.Stream) {
	if c.disposed {
		return
	}

	if stream != nil {
		if stream == c.current {
			c.log.Debug("attach ignored, same stream", "stream_id", stream.ID())
			return
		}
		c.teardown()
		c.setState(StateLoading, "")
		c.current = stream
		c.external = true
		c.activate(stream)
		return
	}

	if c.cfg.Remote {
		c.teardown()
		c.setState(StateIdle, "")
		return
	}
	if c.owned != nil || c.acquiring {
		c.log.Debug("attach ignored, own stream already present or pending")
		return
	}
	c.teardown()
	c.startAcquire()
}

func (c *Controller) setRole(remote bool) {
	if c.disposed || remote == c.cfg.Remote {
		return
	}
	c.cfg.Remote = remote
	c.updateSnapshot(func(s *Snapshot) { s.Remote = remote })
	c.log.Info("role changed", "remote", remote)

	var reattach *media.Stream
	if c.external {
		reattach = c.current
	}
	// Drop everything so the stream is presented from scratch.
	c.teardown()
	c.attach(reattach)
}

func (c *Controller) retryAcquire() {
	if c.disposed {
		return
	}
	if c.Snapshot().State != StateError || c.cfg.Remote {
		c.log.Debug("retry ignored", "state", c.Snapshot().State)
		return
	}
	c.startAcquire()
}

func (c *Controller) toggleMute() {
	if c.disposed {
		return
	}
	muted := !c.sink.Muted()
	c.sink.SetMuted(muted)
	c.updateSnapshot(func(s *Snapshot) { s.Muted = muted })
	c.publish(events.EventMuteChanged, events.MutePayload{Muted: muted})
}

func (c *Controller) startAcquire() {
	c.generation++
	gen := c.generation
	c.acquiring = true
	c.setState(StateLoading, "")

	constraints := c.cfg.Constraints
	go func() {
		stream, err := c.capture.Acquire(c.ctx, constraints)
		if c.loop.Post(func() { c.acquired(gen, stream, err) }) {
			return
		}
		// The controller was disposed while the request was in flight.
		if stream != nil {
			metricStaleAcquisitions.Inc()
			c.capture.Release(stream)
		}
	}()
}

func (c *Controller) acquired(gen uint64, stream *media.Stream, err error) {
	if c.disposed || gen != c.generation {
		metricStaleAcquisitions.Inc()
		if stream != nil {
			c.log.Info("discarding stale acquisition", "stream_id", stream.ID())
			c.capture.Release(stream)
		}
		return
	}
	c.acquiring = false

	if err != nil {
		msg := err.Error()
		var acqErr *capture.AcquisitionError
		if errors.As(err, &acqErr) {
			c.log.Warn("acquisition failed", "reason", acqErr.Reason, "error", msg)
		} else {
			c.log.Warn("acquisition failed", "error", msg)
		}
		c.setState(StateError, msg)
		return
	}

	c.owned = stream
	c.current = stream
	c.external = false
	c.activate(stream)
}

// activate starts playback and, for the local endpoint, voice activity.
func (c *Controller) activate(stream *media.Stream) {
	remote := c.cfg.Remote
	log := c.log.With("stream_id", stream.ID())

	c.unsubscribe = stream.OnTrackSetChanged(func(ev media.TrackEvent) {
		c.loop.Post(func() { c.trackChanged(stream, ev) })
	})

	// Local playback starts muted to avoid echo.
	c.sink.SetMuted(!remote)

	outcome := c.policy.Start(c.ctx, stream, c.sink, remote)
	if outcome == playback.OutcomeBlocked {
		c.publish(events.EventPlaybackBlocked, events.PlaybackPayload{StreamID: stream.ID()})
	}

	muted := c.sink.Muted()
	c.updateSnapshot(func(s *Snapshot) {
		s.HasStream = true
		s.Muted = muted
	})
	c.setState(StatePlaying, "")
	log.Info("stream presented", "outcome", outcome.String(), "remote", remote)

	if remote {
		return
	}
	sess, err := c.monitor.StartSession(stream)
	if err != nil {
		log.Info("voice activity unavailable", "error", err)
		c.publish(events.EventAnalysisUnavailable, events.AnalysisPayload{StreamID: stream.ID(), Reason: err.Error()})
		return
	}
	c.session = sess
}

// teardown retires the analysis session, the track observer, the unlock
// binding and the sink, then releases the self-owned stream.
func (c *Controller) teardown() {
	if c.session != nil {
		c.monitor.StopSession(c.session)
		c.session = nil
	}
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	c.policy.Disarm()
	if c.current != nil {
		c.sink.Detach()
	}
	if c.owned != nil {
		c.capture.Release(c.owned)
		c.owned = nil
	}
	if c.acquiring {
		// Any result still in flight is now stale.
		c.generation++
		c.acquiring = false
	}
	c.current = nil
	c.external = false
	c.updateSnapshot(func(s *Snapshot) {
		s.HasStream = false
		s.Speaking = false
	})
}

func (c *Controller) dispose() {
	if c.disposed {
		return
	}
	c.disposed = true

	if c.session != nil {
		c.monitor.StopSession(c.session)
		c.session = nil
	}
	if c.owned != nil {
		c.capture.Release(c.owned)
		c.owned = nil
	}
	c.policy.Disarm()

	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	if c.current != nil {
		c.sink.Detach()
		c.current = nil
	}
	c.generation++
	c.acquiring = false
	c.cancel()
	c.updateSnapshot(func(s *Snapshot) {
		s.HasStream = false
		s.Speaking = false
	})
	c.span.End()
	c.log.Info("controller disposed")
}

func (c *Controller) syncSpeaking() {
	speaking := c.session != nil && c.monitor.Speaking()
	prev := c.Snapshot().Speaking
	if speaking == prev {
		return
	}
	c.updateSnapshot(func(s *Snapshot) { s.Speaking = speaking })

	var id string
	if c.session != nil {
		id = c.session.ID()
	}
	c.publish(events.EventSpeakingChanged, events.SpeakingPayload{SessionID: id, Speaking: speaking})
}

func (c *Controller) retried(r playback.RetryResult) {
	if c.disposed || c.current == nil || c.current.ID() != r.StreamID {
		return
	}
	muted := c.sink.Muted()
	c.updateSnapshot(func(s *Snapshot) { s.Muted = muted })

	payload := events.PlaybackPayload{StreamID: r.StreamID}
	if r.Err != nil {
		payload.Err = r.Err.Error()
	}
	c.publish(events.EventPlaybackUnlocked, payload)
}

func (c *Controller) trackChanged(stream *media.Stream, ev media.TrackEvent) {
	if stream != c.current {
		return
	}
	metricTrackEvents.Inc()

	var trackID, kind string
	if ev.Track != nil {
		trackID = ev.Track.ID()
		kind = ev.Track.Kind().String()
	}
	c.log.Debug("track set changed", "stream_id", stream.ID(), "track_id", trackID, "added", ev.Added)
	c.publish(events.EventTrackSetChanged, events.TrackSetPayload{
		StreamID:    stream.ID(),
		TrackID:     trackID,
		Kind:        kind,
		Added:       ev.Added,
		AudioTracks: len(stream.AudioTracks()),
		VideoTracks: len(stream.VideoTracks()),
	})
}

func (c *Controller) setState(to State, msg string) {
	var from State
	changed := false
	c.updateSnapshot(func(s *Snapshot) {
		from = s.State
		if s.State == to && s.ErrorMessage == msg {
			return
		}
		s.State = to
		s.ErrorMessage = msg
		changed = true
	})
	if !changed {
		return
	}

	metricTransitions.WithLabelValues(from.String(), to.String()).Inc()
	trace.RecordStateChange(c.ctx, from.String(), to.String())
	c.log.Info("state changed", "from", from.String(), "to", to.String())
	c.publish(events.EventStateChanged, events.StatePayload{
		From:         from.String(),
		To:           to.String(),
		ErrorMessage: msg,
	})
}

func (c *Controller) updateSnapshot(fn func(*Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.snap)
}

func (c *Controller) publish(t events.EventType, payload interface{}) {
	if c.bus == nil {
		return
	}
	if !c.bus.Publish(events.Event{Type: t, Timestamp: time.Now(), Payload: payload}) {
		c.log.Debug("event dropped by a slow subscriber", "type", string(t))
	}
}
