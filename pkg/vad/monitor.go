package vad

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/realtime-ai/streamview/pkg/logger"
	"github.com/realtime-ai/streamview/pkg/media"
	"github.com/realtime-ai/streamview/pkg/scheduler"
	"github.com/realtime-ai/streamview/pkg/trace"
)

const (
	DefaultThreshold      = 20.0
	DefaultSilenceTimeout = 800 * time.Millisecond
	// DefaultTickInterval approximates one display refresh at 60 Hz.
	DefaultTickInterval = 16 * time.Millisecond
)

// MonitorConfig tunes the speaking detector.
type MonitorConfig struct {
	// Threshold is the mean magnitude (0..255) a tick must exceed to count
	// as speech. Readings equal to the threshold are silence.
	Threshold float64
	// SilenceTimeout is how long speaking stays true after the last loud tick.
	SilenceTimeout time.Duration
	TickInterval   time.Duration
}

// DefaultMonitorConfig returns the standard detector settings.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Threshold:      DefaultThreshold,
		SilenceTimeout: DefaultSilenceTimeout,
		TickInterval:   DefaultTickInterval,
	}
}

// Session is one sampling loop bound to one stream.
type Session struct {
	id       string
	streamID string
	node     AnalysisNode
	buf      []byte

	ticker     scheduler.Task
	silence    scheduler.Task
	silenceGen uint64
	stopped    bool

	span oteltrace.Span
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) StreamID() string {
	return s.streamID
}

// Monitor runs at most one analysis Session at a time and exposes the
// debounced speaking signal.
type Monitor struct {
	cfg     MonitorConfig
	factory NodeFactory
	sched   scheduler.Scheduler
	log     logger.Logger

	mu       sync.Mutex
	session  *Session
	speaking bool
	onChange func(sessionID string, speaking bool)
}

// NewMonitor creates a Monitor. Zero config fields take their defaults.
func NewMonitor(cfg MonitorConfig, factory NodeFactory, sched scheduler.Scheduler, log logger.Logger) *Monitor {
	def := DefaultMonitorConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.SilenceTimeout <= 0 {
		cfg.SilenceTimeout = def.SilenceTimeout
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = def.TickInterval
	}
	if sched == nil {
		sched = scheduler.New()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Monitor{
		cfg:     cfg,
		factory: factory,
		sched:   sched,
		log:     log.With("component", "vad"),
	}
}

// OnSpeakingChanged registers the callback invoked after every change of the
// speaking signal. It runs on the goroutine that observed the change, outside
// the monitor's lock.
func (m *Monitor) OnSpeakingChanged(fn func(sessionID string, speaking bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

// Speaking reports the current debounced signal.
func (m *Monitor) Speaking() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.speaking
}

// Active returns the running session, or nil.
func (m *Monitor) Active() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// StartSession retires any running session and starts sampling stream. On
// ErrNoAudioTrack or ErrAnalysisUnavailable no session runs and speaking
// stays false.
func (m *Monitor) StartSession(stream *media.Stream) (*Session, error) {
	m.mu.Lock()
	notify := m.stopLocked(m.session)

	sess, err := m.startLocked(stream)
	fn := m.onChange
	m.mu.Unlock()

	if notify != nil && fn != nil {
		fn(notify.id, false)
	}
	return sess, err
}

func (m *Monitor) startLocked(stream *media.Stream) (*Session, error) {
	if stream == nil || len(stream.AudioTracks()) == 0 {
		metricSessionsUnavailable.WithLabelValues("no_audio").Inc()
		m.log.Info("analysis skipped, no audio track")
		return nil, ErrNoAudioTrack
	}

	node, err := m.factory.CreateAnalysisNode(stream)
	if err != nil {
		if !errors.Is(err, ErrAnalysisUnavailable) && !errors.Is(err, ErrNoAudioTrack) {
			err = fmt.Errorf("%w: %v", ErrAnalysisUnavailable, err)
		}
		metricSessionsUnavailable.WithLabelValues("node").Inc()
		m.log.Warn("analysis unavailable", "stream_id", stream.ID(), "error", err)
		return nil, err
	}

	sess := &Session{
		id:       uuid.NewString(),
		streamID: stream.ID(),
		node:     node,
		buf:      make([]byte, node.FrequencyBinCount()),
	}
	_, sess.span = trace.InstrumentSession(context.Background(), sess.id, sess.streamID, m.cfg.Threshold)
	sess.ticker = m.sched.Every(m.cfg.TickInterval, func() { m.tick(sess) })
	m.session = sess

	metricSessionsStarted.Inc()
	metricActiveSessions.Inc()
	m.log.Info("analysis session started", "session_id", sess.id, "stream_id", sess.streamID)
	return sess, nil
}

// StopSession stops sess if it is still running. A nil or already stopped
// session is a no-op.
func (m *Monitor) StopSession(sess *Session) {
	m.mu.Lock()
	var notify *Session
	if sess != nil && sess == m.session {
		notify = m.stopLocked(sess)
	}
	fn := m.onChange
	m.mu.Unlock()

	if notify != nil && fn != nil {
		fn(notify.id, false)
	}
}

// Stop stops whatever session is running.
func (m *Monitor) Stop() {
	m.StopSession(m.Active())
}

// stopLocked retires sess and returns it when speaking flipped to false.
func (m *Monitor) stopLocked(sess *Session) *Session {
	if sess == nil || sess.stopped {
		return nil
	}
	sess.stopped = true
	sess.ticker.Cancel()
	if sess.silence != nil {
		sess.silence.Cancel()
		sess.silence = nil
	}
	if err := sess.node.Close(); err != nil {
		m.log.Warn("failed to close analysis node", "session_id", sess.id, "error", err)
	}
	sess.span.End()

	if m.session == sess {
		m.session = nil
	}
	metricActiveSessions.Dec()
	m.log.Info("analysis session stopped", "session_id", sess.id)

	if m.speaking {
		m.speaking = false
		metricSpeakingTransitions.WithLabelValues("false").Inc()
		return sess
	}
	return nil
}

func (m *Monitor) tick(sess *Session) {
	m.mu.Lock()
	if sess.stopped {
		m.mu.Unlock()
		return
	}

	sess.node.ReadMagnitudes(sess.buf)
	if meanMagnitude(sess.buf) <= m.cfg.Threshold {
		m.mu.Unlock()
		return
	}

	if sess.silence != nil {
		sess.silence.Cancel()
	}
	sess.silenceGen++
	gen := sess.silenceGen
	sess.silence = m.sched.AfterFunc(m.cfg.SilenceTimeout, func() { m.silenceExpired(sess, gen) })

	changed := !m.speaking
	m.speaking = true
	fn := m.onChange
	m.mu.Unlock()

	if changed {
		m.speakingChanged(sess, true, fn)
	}
}

func (m *Monitor) silenceExpired(sess *Session, gen uint64) {
	m.mu.Lock()
	if sess.stopped || sess.silenceGen != gen {
		m.mu.Unlock()
		return
	}
	sess.silence = nil
	changed := m.speaking
	m.speaking = false
	fn := m.onChange
	m.mu.Unlock()

	if changed {
		m.speakingChanged(sess, false, fn)
	}
}

func (m *Monitor) speakingChanged(sess *Session, speaking bool, fn func(string, bool)) {
	metricSpeakingTransitions.WithLabelValues(strconv.FormatBool(speaking)).Inc()
	trace.AddEvent(sess.span, "speaking.changed")
	m.log.Debug("speaking changed", "session_id", sess.id, "speaking", speaking)
	if fn != nil {
		fn(sess.id, speaking)
	}
}

func meanMagnitude(buf []byte) float64 {
	if len(buf) == 0 {
		return 0
	}
	var sum int
	for _, b := range buf {
		sum += int(b)
	}
	return float64(sum) / float64(len(buf))
}
