package audio

import (
	"sync"
)

const (
	// DefaultPrerollMs is how much audio is accumulated before playout starts.
	DefaultPrerollMs = 100
	// DefaultMaxBufferedMs caps playout latency; older samples are dropped.
	DefaultMaxBufferedMs = 500
)

// Pacer buffers decoded samples between a producer (track reader) and a
// playback device callback that pulls fixed-size periods.
//
// Main features:
//   - pre-roll accumulation to absorb initial jitter
//   - bounded latency: the oldest samples are dropped past the cap
//   - pause (mute) and gain (volume) applied at pull time
type Pacer struct {
	mu           sync.Mutex
	buffer       []float32
	accumulating bool
	paused       bool
	gain         float32

	preroll     int
	maxBuffered int
}

// NewPacer creates a Pacer for sampleRate mono audio.
func NewPacer(sampleRate, prerollMs, maxBufferedMs int) *Pacer {
	if prerollMs < 0 {
		prerollMs = DefaultPrerollMs
	}
	if maxBufferedMs <= 0 {
		maxBufferedMs = DefaultMaxBufferedMs
	}
	maxBuffered := sampleRate * maxBufferedMs / 1000
	preroll := sampleRate * prerollMs / 1000
	if preroll > maxBuffered {
		preroll = maxBuffered
	}
	return &Pacer{
		buffer:       make([]float32, 0, maxBuffered),
		accumulating: true,
		gain:         1,
		preroll:      preroll,
		maxBuffered:  maxBuffered,
	}
}

// Write appends samples.
func (p *Pacer) Write(samples []float32) {
	if len(samples) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.buffer = append(p.buffer, samples...)
	if over := len(p.buffer) - p.maxBuffered; over > 0 {
		p.buffer = append(p.buffer[:0], p.buffer[over:]...)
	}
}

// Fill writes the next len(out) samples into out, padding with silence when
// paused, pre-rolling or starved.
func (p *Pacer) Fill(out []float32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range out {
		out[i] = 0
	}

	if p.accumulating {
		if len(p.buffer) < p.preroll {
			return
		}
		p.accumulating = false
	}

	n := copy(out, p.buffer)
	p.buffer = append(p.buffer[:0], p.buffer[n:]...)

	if p.paused {
		for i := range out {
			out[i] = 0
		}
		return
	}
	if p.gain != 1 {
		for i := 0; i < n; i++ {
			out[i] *= p.gain
		}
	}
}

// Pause silences output. Samples keep draining so latency does not build up.
func (p *Pacer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = true
}

func (p *Pacer) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = false
}

func (p *Pacer) IsPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// SetGain sets the linear output gain, clamped to [0, 1].
func (p *Pacer) SetGain(gain float32) {
	if gain < 0 {
		gain = 0
	}
	if gain > 1 {
		gain = 1
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gain = gain
}

func (p *Pacer) Gain() float32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gain
}

// Clear drops buffered audio and restarts pre-roll.
func (p *Pacer) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buffer = p.buffer[:0]
	p.accumulating = true
}

// Available returns the number of buffered samples.
func (p *Pacer) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buffer)
}
