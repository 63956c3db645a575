package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/realtime-ai/streamview/pkg/logger"
	"github.com/realtime-ai/streamview/pkg/media"
	"github.com/realtime-ai/streamview/pkg/vad"
)

const (
	DefaultFFTSize     = 512
	DefaultSmoothing   = 0.8
	DefaultMinDecibels = -100.0
	DefaultMaxDecibels = -30.0
)

// Blackman window coefficients.
const (
	blackmanA0 = 0.42
	blackmanA1 = 0.5
	blackmanA2 = 0.08
)

// AnalyserConfig controls the frequency analysis.
type AnalyserConfig struct {
	// FFTSize is the time-domain window length. Must be a power of two.
	FFTSize int
	// Smoothing blends each magnitude with the previous one, 0..1.
	Smoothing float64
	// MinDecibels maps to byte 0 and MaxDecibels to byte 255.
	MinDecibels float64
	MaxDecibels float64
}

// DefaultAnalyserConfig returns the standard 512-point configuration.
func DefaultAnalyserConfig() AnalyserConfig {
	return AnalyserConfig{
		FFTSize:     DefaultFFTSize,
		Smoothing:   DefaultSmoothing,
		MinDecibels: DefaultMinDecibels,
		MaxDecibels: DefaultMaxDecibels,
	}
}

func (c AnalyserConfig) validate() error {
	if c.FFTSize < 32 || c.FFTSize&(c.FFTSize-1) != 0 {
		return fmt.Errorf("fft size %d is not a power of two >= 32", c.FFTSize)
	}
	if c.Smoothing < 0 || c.Smoothing > 1 {
		return fmt.Errorf("smoothing %v out of range [0, 1]", c.Smoothing)
	}
	if c.MinDecibels >= c.MaxDecibels {
		return fmt.Errorf("min decibels %v must be below max decibels %v", c.MinDecibels, c.MaxDecibels)
	}
	return nil
}

// Analyser turns the most recent FFTSize samples into byte-scaled frequency
// magnitudes. Samples are pushed with Write; ReadMagnitudes performs one
// analysis pass and updates the smoothing state.
type Analyser struct {
	cfg AnalyserConfig

	ring   *SampleRing
	fft    *fourier.FFT
	window []float64

	mu       sync.Mutex
	frame    []float32
	seq      []float64
	coeff    []complex128
	smoothed []float64

	closeOnce sync.Once
	onClose   func() error
}

// NewAnalyser creates an Analyser. A zero FFTSize or an unset decibel range
// falls back to the default.
func NewAnalyser(cfg AnalyserConfig) (*Analyser, error) {
	def := DefaultAnalyserConfig()
	if cfg.FFTSize == 0 {
		cfg.FFTSize = def.FFTSize
	}
	if cfg.MinDecibels == 0 && cfg.MaxDecibels == 0 {
		cfg.MinDecibels, cfg.MaxDecibels = def.MinDecibels, def.MaxDecibels
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	n := cfg.FFTSize
	window := make([]float64, n)
	for i := range window {
		x := float64(i) / float64(n)
		window[i] = blackmanA0 - blackmanA1*math.Cos(2*math.Pi*x) + blackmanA2*math.Cos(4*math.Pi*x)
	}

	return &Analyser{
		cfg:      cfg,
		ring:     NewSampleRing(n),
		fft:      fourier.NewFFT(n),
		window:   window,
		frame:    make([]float32, n),
		seq:      make([]float64, n),
		coeff:    make([]complex128, n/2+1),
		smoothed: make([]float64, n/2),
	}, nil
}

// Write appends time-domain samples.
func (a *Analyser) Write(samples []float32) {
	a.ring.Write(samples)
}

// FrequencyBinCount is half the FFT size.
func (a *Analyser) FrequencyBinCount() int {
	return a.cfg.FFTSize / 2
}

// ReadMagnitudes fills dst with the current magnitudes. Extra entries in dst
// are left untouched; missing ones are skipped.
func (a *Analyser) ReadMagnitudes(dst []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := a.cfg.FFTSize
	a.frame = a.ring.Snapshot(a.frame)
	for i, s := range a.frame {
		a.seq[i] = float64(s) * a.window[i]
	}
	a.coeff = a.fft.Coefficients(a.coeff, a.seq)

	tau := a.cfg.Smoothing
	scale := 255 / (a.cfg.MaxDecibels - a.cfg.MinDecibels)
	bins := len(a.smoothed)
	if len(dst) < bins {
		bins = len(dst)
	}

	for k := range a.smoothed {
		mag := cmplx.Abs(a.coeff[k]) / float64(n)
		v := tau*a.smoothed[k] + (1-tau)*mag
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		a.smoothed[k] = v
		if k >= bins {
			continue
		}
		dst[k] = toByte(v, a.cfg.MinDecibels, scale)
	}
}

func toByte(mag, minDB, scale float64) byte {
	if mag <= 0 {
		return 0
	}
	db := 20 * math.Log10(mag)
	v := scale * (db - minDB)
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return byte(v)
	}
}

// Close stops any source pumping into the analyser. Safe to call repeatedly.
func (a *Analyser) Close() error {
	var err error
	a.closeOnce.Do(func() {
		if a.onClose != nil {
			err = a.onClose()
		}
	})
	return err
}

// AnalyserFactory builds analysers tapped onto a stream's first readable
// audio track.
type AnalyserFactory struct {
	Config AnalyserConfig
	Log    logger.Logger
}

// CreateAnalysisNode starts pumping samples from the stream's audio into a new
// Analyser. The failure is reported as vad.ErrAnalysisUnavailable when the
// stream has audio but none of it can be tapped.
func (f *AnalyserFactory) CreateAnalysisNode(stream *media.Stream) (vad.AnalysisNode, error) {
	if stream == nil {
		return nil, vad.ErrNoAudioTrack
	}

	tracks := stream.AudioTracks()
	if len(tracks) == 0 {
		return nil, vad.ErrNoAudioTrack
	}

	var source media.SampleSource
	for _, t := range tracks {
		if s, ok := t.(media.SampleSource); ok {
			source = s
			break
		}
	}
	if source == nil {
		return nil, fmt.Errorf("%w: no audio track exposes samples", vad.ErrAnalysisUnavailable)
	}

	an, err := NewAnalyser(f.Config)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vad.ErrAnalysisUnavailable, err)
	}

	reader, err := source.NewSampleReader()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vad.ErrAnalysisUnavailable, err)
	}

	log := f.Log
	if log == nil {
		log = logger.NewNop()
	}
	log = log.With("stream_id", stream.ID())

	ctx, cancel := context.WithCancel(context.Background())
	go pump(ctx, reader, an, log)

	an.onClose = func() error {
		cancel()
		return reader.Close()
	}
	return an, nil
}

// pump exits on the first read after cancellation. A reader that cannot
// interrupt a pending Read keeps pump parked until its next chunk.
func pump(ctx context.Context, reader media.SampleReader, an *Analyser, log logger.Logger) {
	for {
		samples, err := reader.Read()
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				log.Debug("analyser source ended", "error", err)
			}
			return
		}
		an.Write(samples)
	}
}

var _ vad.AnalysisNode = (*Analyser)(nil)
