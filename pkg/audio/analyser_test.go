package audio

import (
	"errors"
	"io"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realtime-ai/streamview/pkg/media"
	"github.com/realtime-ai/streamview/pkg/vad"
)

func meanOf(buf []byte) float64 {
	var sum float64
	for _, b := range buf {
		sum += float64(b)
	}
	return sum / float64(len(buf))
}

func TestNewAnalyserValidation(t *testing.T) {
	_, err := NewAnalyser(AnalyserConfig{FFTSize: 500})
	assert.Error(t, err)

	_, err = NewAnalyser(AnalyserConfig{FFTSize: 512, Smoothing: 1.5})
	assert.Error(t, err)

	_, err = NewAnalyser(AnalyserConfig{FFTSize: 512, MinDecibels: -20, MaxDecibels: -30})
	assert.Error(t, err)

	an, err := NewAnalyser(AnalyserConfig{})
	require.NoError(t, err)
	assert.Equal(t, 256, an.FrequencyBinCount())
}

func TestAnalyserSilenceIsZero(t *testing.T) {
	an, err := NewAnalyser(DefaultAnalyserConfig())
	require.NoError(t, err)

	an.Write(make([]float32, 512))
	buf := make([]byte, an.FrequencyBinCount())
	for i := 0; i < 3; i++ {
		an.ReadMagnitudes(buf)
	}
	assert.Equal(t, 0.0, meanOf(buf))
}

func TestAnalyserNoiseExceedsThreshold(t *testing.T) {
	an, err := NewAnalyser(DefaultAnalyserConfig())
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	noise := make([]float32, 512)
	for i := range noise {
		noise[i] = float32((rng.Float64()*2 - 1) * 0.3)
	}
	an.Write(noise)

	buf := make([]byte, an.FrequencyBinCount())
	for i := 0; i < 5; i++ {
		an.ReadMagnitudes(buf)
	}
	assert.Greater(t, meanOf(buf), 20.0)
}

func TestAnalyserSinePeak(t *testing.T) {
	an, err := NewAnalyser(AnalyserConfig{FFTSize: 512, Smoothing: 0})
	require.NoError(t, err)

	const rate = 16000.0
	sine := make([]float32, 512)
	for i := range sine {
		sine[i] = float32(0.01 * math.Sin(2*math.Pi*1000*float64(i)/rate))
	}
	an.Write(sine)

	buf := make([]byte, an.FrequencyBinCount())
	an.ReadMagnitudes(buf)

	peak := 0
	for k := range buf {
		if buf[k] > buf[peak] {
			peak = k
		}
	}
	// 1 kHz lands on bin 1000 * 512 / 16000.
	assert.Equal(t, 32, peak)
	assert.Greater(t, buf[32], buf[31])
	assert.Greater(t, buf[32], buf[33])
	assert.Equal(t, byte(0), buf[100])
}

func TestAnalyserSmoothingDecays(t *testing.T) {
	an, err := NewAnalyser(DefaultAnalyserConfig())
	require.NoError(t, err)

	sine := make([]float32, 512)
	for i := range sine {
		sine[i] = float32(0.5 * math.Sin(2*math.Pi*float64(i)/16))
	}
	an.Write(sine)

	buf := make([]byte, an.FrequencyBinCount())
	an.ReadMagnitudes(buf)
	loud := meanOf(buf)

	an.Write(make([]float32, 512))
	an.ReadMagnitudes(buf)
	decayed := meanOf(buf)

	assert.Greater(t, decayed, 0.0, "smoothing should keep some energy")
	assert.Less(t, decayed, loud)
}

func TestAnalyserShortDestination(t *testing.T) {
	an, err := NewAnalyser(DefaultAnalyserConfig())
	require.NoError(t, err)
	buf := make([]byte, 4)
	assert.NotPanics(t, func() { an.ReadMagnitudes(buf) })
}

// chanReader feeds chunks from a channel and unblocks on Close.
type chanReader struct {
	chunks chan []float32
	closed chan struct{}
	once   sync.Once
}

func newChanReader() *chanReader {
	return &chanReader{chunks: make(chan []float32, 8), closed: make(chan struct{})}
}

func (r *chanReader) Read() ([]float32, error) {
	select {
	case c := <-r.chunks:
		return c, nil
	case <-r.closed:
		return nil, io.EOF
	}
}

func (r *chanReader) SampleRate() int { return 16000 }

func (r *chanReader) Close() error {
	r.once.Do(func() { close(r.closed) })
	return nil
}

type tapTrack struct {
	id     string
	reader *chanReader
	err    error
}

func (t *tapTrack) ID() string       { return t.id }
func (t *tapTrack) Kind() media.Kind { return media.KindAudio }
func (t *tapTrack) Stop() error      { return nil }
func (t *tapTrack) NewSampleReader() (media.SampleReader, error) {
	if t.err != nil {
		return nil, t.err
	}
	return t.reader, nil
}

type plainTrack struct {
	id   string
	kind media.Kind
}

func (t *plainTrack) ID() string       { return t.id }
func (t *plainTrack) Kind() media.Kind { return t.kind }
func (t *plainTrack) Stop() error      { return nil }

func TestAnalyserFactory(t *testing.T) {
	f := &AnalyserFactory{Config: DefaultAnalyserConfig()}

	t.Run("nil stream", func(t *testing.T) {
		_, err := f.CreateAnalysisNode(nil)
		assert.ErrorIs(t, err, vad.ErrNoAudioTrack)
	})

	t.Run("video only", func(t *testing.T) {
		s := media.NewStream("v", &plainTrack{id: "v1", kind: media.KindVideo})
		_, err := f.CreateAnalysisNode(s)
		assert.ErrorIs(t, err, vad.ErrNoAudioTrack)
	})

	t.Run("audio without samples", func(t *testing.T) {
		s := media.NewStream("a", &plainTrack{id: "a1", kind: media.KindAudio})
		_, err := f.CreateAnalysisNode(s)
		assert.ErrorIs(t, err, vad.ErrAnalysisUnavailable)
	})

	t.Run("reader failure", func(t *testing.T) {
		s := media.NewStream("a", &tapTrack{id: "a1", err: errors.New("busy")})
		_, err := f.CreateAnalysisNode(s)
		assert.ErrorIs(t, err, vad.ErrAnalysisUnavailable)
	})

	t.Run("pumps samples until closed", func(t *testing.T) {
		reader := newChanReader()
		s := media.NewStream("a", &plainTrack{id: "v1", kind: media.KindVideo}, &tapTrack{id: "a1", reader: reader})

		node, err := f.CreateAnalysisNode(s)
		require.NoError(t, err)

		noise := make([]float32, 512)
		rng := rand.New(rand.NewSource(7))
		for i := range noise {
			noise[i] = float32((rng.Float64()*2 - 1) * 0.3)
		}
		reader.chunks <- noise

		buf := make([]byte, node.FrequencyBinCount())
		require.Eventually(t, func() bool {
			node.ReadMagnitudes(buf)
			return meanOf(buf) > 20
		}, time.Second, 5*time.Millisecond)

		require.NoError(t, node.Close())
		require.NoError(t, node.Close())
		select {
		case <-reader.closed:
		default:
			t.Fatal("reader was not closed")
		}
	})
}
