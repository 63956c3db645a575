package capture

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/pion/mediadevices"
	mdaudio "github.com/pion/mediadevices/pkg/io/audio"
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/pion/mediadevices/pkg/wave"
	"github.com/pion/webrtc/v4"

	"github.com/realtime-ai/streamview/pkg/logger"
	"github.com/realtime-ai/streamview/pkg/media"
)

// DeviceCapturer captures from the drivers registered with pion/mediadevices.
// The binary registers camera and microphone drivers when built with cgo.
//
// mediadevices has no echo cancellation or noise suppression properties, so
// those constraints are logged but not forwarded.
type DeviceCapturer struct {
	log          logger.Logger
	getUserMedia func(mediadevices.MediaStreamConstraints) (mediadevices.MediaStream, error)
}

func NewDeviceCapturer(log logger.Logger) *DeviceCapturer {
	if log == nil {
		log = logger.NewNop()
	}
	return &DeviceCapturer{
		log:          log.With("component", "device_capturer"),
		getUserMedia: mediadevices.GetUserMedia,
	}
}

// Capture implements Capturer. GetUserMedia cannot be aborted once issued;
// ctx is only checked before the request.
func (d *DeviceCapturer) Capture(ctx context.Context, c Constraints) (*media.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, &AcquisitionError{Reason: ReasonPlatform, Err: err}
	}
	if !c.Video && !c.Audio {
		return nil, fmt.Errorf("%w: neither audio nor video requested", ErrConstraintsUnsatisfiable)
	}

	md, err := d.getUserMedia(toMediaDevices(c))
	if err != nil {
		return nil, err
	}

	if c.EchoCancellation || c.NoiseSuppression {
		d.log.Debug("audio processing requested but not supported by driver",
			"echo_cancellation", c.EchoCancellation,
			"noise_suppression", c.NoiseSuppression)
	}

	var tracks []media.Track
	for _, t := range md.GetTracks() {
		tracks = append(tracks, newDeviceTrack(t))
	}
	return media.NewStream("", tracks...), nil
}

func toMediaDevices(c Constraints) mediadevices.MediaStreamConstraints {
	var msc mediadevices.MediaStreamConstraints
	if c.Video {
		msc.Video = func(constraint *mediadevices.MediaTrackConstraints) {
			constraint.Width = prop.Int(c.Width)
			constraint.Height = prop.Int(c.Height)
			constraint.FrameRate = prop.Float(c.FrameRate)
		}
	}
	if c.Audio {
		msc.Audio = func(constraint *mediadevices.MediaTrackConstraints) {
			constraint.SampleRate = prop.Int(c.SampleRate)
			constraint.ChannelCount = prop.Int(c.ChannelCount)
		}
	}
	return msc
}

// deviceTrack adapts a mediadevices track. Audio tracks expose their PCM.
type deviceTrack struct {
	track   mediadevices.Track
	once    sync.Once
	stopped atomic.Bool
	err     error
}

func newDeviceTrack(t mediadevices.Track) *deviceTrack {
	return &deviceTrack{track: t}
}

func (t *deviceTrack) ID() string {
	return t.track.ID()
}

func (t *deviceTrack) Kind() media.Kind {
	if t.track.Kind() == webrtc.RTPCodecTypeAudio {
		return media.KindAudio
	}
	return media.KindVideo
}

func (t *deviceTrack) Stop() error {
	t.once.Do(func() {
		t.stopped.Store(true)
		t.err = t.track.Close()
	})
	return t.err
}

func (t *deviceTrack) NewSampleReader() (media.SampleReader, error) {
	if t.stopped.Load() {
		return nil, ErrReleased
	}
	at, ok := t.track.(*mediadevices.AudioTrack)
	if !ok {
		return nil, fmt.Errorf("track %s does not carry raw audio", t.track.ID())
	}
	return &waveReader{track: t, reader: at.NewReader(false)}, nil
}

// waveReader downmixes mediadevices chunks to mono float32. The mediadevices
// reader cannot be interrupted, so Close does not wake a pending Read: that
// Read returns io.EOF once the next chunk arrives, or an error once the track
// stops.
type waveReader struct {
	track  *deviceTrack
	reader mdaudio.Reader
	rate   atomic.Int64
	closed atomic.Bool
}

func (r *waveReader) Read() ([]float32, error) {
	if r.closed.Load() {
		return nil, io.EOF
	}
	if r.track.stopped.Load() {
		return nil, ErrReleased
	}

	chunk, release, err := r.reader.Read()
	if release != nil {
		defer release()
	}
	if r.closed.Load() {
		return nil, io.EOF
	}
	if err != nil {
		return nil, err
	}

	info := chunk.ChunkInfo()
	r.rate.Store(int64(info.SamplingRate))
	channels := info.Channels
	if channels < 1 {
		channels = 1
	}

	out := make([]float32, info.Len)
	switch c := chunk.(type) {
	case *wave.Float32Interleaved:
		for i := range out {
			var sum float32
			for ch := 0; ch < channels; ch++ {
				sum += c.Data[i*channels+ch]
			}
			out[i] = sum / float32(channels)
		}
	case *wave.Int16Interleaved:
		for i := range out {
			var sum float32
			for ch := 0; ch < channels; ch++ {
				sum += float32(c.Data[i*channels+ch]) / 32768
			}
			out[i] = sum / float32(channels)
		}
	default:
		return nil, fmt.Errorf("unsupported sample format %T", chunk)
	}
	return out, nil
}

func (r *waveReader) SampleRate() int {
	return int(r.rate.Load())
}

func (r *waveReader) Close() error {
	r.closed.Store(true)
	return nil
}

var (
	_ Capturer           = (*DeviceCapturer)(nil)
	_ media.SampleSource = (*deviceTrack)(nil)
)
