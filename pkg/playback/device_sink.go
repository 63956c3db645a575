package playback

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/realtime-ai/streamview/pkg/audio"
	"github.com/realtime-ai/streamview/pkg/logger"
	"github.com/realtime-ai/streamview/pkg/media"
)

const periodMs = 20

// DeviceSinkConfig configures a DeviceSink.
type DeviceSinkConfig struct {
	SampleRate int
	// RequireGesture makes unmuted Play fail with ErrAutoplayBlocked until a
	// user interaction has been observed through UnlockOn.
	RequireGesture bool
}

// DeviceSink renders the attached stream's first readable audio track
// through the default playback device. Video is not rendered here; the
// presentation layer draws it.
type DeviceSink struct {
	cfg DeviceSinkConfig
	log logger.Logger

	pacer *audio.Pacer

	mu       sync.Mutex
	stream   *media.Stream
	reader   media.SampleReader
	muted    bool
	unlocked bool

	ctx    *malgo.AllocatedContext
	device *malgo.Device
}

func NewDeviceSink(cfg DeviceSinkConfig, log logger.Logger) *DeviceSink {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &DeviceSink{
		cfg:   cfg,
		log:   log.With("component", "device_sink"),
		pacer: audio.NewPacer(cfg.SampleRate, audio.DefaultPrerollMs, audio.DefaultMaxBufferedMs),
	}
}

// UnlockOn lifts the gesture requirement after the first interaction from
// src. Register it before the Policy's binding so the unlock is visible to
// the retry.
func (s *DeviceSink) UnlockOn(src InteractionSource) (cancel func()) {
	return src.OnInteraction(func(i Interaction) {
		if !i.Kind.Unlocks() {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.unlocked {
			s.unlocked = true
			s.log.Debug("playback unlocked by gesture")
		}
	})
}

func (s *DeviceSink) Attach(stream *media.Stream) error {
	s.Detach()

	var source media.SampleSource
	for _, t := range stream.AudioTracks() {
		if src, ok := t.(media.SampleSource); ok {
			source = src
			break
		}
	}

	s.mu.Lock()
	s.stream = stream
	s.mu.Unlock()

	if source == nil {
		s.log.Debug("stream has no playable audio", "stream_id", stream.ID())
		return nil
	}

	reader, err := source.NewSampleReader()
	if err != nil {
		return fmt.Errorf("failed to open audio reader: %w", err)
	}

	s.mu.Lock()
	s.reader = reader
	s.mu.Unlock()

	go s.pump(stream.ID(), reader)
	return nil
}

// pump drops chunks whose rate differs from the device rate.
func (s *DeviceSink) pump(streamID string, reader media.SampleReader) {
	warned := false
	for {
		samples, err := reader.Read()
		if err != nil {
			s.log.Debug("playback source ended", "stream_id", streamID, "error", err)
			return
		}
		if rate := reader.SampleRate(); rate != 0 && rate != s.cfg.SampleRate {
			if !warned {
				s.log.Warn("dropping audio at unexpected sample rate", "stream_id", streamID, "rate", rate, "want", s.cfg.SampleRate)
				warned = true
			}
			continue
		}
		s.pacer.Write(samples)
	}
}

func (s *DeviceSink) Detach() {
	s.mu.Lock()
	reader := s.reader
	s.reader = nil
	s.stream = nil
	s.mu.Unlock()

	if reader != nil {
		if err := reader.Close(); err != nil {
			s.log.Warn("failed to close audio reader", "error", err)
		}
	}
	s.pacer.Clear()
}

// Play starts the playback device. Muted playback is always allowed.
func (s *DeviceSink) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.RequireGesture && !s.muted && !s.unlocked {
		return ErrAutoplayBlocked
	}
	if s.device != nil {
		return nil
	}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize audio context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.PeriodSizeInMilliseconds = periodMs
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = 1
	deviceConfig.SampleRate = uint32(s.cfg.SampleRate)
	deviceConfig.Alsa.NoMMap = 1

	var scratch []float32
	device, err := malgo.InitDevice(mctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: func(outputSamples, inputSamples []byte, framecount uint32) {
			n := int(framecount)
			if cap(scratch) < n {
				scratch = make([]float32, n)
			}
			scratch = scratch[:n]
			s.pacer.Fill(scratch)
			for i, v := range scratch {
				binary.LittleEndian.PutUint32(outputSamples[i*4:], math.Float32bits(v))
			}
		},
	})
	if err != nil {
		_ = mctx.Uninit()
		mctx.Free()
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		_ = mctx.Uninit()
		mctx.Free()
		return fmt.Errorf("failed to start playback device: %w", err)
	}

	s.ctx = mctx
	s.device = device
	s.log.Info("playback device started", "sample_rate", s.cfg.SampleRate)
	return nil
}

func (s *DeviceSink) SetMuted(muted bool) {
	s.mu.Lock()
	s.muted = muted
	s.mu.Unlock()

	if muted {
		s.pacer.Pause()
	} else {
		s.pacer.Resume()
	}
}

func (s *DeviceSink) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

func (s *DeviceSink) SetVolume(volume float64) {
	s.pacer.SetGain(float32(volume))
}

// Close detaches and releases the playback device.
func (s *DeviceSink) Close() error {
	s.Detach()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.device != nil {
		_ = s.device.Stop()
		s.device.Uninit()
		s.device = nil
	}
	if s.ctx != nil {
		_ = s.ctx.Uninit()
		s.ctx.Free()
		s.ctx = nil
	}
	return nil
}

var _ Sink = (*DeviceSink)(nil)
