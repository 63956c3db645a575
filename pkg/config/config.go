// Package config loads runtime settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/realtime-ai/streamview/pkg/audio"
	"github.com/realtime-ai/streamview/pkg/capture"
	"github.com/realtime-ai/streamview/pkg/playback"
	"github.com/realtime-ai/streamview/pkg/trace"
	"github.com/realtime-ai/streamview/pkg/vad"
)

type Config struct {
	Server struct {
		Addr string
	}
	Log struct {
		Level string
	}
	Endpoint struct {
		Remote bool
	}
	Capture struct {
		Video            bool
		Width            int
		Height           int
		FrameRate        float64
		SampleRate       int
		Channels         int
		EchoCancellation bool
		NoiseSuppression bool
	}
	VAD struct {
		Threshold      float64
		SilenceTimeout time.Duration
		TickInterval   time.Duration
		FFTSize        int
		Smoothing      float64
	}
	Playback struct {
		SampleRate     int
		PlayTimeout    time.Duration
		RequireGesture bool
	}
	Trace struct {
		Exporter    string
		Endpoint    string
		SampleRate  float64
		Environment string
	}
}

// Load reads .env files (if present) and the process environment. The
// environment wins over .env values.
func Load(envFiles ...string) (*Config, error) {
	if err := loadDotenv(envFiles...); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", ":8090")
	v.SetDefault("log.level", "info")
	v.SetDefault("endpoint.remote", false)

	v.SetDefault("capture.video", true)
	v.SetDefault("capture.width", 640)
	v.SetDefault("capture.height", 480)
	v.SetDefault("capture.frame_rate", 30)
	v.SetDefault("capture.sample_rate", 16000)
	v.SetDefault("capture.channels", 1)
	v.SetDefault("capture.echo_cancellation", true)
	v.SetDefault("capture.noise_suppression", true)

	v.SetDefault("vad.threshold", 20)
	v.SetDefault("vad.silence_timeout", 800*time.Millisecond)
	v.SetDefault("vad.tick_interval", 16*time.Millisecond)
	v.SetDefault("vad.fft_size", 512)
	v.SetDefault("vad.smoothing", 0.8)

	v.SetDefault("playback.sample_rate", 16000)
	v.SetDefault("playback.play_timeout", 5*time.Second)
	v.SetDefault("playback.require_gesture", true)

	v.SetDefault("trace.exporter", "none")
	v.SetDefault("trace.endpoint", "localhost:4317")
	v.SetDefault("trace.sample_rate", 1.0)
	v.SetDefault("trace.environment", "development")

	v.BindEnv("server.addr", "STREAMVIEW_ADDR")
	v.BindEnv("log.level", "LOG_LEVEL")
	v.BindEnv("endpoint.remote", "STREAMVIEW_REMOTE")

	v.BindEnv("capture.video", "STREAMVIEW_CAPTURE_VIDEO")
	v.BindEnv("capture.width", "STREAMVIEW_CAPTURE_WIDTH")
	v.BindEnv("capture.height", "STREAMVIEW_CAPTURE_HEIGHT")
	v.BindEnv("capture.frame_rate", "STREAMVIEW_CAPTURE_FRAME_RATE")
	v.BindEnv("capture.sample_rate", "STREAMVIEW_CAPTURE_SAMPLE_RATE")
	v.BindEnv("capture.channels", "STREAMVIEW_CAPTURE_CHANNELS")
	v.BindEnv("capture.echo_cancellation", "STREAMVIEW_CAPTURE_ECHO_CANCELLATION")
	v.BindEnv("capture.noise_suppression", "STREAMVIEW_CAPTURE_NOISE_SUPPRESSION")

	v.BindEnv("vad.threshold", "STREAMVIEW_VAD_THRESHOLD")
	v.BindEnv("vad.silence_timeout", "STREAMVIEW_VAD_SILENCE_TIMEOUT")
	v.BindEnv("vad.tick_interval", "STREAMVIEW_VAD_TICK_INTERVAL")
	v.BindEnv("vad.fft_size", "STREAMVIEW_VAD_FFT_SIZE")
	v.BindEnv("vad.smoothing", "STREAMVIEW_VAD_SMOOTHING")

	v.BindEnv("playback.sample_rate", "STREAMVIEW_PLAYBACK_SAMPLE_RATE")
	v.BindEnv("playback.play_timeout", "STREAMVIEW_PLAYBACK_TIMEOUT")
	v.BindEnv("playback.require_gesture", "STREAMVIEW_PLAYBACK_REQUIRE_GESTURE")

	v.BindEnv("trace.exporter", "TRACE_EXPORTER")
	v.BindEnv("trace.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
	v.BindEnv("trace.sample_rate", "TRACE_SAMPLE_RATE")
	v.BindEnv("trace.environment", "ENVIRONMENT")

	var c Config
	c.Server.Addr = v.GetString("server.addr")
	c.Log.Level = v.GetString("log.level")
	c.Endpoint.Remote = v.GetBool("endpoint.remote")

	c.Capture.Video = v.GetBool("capture.video")
	c.Capture.Width = v.GetInt("capture.width")
	c.Capture.Height = v.GetInt("capture.height")
	c.Capture.FrameRate = v.GetFloat64("capture.frame_rate")
	c.Capture.SampleRate = v.GetInt("capture.sample_rate")
	c.Capture.Channels = v.GetInt("capture.channels")
	c.Capture.EchoCancellation = v.GetBool("capture.echo_cancellation")
	c.Capture.NoiseSuppression = v.GetBool("capture.noise_suppression")

	c.VAD.Threshold = v.GetFloat64("vad.threshold")
	c.VAD.SilenceTimeout = v.GetDuration("vad.silence_timeout")
	c.VAD.TickInterval = v.GetDuration("vad.tick_interval")
	c.VAD.FFTSize = v.GetInt("vad.fft_size")
	c.VAD.Smoothing = v.GetFloat64("vad.smoothing")

	c.Playback.SampleRate = v.GetInt("playback.sample_rate")
	c.Playback.PlayTimeout = v.GetDuration("playback.play_timeout")
	c.Playback.RequireGesture = v.GetBool("playback.require_gesture")

	c.Trace.Exporter = v.GetString("trace.exporter")
	c.Trace.Endpoint = v.GetString("trace.endpoint")
	c.Trace.SampleRate = v.GetFloat64("trace.sample_rate")
	c.Trace.Environment = v.GetString("trace.environment")

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// loadDotenv loads the given files, or ".env" when none are given. Missing
// files are skipped.
func loadDotenv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// Validate checks the settings the engine cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if n := c.VAD.FFTSize; n < 32 || n&(n-1) != 0 {
		errs = append(errs, fmt.Errorf("vad fft size %d must be a power of two >= 32", n))
	}
	// The monitor treats a zero threshold as unset, so it is rejected here.
	if c.VAD.Threshold <= 0 || c.VAD.Threshold > 255 {
		errs = append(errs, fmt.Errorf("vad threshold %v outside (0, 255]", c.VAD.Threshold))
	}
	if c.VAD.Smoothing < 0 || c.VAD.Smoothing > 1 {
		errs = append(errs, fmt.Errorf("vad smoothing %v outside 0..1", c.VAD.Smoothing))
	}
	if c.VAD.SilenceTimeout <= 0 {
		errs = append(errs, errors.New("vad silence timeout must be positive"))
	}
	if c.VAD.TickInterval <= 0 {
		errs = append(errs, errors.New("vad tick interval must be positive"))
	}
	if c.Playback.PlayTimeout <= 0 {
		errs = append(errs, errors.New("playback timeout must be positive"))
	}
	if c.Playback.SampleRate <= 0 {
		errs = append(errs, errors.New("playback sample rate must be positive"))
	}
	if c.Capture.Width <= 0 || c.Capture.Height <= 0 {
		errs = append(errs, fmt.Errorf("capture size %dx%d must be positive", c.Capture.Width, c.Capture.Height))
	}
	if c.Capture.SampleRate <= 0 || c.Capture.Channels <= 0 {
		errs = append(errs, errors.New("capture sample rate and channels must be positive"))
	}
	if c.Trace.SampleRate < 0 || c.Trace.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("trace sample rate %v outside 0..1", c.Trace.SampleRate))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) CaptureConstraints() capture.Constraints {
	return capture.Constraints{
		Video:            c.Capture.Video,
		Width:            c.Capture.Width,
		Height:           c.Capture.Height,
		FrameRate:        c.Capture.FrameRate,
		Audio:            true,
		SampleRate:       c.Capture.SampleRate,
		ChannelCount:     c.Capture.Channels,
		EchoCancellation: c.Capture.EchoCancellation,
		NoiseSuppression: c.Capture.NoiseSuppression,
	}
}

func (c *Config) MonitorConfig() vad.MonitorConfig {
	return vad.MonitorConfig{
		Threshold:      c.VAD.Threshold,
		SilenceTimeout: c.VAD.SilenceTimeout,
		TickInterval:   c.VAD.TickInterval,
	}
}

func (c *Config) AnalyserConfig() audio.AnalyserConfig {
	cfg := audio.DefaultAnalyserConfig()
	cfg.FFTSize = c.VAD.FFTSize
	cfg.Smoothing = c.VAD.Smoothing
	return cfg
}

func (c *Config) SinkConfig() playback.DeviceSinkConfig {
	return playback.DeviceSinkConfig{
		SampleRate:     c.Playback.SampleRate,
		RequireGesture: c.Playback.RequireGesture,
	}
}

func (c *Config) TraceConfig() *trace.Config {
	cfg := trace.DefaultConfig()
	cfg.ExporterType = c.Trace.Exporter
	cfg.OTLPEndpoint = c.Trace.Endpoint
	cfg.SamplingRate = c.Trace.SampleRate
	cfg.Environment = c.Trace.Environment
	return cfg
}
