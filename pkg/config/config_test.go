package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realtime-ai/streamview/pkg/capture"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":8090", c.Server.Addr)
	assert.Equal(t, "info", c.Log.Level)
	assert.False(t, c.Endpoint.Remote)

	assert.True(t, c.Capture.Video)
	assert.Equal(t, 640, c.Capture.Width)
	assert.Equal(t, 480, c.Capture.Height)
	assert.Equal(t, 30.0, c.Capture.FrameRate)
	assert.Equal(t, 16000, c.Capture.SampleRate)
	assert.Equal(t, 1, c.Capture.Channels)
	assert.True(t, c.Capture.EchoCancellation)
	assert.True(t, c.Capture.NoiseSuppression)

	assert.Equal(t, 20.0, c.VAD.Threshold)
	assert.Equal(t, 800*time.Millisecond, c.VAD.SilenceTimeout)
	assert.Equal(t, 16*time.Millisecond, c.VAD.TickInterval)
	assert.Equal(t, 512, c.VAD.FFTSize)
	assert.Equal(t, 0.8, c.VAD.Smoothing)

	assert.Equal(t, 16000, c.Playback.SampleRate)
	assert.Equal(t, 5*time.Second, c.Playback.PlayTimeout)
	assert.Equal(t, "none", c.Trace.Exporter)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("STREAMVIEW_ADDR", ":9999")
	t.Setenv("STREAMVIEW_REMOTE", "true")
	t.Setenv("STREAMVIEW_VAD_SILENCE_TIMEOUT", "1s")
	t.Setenv("STREAMVIEW_VAD_THRESHOLD", "35")
	t.Setenv("LOG_LEVEL", "debug")

	c, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, ":9999", c.Server.Addr)
	assert.True(t, c.Endpoint.Remote)
	assert.Equal(t, time.Second, c.VAD.SilenceTimeout)
	assert.Equal(t, 35.0, c.VAD.Threshold)
	assert.Equal(t, "debug", c.Log.Level)
}

func TestLoadDotenvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("STREAMVIEW_CAPTURE_WIDTH=1280\nSTREAMVIEW_CAPTURE_HEIGHT=720\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("STREAMVIEW_CAPTURE_WIDTH")
		os.Unsetenv("STREAMVIEW_CAPTURE_HEIGHT")
	})

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1280, c.Capture.Width)
	assert.Equal(t, 720, c.Capture.Height)
}

func TestEnvironmentWinsOverDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("STREAMVIEW_ADDR=:1111\n"), 0o600))
	t.Setenv("STREAMVIEW_ADDR", ":2222")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":2222", c.Server.Addr)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("STREAMVIEW_VAD_FFT_SIZE", "500")
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "power of two")
}

func TestValidate(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	bad := *c
	bad.VAD.Threshold = 300
	bad.VAD.SilenceTimeout = 0
	err = bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "threshold")
	assert.Contains(t, err.Error(), "silence timeout")

	bad = *c
	bad.VAD.Threshold = 0
	err = bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "threshold")

	bad = *c
	bad.VAD.Threshold = 255
	assert.NoError(t, bad.Validate())

	bad = *c
	bad.Trace.SampleRate = 2
	assert.Error(t, bad.Validate())

	assert.NoError(t, c.Validate())
}

func TestComponentConfigs(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, capture.DefaultConstraints(), c.CaptureConstraints())

	mc := c.MonitorConfig()
	assert.Equal(t, 20.0, mc.Threshold)
	assert.Equal(t, 800*time.Millisecond, mc.SilenceTimeout)

	ac := c.AnalyserConfig()
	assert.Equal(t, 512, ac.FFTSize)
	assert.Equal(t, 0.8, ac.Smoothing)
	assert.Less(t, ac.MinDecibels, ac.MaxDecibels)

	sc := c.SinkConfig()
	assert.Equal(t, 16000, sc.SampleRate)
	assert.True(t, sc.RequireGesture)

	tc := c.TraceConfig()
	assert.Equal(t, "none", tc.ExporterType)
	assert.Equal(t, "streamview", tc.ServiceName)
}
