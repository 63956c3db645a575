package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ones(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

func TestPacerPrerollReturnsSilence(t *testing.T) {
	p := NewPacer(1000, 10, 100) // preroll 10 samples
	p.Write(ones(5))

	out := make([]float32, 4)
	p.Fill(out)
	assert.Equal(t, []float32{0, 0, 0, 0}, out)
	assert.Equal(t, 5, p.Available())

	p.Write(ones(5))
	p.Fill(out)
	assert.Equal(t, []float32{1, 1, 1, 1}, out)
	assert.Equal(t, 6, p.Available())
}

func TestPacerStarvationPadsSilence(t *testing.T) {
	p := NewPacer(1000, 0, 100)
	p.Write(ones(2))

	out := make([]float32, 4)
	p.Fill(out)
	assert.Equal(t, []float32{1, 1, 0, 0}, out)
	assert.Equal(t, 0, p.Available())
}

func TestPacerPauseDrainsButSilences(t *testing.T) {
	p := NewPacer(1000, 0, 100)
	p.Write(ones(8))
	p.Pause()
	assert.True(t, p.IsPaused())

	out := make([]float32, 4)
	p.Fill(out)
	assert.Equal(t, []float32{0, 0, 0, 0}, out)
	assert.Equal(t, 4, p.Available())

	p.Resume()
	p.Fill(out)
	assert.Equal(t, []float32{1, 1, 1, 1}, out)
}

func TestPacerGain(t *testing.T) {
	p := NewPacer(1000, 0, 100)
	p.SetGain(0.5)
	p.Write(ones(2))

	out := make([]float32, 2)
	p.Fill(out)
	assert.Equal(t, []float32{0.5, 0.5}, out)

	p.SetGain(3)
	assert.Equal(t, float32(1), p.Gain())
	p.SetGain(-1)
	assert.Equal(t, float32(0), p.Gain())
}

func TestPacerBoundsLatency(t *testing.T) {
	p := NewPacer(1000, 0, 10) // cap 10 samples
	p.Write(seq(0, 25))
	assert.Equal(t, 10, p.Available())

	out := make([]float32, 2)
	p.Fill(out)
	assert.Equal(t, []float32{15, 16}, out)
}

func TestPacerClearRestartsPreroll(t *testing.T) {
	p := NewPacer(1000, 5, 100)
	p.Write(ones(10))
	out := make([]float32, 1)
	p.Fill(out)
	assert.Equal(t, float32(1), out[0])

	p.Clear()
	p.Write(ones(2))
	p.Fill(out)
	assert.Equal(t, float32(0), out[0])
}
