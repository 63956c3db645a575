// Package audio provides the sample buffers and the frequency analyser that
// feed voice-activity detection and local playout.
//
// SampleRing keeps the most recent N mono samples. The analyser reads it as
// its time-domain window; producers write whatever chunk sizes the capture
// device delivers.
//
// Usage:
//
//	ring := NewSampleRing(512)
//	ring.Write(chunk)
//	window := ring.Snapshot(make([]float32, 512))
package audio

import (
	"sync"
)

// SampleRing is a fixed-size circular buffer of float32 samples.
type SampleRing struct {
	data     []float32
	capacity int
	writePos int
	size     int
	mu       sync.Mutex
}

// NewSampleRing creates a ring holding the last capacity samples.
func NewSampleRing(capacity int) *SampleRing {
	if capacity <= 0 {
		capacity = 1
	}
	return &SampleRing{
		data:     make([]float32, capacity),
		capacity: capacity,
	}
}

// Write appends samples, overwriting the oldest when full.
func (rb *SampleRing) Write(samples []float32) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	n := len(samples)
	if n == 0 {
		return
	}

	// Only the newest capacity samples can survive.
	if n >= rb.capacity {
		copy(rb.data, samples[n-rb.capacity:])
		rb.writePos = 0
		rb.size = rb.capacity
		return
	}

	spaceToEnd := rb.capacity - rb.writePos
	if n <= spaceToEnd {
		copy(rb.data[rb.writePos:], samples)
		rb.writePos += n
		if rb.writePos == rb.capacity {
			rb.writePos = 0
		}
	} else {
		copy(rb.data[rb.writePos:], samples[:spaceToEnd])
		copy(rb.data, samples[spaceToEnd:])
		rb.writePos = n - spaceToEnd
	}

	rb.size += n
	if rb.size > rb.capacity {
		rb.size = rb.capacity
	}
}

// Snapshot copies the buffered samples, oldest first, into the tail of dst and
// zero-fills any leading slots that have not been written yet. dst must have
// length Capacity(); it is returned for convenience.
func (rb *SampleRing) Snapshot(dst []float32) []float32 {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if len(dst) != rb.capacity {
		dst = make([]float32, rb.capacity)
	}

	lead := rb.capacity - rb.size
	for i := 0; i < lead; i++ {
		dst[i] = 0
	}
	if rb.size == 0 {
		return dst
	}

	if rb.size < rb.capacity {
		copy(dst[lead:], rb.data[:rb.size])
		return dst
	}

	firstPartLen := rb.capacity - rb.writePos
	copy(dst[:firstPartLen], rb.data[rb.writePos:])
	copy(dst[firstPartLen:], rb.data[:rb.writePos])
	return dst
}

// Clear empties the ring.
func (rb *SampleRing) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.writePos = 0
	rb.size = 0
}

// Size returns the number of buffered samples.
func (rb *SampleRing) Size() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.size
}

// Capacity returns the window length.
func (rb *SampleRing) Capacity() int {
	return rb.capacity
}
