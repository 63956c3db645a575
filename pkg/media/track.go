// Package media models the live stream handed to the presentation core: a
// mutable set of audio and video tracks identified by a stream id.
package media

// Kind is the media kind of a Track.
type Kind int

const (
	KindAudio Kind = iota
	KindVideo
)

func (k Kind) String() string {
	switch k {
	case KindAudio:
		return "audio"
	case KindVideo:
		return "video"
	default:
		return "unknown"
	}
}

// Track is a single audio or video track.
type Track interface {
	ID() string
	Kind() Kind
	// Stop ends the track and releases the device behind it. Implementations
	// must tolerate repeated calls.
	Stop() error
}

// SampleReader yields mono PCM chunks normalised to [-1, 1].
type SampleReader interface {
	// Read blocks until the next chunk is available.
	Read() ([]float32, error)
	SampleRate() int
	Close() error
}

// SampleSource is implemented by audio tracks whose samples can be tapped.
type SampleSource interface {
	NewSampleReader() (SampleReader, error)
}
