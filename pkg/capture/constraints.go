package capture

// Constraints are the ideal characteristics requested from the capture
// devices. The platform may deliver something close instead.
type Constraints struct {
	Video     bool
	Width     int
	Height    int
	FrameRate float64

	Audio            bool
	SampleRate       int
	ChannelCount     int
	EchoCancellation bool
	NoiseSuppression bool
}

// DefaultConstraints asks for 640x480 at 30 fps and mono 16 kHz audio with
// echo cancellation and noise suppression.
func DefaultConstraints() Constraints {
	return Constraints{
		Video:            true,
		Width:            640,
		Height:           480,
		FrameRate:        30,
		Audio:            true,
		SampleRate:       16000,
		ChannelCount:     1,
		EchoCancellation: true,
		NoiseSuppression: true,
	}
}
