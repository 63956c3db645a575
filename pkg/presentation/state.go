package presentation

import "fmt"

// State is the single presentation state exposed to the rendering layer.
type State int

const (
	StateLoading State = iota
	StateError
	StateIdle
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateError:
		return "error"
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "loading":
		*s = StateLoading
	case "error":
		*s = StateError
	case "idle":
		*s = StateIdle
	case "playing":
		*s = StatePlaying
	default:
		return fmt.Errorf("unknown presentation state %q", text)
	}
	return nil
}

// Snapshot is the observable state of a Controller at one instant.
type Snapshot struct {
	State State `json:"state"`
	// ErrorMessage is set only in StateError.
	ErrorMessage string `json:"error_message,omitempty"`
	Speaking     bool   `json:"speaking"`
	HasStream    bool   `json:"has_stream"`
	Remote       bool   `json:"remote"`
	Muted        bool   `json:"muted"`
}
