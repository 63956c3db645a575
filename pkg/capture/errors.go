package capture

import (
	"errors"
	"strings"
)

// Reason classifies why a capture request failed.
type Reason string

const (
	ReasonPermissionDenied         Reason = "permission_denied"
	ReasonNoDevice                 Reason = "no_device"
	ReasonConstraintsUnsatisfiable Reason = "constraints_unsatisfiable"
	ReasonPlatform                 Reason = "platform"
)

var (
	ErrPermissionDenied         = errors.New("permission denied")
	ErrNoDevice                 = errors.New("no capture device found")
	ErrConstraintsUnsatisfiable = errors.New("constraints cannot be satisfied")

	// ErrReleased is returned by operations on a track that was stopped.
	ErrReleased = errors.New("capture: track released")
)

// AcquisitionError is the only failure surfaced to the presentation layer.
type AcquisitionError struct {
	Reason Reason
	Err    error
}

func (e *AcquisitionError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return strings.ReplaceAll(string(e.Reason), "_", " ")
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}

// classify wraps err in an AcquisitionError, inferring the reason from
// sentinels first and from the platform's message text otherwise.
func classify(err error) *AcquisitionError {
	var acqErr *AcquisitionError
	if errors.As(err, &acqErr) {
		return acqErr
	}

	reason := ReasonPlatform
	switch {
	case errors.Is(err, ErrPermissionDenied):
		reason = ReasonPermissionDenied
	case errors.Is(err, ErrNoDevice):
		reason = ReasonNoDevice
	case errors.Is(err, ErrConstraintsUnsatisfiable):
		reason = ReasonConstraintsUnsatisfiable
	default:
		msg := strings.ToLower(err.Error())
		switch {
		case strings.Contains(msg, "permission"), strings.Contains(msg, "denied"), strings.Contains(msg, "not allowed"):
			reason = ReasonPermissionDenied
		case strings.Contains(msg, "no device"), strings.Contains(msg, "not found"), strings.Contains(msg, "no such"):
			reason = ReasonNoDevice
		case strings.Contains(msg, "failed to find the best driver"), strings.Contains(msg, "constraint"):
			reason = ReasonConstraintsUnsatisfiable
		}
	}
	return &AcquisitionError{Reason: reason, Err: err}
}
