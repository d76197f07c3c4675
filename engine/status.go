package engine

import "fmt"

// StatusCode is the engine's numeric result code for a generation or
// resolution call.
type StatusCode int

const (
	// StatusOK indicates success
	StatusOK StatusCode = 0
	// StatusUnspecified is a generic engine failure
	StatusUnspecified StatusCode = 1
	// StatusInvalidGeometry indicates inline geometry buffers the engine
	// rejected as structurally malformed
	StatusInvalidGeometry StatusCode = 2
	// StatusResolveFailed indicates a rule package or geometry file could
	// not be resolved
	StatusResolveFailed StatusCode = 3
	// StatusEncoderFailed indicates an encoder rejected its options or
	// failed while writing output
	StatusEncoderFailed StatusCode = 4
	// StatusRuleError indicates rule execution itself failed
	StatusRuleError StatusCode = 5
)

// Description returns the engine's human-readable text for a code.
func (c StatusCode) Description() string {
	switch c {
	case StatusOK:
		return "ok"
	case StatusInvalidGeometry:
		return "invalid geometry"
	case StatusResolveFailed:
		return "resolve failed"
	case StatusEncoderFailed:
		return "encoder failed"
	case StatusRuleError:
		return "rule execution failed"
	default:
		return "unspecified error"
	}
}

// StatusError is a non-OK engine status surfaced as a Go error. The
// orchestrator logs both the description and the numeric code.
type StatusError struct {
	Code        StatusCode
	Description string
}

// NewStatusError builds a StatusError, filling the description from the
// code when none is supplied.
func NewStatusError(code StatusCode, description string) *StatusError {
	if description == "" {
		description = code.Description()
	}
	return &StatusError{Code: code, Description: description}
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("engine status '%s' (%d)", e.Description, e.Code)
}
