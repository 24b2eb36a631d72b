package relay

import (
	"errors"

	"github.com/rhuss/mediscribe/pkg/observability"
	"github.com/rhuss/mediscribe/pkg/transport"
)

// Outcome is the terminal state of one relay call.
type Outcome string

const (
	OutcomeCompleted        Outcome = observability.OutcomeCompleted
	OutcomeUpstreamError    Outcome = observability.OutcomeUpstreamError
	OutcomeClientDisconnect Outcome = observability.OutcomeClientDisconnect
	OutcomeOpenFailed       Outcome = observability.OutcomeOpenFailed
	OutcomeInvalidRequest   Outcome = observability.OutcomeInvalidRequest
)

var (
	// ErrIdleTimeout is the cause attached when no chunk arrives within
	// Config.IdleTimeout.
	ErrIdleTimeout = errors.New("backend idle timeout")

	// ErrMaxDuration is the cause attached when the whole stream exceeds
	// Config.MaxDuration.
	ErrMaxDuration = errors.New("stream exceeded maximum duration")

	// ErrClientDisconnected is returned when the client went away.
	ErrClientDisconnected = transport.ErrClientDisconnected
)

// OutcomeError carries the outcome of a failed relay call together with
// its cause.
type OutcomeError struct {
	Outcome Outcome
	Err     error
}

func (e *OutcomeError) Error() string {
	return string(e.Outcome) + ": " + e.Err.Error()
}

func (e *OutcomeError) Unwrap() error {
	return e.Err
}

// OutcomeOf returns the outcome encoded in err. A nil error is Completed.
func OutcomeOf(err error) Outcome {
	if err == nil {
		return OutcomeCompleted
	}
	var oe *OutcomeError
	if errors.As(err, &oe) {
		return oe.Outcome
	}
	return OutcomeUpstreamError
}
