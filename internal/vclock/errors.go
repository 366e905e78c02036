package vclock

import (
	"errors"
	"fmt"
)

// JourneyError reports why a journey was refused or abandoned.
//
// Journey errors include:
//   - Concurrent journey: Travel called while another journey is in flight
//   - Scheduled async: a callback did not complete within its turn
//   - Callback failed: a callback returned an error or panicked
//
// Positions committed before the failing batch stay committed; the engine
// never retries. Recovery (usually Reset) is up to the caller.
type JourneyError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Journey identifies the refused or abandoned journey, if one started.
	Journey string

	// Ticket identifies the offending event (scheduled async and callback
	// failures only).
	Ticket string

	// Position is the ordinate of the offending batch, as a decimal string.
	Position string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes journey errors.
type ErrorCode string

const (
	// ErrCodeConcurrentJourney indicates a journey was already in flight.
	ErrCodeConcurrentJourney ErrorCode = "CONCURRENT_JOURNEY"

	// ErrCodeScheduledAsync indicates a callback outlived its turn.
	ErrCodeScheduledAsync ErrorCode = "SCHEDULED_ASYNC"

	// ErrCodeCallbackFailed indicates a callback returned an error.
	ErrCodeCallbackFailed ErrorCode = "CALLBACK_FAILED"
)

// Error implements the error interface.
func (e *JourneyError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Position != "" {
		msg = fmt.Sprintf("%s (position=%s)", msg, e.Position)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *JourneyError) Unwrap() error {
	return e.Err
}

// NewConcurrentJourneyError creates a JourneyError for a refused Travel.
// current is the id of the journey already in flight.
func NewConcurrentJourneyError(current string) *JourneyError {
	return &JourneyError{
		Code:    ErrCodeConcurrentJourney,
		Message: "there is currently another journey going on",
		Journey: current,
	}
}

func newScheduledAsyncError(journey string, ev *event) *JourneyError {
	return &JourneyError{
		Code:     ErrCodeScheduledAsync,
		Message:  "scheduled function did not complete within its turn",
		Journey:  journey,
		Ticket:   ev.ticket.String(),
		Position: ev.position.String(),
	}
}

func newCallbackError(journey string, ev *event, err error) *JourneyError {
	return &JourneyError{
		Code:     ErrCodeCallbackFailed,
		Message:  "scheduled function failed",
		Journey:  journey,
		Ticket:   ev.ticket.String(),
		Position: ev.position.String(),
		Err:      err,
	}
}

// hasCode walks every JourneyError in err's chain, so a callback failure
// caused by a refused nested Travel matches both codes.
func hasCode(err error, code ErrorCode) bool {
	var je *JourneyError
	for errors.As(err, &je) {
		if je.Code == code {
			return true
		}
		err = je.Err
	}
	return false
}

// CodeOf returns the code of the outermost JourneyError in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var je *JourneyError
	if !errors.As(err, &je) {
		return "", false
	}
	return je.Code, true
}

// IsConcurrentJourney reports whether err is, or was caused by, a concurrent
// journey refusal. Uses errors.As to handle wrapped errors.
func IsConcurrentJourney(err error) bool {
	return hasCode(err, ErrCodeConcurrentJourney)
}

// IsScheduledAsync reports whether err is a scheduled async violation.
func IsScheduledAsync(err error) bool {
	return hasCode(err, ErrCodeScheduledAsync)
}

// IsCallbackFailed reports whether err comes from a failing callback.
func IsCallbackFailed(err error) bool {
	return hasCode(err, ErrCodeCallbackFailed)
}
