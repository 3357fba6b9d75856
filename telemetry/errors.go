package telemetry

import (
	"errors"
	"fmt"
)

var (
	// ErrStreamParse marks a malformed, truncated or abandoned input stream.
	ErrStreamParse = errors.New("sensor stream parse error")

	ErrNotAnObject      = errors.New("record is not an object")
	ErrMissingVehicleID = errors.New("missing vehicle_id")
	ErrInvalidVehicleID = errors.New("invalid vehicle_id")
	ErrMissingSpeed     = errors.New("missing speed")
	ErrInvalidSpeed     = errors.New("speed is not a number")
	ErrNonFiniteSpeed   = errors.New("speed is not finite")
	ErrEmptyPath        = errors.New("empty record path")
	errTrailingContent  = errors.New("unexpected content after document")
)

// StreamParseError is fatal to an aggregation call. Cause holds the parser or
// context error that stopped the stream.
type StreamParseError struct {
	Records int
	Cause   error
}

func (e *StreamParseError) Error() string {
	return fmt.Sprintf("%s after %d records: %v", ErrStreamParse, e.Records, e.Cause)
}

func (e *StreamParseError) Unwrap() []error {
	return []error{ErrStreamParse, e.Cause}
}

// RecordSkippedError describes one rejected record. The stream continues past it.
type RecordSkippedError struct {
	Index  int
	Reason error
}

func (e *RecordSkippedError) Error() string {
	return fmt.Sprintf("record %d skipped: %v", e.Index, e.Reason)
}

func (e *RecordSkippedError) Unwrap() error {
	return e.Reason
}
