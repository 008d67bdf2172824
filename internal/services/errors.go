package services

import (
	"errors"
	"fmt"
)

// ErrRunInProgress is returned when another run holds the sync lock.
var ErrRunInProgress = errors.New("a schedule sync run is already in progress")

// SourceError wraps failures of the Moodle activity query or enrolment lookup.
type SourceError struct {
	Op  string
	Err error
}

func (e *SourceError) Error() string { return fmt.Sprintf("source of record: %s: %v", e.Op, e.Err) }

func (e *SourceError) Unwrap() error { return e.Err }

// StorageError wraps failures of the fingerprint cache.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("fingerprint storage: %s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }

// TransmissionError is a non-2xx answer or a transport failure from the
// load balancer. StatusCode is 0 when no response was received.
type TransmissionError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *TransmissionError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("load balancer unreachable: %v", e.Err)
	}
	return fmt.Sprintf("API answered with code %d", e.StatusCode)
}

func (e *TransmissionError) Unwrap() error { return e.Err }
