package scheduler

import (
	"errors"
	"time"
)

// EventID identifies an entered event for the lifetime of the scheduler.
// IDs are never reused.
type EventID uint64

// Action is the work attached to an event. A returned error is logged and
// the event is re-armed as usual, unless the error was wrapped with Halt.
type Action func() error

// ErrNonPositiveInterval is returned by Every for intervals <= 0.
var ErrNonPositiveInterval = errors.New("scheduler: interval must be positive")

// HaltError stops Run. Actions return it (via Halt) for failures that leave
// nothing useful to schedule, such as a dead output sink.
type HaltError struct {
	Err error
}

func (e *HaltError) Error() string { return "scheduler halted: " + e.Err.Error() }

func (e *HaltError) Unwrap() error { return e.Err }

// Halt wraps err so that Run returns it. Halt(nil) is nil.
func Halt(err error) error {
	if err == nil {
		return nil
	}
	return &HaltError{Err: err}
}

// event is a queue entry. The heap owns it while pending; the running loop
// owns it between pop and re-arm.
type event struct {
	id       EventID
	due      time.Time
	delay    time.Duration
	priority int
	seq      uint64
	action   Action

	cancelled bool
	index     int // position in the heap, -1 when not queued
}

// Stats holds counters for a scheduler.
type Stats struct {
	Pending  int   `json:"pending"`
	Fired    int64 `json:"fired"`
	Failures int64 `json:"failures"`
	Panics   int64 `json:"panics"`
}
