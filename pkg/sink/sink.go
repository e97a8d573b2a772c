// Package sink delivers finished status lines to their consumer: a
// long-running display process such as dzen2 or lemonbar, or any writer such
// as stdout.
package sink

import (
	"errors"
	"syscall"

	"golang.org/x/sys/unix"
)

// ErrSinkClosed is returned by WriteLine after Close.
var ErrSinkClosed = errors.New("sink closed")

// Sink consumes status lines.
type Sink interface {
	// WriteLine writes line followed by a newline. The line must not
	// contain a newline itself.
	WriteLine(line string) error
	// Close releases the sink. For a process sink it waits for the
	// process to exit.
	Close() error
}

// IsBrokenPipe reports whether err means the reader went away.
func IsBrokenPipe(err error) bool {
	return errors.Is(err, unix.EPIPE) || errors.Is(err, syscall.EPIPE)
}
