package sink

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
)

// Writer writes lines to an io.Writer.
type Writer struct {
	mu     sync.Mutex
	w      io.Writer
	closed bool
}

// NewWriter wraps w. Closing the sink does not close w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteLine writes line and a newline in a single call.
func (s *Writer) WriteLine(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSinkClosed
	}
	if _, err := io.WriteString(s.w, line+"\n"); err != nil {
		return fmt.Errorf("write line: %w", err)
	}
	return nil
}

// Close marks the sink closed.
func (s *Writer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// IsTerminal reports whether the underlying writer is a terminal.
func (s *Writer) IsTerminal() bool {
	f, ok := s.w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Width returns the terminal width in cells, or 0 when the writer is not a
// terminal.
func (s *Writer) Width() int {
	f, ok := s.w.(*os.File)
	if !ok || !s.IsTerminal() {
		return 0
	}
	return TerminalWidth(f.Fd())
}
