package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// Command feeds lines to the standard input of a child process.
type Command struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
	waited chan struct{}
	err    error // exit status, valid once waited is closed
}

// CommandOption configures a Command sink.
type CommandOption func(*commandOptions)

type commandOptions struct {
	logger *slog.Logger
	stdout io.Writer
	stderr io.Writer
}

// WithLogger sets the logger used for process lifecycle events.
func WithLogger(l *slog.Logger) CommandOption {
	return func(o *commandOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithOutput redirects the child's stdout and stderr. By default they are
// inherited.
func WithOutput(stdout, stderr io.Writer) CommandOption {
	return func(o *commandOptions) {
		o.stdout, o.stderr = stdout, stderr
	}
}

// ShellArgv turns a command string into an argv that runs it through sh -c,
// so quoting follows the usual shell word rules.
func ShellArgv(command string) []string {
	return []string{"sh", "-c", "exec " + command}
}

// StartCommand starts argv[0] with the remaining arguments and returns a sink
// writing to its stdin. The process is killed when ctx is cancelled.
func StartCommand(ctx context.Context, argv []string, opts ...CommandOption) (*Command, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return nil, errors.New("sink: empty command")
	}
	o := commandOptions{
		logger: slog.New(slog.DiscardHandler),
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(&o)
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = o.stdout
	cmd.Stderr = o.stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("sink: stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("sink: start %s: %w", argv[0], err)
	}
	o.logger.Info("display process started", "command", argv, "pid", cmd.Process.Pid)

	c := &Command{
		cmd:    cmd,
		stdin:  stdin,
		logger: o.logger,
		waited: make(chan struct{}),
	}
	go c.wait()
	return c, nil
}

func (c *Command) wait() {
	err := c.cmd.Wait()
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
	close(c.waited)
	c.logger.Info("display process exited", "pid", c.cmd.Process.Pid, "error", err)
}

// Pid returns the child's process ID.
func (c *Command) Pid() int { return c.cmd.Process.Pid }

// Done is closed when the child exits.
func (c *Command) Done() <-chan struct{} { return c.waited }

// WriteLine writes line and a newline to the child. Writing after the child
// has exited fails with a "went away" error.
func (c *Command) WriteLine(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrSinkClosed
	}
	if _, err := io.WriteString(c.stdin, line+"\n"); err != nil {
		if IsBrokenPipe(err) || errors.Is(err, os.ErrClosed) {
			return fmt.Errorf("sink: display process went away: %w", err)
		}
		return fmt.Errorf("sink: write: %w", err)
	}
	return nil
}

// Close closes the child's stdin and waits for it to exit. Closing twice is
// a no-op.
func (c *Command) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	closeErr := c.stdin.Close()
	c.mu.Unlock()

	<-c.waited
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return fmt.Errorf("sink: %s: %w", c.cmd.Path, c.err)
	}
	if closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
		return fmt.Errorf("sink: close stdin: %w", closeErr)
	}
	return nil
}
