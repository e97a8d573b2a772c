// Package command turns the first line of a shell command's output into a
// widget value.
package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gitlab.com/tinyland/lab/statusfeed/pkg/collectors"
)

// Command runs a shell snippet through sh -c.
type Command struct {
	script   string
	template string
	run      collectors.Runner
}

// Option configures a Command.
type Option func(*Command)

// WithRunner replaces the subprocess runner.
func WithRunner(r collectors.Runner) Option {
	return func(c *Command) { c.run = r }
}

// WithTemplate wraps the output; {output} is replaced by the first line.
func WithTemplate(tmpl string) Option {
	return func(c *Command) {
		if tmpl != "" {
			c.template = tmpl
		}
	}
}

// New creates a command probe for script.
func New(script string, opts ...Option) *Command {
	c := &Command{script: script, template: "{output}", run: collectors.ExecRunner}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the probe identifier.
func (c *Command) Name() string { return "command" }

// Produce runs the script and returns the first line of its stdout.
func (c *Command) Produce(ctx context.Context) (string, error) {
	if strings.TrimSpace(c.script) == "" {
		return "", errors.New("command: empty script")
	}
	out, err := c.run(ctx, "sh", "-c", c.script)
	if err != nil {
		return "", fmt.Errorf("command: %w", err)
	}
	line, _, _ := strings.Cut(string(out), "\n")
	return collectors.Expand(c.template, map[string]string{
		"output": strings.TrimRight(line, "\r"),
	}), nil
}
