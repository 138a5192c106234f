// Package execute runs external commands and captures their output.
package execute

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
)

// Cmd is a single process invocation
type Cmd struct {
	Path string
	Args []string
	Dir  string
	Env  []string

	// Optional writers that receive output as it is produced, in addition
	// to the captured copy in the Result
	Stdout io.Writer
	Stderr io.Writer
}

// String returns the command line as it would be typed in a shell
func (c *Cmd) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, quote(c.Path))

	for _, arg := range c.Args {
		parts = append(parts, quote(arg))
	}

	return strings.Join(parts, " ")
}

func quote(s string) string {
	if s == "" {
		return `""`
	}

	if strings.ContainsAny(s, " \t\"'`$\\") {
		return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
	}

	return s
}

// Result holds what a finished process produced
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
}

// ExitError reports a process that exited with a non-zero code
type ExitError struct {
	ExitCode int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d: %s", e.ExitCode, GetErrorMessage(e.ExitCode))
}

// Executor runs commands
type Executor interface {
	Execute(ctx context.Context, cmd *Cmd) (*Result, error)
}

// Commander interface for testing
type Commander interface {
	Run() error
}

// Local runs commands on this machine
type Local struct {
	execCommand func(ctx context.Context, cmd *Cmd, stdout, stderr io.Writer) Commander
}

// NewLocal creates a new local executor
func NewLocal() *Local {
	return &Local{
		execCommand: func(ctx context.Context, cmd *Cmd, stdout, stderr io.Writer) Commander {
			c := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
			c.Dir = cmd.Dir
			c.Env = cmd.Env
			c.Stdout = stdout
			c.Stderr = stderr
			return c
		},
	}
}

// Execute runs cmd and waits for it to exit.
// A non-zero exit is returned as *ExitError together with the captured Result.
func (l *Local) Execute(ctx context.Context, cmd *Cmd) (*Result, error) {
	if cmd.Path == "" {
		return nil, fmt.Errorf("no command to execute")
	}

	var stdout, stderr bytes.Buffer
	var outW, errW io.Writer = &stdout, &stderr
	if cmd.Stdout != nil {
		outW = io.MultiWriter(&stdout, cmd.Stdout)
	}

	if cmd.Stderr != nil {
		errW = io.MultiWriter(&stderr, cmd.Stderr)
	}

	started := time.Now()
	err := l.execCommand(ctx, cmd, outW, errW).Run()
	res := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(started),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, &ExitError{ExitCode: res.ExitCode}
		}

		return res, fmt.Errorf("failed to run %s: %w", cmd.Path, err)
	}

	return res, nil
}
