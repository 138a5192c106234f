// Package compiler turns build targets into compiler invocations.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/Norgate-AV/autobuild/internal/execute"
)

// DefaultPath is the compiler used when none is configured
const DefaultPath = "g++"

// Compiler invokes an external compiler for build targets
type Compiler struct {
	Path    string
	Verbose bool

	exec execute.Executor
	out  io.Writer

	// serializes diagnostics printed by concurrent workers
	mu sync.Mutex
}

// New creates a new compiler wrapper
func New(path string, exec execute.Executor) *Compiler {
	if path == "" {
		path = DefaultPath
	}

	return &Compiler{
		Path: path,
		exec: exec,
		out:  os.Stderr,
	}
}

// SetOutput redirects printed diagnostics
func (c *Compiler) SetOutput(w io.Writer) {
	c.out = w
}

// Command builds the shell command for t
func (c *Compiler) Command(t *Target) *execute.Cmd {
	return &execute.Cmd{
		Path: c.Path,
		Args: t.Args(),
	}
}

// Compile runs the compiler for t.
// A non-zero exit is reported as *CompileError after printing the command and diagnostics.
func (c *Compiler) Compile(ctx context.Context, t *Target) (*execute.Result, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	cmd := c.Command(t)
	log.Debug("compile", "source", t.Source, "output", t.Output)

	res, err := c.exec.Execute(ctx, cmd)
	if err != nil {
		var exitErr *execute.ExitError
		if errors.As(err, &exitErr) {
			if res == nil {
				res = &execute.Result{ExitCode: exitErr.ExitCode}
			}

			cerr := &CompileError{
				ExitCode: exitErr.ExitCode,
				Command:  cmd.String(),
				Stderr:   string(res.Stderr),
			}
			c.report(cmd, res, true)
			return res, cerr
		}

		return res, fmt.Errorf("failed to run compiler: %w", err)
	}

	if c.Verbose {
		c.report(cmd, res, false)
	}

	return res, nil
}

// report prints the command line and its output
func (c *Compiler) report(cmd *execute.Cmd, res *execute.Result, failed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var sb strings.Builder
	sb.WriteString(cmd.String())
	sb.WriteString("\n")

	if res != nil {
		if out := strings.TrimSpace(string(res.Stdout)); out != "" && !failed {
			sb.WriteString(out)
			sb.WriteString("\n")
		}

		if errs := strings.TrimSpace(string(res.Stderr)); errs != "" {
			sb.WriteString(execute.HighlightDiagnostics(errs))
			sb.WriteString("\n")
		}
	}

	if failed && res != nil {
		fmt.Fprintf(&sb, "Compilation failed (exit code %d): %s\n", res.ExitCode, execute.GetErrorMessage(res.ExitCode))
	}

	io.WriteString(c.out, sb.String())
}
