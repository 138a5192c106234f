package compiler

import (
	"errors"
	"fmt"
	"path/filepath"
)

// Compiler flag spellings
const (
	FlagCompile    = "-c"
	FlagLibrary    = "-l"
	FlagIncludeDir = "-I"
	FlagOutput     = "-o"
	FlagLanguage   = "-x"

	LanguageHeader = "c++-header"
)

// ErrCompileFailed is matched by every CompileError
var ErrCompileFailed = errors.New("compile failed")

// Target is one compiler invocation: a source turned into one output artifact
type Target struct {
	Source string
	Output string

	Flags       []string
	IncludeDirs []string
	Objects     []string
	Libs        []string

	// Compile Source as a header to produce a precompiled header
	Header bool
}

// Args builds the compiler arguments for t:
// flags, include dirs, output, source, then link inputs.
func (t *Target) Args() []string {
	var args []string
	args = append(args, t.Flags...)

	if t.Header {
		args = append(args, FlagLanguage, LanguageHeader)
	}

	for _, dir := range t.IncludeDirs {
		if dir != "" {
			args = append(args, FlagIncludeDir+dir)
		}
	}

	args = append(args, FlagOutput, t.Output, t.Source)
	args = append(args, t.Objects...)
	args = append(args, t.Libs...)

	return args
}

// Validate checks that t names a source and an output
func (t *Target) Validate() error {
	if t.Source == "" {
		return fmt.Errorf("missing source file")
	}

	if t.Output == "" {
		return fmt.Errorf("missing output file for %s", t.Source)
	}

	if !filepath.IsAbs(t.Output) {
		return fmt.Errorf("output file must be absolute: %s", t.Output)
	}

	return nil
}

// CompileError is returned when the compiler exits non-zero
type CompileError struct {
	ExitCode int
	Command  string
	Stderr   string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile failed: %d", e.ExitCode)
}

func (e *CompileError) Is(target error) bool {
	return target == ErrCompileFailed
}
