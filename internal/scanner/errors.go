package scanner

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrRecursion         = errors.New("source file already visited (possible include recursion)")
	ErrIncludeNotFound   = errors.New("include file not found")
	ErrAmbiguousInclude  = errors.New("multiple include files found")
	ErrMissingPragmaOnce = errors.New("header does not start with #pragma once")
)

// ScanError reports a failure at a position in a scanned source file
type ScanError struct {
	Kind error
	Msg  string
	File string
	Line int
}

func (e *ScanError) Error() string {
	if e == nil {
		return ""
	}

	msg := e.Kind.Error()
	if e.Msg != "" {
		msg += ": " + e.Msg
	}

	switch {
	case e.File != "" && e.Line > 0:
		msg += fmt.Sprintf(" at %s:%d", e.File, e.Line)
	case e.File != "":
		msg += " at " + e.File
	}

	return msg
}

func (e *ScanError) Unwrap() error { return e.Kind }

func recursionError(chain []string, file string) error {
	path := append(append([]string(nil), chain...), file)
	return &ScanError{Kind: ErrRecursion, Msg: strings.Join(path, " -> ")}
}
