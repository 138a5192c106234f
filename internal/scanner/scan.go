// Package scanner walks quoted includes and dependency directives of C/C++ sources.
//
// A scan produces the transitive include set of a file, the implementation
// files paired with those includes and every external dependency declared
// along the way. Each file's result is memoized in the dependency cache, so
// an unchanged subtree is read back instead of rescanned.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Norgate-AV/autobuild/internal/depcache"
	"github.com/Norgate-AV/autobuild/internal/pch"
	"github.com/Norgate-AV/autobuild/internal/utils"
	"github.com/Norgate-AV/autobuild/internal/watermark"
)

// Options control what a scan enforces and schedules
type Options struct {
	// Require every header to start with #pragma once
	Strict bool

	// Precompile discovered headers when set
	PCH *pch.Scheduler
}

// Scanner resolves dependency records through a cache store
type Scanner struct {
	store *depcache.Store
	opts  Options
}

// New creates a scanner backed by store
func New(store *depcache.Store, opts Options) *Scanner {
	return &Scanner{store: store, opts: opts}
}

// Scan returns the dependency record of file. Outstanding header
// precompilations are drained before it returns and their artifacts count
// towards the returned watermark.
func (s *Scanner) Scan(ctx context.Context, file string, includeDirs []string) (*depcache.Record, error) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", file, err)
	}

	wm := watermark.New(time.Time{})
	w := &walk{
		s:           s,
		ctx:         ctx,
		includeDirs: includeDirs,
		scheduled:   make(map[string]bool),
	}

	if s.opts.PCH != nil {
		w.batch = s.opts.PCH.NewBatch(wm)
	}

	rec, err := w.scan(abs, nil)

	if w.batch != nil {
		if derr := w.batch.Drain(); derr != nil && err == nil {
			err = fmt.Errorf("failed to precompile headers of %s: %w", abs, derr)
		}
	}

	if err != nil {
		return nil, err
	}

	wm.Observe(rec.Watermark)

	out := *rec
	out.Watermark = wm.Time()

	return &out, nil
}

// walk is the state of one top-level scan
type walk struct {
	s           *Scanner
	ctx         context.Context
	includeDirs []string
	batch       *pch.Batch
	scheduled   map[string]bool
}

// schedule hands headers to the precompiler once per walk
func (w *walk) schedule(paths ...string) error {
	if w.batch == nil {
		return nil
	}

	for _, p := range paths {
		if !IsHeader(p) || w.scheduled[p] {
			continue
		}

		w.scheduled[p] = true
		if err := w.batch.MaybeSchedule(w.ctx, p, w.includeDirs); err != nil {
			return err
		}
	}

	return nil
}

// scan returns the record of file; chain holds the files currently being descended through
func (w *walk) scan(file string, chain []string) (*depcache.Record, error) {
	cached, err := w.s.store.Load(file)
	if err != nil {
		return nil, err
	}

	if cached != nil {
		log.Debug("dependency cache hit", "file", file)
		return cached, w.schedule(cached.Includes...)
	}

	if utils.Contains(chain, file) {
		return nil, recursionError(chain, file)
	}

	chain = append(chain[:len(chain):len(chain)], file)

	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read source file: %w", err)
	}

	mtime, err := utils.ModTime(file)
	if err != nil {
		return nil, fmt.Errorf("failed to stat source file: %w", err)
	}

	lines := strings.Split(string(data), "\n")
	if w.s.opts.Strict && IsHeader(file) && !hasPragmaOnce(lines) {
		return nil, &ScanError{Kind: ErrMissingPragmaOnce, File: file}
	}

	log.Debug("scanning", "file", file)

	rec := &depcache.Record{
		Includes:        []string{},
		Implementations: []string{},
		Dependencies:    []string{},
		Watermark:       mtime,
	}
	dir := filepath.Dir(file)

	for i, line := range lines {
		if deps := ParseDependencies(line); len(deps) > 0 {
			rec.Dependencies = utils.AppendUnique(rec.Dependencies, deps...)
		}

		token, ok := ParseInclude(line)
		if !ok {
			continue
		}

		include, err := ResolveInclude(dir, token, w.includeDirs)
		if err != nil {
			var serr *ScanError
			if errors.As(err, &serr) {
				serr.File, serr.Line = file, i+1
			}

			return nil, err
		}

		if utils.Contains(rec.Includes, include) {
			continue
		}

		rec.Includes = append(rec.Includes, include)

		if err := w.schedule(include); err != nil {
			return nil, err
		}

		sub, err := w.scan(include, chain)
		if err != nil {
			return nil, err
		}

		rec.Merge(sub)

		for _, impl := range FindImplementations(dir, token, w.includeDirs) {
			t, err := utils.ModTime(impl)
			if err != nil {
				return nil, fmt.Errorf("failed to stat implementation file: %w", err)
			}

			rec.Implementations = utils.AppendUnique(rec.Implementations, impl)
			rec.Watermark = watermark.Max(rec.Watermark, t)
		}
	}

	if err := w.s.store.Save(file, rec); err != nil {
		return nil, err
	}

	return rec, nil
}
