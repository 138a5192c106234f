// Package pch precompiles headers in the background while sources are scanned.
//
// Each scan owns a Batch. Headers discovered during the scan are checked
// against their precompiled artifact; stale ones are compiled asynchronously
// and the resulting modification time is folded into the scan's watermark.
// A batch runs at most bound compilations at once: when the bound is hit the
// whole batch is drained before anything else is scheduled.
package pch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/Norgate-AV/autobuild/internal/buildtree"
	"github.com/Norgate-AV/autobuild/internal/compiler"
	"github.com/Norgate-AV/autobuild/internal/execute"
	"github.com/Norgate-AV/autobuild/internal/utils"
	"github.com/Norgate-AV/autobuild/internal/watermark"
)

// DefaultBound is the per-batch limit used when none is configured
const DefaultBound = 4

// Compiler compiles one target
type Compiler interface {
	Compile(ctx context.Context, t *compiler.Target) (*execute.Result, error)
}

// Scheduler creates batches sharing one compiler and flag set
type Scheduler struct {
	tree     *buildtree.Tree
	compiler Compiler
	flags    []string
	bound    int

	// collapses concurrent compiles of the same header from different workers
	flight singleflight.Group
}

// NewScheduler creates a scheduler compiling headers into tree with flags
func NewScheduler(tree *buildtree.Tree, c Compiler, flags []string, bound int) *Scheduler {
	if bound < 1 {
		bound = DefaultBound
	}

	return &Scheduler{
		tree:     tree,
		compiler: c,
		flags:    flags,
		bound:    bound,
	}
}

// Bound returns the number of compilations a batch may run at once
func (s *Scheduler) Bound() int {
	return s.bound
}

// NewBatch starts a batch folding results into wm
func (s *Scheduler) NewBatch(wm *watermark.Watermark) *Batch {
	return &Batch{
		s:  s,
		wm: wm,
		g:  new(errgroup.Group),
	}
}

// compile builds the precompiled header of e unless a concurrent flight already did
func (s *Scheduler) compile(ctx context.Context, e *Entry, includeDirs []string) (time.Time, error) {
	v, err, shared := s.flight.Do(e.File, func() (any, error) {
		if !e.Stale() {
			return utils.ModTime(e.File)
		}

		log.Debug("precompiling header", "header", e.Header)

		target := &compiler.Target{
			Source:      e.Wrapper,
			Output:      e.File,
			Flags:       s.flags,
			IncludeDirs: includeDirs,
			Header:      true,
		}

		if _, err := s.compiler.Compile(ctx, target); err != nil {
			return nil, fmt.Errorf("failed to precompile %s: %w", e.Header, err)
		}

		return utils.ModTime(e.File)
	})
	if err != nil {
		return time.Time{}, err
	}

	if shared {
		log.Debug("precompiled header shared", "header", e.Header)
	}

	return v.(time.Time), nil
}

// Batch tracks the precompilations scheduled by one scan.
// A batch is not safe for concurrent use.
type Batch struct {
	s        *Scheduler
	wm       *watermark.Watermark
	g        *errgroup.Group
	inFlight int
}

// MaybeSchedule folds the precompiled header of header into the watermark,
// compiling it in the background first when it is stale.
func (b *Batch) MaybeSchedule(ctx context.Context, header string, includeDirs []string) error {
	e := NewEntry(b.s.tree, header)

	if !e.Stale() {
		t, err := utils.ModTime(e.File)
		if err != nil {
			return fmt.Errorf("failed to stat precompiled header: %w", err)
		}

		b.wm.Observe(t)
		return nil
	}

	if err := utils.EnsureDir(filepath.Dir(e.File)); err != nil {
		return fmt.Errorf("failed to create precompiled header directory: %w", err)
	}

	if e.WrapperStale() {
		if err := utils.WriteFileAtomic(e.Wrapper, e.WrapperContent(), 0o644); err != nil {
			return fmt.Errorf("failed to write header wrapper: %w", err)
		}
	}

	if b.inFlight >= b.s.bound {
		if err := b.Drain(); err != nil {
			return err
		}
	}

	dirs := append([]string(nil), includeDirs...)
	b.inFlight++
	b.g.Go(func() error {
		t, err := b.s.compile(ctx, e, dirs)
		if err != nil {
			return err
		}

		b.wm.Observe(t)
		return nil
	})

	return nil
}

// Drain waits for every scheduled compilation and returns the first failure
func (b *Batch) Drain() error {
	err := b.g.Wait()

	b.g = new(errgroup.Group)
	b.inFlight = 0

	return err
}
