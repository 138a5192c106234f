// Package builder turns source files into build outputs with a worker pool.
//
// Every top-level file is scanned for its dependency record, its external
// dependencies are resolved, the implementation files it pulls in are built
// into objects first (sequentially, inside the same worker), and the file is
// compiled only if an object was rebuilt, the output is missing, or the
// output is older than the record's watermark.
package builder

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Workiva/go-datastructures/queue"
	"github.com/charmbracelet/log"

	"github.com/Norgate-AV/autobuild/internal/buildtree"
	"github.com/Norgate-AV/autobuild/internal/compiler"
	"github.com/Norgate-AV/autobuild/internal/depcache"
	"github.com/Norgate-AV/autobuild/internal/execute"
	"github.com/Norgate-AV/autobuild/internal/history"
	"github.com/Norgate-AV/autobuild/internal/plugin"
	"github.com/Norgate-AV/autobuild/internal/utils"
	"github.com/Norgate-AV/autobuild/internal/watermark"
)

// ObjectExt is the extension of implementation objects
const ObjectExt = ".o"

// Compiler compiles targets
type Compiler interface {
	Compile(ctx context.Context, t *compiler.Target) (*execute.Result, error)
	Command(t *compiler.Target) *execute.Cmd
}

// Scanner produces dependency records
type Scanner interface {
	Scan(ctx context.Context, file string, includeDirs []string) (*depcache.Record, error)
}

// Resolver turns dependency specifiers into target contributions
type Resolver interface {
	ResolveAll(ctx context.Context, specs []string) (*plugin.Contribution, error)
}

// Recorder stores compile outcomes
type Recorder interface {
	Record(e history.Entry, diagnostics []byte) error
}

// Options wire a builder to its collaborators
type Options struct {
	Tree     *buildtree.Tree
	Compiler Compiler
	Scanner  Scanner
	Resolver Resolver

	// Optional compile history
	History Recorder

	// Worker pool size of parallel builds; 0 uses DefaultJobs
	Jobs int
}

// Builder schedules builds
type Builder struct {
	tree     *buildtree.Tree
	compiler Compiler
	scanner  Scanner
	resolver Resolver
	history  Recorder
	jobs     int

	// serializes decide+compile per output across workers
	outputs sync.Map
}

// New creates a builder
func New(opts Options) *Builder {
	return &Builder{
		tree:     opts.Tree,
		compiler: opts.Compiler,
		scanner:  opts.Scanner,
		resolver: opts.Resolver,
		history:  opts.History,
		jobs:     opts.Jobs,
	}
}

// Request describes one build
type Request struct {
	Files       []string
	Flags       []string
	IncludeDirs []string
	Libs        []string

	// Dependency specifiers applied to every file in addition to its own
	Dependencies []string

	// Extension of the outputs; empty for executables
	OutputExt string

	// Use a worker pool instead of a single worker
	Parallel bool
}

// Result lists the outputs of a build, sorted
type Result struct {
	// Every output, rebuilt or not
	All []string

	// Outputs compiled by this build
	Rebuilt []string

	// link inputs propagated from object builds to the enclosing target
	objects []string
	libs    []string
}

// stop tells a worker the queue is drained
type stop struct{}

// job is a build at some depth of implementation nesting
type job struct {
	Request

	// outputs are objects linked into an enclosing target
	object bool

	// sources being built further up the nesting
	chain []string

	// outputs compiled so far by the enclosing Build
	compiled *sync.Map
}

func (j job) compiledAny(outputs []string) bool {
	for _, out := range outputs {
		if _, ok := j.compiled.Load(out); ok {
			return true
		}
	}

	return false
}

// Build builds req.Files and returns their outputs. Every file is attempted;
// if any failed, the first failure by completion is returned after all
// workers finished. Outputs built before a failure are kept.
func (b *Builder) Build(ctx context.Context, req Request) (*Result, error) {
	return b.build(ctx, job{Request: req, compiled: &sync.Map{}})
}

// fileResult is the outcome of one file
type fileResult struct {
	output  string
	rebuilt bool
	objects []string
	libs    []string
}

func (b *Builder) build(ctx context.Context, j job) (*Result, error) {
	res := &Result{All: []string{}, Rebuilt: []string{}}
	if len(j.Files) == 0 {
		return res, nil
	}

	workers := b.poolSize(len(j.Files), j.Parallel)

	q := queue.New(int64(len(j.Files) + workers))
	defer q.Dispose()

	for _, f := range j.Files {
		if err := q.Put(f); err != nil {
			return nil, fmt.Errorf("failed to queue %s: %w", f, err)
		}
	}

	for i := 0; i < workers; i++ {
		if err := q.Put(stop{}); err != nil {
			return nil, fmt.Errorf("failed to queue worker stop: %w", err)
		}
	}

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		errs = make(chan error, workers)
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- b.work(ctx, q, j, func(fr *fileResult) {
				mu.Lock()
				defer mu.Unlock()

				res.All = append(res.All, fr.output)
				if fr.rebuilt {
					res.Rebuilt = append(res.Rebuilt, fr.output)
				}

				res.objects = utils.AppendUnique(res.objects, fr.objects...)
				res.libs = append(res.libs, fr.libs...)
			})
		}()
	}

	wg.Wait()
	close(errs)

	var first error
	for err := range errs {
		if err != nil && first == nil {
			first = err
		}
	}

	if first != nil {
		return nil, first
	}

	sort.Strings(res.All)
	sort.Strings(res.Rebuilt)

	return res, nil
}

// work drains q until it sees a stop, returning the first error it met.
// A failed file does not stop the worker.
func (b *Builder) work(ctx context.Context, q *queue.Queue, j job, collect func(*fileResult)) error {
	var first error

	for {
		items, err := q.Get(1)
		if err != nil {
			if first == nil {
				first = fmt.Errorf("build queue: %w", err)
			}

			return first
		}

		file, ok := items[0].(string)
		if !ok {
			return first
		}

		fr, err := b.buildFile(ctx, file, j)
		if err != nil {
			log.Debug("build failed", "file", file, "err", err)
			if first == nil {
				first = err
			}

			continue
		}

		collect(fr)
	}
}

func (b *Builder) buildFile(ctx context.Context, file string, j job) (*fileResult, error) {
	source, err := filepath.Abs(file)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", file, err)
	}

	output := b.tree.Output(source, j.OutputExt)

	rec, err := b.scanner.Scan(ctx, source, j.IncludeDirs)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", source, err)
	}

	contrib := &plugin.Contribution{}
	if specs := utils.AppendUnique(append([]string(nil), rec.Dependencies...), j.Dependencies...); len(specs) > 0 {
		if b.resolver == nil {
			return nil, fmt.Errorf("%w: no resolver for %s", plugin.ErrPluginLoad, strings.Join(specs, ", "))
		}

		contrib, err = b.resolver.ResolveAll(ctx, specs)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve dependencies of %s: %w", source, err)
		}
	}

	includeDirs := utils.AppendUnique(append([]string(nil), j.IncludeDirs...), contrib.Incs...)

	nested, err := b.buildImplementations(ctx, source, rec.Implementations, j, includeDirs)
	if err != nil {
		return nil, err
	}

	fr := &fileResult{output: output}

	libs := append([]string(nil), contrib.Libs...)
	libs = append(libs, nested.libs...)

	if j.object {
		fr.objects = utils.AppendUnique([]string{output}, nested.objects...)
		fr.libs = libs
	}

	target := &compiler.Target{
		Source:      source,
		Output:      output,
		Flags:       append(append([]string(nil), j.Flags...), contrib.Flags...),
		IncludeDirs: includeDirs,
	}

	if !j.object {
		target.Objects = nested.objects
		target.Libs = append(append([]string(nil), j.Libs...), libs...)
	}

	lock := b.outputLock(output)
	lock.Lock()
	defer lock.Unlock()

	// an object may have been rebuilt for another target earlier in this build,
	// in which case the nested build above found it up to date
	relink := len(nested.Rebuilt) > 0 || j.compiledAny(nested.objects)

	wm := rec.Watermark
	if !j.object {
		for _, obj := range nested.objects {
			if t, err := utils.ModTime(obj); err == nil {
				wm = watermark.Max(wm, t)
			}
		}
	}

	if !needsRebuild(output, wm, relink) {
		log.Debug("up to date", "output", output)
		return fr, nil
	}

	if err := b.compile(ctx, target); err != nil {
		return nil, err
	}

	j.compiled.Store(output, struct{}{})
	fr.rebuilt = true
	return fr, nil
}

// buildImplementations builds the objects of impls sequentially, skipping the
// file itself and anything already being built higher up
func (b *Builder) buildImplementations(ctx context.Context, source string, impls []string, j job, includeDirs []string) (*Result, error) {
	chain := append(append([]string(nil), j.chain...), source)

	var files []string
	for _, impl := range impls {
		if !utils.Contains(chain, impl) {
			files = utils.AppendUnique(files, impl)
		}
	}

	if len(files) == 0 {
		return &Result{}, nil
	}

	flags := append([]string(nil), j.Flags...)
	if !utils.Contains(flags, compiler.FlagCompile) {
		flags = append([]string{compiler.FlagCompile}, flags...)
	}

	nested, err := b.build(ctx, job{
		Request: Request{
			Files:       files,
			Flags:       flags,
			IncludeDirs: includeDirs,
			OutputExt:   ObjectExt,
			Parallel:    false,
		},
		object:   true,
		chain:    chain,
		compiled: j.compiled,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build implementations of %s: %w", source, err)
	}

	return nested, nil
}

func needsRebuild(output string, wm time.Time, nestedRebuilt bool) bool {
	if nestedRebuilt {
		return true
	}

	built, err := utils.ModTime(output)
	if err != nil {
		return true
	}

	return built.Before(wm)
}

func (b *Builder) outputLock(output string) *sync.Mutex {
	l, _ := b.outputs.LoadOrStore(output, &sync.Mutex{})
	return l.(*sync.Mutex)
}

func (b *Builder) compile(ctx context.Context, t *compiler.Target) error {
	if err := utils.EnsureDir(filepath.Dir(t.Output)); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	log.Infof("Building %s", b.display(t.Source))

	started := time.Now()
	res, err := b.compiler.Compile(ctx, t)
	b.record(t, started, res, err)

	if err != nil {
		return fmt.Errorf("failed to build %s: %w", t.Output, err)
	}

	return nil
}

// record stores the compile outcome; history failures never fail the build
func (b *Builder) record(t *compiler.Target, started time.Time, res *execute.Result, err error) {
	if b.history == nil {
		return
	}

	entry := history.Entry{
		Output:   t.Output,
		Source:   t.Source,
		Command:  b.compiler.Command(t).String(),
		Started:  started,
		Duration: time.Since(started),
		Success:  err == nil,
	}

	var diagnostics []byte
	if res != nil {
		entry.ExitCode = res.ExitCode
		diagnostics = res.Stderr
	}

	var cerr *compiler.CompileError
	if errors.As(err, &cerr) {
		entry.ExitCode = cerr.ExitCode
	}

	if rerr := b.history.Record(entry, diagnostics); rerr != nil {
		log.Warn("failed to record build history", "output", t.Output, "err", rerr)
	}
}

// display shortens paths under the base directory
func (b *Builder) display(path string) string {
	if rel, err := filepath.Rel(b.tree.Base, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}

	return path
}
