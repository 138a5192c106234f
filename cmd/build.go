package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/Norgate-AV/autobuild/internal/builder"
	"github.com/Norgate-AV/autobuild/internal/buildtree"
	"github.com/Norgate-AV/autobuild/internal/compiler"
	"github.com/Norgate-AV/autobuild/internal/config"
	"github.com/Norgate-AV/autobuild/internal/depcache"
	"github.com/Norgate-AV/autobuild/internal/discover"
	"github.com/Norgate-AV/autobuild/internal/execute"
	"github.com/Norgate-AV/autobuild/internal/history"
	"github.com/Norgate-AV/autobuild/internal/pch"
	"github.com/Norgate-AV/autobuild/internal/plugin"
	"github.com/Norgate-AV/autobuild/internal/scanner"
	"github.com/Norgate-AV/autobuild/internal/utils"
)

var buildCmd = &cobra.Command{
	Use:   "build [inputs...]",
	Short: "Build C/C++ sources",
	Long: `Build every input file, and every C/C++ source in each input directory,
into an executable (or shared object with --shared) in the build folder.`,
	RunE:          runBuild,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// newExecutor creates the executor running compilers, installers and outputs
var newExecutor = func() execute.Executor {
	return execute.NewLocal()
}

func runBuild(cmd *cobra.Command, args []string) error {
	inputs := utils.FlattenList(args, config.ListSeparator)
	if len(inputs) == 0 {
		return fmt.Errorf("requires at least one input file or directory")
	}

	cfg, err := config.NewLoader().LoadForBuild(cmd, inputs)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	setupLogging(cfg.Verbose)

	files, err := discover.Sources(inputs, discover.Options{
		Recursive: cfg.Recursive,
		Skip:      []string{cfg.BuildPath()},
	})
	if err != nil {
		return fmt.Errorf("failed to collect sources: %w", err)
	}

	if len(files) == 0 {
		return errors.New("no C/C++ sources found in inputs")
	}

	ws, err := newWorkspace(cfg, newExecutor(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer ws.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	res, err := ws.build(ctx, files)
	if err != nil {
		return err
	}

	log.Infof("Built %d of %d outputs in %s", len(res.Rebuilt), len(res.All), cfg.BuildPath())

	if !cfg.Run {
		return nil
	}

	if cfg.Shared {
		log.Warn("shared objects are not run")
		return nil
	}

	return runOutputs(ctx, ws.exec, res.All, cfg.RunArgs, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// workspace wires the build components for one configuration
type workspace struct {
	cfg      *config.Config
	exec     execute.Executor
	tree     *buildtree.Tree
	store    *depcache.Store
	scanner  *scanner.Scanner
	resolver *plugin.Resolver
	compiler *compiler.Compiler
	history  *history.History
}

func newTree(cfg *config.Config) (*buildtree.Tree, error) {
	tree, err := buildtree.New(cfg.BaseDir, cfg.BuildPath())
	if err != nil {
		return nil, fmt.Errorf("failed to set up build tree: %w", err)
	}

	return tree, nil
}

func newWorkspace(cfg *config.Config, exec execute.Executor, diagnostics io.Writer) (*workspace, error) {
	tree, err := newTree(cfg)
	if err != nil {
		return nil, err
	}

	flags, err := cfg.CompileFlags()
	if err != nil {
		return nil, err
	}

	comp := compiler.New(cfg.Compiler, exec)
	comp.Verbose = cfg.Verbose
	comp.SetOutput(diagnostics)

	ws := &workspace{
		cfg:   cfg,
		exec:  exec,
		tree:  tree,
		store: depcache.NewStore(tree),
		resolver: plugin.NewResolver(&plugin.Env{
			LibsDir:         cfg.LibsDir,
			DependenciesDir: cfg.DependenciesDir,
			Executor:        exec,
		}),
		compiler: comp,
	}

	opts := scanner.Options{Strict: cfg.Strict()}
	if cfg.PCH {
		opts.PCH = pch.NewScheduler(tree, comp, flags, cfg.PCHJobs)
		log.Debug("precompiling headers", "bound", opts.PCH.Bound())
	}

	ws.scanner = scanner.New(ws.store, opts)

	if cfg.History {
		h, err := history.Open(tree.Root)
		if err != nil {
			log.Warn("build history disabled", "err", err)
		} else {
			ws.history = h
		}
	}

	return ws, nil
}

func (ws *workspace) build(ctx context.Context, files []string) (*builder.Result, error) {
	flags, err := ws.cfg.CompileFlags()
	if err != nil {
		return nil, err
	}

	libs, deps := ws.cfg.LinkLibs()

	opts := builder.Options{
		Tree:     ws.tree,
		Compiler: ws.compiler,
		Scanner:  ws.scanner,
		Resolver: ws.resolver,
		Jobs:     ws.cfg.Jobs,
	}

	if ws.history != nil {
		opts.History = ws.history
	}

	log.Debug("building", "files", len(files), "flags", strings.Join(flags, " "), "parallel", ws.cfg.Parallel)

	return builder.New(opts).Build(ctx, builder.Request{
		Files:        files,
		Flags:        flags,
		IncludeDirs:  ws.cfg.IncludeDirs,
		Libs:         libs,
		Dependencies: deps,
		OutputExt:    ws.cfg.OutputExt(),
		Parallel:     ws.cfg.Parallel,
	})
}

func (ws *workspace) Close() {
	if ws.history == nil {
		return
	}

	if err := ws.history.Close(); err != nil {
		log.Warn("failed to close build history", "err", err)
	}
}

// runOutputs executes each output in order, streaming its output
func runOutputs(ctx context.Context, exec execute.Executor, outputs []string, runArgs string, stdout, stderr io.Writer) error {
	args := strings.Fields(runArgs)

	for _, out := range outputs {
		log.Infof("Running %s", out)

		_, err := exec.Execute(ctx, &execute.Cmd{
			Path:   out,
			Args:   args,
			Stdout: stdout,
			Stderr: stderr,
		})
		if err != nil {
			return fmt.Errorf("failed to run %s: %w", out, err)
		}
	}

	return nil
}
