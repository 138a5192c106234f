package plugin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/Norgate-AV/autobuild/internal/execute"
	"github.com/Norgate-AV/autobuild/internal/utils"
)

// GitHub is a library installed by cloning a GitHub repository at a tag or branch
type GitHub struct {
	Repo string

	// Commands run inside the checkout after cloning
	Build [][]string

	// Contributions in terms of the checkout path
	FlagsFor func(path string) []string
	LibsFor  func(path string) []string
	IncsFor  func(path string) []string

	env     *Env
	version string
}

// NewGitHub creates a plugin for repo ("owner/name")
func NewGitHub(env *Env, repo string) *GitHub {
	return &GitHub{Repo: repo, env: env, version: DefaultVersion}
}

// Path is the checkout directory of the current version
func (g *GitHub) Path() string {
	return filepath.Join(g.env.LibsDir, g.Repo, g.version)
}

// Installed reports whether the current version is checked out
func (g *GitHub) Installed() bool {
	return utils.Exists(g.Path())
}

// Install clones and builds version unless it is already checked out.
// A failed install removes the partial checkout.
func (g *GitHub) Install(ctx context.Context, version string) error {
	g.version = version

	if g.Installed() {
		return nil
	}

	path := g.Path()
	log.Infof("Installing %s %s...", g.Repo, version)

	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}

	if err := g.install(ctx, path, version); err != nil {
		if rmErr := os.RemoveAll(path); rmErr != nil {
			log.Warn("failed to remove partial checkout", "path", path, "err", rmErr)
		}

		return err
	}

	return nil
}

func (g *GitHub) install(ctx context.Context, path, version string) error {
	clone := &execute.Cmd{
		Path:   "git",
		Args:   []string{"clone", "--depth", "1", "--branch", version, "https://github.com/" + g.Repo + ".git", path},
		Stdout: os.Stderr,
		Stderr: os.Stderr,
	}

	if _, err := g.env.Executor.Execute(ctx, clone); err != nil {
		return fmt.Errorf("failed to clone %s: %w", g.Repo, err)
	}

	for _, step := range g.Build {
		if len(step) == 0 {
			continue
		}

		cmd := &execute.Cmd{
			Path:   step[0],
			Args:   step[1:],
			Dir:    path,
			Stdout: os.Stderr,
			Stderr: os.Stderr,
		}

		if _, err := g.env.Executor.Execute(ctx, cmd); err != nil {
			return fmt.Errorf("failed to build %s: %w", g.Repo, err)
		}
	}

	return nil
}

func (g *GitHub) Flags() []string { return g.apply(g.FlagsFor) }
func (g *GitHub) Libs() []string  { return g.apply(g.LibsFor) }
func (g *GitHub) Incs() []string  { return g.apply(g.IncsFor) }

func (g *GitHub) apply(fn func(string) []string) []string {
	if fn == nil {
		return nil
	}

	return fn(g.Path())
}
