package plugin

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

// Contribution is what a resolved dependency adds to a build target
type Contribution struct {
	Flags []string
	Libs  []string
	Incs  []string
}

// Resolver loads each plugin once and serializes every call into plugins
type Resolver struct {
	env *Env

	mu     sync.Mutex
	loaded map[string]Dependency
}

// NewResolver creates a resolver for env
func NewResolver(env *Env) *Resolver {
	return &Resolver{
		env:    env,
		loaded: make(map[string]Dependency),
	}
}

// Resolve installs the dependency named by raw and returns its contribution.
// Install is called on every resolve; plugins check their own state.
func (r *Resolver) Resolve(ctx context.Context, raw string) (*Contribution, error) {
	spec, err := ParseSpecifier(raw)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	dep, err := r.load(spec)
	if err != nil {
		return nil, err
	}

	if err := dep.Install(ctx, spec.Version); err != nil {
		return nil, fmt.Errorf("failed to install %s: %w", spec, err)
	}

	return &Contribution{
		Flags: append([]string(nil), dep.Flags()...),
		Libs:  append([]string(nil), dep.Libs()...),
		Incs:  append([]string(nil), dep.Incs()...),
	}, nil
}

// ResolveAll resolves every specifier, concatenating contributions in order
func (r *Resolver) ResolveAll(ctx context.Context, specs []string) (*Contribution, error) {
	all := &Contribution{}

	for _, raw := range specs {
		c, err := r.Resolve(ctx, raw)
		if err != nil {
			return nil, err
		}

		all.Flags = append(all.Flags, c.Flags...)
		all.Libs = append(all.Libs, c.Libs...)
		all.Incs = append(all.Incs, c.Incs...)
	}

	return all, nil
}

// load returns the plugin for spec, creating it on first use. Callers hold r.mu.
func (r *Resolver) load(spec Specifier) (Dependency, error) {
	id := spec.ID()
	if dep, ok := r.loaded[id]; ok {
		return dep, nil
	}

	log.Debug("Loading dependency", "name", spec.ClassName(), "id", id)

	var dep Dependency
	if path := FindManifest(r.env.DependenciesDir, spec); path != "" {
		m, err := LoadManifest(path, spec, r.env)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrPluginLoad, spec.ClassName(), err)
		}

		dep = m
	} else if factory, ok := Lookup(id); ok {
		dep = factory(r.env)
	} else {
		return nil, fmt.Errorf("%w: %s: no plugin registered for %s", ErrPluginLoad, spec.ClassName(), id)
	}

	r.loaded[id] = dep
	return dep, nil
}
