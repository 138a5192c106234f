// Package plugin maps declared external dependencies to the plugins that
// install them and contribute compiler flags, libraries and include dirs.
//
// Plugins come from a compiled-in registry (see builtin.go) or from a
// dependency manifest in the project's dependencies directory.
package plugin

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Norgate-AV/autobuild/internal/execute"
)

// Dependency is an installable external library
type Dependency interface {
	// Install makes version available. It must be a no-op when already installed.
	Install(ctx context.Context, version string) error

	Flags() []string
	Libs() []string
	Incs() []string
}

// Env is what plugins may use while installing
type Env struct {
	// Where sources of installed libraries live
	LibsDir string

	// Where dependency manifests are looked up
	DependenciesDir string

	Executor execute.Executor
}

// Factory creates a plugin instance
type Factory func(env *Env) Dependency

var registry = struct {
	sync.RWMutex
	factories map[string]Factory
}{factories: make(map[string]Factory)}

// Register makes a plugin available under id ("creator/library").
// It panics if id is registered twice.
func Register(id string, f Factory) {
	registry.Lock()
	defer registry.Unlock()

	if f == nil {
		panic("plugin: Register factory is nil")
	}

	if _, dup := registry.factories[id]; dup {
		panic(fmt.Sprintf("plugin: Register called twice for %s", id))
	}

	registry.factories[id] = f
}

// Lookup returns the factory registered for id
func Lookup(id string) (Factory, bool) {
	registry.RLock()
	defer registry.RUnlock()

	f, ok := registry.factories[id]
	return f, ok
}

// Registered returns the sorted ids of every registered plugin
func Registered() []string {
	registry.RLock()
	defer registry.RUnlock()

	ids := make([]string, 0, len(registry.factories))
	for id := range registry.factories {
		ids = append(ids, id)
	}

	sort.Strings(ids)
	return ids
}
