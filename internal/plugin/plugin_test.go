package plugin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/autobuild/internal/execute"
)

// mockExecutor records commands; clones create their target directory
type mockExecutor struct {
	mu     sync.Mutex
	cmds   []*execute.Cmd
	stdout string
	err    error
}

func (m *mockExecutor) Execute(_ context.Context, cmd *execute.Cmd) (*execute.Result, error) {
	m.mu.Lock()
	m.cmds = append(m.cmds, cmd)
	m.mu.Unlock()

	if m.err != nil {
		return &execute.Result{ExitCode: 1}, m.err
	}

	if cmd.Path == "git" && len(cmd.Args) > 0 && cmd.Args[0] == "clone" {
		if err := os.MkdirAll(cmd.Args[len(cmd.Args)-1], 0o755); err != nil {
			return nil, err
		}
	}

	return &execute.Result{Stdout: []byte(m.stdout)}, nil
}

// countingDependency counts installs
type countingDependency struct {
	installs atomic.Int32
	versions []string
}

func (c *countingDependency) Install(_ context.Context, version string) error {
	c.installs.Add(1)
	c.versions = append(c.versions, version)
	return nil
}

func (c *countingDependency) Flags() []string { return []string{"-DCOUNT"} }
func (c *countingDependency) Libs() []string  { return []string{"-lcount"} }
func (c *countingDependency) Incs() []string  { return nil }

func TestParseSpecifier(t *testing.T) {
	tests := []struct {
		raw  string
		want Specifier
	}{
		{"json", Specifier{Raw: "json", Creator: "json", Library: "json", Version: DefaultVersion}},
		{"nlohmann/json", Specifier{Raw: "nlohmann/json", Creator: "nlohmann", Library: "json", Version: DefaultVersion}},
		{"nlohmann/json:v3.11.3", Specifier{Raw: "nlohmann/json:v3.11.3", Creator: "nlohmann", Library: "json", Version: "v3.11.3"}},
		{" foo:v1 ", Specifier{Raw: "foo:v1", Creator: "foo", Library: "foo", Version: "v1"}},
		{"foo:", Specifier{Raw: "foo:", Creator: "foo", Library: "foo", Version: DefaultVersion}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseSpecifier(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSpecifier_Unnamed(t *testing.T) {
	for _, raw := range []string{"", ":v1", "creator/", "creator/:v1"} {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseSpecifier(raw)
			assert.ErrorIs(t, err, ErrUnnamedDependency)
		})
	}
}

func TestSpecifier_Names(t *testing.T) {
	spec, err := ParseSpecifier("machinezone/IXWebSocket:v11.4.5")
	require.NoError(t, err)

	assert.Equal(t, "machinezone/IXWebSocket", spec.ID())
	assert.Equal(t, "IXWebSocketDependency", spec.ClassName())
	assert.Equal(t, "machinezone/IXWebSocket:v11.4.5", spec.String())

	spec, err = ParseSpecifier("json")
	require.NoError(t, err)
	assert.Equal(t, "JsonDependency", spec.ClassName())
}

func TestRegister(t *testing.T) {
	Register("test/register", func(*Env) Dependency { return &System{} })

	_, ok := Lookup("test/register")
	assert.True(t, ok)
	assert.Contains(t, Registered(), "test/register")
	assert.Panics(t, func() {
		Register("test/register", func(*Env) Dependency { return &System{} })
	})

	for _, id := range []string{"nlohmann/json", "chriskohlhoff/asio", "stevengj/nlopt", "machinezone/IXWebSocket", "curl/curl", "fltk/fltk"} {
		_, ok := Lookup(id)
		assert.True(t, ok, id)
	}
}

func TestResolver_LoadsOncePerIdentifier(t *testing.T) {
	dep := &countingDependency{}
	var loads atomic.Int32
	Register("test/counter", func(*Env) Dependency {
		loads.Add(1)
		return dep
	})

	r := NewResolver(&Env{})

	c, err := r.Resolve(context.Background(), "test/counter:v1")
	require.NoError(t, err)
	assert.Equal(t, []string{"-DCOUNT"}, c.Flags)
	assert.Equal(t, []string{"-lcount"}, c.Libs)

	_, err = r.Resolve(context.Background(), "test/counter:v2")
	require.NoError(t, err)

	assert.Equal(t, int32(1), loads.Load())
	assert.Equal(t, int32(2), dep.installs.Load(), "install runs on every resolve")
	assert.Equal(t, []string{"v1", "v2"}, dep.versions)
}

func TestResolver_Concurrent(t *testing.T) {
	dep := &countingDependency{}
	var loads atomic.Int32
	Register("test/concurrent", func(*Env) Dependency {
		loads.Add(1)
		return dep
	})

	r := NewResolver(&Env{})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			_, err := r.Resolve(context.Background(), fmt.Sprintf("test/concurrent:v%d", i%2))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
	assert.Equal(t, int32(16), dep.installs.Load())
}

func TestResolver_ResolveAll(t *testing.T) {
	Register("test/all", func(*Env) Dependency {
		return &System{flags: []string{"-DALL"}, libs: []string{"-lall"}, incs: []string{"/inc"}}
	})

	r := NewResolver(&Env{})
	c, err := r.ResolveAll(context.Background(), []string{"test/all", "test/all:v2"})
	require.NoError(t, err)

	assert.Equal(t, []string{"-DALL", "-DALL"}, c.Flags, "contributions are concatenated")
	assert.Equal(t, []string{"-lall", "-lall"}, c.Libs)
	assert.Equal(t, []string{"/inc", "/inc"}, c.Incs)
}

func TestResolver_Errors(t *testing.T) {
	r := NewResolver(&Env{DependenciesDir: t.TempDir()})

	_, err := r.Resolve(context.Background(), "nobody/nothing")
	assert.ErrorIs(t, err, ErrPluginLoad)

	_, err = r.Resolve(context.Background(), "creator/:v1")
	assert.ErrorIs(t, err, ErrUnnamedDependency)
}

func TestResolver_InstallFailure(t *testing.T) {
	exec := &mockExecutor{err: &execute.ExitError{ExitCode: 128}}
	r := NewResolver(&Env{LibsDir: t.TempDir(), Executor: exec})

	_, err := r.Resolve(context.Background(), "nlohmann/json:v3.11.3")
	require.Error(t, err)

	var exitErr *execute.ExitError
	assert.True(t, errors.As(err, &exitErr))
}

func TestGitHub_Install(t *testing.T) {
	libs := t.TempDir()
	exec := &mockExecutor{}
	env := &Env{LibsDir: libs, Executor: exec}

	factory, ok := Lookup("stevengj/nlopt")
	require.True(t, ok)
	dep := factory(env)

	require.NoError(t, dep.Install(context.Background(), "v2.10.0"))

	path := filepath.Join(libs, "stevengj/nlopt", "v2.10.0")
	require.Len(t, exec.cmds, 3)
	assert.Equal(t, "git", exec.cmds[0].Path)
	assert.Equal(t, []string{"clone", "--depth", "1", "--branch", "v2.10.0", "https://github.com/stevengj/nlopt.git", path}, exec.cmds[0].Args)
	assert.Equal(t, "cmake", exec.cmds[1].Path)
	assert.Equal(t, path, exec.cmds[1].Dir)

	assert.Equal(t, []string{filepath.Join(path, "build", "libnlopt.a"), "-lm"}, dep.Libs())
	assert.Equal(t, []string{filepath.Join(path, "build"), filepath.Join(path, "src", "api")}, dep.Incs())

	// already installed
	require.NoError(t, dep.Install(context.Background(), "v2.10.0"))
	assert.Len(t, exec.cmds, 3)
}

func TestGitHub_FailedInstallRemovesCheckout(t *testing.T) {
	libs := t.TempDir()
	g := NewGitHub(&Env{LibsDir: libs, Executor: &failingBuild{}}, "owner/repo")
	g.Build = [][]string{{"make"}}

	err := g.Install(context.Background(), "v1")
	require.Error(t, err)
	assert.NoDirExists(t, filepath.Join(libs, "owner/repo", "v1"))
}

// failingBuild clones successfully and fails every other command
type failingBuild struct {
	mockExecutor
}

func (f *failingBuild) Execute(ctx context.Context, cmd *execute.Cmd) (*execute.Result, error) {
	if cmd.Path == "git" {
		return f.mockExecutor.Execute(ctx, cmd)
	}

	return &execute.Result{ExitCode: 2}, &execute.ExitError{ExitCode: 2}
}

func TestConfigTool(t *testing.T) {
	exec := &mockExecutor{stdout: "-I/usr/include/fltk -lfltk -lX11\n"}
	factory, ok := Lookup("fltk/fltk")
	require.True(t, ok)

	dep := factory(&Env{Executor: exec})
	require.NoError(t, dep.Install(context.Background(), DefaultVersion))
	require.NoError(t, dep.Install(context.Background(), DefaultVersion))

	assert.Len(t, exec.cmds, 1)
	assert.Equal(t, "fltk-config", exec.cmds[0].Path)
	assert.Equal(t, []string{"-I/usr/include/fltk", "-lfltk", "-lX11"}, dep.Libs())
}

func TestManifest(t *testing.T) {
	deps := t.TempDir()
	libs := t.TempDir()

	dir := filepath.Join(deps, "acme", "widgets")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dependency.yml"), []byte(`installed: ${target}
install:
  - mkdir -p ${target}
flags:
  - -DWIDGETS_VERSION=${version}
libs:
  - ${target}/libwidgets.a
incs:
  - ${libs}/acme/include
`), 0o644))

	exec := &mockExecutor{}
	r := NewResolver(&Env{LibsDir: libs, DependenciesDir: deps, Executor: exec})

	c, err := r.Resolve(context.Background(), "acme/widgets:v2")
	require.NoError(t, err)

	target := filepath.Join(libs, "acme", "widgets", "v2")
	require.Len(t, exec.cmds, 1)
	assert.Equal(t, "sh", exec.cmds[0].Path)
	assert.Equal(t, []string{"-c", "mkdir -p " + target}, exec.cmds[0].Args)
	assert.Equal(t, dir, exec.cmds[0].Dir)

	assert.Equal(t, []string{"-DWIDGETS_VERSION=v2"}, c.Flags)
	assert.Equal(t, []string{target + "/libwidgets.a"}, c.Libs)
	assert.Equal(t, []string{libs + "/acme/include"}, c.Incs)

	// once the marker exists installs are skipped
	require.NoError(t, os.MkdirAll(target, 0o755))
	_, err = r.Resolve(context.Background(), "acme/widgets:v2")
	require.NoError(t, err)
	assert.Len(t, exec.cmds, 1)
}

func TestManifest_DefaultMarker(t *testing.T) {
	deps := t.TempDir()
	libs := t.TempDir()

	dir := filepath.Join(deps, "acme", "gears")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dependency.yml"), []byte(`install:
  - make install PREFIX=${target}
`), 0o644))

	exec := &mockExecutor{}
	r := NewResolver(&Env{LibsDir: libs, DependenciesDir: deps, Executor: exec})

	_, err := r.Resolve(context.Background(), "acme/gears:v1")
	require.NoError(t, err)
	require.Len(t, exec.cmds, 1)

	// the install created the target directory
	require.NoError(t, os.MkdirAll(filepath.Join(libs, "acme", "gears", "v1"), 0o755))
	_, err = r.Resolve(context.Background(), "acme/gears:v1")
	require.NoError(t, err)
	assert.Len(t, exec.cmds, 1)

	// another version has no target yet
	_, err = r.Resolve(context.Background(), "acme/gears:v2")
	require.NoError(t, err)
	assert.Len(t, exec.cmds, 2)
}

func TestManifest_Invalid(t *testing.T) {
	deps := t.TempDir()
	dir := filepath.Join(deps, "bad", "bad")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dependency.json"), []byte("{not json"), 0o644))

	r := NewResolver(&Env{DependenciesDir: deps})
	_, err := r.Resolve(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrPluginLoad)
}
