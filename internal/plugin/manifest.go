package plugin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"

	"github.com/Norgate-AV/autobuild/internal/execute"
	"github.com/Norgate-AV/autobuild/internal/utils"
)

// ManifestName is the base name of dependency manifests
const ManifestName = "dependency"

// FindManifest returns the manifest for spec under dir, or "" if there is none
func FindManifest(dir string, spec Specifier) string {
	if dir == "" {
		return ""
	}

	base := filepath.Join(dir, spec.Creator, spec.Library)
	for _, ext := range []string{"yml", "yaml", "json", "toml"} {
		path := filepath.Join(base, ManifestName+"."+ext)

		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// Manifest is a plugin described by a configuration file:
//
//	installed: ${target}/include
//	install:
//	  - git clone --depth 1 --branch ${version} https://example.com/lib.git ${target}
//	flags: [-DLIB_STATIC]
//	libs: [${target}/build/liblib.a]
//	incs: [${target}/include]
//
// ${version} is the requested version, ${target} its install directory and
// ${libs} the libraries directory. Without an installed marker the target
// directory itself is the marker.
type Manifest struct {
	spec Specifier
	dir  string
	env  *Env

	installed string
	install   []string
	flags     []string
	libs      []string
	incs      []string

	version string
}

// LoadManifest reads the manifest at path
func LoadManifest(path string, spec Specifier, env *Env) (*Manifest, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("installed", "${target}")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	return &Manifest{
		spec:      spec,
		dir:       filepath.Dir(path),
		env:       env,
		installed: v.GetString("installed"),
		install:   v.GetStringSlice("install"),
		flags:     v.GetStringSlice("flags"),
		libs:      v.GetStringSlice("libs"),
		incs:      v.GetStringSlice("incs"),
		version:   spec.Version,
	}, nil
}

// Target is the install directory of the current version
func (m *Manifest) Target() string {
	return filepath.Join(m.env.LibsDir, m.spec.Creator, m.spec.Library, m.version)
}

func (m *Manifest) expand(s string) string {
	return strings.NewReplacer(
		"${version}", m.version,
		"${target}", m.Target(),
		"${libs}", m.env.LibsDir,
	).Replace(s)
}

func (m *Manifest) expandAll(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		out = append(out, m.expand(s))
	}

	return out
}

// Installed reports whether the manifest's installed marker exists
func (m *Manifest) Installed() bool {
	return m.installed != "" && utils.Exists(m.expand(m.installed))
}

// Install runs the install commands through the shell unless already installed
func (m *Manifest) Install(ctx context.Context, version string) error {
	m.version = version

	if m.Installed() {
		return nil
	}

	log.Infof("Installing %s %s...", m.spec.ID(), version)

	for _, line := range m.install {
		cmd := &execute.Cmd{
			Path:   "sh",
			Args:   []string{"-c", m.expand(line)},
			Dir:    m.dir,
			Stdout: os.Stderr,
			Stderr: os.Stderr,
		}

		if _, err := m.env.Executor.Execute(ctx, cmd); err != nil {
			return fmt.Errorf("install step %q failed: %w", line, err)
		}
	}

	return nil
}

func (m *Manifest) Flags() []string { return m.expandAll(m.flags) }
func (m *Manifest) Libs() []string  { return m.expandAll(m.libs) }
func (m *Manifest) Incs() []string  { return m.expandAll(m.incs) }
