package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/Norgate-AV/autobuild/internal/buildtree"
	"github.com/Norgate-AV/autobuild/internal/utils"
)

// Default configuration values
const (
	DefaultCompiler        = "g++"
	DefaultBuildFolder     = ".build"
	DefaultDependenciesDir = "dependencies"
	DefaultLibsDir         = "libs"
	DefaultPCHJobs         = 4
	DefaultHistory         = true
	DefaultVerbose         = false

	// ModeSeparator joins modes onto the build folder name
	ModeSeparator = "-"

	// ListSeparator splits list parameters given as one string
	ListSeparator = ","
)

// Holds the configuration options for autobuild
type Config struct {
	// Compiler executable
	Compiler string

	// Directory sources are mirrored relative to
	BaseDir string

	// Build folder before mode suffixes
	BuildFolder string

	// Selected modes, sorted
	Modes []string

	// Extra compiler arguments
	Args []string

	IncludeDirs []string

	// Library names given with --libs
	Libs []string

	// Build shared objects instead of executables
	Shared bool

	// Build with a worker pool; Jobs overrides its size
	Parallel bool
	Jobs     int

	// Precompile included headers with at most PCHJobs compiles per batch
	PCH     bool
	PCHJobs int

	// Dependency manifests and installed library sources
	DependenciesDir string
	LibsDir         string

	// Expand input directories recursively
	Recursive bool

	// Run built outputs with RunArgs afterwards
	Run     bool
	RunArgs string

	// Record compiles in the build history
	History bool

	// Enable verbose output
	Verbose bool
}

func Load() (*Config, error) {
	cfg := &Config{
		Compiler:        viper.GetString("compiler"),
		BaseDir:         viper.GetString("base_dir"),
		BuildFolder:     viper.GetString("build_folder"),
		Modes:           utils.FlattenList(viper.GetStringSlice("mode"), ListSeparator),
		Args:            strings.Fields(strings.Join(viper.GetStringSlice("args"), " ")),
		IncludeDirs:     utils.FlattenList(viper.GetStringSlice("include_dirs"), ListSeparator),
		Libs:            utils.FlattenList(viper.GetStringSlice("libs"), ListSeparator),
		Shared:          viper.GetBool("shared"),
		Parallel:        viper.GetBool("parallel"),
		Jobs:            viper.GetInt("jobs"),
		PCH:             viper.GetBool("pch"),
		PCHJobs:         viper.GetInt("pch_jobs"),
		DependenciesDir: viper.GetString("dependencies_dir"),
		LibsDir:         viper.GetString("libs_dir"),
		Recursive:       viper.GetBool("recursive"),
		Run:             viper.GetBool("run"),
		RunArgs:         viper.GetString("run_args"),
		History:         viper.GetBool("history"),
		Verbose:         viper.GetBool("verbose"),
	}

	// Apply defaults if not set
	if cfg.Compiler == "" {
		cfg.Compiler = DefaultCompiler
	}

	if cfg.BuildFolder == "" {
		cfg.BuildFolder = DefaultBuildFolder
	}

	if cfg.DependenciesDir == "" {
		cfg.DependenciesDir = DefaultDependenciesDir
	}

	if cfg.LibsDir == "" {
		cfg.LibsDir = DefaultLibsDir
	}

	if cfg.PCHJobs <= 0 {
		cfg.PCHJobs = DefaultPCHJobs
	}

	if cfg.RunArgs != "" {
		cfg.Run = true
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.BaseDir == "" {
		c.BaseDir = "."
	}

	base, err := filepath.Abs(c.BaseDir)
	if err != nil {
		return fmt.Errorf("invalid base directory: %v", err)
	}
	c.BaseDir = base

	for _, mode := range c.Modes {
		if _, err := ModeFlags(mode); err != nil {
			return err
		}
	}

	sort.Strings(c.Modes)

	if c.Jobs < 0 {
		return fmt.Errorf("invalid job count: %d", c.Jobs)
	}

	// Resolve paths against the base directory
	c.BuildFolder = c.resolve(c.BuildFolder)
	c.DependenciesDir = c.resolve(c.DependenciesDir)
	c.LibsDir = c.resolve(c.LibsDir)

	for i, dir := range c.IncludeDirs {
		c.IncludeDirs[i] = c.resolve(dir)
	}

	return nil
}

func (c *Config) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(c.BaseDir, path)
}

// Strict reports whether strict checks apply: no mode selected, or strict selected
func (c *Config) Strict() bool {
	return len(c.Modes) == 0 || utils.Contains(c.Modes, ModeStrict)
}

// BuildPath is the build folder suffixed with the selected modes
func (c *Config) BuildPath() string {
	return buildtree.Folder(c.BuildFolder, c.Modes, ModeSeparator)
}

// OutputExt is the extension of top-level outputs
func (c *Config) OutputExt() string {
	if c.Shared {
		return ".so"
	}

	return ""
}

// CompileFlags returns the base, shared and mode flags followed by extra arguments
func (c *Config) CompileFlags() ([]string, error) {
	flags := append([]string(nil), BaseFlags...)
	if c.Shared {
		flags = append(flags, SharedFlags...)
	}

	for _, mode := range c.Modes {
		mf, err := ModeFlags(mode)
		if err != nil {
			return nil, err
		}

		flags = utils.AppendUnique(flags, mf...)
	}

	return append(flags, c.Args...), nil
}

// LinkLibs returns the link flags of the configured libraries and the
// dependency specifiers their aliases require
func (c *Config) LinkLibs() (libs, deps []string) {
	return ExpandLibs(c.Libs)
}
