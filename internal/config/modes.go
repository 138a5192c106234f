package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Norgate-AV/autobuild/internal/utils"
)

// Build modes selectable with --mode
const (
	ModeDebug      = "debug"
	ModeFast       = "fast"
	ModeTest       = "test"
	ModeStrict     = "strict"
	ModeSafeMemory = "safe_memory"
	ModeSafeThread = "safe_thread"
	ModeCoverage   = "coverage"
)

// ErrUnknownMode is returned for a mode without a flag table
var ErrUnknownMode = errors.New("mode flags are undefined")

var (
	BaseFlags   = []string{"--std=c++20"}
	SharedFlags = []string{"-fPIC", "-shared"}

	flagsTest       = []string{"-DTEST"}
	flagsDebug      = []string{"-g", "-DDEBUG", "-fno-omit-frame-pointer"}
	flagsStrict     = []string{"-pedantic-errors", "-Werror", "-Wall", "-Wextra", "-Wunused", "-fno-elide-constructors"}
	flagsFast       = concat(flagsStrict, []string{"-Ofast", "-fno-fast-math"})
	flagsSafe       = concat(flagsStrict, []string{"-fsanitize-address-use-after-scope", "-fsanitize=undefined", "-fstack-protector"})
	flagsSafeMemory = concat(flagsSafe, []string{"-fsanitize=address", "-fsanitize=leak"})
	flagsSafeThread = concat(flagsSafe, []string{"-fsanitize=thread"})
	flagsCoverage   = []string{"-fprofile-arcs", "-ftest-coverage"}
)

var modeFlags = map[string][]string{
	ModeDebug:      flagsDebug,
	ModeFast:       flagsFast,
	ModeTest:       flagsTest,
	ModeStrict:     flagsStrict,
	ModeSafeMemory: flagsSafeMemory,
	ModeSafeThread: flagsSafeThread,
	ModeCoverage:   flagsCoverage,
}

func concat(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}

	return out
}

// Modes returns the sorted names of every mode
func Modes() []string {
	names := make([]string, 0, len(modeFlags))
	for name := range modeFlags {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}

// ModeFlags returns the compiler flags of mode
func ModeFlags(mode string) ([]string, error) {
	flags, ok := modeFlags[mode]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	return append([]string(nil), flags...), nil
}

// LibAlias expands a --libs entry into a dependency plugin plus link flags
type LibAlias struct {
	Dependency string
	Libs       []string
}

var libAliases = map[string]LibAlias{
	"fltk": {Dependency: "fltk/fltk", Libs: []string{"-lfltk", "-lfltk_images"}},
}

// ExpandLibs turns --libs names into link flags and dependency specifiers.
// Names without an alias become -l<name>.
func ExpandLibs(names []string) (libs, deps []string) {
	libs = []string{}
	deps = []string{}

	for _, name := range names {
		if alias, ok := libAliases[name]; ok {
			libs = append(libs, alias.Libs...)
			deps = utils.AppendUnique(deps, alias.Dependency)
			continue
		}

		libs = append(libs, "-l"+name)
	}

	return libs, deps
}
