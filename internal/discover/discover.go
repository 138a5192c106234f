// Package discover expands build inputs into the source files to compile.
package discover

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/Norgate-AV/autobuild/internal/scanner"
	"github.com/Norgate-AV/autobuild/internal/utils"
)

var skipDirs = map[string]struct{}{
	".git": {},
	".hg":  {},
	".svn": {},
}

// Options control directory expansion
type Options struct {
	// Descend into subdirectories
	Recursive bool

	// Directories never descended into, such as the build folder
	Skip []string
}

// Sources expands inputs: files are taken as is, directories contribute their
// C/C++ sources not matched by the directory's .gitignore. Inputs that do not
// exist are skipped with a warning. The result is absolute, deduped and sorted.
func Sources(inputs []string, opts Options) ([]string, error) {
	skip := make(map[string]struct{}, len(opts.Skip))
	for _, dir := range opts.Skip {
		if abs, err := filepath.Abs(dir); err == nil {
			skip[abs] = struct{}{}
		}
	}

	var files []string

	for _, input := range inputs {
		abs, err := filepath.Abs(input)
		if err != nil {
			return nil, err
		}

		info, err := os.Stat(abs)
		if err != nil {
			log.Warn("input not found", "path", input)
			continue
		}

		if !info.IsDir() {
			files = utils.AppendUnique(files, abs)
			continue
		}

		found, err := walk(abs, opts.Recursive, skip)
		if err != nil {
			return nil, err
		}

		files = utils.AppendUnique(files, found...)
	}

	sort.Strings(files)
	return files, nil
}

func walk(root string, recursive bool, skip map[string]struct{}) ([]string, error) {
	gi := loadGitignore(root)

	var results []string

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}

		if d.IsDir() {
			if path == root {
				return nil
			}

			if _, ok := skip[path]; ok {
				return filepath.SkipDir
			}

			if _, ok := skipDirs[d.Name()]; ok || !recursive {
				return filepath.SkipDir
			}

			if gi != nil && gi.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}

			return nil
		}

		if !IsSource(d.Name()) {
			return nil
		}

		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}

		results = append(results, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return results, nil
}

func loadGitignore(root string) *ignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}

	return gi
}

// IsSource reports whether path is an implementation file, ignoring extension case
func IsSource(path string) bool {
	return scanner.IsImplementation(strings.ToLower(path))
}
