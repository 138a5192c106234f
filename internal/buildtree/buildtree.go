// Package buildtree maps source paths onto the build output tree.
//
// Every artifact autobuild produces (objects, executables, dependency
// records, precompiled headers) lives at the mirror of its source path under
// the build root, so two sources with the same name in different directories
// never collide.
package buildtree

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Norgate-AV/autobuild/internal/utils"
)

// externalDir holds mirrors of paths that live outside the base directory
const externalDir = "_ext"

// Tree mirrors paths under Base into Root
type Tree struct {
	Base string
	Root string
}

// New creates a tree rooted at root for sources under base
func New(base, root string) (*Tree, error) {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base path: %w", err)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve build path: %w", err)
	}

	return &Tree{Base: absBase, Root: absRoot}, nil
}

// Mirror returns the build tree location for path
func (t *Tree) Mirror(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}

	rel, err := filepath.Rel(t.Base, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		vol := filepath.VolumeName(abs)
		return filepath.Join(t.Root, externalDir, strings.TrimPrefix(abs, vol))
	}

	return filepath.Join(t.Root, rel)
}

// Output returns the mirrored path of source with its extension swapped for ext
func (t *Tree) Output(source, ext string) string {
	return utils.ReplaceExt(t.Mirror(source), ext)
}

// Folder returns the build folder for the given modes, e.g. ".build-debug-fast".
// Modes are sorted so the same selection always lands in the same folder.
func Folder(folder string, modes []string, sep string) string {
	if len(modes) == 0 {
		return filepath.Clean(folder)
	}

	sorted := make([]string, len(modes))
	copy(sorted, modes)
	sort.Strings(sorted)

	return filepath.Clean(folder + sep + strings.Join(sorted, sep))
}
