// Package depcache persists per-file dependency records in the build tree.
//
// A record is stored next to the file's mirrored build artifacts with a
// ".dep" extension. It is trusted only while the artifact itself is at least
// as new as every file it lists; the check is redone against the current
// disk state on every load, and a stale artifact is deleted so the scanner
// recomputes it from scratch.
package depcache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Norgate-AV/autobuild/internal/buildtree"
	"github.com/Norgate-AV/autobuild/internal/utils"
	"github.com/Norgate-AV/autobuild/internal/watermark"
)

// Ext is the extension of cache artifacts
const Ext = ".dep"

// removeFile deletes stale artifacts; replaced in tests
var removeFile = os.Remove

var (
	ErrCorruptCache = errors.New("corrupt dependency cache")
	ErrCacheWrite   = errors.New("cannot write dependency cache")
)

// Store loads and saves dependency records
type Store struct {
	tree *buildtree.Tree
}

// NewStore creates a store that keeps records under tree
func NewStore(tree *buildtree.Tree) *Store {
	return &Store{tree: tree}
}

// Path returns the cache artifact location for file
func (s *Store) Path(file string) string {
	return s.tree.Mirror(file) + Ext
}

// Load returns the cached record for file, or nil if there is none or it went stale
func (s *Store) Load(file string) (*Record, error) {
	path := s.Path(file)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read dependency cache: %w", err)
	}

	rec, err := Decode(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat dependency cache: %w", err)
	}

	wm, ok := recompute(file, rec)
	if !ok || info.ModTime().Before(wm) {
		log.Debug("dependency cache is stale", "file", file)

		if err := removeFile(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("unable to delete stale cache %s: %w", path, err)
		}

		return nil, nil
	}

	rec.Watermark = wm
	return rec, nil
}

// recompute derives the watermark of rec from current modification times.
// It reports false if any listed file is gone.
func recompute(file string, rec *Record) (wm time.Time, ok bool) {
	paths := make([]string, 0, 1+len(rec.Includes)+len(rec.Implementations))
	paths = append(paths, file)
	paths = append(paths, rec.Includes...)
	paths = append(paths, rec.Implementations...)

	for _, p := range paths {
		t, err := utils.ModTime(p)
		if err != nil {
			return wm, false
		}

		wm = watermark.Max(wm, t)
	}

	return wm, true
}

// Save writes rec as the cache artifact for file
func (s *Store) Save(file string, rec *Record) error {
	path := s.Path(file)

	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheWrite, err)
	}

	if err := utils.WriteFileAtomic(path, []byte(Encode(rec)), 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheWrite, err)
	}

	return nil
}
