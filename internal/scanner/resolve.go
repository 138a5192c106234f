package scanner

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Norgate-AV/autobuild/internal/utils"
)

// searchPath lists dir followed by the include directories
func searchPath(dir string, includeDirs []string) []string {
	dirs := make([]string, 0, 1+len(includeDirs))
	dirs = append(dirs, dir)

	for _, d := range includeDirs {
		if d = strings.TrimSpace(d); d != "" {
			dirs = append(dirs, d)
		}
	}

	return dirs
}

func locate(dir, token string) string {
	if filepath.IsAbs(token) {
		return filepath.Clean(token)
	}

	path, err := filepath.Abs(filepath.Join(dir, token))
	if err != nil {
		return filepath.Join(dir, token)
	}

	return path
}

// ResolveInclude finds token relative to dir, then in each include directory,
// stopping at the first directory holding any match. A token without an
// extension is probed there with every header extension. Ambiguity is judged
// within that directory only: two probes hitting in it is an error, while the
// same stem in a later directory is shadowed and never looked at.
func ResolveInclude(dir, token string, includeDirs []string) (string, error) {
	exts := []string{""}
	if filepath.Ext(token) == "" {
		exts = HeaderExts
	}

	for _, d := range searchPath(dir, includeDirs) {
		var hits []string

		for _, ext := range exts {
			if path := locate(d, token+ext); utils.FileExists(path) {
				hits = append(hits, path)
			}
		}

		switch len(hits) {
		case 0:
			continue
		case 1:
			return hits[0], nil
		default:
			return "", &ScanError{
				Kind: ErrAmbiguousInclude,
				Msg:  fmt.Sprintf("%q matches %s", token, strings.Join(hits, ", ")),
			}
		}
	}

	return "", &ScanError{Kind: ErrIncludeNotFound, Msg: fmt.Sprintf("%q", token)}
}

// FindImplementations returns the implementation files paired with token:
// for every implementation extension, the first match along the search path.
func FindImplementations(dir, token string, includeDirs []string) []string {
	var found []string

	for _, ext := range ImplementationExts {
		stem := utils.ReplaceExt(token, ext)

		for _, d := range searchPath(dir, includeDirs) {
			if path := locate(d, stem); utils.FileExists(path) {
				found = utils.AppendUnique(found, path)
				break
			}
		}
	}

	return found
}
