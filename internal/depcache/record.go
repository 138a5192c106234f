package depcache

import (
	"fmt"
	"strings"
	"time"

	"github.com/Norgate-AV/autobuild/internal/utils"
)

// Section markers of the on-disk record format
const (
	sepImplementations = "\n<=== [ INCS | IMPS ] ===>\n"
	sepDependencies    = "\n<=== [ IMPS | DEPS ] ===>\n"
)

// Record is the memoized dependency graph node of one source file
type Record struct {
	// Transitive quoted includes, in discovery order
	Includes []string

	// Implementation files paired with the included headers
	Implementations []string

	// Raw dependency specifiers from DEPENDENCY directives
	Dependencies []string

	// Newest modification time over the file and everything above.
	// Not persisted; recomputed from disk on every load.
	Watermark time.Time
}

// Merge unions other's sets into r and raises r's watermark
func (r *Record) Merge(other *Record) {
	r.Includes = utils.AppendUnique(r.Includes, other.Includes...)
	r.Implementations = utils.AppendUnique(r.Implementations, other.Implementations...)
	r.Dependencies = utils.AppendUnique(r.Dependencies, other.Dependencies...)

	if other.Watermark.After(r.Watermark) {
		r.Watermark = other.Watermark
	}
}

// Encode serializes r into the cache artifact format
func Encode(r *Record) string {
	return strings.Join(r.Includes, "\n") +
		sepImplementations +
		strings.Join(r.Implementations, "\n") +
		sepDependencies +
		strings.Join(r.Dependencies, "\n")
}

// Decode parses a cache artifact. An empty artifact is an empty record.
func Decode(data string) (*Record, error) {
	if data == "" {
		return &Record{}, nil
	}

	incs, rest, ok := strings.Cut(data, sepImplementations)
	if !ok || strings.Contains(rest, sepImplementations) {
		return nil, fmt.Errorf("%w: missing or repeated marker %q", ErrCorruptCache, strings.TrimSpace(sepImplementations))
	}

	imps, deps, ok := strings.Cut(rest, sepDependencies)
	if !ok || strings.Contains(deps, sepDependencies) {
		return nil, fmt.Errorf("%w: missing or repeated marker %q", ErrCorruptCache, strings.TrimSpace(sepDependencies))
	}

	return &Record{
		Includes:        splitLines(incs),
		Implementations: splitLines(imps),
		Dependencies:    splitLines(deps),
	}, nil
}

func splitLines(s string) []string {
	if s == "" {
		return []string{}
	}

	return strings.Split(s, "\n")
}
