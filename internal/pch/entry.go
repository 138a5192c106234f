package pch

import (
	"github.com/Norgate-AV/autobuild/internal/buildtree"
	"github.com/Norgate-AV/autobuild/internal/utils"
)

// Artifact extensions
const (
	Ext        = ".gch"
	WrapperExt = ".wrp"
)

// Entry locates the precompiled artifacts of one header
type Entry struct {
	Header  string
	Wrapper string
	File    string
}

// NewEntry derives the entry for header from its mirror in tree
func NewEntry(tree *buildtree.Tree, header string) *Entry {
	mirror := tree.Mirror(header)

	return &Entry{
		Header:  header,
		Wrapper: mirror + WrapperExt,
		File:    mirror + Ext,
	}
}

// Stale reports whether the precompiled header is missing or older than its header or wrapper
func (e *Entry) Stale() bool {
	built, err := utils.ModTime(e.File)
	if err != nil {
		return true
	}

	for _, input := range []string{e.Header, e.Wrapper} {
		t, err := utils.ModTime(input)
		if err != nil || built.Before(t) {
			return true
		}
	}

	return false
}

// WrapperStale reports whether the wrapper must be (re)written
func (e *Entry) WrapperStale() bool {
	wrapped, err := utils.ModTime(e.Wrapper)
	if err != nil {
		return true
	}

	header, err := utils.ModTime(e.Header)
	return err != nil || wrapped.Before(header)
}

// WrapperContent is the single include line compiled in place of the header
func (e *Entry) WrapperContent() []byte {
	return []byte("#include \"" + e.Header + "\"\n")
}
