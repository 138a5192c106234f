package plugin

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultVersion is used when a specifier names no version
const DefaultVersion = "master"

// Specifier separators
const (
	sepVersion = ":"
	sepLibrary = "/"
)

var (
	ErrUnnamedDependency = errors.New("unnamed library in dependency")
	ErrPluginLoad        = errors.New("failed to load dependency plugin")
)

// Specifier is a parsed [creator/]library[:version] dependency declaration
type Specifier struct {
	Raw     string
	Creator string
	Library string
	Version string
}

// ParseSpecifier parses raw. The creator defaults to the library name and
// the version to DefaultVersion.
func ParseSpecifier(raw string) (Specifier, error) {
	raw = strings.TrimSpace(raw)

	name, version, _ := strings.Cut(raw, sepVersion)
	creator, library, found := strings.Cut(name, sepLibrary)
	if !found {
		creator, library = "", name
	}

	creator = strings.TrimSpace(creator)
	library = strings.TrimSpace(library)
	version = strings.TrimSpace(version)

	if library == "" {
		return Specifier{}, fmt.Errorf("%w: %q", ErrUnnamedDependency, raw)
	}

	if creator == "" {
		creator = library
	}

	if version == "" {
		version = DefaultVersion
	}

	return Specifier{
		Raw:     raw,
		Creator: creator,
		Library: library,
		Version: version,
	}, nil
}

// ID identifies the plugin serving s
func (s Specifier) ID() string {
	return s.Creator + sepLibrary + s.Library
}

// ClassName is the display name of the plugin, e.g. "JsonDependency"
func (s Specifier) ClassName() string {
	r, size := utf8.DecodeRuneInString(s.Library)
	return string(unicode.ToUpper(r)) + s.Library[size:] + "Dependency"
}

func (s Specifier) String() string {
	return s.ID() + sepVersion + s.Version
}
