package scanner

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Norgate-AV/autobuild/internal/utils"
)

var (
	includeDirective    = regexp.MustCompile(`^\s*#include\s*"([^"]+)"`)
	dependencyDirective = regexp.MustCompile(`^\s*//\s*DEPENDENCY\s*:\s*(.+)`)
	pragmaOnce          = regexp.MustCompile(`^\s*#\s*pragma\s+once\b`)
)

// Header and implementation extensions, in probe order
var (
	HeaderExts         = []string{".h", ".hpp"}
	ImplementationExts = []string{".c", ".cpp"}
)

// IsHeader reports whether path has a header extension
func IsHeader(path string) bool {
	return utils.Contains(HeaderExts, filepath.Ext(path))
}

// IsImplementation reports whether path has an implementation extension
func IsImplementation(path string) bool {
	return utils.Contains(ImplementationExts, filepath.Ext(path))
}

// ParseInclude returns the quoted path of an include line
func ParseInclude(line string) (string, bool) {
	m := includeDirective.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}

	return m[1], true
}

// ParseDependencies returns the specifiers of a DEPENDENCY line
func ParseDependencies(line string) []string {
	m := dependencyDirective.FindStringSubmatch(line)
	if m == nil {
		return nil
	}

	return utils.SplitList(m[1], ",")
}

// hasPragmaOnce reports whether the first non-blank line is #pragma once
func hasPragmaOnce(lines []string) bool {
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}

		return pragmaOnce.MatchString(line)
	}

	return false
}
