package execute

import (
	"strings"

	"github.com/gookit/color"
)

// HighlightDiagnostics colors compiler diagnostics line by line:
// errors red, warnings yellow, notes cyan.
func HighlightDiagnostics(text string) string {
	lines := strings.Split(text, "\n")

	for i, line := range lines {
		switch {
		case strings.Contains(line, "error:") || strings.Contains(line, "Error:"):
			lines[i] = color.Red.Sprint(line)
		case strings.Contains(line, "warning:"):
			lines[i] = color.Yellow.Sprint(line)
		case strings.Contains(line, "note:"):
			lines[i] = color.Cyan.Sprint(line)
		}
	}

	return strings.Join(lines, "\n")
}
