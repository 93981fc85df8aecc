package diag

import (
	"strings"

	"github.com/fatih/color"
)

var (
	errorLabel   = color.New(color.FgRed, color.Bold).SprintFunc()
	warningLabel = color.New(color.FgYellow, color.Bold).SprintFunc()
	caretColor   = color.New(color.FgCyan, color.Bold).SprintFunc()
)

// Render formats a single diagnostic as a one-line summary, followed by a
// two-line caret excerpt when source is non-empty and the span is valid.
// Caret excerpts are colorized only when colorize is true (the caller
// decides based on whether stdout/stderr is a terminal, via
// color.NoColor or an explicit isatty check upstream).
func Render(d Diagnostic, source string, colorize bool) string {
	var b strings.Builder

	label := d.Level.String()
	if colorize {
		if d.Level == LevelError {
			label = errorLabel(label)
		} else {
			label = warningLabel(label)
		}
	}
	b.WriteString(label)
	if d.Category != "" {
		b.WriteString("[" + d.Category + "]")
	}
	b.WriteString(": " + d.Message)

	if source != "" && !d.Span.Invalid() {
		if line, ok := sourceLine(source, d.Span.Line); ok {
			b.WriteString("\n  " + line)
			pointer := strings.Repeat(" ", max(0, d.Span.Column-1)) + "^"
			if colorize {
				pointer = caretColor(pointer)
			}
			b.WriteString("\n  " + pointer)
		}
	}
	return b.String()
}

func sourceLine(source string, line int) (string, bool) {
	if line <= 0 {
		return "", false
	}
	lines := strings.Split(source, "\n")
	if line > len(lines) {
		return "", false
	}
	return lines[line-1], true
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
