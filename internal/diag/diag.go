// Package diag renders compiler diagnostics: leveled records carrying a
// span, a category, and a message, formatted as a single-line summary plus
// a caret excerpt when source text is available.
package diag

import (
	"fmt"

	"github.com/nyashlang/nyashc/internal/span"
)

// Level is a diagnostic's severity.
type Level int

const (
	LevelError Level = iota
	LevelWarning
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// Diagnostic is one reported problem: a subsystem-tagged category, a
// message, and the span it refers to.
type Diagnostic struct {
	Level    Level
	Category string
	Message  string
	Span     span.Span
}

func Errorf(category string, sp span.Span, format string, args ...any) Diagnostic {
	return Diagnostic{Level: LevelError, Category: category, Message: fmt.Sprintf(format, args...), Span: sp}
}

func Warnf(category string, sp span.Span, format string, args ...any) Diagnostic {
	return Diagnostic{Level: LevelWarning, Category: category, Message: fmt.Sprintf(format, args...), Span: sp}
}

// Bag collects diagnostics for one compilation and reports whether any
// errors (as opposed to warnings) were recorded.
type Bag struct {
	items []Diagnostic
}

func (b *Bag) Add(d Diagnostic) {
	b.items = append(b.items, d)
}

func (b *Bag) Errors() []Diagnostic   { return b.filter(LevelError) }
func (b *Bag) Warnings() []Diagnostic { return b.filter(LevelWarning) }
func (b *Bag) All() []Diagnostic      { return b.items }
func (b *Bag) HasErrors() bool        { return len(b.Errors()) > 0 }

func (b *Bag) filter(level Level) []Diagnostic {
	var out []Diagnostic
	for _, d := range b.items {
		if d.Level == level {
			out = append(out, d)
		}
	}
	return out
}
