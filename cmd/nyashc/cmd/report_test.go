package cmd

import (
	"fmt"
	"testing"

	"github.com/nyashlang/nyashc/internal/lexer"
	"github.com/nyashlang/nyashc/internal/mirbuilder"
	"github.com/nyashlang/nyashc/internal/parser"
)

func TestDiagnosticForRecoversSpanFromKnownErrorTypes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		line int
		col  int
	}{
		{"lexer", &lexer.Error{Line: 3, Column: 5, Detail: "bad char"}, 3, 5},
		{"wrapped lexer", fmt.Errorf("lex x.nyash: %w", &lexer.Error{Line: 2, Column: 1}), 2, 1},
		{"unexpected token", &parser.UnexpectedToken{Line: 7, Found: "}", Expected: ")"}, 7, 1},
		{"invalid statement", &parser.InvalidStatement{Line: 4, Reason: "bad"}, 4, 1},
		{"undefined variable", &mirbuilder.UndefinedVariable{Name: "x", Line: 9}, 9, 1},
		{"unsupported shape", &mirbuilder.UnsupportedShape{What: "weird", Line: 1}, 1, 1},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d := diagnosticFor("test", c.err)
			if d.Span.Line != c.line || d.Span.Column != c.col {
				t.Errorf("want span %d:%d, got %d:%d", c.line, c.col, d.Span.Line, d.Span.Column)
			}
			if d.Span.Invalid() {
				t.Errorf("want a valid span for %s", c.name)
			}
			if d.Message != c.err.Error() {
				t.Errorf("want message %q, got %q", c.err.Error(), d.Message)
			}
		})
	}
}

func TestDiagnosticForUnknownErrorHasInvalidSpan(t *testing.T) {
	d := diagnosticFor("test", fmt.Errorf("some internal failure"))
	if !d.Span.Invalid() {
		t.Errorf("want an invalid span for an untyped error, got %v", d.Span)
	}
}
