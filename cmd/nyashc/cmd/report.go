package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/nyashlang/nyashc/internal/diag"
	"github.com/nyashlang/nyashc/internal/lexer"
	"github.com/nyashlang/nyashc/internal/mirbuilder"
	"github.com/nyashlang/nyashc/internal/parser"
	"github.com/nyashlang/nyashc/internal/span"
	"github.com/spf13/cobra"
)

// diagnosticFor recovers a span from err's concrete type, when its stage
// tracked one, so the CLI can render the same caret excerpt a plugin host
// would get from devport (spec.md §7).
func diagnosticFor(category string, err error) diag.Diagnostic {
	sp := span.Span{}

	var lexErr *lexer.Error
	var unexpectedTok *parser.UnexpectedToken
	var unexpectedEOF *parser.UnexpectedEOF
	var invalidExpr *parser.InvalidExpression
	var invalidStmt *parser.InvalidStatement
	var infiniteLoop *parser.InfiniteLoop
	var undefinedVar *mirbuilder.UndefinedVariable
	var unsupportedShape *mirbuilder.UnsupportedShape

	switch {
	case errors.As(err, &lexErr):
		sp = span.Span{Line: lexErr.Line, Column: lexErr.Column}
	case errors.As(err, &unexpectedTok):
		sp = span.Span{Line: unexpectedTok.Line, Column: 1}
	case errors.As(err, &unexpectedEOF):
		sp = span.Span{Line: unexpectedEOF.Line, Column: 1}
	case errors.As(err, &invalidExpr):
		sp = span.Span{Line: invalidExpr.Line, Column: 1}
	case errors.As(err, &invalidStmt):
		sp = span.Span{Line: invalidStmt.Line, Column: 1}
	case errors.As(err, &infiniteLoop):
		sp = span.Span{Line: infiniteLoop.Line, Column: 1}
	case errors.As(err, &undefinedVar):
		sp = span.Span{Line: undefinedVar.Line, Column: 1}
	case errors.As(err, &unsupportedShape):
		sp = span.Span{Line: unsupportedShape.Line, Column: 1}
	}

	return diag.Errorf(category, sp, "%s", err.Error())
}

// printDiagnostic writes err to stderr as a rendered diag.Diagnostic rather
// than a bare error line, reading path back in for the caret excerpt on a
// best-effort basis (a read failure just means no excerpt).
func printDiagnostic(category string, noColor bool, path string, err error) {
	if err == nil {
		return
	}
	source, _ := readSource(path)
	fmt.Fprintln(os.Stderr, diag.Render(diagnosticFor(category, err), source, !noColor))
}

// reportFatal prints err as a diagnostic and terminates the process with
// exit code 1, the way every single-shot subcommand (lex/parse/mir/build)
// reports a pipeline failure.
func reportFatal(cmd *cobra.Command, category, path string, err error) error {
	if err == nil {
		return nil
	}
	noColor, _ := cmd.Flags().GetBool("no-color")
	printDiagnostic(category, noColor, path, err)
	os.Exit(1)
	return nil
}

func noColorFlag(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("no-color")
	return v
}
