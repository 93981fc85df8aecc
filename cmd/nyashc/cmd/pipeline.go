package cmd

import (
	"fmt"
	"os"

	"github.com/nyashlang/nyashc/internal/ast"
	"github.com/nyashlang/nyashc/internal/mir"
	"github.com/nyashlang/nyashc/internal/mirbuilder"
	"github.com/nyashlang/nyashc/internal/optimizer"
	"github.com/nyashlang/nyashc/internal/parser"
	"github.com/nyashlang/nyashc/internal/wasmgen"
)

// readSource loads a source file, or "-" for stdin semantics are not
// supported here since the watch pipeline needs a real path to watch.
func readSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func parseProgram(path string) (*ast.Program, error) {
	source, err := readSource(path)
	if err != nil {
		return nil, err
	}
	p, err := parser.New(source, path)
	if err != nil {
		return nil, fmt.Errorf("lex %s: %w", path, err)
	}
	prog, err := p.Parse()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return prog, nil
}

// buildModule runs lex -> parse -> MIR build -> verify, returning the
// unoptimized module. Verification failures are returned as a combined
// error rather than silently ignored.
func buildModule(path string) (*mir.Module, error) {
	prog, err := parseProgram(path)
	if err != nil {
		return nil, err
	}
	m, err := mirbuilder.Build(prog)
	if err != nil {
		return nil, fmt.Errorf("mir-build %s: %w", path, err)
	}
	if errs := mir.VerifyModule(m); len(errs) > 0 {
		return nil, fmt.Errorf("verify %s: %d ownership error(s), first: %v", path, len(errs), errs[0])
	}
	return m, nil
}

// compileToWAT runs the full pipeline through optimization and WAT
// emission (spec.md §4.7, §4.8).
func compileToWAT(path string) (string, error) {
	m, err := buildModule(path)
	if err != nil {
		return "", err
	}
	optimizer.Run(m)
	if errs := mir.VerifyModule(m); len(errs) > 0 {
		return "", fmt.Errorf("verify %s after optimize: %d ownership error(s), first: %v", path, len(errs), errs[0])
	}
	out, err := wasmgen.Emit(m)
	if err != nil {
		return "", fmt.Errorf("wasm-emit %s: %w", path, err)
	}
	return out, nil
}
