// Package parser implements a recursive-descent, operator-precedence
// parser that lowers a Nyash token stream into an ast.Program
// (spec.md §4.2).
package parser

import (
	"github.com/nyashlang/nyashc/internal/ast"
	"github.com/nyashlang/nyashc/internal/lexer"
	"github.com/nyashlang/nyashc/internal/span"
)

// DefaultFuel bounds every token-advancing loop; exhaustion is reported as
// InfiniteLoop rather than hanging (spec.md §4.2, §5). Callers that want an
// unbounded parse (e.g. trusted, pre-validated input) can pass Unbounded to
// SetFuel.
const DefaultFuel = 100_000

// Unbounded disables the fuel fuse entirely.
const Unbounded = -1

// Parser is a recursive-descent parser over a pre-tokenized Nyash source
// file. Lexing happens eagerly in New so a lexical error short-circuits
// before any parsing is attempted, matching the propagation policy of
// spec.md §7.
type Parser struct {
	filename string
	source   string
	tokens   []lexer.Token
	pos      int

	fuel int

	// scope tracks explicitly-declared names for the "explicit
	// declaration" rule (spec.md §4.2): inside a function/method body, a
	// bare assignment to an undeclared name is an error; at Program top
	// level, it implicitly declares the name.
	scope *scope

	// boxesSeen accumulates every box declared so far in this file, keyed
	// by name, so override validation can resolve `from` parents declared
	// earlier in the same file (see decl.go's validateOverrides).
	boxesSeen map[string]*ast.BoxDecl
}

// pushFunctionScope enters a new non-top scope for a function/method body
// and pre-declares its parameters.
func (p *Parser) pushFunctionScope(params []ast.Param) {
	s := newScope(false, p.scope)
	for _, prm := range params {
		s.declare(prm.Name)
	}
	p.scope = s
}

// popScope leaves the current scope, restoring its parent.
func (p *Parser) popScope() {
	if p.scope.parent != nil {
		p.scope = p.scope.parent
	}
}

type scope struct {
	declared map[string]bool
	isTop    bool
	parent   *scope
}

func newScope(isTop bool, parent *scope) *scope {
	return &scope{declared: make(map[string]bool), isTop: isTop, parent: parent}
}

func (s *scope) declare(name string) { s.declared[name] = true }

func (s *scope) isDeclared(name string) bool {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.declared[name] {
			return true
		}
	}
	return false
}

// New tokenizes source and returns a Parser ready to Parse it, or the
// wrapped lexer error if tokenizing failed.
func New(source, filename string) (*Parser, error) {
	toks, err := lexer.Tokenize(source)
	if err != nil {
		return nil, &TokenizeError{Err: err}
	}
	return &Parser{
		filename: filename,
		source:   source,
		tokens:   toks,
		fuel:     DefaultFuel,
		scope:    newScope(true, nil),
	}, nil
}

// SetFuel overrides the debug-fuel budget; pass Unbounded to disable it.
func (p *Parser) SetFuel(n int) { p.fuel = n }

func (p *Parser) cur() lexer.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekAt(n int) lexer.Token {
	idx := p.pos + n
	if idx >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[idx]
}

func (p *Parser) advance() lexer.Token {
	tok := p.cur()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *Parser) at(tt lexer.TokenType) bool { return p.cur().Type == tt }

func (p *Parser) expect(tt lexer.TokenType) (lexer.Token, error) {
	if p.cur().Type == lexer.EOF && tt != lexer.EOF {
		return lexer.Token{}, &UnexpectedEOF{Line: p.cur().Line}
	}
	if p.cur().Type != tt {
		return lexer.Token{}, &UnexpectedToken{Found: p.cur().Type.String(), Expected: tt.String(), Line: p.cur().Line}
	}
	return p.advance(), nil
}

// consumeFuel must be called once per iteration of any loop that advances
// tokens. location names the construct being parsed, used in the reported
// InfiniteLoop error.
func (p *Parser) consumeFuel(location string) error {
	if p.fuel == Unbounded {
		return nil
	}
	p.fuel--
	if p.fuel <= 0 {
		return &InfiniteLoop{Location: location, Token: p.cur().Type.String(), Line: p.cur().Line}
	}
	return nil
}

// skipNewlines consumes zero or more NEWLINE tokens (blank lines and
// statement terminators collapse together).
func (p *Parser) skipNewlines() error {
	for p.at(lexer.NEWLINE) {
		if err := p.consumeFuel("skipNewlines"); err != nil {
			return err
		}
		p.advance()
	}
	return nil
}

func mkSpan(start, end lexer.Token) span.Span {
	return span.Span{
		Start:  start.Offset,
		End:    end.Offset + len(end.Literal),
		Line:   start.Line,
		Column: start.Column,
	}
}

func tokSpan(t lexer.Token) span.Span { return mkSpan(t, t) }

// Parse parses the full source into a Program, short-circuiting at the
// first error encountered (spec.md §7).
func (p *Parser) Parse() (*ast.Program, error) {
	start := p.cur()
	prog := &ast.Program{}

	if err := p.skipNewlines(); err != nil {
		return nil, err
	}

	for !p.at(lexer.EOF) {
		if err := p.consumeFuel("Program"); err != nil {
			return nil, err
		}

		switch p.cur().Type {
		case lexer.STATIC:
			if p.peekAt(1).Type == lexer.BOX {
				decl, err := p.parseBoxDecl(true)
				if err != nil {
					return nil, err
				}
				prog.Decls = append(prog.Decls, decl)
				break
			}
			return nil, &UnexpectedToken{Found: p.peekAt(1).Type.String(), Expected: "box", Line: p.cur().Line}
		case lexer.BOX:
			decl, err := p.parseBoxDecl(false)
			if err != nil {
				return nil, err
			}
			prog.Decls = append(prog.Decls, decl)
		case lexer.INTERFACE:
			decl, err := p.parseInterfaceBoxDecl()
			if err != nil {
				return nil, err
			}
			prog.Decls = append(prog.Decls, decl)
		case lexer.FUNCTION:
			decl, err := p.parseFunctionDecl()
			if err != nil {
				return nil, err
			}
			prog.Decls = append(prog.Decls, decl)
		case lexer.GLOBAL:
			decl, err := p.parseGlobalVar()
			if err != nil {
				return nil, err
			}
			prog.Decls = append(prog.Decls, decl)
		default:
			stmt, err := p.parseStatement()
			if err != nil {
				return nil, err
			}
			prog.Stmts = append(prog.Stmts, stmt)
		}

		if err := p.skipNewlines(); err != nil {
			return nil, err
		}
	}

	if err := p.checkStaticCycles(prog); err != nil {
		return nil, err
	}

	prog.Sp = mkSpan(start, p.cur())
	return prog, nil
}

// checkStaticCycles runs DFS over the collected static-box dependency map
// and reports CircularDependency naming every participant in cycle order
// (spec.md §4.2, §8 property 3).
func (p *Parser) checkStaticCycles(prog *ast.Program) error {
	deps := make(map[string][]string)
	for _, d := range prog.Decls {
		if box, ok := d.(*ast.BoxDecl); ok && box.IsStatic {
			deps[box.Name] = box.StaticDepNames
		}
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(deps))
	var stack []string

	var visit func(name string) error
	visit = func(name string) error {
		if color[name] == black {
			return nil
		}
		if color[name] == gray {
			cycleStart := 0
			for i, n := range stack {
				if n == name {
					cycleStart = i
					break
				}
			}
			cycle := append([]string{}, stack[cycleStart:]...)
			cycle = append(cycle, name)
			return &CircularDependency{Cycle: cycle}
		}

		color[name] = gray
		stack = append(stack, name)
		for _, dep := range deps[name] {
			if _, known := deps[dep]; known {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[name] = black
		return nil
	}

	for name := range deps {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}
