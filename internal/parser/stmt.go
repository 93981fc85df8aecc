package parser

import (
	"github.com/nyashlang/nyashc/internal/ast"
	"github.com/nyashlang/nyashc/internal/lexer"
)

// parseBlock parses a `{ stmt* }` block, pushing no new scope itself —
// callers that need a fresh scope (function/method bodies) push one before
// calling parseBlock and pop it afterward.
func (p *Parser) parseBlock() ([]ast.Stmt, error) {
	if _, err := p.expect(lexer.LBRACE); err != nil {
		return nil, err
	}
	if err := p.skipNewlines(); err != nil {
		return nil, err
	}
	var stmts []ast.Stmt
	for !p.at(lexer.RBRACE) {
		if err := p.consumeFuel("block"); err != nil {
			return nil, err
		}
		if p.at(lexer.EOF) {
			return nil, &UnexpectedEOF{Line: p.cur().Line}
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
		if err := p.skipNewlines(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.RBRACE); err != nil {
		return nil, err
	}
	return stmts, nil
}

// parseStatement dispatches on the current token to the appropriate
// statement-level parser (spec.md §4.2).
func (p *Parser) parseStatement() (ast.Stmt, error) {
	start := p.cur()
	switch start.Type {
	case lexer.PRINT:
		p.advance()
		val, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return &ast.Print{Base: ast.Base{Sp: tokSpan(start)}, Value: val}, nil

	case lexer.IF:
		return p.parseIf()

	case lexer.LOOP:
		return p.parseLoop()

	case lexer.RETURN:
		p.advance()
		if p.at(lexer.NEWLINE) || p.at(lexer.RBRACE) || p.at(lexer.EOF) {
			return &ast.Return{Base: ast.Base{Sp: tokSpan(start)}}, nil
		}
		val, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return &ast.Return{Base: ast.Base{Sp: tokSpan(start)}, Value: val}, nil

	case lexer.BREAK:
		p.advance()
		return &ast.Break{Base: ast.Base{Sp: tokSpan(start)}}, nil

	case lexer.THROW:
		p.advance()
		val, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return &ast.Throw{Base: ast.Base{Sp: tokSpan(start)}, Value: val}, nil

	case lexer.TRY:
		return p.parseTryCatch()

	case lexer.INCLUDE:
		p.advance()
		path, err := p.expect(lexer.STRING)
		if err != nil {
			return nil, err
		}
		return &ast.Include{Base: ast.Base{Sp: tokSpan(start)}, Path: path.Literal}, nil

	case lexer.LOCAL:
		return p.parseLocal()

	case lexer.OUTBOX:
		return p.parseOutbox()

	case lexer.NOWAIT:
		p.advance()
		call, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return &ast.Nowait{Base: ast.Base{Sp: tokSpan(start)}, Call: call}, nil

	default:
		return p.parseExprOrAssignment()
	}
}

func (p *Parser) parseIf() (ast.Stmt, error) {
	start := p.advance() // `if`
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	thenBody, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	var elseBody []ast.Stmt
	if err := p.skipNewlinesLookahead(); err != nil {
		return nil, err
	}
	if p.at(lexer.ELSE) {
		p.advance()
		if p.at(lexer.IF) {
			nested, err := p.parseIf()
			if err != nil {
				return nil, err
			}
			elseBody = []ast.Stmt{nested}
		} else {
			elseBody, err = p.parseBlock()
			if err != nil {
				return nil, err
			}
		}
	}
	return &ast.If{Base: ast.Base{Sp: tokSpan(start)}, Cond: cond, Then: thenBody, Else: elseBody}, nil
}

// skipNewlinesLookahead peeks past NEWLINE tokens without consuming them
// unless an ELSE follows, so `if {} \n else {}` binds correctly while a
// bare `if {} \n print x` does not accidentally swallow the newline that
// separates unrelated statements.
func (p *Parser) skipNewlinesLookahead() error {
	save := p.pos
	for p.at(lexer.NEWLINE) {
		if err := p.consumeFuel("if-else lookahead"); err != nil {
			return err
		}
		p.advance()
	}
	if !p.at(lexer.ELSE) {
		p.pos = save
	}
	return nil
}

func (p *Parser) parseLoop() (ast.Stmt, error) {
	start := p.advance() // `loop`
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.Loop{Base: ast.Base{Sp: tokSpan(start)}, Cond: cond, Body: body}, nil
}

func (p *Parser) parseTryCatch() (ast.Stmt, error) {
	start := p.advance() // `try`
	tryBody, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	var catches []ast.CatchClause
	for p.at(lexer.CATCH) {
		if err := p.consumeFuel("catch clauses"); err != nil {
			return nil, err
		}
		p.advance()
		clause := ast.CatchClause{}
		if p.at(lexer.IDENT) && p.peekAt(1).Type == lexer.IDENT {
			typeTok := p.advance()
			bindTok := p.advance()
			clause.ExceptionType = typeTok.Literal
			clause.Binding = bindTok.Literal
		} else if p.at(lexer.IDENT) {
			bindTok := p.advance()
			clause.Binding = bindTok.Literal
		}
		p.scope.declare(clause.Binding)
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		clause.Body = body
		catches = append(catches, clause)
	}

	var finallyBody []ast.Stmt
	if p.at(lexer.FINALLY) {
		p.advance()
		finallyBody, err = p.parseBlock()
		if err != nil {
			return nil, err
		}
	}

	return &ast.TryCatch{Base: ast.Base{Sp: tokSpan(start)}, Try: tryBody, Catches: catches, Finally: finallyBody}, nil
}

// parseLocal parses both `local x` / `local x, y, z` (bare declaration)
// and the single-variable initializer form `local x = expr`.
func (p *Parser) parseLocal() (ast.Stmt, error) {
	start := p.advance() // `local`
	names, err := p.parseIdentList()
	if err != nil {
		return nil, err
	}
	for _, n := range names {
		p.scope.declare(n)
	}
	var init ast.Expr
	if len(names) == 1 && p.at(lexer.ASSIGN) {
		p.advance()
		init, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	return &ast.Local{Base: ast.Base{Sp: tokSpan(start)}, Names: names, Init: init}, nil
}

func (p *Parser) parseOutbox() (ast.Stmt, error) {
	start := p.advance() // `outbox`
	names, err := p.parseIdentList()
	if err != nil {
		return nil, err
	}
	for _, n := range names {
		p.scope.declare(n)
	}
	return &ast.Outbox{Base: ast.Base{Sp: tokSpan(start)}, Names: names}, nil
}

// parseExprOrAssignment parses a bare expression statement, an assignment,
// or a statement-level `lhs >> rhs` arrow. Assignment targets that are bare
// variables are checked against the explicit-declaration rule: inside a
// function/method body an undeclared name is rejected; at Program top level
// it is implicitly declared (see scope in parser.go).
func (p *Parser) parseExprOrAssignment() (ast.Stmt, error) {
	start := p.cur()
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	if arrow, ok := expr.(*ast.Arrow); ok {
		return arrow, nil
	}

	if p.at(lexer.ASSIGN) {
		p.advance()
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if v, ok := expr.(*ast.Variable); ok {
			if !p.scope.isDeclared(v.Name) {
				if p.scope.isTop {
					p.scope.declare(v.Name)
				} else {
					return nil, &InvalidStatement{
						Line:   start.Line,
						Reason: "assignment to undeclared name " + v.Name + "; declare it first with `local` or `outbox`",
					}
				}
			}
		}
		return &ast.Assignment{Base: ast.Base{Sp: tokSpan(start)}, Target: expr, Value: value}, nil
	}

	return &ast.ExprStmt{Base: ast.Base{Sp: tokSpan(start)}, Value: expr}, nil
}
