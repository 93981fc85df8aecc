package parser

import (
	"github.com/nyashlang/nyashc/internal/ast"
	"github.com/nyashlang/nyashc/internal/lexer"
)

// parseExpression is the entry point into the precedence-climbing
// expression grammar (spec.md §4.2):
//
//	or, and, equality, comparison, additive (+ - >>arrow),
//	multiplicative (* / %), unary (- not await), call/field (., call),
//	primary
func (p *Parser) parseExpression() (ast.Expr, error) {
	return p.parseOr()
}

func (p *Parser) parseOr() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.OR) {
		if err := p.consumeFuel("or"); err != nil {
			return nil, err
		}
		start := p.cur()
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{Base: ast.Base{Sp: tokSpan(start)}, Op: ast.OpOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (ast.Expr, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.AND) {
		if err := p.consumeFuel("and"); err != nil {
			return nil, err
		}
		start := p.cur()
		p.advance()
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{Base: ast.Base{Sp: tokSpan(start)}, Op: ast.OpAnd, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseEquality() (ast.Expr, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.EQ) || p.at(lexer.NE) {
		if err := p.consumeFuel("equality"); err != nil {
			return nil, err
		}
		opTok := p.advance()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		op := ast.OpEq
		if opTok.Type == lexer.NE {
			op = ast.OpNe
		}
		left = &ast.BinaryOp{Base: ast.Base{Sp: tokSpan(opTok)}, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseComparison() (ast.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.LT) || p.at(lexer.LE) || p.at(lexer.GT) || p.at(lexer.GE) {
		if err := p.consumeFuel("comparison"); err != nil {
			return nil, err
		}
		opTok := p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		var op ast.BinaryOperator
		switch opTok.Type {
		case lexer.LT:
			op = ast.OpLt
		case lexer.LE:
			op = ast.OpLe
		case lexer.GT:
			op = ast.OpGt
		case lexer.GE:
			op = ast.OpGe
		}
		left = &ast.BinaryOp{Base: ast.Base{Sp: tokSpan(opTok)}, Op: op, Left: left, Right: right}
	}
	return left, nil
}

// parseAdditive handles `+`, `-`, and the `>>` arrow. The arrow sits at
// additive precedence textually, but it does not produce a BinaryOp: `lhs
// >> rhs` lowers to an ast.Arrow node (a pipe, not arithmetic), and since
// piping is not associative with `+`/`-` in the same expression, seeing
// ARROW ends additive chaining for this expression.
func (p *Parser) parseAdditive() (ast.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		if p.at(lexer.ARROW) {
			if err := p.consumeFuel("arrow"); err != nil {
				return nil, err
			}
			start := p.cur()
			p.advance()
			right, err := p.parseMultiplicative()
			if err != nil {
				return nil, err
			}
			return &ast.Arrow{Base: ast.Base{Sp: tokSpan(start)}, Left: left, Right: right}, nil
		}
		if !p.at(lexer.PLUS) && !p.at(lexer.MINUS) {
			break
		}
		if err := p.consumeFuel("additive"); err != nil {
			return nil, err
		}
		opTok := p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		op := ast.OpAdd
		if opTok.Type == lexer.MINUS {
			op = ast.OpSub
		}
		left = &ast.BinaryOp{Base: ast.Base{Sp: tokSpan(opTok)}, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.STAR) || p.at(lexer.SLASH) || p.at(lexer.PERCENT) {
		if err := p.consumeFuel("multiplicative"); err != nil {
			return nil, err
		}
		opTok := p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		var op ast.BinaryOperator
		switch opTok.Type {
		case lexer.STAR:
			op = ast.OpMul
		case lexer.SLASH:
			op = ast.OpDiv
		case lexer.PERCENT:
			op = ast.OpMod
		}
		left = &ast.BinaryOp{Base: ast.Base{Sp: tokSpan(opTok)}, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	switch {
	case p.at(lexer.MINUS):
		start := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryOp{Base: ast.Base{Sp: tokSpan(start)}, Op: ast.OpNeg, Operand: operand}, nil
	case p.at(lexer.NOT):
		start := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryOp{Base: ast.Base{Sp: tokSpan(start)}, Op: ast.OpNot, Operand: operand}, nil
	case p.at(lexer.AWAIT):
		start := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.AwaitExpression{Base: ast.Base{Sp: tokSpan(start)}, Operand: operand}, nil
	default:
		return p.parseCallOrField()
	}
}

// parseCallOrField handles postfix `.field`, `.method(args)` chains and
// bare `name(args)` function calls over a primary.
func (p *Parser) parseCallOrField() (ast.Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.DOT) {
		if err := p.consumeFuel("postfix"); err != nil {
			return nil, err
		}
		dot := p.advance()
		name, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		if p.at(lexer.LPAREN) {
			args, err := p.parseArgList()
			if err != nil {
				return nil, err
			}
			expr = &ast.MethodCall{Base: ast.Base{Sp: tokSpan(dot)}, Receiver: expr, Method: name.Literal, Args: args}
			continue
		}
		expr = &ast.FieldAccess{Base: ast.Base{Sp: tokSpan(dot)}, Receiver: expr, Field: name.Literal}
	}
	return expr, nil
}

func (p *Parser) parseArgList() ([]ast.Expr, error) {
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	var args []ast.Expr
	for !p.at(lexer.RPAREN) {
		if err := p.consumeFuel("arg list"); err != nil {
			return nil, err
		}
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.at(lexer.COMMA) {
			p.advance()
		}
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	return args, nil
}

// parsePrimary parses literals, `this`/`me` (and their field shorthand),
// `from Parent.method(args)`, `new ClassName(args)`, parenthesized
// expressions, and bare identifier references (variables or free function
// calls).
func (p *Parser) parsePrimary() (ast.Expr, error) {
	tok := p.cur()
	switch tok.Type {
	case lexer.INTEGER:
		p.advance()
		return &ast.Literal{Base: ast.Base{Sp: tokSpan(tok)}, Kind: ast.LitInteger, Int: parseIntLiteral(tok.Literal)}, nil
	case lexer.FLOAT:
		p.advance()
		return &ast.Literal{Base: ast.Base{Sp: tokSpan(tok)}, Kind: ast.LitFloat, Float: parseFloatLiteral(tok.Literal)}, nil
	case lexer.STRING:
		p.advance()
		return &ast.Literal{Base: ast.Base{Sp: tokSpan(tok)}, Kind: ast.LitString, Str: tok.Literal}, nil
	case lexer.TRUE:
		p.advance()
		return &ast.Literal{Base: ast.Base{Sp: tokSpan(tok)}, Kind: ast.LitBool, Bool: true}, nil
	case lexer.FALSE:
		p.advance()
		return &ast.Literal{Base: ast.Base{Sp: tokSpan(tok)}, Kind: ast.LitBool, Bool: false}, nil
	case lexer.NULL:
		p.advance()
		return &ast.Literal{Base: ast.Base{Sp: tokSpan(tok)}, Kind: ast.LitNull}, nil
	case lexer.THIS:
		p.advance()
		if p.at(lexer.DOT) {
			p.advance()
			field, err := p.expect(lexer.IDENT)
			if err != nil {
				return nil, err
			}
			return &ast.ThisField{Base: ast.Base{Sp: tokSpan(tok)}, Field: field.Literal}, nil
		}
		return &ast.This{Base: ast.Base{Sp: tokSpan(tok)}}, nil
	case lexer.ME:
		p.advance()
		if p.at(lexer.DOT) {
			p.advance()
			field, err := p.expect(lexer.IDENT)
			if err != nil {
				return nil, err
			}
			return &ast.MeField{Base: ast.Base{Sp: tokSpan(tok)}, Field: field.Literal}, nil
		}
		return &ast.Me{Base: ast.Base{Sp: tokSpan(tok)}}, nil
	case lexer.FROM:
		p.advance()
		parent, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		if !p.at(lexer.DOT) {
			return nil, &InvalidStatement{Line: tok.Line, Reason: "bare `from " + parent.Literal + "(...)` transparent delegation is not supported; call `from " + parent.Literal + ".method(...)` explicitly"}
		}
		p.advance()
		var method lexer.Token
		if p.at(lexer.BIRTH) {
			method = p.advance()
		} else {
			method, err = p.expect(lexer.IDENT)
			if err != nil {
				return nil, err
			}
		}
		args, err := p.parseArgList()
		if err != nil {
			return nil, err
		}
		return &ast.FromCall{Base: ast.Base{Sp: tokSpan(tok)}, Parent: parent.Literal, Method: method.Literal, Args: args}, nil
	case lexer.NEW:
		p.advance()
		name, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		args, err := p.parseArgList()
		if err != nil {
			return nil, err
		}
		return &ast.New{Base: ast.Base{Sp: tokSpan(tok)}, ClassName: name.Literal, Args: args}, nil
	case lexer.LPAREN:
		p.advance()
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
		return inner, nil
	case lexer.IDENT:
		p.advance()
		if p.at(lexer.LPAREN) {
			args, err := p.parseArgList()
			if err != nil {
				return nil, err
			}
			return &ast.FunctionCall{Base: ast.Base{Sp: tokSpan(tok)}, Name: tok.Literal, Args: args}, nil
		}
		return &ast.Variable{Base: ast.Base{Sp: tokSpan(tok)}, Name: tok.Literal}, nil
	default:
		return nil, &InvalidExpression{Line: tok.Line}
	}
}

func parseIntLiteral(s string) int64 {
	var n int64
	for i := 0; i < len(s); i++ {
		n = n*10 + int64(s[i]-'0')
	}
	return n
}

func parseFloatLiteral(s string) float64 {
	var intPart int64
	i := 0
	for i < len(s) && s[i] != '.' {
		intPart = intPart*10 + int64(s[i]-'0')
		i++
	}
	if i >= len(s) {
		return float64(intPart)
	}
	i++ // skip '.'
	frac := 0.0
	scale := 0.1
	for i < len(s) {
		frac += float64(s[i]-'0') * scale
		scale /= 10
		i++
	}
	return float64(intPart) + frac
}
