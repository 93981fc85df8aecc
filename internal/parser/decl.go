package parser

import (
	"github.com/nyashlang/nyashc/internal/ast"
	"github.com/nyashlang/nyashc/internal/coremodel"
	"github.com/nyashlang/nyashc/internal/lexer"
)

// parseBoxDecl parses a (possibly `static`) `box` declaration
// (spec.md §4.2):
//
//	box Name<Gen...> from P1,P2 {
//	    init { f1, weak f2 }
//	    field3
//	    birth(args) { ... }
//	    method(args) { ... }
//	}
//
// `implements` is not part of this grammar; see spec.md §9.
func (p *Parser) parseBoxDecl(isStatic bool) (*ast.BoxDecl, error) {
	start := p.cur()
	if isStatic {
		p.advance() // `static`
	}
	if _, err := p.expect(lexer.BOX); err != nil {
		return nil, err
	}

	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}

	decl := &ast.BoxDecl{
		Name:         name.Literal,
		Constructors: make(map[string]*ast.Method),
		IsStatic:     isStatic,
	}

	if p.at(lexer.LT) {
		params, err := p.parseGenericParams()
		if err != nil {
			return nil, err
		}
		decl.TypeParams = params
	}

	if p.at(lexer.FROM) {
		p.advance()
		parents, err := p.parseIdentList()
		if err != nil {
			return nil, err
		}
		decl.Extends = parents
	}

	// spec.md §9: the reference parser's `implements I1,I2` branch
	// references a token the lexer never emits and is permanently dead
	// in the original; this parser leaves `decl.Implements` empty, and
	// coremodel only copies whatever the AST holds into its BoxDeclaration
	// data model (spec.md §3).

	if _, err := p.expect(lexer.LBRACE); err != nil {
		return nil, err
	}
	if err := p.skipNewlines(); err != nil {
		return nil, err
	}

	for !p.at(lexer.RBRACE) {
		if err := p.consumeFuel("box body"); err != nil {
			return nil, err
		}
		if p.at(lexer.EOF) {
			return nil, &UnexpectedEOF{Line: p.cur().Line}
		}

		switch {
		case p.at(lexer.INIT):
			if err := p.parseInitBlock(decl); err != nil {
				return nil, err
			}
		case p.at(lexer.STATIC):
			p.advance()
			if _, err := p.expect(lexer.LBRACE); err != nil {
				return nil, err
			}
			body, deps, err := p.parseStaticBody()
			if err != nil {
				return nil, err
			}
			decl.StaticInit = body
			decl.StaticDepNames = deps
		case p.at(lexer.OVERRIDE) || p.at(lexer.BIRTH) || p.at(lexer.IDENT):
			method, err := p.parseMethodOrField(decl)
			if err != nil {
				return nil, err
			}
			if method != nil {
				if method.IsBirth {
					key := constructorKey(len(method.Params))
					if _, dup := decl.Constructors[key]; dup {
						return nil, &InvalidStatement{Line: method.Span.Line, Reason: "duplicate constructor " + key}
					}
					decl.Constructors[key] = method
				} else {
					decl.Methods = append(decl.Methods, method)
				}
			}
		default:
			return nil, &UnexpectedToken{Found: p.cur().Type.String(), Expected: "box member", Line: p.cur().Line}
		}

		if err := p.skipNewlines(); err != nil {
			return nil, err
		}
	}

	if _, err := p.expect(lexer.RBRACE); err != nil {
		return nil, err
	}

	decl.IsInterface = false
	decl.Sp = mkSpan(start, p.cur())

	if err := p.validateOverrides(decl); err != nil {
		return nil, err
	}
	if err := coremodel.FromBoxDecl(decl).Validate(); err != nil {
		return nil, &InvalidStatement{Line: decl.Sp.Line, Reason: err.Error()}
	}

	return decl, nil
}

// constructorKey mirrors coremodel.ConstructorKey without an import cycle;
// the parser only needs the string form for local duplicate-constructor
// detection.
func constructorKey(arity int) string {
	if arity == 0 {
		return "birth/0"
	}
	digits := [20]byte{}
	i := len(digits)
	n := arity
	for n > 0 {
		i--
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	return "birth/" + string(digits[i:])
}

func (p *Parser) parseGenericParams() ([]string, error) {
	p.advance() // '<'
	var names []string
	seen := make(map[string]bool)
	for !p.at(lexer.GT) {
		if err := p.consumeFuel("generic params"); err != nil {
			return nil, err
		}
		id, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		if seen[id.Literal] {
			return nil, &InvalidStatement{Line: id.Line, Reason: "duplicate type parameter " + id.Literal}
		}
		seen[id.Literal] = true
		names = append(names, id.Literal)
		if p.at(lexer.COMMA) {
			p.advance()
		}
	}
	if _, err := p.expect(lexer.GT); err != nil {
		return nil, err
	}
	return names, nil
}

func (p *Parser) parseIdentList() ([]string, error) {
	var names []string
	for {
		if err := p.consumeFuel("ident list"); err != nil {
			return nil, err
		}
		id, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		names = append(names, id.Literal)
		if p.at(lexer.COMMA) {
			p.advance()
			continue
		}
		break
	}
	return names, nil
}

// parseInitBlock parses `init { f1, weak f2 }`, accumulating InitFields and
// WeakFields on decl.
func (p *Parser) parseInitBlock(decl *ast.BoxDecl) error {
	p.advance() // `init`
	if _, err := p.expect(lexer.LBRACE); err != nil {
		return err
	}
	for !p.at(lexer.RBRACE) {
		if err := p.consumeFuel("init block"); err != nil {
			return err
		}
		weak := false
		if p.at(lexer.WEAK) {
			weak = true
			p.advance()
		}
		id, err := p.expect(lexer.IDENT)
		if err != nil {
			return err
		}
		decl.Fields = append(decl.Fields, id.Literal)
		if weak {
			decl.WeakFields = append(decl.WeakFields, id.Literal)
		}
		if p.at(lexer.COMMA) {
			p.advance()
		}
	}
	_, err := p.expect(lexer.RBRACE)
	return err
}

// parseMethodOrField parses a single method/constructor declaration, or a
// bare field3-style field declared outside init (treated as an additional
// field). birth() is the only permitted constructor name; the deprecated
// Box-name-as-constructor form is rejected with a message steering toward
// birth().
func (p *Parser) parseMethodOrField(decl *ast.BoxDecl) (*ast.Method, error) {
	start := p.cur()
	override := false
	if p.at(lexer.OVERRIDE) {
		override = true
		p.advance()
	}

	nameTok := p.cur()
	isBirth := nameTok.Type == lexer.BIRTH
	if !isBirth && nameTok.Type != lexer.IDENT {
		return nil, &UnexpectedToken{Found: nameTok.Type.String(), Expected: "method name", Line: nameTok.Line}
	}
	p.advance()

	if !isBirth && nameTok.Literal == decl.Name && p.at(lexer.LPAREN) {
		return nil, &InvalidStatement{
			Line:   nameTok.Line,
			Reason: "constructors named after the box (" + decl.Name + "(...)) are no longer supported; use birth(...)",
		}
	}

	if !p.at(lexer.LPAREN) {
		// A bare field declared outside init { ... }.
		decl.Fields = append(decl.Fields, nameTok.Literal)
		return nil, nil
	}

	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}

	if override {
		if err := p.checkOverrideStructurally(decl, nameTok.Literal); err != nil {
			return nil, err
		}
	}

	p.pushFunctionScope(params)
	body, err := p.parseBlock()
	p.popScope()
	if err != nil {
		return nil, err
	}

	return &ast.Method{
		Name:     nameTok.Literal,
		Params:   params,
		Body:     body,
		Override: override,
		IsBirth:  isBirth,
		Span:     mkSpan(start, p.cur()),
	}, nil
}

// checkOverrideStructurally is the Phase-1 structural check: it rejects an
// override with an empty method name, or on a box with no `from` parents.
// Phase 2 (looking the method up in an `extends` parent) is
// validateOverrides.
func (p *Parser) checkOverrideStructurally(decl *ast.BoxDecl, name string) error {
	if name == "" {
		return &InvalidStatement{Line: p.cur().Line, Reason: "override with no method name"}
	}
	if len(decl.Extends) == 0 {
		return &InvalidStatement{Line: p.cur().Line, Reason: "override " + name + " on box " + decl.Name + " with no `from` parents"}
	}
	return nil
}

// validateOverrides performs the Phase-2 check for one box, against the
// boxes parsed before it: each override must name a method actually
// present on some `from` parent. Parent boxes not parsed yet, whether
// declared later in this file or not in this file at all, are assumed
// valid.
func (p *Parser) validateOverrides(decl *ast.BoxDecl) error {
	for _, m := range decl.Methods {
		if !m.Override {
			continue
		}
		for _, parentName := range decl.Extends {
			parent, ok := p.boxesSeen[parentName]
			if !ok {
				continue // parent not yet seen in this file; assume valid
			}
			if !parentHasMethod(parent, m.Name) {
				return &InvalidStatement{
					Line:   m.Span.Line,
					Reason: "override " + m.Name + " does not match any method on parent " + parentName,
				}
			}
		}
	}
	if p.boxesSeen == nil {
		p.boxesSeen = make(map[string]*ast.BoxDecl)
	}
	p.boxesSeen[decl.Name] = decl
	return nil
}

func parentHasMethod(parent *ast.BoxDecl, name string) bool {
	for _, m := range parent.Methods {
		if m.Name == name {
			return true
		}
	}
	for key := range parent.Constructors {
		if key == name {
			return true
		}
	}
	return false
}

func (p *Parser) parseParamList() ([]ast.Param, error) {
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	var params []ast.Param
	for !p.at(lexer.RPAREN) {
		if err := p.consumeFuel("param list"); err != nil {
			return nil, err
		}
		id, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		params = append(params, ast.Param{Name: id.Literal})
		if p.at(lexer.COMMA) {
			p.advance()
		}
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	return params, nil
}

// parseInterfaceBoxDecl parses `interface box Name { method(args) method2(args) }`
// where every method body must be empty.
func (p *Parser) parseInterfaceBoxDecl() (*ast.BoxDecl, error) {
	start := p.cur()
	p.advance() // `interface`
	if _, err := p.expect(lexer.BOX); err != nil {
		return nil, err
	}
	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	decl := &ast.BoxDecl{Name: name.Literal, Constructors: make(map[string]*ast.Method), IsInterface: true}

	if _, err := p.expect(lexer.LBRACE); err != nil {
		return nil, err
	}
	if err := p.skipNewlines(); err != nil {
		return nil, err
	}
	for !p.at(lexer.RBRACE) {
		if err := p.consumeFuel("interface body"); err != nil {
			return nil, err
		}
		id, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		params, err := p.parseParamList()
		if err != nil {
			return nil, err
		}
		decl.Methods = append(decl.Methods, &ast.Method{Name: id.Literal, Params: params})
		if err := p.skipNewlines(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.RBRACE); err != nil {
		return nil, err
	}
	decl.Sp = mkSpan(start, p.cur())
	if err := coremodel.FromBoxDecl(decl).Validate(); err != nil {
		return nil, &InvalidStatement{Line: decl.Sp.Line, Reason: err.Error()}
	}
	return decl, nil
}

// parseStaticBody lowers the statements of a `static { ... }` initializer
// and collects `Ident.field`/`Ident.method(...)` dependency names
// (spec.md §4.2) by recursively walking each parsed statement's full
// expression tree, not just its leading tokens.
func (p *Parser) parseStaticBody() ([]ast.Stmt, []string, error) {
	var stmts []ast.Stmt
	depSet := make(map[string]bool)

	if err := p.skipNewlines(); err != nil {
		return nil, nil, err
	}
	for !p.at(lexer.RBRACE) {
		if err := p.consumeFuel("static body"); err != nil {
			return nil, nil, err
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, nil, err
		}
		stmts = append(stmts, stmt)
		collectStaticDepsStmt(stmt, depSet)
		if err := p.skipNewlines(); err != nil {
			return nil, nil, err
		}
	}
	if _, err := p.expect(lexer.RBRACE); err != nil {
		return nil, nil, err
	}

	deps := make([]string, 0, len(depSet))
	for name := range depSet {
		deps = append(deps, name)
	}
	return stmts, deps, nil
}

// collectStaticDepsStmt recurses into stmt's nested statement and
// expression trees (Assignment RHS, If/Loop conditions and bodies,
// TryCatch regions, Return/Print/Throw values, ...) collecting every
// `Ident.field`/`Ident.method(...)` receiver name into depSet.
func collectStaticDepsStmt(s ast.Stmt, depSet map[string]bool) {
	switch st := s.(type) {
	case *ast.Assignment:
		collectStaticDepsExpr(st.Target, depSet)
		collectStaticDepsExpr(st.Value, depSet)
	case *ast.Print:
		collectStaticDepsExpr(st.Value, depSet)
	case *ast.If:
		collectStaticDepsExpr(st.Cond, depSet)
		for _, inner := range st.Then {
			collectStaticDepsStmt(inner, depSet)
		}
		for _, inner := range st.Else {
			collectStaticDepsStmt(inner, depSet)
		}
	case *ast.Loop:
		collectStaticDepsExpr(st.Cond, depSet)
		for _, inner := range st.Body {
			collectStaticDepsStmt(inner, depSet)
		}
	case *ast.Return:
		collectStaticDepsExpr(st.Value, depSet)
	case *ast.Throw:
		collectStaticDepsExpr(st.Value, depSet)
	case *ast.TryCatch:
		for _, inner := range st.Try {
			collectStaticDepsStmt(inner, depSet)
		}
		for _, c := range st.Catches {
			for _, inner := range c.Body {
				collectStaticDepsStmt(inner, depSet)
			}
		}
		for _, inner := range st.Finally {
			collectStaticDepsStmt(inner, depSet)
		}
	case *ast.Local:
		collectStaticDepsExpr(st.Init, depSet)
	case *ast.Nowait:
		collectStaticDepsExpr(st.Call, depSet)
	case *ast.Arrow:
		collectStaticDepsExpr(st.Left, depSet)
		collectStaticDepsExpr(st.Right, depSet)
	case *ast.ExprStmt:
		collectStaticDepsExpr(st.Value, depSet)
	}
}

// collectStaticDepsExpr recurses into e's operands, recording the
// receiver Ident name of every FieldAccess/MethodCall it finds.
func collectStaticDepsExpr(e ast.Expr, depSet map[string]bool) {
	switch ex := e.(type) {
	case nil:
		return
	case *ast.FieldAccess:
		if v, ok := ex.Receiver.(*ast.Variable); ok {
			depSet[v.Name] = true
		}
		collectStaticDepsExpr(ex.Receiver, depSet)
	case *ast.MethodCall:
		if v, ok := ex.Receiver.(*ast.Variable); ok {
			depSet[v.Name] = true
		}
		collectStaticDepsExpr(ex.Receiver, depSet)
		for _, a := range ex.Args {
			collectStaticDepsExpr(a, depSet)
		}
	case *ast.UnaryOp:
		collectStaticDepsExpr(ex.Operand, depSet)
	case *ast.BinaryOp:
		collectStaticDepsExpr(ex.Left, depSet)
		collectStaticDepsExpr(ex.Right, depSet)
	case *ast.New:
		for _, a := range ex.Args {
			collectStaticDepsExpr(a, depSet)
		}
	case *ast.FromCall:
		for _, a := range ex.Args {
			collectStaticDepsExpr(a, depSet)
		}
	case *ast.AwaitExpression:
		collectStaticDepsExpr(ex.Operand, depSet)
	case *ast.FunctionCall:
		for _, a := range ex.Args {
			collectStaticDepsExpr(a, depSet)
		}
	case *ast.Arrow:
		collectStaticDepsExpr(ex.Left, depSet)
		collectStaticDepsExpr(ex.Right, depSet)
	}
}

// parseFunctionDecl parses a free top-level `function name(args) { ... }`.
func (p *Parser) parseFunctionDecl() (*ast.FunctionDeclaration, error) {
	start := p.cur()
	p.advance() // `function`
	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}

	p.pushFunctionScope(params)
	body, err := p.parseBlock()
	p.popScope()
	if err != nil {
		return nil, err
	}

	return &ast.FunctionDeclaration{
		Base:   ast.Base{Sp: mkSpan(start, p.cur())},
		Name:   name.Literal,
		Params: params,
		Body:   body,
	}, nil
}

// parseGlobalVar parses `global name = expr`.
func (p *Parser) parseGlobalVar() (*ast.GlobalVar, error) {
	start := p.cur()
	p.advance() // `global`
	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	var init ast.Expr
	if p.at(lexer.ASSIGN) {
		p.advance()
		init, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	p.scope.declare(name.Literal)
	return &ast.GlobalVar{
		Base: ast.Base{Sp: mkSpan(start, p.cur())},
		Name: name.Literal,
		Init: init,
	}, nil
}
