package parser

import (
	"strings"
	"testing"

	"github.com/nyashlang/nyashc/internal/ast"
)

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	p, err := New(src, "test.nyash")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	prog, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return prog
}

func mustFail(t *testing.T, src string) error {
	t.Helper()
	p, err := New(src, "test.nyash")
	if err != nil {
		return err
	}
	_, err = p.Parse()
	if err == nil {
		t.Fatalf("expected parse error, got none")
	}
	return err
}

func TestParseSimpleBoxDecl(t *testing.T) {
	src := `
box Counter {
    init { count }
    birth(start) {
        me.count = start
    }
    increment() {
        me.count = me.count + 1
    }
}
`
	prog := mustParse(t, src)
	if len(prog.Decls) != 1 {
		t.Fatalf("want 1 decl, got %d", len(prog.Decls))
	}
	box, ok := prog.Decls[0].(*ast.BoxDecl)
	if !ok {
		t.Fatalf("want *ast.BoxDecl, got %T", prog.Decls[0])
	}
	if box.Name != "Counter" {
		t.Errorf("want Counter, got %s", box.Name)
	}
	if len(box.Fields) != 1 || box.Fields[0] != "count" {
		t.Errorf("want [count] fields, got %v", box.Fields)
	}
	if _, ok := box.Constructors["birth/1"]; !ok {
		t.Errorf("want constructor birth/1, got %v", box.Constructors)
	}
	if len(box.Methods) != 1 || box.Methods[0].Name != "increment" {
		t.Errorf("want method increment, got %v", box.Methods)
	}
}

func TestParseWeakFieldsAndExtends(t *testing.T) {
	src := `
box Node from Base {
    init { value, weak parent }
    birth(v) {
        me.value = v
    }
}
`
	prog := mustParse(t, src)
	box := prog.Decls[0].(*ast.BoxDecl)
	if len(box.Extends) != 1 || box.Extends[0] != "Base" {
		t.Errorf("want Extends [Base], got %v", box.Extends)
	}
	if len(box.WeakFields) != 1 || box.WeakFields[0] != "parent" {
		t.Errorf("want WeakFields [parent], got %v", box.WeakFields)
	}
}

// "implements" is a plain identifier, not a keyword (spec.md §9): a box
// body using it as a field/method name must parse like any other IDENT
// rather than being special-cased.
func TestImplementsIsNotAKeyword(t *testing.T) {
	src := `
box Thing {
    init { implements }
    birth(v) {
        me.implements = v
    }
}
`
	prog := mustParse(t, src)
	box := prog.Decls[0].(*ast.BoxDecl)
	if len(box.Fields) != 1 || box.Fields[0] != "implements" {
		t.Errorf("want Fields [implements], got %v", box.Fields)
	}
}

func TestRejectBoxNameConstructor(t *testing.T) {
	src := `
box Widget {
    Widget() {
        me.x = 1
    }
}
`
	err := mustFail(t, src)
	if !strings.Contains(err.Error(), "birth(") {
		t.Errorf("want error steering toward birth(), got: %v", err)
	}
}

func TestRejectBareFromDelegation(t *testing.T) {
	src := `
box Child from Parent {
    birth() {
        from Parent()
    }
}
`
	err := mustFail(t, src)
	if !strings.Contains(err.Error(), "from Parent.method") {
		t.Errorf("want error about explicit from Parent.method(...), got: %v", err)
	}
}

func TestFromCallExplicitDelegation(t *testing.T) {
	src := `
box Child from Parent {
    birth() {
        from Parent.birth()
    }
}
`
	prog := mustParse(t, src)
	box := prog.Decls[0].(*ast.BoxDecl)
	ctor := box.Constructors["birth/0"]
	if len(ctor.Body) != 1 {
		t.Fatalf("want 1 stmt in birth body, got %d", len(ctor.Body))
	}
	exprStmt, ok := ctor.Body[0].(*ast.ExprStmt)
	if !ok {
		t.Fatalf("want *ast.ExprStmt, got %T", ctor.Body[0])
	}
	if _, ok := exprStmt.Value.(*ast.FromCall); !ok {
		t.Fatalf("want *ast.FromCall, got %T", exprStmt.Value)
	}
}

func TestStaticCycleDetection(t *testing.T) {
	src := `
static box A {
    static {
        B.touch()
    }
}
static box B {
    static {
        A.touch()
    }
}
`
	err := mustFail(t, src)
	if _, ok := err.(*CircularDependency); !ok {
		t.Fatalf("want *CircularDependency, got %T (%v)", err, err)
	}
}

func TestStaticCycleDetectionHiddenInAssignmentAndIf(t *testing.T) {
	src := `
static box A {
    static {
        if true {
            x = B.getValue()
        }
    }
}
static box B {
    static {
        local y
        y = A.getValue()
    }
}
`
	err := mustFail(t, src)
	cycle, ok := err.(*CircularDependency)
	if !ok {
		t.Fatalf("want *CircularDependency, got %T (%v)", err, err)
	}
	if len(cycle.Cycle) < 2 {
		t.Fatalf("want cycle naming both A and B, got %v", cycle.Cycle)
	}
}

func TestExplicitDeclarationInsideMethodBody(t *testing.T) {
	src := `
box Widget {
    render() {
        undeclared_name = 1
    }
}
`
	err := mustFail(t, src)
	if _, ok := err.(*InvalidStatement); !ok {
		t.Fatalf("want *InvalidStatement, got %T (%v)", err, err)
	}
}

func TestImplicitDeclarationAtTopLevel(t *testing.T) {
	src := `
x = 10
y = x + 32
print y
`
	prog := mustParse(t, src)
	if len(prog.Stmts) != 3 {
		t.Fatalf("want 3 top-level stmts, got %d", len(prog.Stmts))
	}
}

func TestLocalRequiredInsideFunction(t *testing.T) {
	src := `
function compute() {
    local total = 0
    total = total + 1
    return total
}
`
	prog := mustParse(t, src)
	if len(prog.Decls) != 1 {
		t.Fatalf("want 1 decl, got %d", len(prog.Decls))
	}
	fn, ok := prog.Decls[0].(*ast.FunctionDeclaration)
	if !ok {
		t.Fatalf("want *ast.FunctionDeclaration, got %T", prog.Decls[0])
	}
	if len(fn.Body) != 3 {
		t.Fatalf("want 3 stmts, got %d", len(fn.Body))
	}
}

func TestArrowExpressionNotArithmetic(t *testing.T) {
	src := `
function pipe() {
    local x = 1
    x >> sink
}
`
	prog := mustParse(t, src)
	fn := prog.Decls[0].(*ast.FunctionDeclaration)
	arrow, ok := fn.Body[1].(*ast.Arrow)
	if !ok {
		t.Fatalf("want *ast.Arrow, got %T", fn.Body[1])
	}
	if _, ok := arrow.Left.(*ast.Variable); !ok {
		t.Errorf("want Variable on left of arrow, got %T", arrow.Left)
	}
	if _, ok := arrow.Right.(*ast.Variable); !ok {
		t.Errorf("want Variable on right of arrow, got %T", arrow.Right)
	}
}

func TestOperatorPrecedence(t *testing.T) {
	src := `
function calc() {
    local r = 1 + 2 * 3
    return r
}
`
	prog := mustParse(t, src)
	fn := prog.Decls[0].(*ast.FunctionDeclaration)
	local := fn.Body[0].(*ast.Local)
	bin, ok := local.Init.(*ast.BinaryOp)
	if !ok {
		t.Fatalf("want top-level *ast.BinaryOp, got %T", local.Init)
	}
	if bin.Op != ast.OpAdd {
		t.Errorf("want OpAdd at top, got %v", bin.Op)
	}
	rhs, ok := bin.Right.(*ast.BinaryOp)
	if !ok {
		t.Fatalf("want nested *ast.BinaryOp on right, got %T", bin.Right)
	}
	if rhs.Op != ast.OpMul {
		t.Errorf("want OpMul nested, got %v", rhs.Op)
	}
}

func TestIfElseChain(t *testing.T) {
	src := `
function classify(n) {
    if n < 0 {
        return 0
    } else if n == 0 {
        return 1
    } else {
        return 2
    }
}
`
	prog := mustParse(t, src)
	fn := prog.Decls[0].(*ast.FunctionDeclaration)
	ifStmt, ok := fn.Body[0].(*ast.If)
	if !ok {
		t.Fatalf("want *ast.If, got %T", fn.Body[0])
	}
	if len(ifStmt.Else) != 1 {
		t.Fatalf("want nested else-if, got %d stmts", len(ifStmt.Else))
	}
	if _, ok := ifStmt.Else[0].(*ast.If); !ok {
		t.Fatalf("want nested *ast.If in else, got %T", ifStmt.Else[0])
	}
}

func TestTryCatchFinally(t *testing.T) {
	src := `
function risky() {
    try {
        throw "boom"
    } catch RuntimeError e {
        print e
    } finally {
        print "done"
    }
}
`
	prog := mustParse(t, src)
	fn := prog.Decls[0].(*ast.FunctionDeclaration)
	tc, ok := fn.Body[0].(*ast.TryCatch)
	if !ok {
		t.Fatalf("want *ast.TryCatch, got %T", fn.Body[0])
	}
	if len(tc.Catches) != 1 || tc.Catches[0].ExceptionType != "RuntimeError" || tc.Catches[0].Binding != "e" {
		t.Errorf("want one catch(RuntimeError e), got %v", tc.Catches)
	}
	if tc.Finally == nil {
		t.Errorf("want non-nil finally block")
	}
}

func TestInterfaceBoxSignatureOnly(t *testing.T) {
	src := `
interface box Shape {
    area()
    perimeter()
}
`
	prog := mustParse(t, src)
	box := prog.Decls[0].(*ast.BoxDecl)
	if !box.IsInterface {
		t.Errorf("want IsInterface true")
	}
	if len(box.Methods) != 2 {
		t.Fatalf("want 2 interface methods, got %d", len(box.Methods))
	}
}

func TestInfiniteLoopFuelExhaustion(t *testing.T) {
	p, err := New("box A { birth() { } }", "test.nyash")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p.SetFuel(2)
	_, err = p.Parse()
	if err == nil {
		t.Fatalf("expected fuel exhaustion error")
	}
	if _, ok := err.(*InfiniteLoop); !ok {
		t.Fatalf("want *InfiniteLoop, got %T (%v)", err, err)
	}
}

func TestFuelMonotonicity(t *testing.T) {
	src := `
box A {
    birth() {
        local x = 1
    }
}
`
	for _, fuel := range []int{50, 100, 1000, DefaultFuel} {
		p, err := New(src, "test.nyash")
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		p.SetFuel(fuel)
		if _, err := p.Parse(); err != nil {
			t.Errorf("fuel=%d: unexpected error: %v", fuel, err)
		}
	}
}

func TestIncludeStatement(t *testing.T) {
	src := `include "other.nyash"`
	prog := mustParse(t, src)
	inc, ok := prog.Stmts[0].(*ast.Include)
	if !ok {
		t.Fatalf("want *ast.Include, got %T", prog.Stmts[0])
	}
	if inc.Path != "other.nyash" {
		t.Errorf("want other.nyash, got %q", inc.Path)
	}
}

func TestNowaitAndAwait(t *testing.T) {
	src := `
function schedule() {
    nowait doWork()
    local r = await fetch()
    return r
}
`
	prog := mustParse(t, src)
	fn := prog.Decls[0].(*ast.FunctionDeclaration)
	if _, ok := fn.Body[0].(*ast.Nowait); !ok {
		t.Fatalf("want *ast.Nowait, got %T", fn.Body[0])
	}
	local := fn.Body[1].(*ast.Local)
	if _, ok := local.Init.(*ast.AwaitExpression); !ok {
		t.Fatalf("want *ast.AwaitExpression, got %T", local.Init)
	}
}
