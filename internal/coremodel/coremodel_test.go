package coremodel

import (
	"testing"

	"github.com/nyashlang/nyashc/internal/ast"
)

func TestConstructorKey(t *testing.T) {
	cases := map[int]string{0: "birth/0", 1: "birth/1", 12: "birth/12"}
	for arity, want := range cases {
		if got := ConstructorKey(arity); got != want {
			t.Errorf("ConstructorKey(%d) = %q, want %q", arity, got, want)
		}
	}
}

func TestValidateRejectsWeakFieldNotDeclared(t *testing.T) {
	b := &BoxDeclaration{Name: "B", InitFields: []string{"a"}, WeakFields: []string{"b"}}
	if err := b.Validate(); err == nil {
		t.Fatalf("want error for weak field not in InitFields")
	}
}

func TestValidateAcceptsWeakFieldSubset(t *testing.T) {
	b := &BoxDeclaration{Name: "B", InitFields: []string{"a", "b"}, WeakFields: []string{"b"}}
	if err := b.Validate(); err != nil {
		t.Errorf("want no error, got %v", err)
	}
}

func TestValidateInterfaceMustHaveNoFieldsOrCtors(t *testing.T) {
	b := &BoxDeclaration{Name: "I", IsInterface: true, InitFields: []string{"x"}}
	if err := b.Validate(); err == nil {
		t.Fatalf("want error for interface box with fields")
	}

	b2 := &BoxDeclaration{Name: "I", IsInterface: true, Constructors: map[string]MethodSignature{"birth/0": {}}}
	if err := b2.Validate(); err == nil {
		t.Fatalf("want error for interface box with constructors")
	}
}

func TestValidateInterfaceMethodsMustBeEmpty(t *testing.T) {
	b := &BoxDeclaration{Name: "I", IsInterface: true, Methods: []MethodSignature{{Name: "m", BodyEmpty: false}}}
	if err := b.Validate(); err == nil {
		t.Fatalf("want error for interface method with a body")
	}
}

// TestFromBoxDeclRoundTrips covers the parser's use of FromBoxDecl
// (internal/parser/decl.go) to cross-check an ast.BoxDecl's weak-field
// and constructor-arity invariants as a language-neutral model.
func TestFromBoxDeclRoundTrips(t *testing.T) {
	astBox := &ast.BoxDecl{
		Name:       "Node",
		Extends:    []string{"Base"},
		Implements: []string{"Comparable"},
		Fields:     []string{"value", "parent"},
		WeakFields: []string{"parent"},
		Constructors: map[string]*ast.Method{
			"birth/1": {Name: "birth", Params: []ast.Param{{Name: "v"}}, IsBirth: true},
		},
		Methods: []*ast.Method{{Name: "get", Body: []ast.Stmt{&ast.Return{}}}},
	}

	model := FromBoxDecl(astBox)
	if model.Name != "Node" {
		t.Errorf("want Name Node, got %s", model.Name)
	}
	if len(model.WeakFields) != 1 || model.WeakFields[0] != "parent" {
		t.Errorf("want WeakFields [parent], got %v", model.WeakFields)
	}
	ctor, ok := model.Constructors["birth/1"]
	if !ok || ctor.Arity != 1 || !ctor.IsBirth {
		t.Errorf("want birth/1 constructor with arity 1, got %+v (ok=%v)", ctor, ok)
	}
	if err := model.Validate(); err != nil {
		t.Errorf("want a valid model, got %v", err)
	}
}
