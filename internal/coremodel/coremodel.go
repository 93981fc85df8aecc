// Package coremodel holds the language-neutral Box model shared by every
// execution path (interpreter, MIR, plugin ABI): the shape of a
// BoxDeclaration once parsed, independent of AST node representation
// (spec.md §2 item 4, §3).
package coremodel

import "github.com/nyashlang/nyashc/internal/ast"

// ConstructorKey formats the "birth/<arity>" key constructors are indexed
// by (spec.md §4.2).
func ConstructorKey(arity int) string {
	switch {
	case arity == 0:
		return "birth/0"
	default:
		return "birth/" + itoa(arity)
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := [20]byte{}
	i := len(digits)
	for n > 0 {
		i--
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	return string(digits[i:])
}

// MethodSignature is a method or constructor body's language-neutral
// description: enough to drive MIR lowering without depending on the AST
// package's concrete node types.
type MethodSignature struct {
	Name      string
	Arity     int
	Override  bool
	IsBirth   bool
	BodyEmpty bool // true for interface-method stubs
}

// StaticDependency records one `Ident.field`/`Ident.method(...)` reference
// collected out of a `static box`'s `static { ... }` block, used by the
// parser's cycle detector (spec.md §4.2).
type StaticDependency struct {
	FromBox string
	ToBox   string
}

// BoxDeclaration is the language-neutral model of a parsed `box`.
//
// Invariants (spec.md §3):
//   - Name is unique within a module.
//   - TypeParameters are pairwise distinct.
//   - WeakFields is a subset of Fields ∪ InitFields.
//   - Constructors are keyed by ConstructorKey(arity); collisions are
//     rejected by the parser before a BoxDeclaration is built.
//   - IsInterface implies Fields, Constructors are empty and every method
//     body is empty.
//   - IsStatic implies exactly one singleton instance exists at runtime.
type BoxDeclaration struct {
	Name          string
	TypeParameters []string
	Extends       []string // ordered list; multi-delegation
	Implements    []string
	InitFields    []string // fields declared inside `init { ... }`
	WeakFields    []string // subset of InitFields, `weak`-qualified
	Constructors  map[string]MethodSignature
	Methods       []MethodSignature
	IsInterface   bool
	IsStatic      bool
	StaticDeps    []string // names of other static boxes this one references
}

// Fields returns every field name declared on the box (InitFields is
// currently the sole source, kept separate for readability at call
// sites that care specifically about constructor-time fields).
func (b *BoxDeclaration) Fields() []string { return b.InitFields }

// Validate checks the structural invariants that do not require whole-module
// context (cross-box checks — override validity, static-cycle detection —
// live in the parser, which has the full declaration set in scope).
func (b *BoxDeclaration) Validate() error {
	weak := make(map[string]bool, len(b.InitFields))
	for _, f := range b.InitFields {
		weak[f] = true
	}
	for _, w := range b.WeakFields {
		if !weak[w] {
			return &InvariantError{Box: b.Name, Reason: "weak field " + w + " is not a declared field"}
		}
	}

	if b.IsInterface {
		if len(b.InitFields) != 0 {
			return &InvariantError{Box: b.Name, Reason: "interface box must not declare fields"}
		}
		if len(b.Constructors) != 0 {
			return &InvariantError{Box: b.Name, Reason: "interface box must not declare constructors"}
		}
		for _, m := range b.Methods {
			if !m.BodyEmpty {
				return &InvariantError{Box: b.Name, Reason: "interface method " + m.Name + " must have an empty body"}
			}
		}
	}

	return nil
}

// FromBoxDecl converts a parsed ast.BoxDecl into the language-neutral
// BoxDeclaration shape (spec.md §2 item 4), the way every non-AST
// consumer of a Box's static shape — MIR lowering, the plugin host's
// interface bookkeeping, an interpreter's method table — wants it.
// Weak fields are part of InitFields here (Fields() and the `weak`
// annotation both read off `init { ... }`), matching spec.md §3's
// `weak_fields ⊆ fields ∪ init_fields` invariant.
func FromBoxDecl(b *ast.BoxDecl) *BoxDeclaration {
	out := &BoxDeclaration{
		Name:           b.Name,
		TypeParameters: append([]string(nil), b.TypeParams...),
		Extends:        append([]string(nil), b.Extends...),
		Implements:     append([]string(nil), b.Implements...),
		InitFields:     append([]string(nil), b.Fields...),
		WeakFields:     append([]string(nil), b.WeakFields...),
		Constructors:   make(map[string]MethodSignature, len(b.Constructors)),
		IsInterface:    b.IsInterface,
		IsStatic:       b.IsStatic,
		StaticDeps:     append([]string(nil), b.StaticDepNames...),
	}
	for key, m := range b.Constructors {
		out.Constructors[key] = MethodSignature{
			Name: m.Name, Arity: len(m.Params), Override: m.Override,
			IsBirth: true, BodyEmpty: len(m.Body) == 0,
		}
	}
	for _, m := range b.Methods {
		out.Methods = append(out.Methods, MethodSignature{
			Name: m.Name, Arity: len(m.Params), Override: m.Override,
			IsBirth: m.IsBirth, BodyEmpty: len(m.Body) == 0,
		})
	}
	return out
}

// InvariantError reports a violated BoxDeclaration invariant.
type InvariantError struct {
	Box    string
	Reason string
}

func (e *InvariantError) Error() string {
	return "box " + e.Box + ": " + e.Reason
}
