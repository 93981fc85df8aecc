package wasmgen

import "fmt"

// CodegenError is the WASM backend's typed error sum (spec.md §7). The
// backend fails the whole module on the first unsupported instruction to
// avoid producing partial WAT (spec.md §7 propagation policy).
type CodegenError interface {
	error
	codegenError()
}

// UnsupportedInstruction reports a MIR instruction the minimal backend has
// no lowering for (spec.md §4.8).
type UnsupportedInstruction struct {
	Function string
	Inst     string
}

func (e *UnsupportedInstruction) Error() string {
	return fmt.Sprintf("function %s: unsupported instruction for WASM codegen: %s", e.Function, e.Inst)
}
func (*UnsupportedInstruction) codegenError() {}

// MissingLocal reports a ValueId used without ever being allocated a WAT
// local slot — an internal consistency failure, not a user-facing one.
type MissingLocal struct {
	Function string
	Value    string
}

func (e *MissingLocal) Error() string {
	return fmt.Sprintf("function %s: no local allocated for %s", e.Function, e.Value)
}
func (*MissingLocal) codegenError() {}

// Internal reports a backend invariant violation.
type Internal struct{ Reason string }

func (e *Internal) Error() string { return "wasm codegen internal error: " + e.Reason }
func (*Internal) codegenError()   {}
