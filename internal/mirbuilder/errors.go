package mirbuilder

import "fmt"

// BuildError is the MIR builder's typed error sum (spec.md §7).
type BuildError interface {
	error
	buildError()
}

// UndefinedVariable reports a Variable reference with no binding in the
// current variable_map (spec.md §4.4).
type UndefinedVariable struct {
	Name string
	Line int
}

func (e *UndefinedVariable) Error() string {
	return fmt.Sprintf("line %d: undefined variable %q", e.Line, e.Name)
}
func (*UndefinedVariable) buildError() {}

// UnsupportedShape reports an AST node the builder has no lowering for.
type UnsupportedShape struct {
	What string
	Line int
}

func (e *UnsupportedShape) Error() string {
	return fmt.Sprintf("line %d: unsupported construct: %s", e.Line, e.What)
}
func (*UnsupportedShape) buildError() {}

// InternalError reports a builder invariant violation (no current block
// or function when one was required).
type InternalError struct{ Reason string }

func (e *InternalError) Error() string { return "mir builder internal error: " + e.Reason }
func (*InternalError) buildError()     {}
