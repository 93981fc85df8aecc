// Package optimizer implements the effect-driven MIR optimization passes
// of spec.md §4.7: legality is derived entirely from each instruction's
// effect category (spec.md §4.3).
package optimizer

import "github.com/nyashlang/nyashc/internal/mir"

// Stats is the additive per-pass statistics record of spec.md §4.7.
type Stats struct {
	DeadCode  int
	CSE       int
	Reorder   int
	Intrinsic int
	BoxField  int
}

func (s *Stats) add(o Stats) {
	s.DeadCode += o.DeadCode
	s.CSE += o.CSE
	s.Reorder += o.Reorder
	s.Intrinsic += o.Intrinsic
	s.BoxField += o.BoxField
}

// Run executes every pass, in the order spec.md §4.7 lists them, over
// every function in m and returns the composed statistics.
func Run(m *mir.Module) Stats {
	var total Stats
	for _, name := range m.FunctionOrder {
		f := m.Functions[name]
		total.add(DeadCodeEliminate(f))
		total.add(CommonSubexpressionEliminate(f))
		total.add(ReorderPure(f))
		total.add(IntrinsicFold(f))
		total.add(LowerTypeOps(f))
		total.add(NarrowBoxFields(f))
	}
	return total
}
