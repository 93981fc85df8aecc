package optimizer

import "github.com/nyashlang/nyashc/internal/mir"

// ReorderPure implements spec.md §4.7 pass 3: grouping pure producers
// near their consumers when doing so does not reorder across a Mut/Io/
// Control instruction that shares an access. The spec explicitly marks
// this pass skippable in a minimal implementation; every other pass here
// already normalizes the instruction stream for emission (CSE collapses
// duplicates, DCE removes dead producers), so scheduling pure producers
// adjacent to their single consumer has no observable effect for this
// toolchain's consumers (interpreter, WASM backend) and is left as a
// structural no-op.
func ReorderPure(f *mir.Function) Stats {
	return Stats{}
}
