package optimizer

import "github.com/nyashlang/nyashc/internal/mir"

// DeadCodeEliminate implements spec.md §4.7 pass 1: starting from values
// used in side-effecting instructions and in terminators, propagate
// liveness backward through pure producers, then remove pure instructions
// whose destination is unused.
func DeadCodeEliminate(f *mir.Function) Stats {
	defOf := make(map[mir.ValueId]mir.Instruction)
	defBlock := make(map[mir.ValueId]mir.BasicBlockId)
	forEachInstruction(f, func(bb *mir.BasicBlock, inst mir.Instruction) {
		if dst, ok := inst.DstValue(); ok {
			defOf[dst] = inst
			defBlock[dst] = bb.ID
		}
	})

	live := make(map[mir.ValueId]bool)
	var worklist []mir.ValueId

	markUses := func(inst mir.Instruction) {
		for _, u := range inst.UsedValues() {
			if !live[u] {
				live[u] = true
				worklist = append(worklist, u)
			}
		}
	}

	forEachInstruction(f, func(_ *mir.BasicBlock, inst mir.Instruction) {
		if inst.Effect().Category != mir.Pure || mir.IsTerminator(inst) {
			markUses(inst)
		}
	})

	for len(worklist) > 0 {
		v := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		if def, ok := defOf[v]; ok {
			markUses(def)
		}
	}

	removed := 0
	for _, id := range f.BlockOrder {
		bb := f.Blocks[id]
		kept := bb.Instructions[:0]
		for _, inst := range bb.Instructions {
			dst, hasDst := inst.DstValue()
			if inst.Effect().Category == mir.Pure && hasDst && !live[dst] {
				removed++
				continue
			}
			kept = append(kept, inst)
		}
		bb.Instructions = kept
	}

	return Stats{DeadCode: removed}
}
