package optimizer

import (
	"fmt"

	"github.com/nyashlang/nyashc/internal/mir"
)

// CommonSubexpressionEliminate implements spec.md §4.7 pass 2 and §8
// property 7: hash each Pure instruction by (opcode, operand ValueIds,
// immediate data) and replace duplicates within a linear scan;
// effect-unsafe (non-Pure) instructions never participate.
//
// Scope is per basic block: a dominance analysis would let equal pure
// expressions be shared across blocks too, but a block-local linear scan
// is sufficient to satisfy spec.md §8 property 7 without that machinery
// (see DESIGN.md).
//
// Purely value-derived keys (Const/BinOp/Compare, operating only on SSA
// values that never change once defined) stay available for the whole
// block. Heap-dependent pure reads (BoxFieldLoad/RefGet/WeakLoad/
// WeakCheck) are additionally invalidated by any intervening non-Pure
// instruction in the block, since CSE has no alias information of its
// own — narrower (box,field)-scoped invalidation is the dedicated
// BoxField-narrowing pass's job (spec.md §4.7 pass 6).
func CommonSubexpressionEliminate(f *mir.Function) Stats {
	removed := 0
	for _, id := range f.BlockOrder {
		bb := f.Blocks[id]
		availPure := map[string]mir.ValueId{}
		availHeap := map[string]mir.ValueId{}
		sub := map[mir.ValueId]mir.ValueId{}

		kept := bb.Instructions[:0]
		for _, inst := range bb.Instructions {
			substituteUses(inst, sub)

			if inst.Effect().Category != mir.Pure {
				availHeap = map[string]mir.ValueId{}
				kept = append(kept, inst)
				continue
			}

			key, heapDep, ok := cseKey(inst)
			if !ok {
				kept = append(kept, inst)
				continue
			}

			table := availPure
			if heapDep {
				table = availHeap
			}

			dst, hasDst := inst.DstValue()
			if hasDst {
				if prior, found := table[key]; found {
					sub[dst] = prior
					removed++
					continue
				}
				table[key] = dst
			}
			kept = append(kept, inst)
		}
		bb.Instructions = kept

		if bb.Terminator != nil {
			substituteUses(bb.Terminator, sub)
		}
	}
	return Stats{CSE: removed}
}

// cseKey returns a stable key for instructions eligible for CSE, whether
// the key depends on mutable heap state, and whether inst participates at
// all.
func cseKey(inst mir.Instruction) (key string, heapDependent bool, ok bool) {
	switch in := inst.(type) {
	case *mir.Const:
		return fmt.Sprintf("const:%d:%s", in.Value.Kind, in.Value.String()), false, true
	case *mir.BinOp:
		return fmt.Sprintf("binop:%d:%s:%s", in.Op, in.LHS, in.RHS), false, true
	case *mir.Compare:
		return fmt.Sprintf("cmp:%d:%s:%s", in.Pred, in.LHS, in.RHS), false, true
	case *mir.BoxFieldLoad:
		return fmt.Sprintf("load:%s:%s", in.Box, in.Field), true, true
	case *mir.RefGet:
		return fmt.Sprintf("refget:%s", in.Ref), true, true
	case *mir.WeakLoad:
		return fmt.Sprintf("weakload:%s", in.Weak), true, true
	case *mir.WeakCheck:
		return fmt.Sprintf("weakcheck:%s", in.Weak), true, true
	case *mir.TypeOp:
		return fmt.Sprintf("typeop:%d:%s:%s", in.Kind, in.Value, in.Ty), false, true
	default:
		return "", false, false
	}
}
