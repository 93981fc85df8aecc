package optimizer

import "github.com/nyashlang/nyashc/internal/mir"

type boxFieldKey struct {
	box   mir.ValueId
	field string
}

// NarrowBoxFields implements spec.md §4.7 pass 6: load-after-store
// forwarding, dead-store elimination, and redundant-load elimination,
// restricted to the same (box, field) pair and bounded by intervening
// effects that may alias. The pass runs per block: any instruction whose
// effect touches the heap (Mut or Io) invalidates every tracked
// (box, field) entry, since this pass — like CSE — has no points-to
// information to prove two Box references are distinct. A BoxFieldStore
// forgets every known field value except the one it writes; earlier
// stores stay dead-store candidates until a load of the same field name
// or another heap-touching instruction may observe them.
func NarrowBoxFields(f *mir.Function) Stats {
	narrowed := 0
	for _, id := range f.BlockOrder {
		bb := f.Blocks[id]

		// value currently known to be stored/loaded at (box,field)
		avail := map[boxFieldKey]mir.ValueId{}
		// index of the live BoxFieldStore instruction for (box,field); the
		// entry is dropped once the store has possibly been observed by
		// something other than a value this pass tracked (so it is no
		// longer provably dead).
		liveStore := map[boxFieldKey]int{}
		sub := map[mir.ValueId]mir.ValueId{}
		deadIdx := map[int]bool{}

		for i, inst := range bb.Instructions {
			substituteUses(inst, sub)

			switch in := inst.(type) {
			case *mir.BoxFieldStore:
				key := boxFieldKey{in.Box, in.Field}
				if prevIdx, ok := liveStore[key]; ok {
					deadIdx[prevIdx] = true
					narrowed++
				}
				// in.Box may alias any other tracked box.
				avail = map[boxFieldKey]mir.ValueId{}
				avail[key] = in.Value
				liveStore[key] = i

			case *mir.BoxFieldLoad:
				key := boxFieldKey{in.Box, in.Field}
				if v, ok := avail[key]; ok {
					sub[in.Dst] = v
					deadIdx[i] = true
					narrowed++
					continue
				}
				// This load may read a store to an aliased box.
				for k := range liveStore {
					if k.field == in.Field {
						delete(liveStore, k)
					}
				}
				avail[key] = in.Dst

			default:
				if inst.Effect().Category == mir.Mut || inst.Effect().Category == mir.Io {
					avail = map[boxFieldKey]mir.ValueId{}
					liveStore = map[boxFieldKey]int{}
				}
			}
		}

		if len(deadIdx) == 0 && len(sub) == 0 {
			continue
		}
		kept := bb.Instructions[:0]
		for i, inst := range bb.Instructions {
			if deadIdx[i] {
				continue
			}
			kept = append(kept, inst)
		}
		bb.Instructions = kept

		if bb.Terminator != nil {
			substituteUses(bb.Terminator, sub)
		}
	}
	return Stats{BoxField: narrowed}
}
