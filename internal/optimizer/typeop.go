package optimizer

import "github.com/nyashlang/nyashc/internal/mir"

// LowerTypeOps implements spec.md §4.7 pass 5: rewrites the BoxCall
// pattern `x.is(y)` / `x.as(y)`, where y is a `NewBox StringBox(Const
// String("T"))`, into a dedicated TypeOp{Check|Cast}. The pass is
// idempotent (spec.md §8 property 8): once rewritten to a TypeOp, the
// BoxCall pattern this pass matches no longer exists, so a second run
// finds nothing to rewrite. Destination ValueIds are preserved by
// replacing the instruction in place at the same Dst.
func LowerTypeOps(f *mir.Function) Stats {
	defIndex := make(map[mir.ValueId]mir.Instruction)
	forEachInstruction(f, func(_ *mir.BasicBlock, inst mir.Instruction) {
		if dst, ok := inst.DstValue(); ok {
			defIndex[dst] = inst
		}
	})

	lowered := 0
	for _, id := range f.BlockOrder {
		bb := f.Blocks[id]
		for i, inst := range bb.Instructions {
			call, ok := inst.(*mir.BoxCall)
			if !ok || len(call.Args) != 1 {
				continue
			}
			var kind mir.TypeOpKind
			switch call.Method {
			case "is":
				kind = mir.TypeOpCheck
			case "as":
				kind = mir.TypeOpCast
			default:
				continue
			}

			typeName, ok := stringBoxLiteral(defIndex, call.Args[0])
			if !ok {
				continue
			}

			bb.Instructions[i] = &mir.TypeOp{
				Dst:   call.Dst,
				Kind:  kind,
				Value: call.Receiver,
				Ty:    mapTypeName(typeName),
			}
			lowered++
		}
	}
	// spec.md §4.7's statistics record has no dedicated TypeOp field;
	// this rewrite is a form of intrinsic optimization and is folded into
	// the Intrinsic count.
	return Stats{Intrinsic: lowered}
}

// stringBoxLiteral looks through a `NewBox StringBox(Const String(...))`
// value to recover its literal, or reports ok=false.
func stringBoxLiteral(defIndex map[mir.ValueId]mir.Instruction, v mir.ValueId) (string, bool) {
	nb, ok := defIndex[v].(*mir.NewBox)
	if !ok || nb.Class != "StringBox" || len(nb.Args) != 1 {
		return "", false
	}
	c, ok := defIndex[nb.Args[0]].(*mir.Const)
	if !ok || c.Value.Kind != mir.ConstString {
		return "", false
	}
	return c.Value.Str, true
}

func mapTypeName(name string) mir.MirType {
	switch name {
	case "Integer":
		return mir.Integer
	case "Float":
		return mir.Float
	case "Bool":
		return mir.Bool
	case "String":
		return mir.String
	case "Void":
		return mir.Void
	default:
		return mir.BoxType(name)
	}
}
