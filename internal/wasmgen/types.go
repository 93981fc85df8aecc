package wasmgen

import "github.com/nyashlang/nyashc/internal/mir"

// inferTypes assigns a best-effort MirType to every ValueId defined in f, by
// a single forward scan over its defining instruction. The MIR builder only
// records a precise type for `me`, not for other parameters (internal/mirbuilder
// leaves most locals as mir.Unknown); the WASM backend needs a concrete
// native representation for every local, so it recovers one locally rather
// than requiring a full type-inference pass upstream. Loop-carried Phis
// default to the type of their first input, which is exact for the loops
// this toolchain's builder produces (spec.md §4.5): every phi input
// originates from the same surface variable, so its declared/inferred type
// is uniform across predecessors.
func inferTypes(f *mir.Function) map[mir.ValueId]mir.MirType {
	out := make(map[mir.ValueId]mir.MirType, len(f.Locals))
	for v, t := range f.Locals {
		if t.Kind != mir.TypeUnknown {
			out[v] = t
		}
	}

	infer := func(inst mir.Instruction) (mir.MirType, bool) {
		switch in := inst.(type) {
		case *mir.Const:
			switch in.Value.Kind {
			case mir.ConstInteger:
				return mir.Integer, true
			case mir.ConstFloat:
				return mir.Float, true
			case mir.ConstBool:
				return mir.Bool, true
			case mir.ConstString:
				return mir.String, true
			default:
				return mir.Unknown, true
			}
		case *mir.BinOp:
			if out[in.LHS].Kind == mir.TypeFloat || out[in.RHS].Kind == mir.TypeFloat {
				return mir.Float, true
			}
			return mir.Integer, true
		case *mir.Compare:
			return mir.Bool, true
		case *mir.NewBox:
			return mir.BoxType(in.Class), true
		case *mir.Phi:
			if len(in.Inputs) > 0 {
				if t, ok := out[in.Inputs[0].Value]; ok {
					return t, true
				}
			}
			return mir.Unknown, true
		case *mir.BoxFieldLoad, *mir.BoxCall, *mir.Call, *mir.RefGet, *mir.WeakLoad, *mir.WeakNew, *mir.TypeOp, *mir.Recv:
			return mir.Unknown, true
		case *mir.WeakCheck:
			return mir.Bool, true
		}
		return mir.Unknown, false
	}

	for _, id := range f.BlockOrder {
		bb := f.Blocks[id]
		for _, inst := range bb.Instructions {
			dst, ok := inst.DstValue()
			if !ok {
				continue
			}
			if _, already := out[dst]; already {
				continue
			}
			if t, ok := infer(inst); ok {
				out[dst] = t
			}
		}
	}
	return out
}

// wasmType maps a MIR type to its WAT local/value type. Every Box-shaped
// value (instances, strings, arrays, futures, weak refs, unknowns) is
// represented as an i32 linear-memory pointer; only Float gets a native f64
// slot, matching the value representation spec.md §4.8 describes.
func wasmType(t mir.MirType) string {
	if t.Kind == mir.TypeFloat {
		return "f64"
	}
	return "i32"
}

func zeroConst(wt string) string {
	if wt == "f64" {
		return "(f64.const 0)"
	}
	return "(i32.const 0)"
}
