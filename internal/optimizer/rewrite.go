package optimizer

import "github.com/nyashlang/nyashc/internal/mir"

// substituteUses rewrites every ValueId inst reads according to sub,
// in place. Used by CSE (redirect duplicate-result consumers to the
// earlier definition) and BoxField narrowing (redirect redundant-load
// consumers to the forwarded value).
func substituteUses(inst mir.Instruction, sub map[mir.ValueId]mir.ValueId) {
	remap := func(v mir.ValueId) mir.ValueId {
		for {
			if nv, ok := sub[v]; ok && nv != v {
				v = nv
				continue
			}
			return v
		}
	}
	remapSlice := func(vs []mir.ValueId) {
		for i := range vs {
			vs[i] = remap(vs[i])
		}
	}

	switch in := inst.(type) {
	case *mir.BinOp:
		in.LHS, in.RHS = remap(in.LHS), remap(in.RHS)
	case *mir.Compare:
		in.LHS, in.RHS = remap(in.LHS), remap(in.RHS)
	case *mir.Branch:
		in.Cond = remap(in.Cond)
	case *mir.Phi:
		for i := range in.Inputs {
			in.Inputs[i].Value = remap(in.Inputs[i].Value)
		}
	case *mir.Call:
		remapSlice(in.Args)
	case *mir.Return:
		if in.HasValue {
			in.Value = remap(in.Value)
		}
	case *mir.NewBox:
		remapSlice(in.Args)
	case *mir.BoxFieldLoad:
		in.Box = remap(in.Box)
	case *mir.BoxFieldStore:
		in.Box, in.Value = remap(in.Box), remap(in.Value)
	case *mir.BoxCall:
		in.Receiver = remap(in.Receiver)
		remapSlice(in.Args)
	case *mir.RefGet:
		in.Ref = remap(in.Ref)
	case *mir.RefSet:
		in.Ref, in.New = remap(in.Ref), remap(in.New)
	case *mir.WeakNew:
		in.Target = remap(in.Target)
	case *mir.WeakLoad:
		in.Weak = remap(in.Weak)
	case *mir.WeakCheck:
		in.Weak = remap(in.Weak)
	case *mir.Send:
		in.Value = remap(in.Value)
	case *mir.TailCall:
		remapSlice(in.Args)
	case *mir.Adopt:
		in.Parent, in.Child = remap(in.Parent), remap(in.Child)
	case *mir.Release:
		in.Ref = remap(in.Ref)
	case *mir.MemCopy:
		in.Dst, in.Src, in.Len = remap(in.Dst), remap(in.Src), remap(in.Len)
	case *mir.TypeOp:
		in.Value = remap(in.Value)
	}
}

// forEachInstruction visits every instruction in f, including block
// terminators, in program order.
func forEachInstruction(f *mir.Function, visit func(bb *mir.BasicBlock, inst mir.Instruction)) {
	for _, id := range f.BlockOrder {
		bb := f.Blocks[id]
		for _, inst := range bb.Instructions {
			visit(bb, inst)
		}
		if bb.Terminator != nil {
			visit(bb, bb.Terminator)
		}
	}
}

// applySubstitution rewrites every instruction's uses in f according to
// sub.
func applySubstitution(f *mir.Function, sub map[mir.ValueId]mir.ValueId) {
	if len(sub) == 0 {
		return
	}
	forEachInstruction(f, func(_ *mir.BasicBlock, inst mir.Instruction) {
		substituteUses(inst, sub)
	})
}
