package optimizer

import "github.com/nyashlang/nyashc/internal/mir"

// IntrinsicFold implements spec.md §4.7 pass 4: fold constant pure
// operations and eliminate identities (x+0, x*1, !!x, -(-x)).
func IntrinsicFold(f *mir.Function) Stats {
	defIndex := make(map[mir.ValueId]mir.Instruction)
	forEachInstruction(f, func(_ *mir.BasicBlock, inst mir.Instruction) {
		if dst, ok := inst.DstValue(); ok {
			defIndex[dst] = inst
		}
	})

	constOf := func(v mir.ValueId) (mir.ConstValue, bool) {
		if c, ok := defIndex[v].(*mir.Const); ok {
			return c.Value, true
		}
		return mir.ConstValue{}, false
	}
	isZero := func(v mir.ValueId) bool {
		c, ok := constOf(v)
		return ok && ((c.Kind == mir.ConstInteger && c.Int == 0) || (c.Kind == mir.ConstFloat && c.Float == 0))
	}
	isOne := func(v mir.ValueId) bool {
		c, ok := constOf(v)
		return ok && ((c.Kind == mir.ConstInteger && c.Int == 1) || (c.Kind == mir.ConstFloat && c.Float == 1))
	}
	isFalse := func(v mir.ValueId) bool {
		c, ok := constOf(v)
		return ok && c.Kind == mir.ConstBool && !c.Bool
	}

	sub := map[mir.ValueId]mir.ValueId{}
	folded := 0

	for _, id := range f.BlockOrder {
		bb := f.Blocks[id]
		kept := bb.Instructions[:0]
		for _, inst := range bb.Instructions {
			substituteUses(inst, sub)

			switch in := inst.(type) {
			case *mir.BinOp:
				if lhs, rhs, ok := constOf2(in.LHS, in.RHS, constOf); ok {
					if folded2, ok := foldBinOp(in.Op, lhs, rhs); ok {
						kept = append(kept, &mir.Const{Dst: in.Dst, Value: folded2})
						folded++
						continue
					}
				}
				switch in.Op {
				case mir.BinAdd:
					if isZero(in.RHS) {
						sub[in.Dst] = in.LHS
						folded++
						continue
					}
					if isZero(in.LHS) {
						sub[in.Dst] = in.RHS
						folded++
						continue
					}
				case mir.BinMul:
					if isOne(in.RHS) {
						sub[in.Dst] = in.LHS
						folded++
						continue
					}
					if isOne(in.LHS) {
						sub[in.Dst] = in.RHS
						folded++
						continue
					}
				case mir.BinSub:
					if isZero(in.RHS) {
						sub[in.Dst] = in.LHS
						folded++
						continue
					}
					// -(-x): Sub(0, Sub(0, x)) == x
					if isZero(in.LHS) {
						if inner, ok := defIndex[in.RHS].(*mir.BinOp); ok && inner.Op == mir.BinSub && isZero(inner.LHS) {
							sub[in.Dst] = inner.RHS
							folded++
							continue
						}
					}
				}
			case *mir.Compare:
				if lhs, rhs, ok := constOf2(in.LHS, in.RHS, constOf); ok {
					if cv, ok := foldCompare(in.Pred, lhs, rhs); ok {
						kept = append(kept, &mir.Const{Dst: in.Dst, Value: cv})
						folded++
						continue
					}
				}
				// !!x: Eq(Eq(x, false), false) == x
				if in.Pred == mir.CmpEq && isFalse(in.RHS) {
					if inner, ok := defIndex[in.LHS].(*mir.Compare); ok && inner.Pred == mir.CmpEq && isFalse(inner.RHS) {
						sub[in.Dst] = inner.LHS
						folded++
						continue
					}
				}
			}
			kept = append(kept, inst)
		}
		bb.Instructions = kept
		if bb.Terminator != nil {
			substituteUses(bb.Terminator, sub)
		}
	}

	return Stats{Intrinsic: folded}
}

func constOf2(l, r mir.ValueId, constOf func(mir.ValueId) (mir.ConstValue, bool)) (mir.ConstValue, mir.ConstValue, bool) {
	lc, ok1 := constOf(l)
	rc, ok2 := constOf(r)
	return lc, rc, ok1 && ok2
}

func foldBinOp(op mir.BinOpKind, l, r mir.ConstValue) (mir.ConstValue, bool) {
	if l.Kind == mir.ConstInteger && r.Kind == mir.ConstInteger {
		switch op {
		case mir.BinAdd:
			return mir.ConstValue{Kind: mir.ConstInteger, Int: l.Int + r.Int}, true
		case mir.BinSub:
			return mir.ConstValue{Kind: mir.ConstInteger, Int: l.Int - r.Int}, true
		case mir.BinMul:
			return mir.ConstValue{Kind: mir.ConstInteger, Int: l.Int * r.Int}, true
		case mir.BinDiv:
			if r.Int == 0 {
				return mir.ConstValue{}, false
			}
			return mir.ConstValue{Kind: mir.ConstInteger, Int: l.Int / r.Int}, true
		case mir.BinMod:
			if r.Int == 0 {
				return mir.ConstValue{}, false
			}
			return mir.ConstValue{Kind: mir.ConstInteger, Int: l.Int % r.Int}, true
		}
	}
	if l.Kind == mir.ConstBool && r.Kind == mir.ConstBool {
		switch op {
		case mir.BinAnd:
			return mir.ConstValue{Kind: mir.ConstBool, Bool: l.Bool && r.Bool}, true
		case mir.BinOr:
			return mir.ConstValue{Kind: mir.ConstBool, Bool: l.Bool || r.Bool}, true
		}
	}
	return mir.ConstValue{}, false
}

func foldCompare(pred mir.ComparePred, l, r mir.ConstValue) (mir.ConstValue, bool) {
	if l.Kind != mir.ConstInteger || r.Kind != mir.ConstInteger {
		return mir.ConstValue{}, false
	}
	var res bool
	switch pred {
	case mir.CmpEq:
		res = l.Int == r.Int
	case mir.CmpNe:
		res = l.Int != r.Int
	case mir.CmpLt:
		res = l.Int < r.Int
	case mir.CmpGt:
		res = l.Int > r.Int
	case mir.CmpLe:
		res = l.Int <= r.Int
	case mir.CmpGe:
		res = l.Int >= r.Int
	default:
		return mir.ConstValue{}, false
	}
	return mir.ConstValue{Kind: mir.ConstBool, Bool: res}, true
}
