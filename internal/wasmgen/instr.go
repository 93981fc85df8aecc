package wasmgen

import (
	"fmt"
	"strings"

	"github.com/nyashlang/nyashc/internal/mir"
)

// emitBlockBody lowers one basic block's non-Phi instructions (Phis are
// resolved on the predecessor side, see assignPhis) followed by its
// terminator.
func emitBlockBody(b *strings.Builder, f *mir.Function, id mir.BasicBlockId, pcIndex map[mir.BasicBlockId]int, types map[mir.ValueId]mir.MirType, strs map[string]stringLayout, pad string) error {
	bb := f.Blocks[id]
	for _, inst := range bb.Instructions {
		if _, ok := inst.(*mir.Phi); ok {
			continue // realized at predecessor jump sites
		}
		if err := emitInstruction(b, f, inst, types, strs, pad); err != nil {
			return err
		}
	}

	switch term := bb.Terminator.(type) {
	case *mir.Jump:
		jumpTo(b, f, id, term.Target, pcIndex, pad)
	case *mir.Branch:
		fmt.Fprintf(b, "%s(if (local.get $%s)\n", pad, valueLocal(term.Cond))
		fmt.Fprintf(b, "%s  (then\n", pad)
		jumpTo(b, f, id, term.Then, pcIndex, pad+"    ")
		fmt.Fprintf(b, "%s  )\n", pad)
		fmt.Fprintf(b, "%s  (else\n", pad)
		jumpTo(b, f, id, term.Else, pcIndex, pad+"    ")
		fmt.Fprintf(b, "%s  )\n", pad)
		fmt.Fprintf(b, "%s)\n", pad)
	case *mir.Return:
		if term.HasValue {
			fmt.Fprintf(b, "%s(return (local.get $%s))\n", pad, valueLocal(term.Value))
		} else {
			fmt.Fprintf(b, "%s(return)\n", pad)
		}
	case *mir.TailCall:
		fmt.Fprintf(b, "%s(return (call $%s%s))\n", pad, sanitizeName(term.Callee), argList(term.Args))
	case nil:
		return &Internal{Reason: fmt.Sprintf("block %s has no terminator", id)}
	default:
		return &UnsupportedInstruction{Function: f.Name, Inst: term.String()}
	}
	return nil
}

func argList(args []mir.ValueId) string {
	var b strings.Builder
	for _, a := range args {
		fmt.Fprintf(&b, " (local.get $%s)", valueLocal(a))
	}
	return b.String()
}

// emitInstruction lowers one non-terminator instruction, assigning its
// destination local when it has one. Unhandled instruction kinds (Send,
// Recv, AtomicFence, RefSet/RefGet/WeakNew/WeakLoad/WeakCheck, Adopt/
// Release, MemCopy beyond $box_clone's use) surface as
// UnsupportedInstruction: the minimal backend targets a single-actor,
// synchronous subset of the language (spec.md §4.8 does not require bus or
// ownership-forest instructions to lower, since those model concerns the
// interpreter's runtime owns, not static codegen).
func emitInstruction(b *strings.Builder, f *mir.Function, inst mir.Instruction, types map[mir.ValueId]mir.MirType, strs map[string]stringLayout, pad string) error {
	set := func(dst mir.ValueId, expr string) {
		fmt.Fprintf(b, "%s(local.set $%s %s)\n", pad, valueLocal(dst), expr)
	}

	switch in := inst.(type) {
	case *mir.Const:
		return emitConst(b, in, strs, pad)

	case *mir.BinOp:
		wt := wasmType(types[in.Dst])
		op := map[mir.BinOpKind]string{
			mir.BinAdd: "add", mir.BinSub: "sub", mir.BinMul: "mul",
			mir.BinDiv: boolOp(wt == "f64", "div", "div_s"),
			mir.BinMod: "rem_s",
			mir.BinAnd: "and", mir.BinOr: "or",
		}[in.Op]
		set(in.Dst, fmt.Sprintf("(%s.%s (local.get $%s) (local.get $%s))", wt, op, valueLocal(in.LHS), valueLocal(in.RHS)))

	case *mir.Compare:
		wt := wasmType(types[in.LHS])
		pred := map[mir.ComparePred]string{
			mir.CmpEq: "eq", mir.CmpNe: "ne",
			mir.CmpLt: boolOp(wt == "f64", "lt", "lt_s"),
			mir.CmpGt: boolOp(wt == "f64", "gt", "gt_s"),
			mir.CmpLe: boolOp(wt == "f64", "le", "le_s"),
			mir.CmpGe: boolOp(wt == "f64", "ge", "ge_s"),
		}[in.Pred]
		set(in.Dst, fmt.Sprintf("(%s.%s (local.get $%s) (local.get $%s))", wt, pred, valueLocal(in.LHS), valueLocal(in.RHS)))

	case *mir.Call:
		return emitCall(b, f, in.Callee, in.Dst, in.HasDst, in.Args, pad)

	case *mir.NewBox:
		return emitNewBox(b, in, pad)

	case *mir.BoxFieldLoad:
		set(in.Dst, fmt.Sprintf("(i32.load offset=%d (local.get $%s))", dataBoxFieldBase, valueLocal(in.Box)))

	case *mir.BoxFieldStore:
		fmt.Fprintf(b, "%s(i32.store offset=%d (local.get $%s) (local.get $%s))\n", pad, dataBoxFieldBase, valueLocal(in.Box), valueLocal(in.Value))

	case *mir.BoxCall:
		return emitBoxCall(b, f, in, pad)

	case *mir.Safepoint:
		fmt.Fprintf(b, "%s;; safepoint\n", pad)

	case *mir.TypeOp:
		return emitTypeOp(b, in, pad)

	default:
		return &UnsupportedInstruction{Function: f.Name, Inst: inst.String()}
	}
	return nil
}

func boolOp(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}

func emitConst(b *strings.Builder, c *mir.Const, strs map[string]stringLayout, pad string) error {
	switch c.Value.Kind {
	case mir.ConstInteger:
		fmt.Fprintf(b, "%s(local.set $%s (i32.const %d))\n", pad, valueLocal(c.Dst), c.Value.Int)
	case mir.ConstFloat:
		fmt.Fprintf(b, "%s(local.set $%s (f64.const %g))\n", pad, valueLocal(c.Dst), c.Value.Float)
	case mir.ConstBool:
		v := 0
		if c.Value.Bool {
			v = 1
		}
		fmt.Fprintf(b, "%s(local.set $%s (i32.const %d))\n", pad, valueLocal(c.Dst), v)
	case mir.ConstString:
		l, ok := strs[c.Value.Str]
		if !ok {
			return &Internal{Reason: "string literal missing from layout: " + c.Value.Str}
		}
		fmt.Fprintf(b, "%s(local.set $%s (call $alloc_stringbox (i32.const %d) (i32.const %d)))\n", pad, valueLocal(c.Dst), l.offset, l.length)
	default:
		fmt.Fprintf(b, "%s(local.set $%s (i32.const 0))\n", pad, valueLocal(c.Dst))
	}
	return nil
}

func emitNewBox(b *strings.Builder, n *mir.NewBox, pad string) error {
	switch n.Class {
	case "IntegerBox":
		arg := "(i32.const 0)"
		if len(n.Args) == 1 {
			arg = fmt.Sprintf("(local.get $%s)", valueLocal(n.Args[0]))
		}
		fmt.Fprintf(b, "%s(local.set $%s (call $alloc_integerbox %s))\n", pad, valueLocal(n.Dst), arg)
	case "BoolBox":
		arg := "(i32.const 0)"
		if len(n.Args) == 1 {
			arg = fmt.Sprintf("(local.get $%s)", valueLocal(n.Args[0]))
		}
		fmt.Fprintf(b, "%s(local.set $%s (call $alloc_boolbox %s))\n", pad, valueLocal(n.Dst), arg)
	case "StringBox":
		// Builder-emitted NewBox StringBox(Const) is rewritten away by the
		// TypeOp-lowering optimizer pass; surviving occurrences take their
		// operand as an already-built StringBox and clone it.
		if len(n.Args) == 1 {
			fmt.Fprintf(b, "%s(local.set $%s (call $box_clone (local.get $%s)))\n", pad, valueLocal(n.Dst), valueLocal(n.Args[0]))
			return nil
		}
		fmt.Fprintf(b, "%s(local.set $%s (call $alloc_stringbox (i32.const 0) (i32.const 0)))\n", pad, valueLocal(n.Dst))
	default:
		fmt.Fprintf(b, "%s(local.set $%s (call $alloc_databox (i32.const %d)))\n", pad, valueLocal(n.Dst), len(n.Args))
		for i, a := range n.Args {
			fmt.Fprintf(b, "%s(i32.store offset=%d (local.get $%s) (local.get $%s))\n", pad, dataBoxFieldBase+i*dataBoxFieldSize, valueLocal(n.Dst), valueLocal(a))
		}
	}
	return nil
}

func emitCall(b *strings.Builder, f *mir.Function, callee string, dst mir.ValueId, hasDst bool, args []mir.ValueId, pad string) error {
	if sig, ok := hostImports[callee]; ok {
		call := fmt.Sprintf("(call %s%s)", sig.wasmFunc, argList(args))
		if hasDst {
			fmt.Fprintf(b, "%s(local.set $%s %s)\n", pad, valueLocal(dst), call)
		} else {
			fmt.Fprintf(b, "%s%s\n", pad, call)
		}
		return nil
	}
	call := fmt.Sprintf("(call $%s%s)", sanitizeName(callee), argList(args))
	if hasDst {
		fmt.Fprintf(b, "%s(local.set $%s %s)\n", pad, valueLocal(dst), call)
	} else {
		fmt.Fprintf(b, "%s%s\n", pad, call)
	}
	return nil
}

// emitBoxCall lowers the dynamically dispatched method names spec.md §4.8
// specializes: print/log reach the host console import, toString and clone
// call runtime helpers, equals is an inline pointer comparison, and birth
// emits nothing. Any
// other method name has no resolvable target without a vtable, which is
// out of scope for this minimal backend.
func emitBoxCall(b *strings.Builder, f *mir.Function, c *mir.BoxCall, pad string) error {
	recv := fmt.Sprintf("(local.get $%s)", valueLocal(c.Receiver))
	switch c.Method {
	case "print", "log":
		fmt.Fprintf(b, "%s(call $console_log %s)\n", pad, recv)
		return nil
	case "toString":
		call := fmt.Sprintf("(call $int_to_string %s)", recv)
		if c.HasDst {
			fmt.Fprintf(b, "%s(local.set $%s %s)\n", pad, valueLocal(c.Dst), call)
		}
		return nil
	case "clone":
		call := fmt.Sprintf("(call $box_clone %s)", recv)
		if c.HasDst {
			fmt.Fprintf(b, "%s(local.set $%s %s)\n", pad, valueLocal(c.Dst), call)
		}
		return nil
	case "equals":
		if len(c.Args) != 1 {
			break
		}
		call := fmt.Sprintf("(i32.eq %s (local.get $%s))", recv, valueLocal(c.Args[0]))
		if c.HasDst {
			fmt.Fprintf(b, "%s(local.set $%s %s)\n", pad, valueLocal(c.Dst), call)
		}
		return nil
	case "birth":
		// Constructor call whose return value is discarded by the builder;
		// there is no default-field-initialization body to run here.
		return nil
	}
	if sig, ok := hostImports[c.Method]; ok {
		call := fmt.Sprintf("(call %s%s)", sig.wasmFunc, argList(c.Args))
		if c.HasDst {
			fmt.Fprintf(b, "%s(local.set $%s %s)\n", pad, valueLocal(c.Dst), call)
		} else {
			fmt.Fprintf(b, "%s%s\n", pad, call)
		}
		return nil
	}
	return &UnsupportedInstruction{Function: f.Name, Inst: c.String()}
}

func emitTypeOp(b *strings.Builder, t *mir.TypeOp, pad string) error {
	switch t.Kind {
	case mir.TypeOpCheck:
		want := typeIDFor(t.Ty)
		fmt.Fprintf(b, "%s(local.set $%s (i32.eq (i32.load (local.get $%s)) (i32.const %d)))\n", pad, valueLocal(t.Dst), valueLocal(t.Value), want)
	case mir.TypeOpCast:
		// Cast is a no-op at this representation: every Box value already
		// carries its runtime type tag in its header, checked, not changed.
		fmt.Fprintf(b, "%s(local.set $%s (local.get $%s))\n", pad, valueLocal(t.Dst), valueLocal(t.Value))
	}
	return nil
}

func typeIDFor(t mir.MirType) int {
	switch t.Kind {
	case mir.TypeInteger:
		return typeIDInteger
	case mir.TypeBool:
		return typeIDBool
	case mir.TypeString:
		return typeIDString
	default:
		return typeIDData
	}
}
