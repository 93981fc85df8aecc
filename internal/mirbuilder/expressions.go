package mirbuilder

import (
	"github.com/nyashlang/nyashc/internal/ast"
	"github.com/nyashlang/nyashc/internal/mir"
)

func (b *Builder) lowerExpr(e ast.Expr) (mir.ValueId, error) {
	switch ex := e.(type) {
	case *ast.Literal:
		return b.lowerLiteral(ex)
	case *ast.Variable:
		return b.lookup(ex.Name, ex.Sp.Line)
	case *ast.UnaryOp:
		return b.lowerUnary(ex)
	case *ast.BinaryOp:
		return b.lowerBinary(ex)
	case *ast.MethodCall:
		return b.lowerMethodCall(ex)
	case *ast.FieldAccess:
		recv, err := b.lowerExpr(ex.Receiver)
		if err != nil {
			return 0, err
		}
		dst := b.fn.f.ValueIds.Next()
		b.fn.block.Append(&mir.BoxFieldLoad{Dst: dst, Box: recv, Field: ex.Field})
		return dst, nil
	case *ast.New:
		return b.lowerNew(ex)
	case *ast.This:
		return b.lookup("this", ex.Sp.Line)
	case *ast.Me:
		return b.lookup("me", ex.Sp.Line)
	case *ast.FromCall:
		return b.lowerFromCall(ex)
	case *ast.ThisField:
		this, err := b.lookup("this", ex.Sp.Line)
		if err != nil {
			return 0, err
		}
		dst := b.fn.f.ValueIds.Next()
		b.fn.block.Append(&mir.BoxFieldLoad{Dst: dst, Box: this, Field: ex.Field})
		return dst, nil
	case *ast.MeField:
		me, err := b.lookup("me", ex.Sp.Line)
		if err != nil {
			return 0, err
		}
		dst := b.fn.f.ValueIds.Next()
		b.fn.block.Append(&mir.BoxFieldLoad{Dst: dst, Box: me, Field: ex.Field})
		return dst, nil
	case *ast.AwaitExpression:
		// Future unwinding belongs to the runtime's scheduler (spec.md
		// §1 scopes the interpreter's execution model out of the core);
		// at the MIR level Await is a copy-through of its operand, mirror
		// of the WASM backend's own copy-through lowering (spec.md §4.8).
		return b.lowerExpr(ex.Operand)
	case *ast.FunctionCall:
		return b.lowerFunctionCall(ex)
	case *ast.Arrow:
		return b.lowerArrowExpr(ex)
	default:
		return 0, &UnsupportedShape{What: "expression", Line: e.Span().Line}
	}
}

func (b *Builder) lowerLiteral(l *ast.Literal) (mir.ValueId, error) {
	dst := b.fn.f.ValueIds.Next()
	var cv mir.ConstValue
	switch l.Kind {
	case ast.LitInteger:
		cv = mir.ConstValue{Kind: mir.ConstInteger, Int: l.Int}
	case ast.LitFloat:
		cv = mir.ConstValue{Kind: mir.ConstFloat, Float: l.Float}
	case ast.LitString:
		cv = mir.ConstValue{Kind: mir.ConstString, Str: l.Str}
	case ast.LitBool:
		cv = mir.ConstValue{Kind: mir.ConstBool, Bool: l.Bool}
	case ast.LitNull:
		cv = mir.ConstValue{Kind: mir.ConstNull}
	default:
		cv = mir.ConstValue{Kind: mir.ConstVoid}
	}
	b.fn.block.Append(&mir.Const{Dst: dst, Value: cv})
	return dst, nil
}

func (b *Builder) lowerUnary(u *ast.UnaryOp) (mir.ValueId, error) {
	operand, err := b.lowerExpr(u.Operand)
	if err != nil {
		return 0, err
	}
	f := b.fn.f
	switch u.Op {
	case ast.OpNeg:
		zero := f.ValueIds.Next()
		b.fn.block.Append(&mir.Const{Dst: zero, Value: mir.ConstValue{Kind: mir.ConstInteger}})
		dst := f.ValueIds.Next()
		b.fn.block.Append(&mir.BinOp{Dst: dst, Op: mir.BinSub, LHS: zero, RHS: operand})
		return dst, nil
	case ast.OpNot:
		falseV := f.ValueIds.Next()
		b.fn.block.Append(&mir.Const{Dst: falseV, Value: mir.ConstValue{Kind: mir.ConstBool, Bool: false}})
		dst := f.ValueIds.Next()
		b.fn.block.Append(&mir.Compare{Dst: dst, Pred: mir.CmpEq, LHS: operand, RHS: falseV})
		return dst, nil
	default:
		return 0, &UnsupportedShape{What: "unary operator", Line: u.Sp.Line}
	}
}

var binOpMap = map[ast.BinaryOperator]mir.BinOpKind{
	ast.OpAdd: mir.BinAdd,
	ast.OpSub: mir.BinSub,
	ast.OpMul: mir.BinMul,
	ast.OpDiv: mir.BinDiv,
	ast.OpMod: mir.BinMod,
}

var cmpMap = map[ast.BinaryOperator]mir.ComparePred{
	ast.OpEq: mir.CmpEq,
	ast.OpNe: mir.CmpNe,
	ast.OpLt: mir.CmpLt,
	ast.OpGt: mir.CmpGt,
	ast.OpLe: mir.CmpLe,
	ast.OpGe: mir.CmpGe,
}

// lowerBinary lowers And/Or through branch+phi so side-effecting operands
// on the right are only evaluated when short-circuit semantics demand it
// (spec.md §4.4); every other operator is a single pure instruction.
func (b *Builder) lowerBinary(bo *ast.BinaryOp) (mir.ValueId, error) {
	if bo.Op == ast.OpAnd || bo.Op == ast.OpOr {
		return b.lowerShortCircuit(bo)
	}

	left, err := b.lowerExpr(bo.Left)
	if err != nil {
		return 0, err
	}
	right, err := b.lowerExpr(bo.Right)
	if err != nil {
		return 0, err
	}
	dst := b.fn.f.ValueIds.Next()
	if op, ok := binOpMap[bo.Op]; ok {
		b.fn.block.Append(&mir.BinOp{Dst: dst, Op: op, LHS: left, RHS: right})
		return dst, nil
	}
	if pred, ok := cmpMap[bo.Op]; ok {
		b.fn.block.Append(&mir.Compare{Dst: dst, Pred: pred, LHS: left, RHS: right})
		return dst, nil
	}
	return 0, &UnsupportedShape{What: "binary operator", Line: bo.Sp.Line}
}

func (b *Builder) lowerShortCircuit(bo *ast.BinaryOp) (mir.ValueId, error) {
	f := b.fn.f
	left, err := b.lowerExpr(bo.Left)
	if err != nil {
		return 0, err
	}

	origin := b.fn.block
	rhsBB := f.NewBlock("rhs")
	mergeBB := f.NewBlock("merge")

	if bo.Op == ast.OpAnd {
		origin.SetTerminator(&mir.Branch{Cond: left, Then: rhsBB.ID, Else: mergeBB.ID})
	} else {
		origin.SetTerminator(&mir.Branch{Cond: left, Then: mergeBB.ID, Else: rhsBB.ID})
	}
	f.AddEdge(origin.ID, rhsBB.ID)
	f.AddEdge(origin.ID, mergeBB.ID)

	b.fn.block = rhsBB
	right, err := b.lowerExpr(bo.Right)
	if err != nil {
		return 0, err
	}
	rhsEnd := b.fn.block
	rhsEnd.SetTerminator(&mir.Jump{Target: mergeBB.ID})
	f.AddEdge(rhsEnd.ID, mergeBB.ID)

	b.fn.block = mergeBB
	dst := f.ValueIds.Next()
	mergeBB.AppendPhi(&mir.Phi{Dst: dst, Inputs: []mir.PhiInput{
		{Block: origin.ID, Value: left},
		{Block: rhsEnd.ID, Value: right},
	}})
	return dst, nil
}

// lowerMethodCall implements spec.md §4.4's devirtualization rule: when
// the receiver's origin is a user-defined Box and a matching direct
// function is already registered, emit a Call; otherwise a dynamically
// dispatched BoxCall. A call such as `console.log(x)` on an unbound
// receiver name whose "receiver.method" is in externNames becomes an Io
// Call to that extern name, and the expression's value is void.
func (b *Builder) lowerMethodCall(mc *ast.MethodCall) (mir.ValueId, error) {
	if rv, ok := mc.Receiver.(*ast.Variable); ok {
		name := rv.Name + "." + mc.Method
		if _, bound := b.fn.vars[rv.Name]; !bound && externNames[name] {
			args, err := b.lowerArgs(mc.Args)
			if err != nil {
				return 0, err
			}
			b.fn.block.Append(&mir.Call{Callee: name, Args: args, Eff: mir.IoEffect(0)})
			dst := b.fn.f.ValueIds.Next()
			b.fn.block.Append(&mir.Const{Dst: dst, Value: mir.ConstValue{Kind: mir.ConstVoid}})
			return dst, nil
		}
	}
	recv, err := b.lowerExpr(mc.Receiver)
	if err != nil {
		return 0, err
	}
	args, err := b.lowerArgs(mc.Args)
	if err != nil {
		return 0, err
	}

	if class, ok := b.fn.origin[recv]; ok {
		if _, userDefined := b.userBoxes[class]; userDefined {
			key := methodKey(class, mc.Method, len(mc.Args))
			if _, exists := b.module.Functions[key]; exists {
				dst := b.fn.f.ValueIds.Next()
				b.fn.block.Append(&mir.Call{Dst: dst, HasDst: true, Callee: key, Args: append([]mir.ValueId{recv}, args...), Eff: mir.MutEffect(0)})
				return dst, nil
			}
		}
	}

	dst := b.fn.f.ValueIds.Next()
	eff := mir.MutEffect(0)
	if externNames[mc.Method] {
		eff = mir.IoEffect(0)
	}
	b.fn.block.Append(&mir.BoxCall{Dst: dst, HasDst: true, Receiver: recv, Method: mc.Method, Args: args, Eff: eff})
	return dst, nil
}

func (b *Builder) lowerArgs(exprs []ast.Expr) ([]mir.ValueId, error) {
	args := make([]mir.ValueId, 0, len(exprs))
	for _, a := range exprs {
		v, err := b.lowerExpr(a)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return args, nil
}

// lowerNew implements `new C(args)` (spec.md §4.4): a NewBox, followed by
// an immediate BoxCall to birth with the same args (return discarded),
// recording the produced value's origin as C for later devirtualization.
func (b *Builder) lowerNew(n *ast.New) (mir.ValueId, error) {
	args, err := b.lowerArgs(n.Args)
	if err != nil {
		return 0, err
	}
	dst := b.fn.f.ValueIds.Next()
	b.fn.block.Append(&mir.NewBox{Dst: dst, Class: n.ClassName, Args: args})
	b.fn.origin[dst] = n.ClassName

	b.fn.block.Append(&mir.BoxCall{Receiver: dst, Method: "birth", Args: args, Eff: mir.MutEffect(0)})
	return dst, nil
}

// lowerFromCall implements `from Parent.method(args)` (spec.md §4.4): a
// BoxCall whose receiver is a synthetic Const naming the parent, with
// resolution deferred to the call site (interpreter/runtime concern,
// out of the core per spec.md §1).
func (b *Builder) lowerFromCall(fc *ast.FromCall) (mir.ValueId, error) {
	args, err := b.lowerArgs(fc.Args)
	if err != nil {
		return 0, err
	}
	parentRef := b.fn.f.ValueIds.Next()
	b.fn.block.Append(&mir.Const{Dst: parentRef, Value: mir.ConstValue{Kind: mir.ConstString, Str: fc.Parent}})

	dst := b.fn.f.ValueIds.Next()
	b.fn.block.Append(&mir.BoxCall{Dst: dst, HasDst: true, Receiver: parentRef, Method: fc.Method, Args: args, Eff: mir.MutEffect(0)})
	return dst, nil
}

func (b *Builder) lowerFunctionCall(fc *ast.FunctionCall) (mir.ValueId, error) {
	args, err := b.lowerArgs(fc.Args)
	if err != nil {
		return 0, err
	}
	dst := b.fn.f.ValueIds.Next()
	eff := mir.MutEffect(0)
	if externNames[fc.Name] {
		eff = mir.IoEffect(0)
	}
	b.fn.block.Append(&mir.Call{Dst: dst, HasDst: true, Callee: fc.Name, Args: args, Eff: eff})
	return dst, nil
}

func (b *Builder) lowerArrowExpr(a *ast.Arrow) (mir.ValueId, error) {
	left, err := b.lowerExpr(a.Left)
	if err != nil {
		return 0, err
	}
	switch rhs := a.Right.(type) {
	case *ast.FunctionCall:
		args := make([]mir.ValueId, 0, len(rhs.Args)+1)
		args = append(args, left)
		more, err := b.lowerArgs(rhs.Args)
		if err != nil {
			return 0, err
		}
		args = append(args, more...)
		dst := b.fn.f.ValueIds.Next()
		b.fn.block.Append(&mir.Call{Dst: dst, HasDst: true, Callee: rhs.Name, Args: args, Eff: mir.MutEffect(0)})
		return dst, nil
	case *ast.Variable:
		dst := b.fn.f.ValueIds.Next()
		b.fn.block.Append(&mir.Call{Dst: dst, HasDst: true, Callee: rhs.Name, Args: []mir.ValueId{left}, Eff: mir.MutEffect(0)})
		return dst, nil
	default:
		return b.lowerExpr(a.Right)
	}
}
