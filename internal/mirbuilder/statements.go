package mirbuilder

import (
	"github.com/nyashlang/nyashc/internal/ast"
	"github.com/nyashlang/nyashc/internal/mir"
)

// lowerStmts lowers a statement list in order, stopping early if a
// statement terminates the current block (return/break/throw): anything
// after is unreachable and left unlowered.
func (b *Builder) lowerStmts(stmts []ast.Stmt) error {
	for _, s := range stmts {
		if b.fn.block.IsTerminated() {
			return nil
		}
		if err := b.lowerStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) lowerStmt(s ast.Stmt) error {
	switch st := s.(type) {
	case *ast.Assignment:
		return b.lowerAssignment(st)
	case *ast.Print:
		val, err := b.lowerExpr(st.Value)
		if err != nil {
			return err
		}
		b.fn.block.Append(&mir.Call{Callee: "console.log", Args: []mir.ValueId{val}, Eff: mir.IoEffect(0)})
		return nil
	case *ast.If:
		return b.lowerIf(st)
	case *ast.Loop:
		return b.lowerLoop(st)
	case *ast.Return:
		if st.Value == nil {
			b.fn.block.SetTerminator(&mir.Return{HasValue: false})
			return nil
		}
		val, err := b.lowerExpr(st.Value)
		if err != nil {
			return err
		}
		b.fn.block.SetTerminator(&mir.Return{Value: val, HasValue: true})
		return nil
	case *ast.Break:
		if len(b.loopStack) == 0 {
			return &UnsupportedShape{What: "break outside loop", Line: st.Sp.Line}
		}
		target := b.loopStack[len(b.loopStack)-1].exit
		b.fn.block.SetTerminator(&mir.Jump{Target: target})
		b.fn.f.AddEdge(b.fn.block.ID, target)
		return nil
	case *ast.Throw:
		return b.lowerThrow(st)
	case *ast.TryCatch:
		return b.lowerTryCatch(st)
	case *ast.Include:
		// File inclusion is a front-end/driver concern (spec.md §1
		// explicitly scopes "CLI ... filesystem path resolution" out of
		// the core); the builder lowers an Include as a no-op and does not
		// read or lower the included file.
		return nil
	case *ast.Local:
		return b.lowerLocal(st)
	case *ast.Outbox:
		// Ownership-transfer semantics for static-function-scoped
		// variables are an interpreter/runtime concern (spec.md §1); at
		// the MIR level an Outbox declaration behaves like a Local
		// without an initializer: it introduces valid assignment targets
		// with no bound value yet.
		return nil
	case *ast.Nowait:
		_, err := b.lowerExpr(st.Call)
		return err
	case *ast.Arrow:
		return b.lowerArrow(st)
	case *ast.ExprStmt:
		_, err := b.lowerExpr(st.Value)
		return err
	default:
		return &UnsupportedShape{What: "statement", Line: s.Span().Line}
	}
}

func (b *Builder) lowerLocal(st *ast.Local) error {
	if st.Init != nil {
		val, err := b.lowerExpr(st.Init)
		if err != nil {
			return err
		}
		b.fn.vars[st.Names[0]] = val
	}
	// Multi-name form (no initializer) only reserves the names as valid
	// future assignment targets; the parser already enforces explicit
	// declaration (spec.md §4.2), so the builder need not re-check it.
	return nil
}

func (b *Builder) lowerAssignment(st *ast.Assignment) error {
	val, err := b.lowerExpr(st.Value)
	if err != nil {
		return err
	}
	switch target := st.Target.(type) {
	case *ast.Variable:
		b.fn.vars[target.Name] = val
		return nil
	case *ast.FieldAccess:
		recv, err := b.lowerExpr(target.Receiver)
		if err != nil {
			return err
		}
		b.fn.block.Append(&mir.BoxFieldStore{Box: recv, Field: target.Field, Value: val})
		return nil
	case *ast.ThisField:
		this, err := b.lookup("this", target.Sp.Line)
		if err != nil {
			return err
		}
		b.fn.block.Append(&mir.BoxFieldStore{Box: this, Field: target.Field, Value: val})
		return nil
	case *ast.MeField:
		me, err := b.lookup("me", target.Sp.Line)
		if err != nil {
			return err
		}
		b.fn.block.Append(&mir.BoxFieldStore{Box: me, Field: target.Field, Value: val})
		return nil
	default:
		return &UnsupportedShape{What: "assignment target", Line: st.Sp.Line}
	}
}

// lowerIf follows spec.md §4.4: allocate then/else/merge blocks, branch,
// lower each arm in its block, jump to merge if not already terminated,
// and emit a Phi in merge for every variable rebound by either arm so
// later uses see the merged value.
func (b *Builder) lowerIf(st *ast.If) error {
	f := b.fn.f
	condVal, err := b.lowerExpr(st.Cond)
	if err != nil {
		return err
	}

	origin := b.fn.block
	thenBB := f.NewBlock("then")
	mergeBB := f.NewBlock("merge")

	var elseBB *mir.BasicBlock
	elseTarget := mergeBB.ID
	if st.Else != nil {
		elseBB = f.NewBlock("else")
		elseTarget = elseBB.ID
	}

	origin.SetTerminator(&mir.Branch{Cond: condVal, Then: thenBB.ID, Else: elseTarget})
	f.AddEdge(origin.ID, thenBB.ID)
	f.AddEdge(origin.ID, elseTarget)

	before := snapshotVars(b.fn.vars)

	b.fn.block = thenBB
	if err := b.lowerStmts(st.Then); err != nil {
		return err
	}
	thenVars := snapshotVars(b.fn.vars)
	thenEnd := b.fn.block
	if !thenEnd.IsTerminated() {
		thenEnd.SetTerminator(&mir.Jump{Target: mergeBB.ID})
		f.AddEdge(thenEnd.ID, mergeBB.ID)
	}

	elseVars := before
	elseEndID := origin.ID
	if st.Else != nil {
		restoreVars(b.fn, before)
		b.fn.block = elseBB
		if err := b.lowerStmts(st.Else); err != nil {
			return err
		}
		elseVars = snapshotVars(b.fn.vars)
		elseEnd := b.fn.block
		elseEndID = elseEnd.ID
		if !elseEnd.IsTerminated() {
			elseEnd.SetTerminator(&mir.Jump{Target: mergeBB.ID})
			f.AddEdge(elseEnd.ID, mergeBB.ID)
		}
	}

	restoreVars(b.fn, before)
	b.fn.block = mergeBB

	changed := map[string]bool{}
	for name, v := range thenVars {
		if v != before[name] {
			changed[name] = true
		}
	}
	for name, v := range elseVars {
		if v != before[name] {
			changed[name] = true
		}
	}
	for name := range changed {
		tv, tok := thenVars[name]
		if !tok {
			tv = before[name]
		}
		ev, eok := elseVars[name]
		if !eok {
			ev = before[name]
		}
		if tv == ev {
			b.fn.vars[name] = tv
			continue
		}
		dst := f.ValueIds.Next()
		phi := &mir.Phi{Dst: dst, Inputs: []mir.PhiInput{
			{Block: thenEnd.ID, Value: tv},
			{Block: elseEndID, Value: ev},
		}}
		mergeBB.AppendPhi(phi)
		b.fn.vars[name] = dst
	}

	return nil
}

func snapshotVars(vars map[string]mir.ValueId) map[string]mir.ValueId {
	out := make(map[string]mir.ValueId, len(vars))
	for k, v := range vars {
		out[k] = v
	}
	return out
}

func restoreVars(fc *funcCtx, snap map[string]mir.ValueId) {
	fc.vars = snapshotVars(snap)
}

// lowerLoop implements the sealed/unsealed-block, deferred-phi-completion
// loop construction protocol of spec.md §4.5.
func (b *Builder) lowerLoop(s *ast.Loop) error {
	f := b.fn.f

	preheader := b.fn.block
	header := f.NewBlock("header")
	preheader.SetTerminator(&mir.Jump{Target: header.ID})
	f.AddEdge(preheader.ID, header.ID)

	header.Sealed = false
	type incompleteRec struct {
		dst    mir.ValueId
		inputs []mir.PhiInput
	}
	incomplete := map[string]*incompleteRec{}
	for name, val := range b.fn.vars {
		dst := f.ValueIds.Next()
		incomplete[name] = &incompleteRec{inputs: []mir.PhiInput{{Block: preheader.ID, Value: val}}, dst: dst}
		b.fn.vars[name] = dst
	}

	b.fn.block = header
	condVal, err := b.lowerExpr(s.Cond)
	if err != nil {
		return err
	}

	body := f.NewBlock("body")
	exit := f.NewBlock("exit")
	header.SetTerminator(&mir.Branch{Cond: condVal, Then: body.ID, Else: exit.ID})
	f.AddEdge(header.ID, body.ID)
	f.AddEdge(header.ID, exit.ID)

	b.fn.block = body
	body.Append(&mir.Safepoint{})

	b.loopStack = append(b.loopStack, loopCtx{exit: exit.ID})
	err = b.lowerStmts(s.Body)
	b.loopStack = b.loopStack[:len(b.loopStack)-1]
	if err != nil {
		return err
	}

	latch := b.fn.block
	if !latch.IsTerminated() {
		latch.SetTerminator(&mir.Jump{Target: header.ID})
		f.AddEdge(latch.ID, header.ID)
	}

	for name, rec := range incomplete {
		latchVal, ok := b.fn.vars[name]
		if !ok {
			latchVal = rec.inputs[0].Value
		}
		rec.inputs = append(rec.inputs, mir.PhiInput{Block: latch.ID, Value: latchVal})
		header.AppendPhi(&mir.Phi{Dst: rec.dst, Inputs: rec.inputs})
	}
	header.Sealed = true

	b.fn.block = exit
	return nil
}

// lowerThrow resolves the §4.3/§4.4 discrepancy spec.md §9 flags as an
// open question: the 25-instruction hierarchy subsumes Throw into the
// effect system as a Panic-flagged Call rather than a dedicated
// terminator, but §3's terminator invariant still requires every block to
// end in one of Branch/Jump/Return/TailCall. The builder satisfies both:
// it emits the panic-tagged Call, then an immediate Jump to a single
// per-function "unreachable" block reused as the target for every throw
// site, so blocks remain well-formed while still recording "no further
// instructions in this block" after a throw.
func (b *Builder) lowerThrow(st *ast.Throw) error {
	val, err := b.lowerExpr(st.Value)
	if err != nil {
		return err
	}
	b.fn.block.Append(&mir.Call{Callee: "throw", Args: []mir.ValueId{val}, Eff: mir.IoEffect(mir.FlagPanic)})

	if b.fn.unreachable == nil {
		b.fn.unreachable = b.fn.f.NewBlock("unreachable")
		b.fn.unreachable.Reachable = false
		b.fn.unreachable.SetTerminator(&mir.Return{HasValue: false})
	}
	b.fn.block.SetTerminator(&mir.Jump{Target: b.fn.unreachable.ID})
	b.fn.f.AddEdge(b.fn.block.ID, b.fn.unreachable.ID)
	return nil
}

// lowerTryCatch allocates try/catch/finally/exit blocks, lowers each
// region, and falls through to finally-or-exit on normal completion. No
// handler is recorded in the function or its metadata, and a catch
// clause's exception type is not kept: the only link from try to catch is
// a CFG edge from the try block (interpreter-level dispatch is out of the
// core's scope per spec.md §1). The result value is void (spec.md §4.4).
func (b *Builder) lowerTryCatch(st *ast.TryCatch) error {
	f := b.fn.f

	tryBB := f.NewBlock("try")
	exitBB := f.NewBlock("exit")
	finallyTarget := exitBB.ID
	var finallyBB *mir.BasicBlock
	if st.Finally != nil {
		finallyBB = f.NewBlock("finally")
		finallyTarget = finallyBB.ID
	}

	origin := b.fn.block
	origin.SetTerminator(&mir.Jump{Target: tryBB.ID})
	f.AddEdge(origin.ID, tryBB.ID)

	b.fn.block = tryBB
	if err := b.lowerStmts(st.Try); err != nil {
		return err
	}
	tryEnd := b.fn.block
	if !tryEnd.IsTerminated() {
		tryEnd.SetTerminator(&mir.Jump{Target: finallyTarget})
		f.AddEdge(tryEnd.ID, finallyTarget)
	}

	for _, c := range st.Catches {
		catchBB := f.NewBlock("catch")
		f.AddEdge(tryBB.ID, catchBB.ID) // exception-edge: handler reachable from anywhere in try
		if c.Binding != "" {
			exVal := f.ValueIds.Next()
			b.fn.vars[c.Binding] = exVal
		}
		b.fn.block = catchBB
		if err := b.lowerStmts(c.Body); err != nil {
			return err
		}
		catchEnd := b.fn.block
		if !catchEnd.IsTerminated() {
			catchEnd.SetTerminator(&mir.Jump{Target: finallyTarget})
			f.AddEdge(catchEnd.ID, finallyTarget)
		}
	}

	if finallyBB != nil {
		b.fn.block = finallyBB
		if err := b.lowerStmts(st.Finally); err != nil {
			return err
		}
		finallyEnd := b.fn.block
		if !finallyEnd.IsTerminated() {
			finallyEnd.SetTerminator(&mir.Jump{Target: exitBB.ID})
			f.AddEdge(finallyEnd.ID, exitBB.ID)
		}
	}

	b.fn.block = exitBB
	return nil
}

// lowerArrow lowers the `lhs >> rhs` pipe (spec.md §3 Arrow node): the
// left value is computed, then piped into the right-hand callee. When the
// right side is itself a call expression, the left value is prepended to
// its argument list; when it is a bare function reference, it is called
// with the left value as its sole argument.
func (b *Builder) lowerArrow(st *ast.Arrow) error {
	left, err := b.lowerExpr(st.Left)
	if err != nil {
		return err
	}
	switch rhs := st.Right.(type) {
	case *ast.FunctionCall:
		args := make([]mir.ValueId, 0, len(rhs.Args)+1)
		args = append(args, left)
		for _, a := range rhs.Args {
			v, err := b.lowerExpr(a)
			if err != nil {
				return err
			}
			args = append(args, v)
		}
		b.fn.block.Append(&mir.Call{Callee: rhs.Name, Args: args, Eff: mir.MutEffect(0)})
		return nil
	case *ast.Variable:
		b.fn.block.Append(&mir.Call{Callee: rhs.Name, Args: []mir.ValueId{left}, Eff: mir.MutEffect(0)})
		return nil
	default:
		_, err := b.lowerExpr(st.Right)
		return err
	}
}

func (b *Builder) lookup(name string, line int) (mir.ValueId, error) {
	if v, ok := b.fn.vars[name]; ok {
		return v, nil
	}
	return 0, &UndefinedVariable{Name: name, Line: line}
}
