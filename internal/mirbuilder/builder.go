// Package mirbuilder lowers an ast.Program into an SSA mir.Module
// (spec.md §4.4), including the sealed/unsealed-block loop construction
// protocol of spec.md §4.5.
package mirbuilder

import (
	"github.com/nyashlang/nyashc/internal/ast"
	"github.com/nyashlang/nyashc/internal/mir"
)

// externNames are the host intrinsics the builder recognizes and lowers
// with an Io effect (spec.md §4.4, §4.8).
var externNames = map[string]bool{
	"console.log":      true,
	"canvas.fillRect":  true,
	"canvas.fillText":  true,
}

// loopCtx tracks the innermost loop's exit block for Break lowering.
type loopCtx struct{ exit mir.BasicBlockId }

// funcCtx is the per-function lowering state: the function under
// construction, the block currently being appended to, and the
// variable_map of spec.md §4.4.
type funcCtx struct {
	f      *mir.Function
	block  *mir.BasicBlock
	vars   map[string]mir.ValueId
	origin map[mir.ValueId]string // value -> NewBox class name, for devirtualization
	// unreachable is a single dead-marked block reused as the Jump target
	// after a panic-tagged Call, so every block still ends in one of the
	// four canonical terminators (spec.md §3) even though Throw itself is
	// not one of them (see Builder.lowerThrow).
	unreachable *mir.BasicBlock
}

// Builder lowers one ast.Program into one mir.Module.
type Builder struct {
	module    *mir.Module
	userBoxes map[string]*ast.BoxDecl
	fn        *funcCtx
	loopStack []loopCtx
}

// New creates a Builder targeting a fresh module named name.
func New(name string) *Builder {
	return &Builder{module: mir.NewModule(name), userBoxes: make(map[string]*ast.BoxDecl)}
}

// Build lowers prog into a complete mir.Module (spec.md §4.4 "Global
// shape"): user Box constructors/methods become standalone functions, and
// a `main` function carries the program's top-level statements, entry
// block beginning with a Safepoint.
func Build(prog *ast.Program) (*mir.Module, error) {
	b := New("main")

	for _, d := range prog.Decls {
		if box, ok := d.(*ast.BoxDecl); ok && !box.IsInterface {
			b.userBoxes[box.Name] = box
		}
	}

	// Pass 1: register every constructor/method as an (initially empty)
	// function so method-call devirtualization can find siblings
	// regardless of declaration order (spec.md §4.4).
	for _, box := range b.userBoxes {
		for key, m := range box.Constructors {
			b.registerBoxFunction(box, box.Name+"."+key, m)
		}
		for _, m := range box.Methods {
			b.registerBoxFunction(box, methodKey(box.Name, m.Name, len(m.Params)), m)
		}
	}

	for _, d := range prog.Decls {
		if fd, ok := d.(*ast.FunctionDeclaration); ok {
			b.registerFreeFunction(fd)
		}
	}

	// Pass 2: lower bodies now that every sibling signature is visible.
	for _, box := range b.userBoxes {
		for key, m := range box.Constructors {
			if err := b.lowerBoxMethodBody(box, box.Name+"."+key, m); err != nil {
				return nil, err
			}
		}
		for _, m := range box.Methods {
			if err := b.lowerBoxMethodBody(box, methodKey(box.Name, m.Name, len(m.Params)), m); err != nil {
				return nil, err
			}
		}
	}

	for _, d := range prog.Decls {
		if fd, ok := d.(*ast.FunctionDeclaration); ok {
			if err := b.lowerFreeFunctionBody(fd); err != nil {
				return nil, err
			}
		}
	}

	if err := b.buildMain(prog); err != nil {
		return nil, err
	}

	return b.module, nil
}

func methodKey(box, method string, arity int) string {
	return box + "." + method + "/" + itoa(arity)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := [20]byte{}
	i := len(digits)
	for n > 0 {
		i--
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	return string(digits[i:])
}

func (b *Builder) registerBoxFunction(box *ast.BoxDecl, key string, m *ast.Method) {
	f := mir.NewFunction(key)
	f.Metadata["box"] = box.Name
	f.Metadata["method"] = m.Name
	f.Signature.ReturnType = returnTypeOf(m.Body)
	b.module.AddFunction(f)
}

func (b *Builder) registerFreeFunction(fd *ast.FunctionDeclaration) {
	f := mir.NewFunction(fd.Name)
	f.Signature.ReturnType = returnTypeOf(fd.Body)
	b.module.AddFunction(f)
}

// returnTypeOf implements spec.md §4.4: Unknown if the body contains any
// `return <expr>` (searched recursively, not only at the statement list's
// top level — a generous reading adopted so a return nested in an if/loop
// still yields a typed function; see DESIGN.md), otherwise Void.
func returnTypeOf(body []ast.Stmt) mir.MirType {
	if containsValueReturn(body) {
		return mir.Unknown
	}
	return mir.Void
}

func containsValueReturn(stmts []ast.Stmt) bool {
	for _, s := range stmts {
		switch st := s.(type) {
		case *ast.Return:
			if st.Value != nil {
				return true
			}
		case *ast.If:
			if containsValueReturn(st.Then) || containsValueReturn(st.Else) {
				return true
			}
		case *ast.Loop:
			if containsValueReturn(st.Body) {
				return true
			}
		case *ast.TryCatch:
			if containsValueReturn(st.Try) || containsValueReturn(st.Finally) {
				return true
			}
			for _, c := range st.Catches {
				if containsValueReturn(c.Body) {
					return true
				}
			}
		}
	}
	return false
}

// lowerBoxMethodBody fills in the function stub registered in pass 1.
// `me` is the function's first parameter, typed Box(box.Name); user
// parameters follow. Each function gets its own mir.ValueIdGen starting
// at 0, so `%0` names `me` in every method without any explicit
// save/reset/restore dance (spec.md §4.4 describes the save/reset/restore
// as the mechanism; a fresh per-function generator achieves the identical
// observable result more directly).
func (b *Builder) lowerBoxMethodBody(box *ast.BoxDecl, key string, m *ast.Method) error {
	f := b.module.Functions[key]

	me := f.ValueIds.Next()
	f.Params = append(f.Params, me)
	f.Locals[me] = mir.BoxType(box.Name)

	vars := map[string]mir.ValueId{"me": me}
	for _, p := range m.Params {
		id := f.ValueIds.Next()
		f.Params = append(f.Params, id)
		f.Locals[id] = mir.Unknown
		vars[p.Name] = id
	}

	entry := f.NewBlock("entry")
	f.EntryBlock = entry.ID
	entry.Append(&mir.Safepoint{})

	fc := &funcCtx{f: f, block: entry, vars: vars, origin: make(map[mir.ValueId]string)}
	prev := b.fn
	b.fn = fc
	defer func() { b.fn = prev }()

	if err := b.lowerStmts(m.Body); err != nil {
		return err
	}
	if !b.fn.block.IsTerminated() {
		b.fn.block.SetTerminator(&mir.Return{HasValue: false})
	}
	return nil
}

func (b *Builder) lowerFreeFunctionBody(fd *ast.FunctionDeclaration) error {
	f := b.module.Functions[fd.Name]

	vars := map[string]mir.ValueId{}
	for _, p := range fd.Params {
		id := f.ValueIds.Next()
		f.Params = append(f.Params, id)
		f.Locals[id] = mir.Unknown
		vars[p.Name] = id
	}

	entry := f.NewBlock("entry")
	f.EntryBlock = entry.ID
	entry.Append(&mir.Safepoint{})

	fc := &funcCtx{f: f, block: entry, vars: vars, origin: make(map[mir.ValueId]string)}
	prev := b.fn
	b.fn = fc
	defer func() { b.fn = prev }()

	if err := b.lowerStmts(fd.Body); err != nil {
		return err
	}
	if !b.fn.block.IsTerminated() {
		b.fn.block.SetTerminator(&mir.Return{HasValue: false})
	}
	return nil
}

// buildMain lowers the program's top-level statements into `main`,
// skipping declarations already handled above (spec.md §4.4).
func (b *Builder) buildMain(prog *ast.Program) error {
	f := mir.NewFunction("main")
	f.Signature.ReturnType = mir.Void
	entry := f.NewBlock("entry")
	f.EntryBlock = entry.ID
	entry.Append(&mir.Safepoint{})

	fc := &funcCtx{f: f, block: entry, vars: make(map[string]mir.ValueId), origin: make(map[mir.ValueId]string)}
	b.fn = fc

	for _, d := range prog.Decls {
		if gv, ok := d.(*ast.GlobalVar); ok {
			if gv.Init != nil {
				val, err := b.lowerExpr(gv.Init)
				if err != nil {
					return err
				}
				b.fn.vars[gv.Name] = val
			}
		}
	}

	if err := b.lowerStmts(prog.Stmts); err != nil {
		return err
	}
	if !b.fn.block.IsTerminated() {
		b.fn.block.SetTerminator(&mir.Return{HasValue: false})
	}

	b.module.AddFunction(f)
	b.fn = nil
	return nil
}
