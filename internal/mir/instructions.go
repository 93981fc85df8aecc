package mir

import (
	"fmt"
	"strings"
)

// Instruction is implemented by every MIR instruction. dst_value and
// used_values are the two queries the spec requires every instruction to
// expose (spec.md §4.3), used by DCE, CSE, and the WASM backend's local
// allocator.
type Instruction interface {
	fmt.Stringer
	// DstValue returns the value this instruction defines, or false if it
	// defines none (e.g. Branch, Jump, most Io instructions).
	DstValue() (ValueId, bool)
	// UsedValues returns every ValueId this instruction reads.
	UsedValues() []ValueId
	Effect() Effect
	isInstruction()
}

func noDst() (ValueId, bool) { return 0, false }

// ---- Tier 0: Universal ----

// Const materializes a literal (spec.md §4.3).
type Const struct {
	Dst   ValueId
	Value ConstValue
}

func (i *Const) DstValue() (ValueId, bool)  { return i.Dst, true }
func (i *Const) UsedValues() []ValueId      { return nil }
func (i *Const) Effect() Effect             { return PureEffect(0) }
func (i *Const) String() string             { return fmt.Sprintf("%s = const %s", i.Dst, i.Value) }
func (*Const) isInstruction()               {}

// BinOpKind enumerates pure binary arithmetic/logical operators.
type BinOpKind int

const (
	BinAdd BinOpKind = iota
	BinSub
	BinMul
	BinDiv
	BinMod
	BinAnd
	BinOr
)

func (k BinOpKind) String() string {
	return [...]string{"add", "sub", "mul", "div", "mod", "and", "or"}[k]
}

// BinOp is a pure binary arithmetic/logical operation (spec.md §4.3).
type BinOp struct {
	Dst      ValueId
	Op       BinOpKind
	LHS, RHS ValueId
}

func (i *BinOp) DstValue() (ValueId, bool) { return i.Dst, true }
func (i *BinOp) UsedValues() []ValueId     { return []ValueId{i.LHS, i.RHS} }
func (i *BinOp) Effect() Effect            { return PureEffect(0) }
func (i *BinOp) String() string {
	return fmt.Sprintf("%s = %s %s, %s", i.Dst, i.Op, i.LHS, i.RHS)
}
func (*BinOp) isInstruction() {}

// ComparePred enumerates comparison predicates.
type ComparePred int

const (
	CmpEq ComparePred = iota
	CmpNe
	CmpLt
	CmpGt
	CmpLe
	CmpGe
)

func (p ComparePred) String() string {
	return [...]string{"Eq", "Ne", "Lt", "Gt", "Le", "Ge"}[p]
}

// Compare is a pure comparison producing a Bool (spec.md §4.3).
type Compare struct {
	Dst      ValueId
	Pred     ComparePred
	LHS, RHS ValueId
}

func (i *Compare) DstValue() (ValueId, bool) { return i.Dst, true }
func (i *Compare) UsedValues() []ValueId     { return []ValueId{i.LHS, i.RHS} }
func (i *Compare) Effect() Effect            { return PureEffect(0) }
func (i *Compare) String() string {
	return fmt.Sprintf("%s = icmp %s %s, %s", i.Dst, i.Pred, i.LHS, i.RHS)
}
func (*Compare) isInstruction() {}

// Branch is a conditional terminator (spec.md §4.3).
type Branch struct {
	Cond        ValueId
	Then, Else  BasicBlockId
}

func (i *Branch) DstValue() (ValueId, bool) { return noDst() }
func (i *Branch) UsedValues() []ValueId     { return []ValueId{i.Cond} }
func (i *Branch) Effect() Effect            { return ControlEffect(0) }
func (i *Branch) String() string {
	return fmt.Sprintf("br %s, label %s, label %s", i.Cond, i.Then, i.Else)
}
func (*Branch) isInstruction() {}

// Jump is an unconditional terminator.
type Jump struct{ Target BasicBlockId }

func (i *Jump) DstValue() (ValueId, bool) { return noDst() }
func (i *Jump) UsedValues() []ValueId     { return nil }
func (i *Jump) Effect() Effect            { return ControlEffect(0) }
func (i *Jump) String() string            { return fmt.Sprintf("jmp label %s", i.Target) }
func (*Jump) isInstruction()              {}

// PhiInput is one (predecessor, value) pair of a Phi.
type PhiInput struct {
	Block BasicBlockId
	Value ValueId
}

// Phi is an SSA merge function; it must appear only as a prefix of a
// block's instruction list (spec.md §3, §4.3).
type Phi struct {
	Dst    ValueId
	Inputs []PhiInput
}

func (i *Phi) DstValue() (ValueId, bool) { return i.Dst, true }
func (i *Phi) UsedValues() []ValueId {
	vs := make([]ValueId, len(i.Inputs))
	for idx, in := range i.Inputs {
		vs[idx] = in.Value
	}
	return vs
}
func (i *Phi) Effect() Effect { return PureEffect(0) }
func (i *Phi) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s = phi ", i.Dst)
	for idx, in := range i.Inputs {
		if idx > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "[%s, %s]", in.Value, in.Block)
	}
	return b.String()
}
func (*Phi) isInstruction() {}

// Call is a direct or extern function call; its effect is
// context-dependent (spec.md §4.3): Io for extern intrinsics, Pure/Mut
// otherwise depending on the callee, and it may carry FlagPanic when
// lowered from a `throw` site.
type Call struct {
	Dst      ValueId
	HasDst   bool
	Callee   string
	Args     []ValueId
	Eff      Effect
}

func (i *Call) DstValue() (ValueId, bool) { return i.Dst, i.HasDst }
func (i *Call) UsedValues() []ValueId     { return i.Args }
func (i *Call) Effect() Effect            { return i.Eff }
func (i *Call) String() string {
	prefix := ""
	if i.HasDst {
		prefix = fmt.Sprintf("%s = ", i.Dst)
	}
	return fmt.Sprintf("%scall @%s(%s)", prefix, i.Callee, joinValueIds(i.Args))
}
func (*Call) isInstruction() {}

// Return is the normal-completion terminator; HasValue is false for a
// bare `return`.
type Return struct {
	Value    ValueId
	HasValue bool
}

func (i *Return) DstValue() (ValueId, bool) { return noDst() }
func (i *Return) UsedValues() []ValueId {
	if i.HasValue {
		return []ValueId{i.Value}
	}
	return nil
}
func (i *Return) Effect() Effect { return ControlEffect(0) }
func (i *Return) String() string {
	if i.HasValue {
		return fmt.Sprintf("ret %s", i.Value)
	}
	return "ret void"
}
func (*Return) isInstruction() {}

// ---- Tier 1: Language semantics ----

// NewBox allocates a fresh Box instance of the named class (spec.md §4.3).
type NewBox struct {
	Dst   ValueId
	Class string
	Args  []ValueId
}

func (i *NewBox) DstValue() (ValueId, bool) { return i.Dst, true }
func (i *NewBox) UsedValues() []ValueId     { return i.Args }
func (i *NewBox) Effect() Effect            { return MutEffect(FlagAlloc) }
func (i *NewBox) String() string {
	return fmt.Sprintf("%s = new %s(%s)", i.Dst, i.Class, joinValueIds(i.Args))
}
func (*NewBox) isInstruction() {}

// BoxFieldLoad reads a field off a Box reference.
type BoxFieldLoad struct {
	Dst   ValueId
	Box   ValueId
	Field string
}

func (i *BoxFieldLoad) DstValue() (ValueId, bool) { return i.Dst, true }
func (i *BoxFieldLoad) UsedValues() []ValueId     { return []ValueId{i.Box} }
func (i *BoxFieldLoad) Effect() Effect            { return PureEffect(FlagReadHeap) }
func (i *BoxFieldLoad) String() string {
	return fmt.Sprintf("%s = load %s.%s", i.Dst, i.Box, i.Field)
}
func (*BoxFieldLoad) isInstruction() {}

// BoxFieldStore writes a field on a Box reference.
type BoxFieldStore struct {
	Box   ValueId
	Field string
	Value ValueId
}

func (i *BoxFieldStore) DstValue() (ValueId, bool) { return noDst() }
func (i *BoxFieldStore) UsedValues() []ValueId     { return []ValueId{i.Box, i.Value} }
func (i *BoxFieldStore) Effect() Effect            { return MutEffect(FlagWriteHeap) }
func (i *BoxFieldStore) String() string {
	return fmt.Sprintf("store %s.%s = %s", i.Box, i.Field, i.Value)
}
func (*BoxFieldStore) isInstruction() {}

// BoxCall is a dynamically dispatched method call on a Box value
// (spec.md §4.3, §4.4); its effect is context-dependent, assigned by the
// builder from the callee's declared effect or Io for unknown externs.
type BoxCall struct {
	Dst      ValueId
	HasDst   bool
	Receiver ValueId
	Method   string
	Args     []ValueId
	Eff      Effect
}

func (i *BoxCall) DstValue() (ValueId, bool) { return i.Dst, i.HasDst }
func (i *BoxCall) UsedValues() []ValueId     { return append([]ValueId{i.Receiver}, i.Args...) }
func (i *BoxCall) Effect() Effect            { return i.Eff }
func (i *BoxCall) String() string {
	prefix := ""
	if i.HasDst {
		prefix = fmt.Sprintf("%s = ", i.Dst)
	}
	return fmt.Sprintf("%s%s.%s(%s)", prefix, i.Receiver, i.Method, joinValueIds(i.Args))
}
func (*BoxCall) isInstruction() {}

// Safepoint is a placeholder for GC/interrupt/finalization scheduling,
// emitted at function entry and loop body entry (spec.md §4.4, §4.5,
// GLOSSARY).
type Safepoint struct{}

func (i *Safepoint) DstValue() (ValueId, bool) { return noDst() }
func (i *Safepoint) UsedValues() []ValueId     { return nil }
func (i *Safepoint) Effect() Effect            { return IoEffect(0) }
func (i *Safepoint) String() string            { return "safepoint" }
func (*Safepoint) isInstruction()              {}

// RefGet reads the current target of a reference slot.
type RefGet struct {
	Dst ValueId
	Ref ValueId
}

func (i *RefGet) DstValue() (ValueId, bool) { return i.Dst, true }
func (i *RefGet) UsedValues() []ValueId     { return []ValueId{i.Ref} }
func (i *RefGet) Effect() Effect            { return PureEffect(FlagReadHeap) }
func (i *RefGet) String() string            { return fmt.Sprintf("%s = refget %s", i.Dst, i.Ref) }
func (*RefGet) isInstruction()              {}

// RefSet rebinds a reference slot's strong target; legal only when the
// slot's prior target has been Released (spec.md §3, §4.6).
type RefSet struct {
	Ref ValueId
	New ValueId
}

func (i *RefSet) DstValue() (ValueId, bool) { return noDst() }
func (i *RefSet) UsedValues() []ValueId     { return []ValueId{i.Ref, i.New} }
func (i *RefSet) Effect() Effect            { return MutEffect(FlagWriteHeap) }
func (i *RefSet) String() string            { return fmt.Sprintf("refset %s = %s", i.Ref, i.New) }
func (*RefSet) isInstruction()              {}

// WeakNew creates a non-owning weak reference to a target (spec.md §3).
type WeakNew struct {
	Dst    ValueId
	Target ValueId
}

func (i *WeakNew) DstValue() (ValueId, bool) { return i.Dst, true }
func (i *WeakNew) UsedValues() []ValueId     { return []ValueId{i.Target} }
func (i *WeakNew) Effect() Effect            { return PureEffect(0) }
func (i *WeakNew) String() string            { return fmt.Sprintf("%s = weaknew %s", i.Dst, i.Target) }
func (*WeakNew) isInstruction()              {}

// WeakLoad dereferences a weak reference; yields null if the target is
// dead (spec.md §3, §4.6).
type WeakLoad struct {
	Dst  ValueId
	Weak ValueId
}

func (i *WeakLoad) DstValue() (ValueId, bool) { return i.Dst, true }
func (i *WeakLoad) UsedValues() []ValueId     { return []ValueId{i.Weak} }
func (i *WeakLoad) Effect() Effect            { return PureEffect(FlagReadHeap) }
func (i *WeakLoad) String() string            { return fmt.Sprintf("%s = weakload %s", i.Dst, i.Weak) }
func (*WeakLoad) isInstruction()              {}

// WeakCheck reports liveness of a weak reference's target; yields false
// if the target is dead.
type WeakCheck struct {
	Dst  ValueId
	Weak ValueId
}

func (i *WeakCheck) DstValue() (ValueId, bool) { return i.Dst, true }
func (i *WeakCheck) UsedValues() []ValueId     { return []ValueId{i.Weak} }
func (i *WeakCheck) Effect() Effect            { return PureEffect(FlagReadHeap) }
func (i *WeakCheck) String() string            { return fmt.Sprintf("%s = weakcheck %s", i.Dst, i.Weak) }
func (*WeakCheck) isInstruction()              {}

// Send transmits a value on a named bus; ordered with other Sends/Recvs
// on the same bus, unordered across independent buses (spec.md §5).
type Send struct {
	Bus   string
	Value ValueId
}

func (i *Send) DstValue() (ValueId, bool) { return noDst() }
func (i *Send) UsedValues() []ValueId     { return []ValueId{i.Value} }
func (i *Send) Effect() Effect            { return IoEffect(0) }
func (i *Send) String() string            { return fmt.Sprintf("send %s, %s", i.Bus, i.Value) }
func (*Send) isInstruction()              {}

// Recv receives a value from a named bus.
type Recv struct {
	Dst ValueId
	Bus string
}

func (i *Recv) DstValue() (ValueId, bool) { return i.Dst, true }
func (i *Recv) UsedValues() []ValueId     { return nil }
func (i *Recv) Effect() Effect            { return IoEffect(0) }
func (i *Recv) String() string            { return fmt.Sprintf("%s = recv %s", i.Dst, i.Bus) }
func (*Recv) isInstruction()              {}

// ---- Tier 2: Implementation assistance ----

// TailCall is a terminator that calls a function and returns its result
// directly, without control returning to this function first.
type TailCall struct {
	Callee string
	Args   []ValueId
}

func (i *TailCall) DstValue() (ValueId, bool) { return noDst() }
func (i *TailCall) UsedValues() []ValueId     { return i.Args }
func (i *TailCall) Effect() Effect            { return ControlEffect(0) }
func (i *TailCall) String() string {
	return fmt.Sprintf("tailcall @%s(%s)", i.Callee, joinValueIds(i.Args))
}
func (*TailCall) isInstruction() {}

// Adopt sets a strong child->parent edge (spec.md §3, §4.6).
type Adopt struct {
	Parent ValueId
	Child  ValueId
}

func (i *Adopt) DstValue() (ValueId, bool) { return noDst() }
func (i *Adopt) UsedValues() []ValueId     { return []ValueId{i.Parent, i.Child} }
func (i *Adopt) Effect() Effect            { return MutEffect(FlagWriteHeap) }
func (i *Adopt) String() string            { return fmt.Sprintf("adopt %s, %s", i.Parent, i.Child) }
func (*Adopt) isInstruction()              {}

// Release relinquishes strong ownership of a reference (spec.md §3, §4.6).
type Release struct{ Ref ValueId }

func (i *Release) DstValue() (ValueId, bool) { return noDst() }
func (i *Release) UsedValues() []ValueId     { return []ValueId{i.Ref} }
func (i *Release) Effect() Effect            { return MutEffect(FlagWriteHeap) }
func (i *Release) String() string            { return fmt.Sprintf("release %s", i.Ref) }
func (*Release) isInstruction()              {}

// MemCopy copies raw bytes between two Box-relative addresses; used by
// codegen-assist lowerings (e.g. struct clone) rather than surface syntax.
type MemCopy struct {
	Dst, Src ValueId
	Len      ValueId
}

func (i *MemCopy) DstValue() (ValueId, bool) { return noDst() }
func (i *MemCopy) UsedValues() []ValueId     { return []ValueId{i.Dst, i.Src, i.Len} }
func (i *MemCopy) Effect() Effect            { return MutEffect(FlagReadHeap | FlagWriteHeap) }
func (i *MemCopy) String() string {
	return fmt.Sprintf("memcopy %s, %s, %s", i.Dst, i.Src, i.Len)
}
func (*MemCopy) isInstruction() {}

// AtomicFence is a barrier across any I/O or Mut effect at Actor/Port
// boundaries (spec.md §5).
type AtomicFence struct{}

func (i *AtomicFence) DstValue() (ValueId, bool) { return noDst() }
func (i *AtomicFence) UsedValues() []ValueId     { return nil }
func (i *AtomicFence) Effect() Effect            { return IoEffect(FlagBarrier) }
func (i *AtomicFence) String() string            { return "atomicfence" }
func (*AtomicFence) isInstruction()              {}

// TypeOp is the optimizer-introduced rewrite of `x.is(y)`/`x.as(y)`
// (spec.md §4.7 pass 5); not part of the surface 25-instruction tier list
// but emitted only by the TypeOp-lowering pass, so it is defined here
// alongside the instructions it specializes.
type TypeOp struct {
	Dst   ValueId
	Kind  TypeOpKind
	Value ValueId
	Ty    MirType
}

type TypeOpKind int

const (
	TypeOpCheck TypeOpKind = iota
	TypeOpCast
)

func (k TypeOpKind) String() string {
	if k == TypeOpCheck {
		return "is"
	}
	return "as"
}

func (i *TypeOp) DstValue() (ValueId, bool) { return i.Dst, true }
func (i *TypeOp) UsedValues() []ValueId     { return []ValueId{i.Value} }
func (i *TypeOp) Effect() Effect            { return PureEffect(0) }
func (i *TypeOp) String() string {
	return fmt.Sprintf("%s = typeop %s %s, %s", i.Dst, i.Kind, i.Value, i.Ty)
}
func (*TypeOp) isInstruction() {}

func joinValueIds(vs []ValueId) string {
	var b strings.Builder
	for i, v := range vs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(v.String())
	}
	return b.String()
}

// IsTerminator reports whether inst is one of the four terminator kinds
// (spec.md §3, §4.3): Branch, Jump, Return, TailCall.
func IsTerminator(inst Instruction) bool {
	switch inst.(type) {
	case *Branch, *Jump, *Return, *TailCall:
		return true
	default:
		return false
	}
}
