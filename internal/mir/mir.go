// Package mir defines Nyash's mid-level IR: a typed, SSA instruction set
// with a four-category effect discipline and a formal ownership-forest
// model over Box references (spec.md §2 item 5, §3, §4.3).
//
// The instruction set implements the 25-instruction hierarchical target of
// spec.md §4.3, not the legacy 26-instruction form the reference codebase
// also carries; spec.md §9 names that as an open question resolved in
// favor of the hierarchy described here. Throw is not a terminator in this
// set: it is represented as a Call/BoxCall carrying the Panic flag,
// subsumed into the effect system as the spec directs.
package mir

import (
	"fmt"
	"strings"
)

// ValueId is an opaque, per-function dense identifier for an SSA value,
// allocated by a monotonic generator and never reused within one function
// (spec.md §3).
type ValueId uint32

func (v ValueId) String() string { return fmt.Sprintf("%%%d", uint32(v)) }

// BasicBlockId is an opaque, per-function dense identifier for a basic
// block.
type BasicBlockId uint32

func (b BasicBlockId) String() string { return fmt.Sprintf("bb%d", uint32(b)) }

// ValueIdGen allocates strictly increasing ValueIds for one function.
type ValueIdGen struct{ next uint32 }

func (g *ValueIdGen) Next() ValueId {
	id := ValueId(g.next)
	g.next++
	return id
}

// Peek returns the id the next call to Next would return, without
// consuming it. Together with Reset it lets a caller save and restore the
// generator's position; the MIR builder uses neither, since it gives each
// function its own generator so `%0` always names `me` (spec.md §4.4).
func (g *ValueIdGen) Peek() uint32 { return g.next }

// Reset rewinds the generator to a previously Peek'd value.
func (g *ValueIdGen) Reset(n uint32) { g.next = n }

// BlockIdGen allocates strictly increasing BasicBlockIds for one function.
type BlockIdGen struct{ next uint32 }

func (g *BlockIdGen) Next() BasicBlockId {
	id := BasicBlockId(g.next)
	g.next++
	return id
}

// MirType is the MIR-level type lattice (spec.md §3).
type MirType struct {
	Kind MirTypeKind
	// Box is the class name when Kind == TypeBox.
	Box string
	// Elem is the element type when Kind == TypeArray or TypeFuture.
	Elem *MirType
}

type MirTypeKind int

const (
	TypeInteger MirTypeKind = iota
	TypeFloat
	TypeBool
	TypeString
	TypeBox
	TypeArray
	TypeFuture
	TypeVoid
	TypeUnknown
)

func (t MirType) String() string {
	switch t.Kind {
	case TypeInteger:
		return "Integer"
	case TypeFloat:
		return "Float"
	case TypeBool:
		return "Bool"
	case TypeString:
		return "String"
	case TypeBox:
		return "Box(" + t.Box + ")"
	case TypeArray:
		return "Array(" + t.Elem.String() + ")"
	case TypeFuture:
		return "Future(" + t.Elem.String() + ")"
	case TypeVoid:
		return "Void"
	default:
		return "Unknown"
	}
}

func BoxType(name string) MirType { return MirType{Kind: TypeBox, Box: name} }

var (
	Integer = MirType{Kind: TypeInteger}
	Float   = MirType{Kind: TypeFloat}
	Bool    = MirType{Kind: TypeBool}
	String  = MirType{Kind: TypeString}
	Void    = MirType{Kind: TypeVoid}
	Unknown = MirType{Kind: TypeUnknown}
)

// ConstValue is the payload of a Const instruction (spec.md §3).
type ConstValue struct {
	Kind    ConstKind
	Int     int64
	Float   float64
	Str     string
	Bool    bool
}

type ConstKind int

const (
	ConstInteger ConstKind = iota
	ConstFloat
	ConstBool
	ConstString
	ConstNull
	ConstVoid
)

func (c ConstValue) String() string {
	switch c.Kind {
	case ConstInteger:
		return fmt.Sprintf("%d", c.Int)
	case ConstFloat:
		return fmt.Sprintf("%g", c.Float)
	case ConstBool:
		return fmt.Sprintf("%t", c.Bool)
	case ConstString:
		return fmt.Sprintf("%q", c.Str)
	case ConstNull:
		return "null"
	default:
		return "void"
	}
}

// Module is a compilation unit: named functions plus named global
// constants (spec.md §3).
type Module struct {
	Name      string
	Functions map[string]*Function
	// FunctionOrder preserves declaration order for deterministic printing.
	FunctionOrder []string
	Globals       map[string]ConstValue
}

func NewModule(name string) *Module {
	return &Module{Name: name, Functions: make(map[string]*Function), Globals: make(map[string]ConstValue)}
}

func (m *Module) AddFunction(f *Function) {
	if _, exists := m.Functions[f.Name]; !exists {
		m.FunctionOrder = append(m.FunctionOrder, f.Name)
	}
	m.Functions[f.Name] = f
}

// Signature is a function's parameter/return type shape.
type Signature struct {
	ParamTypes []MirType
	ReturnType MirType
}

// Function is a built, SSA-form function: a signature, a block graph
// reached from EntryBlock, its parameter ValueIds, and a declared local
// type table (spec.md §3).
type Function struct {
	Name       string
	Signature  Signature
	Params     []ValueId
	Locals     map[ValueId]MirType
	Blocks     map[BasicBlockId]*BasicBlock
	BlockOrder []BasicBlockId
	EntryBlock BasicBlockId

	ValueIds ValueIdGen
	BlockIds BlockIdGen

	// Metadata carries builder-only bookkeeping (e.g. source Box/method
	// name) that does not affect MIR semantics.
	Metadata map[string]string
}

func NewFunction(name string) *Function {
	return &Function{
		Name:     name,
		Locals:   make(map[ValueId]MirType),
		Blocks:   make(map[BasicBlockId]*BasicBlock),
		Metadata: make(map[string]string),
	}
}

// NewBlock allocates and registers a fresh, initially unsealed block.
func (f *Function) NewBlock(label string) *BasicBlock {
	id := f.BlockIds.Next()
	bb := &BasicBlock{
		ID:            id,
		Label:         label,
		Predecessors:  make(map[BasicBlockId]bool),
		Successors:    make(map[BasicBlockId]bool),
		Reachable:     true,
	}
	f.Blocks[id] = bb
	f.BlockOrder = append(f.BlockOrder, id)
	return bb
}

func (f *Function) Block(id BasicBlockId) *BasicBlock { return f.Blocks[id] }

// AddEdge links pred -> succ in both directions, matching the invariant
// that successors derive exclusively from the terminator and predecessors
// mirror them (spec.md §3).
func (f *Function) AddEdge(pred, succ BasicBlockId) {
	f.Blocks[pred].Successors[succ] = true
	f.Blocks[succ].Predecessors[pred] = true
}

// BasicBlock is a straight-line instruction sequence ending in exactly one
// terminator (spec.md §3).
type BasicBlock struct {
	ID           BasicBlockId
	Label        string
	Instructions []Instruction
	Terminator   Instruction // nil until terminated
	Predecessors map[BasicBlockId]bool
	Successors   map[BasicBlockId]bool
	Reachable    bool
	Sealed       bool
}

// Append adds a non-terminator instruction. Phi instructions must be
// appended before any non-Phi instruction in the same block (spec.md §3);
// AppendPhi enforces that by insertion rather than trusting callers.
func (bb *BasicBlock) Append(inst Instruction) {
	bb.Instructions = append(bb.Instructions, inst)
}

// AppendPhi inserts a Phi at the head of the block's instruction prefix,
// after any already-present Phis and before any non-Phi instruction.
func (bb *BasicBlock) AppendPhi(p *Phi) {
	i := 0
	for i < len(bb.Instructions) {
		if _, ok := bb.Instructions[i].(*Phi); !ok {
			break
		}
		i++
	}
	bb.Instructions = append(bb.Instructions, nil)
	copy(bb.Instructions[i+1:], bb.Instructions[i:])
	bb.Instructions[i] = p
}

func (bb *BasicBlock) SetTerminator(term Instruction) {
	bb.Terminator = term
}

func (bb *BasicBlock) IsTerminated() bool { return bb.Terminator != nil }

// PredecessorIds returns the block's predecessors in a stable, sorted
// order; used by the builder when ordering Phi inputs deterministically.
func (bb *BasicBlock) PredecessorIds() []BasicBlockId {
	ids := make([]BasicBlockId, 0, len(bb.Predecessors))
	for id := range bb.Predecessors {
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	return ids
}

// ---- Printer (spec.md §6: MIR textual form) ----

func (m *Module) String() string {
	var b strings.Builder
	for _, name := range m.FunctionOrder {
		b.WriteString(m.Functions[name].String())
		b.WriteByte('\n')
	}
	return b.String()
}

func (f *Function) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "define %s @%s(", f.Signature.ReturnType, f.Name)
	for i, p := range f.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		t := f.Locals[p]
		fmt.Fprintf(&b, "%s %s", t, p)
	}
	b.WriteString(") {\n")
	for _, id := range f.BlockOrder {
		bb := f.Blocks[id]
		fmt.Fprintf(&b, "%s:", bb.ID)
		if len(bb.Predecessors) > 0 {
			fmt.Fprintf(&b, " ; preds(%s)", joinBlockIds(bb.PredecessorIds()))
		}
		b.WriteByte('\n')
		for _, inst := range bb.Instructions {
			fmt.Fprintf(&b, "  %s\n", inst.String())
		}
		if bb.Terminator != nil {
			fmt.Fprintf(&b, "  %s\n", bb.Terminator.String())
		}
	}
	b.WriteString("}\n")
	return b.String()
}

func joinBlockIds(ids []BasicBlockId) string {
	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(id.String())
	}
	return b.String()
}
