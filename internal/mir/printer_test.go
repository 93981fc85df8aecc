package mir

import (
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
)

// TestFunctionString_GoldenSnapshot locks down the textual MIR form
// (spec.md §6) for a function with a branch, a phi-bearing merge block,
// and a predecessor list, via go-snaps (SPEC_FULL.md §4.11) rather than
// a handful of substring checks.
func TestFunctionString_GoldenSnapshot(t *testing.T) {
	f := NewFunction("branch")
	f.Signature = Signature{ReturnType: Integer}
	entry := f.NewBlock("entry")
	f.EntryBlock = entry.ID
	thenBB := f.NewBlock("then")
	elseBB := f.NewBlock("else")
	merge := f.NewBlock("merge")

	cond := f.ValueIds.Next()
	entry.Append(&Const{Dst: cond, Value: ConstValue{Kind: ConstBool, Bool: true}})
	entry.SetTerminator(&Branch{Cond: cond, Then: thenBB.ID, Else: elseBB.ID})
	f.AddEdge(entry.ID, thenBB.ID)
	f.AddEdge(entry.ID, elseBB.ID)

	one := f.ValueIds.Next()
	thenBB.Append(&Const{Dst: one, Value: ConstValue{Kind: ConstInteger, Int: 1}})
	thenBB.SetTerminator(&Jump{Target: merge.ID})
	f.AddEdge(thenBB.ID, merge.ID)

	zero := f.ValueIds.Next()
	elseBB.Append(&Const{Dst: zero, Value: ConstValue{Kind: ConstInteger, Int: 0}})
	elseBB.SetTerminator(&Jump{Target: merge.ID})
	f.AddEdge(elseBB.ID, merge.ID)

	phi := f.ValueIds.Next()
	merge.AppendPhi(&Phi{Dst: phi, Inputs: []PhiInput{
		{Block: thenBB.ID, Value: one},
		{Block: elseBB.ID, Value: zero},
	}})
	merge.SetTerminator(&Return{Value: phi, HasValue: true})

	snaps.MatchSnapshot(t, f.String())
}

// TestModuleString_GoldenSnapshot covers the module-level printer, which
// concatenates each function's textual form in declaration order.
func TestModuleString_GoldenSnapshot(t *testing.T) {
	m := NewModule("m")
	f := NewFunction("main")
	f.Signature = Signature{ReturnType: Void}
	entry := f.NewBlock("entry")
	f.EntryBlock = entry.ID
	entry.Append(&Safepoint{})
	entry.SetTerminator(&Return{HasValue: false})
	m.AddFunction(f)

	snaps.MatchSnapshot(t, m.String())
}
