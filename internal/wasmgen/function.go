package wasmgen

import (
	"fmt"
	"strings"

	"github.com/nyashlang/nyashc/internal/mir"
)

// emitFunction lowers one MIR function to a `(func ...)` form using the
// dispatch-loop control-flow encoding described in the package doc.
func emitFunction(b *strings.Builder, f *mir.Function, strs map[string]stringLayout) error {
	types := inferTypes(f)
	paramSet := make(map[mir.ValueId]bool, len(f.Params))

	fmt.Fprintf(b, "  (func $%s", sanitizeName(f.Name))
	for _, p := range f.Params {
		paramSet[p] = true
		fmt.Fprintf(b, " (param $%s %s)", valueLocal(p), wasmType(f.Locals[p]))
	}
	if f.Signature.ReturnType.Kind != mir.TypeVoid {
		fmt.Fprintf(b, " (result %s)", wasmType(f.Signature.ReturnType))
	}
	b.WriteString("\n")

	b.WriteString("    (local $pc i32)\n")
	declared := map[mir.ValueId]bool{}
	for _, id := range f.BlockOrder {
		for _, inst := range f.Blocks[id].Instructions {
			dst, ok := inst.DstValue()
			if !ok || paramSet[dst] || declared[dst] {
				continue
			}
			declared[dst] = true
			fmt.Fprintf(b, "    (local $%s %s)\n", valueLocal(dst), wasmType(types[dst]))
		}
	}

	if len(f.BlockOrder) == 0 {
		b.WriteString("  )\n")
		return nil
	}

	pcIndex := make(map[mir.BasicBlockId]int, len(f.BlockOrder))
	for i, id := range f.BlockOrder {
		pcIndex[id] = i
	}
	fmt.Fprintf(b, "    (local.set $pc (i32.const %d))\n", pcIndex[f.EntryBlock])

	n := len(f.BlockOrder)
	b.WriteString("    (loop $loop\n")
	for depth := n - 1; depth >= 1; depth-- {
		fmt.Fprintf(b, "%s(block $b%d\n", indent(depth), depth)
	}
	b.WriteString(indent(0) + "(block $b0\n")
	b.WriteString(indent(0) + "  (br_table")
	for i := 0; i < n; i++ {
		fmt.Fprintf(b, " $b%d", i)
	}
	b.WriteString(" $b0 (local.get $pc))\n")
	b.WriteString(indent(0) + ")\n")

	for idx, id := range f.BlockOrder {
		if err := emitBlockBody(b, f, id, pcIndex, types, strs, indent(idx)); err != nil {
			return err
		}
		if idx < n-1 {
			fmt.Fprintf(b, "%s)\n", indent(idx+1))
		}
	}
	b.WriteString("    )\n") // close loop
	b.WriteString("  )\n")
	return nil
}

func indent(depth int) string {
	return "    " + strings.Repeat("  ", depth+1)
}

func valueLocal(v mir.ValueId) string { return fmt.Sprintf("v%d", uint32(v)) }

func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r == '$' || r == '"' || r == ' ' {
			b.WriteByte('_')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// assignPhis writes the local.set for every Phi at the head of target whose
// input arrives from pred, implementing spec.md §4.8's "Phi realized via
// pre-jump local assignment on each incoming edge".
func assignPhis(b *strings.Builder, f *mir.Function, target, pred mir.BasicBlockId, pad string) {
	for _, inst := range f.Blocks[target].Instructions {
		phi, ok := inst.(*mir.Phi)
		if !ok {
			break
		}
		for _, in := range phi.Inputs {
			if in.Block == pred {
				fmt.Fprintf(b, "%s(local.set $%s (local.get $%s))\n", pad, valueLocal(phi.Dst), valueLocal(in.Value))
			}
		}
	}
}

func jumpTo(b *strings.Builder, f *mir.Function, from, target mir.BasicBlockId, pcIndex map[mir.BasicBlockId]int, pad string) {
	assignPhis(b, f, target, from, pad)
	fmt.Fprintf(b, "%s(local.set $pc (i32.const %d))\n", pad, pcIndex[target])
	fmt.Fprintf(b, "%s(br $loop)\n", pad)
}
