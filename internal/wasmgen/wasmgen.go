// Package wasmgen lowers a verified mir.Module into WebAssembly text format
// (spec.md §4.8). There is no reference WASM backend to imitate directly, so
// the emission style — a single strings.Builder walked function-by-function,
// block-by-block, with a per-instruction-kind switch and small
// load/store-to-slot helpers — follows the text-emission shape of this
// toolchain's x86-64 backend, retargeted from a register/stack-slot model to
// WAT's structured-control/local-variable model.
//
// Values are represented uniformly as i32: Integer and Bool as native
// values, String/Box/Array/Future/weak references as linear-memory
// pointers into a bump-allocated heap, with Float alone given a native f64
// slot. Control flow compiles through a dispatch loop (a `loop` wrapping one
// nested `block` per basic block, entered by `br_table` on a `$pc` local)
// rather than a structured reconstruction of the CFG, since MIR's
// goto-style Branch/Jump/Phi graph (spec.md §3) is not guaranteed reducible
// to WAT's structured `if`/`loop` forms without a full relooper; the
// dispatch loop handles any CFG shape uniformly. Phi nodes are realized by
// assigning their destination local from the predecessor side of each edge,
// immediately before that edge's jump.
package wasmgen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nyashlang/nyashc/internal/mir"
)

// hostImportSig names the import module/field and parameter count for the
// host intrinsics the builder recognizes (internal/mirbuilder's
// externNames; spec.md §4.8's "imports registered on demand").
type hostImportSig struct {
	module, field, wasmFunc string
	params                  int
}

var hostImports = map[string]hostImportSig{
	"console.log":     {"env", "console.log", "$console_log", 1},
	"canvas.fillRect":  {"env", "canvas.fillRect", "$canvas_fillRect", 4},
	"canvas.fillText":  {"env", "canvas.fillText", "$canvas_fillText", 3},
}

// Emit lowers m to a complete WAT module, or the first UnsupportedInstruction
// encountered (spec.md §7: fail the whole module on first unsupported
// instruction, never emit a partial one).
func Emit(m *mir.Module) (string, error) {
	var b strings.Builder
	b.WriteString("(module\n")

	// imports before other definitions (spec.md §6 WAT output ordering).
	used := collectHostImports(m)
	names := make([]string, 0, len(used))
	for name := range used {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sig := hostImports[name]
		fmt.Fprintf(&b, "  (import %q %q (func %s%s))\n",
			sig.module, sig.field, sig.wasmFunc, strings.Repeat(" (param i32)", sig.params))
	}

	b.WriteString("  (memory $mem 1)\n")

	order, layout := collectStringsWithBuiltins(m)
	heapBase := emitDataSegments(&b, order, layout)
	fmt.Fprintf(&b, "  (global $heap (mut i32) (i32.const %d))\n", heapBase)

	emitRuntimePreamble(&b)

	for _, name := range m.FunctionOrder {
		f := m.Functions[name]
		if err := emitFunction(&b, f, layout); err != nil {
			return "", err
		}
	}

	b.WriteString("  (export \"memory\" (memory $mem))\n")
	if _, ok := m.Functions["main"]; ok {
		fmt.Fprintf(&b, "  (export \"main\" (func $%s))\n", sanitizeName("main"))
	}

	b.WriteString(")\n")
	return b.String(), nil
}

// collectStringsWithBuiltins seeds the string table with the two literals
// the runtime's $bool_to_string helper needs, ahead of any user literal, so
// their offsets are fixed constants the preamble can reference directly.
func collectStringsWithBuiltins(m *mir.Module) ([]string, map[string]stringLayout) {
	userOrder, _ := collectStrings(m)

	seen := map[string]stringLayout{}
	next := stringDataBase
	var final []string
	place := func(lit string) {
		if _, ok := seen[lit]; ok {
			return
		}
		seen[lit] = stringLayout{offset: next, length: len(lit)}
		final = append(final, lit)
		next += len(lit)
		if rem := next % 4; rem != 0 {
			next += 4 - rem
		}
	}
	place("true")
	place("false")
	for _, lit := range userOrder {
		place(lit)
	}
	return final, seen
}

func collectHostImports(m *mir.Module) map[string]bool {
	used := map[string]bool{}
	mark := func(name string) {
		if _, ok := hostImports[name]; ok {
			used[name] = true
		}
	}
	for _, fname := range m.FunctionOrder {
		f := m.Functions[fname]
		for _, id := range f.BlockOrder {
			for _, inst := range f.Blocks[id].Instructions {
				switch in := inst.(type) {
				case *mir.Call:
					mark(in.Callee)
				case *mir.BoxCall:
					if in.Method == "print" || in.Method == "log" {
						used["console.log"] = true
					} else {
						mark(in.Method)
					}
				}
			}
		}
	}
	return used
}
