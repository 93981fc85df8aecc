package wasmgen

import (
	"fmt"
	"strings"
)

// emitRuntimePreamble writes the fixed set of helper functions every
// emitted module can call: a bump allocator, Box-header allocation, the
// three primitive-Box constructors, a generic shallow clone, and the
// integer/bool `toString` conversions (spec.md §4.8's "helper functions"
// list). The BoxCall lowering calls only `$int_to_string` for `toString`;
// `$bool_to_string` is emitted but not called by generated code. These assume the bulk-memory
// `memory.copy` instruction is available, matching how production WASM
// backends in this generation target post-MVP engines rather than hand
// rolling byte loops for bulk moves.
func emitRuntimePreamble(b *strings.Builder) {
	fmt.Fprintf(b, "  (func $malloc (param $size i32) (result i32)\n"+
		"    (local $p i32)\n"+
		"    (local.set $p (global.get $heap))\n"+
		"    (global.set $heap (i32.add (global.get $heap) (local.get $size)))\n"+
		"    (local.get $p))\n")

	fmt.Fprintf(b, "  (func $box_alloc (param $type i32) (param $fields i32) (result i32)\n"+
		"    (local $p i32)\n"+
		"    (local.set $p (call $malloc (i32.add (i32.const %d) (i32.mul (local.get $fields) (i32.const %d)))))\n"+
		"    (i32.store (local.get $p) (local.get $type))\n"+
		"    (i32.store offset=%d (local.get $p) (i32.const 1))\n"+
		"    (i32.store offset=%d (local.get $p) (local.get $fields))\n"+
		"    (local.get $p))\n", headerSize, dataBoxFieldSize, headerRefCount, headerFieldCount)

	fmt.Fprintf(b, "  (func $alloc_stringbox (param $data i32) (param $len i32) (result i32)\n"+
		"    (local $p i32)\n"+
		"    (local.set $p (call $box_alloc (i32.const %d) (i32.const 2)))\n"+
		"    (i32.store offset=%d (local.get $p) (local.get $data))\n"+
		"    (i32.store offset=%d (local.get $p) (local.get $len))\n"+
		"    (local.get $p))\n", typeIDString, headerDataPtr, headerLength)

	fmt.Fprintf(b, "  (func $alloc_integerbox (param $v i32) (result i32)\n"+
		"    (local $p i32)\n"+
		"    (local.set $p (call $box_alloc (i32.const %d) (i32.const 1)))\n"+
		"    (i32.store offset=%d (local.get $p) (local.get $v))\n"+
		"    (local.get $p))\n", typeIDInteger, dataBoxFieldBase)

	fmt.Fprintf(b, "  (func $alloc_boolbox (param $v i32) (result i32)\n"+
		"    (local $p i32)\n"+
		"    (local.set $p (call $box_alloc (i32.const %d) (i32.const 1)))\n"+
		"    (i32.store offset=%d (local.get $p) (local.get $v))\n"+
		"    (local.get $p))\n", typeIDBool, dataBoxFieldBase)

	fmt.Fprintf(b, "  (func $alloc_databox (param $fields i32) (result i32)\n"+
		"    (call $box_alloc (i32.const %d) (local.get $fields)))\n", typeIDData)

	fmt.Fprintf(b, "  (func $box_clone (param $p i32) (result i32)\n"+
		"    (local $fields i32) (local $size i32) (local $np i32)\n"+
		"    (local.set $fields (i32.load offset=%d (local.get $p)))\n"+
		"    (local.set $size (i32.add (i32.const %d) (i32.mul (local.get $fields) (i32.const %d))))\n"+
		"    (local.set $np (call $malloc (local.get $size)))\n"+
		"    (memory.copy (local.get $np) (local.get $p) (local.get $size))\n"+
		"    (i32.store offset=%d (local.get $np) (i32.const 1))\n"+
		"    (local.get $np))\n", headerFieldCount, headerSize, dataBoxFieldSize, headerRefCount)

	// int_to_string: classic reverse-digit-buffer itoa, handling 0 and
	// negative values, then copying the used span into a fresh allocation.
	fmt.Fprintf(b, "  (func $int_to_string (param $v i32) (result i32)\n"+
		"    (local $n i32) (local $neg i32) (local $i i32) (local $buf i32) (local $len i32) (local $strp i32) (local $digit i32)\n"+
		"    (local.set $buf (call $malloc (i32.const 12)))\n"+
		"    (local.set $n (local.get $v))\n"+
		"    (local.set $neg (i32.lt_s (local.get $v) (i32.const 0)))\n"+
		"    (if (local.get $neg) (then (local.set $n (i32.sub (i32.const 0) (local.get $n)))))\n"+
		"    (local.set $i (i32.const 11))\n"+
		"    (if (i32.eqz (local.get $n))\n"+
		"      (then\n"+
		"        (local.set $i (i32.sub (local.get $i) (i32.const 1)))\n"+
		"        (i32.store8 (i32.add (local.get $buf) (local.get $i)) (i32.const 48)))\n"+
		"      (else\n"+
		"        (block $done\n"+
		"          (loop $digits\n"+
		"            (br_if $done (i32.eqz (local.get $n)))\n"+
		"            (local.set $i (i32.sub (local.get $i) (i32.const 1)))\n"+
		"            (local.set $digit (i32.rem_u (local.get $n) (i32.const 10)))\n"+
		"            (i32.store8 (i32.add (local.get $buf) (local.get $i)) (i32.add (local.get $digit) (i32.const 48)))\n"+
		"            (local.set $n (i32.div_u (local.get $n) (i32.const 10)))\n"+
		"            (br $digits)))))\n"+
		"    (if (local.get $neg)\n"+
		"      (then\n"+
		"        (local.set $i (i32.sub (local.get $i) (i32.const 1)))\n"+
		"        (i32.store8 (i32.add (local.get $buf) (local.get $i)) (i32.const 45))))\n"+
		"    (local.set $len (i32.sub (i32.const 11) (local.get $i)))\n"+
		"    (local.set $strp (call $malloc (local.get $len)))\n"+
		"    (memory.copy (local.get $strp) (i32.add (local.get $buf) (local.get $i)) (local.get $len))\n"+
		"    (call $alloc_stringbox (local.get $strp) (local.get $len)))\n")

	fmt.Fprintf(b, "  (func $bool_to_string (param $v i32) (result i32)\n"+
		"    (if (result i32) (local.get $v)\n"+
		"      (then (call $alloc_stringbox (i32.const %d) (i32.const 4)))\n"+
		"      (else (call $alloc_stringbox (i32.const %d) (i32.const 5)))))\n",
		stringDataBase, stringDataBase+4)
}
