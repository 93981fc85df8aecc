package wasmgen

import (
	"fmt"
	"strings"

	"github.com/nyashlang/nyashc/internal/mir"
)

// Box header layout (spec.md §4.8): three shared i32 header words; a
// String box adds a data pointer and a length as words 3-4, while an
// Integer/Bool payload and a DataBox's fields start at word 3 (byte 12).
const (
	headerTypeID     = 0 // word 0: type tag
	headerRefCount   = 4 // word 1: reference count
	headerFieldCount = 8 // word 2: field/length count
	headerDataPtr    = 12
	headerLength     = 16
	headerSize       = 20 // size of the five-word String box header

	typeIDString  = 0x1001
	typeIDInteger = 0x1002
	typeIDBool    = 0x1003
	typeIDData    = 0x1004

	// dataBoxFieldBase is where a user-defined (DataBox) instance's own
	// fields begin; words 0-2 are the shared header, so the first field sits
	// at byte 12, matching the `BoxFieldLoad`/`BoxFieldStore` offsets
	// spec.md §4.8 fixes for user fields.
	dataBoxFieldBase = 12
	dataBoxFieldSize = 4

	// stringDataBase is the first address data segments are laid out from,
	// leaving room below it for any future fixed bookkeeping (spec.md §4.8).
	stringDataBase = 0x1000
)

// stringLayout records where a string literal's raw byte payload lives in
// linear memory (offset, length); the StringBox wrapper is built around it
// at runtime by $alloc_stringbox.
type stringLayout struct {
	offset int
	length int
}

// collectStrings walks every function's Const instructions and assigns each
// distinct string literal a data segment slot, in first-seen order for
// determinism.
func collectStrings(m *mir.Module) ([]string, map[string]stringLayout) {
	var order []string
	seen := map[string]stringLayout{}
	next := stringDataBase

	for _, name := range m.FunctionOrder {
		f := m.Functions[name]
		for _, id := range f.BlockOrder {
			for _, inst := range f.Blocks[id].Instructions {
				c, ok := inst.(*mir.Const)
				if !ok || c.Value.Kind != mir.ConstString {
					continue
				}
				if _, ok := seen[c.Value.Str]; ok {
					continue
				}
				seen[c.Value.Str] = stringLayout{offset: next, length: len(c.Value.Str)}
				order = append(order, c.Value.Str)
				next += len(c.Value.Str)
				if rem := next % 4; rem != 0 {
					next += 4 - rem // keep every segment word-aligned
				}
			}
		}
	}
	return order, seen
}

// emitDataSegments writes one `(data ...)` directive per distinct string
// literal, and returns the first free heap address following them.
func emitDataSegments(b *strings.Builder, order []string, layout map[string]stringLayout) int {
	heapBase := stringDataBase
	for _, s := range order {
		l := layout[s]
		fmt.Fprintf(b, "  (data (i32.const %d) %s)\n", l.offset, watString(s))
		if end := l.offset + l.length; end > heapBase {
			heapBase = end
		}
	}
	if rem := heapBase % 8; rem != 0 {
		heapBase += 8 - rem
	}
	return heapBase
}

// watString renders a Go string as a WAT data-segment string literal,
// escaping bytes the text format cannot carry unescaped.
func watString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"' || c == '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case c < 0x20 || c >= 0x7f:
			fmt.Fprintf(&b, "\\%02x", c)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}
