package mir

import "strings"

// Category is one of the four primary effect categories that determine
// optimization legality (spec.md §3, §4.3).
type Category int

const (
	Pure Category = iota
	Mut
	Io
	Control
)

func (c Category) String() string {
	switch c {
	case Pure:
		return "pure"
	case Mut:
		return "mut"
	case Io:
		return "io"
	default:
		return "control"
	}
}

// Flag is a fine-grained effect bit layered on top of a primary Category
// (spec.md §3).
type Flag uint8

const (
	FlagReadHeap Flag = 1 << iota
	FlagWriteHeap
	FlagAlloc
	FlagIo
	FlagDebug
	FlagPanic
	FlagBarrier
)

// Effect is the mask an instruction reports: exactly one primary Category
// plus zero or more Flags (spec.md §3).
type Effect struct {
	Category Category
	Flags    Flag
}

func (e Effect) Has(f Flag) bool { return e.Flags&f != 0 }

func (e Effect) String() string {
	var parts []string
	parts = append(parts, e.Category.String())
	for _, pair := range []struct {
		f Flag
		s string
	}{
		{FlagReadHeap, "read_heap"},
		{FlagWriteHeap, "write_heap"},
		{FlagAlloc, "alloc"},
		{FlagIo, "io"},
		{FlagDebug, "debug"},
		{FlagPanic, "panic"},
		{FlagBarrier, "barrier"},
	} {
		if e.Has(pair.f) {
			parts = append(parts, pair.s)
		}
	}
	return strings.Join(parts, "+")
}

// PureEffect, MutEffect, IoEffect and ControlEffect build the common base
// masks; callers OR in extra Flags as needed.
func PureEffect(flags Flag) Effect    { return Effect{Category: Pure, Flags: flags} }
func MutEffect(flags Flag) Effect     { return Effect{Category: Mut, Flags: flags} }
func IoEffect(flags Flag) Effect      { return Effect{Category: Io, Flags: flags} }
func ControlEffect(flags Flag) Effect { return Effect{Category: Control, Flags: flags} }
