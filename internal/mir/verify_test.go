package mir

import "testing"

// TestOwnershipForestAdoptCycleRejected covers spec.md §8 property 6: an
// Adopt that would close a strong-edge cycle is rejected.
func TestOwnershipForestAdoptCycleRejected(t *testing.T) {
	f := NewFunction("f")
	entry := f.NewBlock("entry")
	f.EntryBlock = entry.ID

	a := f.ValueIds.Next()
	b := f.ValueIds.Next()
	entry.Append(&NewBox{Dst: a, Class: "A"})
	entry.Append(&NewBox{Dst: b, Class: "B"})
	entry.Append(&Adopt{Parent: a, Child: b}) // b -> a
	entry.Append(&Adopt{Parent: b, Child: a}) // a -> b would close a cycle
	entry.SetTerminator(&Return{HasValue: false})

	errs := VerifyFunction(f)
	foundCycleOrBidi := false
	for _, e := range errs {
		switch e.(type) {
		case *StrongCycle, *BidirectionalStrong:
			foundCycleOrBidi = true
		}
	}
	if !foundCycleOrBidi {
		t.Errorf("want a cycle/bidirectional-strong error, got %v", errs)
	}
}

// TestOwnershipForestMultipleStrongOwners covers the in-degree <= 1 forest
// invariant (spec.md §3, §4.6).
func TestOwnershipForestMultipleStrongOwners(t *testing.T) {
	f := NewFunction("f")
	entry := f.NewBlock("entry")
	f.EntryBlock = entry.ID

	p1 := f.ValueIds.Next()
	p2 := f.ValueIds.Next()
	c := f.ValueIds.Next()
	entry.Append(&NewBox{Dst: p1, Class: "P"})
	entry.Append(&NewBox{Dst: p2, Class: "P"})
	entry.Append(&NewBox{Dst: c, Class: "C"})
	entry.Append(&Adopt{Parent: p1, Child: c})
	entry.Append(&Adopt{Parent: p2, Child: c})
	entry.SetTerminator(&Return{HasValue: false})

	errs := VerifyFunction(f)
	found := false
	for _, e := range errs {
		if _, ok := e.(*MultipleStrongOwners); ok {
			found = true
		}
	}
	if !found {
		t.Errorf("want *MultipleStrongOwners, got %v", errs)
	}
}

// TestOwnershipForestAcceptsValidAdopt checks that a legitimate forest
// (no cycles, no shared children) verifies cleanly.
func TestOwnershipForestAcceptsValidAdopt(t *testing.T) {
	f := NewFunction("f")
	entry := f.NewBlock("entry")
	f.EntryBlock = entry.ID

	p := f.ValueIds.Next()
	c1 := f.ValueIds.Next()
	c2 := f.ValueIds.Next()
	entry.Append(&NewBox{Dst: p, Class: "P"})
	entry.Append(&NewBox{Dst: c1, Class: "C"})
	entry.Append(&NewBox{Dst: c2, Class: "C"})
	entry.Append(&Adopt{Parent: p, Child: c1})
	entry.Append(&Adopt{Parent: p, Child: c2})
	entry.SetTerminator(&Return{HasValue: false})

	errs := VerifyFunction(f)
	if len(errs) != 0 {
		t.Errorf("want no errors, got %v", errs)
	}
}

// TestUnsafeRefSetRejected covers spec.md §3's RefSet rule: rebinding a
// reference slot whose prior strong target has not been Released is
// ill-formed.
func TestUnsafeRefSetRejected(t *testing.T) {
	f := NewFunction("f")
	entry := f.NewBlock("entry")
	f.EntryBlock = entry.ID

	ref := f.ValueIds.Next()
	old := f.ValueIds.Next()
	neu := f.ValueIds.Next()
	entry.Append(&NewBox{Dst: ref, Class: "R"})
	entry.Append(&NewBox{Dst: old, Class: "O"})
	entry.Append(&NewBox{Dst: neu, Class: "N"})
	entry.Append(&Adopt{Parent: old, Child: ref}) // ref's strong parent is `old`
	entry.Append(&RefSet{Ref: ref, New: neu})      // old was never Released
	entry.SetTerminator(&Return{HasValue: false})

	errs := VerifyFunction(f)
	found := false
	for _, e := range errs {
		if _, ok := e.(*UnsafeRefSet); ok {
			found = true
		}
	}
	if !found {
		t.Errorf("want *UnsafeRefSet, got %v", errs)
	}
}

// TestRefSetAfterReleaseAccepted: once the old strong parent has been
// Released, RefSet is legal.
func TestRefSetAfterReleaseAccepted(t *testing.T) {
	f := NewFunction("f")
	entry := f.NewBlock("entry")
	f.EntryBlock = entry.ID

	ref := f.ValueIds.Next()
	old := f.ValueIds.Next()
	neu := f.ValueIds.Next()
	entry.Append(&NewBox{Dst: ref, Class: "R"})
	entry.Append(&NewBox{Dst: old, Class: "O"})
	entry.Append(&NewBox{Dst: neu, Class: "N"})
	entry.Append(&Adopt{Parent: old, Child: ref})
	entry.Append(&Release{Ref: old})
	entry.Append(&RefSet{Ref: ref, New: neu})
	entry.SetTerminator(&Return{HasValue: false})

	errs := VerifyFunction(f)
	for _, e := range errs {
		if _, ok := e.(*UnsafeRefSet); ok {
			t.Errorf("want RefSet after Release to be accepted, got %v", e)
		}
	}
}

// TestWeakDeadAfterRelease covers spec.md §3: after Release(r), a weak
// reference whose target was r is considered dead.
func TestWeakDeadAfterRelease(t *testing.T) {
	f := NewFunction("f")
	entry := f.NewBlock("entry")
	f.EntryBlock = entry.ID

	target := f.ValueIds.Next()
	weak := f.ValueIds.Next()
	entry.Append(&NewBox{Dst: target, Class: "T"})
	entry.Append(&WeakNew{Dst: weak, Target: target})
	entry.Append(&Release{Ref: target})
	entry.SetTerminator(&Return{HasValue: false})

	st := newOwnershipState()
	for _, inst := range entry.Instructions {
		st.step(inst, entry.ID)
	}
	if !st.WeakIsDead(weak) {
		t.Errorf("want weak ref to target a dead object after Release")
	}
}

// TestSSAShapeDetectsDanglingSuccessor covers spec.md §8 property 4: a
// successor edge without a reciprocal predecessor edge is a verifier
// error.
func TestSSAShapeDetectsDanglingSuccessor(t *testing.T) {
	f := NewFunction("f")
	entry := f.NewBlock("entry")
	other := f.NewBlock("other")
	f.EntryBlock = entry.ID
	entry.SetTerminator(&Jump{Target: other.ID})
	entry.Successors[other.ID] = true
	// Deliberately omit f.AddEdge's reciprocal predecessor registration.
	other.SetTerminator(&Return{HasValue: false})

	errs := VerifyFunction(f)
	if len(errs) == 0 {
		t.Errorf("want a missing-reciprocal-edge error, got none")
	}
}
