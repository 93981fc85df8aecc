package mir

import "fmt"

// VerifyError is the ownership verifier's typed error sum (spec.md §4.6,
// §7). Errors accumulate across a whole module; verification never
// short-circuits at the first one (spec.md §7 propagation policy).
type VerifyError interface {
	error
	verifyError()
}

// MultipleStrongOwners reports a Box reachable via more than one strong
// parent edge (forest in-degree violation).
type MultipleStrongOwners struct {
	Target ValueId
	Owners []ValueId
}

func (e *MultipleStrongOwners) Error() string {
	return fmt.Sprintf("%s has multiple strong owners: %v", e.Target, e.Owners)
}
func (*MultipleStrongOwners) verifyError() {}

// StrongCycle reports a cycle in the strong-edge ownership graph.
type StrongCycle struct{ Cycle []ValueId }

func (e *StrongCycle) Error() string { return fmt.Sprintf("strong ownership cycle: %v", e.Cycle) }
func (*StrongCycle) verifyError()    {}

// BidirectionalStrong reports A strongly owning B while B strongly owns A.
type BidirectionalStrong struct{ A, B ValueId }

func (e *BidirectionalStrong) Error() string {
	return fmt.Sprintf("%s and %s strongly own each other", e.A, e.B)
}
func (*BidirectionalStrong) verifyError() {}

// UnsafeRefSet reports a RefSet whose prior target was not Released.
type UnsafeRefSet struct{ Ref, Old, New ValueId }

func (e *UnsafeRefSet) Error() string {
	return fmt.Sprintf("refset %s: old target %s not released before assigning %s", e.Ref, e.Old, e.New)
}
func (*UnsafeRefSet) verifyError() {}

// WeakLoadExpired describes a WeakLoad/WeakCheck whose target is dead. The
// verifier never reports it: per spec.md §3 a WeakLoad on a dead target
// yields null rather than failing verification (see the WeakLoad case in
// step). Nothing in this repository constructs this type; it completes the
// §4.6 error enumeration.
type WeakLoadExpired struct{ Weak, Target ValueId }

func (e *WeakLoadExpired) Error() string {
	return fmt.Sprintf("weakload %s: target %s is provably dead at this program point", e.Weak, e.Target)
}
func (*WeakLoadExpired) verifyError() {}

// UseAfterRelease reports a strong use of a value after it entered the
// Released set.
type UseAfterRelease struct {
	Value ValueId
	Site  string
}

func (e *UseAfterRelease) Error() string {
	return fmt.Sprintf("%s used at %s after release", e.Value, e.Site)
}
func (*UseAfterRelease) verifyError() {}

// InvalidAdopt reports an Adopt that would create a cycle or violate the
// in-degree <= 1 forest invariant. verifyBlockShape also reports SSA
// block-shape violations with this type, leaving Parent and Child zero.
type InvalidAdopt struct {
	Parent, Child ValueId
	Reason        string
}

func (e *InvalidAdopt) Error() string {
	return fmt.Sprintf("adopt %s, %s: %s", e.Parent, e.Child, e.Reason)
}
func (*InvalidAdopt) verifyError() {}

// ownershipState is the per-function simulated state the verifier walks
// the linearized instruction stream with (spec.md §4.6): a conservative
// whole-function view, sufficient for the target program shape.
type ownershipState struct {
	strongParent map[ValueId]ValueId   // child -> parent
	strongKids   map[ValueId][]ValueId // parent -> children, for cycle/report convenience
	weakTarget   map[ValueId]ValueId   // weak ref -> target
	released     map[ValueId]bool
	dead         map[ValueId]bool // weak refs whose target is reachable only through a released ref
}

func newOwnershipState() *ownershipState {
	return &ownershipState{
		strongParent: make(map[ValueId]ValueId),
		strongKids:   make(map[ValueId][]ValueId),
		weakTarget:   make(map[ValueId]ValueId),
		released:     make(map[ValueId]bool),
		dead:         make(map[ValueId]bool),
	}
}

// VerifyModule runs the ownership verifier over every function in m and
// returns every error found, or nil if the module is well-formed
// (spec.md §4.6).
func VerifyModule(m *Module) []VerifyError {
	var errs []VerifyError
	for _, name := range m.FunctionOrder {
		errs = append(errs, VerifyFunction(m.Functions[name])...)
	}
	return errs
}

// VerifyFunction checks SSA shape and ownership-forest invariants for one
// function (spec.md §3 SSA invariants, §4.6 ownership rules).
func VerifyFunction(f *Function) []VerifyError {
	var errs []VerifyError
	errs = append(errs, verifyBlockShape(f)...)

	st := newOwnershipState()
	for _, id := range f.BlockOrder {
		bb := f.Blocks[id]
		for _, inst := range bb.Instructions {
			errs = append(errs, st.step(inst, id)...)
		}
		if bb.Terminator != nil {
			errs = append(errs, st.step(bb.Terminator, id)...)
		}
	}

	errs = append(errs, st.checkGlobalForest()...)
	return errs
}

// verifyBlockShape checks the structural SSA invariants of spec.md §3 that
// are independent of ownership: Phi only at block heads, every successor
// edge matched by a reciprocal predecessor edge, and no non-entry block
// marked reachable while having no predecessors. A block holds a single
// Terminator field, so "at most one terminator" needs no check; Successors
// are not compared against the terminator's targets. Violations are
// reported as InvalidAdopt values carrying only a Reason.
func verifyBlockShape(f *Function) []VerifyError {
	var errs []VerifyError
	for _, id := range f.BlockOrder {
		bb := f.Blocks[id]

		seenNonPhi := false
		for _, inst := range bb.Instructions {
			if _, ok := inst.(*Phi); ok {
				if seenNonPhi {
					errs = append(errs, &InvalidAdopt{Reason: fmt.Sprintf("phi in %s appears after a non-phi instruction", bb.ID)})
				}
				continue
			}
			seenNonPhi = true
		}

		for succ := range bb.Successors {
			if !f.Blocks[succ].Predecessors[id] {
				errs = append(errs, &InvalidAdopt{Reason: fmt.Sprintf("%s -> %s missing reciprocal predecessor edge", id, succ)})
			}
		}

		if id != f.EntryBlock && len(bb.Predecessors) == 0 && bb.Reachable {
			errs = append(errs, &InvalidAdopt{Reason: fmt.Sprintf("%s has no predecessors but is marked reachable", bb.ID)})
		}
	}
	return errs
}

func (st *ownershipState) step(inst Instruction, site BasicBlockId) []VerifyError {
	var errs []VerifyError
	switch in := inst.(type) {
	case *NewBox:
		// A fresh Box is a root: clear any prior strong parent of the
		// destination (spec.md §4.6).
		delete(st.strongParent, in.Dst)

	case *Adopt:
		if in.Parent == in.Child {
			errs = append(errs, &InvalidAdopt{Parent: in.Parent, Child: in.Child, Reason: "self-adoption"})
			break
		}
		if existing, has := st.strongParent[in.Child]; has && existing != in.Parent {
			errs = append(errs, &MultipleStrongOwners{Target: in.Child, Owners: []ValueId{existing, in.Parent}})
			break
		}
		if p, has := st.strongParent[in.Parent]; has && p == in.Child {
			errs = append(errs, &BidirectionalStrong{A: in.Parent, B: in.Child})
			break
		}
		if st.wouldCycle(in.Parent, in.Child) {
			errs = append(errs, &InvalidAdopt{Parent: in.Parent, Child: in.Child, Reason: "would create a strong cycle"})
			break
		}
		st.strongParent[in.Child] = in.Parent
		st.strongKids[in.Parent] = append(st.strongKids[in.Parent], in.Child)

	case *Release:
		st.released[in.Ref] = true
		st.markDeadIfOrphaned(in.Ref)

	case *RefSet:
		if old, has := st.strongParent[in.Ref]; has && !st.released[old] {
			errs = append(errs, &UnsafeRefSet{Ref: in.Ref, Old: old, New: in.New})
			break
		}
		delete(st.strongParent, in.Ref)

	case *WeakNew:
		st.weakTarget[in.Dst] = in.Target

	case *WeakLoad:
		// Per spec.md §3 a WeakLoad on a dead target must yield null, not
		// fail verification; no error is raised here.
		_ = in

	case *WeakCheck:
		_ = in
	}
	return errs
}

// wouldCycle reports whether adopting child under parent would close a
// strong-edge cycle: true if parent is already a (transitive) strong
// descendant of child.
func (st *ownershipState) wouldCycle(parent, child ValueId) bool {
	cur := parent
	seen := map[ValueId]bool{}
	for {
		if cur == child {
			return true
		}
		if seen[cur] {
			return false
		}
		seen[cur] = true
		next, has := st.strongParent[cur]
		if !has {
			return false
		}
		cur = next
	}
}

// markDeadIfOrphaned marks weak references whose target is reachable only
// through a just-released reference as dead (spec.md §3): the released
// value itself and every strong descendant of it.
func (st *ownershipState) markDeadIfOrphaned(released ValueId) {
	orphaned := map[ValueId]bool{released: true}
	work := []ValueId{released}
	for len(work) > 0 {
		n := work[len(work)-1]
		work = work[:len(work)-1]
		for _, kid := range st.strongKids[n] {
			if p, has := st.strongParent[kid]; has && p == n && !orphaned[kid] {
				orphaned[kid] = true
				work = append(work, kid)
			}
		}
	}
	for weak, target := range st.weakTarget {
		if orphaned[target] {
			st.dead[weak] = true
		}
	}
}

// checkGlobalForest runs the final-pass global check of spec.md §4.6: it
// follows strong-parent chains and reports any cycle in strong edges as a
// StrongCycle (a mutually strong pair shows up as a two-node cycle).
// strongParent holds one parent per node, so a second strong parent is
// reported only by step, not here.
func (st *ownershipState) checkGlobalForest() []VerifyError {
	var errs []VerifyError
	visited := map[ValueId]int{} // 0=unvisited 1=visiting 2=done

	var nodes []ValueId
	for child := range st.strongParent {
		nodes = append(nodes, child)
	}

	var visit func(n ValueId, stack []ValueId) []VerifyError
	visit = func(n ValueId, stack []ValueId) []VerifyError {
		if visited[n] == 2 {
			return nil
		}
		if visited[n] == 1 {
			cycleStart := 0
			for i, s := range stack {
				if s == n {
					cycleStart = i
					break
				}
			}
			cyc := append([]ValueId{}, stack[cycleStart:]...)
			cyc = append(cyc, n)
			return []VerifyError{&StrongCycle{Cycle: cyc}}
		}
		visited[n] = 1
		var out []VerifyError
		if parent, has := st.strongParent[n]; has {
			out = append(out, visit(parent, append(stack, n))...)
		}
		visited[n] = 2
		return out
	}

	for _, n := range nodes {
		errs = append(errs, visit(n, nil)...)
	}
	return errs
}

// WeakIsDead reports whether weak's target has been marked dead by a
// Release that orphaned it (spec.md §3). ownershipState is unexported, so
// only code in this package (its tests) can use it to assert
// WeakLoad/WeakCheck results against verifier state.
func (st *ownershipState) WeakIsDead(weak ValueId) bool { return st.dead[weak] }
