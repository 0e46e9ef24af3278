package analysis

import "ferrite/internal/ir"

// borrowSet records the live borrowers of one source variable, keyed by the
// borrowing reference's name. Counts are derived so scope cleanup and branch
// merging can never leave them stale.
type borrowSet struct {
	borrowers map[string]ir.BorrowKind
}

func newBorrowSet() *borrowSet {
	return &borrowSet{borrowers: make(map[string]ir.BorrowKind)}
}

func (b *borrowSet) add(borrower string, kind ir.BorrowKind) {
	b.borrowers[borrower] = kind
}

func (b *borrowSet) remove(borrower string) {
	delete(b.borrowers, borrower)
}

func (b *borrowSet) empty() bool {
	return b == nil || len(b.borrowers) == 0
}

func (b *borrowSet) immutableCount() int {
	if b == nil {
		return 0
	}
	n := 0
	for _, kind := range b.borrowers {
		if kind == ir.BorrowImmutable {
			n++
		}
	}
	return n
}

func (b *borrowSet) hasMutable() bool {
	if b == nil {
		return false
	}
	for _, kind := range b.borrowers {
		if kind == ir.BorrowMutable {
			return true
		}
	}
	return false
}

func (b *borrowSet) clone() *borrowSet {
	c := newBorrowSet()
	for name, kind := range b.borrowers {
		c.borrowers[name] = kind
	}
	return c
}

// refInfo marks a name as a live reference.
type refInfo struct {
	mutable bool
}

// ownState is the flow-sensitive fact set at one program point: ownership
// per variable, live borrows per source, and which names are references.
type ownState struct {
	vars    map[string]ir.OwnershipState
	borrows map[string]*borrowSet
	refs    map[string]refInfo
}

func newOwnState() *ownState {
	return &ownState{
		vars:    make(map[string]ir.OwnershipState),
		borrows: make(map[string]*borrowSet),
		refs:    make(map[string]refInfo),
	}
}

func (s *ownState) clone() *ownState {
	c := newOwnState()
	for name, state := range s.vars {
		c.vars[name] = state
	}
	for name, set := range s.borrows {
		c.borrows[name] = set.clone()
	}
	for name, info := range s.refs {
		c.refs[name] = info
	}
	return c
}

func (s *ownState) state(name string) (ir.OwnershipState, bool) {
	st, ok := s.vars[name]
	return st, ok
}

func (s *ownState) moved(name string) bool {
	return s.vars[name] == ir.StateMoved
}

func (s *ownState) borrowsOf(name string) *borrowSet {
	return s.borrows[name]
}

func (s *ownState) addBorrow(from, to string, kind ir.BorrowKind) {
	set := s.borrows[from]
	if set == nil {
		set = newBorrowSet()
		s.borrows[from] = set
	}
	set.add(to, kind)
	s.refs[to] = refInfo{mutable: kind == ir.BorrowMutable}
}

// releaseBorrower drops one reference name from every borrow set and from
// the reference table. Used on scope exit and for loop-local cleanup.
func (s *ownState) releaseBorrower(name string) {
	delete(s.refs, name)
	for source, set := range s.borrows {
		set.remove(name)
		if set.empty() {
			delete(s.borrows, source)
		}
	}
}

func (s *ownState) isReference(name string) bool {
	_, ok := s.refs[name]
	return ok
}

func (s *ownState) isMutableReference(name string) bool {
	return s.refs[name].mutable
}

// join merges the fact sets of two mutually exclusive paths into a state
// that is safe on either. Ownership: a variable is Moved only when Moved on
// both paths, otherwise Owned. Borrows: borrower sets intersect (kinds must
// agree), so derived counts take the minimum and has-mutable ANDs. Reference
// facts survive only when present on both paths.
func join(a, b *ownState) *ownState {
	out := newOwnState()

	for name, sa := range a.vars {
		sb, ok := b.vars[name]
		switch {
		case !ok:
			out.vars[name] = sa
		case sa == sb:
			out.vars[name] = sa
		case sa == ir.StateMoved && sb == ir.StateMoved:
			out.vars[name] = ir.StateMoved
		default:
			out.vars[name] = ir.StateOwned
		}
	}
	for name, sb := range b.vars {
		if _, ok := a.vars[name]; !ok {
			out.vars[name] = sb
		}
	}

	for source, setA := range a.borrows {
		setB := b.borrows[source]
		if setB == nil {
			continue
		}
		merged := newBorrowSet()
		for borrower, kindA := range setA.borrowers {
			if kindB, ok := setB.borrowers[borrower]; ok && kindA == kindB {
				merged.add(borrower, kindA)
			}
		}
		if !merged.empty() {
			out.borrows[source] = merged
		}
	}

	for name, infoA := range a.refs {
		if infoB, ok := b.refs[name]; ok && infoA == infoB {
			out.refs[name] = infoA
		}
	}

	return out
}
