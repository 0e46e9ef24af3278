package analysis

import (
	"fmt"
	"sort"
	"strings"

	"ferrite/internal/diag"
	"ferrite/internal/ir"
	"ferrite/internal/safety"
	"ferrite/internal/source"
)

// InferredLifetime is a def/use interval for one variable plus the set of
// variables its validity depends on.
type InferredLifetime struct {
	Name string
	// Start and End are statement indices over the function-local counter.
	Start int
	End   int
	Deps  map[string]struct{}
}

// LifetimeInferencer derives lifetimes for local variables from their usage
// pattern, with no annotations required. Build one per function.
type LifetimeInferencer struct {
	lifetimes map[string]*InferredLifetime
	firstDef  map[string]int
	lastUse   map[string]int
	counter   int
}

// NewInferencer returns an empty inferencer.
func NewInferencer() *LifetimeInferencer {
	return &LifetimeInferencer{
		lifetimes: make(map[string]*InferredLifetime),
		firstDef:  make(map[string]int),
		lastUse:   make(map[string]int),
	}
}

// InferFunction computes lifetimes for every variable defined in fn. Three
// passes share one statement index that increments per statement in tree
// order, compound statements first, then their children.
func (in *LifetimeInferencer) InferFunction(fn *ir.Function) map[string]*InferredLifetime {
	idx := 0
	walkIndexed(fn, func(st *ir.Stmt, index, _ int) {
		in.collect(st, index)
	}, &idx)

	names := make([]string, 0, len(in.firstDef))
	for name := range in.firstDef {
		names = append(names, name)
	}
	sort.Strings(names)
	for n, name := range names {
		def := in.firstDef[name]
		end, ok := in.lastUse[name]
		if !ok {
			end = def
		}
		in.lifetimes[name] = &InferredLifetime{
			Name:  fmt.Sprintf("'inferred_%d", n),
			Start: def,
			End:   end,
			Deps:  make(map[string]struct{}),
		}
	}

	idx = 0
	walkIndexed(fn, func(st *ir.Stmt, _, _ int) {
		in.connect(st)
	}, &idx)

	return in.lifetimes
}

func (in *LifetimeInferencer) collect(st *ir.Stmt, index int) {
	def := func(name string) {
		if _, ok := in.firstDef[name]; !ok {
			in.firstDef[name] = index
		}
	}
	use := func(name string) {
		if name != "" {
			in.lastUse[name] = index
		}
	}
	switch st.Kind {
	case ir.StmtAssign:
		def(st.Assign.LHS)
		use(st.Assign.LHS)
	case ir.StmtMove:
		use(st.Move.From)
		def(st.Move.To)
		use(st.Move.To)
	case ir.StmtBorrow:
		use(st.Borrow.From)
		def(st.Borrow.To)
		use(st.Borrow.To)
	case ir.StmtCall:
		for i := range st.Call.Args {
			use(st.Call.Args[i].VarName())
		}
		if st.Call.Result != "" {
			def(st.Call.Result)
			use(st.Call.Result)
		}
	case ir.StmtReturn:
		if st.Return.HasValue {
			use(st.Return.Value.VarName())
		}
	}
}

func (in *LifetimeInferencer) connect(st *ir.Stmt) {
	switch st.Kind {
	case ir.StmtBorrow:
		// The reference is only valid while its source is.
		if lt := in.lifetimes[st.Borrow.To]; lt != nil {
			lt.Deps[st.Borrow.From] = struct{}{}
		}
	case ir.StmtMove:
		// Ownership transfer carries the source's obligations along.
		from := in.lifetimes[st.Move.From]
		to := in.lifetimes[st.Move.To]
		if from != nil && to != nil {
			for dep := range from.Deps {
				to.Deps[dep] = struct{}{}
			}
		}
	}
}

// Lifetime returns the inferred lifetime for a variable, or nil.
func (in *LifetimeInferencer) Lifetime(name string) *InferredLifetime {
	return in.lifetimes[name]
}

// Overlap reports whether the two variables' intervals intersect. Unknown
// variables never overlap anything.
func (in *LifetimeInferencer) Overlap(a, b string) bool {
	la, lb := in.lifetimes[a], in.lifetimes[b]
	if la == nil || lb == nil {
		return false
	}
	return !(la.End < lb.Start || lb.End < la.Start)
}

// AliveAt reports whether the variable's interval covers the given point.
func (in *LifetimeInferencer) AliveAt(name string, point int) bool {
	lt := in.lifetimes[name]
	if lt == nil {
		return false
	}
	return point >= lt.Start && point <= lt.End
}

// CheckInferredLifetimes infers lifetimes for fn and validates borrows,
// moves, and returned references against them.
func CheckInferredLifetimes(fn *ir.Function, gate *safety.Context, r diag.Reporter) {
	in := NewInferencer()
	lifetimes := in.InferFunction(fn)

	report := func(code diag.Code, st *ir.Stmt, depth int, msg string) {
		if depth > 0 || gate.LineUnsafe(st.Line) {
			return
		}
		diag.Error(r, code, source.At(fn.Span.File, st.Line), msg)
	}

	others := make([]string, 0, len(lifetimes))
	for name := range lifetimes {
		others = append(others, name)
	}
	sort.Strings(others)

	idx := 0
	walkIndexed(fn, func(st *ir.Stmt, index, unsafeDepth int) {
		switch st.Kind {
		case ir.StmtBorrow:
			from, to := st.Borrow.From, st.Borrow.To
			if lifetimes[from] != nil && !in.AliveAt(from, index) {
				report(diag.LifBorrowNotAlive, st, unsafeDepth, fmt.Sprintf(
					"Cannot borrow '%s': variable is not alive at this point", from))
			}
			if st.Borrow.Kind == ir.BorrowMutable {
				for _, other := range others {
					if other == to {
						continue
					}
					lt := lifetimes[other]
					if _, dep := lt.Deps[from]; dep && in.Overlap(to, other) {
						report(diag.LifConflictingBorrow, st, unsafeDepth, fmt.Sprintf(
							"Cannot create mutable borrow '%s': '%s' is already borrowed by '%s'", to, from, other))
					}
				}
			}
		case ir.StmtMove:
			if !in.AliveAt(st.Move.From, index) {
				report(diag.LifMoveNotAlive, st, unsafeDepth, fmt.Sprintf(
					"Cannot move '%s': variable is not alive at this point", st.Move.From))
			}
		case ir.StmtReturn:
			if !st.Return.HasValue {
				return
			}
			val := st.Return.Value.VarName()
			if val == "" || !fn.IsReferenceVar(val) {
				return
			}
			lt := lifetimes[val]
			if lt == nil {
				return
			}
			deps := make([]string, 0, len(lt.Deps))
			for dep := range lt.Deps {
				deps = append(deps, dep)
			}
			sort.Strings(deps)
			for _, dep := range deps {
				if !likelyParameter(dep) {
					report(diag.LifDanglingReturn, st, unsafeDepth, fmt.Sprintf(
						"Potential dangling reference: returning '%s' which depends on local variable '%s'", val, dep))
				}
			}
		}
	}, &idx)
}

// likelyParameter is the naming heuristic for parameters: the frontend
// prefixes them, and single-letter names are treated as caller-provided.
func likelyParameter(name string) bool {
	if len(name) == 1 {
		return true
	}
	return strings.HasPrefix(name, "param") || strings.HasPrefix(name, "arg")
}

// walkIndexed visits every statement in tree order with a running index and
// the current unsafe nesting depth. All inferencer passes share this walk so
// their statement indices line up.
func walkIndexed(fn *ir.Function, visit func(st *ir.Stmt, index, unsafeDepth int), idx *int) {
	for b := range fn.Blocks {
		walkIndexedStmts(fn.Blocks[b].Stmts, visit, idx, 0)
	}
}

func walkIndexedStmts(stmts []ir.Stmt, visit func(st *ir.Stmt, index, unsafeDepth int), idx *int, unsafeDepth int) {
	for i := range stmts {
		st := &stmts[i]
		visit(st, *idx, unsafeDepth)
		*idx++
		switch st.Kind {
		case ir.StmtBlock, ir.StmtLoop:
			walkIndexedStmts(st.Body, visit, idx, unsafeDepth)
		case ir.StmtUnsafe:
			walkIndexedStmts(st.Body, visit, idx, unsafeDepth+1)
		case ir.StmtIf:
			walkIndexedStmts(st.If.Then, visit, idx, unsafeDepth)
			walkIndexedStmts(st.If.Else, visit, idx, unsafeDepth)
		}
	}
}
