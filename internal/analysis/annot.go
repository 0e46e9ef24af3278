package analysis

import (
	"fmt"
	"sort"
	"strings"

	"ferrite/internal/diag"
	"ferrite/internal/ir"
	"ferrite/internal/safety"
	"ferrite/internal/sig"
	"ferrite/internal/source"
)

// outlivesGraph holds declared 'longer: 'shorter bounds as a small digraph.
// The relation is reflexive and transitive over the registered edges.
type outlivesGraph struct {
	edges map[string]map[string]struct{}
}

func newOutlivesGraph() *outlivesGraph {
	return &outlivesGraph{edges: make(map[string]map[string]struct{})}
}

// Add registers that longer outlives shorter.
func (g *outlivesGraph) Add(longer, shorter string) {
	set := g.edges[longer]
	if set == nil {
		set = make(map[string]struct{})
		g.edges[longer] = set
	}
	set[shorter] = struct{}{}
}

// Outlives reports whether longer is known to outlive shorter.
func (g *outlivesGraph) Outlives(longer, shorter string) bool {
	if longer == shorter {
		return true
	}
	return g.reach(longer, shorter, make(map[string]struct{}))
}

func (g *outlivesGraph) reach(from, target string, visited map[string]struct{}) bool {
	if _, seen := visited[from]; seen {
		return false
	}
	visited[from] = struct{}{}
	for next := range g.edges[from] {
		if next == target || g.reach(next, target, visited) {
			return true
		}
	}
	return false
}

// annotScope tracks, per function, which names carry a lifetime and which
// own their data outright.
type annotScope struct {
	lifetimes map[string]string
	owned     map[string]struct{}
	bounds    *outlivesGraph
}

func newAnnotScope() *annotScope {
	return &annotScope{
		lifetimes: make(map[string]string),
		owned:     make(map[string]struct{}),
		bounds:    newOutlivesGraph(),
	}
}

func (s *annotScope) setLifetime(name, lifetime string) {
	s.lifetimes[name] = lifetime
}

func (s *annotScope) lifetime(name string) (string, bool) {
	lt, ok := s.lifetimes[name]
	return lt, ok
}

func (s *annotScope) markOwned(name string) {
	s.owned[name] = struct{}{}
}

func (s *annotScope) isOwned(name string) bool {
	_, ok := s.owned[name]
	return ok
}

// CheckAnnotated validates call sites in fn against declared lifetime
// signatures. Calls to functions without a signature are ignored, as are
// calls whose argument count does not match the declaration.
func CheckAnnotated(fn *ir.Function, sigs *sig.Store, gate *safety.Context, r diag.Reporter) {
	scope := newAnnotScope()

	names := sortedVarNames(fn)
	for _, name := range names {
		if fn.IsReferenceVar(name) {
			scope.setLifetime(name, "'"+name)
		} else {
			scope.markOwned(name)
		}
	}

	// The function's own declared bounds are the facts callee bounds are
	// checked against.
	if own := sigs.Get(fn.Name); own != nil {
		for _, b := range own.Bounds {
			scope.bounds.Add("'"+b.Longer, "'"+b.Shorter)
		}
	}

	report := func(code diag.Code, st *ir.Stmt, depth int, msg string) {
		if depth > 0 || gate.LineUnsafe(st.Line) {
			return
		}
		diag.Error(r, code, source.At(fn.Span.File, st.Line), msg)
	}

	idx := 0
	walkIndexed(fn, func(st *ir.Stmt, _, unsafeDepth int) {
		switch st.Kind {
		case ir.StmtCall:
			signature := sigs.Get(st.Call.Func)
			if signature == nil {
				return
			}
			checkAnnotatedCall(st, signature, scope, fn, func(code diag.Code, msg string) {
				report(code, st, unsafeDepth, msg)
			})
		case ir.StmtBorrow:
			// A reference shares its source's lifetime; borrowing owned
			// data mints a fresh one.
			if lt, ok := scope.lifetime(st.Borrow.From); ok {
				scope.setLifetime(st.Borrow.To, lt)
			} else if scope.isOwned(st.Borrow.From) {
				scope.setLifetime(st.Borrow.To, "'"+st.Borrow.To)
			}
		case ir.StmtReturn:
			if !st.Return.HasValue {
				return
			}
			val := st.Return.Value.VarName()
			if val == "" {
				return
			}
			lt, ok := scope.lifetime(val)
			if !ok {
				return
			}
			for _, name := range names {
				if strings.Contains(lt, name) && !annotParameter(name) {
					report(diag.AnnDanglingReturn, st, unsafeDepth, fmt.Sprintf(
						"Returning reference to local variable '%s' - this will create a dangling reference", name))
				}
			}
		}
	}, &idx)
}

func checkAnnotatedCall(st *ir.Stmt, signature *sig.Signature, scope *annotScope, fn *ir.Function, report func(code diag.Code, msg string)) {
	args := st.Call.ArgNames()
	if len(args) != len(signature.Params) {
		return
	}

	// Resolve each argument to its tracked lifetime, "" when owned, or a
	// synthetic per-position name when unknown.
	argLifetimes := make([]string, len(args))
	for i, arg := range args {
		switch {
		case arg == "":
			argLifetimes[i] = fmt.Sprintf("'arg%d", i)
		default:
			if lt, ok := scope.lifetime(arg); ok {
				argLifetimes[i] = lt
			} else if scope.isOwned(arg) {
				argLifetimes[i] = ""
			} else {
				argLifetimes[i] = fmt.Sprintf("'arg%d", i)
			}
		}
	}

	for i, ann := range signature.Params {
		if ann == nil {
			continue
		}
		arg := args[i]
		if arg == "" {
			continue
		}
		switch ann.Kind {
		case sig.AnnRef, sig.AnnMutRef:
			if scope.isOwned(arg) {
				report(diag.AnnExpectsReference, fmt.Sprintf(
					"Function '%s' expects a reference for parameter %d, but '%s' is owned",
					st.Call.Func, i+1, arg))
			}
		case sig.AnnOwned:
			if !scope.isOwned(arg) {
				report(diag.AnnExpectsOwnership, fmt.Sprintf(
					"Function '%s' expects ownership of parameter %d, but '%s' is a reference",
					st.Call.Func, i+1, arg))
			}
		}
	}

	for _, bound := range signature.Bounds {
		longer := mapLifetime(bound.Longer, argLifetimes)
		shorter := mapLifetime(bound.Shorter, argLifetimes)
		if longer == "" || shorter == "" {
			continue
		}
		if !scope.bounds.Outlives(longer, shorter) {
			report(diag.AnnOutlivesViolation, fmt.Sprintf(
				"Lifetime constraint violated in call to '%s': '%s' must outlive '%s'",
				st.Call.Func, longer, shorter))
		}
	}

	// Return annotations update bookkeeping only; the scoped tracker owns
	// the corresponding liveness checks.
	if st.Call.Result != "" && signature.Return != nil {
		switch signature.Return.Kind {
		case sig.AnnRef, sig.AnnMutRef:
			if lt := mapLifetime(signature.Return.Lifetime, argLifetimes); lt != "" {
				scope.setLifetime(st.Call.Result, lt)
			}
		case sig.AnnOwned:
			scope.markOwned(st.Call.Result)
		}
	}
}

// mapLifetime resolves a signature lifetime name to the caller's world:
// 'a, 'b, 'c bind positionally to arguments 0, 1, 2; any other name passes
// through unresolved. An empty result means the position is owned.
func mapLifetime(name string, argLifetimes []string) string {
	switch name {
	case "a", "b", "c":
		pos := int(name[0] - 'a')
		if pos < len(argLifetimes) {
			return argLifetimes[pos]
		}
		return ""
	}
	return "'" + name
}

// annotParameter is the parameter heuristic used by the annotation checker.
func annotParameter(name string) bool {
	return strings.HasPrefix(name, "param") || strings.HasPrefix(name, "arg")
}

func sortedVarNames(fn *ir.Function) []string {
	names := make([]string, 0, len(fn.Variables))
	for name := range fn.Variables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
