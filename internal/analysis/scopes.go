package analysis

import (
	"fmt"
	"strings"

	"ferrite/internal/diag"
	"ferrite/internal/ir"
	"ferrite/internal/safety"
	"ferrite/internal/sig"
	"ferrite/internal/source"
)

type scopeConstraintKind uint8

const (
	constraintOutlives scopeConstraintKind = iota
	constraintBorrowedFrom
	constraintMustLiveUntil
)

// scopeConstraint is a deferred lifetime fact collected during the walk and
// validated once the whole function has been seen.
type scopeConstraint struct {
	kind     scopeConstraintKind
	longer   string
	shorter  string
	ref      string
	source   string
	lifetime string
	scope    int
	location string
	line     uint32
}

// scopeTracker models the function as a tree of lexical scopes numbered in
// creation order, with scope 0 the function body itself. Every declaration
// records the latest owning scope, so re-borrowing a reference in another
// scope moves it there.
type scopeTracker struct {
	fn   *ir.Function
	gate *safety.Context
	sigs *sig.Store
	r    diag.Reporter

	parents       []int
	varScope      map[string]int
	refLifetime   map[string]string
	lifetimeRange map[string][2]int
	constraints   []scopeConstraint
	cur           int
	unsafeDepth   int
}

// CheckScopedLifetimes verifies that references never outlive the scope of
// the data they borrow from, and that signature bounds hold across scopes.
func CheckScopedLifetimes(fn *ir.Function, sigs *sig.Store, gate *safety.Context, r diag.Reporter) {
	t := &scopeTracker{
		fn:            fn,
		gate:          gate,
		sigs:          sigs,
		r:             r,
		parents:       []int{-1},
		varScope:      make(map[string]int),
		refLifetime:   make(map[string]string),
		lifetimeRange: make(map[string][2]int),
	}

	// Every declared variable starts in the function scope. References get a
	// synthetic lifetime with a degenerate range there.
	for _, name := range sortedVarNames(fn) {
		t.varScope[name] = 0
		if fn.IsReferenceVar(name) {
			lt := "'param_" + name
			t.refLifetime[name] = lt
			t.lifetimeRange[lt] = [2]int{0, 0}
		}
	}

	t.walkBlocks()
	t.validate()
}

// walkBlocks visits blocks in control-flow order: entry blocks first, each
// block once, successors queued as they become reachable.
func (t *scopeTracker) walkBlocks() {
	indeg := make(map[ir.BlockID]int, len(t.fn.Blocks))
	byID := make(map[ir.BlockID]*ir.Block, len(t.fn.Blocks))
	for i := range t.fn.Blocks {
		b := &t.fn.Blocks[i]
		byID[b.ID] = b
		if _, ok := indeg[b.ID]; !ok {
			indeg[b.ID] = 0
		}
		for _, s := range b.Succs {
			indeg[s]++
		}
	}

	var queue []ir.BlockID
	for i := range t.fn.Blocks {
		if indeg[t.fn.Blocks[i].ID] == 0 {
			queue = append(queue, t.fn.Blocks[i].ID)
		}
	}
	seen := make(map[ir.BlockID]struct{})
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		b := byID[id]
		if b == nil {
			continue
		}
		t.walkStmts(b.Stmts)
		for _, s := range b.Succs {
			if _, ok := seen[s]; !ok {
				queue = append(queue, s)
			}
		}
	}
	// Blocks unreachable through Succs still get walked once.
	for i := range t.fn.Blocks {
		b := &t.fn.Blocks[i]
		if _, ok := seen[b.ID]; !ok {
			seen[b.ID] = struct{}{}
			t.walkStmts(b.Stmts)
		}
	}
}

func (t *scopeTracker) walkStmts(stmts []ir.Stmt) {
	for i := range stmts {
		t.stmt(&stmts[i])
	}
}

func (t *scopeTracker) stmt(st *ir.Stmt) {
	switch st.Kind {
	case ir.StmtBorrow:
		t.borrow(st)
	case ir.StmtCall:
		t.call(st)
	case ir.StmtReturn:
		t.ret(st)
	case ir.StmtBlock, ir.StmtLoop:
		prev := t.pushScope()
		t.walkStmts(st.Body)
		t.popScope(prev)
	case ir.StmtIf:
		prev := t.pushScope()
		t.walkStmts(st.If.Then)
		t.popScope(prev)
		if len(st.If.Else) > 0 {
			prev = t.pushScope()
			t.walkStmts(st.If.Else)
			t.popScope(prev)
		}
	case ir.StmtUnsafe:
		t.unsafeDepth++
		t.walkStmts(st.Body)
		t.unsafeDepth--
	}
}

func (t *scopeTracker) borrow(st *ir.Stmt) {
	from, to := st.Borrow.From, st.Borrow.To
	if !t.alive(from, t.cur) {
		t.report(diag.ScpBorrowNotAlive, st.Line, fmt.Sprintf(
			"Cannot borrow from '%s': variable is not alive in current scope", from))
		return
	}
	t.queue(scopeConstraint{
		kind:     constraintBorrowedFrom,
		ref:      to,
		source:   from,
		scope:    t.cur,
		location: fmt.Sprintf("borrow of %s from %s", to, from),
		line:     st.Line,
	})
	t.declareRef(to, "'"+to)
}

func (t *scopeTracker) call(st *ir.Stmt) {
	signature := t.sigs.Get(st.Call.Func)
	if signature == nil {
		return
	}
	args := st.Call.ArgNames()
	argLifetimes := make([]string, len(args))
	for i, arg := range args {
		if arg == "" {
			continue
		}
		argLifetimes[i] = t.refLifetime[arg]
	}
	location := fmt.Sprintf("call to %s", st.Call.Func)
	for _, bound := range signature.Bounds {
		longer := mapLifetime(bound.Longer, argLifetimes)
		shorter := mapLifetime(bound.Shorter, argLifetimes)
		if longer == "" || shorter == "" {
			continue
		}
		t.queue(scopeConstraint{
			kind:     constraintOutlives,
			longer:   longer,
			shorter:  shorter,
			location: location,
			line:     st.Line,
		})
	}
	if st.Call.Result == "" || signature.Return == nil {
		return
	}
	switch signature.Return.Kind {
	case sig.AnnRef, sig.AnnMutRef:
		lt := mapLifetime(signature.Return.Lifetime, argLifetimes)
		if lt == "" {
			lt = "'" + st.Call.Result
		}
		t.declareRef(st.Call.Result, lt)
		t.queue(scopeConstraint{
			kind:     constraintMustLiveUntil,
			lifetime: lt,
			scope:    t.cur,
			location: location,
			line:     st.Line,
		})
	case sig.AnnOwned:
		t.varScope[st.Call.Result] = t.cur
	}
}

func (t *scopeTracker) ret(st *ir.Stmt) {
	if !st.Return.HasValue {
		return
	}
	name := st.Return.Value.VarName()
	if name == "" || !t.fn.IsReferenceVar(name) {
		return
	}
	scope, ok := t.varScope[name]
	if !ok || scope == 0 || t.isParameter(name) {
		return
	}
	t.report(diag.ScpDanglingReturn, st.Line, fmt.Sprintf(
		"Returning reference to local variable '%s' - will create dangling reference", name))
}

func (t *scopeTracker) validate() {
	for i := range t.constraints {
		c := &t.constraints[i]
		switch c.kind {
		case constraintOutlives:
			if !t.checkOutlives(c.longer, c.shorter) {
				t.report(diag.ScpOutlivesViolation, c.line, fmt.Sprintf(
					"Lifetime '%s' does not outlive '%s' at %s", c.longer, c.shorter, c.location))
			}
		case constraintBorrowedFrom:
			refScope, ok := t.varScope[c.ref]
			if ok && !t.alive(c.source, refScope) {
				t.report(diag.ScpBorrowEscapes, c.line, fmt.Sprintf(
					"Reference '%s' borrows from '%s' which is not alive at %s", c.ref, c.source, c.location))
			}
		case constraintMustLiveUntil:
			rng, ok := t.lifetimeRange[c.lifetime]
			if ok && !t.ancestorOrSelf(rng[1], c.scope) {
				t.report(diag.ScpMustLiveUntil, c.line, fmt.Sprintf(
					"Lifetime '%s' must live until scope %d but ends at scope %d at %s",
					c.lifetime, c.scope, rng[1], c.location))
			}
		}
	}
}

// checkOutlives compares registered scope ranges: the longer lifetime must
// enclose the shorter one. With either range unregistered the only evidence
// left is name identity.
func (t *scopeTracker) checkOutlives(longer, shorter string) bool {
	l, lok := t.lifetimeRange[longer]
	s, sok := t.lifetimeRange[shorter]
	if lok && sok {
		return l[0] <= s[0] && l[1] >= s[1]
	}
	return longer == shorter
}

// declareRef records a reference in the current scope, moving it here if it
// was declared elsewhere, and registers its lifetime's scope range once.
func (t *scopeTracker) declareRef(name, lifetime string) {
	t.varScope[name] = t.cur
	t.refLifetime[name] = lifetime
	if _, ok := t.lifetimeRange[lifetime]; !ok {
		t.lifetimeRange[lifetime] = [2]int{t.cur, t.cur}
	}
}

// alive reports whether name's declaring scope encloses the given scope.
func (t *scopeTracker) alive(name string, scope int) bool {
	decl, ok := t.varScope[name]
	if !ok {
		return false
	}
	return t.ancestorOrSelf(decl, scope)
}

func (t *scopeTracker) ancestorOrSelf(anc, scope int) bool {
	for scope != -1 {
		if scope == anc {
			return true
		}
		scope = t.parents[scope]
	}
	return false
}

func (t *scopeTracker) pushScope() int {
	t.parents = append(t.parents, t.cur)
	prev := t.cur
	t.cur = len(t.parents) - 1
	return prev
}

func (t *scopeTracker) popScope(prev int) {
	t.cur = prev
}

func (t *scopeTracker) queue(c scopeConstraint) {
	if t.unsafeDepth > 0 {
		return
	}
	t.constraints = append(t.constraints, c)
}

func (t *scopeTracker) report(code diag.Code, line uint32, msg string) {
	if t.unsafeDepth > 0 || t.gate.LineUnsafe(line) {
		return
	}
	diag.Error(t.r, code, source.At(t.fn.Span.File, line), msg)
}

// isParameter treats conventional parameter names and variables entering the
// function already owned as parameters.
func (t *scopeTracker) isParameter(name string) bool {
	if strings.HasPrefix(name, "param") || strings.HasPrefix(name, "arg") {
		return true
	}
	if v, ok := t.fn.Variables[name]; ok {
		return v.State == ir.StateOwned
	}
	return false
}
