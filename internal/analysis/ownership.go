// Package analysis implements the per-function checks: the flow-sensitive
// ownership and borrow tracker, the lifetime inferencer, the annotated
// lifetime checker, the scope-tree lifetime tracker, and the pointer and
// unsafe-call checks that run for safe functions.
//
// Violations are diagnostics, not errors: every check appends to a Reporter
// and keeps going. A fresh tracker is built per function; nothing survives
// across functions.
package analysis

import (
	"fmt"
	"strings"

	"ferrite/internal/diag"
	"ferrite/internal/ir"
	"ferrite/internal/safety"
	"ferrite/internal/source"
)

// ownershipChecker walks one function's statement tree tracking ownership,
// borrows, and reference facts.
type ownershipChecker struct {
	fn   *ir.Function
	gate *safety.Context
	r    diag.Reporter

	state  *ownState
	frames []scopeFrame

	// Innermost pending loop snapshot: set while replaying a loop body as
	// its simulated second iteration.
	loopSnaps []*ownState

	unsafeDepth int
}

// scopeFrame lists the reference names created inside one lexical scope.
// Popping the frame releases them.
type scopeFrame struct {
	borrowers []string
}

// CheckOwnership runs the ownership and borrow tracker over fn, reporting
// violations through r. Statements inside unsafe nodes or unsafe line
// regions still update tracker state but report nothing.
func CheckOwnership(fn *ir.Function, gate *safety.Context, r diag.Reporter) {
	c := &ownershipChecker{
		fn:     fn,
		gate:   gate,
		r:      r,
		state:  newOwnState(),
		frames: []scopeFrame{{}},
	}
	for name, v := range fn.Variables {
		c.state.vars[name] = v.State
		switch v.Type.Kind {
		case ir.TypeReference:
			c.state.refs[name] = refInfo{}
		case ir.TypeMutableReference:
			c.state.refs[name] = refInfo{mutable: true}
		}
	}
	for i := range fn.Blocks {
		c.walk(fn.Blocks[i].Stmts)
	}
}

func (c *ownershipChecker) errorf(code diag.Code, line uint32, format string, args ...any) {
	if c.unsafeDepth > 0 || c.gate.LineUnsafe(line) {
		return
	}
	diag.Error(c.r, code, source.At(c.fn.Span.File, line), fmt.Sprintf(format, args...))
}

func (c *ownershipChecker) walk(stmts []ir.Stmt) {
	for i := range stmts {
		c.stmt(&stmts[i])
	}
}

func (c *ownershipChecker) stmt(st *ir.Stmt) {
	if n := len(c.loopSnaps); n > 0 {
		c.loopPrecheck(st, c.loopSnaps[n-1])
	}
	switch st.Kind {
	case ir.StmtMove:
		c.move(st)
	case ir.StmtBorrow:
		c.borrow(st)
	case ir.StmtAssign:
		c.assign(st)
	case ir.StmtBlock:
		c.pushFrame()
		c.walk(st.Body)
		c.popFrame()
	case ir.StmtLoop:
		c.loop(st)
	case ir.StmtUnsafe:
		c.unsafeDepth++
		c.walk(st.Body)
		c.unsafeDepth--
	case ir.StmtIf:
		c.conditional(st)
	}
}

func (c *ownershipChecker) move(st *ir.Stmt) {
	from, to := st.Move.From, st.Move.To

	// A move out of a reference is rejected outright.
	if c.state.isReference(from) {
		c.errorf(diag.OwnMoveBehindReference, st.Line,
			"Cannot move out of '%s' because it is behind a reference", from)
		return
	}
	if c.state.moved(from) {
		c.errorf(diag.OwnUseAfterMove, st.Line,
			"Use after move: variable '%s' has already been moved", from)
	}
	c.state.vars[from] = ir.StateMoved
	if !isMoveMarker(to) {
		c.state.vars[to] = ir.StateOwned
	}
}

func (c *ownershipChecker) borrow(st *ir.Stmt) {
	from, to, kind := st.Borrow.From, st.Borrow.To, st.Borrow.Kind

	if c.state.moved(from) {
		c.errorf(diag.OwnBorrowAfterMove, st.Line,
			"Cannot borrow '%s' because it has been moved", from)
		return
	}

	set := c.state.borrowsOf(from)
	switch kind {
	case ir.BorrowImmutable:
		if set.hasMutable() {
			c.errorf(diag.OwnImmutableWhileMutable, st.Line,
				"Cannot create immutable reference to '%s': already mutably borrowed", from)
		}
	case ir.BorrowMutable:
		if set.immutableCount() > 0 {
			c.errorf(diag.OwnMutableWhileImmutable, st.Line,
				"Cannot create mutable reference to '%s': already immutably borrowed", from)
		} else if set.hasMutable() {
			c.errorf(diag.OwnMutableWhileMutable, st.Line,
				"Cannot create mutable reference to '%s': already mutably borrowed", from)
		}
	}

	c.state.addBorrow(from, to, kind)
	c.recordBorrower(to)
}

func (c *ownershipChecker) assign(st *ir.Stmt) {
	lhs := st.Assign.LHS

	if c.state.isReference(lhs) && !c.state.isMutableReference(lhs) {
		c.errorf(diag.OwnAssignThroughConstRef, st.Line,
			"Cannot assign to '%s' through const reference", lhs)
	}
	if rhs := st.Assign.RHS.VarName(); rhs != "" && c.state.moved(rhs) {
		c.errorf(diag.OwnUseAfterMove, st.Line,
			"Use after move: variable '%s' has been moved", rhs)
	}

	// Reassignment restores ownership of a plain variable.
	if !c.state.isReference(lhs) {
		c.state.vars[lhs] = ir.StateOwned
	}
}

// loop simulates two iterations: run the body once, snapshot the result,
// drop borrows whose destinations were declared inside the body, then run
// the body again with every statement first checked against the snapshot.
// A variable moved on the first pass and touched on the second is a use
// after move even though no single textual pass repeats the move.
func (c *ownershipChecker) loop(st *ir.Stmt) {
	locals := make(map[string]struct{})
	collectBorrowDests(st.Body, locals)

	c.walk(st.Body)

	snapshot := c.state.clone()
	c.clearLoopLocals(locals)

	c.loopSnaps = append(c.loopSnaps, snapshot)
	c.walk(st.Body)
	c.loopSnaps = c.loopSnaps[:len(c.loopSnaps)-1]

	c.clearLoopLocals(locals)
}

func (c *ownershipChecker) loopPrecheck(st *ir.Stmt, snapshot *ownState) {
	var used string
	switch st.Kind {
	case ir.StmtMove:
		used = st.Move.From
	case ir.StmtAssign:
		used = st.Assign.RHS.VarName()
	default:
		return
	}
	if used != "" && snapshot.moved(used) {
		c.errorf(diag.OwnLoopUseAfterMove, st.Line,
			"Use after move in loop: variable '%s' was moved in first iteration and used again in second iteration", used)
	}
}

// conditional evaluates both arms against clones of the entry state and
// joins the results. The join never leaves a variable in a state that is
// invalid on either path, so a move on only one arm stays usable after.
func (c *ownershipChecker) conditional(st *ir.Stmt) {
	entry := c.state

	c.state = entry.clone()
	c.walk(st.If.Then)
	thenState := c.state

	c.state = entry.clone()
	c.walk(st.If.Else)
	elseState := c.state

	c.state = join(thenState, elseState)
}

func (c *ownershipChecker) pushFrame() {
	c.frames = append(c.frames, scopeFrame{})
}

func (c *ownershipChecker) popFrame() {
	n := len(c.frames)
	if n == 1 {
		return
	}
	frame := c.frames[n-1]
	c.frames = c.frames[:n-1]
	for _, borrower := range frame.borrowers {
		c.state.releaseBorrower(borrower)
	}
}

func (c *ownershipChecker) recordBorrower(name string) {
	top := &c.frames[len(c.frames)-1]
	top.borrowers = append(top.borrowers, name)
}

func (c *ownershipChecker) clearLoopLocals(locals map[string]struct{}) {
	for name := range locals {
		c.state.releaseBorrower(name)
		delete(c.state.vars, name)
	}
}

func collectBorrowDests(stmts []ir.Stmt, out map[string]struct{}) {
	for i := range stmts {
		st := &stmts[i]
		switch st.Kind {
		case ir.StmtBorrow:
			out[st.Borrow.To] = struct{}{}
		case ir.StmtBlock, ir.StmtLoop, ir.StmtUnsafe:
			collectBorrowDests(st.Body, out)
		case ir.StmtIf:
			collectBorrowDests(st.If.Then, out)
			collectBorrowDests(st.If.Else, out)
		}
	}
}

// Frontends encode std::move into call arguments as moves to synthetic
// temporaries. The source still becomes moved; no destination exists.
func isMoveMarker(name string) bool {
	return strings.HasPrefix(name, "_temp_move_") || strings.HasPrefix(name, "_moved_")
}
