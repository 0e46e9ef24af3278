package analysis

import (
	"fmt"

	"ferrite/internal/diag"
	"ferrite/internal/ir"
	"ferrite/internal/safety"
	"ferrite/internal/source"
)

// wellKnownSafe lists standard functions that never need an unsafe context.
var wellKnownSafe = map[string]struct{}{
	"printf": {}, "scanf": {}, "puts": {}, "gets": {},
	"malloc": {}, "free": {}, "new": {}, "delete": {},
	"memcpy": {}, "memset": {}, "strcpy": {},
	"sin": {}, "cos": {}, "sqrt": {}, "pow": {},
	"move": {}, "std::move": {}, "std::forward": {}, "std::swap": {},
}

// unsafePropChecker enforces that safe functions only call functions known
// to be safe. A callee counts as safe when it is in the checked set, on the
// well-known list, or explicitly annotated safe. A file-level default is not
// enough: propagation needs a per-function guarantee.
type unsafePropChecker struct {
	fn        *ir.Function
	gate      *safety.Context
	knownSafe map[string]struct{}
	r         diag.Reporter
}

// CheckUnsafePropagation reports calls from fn to callees without a safety
// guarantee. knownSafe holds the names of all functions under analysis in
// the current program.
func CheckUnsafePropagation(fn *ir.Function, gate *safety.Context, knownSafe map[string]struct{}, r diag.Reporter) {
	c := &unsafePropChecker{fn: fn, gate: gate, knownSafe: knownSafe, r: r}
	for i := range fn.Blocks {
		c.stmts(fn.Blocks[i].Stmts)
	}
}

func (c *unsafePropChecker) stmts(stmts []ir.Stmt) {
	for i := range stmts {
		st := &stmts[i]
		switch st.Kind {
		case ir.StmtCall:
			if !c.safeCallee(st.Call.Func) {
				c.report(st.Line, fmt.Sprintf(
					"Calling unsafe function '%s' at line %d requires unsafe context", st.Call.Func, st.Line))
			}
			for _, arg := range st.Call.Args {
				if callee, ok := c.findUnsafeCall(&arg); ok {
					c.report(st.Line, fmt.Sprintf(
						"Calling unsafe function '%s' at line %d requires unsafe context", callee, st.Line))
				}
			}
		case ir.StmtAssign:
			if callee, ok := c.findUnsafeCall(&st.Assign.RHS); ok {
				c.report(st.Line, fmt.Sprintf(
					"Calling unsafe function '%s' at line %d requires unsafe context", callee, st.Line))
			}
		case ir.StmtReturn:
			if st.Return.HasValue {
				if callee, ok := c.findUnsafeCall(&st.Return.Value); ok {
					c.report(st.Line, fmt.Sprintf(
						"Calling unsafe function '%s' in return statement requires unsafe context", callee))
				}
			}
		case ir.StmtIf:
			if st.If.HasCond {
				if callee, ok := c.findUnsafeCall(&st.If.Cond); ok {
					c.report(st.Line, fmt.Sprintf(
						"Calling unsafe function '%s' in condition at line %d requires unsafe context", callee, st.Line))
				}
			}
			c.stmts(st.If.Then)
			c.stmts(st.If.Else)
		case ir.StmtBlock, ir.StmtLoop:
			c.stmts(st.Body)
		case ir.StmtUnsafe:
			// Calls inside an unsafe block carry their own justification.
		}
	}
}

func (c *unsafePropChecker) findUnsafeCall(e *ir.Expr) (string, bool) {
	if !e.Valid() {
		return "", false
	}
	switch e.Kind {
	case ir.ExprCall:
		if !c.safeCallee(e.Call.Func) {
			return e.Call.Func, true
		}
		for _, arg := range e.Call.Args {
			if callee, ok := c.findUnsafeCall(arg); ok {
				return callee, true
			}
		}
	case ir.ExprUnary:
		return c.findUnsafeCall(e.Operand)
	case ir.ExprBinary:
		if callee, ok := c.findUnsafeCall(e.Left); ok {
			return callee, true
		}
		return c.findUnsafeCall(e.Right)
	}
	return "", false
}

func (c *unsafePropChecker) safeCallee(name string) bool {
	if _, ok := c.knownSafe[name]; ok {
		return true
	}
	if _, ok := wellKnownSafe[name]; ok {
		return true
	}
	return c.gate != nil && c.gate.Overrides[name] == safety.ModeSafe
}

func (c *unsafePropChecker) report(line uint32, msg string) {
	if c.gate.LineUnsafe(line) {
		return
	}
	diag.Error(c.r, diag.SafUnsafeCall, source.At(c.fn.Span.File, line), msg)
}
