package analysis

import (
	"fmt"

	"ferrite/internal/diag"
	"ferrite/internal/ir"
	"ferrite/internal/safety"
	"ferrite/internal/source"
)

// CheckPointerSafety flags raw pointer dereference and address-of operations
// appearing outside unsafe regions.
func CheckPointerSafety(fn *ir.Function, gate *safety.Context, r diag.Reporter) {
	report := func(line uint32, msg string) {
		if gate.LineUnsafe(line) {
			return
		}
		diag.Error(r, diag.SafPointerOp, source.At(fn.Span.File, line), msg)
	}
	for i := range fn.Blocks {
		pointerStmts(fn.Blocks[i].Stmts, report)
	}
}

func pointerStmts(stmts []ir.Stmt, report func(line uint32, msg string)) {
	for i := range stmts {
		st := &stmts[i]
		switch st.Kind {
		case ir.StmtAssign:
			if op, ok := pointerOpIn(&st.Assign.RHS); ok {
				report(st.Line, fmt.Sprintf(
					"Unsafe pointer %s at line %d: pointer operations require unsafe context", op, st.Line))
			}
		case ir.StmtCall:
			for _, arg := range st.Call.Args {
				if op, ok := pointerOpIn(&arg); ok {
					report(st.Line, fmt.Sprintf(
						"Unsafe pointer %s in function call at line %d: pointer operations require unsafe context", op, st.Line))
				}
			}
		case ir.StmtReturn:
			if st.Return.HasValue {
				if op, ok := pointerOpIn(&st.Return.Value); ok {
					report(st.Line, fmt.Sprintf(
						"Unsafe pointer %s in return statement: pointer operations require unsafe context", op))
				}
			}
		case ir.StmtIf:
			if st.If.HasCond {
				if op, ok := pointerOpIn(&st.If.Cond); ok {
					report(st.Line, fmt.Sprintf(
						"Unsafe pointer %s in condition at line %d: pointer operations require unsafe context", op, st.Line))
				}
			}
			pointerStmts(st.If.Then, report)
			pointerStmts(st.If.Else, report)
		case ir.StmtBlock, ir.StmtLoop:
			pointerStmts(st.Body, report)
		case ir.StmtUnsafe:
			// Pointer work inside an unsafe block is the point of the block.
		}
	}
}

// pointerOpIn finds the first raw pointer operation in the expression tree.
// Move wrappers are transparent to ownership, not pointers, and are not
// descended into.
func pointerOpIn(e *ir.Expr) (string, bool) {
	if !e.Valid() {
		return "", false
	}
	switch e.Kind {
	case ir.ExprUnary:
		switch e.Op {
		case ir.OpDeref, ir.OpAddrOf:
			return e.Op.String(), true
		}
	case ir.ExprCall:
		for _, arg := range e.Call.Args {
			if op, ok := pointerOpIn(arg); ok {
				return op, true
			}
		}
	case ir.ExprBinary:
		if op, ok := pointerOpIn(e.Left); ok {
			return op, true
		}
		return pointerOpIn(e.Right)
	}
	return "", false
}
