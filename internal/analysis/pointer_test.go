package analysis

import (
	"testing"

	"ferrite/internal/diag"
	"ferrite/internal/ir"
	"ferrite/internal/safety"
)

func deref(operand ir.Expr) ir.Expr {
	return ir.Expr{Kind: ir.ExprUnary, Op: ir.OpDeref, Operand: &operand}
}

func addrOf(operand ir.Expr) ir.Expr {
	return ir.Expr{Kind: ir.ExprUnary, Op: ir.OpAddrOf, Operand: &operand}
}

func runPointer(t *testing.T, fn *ir.Function, gate *safety.Context) []string {
	t.Helper()
	bag := diag.NewBag(64)
	CheckPointerSafety(fn, gate, diag.BagReporter{Bag: bag})
	msgs := make([]string, 0, bag.Len())
	for _, d := range bag.Items() {
		msgs = append(msgs, d.Message)
	}
	return msgs
}

func TestPointerDerefInAssignment(t *testing.T) {
	fn := testFn("reader", []ir.Stmt{
		{Kind: ir.StmtAssign, Line: 3, Assign: ir.AssignStmt{LHS: "v", RHS: deref(ir.VarExpr("p"))}},
	})
	msgs := runPointer(t, fn, safety.NewContext())
	wantOne(t, msgs, "Unsafe pointer dereference at line 3")
}

func TestPointerAddrOfInCallArgument(t *testing.T) {
	fn := testFn("caller", []ir.Stmt{
		{Kind: ir.StmtCall, Line: 4, Call: ir.CallStmt{Func: "takes_ptr", Args: []ir.Expr{addrOf(ir.VarExpr("x"))}}},
	})
	msgs := runPointer(t, fn, safety.NewContext())
	wantOne(t, msgs, "Unsafe pointer address-of in function call at line 4")
}

func TestPointerDerefInReturn(t *testing.T) {
	fn := testFn("getter", []ir.Stmt{
		{Kind: ir.StmtReturn, Line: 5, Return: ir.ReturnStmt{HasValue: true, Value: deref(ir.VarExpr("p"))}},
	})
	msgs := runPointer(t, fn, safety.NewContext())
	wantOne(t, msgs, "Unsafe pointer dereference in return statement")
}

func TestPointerDerefInCondition(t *testing.T) {
	fn := testFn("brancher", []ir.Stmt{
		{Kind: ir.StmtIf, Line: 6, If: ir.IfStmt{
			HasCond: true,
			Cond:    deref(ir.VarExpr("p")),
			Then:    []ir.Stmt{asn(7, "v", "")},
		}},
	})
	msgs := runPointer(t, fn, safety.NewContext())
	wantOne(t, msgs, "Unsafe pointer dereference in condition at line 6")
}

func TestPointerNestedInBinaryExpr(t *testing.T) {
	left := deref(ir.VarExpr("p"))
	fn := testFn("adder", []ir.Stmt{
		{Kind: ir.StmtAssign, Line: 3, Assign: ir.AssignStmt{LHS: "v", RHS: ir.Expr{
			Kind:  ir.ExprBinary,
			BinOp: "+",
			Left:  &left,
			Right: &ir.Expr{Kind: ir.ExprLit, Lit: "1"},
		}}},
	})
	msgs := runPointer(t, fn, safety.NewContext())
	wantOne(t, msgs, "Unsafe pointer dereference at line 3")
}

func TestPointerInsideUnsafeBlockAllowed(t *testing.T) {
	fn := testFn("hatch", []ir.Stmt{
		unsafeStmt(ir.Stmt{Kind: ir.StmtAssign, Line: 3, Assign: ir.AssignStmt{LHS: "v", RHS: deref(ir.VarExpr("p"))}}),
	})
	wantNone(t, runPointer(t, fn, safety.NewContext()))
}

func TestPointerInUnsafeLineRegionAllowed(t *testing.T) {
	fn := testFn("hatch", []ir.Stmt{
		{Kind: ir.StmtAssign, Line: 3, Assign: ir.AssignStmt{LHS: "v", RHS: deref(ir.VarExpr("p"))}},
	})
	gate := safety.NewContext()
	gate.Regions = append(gate.Regions, safety.Region{Start: 2, End: 4})
	wantNone(t, runPointer(t, fn, gate))
}

func TestPointerDeclarationAloneAllowed(t *testing.T) {
	fn := testFn("holder", []ir.Stmt{
		asn(3, "p", ""),
	}, &ir.Variable{Name: "p", Type: ir.TypeInfo{Kind: ir.TypeRawPointer}})
	wantNone(t, runPointer(t, fn, safety.NewContext()))
}
