package analysis

import (
	"strings"
	"testing"

	"ferrite/internal/diag"
	"ferrite/internal/ir"
	"ferrite/internal/safety"
)

func callStmt(line uint32, fn, result string, args ...string) ir.Stmt {
	st := ir.Stmt{Kind: ir.StmtCall, Line: line, Call: ir.CallStmt{Func: fn, Result: result}}
	for _, a := range args {
		st.Call.Args = append(st.Call.Args, ir.VarExpr(a))
	}
	return st
}

func retStmt(line uint32, varName string) ir.Stmt {
	return ir.Stmt{Kind: ir.StmtReturn, Line: line, Return: ir.ReturnStmt{HasValue: true, Value: ir.VarExpr(varName)}}
}

func runInference(t *testing.T, fn *ir.Function) []string {
	t.Helper()
	bag := diag.NewBag(64)
	CheckInferredLifetimes(fn, safety.NewContext(), diag.BagReporter{Bag: bag})
	msgs := make([]string, 0, bag.Len())
	for _, d := range bag.Items() {
		msgs = append(msgs, d.Message)
	}
	return msgs
}

func TestInferIntervalsAndNames(t *testing.T) {
	fn := testFn("simple", []ir.Stmt{
		asn(2, "x", ""),              // index 0
		br(3, "x", "r", ir.BorrowImmutable), // index 1
		retStmt(4, "r"),              // index 2
	}, ownedVar("x"), refVar("r", false))

	in := NewInferencer()
	in.InferFunction(fn)

	r := in.Lifetime("r")
	if r == nil || r.Start != 1 || r.End != 2 {
		t.Fatalf("lifetime of r = %+v, want [1, 2]", r)
	}
	x := in.Lifetime("x")
	if x == nil || x.Start != 0 || x.End != 1 {
		t.Fatalf("lifetime of x = %+v, want [0, 1]", x)
	}
	// Names assign in sorted variable order.
	if r.Name != "'inferred_0" || x.Name != "'inferred_1" {
		t.Fatalf("names = %q, %q", r.Name, x.Name)
	}
	if _, ok := r.Deps["x"]; !ok {
		t.Fatalf("r should depend on x, deps = %v", r.Deps)
	}
}

func TestInferOverlapAndAliveAt(t *testing.T) {
	fn := testFn("overlap", []ir.Stmt{
		asn(2, "a", ""),     // index 0
		asn(3, "b", ""),     // index 1
		callStmt(4, "use", "", "a"), // index 2: a alive through here
	}, ownedVar("a"), ownedVar("b"))

	in := NewInferencer()
	in.InferFunction(fn)

	if !in.Overlap("a", "b") {
		t.Fatalf("a [0,2] and b [1,1] should overlap")
	}
	if !in.AliveAt("a", 2) {
		t.Fatalf("a should be alive at its last use")
	}
	if in.AliveAt("b", 2) {
		t.Fatalf("b ends at index 1")
	}
	if in.Overlap("a", "ghost") {
		t.Fatalf("unknown variables never overlap")
	}
}

func TestInferMoveCarriesDeps(t *testing.T) {
	fn := testFn("carrier", []ir.Stmt{
		asn(2, "data", ""),
		br(3, "data", "r", ir.BorrowImmutable),
		mv(4, "r", "r2"),
	}, ownedVar("data"), refVar("r", false), refVar("r2", false))

	in := NewInferencer()
	in.InferFunction(fn)

	r2 := in.Lifetime("r2")
	if r2 == nil {
		t.Fatalf("no lifetime inferred for r2")
	}
	if _, ok := r2.Deps["data"]; !ok {
		t.Fatalf("move should carry deps along, got %v", r2.Deps)
	}
}

func TestInferBorrowBeforeDefinition(t *testing.T) {
	fn := testFn("early", []ir.Stmt{
		br(2, "x", "r", ir.BorrowImmutable),
		asn(3, "x", ""),
	}, ownedVar("x"), refVar("r", false))
	msgs := runInference(t, fn)
	found := false
	for _, m := range msgs {
		if strings.Contains(m, "Cannot borrow 'x': variable is not alive at this point") {
			found = true
		}
	}
	if !found {
		t.Fatalf("borrow before definition not flagged: %v", msgs)
	}
}

func TestInferMoveOfUndefinedVariable(t *testing.T) {
	fn := testFn("ghostly", []ir.Stmt{
		mv(2, "ghost", "y"),
	})
	msgs := runInference(t, fn)
	found := false
	for _, m := range msgs {
		if strings.Contains(m, "Cannot move 'ghost': variable is not alive at this point") {
			found = true
		}
	}
	if !found {
		t.Fatalf("move of undefined variable not flagged: %v", msgs)
	}
}

func TestInferConflictingMutableBorrow(t *testing.T) {
	fn := testFn("conflict", []ir.Stmt{
		br(2, "x", "r1", ir.BorrowImmutable), // index 0
		br(3, "x", "r2", ir.BorrowMutable),   // index 1
		retStmt(4, "r1"),                     // index 2 keeps r1 alive
	}, ownedVar("x"), refVar("r1", false), refVar("r2", true))
	msgs := runInference(t, fn)
	found := false
	for _, m := range msgs {
		if strings.Contains(m, "Cannot create mutable borrow 'r2': 'x' is already borrowed by 'r1'") {
			found = true
		}
	}
	if !found {
		t.Fatalf("overlapping mutable borrow not flagged: %v", msgs)
	}
}

func TestInferNonOverlappingMutableBorrowAllowed(t *testing.T) {
	fn := testFn("sequential", []ir.Stmt{
		br(2, "x", "r1", ir.BorrowImmutable), // r1: [0, 0]
		br(3, "x", "r2", ir.BorrowMutable),   // r2: [1, 1]
	}, ownedVar("x"), refVar("r1", false), refVar("r2", true))
	for _, m := range runInference(t, fn) {
		if strings.Contains(m, "already borrowed by") {
			t.Fatalf("disjoint intervals flagged as a conflict: %q", m)
		}
	}
}

func TestInferDanglingReturn(t *testing.T) {
	fn := testFn("dangler", []ir.Stmt{
		asn(2, "local", ""),
		br(3, "local", "r", ir.BorrowImmutable),
		retStmt(4, "r"),
	}, ownedVar("local"), refVar("r", false))
	msgs := runInference(t, fn)
	found := false
	for _, m := range msgs {
		if strings.Contains(m, "Potential dangling reference: returning 'r' which depends on local variable 'local'") {
			found = true
		}
	}
	if !found {
		t.Fatalf("dangling return not flagged: %v", msgs)
	}
}

func TestInferReturnOfParameterBorrowAllowed(t *testing.T) {
	fn := testFn("forwarder", []ir.Stmt{
		br(2, "param_data", "r", ir.BorrowImmutable),
		retStmt(3, "r"),
	}, ownedVar("param_data"), refVar("r", false))
	for _, m := range runInference(t, fn) {
		if strings.Contains(m, "dangling") {
			t.Fatalf("parameter-backed return flagged: %q", m)
		}
	}
}

func TestInferUnsafeBlockSuppressed(t *testing.T) {
	fn := testFn("hatch", []ir.Stmt{
		unsafeStmt(mv(3, "ghost", "y")),
	})
	wantNone(t, runInference(t, fn))
}
