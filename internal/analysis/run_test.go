package analysis

import (
	"reflect"
	"testing"

	"ferrite/internal/ir"
	"ferrite/internal/safety"
)

func twoFunctionProgram() *ir.Program {
	return &ir.Program{
		Functions: []ir.Function{
			*testFn("first", []ir.Stmt{
				asn(2, "x", ""),
				mv(3, "x", "y"),
				mv(4, "x", "z"),
			}, ownedVar("x")),
			*testFn("second", []ir.Stmt{
				asn(2, "a", ""),
				br(3, "a", "r1", ir.BorrowMutable),
				br(4, "a", "r2", ir.BorrowImmutable),
			}, ownedVar("a")),
		},
	}
}

func TestProgramCheckIsDeterministic(t *testing.T) {
	gate := safety.NewContext()
	gate.FileDefault = safety.ModeSafe

	var runs [][]string
	for range 3 {
		bag := CheckProgram(twoFunctionProgram(), nil, gate)
		msgs := make([]string, 0, bag.Len())
		for _, d := range bag.Items() {
			msgs = append(msgs, d.Function+": "+d.Message)
		}
		runs = append(runs, msgs)
	}
	if !reflect.DeepEqual(runs[0], runs[1]) || !reflect.DeepEqual(runs[1], runs[2]) {
		t.Fatalf("runs differ:\n%v\n%v\n%v", runs[0], runs[1], runs[2])
	}
	if len(runs[0]) == 0 {
		t.Fatalf("expected diagnostics from both functions")
	}
}

func TestProgramCheckGroupsByFunctionOrder(t *testing.T) {
	gate := safety.NewContext()
	gate.FileDefault = safety.ModeSafe

	bag := CheckProgram(twoFunctionProgram(), nil, gate)
	sawSecond := false
	for _, d := range bag.Items() {
		switch d.Function {
		case "first":
			if sawSecond {
				t.Fatalf("diagnostics not grouped in declaration order")
			}
		case "second":
			sawSecond = true
		default:
			t.Fatalf("unexpected function %q", d.Function)
		}
	}
	if !sawSecond {
		t.Fatalf("no diagnostics attributed to the second function")
	}
}

func TestProgramCheckHonorsSafetyGate(t *testing.T) {
	gate := safety.NewContext()
	gate.Overrides["first"] = safety.ModeSafe

	bag := CheckProgram(twoFunctionProgram(), nil, gate)
	for _, d := range bag.Items() {
		if d.Function != "first" {
			t.Fatalf("unchecked function produced a diagnostic: %+v", d)
		}
	}
	if bag.Len() == 0 {
		t.Fatalf("checked function produced no diagnostics")
	}
}

func TestFunctionCheckStampsFunctionName(t *testing.T) {
	fn := testFn("stamped", []ir.Stmt{
		mv(2, "x", "y"),
		mv(3, "x", "z"),
	}, ownedVar("x"))
	gate := safety.NewContext()
	bag := CheckFunction(fn, nil, gate, nil)
	if bag.Len() == 0 {
		t.Fatalf("expected diagnostics")
	}
	for _, d := range bag.Items() {
		if d.Function != "stamped" {
			t.Fatalf("diagnostic missing function stamp: %+v", d)
		}
	}
}
