package analysis

import (
	"ferrite/internal/diag"
	"ferrite/internal/ir"
	"ferrite/internal/safety"
	"ferrite/internal/sig"
)

// DefaultMaxDiagnostics bounds per-function collection; pathological inputs
// otherwise produce one diagnostic per statement.
const DefaultMaxDiagnostics = 512

// CheckFunction runs every analysis over one function and collects the
// results. knownSafe names the functions of the surrounding program that are
// themselves under analysis; it feeds the unsafe-propagation check.
func CheckFunction(fn *ir.Function, sigs *sig.Store, gate *safety.Context, knownSafe map[string]struct{}) *diag.Bag {
	bag := diag.NewBag(DefaultMaxDiagnostics)
	r := diag.FuncReporter{
		Next:     diag.BagReporter{Bag: bag},
		Function: fn.Name,
	}

	CheckOwnership(fn, gate, r)
	CheckInferredLifetimes(fn, gate, r)
	if sigs.Len() > 0 {
		CheckAnnotated(fn, sigs, gate, r)
		CheckScopedLifetimes(fn, sigs, gate, r)
	}
	CheckPointerSafety(fn, gate, r)
	CheckUnsafePropagation(fn, gate, knownSafe, r)

	return bag
}

// CheckProgram runs the analyses over every function the safety context
// marks as checked, merging diagnostics in declaration order.
func CheckProgram(prog *ir.Program, sigs *sig.Store, gate *safety.Context) *diag.Bag {
	knownSafe := make(map[string]struct{}, len(prog.Functions))
	for i := range prog.Functions {
		if gate.ShouldCheck(prog.Functions[i].Name) {
			knownSafe[prog.Functions[i].Name] = struct{}{}
		}
	}

	out := diag.NewBag(DefaultMaxDiagnostics)
	for i := range prog.Functions {
		fn := &prog.Functions[i]
		if !gate.ShouldCheck(fn.Name) {
			continue
		}
		out.Merge(CheckFunction(fn, sigs, gate, knownSafe))
	}
	return out
}
