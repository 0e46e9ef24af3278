package diag

import "ferrite/internal/source"

// Reporter is the minimal contract the analyses report through.
// Implementations: BagReporter (collects into a Bag), FuncReporter
// (stamps every diagnostic with a function name first).
type Reporter interface {
	Report(d Diagnostic)
}

// BagReporter writes into a *Bag.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(d Diagnostic) {
	if r.Bag == nil {
		return
	}
	r.Bag.Add(d)
}

// FuncReporter stamps the function name onto diagnostics missing one before
// forwarding. Analyses run one function at a time, so this keeps call sites
// short.
type FuncReporter struct {
	Next     Reporter
	Function string
}

func (r FuncReporter) Report(d Diagnostic) {
	if r.Next == nil {
		return
	}
	if d.Function == "" {
		d.Function = r.Function
	}
	r.Next.Report(d)
}

// Error reports an error-severity diagnostic in one call.
func Error(r Reporter, code Code, primary source.Span, msg string) {
	if r == nil {
		return
	}
	r.Report(Diagnostic{
		Severity: SevError,
		Code:     code,
		Message:  msg,
		Primary:  primary,
	})
}

// Warning reports a warning-severity diagnostic in one call.
func Warning(r Reporter, code Code, primary source.Span, msg string) {
	if r == nil {
		return
	}
	r.Report(Diagnostic{
		Severity: SevWarning,
		Code:     code,
		Message:  msg,
		Primary:  primary,
	})
}

// WithNote appends a note to a diagnostic.
func (d Diagnostic) WithNote(sp source.Span, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Span: sp, Msg: msg})
	return d
}
