package diag

import (
	"ferrite/internal/source"
)

// Note attaches secondary context to a diagnostic.
type Note struct {
	Span source.Span
	Msg  string
}

// Diagnostic is one reported violation. Function carries the enclosing
// function's name so output can stay grouped even when statements have no
// resolvable source line.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Function string
	Primary  source.Span
	Notes    []Note
}
