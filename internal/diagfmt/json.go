package diagfmt

import (
	"encoding/json"
	"io"

	"ferrite/internal/diag"
	"ferrite/internal/source"
)

// LocationJSON pins a diagnostic to a line range in a file.
type LocationJSON struct {
	File      string `json:"file"`
	StartLine uint32 `json:"start_line"`
	EndLine   uint32 `json:"end_line"`
}

// NoteJSON carries secondary context attached to a diagnostic.
type NoteJSON struct {
	Location *LocationJSON `json:"location,omitempty"`
	Message  string        `json:"message"`
}

// DiagnosticJSON is the wire form of a single diagnostic.
type DiagnosticJSON struct {
	Severity string        `json:"severity"`
	Code     string        `json:"code"`
	Title    string        `json:"title,omitempty"`
	Message  string        `json:"message"`
	Function string        `json:"function,omitempty"`
	Location *LocationJSON `json:"location,omitempty"`
	Notes    []NoteJSON    `json:"notes,omitempty"`
}

// DiagnosticsOutput is the top-level JSON document. Count reflects the whole
// bag even when Max truncates the diagnostics array.
type DiagnosticsOutput struct {
	Count       int              `json:"count"`
	Truncated   bool             `json:"truncated,omitempty"`
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
}

// BuildDiagnosticsOutput converts the bag into its JSON document form.
func BuildDiagnosticsOutput(bag *diag.Bag, fileSet *source.FileSet, opts JSONOpts) DiagnosticsOutput {
	items := bag.Items()
	truncated := false
	if opts.Max > 0 && len(items) > opts.Max {
		items = items[:opts.Max]
		truncated = true
	}

	out := DiagnosticsOutput{
		Count:       bag.Len(),
		Truncated:   truncated,
		Diagnostics: make([]DiagnosticJSON, 0, len(items)),
	}

	for i := range items {
		d := &items[i]
		dj := DiagnosticJSON{
			Severity: d.Severity.String(),
			Code:     d.Code.ID(),
			Title:    d.Code.Title(),
			Message:  d.Message,
			Function: d.Function,
			Location: makeLocation(d.Primary, fileSet, opts),
		}
		if opts.IncludeNotes {
			for _, note := range d.Notes {
				dj.Notes = append(dj.Notes, NoteJSON{
					Location: makeLocation(note.Span, fileSet, opts),
					Message:  note.Msg,
				})
			}
		}
		out.Diagnostics = append(out.Diagnostics, dj)
	}
	return out
}

// JSON writes the bag as an indented JSON document.
func JSON(w io.Writer, bag *diag.Bag, fileSet *source.FileSet, opts JSONOpts) error {
	out := BuildDiagnosticsOutput(bag, fileSet, opts)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func makeLocation(span source.Span, fileSet *source.FileSet, opts JSONOpts) *LocationJSON {
	if span.Empty() || fileSet == nil {
		return nil
	}
	return &LocationJSON{
		File:      formatPath(fileSet.Get(span.File).Path, opts.PathMode, opts.BaseDir),
		StartLine: span.Start,
		EndLine:   span.End,
	}
}
