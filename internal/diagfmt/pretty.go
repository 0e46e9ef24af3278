package diagfmt

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"ferrite/internal/diag"
	"ferrite/internal/source"
)

var (
	prettyPathColor    = color.New(color.FgCyan)
	prettyErrorColor   = color.New(color.FgRed, color.Bold)
	prettyWarningColor = color.New(color.FgYellow, color.Bold)
	prettyInfoColor    = color.New(color.FgBlue, color.Bold)
	prettyCodeColor    = color.New(color.Bold)
	prettyGutterColor  = color.New(color.FgHiBlack)
)

// Pretty renders the bag in human-readable form, one diagnostic per line:
//
//	main.cpp:12: ERROR OWN1001: Use of moved variable 'x' [in make_widget]
//	   12 | consume(x);
//
// The bag is rendered in its current order; callers sort (and dedup) first.
func Pretty(w io.Writer, bag *diag.Bag, fileSet *source.FileSet, opts PrettyOpts) error {
	items := bag.Items()
	if opts.Max > 0 && len(items) > opts.Max {
		items = items[:opts.Max]
	}

	for i := range items {
		if err := prettyOne(w, &items[i], fileSet, opts); err != nil {
			return err
		}
	}

	if truncated := bag.Len() - len(items); truncated > 0 {
		if _, err := fmt.Fprintf(w, "... and %d more\n", truncated); err != nil {
			return err
		}
	}
	return nil
}

func prettyOne(w io.Writer, d *diag.Diagnostic, fileSet *source.FileSet, opts PrettyOpts) error {
	loc := prettyLocation(d.Primary, fileSet, opts)
	sev := severityColor(d.Severity, opts.Color).Sprint(d.Severity.String())
	code := paint(prettyCodeColor, opts.Color).Sprint(d.Code.ID())

	suffix := ""
	if d.Function != "" {
		suffix = " [in " + d.Function + "]"
	}

	if _, err := fmt.Fprintf(w, "%s: %s %s: %s%s\n", loc, sev, code, d.Message, suffix); err != nil {
		return err
	}

	if opts.Quote {
		if err := quoteLines(w, d.Primary, fileSet, opts); err != nil {
			return err
		}
	}

	if opts.ShowNotes {
		for _, note := range d.Notes {
			noteLoc := prettyLocation(note.Span, fileSet, opts)
			if _, err := fmt.Fprintf(w, "  note: %s: %s\n", noteLoc, note.Msg); err != nil {
				return err
			}
		}
	}
	return nil
}

// quoteLines prints the source text of the primary span with a line-number
// gutter. Long spans are cut after three lines so one diagnostic cannot
// flood the terminal.
const maxQuotedLines = 3

func quoteLines(w io.Writer, span source.Span, fileSet *source.FileSet, opts PrettyOpts) error {
	if span.Empty() || fileSet == nil {
		return nil
	}
	gutter := paint(prettyGutterColor, opts.Color)

	end := span.End
	if end > span.Start+maxQuotedLines-1 {
		end = span.Start + maxQuotedLines - 1
	}
	for line := span.Start; line <= end; line++ {
		text := fileSet.LineText(span.File, line)
		if text == "" {
			continue
		}
		prefix := gutter.Sprintf("%5d |", line)
		if _, err := fmt.Fprintf(w, "%s %s\n", prefix, text); err != nil {
			return err
		}
	}
	return nil
}

func prettyLocation(span source.Span, fileSet *source.FileSet, opts PrettyOpts) string {
	if span.Empty() || fileSet == nil {
		return "<unknown>"
	}
	path := formatPath(fileSet.Get(span.File).Path, opts.PathMode, opts.BaseDir)
	path = paint(prettyPathColor, opts.Color).Sprint(path)
	if span.Start == span.End {
		return fmt.Sprintf("%s:%d", path, span.Start)
	}
	return fmt.Sprintf("%s:%d-%d", path, span.Start, span.End)
}

func severityColor(sev diag.Severity, enabled bool) *color.Color {
	switch sev {
	case diag.SevError:
		return paint(prettyErrorColor, enabled)
	case diag.SevWarning:
		return paint(prettyWarningColor, enabled)
	default:
		return paint(prettyInfoColor, enabled)
	}
}

// paint pins the color on or off so output does not depend on the global
// NO_COLOR detection done at init.
func paint(c *color.Color, enabled bool) *color.Color {
	if enabled {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}
