package source

import (
	"fmt"
)

// Span marks a contiguous range of source lines within a file.
// Statements carry line granularity only, so Start and End are 1-based line
// numbers, both inclusive. A zero Span means "no source location".
type Span struct {
	File  FileID
	Start uint32
	End   uint32
}

// At builds a single-line span.
func At(file FileID, line uint32) Span {
	return Span{File: file, Start: line, End: line}
}

// Lines builds a multi-line span; end < start is normalized to a point span.
func Lines(file FileID, start, end uint32) Span {
	if end < start {
		end = start
	}
	return Span{File: file, Start: start, End: end}
}

func (s Span) Empty() bool {
	return s.Start == 0 && s.End == 0
}

// Contains reports whether the given line falls inside the span.
func (s Span) Contains(line uint32) bool {
	return line >= s.Start && line <= s.End
}

func (s Span) String() string {
	if s.Start == s.End {
		return fmt.Sprintf("%d:%d", s.File, s.Start)
	}
	return fmt.Sprintf("%d:%d-%d", s.File, s.Start, s.End)
}

// Cover extends the span to include other. Spans from different files are
// left untouched.
func (s Span) Cover(other Span) Span {
	if s.File != other.File {
		return s
	}
	if other.Start != 0 && (s.Start == 0 || other.Start < s.Start) {
		s.Start = other.Start
	}
	if other.End > s.End {
		s.End = other.End
	}
	return s
}
