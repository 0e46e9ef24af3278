package ir

import "ferrite/internal/source"

// BlockID indexes into Function.Blocks.
type BlockID uint32

// Program is one analyzed translation unit. It is built once by the external
// frontend (or decoded from its serialized form) and never mutated by the
// analyses.
type Program struct {
	File      source.FileID
	Functions []Function
}

// Function owns its basic blocks and the variable table keyed by name.
// Branch, loop, scope, and unsafe structure is encoded in the statement tree;
// Succs edges exist for multi-block functions and are consulted only by the
// scope-based lifetime tracker.
type Function struct {
	Name      string
	Span      source.Span
	Blocks    []Block
	Variables map[string]*Variable
}

// Block is an ordered statement sequence. Term is carried through from the
// frontend but unused by the current analyses.
type Block struct {
	ID    BlockID
	Stmts []Stmt
	Succs []BlockID
	Term  Terminator
}

// TermKind enumerates block terminator kinds.
type TermKind uint8

const (
	TermNone TermKind = iota
	TermReturn
	TermGoto
	TermBranch
)

type Terminator struct {
	Kind   TermKind
	Value  string  // TermReturn: returned variable, "" when void
	Target BlockID // TermGoto
	Cond   string  // TermBranch
	Then   BlockID
	Else   BlockID
}

// Variable lookup helper; returns nil for unknown names.
func (f *Function) Variable(name string) *Variable {
	if f == nil {
		return nil
	}
	return f.Variables[name]
}

// IsReferenceVar reports whether the named variable is declared with a
// reference type.
func (f *Function) IsReferenceVar(name string) bool {
	v := f.Variable(name)
	if v == nil {
		return false
	}
	return v.Type.Kind == TypeReference || v.Type.Kind == TypeMutableReference
}
