package ir

// StmtKind enumerates statement kinds.
type StmtKind uint8

const (
	// StmtAssign represents an assignment statement.
	StmtAssign StmtKind = iota
	// StmtMove represents an ownership transfer.
	StmtMove
	// StmtBorrow represents the creation of a reference.
	StmtBorrow
	// StmtCall represents a function call.
	StmtCall
	// StmtReturn represents a return statement.
	StmtReturn
	// StmtDrop represents an explicit destruction point.
	StmtDrop
	// StmtBlock wraps a lexical `{}` scope.
	StmtBlock
	// StmtLoop wraps a loop body.
	StmtLoop
	// StmtUnsafe wraps an unsafe region.
	StmtUnsafe
	// StmtIf wraps a conditional with optional else branch.
	StmtIf
	// StmtNop represents a no-op statement.
	StmtNop
)

func (k StmtKind) String() string {
	switch k {
	case StmtAssign:
		return "assign"
	case StmtMove:
		return "move"
	case StmtBorrow:
		return "borrow"
	case StmtCall:
		return "call"
	case StmtReturn:
		return "return"
	case StmtDrop:
		return "drop"
	case StmtBlock:
		return "block"
	case StmtLoop:
		return "loop"
	case StmtUnsafe:
		return "unsafe"
	case StmtIf:
		return "if"
	case StmtNop:
		return "nop"
	}
	return "unknown"
}

// Stmt is one IR statement. Exactly the payload matching Kind is meaningful.
// Line is the 1-based source line the statement came from (0 when unknown);
// the safety gate uses it to match unsafe line regions.
type Stmt struct {
	Kind StmtKind
	Line uint32

	Assign AssignStmt
	Move   MoveStmt
	Borrow BorrowStmt
	Call   CallStmt
	Return ReturnStmt
	Drop   DropStmt

	// Body holds the children of Block, Loop, and Unsafe statements.
	Body []Stmt
	If   IfStmt
}

// AssignStmt writes the value of RHS into the named variable.
type AssignStmt struct {
	LHS string
	RHS Expr
}

// MoveStmt transfers ownership From -> To. Destinations named with the
// frontend's internal move-marker prefixes denote synthetic temporaries: the
// source still becomes moved but no destination variable is created.
type MoveStmt struct {
	From string
	To   string
}

// BorrowStmt creates reference To onto source variable From.
type BorrowStmt struct {
	From string
	To   string
	Kind BorrowKind
}

// CallStmt invokes Func. Result is "" when the value is discarded.
type CallStmt struct {
	Func   string
	Args   []Expr
	Result string
}

// ReturnStmt returns Value when HasValue is set.
type ReturnStmt struct {
	HasValue bool
	Value    Expr
}

// DropStmt destroys the named variable.
type DropStmt struct {
	Var string
}

// IfStmt is a two-way conditional. Else is nil when absent. Cond is only
// meaningful when HasCond is set (frontends may omit unanalyzable
// conditions).
type IfStmt struct {
	HasCond bool
	Cond    Expr
	Then    []Stmt
	Else    []Stmt
}

// ArgNames extracts the plain variable names among the call's arguments,
// preserving positions: non-variable expressions yield "".
func (c *CallStmt) ArgNames() []string {
	names := make([]string, len(c.Args))
	for i := range c.Args {
		names[i] = c.Args[i].VarName()
	}
	return names
}
