package ir

// ExprKind enumerates expression kinds.
type ExprKind uint8

const (
	// ExprNone is the zero value, used where an expression slot is empty.
	ExprNone ExprKind = iota
	// ExprVar reads a variable.
	ExprVar
	// ExprLit is a literal constant.
	ExprLit
	// ExprNew allocates a value of the named type.
	ExprNew
	// ExprCall invokes a function.
	ExprCall
	// ExprUnary wraps an operand with deref/address-of/move.
	ExprUnary
	// ExprBinary combines two operands.
	ExprBinary
)

// UnaryOp enumerates unary wrapper operators.
type UnaryOp uint8

const (
	OpDeref UnaryOp = iota
	OpAddrOf
	OpMove
)

func (op UnaryOp) String() string {
	switch op {
	case OpDeref:
		return "dereference"
	case OpAddrOf:
		return "address-of"
	case OpMove:
		return "move"
	}
	return "unknown"
}

// Expr is one IR expression node. Operands are pointers so the zero Expr
// stays small; an Expr with Kind == ExprNone is "no expression".
type Expr struct {
	Kind ExprKind

	Var string // ExprVar
	Lit string // ExprLit
	New string // ExprNew: type name

	Call CallExpr

	Op      UnaryOp // ExprUnary
	Operand *Expr

	BinOp string // ExprBinary
	Left  *Expr
	Right *Expr
}

// CallExpr is a call in expression position.
type CallExpr struct {
	Func string
	Args []*Expr
}

// VarExpr builds a variable read.
func VarExpr(name string) Expr {
	return Expr{Kind: ExprVar, Var: name}
}

// VarName returns the variable name when the expression is a plain read,
// otherwise "".
func (e *Expr) VarName() string {
	if e == nil || e.Kind != ExprVar {
		return ""
	}
	return e.Var
}

// Valid reports whether the expression slot is populated.
func (e *Expr) Valid() bool {
	return e != nil && e.Kind != ExprNone
}
