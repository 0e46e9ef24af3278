package ir

import (
	"encoding/json"
	"fmt"
	"io"

	"ferrite/internal/source"
)

// The wire format produced by the C++ frontend. Shapes only: the decoder
// rejects unknown kind strings but performs no semantic validation; a
// well-formed Program is the frontend's contract (dangling names are simply
// never matched by the analyses).

type programJSON struct {
	File      string         `json:"file"`
	Functions []functionJSON `json:"functions"`
}

type functionJSON struct {
	Name      string         `json:"name"`
	Line      uint32         `json:"line,omitempty"`
	Variables []variableJSON `json:"variables,omitempty"`
	Blocks    []blockJSON    `json:"blocks"`
}

type variableJSON struct {
	Name     string        `json:"name"`
	Type     string        `json:"type"`
	Elem     string        `json:"elem,omitempty"`
	State    string        `json:"state,omitempty"`
	Lifetime *lifetimeJSON `json:"lifetime,omitempty"`
}

type lifetimeJSON struct {
	Name  string `json:"name"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

type blockJSON struct {
	ID    uint32     `json:"id"`
	Succs []uint32   `json:"succs,omitempty"`
	Stmts []stmtJSON `json:"stmts"`
	Term  *termJSON  `json:"term,omitempty"`
}

type termJSON struct {
	Kind   string `json:"kind"`
	Value  string `json:"value,omitempty"`
	Target uint32 `json:"target,omitempty"`
	Cond   string `json:"cond,omitempty"`
	Then   uint32 `json:"then,omitempty"`
	Else   uint32 `json:"else,omitempty"`
}

type stmtJSON struct {
	Kind string `json:"kind"`
	Line uint32 `json:"line,omitempty"`

	// assign
	LHS string    `json:"lhs,omitempty"`
	RHS *exprJSON `json:"rhs,omitempty"`

	// move / borrow
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
	Borrow string `json:"borrow,omitempty"`

	// call
	Func   string      `json:"func,omitempty"`
	Args   []*exprJSON `json:"args,omitempty"`
	Result string      `json:"result,omitempty"`

	// return
	Value *exprJSON `json:"value,omitempty"`

	// drop
	Var string `json:"var,omitempty"`

	// block / loop / unsafe
	Body []stmtJSON `json:"body,omitempty"`

	// if
	Cond *exprJSON  `json:"cond,omitempty"`
	Then []stmtJSON `json:"then,omitempty"`
	Else []stmtJSON `json:"else,omitempty"`
}

type exprJSON struct {
	Kind    string      `json:"kind"`
	Name    string      `json:"name,omitempty"`
	Value   string      `json:"value,omitempty"`
	Type    string      `json:"type,omitempty"`
	Func    string      `json:"func,omitempty"`
	Args    []*exprJSON `json:"args,omitempty"`
	Op      string      `json:"op,omitempty"`
	Operand *exprJSON   `json:"operand,omitempty"`
	Left    *exprJSON   `json:"left,omitempty"`
	Right   *exprJSON   `json:"right,omitempty"`
}

// Decode reads a serialized Program. The file ID is assigned by the caller
// (it indexes the FileSet holding the companion C++ source, when any).
func Decode(r io.Reader, file source.FileID) (*Program, error) {
	var pj programJSON
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&pj); err != nil {
		return nil, fmt.Errorf("decode program: %w", err)
	}

	prog := &Program{
		File:      file,
		Functions: make([]Function, 0, len(pj.Functions)),
	}
	for i := range pj.Functions {
		fn, err := decodeFunction(&pj.Functions[i])
		if err != nil {
			return nil, fmt.Errorf("function %q: %w", pj.Functions[i].Name, err)
		}
		fn.Span = source.At(file, pj.Functions[i].Line)
		prog.Functions = append(prog.Functions, fn)
	}
	return prog, nil
}

func decodeFunction(fj *functionJSON) (Function, error) {
	fn := Function{
		Name:      fj.Name,
		Variables: make(map[string]*Variable, len(fj.Variables)),
	}
	for _, vj := range fj.Variables {
		v, err := decodeVariable(vj)
		if err != nil {
			return fn, err
		}
		fn.Variables[v.Name] = v
	}
	fn.Blocks = make([]Block, 0, len(fj.Blocks))
	for _, bj := range fj.Blocks {
		b := Block{ID: BlockID(bj.ID)}
		for _, s := range bj.Succs {
			b.Succs = append(b.Succs, BlockID(s))
		}
		for i := range bj.Stmts {
			st, err := decodeStmt(&bj.Stmts[i])
			if err != nil {
				return fn, fmt.Errorf("block %d: %w", bj.ID, err)
			}
			b.Stmts = append(b.Stmts, st)
		}
		if bj.Term != nil {
			t, err := decodeTerm(bj.Term)
			if err != nil {
				return fn, fmt.Errorf("block %d: %w", bj.ID, err)
			}
			b.Term = t
		}
		fn.Blocks = append(fn.Blocks, b)
	}
	return fn, nil
}

func decodeVariable(vj variableJSON) (*Variable, error) {
	kind, err := typeKindOf(vj.Type)
	if err != nil {
		return nil, fmt.Errorf("variable %q: %w", vj.Name, err)
	}
	state, err := stateOf(vj.State)
	if err != nil {
		return nil, fmt.Errorf("variable %q: %w", vj.Name, err)
	}
	v := &Variable{
		Name:  vj.Name,
		Type:  TypeInfo{Kind: kind, Elem: vj.Elem},
		State: state,
	}
	if vj.Lifetime != nil {
		v.Lifetime = &Lifetime{Name: vj.Lifetime.Name, Start: vj.Lifetime.Start, End: vj.Lifetime.End}
	}
	return v, nil
}

func decodeStmt(sj *stmtJSON) (Stmt, error) {
	st := Stmt{Line: sj.Line}
	switch sj.Kind {
	case "assign":
		st.Kind = StmtAssign
		rhs, err := decodeExpr(sj.RHS)
		if err != nil {
			return st, err
		}
		st.Assign = AssignStmt{LHS: sj.LHS, RHS: derefExpr(rhs)}
	case "move":
		st.Kind = StmtMove
		st.Move = MoveStmt{From: sj.From, To: sj.To}
	case "borrow":
		st.Kind = StmtBorrow
		bk, err := borrowKindOf(sj.Borrow)
		if err != nil {
			return st, err
		}
		st.Borrow = BorrowStmt{From: sj.From, To: sj.To, Kind: bk}
	case "call":
		st.Kind = StmtCall
		call := CallStmt{Func: sj.Func, Result: sj.Result}
		for _, aj := range sj.Args {
			a, err := decodeExpr(aj)
			if err != nil {
				return st, err
			}
			call.Args = append(call.Args, derefExpr(a))
		}
		st.Call = call
	case "return":
		st.Kind = StmtReturn
		if sj.Value != nil {
			v, err := decodeExpr(sj.Value)
			if err != nil {
				return st, err
			}
			st.Return = ReturnStmt{HasValue: true, Value: derefExpr(v)}
		}
	case "drop":
		st.Kind = StmtDrop
		st.Drop = DropStmt{Var: sj.Var}
	case "block", "loop", "unsafe":
		switch sj.Kind {
		case "block":
			st.Kind = StmtBlock
		case "loop":
			st.Kind = StmtLoop
		default:
			st.Kind = StmtUnsafe
		}
		for i := range sj.Body {
			child, err := decodeStmt(&sj.Body[i])
			if err != nil {
				return st, err
			}
			st.Body = append(st.Body, child)
		}
	case "if":
		st.Kind = StmtIf
		ifs := IfStmt{}
		if sj.Cond != nil {
			c, err := decodeExpr(sj.Cond)
			if err != nil {
				return st, err
			}
			ifs.HasCond = true
			ifs.Cond = derefExpr(c)
		}
		for i := range sj.Then {
			child, err := decodeStmt(&sj.Then[i])
			if err != nil {
				return st, err
			}
			ifs.Then = append(ifs.Then, child)
		}
		for i := range sj.Else {
			child, err := decodeStmt(&sj.Else[i])
			if err != nil {
				return st, err
			}
			ifs.Else = append(ifs.Else, child)
		}
		st.If = ifs
	case "nop":
		st.Kind = StmtNop
	default:
		return st, fmt.Errorf("unknown statement kind %q", sj.Kind)
	}
	return st, nil
}

func decodeExpr(ej *exprJSON) (*Expr, error) {
	if ej == nil {
		return nil, nil
	}
	e := &Expr{}
	switch ej.Kind {
	case "var":
		e.Kind = ExprVar
		e.Var = ej.Name
	case "lit":
		e.Kind = ExprLit
		e.Lit = ej.Value
	case "new":
		e.Kind = ExprNew
		e.New = ej.Type
	case "call":
		e.Kind = ExprCall
		e.Call.Func = ej.Func
		for _, aj := range ej.Args {
			a, err := decodeExpr(aj)
			if err != nil {
				return nil, err
			}
			e.Call.Args = append(e.Call.Args, a)
		}
	case "unary":
		e.Kind = ExprUnary
		switch ej.Op {
		case "deref":
			e.Op = OpDeref
		case "addrof":
			e.Op = OpAddrOf
		case "move":
			e.Op = OpMove
		default:
			return nil, fmt.Errorf("unknown unary op %q", ej.Op)
		}
		inner, err := decodeExpr(ej.Operand)
		if err != nil {
			return nil, err
		}
		e.Operand = inner
	case "binary":
		e.Kind = ExprBinary
		e.BinOp = ej.Op
		l, err := decodeExpr(ej.Left)
		if err != nil {
			return nil, err
		}
		r, err := decodeExpr(ej.Right)
		if err != nil {
			return nil, err
		}
		e.Left, e.Right = l, r
	default:
		return nil, fmt.Errorf("unknown expression kind %q", ej.Kind)
	}
	return e, nil
}

func decodeTerm(tj *termJSON) (Terminator, error) {
	switch tj.Kind {
	case "return":
		return Terminator{Kind: TermReturn, Value: tj.Value}, nil
	case "goto":
		return Terminator{Kind: TermGoto, Target: BlockID(tj.Target)}, nil
	case "branch":
		return Terminator{Kind: TermBranch, Cond: tj.Cond, Then: BlockID(tj.Then), Else: BlockID(tj.Else)}, nil
	case "", "none":
		return Terminator{}, nil
	}
	return Terminator{}, fmt.Errorf("unknown terminator kind %q", tj.Kind)
}

func typeKindOf(s string) (TypeKind, error) {
	switch s {
	case "", "owned":
		return TypeOwned, nil
	case "reference":
		return TypeReference, nil
	case "mutable_reference":
		return TypeMutableReference, nil
	case "unique_ptr":
		return TypeUniquePtr, nil
	case "shared_ptr":
		return TypeSharedPtr, nil
	case "raw_pointer":
		return TypeRawPointer, nil
	}
	return TypeOwned, fmt.Errorf("unknown type kind %q", s)
}

func stateOf(s string) (OwnershipState, error) {
	switch s {
	case "", "owned":
		return StateOwned, nil
	case "borrowed":
		return StateBorrowed, nil
	case "moved":
		return StateMoved, nil
	case "uninitialized":
		return StateUninitialized, nil
	}
	return StateOwned, fmt.Errorf("unknown ownership state %q", s)
}

func borrowKindOf(s string) (BorrowKind, error) {
	switch s {
	case "", "immutable":
		return BorrowImmutable, nil
	case "mutable":
		return BorrowMutable, nil
	}
	return BorrowImmutable, fmt.Errorf("unknown borrow kind %q", s)
}

func derefExpr(e *Expr) Expr {
	if e == nil {
		return Expr{}
	}
	return *e
}
