package ir

// TypeKind classifies a variable's declared C++ type into the ownership
// vocabulary the analyses operate on.
type TypeKind uint8

const (
	// TypeOwned is a plain value type owning its data.
	TypeOwned TypeKind = iota
	// TypeReference is a const lvalue reference.
	TypeReference
	// TypeMutableReference is a non-const lvalue reference.
	TypeMutableReference
	// TypeUniquePtr is std::unique_ptr<T>.
	TypeUniquePtr
	// TypeSharedPtr is std::shared_ptr<T>.
	TypeSharedPtr
	// TypeRawPointer is T*.
	TypeRawPointer
)

func (k TypeKind) String() string {
	switch k {
	case TypeOwned:
		return "owned"
	case TypeReference:
		return "reference"
	case TypeMutableReference:
		return "mutable_reference"
	case TypeUniquePtr:
		return "unique_ptr"
	case TypeSharedPtr:
		return "shared_ptr"
	case TypeRawPointer:
		return "raw_pointer"
	}
	return "unknown"
}

// TypeInfo pairs the kind with the referred-to/element type name.
type TypeInfo struct {
	Kind TypeKind
	Elem string
}

// OwnershipState is the flow-sensitive state of one variable.
type OwnershipState uint8

const (
	StateOwned OwnershipState = iota
	StateBorrowed
	StateMoved
	StateUninitialized
)

func (s OwnershipState) String() string {
	switch s {
	case StateOwned:
		return "owned"
	case StateBorrowed:
		return "borrowed"
	case StateMoved:
		return "moved"
	case StateUninitialized:
		return "uninitialized"
	}
	return "unknown"
}

// BorrowKind differentiates shared vs exclusive borrows.
type BorrowKind uint8

const (
	BorrowImmutable BorrowKind = iota
	BorrowMutable
)

func (k BorrowKind) String() string {
	if k == BorrowMutable {
		return "mutable"
	}
	return "immutable"
}

// Lifetime is a statement-index interval attached to a variable by the
// frontend or inferred by the analyses. Start and End are indices over a
// function-local counter; the interval is inclusive on both ends.
type Lifetime struct {
	Name  string
	Start int
	End   int
}

// Variable describes one named variable of a function, parameters included.
type Variable struct {
	Name     string
	Type     TypeInfo
	State    OwnershipState
	Lifetime *Lifetime
}
