package diag

import (
	"fmt"
)

// Code identifies a diagnostic kind. The numeric space is partitioned per
// analysis so codes stay stable as checks are added:
//
//	1000 ownership & borrows
//	2000 inferred lifetimes
//	3000 annotated lifetimes
//	4000 scoped lifetimes
//	5000 safety (pointer operations, unsafe propagation)
//	6000 driver (input loading and decoding)
type Code uint16

const (
	UnknownCode Code = 0

	// Ownership & borrow tracking
	OwnInfo                  Code = 1000
	OwnUseAfterMove          Code = 1001
	OwnMoveBehindReference   Code = 1002
	OwnBorrowAfterMove       Code = 1003
	OwnMutableWhileImmutable Code = 1004
	OwnMutableWhileMutable   Code = 1005
	OwnImmutableWhileMutable Code = 1006
	OwnAssignThroughConstRef Code = 1007
	OwnLoopUseAfterMove      Code = 1008

	// Inferred lifetimes
	LifInfo              Code = 2000
	LifBorrowNotAlive    Code = 2001
	LifMoveNotAlive      Code = 2002
	LifConflictingBorrow Code = 2003
	LifDanglingReturn    Code = 2004

	// Annotated lifetimes (signature contracts)
	AnnInfo              Code = 3000
	AnnExpectsReference  Code = 3001
	AnnExpectsOwnership  Code = 3002
	AnnOutlivesViolation Code = 3003
	AnnDanglingReturn    Code = 3004

	// Scoped lifetimes
	ScpInfo              Code = 4000
	ScpBorrowNotAlive    Code = 4001
	ScpDanglingReturn    Code = 4002
	ScpOutlivesViolation Code = 4003
	ScpBorrowEscapes     Code = 4004
	ScpMustLiveUntil     Code = 4005

	// Safety checks
	SafInfo       Code = 5000
	SafPointerOp  Code = 5001
	SafUnsafeCall Code = 5002

	// Driver / input handling
	DrvInfo      Code = 6000
	DrvReadError Code = 6001
	DrvBadInput  Code = 6002
)

var codeDescription = map[Code]string{
	UnknownCode: "unknown diagnostic",

	OwnInfo:                  "ownership info",
	OwnUseAfterMove:          "use of a moved value",
	OwnMoveBehindReference:   "move out of a reference",
	OwnBorrowAfterMove:       "borrow of a moved value",
	OwnMutableWhileImmutable: "mutable borrow while immutably borrowed",
	OwnMutableWhileMutable:   "second mutable borrow",
	OwnImmutableWhileMutable: "immutable borrow while mutably borrowed",
	OwnAssignThroughConstRef: "assignment through a const reference",
	OwnLoopUseAfterMove:      "use of a value moved in a previous loop iteration",

	LifInfo:              "lifetime info",
	LifBorrowNotAlive:    "borrow of a variable outside its lifetime",
	LifMoveNotAlive:      "move of a variable outside its lifetime",
	LifConflictingBorrow: "overlapping borrows of the same source",
	LifDanglingReturn:    "returned reference may dangle",

	AnnInfo:              "annotation info",
	AnnExpectsReference:  "argument ownership does not match declared reference parameter",
	AnnExpectsOwnership:  "argument reference does not match declared owned parameter",
	AnnOutlivesViolation: "declared outlives bound not satisfied",
	AnnDanglingReturn:    "returned reference tied to a local",

	ScpInfo:              "scope info",
	ScpBorrowNotAlive:    "borrow source not alive in scope",
	ScpDanglingReturn:    "reference to a block-local escapes the function",
	ScpOutlivesViolation: "scope-based outlives bound not satisfied",
	ScpBorrowEscapes:     "reference outlives its borrow source",
	ScpMustLiveUntil:     "lifetime ends before required scope",

	SafInfo:       "safety info",
	SafPointerOp:  "raw pointer operation outside unsafe context",
	SafUnsafeCall: "call to an unsafe function outside unsafe context",

	DrvInfo:      "driver info",
	DrvReadError: "input file could not be read",
	DrvBadInput:  "input file is not a valid serialized program",
}

// ID renders the stable user-facing identifier, e.g. "OWN1001".
func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("OWN%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("LIF%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("ANN%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("SCP%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("SAF%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("DRV%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
