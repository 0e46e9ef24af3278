// Package safety decides which functions the analyses run on. Safety is
// opt-in: code is unchecked unless an @safe annotation applies, and checked
// code can carve out @unsafe escape hatches, either per function or as
// delimited line regions.
package safety

// Mode is the checking mode attached to a file or function.
type Mode uint8

const (
	// ModeDefault means no annotation applies; the parent context decides
	// (and the root default is unchecked).
	ModeDefault Mode = iota
	// ModeSafe enforces ownership and lifetime checking.
	ModeSafe
	// ModeUnsafe skips checking.
	ModeUnsafe
)

func (m Mode) String() string {
	switch m {
	case ModeSafe:
		return "safe"
	case ModeUnsafe:
		return "unsafe"
	}
	return "default"
}
