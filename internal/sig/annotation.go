// Package sig holds declared lifetime signatures for called functions.
// Signatures come from a TOML file and are written in a small textual form,
// e.g. "(&'a, owned) -> &'a where 'a: 'b".
package sig

import "ferrite/internal/safety"

// AnnKind enumerates parameter and return annotations.
type AnnKind uint8

const (
	// AnnOwned marks a by-value parameter that takes ownership.
	AnnOwned AnnKind = iota
	// AnnRef marks a shared reference with a named lifetime.
	AnnRef
	// AnnMutRef marks a mutable reference with a named lifetime.
	AnnMutRef
	// AnnLifetime names a bare lifetime with no reference kind attached.
	AnnLifetime
)

// Annotation is one parameter or return position. Lifetime is the bare name
// without the leading quote ("a" for 'a); empty for AnnOwned.
type Annotation struct {
	Kind     AnnKind
	Lifetime string
}

func (a *Annotation) String() string {
	if a == nil {
		return "_"
	}
	switch a.Kind {
	case AnnOwned:
		return "owned"
	case AnnRef:
		return "&'" + a.Lifetime
	case AnnMutRef:
		return "&'" + a.Lifetime + " mut"
	case AnnLifetime:
		return "'" + a.Lifetime
	}
	return "_"
}

// Bound declares Longer: Shorter, i.e. Longer outlives Shorter.
type Bound struct {
	Longer  string
	Shorter string
}

// Signature is the declared contract of one function. A nil entry in Params
// means the position carries no annotation and is not checked.
type Signature struct {
	Params []*Annotation
	Bounds []Bound
	Return *Annotation
	Safety safety.Mode
}
