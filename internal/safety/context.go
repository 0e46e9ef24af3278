package safety

// Region is an inclusive 1-based line range delimited by @unsafe/@endunsafe
// markers. Diagnostics whose line falls inside a region are suppressed.
type Region struct {
	Start uint32
	End   uint32
}

// Context holds the safety decisions scanned from one source file.
type Context struct {
	// FileDefault is set by an annotation attached to a namespace and
	// applies to every function without its own override.
	FileDefault Mode
	// Overrides maps function names to their attached annotation. The
	// first annotation scanned for a name wins.
	Overrides map[string]Mode
	// Regions are the @unsafe/@endunsafe line ranges.
	Regions []Region
}

// NewContext returns an empty context: nothing is checked.
func NewContext() *Context {
	return &Context{Overrides: make(map[string]Mode)}
}

// ShouldCheck reports whether the named function gets analyzed. A
// function-level override beats the file default; absent both, the answer
// is no.
func (c *Context) ShouldCheck(funcName string) bool {
	if c == nil {
		return false
	}
	if mode, ok := c.Overrides[funcName]; ok {
		return mode == ModeSafe
	}
	return c.FileDefault == ModeSafe
}

// LineUnsafe reports whether the 1-based line lies inside an unsafe region.
func (c *Context) LineUnsafe(line uint32) bool {
	if c == nil {
		return false
	}
	for _, r := range c.Regions {
		if line >= r.Start && line <= r.End {
			return true
		}
	}
	return false
}
