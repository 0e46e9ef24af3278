package safety

import "strings"

// Scan reads C++ source text and builds its safety context. Two things are
// collected in one pass over the lines:
//
//   - @safe/@unsafe inside a comment attaches to the next code element: a
//     namespace sets the file default, a function declaration sets an
//     override for that function only, and any other code element consumes
//     the annotation without further effect.
//   - // @unsafe ... // @endunsafe comment pairs delimit line regions where
//     diagnostics are suppressed. Pairs nest; an unclosed opener is dropped.
func Scan(src []byte) *Context {
	ctx := NewContext()
	lines := strings.Split(string(src), "\n")

	var pending Mode
	var regionStack []uint32
	inBlockComment := false

	var accum strings.Builder
	accumulating := false

	for i, raw := range lines {
		lineNo := uint32(i + 1)
		trimmed := strings.TrimSpace(raw)

		if inBlockComment {
			if strings.Contains(trimmed, "*/") {
				inBlockComment = false
			}
			if m := annotationIn(trimmed); m != ModeDefault {
				pending = m
			}
			continue
		}
		if strings.HasPrefix(trimmed, "/*") {
			if !strings.Contains(trimmed, "*/") {
				inBlockComment = true
			}
			if m := annotationIn(trimmed); m != ModeDefault {
				pending = m
			}
			continue
		}
		if strings.HasPrefix(trimmed, "//") {
			switch {
			case strings.Contains(trimmed, "@endunsafe"):
				if n := len(regionStack); n > 0 {
					ctx.Regions = append(ctx.Regions, Region{Start: regionStack[n-1], End: lineNo})
					regionStack = regionStack[:n-1]
				}
			case strings.Contains(trimmed, "@unsafe"):
				regionStack = append(regionStack, lineNo)
				pending = ModeUnsafe
			case strings.Contains(trimmed, "@safe"):
				pending = ModeSafe
			}
			continue
		}
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		if pending != ModeDefault && !accumulating {
			accum.Reset()
			accumulating = true
		}
		if !accumulating {
			continue
		}
		if accum.Len() > 0 {
			accum.WriteByte(' ')
		}
		accum.WriteString(trimmed)

		// A declaration is complete once the parameter list opens and
		// either closes or the body starts.
		decl := accum.String()
		if !strings.Contains(decl, "(") || !(strings.Contains(decl, ")") || strings.Contains(decl, "{")) {
			continue
		}
		attach(ctx, pending, decl)
		pending = ModeDefault
		accumulating = false
	}

	return ctx
}

func attach(ctx *Context, mode Mode, decl string) {
	switch {
	case strings.HasPrefix(decl, "namespace"),
		strings.Contains(decl, "namespace") && !strings.Contains(decl, "using"):
		ctx.FileDefault = mode
	case isFunctionDecl(decl):
		if name := functionName(decl); name != "" {
			if _, dup := ctx.Overrides[name]; !dup {
				ctx.Overrides[name] = mode
			}
		}
	default:
		// Consumed by a plain statement or declaration.
	}
}

func annotationIn(s string) Mode {
	switch {
	case strings.Contains(s, "@endunsafe"):
		return ModeDefault
	case strings.Contains(s, "@safe"):
		return ModeSafe
	case strings.Contains(s, "@unsafe"):
		return ModeUnsafe
	}
	return ModeDefault
}

func isFunctionDecl(s string) bool {
	if !strings.Contains(s, "(") || !strings.Contains(s, ")") {
		return false
	}
	for _, kw := range [...]string{"void", "int", "bool", "auto", "const", "static"} {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return strings.Contains(s, "::")
}

func functionName(s string) string {
	paren := strings.IndexByte(s, '(')
	if paren < 0 {
		return ""
	}
	fields := strings.Fields(s[:paren])
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimLeft(fields[len(fields)-1], "*&")
}
