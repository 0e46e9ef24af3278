package sig

import (
	"fmt"
	"strings"
)

// ParseSignature parses the textual signature form:
//
//	( ann [, ann]* ) [-> ann] [where 'a: 'b [, 'c: 'd]*]
//
// where each ann is one of: owned, &'x, &'x mut, 'x, or _ for an
// unannotated position. Signatures are configuration, so any malformed
// input is a hard error.
func ParseSignature(s string) (*Signature, error) {
	rest := strings.TrimSpace(s)
	if !strings.HasPrefix(rest, "(") {
		return nil, fmt.Errorf("signature %q: expected leading '('", s)
	}
	end := strings.IndexByte(rest, ')')
	if end < 0 {
		return nil, fmt.Errorf("signature %q: missing ')'", s)
	}
	paramsText := strings.TrimSpace(rest[1:end])
	rest = strings.TrimSpace(rest[end+1:])

	sig := &Signature{}
	if paramsText != "" {
		for _, part := range strings.Split(paramsText, ",") {
			ann, err := parseAnnotation(strings.TrimSpace(part))
			if err != nil {
				return nil, fmt.Errorf("signature %q: %w", s, err)
			}
			sig.Params = append(sig.Params, ann)
		}
	}

	if strings.HasPrefix(rest, "->") {
		rest = strings.TrimSpace(rest[2:])
		retText := rest
		if idx := strings.Index(rest, "where"); idx >= 0 {
			retText = strings.TrimSpace(rest[:idx])
			rest = rest[idx:]
		} else {
			rest = ""
		}
		// "&'a mut" keeps its internal space; the return annotation runs to
		// the where clause or end of string.
		ann, err := parseAnnotation(retText)
		if err != nil {
			return nil, fmt.Errorf("signature %q: %w", s, err)
		}
		sig.Return = ann
	}

	if strings.HasPrefix(rest, "where") {
		for _, part := range strings.Split(strings.TrimSpace(rest[len("where"):]), ",") {
			bound, err := parseBound(strings.TrimSpace(part))
			if err != nil {
				return nil, fmt.Errorf("signature %q: %w", s, err)
			}
			sig.Bounds = append(sig.Bounds, bound)
		}
		rest = ""
	}
	if rest != "" {
		return nil, fmt.Errorf("signature %q: trailing input %q", s, rest)
	}
	return sig, nil
}

func parseAnnotation(s string) (*Annotation, error) {
	switch {
	case s == "" || s == "_":
		return nil, nil
	case s == "owned":
		return &Annotation{Kind: AnnOwned}, nil
	case strings.HasPrefix(s, "&'"):
		body := s[2:]
		mut := false
		if strings.HasSuffix(body, " mut") {
			mut = true
			body = strings.TrimSpace(body[:len(body)-len(" mut")])
		}
		if err := checkLifetimeName(body); err != nil {
			return nil, err
		}
		if mut {
			return &Annotation{Kind: AnnMutRef, Lifetime: body}, nil
		}
		return &Annotation{Kind: AnnRef, Lifetime: body}, nil
	case strings.HasPrefix(s, "'"):
		body := s[1:]
		if err := checkLifetimeName(body); err != nil {
			return nil, err
		}
		return &Annotation{Kind: AnnLifetime, Lifetime: body}, nil
	}
	return nil, fmt.Errorf("bad annotation %q", s)
}

func parseBound(s string) (Bound, error) {
	longer, shorter, ok := strings.Cut(s, ":")
	if !ok {
		return Bound{}, fmt.Errorf("bad bound %q: expected 'a: 'b", s)
	}
	l, err := bareLifetime(strings.TrimSpace(longer))
	if err != nil {
		return Bound{}, fmt.Errorf("bad bound %q: %w", s, err)
	}
	r, err := bareLifetime(strings.TrimSpace(shorter))
	if err != nil {
		return Bound{}, fmt.Errorf("bad bound %q: %w", s, err)
	}
	return Bound{Longer: l, Shorter: r}, nil
}

func bareLifetime(s string) (string, error) {
	if !strings.HasPrefix(s, "'") {
		return "", fmt.Errorf("lifetime %q: missing leading quote", s)
	}
	body := s[1:]
	if err := checkLifetimeName(body); err != nil {
		return "", err
	}
	return body, nil
}

func checkLifetimeName(s string) error {
	if s == "" {
		return fmt.Errorf("empty lifetime name")
	}
	for _, r := range s {
		ok := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !ok {
			return fmt.Errorf("bad lifetime name %q", s)
		}
	}
	return nil
}
