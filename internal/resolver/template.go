package resolver

import (
	"regexp"
	"strings"
)

// exprPattern is the expression grammar inside {{ }}: dotted identifiers.
var exprPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// segment is either literal text or a symbol reference.
type segment struct {
	literal string
	raw     string   // the full "{{ ... }}" text, kept for lenient mode
	path    []string // nil for literals
}

// Template is a parsed template string.
type Template struct {
	Text string
	segs []segment
}

// Parse splits text into literal and symbol segments. It never fails:
// unterminated braces and brace contents that are not dotted identifiers
// stay literal. Each "}}" closes the nearest "{{" before it, so in
// "x {{ y {{who}}" only {{who}} is a reference.
func Parse(text string) *Template {
	t := &Template{Text: text}
	rest := text
	var lit strings.Builder
	for {
		i := strings.Index(rest, "{{")
		if i < 0 {
			lit.WriteString(rest)
			break
		}
		j := strings.Index(rest[i+2:], "}}")
		if j < 0 {
			lit.WriteString(rest)
			break
		}
		closeAt := i + 2 + j
		// the closer belongs to the innermost opener before it
		i = strings.LastIndex(rest[:closeAt], "{{")
		end := closeAt + 2
		raw := rest[i:end]
		expr := strings.TrimSpace(rest[i+2 : closeAt])
		lit.WriteString(rest[:i])
		if !exprPattern.MatchString(expr) {
			lit.WriteString(raw)
			rest = rest[end:]
			continue
		}
		if lit.Len() > 0 {
			t.segs = append(t.segs, segment{literal: lit.String()})
			lit.Reset()
		}
		t.segs = append(t.segs, segment{raw: raw, path: strings.Split(expr, ".")})
		rest = rest[end:]
	}
	if lit.Len() > 0 {
		t.segs = append(t.segs, segment{literal: lit.String()})
	}
	return t
}

// HasSymbols reports whether the template references any symbol.
func (t *Template) HasSymbols() bool {
	for _, s := range t.segs {
		if s.path != nil {
			return true
		}
	}
	return false
}

// Symbols returns the dotted expressions in order of first appearance.
func (t *Template) Symbols() []string {
	var out []string
	seen := map[string]bool{}
	for _, s := range t.segs {
		if s.path == nil {
			continue
		}
		e := strings.Join(s.path, ".")
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	return out
}

// OutputRefs returns the names X of every X.output reference, in order of
// first appearance. Whether X is a prompt is decided by the caller.
func (t *Template) OutputRefs() []string {
	var out []string
	seen := map[string]bool{}
	for _, s := range t.segs {
		if len(s.path) >= 2 && s.path[1] == "output" && !seen[s.path[0]] {
			seen[s.path[0]] = true
			out = append(out, s.path[0])
		}
	}
	return out
}
