package wgsl

import "strings"

// attribute is one @name or @name(args) with args as written.
type attribute struct {
	name string
	args string
}

// declaration is a run of attributes followed by fn or var; rest is the text after the
// keyword.
type declaration struct {
	attrs   []attribute
	keyword string
	rest    string
}

// declarations finds every attributed fn and var in src. Attribute arguments may nest
// parentheses, as in @workgroup_size((WG * 2u)).
func declarations(src string) []declaration {
	var out []declaration
	for i := 0; i < len(src); {
		if src[i] != '@' {
			i++
			continue
		}
		attrs, next := scanAttributes(src, i)
		if len(attrs) == 0 {
			i++
			continue
		}
		if kw := keywordAt(src, next); kw != "" {
			out = append(out, declaration{attrs: attrs, keyword: kw, rest: src[next+len(kw):]})
		}
		i = next
	}
	return out
}

// scanAttributes reads consecutive attributes starting at src[at] and returns them with
// the offset of the first non-space byte after the run.
func scanAttributes(src string, at int) ([]attribute, int) {
	var attrs []attribute
	i := at
	for i < len(src) && src[i] == '@' {
		a, next, ok := scanAttribute(src, i)
		if !ok {
			break
		}
		attrs = append(attrs, a)
		i = skipSpace(src, next)
	}
	return attrs, i
}

func scanAttribute(src string, at int) (attribute, int, bool) {
	i := at + 1
	for i < len(src) && isIdent(src[i]) {
		i++
	}
	if i == at+1 {
		return attribute{}, at, false
	}
	a := attribute{name: src[at+1 : i]}

	open := skipSpace(src, i)
	if open >= len(src) || src[open] != '(' {
		return a, i, true
	}
	depth := 0
	for j := open; j < len(src); j++ {
		switch src[j] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				a.args = src[open+1 : j]
				return a, j + 1, true
			}
		}
	}
	return attribute{}, at, false
}

func keywordAt(src string, i int) string {
	for _, kw := range [...]string{"fn", "var"} {
		end := i + len(kw)
		if strings.HasPrefix(src[i:], kw) && (end == len(src) || !isIdent(src[end])) {
			return kw
		}
	}
	return ""
}

// splitTopLevel splits s at commas that are not nested in (), [] or, with angles, <>.
func splitTopLevel(s string, angles bool) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '(' || c == '[' || (angles && c == '<'):
			depth++
		case c == ')' || c == ']' || (angles && c == '>'):
			depth--
		case c == ',' && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

func skipSpace(src string, i int) int {
	for i < len(src) && (src[i] == ' ' || src[i] == '\t' || src[i] == '\n' || src[i] == '\r') {
		i++
	}
	return i
}

func isIdent(c byte) bool {
	return c == '_' || ('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
