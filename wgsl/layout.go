package wgsl

import (
	"regexp"
	"strings"
)

// Struct is a module-scope struct declaration.
type Struct struct {
	Name    string
	Members []Member
}

// Member is one field of a Struct. Attributes such as @align and @size are dropped, so
// sizes computed from it are lower bounds.
type Member struct {
	Name string
	Type string
}

var (
	structDecl = regexp.MustCompile(`\bstruct\s+(\w+)\s*\{([^}]*)\}`)
	vecType    = regexp.MustCompile(`^vec([234])([fiuh]?)$`)
	matType    = regexp.MustCompile(`^mat([234])x([234])([fh]?)$`)
)

var scalarSize = map[string]uint64{"i32": 4, "u32": 4, "f32": 4, "f16": 2}

func parseStructs(src string) map[string]Struct {
	structs := make(map[string]Struct)
	for _, match := range structDecl.FindAllStringSubmatch(src, -1) {
		s := Struct{Name: match[1]}
		body := strings.ReplaceAll(match[2], ";", ",")
		for _, field := range splitTopLevel(body, true) {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			_, next := scanAttributes(field, 0)
			name, typ, ok := strings.Cut(field[next:], ":")
			if !ok {
				continue
			}
			s.Members = append(s.Members, Member{Name: strings.TrimSpace(name), Type: strings.TrimSpace(typ)})
		}
		structs[s.Name] = s
	}
	return structs
}

// MinBindingSize returns the smallest buffer in bytes that can back b. Runtime-sized
// arrays count as one element. It reports false when the type is not understood.
func (m *Module) MinBindingSize(b Binding) (uint64, bool) {
	l, ok := m.layout(b.DataType, b.Resource == ResourceUniform, 0)
	if !ok {
		return 0, false
	}
	return l.size, true
}

type typeLayout struct {
	size  uint64
	align uint64
}

func (m *Module) layout(t string, uniform bool, depth int) (typeLayout, bool) {
	t = strings.TrimSpace(t)
	if depth > 16 || t == "" {
		return typeLayout{}, false
	}
	base, args := t, []string(nil)
	if i := strings.IndexByte(t, '<'); i > 0 && strings.HasSuffix(t, ">") {
		base = strings.TrimSpace(t[:i])
		args = splitTopLevel(t[i+1:len(t)-1], true)
	}

	if s, ok := scalarSize[base]; ok && args == nil {
		return typeLayout{s, s}, true
	}
	if base == "atomic" && len(args) == 1 {
		return m.layout(args[0], uniform, depth+1)
	}
	if v := vecType.FindStringSubmatch(base); v != nil {
		s, ok := elementSize(v[2], args)
		if !ok {
			return typeLayout{}, false
		}
		return vecLayout(uint64(v[1][0]-'0'), s), true
	}
	if mt := matType.FindStringSubmatch(base); mt != nil {
		s, ok := elementSize(mt[3], args)
		if !ok {
			return typeLayout{}, false
		}
		col := vecLayout(uint64(mt[2][0]-'0'), s)
		return typeLayout{size: uint64(mt[1][0]-'0') * roundUp(col.align, col.size), align: col.align}, true
	}
	if base == "array" && (len(args) == 1 || len(args) == 2) {
		elem, ok := m.layout(args[0], uniform, depth+1)
		if !ok {
			return typeLayout{}, false
		}
		count := uint64(1)
		if len(args) == 2 {
			n, err := parseUint(args[1])
			if err != nil {
				return typeLayout{}, false
			}
			count = uint64(n)
		}
		stride, align := roundUp(elem.align, elem.size), elem.align
		if uniform {
			stride, align = roundUp(16, stride), roundUp(16, align)
		}
		return typeLayout{size: count * stride, align: align}, true
	}
	if s, ok := m.Structs[base]; ok && args == nil && len(s.Members) > 0 {
		var offset, align uint64
		for _, mem := range s.Members {
			l, ok := m.layout(mem.Type, uniform, depth+1)
			if !ok {
				return typeLayout{}, false
			}
			offset = roundUp(l.align, offset) + l.size
			align = max(align, l.align)
		}
		l := typeLayout{size: roundUp(align, offset), align: align}
		if uniform && depth > 0 {
			// Uniform struct members start on 16-byte boundaries.
			l.align = roundUp(16, align)
		}
		return l, true
	}
	return typeLayout{}, false
}

// elementSize resolves the scalar of a vector or matrix from its suffix or template.
func elementSize(suffix string, args []string) (uint64, bool) {
	switch suffix {
	case "f", "i", "u":
		return 4, args == nil
	case "h":
		return 2, args == nil
	}
	if len(args) != 1 {
		return 0, false
	}
	s, ok := scalarSize[strings.TrimSpace(args[0])]
	return s, ok
}

func vecLayout(n, scalar uint64) typeLayout {
	if n == 3 {
		return typeLayout{size: 3 * scalar, align: 4 * scalar}
	}
	return typeLayout{size: n * scalar, align: n * scalar}
}

func roundUp(k, n uint64) uint64 {
	if k == 0 {
		return n
	}
	return (n + k - 1) / k * k
}
