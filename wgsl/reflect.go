// Package wgsl reads the parts of a WGSL program the host needs before handing it to the
// device: entry points and the resources they expect at each @group/@binding slot.
//
// It is not a WGSL parser. Declarations are matched on their attribute run, which is
// enough for the flat programs dispatched by this module.
package wgsl

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Stage of a WGSL entry point.
type Stage int

const (
	StageCompute Stage = iota + 1
	StageVertex
	StageFragment
)

func (s Stage) String() string {
	switch s {
	case StageCompute:
		return "compute"
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	default:
		return "unknown"
	}
}

// ResourceType is the kind of resource a binding declares.
type ResourceType int

const (
	ResourceUnknown ResourceType = iota
	// ResourceReadOnlyStorage is var<storage> or var<storage, read>.
	ResourceReadOnlyStorage
	// ResourceStorage is var<storage, read_write>.
	ResourceStorage
	// ResourceUniform is var<uniform>.
	ResourceUniform
	// ResourceHandle covers textures and samplers (no address space).
	ResourceHandle
)

func (r ResourceType) String() string {
	switch r {
	case ResourceReadOnlyStorage:
		return "storage, read"
	case ResourceStorage:
		return "storage, read_write"
	case ResourceUniform:
		return "uniform"
	case ResourceHandle:
		return "handle"
	default:
		return "unknown"
	}
}

// EntryPoint is a function carrying a stage attribute.
type EntryPoint struct {
	Name  string
	Stage Stage
	// WorkgroupSize holds the literal @workgroup_size of a compute entry point.
	// Omitted dimensions are 1; dimensions given by a named constant are 0.
	WorkgroupSize [3]uint32
}

// Binding is a module-scope variable declared with @group and @binding.
type Binding struct {
	Group    uint32
	Slot     uint32
	Name     string
	Resource ResourceType
	DataType string
}

// Module is the reflected interface of a program.
type Module struct {
	EntryPoints []EntryPoint
	// Bindings are sorted by group, then slot.
	Bindings []Binding
	// Structs holds the module-scope struct declarations by name.
	Structs map[string]Struct
}

var (
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	lineComment  = regexp.MustCompile(`//[^\n]*`)
	fnName       = regexp.MustCompile(`^\s+(\w+)`)
	varTail      = regexp.MustCompile(`^\s*(?:<([^>]*)>)?\s*(\w+)\s*:\s*([^;=]+)`)
)

// Parse reflects the program text. It fails only when the text is empty or a declaration
// carries malformed @group/@binding values.
func Parse(source string) (*Module, error) {
	if strings.TrimSpace(source) == "" {
		return nil, errors.New("wgsl: empty program text")
	}
	src := stripComments(source)

	m := &Module{Structs: parseStructs(src)}
	seen := make(map[[2]uint32]string)
	for _, d := range declarations(src) {
		switch d.keyword {
		case "fn":
			match := fnName.FindStringSubmatch(d.rest)
			if match == nil {
				continue
			}
			ep, ok, err := parseEntryPoint(d.attrs, match[1])
			if err != nil {
				return nil, err
			}
			if ok {
				m.EntryPoints = append(m.EntryPoints, ep)
			}
		case "var":
			match := varTail.FindStringSubmatch(d.rest)
			if match == nil {
				continue
			}
			b, ok, err := parseBinding(d.attrs, match[1], match[2], match[3])
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			key := [2]uint32{b.Group, b.Slot}
			if prev, dup := seen[key]; dup {
				return nil, errors.Errorf("wgsl: @group(%d) @binding(%d) declared twice (%s, %s)", b.Group, b.Slot, prev, b.Name)
			}
			seen[key] = b.Name
			m.Bindings = append(m.Bindings, b)
		}
	}
	sort.Slice(m.Bindings, func(i, j int) bool {
		if m.Bindings[i].Group != m.Bindings[j].Group {
			return m.Bindings[i].Group < m.Bindings[j].Group
		}
		return m.Bindings[i].Slot < m.Bindings[j].Slot
	})
	return m, nil
}

// EntryPoint looks up an entry point by name.
func (m *Module) EntryPoint(name string) (EntryPoint, bool) {
	for _, ep := range m.EntryPoints {
		if ep.Name == name {
			return ep, true
		}
	}
	return EntryPoint{}, false
}

// Binding looks up the declaration at a group/slot.
func (m *Module) Binding(group, slot uint32) (Binding, bool) {
	for _, b := range m.Bindings {
		if b.Group == group && b.Slot == slot {
			return b, true
		}
	}
	return Binding{}, false
}

func stripComments(src string) string {
	src = blockComment.ReplaceAllString(src, " ")
	return lineComment.ReplaceAllString(src, "")
}

func parseEntryPoint(attrs []attribute, name string) (EntryPoint, bool, error) {
	ep := EntryPoint{Name: name}
	for _, a := range attrs {
		switch a.name {
		case "compute":
			ep.Stage = StageCompute
		case "vertex":
			ep.Stage = StageVertex
		case "fragment":
			ep.Stage = StageFragment
		case "workgroup_size":
			size, err := parseWorkgroupSize(a.args)
			if err != nil {
				return EntryPoint{}, false, errors.WithMessagef(err, "wgsl: entry point %q", name)
			}
			ep.WorkgroupSize = size
		}
	}
	if ep.Stage == 0 {
		return EntryPoint{}, false, nil
	}
	if ep.Stage == StageCompute && ep.WorkgroupSize == [3]uint32{} {
		ep.WorkgroupSize = [3]uint32{1, 1, 1}
	}
	return ep, true, nil
}

func parseWorkgroupSize(args string) ([3]uint32, error) {
	size := [3]uint32{1, 1, 1}
	parts := splitTopLevel(args, false)
	if len(parts) > 3 {
		return size, errors.Errorf("@workgroup_size(%s) has more than 3 dimensions", args)
	}
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := parseUint(p)
		if err != nil {
			// Named constant or expression: unknown on the host.
			size[i] = 0
			continue
		}
		size[i] = v
	}
	return size, nil
}

func parseBinding(attrs []attribute, space, name, dataType string) (Binding, bool, error) {
	b := Binding{Name: name, DataType: strings.TrimSpace(dataType)}
	var hasGroup, hasBinding bool
	for _, a := range attrs {
		switch a.name {
		case "group":
			v, err := parseUint(a.args)
			if err != nil {
				return Binding{}, false, errors.Wrapf(err, "wgsl: @group of %q", name)
			}
			b.Group, hasGroup = v, true
		case "binding":
			v, err := parseUint(a.args)
			if err != nil {
				return Binding{}, false, errors.Wrapf(err, "wgsl: @binding of %q", name)
			}
			b.Slot, hasBinding = v, true
		}
	}
	if !hasGroup && !hasBinding {
		return Binding{}, false, nil
	}
	if hasGroup != hasBinding {
		return Binding{}, false, errors.Errorf("wgsl: %q needs both @group and @binding", name)
	}
	b.Resource = resourceOf(space)
	return b, true, nil
}

func resourceOf(space string) ResourceType {
	if strings.TrimSpace(space) == "" {
		return ResourceHandle
	}
	parts := strings.Split(space, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	switch parts[0] {
	case "uniform":
		return ResourceUniform
	case "storage":
		if len(parts) > 1 && parts[1] == "read_write" {
			return ResourceStorage
		}
		return ResourceReadOnlyStorage
	default:
		return ResourceUnknown
	}
}

func parseUint(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	for len(s) > 1 && s[0] == '(' && s[len(s)-1] == ')' {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	s = strings.TrimSuffix(s, "u")
	s = strings.TrimSuffix(s, "i")
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}
