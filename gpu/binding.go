package gpu

import (
	"sort"

	"github.com/openfluke/webgpu/wgpu"

	"github.com/openfluke/wgcompute/wgsl"
)

// BindingKind is the resource kind a buffer is bound as. It must match the program's
// declaration at the same slot.
type BindingKind int

const (
	// ReadOnlyStorage matches var<storage, read>.
	ReadOnlyStorage BindingKind = iota
	// Storage matches var<storage, read_write>.
	Storage
	// Uniform matches var<uniform>.
	Uniform
)

func (k BindingKind) String() string {
	switch k {
	case ReadOnlyStorage:
		return "storage, read"
	case Storage:
		return "storage, read_write"
	case Uniform:
		return "uniform"
	default:
		return "unknown"
	}
}

func (k BindingKind) bufferBindingType() wgpu.BufferBindingType {
	switch k {
	case Storage:
		return wgpu.BufferBindingTypeStorage
	case Uniform:
		return wgpu.BufferBindingTypeUniform
	default:
		return wgpu.BufferBindingTypeReadOnlyStorage
	}
}

func kindOf(r wgsl.ResourceType) (BindingKind, bool) {
	switch r {
	case wgsl.ResourceReadOnlyStorage:
		return ReadOnlyStorage, true
	case wgsl.ResourceStorage:
		return Storage, true
	case wgsl.ResourceUniform:
		return Uniform, true
	default:
		return 0, false
	}
}

// Input is a host array copied into a fresh device buffer at dispatch start.
type Input struct {
	Slot uint32
	Kind BindingKind
	Data []byte
}

// Output names the buffer read back after the dispatch. If an Input has the same Slot the
// program writes in place into it; otherwise a zeroed buffer of Size bytes is bound there.
type Output struct {
	Slot uint32
	Size uint64
}

// bindGroup is the only group dispatched programs may declare resources in.
const bindGroup = 0

// slotPlan is one entry of the binding set, in slot order.
type slotPlan struct {
	slot    uint32
	kind    BindingKind
	data    []byte // nil for a distinct output buffer
	size    uint64
	minSize uint64 // 0 when the declared type's size is unknown
	usage   wgpu.BufferUsage
	output  bool
}

// planBindings checks the supplied buffers against the program's declarations and
// returns the binding set. It runs before anything is allocated on the device.
func planBindings(mod *wgsl.Module, inputs []Input, out Output) ([]slotPlan, error) {
	if out.Size == 0 || out.Size%4 != 0 {
		return nil, errorf(KindBinding, "output size %d is not a positive multiple of 4 bytes", out.Size)
	}

	declared := make(map[uint32]BindingKind, len(mod.Bindings))
	minSize := make(map[uint32]uint64, len(mod.Bindings))
	for _, b := range mod.Bindings {
		if b.Group != bindGroup {
			return nil, errorf(KindBinding, "%q is declared in @group(%d); only @group(%d) is bound", b.Name, b.Group, bindGroup)
		}
		kind, ok := kindOf(b.Resource)
		if !ok {
			return nil, errorf(KindBinding, "%q at @binding(%d) is a %s resource; only buffers can be bound", b.Name, b.Slot, b.Resource)
		}
		declared[b.Slot] = kind
		if n, ok := mod.MinBindingSize(b); ok {
			minSize[b.Slot] = n
		}
	}

	plans := make([]slotPlan, 0, len(inputs)+1)
	supplied := make(map[uint32]bool, len(inputs)+1)
	inPlace := false
	for i, in := range inputs {
		if supplied[in.Slot] {
			return nil, errorf(KindBinding, "input %d: slot %d supplied twice", i, in.Slot)
		}
		supplied[in.Slot] = true

		want, ok := declared[in.Slot]
		if !ok {
			return nil, errorf(KindBinding, "input %d: program declares nothing at @binding(%d)", i, in.Slot)
		}
		if in.Kind != want {
			return nil, errorf(KindBinding, "input %d: @binding(%d) is declared as %s, supplied as %s", i, in.Slot, want, in.Kind)
		}
		if len(in.Data) == 0 || len(in.Data)%4 != 0 {
			return nil, errorf(KindBinding, "input %d: %d bytes is not a positive multiple of 4", i, len(in.Data))
		}

		p := slotPlan{slot: in.Slot, kind: in.Kind, data: in.Data, size: uint64(len(in.Data)), minSize: minSize[in.Slot]}
		if p.size < p.minSize {
			return nil, errorf(KindBinding, "input %d: @binding(%d) needs at least %d bytes for its declared type, supplied %d", i, in.Slot, p.minSize, p.size)
		}
		switch {
		case in.Slot == out.Slot:
			if in.Kind != Storage {
				return nil, errorf(KindBinding, "in-place output at @binding(%d) must be read_write storage", in.Slot)
			}
			if p.size < out.Size {
				return nil, errorf(KindBinding, "in-place output at @binding(%d) holds %d bytes, %d requested", in.Slot, p.size, out.Size)
			}
			p.usage, p.output, inPlace = usageInPlace, true, true
		case in.Kind == Uniform:
			p.usage = usageUniformInput
		default:
			p.usage = usageReadOnlyInput
		}
		plans = append(plans, p)
	}

	if !inPlace {
		want, ok := declared[out.Slot]
		if !ok {
			return nil, errorf(KindBinding, "output: program declares nothing at @binding(%d)", out.Slot)
		}
		if want != Storage {
			return nil, errorf(KindBinding, "output: @binding(%d) is declared as %s, must be read_write storage", out.Slot, want)
		}
		if out.Size < minSize[out.Slot] {
			return nil, errorf(KindBinding, "output: @binding(%d) needs at least %d bytes for its declared type, %d requested", out.Slot, minSize[out.Slot], out.Size)
		}
		supplied[out.Slot] = true
		plans = append(plans, slotPlan{slot: out.Slot, kind: Storage, size: out.Size, minSize: minSize[out.Slot], usage: usageOutput, output: true})
	}

	for _, b := range mod.Bindings {
		if !supplied[b.Slot] {
			return nil, errorf(KindBinding, "%q at @binding(%d) has no buffer", b.Name, b.Slot)
		}
	}

	sort.Slice(plans, func(i, j int) bool { return plans[i].slot < plans[j].slot })
	return plans, nil
}

func layoutEntries(plans []slotPlan) []wgpu.BindGroupLayoutEntry {
	entries := make([]wgpu.BindGroupLayoutEntry, len(plans))
	for i, p := range plans {
		entries[i] = wgpu.BindGroupLayoutEntry{
			Binding:    p.slot,
			Visibility: wgpu.ShaderStageCompute,
			Buffer: wgpu.BufferBindingLayout{
				Type:           p.kind.bufferBindingType(),
				MinBindingSize: p.minSize,
			},
		}
	}
	return entries
}
