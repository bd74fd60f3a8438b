package gpu

import (
	"testing"

	"github.com/openfluke/webgpu/wgpu"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfluke/wgcompute/wgsl"
)

const bindingSource = `
struct Dims { n: u32, _a: u32, _b: u32, _c: u32 }
@group(0) @binding(0) var<storage, read> x: array<f32>;
@group(0) @binding(1) var<storage, read_write> out: array<f32>;
@group(0) @binding(2) var<uniform> dims: Dims;

@compute @workgroup_size(64)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    if (gid.x >= dims.n) { return; }
    out[gid.x] = x[gid.x] * 2.0;
}
`

func mustParse(t *testing.T, src string) *wgsl.Module {
	t.Helper()
	m, err := wgsl.Parse(src)
	require.NoError(t, err)
	return m
}

func TestPlanBindingsDistinctOutput(t *testing.T) {
	m := mustParse(t, bindingSource)
	plans, err := planBindings(m, []Input{
		{Slot: 2, Kind: Uniform, Data: make([]byte, 16)},
		{Slot: 0, Kind: ReadOnlyStorage, Data: Bytes([]float32{1, 2, 3})},
	}, Output{Slot: 1, Size: 12})
	require.NoError(t, err)
	require.Len(t, plans, 3)

	assert.Equal(t, uint32(0), plans[0].slot)
	assert.Equal(t, usageReadOnlyInput, plans[0].usage)
	assert.False(t, plans[0].output)

	assert.Equal(t, uint32(1), plans[1].slot)
	assert.Nil(t, plans[1].data)
	assert.Equal(t, uint64(12), plans[1].size)
	assert.Equal(t, usageOutput, plans[1].usage)
	assert.True(t, plans[1].output)

	assert.Equal(t, uint32(2), plans[2].slot)
	assert.Equal(t, usageUniformInput, plans[2].usage)

	entries := layoutEntries(plans)
	require.Len(t, entries, 3)
	assert.Equal(t, wgpu.BufferBindingTypeReadOnlyStorage, entries[0].Buffer.Type)
	assert.Equal(t, wgpu.BufferBindingTypeStorage, entries[1].Buffer.Type)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, entries[2].Buffer.Type)
	assert.Equal(t, wgpu.ShaderStageCompute, entries[2].Visibility)
	assert.Equal(t, uint64(4), entries[0].Buffer.MinBindingSize)
	assert.Equal(t, uint64(16), entries[2].Buffer.MinBindingSize)
}

func TestPlanBindingsInPlace(t *testing.T) {
	m := mustParse(t, `
@group(0) @binding(0) var<storage, read_write> x: array<i32>;
@group(0) @binding(1) var<storage, read> y: array<i32>;
@compute @workgroup_size(1) fn main() {}
`)
	plans, err := planBindings(m, []Input{
		{Slot: 0, Kind: Storage, Data: Bytes([]int32{1, 2, 3, 4})},
		{Slot: 1, Kind: ReadOnlyStorage, Data: Bytes([]int32{4, 3, 2, 1})},
	}, Output{Slot: 0, Size: 16})
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.True(t, plans[0].output)
	assert.NotNil(t, plans[0].data)
	assert.Equal(t, usageInPlace, plans[0].usage)
	assert.False(t, plans[1].output)
}

func TestPlanBindingsErrors(t *testing.T) {
	m := mustParse(t, bindingSource)
	x := Input{Slot: 0, Kind: ReadOnlyStorage, Data: make([]byte, 16)}
	dims := Input{Slot: 2, Kind: Uniform, Data: make([]byte, 16)}
	out := Output{Slot: 1, Size: 16}

	for _, tc := range []struct {
		name   string
		src    string
		inputs []Input
		out    Output
		want   string
	}{
		{
			name: "zero output", inputs: []Input{x, dims}, out: Output{Slot: 1},
			want: "output size 0 is not a positive multiple of 4 bytes",
		},
		{
			name: "ragged output", inputs: []Input{x, dims}, out: Output{Slot: 1, Size: 6},
			want: "output size 6",
		},
		{
			name: "duplicate slot", inputs: []Input{x, x, dims}, out: out,
			want: "input 1: slot 0 supplied twice",
		},
		{
			name: "undeclared slot", inputs: []Input{x, dims, {Slot: 7, Data: make([]byte, 4)}}, out: out,
			want: "input 2: program declares nothing at @binding(7)",
		},
		{
			name: "kind mismatch", inputs: []Input{{Slot: 0, Kind: Storage, Data: make([]byte, 4)}, dims}, out: out,
			want: "input 0: @binding(0) is declared as storage, read, supplied as storage, read_write",
		},
		{
			name: "empty data", inputs: []Input{{Slot: 0, Kind: ReadOnlyStorage}, dims}, out: out,
			want: "input 0: 0 bytes is not a positive multiple of 4",
		},
		{
			name: "uniform smaller than its struct", inputs: []Input{x, {Slot: 2, Kind: Uniform, Data: make([]byte, 4)}}, out: out,
			want: "input 1: @binding(2) needs at least 16 bytes for its declared type, supplied 4",
		},
		{
			name:   "output smaller than fixed array",
			src:    "@group(0) @binding(0) var<storage, read_write> out: array<u32, 8>;\n@compute @workgroup_size(1) fn main() {}",
			inputs: nil, out: Output{Slot: 0, Size: 16},
			want:   "output: @binding(0) needs at least 32 bytes for its declared type, 16 requested",
		},
		{
			name: "missing buffer", inputs: []Input{x}, out: out,
			want: `"dims" at @binding(2) has no buffer`,
		},
		{
			name: "output on read-only slot", inputs: []Input{dims}, out: Output{Slot: 0, Size: 4},
			want: "output: @binding(0) is declared as storage, read, must be read_write storage",
		},
		{
			name: "output undeclared", inputs: []Input{x, dims}, out: Output{Slot: 5, Size: 4},
			want: "output: program declares nothing at @binding(5)",
		},
		{
			name: "in-place on read-only", inputs: []Input{x, dims}, out: Output{Slot: 0, Size: 16},
			want: "in-place output at @binding(0) must be read_write storage",
		},
		{
			name:   "in-place too small",
			src:    "@group(0) @binding(0) var<storage, read_write> x: array<u32>;\n@compute @workgroup_size(1) fn main() {}",
			inputs: []Input{{Slot: 0, Kind: Storage, Data: make([]byte, 8)}}, out: Output{Slot: 0, Size: 16},
			want:   "in-place output at @binding(0) holds 8 bytes, 16 requested",
		},
		{
			name:   "second group",
			src:    "@group(1) @binding(0) var<storage, read_write> x: array<u32>;\n@compute @workgroup_size(1) fn main() {}",
			inputs: nil, out: Output{Slot: 0, Size: 4},
			want:   `"x" is declared in @group(1); only @group(0) is bound`,
		},
		{
			name:   "texture",
			src:    "@group(0) @binding(0) var img: texture_2d<f32>;\n@compute @workgroup_size(1) fn main() {}",
			inputs: nil, out: Output{Slot: 0, Size: 4},
			want:   "only buffers can be bound",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			mod := m
			if tc.src != "" {
				mod = mustParse(t, tc.src)
			}
			_, err := planBindings(mod, tc.inputs, tc.out)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrBinding), "got %v", err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
