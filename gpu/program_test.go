package gpu

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgramReflectExpressionWorkgroupSize(t *testing.T) {
	p := Program{Source: `
const WG: u32 = 32u;
@group(0) @binding(0) var<storage, read_write> x: array<i32>;

@compute @workgroup_size((WG * 2u))
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    x[gid.x] = x[gid.x] + 1;
}
`, EntryPoint: "main"}

	mod, ep, err := p.reflect()
	require.NoError(t, err)
	assert.Equal(t, "main", ep.Name)
	assert.Equal(t, [3]uint32{0, 1, 1}, ep.WorkgroupSize)
	require.Len(t, mod.Bindings, 1)
}

func TestProgramReflectErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		p    Program
		want string
	}{
		{"no entry point", Program{Source: saxpyProgram}, "no entry point named"},
		{"absent", Program{Source: saxpyProgram, EntryPoint: "other"}, `program "other" has no entry point "other"`},
		{"empty", Program{Label: "blank", Source: " ", EntryPoint: "main"}, `program "blank"`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := tc.p.reflect()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrCompile))
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
