package kernels

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfluke/wgcompute/gpu"
	"github.com/openfluke/wgcompute/wgsl"
)

// hostDispatcher records requests and answers them with the host references, so the
// request plumbing can be checked without a device.
type hostDispatcher struct {
	requests []gpu.Request
	err      error
}

func (h *hostDispatcher) Dispatch(_ context.Context, req gpu.Request) ([]byte, error) {
	h.requests = append(h.requests, req)
	if h.err != nil {
		return nil, h.err
	}
	in := map[uint32][]byte{}
	for _, i := range req.Inputs {
		in[i.Slot] = i.Data
	}
	ints := func(slot uint32) []int32 {
		v, err := gpu.Decode[int32](in[slot])
		if err != nil {
			panic(err)
		}
		return v
	}
	u32 := func(slot uint32, i int) int {
		return int(binary.LittleEndian.Uint32(in[slot][4*i:]))
	}

	var out []int32
	switch req.Program.Label {
	case "saxpy":
		out = SaxpyRef(ints(2)[0], ints(0), ints(1))
	case "outer":
		out = OuterRef(ints(0), ints(1))
	case "dot":
		out = []int32{DotRef(ints(0), ints(1))}
	case "transpose":
		out = TransposeRef(u32(2, 0), u32(2, 1), ints(0))
	case "matmul":
		out = MatMulRef(u32(3, 0), u32(3, 1), u32(3, 2), ints(0), ints(1))
	default:
		return nil, errors.Errorf("no host emulation for %q", req.Program.Label)
	}
	return gpu.Bytes(out), nil
}

// checkAgainstShader asserts the request supplies every slot the shader declares with
// the declared kind.
func checkAgainstShader(t *testing.T, req gpu.Request) {
	t.Helper()
	mod, err := wgsl.Parse(req.Program.Source)
	require.NoError(t, err)
	ep, ok := mod.EntryPoint(req.Program.EntryPoint)
	require.True(t, ok)
	assert.Equal(t, wgsl.StageCompute, ep.Stage)

	kinds := map[wgsl.ResourceType]gpu.BindingKind{
		wgsl.ResourceReadOnlyStorage: gpu.ReadOnlyStorage,
		wgsl.ResourceStorage:         gpu.Storage,
		wgsl.ResourceUniform:         gpu.Uniform,
	}
	supplied := map[uint32]gpu.BindingKind{}
	for _, in := range req.Inputs {
		supplied[in.Slot] = in.Kind
	}
	if _, ok := supplied[req.Output.Slot]; !ok {
		supplied[req.Output.Slot] = gpu.Storage
	}
	require.Len(t, supplied, len(mod.Bindings))
	for _, b := range mod.Bindings {
		assert.Equal(t, kinds[b.Resource], supplied[b.Slot], "binding %s", b.Name)
	}
}

func TestShadersReflect(t *testing.T) {
	for _, name := range []string{"saxpy", "outer", "dot", "transpose", "matmul"} {
		src, err := Source(name)
		require.NoError(t, err, name)
		mod, err := wgsl.Parse(src)
		require.NoError(t, err, name)
		_, ok := mod.EntryPoint("main")
		assert.True(t, ok, name)
	}
	_, err := Source("missing")
	assert.Error(t, err)
}

func TestSaxpyRequest(t *testing.T) {
	h := &hostDispatcher{}
	out, err := Saxpy(context.Background(), h, 10, []int32{1, 2, 3, 4}, []int32{4, 3, 2, 1})
	require.NoError(t, err)
	assert.Equal(t, []int32{14, 23, 32, 41}, out)

	require.Len(t, h.requests, 1)
	req := h.requests[0]
	checkAgainstShader(t, req)
	assert.Equal(t, gpu.Output{Slot: 0, Size: 16}, req.Output)
	assert.Equal(t, gpu.Grid1D(1), req.Grid)
}

func TestOuterRequest(t *testing.T) {
	h := &hostDispatcher{}
	m, err := Outer(context.Background(), h, []int32{1, 2, 3}, []int32{1, 10})
	require.NoError(t, err)
	assert.Equal(t, Matrix{Rows: 3, Cols: 2, Data: []int32{1, 10, 2, 20, 3, 30}}, m)

	req := h.requests[0]
	checkAgainstShader(t, req)
	assert.Equal(t, uint64(24), req.Output.Size)
	assert.Equal(t, gpu.Grid2D(1, 1), req.Grid)
}

func TestDotRequest(t *testing.T) {
	h := &hostDispatcher{}
	x := make([]int32, 130)
	for i := range x {
		x[i] = int32(i)
	}
	sum, err := Dot(context.Background(), h, x, x)
	require.NoError(t, err)
	assert.Equal(t, DotRef(x, x), sum)

	req := h.requests[0]
	checkAgainstShader(t, req)
	assert.Equal(t, uint64(4), req.Output.Size)
	assert.Equal(t, gpu.Grid1D(3), req.Grid)
}

func TestTransposeRequest(t *testing.T) {
	h := &hostDispatcher{}
	in := Matrix{Rows: 2, Cols: 3, Data: []int32{1, 2, 3, 4, 5, 6}}
	out, err := Transpose(context.Background(), h, in)
	require.NoError(t, err)
	assert.Equal(t, Matrix{Rows: 3, Cols: 2, Data: []int32{1, 4, 2, 5, 3, 6}}, out)

	req := h.requests[0]
	checkAgainstShader(t, req)
	require.Len(t, req.Inputs, 2)
	assert.Len(t, req.Inputs[1].Data, 16, "uniform block is padded to 16 bytes")
}

func TestMatMulRequest(t *testing.T) {
	h := &hostDispatcher{}
	x := Matrix{Rows: 2, Cols: 3, Data: []int32{1, 2, 3, 4, 5, 6}}
	y := Matrix{Rows: 3, Cols: 2, Data: []int32{7, 8, 9, 10, 11, 12}}
	out, err := MatMul(context.Background(), h, x, y)
	require.NoError(t, err)
	assert.Equal(t, Matrix{Rows: 2, Cols: 2, Data: []int32{58, 64, 139, 154}}, out)

	req := h.requests[0]
	checkAgainstShader(t, req)
	assert.Equal(t, uint64(16), req.Output.Size)
	assert.Equal(t, []byte{2, 0, 0, 0, 3, 0, 0, 0, 2, 0, 0, 0, 0, 0, 0, 0}, req.Inputs[2].Data)
}

func TestArgumentErrors(t *testing.T) {
	h := &hostDispatcher{}
	ctx := context.Background()

	_, err := Saxpy(ctx, h, 1, []int32{1}, []int32{1, 2})
	assert.Error(t, err)
	_, err = Outer(ctx, h, nil, []int32{1})
	assert.Error(t, err)
	_, err = Dot(ctx, h, []int32{}, []int32{})
	assert.Error(t, err)
	_, err = Transpose(ctx, h, Matrix{Rows: 2, Cols: 2, Data: []int32{1}})
	assert.Error(t, err)
	_, err = MatMul(ctx, h, Matrix{Rows: 1, Cols: 2, Data: []int32{1, 2}}, Matrix{Rows: 1, Cols: 2, Data: []int32{1, 2}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot multiply 1x2 by 1x2")

	assert.Empty(t, h.requests, "nothing is dispatched for bad arguments")
}

func TestDispatchErrorPropagates(t *testing.T) {
	h := &hostDispatcher{err: &gpu.Error{Kind: gpu.KindExecution, Err: errors.New("read-back timed out")}}
	_, err := Saxpy(context.Background(), h, 1, []int32{1}, []int32{1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, gpu.ErrExecution))
}

func TestNewMatrix(t *testing.T) {
	m, err := NewMatrix(2, 2, []int32{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, int32(3), m.At(1, 0))

	_, err = NewMatrix(0, 2, nil)
	assert.Error(t, err)
}
