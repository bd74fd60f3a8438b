// Package kernels holds the numeric compute programs and typed wrappers that build
// dispatch requests for them.
package kernels

import (
	"context"
	"embed"

	"github.com/openfluke/webgpu/wgpu"
	"github.com/pkg/errors"

	"github.com/openfluke/wgcompute/gpu"
)

//go:embed shaders/*.wgsl
var shaders embed.FS

// Dispatcher runs one request. *gpu.Dispatcher implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, req gpu.Request) ([]byte, error)
}

// Workgroup sizes declared by the shaders.
const (
	linearGroup = 64
	tileGroup   = 8
)

// Source returns the WGSL text of a named shader ("saxpy", "outer", "dot", "transpose",
// "matmul").
func Source(name string) (string, error) {
	b, err := shaders.ReadFile("shaders/" + name + ".wgsl")
	if err != nil {
		return "", errors.Wrapf(err, "kernels: no shader %q", name)
	}
	return string(b), nil
}

func program(name string) (gpu.Program, error) {
	src, err := Source(name)
	if err != nil {
		return gpu.Program{}, err
	}
	return gpu.Program{Label: name, Source: src, EntryPoint: "main"}, nil
}

// Matrix is a row-major int32 matrix.
type Matrix struct {
	Rows int
	Cols int
	Data []int32
}

// NewMatrix wraps data as a rows x cols matrix.
func NewMatrix(rows, cols int, data []int32) (Matrix, error) {
	m := Matrix{Rows: rows, Cols: cols, Data: data}
	return m, m.check("matrix")
}

// At returns the element at row i, column j.
func (m Matrix) At(i, j int) int32 { return m.Data[i*m.Cols+j] }

func (m Matrix) check(name string) error {
	if m.Rows <= 0 || m.Cols <= 0 {
		return errors.Errorf("kernels: %s has shape %dx%d", name, m.Rows, m.Cols)
	}
	if len(m.Data) != m.Rows*m.Cols {
		return errors.Errorf("kernels: %s is %dx%d but holds %d values", name, m.Rows, m.Cols, len(m.Data))
	}
	return nil
}

// dims2 and dims3 are the uniform blocks of transpose.wgsl and matmul.wgsl, padded to
// 16 bytes.
type dims2 struct {
	Rows, Cols uint32
	_, _       uint32
}

type dims3 struct {
	Rows, Inner, Cols uint32
	_                 uint32
}

func uniformBytes[T any](v T) []byte {
	b := wgpu.ToBytes([]T{v})
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func decode(out []byte, err error) ([]int32, error) {
	if err != nil {
		return nil, err
	}
	return gpu.Decode[int32](out)
}

// Saxpy returns a*x + y computed in place in x's device buffer.
func Saxpy(ctx context.Context, d Dispatcher, a int32, x, y []int32) ([]int32, error) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, errors.Errorf("kernels: saxpy needs equal non-empty vectors, got %d and %d", len(x), len(y))
	}
	p, err := program("saxpy")
	if err != nil {
		return nil, err
	}
	return decode(d.Dispatch(ctx, gpu.Request{
		Program: p,
		Inputs: []gpu.Input{
			{Slot: 0, Kind: gpu.Storage, Data: gpu.Bytes(x)},
			{Slot: 1, Kind: gpu.ReadOnlyStorage, Data: gpu.Bytes(y)},
			{Slot: 2, Kind: gpu.ReadOnlyStorage, Data: gpu.Bytes([]int32{a})},
		},
		Output: gpu.Output{Slot: 0, Size: gpu.SizeOf[int32](len(x))},
		Grid:   gpu.Grid1D(gpu.Workgroups(len(x), linearGroup)),
	}))
}

// Outer returns the len(x) x len(y) matrix of products x[i]*y[j].
func Outer(ctx context.Context, d Dispatcher, x, y []int32) (Matrix, error) {
	if len(x) == 0 || len(y) == 0 {
		return Matrix{}, errors.Errorf("kernels: outer product of empty vector")
	}
	p, err := program("outer")
	if err != nil {
		return Matrix{}, err
	}
	data, err := decode(d.Dispatch(ctx, gpu.Request{
		Program: p,
		Inputs: []gpu.Input{
			{Slot: 0, Kind: gpu.ReadOnlyStorage, Data: gpu.Bytes(x)},
			{Slot: 1, Kind: gpu.ReadOnlyStorage, Data: gpu.Bytes(y)},
		},
		Output: gpu.Output{Slot: 2, Size: gpu.SizeOf[int32](len(x) * len(y))},
		Grid:   gpu.Grid2D(gpu.Workgroups(len(x), tileGroup), gpu.Workgroups(len(y), tileGroup)),
	}))
	if err != nil {
		return Matrix{}, err
	}
	return Matrix{Rows: len(x), Cols: len(y), Data: data}, nil
}

// Dot returns sum(x[i]*y[i]) reduced on the device with atomic adds.
func Dot(ctx context.Context, d Dispatcher, x, y []int32) (int32, error) {
	if len(x) == 0 || len(x) != len(y) {
		return 0, errors.Errorf("kernels: dot needs equal non-empty vectors, got %d and %d", len(x), len(y))
	}
	p, err := program("dot")
	if err != nil {
		return 0, err
	}
	out, err := decode(d.Dispatch(ctx, gpu.Request{
		Program: p,
		Inputs: []gpu.Input{
			{Slot: 0, Kind: gpu.ReadOnlyStorage, Data: gpu.Bytes(x)},
			{Slot: 1, Kind: gpu.ReadOnlyStorage, Data: gpu.Bytes(y)},
		},
		Output: gpu.Output{Slot: 2, Size: gpu.SizeOf[int32](1)},
		Grid:   gpu.Grid1D(gpu.Workgroups(len(x), linearGroup)),
	}))
	if err != nil {
		return 0, err
	}
	if len(out) != 1 {
		return 0, errors.Errorf("kernels: dot read back %d values", len(out))
	}
	return out[0], nil
}

// Transpose returns the transpose of m.
func Transpose(ctx context.Context, d Dispatcher, m Matrix) (Matrix, error) {
	if err := m.check("transpose input"); err != nil {
		return Matrix{}, err
	}
	p, err := program("transpose")
	if err != nil {
		return Matrix{}, err
	}
	data, err := decode(d.Dispatch(ctx, gpu.Request{
		Program: p,
		Inputs: []gpu.Input{
			{Slot: 0, Kind: gpu.ReadOnlyStorage, Data: gpu.Bytes(m.Data)},
			{Slot: 2, Kind: gpu.Uniform, Data: uniformBytes(dims2{Rows: uint32(m.Rows), Cols: uint32(m.Cols)})},
		},
		Output: gpu.Output{Slot: 1, Size: gpu.SizeOf[int32](len(m.Data))},
		Grid:   gpu.Grid2D(gpu.Workgroups(m.Cols, tileGroup), gpu.Workgroups(m.Rows, tileGroup)),
	}))
	if err != nil {
		return Matrix{}, err
	}
	return Matrix{Rows: m.Cols, Cols: m.Rows, Data: data}, nil
}

// MatMul returns the matrix product x*y.
func MatMul(ctx context.Context, d Dispatcher, x, y Matrix) (Matrix, error) {
	if err := x.check("left operand"); err != nil {
		return Matrix{}, err
	}
	if err := y.check("right operand"); err != nil {
		return Matrix{}, err
	}
	if x.Cols != y.Rows {
		return Matrix{}, errors.Errorf("kernels: cannot multiply %dx%d by %dx%d", x.Rows, x.Cols, y.Rows, y.Cols)
	}
	p, err := program("matmul")
	if err != nil {
		return Matrix{}, err
	}
	dims := dims3{Rows: uint32(x.Rows), Inner: uint32(x.Cols), Cols: uint32(y.Cols)}
	data, err := decode(d.Dispatch(ctx, gpu.Request{
		Program: p,
		Inputs: []gpu.Input{
			{Slot: 0, Kind: gpu.ReadOnlyStorage, Data: gpu.Bytes(x.Data)},
			{Slot: 1, Kind: gpu.ReadOnlyStorage, Data: gpu.Bytes(y.Data)},
			{Slot: 3, Kind: gpu.Uniform, Data: uniformBytes(dims)},
		},
		Output: gpu.Output{Slot: 2, Size: gpu.SizeOf[int32](x.Rows * y.Cols)},
		Grid:   gpu.Grid2D(gpu.Workgroups(y.Cols, tileGroup), gpu.Workgroups(x.Rows, tileGroup)),
	}))
	if err != nil {
		return Matrix{}, err
	}
	return Matrix{Rows: x.Rows, Cols: y.Cols, Data: data}, nil
}
