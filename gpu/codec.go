package gpu

import (
	"unsafe"

	"github.com/openfluke/webgpu/wgpu"
	"github.com/pkg/errors"
)

// Element is a 4-byte scalar a WGSL program can read from a buffer (i32, u32, f32).
type Element interface {
	~int32 | ~uint32 | ~float32
}

// Bytes returns a host copy of data as little-endian bytes in device layout.
func Bytes[T Element](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	b := wgpu.ToBytes(data)
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Decode converts read-back bytes into elements. The length must be a whole number of
// elements.
func Decode[T Element](b []byte) ([]T, error) {
	var zero T
	size := int(unsafe.Sizeof(zero))
	if len(b)%size != 0 {
		return nil, errors.Errorf("gpu: %d bytes is not a whole number of %d-byte elements", len(b), size)
	}
	out := make([]T, len(b)/size)
	if len(out) > 0 {
		copy(out, wgpu.FromBytes[T](b))
	}
	return out, nil
}

// SizeOf returns the byte size of n elements of T.
func SizeOf[T Element](n int) uint64 {
	var zero T
	return uint64(n) * uint64(unsafe.Sizeof(zero))
}
