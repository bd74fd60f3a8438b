package kernels

import "golang.org/x/exp/constraints"

// Number is any element type the host references accept.
type Number interface {
	constraints.Integer | constraints.Float
}

// SaxpyRef is the host reference for Saxpy.
func SaxpyRef[T Number](a T, x, y []T) []T {
	out := make([]T, len(x))
	for i := range x {
		out[i] = a*x[i] + y[i]
	}
	return out
}

// OuterRef is the host reference for Outer, row major.
func OuterRef[T Number](x, y []T) []T {
	out := make([]T, 0, len(x)*len(y))
	for _, xi := range x {
		for _, yj := range y {
			out = append(out, xi*yj)
		}
	}
	return out
}

// DotRef is the host reference for Dot.
func DotRef[T Number](x, y []T) T {
	var sum T
	for i := range x {
		sum += x[i] * y[i]
	}
	return sum
}

// TransposeRef transposes a rows x cols row-major matrix.
func TransposeRef[T Number](rows, cols int, data []T) []T {
	out := make([]T, len(data))
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out[j*rows+i] = data[i*cols+j]
		}
	}
	return out
}

// MatMulRef multiplies a rows x inner matrix by an inner x cols matrix.
func MatMulRef[T Number](rows, inner, cols int, x, y []T) []T {
	out := make([]T, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			var acc T
			for k := 0; k < inner; k++ {
				acc += x[i*inner+k] * y[k*cols+j]
			}
			out[i*cols+j] = acc
		}
	}
	return out
}
