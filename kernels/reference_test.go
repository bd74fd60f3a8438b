package kernels

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSaxpyRef(t *testing.T) {
	assert.Equal(t, []int32{14, 23, 32, 41}, SaxpyRef[int32](10, []int32{1, 2, 3, 4}, []int32{4, 3, 2, 1}))
	assert.Equal(t, []float64{2.5}, SaxpyRef(2, []float64{1}, []float64{0.5}))
}

func TestOuterAndDotRef(t *testing.T) {
	x := []int32{1, 2, 3, 4}
	outer := OuterRef(x, x)
	assert.Len(t, outer, 16)
	for i := range x {
		for j := range x {
			assert.Equal(t, x[i]*x[j], outer[i*4+j])
		}
	}
	assert.Equal(t, int32(30), DotRef(x, x))
}

func TestTransposeRef(t *testing.T) {
	in := []int32{1, 2, 3, 4, 5, 6}
	out := TransposeRef(2, 3, in)
	assert.Equal(t, []int32{1, 4, 2, 5, 3, 6}, out)
	assert.Equal(t, in, TransposeRef(3, 2, out))
}

func TestMatMulRef(t *testing.T) {
	identity := make([]int32, matN*matN)
	for i := 0; i < matN; i++ {
		identity[i*matN+i] = 1
	}
	assert.Equal(t, matX, MatMulRef(matN, matN, matN, matX, identity))
	assert.Equal(t, matY, MatMulRef(matN, matN, matN, identity, matY))

	got := MatMulRef(matN, matN, matN, matX, matY)
	var want int32
	for k := 0; k < matN; k++ {
		want += matX[k] * matY[k*matN]
	}
	assert.Equal(t, want, got[0])
}
