package kernels

import (
	"context"

	"github.com/pkg/errors"
)

// Fixed inputs of the bundled demos.
var (
	saxpyX = []int32{1, 2, 3, 4}
	saxpyY = []int32{4, 3, 2, 1}
	saxpyA = int32(10)

	dotX = []int32{1, 2, 3, 4}
	dotY = []int32{1, 2, 3, 4}

	transposeX = []int32{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
		13, 14, 15, 16,
	}

	matX = []int32{
		6, 1, 2, 3, 1, 4, 3, 8, 2, 3, 9, 3, 4, 0, 3, 5,
		3, 2, 3, 5, 2, 8, 7, 0, 9, 3, 2, 7, 1, 9, 7, 0,
		7, 1, 4, 5, 5, 0, 0, 7, 1, 9, 7, 0, 9, 6, 3, 3,
		5, 2, 2, 3, 2, 9, 9, 0, 6, 4, 7, 5, 4, 9, 1, 2,
		5, 7, 5, 1, 9, 4, 9, 9, 6, 2, 8, 3, 7, 6, 4, 5,
		6, 6, 6, 1, 5, 4, 4, 1, 3, 4, 8, 2, 1, 2, 5, 9,
		0, 9, 2, 4, 1, 0, 3, 9, 6, 4, 5, 2, 7, 2, 2, 9,
		7, 8, 0, 8, 6, 7, 3, 0, 4, 1, 6, 9, 2, 3, 8, 4,
		8, 2, 2, 0, 1, 0, 6, 7, 3, 3, 8, 5, 3, 3, 7, 6,
		4, 9, 0, 7, 8, 0, 9, 9, 3, 0, 6, 3, 0, 7, 0, 0,
		0, 3, 1, 4, 6, 2, 9, 9, 1, 0, 4, 0, 2, 9, 1, 6,
		1, 2, 8, 1, 3, 0, 2, 5, 8, 5, 0, 7, 0, 2, 7, 4,
		6, 2, 9, 7, 3, 9, 5, 3, 0, 0, 8, 2, 6, 4, 5, 9,
		0, 7, 3, 2, 9, 9, 6, 6, 4, 0, 1, 9, 8, 9, 3, 0,
		0, 7, 9, 3, 6, 4, 3, 4, 6, 7, 8, 2, 3, 5, 6, 3,
		0, 2, 6, 0, 5, 3, 5, 9, 4, 4, 6, 0, 8, 8, 8, 0,
	}
	matY = []int32{
		5, 9, 6, 9, 4, 0, 1, 4, 5, 2, 8, 0, 3, 9, 8, 0,
		1, 8, 7, 2, 4, 3, 4, 1, 7, 9, 2, 3, 5, 4, 1, 4,
		7, 4, 8, 6, 0, 4, 2, 5, 4, 6, 4, 1, 2, 8, 9, 6,
		0, 1, 9, 5, 6, 1, 8, 6, 2, 4, 7, 7, 7, 4, 3, 4,
		4, 6, 5, 6, 2, 5, 3, 9, 9, 0, 1, 7, 9, 0, 2, 4,
		5, 8, 3, 6, 8, 6, 4, 5, 1, 7, 1, 3, 7, 1, 8, 8,
		7, 9, 6, 3, 0, 3, 8, 4, 0, 3, 7, 6, 3, 7, 1, 8,
		5, 2, 5, 6, 5, 7, 5, 0, 1, 0, 1, 2, 8, 2, 8, 0,
		5, 4, 1, 8, 9, 7, 5, 4, 4, 2, 4, 8, 2, 0, 2, 0,
		1, 9, 6, 3, 9, 7, 4, 4, 0, 5, 8, 9, 3, 9, 6, 8,
		6, 1, 3, 5, 7, 0, 7, 5, 8, 7, 6, 6, 0, 1, 0, 7,
		5, 1, 4, 2, 3, 8, 9, 3, 1, 2, 5, 2, 8, 7, 4, 4,
		4, 5, 1, 8, 8, 8, 5, 2, 5, 6, 1, 0, 4, 8, 3, 0,
		1, 1, 8, 1, 6, 9, 1, 3, 9, 2, 8, 4, 1, 2, 5, 1,
		5, 8, 5, 5, 0, 8, 4, 3, 5, 5, 6, 6, 1, 0, 9, 6,
		2, 4, 5, 6, 7, 7, 0, 3, 3, 1, 3, 6, 6, 2, 9, 1,
	}
)

const matN = 16

func vector(label string, v []int32) Table {
	return Table{Label: label, Matrix: Matrix{Rows: 1, Cols: len(v), Data: v}}
}

func table(label string, m Matrix) Table {
	return Table{Label: label, Matrix: m}
}

func init() {
	Register(Demo{
		Name:        "saxpy",
		Description: "x = a*x + y on 4-element integer vectors, in place",
		Run: func(ctx context.Context, d Dispatcher) (*Result, error) {
			out, err := Saxpy(ctx, d, saxpyA, saxpyX, saxpyY)
			if err != nil {
				return nil, errors.WithMessage(err, "saxpy")
			}
			return &Result{
				Demo:     "saxpy",
				Inputs:   []Table{vector("x", saxpyX), vector("y", saxpyY), vector("a", []int32{saxpyA})},
				Output:   vector("result", out),
				Expected: vector("expected", SaxpyRef(saxpyA, saxpyX, saxpyY)),
			}, nil
		},
	})
	Register(Demo{
		Name:        "dot_product",
		Description: "every pairwise product x[i]*y[j] as an n x n matrix",
		Run: func(ctx context.Context, d Dispatcher) (*Result, error) {
			out, err := Outer(ctx, d, dotX, dotY)
			if err != nil {
				return nil, errors.WithMessage(err, "dot_product")
			}
			return &Result{
				Demo:     "dot_product",
				Inputs:   []Table{vector("x", dotX), vector("y", dotY)},
				Output:   table("result", out),
				Expected: table("expected", Matrix{Rows: len(dotX), Cols: len(dotY), Data: OuterRef(dotX, dotY)}),
			}, nil
		},
	})
	Register(Demo{
		Name:        "dot_reduce",
		Description: "sum of x[i]*y[i] reduced with atomic adds",
		Run: func(ctx context.Context, d Dispatcher) (*Result, error) {
			sum, err := Dot(ctx, d, dotX, dotY)
			if err != nil {
				return nil, errors.WithMessage(err, "dot_reduce")
			}
			return &Result{
				Demo:     "dot_reduce",
				Inputs:   []Table{vector("x", dotX), vector("y", dotY)},
				Output:   vector("result", []int32{sum}),
				Expected: vector("expected", []int32{DotRef(dotX, dotY)}),
			}, nil
		},
	})
	Register(Demo{
		Name:        "transpose",
		Description: "transpose of a 4 x 4 matrix",
		Run: func(ctx context.Context, d Dispatcher) (*Result, error) {
			in := Matrix{Rows: 4, Cols: 4, Data: transposeX}
			out, err := Transpose(ctx, d, in)
			if err != nil {
				return nil, errors.WithMessage(err, "transpose")
			}
			return &Result{
				Demo:     "transpose",
				Inputs:   []Table{table("x", in)},
				Output:   table("result", out),
				Expected: table("expected", Matrix{Rows: 4, Cols: 4, Data: TransposeRef(4, 4, transposeX)}),
			}, nil
		},
	})
	Register(Demo{
		Name:        "matrix_dot_product",
		Description: "product of two 16 x 16 integer matrices",
		Run: func(ctx context.Context, d Dispatcher) (*Result, error) {
			x := Matrix{Rows: matN, Cols: matN, Data: matX}
			y := Matrix{Rows: matN, Cols: matN, Data: matY}
			out, err := MatMul(ctx, d, x, y)
			if err != nil {
				return nil, errors.WithMessage(err, "matrix_dot_product")
			}
			return &Result{
				Demo:     "matrix_dot_product",
				Inputs:   []Table{table("x", x), table("y", y)},
				Output:   table("result", out),
				Expected: table("expected", Matrix{Rows: matN, Cols: matN, Data: MatMulRef(matN, matN, matN, matX, matY)}),
			}, nil
		},
	})
}
