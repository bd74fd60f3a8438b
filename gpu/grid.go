package gpu

import "fmt"

// A Grid is the number of workgroups dispatched in each dimension. A dimension that is
// not used should be 1; zero is treated as 1.
type Grid struct {
	X uint32
	Y uint32
	Z uint32
}

// Grid1D covers n workgroups along X.
func Grid1D(n uint32) Grid { return Grid{X: n, Y: 1, Z: 1} }

// Grid2D covers x*y workgroups.
func Grid2D(x, y uint32) Grid { return Grid{X: x, Y: y, Z: 1} }

func (g Grid) normalized() Grid {
	if g.X == 0 {
		g.X = 1
	}
	if g.Y == 0 {
		g.Y = 1
	}
	if g.Z == 0 {
		g.Z = 1
	}
	return g
}

func (g Grid) String() string {
	return fmt.Sprintf("(%d, %d, %d)", g.X, g.Y, g.Z)
}

// Workgroups returns the number of workgroups of the given size needed to cover n
// invocations: ceil(n / size). A size of 0 is treated as 1.
func Workgroups(n int, size uint32) uint32 {
	if n <= 0 {
		return 0
	}
	if size == 0 {
		size = 1
	}
	return uint32((uint64(n) + uint64(size) - 1) / uint64(size))
}

// validate checks the grid against a per-dimension limit; a zero limit is unknown.
func (g Grid) validate(limit uint32) error {
	if limit == 0 {
		return nil
	}
	for i, v := range [3]uint32{g.X, g.Y, g.Z} {
		if v > limit {
			return errorf(KindExecution, "grid %s: dimension %d exceeds device limit of %d workgroups", g, i, limit)
		}
	}
	return nil
}
