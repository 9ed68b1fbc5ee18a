// Package eval grades approximate nearest-neighbor results against exact
// ground truth. All checks are pure functions over immutable inputs.
package eval

import (
	"fmt"
	"math"
)

// Tolerances carries the two independently configured epsilons used during
// a run. Recall boundary matching is deliberately looser than distance
// consistency: the former only absorbs tie-break divergence at the k-th
// neighbor, the latter guards the reported distances themselves.
type Tolerances struct {
	Recall      float64
	Consistency float64
}

// DefaultTolerances are suitable for float32 squared-L2 distances on
// unit-range data.
var DefaultTolerances = Tolerances{
	Recall:      1e-3,
	Consistency: 1e-4,
}

// withinTolerance reports whether a and b agree within eps, treating eps as
// a relative epsilon for values above 1 and an absolute one below.
func withinTolerance(a, b float32, eps float64) bool {
	diff := math.Abs(float64(a) - float64(b))
	scale := math.Max(1, math.Max(math.Abs(float64(a)), math.Abs(float64(b))))
	return diff <= eps*scale
}

// ErrShapeMismatch indicates two neighbor results of different shapes.
type ErrShapeMismatch struct {
	WantQueries, GotQueries int
	WantK, GotK             int
}

func (e *ErrShapeMismatch) Error() string {
	return fmt.Sprintf("eval: shape mismatch: got %dx%d, want %dx%d",
		e.GotQueries, e.GotK, e.WantQueries, e.WantK)
}
