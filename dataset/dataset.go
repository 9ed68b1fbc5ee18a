// Package dataset provides row-major vector datasets and deterministic
// generators for validation runs.
package dataset

import (
	"fmt"

	"github.com/eltociear/cuvs/distance"
)

// Dataset is an ordered, row-major sequence of fixed-dimension vectors.
// It is immutable once generated for a test run; Row returns a view into
// the backing slice and callers must not modify it.
type Dataset struct {
	dim  int
	data []float32
}

// New creates an empty dataset with the given shape, filled with zeros.
func New(rows, dim int) (*Dataset, error) {
	if rows < 0 {
		return nil, fmt.Errorf("dataset: negative row count: %d", rows)
	}
	if dim <= 0 {
		return nil, &ErrInvalidDimension{Dimension: dim}
	}
	return &Dataset{dim: dim, data: make([]float32, rows*dim)}, nil
}

// FromRows creates a dataset by copying the given rows.
// All rows must share the same non-zero dimension.
func FromRows(rows [][]float32) (*Dataset, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("dataset: no rows")
	}
	dim := len(rows[0])
	ds, err := New(len(rows), dim)
	if err != nil {
		return nil, err
	}
	for i, r := range rows {
		if len(r) != dim {
			return nil, &ErrDimensionMismatch{Expected: dim, Actual: len(r)}
		}
		copy(ds.data[i*dim:(i+1)*dim], r)
	}
	return ds, nil
}

// Rows returns the number of vectors in the dataset.
func (d *Dataset) Rows() int {
	if d.dim == 0 {
		return 0
	}
	return len(d.data) / d.dim
}

// Dim returns the vector dimensionality.
func (d *Dataset) Dim() int { return d.dim }

// Row returns the i-th vector as a view into the backing storage.
func (d *Dataset) Row(i int) []float32 {
	return d.data[i*d.dim : (i+1)*d.dim : (i+1)*d.dim]
}

// Data returns the row-major backing slice.
func (d *Dataset) Data() []float32 { return d.data }

// Slice returns a dataset view covering rows [from, to).
// The view shares backing storage with d.
func (d *Dataset) Slice(from, to int) (*Dataset, error) {
	if from < 0 || to < from || to > d.Rows() {
		return nil, fmt.Errorf("dataset: invalid slice [%d, %d) of %d rows", from, to, d.Rows())
	}
	return &Dataset{dim: d.dim, data: d.data[from*d.dim : to*d.dim]}, nil
}

// Normalize L2-normalizes every row in place. Required before indexing
// under the inner-product metric. Returns an error on a zero row.
func Normalize(d *Dataset) error {
	for i := 0; i < d.Rows(); i++ {
		if !distance.NormalizeL2InPlace(d.Row(i)) {
			return fmt.Errorf("dataset: cannot normalize zero row %d", i)
		}
	}
	return nil
}

// ErrInvalidDimension indicates an invalid configured dimension.
type ErrInvalidDimension struct {
	Dimension int
}

func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("invalid dimension: %d", e.Dimension)
}

// ErrDimensionMismatch is a named error type for dimension mismatch.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}
