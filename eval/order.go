package eval

import (
	"fmt"

	"github.com/eltociear/cuvs/dataset"
	"github.com/eltociear/cuvs/distance"
)

// OrderViolation reports a neighbor list that is not sorted by
// non-decreasing distance to its own row vector.
type OrderViolation struct {
	Row      int
	Position int
	Distance float32
	Next     float32
}

func (e *OrderViolation) Error() string {
	return fmt.Sprintf("eval: row %d: neighbor order violated at position %d: %g > %g",
		e.Row, e.Position, e.Distance, e.Next)
}

// CheckOrder verifies that neighbors, an n_rows x k index matrix, lists
// each row's neighbors sorted by non-decreasing true distance to that
// row's own vector. Used to validate neighbor-list preprocessing steps
// independent of search quality.
func CheckOrder(ds *dataset.Dataset, neighbors [][]uint32, m distance.Metric) error {
	distFn, err := distance.Provider(m)
	if err != nil {
		return err
	}
	if len(neighbors) > ds.Rows() {
		return fmt.Errorf("eval: neighbor matrix has %d rows, dataset has %d", len(neighbors), ds.Rows())
	}

	for row, list := range neighbors {
		base := ds.Row(row)
		prev := float32(0)
		for pos, idx := range list {
			if int(idx) >= ds.Rows() {
				return &ErrIndexOutOfRange{Query: row, Position: pos, Index: idx, Rows: ds.Rows()}
			}
			d := distFn(base, ds.Row(int(idx)))
			if pos > 0 && d < prev {
				return &OrderViolation{Row: row, Position: pos - 1, Distance: prev, Next: d}
			}
			prev = d
		}
	}
	return nil
}
