package eval

import (
	"fmt"

	"github.com/eltociear/cuvs/dataset"
	"github.com/eltociear/cuvs/distance"
	"github.com/eltociear/cuvs/oracle"
)

// ConsistencyViolation reports a (query, neighbor) pair whose reported
// distance disagrees with an independent recomputation.
type ConsistencyViolation struct {
	Query      int
	Position   int
	Index      uint32
	Reported   float32
	Recomputed float32
}

func (e *ConsistencyViolation) Error() string {
	return fmt.Sprintf("eval: inconsistent distance for query %d, position %d (index %d): reported %g, recomputed %g",
		e.Query, e.Position, e.Index, e.Reported, e.Recomputed)
}

// ErrIndexOutOfRange reports a returned neighbor index outside the dataset.
type ErrIndexOutOfRange struct {
	Query    int
	Position int
	Index    uint32
	Rows     int
}

func (e *ErrIndexOutOfRange) Error() string {
	return fmt.Sprintf("eval: query %d position %d: index %d out of range (rows=%d)",
		e.Query, e.Position, e.Index, e.Rows)
}

// CheckConsistency recomputes the true distance for every (query, returned
// index) pair and compares it to the distance the index reported. A high
// recall does not imply consistent distances; quantization in particular
// can return the right neighbors with the wrong distances.
//
// Skip this check only for indexes with documented lossy compression.
func CheckConsistency(ds, queries *dataset.Dataset, res *oracle.Result, m distance.Metric, tol float64) error {
	distFn, err := distance.Provider(m)
	if err != nil {
		return err
	}
	if res.Queries() != queries.Rows() {
		return &ErrShapeMismatch{
			WantQueries: queries.Rows(), GotQueries: res.Queries(),
			WantK: res.K(), GotK: res.K(),
		}
	}

	for q := 0; q < res.Queries(); q++ {
		for j, idx := range res.Indices[q] {
			if int(idx) >= ds.Rows() {
				return &ErrIndexOutOfRange{Query: q, Position: j, Index: idx, Rows: ds.Rows()}
			}
			recomputed := distFn(queries.Row(q), ds.Row(int(idx)))
			if !withinTolerance(res.Distances[q][j], recomputed, tol) {
				return &ConsistencyViolation{
					Query:      q,
					Position:   j,
					Index:      idx,
					Reported:   res.Distances[q][j],
					Recomputed: recomputed,
				}
			}
		}
	}
	return nil
}
