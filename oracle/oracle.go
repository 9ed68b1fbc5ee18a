// Package oracle computes exact k-nearest-neighbor ground truth by
// exhaustive comparison. Approximate indexes are graded against its output,
// so it never skips rows and never approximates.
package oracle

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/eltociear/cuvs/dataset"
	"github.com/eltociear/cuvs/distance"
	"github.com/eltociear/cuvs/internal/queue"
)

// Result holds per-query neighbor indices and distances, both shaped
// n_queries x k. Distances are non-decreasing within each row and ties are
// broken by the lower reference row index.
type Result struct {
	Indices   [][]uint32
	Distances [][]float32
}

// Queries returns the number of query rows in the result.
func (r *Result) Queries() int { return len(r.Indices) }

// K returns the neighbor count per query row.
func (r *Result) K() int {
	if len(r.Indices) == 0 {
		return 0
	}
	return len(r.Indices[0])
}

// ErrInvalidK is returned when k is not positive.
type ErrInvalidK struct {
	K int
}

func (e *ErrInvalidK) Error() string {
	return fmt.Sprintf("oracle: k must be positive, got %d", e.K)
}

// ErrKExceedsRows is returned when k is larger than the reference set.
type ErrKExceedsRows struct {
	K    int
	Rows int
}

func (e *ErrKExceedsRows) Error() string {
	return fmt.Sprintf("oracle: k=%d exceeds reference rows=%d", e.K, e.Rows)
}

// ErrNaNDistance marks a non-finite distance. It invalidates the ground
// truth and is a hard failure of the run.
type ErrNaNDistance struct {
	Query int
	Row   int
}

func (e *ErrNaNDistance) Error() string {
	return fmt.Sprintf("oracle: non-finite distance for query %d, row %d", e.Query, e.Row)
}

// Search computes the exact top-k neighbors of every query against ds.
// Queries are processed in parallel; each writes a disjoint result row.
func Search(ctx context.Context, ds, queries *dataset.Dataset, k int, m distance.Metric) (*Result, error) {
	if k <= 0 {
		return nil, &ErrInvalidK{K: k}
	}
	if k > ds.Rows() {
		return nil, &ErrKExceedsRows{K: k, Rows: ds.Rows()}
	}
	if ds.Dim() != queries.Dim() {
		return nil, &dataset.ErrDimensionMismatch{Expected: ds.Dim(), Actual: queries.Dim()}
	}
	distFn, err := distance.Provider(m)
	if err != nil {
		return nil, err
	}

	nq := queries.Rows()
	res := &Result{
		Indices:   make([][]uint32, nq),
		Distances: make([][]float32, nq),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for q := 0; q < nq; q++ {
		q := q
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			indices, distances, err := searchOne(ds, queries.Row(q), q, k, distFn)
			if err != nil {
				return err
			}
			res.Indices[q] = indices
			res.Distances[q] = distances
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

// searchOne scans every reference row once and keeps the k smallest via a
// bounded max-heap. The heap's tie-aware ordering keeps the highest tied
// row at the root, so the lower row index survives exact distance ties
// even when a closer row later displaces one of several tied residents.
func searchOne(ds *dataset.Dataset, query []float32, q, k int, distFn distance.Func) ([]uint32, []float32, error) {
	top := queue.NewMax(k)
	for row := 0; row < ds.Rows(); row++ {
		d := distFn(query, ds.Row(row))
		if math.IsNaN(float64(d)) || math.IsInf(float64(d), 0) {
			return nil, nil, &ErrNaNDistance{Query: q, Row: row}
		}
		top.PushBounded(queue.PriorityQueueItem{Node: uint32(row), Distance: d}, k)
	}

	items := make([]queue.PriorityQueueItem, k)
	for i := k - 1; i >= 0; i-- {
		item, _ := top.PopItem()
		items[i] = item
	}
	// Heap drain leaves equal distances in arbitrary relative order; make the
	// documented tie-break explicit.
	sort.Slice(items, func(i, j int) bool {
		if items[i].Distance != items[j].Distance {
			return items[i].Distance < items[j].Distance
		}
		return items[i].Node < items[j].Node
	})

	indices := make([]uint32, k)
	distances := make([]float32, k)
	for i, item := range items {
		indices[i] = item.Node
		distances[i] = item.Distance
	}
	return indices, distances, nil
}
