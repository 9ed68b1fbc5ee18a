package eval

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/eltociear/cuvs/oracle"
)

// RecallReport carries the measured recall of a candidate result set so a
// failure can be reported with the value attached, not merely a boolean.
type RecallReport struct {
	Recall  float64
	Hits    int
	Total   int
	Queries int
	K       int
}

// Pass reports whether the measured recall meets the minimum threshold.
func (r *RecallReport) Pass(minRecall float64) bool {
	return r.Recall >= minRecall
}

// Recall compares a candidate neighbor result against ground truth.
//
// A candidate neighbor counts as a hit if its index appears in the truth
// row, or if its reported distance lies within tol of the truth row's k-th
// (boundary) distance. The second clause credits ties at the recall
// boundary that exact and approximate search may break differently.
// A candidate index repeated within a row is counted once; repeats are
// misses, so a degenerate result cannot inflate its score.
//
// Both results must have identical shape. Zero queries pass vacuously with
// recall 1.
func Recall(candidate, truth *oracle.Result, tol float64) (*RecallReport, error) {
	if candidate.Queries() != truth.Queries() || candidate.K() != truth.K() {
		return nil, &ErrShapeMismatch{
			WantQueries: truth.Queries(), GotQueries: candidate.Queries(),
			WantK: truth.K(), GotK: candidate.K(),
		}
	}

	nq := truth.Queries()
	k := truth.K()
	report := &RecallReport{Queries: nq, K: k, Total: nq * k}
	if report.Total == 0 {
		report.Recall = 1
		return report, nil
	}

	trueIDs := roaring.New()
	seen := roaring.New()
	for q := 0; q < nq; q++ {
		trueIDs.Clear()
		trueIDs.AddMany(truth.Indices[q])
		seen.Clear()
		boundary := truth.Distances[q][k-1]

		for j := 0; j < k; j++ {
			id := candidate.Indices[q][j]
			if seen.Contains(id) {
				continue
			}
			seen.Add(id)

			if trueIDs.Contains(id) {
				report.Hits++
				continue
			}
			if withinTolerance(candidate.Distances[q][j], boundary, tol) {
				report.Hits++
			}
		}
	}

	report.Recall = float64(report.Hits) / float64(report.Total)
	return report, nil
}
