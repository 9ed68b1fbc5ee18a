package cuvs

import (
	"context"
	"fmt"
	"io"

	"github.com/eltociear/cuvs/dataset"
	"github.com/eltociear/cuvs/distance"
	"github.com/eltociear/cuvs/oracle"
)

// BuildAlgo selects the graph-construction strategy of the index under
// test. The values are opaque to the harness and passed through.
type BuildAlgo int

const (
	// BuildAlgoDefault is the index's primary construction algorithm.
	BuildAlgoDefault BuildAlgo = iota
	// BuildAlgoIterative is an alternative, usually cheaper construction.
	BuildAlgoIterative
)

func (a BuildAlgo) String() string {
	switch a {
	case BuildAlgoDefault:
		return "default"
	case BuildAlgoIterative:
		return "iterative"
	default:
		return fmt.Sprintf("unknown(%d)", int(a))
	}
}

// CompressionParams enables lossy vector compression inside the index
// under test. When set, distance-consistency checking is skipped for the
// configuration and the skip is recorded in the outcome.
type CompressionParams struct {
	// NumSubvectors is the number of quantizer subspaces.
	NumSubvectors int
	// NumCentroids is the codebook size per subspace (max 256).
	NumCentroids int
}

// BuildParams configures index construction.
type BuildParams struct {
	Metric                  distance.Metric
	GraphDegree             int
	IntermediateGraphDegree int
	Algo                    BuildAlgo
	Compression             *CompressionParams

	// Seed makes randomized construction reproducible per configuration.
	Seed uint64
}

// SearchParams tune the approximation/throughput trade-off of the index
// under test. They are configuration data, not harness behavior.
type SearchParams struct {
	// ITopK is the internal candidate-list width; larger improves recall.
	ITopK int
	// SearchWidth is the per-iteration exploration fan-out.
	SearchWidth int
	// TeamSize is the cooperative-search group size; opaque pass-through.
	TeamSize int
}

// Index is the contract the harness requires from an index under test.
//
// Build must be deterministic enough that repeated builds on identical
// input produce equivalent search behavior. Persist failures must surface
// as errors. Search is synchronous from the caller's viewpoint: results
// are fully materialized when it returns, because the evaluators read them
// immediately.
type Index interface {
	// Build constructs the index over the dataset.
	Build(ctx context.Context, params BuildParams, ds *dataset.Dataset) error

	// Extend adds more vectors to an already built index. Row indices
	// continue from the current size.
	Extend(ctx context.Context, ds *dataset.Dataset) error

	// Persist writes a durable representation to w.
	Persist(ctx context.Context, w io.Writer) error

	// Reload reconstructs the index from a persisted representation.
	Reload(ctx context.Context, r io.Reader) error

	// NeedsDataset reports whether the persisted form omitted the original
	// vectors, in which case AttachDataset must be called before Search.
	NeedsDataset() bool

	// AttachDataset re-attaches the original vectors after a reload whose
	// persisted form omitted them.
	AttachDataset(ds *dataset.Dataset) error

	// Compressed reports whether lossy compression is active, which
	// relaxes distance-consistency checking.
	Compressed() bool

	// Search returns the k approximate nearest neighbors for every query.
	Search(ctx context.Context, queries *dataset.Dataset, k int, params SearchParams) (*oracle.Result, error)
}

// IndexFactory creates a fresh, unbuilt index instance. The runner needs
// two instances per configuration: one to build and persist, one to
// reload.
type IndexFactory func() Index
