package hnsw

import (
	"context"
	"encoding/gob"
	"io"
	"math"

	"github.com/klauspost/compress/zstd"

	"github.com/eltociear/cuvs/dataset"
	"github.com/eltociear/cuvs/distance"
	"github.com/eltociear/cuvs/quantization"
)

// snapshot is the persisted form of an index. Raw vectors are omitted
// when the index was created with WithVectorsOmitted or when compression
// is active, in which case Codes and Codebooks stand in for them.
type snapshot struct {
	Dim            int
	Metric         distance.Metric
	M              int
	MMax0          int
	EFConstruction int
	Heuristic      bool
	Seed           uint64

	EP       uint32
	MaxLayer int
	Nodes    []node

	Vectors []float32

	Compression *compressionSnapshot
}

type compressionSnapshot struct {
	NumSubvectors int
	NumCentroids  int
	Codebooks     [][][]float32
	Codes         [][]byte
}

// Persist writes a zstd-compressed gob snapshot of the index to w.
func (ix *Index) Persist(ctx context.Context, w io.Writer) error {
	ix.mutex.RLock()
	defer ix.mutex.RUnlock()

	if !ix.built {
		return &ErrNotBuilt{Op: "persist"}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	snap := snapshot{
		Dim:            ix.dim,
		Metric:         ix.metric,
		M:              ix.m,
		MMax0:          ix.mmax0,
		EFConstruction: ix.efConstruction,
		Heuristic:      ix.heuristic,
		Seed:           ix.seed,
		EP:             ix.ep,
		MaxLayer:       ix.maxLayer,
		Nodes:          ix.nodes,
	}

	switch {
	case ix.pq != nil:
		snap.Compression = &compressionSnapshot{
			NumSubvectors: ix.pq.BytesPerVector(),
			NumCentroids:  len(ix.pq.Codebooks()[0]),
			Codebooks:     ix.pq.Codebooks(),
			Codes:         ix.codes,
		}
	case ix.opts.IncludeVectors:
		snap.Vectors = ix.vectors
	}

	zw, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(zw).Encode(&snap); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// Reload reconstructs the index from a snapshot written by Persist.
func (ix *Index) Reload(ctx context.Context, r io.Reader) error {
	ix.mutex.Lock()
	defer ix.mutex.Unlock()

	if ix.built {
		return &ErrAlreadyBuilt{}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	zr, err := zstd.NewReader(r)
	if err != nil {
		return err
	}
	defer zr.Close()

	var snap snapshot
	if err := gob.NewDecoder(zr).Decode(&snap); err != nil {
		return err
	}

	distFn, err := distance.Provider(snap.Metric)
	if err != nil {
		return err
	}

	ix.dim = snap.Dim
	ix.metric = snap.Metric
	ix.distFn = distFn
	ix.m = snap.M
	ix.mmax0 = snap.MMax0
	ix.efConstruction = snap.EFConstruction
	ix.heuristic = snap.Heuristic
	ix.seed = snap.Seed
	ix.ml = 1 / math.Log(float64(snap.M))
	ix.rng = dataset.NewXorshift(snap.Seed)
	ix.ep = snap.EP
	ix.maxLayer = snap.MaxLayer
	ix.nodes = snap.Nodes
	ix.vectors = snap.Vectors

	if snap.Compression != nil {
		pq, err := quantization.Restore(snap.Dim, snap.Compression.NumSubvectors, snap.Compression.NumCentroids, snap.Compression.Codebooks)
		if err != nil {
			return err
		}
		ix.pq = pq
		ix.codes = snap.Compression.Codes
	}

	ix.built = true
	return nil
}
