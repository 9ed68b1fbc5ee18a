// Package hnsw implements a hierarchical navigable small world index
// conforming to the harness Index contract. It is the built-in reference
// implementation the validation suite runs against itself.
package hnsw

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"

	"github.com/bits-and-blooms/bitset"
	"golang.org/x/sync/errgroup"

	"github.com/eltociear/cuvs"
	"github.com/eltociear/cuvs/dataset"
	"github.com/eltociear/cuvs/distance"
	"github.com/eltociear/cuvs/internal/math32"
	"github.com/eltociear/cuvs/internal/queue"
	"github.com/eltociear/cuvs/oracle"
	"github.com/eltociear/cuvs/quantization"
)

// ErrNotBuilt is a named error type for operations on an unbuilt index.
type ErrNotBuilt struct {
	Op string // Op is the attempted operation
}

// Error returns the error message for operations on an unbuilt index.
func (e *ErrNotBuilt) Error() string {
	return fmt.Sprintf("hnsw: %s on unbuilt index", e.Op)
}

// ErrAlreadyBuilt is returned when Build or Reload hits a non-empty index.
type ErrAlreadyBuilt struct{}

func (e *ErrAlreadyBuilt) Error() string {
	return "hnsw: index already built"
}

// ErrMissingVectors is returned when Search runs on a reloaded index whose
// snapshot omitted the raw vectors and no dataset has been attached.
type ErrMissingVectors struct{}

func (e *ErrMissingVectors) Error() string {
	return "hnsw: raw vectors unavailable, attach the dataset first"
}

// ErrKExceedsSize is a named error type for k larger than the index.
type ErrKExceedsSize struct {
	K    int
	Size int
}

func (e *ErrKExceedsSize) Error() string {
	return fmt.Sprintf("hnsw: k %d exceeds index size %d", e.K, e.Size)
}

// Options represents construction-independent settings of the index.
type Options struct {
	// IncludeVectors controls whether Persist embeds the raw vectors in
	// the snapshot. When false the reloaded index reports NeedsDataset
	// and the caller must re-attach the original dataset before Search.
	// Ignored when compression is active: compressed snapshots carry
	// codes and codebooks instead of raw vectors.
	IncludeVectors bool
}

// DefaultOptions holds the default options of the index.
var DefaultOptions = Options{
	IncludeVectors: true,
}

// node is a graph vertex. The vertex ID is its slice position, which is
// also its dataset row index. Connections holds one adjacency list per
// layer from 0 up to Layer.
type node struct {
	Connections [][]uint32
	Layer       int
}

// Index is a single-shard HNSW graph over float32 vectors.
type Index struct {
	opts Options

	mutex sync.RWMutex

	built bool
	dim   int

	metric distance.Metric
	distFn distance.Func

	m              int     // connections per element per layer
	mmax0          int     // connection cap on the ground layer
	efConstruction int     // candidate list width during insertion
	heuristic      bool    // neighbour selection strategy
	ml             float64 // layer generation normalization factor
	seed           uint64

	rng *dataset.Xorshift

	nodes    []node
	ep       uint32
	maxLayer int

	// vectors is the row-major raw data. It is nil after a reload from a
	// snapshot that omitted it, until AttachDataset is called.
	vectors []float32

	// pq and codes are set when lossy compression is active.
	pq    *quantization.ProductQuantizer
	codes [][]byte
}

var _ cuvs.Index = (*Index)(nil)

// New creates an empty index. Build or Reload must be called before Search.
func New(optFns ...func(o *Options)) *Index {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Index{opts: opts}
}

// WithVectorsOmitted configures Persist to leave the raw vectors out of
// the snapshot.
func WithVectorsOmitted() func(o *Options) {
	return func(o *Options) {
		o.IncludeVectors = false
	}
}

// Factory returns an IndexFactory producing fresh instances with the
// given options.
func Factory(optFns ...func(o *Options)) cuvs.IndexFactory {
	return func() cuvs.Index {
		return New(optFns...)
	}
}

// Build constructs the graph over the dataset. Construction is randomized
// but seeded, so identical input and parameters give an equivalent graph.
func (ix *Index) Build(ctx context.Context, params cuvs.BuildParams, ds *dataset.Dataset) error {
	ix.mutex.Lock()
	defer ix.mutex.Unlock()

	if ix.built {
		return &ErrAlreadyBuilt{}
	}

	distFn, err := distance.Provider(params.Metric)
	if err != nil {
		return err
	}

	m := params.GraphDegree
	if m <= 1 {
		// m == 1 would make the layer normalization factor divide by zero
		m = 16
	}
	efc := params.IntermediateGraphDegree
	if efc <= 0 {
		efc = 200
	}
	if efc < m {
		efc = m
	}

	ix.dim = ds.Dim()
	ix.metric = params.Metric
	ix.distFn = distFn
	ix.m = m
	ix.mmax0 = 2 * m
	ix.efConstruction = efc
	ix.heuristic = params.Algo == cuvs.BuildAlgoDefault
	ix.ml = 1 / math.Log(float64(m))
	ix.seed = params.Seed
	ix.rng = dataset.NewXorshift(params.Seed)
	ix.built = true

	if params.Compression != nil {
		pq, err := quantization.NewProductQuantizer(ix.dim, params.Compression.NumSubvectors, params.Compression.NumCentroids)
		if err != nil {
			return err
		}
		training := make([][]float32, ds.Rows())
		for i := range training {
			training[i] = ds.Row(i)
		}
		if err := pq.Train(training, ix.rng); err != nil {
			return err
		}
		ix.pq = pq
	}

	return ix.addAll(ctx, ds)
}

// Extend adds more vectors to a built index. New rows continue the
// existing row numbering. When compression is active the new rows are
// encoded against the codebooks trained during Build.
func (ix *Index) Extend(ctx context.Context, ds *dataset.Dataset) error {
	ix.mutex.Lock()
	defer ix.mutex.Unlock()

	if !ix.built {
		return &ErrNotBuilt{Op: "extend"}
	}
	if ix.vectors == nil && len(ix.nodes) > 0 {
		return &ErrMissingVectors{}
	}

	return ix.addAll(ctx, ds)
}

func (ix *Index) addAll(ctx context.Context, ds *dataset.Dataset) error {
	if ds.Dim() != ix.dim {
		return &dataset.ErrDimensionMismatch{Expected: ix.dim, Actual: ds.Dim()}
	}

	for i := 0; i < ds.Rows(); i++ {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := ix.insert(ds.Row(i)); err != nil {
			return err
		}
	}
	return nil
}

// insert adds one vector to the graph. Caller holds the write lock.
func (ix *Index) insert(v []float32) error {
	if len(v) != ix.dim {
		return &dataset.ErrDimensionMismatch{Expected: ix.dim, Actual: len(v)}
	}

	id := uint32(len(ix.nodes))
	layer := ix.randomLayer()

	ix.vectors = append(ix.vectors, v...)

	if ix.pq != nil {
		codes, err := ix.pq.Encode(v)
		if err != nil {
			return err
		}
		ix.codes = append(ix.codes, codes)
	}

	n := node{
		Layer:       layer,
		Connections: make([][]uint32, layer+1),
	}

	if id == 0 {
		// First element becomes the entry point
		ix.nodes = append(ix.nodes, n)
		ix.ep = 0
		ix.maxLayer = layer
		return nil
	}

	dist := func(other uint32) float32 {
		return ix.distFn(v, ix.vectorAt(other))
	}

	// Greedy descent through the layers above the new element
	curr := ix.ep
	currDist := dist(curr)
	for level := ix.maxLayer; level > layer; level-- {
		curr, currDist = ix.greedyStep(dist, curr, currDist, level)
	}

	for level := min(layer, ix.maxLayer); level >= 0; level-- {
		results := ix.searchLayer(dist, curr, ix.efConstruction, level)

		n.Connections[level] = ix.selectNeighbours(dist, results, ix.m)

		if len(n.Connections[level]) > 0 {
			// Descend from the best candidate of this layer
			curr = n.Connections[level][0]
		}
	}

	ix.nodes = append(ix.nodes, n)

	// Backlink the neighbours, pruning any that overflow their cap
	for level := min(layer, ix.maxLayer); level >= 0; level-- {
		for _, neighbour := range n.Connections[level] {
			ix.link(neighbour, id, level)
		}
	}

	if layer > ix.maxLayer {
		ix.ep = id
		ix.maxLayer = layer
	}

	return nil
}

// randomLayer draws the layer of a new element from the standard
// exponentially decaying distribution.
func (ix *Index) randomLayer() int {
	u := float64(ix.rng.Next()>>11) / (1 << 53)
	for u == 0 {
		u = float64(ix.rng.Next()>>11) / (1 << 53)
	}
	return int(math.Floor(-math.Log(u) * ix.ml))
}

func (ix *Index) vectorAt(id uint32) []float32 {
	off := int(id) * ix.dim
	return ix.vectors[off : off+ix.dim : off+ix.dim]
}

// greedyStep walks one layer, hopping to strictly closer neighbours until
// a local minimum is reached.
func (ix *Index) greedyStep(dist func(uint32) float32, curr uint32, currDist float32, level int) (uint32, float32) {
	for changed := true; changed; {
		changed = false
		n := &ix.nodes[curr]
		if level >= len(n.Connections) {
			break
		}
		for _, nb := range n.Connections[level] {
			if d := dist(nb); d < currDist {
				curr = nb
				currDist = d
				changed = true
			}
		}
	}
	return curr, currDist
}

// searchLayer runs the beam search of one layer and returns a max-heap of
// at most ef candidates, worst on top.
func (ix *Index) searchLayer(dist func(uint32) float32, entry uint32, ef, level int) *queue.PriorityQueue {
	visited := bitset.New(uint(len(ix.nodes)))
	visited.Set(uint(entry))

	entryItem := queue.PriorityQueueItem{Node: entry, Distance: dist(entry)}

	candidates := queue.NewMin(ef)
	candidates.PushItem(entryItem)

	results := queue.NewMax(ef)
	results.PushItem(entryItem)

	for candidates.Len() > 0 {
		candidate, _ := candidates.PopItem()
		if worst, ok := results.TopItem(); ok && results.Len() >= ef && candidate.Distance > worst.Distance {
			break
		}

		n := &ix.nodes[candidate.Node]
		if level >= len(n.Connections) {
			continue
		}

		for _, nb := range n.Connections[level] {
			if visited.Test(uint(nb)) {
				continue
			}
			visited.Set(uint(nb))

			d := dist(nb)
			if results.Len() < ef {
				results.PushItem(queue.PriorityQueueItem{Node: nb, Distance: d})
				candidates.PushItem(queue.PriorityQueueItem{Node: nb, Distance: d})
			} else if worst, _ := results.TopItem(); d < worst.Distance {
				results.PopItem()
				results.PushItem(queue.PriorityQueueItem{Node: nb, Distance: d})
				candidates.PushItem(queue.PriorityQueueItem{Node: nb, Distance: d})
			}
		}
	}

	return results
}

// selectNeighbours reduces a candidate max-heap to at most m neighbour
// IDs, ordered best first. The heap is consumed.
func (ix *Index) selectNeighbours(dist func(uint32) float32, results *queue.PriorityQueue, m int) []uint32 {
	ascending := drainAscending(results)
	if ix.heuristic {
		return ix.selectHeuristic(ascending, m)
	}
	if len(ascending) > m {
		ascending = ascending[:m]
	}
	ids := make([]uint32, len(ascending))
	for i, item := range ascending {
		ids[i] = item.Node
	}
	return ids
}

// selectHeuristic keeps a candidate only when it is closer to the query
// than to every neighbour already kept, which spreads the links across
// directions instead of clustering them. Discarded candidates backfill
// if fewer than m survive.
func (ix *Index) selectHeuristic(ascending []queue.PriorityQueueItem, m int) []uint32 {
	selected := make([]uint32, 0, m)
	var discarded []queue.PriorityQueueItem

	for _, item := range ascending {
		if len(selected) >= m {
			break
		}
		keep := true
		for _, s := range selected {
			if ix.distFn(ix.vectorAt(item.Node), ix.vectorAt(s)) < item.Distance {
				keep = false
				break
			}
		}
		if keep {
			selected = append(selected, item.Node)
		} else {
			discarded = append(discarded, item)
		}
	}

	for _, item := range discarded {
		if len(selected) >= m {
			break
		}
		selected = append(selected, item.Node)
	}

	return selected
}

// link records a backlink from first to second and prunes the adjacency
// list if it overflows the per-layer cap.
func (ix *Index) link(first, second uint32, level int) {
	maxConnections := ix.m
	if level == 0 {
		maxConnections = ix.mmax0
	}

	n := &ix.nodes[first]
	n.Connections[level] = append(n.Connections[level], second)

	if len(n.Connections[level]) <= maxConnections {
		return
	}

	base := ix.vectorAt(first)
	dist := func(other uint32) float32 {
		return ix.distFn(base, ix.vectorAt(other))
	}

	candidates := queue.NewMax(len(n.Connections[level]))
	for _, id := range n.Connections[level] {
		candidates.PushItem(queue.PriorityQueueItem{Node: id, Distance: dist(id)})
	}

	n.Connections[level] = ix.selectNeighbours(dist, candidates, maxConnections)
}

// drainAscending empties a max-heap into a slice sorted best first.
func drainAscending(pq *queue.PriorityQueue) []queue.PriorityQueueItem {
	items := make([]queue.PriorityQueueItem, pq.Len())
	for i := pq.Len() - 1; i >= 0; i-- {
		items[i], _ = pq.PopItem()
	}
	return items
}

// NeedsDataset reports whether the index was reloaded from a snapshot
// that omitted the raw vectors.
func (ix *Index) NeedsDataset() bool {
	ix.mutex.RLock()
	defer ix.mutex.RUnlock()
	return ix.built && ix.vectors == nil && ix.pq == nil && len(ix.nodes) > 0
}

// AttachDataset re-attaches the raw vectors after a vectorless reload.
// The dataset must match the indexed data row for row.
func (ix *Index) AttachDataset(ds *dataset.Dataset) error {
	ix.mutex.Lock()
	defer ix.mutex.Unlock()

	if !ix.built {
		return &ErrNotBuilt{Op: "attach"}
	}
	if ds.Dim() != ix.dim {
		return &dataset.ErrDimensionMismatch{Expected: ix.dim, Actual: ds.Dim()}
	}
	if ds.Rows() != len(ix.nodes) {
		return fmt.Errorf("hnsw: dataset has %d rows, index has %d", ds.Rows(), len(ix.nodes))
	}

	ix.vectors = ds.Data()
	return nil
}

// Compressed reports whether lossy compression is active.
func (ix *Index) Compressed() bool {
	ix.mutex.RLock()
	defer ix.mutex.RUnlock()
	return ix.pq != nil
}

// Search returns the k nearest neighbours of every query row. Queries run
// concurrently; each produces a row sorted by ascending distance with row
// index breaking exact ties.
func (ix *Index) Search(ctx context.Context, queries *dataset.Dataset, k int, params cuvs.SearchParams) (*oracle.Result, error) {
	ix.mutex.RLock()
	defer ix.mutex.RUnlock()

	if !ix.built {
		return nil, &ErrNotBuilt{Op: "search"}
	}
	if queries.Dim() != ix.dim {
		return nil, &dataset.ErrDimensionMismatch{Expected: ix.dim, Actual: queries.Dim()}
	}
	if k <= 0 {
		return nil, &oracle.ErrInvalidK{K: k}
	}
	if k > len(ix.nodes) {
		return nil, &ErrKExceedsSize{K: k, Size: len(ix.nodes)}
	}
	if ix.vectors == nil && ix.pq == nil {
		return nil, &ErrMissingVectors{}
	}

	ef := k
	if params.ITopK > ef {
		ef = params.ITopK
	}
	if params.SearchWidth > 1 && k*params.SearchWidth > ef {
		ef = k * params.SearchWidth
	}

	nq := queries.Rows()
	result := &oracle.Result{
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
			ids, dists := ix.searchOne(queries.Row(q), k, ef)
			result.Indices[q] = ids
			result.Distances[q] = dists
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// searchOne answers a single query. Caller holds the read lock.
func (ix *Index) searchOne(query []float32, k, ef int) ([]uint32, []float32) {
	dist, finalize := ix.queryDistance(query)

	curr := ix.ep
	currDist := dist(curr)
	for level := ix.maxLayer; level > 0; level-- {
		curr, currDist = ix.greedyStep(dist, curr, currDist, level)
	}

	results := ix.searchLayer(dist, curr, ef, 0)
	if results.Len() < k {
		// The beam stayed inside a component smaller than k; fall back
		// to an exhaustive scan so the caller always gets k rows.
		results = ix.scanAll(dist, k)
	}

	items := drainAscending(results)
	if len(items) > k {
		items = items[:k]
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Distance != items[j].Distance {
			return items[i].Distance < items[j].Distance
		}
		return items[i].Node < items[j].Node
	})

	ids := make([]uint32, len(items))
	dists := make([]float32, len(items))
	for i, item := range items {
		ids[i] = item.Node
		dists[i] = finalize(item.Distance)
	}
	return ids, dists
}

func (ix *Index) scanAll(dist func(uint32) float32, k int) *queue.PriorityQueue {
	results := queue.NewMax(k)
	for id := range ix.nodes {
		results.PushBounded(queue.PriorityQueueItem{Node: uint32(id), Distance: dist(uint32(id))}, k)
	}
	return results
}

// queryDistance returns the traversal distance function of one query and
// the transform applied to reported distances. Uncompressed traversal uses
// the configured metric directly. Compressed traversal sums a per-query
// ADC lookup table over the codebooks; L2 traverses on squared distances
// and takes the root only on report.
func (ix *Index) queryDistance(query []float32) (dist func(uint32) float32, finalize func(float32) float32) {
	identity := func(d float32) float32 { return d }

	if ix.pq == nil {
		return func(id uint32) float32 {
			return ix.distFn(query, ix.vectorAt(id))
		}, identity
	}

	codebooks := ix.pq.Codebooks()
	subDim := ix.dim / len(codebooks)

	lut := make([][]float32, len(codebooks))
	for m, centroids := range codebooks {
		sub := query[m*subDim : (m+1)*subDim]
		lut[m] = make([]float32, len(centroids))
		for c, centroid := range centroids {
			if ix.metric == distance.MetricInnerProduct {
				lut[m][c] = -math32.Dot(sub, centroid)
			} else {
				lut[m][c] = math32.SquaredL2(sub, centroid)
			}
		}
	}

	dist = func(id uint32) float32 {
		var sum float32
		for m, c := range ix.codes[id] {
			sum += lut[m][c]
		}
		return sum
	}
	if ix.metric == distance.MetricL2 {
		return dist, func(d float32) float32 { return math32.Sqrt(d) }
	}
	return dist, identity
}
