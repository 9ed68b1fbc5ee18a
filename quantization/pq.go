// Package quantization provides product quantization for lossy vector
// compression. Indexes using it trade distance accuracy for memory, which
// is why distance-consistency checks are relaxed when it is active.
package quantization

import (
	"errors"
	"fmt"

	"github.com/eltociear/cuvs/dataset"
	"github.com/eltociear/cuvs/internal/math32"
)

// ProductQuantizer splits vectors into subvectors and quantizes each
// independently against a k-means codebook.
type ProductQuantizer struct {
	numSubvectors int // M: number of subvectors
	numCentroids  int // K: centroids per subspace, <= 256 for uint8 codes
	dimension     int
	subvectorDim  int
	codebooks     [][][]float32 // M codebooks of K centroids each
	trained       bool
}

// NewProductQuantizer creates an untrained quantizer.
// dimension must be divisible by numSubvectors.
func NewProductQuantizer(dimension, numSubvectors, numCentroids int) (*ProductQuantizer, error) {
	if numSubvectors <= 0 || dimension%numSubvectors != 0 {
		return nil, fmt.Errorf("quantization: dimension %d not divisible by %d subvectors", dimension, numSubvectors)
	}
	if numCentroids <= 0 || numCentroids > 256 {
		return nil, errors.New("quantization: numCentroids must be in (0, 256] for uint8 codes")
	}
	return &ProductQuantizer{
		numSubvectors: numSubvectors,
		numCentroids:  numCentroids,
		dimension:     dimension,
		subvectorDim:  dimension / numSubvectors,
		codebooks:     make([][][]float32, numSubvectors),
	}, nil
}

// Trained reports whether Train has completed.
func (pq *ProductQuantizer) Trained() bool { return pq.trained }

// BytesPerVector returns the compressed size per vector.
func (pq *ProductQuantizer) BytesPerVector() int { return pq.numSubvectors }

// Train calibrates the codebooks with k-means over the training vectors.
// The rng makes codebook initialization deterministic per seed, so repeated
// builds on identical input behave equivalently.
func (pq *ProductQuantizer) Train(vectors [][]float32, rng *dataset.Xorshift) error {
	if len(vectors) == 0 {
		return errors.New("quantization: no training vectors")
	}
	if len(vectors[0]) != pq.dimension {
		return fmt.Errorf("quantization: training dimension %d, want %d", len(vectors[0]), pq.dimension)
	}

	for m := 0; m < pq.numSubvectors; m++ {
		start := m * pq.subvectorDim
		end := start + pq.subvectorDim
		subvectors := make([][]float32, len(vectors))
		for i, vec := range vectors {
			subvectors[i] = vec[start:end]
		}
		pq.codebooks[m] = kmeans(subvectors, pq.numCentroids, 20, rng)
	}

	pq.trained = true
	return nil
}

// Encode quantizes a vector into M uint8 codes.
func (pq *ProductQuantizer) Encode(vec []float32) ([]byte, error) {
	if !pq.trained {
		return nil, errors.New("quantization: not trained")
	}
	if len(vec) != pq.dimension {
		return nil, fmt.Errorf("quantization: vector dimension %d, want %d", len(vec), pq.dimension)
	}

	codes := make([]byte, pq.numSubvectors)
	for m := 0; m < pq.numSubvectors; m++ {
		start := m * pq.subvectorDim
		codes[m] = uint8(nearestCentroid(vec[start:start+pq.subvectorDim], pq.codebooks[m]))
	}
	return codes, nil
}

// Decode reconstructs an approximate vector from PQ codes.
func (pq *ProductQuantizer) Decode(codes []byte) ([]float32, error) {
	if !pq.trained {
		return nil, errors.New("quantization: not trained")
	}
	if len(codes) != pq.numSubvectors {
		return nil, fmt.Errorf("quantization: code length %d, want %d", len(codes), pq.numSubvectors)
	}

	out := make([]float32, pq.dimension)
	for m, c := range codes {
		start := m * pq.subvectorDim
		copy(out[start:start+pq.subvectorDim], pq.codebooks[m][c])
	}
	return out, nil
}

// AsymmetricDistance computes squared L2 distance between a full-precision
// query and PQ codes without decoding (ADC).
func (pq *ProductQuantizer) AsymmetricDistance(query []float32, codes []byte) float32 {
	var sum float32
	for m, c := range codes {
		start := m * pq.subvectorDim
		sum += math32.SquaredL2(query[start:start+pq.subvectorDim], pq.codebooks[m][c])
	}
	return sum
}

// Codebooks returns the trained codebooks for persistence.
func (pq *ProductQuantizer) Codebooks() [][][]float32 { return pq.codebooks }

// Restore rebuilds a trained quantizer from persisted codebooks.
func Restore(dimension, numSubvectors, numCentroids int, codebooks [][][]float32) (*ProductQuantizer, error) {
	pq, err := NewProductQuantizer(dimension, numSubvectors, numCentroids)
	if err != nil {
		return nil, err
	}
	if len(codebooks) != numSubvectors {
		return nil, fmt.Errorf("quantization: %d codebooks, want %d", len(codebooks), numSubvectors)
	}
	pq.codebooks = codebooks
	pq.trained = true
	return pq, nil
}

func nearestCentroid(sub []float32, centroids [][]float32) int {
	best := 0
	bestDist := math32.SquaredL2(sub, centroids[0])
	for i := 1; i < len(centroids); i++ {
		if d := math32.SquaredL2(sub, centroids[i]); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

// kmeans clusters subvectors with k-means++ seeding.
func kmeans(vectors [][]float32, k, maxIters int, rng *dataset.Xorshift) [][]float32 {
	dim := len(vectors[0])
	centroids := make([][]float32, k)
	for i := range centroids {
		centroids[i] = make([]float32, dim)
	}

	if len(vectors) < k {
		// Not enough data; repeat what we have.
		for i := range centroids {
			copy(centroids[i], vectors[i%len(vectors)])
		}
		return centroids
	}

	copy(centroids[0], vectors[rng.Uint32n(uint32(len(vectors)))])

	// minDistSq tracks each vector's squared distance to its nearest chosen
	// centroid; new centroids are sampled proportional to it.
	minDistSq := make([]float32, len(vectors))
	var sum float32
	for i, vec := range vectors {
		minDistSq[i] = math32.SquaredL2(vec, centroids[0])
		sum += minDistSq[i]
	}
	for c := 1; c < k; c++ {
		if sum == 0 {
			copy(centroids[c], vectors[rng.Uint32n(uint32(len(vectors)))])
			continue
		}
		target := rng.Float32() * sum
		var cumsum float32
		chosen := 0
		for i, d := range minDistSq {
			cumsum += d
			if cumsum >= target {
				chosen = i
				break
			}
		}
		copy(centroids[c], vectors[chosen])

		sum = 0
		for i, vec := range vectors {
			if d := math32.SquaredL2(vec, centroids[c]); d < minDistSq[i] {
				minDistSq[i] = d
			}
			sum += minDistSq[i]
		}
	}

	assignments := make([]int, len(vectors))
	for iter := 0; iter < maxIters; iter++ {
		changed := false
		for i, vec := range vectors {
			nearest := nearestCentroid(vec, centroids)
			if assignments[i] != nearest {
				assignments[i] = nearest
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		counts := make([]int, k)
		sums := make([][]float32, k)
		for i := range sums {
			sums[i] = make([]float32, dim)
		}
		for i, vec := range vectors {
			c := assignments[i]
			counts[c]++
			for j, v := range vec {
				sums[c][j] += v
			}
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				// Empty cluster: reseed from a random vector.
				copy(centroids[c], vectors[rng.Uint32n(uint32(len(vectors)))])
				continue
			}
			inv := 1 / float32(counts[c])
			for j := range centroids[c] {
				centroids[c][j] = sums[c][j] * inv
			}
		}
	}

	return centroids
}
