package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateShapeAndRange(t *testing.T) {
	rng := NewXorshift(42)
	ds, err := Generate(rng, 50, 8)
	require.NoError(t, err)
	require.Equal(t, 50, ds.Rows())
	require.Equal(t, 8, ds.Dim())

	for _, v := range ds.Data() {
		require.GreaterOrEqual(t, v, float32(0))
		require.Less(t, v, float32(1))
	}
}

func TestGenerateDeterministic(t *testing.T) {
	a, err := Generate(NewXorshift(7), 10, 4)
	require.NoError(t, err)
	b, err := Generate(NewXorshift(7), 10, 4)
	require.NoError(t, err)
	assert.Equal(t, a.Data(), b.Data())
}

func TestExactResolution(t *testing.T) {
	// Larger dimension must shrink the grid.
	assert.Greater(t, ExactResolution(2), ExactResolution(64))
	assert.Equal(t, uint32(512), ExactResolution(64))

	// Worst-case squared sum must stay inside the exact-integer range.
	for _, dim := range []int{1, 2, 3, 8, 64, 100, 512, 1024} {
		res := uint64(ExactResolution(dim))
		maxSum := uint64(dim) * res * res
		require.LessOrEqual(t, maxSum, uint64(1)<<mantissaBits, "dim=%d", dim)
	}
}

// squaredL2Order accumulates the squared distance in float32 either forward
// or backward. For exact datasets both orders must agree bit for bit.
func squaredL2Order(a, b []float32, reverse bool) float32 {
	var sum float32
	if reverse {
		for i := len(a) - 1; i >= 0; i-- {
			d := a[i] - b[i]
			sum += d * d
		}
		return sum
	}
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func TestGenerateExactAccumulationOrderInvariant(t *testing.T) {
	for _, dim := range []int{4, 64, 200} {
		rng := NewXorshift(99)
		ds, err := GenerateExact(rng, 40, dim)
		require.NoError(t, err)

		for i := 0; i < ds.Rows(); i++ {
			for j := i + 1; j < ds.Rows(); j++ {
				fwd := squaredL2Order(ds.Row(i), ds.Row(j), false)
				rev := squaredL2Order(ds.Row(i), ds.Row(j), true)
				require.Equal(t, fwd, rev, "dim=%d rows=(%d,%d)", dim, i, j)
			}
		}
	}
}

func TestGenerateExactRange(t *testing.T) {
	ds, err := GenerateExact(NewXorshift(1), 20, 16)
	require.NoError(t, err)
	for _, v := range ds.Data() {
		require.GreaterOrEqual(t, v, float32(0))
		require.Less(t, v, float32(1))
	}
}
