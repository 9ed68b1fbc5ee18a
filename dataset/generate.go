package dataset

import "math/bits"

// float32 mantissa width including the implicit leading bit. Integers up
// to 1<<mantissaBits are exactly representable.
const mantissaBits = 24

// Generate produces a dataset with components uniform in [0, 1).
func Generate(rng *Xorshift, rows, dim int) (*Dataset, error) {
	ds, err := New(rows, dim)
	if err != nil {
		return nil, err
	}
	for i := range ds.data {
		ds.data[i] = rng.Float32()
	}
	return ds, nil
}

// ExactResolution returns the grid resolution used by GenerateExact for a
// given dimension: the largest power of two such that the sum of dim
// squared integer differences stays within the float32 exact-integer range.
func ExactResolution(dim int) uint32 {
	logDim := bits.Len(uint(dim - 1)) // ceil(log2(dim)), 0 for dim=1
	shift := (mantissaBits - logDim) / 2
	if shift < 1 {
		shift = 1
	}
	return 1 << shift
}

// GenerateExact produces a dataset whose pairwise squared L2 distances are
// exactly representable in float32. Components are integers drawn from
// [0, resolution) and scaled by 1/resolution. Both the integer differences
// and the power-of-two division are exact, so distance sums carry no
// rounding error regardless of accumulation order.
func GenerateExact(rng *Xorshift, rows, dim int) (*Dataset, error) {
	ds, err := New(rows, dim)
	if err != nil {
		return nil, err
	}
	res := ExactResolution(dim)
	inv := 1 / float32(res)
	for i := range ds.data {
		ds.data[i] = float32(rng.Uint32n(res)) * inv
	}
	return ds, nil
}
