package dataset

// Xorshift is a deterministic xorshift64 pseudo-random stream.
// The same seed always yields the same sequence, which keeps datasets,
// queries and permutation tests reproducible across runs.
type Xorshift struct {
	state uint64
}

// NewXorshift creates a new stream. A zero seed is coerced to 1 because
// xorshift has an all-zero fixed point.
func NewXorshift(seed uint64) *Xorshift {
	if seed == 0 {
		seed = 1
	}
	return &Xorshift{state: seed}
}

// Next returns the next 64-bit value in the stream.
func (x *Xorshift) Next() uint64 {
	x.state ^= x.state << 13
	x.state ^= x.state >> 7
	x.state ^= x.state << 17
	return x.state
}

// Uint32n returns a value uniform in [0, n). n must be > 0.
func (x *Xorshift) Uint32n(n uint32) uint32 {
	return uint32(x.Next() % uint64(n))
}

// Float32 returns a value uniform in [0, 1) with 24 bits of precision.
func (x *Xorshift) Float32() float32 {
	return float32(x.Next()>>40) / (1 << 24)
}
