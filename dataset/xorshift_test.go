package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXorshiftDeterministic(t *testing.T) {
	a := NewXorshift(42)
	b := NewXorshift(42)
	for i := 0; i < 100; i++ {
		require.Equal(t, a.Next(), b.Next())
	}
}

func TestXorshiftZeroSeed(t *testing.T) {
	x := NewXorshift(0)
	assert.NotZero(t, x.Next())
}

func TestXorshiftUint32n(t *testing.T) {
	x := NewXorshift(7)
	for i := 0; i < 1000; i++ {
		v := x.Uint32n(10)
		require.Less(t, v, uint32(10))
	}
}

func TestXorshiftFloat32Range(t *testing.T) {
	x := NewXorshift(1234)
	for i := 0; i < 1000; i++ {
		f := x.Float32()
		require.GreaterOrEqual(t, f, float32(0))
		require.Less(t, f, float32(1))
	}
}

func TestXorshiftDistinctSeeds(t *testing.T) {
	a := NewXorshift(1)
	b := NewXorshift(2)
	assert.NotEqual(t, a.Next(), b.Next())
}
