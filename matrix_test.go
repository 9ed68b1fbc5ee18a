package cuvs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eltociear/cuvs"
	"github.com/eltociear/cuvs/distance"
)

func TestMatrixDefaults(t *testing.T) {
	m := cuvs.Matrix{MinRecall: 0.9}

	configs := m.Configs()
	require.Len(t, configs, 1)

	cfg := configs[0]
	assert.Equal(t, uint64(42), cfg.Seed)
	assert.Equal(t, 1000, cfg.Rows)
	assert.Equal(t, 64, cfg.Dim)
	assert.Equal(t, 10, cfg.Queries)
	assert.Equal(t, 10, cfg.K)
	assert.Equal(t, 0.9, cfg.MinRecall)
	assert.Equal(t, distance.MetricSquaredL2, cfg.Build.Metric)
	assert.True(t, cfg.AddDataOnBuild)
	assert.Nil(t, cfg.Build.Compression)
	assert.NoError(t, cfg.Validate())
}

func TestMatrixCartesianProduct(t *testing.T) {
	m := cuvs.Matrix{
		Rows:           []int{100, 200},
		Ks:             []int{5, 10, 20},
		Metrics:        []distance.Metric{distance.MetricSquaredL2, distance.MetricInnerProduct},
		AddDataOnBuild: []bool{true, false},
	}

	configs := m.Configs()
	require.Len(t, configs, 2*3*2*2)

	names := make(map[string]bool)
	for _, cfg := range configs {
		assert.False(t, names[cfg.Name], "duplicate config name %q", cfg.Name)
		names[cfg.Name] = true
	}
}

func TestMatrixCompressionVariants(t *testing.T) {
	m := cuvs.Matrix{
		Dims: []int{32},
		Compressions: []*cuvs.CompressionParams{
			nil,
			{NumSubvectors: 8, NumCentroids: 16},
		},
	}

	configs := m.Configs()
	require.Len(t, configs, 2)

	assert.Nil(t, configs[0].Build.Compression)
	require.NotNil(t, configs[1].Build.Compression)
	assert.Contains(t, configs[1].Name, "_pq8x16")
}

func TestMatrixNames(t *testing.T) {
	m := cuvs.Matrix{
		Rows:           []int{100},
		Dims:           []int{16},
		Queries:        []int{5},
		Ks:             []int{10},
		GraphDegrees:   []int{16},
		AddDataOnBuild: []bool{false},
	}

	configs := m.Configs()
	require.Len(t, configs, 1)
	assert.Equal(t, "rows100_dim16_q5_k10_SquaredL2_default_gd16_igd128_itopk0_sw1_ext", configs[0].Name)
}
