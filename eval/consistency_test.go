package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eltociear/cuvs/distance"
)

func TestCheckConsistencyOracleSelf(t *testing.T) {
	ds, queries, truth := groundTruth(t, 21, 120, 10, 8, 6)

	err := CheckConsistency(ds, queries, truth, distance.MetricSquaredL2, DefaultTolerances.Consistency)
	assert.NoError(t, err)
}

func TestCheckConsistencyDetectsViolation(t *testing.T) {
	ds, queries, truth := groundTruth(t, 23, 80, 6, 4, 5)

	bad := cloneResult(truth)
	bad.Distances[2][3] += 1.5

	err := CheckConsistency(ds, queries, bad, distance.MetricSquaredL2, DefaultTolerances.Consistency)
	require.Error(t, err)

	var v *ConsistencyViolation
	require.ErrorAs(t, err, &v)
	assert.Equal(t, 2, v.Query)
	assert.Equal(t, 3, v.Position)
	assert.Equal(t, bad.Indices[2][3], v.Index)
	assert.Equal(t, bad.Distances[2][3], v.Reported)
	assert.Equal(t, truth.Distances[2][3], v.Recomputed)
}

func TestCheckConsistencyIndexOutOfRange(t *testing.T) {
	ds, queries, truth := groundTruth(t, 25, 40, 4, 2, 3)

	bad := cloneResult(truth)
	bad.Indices[1][0] = 1000

	err := CheckConsistency(ds, queries, bad, distance.MetricSquaredL2, DefaultTolerances.Consistency)
	require.Error(t, err)
	assert.IsType(t, &ErrIndexOutOfRange{}, err)
}

func TestCheckConsistencyWithinTolerancePasses(t *testing.T) {
	ds, queries, truth := groundTruth(t, 27, 60, 6, 3, 4)

	near := cloneResult(truth)
	near.Distances[0][0] += 1e-6

	err := CheckConsistency(ds, queries, near, distance.MetricSquaredL2, DefaultTolerances.Consistency)
	assert.NoError(t, err)
}
