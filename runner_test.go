package cuvs_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eltociear/cuvs"
	"github.com/eltociear/cuvs/dataset"
	"github.com/eltociear/cuvs/distance"
	"github.com/eltociear/cuvs/hnsw"
	"github.com/eltociear/cuvs/oracle"
)

func referenceConfig() cuvs.Config {
	cfg := cuvs.Config{
		Seed:           42,
		Rows:           1000,
		Dim:            64,
		Queries:        10,
		K:              16,
		MinRecall:      0.995,
		Exact:          true,
		AddDataOnBuild: true,
		Build: cuvs.BuildParams{
			Metric:                  distance.MetricSquaredL2,
			GraphDegree:             32,
			IntermediateGraphDegree: 128,
			Seed:                    42,
		},
		Search: cuvs.SearchParams{ITopK: 512},
	}
	cfg.Name = "reference"
	return cfg
}

func TestNewRunnerNilFactory(t *testing.T) {
	_, err := cuvs.NewRunner(nil)
	require.ErrorIs(t, err, cuvs.ErrNilIndexFactory)
}

func TestRunnerPassesReferenceIndex(t *testing.T) {
	runner, err := cuvs.NewRunner(hnsw.Factory())
	require.NoError(t, err)

	report, err := runner.Run(context.Background(), []cuvs.Config{referenceConfig()})
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)

	outcome := report.Outcomes[0]
	require.NoError(t, outcome.Err)
	assert.Equal(t, cuvs.StatusPass, outcome.Status)
	assert.GreaterOrEqual(t, outcome.Recall, 0.995)
	assert.False(t, outcome.ConsistencySkipped)
	assert.True(t, report.OK())
	assert.Empty(t, report.Failed())
}

func TestRunnerExtendPath(t *testing.T) {
	cfg := referenceConfig()
	cfg.Name = "extend"
	cfg.Rows = 400
	cfg.Dim = 32
	cfg.K = 10
	cfg.MinRecall = 0.9
	cfg.AddDataOnBuild = false
	cfg.Search.ITopK = 256

	runner, err := cuvs.NewRunner(hnsw.Factory())
	require.NoError(t, err)

	report, err := runner.Run(context.Background(), []cuvs.Config{cfg})
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)

	outcome := report.Outcomes[0]
	require.NoError(t, outcome.Err)
	assert.Equal(t, cuvs.StatusPass, outcome.Status)
}

func TestRunnerVectorlessSnapshotPath(t *testing.T) {
	cfg := referenceConfig()
	cfg.Name = "vectorless"
	cfg.Rows = 400
	cfg.Dim = 32
	cfg.K = 10
	cfg.MinRecall = 0.9
	cfg.Search.ITopK = 256

	runner, err := cuvs.NewRunner(hnsw.Factory(hnsw.WithVectorsOmitted()))
	require.NoError(t, err)

	report, err := runner.Run(context.Background(), []cuvs.Config{cfg})
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)

	outcome := report.Outcomes[0]
	require.NoError(t, outcome.Err)
	assert.Equal(t, cuvs.StatusPass, outcome.Status)
}

func TestRunnerCompressionSkipsConsistency(t *testing.T) {
	cfg := referenceConfig()
	cfg.Name = "compressed"
	cfg.Rows = 400
	cfg.Dim = 32
	cfg.K = 10
	cfg.MinRecall = 0
	cfg.Search.ITopK = 256
	cfg.Build.Compression = &cuvs.CompressionParams{NumSubvectors: 8, NumCentroids: 16}

	runner, err := cuvs.NewRunner(hnsw.Factory())
	require.NoError(t, err)

	report, err := runner.Run(context.Background(), []cuvs.Config{cfg})
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)

	outcome := report.Outcomes[0]
	require.NoError(t, outcome.Err)
	assert.Equal(t, cuvs.StatusPass, outcome.Status)
	assert.True(t, outcome.ConsistencySkipped)
}

func TestRunnerMinimalSearchWidth(t *testing.T) {
	cfg := referenceConfig()
	cfg.Name = "minimal"
	cfg.Rows = 200
	cfg.Dim = 16
	cfg.K = 5
	cfg.MinRecall = 0
	cfg.Search = cuvs.SearchParams{}

	runner, err := cuvs.NewRunner(hnsw.Factory())
	require.NoError(t, err)

	report, err := runner.Run(context.Background(), []cuvs.Config{cfg})
	require.NoError(t, err)

	outcome := report.Outcomes[0]
	require.NoError(t, outcome.Err)
	assert.Equal(t, cuvs.StatusPass, outcome.Status)
	assert.GreaterOrEqual(t, outcome.Recall, 0.0)
	assert.LessOrEqual(t, outcome.Recall, 1.0)
}

func TestRunnerRejectsInvalidConfig(t *testing.T) {
	invalid := referenceConfig()
	invalid.Name = "invalid"
	invalid.K = invalid.Rows + 1

	valid := referenceConfig()
	valid.Name = "valid"
	valid.Rows = 200
	valid.Dim = 16
	valid.K = 5
	valid.MinRecall = 0
	valid.Search.ITopK = 128

	runner, err := cuvs.NewRunner(hnsw.Factory())
	require.NoError(t, err)

	report, err := runner.Run(context.Background(), []cuvs.Config{invalid, valid})
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 2)

	assert.Equal(t, cuvs.StatusConfigError, report.Outcomes[0].Status)
	var cfgErr *cuvs.ConfigError
	require.ErrorAs(t, report.Outcomes[0].Err, &cfgErr)
	assert.Equal(t, "k", cfgErr.Field)

	assert.Equal(t, cuvs.StatusPass, report.Outcomes[1].Status)
	assert.False(t, report.OK())
	assert.Len(t, report.Failed(), 1)
}

func TestRunnerQualityFailure(t *testing.T) {
	cfg := referenceConfig()
	cfg.Name = "quality"
	cfg.Rows = 500
	cfg.Dim = 32
	cfg.K = 10

	runner, err := cuvs.NewRunner(func() cuvs.Index { return &fixedIndex{} })
	require.NoError(t, err)

	report, err := runner.Run(context.Background(), []cuvs.Config{cfg})
	require.NoError(t, err)

	outcome := report.Outcomes[0]
	assert.Equal(t, cuvs.StatusQualityFailure, outcome.Status)

	var qualityErr *cuvs.QualityError
	require.ErrorAs(t, outcome.Err, &qualityErr)
	assert.Equal(t, outcome.Recall, qualityErr.Recall)
	assert.Less(t, qualityErr.Recall, cfg.MinRecall)
}

func TestRunnerIsolatesCollaboratorFailure(t *testing.T) {
	broken := referenceConfig()
	broken.Name = "broken"
	broken.Rows = 200
	broken.Dim = 16
	broken.K = 5

	runner, err := cuvs.NewRunner(func() cuvs.Index { return &failingIndex{} })
	require.NoError(t, err)

	report, err := runner.Run(context.Background(), []cuvs.Config{broken, broken})
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 2)

	for _, outcome := range report.Outcomes {
		assert.Equal(t, cuvs.StatusCollaboratorError, outcome.Status)

		var collabErr *cuvs.CollaboratorError
		require.ErrorAs(t, outcome.Err, &collabErr)
		assert.Equal(t, "build", collabErr.Stage)
		require.ErrorIs(t, outcome.Err, errBrokenBuild)
	}
	assert.False(t, report.OK())
}

func TestRunnerRecordsMetrics(t *testing.T) {
	cfg := referenceConfig()
	cfg.Name = "metrics"
	cfg.Rows = 200
	cfg.Dim = 16
	cfg.K = 5
	cfg.MinRecall = 0
	cfg.Search.ITopK = 128

	var collector cuvs.BasicMetricsCollector
	runner, err := cuvs.NewRunner(hnsw.Factory(), func(o *cuvs.RunnerOptions) {
		o.Metrics = &collector
	})
	require.NoError(t, err)

	report, err := runner.Run(context.Background(), []cuvs.Config{cfg})
	require.NoError(t, err)
	require.True(t, report.OK())

	assert.Equal(t, int64(1), collector.BuildCount.Load())
	assert.Equal(t, int64(0), collector.BuildErrors.Load())
	assert.Equal(t, int64(1), collector.SearchCount.Load())
	assert.Equal(t, int64(1), collector.Passed.Load())
	assert.Equal(t, int64(0), collector.Failed.Load())
}

var errBrokenBuild = errors.New("broken build")

// failingIndex fails at build time, exercising failure isolation.
type failingIndex struct{}

func (f *failingIndex) Build(context.Context, cuvs.BuildParams, *dataset.Dataset) error {
	return errBrokenBuild
}
func (f *failingIndex) Extend(context.Context, *dataset.Dataset) error     { return nil }
func (f *failingIndex) Persist(context.Context, io.Writer) error           { return nil }
func (f *failingIndex) Reload(context.Context, io.Reader) error            { return nil }
func (f *failingIndex) NeedsDataset() bool                                 { return false }
func (f *failingIndex) AttachDataset(*dataset.Dataset) error               { return nil }
func (f *failingIndex) Compressed() bool                                   { return false }
func (f *failingIndex) Search(context.Context, *dataset.Dataset, int, cuvs.SearchParams) (*oracle.Result, error) {
	return nil, errBrokenBuild
}

// fixedIndex always answers with the first k rows, which tanks recall on
// any realistically shuffled dataset.
type fixedIndex struct{}

func (f *fixedIndex) Build(context.Context, cuvs.BuildParams, *dataset.Dataset) error { return nil }
func (f *fixedIndex) Extend(context.Context, *dataset.Dataset) error                  { return nil }
func (f *fixedIndex) Persist(_ context.Context, w io.Writer) error {
	_, err := w.Write([]byte{0})
	return err
}
func (f *fixedIndex) Reload(context.Context, io.Reader) error { return nil }
func (f *fixedIndex) NeedsDataset() bool                      { return false }
func (f *fixedIndex) AttachDataset(*dataset.Dataset) error    { return nil }
func (f *fixedIndex) Compressed() bool                        { return false }
func (f *fixedIndex) Search(_ context.Context, queries *dataset.Dataset, k int, _ cuvs.SearchParams) (*oracle.Result, error) {
	res := &oracle.Result{
		Indices:   make([][]uint32, queries.Rows()),
		Distances: make([][]float32, queries.Rows()),
	}
	for q := range res.Indices {
		res.Indices[q] = make([]uint32, k)
		res.Distances[q] = make([]float32, k)
		for i := 0; i < k; i++ {
			res.Indices[q][i] = uint32(i)
		}
	}
	return res, nil
}
