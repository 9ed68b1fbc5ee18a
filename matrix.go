package cuvs

import (
	"fmt"

	"github.com/eltociear/cuvs/distance"
)

// Matrix enumerates the cartesian product of configuration value lists.
// It is mechanical data generation: every combination becomes one Config.
// Nil lists fall back to a single default value.
type Matrix struct {
	Seeds   []uint64
	Rows    []int
	Dims    []int
	Queries []int
	Ks      []int

	Metrics                  []distance.Metric
	BuildAlgos               []BuildAlgo
	GraphDegrees             []int
	IntermediateGraphDegrees []int
	AddDataOnBuild           []bool
	Compressions             []*CompressionParams

	ITopKs       []int
	SearchWidths []int

	MinRecall float64
	Exact     bool
}

func orUint64(vals []uint64, def uint64) []uint64 {
	if len(vals) == 0 {
		return []uint64{def}
	}
	return vals
}

func orInt(vals []int, def int) []int {
	if len(vals) == 0 {
		return []int{def}
	}
	return vals
}

func orBool(vals []bool, def bool) []bool {
	if len(vals) == 0 {
		return []bool{def}
	}
	return vals
}

// Configs expands the matrix into concrete configurations.
func (m *Matrix) Configs() []Config {
	seeds := orUint64(m.Seeds, 42)
	rows := orInt(m.Rows, 1000)
	dims := orInt(m.Dims, 64)
	queries := orInt(m.Queries, 10)
	ks := orInt(m.Ks, 10)
	metrics := m.Metrics
	if len(metrics) == 0 {
		metrics = []distance.Metric{distance.MetricSquaredL2}
	}
	algos := m.BuildAlgos
	if len(algos) == 0 {
		algos = []BuildAlgo{BuildAlgoDefault}
	}
	graphDegrees := orInt(m.GraphDegrees, 32)
	intermediateDegrees := orInt(m.IntermediateGraphDegrees, 128)
	addOnBuild := orBool(m.AddDataOnBuild, true)
	compressions := m.Compressions
	if len(compressions) == 0 {
		compressions = []*CompressionParams{nil}
	}
	itopks := orInt(m.ITopKs, 0)
	widths := orInt(m.SearchWidths, 1)

	var configs []Config
	for _, seed := range seeds {
		for _, nRows := range rows {
			for _, dim := range dims {
				for _, nq := range queries {
					for _, k := range ks {
						for _, metric := range metrics {
							for _, algo := range algos {
								for _, gd := range graphDegrees {
									for _, igd := range intermediateDegrees {
										for _, add := range addOnBuild {
											for _, comp := range compressions {
												for _, itopk := range itopks {
													for _, width := range widths {
														cfg := Config{
															Seed:           seed,
															Rows:           nRows,
															Dim:            dim,
															Queries:        nq,
															K:              k,
															MinRecall:      m.MinRecall,
															Exact:          m.Exact,
															AddDataOnBuild: add,
															Build: BuildParams{
																Metric:                  metric,
																GraphDegree:             gd,
																IntermediateGraphDegree: igd,
																Algo:                    algo,
																Compression:             comp,
																Seed:                    seed,
															},
															Search: SearchParams{
																ITopK:       itopk,
																SearchWidth: width,
															},
														}
														cfg.Name = configName(&cfg)
														configs = append(configs, cfg)
													}
												}
											}
										}
									}
								}
							}
						}
					}
				}
			}
		}
	}
	return configs
}

func configName(c *Config) string {
	name := fmt.Sprintf("rows%d_dim%d_q%d_k%d_%s_%s_gd%d_igd%d_itopk%d_sw%d",
		c.Rows, c.Dim, c.Queries, c.K, c.Build.Metric, c.Build.Algo,
		c.Build.GraphDegree, c.Build.IntermediateGraphDegree,
		c.Search.ITopK, c.Search.SearchWidth)
	if !c.AddDataOnBuild {
		name += "_ext"
	}
	if c.Build.Compression != nil {
		name += fmt.Sprintf("_pq%dx%d", c.Build.Compression.NumSubvectors, c.Build.Compression.NumCentroids)
	}
	return name
}
