// Package cuvs is a correctness-validation harness for approximate
// nearest-neighbor (ANN) indexes.
//
// The harness owns ground-truth computation (package oracle), quality
// metrics (package eval) and deterministic dataset generation (package
// dataset). The index under test is an external collaborator accessed
// through the narrow Index interface: build, persist, reload, search.
// For every configuration in a parameter matrix the Runner generates a
// dataset from a seed, computes exact ground truth by brute force, drives
// the index through its full lifecycle and grades the results.
//
// A reference graph index lives in package hnsw so the harness can be
// exercised end to end without an external collaborator.
package cuvs
