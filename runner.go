package cuvs

import (
	"bytes"
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/eltociear/cuvs/blobstore"
	"github.com/eltociear/cuvs/dataset"
	"github.com/eltociear/cuvs/eval"
	"github.com/eltociear/cuvs/oracle"
)

// Status is the final state of one finished configuration.
type Status int

const (
	StatusPass Status = iota
	StatusConfigError
	StatusCollaboratorError
	StatusQualityFailure
	StatusConsistencyFailure
)

func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusConfigError:
		return "config_error"
	case StatusCollaboratorError:
		return "collaborator_error"
	case StatusQualityFailure:
		return "quality_failure"
	case StatusConsistencyFailure:
		return "consistency_failure"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Outcome is the result of one configuration.
type Outcome struct {
	Config             Config
	Status             Status
	Recall             float64
	ConsistencySkipped bool
	Duration           time.Duration
	Err                error
}

// RunReport aggregates the outcomes of a matrix run.
type RunReport struct {
	Outcomes []Outcome
}

// OK reports whether every configuration passed.
func (r *RunReport) OK() bool {
	for _, o := range r.Outcomes {
		if o.Status != StatusPass {
			return false
		}
	}
	return true
}

// Failed returns the outcomes that did not pass.
func (r *RunReport) Failed() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if o.Status != StatusPass {
			failed = append(failed, o)
		}
	}
	return failed
}

// RunnerOptions configure a Runner.
type RunnerOptions struct {
	// Store receives persisted index snapshots between build and reload.
	Store blobstore.Store

	// Tolerances are the two independent comparison epsilons.
	Tolerances eval.Tolerances

	// Parallelism bounds concurrent configurations; 0 means GOMAXPROCS.
	Parallelism int

	Logger  *Logger
	Metrics MetricsCollector
}

// Runner drives index implementations through the validation lifecycle.
type Runner struct {
	newIndex IndexFactory
	opts     RunnerOptions
}

// NewRunner creates a Runner for indexes produced by factory.
func NewRunner(factory IndexFactory, optFns ...func(o *RunnerOptions)) (*Runner, error) {
	if factory == nil {
		return nil, ErrNilIndexFactory
	}
	opts := RunnerOptions{
		Store:      blobstore.NewMemoryStore(),
		Tolerances: eval.DefaultTolerances,
		Logger:     NoopLogger(),
		Metrics:    NoopMetricsCollector{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Store == nil {
		opts.Store = blobstore.NewMemoryStore()
	}
	if opts.Logger == nil {
		opts.Logger = NoopLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = NoopMetricsCollector{}
	}
	return &Runner{newIndex: factory, opts: opts}, nil
}

// Run executes every configuration and returns the aggregated report.
// Configurations are independent: a failure in one never stops the others.
func (r *Runner) Run(ctx context.Context, configs []Config) (*RunReport, error) {
	report := &RunReport{Outcomes: make([]Outcome, len(configs))}

	limit := r.opts.Parallelism
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, cfg := range configs {
		i, cfg := i, cfg
		g.Go(func() error {
			start := time.Now()
			outcome := r.runOne(gctx, cfg)
			outcome.Duration = time.Since(start)
			report.Outcomes[i] = outcome
			r.opts.Metrics.RecordOutcome(outcome.Status, outcome.Recall, outcome.Duration)

			log := r.opts.Logger.WithConfig(cfg.Name)
			switch outcome.Status {
			case StatusPass:
				log.Info("configuration passed", "recall", outcome.Recall, "duration", outcome.Duration)
			default:
				log.Error("configuration failed", "status", outcome.Status.String(), "error", outcome.Err)
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}
	return report, nil
}

// runOne executes a single configuration end to end.
func (r *Runner) runOne(ctx context.Context, cfg Config) Outcome {
	if err := cfg.Validate(); err != nil {
		return Outcome{Config: cfg, Status: StatusConfigError, Err: err}
	}

	ds, queries, err := r.generate(&cfg)
	if err != nil {
		return Outcome{Config: cfg, Status: StatusConfigError, Err: err}
	}

	truth, err := oracle.Search(ctx, ds, queries, cfg.K, cfg.Build.Metric)
	if err != nil {
		return Outcome{Config: cfg, Status: StatusConfigError, Err: err}
	}

	reloaded, err := r.buildAndReload(ctx, &cfg, ds)
	if err != nil {
		return Outcome{Config: cfg, Status: StatusCollaboratorError, Err: err}
	}

	searchStart := time.Now()
	result, err := reloaded.Search(ctx, queries, cfg.K, cfg.Search)
	r.opts.Metrics.RecordSearch(cfg.K, time.Since(searchStart), err)
	if err != nil {
		return Outcome{Config: cfg, Status: StatusCollaboratorError,
			Err: &CollaboratorError{Config: cfg.Name, Stage: "search", Err: err}}
	}

	recall, err := eval.Recall(result, truth, r.opts.Tolerances.Recall)
	if err != nil {
		return Outcome{Config: cfg, Status: StatusCollaboratorError,
			Err: &CollaboratorError{Config: cfg.Name, Stage: "search", Err: err}}
	}
	if !recall.Pass(cfg.MinRecall) {
		return Outcome{Config: cfg, Status: StatusQualityFailure, Recall: recall.Recall,
			Err: &QualityError{Config: cfg.Name, Recall: recall.Recall, MinRecall: cfg.MinRecall}}
	}

	outcome := Outcome{Config: cfg, Status: StatusPass, Recall: recall.Recall}
	if reloaded.Compressed() {
		// Lossy compression bounds distance error separately; the
		// consistency check is skipped, never silently passed.
		outcome.ConsistencySkipped = true
		return outcome
	}
	if err := eval.CheckConsistency(ds, queries, result, cfg.Build.Metric, r.opts.Tolerances.Consistency); err != nil {
		outcome.Status = StatusConsistencyFailure
		outcome.Err = err
	}
	return outcome
}

// generate builds the dataset and query batch deterministically from the
// configuration seed. Queries come from the same stream, after the
// dataset, so the pair is reproducible as a unit.
func (r *Runner) generate(cfg *Config) (ds, queries *dataset.Dataset, err error) {
	rng := dataset.NewXorshift(cfg.Seed)
	gen := dataset.Generate
	if cfg.Exact {
		gen = dataset.GenerateExact
	}
	if ds, err = gen(rng, cfg.Rows, cfg.Dim); err != nil {
		return nil, nil, err
	}
	if queries, err = gen(rng, cfg.Queries, cfg.Dim); err != nil {
		return nil, nil, err
	}
	if cfg.Build.Metric.NeedsNormalization() {
		if err = dataset.Normalize(ds); err != nil {
			return nil, nil, err
		}
		if err = dataset.Normalize(queries); err != nil {
			return nil, nil, err
		}
	}
	return ds, queries, nil
}

// buildAndReload drives the index through build (optionally with a
// follow-up extend), persist, reload and dataset re-attachment.
func (r *Runner) buildAndReload(ctx context.Context, cfg *Config, ds *dataset.Dataset) (Index, error) {
	idx := r.newIndex()

	buildSet := ds
	if !cfg.AddDataOnBuild {
		half, err := ds.Slice(0, cfg.Rows/2)
		if err != nil {
			return nil, &CollaboratorError{Config: cfg.Name, Stage: "build", Err: err}
		}
		buildSet = half
	}

	buildStart := time.Now()
	err := idx.Build(ctx, cfg.Build, buildSet)
	r.opts.Metrics.RecordBuild(time.Since(buildStart), err)
	if err != nil {
		return nil, &CollaboratorError{Config: cfg.Name, Stage: "build", Err: err}
	}

	if !cfg.AddDataOnBuild {
		rest, err := ds.Slice(cfg.Rows/2, cfg.Rows)
		if err != nil {
			return nil, &CollaboratorError{Config: cfg.Name, Stage: "extend", Err: err}
		}
		if err := idx.Extend(ctx, rest); err != nil {
			return nil, &CollaboratorError{Config: cfg.Name, Stage: "extend", Err: err}
		}
	}

	var buf bytes.Buffer
	if err := idx.Persist(ctx, &buf); err != nil {
		return nil, &CollaboratorError{Config: cfg.Name, Stage: "persist", Err: err}
	}
	blobName := cfg.Name + ".snapshot"
	if err := r.opts.Store.Put(ctx, blobName, buf.Bytes()); err != nil {
		return nil, &CollaboratorError{Config: cfg.Name, Stage: "persist", Err: err}
	}

	data, err := r.opts.Store.Get(ctx, blobName)
	if err != nil {
		return nil, &CollaboratorError{Config: cfg.Name, Stage: "reload", Err: err}
	}
	reloaded := r.newIndex()
	if err := reloaded.Reload(ctx, bytes.NewReader(data)); err != nil {
		return nil, &CollaboratorError{Config: cfg.Name, Stage: "reload", Err: err}
	}
	if reloaded.NeedsDataset() {
		if err := reloaded.AttachDataset(ds); err != nil {
			return nil, &CollaboratorError{Config: cfg.Name, Stage: "attach", Err: err}
		}
	}
	return reloaded, nil
}
