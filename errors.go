package cuvs

import (
	"errors"
	"fmt"
)

// ErrNilIndexFactory is returned by NewRunner when no factory is given.
var ErrNilIndexFactory = errors.New("cuvs: index factory must not be nil")

// ConfigError marks an invalid configuration, rejected before any
// comparison. It is distinct from a quality failure: nothing was measured.
type ConfigError struct {
	Config string
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %q: invalid %s: %s", e.Config, e.Field, e.Reason)
}

// QualityError marks a recall below the configured threshold. The measured
// value is attached, not merely a boolean.
type QualityError struct {
	Config    string
	Recall    float64
	MinRecall float64
}

func (e *QualityError) Error() string {
	return fmt.Sprintf("config %q: recall %.4f below threshold %.4f", e.Config, e.Recall, e.MinRecall)
}

// CollaboratorError wraps a failure of the index under test during one
// lifecycle stage. It fails that configuration only; the rest of the
// matrix continues.
type CollaboratorError struct {
	Config string
	Stage  string // build, extend, persist, reload, attach, search
	Err    error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("config %q: %s failed: %v", e.Config, e.Stage, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }
