package store

import (
	"context"
	"errors"
	"time"

	"github.com/anatolev-dev/variantgate/internal/targeting"
)

// ErrFlagNotFound is returned when a flag lookup misses.
var ErrFlagNotFound = errors.New("flag not found")

// ErrExperimentNotFound is returned when an experiment lookup misses.
var ErrExperimentNotFound = errors.New("experiment not found")

// Store defines persistence for flag and experiment definitions.
// Implementations must be safe for concurrent use.
type Store interface {
	// GetAllFlags retrieves all flags for the given environment.
	// Returns an empty slice if no flags are found.
	GetAllFlags(ctx context.Context, env string) ([]Flag, error)

	// GetFlagByKey retrieves a single flag by key and environment.
	// Returns ErrFlagNotFound if the flag does not exist.
	GetFlagByKey(ctx context.Context, key, env string) (*Flag, error)

	// UpsertFlag creates or updates a flag, keyed by (key, env).
	UpsertFlag(ctx context.Context, flag Flag) error

	// DeleteFlag removes a flag. Idempotent: no error if absent.
	DeleteFlag(ctx context.Context, key, env string) error

	// GetAllExperiments retrieves all experiments for the given environment.
	GetAllExperiments(ctx context.Context, env string) ([]Experiment, error)

	// GetExperimentByKey retrieves a single experiment by key and environment.
	// Returns ErrExperimentNotFound if the experiment does not exist.
	GetExperimentByKey(ctx context.Context, key, env string) (*Experiment, error)

	// UpsertExperiment creates or updates an experiment, keyed by (key, env).
	UpsertExperiment(ctx context.Context, exp Experiment) error

	// DeleteExperiment removes an experiment. Idempotent.
	DeleteExperiment(ctx context.Context, key, env string) error

	// Close releases any resources held by the store.
	Close() error
}

// Status is the lifecycle state of an experiment. Only running experiments
// assign variations.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusArchived  Status = "archived"
)

// Flag is a two-value feature flag. The "A" value is served only when the
// flag is enabled and every gating check passes; everything else serves "B".
// Values are opaque JSON passed through untouched by the evaluator.
type Flag struct {
	Key         string `json:"key"`
	Description string `json:"description,omitempty"`
	Enabled     bool   `json:"enabled"`
	ValueA      any    `json:"valueA"`
	ValueB      any    `json:"valueB"`
	// RolloutPercentage, when set, limits the A side to the given share of
	// eligible users (0-100). Nil means all eligible users get A.
	RolloutPercentage *float64       `json:"rolloutPercentage,omitempty"`
	Targeting         targeting.Rule `json:"targeting"`
	Env               string         `json:"env"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

// Variation is one arm of an experiment.
type Variation struct {
	Key       string `json:"key"`
	Value     any    `json:"value"`
	IsControl bool   `json:"isControl"`
}

// Allocation is one slice of an experiment's traffic split. Allocation order
// is semantically significant: buckets are half-open cumulative ranges in
// list order, not sorted by key.
type Allocation struct {
	VariationKey string  `json:"variationKey"`
	Percentage   float64 `json:"percentage"`
}

// Experiment is a multi-variant experiment definition.
type Experiment struct {
	Key               string         `json:"key"`
	Description       string         `json:"description,omitempty"`
	Status            Status         `json:"status"`
	ScheduledStartAt  *time.Time     `json:"scheduledStartAt,omitempty"`
	ScheduledEndAt    *time.Time     `json:"scheduledEndAt,omitempty"`
	Variations        []Variation    `json:"variations"`
	TrafficAllocation []Allocation   `json:"trafficAllocation"`
	ControlVariation  string         `json:"controlVariation,omitempty"`
	Targeting         targeting.Rule `json:"targeting"`
	Env               string         `json:"env"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}
