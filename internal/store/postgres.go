package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anatolev-dev/variantgate/internal/targeting"
)

// PostgresStore is a PostgreSQL implementation of the Store interface.
// Flag values, targeting rules, variations, and allocations are stored as
// jsonb; the evaluator never needs to query inside them.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const flagColumns = `key, description, enabled, value_a, value_b, rollout_percentage, targeting, env, updated_at`

// GetAllFlags retrieves all flags for the given environment.
func (p *PostgresStore) GetAllFlags(ctx context.Context, env string) ([]Flag, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+flagColumns+` FROM flags WHERE env = $1 ORDER BY key`, env)
	if err != nil {
		return nil, fmt.Errorf("query flags: %w", err)
	}
	defer rows.Close()

	flags := make([]Flag, 0)
	for rows.Next() {
		flag, err := scanFlag(rows)
		if err != nil {
			return nil, err
		}
		flags = append(flags, flag)
	}
	return flags, rows.Err()
}

// GetFlagByKey retrieves a single flag by key and environment.
func (p *PostgresStore) GetFlagByKey(ctx context.Context, key, env string) (*Flag, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+flagColumns+` FROM flags WHERE key = $1 AND env = $2`, key, env)
	flag, err := scanFlag(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFlagNotFound
		}
		return nil, err
	}
	return &flag, nil
}

// UpsertFlag creates or updates a flag.
func (p *PostgresStore) UpsertFlag(ctx context.Context, flag Flag) error {
	valueA, err := json.Marshal(flag.ValueA)
	if err != nil {
		return fmt.Errorf("encode valueA: %w", err)
	}
	valueB, err := json.Marshal(flag.ValueB)
	if err != nil {
		return fmt.Errorf("encode valueB: %w", err)
	}
	rule, err := json.Marshal(flag.Targeting)
	if err != nil {
		return fmt.Errorf("encode targeting: %w", err)
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO flags (key, description, enabled, value_a, value_b, rollout_percentage, targeting, env, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (key, env) DO UPDATE SET
			description = EXCLUDED.description,
			enabled = EXCLUDED.enabled,
			value_a = EXCLUDED.value_a,
			value_b = EXCLUDED.value_b,
			rollout_percentage = EXCLUDED.rollout_percentage,
			targeting = EXCLUDED.targeting,
			updated_at = now()`,
		flag.Key, flag.Description, flag.Enabled, valueA, valueB,
		flag.RolloutPercentage, rule, flag.Env)
	if err != nil {
		return fmt.Errorf("upsert flag %q: %w", flag.Key, err)
	}
	return nil
}

// DeleteFlag removes a flag. Idempotent.
func (p *PostgresStore) DeleteFlag(ctx context.Context, key, env string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM flags WHERE key = $1 AND env = $2`, key, env)
	return err
}

const experimentColumns = `key, description, status, scheduled_start_at, scheduled_end_at,
	variations, traffic_allocation, control_variation, targeting, env, updated_at`

// GetAllExperiments retrieves all experiments for the given environment.
func (p *PostgresStore) GetAllExperiments(ctx context.Context, env string) ([]Experiment, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+experimentColumns+` FROM experiments WHERE env = $1 ORDER BY key`, env)
	if err != nil {
		return nil, fmt.Errorf("query experiments: %w", err)
	}
	defer rows.Close()

	exps := make([]Experiment, 0)
	for rows.Next() {
		exp, err := scanExperiment(rows)
		if err != nil {
			return nil, err
		}
		exps = append(exps, exp)
	}
	return exps, rows.Err()
}

// GetExperimentByKey retrieves a single experiment by key and environment.
func (p *PostgresStore) GetExperimentByKey(ctx context.Context, key, env string) (*Experiment, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+experimentColumns+` FROM experiments WHERE key = $1 AND env = $2`, key, env)
	exp, err := scanExperiment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExperimentNotFound
		}
		return nil, err
	}
	return &exp, nil
}

// UpsertExperiment creates or updates an experiment.
func (p *PostgresStore) UpsertExperiment(ctx context.Context, exp Experiment) error {
	variations, err := json.Marshal(exp.Variations)
	if err != nil {
		return fmt.Errorf("encode variations: %w", err)
	}
	allocation, err := json.Marshal(exp.TrafficAllocation)
	if err != nil {
		return fmt.Errorf("encode traffic allocation: %w", err)
	}
	rule, err := json.Marshal(exp.Targeting)
	if err != nil {
		return fmt.Errorf("encode targeting: %w", err)
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO experiments (key, description, status, scheduled_start_at, scheduled_end_at,
			variations, traffic_allocation, control_variation, targeting, env, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		ON CONFLICT (key, env) DO UPDATE SET
			description = EXCLUDED.description,
			status = EXCLUDED.status,
			scheduled_start_at = EXCLUDED.scheduled_start_at,
			scheduled_end_at = EXCLUDED.scheduled_end_at,
			variations = EXCLUDED.variations,
			traffic_allocation = EXCLUDED.traffic_allocation,
			control_variation = EXCLUDED.control_variation,
			targeting = EXCLUDED.targeting,
			updated_at = now()`,
		exp.Key, exp.Description, string(exp.Status), exp.ScheduledStartAt, exp.ScheduledEndAt,
		variations, allocation, exp.ControlVariation, rule, exp.Env)
	if err != nil {
		return fmt.Errorf("upsert experiment %q: %w", exp.Key, err)
	}
	return nil
}

// DeleteExperiment removes an experiment. Idempotent.
func (p *PostgresStore) DeleteExperiment(ctx context.Context, key, env string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM experiments WHERE key = $1 AND env = $2`, key, env)
	return err
}

// Close closes the database connection pool.
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

func scanFlag(row pgx.Row) (Flag, error) {
	var (
		flag             Flag
		valueA, valueB   []byte
		rule             []byte
	)
	err := row.Scan(&flag.Key, &flag.Description, &flag.Enabled, &valueA, &valueB,
		&flag.RolloutPercentage, &rule, &flag.Env, &flag.UpdatedAt)
	if err != nil {
		return Flag{}, err
	}
	if err := decodeJSON(valueA, &flag.ValueA); err != nil {
		return Flag{}, fmt.Errorf("decode valueA for %q: %w", flag.Key, err)
	}
	if err := decodeJSON(valueB, &flag.ValueB); err != nil {
		return Flag{}, fmt.Errorf("decode valueB for %q: %w", flag.Key, err)
	}
	if err := decodeTargeting(rule, &flag.Targeting); err != nil {
		return Flag{}, fmt.Errorf("decode targeting for %q: %w", flag.Key, err)
	}
	return flag, nil
}

func scanExperiment(row pgx.Row) (Experiment, error) {
	var (
		exp                    Experiment
		status                 string
		variations, allocation []byte
		rule                   []byte
	)
	err := row.Scan(&exp.Key, &exp.Description, &status, &exp.ScheduledStartAt, &exp.ScheduledEndAt,
		&variations, &allocation, &exp.ControlVariation, &rule, &exp.Env, &exp.UpdatedAt)
	if err != nil {
		return Experiment{}, err
	}
	exp.Status = Status(status)
	if len(variations) > 0 {
		if err := json.Unmarshal(variations, &exp.Variations); err != nil {
			return Experiment{}, fmt.Errorf("decode variations for %q: %w", exp.Key, err)
		}
	}
	if len(allocation) > 0 {
		if err := json.Unmarshal(allocation, &exp.TrafficAllocation); err != nil {
			return Experiment{}, fmt.Errorf("decode traffic allocation for %q: %w", exp.Key, err)
		}
	}
	if err := decodeTargeting(rule, &exp.Targeting); err != nil {
		return Experiment{}, fmt.Errorf("decode targeting for %q: %w", exp.Key, err)
	}
	return exp, nil
}

func decodeJSON(raw []byte, dst *any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func decodeTargeting(raw []byte, dst *targeting.Rule) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

// guards against interface drift at compile time
var (
	_ Store = (*PostgresStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
