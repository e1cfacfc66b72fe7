package store

import (
	"context"
	"sync"
	"time"
)

type flagKey struct {
	key string
	env string
}

// MemoryStore is an in-memory implementation of the Store interface.
// It uses maps keyed by (key, env) with an RWMutex for concurrent access.
// Suitable for development, testing, or single-instance deployments.
type MemoryStore struct {
	mu          sync.RWMutex
	flags       map[flagKey]Flag
	experiments map[flagKey]Experiment
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		flags:       make(map[flagKey]Flag),
		experiments: make(map[flagKey]Experiment),
	}
}

// GetAllFlags retrieves all flags for the given environment.
func (m *MemoryStore) GetAllFlags(ctx context.Context, env string) ([]Flag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Flag, 0, len(m.flags))
	for k, flag := range m.flags {
		if k.env == env {
			result = append(result, flag)
		}
	}
	return result, nil
}

// GetFlagByKey retrieves a single flag by key and environment.
func (m *MemoryStore) GetFlagByKey(ctx context.Context, key, env string) (*Flag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	flag, exists := m.flags[flagKey{key, env}]
	if !exists {
		return nil, ErrFlagNotFound
	}
	return &flag, nil
}

// UpsertFlag creates or updates a flag in memory.
func (m *MemoryStore) UpsertFlag(ctx context.Context, flag Flag) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	flag.UpdatedAt = time.Now().UTC()
	m.flags[flagKey{flag.Key, flag.Env}] = flag
	return nil
}

// DeleteFlag removes a flag from memory. Idempotent.
func (m *MemoryStore) DeleteFlag(ctx context.Context, key, env string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.flags, flagKey{key, env})
	return nil
}

// GetAllExperiments retrieves all experiments for the given environment.
func (m *MemoryStore) GetAllExperiments(ctx context.Context, env string) ([]Experiment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Experiment, 0, len(m.experiments))
	for k, exp := range m.experiments {
		if k.env == env {
			result = append(result, exp)
		}
	}
	return result, nil
}

// GetExperimentByKey retrieves a single experiment by key and environment.
func (m *MemoryStore) GetExperimentByKey(ctx context.Context, key, env string) (*Experiment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	exp, exists := m.experiments[flagKey{key, env}]
	if !exists {
		return nil, ErrExperimentNotFound
	}
	return &exp, nil
}

// UpsertExperiment creates or updates an experiment in memory.
func (m *MemoryStore) UpsertExperiment(ctx context.Context, exp Experiment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	exp.UpdatedAt = time.Now().UTC()
	m.experiments[flagKey{exp.Key, exp.Env}] = exp
	return nil
}

// DeleteExperiment removes an experiment from memory. Idempotent.
func (m *MemoryStore) DeleteExperiment(ctx context.Context, key, env string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.experiments, flagKey{key, env})
	return nil
}

// Close is a no-op for MemoryStore.
func (m *MemoryStore) Close() error {
	return nil
}
