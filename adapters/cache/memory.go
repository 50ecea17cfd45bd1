// Package cache provides TrialCache backends. The in-memory backend
// lives here; persistent sqlite and postgres backends are in
// subpackages so their drivers stay out of test binaries that do not
// need them.
package cache

import (
	"context"
	"sync"

	"impactsim/domain/sim"
	"impactsim/ports"
)

// Memory is a mutex-guarded in-memory TrialCache. It backs tests and
// single-process runs that do not need resumability across restarts.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*sim.EffectEstimate
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]*sim.EffectEstimate)}
}

var _ ports.TrialCache = (*Memory)(nil)

// Get returns the cached estimate for the tuple.
func (m *Memory) Get(ctx context.Context, params sim.SimulationParameters) (*sim.EffectEstimate, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	est, ok := m.entries[params.Key()]
	if !ok {
		return nil, false, nil
	}
	return est, true, nil
}

// Put stores the estimate under its tuple's key.
func (m *Memory) Put(ctx context.Context, est *sim.EffectEstimate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[est.Params.Key()] = est
	return nil
}

// Has reports whether an entry exists for the tuple.
func (m *Memory) Has(ctx context.Context, params sim.SimulationParameters) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[params.Key()]
	return ok, nil
}

// List returns every cached estimate.
func (m *Memory) List(ctx context.Context) ([]*sim.EffectEstimate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*sim.EffectEstimate, 0, len(m.entries))
	for _, est := range m.entries {
		out = append(out, est)
	}
	return out, nil
}

// Len returns the number of cached entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
