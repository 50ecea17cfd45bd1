package ports

import (
	"context"

	"impactsim/domain/sim"
)

// TrialCache persists at most one EffectEstimate per distinct parameter
// tuple, keyed by the tuple's stable encoding. Lookups are idempotent:
// a recompute with identical parameters reproduces bit-identical input
// data, so a cached result never goes stale.
//
// Writes are commutative across workers (one key, one value), so a
// cache may be shared by concurrent trials without coordination beyond
// the adapter's own locking. A corrupt persisted entry is surfaced as a
// miss, never as a fatal error.
type TrialCache interface {
	// Get returns the cached estimate for the tuple, or found=false on a
	// miss. A corrupt entry also reports found=false, with an error
	// wrapping core.ErrCacheCorrupt; callers recompute such entries.
	Get(ctx context.Context, params sim.SimulationParameters) (est *sim.EffectEstimate, found bool, err error)

	// Put stores the estimate under the tuple's key, replacing any
	// previous value.
	Put(ctx context.Context, est *sim.EffectEstimate) error

	// Has reports whether a decodable entry exists for the tuple.
	Has(ctx context.Context, params sim.SimulationParameters) (bool, error)

	// List returns every decodable cached estimate, in no particular
	// order. Aggregation recomputes its statistics from this view.
	List(ctx context.Context) ([]*sim.EffectEstimate, error)
}
