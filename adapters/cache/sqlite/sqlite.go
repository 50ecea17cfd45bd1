// Package sqlite persists the trial cache in a single local database
// file, which is what makes interrupted sweeps resumable: completed
// entries survive the process and are never recomputed.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"

	"impactsim/domain/core"
	"impactsim/domain/sim"
	"impactsim/internal"
	apperrors "impactsim/internal/errors"
	"impactsim/ports"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS trials (
	trial_key  TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

// Options configure the persisted format.
type Options struct {
	// StoreSeries keeps the full per-timestep prediction series in each
	// entry. Off by default: the compact summary-only format is enough
	// for rejection and coverage statistics and far smaller on disk.
	StoreSeries bool
}

// Cache is a sqlite-backed TrialCache.
type Cache struct {
	db   *sqlx.DB
	opts Options
	log  *internal.Logger
}

var _ ports.TrialCache = (*Cache)(nil)

// Open opens (creating if needed) the cache database at path.
func Open(path string, opts Options) (*Cache, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, apperrors.CacheError("failed to open cache database "+path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, apperrors.CacheError("failed to initialize cache schema", err)
	}
	return &Cache{db: db, opts: opts, log: internal.NewDefaultLogger().Named("sqlite-cache")}, nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the cached estimate for the tuple. An entry that fails to
// decode comes back as found=false with an error wrapping
// core.ErrCacheCorrupt, so the runner recomputes it; corruption is never
// fatal to the run.
func (c *Cache) Get(ctx context.Context, params sim.SimulationParameters) (*sim.EffectEstimate, bool, error) {
	var payload string
	err := c.db.QueryRowContext(ctx,
		`SELECT payload FROM trials WHERE trial_key = $1`, params.Key()).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperrors.CacheError("failed to query trial "+params.Key(), err)
	}

	var est sim.EffectEstimate
	if err := json.Unmarshal([]byte(payload), &est); err != nil {
		corrupt := core.NewCacheCorruptionError(params.Key(), err)
		c.log.Warn("%v", corrupt)
		return nil, false, corrupt
	}
	return &est, true, nil
}

// Put stores the estimate, replacing any previous entry for the tuple.
func (c *Cache) Put(ctx context.Context, est *sim.EffectEstimate) error {
	stored := est
	if !c.opts.StoreSeries {
		stored = est.WithoutSeries()
	}
	payload, err := json.Marshal(stored)
	if err != nil {
		return apperrors.CacheError("failed to marshal estimate", err)
	}

	_, err = c.db.ExecContext(ctx,
		`INSERT INTO trials (trial_key, payload) VALUES ($1, $2)
		 ON CONFLICT (trial_key) DO UPDATE SET payload = excluded.payload`,
		stored.Params.Key(), string(payload))
	if err != nil {
		return apperrors.CacheError("failed to store trial "+stored.Params.Key(), err)
	}
	return nil
}

// Has reports whether a decodable entry exists for the tuple.
func (c *Cache) Has(ctx context.Context, params sim.SimulationParameters) (bool, error) {
	_, found, err := c.Get(ctx, params)
	return found, err
}

// List returns every decodable cached estimate, skipping corrupt rows.
func (c *Cache) List(ctx context.Context) ([]*sim.EffectEstimate, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT trial_key, payload FROM trials`)
	if err != nil {
		return nil, apperrors.CacheError("failed to list trials", err)
	}
	defer rows.Close()

	var out []*sim.EffectEstimate
	for rows.Next() {
		var key, payload string
		if err := rows.Scan(&key, &payload); err != nil {
			return nil, apperrors.CacheError("failed to scan trial row", err)
		}
		var est sim.EffectEstimate
		if err := json.Unmarshal([]byte(payload), &est); err != nil {
			c.log.Warn("skipping %v", core.NewCacheCorruptionError(key, err))
			continue
		}
		out = append(out, &est)
	}
	return out, rows.Err()
}
