// Package postgres persists the trial cache in a shared Postgres
// database, letting several machines contribute trials to one sweep.
// Entry writes are keyed by the parameter tuple and commutative, so
// concurrent workers need no coordination beyond the upsert.
package postgres

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
	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS trials (
	trial_key  TEXT PRIMARY KEY,
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// Cache is a Postgres-backed TrialCache.
type Cache struct {
	db  *sqlx.DB
	log *internal.Logger
}

var _ ports.TrialCache = (*Cache)(nil)

// Open connects to the database and ensures the trials table exists.
func Open(databaseURL string) (*Cache, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, apperrors.CacheError("failed to connect to cache database", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, apperrors.CacheError("failed to initialize cache schema", err)
	}
	return &Cache{db: db, log: internal.NewDefaultLogger().Named("pg-cache")}, nil
}

// Close releases the connection pool.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the cached estimate for the tuple; a corrupt payload comes
// back as found=false with an error wrapping core.ErrCacheCorrupt, so
// callers recompute it, never abort.
func (c *Cache) Get(ctx context.Context, params sim.SimulationParameters) (*sim.EffectEstimate, bool, error) {
	var payload []byte
	err := c.db.QueryRowContext(ctx,
		`SELECT payload FROM trials WHERE trial_key = $1`, params.Key()).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperrors.CacheError("failed to query trial "+params.Key(), err)
	}

	var est sim.EffectEstimate
	if err := json.Unmarshal(payload, &est); err != nil {
		corrupt := core.NewCacheCorruptionError(params.Key(), err)
		c.log.Warn("%v", corrupt)
		return nil, false, corrupt
	}
	return &est, true, nil
}

// Put upserts the estimate under its tuple's key.
func (c *Cache) Put(ctx context.Context, est *sim.EffectEstimate) error {
	payload, err := json.Marshal(est)
	if err != nil {
		return apperrors.CacheError("failed to marshal estimate", err)
	}

	_, err = c.db.ExecContext(ctx,
		`INSERT INTO trials (trial_key, payload) VALUES ($1, $2)
		 ON CONFLICT (trial_key) DO UPDATE SET payload = EXCLUDED.payload`,
		est.Params.Key(), payload)
	if err != nil {
		return apperrors.CacheError("failed to store trial "+est.Params.Key(), err)
	}
	return nil
}

// Has reports whether a decodable entry exists for the tuple.
func (c *Cache) Has(ctx context.Context, params sim.SimulationParameters) (bool, error) {
	_, found, err := c.Get(ctx, params)
	return found, err
}

// List returns every decodable cached estimate.
func (c *Cache) List(ctx context.Context) ([]*sim.EffectEstimate, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT trial_key, payload FROM trials`)
	if err != nil {
		return nil, apperrors.CacheError("failed to list trials", err)
	}
	defer rows.Close()

	var out []*sim.EffectEstimate
	for rows.Next() {
		var key string
		var payload []byte
		if err := rows.Scan(&key, &payload); err != nil {
			return nil, apperrors.CacheError("failed to scan trial row", err)
		}
		var est sim.EffectEstimate
		if err := json.Unmarshal(payload, &est); err != nil {
			c.log.Warn("skipping %v", core.NewCacheCorruptionError(key, err))
			continue
		}
		out = append(out, &est)
	}
	return out, rows.Err()
}
