package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/labelscore/internal/model"
)

// Pool is the subset of *pgxpool.Pool used by PostgresCache.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresCache implements pipeline.Cache using pgxpool.
type PostgresCache struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresCache with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresCache, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresCache{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS label_cache (
	key       TEXT PRIMARY KEY,
	data      JSONB NOT NULL,
	timestamp BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_label_cache_timestamp ON label_cache(timestamp);
`

// Migrate creates the cache table.
func (s *PostgresCache) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool.
func (s *PostgresCache) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// Get implements pipeline.Cache.
func (s *PostgresCache) Get(ctx context.Context, key string) (*model.CachedEntry, error) {
	var (
		data []byte
		ts   int64
	)
	err := s.pool.QueryRow(ctx,
		`SELECT data, timestamp FROM label_cache WHERE key = $1`, key,
	).Scan(&data, &ts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get %s", key)
	}

	entry := &model.CachedEntry{Timestamp: ts}
	if err := json.Unmarshal(data, &entry.Data); err != nil {
		return nil, eris.Wrapf(err, "postgres: decode %s", key)
	}
	return entry, nil
}

// Put implements pipeline.Cache.
func (s *PostgresCache) Put(ctx context.Context, key string, entry *model.CachedEntry) error {
	data, err := json.Marshal(entry.Data)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal entry")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO label_cache (key, data, timestamp) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET data = $2, timestamp = $3`,
		key, data, entry.Timestamp,
	)
	return eris.Wrapf(err, "postgres: put %s", key)
}

// Delete implements pipeline.Cache.
func (s *PostgresCache) Delete(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM label_cache WHERE key = $1`, key)
	return eris.Wrapf(err, "postgres: delete %s", key)
}

// DeleteOlderThan implements Backend.
func (s *PostgresCache) DeleteOlderThan(ctx context.Context, cutoff int64) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM label_cache WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired")
	}
	return int(tag.RowsAffected()), nil
}
