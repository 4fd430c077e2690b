// Package store provides persistent ChainResult cache backends for the
// client pipeline.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/labelscore/internal/pipeline"
)

// Supported cache drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Backend is a cache with a schema and a lifecycle.
type Backend interface {
	pipeline.Cache
	// DeleteOlderThan removes entries written before cutoff (epoch millis).
	DeleteOlderThan(ctx context.Context, cutoff int64) (int, error)
	Migrate(ctx context.Context) error
	Close() error
}

// memoryBackend adapts pipeline.MemoryCache to Backend.
type memoryBackend struct {
	*pipeline.MemoryCache
}

func (m memoryBackend) DeleteOlderThan(_ context.Context, cutoff int64) (int, error) {
	return m.Prune(cutoff), nil
}

func (memoryBackend) Migrate(context.Context) error { return nil }
func (memoryBackend) Close() error                  { return nil }

// Open returns the backend for driver and runs its migration. An empty
// driver selects the in-memory cache.
func Open(ctx context.Context, driver, dsn string, poolCfg *PoolConfig) (Backend, error) {
	var (
		b   Backend
		err error
	)
	switch driver {
	case "", DriverMemory:
		return memoryBackend{pipeline.NewMemoryCache()}, nil
	case DriverSQLite:
		b, err = NewSQLite(dsn)
	case DriverPostgres:
		b, err = NewPostgres(ctx, dsn, poolCfg)
	default:
		return nil, eris.Errorf("store: unknown cache driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := b.Migrate(ctx); err != nil {
		_ = b.Close()
		return nil, err
	}
	return b, nil
}
