package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/labelscore/internal/model"
)

// SQLiteCache implements pipeline.Cache using modernc.org/sqlite.
type SQLiteCache struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteCache, error) {
	if dsn == "" {
		return nil, eris.New("sqlite: empty path")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteCache{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS label_cache (
	key       TEXT PRIMARY KEY,
	data      TEXT NOT NULL,
	timestamp INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_label_cache_timestamp ON label_cache(timestamp);
`

// Migrate creates the cache table.
func (s *SQLiteCache) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteCache) Close() error {
	return s.db.Close()
}

// Get implements pipeline.Cache.
func (s *SQLiteCache) Get(ctx context.Context, key string) (*model.CachedEntry, error) {
	var (
		data string
		ts   int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT data, timestamp FROM label_cache WHERE key = ?`, key,
	).Scan(&data, &ts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get %s", key)
	}

	entry := &model.CachedEntry{Timestamp: ts}
	if err := json.Unmarshal([]byte(data), &entry.Data); err != nil {
		return nil, eris.Wrapf(err, "sqlite: decode %s", key)
	}
	return entry, nil
}

// Put implements pipeline.Cache.
func (s *SQLiteCache) Put(ctx context.Context, key string, entry *model.CachedEntry) error {
	data, err := json.Marshal(entry.Data)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal entry")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO label_cache (key, data, timestamp) VALUES (?, ?, ?)
		 ON CONFLICT (key) DO UPDATE SET data = excluded.data, timestamp = excluded.timestamp`,
		key, string(data), entry.Timestamp,
	)
	return eris.Wrapf(err, "sqlite: put %s", key)
}

// Delete implements pipeline.Cache.
func (s *SQLiteCache) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM label_cache WHERE key = ?`, key)
	return eris.Wrapf(err, "sqlite: delete %s", key)
}

// DeleteOlderThan implements Backend.
func (s *SQLiteCache) DeleteOlderThan(ctx context.Context, cutoff int64) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM label_cache WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	return int(n), nil
}
