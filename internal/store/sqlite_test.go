package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/labelscore/internal/model"
	"github.com/sells-group/labelscore/internal/pipeline"
)

func newTestSQLite(t *testing.T) *SQLiteCache {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	return s
}

func sampleEntry(ts int64) *model.CachedEntry {
	return &model.CachedEntry{
		Data: model.ChainResult{
			Product: model.Product{
				ID:          "p-1",
				Title:       "Omega-3 Fish Oil",
				Ingredients: []string{"Fish oil", "gelatin"},
				Warnings:    []string{},
			},
			Score: model.Score{Score: 72, Highlights: []string{"Third-party tested"}, Concerns: []string{}},
			Meta: model.ChainMeta{
				Chain:       []model.ChainStep{{Provider: "extract", Attempt: 1, Status: model.StepOK}},
				FactsSource: "supplement_facts",
				Remediation: &model.RemediationResult{Status: model.StatusSuccess, Remediation: model.RemediationNone},
			},
		},
		Timestamp: ts,
	}
}

func TestSQLiteCache_RoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	key := pipeline.CacheKey("labelscore", "https://shop.test/p/1")

	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got, "miss returns nil, nil")

	want := sampleEntry(1000)
	require.NoError(t, s.Put(ctx, key, want))

	got, err = s.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.Timestamp, got.Timestamp)
	assert.Equal(t, want.Data.Product, got.Data.Product)
	assert.Equal(t, want.Data.Score, got.Data.Score)
	assert.Equal(t, *want.Data.Meta.Remediation, *got.Data.Meta.Remediation)
}

func TestSQLiteCache_Overwrite(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k", sampleEntry(1)))
	second := sampleEntry(2)
	second.Data.Product.Title = "Krill Oil"
	require.NoError(t, s.Put(ctx, "k", second))

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "Krill Oil", got.Data.Product.Title)
	assert.Equal(t, int64(2), got.Timestamp)
}

func TestSQLiteCache_DeleteAndPrune(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "old", sampleEntry(100)))
	require.NoError(t, s.Put(ctx, "new", sampleEntry(900)))
	require.NoError(t, s.Put(ctx, "gone", sampleEntry(500)))

	require.NoError(t, s.Delete(ctx, "gone"))
	require.NoError(t, s.Delete(ctx, "never-written"))

	n, err := s.DeleteOlderThan(ctx, 500)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.Get(ctx, "old")
	require.NoError(t, err)
	assert.Nil(t, got)
	got, err = s.Get(ctx, "new")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestNewSQLite_EmptyPath(t *testing.T) {
	_, err := NewSQLite("")
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	mem, err := Open(ctx, "", "", nil)
	require.NoError(t, err)
	require.NoError(t, mem.Put(ctx, "k", sampleEntry(1)))
	n, err := mem.DeleteOlderThan(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mem.Close())

	lite, err := Open(ctx, DriverSQLite, filepath.Join(t.TempDir(), "c.db"), nil)
	require.NoError(t, err)
	defer lite.Close() //nolint:errcheck
	require.NoError(t, lite.Put(ctx, "k", sampleEntry(1)))

	_, err = Open(ctx, "redis", "", nil)
	assert.ErrorContains(t, err, "unknown cache driver")
}
