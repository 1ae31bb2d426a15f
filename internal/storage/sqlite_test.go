package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orangebot/orangebot/internal/match"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func result(server, series, mapName string, tScore, ctScore int) match.MapResult {
	return match.MapResult{
		ServerAddr: server,
		SeriesID:   series,
		Map:        mapName,
		TeamT:      "NAVI",
		TeamCT:     "FaZe",
		TScore:     tScore,
		CTScore:    ctScore,
		DemoName:   "demo.dem",
		FinishedAt: time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC),
	}
}

func TestInsertAndListMapResults(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertMapResult(ctx, result("10.0.0.1:27015", "s1", "de_dust2", 16, 10)))
	require.NoError(t, store.InsertMapResult(ctx, result("10.0.0.1:27015", "s1", "de_inferno", 9, 16)))
	require.NoError(t, store.InsertMapResult(ctx, result("10.0.0.2:27015", "s2", "de_nuke", 16, 2)))

	// Newest first, all servers
	all, err := store.ListMapResults(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "de_nuke", all[0].Map)

	// Filtered by server
	one, err := store.ListMapResults(ctx, "10.0.0.1:27015", 0)
	require.NoError(t, err)
	require.Len(t, one, 2)
	for _, r := range one {
		assert.Equal(t, "10.0.0.1:27015", r.ServerAddr)
	}

	// Limit applies
	limited, err := store.ListMapResults(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestListSeriesResultsInPlayOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertMapResult(ctx, result("10.0.0.1:27015", "s1", "de_dust2", 16, 10)))
	require.NoError(t, store.InsertMapResult(ctx, result("10.0.0.1:27015", "s1", "de_inferno", 9, 16)))
	require.NoError(t, store.InsertMapResult(ctx, result("10.0.0.1:27015", "other", "de_train", 16, 0)))

	series, err := store.ListSeriesResults(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, "de_dust2", series[0].Map)
	assert.Equal(t, "de_inferno", series[1].Map)
}

func TestRoundTripFields(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	in := result("10.0.0.1:27015", "s1", "de_dust2", 16, 10)
	require.NoError(t, store.InsertMapResult(ctx, in))

	out, err := store.ListMapResults(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, in, out[0])
}

func TestSaveMapResultDoesNotPanicOnClosedDB(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Close())

	// Errors are logged, not propagated
	store.SaveMapResult(result("10.0.0.1:27015", "s1", "de_dust2", 1, 0))
}
