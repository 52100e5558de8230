package market

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xingyu42/farm-game-sub003/internal/index"
)

func TestSummarize(t *testing.T) {
	e := newTestEngine(t)
	seedPlayer(t, e, "owner", 100, 3)
	seedPlayer(t, e, "buyer", 1000, 0)
	ctx := context.Background()

	_, err := e.List(ctx, "owner", 100, 10)
	require.NoError(t, err)
	_, err = e.List(ctx, "owner", 250, 10)
	require.NoError(t, err)
	_, err = e.Buy(ctx, "buyer", 1)
	require.NoError(t, err)
	_, err = e.ListResale(ctx, "buyer", 1)
	require.NoError(t, err)

	s := e.Summarize(ctx)
	require.Equal(t, 1, s.ActiveListings)
	require.Equal(t, 1, s.ActiveResales)
	require.Equal(t, 1, s.DistinctHolders)
	require.Equal(t, int64(250), s.TotalListedValue)
}

// TestIndexMatchesDerived drives a mixed operation sequence and checks
// the incrementally maintained index equals one derived from entity
// state alone.
func TestIndexMatchesDerived(t *testing.T) {
	e := newTestEngine(t)
	seedPlayer(t, e, "alice", 1000, 3)
	seedPlayer(t, e, "bob", 1000, 2)
	seedPlayer(t, e, "carol", 1000, 0)
	ctx := context.Background()

	_, err := e.List(ctx, "alice", 100, 30)
	require.NoError(t, err)
	_, err = e.List(ctx, "alice", 150, 20)
	require.NoError(t, err)
	_, err = e.List(ctx, "bob", 200, 40)
	require.NoError(t, err)
	require.NoError(t, e.CancelListing(ctx, "alice", 2))
	_, err = e.Buy(ctx, "bob", 1)
	require.NoError(t, err)
	_, err = e.ListResale(ctx, "bob", 1)
	require.NoError(t, err)
	_, err = e.BuyResale(ctx, "carol", 1)
	require.NoError(t, err)
	_, err = e.DistributeDividend(ctx, "alice", 77)
	require.NoError(t, err)

	maintained := e.index.Snapshot()
	derived, err := index.Derive(ctx, e.store)
	require.NoError(t, err)

	require.Equal(t, derived.SortedListings(), maintained.SortedListings())
	require.Equal(t, derived.SortedResales(), maintained.SortedResales())
	require.Equal(t, len(derived.Holdings), len(maintained.Holdings))
	for holder := range derived.Holdings {
		require.Equal(t, derived.HoldingsOf(holder), maintained.HoldingsOf(holder))
	}
}
