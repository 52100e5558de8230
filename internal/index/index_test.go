package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xingyu42/farm-game-sub003/internal/store"
)

func TestListingMutators(t *testing.T) {
	x := New()
	t1 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)
	x.AddListing(ListingEntry{ID: "l2", OwnerID: "o", LandID: 2, Price: 50, ListTime: t2})
	x.AddListing(ListingEntry{ID: "l1", OwnerID: "o", LandID: 1, Price: 100, ListTime: t1})

	sorted := x.SortedListings()
	if len(sorted) != 2 || sorted[0].ID != "l1" || sorted[1].ID != "l2" {
		t.Fatalf("expected time order [l1 l2], got %v", sorted)
	}
	if !x.RemoveListing("l1") {
		t.Fatal("remove l1")
	}
	if x.RemoveListing("l1") {
		t.Fatal("second remove must report absence")
	}
	if len(x.Listings) != 1 {
		t.Fatalf("expected one listing left, got %d", len(x.Listings))
	}
}

func TestHoldingMutators(t *testing.T) {
	x := New()
	e1 := HoldingEntry{OwnerID: "o", LandID: 1}
	e2 := HoldingEntry{OwnerID: "o", LandID: 2}
	x.AddHolding("h", e2)
	x.AddHolding("h", e1)

	hs := x.HoldingsOf("h")
	if len(hs) != 2 || hs[0] != e1 || hs[1] != e2 {
		t.Fatalf("expected sorted holdings, got %v", hs)
	}
	if !x.RemoveHolding("h", e1) || !x.RemoveHolding("h", e2) {
		t.Fatal("remove holdings")
	}
	if _, ok := x.Holdings["h"]; ok {
		t.Fatal("empty bucket must be deleted")
	}
	if x.RemoveHolding("h", e1) {
		t.Fatal("remove from empty bucket must report absence")
	}
}

func TestCloneIsDeep(t *testing.T) {
	x := New()
	x.AddListing(ListingEntry{ID: "l1"})
	x.AddHolding("h", HoldingEntry{OwnerID: "o", LandID: 1})

	cp := x.Clone()
	cp.RemoveListing("l1")
	cp.AddHolding("h", HoldingEntry{OwnerID: "o", LandID: 2})

	if len(x.Listings) != 1 {
		t.Fatal("clone mutation leaked into listings")
	}
	if len(x.Holdings["h"]) != 1 {
		t.Fatal("clone mutation leaked into holdings")
	}
}

func seedStore(t *testing.T) *store.InMemoryStore {
	t.Helper()
	st := store.NewInMemoryStore()
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	owner := &store.Player{ID: "owner", Gold: 100, Lands: []*store.Land{
		{ID: 1, Trade: &store.Trade{Status: store.StatusListed, Listing: &store.Listing{
			ID: "l1", Price: 100, DividendRate: 30, ListTime: now,
		}}},
		{ID: 2, Trade: &store.Trade{Status: store.StatusSold, Sold: &store.Sold{
			HolderID: "holder", Price: 80, DividendRate: 20, SoldTime: now,
			Resale: store.Resale{Listed: true, ID: "r1", ListTime: now.Add(time.Minute)},
		}}},
		{ID: 3},
	}}
	holder := &store.Player{ID: "holder", Gold: 50}
	if err := st.Save(ctx, owner.ID, owner); err != nil {
		t.Fatalf("save owner: %v", err)
	}
	if err := st.Save(ctx, holder.ID, holder); err != nil {
		t.Fatalf("save holder: %v", err)
	}
	return st
}

func TestDerive(t *testing.T) {
	st := seedStore(t)
	idx, err := Derive(context.Background(), st)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if len(idx.Listings) != 1 || idx.Listings[0].ID != "l1" || idx.Listings[0].LandID != 1 {
		t.Fatalf("unexpected listings: %v", idx.Listings)
	}
	if len(idx.Resales) != 1 || idx.Resales[0].ID != "r1" || idx.Resales[0].Price != 80 {
		t.Fatalf("unexpected resales: %v", idx.Resales)
	}
	hs := idx.HoldingsOf("holder")
	if len(hs) != 1 || hs[0].OwnerID != "owner" || hs[0].LandID != 2 {
		t.Fatalf("unexpected holdings: %v", hs)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	st := seedStore(t)
	path := filepath.Join(t.TempDir(), "index.json")
	ctx := context.Background()

	fs := NewFileStore(path, nil)
	if err := fs.Load(ctx, st); err != nil {
		t.Fatalf("load (rebuild): %v", err)
	}
	if err := fs.Update(func(idx *Index) {
		idx.RemoveListing("l1")
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	// A fresh store reading the persisted blob sees the update.
	fs2 := NewFileStore(path, nil)
	if err := fs2.Load(ctx, st); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := fs2.Snapshot(); len(got.Listings) != 0 || len(got.Resales) != 1 {
		t.Fatalf("unexpected reloaded index: %+v", got)
	}
}

func TestFileStoreCorruptBlobRebuilds(t *testing.T) {
	st := seedStore(t)
	path := filepath.Join(t.TempDir(), "index.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt blob: %v", err)
	}

	fs := NewFileStore(path, nil)
	if err := fs.Load(context.Background(), st); err != nil {
		t.Fatalf("load: %v", err)
	}
	got := fs.Snapshot()
	if len(got.Listings) != 1 || len(got.Resales) != 1 {
		t.Fatalf("rebuild did not recover index: %+v", got)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	st := seedStore(t)
	path := filepath.Join(t.TempDir(), "index.json")
	fs := NewFileStore(path, nil)
	if err := fs.Load(context.Background(), st); err != nil {
		t.Fatalf("load: %v", err)
	}

	snap := fs.Snapshot()
	snap.RemoveListing("l1")
	if got := fs.Snapshot(); len(got.Listings) != 1 {
		t.Fatal("snapshot mutation leaked into the store")
	}
}
