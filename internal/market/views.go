package market

import (
	"context"
	"sort"

	"github.com/xingyu42/farm-game-sub003/internal/index"
	"github.com/xingyu42/farm-game-sub003/internal/store"
)

// Views are the sorted, 1-indexed slices shown to callers. A caller's
// index is only meaningful against the exact view it was displayed from;
// every mutating operation revalidates the selected entry by identity
// after locking and reports a stale view otherwise.

// Listings returns the global listing view, ordered by list time then id.
func (e *Engine) Listings(ctx context.Context) []index.ListingEntry {
	return e.index.Snapshot().SortedListings()
}

// Resales returns the global resale view, ordered by list time then id.
func (e *Engine) Resales(ctx context.Context) []index.ResaleEntry {
	return e.index.Snapshot().SortedResales()
}

// Holdings returns the holder's view of rights they currently own.
func (e *Engine) Holdings(ctx context.Context, holderID string) []index.HoldingEntry {
	return e.index.Snapshot().HoldingsOf(holderID)
}

// personalListings is the owner's view of their own active listings,
// ordered by list time then listing id.
func personalListings(p *store.Player) []*store.Land {
	var out []*store.Land
	for _, l := range p.Lands {
		if l.Status() == store.StatusListed {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		li, lj := out[i].Trade.Listing, out[j].Trade.Listing
		if !li.ListTime.Equal(lj.ListTime) {
			return li.ListTime.Before(lj.ListTime)
		}
		return li.ID < lj.ID
	})
	return out
}

// soldLands is the owner's view of lands whose rights are held by
// others, ordered by sale time then land id.
func soldLands(p *store.Player) []*store.Land {
	var out []*store.Land
	for _, l := range p.Lands {
		if l.Status() == store.StatusSold {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		si, sj := out[i].Trade.Sold, out[j].Trade.Sold
		if !si.SoldTime.Equal(sj.SoldTime) {
			return si.SoldTime.Before(sj.SoldTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// holderResales is the holder's view of their own active resale offers,
// ordered by list time then resale id.
func holderResales(idx *index.Index, holderID string) []index.ResaleEntry {
	var out []index.ResaleEntry
	for _, e := range idx.SortedResales() {
		if e.HolderID == holderID {
			out = append(out, e)
		}
	}
	return out
}

// pick resolves a 1-based view index.
func pick[T any](view []T, idx int) (T, error) {
	var zero T
	if idx < 1 || idx > len(view) {
		return zero, ErrInvalidIndex
	}
	return view[idx-1], nil
}
