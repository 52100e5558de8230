// Package index maintains the derived market index: active listings,
// active resales and the holdings inverse map. The index is a
// convenience view over per-player trade records; player entities stay
// the ground truth and the whole index can be rebuilt from them.
package index

import (
	"sort"
	"time"
)

// ListingEntry is one active first-hand listing.
type ListingEntry struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"ownerId"`
	LandID       int       `json:"landId"`
	Price        int64     `json:"price"`
	DividendRate int       `json:"dividendRate"`
	ListTime     time.Time `json:"listTime"`
}

// ResaleEntry is one active resale offer by a current rights holder.
type ResaleEntry struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"ownerId"`
	LandID       int       `json:"landId"`
	HolderID     string    `json:"holderId"`
	Price        int64     `json:"price"`
	DividendRate int       `json:"dividendRate"`
	ListTime     time.Time `json:"listTime"`
}

// HoldingEntry identifies one (owner, land) pair whose income rights a
// holder owns.
type HoldingEntry struct {
	OwnerID string `json:"ownerId"`
	LandID  int    `json:"landId"`
}

// Index is the full derived view. Listing and resale ids are unique; at
// most one active listing and one active resale exist per (owner, land);
// Holdings is exactly the inverse of every sold trade record.
type Index struct {
	Listings []ListingEntry            `json:"listings"`
	Resales  []ResaleEntry             `json:"resaleListings"`
	Holdings map[string][]HoldingEntry `json:"holdingsIndex"`
}

// New returns an empty index.
func New() *Index {
	return &Index{Holdings: make(map[string][]HoldingEntry)}
}

// Clone returns a deep copy.
func (x *Index) Clone() *Index {
	cp := New()
	cp.Listings = append(cp.Listings, x.Listings...)
	cp.Resales = append(cp.Resales, x.Resales...)
	for holder, hs := range x.Holdings {
		cp.Holdings[holder] = append([]HoldingEntry(nil), hs...)
	}
	return cp
}

// AddListing records a new active listing.
func (x *Index) AddListing(e ListingEntry) {
	x.Listings = append(x.Listings, e)
}

// RemoveListing drops the listing with the given id. It returns false if
// no such listing is active.
func (x *Index) RemoveListing(id string) bool {
	for i, e := range x.Listings {
		if e.ID == id {
			x.Listings = append(x.Listings[:i], x.Listings[i+1:]...)
			return true
		}
	}
	return false
}

// AddResale records a new active resale offer.
func (x *Index) AddResale(e ResaleEntry) {
	x.Resales = append(x.Resales, e)
}

// RemoveResale drops the resale with the given id. It returns false if
// no such resale is active.
func (x *Index) RemoveResale(id string) bool {
	for i, e := range x.Resales {
		if e.ID == id {
			x.Resales = append(x.Resales[:i], x.Resales[i+1:]...)
			return true
		}
	}
	return false
}

// AddHolding records that holder now owns the rights of (owner, land).
func (x *Index) AddHolding(holderID string, e HoldingEntry) {
	x.Holdings[holderID] = append(x.Holdings[holderID], e)
}

// RemoveHolding drops a holding entry, deleting the holder's bucket when
// it empties. It returns false if the entry was not present.
func (x *Index) RemoveHolding(holderID string, e HoldingEntry) bool {
	hs := x.Holdings[holderID]
	for i, h := range hs {
		if h == e {
			hs = append(hs[:i], hs[i+1:]...)
			if len(hs) == 0 {
				delete(x.Holdings, holderID)
			} else {
				x.Holdings[holderID] = hs
			}
			return true
		}
	}
	return false
}

// SortedListings returns listings ordered by list time, then id.
func (x *Index) SortedListings() []ListingEntry {
	out := append([]ListingEntry(nil), x.Listings...)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ListTime.Equal(out[j].ListTime) {
			return out[i].ListTime.Before(out[j].ListTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// SortedResales returns resales ordered by list time, then id.
func (x *Index) SortedResales() []ResaleEntry {
	out := append([]ResaleEntry(nil), x.Resales...)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ListTime.Equal(out[j].ListTime) {
			return out[i].ListTime.Before(out[j].ListTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// HoldingsOf returns the holder's entries ordered by owner, then land.
func (x *Index) HoldingsOf(holderID string) []HoldingEntry {
	out := append([]HoldingEntry(nil), x.Holdings[holderID]...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].OwnerID != out[j].OwnerID {
			return out[i].OwnerID < out[j].OwnerID
		}
		return out[i].LandID < out[j].LandID
	})
	return out
}
