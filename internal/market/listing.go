package market

import (
	"context"

	"github.com/google/uuid"

	"github.com/xingyu42/farm-game-sub003/internal/index"
	"github.com/xingyu42/farm-game-sub003/internal/store"
)

// ListResult reports a successful listing.
type ListResult struct {
	LandID       int
	ListingID    string
	Price        int64
	DividendRate int
}

// List puts the owner's lowest-id owned land on the market. The dividend
// rate is clamped to the configured inclusive bounds.
func (e *Engine) List(ctx context.Context, ownerID string, price int64, rate int) (res *ListResult, err error) {
	defer func() { recordOutcome("list", err) }()

	if price <= 0 {
		return nil, ErrInvalidPrice
	}
	rate = e.clampRate(rate)

	// Snapshot: choose the land before locking; the locked re-read
	// checks the choice is still valid.
	snap, err := e.getPlayer(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	landID, ok := lowestOwnedLand(snap)
	if !ok {
		return nil, ErrNoOwnedLand
	}

	err = e.locks.WithResourceSet(ctx, []string{ownerID, MarketResource}, func(ctx context.Context) error {
		owner, err := e.getPlayer(ctx, ownerID)
		if err != nil {
			return err
		}
		land := owner.Land(landID)
		if land == nil || land.Status() != store.StatusOwned {
			return ErrStaleView
		}
		listing := &store.Listing{
			ID:           uuid.NewString(),
			Price:        price,
			DividendRate: rate,
			ListTime:     e.now(),
		}
		trade := land.EnsureTrade()
		trade.Status = store.StatusListed
		trade.Listing = listing
		trade.Sold = nil

		if err := e.store.Save(ctx, ownerID, owner); err != nil {
			return err
		}
		if err := e.index.Update(func(idx *index.Index) {
			idx.AddListing(index.ListingEntry{
				ID:           listing.ID,
				OwnerID:      ownerID,
				LandID:       land.ID,
				Price:        listing.Price,
				DividendRate: listing.DividendRate,
				ListTime:     listing.ListTime,
			})
		}); err != nil {
			return err
		}
		res = &ListResult{
			LandID:       land.ID,
			ListingID:    listing.ID,
			Price:        listing.Price,
			DividendRate: listing.DividendRate,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// CancelListing withdraws the idx-th entry of the owner's personal
// listing view (1-based, time-then-id order).
func (e *Engine) CancelListing(ctx context.Context, ownerID string, idx int) (err error) {
	defer func() { recordOutcome("cancel_listing", err) }()

	snap, err := e.getPlayer(ctx, ownerID)
	if err != nil {
		return err
	}
	target, err := pick(personalListings(snap), idx)
	if err != nil {
		return err
	}
	landID, listingID := target.ID, target.Trade.Listing.ID

	return e.locks.WithResourceSet(ctx, []string{ownerID, MarketResource}, func(ctx context.Context) error {
		owner, err := e.getPlayer(ctx, ownerID)
		if err != nil {
			return err
		}
		land := owner.Land(landID)
		if land == nil || land.Status() != store.StatusListed || land.Trade.Listing.ID != listingID {
			return ErrStaleView
		}
		land.Trade.Status = store.StatusOwned
		land.Trade.Listing = nil

		if err := e.store.Save(ctx, ownerID, owner); err != nil {
			return err
		}
		return e.index.Update(func(idx *index.Index) {
			idx.RemoveListing(listingID)
		})
	})
}

// lowestOwnedLand returns the id of the lowest-id land currently owned.
func lowestOwnedLand(p *store.Player) (int, bool) {
	best, found := 0, false
	for _, l := range p.Lands {
		if l.Status() != store.StatusOwned {
			continue
		}
		if !found || l.ID < best {
			best, found = l.ID, true
		}
	}
	return best, found
}
