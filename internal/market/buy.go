package market

import (
	"context"

	"github.com/xingyu42/farm-game-sub003/internal/index"
	"github.com/xingyu42/farm-game-sub003/internal/store"
)

// BuyResult reports a successful first-hand purchase.
type BuyResult struct {
	OwnerID string
	LandID  int
	Price   int64
}

// Buy purchases the idx-th entry of the global listing view (1-based).
// The buyer is debited and the owner credited only after every check has
// passed under lock.
func (e *Engine) Buy(ctx context.Context, buyerID string, idx int) (res *BuyResult, err error) {
	defer func() { recordOutcome("buy", err) }()

	entry, err := pick(e.Listings(ctx), idx)
	if err != nil {
		return nil, err
	}
	if entry.OwnerID == buyerID {
		return nil, ErrSelfTrade
	}

	err = e.locks.WithResourceSet(ctx, []string{buyerID, entry.OwnerID, MarketResource}, func(ctx context.Context) error {
		players, err := e.loadParticipants(ctx, buyerID, entry.OwnerID)
		if err != nil {
			return err
		}
		buyer, owner := players[buyerID], players[entry.OwnerID]

		land := owner.Land(entry.LandID)
		if land == nil || land.Status() != store.StatusListed {
			return ErrStaleView
		}
		listing := land.Trade.Listing
		if listing.ID != entry.ID || listing.Price != entry.Price {
			return ErrStaleView
		}
		if buyer.Gold < listing.Price {
			return ErrInsufficientFunds
		}

		buyer.Gold -= listing.Price
		owner.Gold += listing.Price
		land.Trade.Status = store.StatusSold
		land.Trade.Sold = &store.Sold{
			HolderID:     buyerID,
			Price:        listing.Price,
			DividendRate: listing.DividendRate,
			SoldTime:     e.now(),
		}
		land.Trade.Listing = nil

		if err := e.saveParticipants(ctx, players, buyerID, entry.OwnerID); err != nil {
			return err
		}
		if err := e.index.Update(func(idx *index.Index) {
			idx.RemoveListing(entry.ID)
			idx.AddHolding(buyerID, index.HoldingEntry{OwnerID: entry.OwnerID, LandID: entry.LandID})
		}); err != nil {
			return err
		}
		res = &BuyResult{OwnerID: entry.OwnerID, LandID: entry.LandID, Price: listing.Price}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// RedeemResult reports a successful buy-back.
type RedeemResult struct {
	LandID   int
	HolderID string
	Price    int64
}

// Redeem buys back the idx-th entry of the owner's sold-land view
// (1-based, sale-time-then-id order) at the original recorded price, not
// the market price.
func (e *Engine) Redeem(ctx context.Context, ownerID string, idx int) (res *RedeemResult, err error) {
	defer func() { recordOutcome("redeem", err) }()

	snap, err := e.getPlayer(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	target, err := pick(soldLands(snap), idx)
	if err != nil {
		return nil, err
	}
	landID, holderID := target.ID, target.Trade.Sold.HolderID

	err = e.locks.WithResourceSet(ctx, []string{ownerID, holderID, MarketResource}, func(ctx context.Context) error {
		players, err := e.loadParticipants(ctx, ownerID, holderID)
		if err != nil {
			return err
		}
		owner, holder := players[ownerID], players[holderID]

		land := owner.Land(landID)
		if land == nil || land.Status() != store.StatusSold || land.Trade.Sold.HolderID != holderID {
			return ErrStaleView
		}
		sold := land.Trade.Sold
		if owner.Gold < sold.Price {
			return ErrInsufficientFunds
		}

		owner.Gold -= sold.Price
		holder.Gold += sold.Price
		resaleID, resaleListed := sold.Resale.ID, sold.Resale.Listed
		land.Trade.Status = store.StatusOwned
		land.Trade.Sold = nil

		if err := e.saveParticipants(ctx, players, ownerID, holderID); err != nil {
			return err
		}
		if err := e.index.Update(func(idx *index.Index) {
			idx.RemoveHolding(holderID, index.HoldingEntry{OwnerID: ownerID, LandID: landID})
			if resaleListed {
				idx.RemoveResale(resaleID)
			}
		}); err != nil {
			return err
		}
		res = &RedeemResult{LandID: landID, HolderID: holderID, Price: sold.Price}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
