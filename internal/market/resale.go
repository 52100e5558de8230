package market

import (
	"context"

	"github.com/google/uuid"

	"github.com/xingyu42/farm-game-sub003/internal/index"
	"github.com/xingyu42/farm-game-sub003/internal/store"
)

// ResaleResult reports a successful resale listing.
type ResaleResult struct {
	OwnerID  string
	LandID   int
	ResaleID string
	Price    int64
}

// ListResale offers the idx-th entry of the holder's holdings view
// (1-based, owner-then-land order) for resale. Price and dividend rate
// are inherited from the original sale and cannot be set.
func (e *Engine) ListResale(ctx context.Context, holderID string, idx int) (res *ResaleResult, err error) {
	defer func() { recordOutcome("list_resale", err) }()

	entry, err := pick(e.Holdings(ctx, holderID), idx)
	if err != nil {
		return nil, err
	}

	err = e.locks.WithResourceSet(ctx, []string{entry.OwnerID, MarketResource}, func(ctx context.Context) error {
		owner, err := e.getPlayer(ctx, entry.OwnerID)
		if err != nil {
			return err
		}
		land := owner.Land(entry.LandID)
		if land == nil || land.Status() != store.StatusSold || land.Trade.Sold.HolderID != holderID {
			return ErrStaleView
		}
		sold := land.Trade.Sold
		if sold.Resale.Listed {
			return ErrStaleView
		}
		sold.Resale = store.Resale{
			Listed:   true,
			ID:       uuid.NewString(),
			ListTime: e.now(),
		}

		if err := e.store.Save(ctx, entry.OwnerID, owner); err != nil {
			return err
		}
		if err := e.index.Update(func(idx *index.Index) {
			idx.AddResale(index.ResaleEntry{
				ID:           sold.Resale.ID,
				OwnerID:      entry.OwnerID,
				LandID:       entry.LandID,
				HolderID:     holderID,
				Price:        sold.Price,
				DividendRate: sold.DividendRate,
				ListTime:     sold.Resale.ListTime,
			})
		}); err != nil {
			return err
		}
		res = &ResaleResult{
			OwnerID:  entry.OwnerID,
			LandID:   entry.LandID,
			ResaleID: sold.Resale.ID,
			Price:    sold.Price,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// CancelResale withdraws the idx-th entry of the holder's active resale
// view (1-based, time-then-id order).
func (e *Engine) CancelResale(ctx context.Context, holderID string, idx int) (err error) {
	defer func() { recordOutcome("cancel_resale", err) }()

	entry, err := pick(holderResales(e.index.Snapshot(), holderID), idx)
	if err != nil {
		return err
	}

	return e.locks.WithResourceSet(ctx, []string{entry.OwnerID, MarketResource}, func(ctx context.Context) error {
		owner, err := e.getPlayer(ctx, entry.OwnerID)
		if err != nil {
			return err
		}
		land := owner.Land(entry.LandID)
		if land == nil || land.Status() != store.StatusSold || land.Trade.Sold.HolderID != holderID {
			return ErrStaleView
		}
		sold := land.Trade.Sold
		if !sold.Resale.Listed || sold.Resale.ID != entry.ID {
			return ErrStaleView
		}
		sold.Resale = store.Resale{}

		if err := e.store.Save(ctx, entry.OwnerID, owner); err != nil {
			return err
		}
		return e.index.Update(func(idx *index.Index) {
			idx.RemoveResale(entry.ID)
		})
	})
}

// BuyResaleResult reports a successful second-hand purchase.
type BuyResaleResult struct {
	OwnerID  string
	LandID   int
	SellerID string
	Price    int64
	Fee      int64
}

// BuyResale purchases the idx-th entry of the global resale view
// (1-based). The transaction fee is destroyed: the buyer pays the full
// price, the seller nets price minus fee, and nobody is credited the
// difference.
func (e *Engine) BuyResale(ctx context.Context, buyerID string, idx int) (res *BuyResaleResult, err error) {
	defer func() { recordOutcome("buy_resale", err) }()

	entry, err := pick(e.Resales(ctx), idx)
	if err != nil {
		return nil, err
	}
	if entry.HolderID == buyerID {
		return nil, ErrSelfTrade
	}

	err = e.locks.WithResourceSet(ctx, []string{buyerID, entry.HolderID, entry.OwnerID, MarketResource}, func(ctx context.Context) error {
		players, err := e.loadParticipants(ctx, buyerID, entry.HolderID, entry.OwnerID)
		if err != nil {
			return err
		}
		buyer, seller, owner := players[buyerID], players[entry.HolderID], players[entry.OwnerID]

		land := owner.Land(entry.LandID)
		if land == nil || land.Status() != store.StatusSold {
			return ErrStaleView
		}
		sold := land.Trade.Sold
		if sold.HolderID != entry.HolderID || !sold.Resale.Listed ||
			sold.Resale.ID != entry.ID || sold.Price != entry.Price {
			return ErrStaleView
		}
		if buyer.Gold < sold.Price {
			return ErrInsufficientFunds
		}

		fee := sold.Price * int64(e.cfg.ResaleFeeRate) / 100
		buyer.Gold -= sold.Price
		seller.Gold += sold.Price - fee
		sold.HolderID = buyerID
		sold.Resale = store.Resale{}

		if err := e.saveParticipants(ctx, players, buyerID, entry.HolderID, entry.OwnerID); err != nil {
			return err
		}
		if err := e.index.Update(func(idx *index.Index) {
			idx.RemoveResale(entry.ID)
			idx.RemoveHolding(entry.HolderID, index.HoldingEntry{OwnerID: entry.OwnerID, LandID: entry.LandID})
			idx.AddHolding(buyerID, index.HoldingEntry{OwnerID: entry.OwnerID, LandID: entry.LandID})
		}); err != nil {
			return err
		}
		res = &BuyResaleResult{
			OwnerID:  entry.OwnerID,
			LandID:   entry.LandID,
			SellerID: entry.HolderID,
			Price:    sold.Price,
			Fee:      fee,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
