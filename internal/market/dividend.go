package market

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/xingyu42/farm-game-sub003/internal/store"
)

// DividendResult reports a completed distribution.
type DividendResult struct {
	BasePerLand int64
	Total       int64
	PerHolder   map[string]int64
}

// DistributeDividend shares a sale amount with the holders of the
// owner's sold lands. Per land: floor(floor(amount/landCount)·rate/100),
// summed per holder; floor remainders stay with the owner. The owner is
// debited only after its balance is confirmed to cover the full payout.
//
// The holder set determines the lock request, so it is discovered from
// an unlocked snapshot. If the set read under lock differs, the whole
// computation is retried from scratch; widening the held set instead
// would break the global acquisition order.
func (e *Engine) DistributeDividend(ctx context.Context, ownerID string, saleAmount int64) (res *DividendResult, err error) {
	defer func() { recordOutcome("distribute_dividend", err) }()

	if saleAmount <= 0 {
		return nil, ErrInvalidAmount
	}

	attempts := e.cfg.DividendAttempts
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		res, err = e.distributeOnce(ctx, ownerID, saleAmount)
		if err != errHoldersChanged {
			return res, err
		}
		e.logger.Debug("holder set changed, retrying distribution",
			zap.String("owner", ownerID),
			zap.Int("attempt", attempt))
	}
	return nil, ErrStaleView
}

func (e *Engine) distributeOnce(ctx context.Context, ownerID string, saleAmount int64) (*DividendResult, error) {
	snap, err := e.getPlayer(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	snapHolders := holderSet(snap)

	resources := append([]string{ownerID}, snapHolders...)
	var res *DividendResult
	err = e.locks.WithResourceSet(ctx, resources, func(ctx context.Context) error {
		owner, err := e.getPlayer(ctx, ownerID)
		if err != nil {
			return err
		}
		if !equalStrings(holderSet(owner), snapHolders) {
			return errHoldersChanged
		}
		if len(owner.Lands) == 0 {
			res = &DividendResult{PerHolder: map[string]int64{}}
			return nil
		}

		basePerLand := saleAmount / int64(len(owner.Lands))
		perHolder := make(map[string]int64)
		perLand := make(map[int]int64)
		var total int64
		for _, land := range owner.Lands {
			if land.Status() != store.StatusSold {
				continue
			}
			sold := land.Trade.Sold
			if sold.DividendRate <= 0 {
				continue
			}
			dividend := basePerLand * int64(sold.DividendRate) / 100
			if dividend <= 0 {
				continue
			}
			perHolder[sold.HolderID] += dividend
			perLand[land.ID] = dividend
			total += dividend
		}
		if total == 0 {
			res = &DividendResult{BasePerLand: basePerLand, PerHolder: perHolder}
			return nil
		}
		if owner.Gold < total {
			return ErrInsufficientFunds
		}

		// Every payee is re-read before any mutation. Players are never
		// deleted, so a missing payee here is an invariant violation and
		// fatal for the call; the leases are still released by the lock
		// primitive.
		payees := make(map[string]*store.Player, len(perHolder))
		for holderID := range perHolder {
			if holderID == ownerID {
				// An owner can hold rights on its own land after a
				// resale buy-back; credit the same copy we debit.
				payees[holderID] = owner
				continue
			}
			p, ok, err := e.store.Get(ctx, holderID)
			if err != nil {
				return err
			}
			if !ok {
				return ErrPayeeVanished
			}
			payees[holderID] = p
		}

		owner.Gold -= total
		for _, land := range owner.Lands {
			if d, ok := perLand[land.ID]; ok {
				land.Trade.Sold.TotalDividend += d
			}
		}
		for holderID, amount := range perHolder {
			payees[holderID].Gold += amount
		}

		// Payees persist first, owner last: a crash mid-sequence leaves
		// some holders paid and the owner not yet debited, which the
		// owner-side record makes detectable and repairable.
		for _, holderID := range sortedKeys(perHolder) {
			if err := e.store.Save(ctx, holderID, payees[holderID]); err != nil {
				return err
			}
		}
		if err := e.store.Save(ctx, ownerID, owner); err != nil {
			return err
		}
		res = &DividendResult{BasePerLand: basePerLand, Total: total, PerHolder: perHolder}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// holderSet returns the distinct holders of the player's sold lands, in
// sorted order.
func holderSet(p *store.Player) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, land := range p.Lands {
		if land.Status() != store.StatusSold {
			continue
		}
		id := land.Trade.Sold.HolderID
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sortedKeys(m map[string]int64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
