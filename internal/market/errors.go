package market

import (
	"errors"

	"github.com/xingyu42/farm-game-sub003/internal/lock"
)

var (
	// ErrPlayerNotFound is returned when an identity does not resolve to
	// a stored player.
	ErrPlayerNotFound = errors.New("market: player not found")
	// ErrInvalidPrice rejects non-positive listing prices.
	ErrInvalidPrice = errors.New("market: price must be a positive integer")
	// ErrInvalidAmount rejects non-positive dividend sale amounts.
	ErrInvalidAmount = errors.New("market: amount must be a positive integer")
	// ErrInvalidIndex rejects a 1-based view index outside the view.
	ErrInvalidIndex = errors.New("market: index out of range")
	// ErrNoOwnedLand is returned when a player has no land left to list.
	ErrNoOwnedLand = errors.New("market: no owned land available")
	// ErrStaleView is returned when the underlying record changed since
	// the caller's view was taken. The caller must refresh and retry.
	ErrStaleView = errors.New("market: view is stale, refresh and retry")
	// ErrInsufficientFunds is returned when a payer cannot cover the
	// amount. Nothing has been mutated.
	ErrInsufficientFunds = errors.New("market: insufficient funds")
	// ErrSelfTrade rejects buying one's own listing or resale.
	ErrSelfTrade = errors.New("market: cannot buy own listing")
	// ErrPayeeVanished is an invariant violation: a payee present at
	// snapshot time disappeared while its lease was held. Players are
	// never deleted, so this is fatal for the call.
	ErrPayeeVanished = errors.New("market: payee vanished while locked")

	// errHoldersChanged aborts one dividend attempt when the holder set
	// read under lock differs from the snapshot that sized the lock
	// request. The whole computation is retried from scratch rather than
	// expanding the held set, which would break the global lock order.
	errHoldersChanged = errors.New("market: holder set changed")
)

// ErrBusy is re-exported so callers can match contention outcomes
// without importing the lock package.
var ErrBusy = lock.ErrBusy
