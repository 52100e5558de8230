// Package market implements the land-income-rights marketplace on top of
// the lock manager. Every mutating operation follows the same shape: an
// unlocked snapshot read discovers the participants, their leases are
// acquired in one global order, authoritative state is re-read and
// checked against the snapshot by identity, and only then are the entity
// and the derived index mutated and persisted, entity first and index
// second, so a crash between the two leaves the entity as ground truth.
package market

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/xingyu42/farm-game-sub003/internal/config"
	"github.com/xingyu42/farm-game-sub003/internal/index"
	"github.com/xingyu42/farm-game-sub003/internal/lock"
	"github.com/xingyu42/farm-game-sub003/internal/metrics"
	"github.com/xingyu42/farm-game-sub003/internal/store"
)

// MarketResource is the fixed shared resource locked alongside the
// participants of every listing-related operation.
const MarketResource = "market"

// Engine executes marketplace operations.
type Engine struct {
	store  store.Store
	locks  *lock.Manager
	index  *index.FileStore
	cfg    config.MarketConfig
	logger *zap.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// NewEngine returns an Engine. A nil logger is replaced with a no-op one.
func NewEngine(st store.Store, locks *lock.Manager, idx *index.FileStore, cfg config.MarketConfig, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:  st,
		locks:  locks,
		index:  idx,
		cfg:    cfg,
		logger: logger.With(zap.String("component", "market")),
		now:    time.Now,
	}
}

// Index exposes the engine's index store, for wiring and inspection.
func (e *Engine) Index() *index.FileStore { return e.index }

// getPlayer loads one player, mapping absence to ErrPlayerNotFound.
func (e *Engine) getPlayer(ctx context.Context, id string) (*store.Player, error) {
	p, ok, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPlayerNotFound
	}
	return p, nil
}

// loadParticipants loads every distinct id into one map so operations
// whose participants coincide (for example an owner buying back a resale
// of their own land) mutate a single copy.
func (e *Engine) loadParticipants(ctx context.Context, ids ...string) (map[string]*store.Player, error) {
	out := make(map[string]*store.Player, len(ids))
	for _, id := range ids {
		if _, ok := out[id]; ok {
			continue
		}
		p, err := e.getPlayer(ctx, id)
		if err != nil {
			return nil, err
		}
		out[id] = p
	}
	return out, nil
}

// saveParticipants persists players in the given id order, skipping
// duplicates. Debit-side entities are ordered first by callers so a
// crash mid-sequence never creates money.
func (e *Engine) saveParticipants(ctx context.Context, players map[string]*store.Player, order ...string) error {
	saved := make(map[string]struct{}, len(order))
	for _, id := range order {
		if _, ok := saved[id]; ok {
			continue
		}
		saved[id] = struct{}{}
		if err := e.store.Save(ctx, id, players[id]); err != nil {
			return err
		}
	}
	return nil
}

// recordOutcome feeds the per-operation counter from the error taxonomy.
func recordOutcome(op string, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrBusy):
		outcome = "busy"
	case errors.Is(err, ErrStaleView):
		outcome = "stale"
	case errors.Is(err, ErrInsufficientFunds):
		outcome = "insolvent"
	case errors.Is(err, ErrInvalidPrice),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidIndex),
		errors.Is(err, ErrSelfTrade),
		errors.Is(err, ErrNoOwnedLand),
		errors.Is(err, ErrPlayerNotFound):
		outcome = "invalid"
	default:
		outcome = "error"
	}
	metrics.OperationCounter.WithLabelValues(op, outcome).Inc()
}

// clampRate forces a dividend rate into the configured inclusive bounds.
func (e *Engine) clampRate(rate int) int {
	if rate < e.cfg.MinDividendRate {
		return e.cfg.MinDividendRate
	}
	if rate > e.cfg.MaxDividendRate {
		return e.cfg.MaxDividendRate
	}
	return rate
}
