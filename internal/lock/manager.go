package lock

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/xingyu42/farm-game-sub003/internal/metrics"
)

// ErrBusy is the transient outcome of an acquisition that exhausted its
// retry budget. Callers report it and let the user try again; it is never
// fatal.
var ErrBusy = errors.New("lock: resource busy")

// BusyError carries the resource that stayed contended. It unwraps to
// ErrBusy.
type BusyError struct {
	Resource string
	Attempts int
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("lock: resource %q busy after %d attempts", e.Resource, e.Attempts)
}

func (e *BusyError) Is(target error) bool { return target == ErrBusy }

// Config tunes acquisition retries and lease lifetime.
type Config struct {
	// TTL is the lease lifetime granted on acquisition and restored on
	// each renewal.
	TTL time.Duration
	// MaxRetries is the number of re-attempts after the first failed
	// acquisition try.
	MaxRetries int
	// BaseDelay is the first retry delay; it doubles per attempt up to
	// MaxDelay.
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// Jitter is the upper bound of the uniform random addition to every
	// retry delay and renewal interval.
	Jitter time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		TTL:        10 * time.Second,
		MaxRetries: 5,
		BaseDelay:  50 * time.Millisecond,
		MaxDelay:   800 * time.Millisecond,
		Jitter:     25 * time.Millisecond,
	}
}

// Manager coordinates protected sections over a lease substrate. It owns
// retrying, renewal watchdogs, reentrancy tracking and the global
// acquisition order for multi-resource sections.
type Manager struct {
	locker Locker
	cfg    Config
	logger *zap.Logger
}

// NewManager returns a Manager over the given substrate. A nil logger is
// replaced with a no-op one.
func NewManager(locker Locker, cfg Config, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig().TTL
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultConfig().BaseDelay
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}
	return &Manager{
		locker: locker,
		cfg:    cfg,
		logger: logger.With(zap.String("component", "lockmanager")),
	}
}

// acquire obtains a lease on key, retrying with exponential backoff and
// jitter. Exhausting the budget yields a BusyError, never a fatal one.
func (m *Manager) acquire(ctx context.Context, key string) (*Lease, error) {
	delay := m.cfg.BaseDelay
	for attempt := 0; ; attempt++ {
		lease, err := m.locker.Acquire(ctx, key, m.cfg.TTL)
		if err != nil {
			return nil, err
		}
		if lease != nil {
			metrics.LeaseAcquireCounter.Inc()
			metrics.ActiveLeaseGauge.Inc()
			return lease, nil
		}
		if attempt >= m.cfg.MaxRetries {
			metrics.LeaseBusyCounter.Inc()
			m.logger.Debug("lease busy, giving up",
				zap.String("resource", key),
				zap.Int("attempts", attempt+1))
			return nil, &BusyError{Resource: key, Attempts: attempt + 1}
		}
		wait := delay
		if m.cfg.Jitter > 0 {
			wait += time.Duration(rand.Int63n(int64(m.cfg.Jitter)))
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		delay *= 2
		if delay > m.cfg.MaxDelay {
			delay = m.cfg.MaxDelay
		}
	}
}

// release frees a lease after joining its renewal watchdog. It never
// fails the caller: a lease that already expired is simply gone.
func (m *Manager) release(lease *Lease, r *renewer) {
	r.stop()
	metrics.ActiveLeaseGauge.Dec()
	if _, err := m.locker.Release(context.Background(), lease); err != nil {
		m.logger.Warn("lease release failed",
			zap.String("resource", lease.Key),
			zap.Error(err))
	}
}

// WithResource runs fn while holding a lease on id. If the current call
// chain already holds id, fn runs directly without a new lease. The lease
// is released on every exit path, including panics in fn.
func (m *Manager) WithResource(ctx context.Context, id string, fn func(ctx context.Context) error) error {
	ctx, txn, err := ensureTxn(ctx)
	if err != nil {
		return err
	}
	if txn.Holds(id) {
		metrics.ReentrantCounter.Inc()
		return fn(ctx)
	}
	lease, err := m.acquire(ctx, id)
	if err != nil {
		return err
	}
	txn.mark(id)
	r := m.startRenewer(lease)
	defer func() {
		m.release(lease, r)
		txn.unmark(id)
	}()
	return fn(ctx)
}

// WithResourceSet runs fn while holding leases on every id. Ids are
// de-duplicated and acquired in one global lexicographic order so calls
// with overlapping sets can never form a cyclic wait. Ids the call chain
// already holds are skipped on both acquire and release. A failure
// partway through releases everything this call acquired before the
// error propagates.
func (m *Manager) WithResourceSet(ctx context.Context, ids []string, fn func(ctx context.Context) error) error {
	ctx, txn, err := ensureTxn(ctx)
	if err != nil {
		return err
	}
	order := sortedUnique(ids)

	type held struct {
		lease *Lease
		r     *renewer
	}
	var acquired []held
	defer func() {
		for i := len(acquired) - 1; i >= 0; i-- {
			m.release(acquired[i].lease, acquired[i].r)
			txn.unmark(acquired[i].lease.Key)
		}
	}()

	for _, id := range order {
		if txn.Holds(id) {
			metrics.ReentrantCounter.Inc()
			continue
		}
		lease, err := m.acquire(ctx, id)
		if err != nil {
			return err
		}
		txn.mark(id)
		acquired = append(acquired, held{lease: lease, r: m.startRenewer(lease)})
	}
	return fn(ctx)
}

// sortedUnique is the global total order every caller must use. Any two
// overlapping resource sets acquire their shared members in the same
// relative order.
func sortedUnique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
