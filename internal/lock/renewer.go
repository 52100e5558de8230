package lock

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/xingyu42/farm-game-sub003/internal/metrics"
)

// renewer keeps one held lease alive. It is owned by the acquiring call
// and joined deterministically on release; no watchdog outlives its
// lease.
type renewer struct {
	stopCh chan struct{}
	done   chan struct{}
}

func (m *Manager) startRenewer(lease *Lease) *renewer {
	r := &renewer{
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go func() {
		defer close(r.done)
		for {
			select {
			case <-time.After(m.renewInterval()):
				ok, err := m.locker.Renew(context.Background(), lease, m.cfg.TTL)
				if ok && err == nil {
					continue
				}
				// The holder may legitimately have lost the lease to
				// expiry; revalidation downstream is the correctness
				// backstop, so this is logged and not escalated.
				metrics.RenewFailureCounter.Inc()
				m.logger.Warn("lease renewal failed",
					zap.String("resource", lease.Key),
					zap.Error(err))
				return
			case <-r.stopCh:
				return
			}
		}
	}()
	return r
}

// renewInterval is about half the TTL, jittered so many leases acquired
// together do not renew in lockstep.
func (m *Manager) renewInterval() time.Duration {
	half := m.cfg.TTL / 2
	if m.cfg.Jitter <= 0 {
		return half
	}
	return half + time.Duration(rand.Int63n(int64(m.cfg.Jitter)))
}

// stop cancels the watchdog and waits for it to exit.
func (r *renewer) stop() {
	close(r.stopCh)
	<-r.done
}
