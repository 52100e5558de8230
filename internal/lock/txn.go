package lock

import (
	"context"
	"sort"
	"sync"
	"time"

	uuid "github.com/hashicorp/go-uuid"
)

// Txn tracks which resources the current request's call chain already
// holds. It is an explicit value threaded through context.Context, never
// global state, so nested protected sections can detect reentrancy.
type Txn struct {
	SessionID string
	StartedAt time.Time

	mu   sync.Mutex
	held map[string]struct{}
}

type txnKey struct{}

// FromContext returns the transaction attached to ctx, if any.
func FromContext(ctx context.Context) (*Txn, bool) {
	txn, ok := ctx.Value(txnKey{}).(*Txn)
	return txn, ok
}

// ensureTxn returns the context's transaction, creating and attaching one
// when the call chain has none yet.
func ensureTxn(ctx context.Context) (context.Context, *Txn, error) {
	if txn, ok := FromContext(ctx); ok {
		return ctx, txn, nil
	}
	id, err := uuid.GenerateUUID()
	if err != nil {
		return ctx, nil, err
	}
	txn := &Txn{
		SessionID: id,
		StartedAt: time.Now(),
		held:      make(map[string]struct{}),
	}
	return context.WithValue(ctx, txnKey{}, txn), txn, nil
}

// Holds reports whether the transaction already holds the resource.
func (t *Txn) Holds(id string) bool {
	t.mu.Lock()
	_, ok := t.held[id]
	t.mu.Unlock()
	return ok
}

// Held returns the held resource ids in sorted order.
func (t *Txn) Held() []string {
	t.mu.Lock()
	ids := make([]string, 0, len(t.held))
	for id := range t.held {
		ids = append(ids, id)
	}
	t.mu.Unlock()
	sort.Strings(ids)
	return ids
}

func (t *Txn) mark(id string) {
	t.mu.Lock()
	t.held[id] = struct{}{}
	t.mu.Unlock()
}

func (t *Txn) unmark(id string) {
	t.mu.Lock()
	delete(t.held, id)
	t.mu.Unlock()
}
