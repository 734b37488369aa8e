package orchestrate

import (
	"context"
	"sync"
	"time"

	"github.com/bankatlas/bankatlas/pkg/sources"
)

// sourceGate enforces a minimum delay between consecutive hits to the
// same source, across all workers. Each caller reserves the next free
// slot under the lock, then sleeps outside it.
type sourceGate struct {
	mu    sync.Mutex
	delay time.Duration
	next  map[sources.Type]time.Time
}

func newSourceGate(delay time.Duration) *sourceGate {
	return &sourceGate{
		delay: delay,
		next:  make(map[sources.Type]time.Time),
	}
}

// wait blocks until the caller may hit the source, or the context ends.
func (g *sourceGate) wait(ctx context.Context, src sources.Type) error {
	if g.delay <= 0 {
		return ctx.Err()
	}

	g.mu.Lock()
	now := time.Now()
	slot := g.next[src]
	if slot.Before(now) {
		slot = now
	}
	g.next[src] = slot.Add(g.delay)
	g.mu.Unlock()

	if d := time.Until(slot); d > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
		}
	}
	return ctx.Err()
}
