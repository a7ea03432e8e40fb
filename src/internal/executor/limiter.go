package executor

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Limiter bounds concurrent calls per backend. Each key gets its own
// semaphore, sized on first use.
type Limiter struct {
	mu   sync.Mutex
	sems map[string]*semaphore.Weighted
}

func NewLimiter() *Limiter {
	return &Limiter{sems: make(map[string]*semaphore.Weighted)}
}

// Acquire waits for a slot on key. The returned func releases it.
func (l *Limiter) Acquire(ctx context.Context, key string, size int) (func(), error) {
	if size <= 0 {
		size = 1
	}

	l.mu.Lock()
	sem, ok := l.sems[key]
	if !ok {
		sem = semaphore.NewWeighted(int64(size))
		l.sems[key] = sem
	}
	l.mu.Unlock()

	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { sem.Release(1) }, nil
}
