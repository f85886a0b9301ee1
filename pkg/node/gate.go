package node

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
)

const (
	gateWeight = 1 << 30
)

// gate is a reader/writer lock built on a weighted semaphore. Readers take a
// single unit and writers take every unit. Waiters are served in order so a
// queued writer holds back readers that arrive after it.
type gate struct {
	sem     *semaphore.Weighted
	metrics *nodeMetrics
}

func newGate(m *nodeMetrics) *gate {
	return &gate{
		sem:     semaphore.NewWeighted(gateWeight),
		metrics: m,
	}
}

func (g *gate) acquire(ctx context.Context, n int64, mode string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()

	if err := g.sem.Acquire(ctx, n); err != nil {
		return err
	}

	// Acquire may win a race against cancellation
	if err := ctx.Err(); err != nil {
		g.sem.Release(n)
		return err
	}

	g.metrics.gateWait.WithLabelValues(mode).Observe(time.Since(start).Seconds())

	return nil
}

func (g *gate) rlock(ctx context.Context) error {
	return g.acquire(ctx, 1, "read")
}

func (g *gate) runlock() {
	g.sem.Release(1)
}

func (g *gate) lock(ctx context.Context) error {
	return g.acquire(ctx, gateWeight, "write")
}

func (g *gate) unlock() {
	g.sem.Release(gateWeight)
}
