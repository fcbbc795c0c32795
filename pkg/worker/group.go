package worker

import (
	"context"
	"sync"
)

type Group interface {
	Do(ErrorJob)
	Wait() error
}

type group struct {
	ctx         context.Context
	ctxCancel   context.CancelFunc
	cancelOnErr bool

	pool      Pool
	wg        sync.WaitGroup
	errOnce   sync.Once
	firstErr  error
	closeOnce sync.Once
}

// WithinFailFastGroup cancels the group context after the first failed job.
func WithinFailFastGroup(ctx context.Context, pool Pool) Group {
	return newGroup(ctx, pool, true)
}

func WithinFailSafeGroup(ctx context.Context, pool Pool) Group {
	return newGroup(ctx, pool, false)
}

func NewFailFastGroup(ctx context.Context) Group {
	return WithinFailFastGroup(ctx, NewPool(MaxWorkersCountUnlimited))
}

func NewFailSafeGroup(ctx context.Context) Group {
	return WithinFailSafeGroup(ctx, NewPool(MaxWorkersCountUnlimited))
}

func newGroup(ctx context.Context, pool Pool, cancelOnErr bool) *group {
	ctx, cancel := context.WithCancel(ctx)
	return &group{
		ctx:         ctx,
		ctxCancel:   cancel,
		cancelOnErr: cancelOnErr,
		pool:        pool,
	}
}

func (g *group) Do(job ErrorJob) {
	g.wg.Add(1)
	g.pool.Do(g.ctx, func(ctx context.Context) {
		defer g.wg.Done()

		err := job(ctx)
		if err == nil {
			return
		}

		g.errOnce.Do(func() {
			g.firstErr = err
			if g.cancelOnErr {
				g.ctxCancel()
			}
		})
	})
}

// Wait returns the first error.
func (g *group) Wait() error {
	g.wg.Wait()
	g.closeOnce.Do(g.ctxCancel)
	return g.firstErr
}
