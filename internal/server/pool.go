package server

import (
	"context"

	"github.com/Jeffail/tunny"

	"github.com/cwbudde/algo-keytune/internal/metrics"
)

// workerPool bounds the number of clips processed at once. Jobs waiting for
// a worker are abandoned when their context ends.
type workerPool struct {
	pool *tunny.Pool
}

func newWorkerPool(workers int) *workerPool {
	workFn := func(i interface{}) interface{} {
		i.(func())()
		return nil
	}
	return &workerPool{pool: tunny.NewFunc(workers, workFn)}
}

// do runs fn on a worker and waits for it. If ctx ends first do returns
// the context error; fn may still be running and must not share state the
// caller reads after an error.
func (p *workerPool) do(ctx context.Context, fn func()) error {
	metrics.WorkerQueueLength.Set(float64(p.pool.QueueLength()))
	_, err := p.pool.ProcessCtx(ctx, fn)
	return err
}

func (p *workerPool) close() {
	p.pool.Close()
}
