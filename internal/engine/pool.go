package engine

import (
	"context"
	"sync"

	"github.com/Sdiabate1337/djula-com-sub000/internal/wa"
)

// DefaultWorkerCount is the number of workers when no size is specified.
const DefaultWorkerCount = 8

// envelope is the internal wrapper for the worker pool inbox.
type envelope struct {
	Event wa.Event
}

// workerPool manages a fixed set of goroutines that consume from the
// inbox.
type workerPool struct {
	size int
	wg   sync.WaitGroup
}

func newWorkerPool(size int) *workerPool {
	if size <= 0 {
		size = DefaultWorkerCount
	}
	return &workerPool{size: size}
}

// start launches worker goroutines that consume envelopes from inbox.
func (p *workerPool) start(ctx context.Context, inbox <-chan envelope, handler func(context.Context, envelope)) {
	for range p.size {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for env := range inbox {
				handler(ctx, env)
			}
		}()
	}
}

// wait blocks until all workers have exited.
func (p *workerPool) wait() {
	p.wg.Wait()
}
