package executor

import (
	"context"

	"metabay/common/util"

	"github.com/zeromicro/go-zero/core/threading"
)

// Executor is a bounded worker pool. Tasks committed past the queue
// bound either block (Commit) or are dropped (TryCommit).
type Executor[P interface{}] struct {
	ctx     context.Context
	tasks   chan P
	handler func(task P)
	workers int
	cancel  context.CancelFunc
}

func NewExecutor[P interface{}](ctx context.Context, workers int, queueSize int, handler func(task P)) *Executor[P] {
	ret := &Executor[P]{
		tasks:   make(chan P, queueSize),
		handler: handler,
		workers: workers,
	}
	ret.ctx, ret.cancel = context.WithCancel(ctx)
	return ret
}

func (e *Executor[P]) Start() {
	for i := 0; i < e.workers; i++ {
		go func() {
			for {
				select {
				case <-e.ctx.Done():
					return
				case task := <-e.tasks:
					threading.RunSafe(func() {
						e.handler(task)
					})
				}
			}
		}()
	}
}

// Stop cancels the workers and discards whatever is still queued.
func (e *Executor[P]) Stop() {
	e.cancel()
	util.EmptyChannel(e.tasks)
}

func (e *Executor[P]) QueueSize() int {
	return len(e.tasks)
}

func (e *Executor[P]) Commit(task P) {
	e.tasks <- task
}

// TryCommit enqueues without blocking and reports whether the task was
// accepted.
func (e *Executor[P]) TryCommit(task P) bool {
	select {
	case e.tasks <- task:
		return true
	default:
		return false
	}
}
