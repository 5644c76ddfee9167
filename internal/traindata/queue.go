package traindata

import "sync"

// workQueue is a mutex-guarded stack shared by a pool of workers.
type workQueue[T any] struct {
	mu    sync.Mutex
	items []T
}

func newWorkQueue[T any](items []T) *workQueue[T] {
	return &workQueue[T]{items: append([]T(nil), items...)}
}

// Pop removes the last item. ok is false once the queue is empty.
func (q *workQueue[T]) Pop() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return item, false
	}
	item = q.items[len(q.items)-1]
	var zero T
	q.items[len(q.items)-1] = zero
	q.items = q.items[:len(q.items)-1]
	return item, true
}

func (q *workQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
