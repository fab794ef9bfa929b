package workerpool

import "sync"

// queue is an unbounded FIFO of units. pop blocks until a unit is available
// or the queue is stopped.
type queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	tasks   []Task
	stopped bool
}

func newQueue() *queue {
	q := &queue{tasks: make([]Task, 0, 64)}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *queue) push(task Task) bool {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return false
	}
	q.tasks = append(q.tasks, task)
	q.mu.Unlock()
	q.cond.Signal()
	return true
}

func (q *queue) pop() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.tasks) == 0 && !q.stopped {
		q.cond.Wait()
	}
	if q.stopped {
		return nil, false
	}
	task := q.tasks[0]
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]
	if len(q.tasks) == 0 {
		q.tasks = q.tasks[:0:0]
	}
	return task, true
}

// stop wakes every waiter and drops whatever has not been dequeued yet.
func (q *queue) stop() int {
	q.mu.Lock()
	dropped := len(q.tasks)
	q.stopped = true
	q.tasks = nil
	q.mu.Unlock()
	q.cond.Broadcast()
	return dropped
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}
