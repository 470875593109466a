package world

import (
	"sync"
)

// taskRunner выполняет фоновые задачи строго по очереди в одной горутине.
// Очередь не ограничена: вызывающий (поток правки или сети) не блокируется.
type taskRunner struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []func()
	running bool
	closed  bool
	done    chan struct{}
}

func newTaskRunner() *taskRunner {
	r := &taskRunner{done: make(chan struct{})}
	r.cond = sync.NewCond(&r.mu)
	go r.loop()
	return r
}

func (r *taskRunner) loop() {
	defer close(r.done)
	for {
		r.mu.Lock()
		for len(r.queue) == 0 && !r.closed {
			r.cond.Wait()
		}
		if len(r.queue) == 0 && r.closed {
			r.mu.Unlock()
			return
		}
		fn := r.queue[0]
		r.queue[0] = nil
		r.queue = r.queue[1:]
		r.running = true
		r.mu.Unlock()

		fn()

		r.mu.Lock()
		r.running = false
		r.cond.Broadcast()
		r.mu.Unlock()
	}
}

// Submit ставит задачу в очередь; после Close задачи отбрасываются
func (r *taskRunner) Submit(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.queue = append(r.queue, fn)
	r.cond.Broadcast()
}

// Wait ждёт, пока очередь опустеет и текущая задача завершится
func (r *taskRunner) Wait() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for len(r.queue) > 0 || r.running {
		r.cond.Wait()
	}
}

// Close дорабатывает очередь и останавливает горутину
func (r *taskRunner) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.cond.Broadcast()
	r.mu.Unlock()
	<-r.done
}
