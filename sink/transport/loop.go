package transport

import (
	"sync"
)

// Loop runs posted functions one at a time, in the order they were posted, on a dedicated goroutine.
type Loop struct {
	mu     sync.Mutex
	cond   *sync.Cond
	tasks  []func()
	closed bool
	done   chan struct{}
}

// NewLoop creates and starts an event loop.
func NewLoop() *Loop {
	l := &Loop{
		done: make(chan struct{}),
	}
	l.cond = sync.NewCond(&l.mu)

	go l.run()

	return l
}

// Post appends fn to the loop's queue. It never blocks on a running task.
func (l *Loop) Post(fn func()) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}

	l.tasks = append(l.tasks, fn)
	l.cond.Signal()
	return nil
}

// Quit stops the loop and waits for the goroutine to exit. Tasks that were posted but not yet
// started are dropped. Calling Quit from a task of the same loop would deadlock.
func (l *Loop) Quit() {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		l.tasks = nil
		l.cond.Signal()
	}
	l.mu.Unlock()

	<-l.done
}

func (l *Loop) run() {
	defer close(l.done)

	for {
		l.mu.Lock()
		for len(l.tasks) == 0 && !l.closed {
			l.cond.Wait()
		}
		if l.closed {
			l.mu.Unlock()
			return
		}
		fn := l.tasks[0]
		l.tasks[0] = nil
		l.tasks = l.tasks[1:]
		l.mu.Unlock()

		fn()
	}
}
