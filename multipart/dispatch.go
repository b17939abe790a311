package multipart

import (
	"sync"
)

// Dispatcher runs functions on a delivery context. Implementations must run
// functions one at a time, in the order they were dispatched.
type Dispatcher interface {
	Dispatch(fn func())
}

// DispatcherFunc adapts a function to a Dispatcher, e.g. to post onto a UI loop.
type DispatcherFunc func(fn func())

// Dispatch ...
func (f DispatcherFunc) Dispatch(fn func()) {
	f(fn)
}

// SerialDispatcher runs dispatched functions in FIFO order on a single goroutine.
// The goroutine only lives while there is work queued.
type SerialDispatcher struct {
	mu       sync.Mutex
	queue    []func()
	draining bool
}

// NewSerialDispatcher ...
func NewSerialDispatcher() *SerialDispatcher {
	return &SerialDispatcher{}
}

// Dispatch queues fn and returns without waiting for it to run.
func (d *SerialDispatcher) Dispatch(fn func()) {
	d.mu.Lock()
	d.queue = append(d.queue, fn)
	if d.draining {
		d.mu.Unlock()
		return
	}
	d.draining = true
	d.mu.Unlock()

	go d.drain()
}

func (d *SerialDispatcher) drain() {
	for {
		d.mu.Lock()
		if len(d.queue) == 0 {
			d.draining = false
			d.mu.Unlock()
			return
		}
		fn := d.queue[0]
		d.queue[0] = nil
		d.queue = d.queue[1:]
		d.mu.Unlock()

		fn()
	}
}
