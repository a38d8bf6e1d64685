package usecase

import "sync"

// InlineDispatcher runs callbacks on the publishing goroutine. Callbacks must
// return quickly and must not mutate the session store.
type InlineDispatcher struct{}

var _ Dispatcher = InlineDispatcher{}

func (InlineDispatcher) Dispatch(fn func()) {
	fn()
}

// SerialDispatcher runs callbacks one at a time, in submission order, on its
// own goroutine. Use it for consumers that own a serial context, such as a UI
// thread or an event stream.
type SerialDispatcher struct {
	mu     sync.Mutex
	queue  []func()
	closed bool

	wake    chan struct{}
	done    chan struct{}
	stopped chan struct{}
}

var _ Dispatcher = (*SerialDispatcher)(nil)

// NewSerialDispatcher starts the dispatcher goroutine. Call Close to stop it.
func NewSerialDispatcher() *SerialDispatcher {
	d := &SerialDispatcher{
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go d.run()

	return d
}

// Dispatch queues fn. After Close it is a no-op.
func (d *SerialDispatcher) Dispatch(fn func()) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()

		return
	}
	d.queue = append(d.queue, fn)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Close stops the goroutine and drops queued callbacks. It waits for a
// running callback to return, so it must not be called from one.
func (d *SerialDispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()

		return
	}
	d.closed = true
	d.queue = nil
	d.mu.Unlock()

	close(d.done)
	<-d.stopped
}

func (d *SerialDispatcher) run() {
	defer close(d.stopped)

	for {
		select {
		case <-d.done:
			return
		case <-d.wake:
		}

		for {
			d.mu.Lock()
			if d.closed || len(d.queue) == 0 {
				d.mu.Unlock()

				break
			}
			fn := d.queue[0]
			d.queue[0] = nil
			d.queue = d.queue[1:]
			d.mu.Unlock()

			fn()
		}
	}
}
