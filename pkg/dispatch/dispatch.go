// Package dispatch marshals callbacks from download worker goroutines onto a
// caller-owned serial loop, so user-facing notification handlers never run on
// a pool goroutine.
package dispatch

import "sync"

// Dispatcher schedules a callback to run later on the owner's serial loop.
// Implementations must be safe for concurrent use.
type Dispatcher interface {
	CallLater(fn func())
}

// Inline is a Dispatcher that runs callbacks immediately on the calling
// goroutine. Useful in tests and in CLI paths that have no event loop.
type Inline struct{}

// CallLater runs fn synchronously.
func (Inline) CallLater(fn func()) { fn() }

// Loop is a serial Dispatcher backed by a single goroutine: callbacks run one
// at a time, in submission order.
type Loop struct {
	tasks     chan func()
	quit      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

const loopQueueDepth = 128

// NewLoop starts a new dispatch loop.
func NewLoop() *Loop {
	l := &Loop{
		tasks: make(chan func(), loopQueueDepth),
		quit:  make(chan struct{}),
	}
	l.wg.Add(1)
	go l.run()
	return l
}

func (l *Loop) run() {
	defer l.wg.Done()
	for {
		select {
		case fn := <-l.tasks:
			fn()
		case <-l.quit:
			// Drain whatever was queued before Close.
			for {
				select {
				case fn := <-l.tasks:
					fn()
				default:
					return
				}
			}
		}
	}
}

// CallLater enqueues fn. Callbacks submitted after Close are dropped.
func (l *Loop) CallLater(fn func()) {
	select {
	case <-l.quit:
	case l.tasks <- fn:
	}
}

// Close stops the loop after running callbacks already queued. Safe to call
// more than once.
func (l *Loop) Close() {
	l.closeOnce.Do(func() { close(l.quit) })
	l.wg.Wait()
}
