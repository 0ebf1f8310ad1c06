// Package notify holds the single transient message shown to the user.
//
// A new message replaces the current one and restarts the clear timer.
// Messages are never queued.
package notify

import (
	"sync"
	"time"
)

// DefaultTimeout is how long a message stays visible when no timeout is given.
const DefaultTimeout = 4000 * time.Millisecond

type timer interface {
	Stop() bool
}

// Center owns the current notification.
type Center struct {
	mu        sync.Mutex
	message   string
	seq       uint64
	timer     timer
	timeout   time.Duration
	closed    bool
	observers map[int]func(string)
	nextObs   int

	afterFunc func(time.Duration, func()) timer
}

// New creates a Center. A non-positive timeout selects DefaultTimeout.
func New(timeout time.Duration) *Center {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Center{
		timeout:   timeout,
		observers: make(map[int]func(string)),
		afterFunc: func(d time.Duration, f func()) timer { return time.AfterFunc(d, f) },
	}
}

// SetAfterFunc replaces the timer constructor (for testing).
func (c *Center) SetAfterFunc(fn func(time.Duration, func()) (stop func() bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.afterFunc = func(d time.Duration, f func()) timer { return stopFunc(fn(d, f)) }
}

type stopFunc func() bool

func (s stopFunc) Stop() bool { return s() }

// Notify shows msg for the default timeout.
func (c *Center) Notify(msg string) {
	c.NotifyFor(msg, c.timeout)
}

// NotifyFor shows msg for d, replacing whatever is visible.
func (c *Center) NotifyFor(msg string, d time.Duration) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.seq++
	seq := c.seq
	c.message = msg
	c.timer = c.afterFunc(d, func() { c.expire(seq) })
	obs := c.snapshotObservers()
	c.mu.Unlock()

	publish(obs, msg)
}

// expire clears the message if no newer one has been shown since seq.
func (c *Center) expire(seq uint64) {
	c.mu.Lock()
	if c.closed || seq != c.seq {
		c.mu.Unlock()
		return
	}
	c.message = ""
	c.timer = nil
	obs := c.snapshotObservers()
	c.mu.Unlock()

	publish(obs, "")
}

// Current returns the visible message, or "" when none.
func (c *Center) Current() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.message
}

// Subscribe registers fn to receive every message change, including the
// clear to "". It returns a function that removes the subscription.
func (c *Center) Subscribe(fn func(string)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextObs
	c.nextObs++
	c.observers[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.observers, id)
	}
}

// Close stops the pending timer. Later calls are ignored.
func (c *Center) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.closed = true
}

func (c *Center) snapshotObservers() []func(string) {
	out := make([]func(string), 0, len(c.observers))
	for _, fn := range c.observers {
		out = append(out, fn)
	}
	return out
}

func publish(obs []func(string), msg string) {
	for _, fn := range obs {
		fn(msg)
	}
}
