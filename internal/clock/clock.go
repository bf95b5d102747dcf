// Package clock is the single time source for lateness and countdowns.
package clock

import (
	"sort"
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Real is backed by the time package.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) NewTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// Fake is a manually advanced clock. Ticks are delivered synchronously by
// Advance, so a tick is only sent once the previous one has been received.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
}

func NewFake(now time.Time) *Fake {
	return &Fake{now: now}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}

func (f *Fake) NewTicker(d time.Duration) Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()

	t := &fakeTicker{
		c:      make(chan time.Time),
		stop:   make(chan struct{}),
		period: d,
		next:   f.now.Add(d),
	}
	f.tickers = append(f.tickers, t)
	return t
}

// Tickers returns the number of tickers that have not been stopped.
func (f *Fake) Tickers() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, t := range f.tickers {
		if !t.stopped() {
			n++
		}
	}
	return n
}

// Advance moves the clock forward by d, firing every tick that falls due in order.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	f.mu.Unlock()

	for {
		f.mu.Lock()
		due := f.dueLocked(target)
		if due == nil {
			f.now = target
			f.mu.Unlock()
			return
		}
		f.now = due.next
		due.next = due.next.Add(due.period)
		now := f.now
		f.mu.Unlock()

		due.send(now)
	}
}

func (f *Fake) dueLocked(target time.Time) *fakeTicker {
	live := f.tickers[:0]
	for _, t := range f.tickers {
		if !t.stopped() {
			live = append(live, t)
		}
	}
	f.tickers = live

	sort.SliceStable(live, func(i, j int) bool { return live[i].next.Before(live[j].next) })
	if len(live) == 0 || live[0].next.After(target) {
		return nil
	}
	return live[0]
}

type fakeTicker struct {
	c      chan time.Time
	stop   chan struct{}
	once   sync.Once
	period time.Duration
	next   time.Time
}

func (t *fakeTicker) C() <-chan time.Time { return t.c }

func (t *fakeTicker) Stop() {
	t.once.Do(func() { close(t.stop) })
}

func (t *fakeTicker) stopped() bool {
	select {
	case <-t.stop:
		return true
	default:
		return false
	}
}

func (t *fakeTicker) send(now time.Time) {
	select {
	case t.c <- now:
	case <-t.stop:
	}
}
