package testutil

import (
	"sync"
	"time"
)

// FakeTimer fires immediately and records every requested wait, so bounded
// polls run without sleeping
type FakeTimer struct {
	mu    sync.Mutex
	c     chan time.Time
	waits []time.Duration
}

func NewFakeTimer() *FakeTimer {
	return &FakeTimer{c: make(chan time.Time, 1)}
}

func (t *FakeTimer) Start(d time.Duration) {
	t.mu.Lock()
	t.waits = append(t.waits, d)
	t.mu.Unlock()
	t.c <- time.Now()
}

func (t *FakeTimer) Stop() {}

func (t *FakeTimer) C() <-chan time.Time {
	return t.c
}

// Waits returns the durations the timer was started with
func (t *FakeTimer) Waits() []time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]time.Duration(nil), t.waits...)
}
