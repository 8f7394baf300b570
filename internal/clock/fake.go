package clock

import (
	"sync"
	"time"
)

// Fake is a Clock whose After fires immediately after advancing the fake
// time by the requested duration. OnAfter, when set, runs before the channel
// fires, which lets tests change the world between two polling attempts.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	waits   []time.Duration
	OnAfter func(d time.Duration)
}

// NewFake returns a Fake starting at now.
func NewFake(now time.Time) *Fake {
	return &Fake{now: now}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) After(d time.Duration) <-chan time.Time {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.waits = append(f.waits, d)
	now := f.now
	hook := f.OnAfter
	f.mu.Unlock()

	if hook != nil {
		hook(d)
	}
	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

// Waits returns the durations passed to After, in call order.
func (f *Fake) Waits() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]time.Duration, len(f.waits))
	copy(out, f.waits)
	return out
}
