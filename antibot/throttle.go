// Package antibot keeps crawls under anti-bot radars: adaptive backoff
// with a rolling-window request cap, challenge and rate-limit detection,
// and rotating request identities.
package antibot

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

// DefaultMaxBackoff caps the backoff factor.
const DefaultMaxBackoff = 30.0

// Rolling-window cap: at most windowLimit requests per windowUnits,
// regardless of backoff state.
const (
	windowUnits = 60
	windowLimit = 10
)

// Throttle paces the requests of one crawl run. Failures escalate a
// backoff factor (×1.5, capped); any success resets it to 1.0. On top of
// the backoff arithmetic, a rolling window caps the request rate by
// padding the delay with whatever remains of the window.
//
// Construct one Throttle per crawl run. Sharing one across unrelated
// concurrent crawls couples their backoff accounting. Safe for
// concurrent use.
type Throttle struct {
	mu          sync.Mutex
	factor      float64
	maxBackoff  float64
	count       int
	windowStart time.Time

	unit time.Duration
	rnd  *rand.Rand
	now  func() time.Time
}

// ThrottleOption configures a Throttle.
type ThrottleOption func(*Throttle)

// WithMaxBackoff caps the backoff factor. Defaults to DefaultMaxBackoff.
func WithMaxBackoff(f float64) ThrottleOption {
	return func(t *Throttle) {
		t.maxBackoff = f
	}
}

// WithUnit sets the duration of one throttle time unit. Delays and the
// rolling window scale with it. Defaults to time.Second; tests shrink it.
func WithUnit(d time.Duration) ThrottleOption {
	return func(t *Throttle) {
		t.unit = d
	}
}

// WithRand sets the random source used for delay jitter.
// Defaults to the shared global source.
func WithRand(rnd *rand.Rand) ThrottleOption {
	return func(t *Throttle) {
		t.rnd = rnd
	}
}

// WithNow sets the clock used for rolling-window accounting.
// Defaults to time.Now.
func WithNow(now func() time.Time) ThrottleOption {
	return func(t *Throttle) {
		t.now = now
	}
}

// NewThrottle creates a Throttle with its backoff factor at 1.0 and the
// rolling window starting now.
func NewThrottle(opts ...ThrottleOption) *Throttle {
	t := &Throttle{
		factor:     1.0,
		maxBackoff: DefaultMaxBackoff,
		unit:       time.Second,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.windowStart = t.now()
	return t
}

// ComputeDelay returns how long the next request should wait, mutating
// throttle state. success=false escalates the backoff factor and draws
// the delay from [2f, 4f] units; success=true resets the factor and
// draws from [1, 3] units. Either way the request is tallied against the
// rolling window, and the 11th request inside a 60-unit window absorbs
// the remainder of the window as extra delay.
func (t *Throttle) ComputeDelay(success bool) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	var units float64
	if success {
		t.factor = 1.0
		units = t.uniform(1, 3)
	} else {
		t.factor = math.Min(t.factor*1.5, t.maxBackoff)
		units = t.uniform(t.factor*2, t.factor*4)
	}

	t.count++
	elapsed := float64(t.now().Sub(t.windowStart)) / float64(t.unit)
	if elapsed < windowUnits && t.count > windowLimit {
		units += windowUnits - elapsed
		t.count = 0
		t.windowStart = t.now()
	}

	return time.Duration(units * float64(t.unit))
}

// Sleep blocks the calling goroutine for the computed delay.
// It returns the delay it slept.
func (t *Throttle) Sleep(success bool) time.Duration {
	d := t.ComputeDelay(success)
	time.Sleep(d)
	return d
}

// Wait suspends until the computed delay elapses or ctx is done. The
// delay arithmetic and state mutation are identical to Sleep; only the
// scheduling differs. It returns the computed delay and ctx's error if
// the wait was cut short.
func (t *Throttle) Wait(ctx context.Context, success bool) (time.Duration, error) {
	d := t.ComputeDelay(success)
	if err := ctx.Err(); err != nil {
		return d, err
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return d, ctx.Err()
	case <-timer.C:
		return d, nil
	}
}

// Factor returns the current backoff factor.
func (t *Throttle) Factor() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.factor
}

// RequestCount returns the requests tallied in the current window.
func (t *Throttle) RequestCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// uniform draws from [min, max). Must be called with mu held.
func (t *Throttle) uniform(min, max float64) float64 {
	var f float64
	if t.rnd != nil {
		f = t.rnd.Float64()
	} else {
		f = rand.Float64()
	}
	return min + f*(max-min)
}
