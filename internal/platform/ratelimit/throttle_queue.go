package ratelimit

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

const (
	DefaultThrottleWindow  = time.Minute
	DefaultThrottleCeiling = 10
)

// ThrottleQueue is a sliding-window attempt log. Once more than ceiling attempts fall inside
// the window, each further attempt is delayed by a random 1-3 seconds.
type ThrottleQueue struct {
	mu sync.Mutex

	window   time.Duration
	ceiling  int
	attempts []time.Time

	minDelay time.Duration
	maxDelay time.Duration

	now   func() time.Time
	delay func() time.Duration
	sleep func(ctx context.Context, d time.Duration) error
}

func NewThrottleQueue(window time.Duration, ceiling int) *ThrottleQueue {
	if window <= 0 {
		window = DefaultThrottleWindow
	}
	if ceiling < 1 {
		ceiling = DefaultThrottleCeiling
	}

	q := &ThrottleQueue{
		window:   window,
		ceiling:  ceiling,
		minDelay: time.Second,
		maxDelay: 3 * time.Second,
		now:      time.Now,
		sleep:    sleepContext,
	}
	q.delay = q.randomDelay
	return q
}

// Admit records an attempt and applies the throttle delay when the window is saturated.
// It returns the delay that was applied.
func (q *ThrottleQueue) Admit(ctx context.Context) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	count := q.record()
	if count <= q.ceiling {
		return 0, nil
	}

	d := q.delay()
	if err := q.sleep(ctx, d); err != nil {
		return 0, err
	}
	return d, nil
}

// Pending reports how many attempts are inside the current window.
func (q *ThrottleQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.purgeLocked(q.now())
	return len(q.attempts)
}

func (q *ThrottleQueue) record() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	q.attempts = append(q.attempts, now)
	q.purgeLocked(now)
	return len(q.attempts)
}

func (q *ThrottleQueue) purgeLocked(now time.Time) {
	cutoff := now.Add(-q.window)
	keep := 0
	for keep < len(q.attempts) && q.attempts[keep].Before(cutoff) {
		keep++
	}
	if keep > 0 {
		q.attempts = append(q.attempts[:0], q.attempts[keep:]...)
	}
}

func (q *ThrottleQueue) randomDelay() time.Duration {
	span := int64(q.maxDelay - q.minDelay)
	if span <= 0 {
		return q.minDelay
	}
	return q.minDelay + time.Duration(rand.Int64N(span))
}
