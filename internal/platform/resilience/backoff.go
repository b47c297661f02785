package resilience

import (
	"math"
	"math/rand/v2"
	"time"
)

// Backoff computes exponential retry delays of Factor^attempt seconds, capped at Max.
type Backoff struct {
	Factor float64
	Max    time.Duration
}

func DefaultBackoff() Backoff {
	return Backoff{
		Factor: 1.5,
		Max:    30 * time.Second,
	}
}

// Delay returns the deterministic delay for a 1-based attempt, without jitter.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	factor := b.Factor
	if factor <= 1 {
		factor = DefaultBackoff().Factor
	}

	seconds := math.Pow(factor, float64(attempt))
	if math.IsInf(seconds, 0) || math.IsNaN(seconds) {
		return b.Max
	}
	delay := time.Duration(seconds * float64(time.Second))
	if b.Max > 0 && (delay > b.Max || delay <= 0) {
		return b.Max
	}
	return delay
}

// Jitter returns a uniformly distributed duration in [min, max).
func Jitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int64N(int64(max-min)))
}
