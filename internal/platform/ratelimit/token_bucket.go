package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultRate  = 2.0
	DefaultBurst = 5
)

// TokenBucket admits requests at a sustained rate with a bounded burst. Tokens refill
// continuously at rate per second and never exceed burst.
type TokenBucket struct {
	limiter *rate.Limiter
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewTokenBucket(perSecond float64, burst int) *TokenBucket {
	if perSecond <= 0 {
		perSecond = DefaultRate
	}
	if burst < 1 {
		burst = DefaultBurst
	}

	return &TokenBucket{
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		now:     time.Now,
		sleep:   sleepContext,
	}
}

// Reserve consumes a token when one is available and returns zero. Otherwise it returns
// how long the caller should wait before asking again; no token is consumed in that case.
func (b *TokenBucket) Reserve() time.Duration {
	now := b.now()
	if b.limiter.AllowN(now, 1) {
		return 0
	}

	missing := 1 - b.limiter.TokensAt(now)
	wait := time.Duration(missing / float64(b.limiter.Limit()) * float64(time.Second))
	// zero means a token was taken
	return max(wait, time.Nanosecond)
}

// Wait blocks until a token is consumed or ctx is done.
func (b *TokenBucket) Wait(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		wait := b.Reserve()
		if wait <= 0 {
			return nil
		}
		if err := b.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func (b *TokenBucket) Rate() float64 {
	return float64(b.limiter.Limit())
}

func (b *TokenBucket) Burst() int {
	return b.limiter.Burst()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
