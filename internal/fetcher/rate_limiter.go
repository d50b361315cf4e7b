package fetcher

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter держит на каждый хост семафор параллельных запросов и
// token bucket на rpm запросов в минуту. rpm <= 0 снимает ограничение по частоте.
type RateLimiter struct {
	slots int
	every rate.Limit

	mu    sync.Mutex
	hosts map[string]*hostBudget
}

type hostBudget struct {
	inFlight chan struct{}
	bucket   *rate.Limiter
}

func NewRateLimiter(maxConcurrent, rpm int) *RateLimiter {
	every := rate.Inf
	if rpm > 0 {
		every = rate.Every(time.Minute / time.Duration(rpm))
	}
	return &RateLimiter{
		slots: max(maxConcurrent, 1),
		every: every,
		hosts: make(map[string]*hostBudget),
	}
}

func (rl *RateLimiter) budget(host string) *hostBudget {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.hosts[host]
	if !ok {
		b = &hostBudget{
			inFlight: make(chan struct{}, rl.slots),
			bucket:   rate.NewLimiter(rl.every, rl.slots),
		}
		rl.hosts[host] = b
	}
	return b
}

// Acquire blocks until a slot for host is free and the RPM budget allows
// another request. The returned func must be called once the request is done.
func (rl *RateLimiter) Acquire(ctx context.Context, host string) (func(), error) {
	b := rl.budget(host)

	select {
	case b.inFlight <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var once sync.Once
	release := func() { once.Do(func() { <-b.inFlight }) }

	if err := b.bucket.Wait(ctx); err != nil {
		release()
		return nil, err
	}
	return release, nil
}
