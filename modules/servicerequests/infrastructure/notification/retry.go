package notification

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"
)

type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// RetryingSender retries a Sender with capped exponential backoff plus jitter.
type RetryingSender struct {
	next   Sender
	policy RetryPolicy
	sleep  func(ctx context.Context, d time.Duration) error

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewRetryingSender(next Sender, policy RetryPolicy) *RetryingSender {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &RetryingSender{
		next:   next,
		policy: policy,
		sleep:  sleepContext,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec
	}
}

// Send returns the number of attempts made alongside the last error.
func (s *RetryingSender) Send(ctx context.Context, msg Message) (int, error) {
	var err error
	for attempt := 1; attempt <= s.policy.MaxAttempts; attempt++ {
		if err = s.next.Send(ctx, msg); err == nil {
			return attempt, nil
		}
		if attempt == s.policy.MaxAttempts {
			return attempt, err
		}
		if sleepErr := s.sleep(ctx, s.delay(attempt)); sleepErr != nil {
			return attempt, err
		}
	}
	return s.policy.MaxAttempts, err
}

func (s *RetryingSender) delay(attempt int) time.Duration {
	d := backoff(attempt, s.policy.BaseDelay, s.policy.MaxDelay)
	s.mu.Lock()
	defer s.mu.Unlock()
	return d + jitter(s.rnd, d/2)
}

// backoff is base * 2^(attempts-1), capped at maxBackoff.
func backoff(attempts int, base, maxBackoff time.Duration) time.Duration {
	if attempts <= 0 || base <= 0 {
		return 0
	}
	d := time.Duration(math.Pow(2, float64(attempts-1)) * float64(base))
	if maxBackoff > 0 && d > maxBackoff {
		return maxBackoff
	}
	return d
}

func jitter(r *rand.Rand, maxJitter time.Duration) time.Duration {
	if maxJitter <= 0 || r == nil {
		return 0
	}
	// [0, maxJitter]
	return time.Duration(r.Int63n(int64(maxJitter) + 1)) //nolint:gosec
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
