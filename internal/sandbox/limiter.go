package sandbox

import "context"

// tokenLimiter caps the number of sandbox subprocesses running at once.
// Each run is CPU-bound, so unbounded concurrency only degrades latency
// for every in-flight submission.
type tokenLimiter struct {
	tokens chan struct{}
}

func newTokenLimiter(size int) *tokenLimiter {
	if size <= 0 {
		size = 1
	}
	tokens := make(chan struct{}, size)
	for i := 0; i < size; i++ {
		tokens <- struct{}{}
	}
	return &tokenLimiter{tokens: tokens}
}

// acquire blocks until a token is available or ctx is canceled.
func (l *tokenLimiter) acquire(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.tokens:
		return nil
	}
}

// release returns a token to the limiter.
func (l *tokenLimiter) release() {
	select {
	case l.tokens <- struct{}{}:
	default:
	}
}
