// Package retry runs an operation again after failures, waiting an exponentially growing
// delay plus random jitter between attempts.
//
// The delay before retry k (1-indexed) is BaseDelay * 2^(k-1) + rand[0, Jitter).
// With the defaults (3 retries, 1s base, 1s jitter) a permanently failing operation is
// invoked 4 times and the last error is returned exactly as the operation produced it.
//
// The operation must be safe to repeat; there is no idempotency key or dedup here.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"linkstride-client/internal/pkg/logger"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second
	DefaultJitter     = time.Second
)

// Operation is one attempt of the work being retried.
type Operation[T any] func(ctx context.Context) (T, error)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

type options struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	jitter     time.Duration
	retryIf    func(error) bool
	sleep      Sleeper
	random     func(n int64) int64
	logger     logger.ILogger
	name       string
}

type Option func(*options)

// WithMaxRetries sets how many times a failed attempt is retried. Negative means 0.
func WithMaxRetries(n int) Option {
	return func(o *options) {
		if n < 0 {
			n = 0
		}
		o.maxRetries = n
	}
}

func WithBaseDelay(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.baseDelay = d
		}
	}
}

// WithMaxDelay caps the exponential part of the delay. Zero leaves it uncapped.
func WithMaxDelay(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.maxDelay = d
		}
	}
}

// WithJitter sets the exclusive upper bound of the random delay added to every wait.
func WithJitter(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.jitter = d
		}
	}
}

// WithRetryIf limits retries to errors the predicate accepts. Other errors are returned at once.
func WithRetryIf(fn func(error) bool) Option {
	return func(o *options) {
		o.retryIf = fn
	}
}

func WithSleeper(s Sleeper) Option {
	return func(o *options) {
		if s != nil {
			o.sleep = s
		}
	}
}

// WithRandom replaces the jitter source. fn must return a value in [0, n).
func WithRandom(fn func(n int64) int64) Option {
	return func(o *options) {
		if fn != nil {
			o.random = fn
		}
	}
}

func WithLogger(l logger.ILogger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithName labels log lines so concurrent retry chains can be told apart.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

func defaultOptions() options {
	return options{
		maxRetries: DefaultMaxRetries,
		baseDelay:  DefaultBaseDelay,
		jitter:     DefaultJitter,
		sleep:      sleepContext,
		random:     rand.Int63n,
		name:       "operation",
	}
}

// Do invokes op until it succeeds or the retry budget is spent.
func Do[T any](ctx context.Context, op Operation[T], opts ...Option) (T, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	retries := 0
	for {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		if retries >= o.maxRetries || (o.retryIf != nil && !o.retryIf(err)) {
			o.log("error", "Failed after retries", map[string]interface{}{
				"operation": o.name,
				"retries":   retries,
				"error":     err.Error(),
			})
			return result, err
		}

		retries++
		delay := o.delay(retries)
		o.log("info", "Retrying after backoff", map[string]interface{}{
			"operation":   o.name,
			"retry":       retries,
			"max_retries": o.maxRetries,
			"delay_ms":    delay.Milliseconds(),
			"error":       err.Error(),
		})

		if sleepErr := o.sleep(ctx, delay); sleepErr != nil {
			var zero T
			return zero, sleepErr
		}
	}
}

func (o *options) delay(attempt int) time.Duration {
	var jitter time.Duration
	if o.jitter > 0 {
		jitter = time.Duration(o.random(int64(o.jitter)))
	}
	backoff := Backoff(attempt, o.baseDelay, 0)
	if o.maxDelay > 0 && backoff > o.maxDelay {
		backoff = o.maxDelay
	}
	return backoff + jitter
}

func (o *options) log(level, message string, details map[string]interface{}) {
	if o.logger == nil {
		return
	}
	if level == "error" {
		o.logger.Error("Retry", message, details)
		return
	}
	o.logger.Info("Retry", message, details)
}

// Backoff returns base * 2^(attempt-1) + jitter for a 1-indexed retry attempt.
// Attempts below 1 are treated as 1. The result saturates instead of overflowing.
func Backoff(attempt int, base, jitter time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	factor := math.Pow(2, float64(attempt-1))
	d := float64(base) * factor
	if d >= math.MaxInt64-float64(jitter) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d) + jitter
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
