package app

import (
	"context"
	"time"

	"getlowlevel-service/internal/domain"
	"github.com/cenkalti/backoff/v4"
)

// Options tunes how services talk to the stores.
type Options struct {
	// Timeout bounds every single store call. Zero disables it.
	Timeout time.Duration
	// ReadRetries is how many times an idempotent read is retried after the first try.
	ReadRetries int
	// RetryInterval is the first backoff interval between read retries.
	RetryInterval time.Duration
	// LeaderboardLimit is used when callers pass a non-positive limit.
	LeaderboardLimit int
	// ReauthWindow is how old a sign-in may be for account deletion.
	ReauthWindow time.Duration
	Now          func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.ReadRetries < 0 {
		o.ReadRetries = 0
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = 100 * time.Millisecond
	}
	if o.ReauthWindow <= 0 {
		o.ReauthWindow = 5 * time.Minute
	}
	return o
}

// guard runs store calls with a timeout; reads are retried with backoff, writes never are.
type guard struct {
	timeout       time.Duration
	readRetries   int
	retryInterval time.Duration
}

func newGuard(o Options) guard {
	return guard{timeout: o.Timeout, readRetries: o.ReadRetries, retryInterval: o.RetryInterval}
}

func (g guard) call(ctx context.Context, fn func(context.Context) error) error {
	if g.timeout <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return fn(callCtx)
}

func (g guard) read(ctx context.Context, resource string, fn func(context.Context) error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = g.retryInterval
	policy.MaxElapsedTime = 0
	policy.Reset()
	var b backoff.BackOff = backoff.WithMaxRetries(policy, uint64(g.readRetries))
	b = backoff.WithContext(b, ctx)

	err := backoff.Retry(func() error {
		err := g.call(ctx, fn)
		if err != nil && domain.IsPermanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
	return wrap(domain.OpRead, resource, err)
}

func (g guard) write(ctx context.Context, resource string, fn func(context.Context) error) error {
	return wrap(domain.OpWrite, resource, g.call(ctx, fn))
}

func wrap(op domain.Op, resource string, err error) error {
	if err == nil || domain.IsPermanent(err) {
		return err
	}
	if _, ok := domain.AsPersistence(err); ok {
		return err
	}
	return &domain.PersistenceError{Op: op, Resource: resource, Err: err}
}
