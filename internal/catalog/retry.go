package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultRetries is how many times a transient failure is retried before
// the call is given up on.
const DefaultRetries = 4

// Retry runs op with capped exponential backoff. Only ErrUnavailable is
// treated as transient; ErrNotFound, ErrAuthRequired and parse failures
// abort immediately.
func Retry(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 600 * time.Millisecond
	bo.Multiplier = 1.7
	bo.MaxInterval = 5 * time.Second

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		var ua *ErrUnavailable
		if errors.As(err, &ua) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(backoff.WithMaxRetries(bo, DefaultRetries), ctx))
}
