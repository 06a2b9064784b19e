// Copyright 2024, dawgz-go.

// Package retry provides a small bounded-retry helper, used by the Slurm
// translator to retry scancel while rolling back a failed submission.
package retry

import (
	"context"
	"time"
)

// TryFunc is a function attempted by Do.
type TryFunc func() error

// LogFunc is called with the error from a failed attempt, before Do sleeps
// and tries again. It's nil-safe to omit.
type LogFunc func(error)

// Do retries tryFunc up to tries times total, sleeping sleep between
// attempts, calling logFunc with each intermediate failure. It returns the
// final attempt's error, or nil on the first success.
func Do(tries int, sleep time.Duration, tryFunc TryFunc, logFunc LogFunc) error {
	return DoContext(context.Background(), tries, sleep, tryFunc, logFunc)
}

// DoContext is Do with early exit if ctx is cancelled between attempts.
func DoContext(ctx context.Context, tries int, sleep time.Duration, tryFunc TryFunc, logFunc LogFunc) error {
	var err error
	for tries > 0 {
		if err = tryFunc(); err == nil {
			return nil
		}

		tries--
		if tries == 0 {
			return err
		}

		if logFunc != nil {
			logFunc(err)
		}

		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
