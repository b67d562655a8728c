package utils

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrAttemptsExhausted is returned by RetryConfig.Do once every attempt failed.
var ErrAttemptsExhausted = errors.New("attempts exhausted")

// ExhaustedError carries the attempt bound and the last failure seen.
type ExhaustedError struct {
	Operation string
	Attempts  int
	Last      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Operation, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() []error {
	return []error{ErrAttemptsExhausted, e.Last}
}

// SleepFunc suspends the caller for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RetryConfig holds the parameters for the retry strategy.
type RetryConfig struct {
	MaxAttempts int
	Delay       time.Duration
	Logger      *Logger
	// Sleep defaults to Sleep; tests swap it for an instant recorder.
	Sleep SleepFunc
}

// Do executes fn until it succeeds, waiting a fixed delay between attempts.
// The attempt number passed to fn starts at 1.
func (r *RetryConfig) Do(ctx context.Context, operationName string, fn func(attempt int) error) error {
	sleep := r.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	var lastErr error
	for attempt := 1; attempt <= r.MaxAttempts; attempt++ {
		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}

		if attempt < r.MaxAttempts {
			if r.Logger != nil {
				r.Logger.Warn("[retry] %s failed (attempt %d/%d): %v, retrying in %v",
					operationName, attempt, r.MaxAttempts, lastErr, r.Delay)
			}
			if err := sleep(ctx, r.Delay); err != nil {
				return fmt.Errorf("%s interrupted: %w", operationName, err)
			}
		}
	}

	return &ExhaustedError{Operation: operationName, Attempts: r.MaxAttempts, Last: lastErr}
}

// Sleep waits for d without holding up other goroutines and returns early on ctx cancellation.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
