// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package backoff

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/bureau-foundation/rsvp/lib/clock"
)

// Policy bounds a retry loop. Attempt 1 runs immediately; attempt n+1
// waits Delay(n) after attempt n fails.
type Policy struct {
	// MaxAttempts is the total number of calls, including the first.
	MaxAttempts int `yaml:"max_attempts"`

	// InitialDelay is the wait after the first failure.
	InitialDelay time.Duration `yaml:"initial_delay"`

	// Multiplier grows the delay after each further failure. Values
	// below 1 are treated as 1 (constant delay).
	Multiplier float64 `yaml:"multiplier"`

	// MaxDelay caps a single wait. Zero means uncapped.
	MaxDelay time.Duration `yaml:"max_delay"`
}

// Validate rejects policies that would never call the operation or
// would wait a negative time.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", p.MaxAttempts)
	}
	if p.InitialDelay < 0 {
		return fmt.Errorf("initial_delay must not be negative, got %s", p.InitialDelay)
	}
	if p.MaxDelay < 0 {
		return fmt.Errorf("max_delay must not be negative, got %s", p.MaxDelay)
	}
	return nil
}

// Delay returns the wait after failed attempt n (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 || p.InitialDelay <= 0 {
		return p.InitialDelay
	}
	multiplier := p.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}
	delay := float64(p.InitialDelay) * math.Pow(multiplier, float64(attempt-1))
	if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	if delay > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(delay)
}

// FailureFunc observes a failed attempt. delay is the wait before the
// next attempt, or zero when no attempt follows.
type FailureFunc func(attempt int, delay time.Duration, err error)

// Retry calls op until it returns nil, the policy's attempts are used
// up, or ctx is done. It returns the number of calls made and, on
// failure, the last error from op. Cancellation during a wait is
// joined onto that error.
func Retry(ctx context.Context, clk clock.Clock, policy Policy, op func(context.Context) error, onFailure FailureFunc) (int, error) {
	maxAttempts := max(policy.MaxAttempts, 1)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				return attempt - 1, err
			}
			return attempt - 1, errors.Join(lastErr, err)
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return attempt, nil
		}

		var delay time.Duration
		if attempt < maxAttempts {
			delay = policy.Delay(attempt)
		}
		if onFailure != nil {
			onFailure(attempt, delay, lastErr)
		}
		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return attempt, errors.Join(lastErr, ctx.Err())
		case <-clk.After(delay):
		}
	}
	return maxAttempts, lastErr
}
