// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package helper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetry(t *testing.T) {
	errTransient := errors.New("no buffer space available")
	errFatal := errors.New("operation not permitted")

	tests := []struct {
		name      string
		cfg       RetryConfig
		failures  int
		failWith  error
		wantCalls int
		wantErr   error
	}{
		{name: "first attempt succeeds", cfg: RetryConfig{Count: 2}, wantCalls: 1},
		{name: "succeeds after retries", cfg: RetryConfig{Count: 2, Delay: time.Millisecond}, failures: 2, failWith: errTransient, wantCalls: 3},
		{name: "retries exhausted", cfg: RetryConfig{Count: 1, Delay: time.Millisecond}, failures: 5, failWith: errTransient, wantCalls: 2, wantErr: errTransient},
		{name: "zero retries", cfg: RetryConfig{}, failures: 1, failWith: errTransient, wantCalls: 1, wantErr: errTransient},
		{name: "permanent error stops", cfg: RetryConfig{Count: 3, Delay: time.Millisecond}, failures: 5, failWith: Permanent(errFatal), wantCalls: 1, wantErr: errFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Retry(func(context.Context) error {
				calls++
				if calls <= tt.failures {
					return tt.failWith
				}
				return nil
			}, tt.cfg)(t.Context())

			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRetry_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	calls := 0
	err := Retry(func(context.Context) error {
		calls++
		cancel()
		return errors.New("boom")
	}, RetryConfig{Count: 3, Delay: time.Hour})(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestGetExpBackoff(t *testing.T) {
	base := 10 * time.Millisecond
	for iteration, want := range map[int]time.Duration{
		0: base,
		1: base,
		2: 2 * base,
		3: 4 * base,
		4: 8 * base,
	} {
		assert.Equal(t, want, getExpBackoff(base, iteration), "iteration %d", iteration)
	}
}
