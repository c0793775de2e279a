// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryWithBackoff_SucceedsAfterTransient(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), RetryConfig{
		MaxRetries:  1,
		BaseDelay:   time.Millisecond,
		IsRetryable: IsTransient,
	}, func(context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("request timeout")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetryWithBackoff_NotRetryable(t *testing.T) {
	calls := 0
	parseErr := errors.New("unexpected token in response")
	err := RetryWithBackoff(context.Background(), RetryConfig{
		MaxRetries:  1,
		IsRetryable: IsTransient,
	}, func(context.Context) error {
		calls++
		return parseErr
	})
	assert.ErrorIs(t, err, parseErr)
	assert.NotErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, 1, calls)
}

func TestRetryWithBackoff_Exhausted(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), RetryConfig{
		MaxRetries:  1,
		IsRetryable: IsTransient,
	}, func(context.Context) error {
		calls++
		return errors.New("network unreachable")
	})
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Contains(t, err.Error(), "network unreachable")
	assert.Equal(t, 2, calls)
}

func TestRetryWithBackoff_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := RetryWithBackoff(ctx, RetryConfig{
		MaxRetries: 3,
		BaseDelay:  time.Hour,
	}, func(context.Context) error {
		calls++
		cancel()
		return errors.New("timeout")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(errors.New("Request Timeout")))
	assert.True(t, IsTransient(errors.New("blocked by CORS policy")))
	assert.True(t, IsTransient(errors.New("cross-origin request rejected")))
	assert.True(t, IsTransient(fmt.Errorf("fetch: %w", context.DeadlineExceeded)))
	assert.True(t, IsTransient(fmt.Errorf("dial: %w", timeoutErr{})))

	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(context.Canceled))
	assert.False(t, IsTransient(errors.New("invalid character '<' looking for beginning of value")))
}
