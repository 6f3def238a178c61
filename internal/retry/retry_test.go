package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func fastConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		BackoffFactor:   2.0,
		EnableJitter:    false,
	}
}

func TestExecute_SucceedsFirstAttempt(t *testing.T) {
	retrier := NewRetrier(fastConfig(), logrus.New())

	calls := 0
	err := retrier.Execute(context.Background(), "test", func() error {
		calls++
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestExecute_RetriesUntilSuccess(t *testing.T) {
	retrier := NewRetrier(fastConfig(), logrus.New())

	calls := 0
	err := retrier.Execute(context.Background(), "test", func() error {
		calls++
		if calls < 3 {
			return NewRetryableError(errors.New("暂时失败"), true)
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestExecute_NonRetryableStopsImmediately(t *testing.T) {
	retrier := NewRetrier(fastConfig(), logrus.New())

	calls := 0
	err := retrier.Execute(context.Background(), "test", func() error {
		calls++
		return NewRetryableError(errors.New("终态错误"), false)
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestExecute_ExhaustsAttempts(t *testing.T) {
	retrier := NewRetrier(fastConfig(), logrus.New())

	calls := 0
	err := retrier.Execute(context.Background(), "test", func() error {
		calls++
		return errors.New("connection refused")
	})

	assert.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestExecute_ContextCancelled(t *testing.T) {
	retrier := NewRetrier(fastConfig(), logrus.New())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := retrier.Execute(ctx, "test", func() error {
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, IsRetryableError(nil))

	// 接口优先于字符串匹配
	assert.True(t, IsRetryableError(NewRetryableError(errors.New("任意错误"), true)))
	assert.False(t, IsRetryableError(NewRetryableError(errors.New("timeout"), false)))

	// 网络类错误字符串
	assert.True(t, IsRetryableError(errors.New("dial tcp: connection refused")))
	assert.True(t, IsRetryableError(errors.New("i/o timeout")))
	assert.True(t, IsRetryableError(errors.New("429 Too Many Requests")))

	// Etherscan 限流
	assert.True(t, IsRetryableError(errors.New("Max rate limit reached")))

	// 业务错误不可重试
	assert.False(t, IsRetryableError(errors.New("合约源码未验证")))
}

func TestCalculateDelay_ExponentialBackoff(t *testing.T) {
	retrier := NewRetrier(&RetryConfig{
		MaxAttempts:     5,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Second,
		BackoffFactor:   2.0,
		EnableJitter:    false,
	}, logrus.New())

	assert.Equal(t, 100*time.Millisecond, retrier.calculateDelay(1))
	assert.Equal(t, 200*time.Millisecond, retrier.calculateDelay(2))
	assert.Equal(t, 400*time.Millisecond, retrier.calculateDelay(3))
	// 超过上限时截断
	assert.Equal(t, time.Second, retrier.calculateDelay(5))
}
