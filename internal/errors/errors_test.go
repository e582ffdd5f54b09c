package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesCategoryFromCode(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		category Category
	}{
		{"config code", ErrCodeConfigInvalid, CategoryConfig},
		{"io code", ErrCodeFileNotFound, CategoryIO},
		{"transient code", ErrCodeEmbedderUnavailable, CategoryTransient},
		{"validation code", ErrCodeInvalidQuery, CategoryValidation},
		{"internal code", ErrCodeInternal, CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.category, err.Category)
		})
	}
}

func TestNew_TransientCodesAreRetryable(t *testing.T) {
	assert.True(t, New(ErrCodeEmbedderUnavailable, "down", nil).Retryable)
	assert.True(t, New(ErrCodeStoreWrite, "busy", nil).Retryable)
	assert.False(t, New(ErrCodeCorruptDocument, "bad pdf", nil).Retryable)
	assert.False(t, New(ErrCodeConfigInvalid, "overlap", nil).Retryable)
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(ErrCodeEmbedderUnavailable, cause)

	require.NotNil(t, err)
	assert.Equal(t, cause, err.Unwrap())
	assert.ErrorIs(t, err, cause)
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestIs_MatchesByCode(t *testing.T) {
	err := New(ErrCodeNotFound, "missing doc", nil)
	target := New(ErrCodeNotFound, "different message", nil)

	assert.True(t, stderrors.Is(err, target))
	assert.False(t, stderrors.Is(err, New(ErrCodeInternal, "other", nil)))
}

func TestIsRetryable_WalksChain(t *testing.T) {
	inner := EmbedderError("ollama not responding", nil)
	wrapped := fmt.Errorf("upsert chunks: %w", inner)

	assert.True(t, IsRetryable(wrapped))
	assert.False(t, IsRetryable(fmt.Errorf("plain error")))
}

func TestWithDetail_Chains(t *testing.T) {
	err := New(ErrCodeIndexFailed, "index failed", nil).
		WithDetail("path", "/docs/a.md").
		WithDetail("stage", "chunk")

	assert.Equal(t, "/docs/a.md", err.Details["path"])
	assert.Equal(t, "chunk", err.Details["stage"])
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	// Given: a function that fails twice with a retryable error
	attempts := 0
	fn := func() error {
		attempts++
		if attempts < 3 {
			return EmbedderError("not ready", nil)
		}
		return nil
	}

	// When: retried with short delays
	cfg := RetryConfig{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond, Multiplier: 2.0}
	err := Retry(context.Background(), cfg, fn)

	// Then: it eventually succeeds
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetry_NonRetryableFailsImmediately(t *testing.T) {
	attempts := 0
	fn := func() error {
		attempts++
		return ExtractionError("corrupt file", nil)
	}

	cfg := RetryConfig{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1.0}
	err := Retry(context.Background(), cfg, fn)

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetry_ExhaustsRetries(t *testing.T) {
	attempts := 0
	fn := func() error {
		attempts++
		return StoreError("disk busy", nil)
	}

	cfg := RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1.0}
	err := Retry(context.Background(), cfg, fn)

	require.Error(t, err)
	assert.Equal(t, 3, attempts) // initial + 2 retries
	assert.True(t, IsRetryable(stderrors.Unwrap(err)))
}

func TestRetry_RespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, DefaultRetryConfig(), func() error {
		return EmbedderError("down", nil)
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryWithResult_ReturnsValue(t *testing.T) {
	attempts := 0
	result, err := RetryWithResult(context.Background(),
		RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1.0},
		func() ([]float32, error) {
			attempts++
			if attempts == 1 {
				return nil, EmbedderError("warming up", nil)
			}
			return []float32{0.1, 0.2}, nil
		})

	require.NoError(t, err)
	assert.Len(t, result, 2)
}
