package database

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryBackoff_WithinJitterBounds(t *testing.T) {
	for attempt := 0; attempt < connectAttempts; attempt++ {
		base := connectBaseWait << attempt
		minExpected := time.Duration(float64(base) * (1 - retryJitterFraction))
		maxExpected := time.Duration(float64(base) * (1 + retryJitterFraction))

		for i := 0; i < 20; i++ {
			d := retryBackoff(attempt)
			assert.GreaterOrEqual(t, d, minExpected)
			assert.LessOrEqual(t, d, maxExpected)
		}
	}
}

func TestRetryBackoff_NegativeAttemptUsesBase(t *testing.T) {
	d := retryBackoff(-3)
	assert.GreaterOrEqual(t, d, time.Duration(float64(connectBaseWait)*(1-retryJitterFraction)))
	assert.LessOrEqual(t, d, time.Duration(float64(connectBaseWait)*(1+retryJitterFraction)))
}

func TestNewPostgresPool_InvalidURL(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := NewPostgresPool(context.Background(), PostgresConfig{URL: "://not a url"}, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse postgres url")
}

func TestNewRedisClient_InvalidURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "http://localhost:6379")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse redis url")
}
