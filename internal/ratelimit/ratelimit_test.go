package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ RateLimiter = (*JitterLimiter)(nil)
	_ RateLimiter = (*AdaptiveLimiter)(nil)
	_ RateLimiter = (*TokenBucket)(nil)
	_ RateLimiter = Unlimited{}
)

func TestJitterLimiterFirstWaitIsImmediate(t *testing.T) {
	l := NewJitterLimiter(time.Hour, time.Hour)

	start := time.Now()
	require.NoError(t, l.Wait(context.Background()))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestJitterLimiterSpacesActions(t *testing.T) {
	l := NewJitterLimiter(40*time.Millisecond, 60*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx))
	start := time.Now()
	require.NoError(t, l.Wait(ctx))

	assert.GreaterOrEqual(t, time.Since(start), 35*time.Millisecond)
}

func TestJitterLimiterHonoursContext(t *testing.T) {
	l := NewJitterLimiter(time.Hour, time.Hour)
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, l.Wait(ctx), context.DeadlineExceeded)
}

func TestJitterLimiterCalculateDelay(t *testing.T) {
	l := NewJitterLimiter(time.Second, 2*time.Second)
	for i := 0; i < 50; i++ {
		d := l.calculateDelay()
		assert.GreaterOrEqual(t, d, time.Second)
		assert.Less(t, d, 2*time.Second)
	}

	l.SetDelay(3*time.Second, time.Second)
	assert.Equal(t, 3*time.Second, l.calculateDelay())
}

func TestAdaptiveLimiterBacksOff(t *testing.T) {
	a := NewAdaptiveLimiter(2*time.Second, 4*time.Second)

	a.RecordError()
	a.RecordError()
	min, max := a.Delays()
	assert.Equal(t, 2*time.Second, min)
	assert.Equal(t, 4*time.Second, max)

	a.RecordError()
	min, max = a.Delays()
	assert.Equal(t, 3*time.Second, min)
	assert.Equal(t, 6*time.Second, max)
}

func TestAdaptiveLimiterRecoversToFloor(t *testing.T) {
	a := NewAdaptiveLimiter(2*time.Second, 4*time.Second)
	for i := 0; i < 3; i++ {
		a.RecordError()
	}

	for i := 0; i < 60; i++ {
		a.RecordSuccess()
	}

	min, _ := a.Delays()
	assert.Equal(t, 2*time.Second, min)
}

func TestAdaptiveLimiterCapsBackoff(t *testing.T) {
	a := NewAdaptiveLimiter(50*time.Second, 100*time.Second)
	for i := 0; i < 30; i++ {
		a.RecordError()
	}

	min, max := a.Delays()
	assert.Equal(t, time.Minute, min)
	assert.Equal(t, 2*time.Minute, max)
}

func TestTokenBucketBurst(t *testing.T) {
	b := NewTokenBucket(1, 3)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, b.Wait(ctx))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	assert.Error(t, b.Wait(ctx))
}

func TestTokenBucketSetDelay(t *testing.T) {
	b := NewTokenBucket(0.001, 1)
	b.SetDelay(0, 0)

	for i := 0; i < 5; i++ {
		require.NoError(t, b.Wait(context.Background()))
	}
}

func TestUnlimited(t *testing.T) {
	assert.NoError(t, Unlimited{}.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Unlimited{}.Wait(ctx), context.Canceled)
}
