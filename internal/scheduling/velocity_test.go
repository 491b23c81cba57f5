package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func TestVelocityLimiter_Allow(t *testing.T) {
	_, client := setupTestRedis(t)
	limiter := NewVelocityLimiter(client, 3, time.Hour, nil)
	ctx := context.Background()

	tests := []struct {
		name        string
		email       string
		attempts    int
		wantAllowed bool
	}{
		{"first attempt allowed", "a@example.com", 1, true},
		{"at limit allowed", "b@example.com", 3, true},
		{"over limit blocked", "c@example.com", 4, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var result *VelocityResult
			var err error
			for i := 0; i < tt.attempts; i++ {
				result, err = limiter.Allow(ctx, tt.email)
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantAllowed, result.Allowed)
			assert.Equal(t, tt.attempts, result.CurrentCount)
			assert.Equal(t, 3, result.MaxAllowed)
			if !tt.wantAllowed {
				assert.NotEmpty(t, result.Message)
			}
		})
	}
}

func TestVelocityLimiter_KeyIsCaseInsensitive(t *testing.T) {
	_, client := setupTestRedis(t)
	limiter := NewVelocityLimiter(client, 1, time.Hour, nil)
	ctx := context.Background()

	first, err := limiter.Allow(ctx, "Pat@Example.com")
	require.NoError(t, err)
	assert.True(t, first.Allowed)

	second, err := limiter.Allow(ctx, "pat@example.com ")
	require.NoError(t, err)
	assert.False(t, second.Allowed)

	require.NoError(t, limiter.Reset(ctx, "PAT@example.com"))
	third, err := limiter.Allow(ctx, "pat@example.com")
	require.NoError(t, err)
	assert.True(t, third.Allowed)
}

func TestVelocityLimiter_WindowExpires(t *testing.T) {
	mr, client := setupTestRedis(t)
	limiter := NewVelocityLimiter(client, 1, time.Hour, nil)
	ctx := context.Background()

	_, err := limiter.Allow(ctx, "pat@example.com")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, mr.TTL(velocityKey("pat@example.com")))

	blocked, err := limiter.Allow(ctx, "pat@example.com")
	require.NoError(t, err)
	assert.False(t, blocked.Allowed)

	mr.FastForward(time.Hour + time.Second)
	again, err := limiter.Allow(ctx, "pat@example.com")
	require.NoError(t, err)
	assert.True(t, again.Allowed)
}

func TestVelocityLimiter_FailsOpen(t *testing.T) {
	mr, client := setupTestRedis(t)
	limiter := NewVelocityLimiter(client, 1, time.Hour, nil)
	mr.Close()

	result, err := limiter.Allow(context.Background(), "pat@example.com")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, "velocity check unavailable", result.Message)
}

func TestVelocityLimiter_NilIsPermissive(t *testing.T) {
	var limiter *VelocityLimiter
	result, err := limiter.Allow(context.Background(), "pat@example.com")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}
