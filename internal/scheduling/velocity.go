package scheduling

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// VelocityResult is the outcome of one velocity check.
type VelocityResult struct {
	Allowed      bool
	CurrentCount int
	MaxAllowed   int
	WindowExpiry time.Time
	Message      string
}

// VelocityLimiter caps booking attempts per contact email within a fixed
// window counted in Redis.
type VelocityLimiter struct {
	redis  *redis.Client
	logger *logging.Logger
	max    int
	window time.Duration
}

// NewVelocityLimiter creates a limiter allowing max attempts per window.
func NewVelocityLimiter(redisClient *redis.Client, max int, window time.Duration, logger *logging.Logger) *VelocityLimiter {
	return &VelocityLimiter{
		redis:  redisClient,
		logger: logging.OrDefault(logger),
		max:    max,
		window: window,
	}
}

func velocityKey(email string) string {
	return fmt.Sprintf("velocity:booking:%s", strings.ToLower(strings.TrimSpace(email)))
}

// Allow counts one booking attempt for email. Redis failures allow the attempt.
func (v *VelocityLimiter) Allow(ctx context.Context, email string) (*VelocityResult, error) {
	ctx, span := tracer.Start(ctx, "velocity.check_booking")
	defer span.End()

	if v == nil || v.redis == nil || v.max <= 0 {
		return &VelocityResult{Allowed: true}, nil
	}

	key := velocityKey(email)
	count, expiry, err := v.incrementAndGet(ctx, key)
	if err != nil {
		v.logger.Error("velocity check failed", "error", err, "key", key)
		return &VelocityResult{Allowed: true, Message: "velocity check unavailable"}, nil
	}

	result := &VelocityResult{
		Allowed:      count <= v.max,
		CurrentCount: count,
		MaxAllowed:   v.max,
		WindowExpiry: expiry,
	}
	if !result.Allowed {
		result.Message = fmt.Sprintf("exceeded %d booking attempts in %s", v.max, v.window)
		v.logger.Warn("booking velocity exceeded", "count", count, "max", v.max)
		span.SetAttributes(attribute.Bool("velocity.exceeded", true))
	}
	return result, nil
}

// Reset clears the counter for email.
func (v *VelocityLimiter) Reset(ctx context.Context, email string) error {
	return v.redis.Del(ctx, velocityKey(email)).Err()
}

func (v *VelocityLimiter) incrementAndGet(ctx context.Context, key string) (int, time.Time, error) {
	count, err := v.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, time.Time{}, err
	}
	if count == 1 {
		v.redis.Expire(ctx, key, v.window)
	}

	ttl, err := v.redis.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		ttl = v.window
	}
	return int(count), time.Now().Add(ttl), nil
}
