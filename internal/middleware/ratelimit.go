package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitConfig bounds how many requests one caller may make per window.
type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
	KeyPrefix         string
}

type windowCount struct {
	count int64
	reset time.Duration
}

// countRequest increments the caller's counter for the current window and
// reports how long until the window resets. A counter left without an expiry
// gets one, so a crash between INCR and EXPIRE cannot block a caller forever.
func countRequest(ctx context.Context, client *redis.Client, key string, window time.Duration) (windowCount, error) {
	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		ttl = pipe.TTL(ctx, key)
		return nil
	})
	if err != nil {
		return windowCount{}, err
	}

	reset := ttl.Val()
	if reset < 0 {
		if err := client.Expire(ctx, key, window).Err(); err != nil {
			return windowCount{}, err
		}
		reset = window
	}
	return windowCount{count: incr.Val(), reset: reset}, nil
}

// limitKey identifies the caller: the authenticated actor when there is one,
// otherwise the remote address.
func limitKey(r *http.Request, prefix string) string {
	if actor, ok := ActorFromContext(r.Context()); ok {
		return fmt.Sprintf("%s:user:%s", prefix, actor.UserID)
	}
	return fmt.Sprintf("%s:addr:%s", prefix, r.RemoteAddr)
}

// RateLimitMiddleware is a fixed-window limiter keyed by the authenticated
// user, or by remote address for anonymous calls.
func RateLimitMiddleware(redisClient *redis.Client, config RateLimitConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	limit := strconv.Itoa(config.RequestsPerWindow)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := limitKey(r, config.KeyPrefix)

			window, err := countRequest(r.Context(), redisClient, key, config.Window)
			if err != nil {
				// fail open: checkout must not depend on the limiter
				logger.Error("Rate limiter unavailable", zap.Error(err), zap.String("key", key))
				next.ServeHTTP(w, r)
				return
			}

			remaining := int64(config.RequestsPerWindow) - window.count
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", limit)
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if window.count > int64(config.RequestsPerWindow) {
				logger.Warn("Rate limit exceeded",
					zap.String("key", key),
					zap.Int64("count", window.count),
					zap.Int("limit", config.RequestsPerWindow),
				)
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(window.reset).Unix(), 10))
				w.Header().Set("Retry-After", strconv.Itoa(int(window.reset.Seconds())))
				RespondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
