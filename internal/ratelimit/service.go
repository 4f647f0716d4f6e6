package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	redisClient "push-server/internal/clients/redis"
	"push-server/internal/observability"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const window = time.Minute

// Result represents the outcome of a rate limit check
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Service limits anonymous callers of the public endpoints to a number of
// requests per minute. Redis is used when configured so every instance
// shares one window; otherwise each instance keeps its own token buckets.
type Service struct {
	redis  *redisClient.Client
	local  *localLimiter
	limit  int
	logger *observability.Logger
	now    func() time.Time
}

// NewService creates a limiter allowing limitPerMinute requests per key.
// redis may be nil.
func NewService(redis *redisClient.Client, limitPerMinute int, logger *observability.Logger) *Service {
	return &Service{
		redis:  redis,
		local:  newLocalLimiter(limitPerMinute),
		limit:  limitPerMinute,
		logger: logger,
		now:    time.Now,
	}
}

// Check records a request for key and reports whether it is within the limit
func (s *Service) Check(ctx context.Context, key string) (Result, error) {
	if s.redis.IsEnabled() {
		result, err := s.checkRedis(ctx, key)
		if err == nil {
			return result, nil
		}
		s.logger.Warn(observability.WithFields(ctx, observability.Field{Key: "error", Value: err.Error()}),
			"Redis rate limit check failed, falling back to local limiter")
	}
	return s.local.allow(key, s.now()), nil
}

// checkRedis implements a sliding window over a sorted set of request timestamps
func (s *Service) checkRedis(ctx context.Context, key string) (Result, error) {
	rdb := s.redis.GetClient()
	redisKey := "rl:" + key
	now := s.now()
	windowStart := now.Add(-window)

	pipe := rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(windowStart.UnixMilli(), 10))
	card := pipe.ZCard(ctx, redisKey)
	oldest := pipe.ZRangeWithScores(ctx, redisKey, 0, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("failed to read window: %w", err)
	}

	count := int(card.Val())
	if count >= s.limit {
		resetAt := now.Add(window)
		if z := oldest.Val(); len(z) > 0 {
			resetAt = time.UnixMilli(int64(z[0].Score)).Add(window)
		}
		return Result{
			Allowed:    false,
			Limit:      s.limit,
			ResetAt:    resetAt,
			RetryAfter: max(resetAt.Sub(now), 0),
		}, nil
	}

	// Members must be unique, several requests can land in the same millisecond.
	pipe = rdb.TxPipeline()
	pipe.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: strconv.FormatInt(now.UnixMilli(), 10) + ":" + uuid.NewString(),
	})
	pipe.Expire(ctx, redisKey, 2*window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("failed to record request: %w", err)
	}

	return Result{
		Allowed:   true,
		Limit:     s.limit,
		Remaining: s.limit - count - 1,
		ResetAt:   now.Add(window),
	}, nil
}

// localLimiter keeps one token bucket per key, refilling limit tokens per minute
type localLimiter struct {
	mu      sync.Mutex
	limit   int
	buckets map[string]*bucket
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// maxBuckets bounds memory under a flood of distinct callers
const maxBuckets = 10000

func newLocalLimiter(limit int) *localLimiter {
	return &localLimiter{limit: limit, buckets: make(map[string]*bucket)}
}

func (l *localLimiter) allow(key string, now time.Time) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		if len(l.buckets) >= maxBuckets {
			l.prune(now)
		}
		b = &bucket{limiter: rate.NewLimiter(rate.Every(window/time.Duration(l.limit)), l.limit)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	r := b.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return Result{
			Allowed:    false,
			Limit:      l.limit,
			ResetAt:    now.Add(delay),
			RetryAfter: delay,
		}
	}

	return Result{
		Allowed:   true,
		Limit:     l.limit,
		Remaining: max(int(b.limiter.TokensAt(now)), 0),
		ResetAt:   now.Add(window),
	}
}

// prune drops buckets idle for a full window; they would be full again anyway
func (l *localLimiter) prune(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) >= window {
			delete(l.buckets, key)
		}
	}
}
