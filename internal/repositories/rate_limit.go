package repositories

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-chi/httprate"
	"github.com/redis/go-redis/v9"
	"github.com/sbilibin2017/gw-users/internal/logger"
)

var _ httprate.LimitCounter = (*RateLimitCounterRepository)(nil)

// RateLimitCounterRepository keeps httprate sliding-window counters in Redis
// so that every replica of the service shares the same limits.
type RateLimitCounterRepository struct {
	client       *redis.Client
	timeout      time.Duration
	windowLength time.Duration
}

// NewRateLimitCounterRepository creates a counter store; timeout bounds every Redis call.
func NewRateLimitCounterRepository(client *redis.Client, timeout time.Duration) *RateLimitCounterRepository {
	return &RateLimitCounterRepository{
		client:       client,
		timeout:      timeout,
		windowLength: time.Minute,
	}
}

// Config is called by httprate with the limiter settings.
func (r *RateLimitCounterRepository) Config(requestLimit int, windowLength time.Duration) {
	r.windowLength = windowLength
}

// Increment adds one request to the counter of key in currentWindow.
func (r *RateLimitCounterRepository) Increment(key string, currentWindow time.Time) error {
	return r.IncrementBy(key, currentWindow, 1)
}

// IncrementBy adds amount requests to the counter of key in currentWindow.
// Counters expire after three windows.
func (r *RateLimitCounterRepository) IncrementBy(key string, currentWindow time.Time, amount int) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	counterKey := r.counterKey(key, currentWindow)

	pipe := r.client.TxPipeline()
	pipe.IncrBy(ctx, counterKey, int64(amount))
	pipe.Expire(ctx, counterKey, 3*r.windowLength)
	_, err := pipe.Exec(ctx)

	logger.Log.Debugw("rate limit increment",
		"key", counterKey,
		"amount", amount,
		"error", err,
	)

	return err
}

// Get returns the counters of key for the current and previous windows.
func (r *RateLimitCounterRepository) Get(key string, currentWindow, previousWindow time.Time) (int, int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	values, err := r.client.MGet(ctx,
		r.counterKey(key, currentWindow),
		r.counterKey(key, previousWindow),
	).Result()
	if err != nil {
		logger.Log.Errorw("failed to read rate limit counters", "key", key, "error", err)
		return 0, 0, err
	}

	curr, err := parseCounter(values[0])
	if err != nil {
		return 0, 0, err
	}
	prev, err := parseCounter(values[1])
	if err != nil {
		return 0, 0, err
	}

	return curr, prev, nil
}

func (r *RateLimitCounterRepository) counterKey(key string, window time.Time) string {
	return fmt.Sprintf("rate_limit:%s:%d", key, window.Unix())
}

// parseCounter converts an MGET value; missing keys count as zero.
func parseCounter(v any) (int, error) {
	switch val := v.(type) {
	case nil:
		return 0, nil
	case string:
		return strconv.Atoi(val)
	default:
		return 0, fmt.Errorf("unexpected counter value %T", v)
	}
}
