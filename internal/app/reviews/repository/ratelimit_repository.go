package repository

import (
	"context"
	"fmt"
	"time"

	"campusrate/pkg/metrics"

	"github.com/redis/go-redis/v9"
)

const serviceName = "campusrate"

type rateLimitRepository struct {
	client *redis.Client
}

// NewRateLimitRepository создает Redis-репозиторий счётчиков rate limit
func NewRateLimitRepository(client *redis.Client) RateLimitRepository {
	return &rateLimitRepository{client: client}
}

// CheckAndIncrement атомарно инкрементирует счётчик фиксированного окна.
// INCR в Redis - единая read-modify-write операция, поэтому два конкурентных
// запроса одного пользователя не могут получить одно и то же значение.
func (r *rateLimitRepository) CheckAndIncrement(ctx context.Context, userID, actionKind string, limit int, window time.Duration) (*Decision, error) {
	now := time.Now()
	windowStart := now.Truncate(window)
	key := fmt.Sprintf("ratelimit:%s:%s:%d", userID, actionKind, windowStart.Unix())

	// INCR и EXPIRE идут одной MULTI/EXEC транзакцией: счётчик ни в какой
	// момент не существует без TTL, фонового чистильщика счётчиков нет.
	// Обновление TTL на каждом инкременте безопасно - ключ привязан к
	// началу окна и после его конца не читается.
	timer := metrics.NewRedisTimer(serviceName, metrics.RedisOpIncr)
	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	_, err := pipe.Exec(ctx)
	timer.ObserveDuration()
	if err != nil {
		metrics.RecordRedisError(serviceName, metrics.RedisOpIncr)
		return nil, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}
	count := incr.Val()

	decision := &Decision{
		Allowed:   count <= int64(limit),
		Remaining: limit - int(count),
	}
	if decision.Remaining < 0 {
		decision.Remaining = 0
	}
	if !decision.Allowed {
		decision.RetryAfter = windowStart.Add(window).Sub(now)
	}

	return decision, nil
}
