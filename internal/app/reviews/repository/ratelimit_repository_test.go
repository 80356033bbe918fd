package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// RateLimitRepositoryTestSuite тестовый suite для Redis repository
type RateLimitRepositoryTestSuite struct {
	suite.Suite
	miniRedis *miniredis.Miniredis
	client    *redis.Client
	repo      RateLimitRepository
}

func TestRateLimitRepositorySuite(t *testing.T) {
	suite.Run(t, new(RateLimitRepositoryTestSuite))
}

func (s *RateLimitRepositoryTestSuite) SetupSuite() {
	var err error
	s.miniRedis, err = miniredis.Run()
	require.NoError(s.T(), err)

	s.client = redis.NewClient(&redis.Options{
		Addr: s.miniRedis.Addr(),
	})

	s.repo = NewRateLimitRepository(s.client)
}

func (s *RateLimitRepositoryTestSuite) SetupTest() {
	s.miniRedis.FlushAll()
}

func (s *RateLimitRepositoryTestSuite) TearDownSuite() {
	s.client.Close()
	s.miniRedis.Close()
}

func (s *RateLimitRepositoryTestSuite) TestCheckAndIncrement_AllowsUnderLimit() {
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		decision, err := s.repo.CheckAndIncrement(ctx, "user-1", "review_submit", 5, time.Hour)
		s.NoError(err)
		s.True(decision.Allowed)
		s.Equal(4-i, decision.Remaining)
	}
}

func (s *RateLimitRepositoryTestSuite) TestCheckAndIncrement_DeniesOverLimit() {
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.repo.CheckAndIncrement(ctx, "user-1", "flag", 3, time.Hour)
		s.NoError(err)
	}

	decision, err := s.repo.CheckAndIncrement(ctx, "user-1", "flag", 3, time.Hour)

	s.NoError(err)
	s.False(decision.Allowed)
	s.Equal(0, decision.Remaining)
	s.Greater(decision.RetryAfter, time.Duration(0))
	s.LessOrEqual(decision.RetryAfter, time.Hour)
}

func (s *RateLimitRepositoryTestSuite) TestCheckAndIncrement_UsersIsolated() {
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.repo.CheckAndIncrement(ctx, "user-1", "flag", 3, time.Hour)
		s.NoError(err)
	}

	decision, err := s.repo.CheckAndIncrement(ctx, "user-2", "flag", 3, time.Hour)

	s.NoError(err)
	s.True(decision.Allowed)
}

func (s *RateLimitRepositoryTestSuite) TestCheckAndIncrement_ActionKindsIsolated() {
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.repo.CheckAndIncrement(ctx, "user-1", "flag", 3, time.Hour)
		s.NoError(err)
	}

	decision, err := s.repo.CheckAndIncrement(ctx, "user-1", "vote", 3, time.Hour)

	s.NoError(err)
	s.True(decision.Allowed)
}

func (s *RateLimitRepositoryTestSuite) TestCheckAndIncrement_CounterExpires() {
	ctx := context.Background()

	decision, err := s.repo.CheckAndIncrement(ctx, "user-1", "flag", 1, time.Minute)
	s.NoError(err)
	s.True(decision.Allowed)

	decision, err = s.repo.CheckAndIncrement(ctx, "user-1", "flag", 1, time.Minute)
	s.NoError(err)
	s.False(decision.Allowed)

	// Счётчик живёт ровно TTL окна, чистильщик не нужен
	s.miniRedis.FastForward(2 * time.Minute)

	decision, err = s.repo.CheckAndIncrement(ctx, "user-1", "flag", 1, time.Minute)
	s.NoError(err)
	s.True(decision.Allowed)
}

func (s *RateLimitRepositoryTestSuite) TestCheckAndIncrement_CounterAlwaysHasTTL() {
	ctx := context.Background()
	window := time.Minute

	// TTL выставляется атомарно с каждым инкрементом: ключ без TTL,
	// который никогда не истечёт, невозможен даже после первого окна
	for i := 0; i < 3; i++ {
		_, err := s.repo.CheckAndIncrement(ctx, "user-1", "flag", 5, window)
		s.NoError(err)
	}

	windowStart := time.Now().Truncate(window)
	key := fmt.Sprintf("ratelimit:%s:%s:%d", "user-1", "flag", windowStart.Unix())
	s.True(s.miniRedis.Exists(key))
	s.Greater(s.miniRedis.TTL(key), time.Duration(0))
	s.LessOrEqual(s.miniRedis.TTL(key), window)
}

func (s *RateLimitRepositoryTestSuite) TestCheckAndIncrement_ConcurrentRequests() {
	ctx := context.Background()
	const workers = 20
	const limit = 5

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			decision, err := s.repo.CheckAndIncrement(ctx, "user-1", "vote", limit, time.Hour)
			if err != nil {
				return
			}
			if decision.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// INCR атомарен: ровно limit запросов проходят, остальные отклонены
	s.Equal(limit, allowed)
}

func (s *RateLimitRepositoryTestSuite) TestCheckAndIncrement_RedisDown() {
	ctx := context.Background()

	badClient := redis.NewClient(&redis.Options{Addr: "localhost:1"})
	defer badClient.Close()
	repo := NewRateLimitRepository(badClient)

	decision, err := repo.CheckAndIncrement(ctx, "user-1", "flag", 3, time.Hour)

	s.Error(err)
	s.Nil(decision)
}
