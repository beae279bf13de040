package bucket

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"tracelot/internal/ratelimit/models"
)

const (
	testLimit  = 10
	testWindow = time.Minute
)

type InMemoryBucketStoreSuite struct {
	suite.Suite
	store *InMemoryBucketStore
	ctx   context.Context
	now   time.Time
}

func TestInMemoryBucketStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryBucketStoreSuite))
}

func (s *InMemoryBucketStoreSuite) SetupTest() {
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.store = NewInMemoryBucketStore(WithClock(func() time.Time { return s.now }))
	s.ctx = context.Background()
}

func (s *InMemoryBucketStoreSuite) TestAllow() {
	s.Run("first request allowed", func() {
		result, err := s.store.Allow(s.ctx, "test:key:allow:first", testLimit, testWindow)
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(testLimit, result.Limit)
		s.Equal(testLimit-1, result.Remaining)
	})

	s.Run("requests up to limit allowed", func() {
		var result *models.RateLimitResult
		var err error
		for range testLimit {
			result, err = s.store.Allow(s.ctx, "test:key:allow:limit", testLimit, testWindow)
		}
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(0, result.Remaining)
	})

	s.Run("request over limit denied with retry hint", func() {
		for range testLimit {
			_, err := s.store.Allow(s.ctx, "test:key:allow:over", testLimit, testWindow)
			require.NoError(s.T(), err)
		}

		result, err := s.store.Allow(s.ctx, "test:key:allow:over", testLimit, testWindow)
		s.Require().NoError(err)
		s.False(result.Allowed)
		s.Equal(0, result.Remaining)
		s.GreaterOrEqual(result.RetryAfter, 1)
	})

	s.Run("window expiry readmits requests", func() {
		for range testLimit {
			_, err := s.store.Allow(s.ctx, "test:key:allow:expiry", testLimit, testWindow)
			require.NoError(s.T(), err)
		}

		s.now = s.now.Add(testWindow + time.Second)
		result, err := s.store.Allow(s.ctx, "test:key:allow:expiry", testLimit, testWindow)
		s.Require().NoError(err)
		s.True(result.Allowed)
	})

	s.Run("keys are isolated", func() {
		for range testLimit {
			_, err := s.store.Allow(s.ctx, "test:key:allow:noisy", testLimit, testWindow)
			require.NoError(s.T(), err)
		}

		result, err := s.store.Allow(s.ctx, "test:key:allow:quiet", testLimit, testWindow)
		s.Require().NoError(err)
		s.True(result.Allowed)
	})
}

func (s *InMemoryBucketStoreSuite) TestReset() {
	for range testLimit {
		_, err := s.store.Allow(s.ctx, "test:key:reset", testLimit, testWindow)
		s.Require().NoError(err)
	}

	s.Require().NoError(s.store.Reset(s.ctx, "test:key:reset"))

	result, err := s.store.Allow(s.ctx, "test:key:reset", testLimit, testWindow)
	s.Require().NoError(err)
	s.True(result.Allowed)
}

func (s *InMemoryBucketStoreSuite) TestGetCurrentCount() {
	count, err := s.store.GetCurrentCount(s.ctx, "test:key:count")
	s.Require().NoError(err)
	s.Equal(0, count)

	for range 3 {
		_, err := s.store.Allow(s.ctx, "test:key:count", testLimit, testWindow)
		s.Require().NoError(err)
	}

	count, err = s.store.GetCurrentCount(s.ctx, "test:key:count")
	s.Require().NoError(err)
	s.Equal(3, count)
}

func (s *InMemoryBucketStoreSuite) TestConcurrentAllow() {
	store := NewInMemoryBucketStore()
	const workers = 50

	var wg sync.WaitGroup
	allowed := make(chan bool, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := store.Allow(context.Background(), "test:key:concurrent", testLimit, testWindow)
			require.NoError(s.T(), err)
			allowed <- result.Allowed
		}()
	}
	wg.Wait()
	close(allowed)

	granted := 0
	for ok := range allowed {
		if ok {
			granted++
		}
	}
	s.Equal(testLimit, granted)
}
