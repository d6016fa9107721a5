package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bongbari/internal/db"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newMiniRedisClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}

	client := goredis.NewClient(&goredis.Options{
		Addr: mr.Addr(),
	})

	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func newGormStore(t *testing.T) *GormStore {
	t.Helper()

	dsn := fmt.Sprintf("file:ratelimit-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := gdb.AutoMigrate(&db.RateLimitRecord{}); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return NewGormStore(gdb)
}

type storeFactory func(t *testing.T) Store

func storeFactories() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
		"gorm":   func(t *testing.T) Store { return newGormStore(t) },
		"redis": func(t *testing.T) Store {
			_, client := newMiniRedisClient(t)
			return NewRedisStore(client)
		},
	}
}

var testPolicy = Policy{MaxSubmissions: 3, Window: time.Hour, Cooldown: 6 * time.Hour}

func TestLimiterThresholdAndCooldown(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			clock := &fakeClock{now: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
			limiter := NewLimiter(factory(t), testPolicy).WithClock(clock.Now)
			ctx := context.Background()

			for i := 1; i <= 3; i++ {
				decision, err := limiter.Allow(ctx, "device-a")
				require.NoError(t, err)
				require.Truef(t, decision.Allowed, "submission %d should pass", i)
				assert.Equal(t, i, decision.Record.CountInWindow)
				clock.Advance(time.Minute)
			}

			decision, err := limiter.Allow(ctx, "device-a")
			require.NoError(t, err)
			assert.False(t, decision.Allowed)
			assert.Equal(t, 6*time.Hour, decision.RetryAfter)
			assert.Equal(t, int64(6*3600), decision.RetryAfterSeconds())
			require.NotNil(t, decision.Record.BlockedUntil)

			clock.Advance(2 * time.Hour)
			decision, err = limiter.Allow(ctx, "device-a")
			require.NoError(t, err)
			assert.False(t, decision.Allowed)
			assert.Equal(t, 4*time.Hour, decision.RetryAfter)

			wait, err := limiter.RetryAfter(ctx, "device-a")
			require.NoError(t, err)
			assert.Equal(t, 4*time.Hour, wait)

			clock.Advance(4*time.Hour + time.Second)
			decision, err = limiter.Allow(ctx, "device-a")
			require.NoError(t, err)
			assert.True(t, decision.Allowed)
			assert.Equal(t, 1, decision.Record.CountInWindow)
			assert.Nil(t, decision.Record.BlockedUntil)
		})
	}
}

func TestLimiterWindowRollover(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			clock := &fakeClock{now: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
			limiter := NewLimiter(factory(t), testPolicy).WithClock(clock.Now)
			ctx := context.Background()

			for i := 0; i < 3; i++ {
				decision, err := limiter.Allow(ctx, "device-b")
				require.NoError(t, err)
				require.True(t, decision.Allowed)
			}

			clock.Advance(time.Hour)
			decision, err := limiter.Allow(ctx, "device-b")
			require.NoError(t, err)
			assert.True(t, decision.Allowed)
			assert.Equal(t, 1, decision.Record.CountInWindow)
		})
	}
}

func TestLimiterCooldownShorterThanWindow(t *testing.T) {
	policy := Policy{MaxSubmissions: 2, Window: time.Hour, Cooldown: 10 * time.Minute}
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			clock := &fakeClock{now: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
			limiter := NewLimiter(factory(t), policy).WithClock(clock.Now)
			ctx := context.Background()

			for i := 0; i < 2; i++ {
				decision, err := limiter.Allow(ctx, "device-short")
				require.NoError(t, err)
				require.True(t, decision.Allowed)
			}
			decision, err := limiter.Allow(ctx, "device-short")
			require.NoError(t, err)
			require.False(t, decision.Allowed)
			assert.Equal(t, 10*time.Minute, decision.RetryAfter)

			clock.Advance(11 * time.Minute)
			decision, err = limiter.Allow(ctx, "device-short")
			require.NoError(t, err)
			assert.True(t, decision.Allowed, "the first hit after the cooldown must pass")
			assert.Equal(t, 1, decision.Record.CountInWindow)
			assert.Nil(t, decision.Record.BlockedUntil)

			decision, err = limiter.Allow(ctx, "device-short")
			require.NoError(t, err)
			assert.True(t, decision.Allowed)

			decision, err = limiter.Allow(ctx, "device-short")
			require.NoError(t, err)
			assert.False(t, decision.Allowed)
			assert.Equal(t, 10*time.Minute, decision.RetryAfter)
		})
	}
}

func TestLimiterDevicesAreIndependent(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			limiter := NewLimiter(factory(t), Policy{MaxSubmissions: 1, Window: time.Hour, Cooldown: time.Hour})
			ctx := context.Background()

			first, err := limiter.Allow(ctx, "device-1")
			require.NoError(t, err)
			assert.True(t, first.Allowed)

			blocked, err := limiter.Allow(ctx, "device-1")
			require.NoError(t, err)
			assert.False(t, blocked.Allowed)

			other, err := limiter.Allow(ctx, "device-2")
			require.NoError(t, err)
			assert.True(t, other.Allowed)

			require.NoError(t, limiter.Reset(ctx, "device-1"))
			again, err := limiter.Allow(ctx, "device-1")
			require.NoError(t, err)
			assert.True(t, again.Allowed)
		})
	}
}

func TestLimiterConcurrentHitsNeverExceedThreshold(t *testing.T) {
	factories := storeFactories()
	for _, name := range []string{"memory", "redis"} {
		factory := factories[name]
		t.Run(name, func(t *testing.T) {
			limiter := NewLimiter(factory(t), Policy{MaxSubmissions: 5, Window: time.Hour, Cooldown: time.Hour})
			ctx := context.Background()

			var (
				wg      sync.WaitGroup
				mu      sync.Mutex
				allowed int
			)
			for i := 0; i < 25; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					decision, err := limiter.Allow(ctx, "racer")
					if err != nil {
						t.Errorf("allow: %v", err)
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

			assert.Equal(t, 5, allowed)
		})
	}
}

func TestLimiterRejectsEmptyDevice(t *testing.T) {
	limiter := NewLimiter(NewMemoryStore(), testPolicy)

	_, err := limiter.Allow(context.Background(), "   ")

	assert.ErrorIs(t, err, ErrInvalidDevice)
}

func TestPolicyNormalize(t *testing.T) {
	p := Policy{}.Normalize()

	assert.Equal(t, 5, p.MaxSubmissions)
	assert.Equal(t, time.Hour, p.Window)
	assert.Equal(t, 6*time.Hour, p.Cooldown)
}

func TestRetryAfterSecondsRoundsUp(t *testing.T) {
	assert.Equal(t, int64(2), Decision{RetryAfter: 1500 * time.Millisecond}.RetryAfterSeconds())
	assert.Equal(t, int64(1), Decision{RetryAfter: 0}.RetryAfterSeconds())
	assert.Equal(t, int64(0), Decision{Allowed: true, RetryAfter: time.Hour}.RetryAfterSeconds())
}

func TestRedisStoreExpiresIdleRecords(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	store := NewRedisStore(client)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	policy := Policy{MaxSubmissions: 2, Window: time.Minute, Cooldown: time.Minute}

	_, err := store.Hit(ctx, "idle", now, policy)
	require.NoError(t, err)
	require.True(t, mr.Exists(redisKeyPrefix+"idle"))

	mr.FastForward(3 * time.Minute)
	assert.False(t, mr.Exists(redisKeyPrefix+"idle"))

	record, err := store.Peek(ctx, "idle")
	require.NoError(t, err)
	assert.Equal(t, 0, record.CountInWindow)
	assert.True(t, record.WindowStartAt.IsZero())
}
